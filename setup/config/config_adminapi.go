// Copyright 2026 The scrubd Authors.
//
// SPDX-License-Identifier: AGPL-3.0-only
// Please see the LICENSE file in the repository root for full details.

package config

type AdminAPI struct {
	Global *Global `yaml:"-"`

	// ListenAddress for the operator HTTP surface.
	ListenAddress string `yaml:"listen"`

	// AccessToken that operators must present as a bearer token. The
	// redaction endpoint is destructive, so there is no anonymous access.
	AccessToken string `yaml:"access_token"`

	// HashPrefixOptions are the selectable prefixes for the random hash
	// generator, used to mint anonymized replacement usernames.
	HashPrefixOptions []string `yaml:"hash_prefix_options"`
}

func (c *AdminAPI) Defaults(opts DefaultOpts) {
	c.ListenAddress = "localhost:8074"
	if opts.Generate {
		c.HashPrefixOptions = []string{"Scrubbed-"}
	}
}

func (c *AdminAPI) Verify(configErrs *ConfigErrors) {
	checkNotEmpty(configErrs, "admin_api.listen", c.ListenAddress)
	checkNotEmpty(configErrs, "admin_api.access_token", c.AccessToken)
}
