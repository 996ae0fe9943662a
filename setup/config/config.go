// Copyright 2026 The scrubd Authors.
//
// SPDX-License-Identifier: AGPL-3.0-only
// Please see the LICENSE file in the repository root for full details.

package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Scrubd is the top-level configuration for every scrubd component.
type Scrubd struct {
	// Version of the configuration file format.
	Version int `yaml:"version"`

	Global    Global    `yaml:"global"`
	Directory Directory `yaml:"directory"`
	Wikis     Wikis     `yaml:"wikis"`
	Redaction Redaction `yaml:"redaction"`
	AdminAPI  AdminAPI  `yaml:"admin_api"`
}

const currentConfigVersion = 1

type DefaultOpts struct {
	Generate bool
}

func (c *Scrubd) Defaults(opts DefaultOpts) {
	c.Version = currentConfigVersion
	c.Global.Defaults(opts)
	c.Directory.Defaults(opts)
	c.Wikis.Defaults(opts)
	c.Redaction.Defaults(opts)
	c.AdminAPI.Defaults(opts)
	c.Wire()
}

// Wire connects the component sections to the global section, mirroring
// how the yaml decoder leaves the Global pointers unset.
func (c *Scrubd) Wire() {
	c.Redaction.Global = &c.Global
	c.AdminAPI.Global = &c.Global
}

func (c *Scrubd) Verify(configErrs *ConfigErrors) {
	if c.Version != currentConfigVersion {
		configErrs.Add(fmt.Sprintf(
			"config version must be %d, found %d", currentConfigVersion, c.Version,
		))
	}
	c.Global.Verify(configErrs)
	c.Directory.Verify(configErrs)
	c.Wikis.Verify(configErrs)
	c.Redaction.Verify(configErrs)
	c.AdminAPI.Verify(configErrs)
}

// Load a yaml config file, apply defaults for anything unset, verify it
// and return it.
func Load(configPath string) (*Scrubd, error) {
	contents, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}
	return loadConfig(contents)
}

func loadConfig(contents []byte) (*Scrubd, error) {
	var c Scrubd
	c.Defaults(DefaultOpts{})
	if err := yaml.Unmarshal(contents, &c); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	c.Wire()
	var configErrs ConfigErrors
	c.Verify(&configErrs)
	if len(configErrs) > 0 {
		return nil, configErrs
	}
	return &c, nil
}

// ConfigErrors stores problems encountered when parsing a config file.
// It implements the error interface.
type ConfigErrors []string

func (errs *ConfigErrors) Add(str string) {
	*errs = append(*errs, str)
}

func (errs ConfigErrors) Error() string {
	if len(errs) == 1 {
		return errs[0]
	}
	return fmt.Sprintf(
		"%s (and %d other problems)", errs[0], len(errs)-1,
	)
}

// checkNotEmpty verifies the given value is not empty in the configuration.
// If it is, adds an error to the list.
func checkNotEmpty(configErrs *ConfigErrors, key, value string) {
	if value == "" {
		configErrs.Add(fmt.Sprintf("missing config key %q", key))
	}
}

// checkPositive verifies the given value is positive (zero included)
// in the configuration. If it is not, adds an error to the list.
func checkPositive(configErrs *ConfigErrors, key string, value int64) {
	if value < 0 {
		configErrs.Add(fmt.Sprintf("invalid value for config key %q: %d", key, value))
	}
}
