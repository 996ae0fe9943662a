// Copyright 2026 The scrubd Authors.
//
// SPDX-License-Identifier: AGPL-3.0-only
// Please see the LICENSE file in the repository root for full details.

package config

import (
	"fmt"
	"strings"
	"time"
)

// Wikis describes how to reach each attached wiki database.
type Wikis struct {
	// ConnectionTemplate is expanded with the database identifier to
	// produce a connection string, e.g. "postgres://scrub@db/%s" or
	// "file:/data/wikis/%s.db". Entries in Connections override it.
	ConnectionTemplate string `yaml:"connection_template"`
	// Connections maps database identifiers to explicit connection
	// strings for wikis that do not follow the template.
	Connections map[string]string `yaml:"connections"`

	MaxOpenConnections int           `yaml:"max_open_conns"`
	MaxIdleConnections int           `yaml:"max_idle_conns"`
	ConnMaxLifetime    time.Duration `yaml:"conn_max_lifetime"`
}

func (c *Wikis) Defaults(opts DefaultOpts) {
	c.MaxOpenConnections = 10
	c.MaxIdleConnections = 2
	c.ConnMaxLifetime = -time.Second
	if opts.Generate {
		c.ConnectionTemplate = "file:%s.db"
	}
}

func (c *Wikis) Verify(configErrs *ConfigErrors) {
	if c.ConnectionTemplate == "" && len(c.Connections) == 0 {
		configErrs.Add("either wikis.connection_template or wikis.connections must be set")
	}
	if c.ConnectionTemplate != "" && !strings.Contains(c.ConnectionTemplate, "%s") {
		configErrs.Add("wikis.connection_template must contain %s for the database identifier")
	}
	checkPositive(configErrs, "wikis.max_open_conns", int64(c.MaxOpenConnections))
	checkPositive(configErrs, "wikis.max_idle_conns", int64(c.MaxIdleConnections))
}

// ConnectionString resolves the connection string for one database
// identifier.
func (c *Wikis) ConnectionString(database string) (string, error) {
	if cs, ok := c.Connections[database]; ok {
		return cs, nil
	}
	if c.ConnectionTemplate == "" {
		return "", fmt.Errorf("no connection configured for database %q", database)
	}
	return fmt.Sprintf(c.ConnectionTemplate, database), nil
}

// Redaction configures the redaction engine itself.
type Redaction struct {
	Global *Global `yaml:"-"`

	// RulesPath optionally points at a yaml rule table to use instead of
	// the built-in one.
	RulesPath string `yaml:"rules_path"`

	// Features lists the optional wiki features deployed on this farm.
	// Rules and page namespaces belonging to features not listed here
	// are skipped without touching the database.
	Features []string `yaml:"features"`

	// SystemActor is the reserved username that page suppressions are
	// attributed to, so that they do not appear as the acting
	// administrator's own actions.
	SystemActor string `yaml:"system_actor"`

	// ExportDirectory is where PII export artifacts are written.
	ExportDirectory string `yaml:"export_directory"`

	// ExportFormat is "csv" or "json".
	ExportFormat string `yaml:"export_format"`

	// ReplicationWait bounds how long a job waits for replicas to catch
	// up after each mutating rule.
	ReplicationWait time.Duration `yaml:"replication_wait"`
}

func (c *Redaction) Defaults(opts DefaultOpts) {
	c.SystemActor = "Farm default"
	c.ExportFormat = "csv"
	c.ReplicationWait = 30 * time.Second
	if opts.Generate {
		c.ExportDirectory = "./pii_exports"
	}
}

func (c *Redaction) Verify(configErrs *ConfigErrors) {
	checkNotEmpty(configErrs, "redaction.system_actor", c.SystemActor)
	checkNotEmpty(configErrs, "redaction.export_directory", c.ExportDirectory)
	switch c.ExportFormat {
	case "csv", "json":
	default:
		configErrs.Add(fmt.Sprintf("invalid value for config key %q: %q", "redaction.export_format", c.ExportFormat))
	}
}

// FeatureEnabled reports whether an optional farm feature is deployed.
// An empty feature name means the rule or namespace is part of core and
// is always enabled.
func (c *Redaction) FeatureEnabled(name string) bool {
	if name == "" {
		return true
	}
	for _, feature := range c.Features {
		if strings.EqualFold(feature, name) {
			return true
		}
	}
	return false
}
