// Copyright 2026 The scrubd Authors.
//
// SPDX-License-Identifier: AGPL-3.0-only
// Please see the LICENSE file in the repository root for full details.

package config

import (
	"fmt"
	"time"
)

type Global struct {
	// FarmName identifies this wiki farm in logs and metrics.
	FarmName string `yaml:"farm_name"`

	JetStream JetStream `yaml:"jetstream"`
	Cache     Cache     `yaml:"cache"`
	Sentry    Sentry    `yaml:"sentry"`
	Metrics   Metrics   `yaml:"metrics"`
	Logging   Logging   `yaml:"logging"`
}

func (c *Global) Defaults(opts DefaultOpts) {
	if opts.Generate {
		c.FarmName = "localhost"
	}
	c.JetStream.Defaults(opts)
	c.Cache.Defaults(opts)
	c.Logging.Defaults(opts)
}

func (c *Global) Verify(configErrs *ConfigErrors) {
	checkNotEmpty(configErrs, "global.farm_name", c.FarmName)
	c.JetStream.Verify(configErrs)
	c.Cache.Verify(configErrs)
}

// JetStream describes where to find NATS JetStream. If no addresses are
// configured, an in-process NATS server is started instead.
type JetStream struct {
	// A list of NATS addresses to connect to. If empty, an internal
	// NATS server will be used when running in monolith mode only.
	Addresses []string `yaml:"addresses"`
	// The prefix to use for stream names for this wiki farm - useful
	// if you are sharing a NATS deployment between multiple installs.
	TopicPrefix string `yaml:"topic_prefix"`
	// Where the NATS storage will be kept when using the embedded server.
	StoragePath string `yaml:"storage_path"`
	// Keep all storage in memory. Only useful for tests.
	InMemory bool `yaml:"in_memory"`
	// Disable logging.
	NoLog bool `yaml:"disable_logging"`
}

func (c *JetStream) Defaults(opts DefaultOpts) {
	c.Addresses = []string{}
	c.TopicPrefix = "Scrubd"
	if opts.Generate {
		c.StoragePath = "./"
		c.NoLog = true
	}
}

func (c *JetStream) Verify(configErrs *ConfigErrors) {}

// Prefixed returns a stream or subject name with the topic prefix applied.
func (c *JetStream) Prefixed(name string) string {
	return fmt.Sprintf("%s%s", c.TopicPrefix, name)
}

// Durable returns a durable consumer name with the topic prefix applied.
func (c *JetStream) Durable(name string) string {
	return c.Prefixed(name)
}

type Cache struct {
	EstimatedMaxSize DataUnit      `yaml:"max_size_estimated"`
	MaxAge           time.Duration `yaml:"max_age"`
	EnablePrometheus bool          `yaml:"enable_prometheus"`
}

func (c *Cache) Defaults(opts DefaultOpts) {
	c.EstimatedMaxSize = 64 * 1024 * 1024 // 64mb
	c.MaxAge = time.Hour
}

func (c *Cache) Verify(configErrs *ConfigErrors) {
	checkPositive(configErrs, "global.cache.max_size_estimated", int64(c.EstimatedMaxSize))
}

// DataUnit is a byte count in configuration.
type DataUnit int64

type Sentry struct {
	Enabled     bool   `yaml:"enabled"`
	DSN         string `yaml:"dsn"`
	Environment string `yaml:"environment"`
}

type Metrics struct {
	Enabled bool `yaml:"enabled"`
}

type Logging struct {
	Level string `yaml:"level"`
}

func (c *Logging) Defaults(opts DefaultOpts) {
	c.Level = "info"
}

// Directory configures the identity directory collaborator.
type Directory struct {
	// BaseURL of the identity directory service.
	BaseURL string `yaml:"base_url"`
	// AccessToken presented as a bearer token on directory requests.
	AccessToken string `yaml:"access_token"`
}

func (c *Directory) Defaults(opts DefaultOpts) {
	if opts.Generate {
		c.BaseURL = "http://localhost:8072"
	}
}

func (c *Directory) Verify(configErrs *ConfigErrors) {
	checkNotEmpty(configErrs, "directory.base_url", c.BaseURL)
}
