// Copyright 2026 The scrubd Authors.
//
// SPDX-License-Identifier: AGPL-3.0-only
// Please see the LICENSE file in the repository root for full details.

// Package redaction wires the redaction engine together: the orchestrator
// that validates and fans out requests, the job consumer that runs the
// per-database passes, and the PII exporter.
package redaction

import (
	"github.com/nats-io/nats.go"

	directoryapi "github.com/wikifarm/scrubd/directory/api"
	"github.com/wikifarm/scrubd/internal/sqlutil"
	"github.com/wikifarm/scrubd/redaction/api"
	"github.com/wikifarm/scrubd/redaction/consumers"
	"github.com/wikifarm/scrubd/redaction/export"
	"github.com/wikifarm/scrubd/redaction/internal"
	"github.com/wikifarm/scrubd/redaction/producers"
	"github.com/wikifarm/scrubd/redaction/rules"
	"github.com/wikifarm/scrubd/redaction/storage"
	"github.com/wikifarm/scrubd/setup/config"
	"github.com/wikifarm/scrubd/setup/jetstream"
	"github.com/wikifarm/scrubd/setup/process"
)

// CacheDeferrer holds cache invalidations for an account open until a
// redaction request has been fully dispatched.
type CacheDeferrer = internal.CacheDeferrer

// LoadRuleSet loads the configured rule table, or the built-in one if no
// override is configured.
func LoadRuleSet(cfg *config.Redaction) (*rules.RuleSet, error) {
	if cfg.RulesPath != "" {
		return rules.LoadFile(cfg.RulesPath)
	}
	return rules.LoadDefault()
}

// OpenDatabase returns the database opener used by jobs and exports,
// resolving connection strings through the wikis configuration.
func OpenDatabase(cfg *config.Wikis) func(database string) (storage.Database, error) {
	return func(database string) (storage.Database, error) {
		cs, err := cfg.ConnectionString(database)
		if err != nil {
			return nil, err
		}
		return storage.Open(sqlutil.ConnectionProperties{
			ConnectionString:   cs,
			MaxOpenConnections: cfg.MaxOpenConnections,
			MaxIdleConnections: cfg.MaxIdleConnections,
			ConnMaxLifetime:    cfg.ConnMaxLifetime,
		})
	}
}

// NewRedactionAPI constructs the orchestrator behind the admin API.
func NewRedactionAPI(
	cfg *config.Scrubd,
	dir directoryapi.GlobalDirectory,
	renamer directoryapi.Renamer,
	deferrer CacheDeferrer,
	js nats.JetStreamContext,
) api.RedactionAPI {
	return &internal.Orchestrator{
		Cfg:       &cfg.Redaction,
		Directory: dir,
		Renamer:   renamer,
		Deferrer:  deferrer,
		Producer: &producers.RedactionJob{
			JetStream: js,
			Topic:     cfg.Global.JetStream.Prefixed(jetstream.InputRedactionJob),
		},
	}
}

// NewJobConsumer constructs the consumer that runs per-database redaction
// passes off the work queue. Call Start on it once the process is ready.
func NewJobConsumer(
	processCtx *process.ProcessContext,
	cfg *config.Scrubd,
	js nats.JetStreamContext,
	ruleSet *rules.RuleSet,
) *consumers.RedactionJobConsumer {
	redactor := &internal.Redactor{
		Cfg:          &cfg.Redaction,
		RuleSet:      ruleSet,
		OpenDatabase: OpenDatabase(&cfg.Wikis),
	}
	return consumers.NewRedactionJobConsumer(processCtx, &cfg.Global.JetStream, js, redactor)
}

// NewExportAPI constructs the PII exporter writing to the configured export
// directory.
func NewExportAPI(cfg *config.Scrubd, ruleSet *rules.RuleSet) api.ExportAPI {
	return &internal.Exporter{
		Cfg:          &cfg.Redaction,
		RuleSet:      ruleSet,
		Store:        export.NewStore(cfg.Redaction.ExportDirectory, cfg.Redaction.ExportFormat),
		OpenDatabase: OpenDatabase(&cfg.Wikis),
	}
}
