// Copyright 2026 The scrubd Authors.
//
// SPDX-License-Identifier: AGPL-3.0-only
// Please see the LICENSE file in the repository root for full details.

// piiexport collects the PII still held for an account across the farm's
// wiki databases into an export artifact, for data subject access requests.
// It runs out of band of the scrubd server against the same configuration.
package main

import (
	"encoding/json"
	"flag"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/wikifarm/scrubd/directory"
	"github.com/wikifarm/scrubd/redaction"
	"github.com/wikifarm/scrubd/setup/config"
	"github.com/wikifarm/scrubd/setup/process"
)

var (
	configPath = flag.String("config", "scrubd.yaml", "The path to the config file")
	username   = flag.String("user", "", "The account to export PII for")
	database   = flag.String("database", "", "Export from this database only instead of every attached wiki")
	generate   = flag.Bool("generate", false, "Write the attached-wikis dblist as JSON instead of exporting")
	output     = flag.String("output", "", "Write the dblist to this file instead of stdout")
)

// dblist is the artifact consumed by farm tooling that expects the combi
// dblist shape: a map of database identifiers under a single "combi" key.
type dblist struct {
	Combi map[string]struct{} `json:"combi"`
}

func main() {
	flag.Parse()
	if *username == "" {
		logrus.Fatal("A -user must be given")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		logrus.WithError(err).Fatalf("Failed to load config from %q", *configPath)
	}

	processCtx := process.NewProcessContext()
	defer processCtx.ShutdownScrubd()
	ctx := processCtx.Context()

	client := directory.NewClient(cfg.Directory.BaseURL, cfg.Directory.AccessToken)

	databases := []string{*database}
	if *database == "" {
		databases, err = client.ListAttached(ctx, *username)
		if err != nil {
			logrus.WithError(err).Fatal("Failed to list attached wikis")
		}
	}

	if *generate {
		if err := writeDBList(databases, *output); err != nil {
			logrus.WithError(err).Fatal("Failed to write dblist")
		}
		return
	}

	ruleSet, err := redaction.LoadRuleSet(&cfg.Redaction)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load redaction rule table")
	}
	exporter := redaction.NewExportAPI(cfg, ruleSet)

	failed := 0
	for _, db := range databases {
		if err := exporter.ExportDatabase(ctx, db, *username); err != nil {
			logrus.WithError(err).WithField("database", db).Error("Export failed for database")
			failed++
		}
	}
	if failed > 0 {
		logrus.Fatalf("Export incomplete: %d of %d databases failed", failed, len(databases))
	}
	logrus.WithField("databases", len(databases)).Info("PII export complete")
}

func writeDBList(databases []string, path string) error {
	list := dblist{Combi: make(map[string]struct{}, len(databases))}
	for _, db := range databases {
		list.Combi[db] = struct{}{}
	}
	out := os.Stdout
	if path != "" {
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer f.Close() // nolint: errcheck
		out = f
	}
	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "\t")
	return encoder.Encode(list)
}
