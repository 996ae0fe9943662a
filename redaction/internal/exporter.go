// Copyright 2026 The scrubd Authors.
//
// SPDX-License-Identifier: AGPL-3.0-only
// Please see the LICENSE file in the repository root for full details.

package internal

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/wikifarm/scrubd/redaction/export"
	"github.com/wikifarm/scrubd/redaction/rules"
	"github.com/wikifarm/scrubd/setup/config"
)

// Exporter collects the PII still held for an account in one wiki database
// and merges it into the on-disk export artifact. It reads the same rule
// table the redactor writes with, so the export always covers exactly the
// columns a redaction would touch.
type Exporter struct {
	Cfg          *config.Redaction
	RuleSet      *rules.RuleSet
	Store        *export.Store
	OpenDatabase OpenDatabaseFunc
}

// ExportDatabase gathers PII for username from the named database and merges
// it into the artifact for that user. Tables that cannot be read are logged
// and skipped so one broken extension table never blocks the export.
func (e *Exporter) ExportDatabase(ctx context.Context, database, username string) error {
	log := logrus.WithFields(logrus.Fields{
		"database": database,
		"user":     username,
	})

	db, err := e.OpenDatabase(database)
	if err != nil {
		return err
	}
	defer db.Close() // nolint: errcheck

	target, err := db.ResolveTarget(ctx, database, username, username)
	if err != nil {
		return err
	}
	if target.UserID == 0 {
		log.Debug("Account does not exist in this database, nothing to export")
		return nil
	}

	var fields []string

	account, err := db.AccountPII(ctx, target)
	if err != nil {
		log.WithError(err).Error("Failed to read account PII")
	} else {
		if account.Email != "" {
			fields = append(fields, export.FormatField("email", account.Email, database))
		}
		if account.RealName != "" {
			fields = append(fields, export.FormatField("real name", account.RealName, database))
		}
		if account.Gender != "" {
			fields = append(fields, export.FormatField("gender", account.Gender, database))
		}
	}

	for _, sel := range e.RuleSet.SelectRules(e.Cfg.FeatureEnabled) {
		if sel.UsesBinding(rules.BindActorID) && target.ActorID == 0 {
			continue
		}
		exists, err := db.TableExists(ctx, sel.Table)
		if err != nil || !exists {
			if err != nil {
				log.WithError(err).WithField("table", sel.Table).Error("Failed to check table existence")
			}
			continue
		}
		values, err := db.SelectPII(ctx, sel, target)
		if err != nil {
			log.WithError(err).WithField("table", sel.Table).Error("Failed to select PII, skipping table")
			continue
		}
		for _, v := range values {
			if v.Value == "" {
				continue
			}
			fields = append(fields, export.FormatField(v.Field, v.Value, database))
		}
	}

	if len(fields) == 0 {
		log.Debug("No PII found in this database")
		return nil
	}
	return e.Store.Merge(&export.Record{User: username, Fields: fields})
}
