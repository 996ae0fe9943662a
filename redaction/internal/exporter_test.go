// Copyright 2026 The scrubd Authors.
//
// SPDX-License-Identifier: AGPL-3.0-only
// Please see the LICENSE file in the repository root for full details.

package internal

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wikifarm/scrubd/redaction/export"
	"github.com/wikifarm/scrubd/redaction/storage"
	"github.com/wikifarm/scrubd/redaction/types"
	"github.com/wikifarm/scrubd/setup/config"
)

func testExporter(t *testing.T, db *fakeDatabase) *Exporter {
	t.Helper()
	return &Exporter{
		Cfg:     &config.Redaction{ExportFormat: "json"},
		RuleSet: testRuleSet(t),
		Store:   &export.Store{Dir: t.TempDir(), Format: "json"},
		OpenDatabase: func(string) (storage.Database, error) {
			return db, nil
		},
	}
}

func TestExportDatabaseWritesAccountAndRulePII(t *testing.T) {
	db := &fakeDatabase{
		target:  types.Target{UserID: 42, ActorID: 7},
		account: types.AccountPII{Email: "alice@example.com", RealName: "Alice Smith"},
		pii: map[string][]types.PIIValue{
			"recentchanges": {
				{Field: "rc_ip", Value: "198.51.100.7"},
				{Field: "rc_ip", Value: ""},
			},
		},
	}
	e := testExporter(t, db)
	require.NoError(t, e.ExportDatabase(context.Background(), "wiki1", "Alice Smith"))

	rec, err := e.Store.Load("Alice Smith")
	require.NoError(t, err)
	assert.Contains(t, rec.Fields, "email: alice@example.com (wiki1)")
	assert.Contains(t, rec.Fields, "real name: Alice Smith (wiki1)")
	assert.Contains(t, rec.Fields, "rc_ip: 198.51.100.7 (wiki1)")
	for _, field := range rec.Fields {
		assert.NotContains(t, field, "rc_ip:  ", "empty values are not exported")
	}
	assert.Len(t, rec.Fields, 3)
}

func TestExportDatabaseSkipsUnknownAccount(t *testing.T) {
	db := &fakeDatabase{target: types.Target{UserID: 0}}
	e := testExporter(t, db)
	require.NoError(t, e.ExportDatabase(context.Background(), "wiki1", "Nobody"))

	rec, err := e.Store.Load("Nobody")
	require.NoError(t, err)
	assert.Empty(t, rec.Fields)
}
