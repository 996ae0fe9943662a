// Copyright 2026 The scrubd Authors.
//
// SPDX-License-Identifier: AGPL-3.0-only
// Please see the LICENSE file in the repository root for full details.

package sqlite3

import (
	"context"
	"database/sql"
	"fmt"

	// Import the sqlite3 database driver.
	_ "github.com/mattn/go-sqlite3"

	"github.com/wikifarm/scrubd/internal/sqlutil"
	"github.com/wikifarm/scrubd/redaction/storage/shared"
)

const tableExistsSQL = "SELECT EXISTS (SELECT 1 FROM sqlite_master WHERE type = 'table' AND name = ?)"

// Dialect implements shared.Dialect for SQLite.
type Dialect struct{}

func (Dialect) DBType() sqlutil.DBType {
	return sqlutil.DBTypeSQLite
}

func (Dialect) TableExists(ctx context.Context, db *sql.DB, table string) (bool, error) {
	var exists bool
	if err := db.QueryRowContext(ctx, tableExistsSQL, table).Scan(&exists); err != nil {
		return false, fmt.Errorf("checking for table %q: %w", table, err)
	}
	return exists, nil
}

// WaitForReplication is a no-op: an SQLite wiki database has no replica
// set to catch up.
func (Dialect) WaitForReplication(ctx context.Context, db *sql.DB) error {
	return nil
}

// NewDatabase opens a rule-execution database over an SQLite wiki.
func NewDatabase(props sqlutil.ConnectionProperties) (*shared.Database, error) {
	db, writer, err := sqlutil.Open(props)
	if err != nil {
		return nil, err
	}
	return shared.NewDatabase(db, writer, Dialect{}), nil
}
