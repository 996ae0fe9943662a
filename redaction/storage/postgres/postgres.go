// Copyright 2026 The scrubd Authors.
//
// SPDX-License-Identifier: AGPL-3.0-only
// Please see the LICENSE file in the repository root for full details.

package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	// Import the postgres database driver.
	_ "github.com/lib/pq"

	"github.com/wikifarm/scrubd/internal/sqlutil"
	"github.com/wikifarm/scrubd/redaction/storage/shared"
)

const tableExistsSQL = "SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_schema = current_schema() AND table_name = $1)"

// Replication lag on the primary's attached replicas, in seconds. Wikis
// without streaming replicas report zero.
const replicationLagSQL = "SELECT COALESCE(EXTRACT(EPOCH FROM max(replay_lag)), 0) FROM pg_stat_replication"

const (
	replicationPollInterval = 100 * time.Millisecond
	maxAcceptableLag        = 1.0 // seconds
)

// Dialect implements shared.Dialect for PostgreSQL.
type Dialect struct{}

func (Dialect) DBType() sqlutil.DBType {
	return sqlutil.DBTypePostgres
}

func (Dialect) TableExists(ctx context.Context, db *sql.DB, table string) (bool, error) {
	var exists bool
	if err := db.QueryRowContext(ctx, tableExistsSQL, table).Scan(&exists); err != nil {
		return false, fmt.Errorf("checking for table %q: %w", table, err)
	}
	return exists, nil
}

// WaitForReplication polls the replication lag on the primary until every
// attached replica has caught up to within a second, or the context
// expires. This bounds the staleness that later rules in the same pass
// can observe.
func (Dialect) WaitForReplication(ctx context.Context, db *sql.DB) error {
	for {
		var lag float64
		if err := db.QueryRowContext(ctx, replicationLagSQL).Scan(&lag); err != nil {
			return fmt.Errorf("reading replication lag: %w", err)
		}
		if lag < maxAcceptableLag {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("replicas did not catch up: %w", ctx.Err())
		case <-time.After(replicationPollInterval):
		}
	}
}

// NewDatabase opens a rule-execution database over a PostgreSQL wiki.
func NewDatabase(props sqlutil.ConnectionProperties) (*shared.Database, error) {
	db, writer, err := sqlutil.Open(props)
	if err != nil {
		return nil, err
	}
	return shared.NewDatabase(db, writer, Dialect{}), nil
}
