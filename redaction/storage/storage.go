// Copyright 2026 The scrubd Authors.
//
// SPDX-License-Identifier: AGPL-3.0-only
// Please see the LICENSE file in the repository root for full details.

package storage

import (
	"fmt"

	"github.com/wikifarm/scrubd/internal/sqlutil"
	"github.com/wikifarm/scrubd/redaction/storage/postgres"
	"github.com/wikifarm/scrubd/redaction/storage/sqlite3"
)

// Open opens one wiki database, picking the dialect from the connection
// string. The caller owns the returned Database for the duration of its
// pass and must Close it.
func Open(props sqlutil.ConnectionProperties) (Database, error) {
	dbType, err := sqlutil.ParseDBType(props.ConnectionString)
	if err != nil {
		return nil, err
	}
	switch dbType {
	case sqlutil.DBTypePostgres:
		return postgres.NewDatabase(props)
	case sqlutil.DBTypeSQLite:
		return sqlite3.NewDatabase(props)
	default:
		return nil, fmt.Errorf("unexpected database type %q", dbType)
	}
}
