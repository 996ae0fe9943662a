// Copyright 2026 The scrubd Authors.
//
// SPDX-License-Identifier: AGPL-3.0-only
// Please see the LICENSE file in the repository root for full details.

package sqlutil

import (
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// DBType identifies which database driver a connection string refers to.
type DBType string

const (
	DBTypePostgres DBType = "postgres"
	DBTypeSQLite   DBType = "sqlite3"
)

// ParseDBType inspects a connection string and works out which driver it
// is for. SQLite URIs start with "file:", everything else is assumed to be
// a PostgreSQL DSN or URL.
func ParseDBType(connectionString string) (DBType, error) {
	switch {
	case strings.HasPrefix(connectionString, "file:"):
		return DBTypeSQLite, nil
	case strings.HasPrefix(connectionString, "postgres:"),
		strings.HasPrefix(connectionString, "postgresql:"),
		strings.Contains(connectionString, "dbname="):
		return DBTypePostgres, nil
	default:
		return "", fmt.Errorf("unrecognised database connection string %q", connectionString)
	}
}

// ConnectionProperties describe how to open and pool one database connection.
type ConnectionProperties struct {
	ConnectionString   string
	MaxOpenConnections int
	MaxIdleConnections int
	ConnMaxLifetime    time.Duration
}

// Open opens a database connection for the given properties and returns it
// along with a Writer appropriate for the underlying driver.
func Open(props ConnectionProperties) (*sql.DB, Writer, error) {
	dbType, err := ParseDBType(props.ConnectionString)
	if err != nil {
		return nil, nil, err
	}
	var driverName, dsn string
	var writer Writer
	switch dbType {
	case DBTypeSQLite:
		driverName = "sqlite3"
		dsn, err = sqliteDSN(props.ConnectionString)
		if err != nil {
			return nil, nil, err
		}
		writer = NewExclusiveWriter()
	case DBTypePostgres:
		driverName = "postgres"
		dsn = props.ConnectionString
		writer = NewDummyWriter()
	}
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("sql.Open: %w", err)
	}
	if dbType == DBTypeSQLite {
		// SQLite is single-writer, so constrain the pool rather than
		// letting database/sql open concurrent write connections.
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(props.MaxOpenConnections)
		db.SetMaxIdleConns(props.MaxIdleConnections)
		db.SetConnMaxLifetime(props.ConnMaxLifetime)
	}
	return db, writer, nil
}

func sqliteDSN(connectionString string) (string, error) {
	uri := strings.TrimPrefix(connectionString, "file:")
	if uri == "" {
		return "", fmt.Errorf("empty sqlite database path in %q", connectionString)
	}
	return fmt.Sprintf("file:%s?_busy_timeout=10000", uri), nil
}
