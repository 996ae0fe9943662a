// Copyright 2026 The scrubd Authors.
//
// SPDX-License-Identifier: AGPL-3.0-only
// Please see the LICENSE file in the repository root for full details.

package sqlutil

import (
	"database/sql"
	"errors"
	"runtime"
	"sync"
)

// The Writer interface serialises database writes so that SQLite, which
// only supports one writer at a time, does not return "database is locked"
// errors under concurrent load. The PostgreSQL writer is a no-op since
// Postgres handles concurrent writers natively.
type Writer interface {
	// Queue up one or more database write operations, which is executed
	// serially with other writes queued on the same Writer.
	Do(db *sql.DB, txn *sql.Tx, f func(txn *sql.Tx) error) error
}

// DummyWriter doesn't funnel writes at all. It is used for PostgreSQL
// databases where it is not necessary to serialise writes.
type DummyWriter struct{}

// NewDummyWriter returns a new dummy writer.
func NewDummyWriter() Writer {
	return &DummyWriter{}
}

func (w *DummyWriter) Do(db *sql.DB, txn *sql.Tx, f func(txn *sql.Tx) error) error {
	if db != nil && txn == nil {
		return WithTransaction(db, f)
	}
	return f(txn)
}

// ExclusiveWriter funnels all database writes through a mutex so that
// only one write can happen at a time, as required by SQLite.
type ExclusiveWriter struct {
	running sync.Mutex
}

func NewExclusiveWriter() Writer {
	return &ExclusiveWriter{}
}

// Do queues a task to be run by the writer. The function provided will be
// run inside a transaction against the given database. It blocks until the
// task is finished.
func (w *ExclusiveWriter) Do(db *sql.DB, txn *sql.Tx, f func(txn *sql.Tx) error) error {
	if txn != nil {
		// Already inside a write transaction owned by a caller further up
		// the stack, so just run the task.
		return f(txn)
	}
	w.running.Lock()
	defer w.running.Unlock()
	if db == nil {
		return errors.New("no database connection to write to")
	}
	runtime.Gosched()
	return WithTransaction(db, f)
}
