// Copyright 2026 The scrubd Authors.
//
// SPDX-License-Identifier: AGPL-3.0-only
// Please see the LICENSE file in the repository root for full details.

package sqlutil

import (
	"database/sql"
	"fmt"
	"runtime/debug"

	"github.com/sirupsen/logrus"
)

// A Transaction is something that can be committed or rolledback.
type Transaction interface {
	// Commit the transaction
	Commit() error
	// Rollback the transaction.
	Rollback() error
}

// EndTransaction ends a transaction. If the transaction succeeded then it is
// committed, otherwise it is rolledback.
// You MUST check the error returned from this function to be sure that the
// transaction was applied correctly. For example:
//
//	defer func() { err = EndTransaction(txn, &succeeded) }()
func EndTransaction(txn Transaction, succeeded *bool) error {
	if *succeeded {
		return txn.Commit()
	}
	return txn.Rollback()
}

// WithTransaction runs a block of code passing in an SQL transaction.
// If the code returns an error or panics then the transaction is rolledback.
// Otherwise the transaction is committed.
func WithTransaction(db *sql.DB, fn func(txn *sql.Tx) error) (err error) {
	txn, err := db.Begin()
	if err != nil {
		return fmt.Errorf("sqlutil.WithTransaction.Begin: %w", err)
	}
	succeeded := false
	defer func() {
		if r := recover(); r != nil {
			txn.Rollback() // nolint: errcheck
			logrus.WithField("panic", r).Errorf("recovered from panic in database transaction:\n%s", debug.Stack())
			err = fmt.Errorf("transaction panicked: %v", r)
			return
		}
		e := EndTransaction(txn, &succeeded)
		if err == nil && e != nil {
			err = e
		}
	}()
	err = fn(txn)
	if err != nil {
		return
	}
	succeeded = true
	return
}
