// Copyright 2026 The scrubd Authors.
//
// SPDX-License-Identifier: AGPL-3.0-only
// Please see the LICENSE file in the repository root for full details.

// Package api declares the boundary to the farm's identity directory, the
// external service that owns global accounts and their wiki attachments.
// scrubd consumes this interface and never reimplements the directory.
package api

import "context"

// GlobalAccount is one account in the farm-wide identity directory.
type GlobalAccount struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Hidden bool   `json:"hidden"`
	Locked bool   `json:"locked"`
	// RenameInProgress is set while the rename subsystem holds this
	// account, during which no redaction may be dispatched.
	RenameInProgress bool `json:"rename_in_progress"`
}

// GlobalDirectory is the identity directory collaborator.
type GlobalDirectory interface {
	// GlobalAccount resolves a username to its global account. Returns
	// nil with no error if the account does not exist.
	GlobalAccount(ctx context.Context, name string) (*GlobalAccount, error)
	// ListAttached returns the identifiers of every wiki database where
	// the account has local data.
	ListAttached(ctx context.Context, name string) ([]string, error)
	// Lock prevents any further login or use of the account.
	Lock(ctx context.Context, name string) error
	// ClearEmail removes the account's email address at the directory.
	// This is the single ownership point for account-level email removal.
	ClearEmail(ctx context.Context, name string) error
	// InvalidateCache drops any state cached for the account, both in
	// this process and at the directory.
	InvalidateCache(ctx context.Context, name string) error
}

// RenameOptions control how the external rename capability performs a
// rename on scrubd's behalf.
type RenameOptions struct {
	// SuppressRedirects stops the rename leaving redirects from the old
	// user pages behind.
	SuppressRedirects bool `json:"suppress_redirects"`
	// SuppressLog stops the rename writing its own log entry, which
	// would otherwise record the old name we are about to scrub.
	SuppressLog bool `json:"suppress_log"`
	// Force performs the rename even if the target name is reserved.
	Force bool `json:"force"`
}

// Renamer is the external rename capability. scrubd decides when to invoke
// it and with which options; the rename's own database and page-move
// updates are entirely the collaborator's business.
type Renamer interface {
	Rename(ctx context.Context, performer, oldName, newName string, opts RenameOptions) error
}
