// Copyright 2026 The scrubd Authors.
//
// SPDX-License-Identifier: AGPL-3.0-only
// Please see the LICENSE file in the repository root for full details.

// Package storage gives the redaction engine access to one wiki database
// at a time. Rules are executed here; which rules to run and in what
// order is the redactor's business.
package storage

import (
	"context"

	"github.com/wikifarm/scrubd/redaction/rules"
	"github.com/wikifarm/scrubd/redaction/types"
)

// Database is one wiki database during a redaction or export pass.
type Database interface {
	// ResolveTarget looks up the local numeric ID and actor reference
	// for the identity's current name.
	ResolveTarget(ctx context.Context, database, oldName, newName string) (*types.Target, error)

	// TableExists reports whether a table is present. Absent tables are
	// skipped by the caller, never treated as failure.
	TableExists(ctx context.Context, table string) (bool, error)

	// ExecuteUpdate applies one update rule, returning affected rows.
	ExecuteUpdate(ctx context.Context, rule rules.Rule, target *types.Target) (int64, error)

	// ExecuteDelete applies one delete rule, returning affected rows.
	ExecuteDelete(ctx context.Context, rule rules.Rule, target *types.Target) (int64, error)

	// SelectPII reads the current values of the columns a rule would
	// scrub, for the audit export.
	SelectPII(ctx context.Context, sel rules.SelectRule, target *types.Target) ([]types.PIIValue, error)

	// AccountPII reads email, real name and display gender from the
	// local user row.
	AccountPII(ctx context.Context, target *types.Target) (*types.AccountPII, error)

	// DeleteRenameEvents removes log and recent-changes entries for the
	// identity's own rename event and its legacy username-history event.
	DeleteRenameEvents(ctx context.Context, target *types.Target) error

	// SelectUserPages finds the identity's pages in the given namespaces
	// by exact title or subpage prefix.
	SelectUserPages(ctx context.Context, namespaces []int, titleKey string) ([]types.Page, error)

	// SuppressPage hard-deletes one page: live revisions move to the
	// archive with the suppression bits set, prior archived revisions
	// are suppressed too, and the page row is removed.
	SuppressPage(ctx context.Context, page types.Page) error

	// PurgePageReferences removes logging and recent-changes rows that
	// reference the identity's page titles, exact or subpage prefix.
	PurgePageReferences(ctx context.Context, namespaces []int, titleKey string) error

	// WaitForReplication blocks until local replicas have caught up, so
	// later rules in the same pass see a consistent view.
	WaitForReplication(ctx context.Context) error

	Close() error
}
