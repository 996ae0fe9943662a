// Copyright 2026 The scrubd Authors.
//
// SPDX-License-Identifier: AGPL-3.0-only
// Please see the LICENSE file in the repository root for full details.

// Package shared implements the rule execution engine over database/sql.
// Everything dialect-specific (table existence, replication barriers,
// placeholder style) is delegated to the Dialect.
package shared

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/wikifarm/scrubd/internal/sqlutil"
	"github.com/wikifarm/scrubd/redaction/rules"
	"github.com/wikifarm/scrubd/redaction/types"
)

// Dialect covers the differences between the supported database engines.
type Dialect interface {
	DBType() sqlutil.DBType
	TableExists(ctx context.Context, db *sql.DB, table string) (bool, error)
	// WaitForReplication blocks until the engine's replicas have caught
	// up with the primary, or the context expires.
	WaitForReplication(ctx context.Context, db *sql.DB) error
}

// Suppression bit field on archived revisions: text, comment, user and
// restricted all hidden, so the content is invisible even to ordinary
// deleted-revision review.
const suppressedRevision = 15

type Database struct {
	DB      *sql.DB
	Writer  sqlutil.Writer
	Dialect Dialect
}

func NewDatabase(db *sql.DB, writer sqlutil.Writer, dialect Dialect) *Database {
	return &Database{DB: db, Writer: writer, Dialect: dialect}
}

func (d *Database) rebind(query string) string {
	return sqlutil.Rebind(d.Dialect.DBType(), query)
}

const selectUserIDSQL = "SELECT user_id FROM user_account WHERE user_name = ?"
const selectActorIDSQL = "SELECT actor_id FROM actor WHERE actor_name = ?"

// ResolveTarget looks up the local user ID and actor reference for the
// identity's current name. A missing actor row yields ActorID zero.
func (d *Database) ResolveTarget(ctx context.Context, database, oldName, newName string) (*types.Target, error) {
	target := &types.Target{
		Database: database,
		OldName:  oldName,
		NewName:  newName,
	}
	err := d.DB.QueryRowContext(ctx, d.rebind(selectUserIDSQL), newName).Scan(&target.UserID)
	if err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("resolving user ID for %q: %w", newName, err)
	}
	err = d.DB.QueryRowContext(ctx, d.rebind(selectActorIDSQL), newName).Scan(&target.ActorID)
	if err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("resolving actor ID for %q: %w", newName, err)
	}
	return target, nil
}

func (d *Database) TableExists(ctx context.Context, table string) (bool, error) {
	return d.Dialect.TableExists(ctx, d.DB, table)
}

// resolveBinding turns a rule binding into its value for this target.
func resolveBinding(bind rules.Binding, target *types.Target) (interface{}, error) {
	switch bind {
	case rules.BindActorID:
		return target.ActorID, nil
	case rules.BindUserID:
		return target.UserID, nil
	case rules.BindOldName:
		return target.OldName, nil
	case rules.BindNewName:
		return target.NewName, nil
	default:
		return nil, fmt.Errorf("unknown binding %q", bind)
	}
}

func buildWhere(where []rules.Predicate, target *types.Target) (string, []interface{}, error) {
	clauses := make([]string, 0, len(where))
	args := make([]interface{}, 0, len(where))
	for _, p := range where {
		clauses = append(clauses, p.Column+" = ?")
		if p.Value != nil {
			args = append(args, *p.Value)
			continue
		}
		value, err := resolveBinding(p.Bind, target)
		if err != nil {
			return "", nil, err
		}
		args = append(args, value)
	}
	return strings.Join(clauses, " AND "), args, nil
}

// ExecuteUpdate applies one update rule inside its own transaction.
// Columns are set in sorted order so the generated SQL is deterministic.
func (d *Database) ExecuteUpdate(ctx context.Context, rule rules.Rule, target *types.Target) (int64, error) {
	assignments := make([]string, 0, len(rule.Set))
	args := make([]interface{}, 0, len(rule.Set)+len(rule.Where))
	for _, column := range rule.SetColumns() {
		replacement := rule.Set[column]
		assignments = append(assignments, column+" = ?")
		switch {
		case replacement.Null():
			args = append(args, nil)
		case replacement.Bind == rules.BindNewName:
			args = append(args, target.NewName)
		default:
			args = append(args, *replacement.Literal)
		}
	}
	whereSQL, whereArgs, err := buildWhere(rule.Where, target)
	if err != nil {
		return 0, err
	}
	args = append(args, whereArgs...)
	query := d.rebind(fmt.Sprintf(
		"UPDATE %s SET %s WHERE %s",
		rule.Table, strings.Join(assignments, ", "), whereSQL,
	))
	var affected int64
	err = d.Writer.Do(d.DB, nil, func(txn *sql.Tx) error {
		result, err := txn.ExecContext(ctx, query, args...)
		if err != nil {
			return err
		}
		affected, err = result.RowsAffected()
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("update %s: %w", rule.Table, err)
	}
	return affected, nil
}

// ExecuteDelete applies one delete rule inside its own transaction.
func (d *Database) ExecuteDelete(ctx context.Context, rule rules.Rule, target *types.Target) (int64, error) {
	whereSQL, args, err := buildWhere(rule.Where, target)
	if err != nil {
		return 0, err
	}
	query := d.rebind(fmt.Sprintf("DELETE FROM %s WHERE %s", rule.Table, whereSQL))
	var affected int64
	err = d.Writer.Do(d.DB, nil, func(txn *sql.Tx) error {
		result, err := txn.ExecContext(ctx, query, args...)
		if err != nil {
			return err
		}
		affected, err = result.RowsAffected()
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("delete from %s: %w", rule.Table, err)
	}
	return affected, nil
}

// SelectPII reads the current values of the columns an update rule would
// scrub. NULL and empty values are returned as empty strings; the caller
// filters them.
func (d *Database) SelectPII(ctx context.Context, sel rules.SelectRule, target *types.Target) ([]types.PIIValue, error) {
	whereSQL, args, err := buildWhere(sel.Where, target)
	if err != nil {
		return nil, err
	}
	query := d.rebind(fmt.Sprintf(
		"SELECT %s FROM %s WHERE %s",
		strings.Join(sel.Fields, ", "), sel.Table, whereSQL,
	))
	rows, err := d.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select from %s: %w", sel.Table, err)
	}
	defer rows.Close() // nolint: errcheck

	var values []types.PIIValue
	scanned := make([]sql.NullString, len(sel.Fields))
	pointers := make([]interface{}, len(sel.Fields))
	for i := range scanned {
		pointers[i] = &scanned[i]
	}
	for rows.Next() {
		if err := rows.Scan(pointers...); err != nil {
			return nil, err
		}
		for i, field := range sel.Fields {
			values = append(values, types.PIIValue{
				Field: field,
				Value: scanned[i].String,
			})
		}
	}
	return values, rows.Err()
}

const selectAccountPIISQL = "SELECT user_email, user_real_name FROM user_account WHERE user_name = ?"
const selectGenderSQL = "SELECT up_value FROM user_properties WHERE up_user = ? AND up_property = 'gender'"

func (d *Database) AccountPII(ctx context.Context, target *types.Target) (*types.AccountPII, error) {
	var pii types.AccountPII
	var email, realName sql.NullString
	err := d.DB.QueryRowContext(ctx, d.rebind(selectAccountPIISQL), target.NewName).Scan(&email, &realName)
	if err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("reading account row for %q: %w", target.NewName, err)
	}
	pii.Email = email.String
	pii.RealName = realName.String
	var gender sql.NullString
	err = d.DB.QueryRowContext(ctx, d.rebind(selectGenderSQL), target.UserID).Scan(&gender)
	if err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("reading gender preference for %q: %w", target.NewName, err)
	}
	pii.Gender = gender.String
	return &pii, nil
}

const deleteLogEventSQL = "DELETE FROM logging WHERE log_type = ? AND log_action = ? AND log_title = ?"
const deleteRCEventSQL = "DELETE FROM recentchanges WHERE rc_log_type = ? AND rc_log_action = ? AND rc_title = ?"

// DeleteRenameEvents removes the log and recent-changes rows recording
// the identity's global rename and its legacy local rename, both of
// which carry the old name.
func (d *Database) DeleteRenameEvents(ctx context.Context, target *types.Target) error {
	centralTitle := "CentralAuth/" + types.TitleKey(target.NewName)
	oldTitle := types.TitleKey(target.OldName)
	events := []struct {
		logType, logAction, title string
	}{
		{"gblrename", "rename", centralTitle},
		{"renameuser", "renameuser", oldTitle},
	}
	return d.Writer.Do(d.DB, nil, func(txn *sql.Tx) error {
		for _, event := range events {
			if _, err := txn.ExecContext(ctx, d.rebind(deleteLogEventSQL),
				event.logType, event.logAction, event.title); err != nil {
				return fmt.Errorf("deleting %s log events: %w", event.logType, err)
			}
			if _, err := txn.ExecContext(ctx, d.rebind(deleteRCEventSQL),
				event.logType, event.logAction, event.title); err != nil {
				return fmt.Errorf("deleting %s recentchanges events: %w", event.logType, err)
			}
		}
		return nil
	})
}

// SelectUserPages finds pages by exact title match or "title/" subpage
// prefix across the given namespaces.
func (d *Database) SelectUserPages(ctx context.Context, namespaces []int, titleKey string) ([]types.Page, error) {
	nsSQL, nsArgs := inClause(namespaces)
	query := d.rebind(fmt.Sprintf(
		"SELECT page_id, page_namespace, page_title FROM page WHERE page_namespace IN (%s) AND (page_title = ? OR page_title LIKE ? ESCAPE '\\')",
		nsSQL,
	))
	args := append(nsArgs, titleKey, sqlutil.EscapeLike(titleKey)+"/%")
	rows, err := d.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("selecting user pages: %w", err)
	}
	defer rows.Close() // nolint: errcheck

	var pages []types.Page
	for rows.Next() {
		var page types.Page
		if err := rows.Scan(&page.ID, &page.Namespace, &page.Title); err != nil {
			return nil, err
		}
		pages = append(pages, page)
	}
	return pages, rows.Err()
}

const archiveRevisionsSQL = `INSERT INTO archive (ar_namespace, ar_title, ar_page_id, ar_rev_id, ar_actor, ar_timestamp, ar_deleted)
 SELECT ?, ?, rev_page, rev_id, rev_actor, rev_timestamp, ? FROM revision WHERE rev_page = ?`
const suppressArchiveSQL = "UPDATE archive SET ar_deleted = ? WHERE ar_namespace = ? AND ar_title = ?"
const deleteRevisionsSQL = "DELETE FROM revision WHERE rev_page = ?"
const deletePageSQL = "DELETE FROM page WHERE page_id = ?"

// SuppressPage moves a page's live revisions into the archive with the
// suppression bits set, suppresses any previously archived revisions of
// the same title, and removes the page row. The whole page is handled in
// one transaction so a failure leaves it either fully present or fully
// suppressed.
func (d *Database) SuppressPage(ctx context.Context, page types.Page) error {
	return d.Writer.Do(d.DB, nil, func(txn *sql.Tx) error {
		if _, err := txn.ExecContext(ctx, d.rebind(archiveRevisionsSQL),
			page.Namespace, page.Title, suppressedRevision, page.ID); err != nil {
			return fmt.Errorf("archiving revisions of page %d: %w", page.ID, err)
		}
		if _, err := txn.ExecContext(ctx, d.rebind(suppressArchiveSQL),
			suppressedRevision, page.Namespace, page.Title); err != nil {
			return fmt.Errorf("suppressing archived revisions of %q: %w", page.Title, err)
		}
		if _, err := txn.ExecContext(ctx, d.rebind(deleteRevisionsSQL), page.ID); err != nil {
			return fmt.Errorf("deleting revisions of page %d: %w", page.ID, err)
		}
		if _, err := txn.ExecContext(ctx, d.rebind(deletePageSQL), page.ID); err != nil {
			return fmt.Errorf("deleting page %d: %w", page.ID, err)
		}
		return nil
	})
}

const purgeLoggingSQL = "DELETE FROM logging WHERE log_namespace IN (%s) AND (log_title = ? OR log_title LIKE ? ESCAPE '\\')"
const purgeRCSQL = "DELETE FROM recentchanges WHERE rc_namespace IN (%s) AND (rc_title = ? OR rc_title LIKE ? ESCAPE '\\')"

// PurgePageReferences removes logging and recent-changes rows referencing
// the identity's page titles, covering rows whose pages are already gone.
func (d *Database) PurgePageReferences(ctx context.Context, namespaces []int, titleKey string) error {
	nsSQL, nsArgs := inClause(namespaces)
	args := append(nsArgs, titleKey, sqlutil.EscapeLike(titleKey)+"/%")
	return d.Writer.Do(d.DB, nil, func(txn *sql.Tx) error {
		if _, err := txn.ExecContext(ctx, d.rebind(fmt.Sprintf(purgeLoggingSQL, nsSQL)), args...); err != nil {
			return fmt.Errorf("purging logging references: %w", err)
		}
		if _, err := txn.ExecContext(ctx, d.rebind(fmt.Sprintf(purgeRCSQL, nsSQL)), args...); err != nil {
			return fmt.Errorf("purging recentchanges references: %w", err)
		}
		return nil
	})
}

func (d *Database) WaitForReplication(ctx context.Context) error {
	return d.Dialect.WaitForReplication(ctx, d.DB)
}

func (d *Database) Close() error {
	return d.DB.Close()
}

func inClause(values []int) (string, []interface{}) {
	placeholders := make([]string, len(values))
	args := make([]interface{}, len(values))
	for i, v := range values {
		placeholders[i] = "?"
		args[i] = v
	}
	return strings.Join(placeholders, ", "), args
}
