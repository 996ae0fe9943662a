// Copyright 2026 The scrubd Authors.
//
// SPDX-License-Identifier: AGPL-3.0-only
// Please see the LICENSE file in the repository root for full details.

package internal

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wikifarm/scrubd/redaction/api"
	"github.com/wikifarm/scrubd/redaction/rules"
	"github.com/wikifarm/scrubd/redaction/storage"
	"github.com/wikifarm/scrubd/redaction/types"
	"github.com/wikifarm/scrubd/setup/config"
)

func testRuleSet(t *testing.T) *rules.RuleSet {
	t.Helper()
	ip := rules.IPPlaceholder
	rs := &rules.RuleSet{
		Version: 1,
		Rules: []rules.Rule{
			{
				Table: "recentchanges",
				Kind:  rules.KindUpdate,
				Set:   map[string]rules.Replacement{"rc_ip": {Literal: &ip}},
				Where: []rules.Predicate{{Column: "rc_actor", Bind: rules.BindActorID}},
			},
			{
				Table: "user_profile",
				Kind:  rules.KindDelete,
				Where: []rules.Predicate{{Column: "up_actor", Bind: rules.BindActorID}},
			},
			{
				Table:   "wikiforum_threads",
				Kind:    rules.KindUpdate,
				Feature: "wikiforum",
				Set:     map[string]rules.Replacement{"wft_edit_user_ip": {Literal: &ip}},
				Where:   []rules.Predicate{{Column: "wft_user", Bind: rules.BindUserID}},
			},
		},
	}
	require.NoError(t, rs.Validate())
	return rs
}

func testRedactor(t *testing.T, db *fakeDatabase, features ...string) *Redactor {
	t.Helper()
	return &Redactor{
		Cfg: &config.Redaction{
			SystemActor:     "Farm default",
			ReplicationWait: time.Second,
			Features:        features,
		},
		RuleSet: testRuleSet(t),
		OpenDatabase: func(string) (storage.Database, error) {
			return db, nil
		},
	}
}

func testJob() *api.JobPayload {
	return &api.JobPayload{
		RequestID: "req-1",
		Database:  "wiki1",
		OldName:   "Alice Smith",
		NewName:   "Scrubbed-4f2a",
	}
}

func TestRedactDatabaseRunsDeletesBeforeUpdates(t *testing.T) {
	db := &fakeDatabase{target: types.Target{UserID: 42, ActorID: 7}}
	res := testRedactor(t, db, "wikiforum").RedactDatabase(context.Background(), testJob())

	assert.Equal(t, api.JobStatusCompleted, res.Status)
	assert.Empty(t, res.LastError)
	assert.Equal(t,
		[]string{"delete user_profile", "update recentchanges", "update wikiforum_threads"},
		db.executed,
	)
	assert.Equal(t, 3, res.RulesApplied)
	assert.Equal(t, 3, db.replWaits, "each mutating rule waits for replicas")
	assert.True(t, db.renamesDeleted)
	assert.True(t, db.closed)
}

func TestRedactDatabaseAbortsWithoutLocalAccount(t *testing.T) {
	db := &fakeDatabase{target: types.Target{UserID: 0}}
	res := testRedactor(t, db).RedactDatabase(context.Background(), testJob())

	assert.Equal(t, api.JobStatusFailed, res.Status)
	assert.NotEmpty(t, res.LastError)
	assert.Empty(t, db.executed, "no rule may run for an unresolvable account")
	assert.False(t, db.renamesDeleted)
}

func TestRedactDatabaseFailsWhenDatabaseUnreachable(t *testing.T) {
	r := testRedactor(t, nil)
	r.OpenDatabase = func(string) (storage.Database, error) {
		return nil, fmt.Errorf("connection refused")
	}
	res := r.RedactDatabase(context.Background(), testJob())

	assert.Equal(t, api.JobStatusFailed, res.Status)
	assert.Contains(t, res.LastError, "connection refused")
}

func TestRedactDatabaseSkipsAbsentTables(t *testing.T) {
	db := &fakeDatabase{
		target:        types.Target{UserID: 42, ActorID: 7},
		missingTables: map[string]bool{"user_profile": true},
	}
	res := testRedactor(t, db).RedactDatabase(context.Background(), testJob())

	assert.Equal(t, api.JobStatusCompleted, res.Status)
	assert.Empty(t, res.LastError, "an absent table is not a failure")
	assert.Equal(t, []string{"update recentchanges"}, db.executed)
	assert.Equal(t, 1, res.RulesSkipped)
}

func TestRedactDatabaseSkipsActorRulesWithoutActorRow(t *testing.T) {
	db := &fakeDatabase{target: types.Target{UserID: 42, ActorID: 0}}
	res := testRedactor(t, db, "wikiforum").RedactDatabase(context.Background(), testJob())

	assert.Equal(t, api.JobStatusCompleted, res.Status)
	assert.Equal(t, []string{"update wikiforum_threads"}, db.executed,
		"actor-bound rules cannot match anything without an actor row")
	assert.Equal(t, 2, res.RulesSkipped)
}

func TestRedactDatabaseSkipsUndeployedFeatures(t *testing.T) {
	db := &fakeDatabase{target: types.Target{UserID: 42, ActorID: 7}}
	testRedactor(t, db).RedactDatabase(context.Background(), testJob())

	assert.NotContains(t, db.executed, "update wikiforum_threads")
}

func TestRedactDatabaseContinuesPastRuleFailure(t *testing.T) {
	db := &fakeDatabase{
		target:        types.Target{UserID: 42, ActorID: 7},
		failingTables: map[string]error{"user_profile": fmt.Errorf("deadlock detected")},
	}
	res := testRedactor(t, db).RedactDatabase(context.Background(), testJob())

	assert.Equal(t, api.JobStatusCompleted, res.Status, "per-rule failures never abort the pass")
	assert.Contains(t, res.LastError, "deadlock detected")
	assert.Equal(t, []string{"update recentchanges"}, db.executed)
	assert.True(t, db.renamesDeleted)
}

func TestRedactDatabaseSuppressesUserPages(t *testing.T) {
	db := &fakeDatabase{
		target: types.Target{UserID: 42, ActorID: 7},
		pages: []types.Page{
			{ID: 10, Namespace: types.NamespaceUser, Title: "Alice_Smith"},
			{ID: 11, Namespace: types.NamespaceUserTalk, Title: "Alice_Smith/Archive_1"},
		},
	}
	res := testRedactor(t, db).RedactDatabase(context.Background(), testJob())

	assert.Equal(t, []int64{10, 11}, db.suppressed)
	assert.Equal(t, 2, res.PagesDeleted)
	assert.True(t, db.purged, "log references to the titles must go with the pages")
}
