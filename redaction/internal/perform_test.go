// Copyright 2026 The scrubd Authors.
//
// SPDX-License-Identifier: AGPL-3.0-only
// Please see the LICENSE file in the repository root for full details.

package internal

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	directoryapi "github.com/wikifarm/scrubd/directory/api"
	"github.com/wikifarm/scrubd/redaction/api"
	"github.com/wikifarm/scrubd/setup/config"
)

type orchestratorFixture struct {
	orch     *Orchestrator
	dir      *fakeDirectory
	renamer  *fakeRenamer
	producer *fakeProducer
	deferrer *fakeDeferrer
}

func newOrchestratorFixture() *orchestratorFixture {
	dir := &fakeDirectory{
		accounts: map[string]*directoryapi.GlobalAccount{
			"Alice Smith": {ID: 1, Name: "Alice Smith", Email: "alice@example.com"},
		},
		attached: map[string][]string{
			"Scrubbed-4f2a": {"wiki1", "wiki2", "wiki3"},
		},
	}
	renamer := &fakeRenamer{
		onRename: func(oldName, newName string) {
			account := *dir.accounts[oldName]
			account.Name = newName
			dir.accounts[newName] = &account
			delete(dir.accounts, oldName)
		},
	}
	producer := &fakeProducer{}
	producer.notify = func(job *api.JobPayload) {
		dir.calls = append(dir.calls, "dispatch "+job.Database)
	}
	deferrer := &fakeDeferrer{}
	return &orchestratorFixture{
		orch: &Orchestrator{
			Cfg:       &config.Redaction{SystemActor: "Farm default"},
			Directory: dir,
			Renamer:   renamer,
			Deferrer:  deferrer,
			Producer:  producer,
		},
		dir:      dir,
		renamer:  renamer,
		producer: producer,
		deferrer: deferrer,
	}
}

func renameRequest() *api.RedactionRequest {
	return &api.RedactionRequest{
		Performer: "AdminEve",
		OldName:   "Alice Smith",
		NewName:   "Scrubbed-4f2a",
		Mode:      api.ModeRename,
	}
}

func TestPerformRedactionRenameFlow(t *testing.T) {
	f := newOrchestratorFixture()
	res, err := f.orch.PerformRedaction(context.Background(), renameRequest())
	require.NoError(t, err)

	assert.NotEmpty(t, res.RequestID)
	assert.Equal(t, []string{"wiki1", "wiki2", "wiki3"}, res.Databases)
	assert.False(t, res.LockedAt.IsZero())

	require.Len(t, f.renamer.calls, 1)
	assert.True(t, f.renamer.opts.SuppressLog, "the rename must not log the old name")
	assert.True(t, f.renamer.opts.SuppressRedirects)

	require.Len(t, f.producer.jobs, 3)
	for _, job := range f.producer.jobs {
		assert.Equal(t, res.RequestID, job.RequestID)
		assert.Equal(t, "Alice Smith", job.OldName)
		assert.Equal(t, "Scrubbed-4f2a", job.NewName)
	}

	assert.Equal(t, []string{"Scrubbed-4f2a"}, f.deferrer.begun)
	assert.Equal(t, []string{"Scrubbed-4f2a"}, f.deferrer.ended)
}

func TestPerformRedactionLocksImmediatelyAfterDispatch(t *testing.T) {
	f := newOrchestratorFixture()
	_, err := f.orch.PerformRedaction(context.Background(), renameRequest())
	require.NoError(t, err)

	// The lock must land right after the last dispatch, not after any job
	// completes: jobs run asynchronously and may take minutes.
	var tail []string
	for _, call := range f.dir.calls {
		switch call {
		case "dispatch wiki3", "clearemail Scrubbed-4f2a", "lock Scrubbed-4f2a":
			tail = append(tail, call)
		}
	}
	assert.Equal(t, []string{"dispatch wiki3", "clearemail Scrubbed-4f2a", "lock Scrubbed-4f2a"}, tail)
}

func TestPerformRedactionRedactModeSkipsRename(t *testing.T) {
	f := newOrchestratorFixture()
	f.dir.accounts["Scrubbed-4f2a"] = &directoryapi.GlobalAccount{ID: 1, Name: "Scrubbed-4f2a"}

	res, err := f.orch.PerformRedaction(context.Background(), &api.RedactionRequest{
		Performer: "AdminEve",
		OldName:   "Alice Smith",
		NewName:   "Scrubbed-4f2a",
		Mode:      api.ModeRedact,
	})
	require.NoError(t, err)
	assert.Empty(t, f.renamer.calls)
	assert.Len(t, f.producer.jobs, 3)
	assert.Len(t, res.Databases, 3)
}

func TestPerformRedactionValidation(t *testing.T) {
	base := func() *api.RedactionRequest { return renameRequest() }
	tests := []struct {
		name   string
		mutate func(f *orchestratorFixture, req *api.RedactionRequest)
		reason string
	}{
		{
			name:   "missing performer",
			mutate: func(_ *orchestratorFixture, req *api.RedactionRequest) { req.Performer = "" },
			reason: "performer",
		},
		{
			name:   "same old and new name",
			mutate: func(_ *orchestratorFixture, req *api.RedactionRequest) { req.NewName = req.OldName },
			reason: "must differ",
		},
		{
			name:   "self redaction",
			mutate: func(_ *orchestratorFixture, req *api.RedactionRequest) { req.Performer = req.OldName },
			reason: "own account",
		},
		{
			name:   "unknown mode",
			mutate: func(_ *orchestratorFixture, req *api.RedactionRequest) { req.Mode = "obliterate" },
			reason: "unknown mode",
		},
		{
			name: "old account missing for rename",
			mutate: func(f *orchestratorFixture, _ *api.RedactionRequest) {
				delete(f.dir.accounts, "Alice Smith")
			},
			reason: "does not exist",
		},
		{
			name: "new account already exists for rename",
			mutate: func(f *orchestratorFixture, _ *api.RedactionRequest) {
				f.dir.accounts["Scrubbed-4f2a"] = &directoryapi.GlobalAccount{Name: "Scrubbed-4f2a"}
			},
			reason: "already exists",
		},
		{
			name: "rename already in progress",
			mutate: func(f *orchestratorFixture, _ *api.RedactionRequest) {
				f.dir.accounts["Alice Smith"].RenameInProgress = true
			},
			reason: "already in progress",
		},
		{
			name: "new account missing for redact mode",
			mutate: func(_ *orchestratorFixture, req *api.RedactionRequest) {
				req.Mode = api.ModeRedact
			},
			reason: "does not exist",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := newOrchestratorFixture()
			req := base()
			tc.mutate(f, req)

			_, err := f.orch.PerformRedaction(context.Background(), req)
			var verr *api.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Contains(t, verr.Reason, tc.reason)
			assert.Empty(t, f.producer.jobs, "a rejected request must dispatch nothing")
			assert.Empty(t, f.renamer.calls)
		})
	}
}

func TestPerformRedactionDispatchFailureSurfaces(t *testing.T) {
	f := newOrchestratorFixture()
	f.producer.err = fmt.Errorf("stream unavailable")

	_, err := f.orch.PerformRedaction(context.Background(), renameRequest())
	require.Error(t, err)
	assert.NotContains(t, f.dir.calls, "lock Scrubbed-4f2a",
		"the lock is a consequence of a dispatched request")
	assert.Equal(t, []string{"Scrubbed-4f2a"}, f.deferrer.ended,
		"the deferral window closes even on failure")
}

func TestPerformRedactionLockFailureAfterDispatch(t *testing.T) {
	f := newOrchestratorFixture()
	f.dir.lockErr = fmt.Errorf("directory unavailable")

	_, err := f.orch.PerformRedaction(context.Background(), renameRequest())
	require.Error(t, err)
	assert.Len(t, f.producer.jobs, 3, "dispatched jobs are not retracted")
}
