// Copyright 2026 The scrubd Authors.
//
// SPDX-License-Identifier: AGPL-3.0-only
// Please see the LICENSE file in the repository root for full details.

package internal

import (
	"context"
	"fmt"

	directoryapi "github.com/wikifarm/scrubd/directory/api"
	"github.com/wikifarm/scrubd/redaction/api"
	"github.com/wikifarm/scrubd/redaction/rules"
	"github.com/wikifarm/scrubd/redaction/types"
)

// fakeDatabase records every call against it and answers from canned data.
type fakeDatabase struct {
	target        types.Target
	missingTables map[string]bool
	failingTables map[string]error
	pages         []types.Page
	pii           map[string][]types.PIIValue
	account       types.AccountPII

	executed       []string // "delete table" / "update table" in call order
	suppressed     []int64
	purged         bool
	renamesDeleted bool
	replWaits      int
	closed         bool
}

func (f *fakeDatabase) ResolveTarget(_ context.Context, database, oldName, newName string) (*types.Target, error) {
	t := f.target
	t.Database = database
	t.OldName = oldName
	t.NewName = newName
	return &t, nil
}

func (f *fakeDatabase) TableExists(_ context.Context, table string) (bool, error) {
	return !f.missingTables[table], nil
}

func (f *fakeDatabase) ExecuteUpdate(_ context.Context, rule rules.Rule, _ *types.Target) (int64, error) {
	if err := f.failingTables[rule.Table]; err != nil {
		return 0, err
	}
	f.executed = append(f.executed, "update "+rule.Table)
	return 1, nil
}

func (f *fakeDatabase) ExecuteDelete(_ context.Context, rule rules.Rule, _ *types.Target) (int64, error) {
	if err := f.failingTables[rule.Table]; err != nil {
		return 0, err
	}
	f.executed = append(f.executed, "delete "+rule.Table)
	return 1, nil
}

func (f *fakeDatabase) SelectPII(_ context.Context, sel rules.SelectRule, _ *types.Target) ([]types.PIIValue, error) {
	if err := f.failingTables[sel.Table]; err != nil {
		return nil, err
	}
	return f.pii[sel.Table], nil
}

func (f *fakeDatabase) AccountPII(_ context.Context, _ *types.Target) (*types.AccountPII, error) {
	account := f.account
	return &account, nil
}

func (f *fakeDatabase) DeleteRenameEvents(_ context.Context, _ *types.Target) error {
	f.renamesDeleted = true
	return nil
}

func (f *fakeDatabase) SelectUserPages(_ context.Context, _ []int, _ string) ([]types.Page, error) {
	return f.pages, nil
}

func (f *fakeDatabase) SuppressPage(_ context.Context, page types.Page) error {
	f.suppressed = append(f.suppressed, page.ID)
	return nil
}

func (f *fakeDatabase) PurgePageReferences(_ context.Context, _ []int, _ string) error {
	f.purged = true
	return nil
}

func (f *fakeDatabase) WaitForReplication(_ context.Context) error {
	f.replWaits++
	return nil
}

func (f *fakeDatabase) Close() error {
	f.closed = true
	return nil
}

// fakeDirectory is an in-memory identity directory.
type fakeDirectory struct {
	accounts map[string]*directoryapi.GlobalAccount
	attached map[string][]string

	calls    []string // call order across the directory surface
	lockErr  error
	clearErr error
}

func (f *fakeDirectory) GlobalAccount(_ context.Context, name string) (*directoryapi.GlobalAccount, error) {
	f.calls = append(f.calls, "account "+name)
	account, ok := f.accounts[name]
	if !ok {
		return nil, nil
	}
	copied := *account
	return &copied, nil
}

func (f *fakeDirectory) ListAttached(_ context.Context, name string) ([]string, error) {
	f.calls = append(f.calls, "attached "+name)
	return f.attached[name], nil
}

func (f *fakeDirectory) Lock(_ context.Context, name string) error {
	f.calls = append(f.calls, "lock "+name)
	return f.lockErr
}

func (f *fakeDirectory) ClearEmail(_ context.Context, name string) error {
	f.calls = append(f.calls, "clearemail "+name)
	return f.clearErr
}

func (f *fakeDirectory) InvalidateCache(_ context.Context, name string) error {
	f.calls = append(f.calls, "invalidate "+name)
	return nil
}

type fakeRenamer struct {
	calls []string
	opts  directoryapi.RenameOptions
	err   error

	// onRename lets the rename create the target account the way the
	// real rename subsystem does.
	onRename func(oldName, newName string)
}

func (f *fakeRenamer) Rename(_ context.Context, performer, oldName, newName string, opts directoryapi.RenameOptions) error {
	f.calls = append(f.calls, fmt.Sprintf("rename %s->%s by %s", oldName, newName, performer))
	f.opts = opts
	if f.err != nil {
		return f.err
	}
	if f.onRename != nil {
		f.onRename(oldName, newName)
	}
	return nil
}

type fakeProducer struct {
	jobs []*api.JobPayload
	err  error

	// notify mirrors dispatches into a shared call log for ordering
	// assertions against the directory.
	notify func(job *api.JobPayload)
}

func (f *fakeProducer) DispatchRedaction(_ context.Context, job *api.JobPayload) error {
	if f.err != nil {
		return f.err
	}
	f.jobs = append(f.jobs, job)
	if f.notify != nil {
		f.notify(job)
	}
	return nil
}

type fakeDeferrer struct {
	begun  []string
	ended  []string
	endErr error
}

func (f *fakeDeferrer) BeginDeferral(name string) {
	f.begun = append(f.begun, name)
}

func (f *fakeDeferrer) EndDeferral(_ context.Context, name string) error {
	f.ended = append(f.ended, name)
	return f.endErr
}
