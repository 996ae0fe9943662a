// Copyright 2026 The scrubd Authors.
//
// SPDX-License-Identifier: AGPL-3.0-only
// Please see the LICENSE file in the repository root for full details.

package directory

import (
	"context"
	"sync"

	"github.com/wikifarm/scrubd/directory/api"
	"github.com/wikifarm/scrubd/internal/caching"
)

// CachedDirectory fronts a GlobalDirectory with the in-process account
// cache. It also implements the advisory invalidation-deferral window the
// orchestrator opens around job dispatch: while a window is open for an
// account, cache invalidations for it are recorded rather than executed,
// and flushed when the window closes. The window is explicit state on this
// wrapper, not a database transaction.
type CachedDirectory struct {
	api.GlobalDirectory
	caches *caching.Caches

	mutex    sync.Mutex
	deferred map[string]bool // name -> invalidation pending
}

func NewCachedDirectory(inner api.GlobalDirectory, caches *caching.Caches) *CachedDirectory {
	return &CachedDirectory{
		GlobalDirectory: inner,
		caches:          caches,
		deferred:        map[string]bool{},
	}
}

func (d *CachedDirectory) GlobalAccount(ctx context.Context, name string) (*api.GlobalAccount, error) {
	if account, ok := d.caches.GlobalAccounts.Get(name); ok {
		return account, nil
	}
	account, err := d.GlobalDirectory.GlobalAccount(ctx, name)
	if err != nil {
		return nil, err
	}
	if account != nil {
		d.caches.GlobalAccounts.Set(name, account)
	}
	return account, nil
}

// InvalidateCache drops the local cache entry and forwards the
// invalidation, unless a deferral window is open for the account, in which
// case the forwarding is parked until EndDeferral.
func (d *CachedDirectory) InvalidateCache(ctx context.Context, name string) error {
	d.caches.GlobalAccounts.Unset(name)
	d.mutex.Lock()
	if _, open := d.deferred[name]; open {
		d.deferred[name] = true
		d.mutex.Unlock()
		return nil
	}
	d.mutex.Unlock()
	return d.GlobalDirectory.InvalidateCache(ctx, name)
}

// BeginDeferral opens the invalidation-deferral window for an account.
func (d *CachedDirectory) BeginDeferral(name string) {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	d.deferred[name] = false
}

// EndDeferral closes the window, performing any invalidation that was
// deferred while it was open.
func (d *CachedDirectory) EndDeferral(ctx context.Context, name string) error {
	d.mutex.Lock()
	pending, open := d.deferred[name]
	delete(d.deferred, name)
	d.mutex.Unlock()
	if open && pending {
		d.caches.GlobalAccounts.Unset(name)
		return d.GlobalDirectory.InvalidateCache(ctx, name)
	}
	return nil
}
