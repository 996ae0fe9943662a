// Copyright 2026 The scrubd Authors.
//
// SPDX-License-Identifier: AGPL-3.0-only
// Please see the LICENSE file in the repository root for full details.

package caching

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wikifarm/scrubd/directory/api"
)

func TestGlobalAccountsPartition(t *testing.T) {
	caches := NewRistrettoCache(8*1024*1024, time.Hour, DisableMetrics)

	account := &api.GlobalAccount{ID: 1, Name: "Alice Smith"}
	caches.GlobalAccounts.Set("Alice Smith", account)

	require.Eventually(t, func() bool {
		got, ok := caches.GlobalAccounts.Get("Alice Smith")
		return ok && got.ID == 1
	}, time.Second, 10*time.Millisecond)

	caches.GlobalAccounts.Unset("Alice Smith")
	_, ok := caches.GlobalAccounts.Get("Alice Smith")
	assert.False(t, ok)
}

func TestPartitionMiss(t *testing.T) {
	caches := NewRistrettoCache(8*1024*1024, time.Hour, DisableMetrics)

	account, ok := caches.GlobalAccounts.Get("Nobody")
	assert.False(t, ok)
	assert.Nil(t, account)
}
