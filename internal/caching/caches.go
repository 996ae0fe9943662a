// Copyright 2026 The scrubd Authors.
//
// SPDX-License-Identifier: AGPL-3.0-only
// Please see the LICENSE file in the repository root for full details.

package caching

import (
	"fmt"
	"time"

	"github.com/dgraph-io/ristretto"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/wikifarm/scrubd/directory/api"
)

// Caches contains every cache partition used by scrubd. A partition is a
// typed view over one shared ristretto cache, prefixed so that keys from
// different partitions cannot collide.
type Caches struct {
	// GlobalAccounts caches identity directory lookups by username.
	GlobalAccounts *RistrettoCachePartition[string, *api.GlobalAccount]
}

const (
	globalAccountsCache = byte(iota + 1)
)

const (
	DisableMetrics = false
	EnableMetrics  = true
)

// NewRistrettoCache creates one ristretto cache of the given byte size and
// carves the scrubd partitions out of it.
func NewRistrettoCache(maxCost int64, maxAge time.Duration, enableMetrics bool) *Caches {
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: (maxCost / 1024) * 10,
		BufferItems: 64,
		MaxCost:     maxCost,
		Metrics:     true,
	})
	if err != nil {
		panic(err)
	}
	if enableMetrics {
		promauto.With(prometheus.DefaultRegisterer).NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "scrubd",
			Subsystem: "caching_ristretto",
			Name:      "ratio",
		}, func() float64 {
			return cache.Metrics.Ratio()
		})
	}
	return &Caches{
		GlobalAccounts: &RistrettoCachePartition[string, *api.GlobalAccount]{
			cache:  cache,
			Prefix: globalAccountsCache,
			MaxAge: maxAge,
		},
	}
}

// RistrettoCachePartition is a typed partition of a shared ristretto cache.
type RistrettoCachePartition[K ~string, V any] struct {
	cache  *ristretto.Cache
	Prefix byte
	MaxAge time.Duration
}

func (c *RistrettoCachePartition[K, V]) Set(key K, value V) {
	bkey := fmt.Sprintf("%c%v", c.Prefix, key)
	c.cache.SetWithTTL(bkey, value, 1, c.MaxAge)
}

func (c *RistrettoCachePartition[K, V]) Unset(key K) {
	bkey := fmt.Sprintf("%c%v", c.Prefix, key)
	c.cache.Del(bkey)
}

func (c *RistrettoCachePartition[K, V]) Get(key K) (value V, ok bool) {
	bkey := fmt.Sprintf("%c%v", c.Prefix, key)
	v, ok := c.cache.Get(bkey)
	if !ok || v == nil {
		var empty V
		return empty, false
	}
	value, ok = v.(V)
	return
}
