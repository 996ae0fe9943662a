// Copyright 2026 The scrubd Authors.
//
// SPDX-License-Identifier: AGPL-3.0-only
// Please see the LICENSE file in the repository root for full details.

package internal

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	jobsProcessed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "scrubd",
			Subsystem: "redaction",
			Name:      "jobs_processed_total",
			Help:      "Per-database redaction jobs processed, by outcome",
		},
		[]string{"status"},
	)
	rulesApplied = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "scrubd",
			Subsystem: "redaction",
			Name:      "rules_applied_total",
			Help:      "Redaction rules executed against wiki databases",
		},
	)
	rulesSkipped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "scrubd",
			Subsystem: "redaction",
			Name:      "rules_skipped_total",
			Help:      "Redaction rules skipped because the table or feature was absent",
		},
	)
	pagesSuppressed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "scrubd",
			Subsystem: "redaction",
			Name:      "pages_suppressed_total",
			Help:      "User pages suppress-deleted during redaction",
		},
	)
	requestsDispatched = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "scrubd",
			Subsystem: "redaction",
			Name:      "requests_dispatched_total",
			Help:      "Redaction requests that passed validation and fanned out jobs",
		},
	)
)

var registerMetrics sync.Once

func init() {
	registerMetrics.Do(func() {
		prometheus.MustRegister(
			jobsProcessed, rulesApplied, rulesSkipped,
			pagesSuppressed, requestsDispatched,
		)
	})
}
