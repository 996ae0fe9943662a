// Copyright 2026 The scrubd Authors.
//
// SPDX-License-Identifier: AGPL-3.0-only
// Please see the LICENSE file in the repository root for full details.

// Package api declares the public types of the redaction engine.
package api

import (
	"context"
	"fmt"
	"time"
)

// Mode selects what the operator asked for.
type Mode string

const (
	// ModeRename performs a rename through the external rename
	// capability first, then redacts under the new name.
	ModeRename Mode = "rename"
	// ModeRedact redacts without renaming.
	ModeRedact Mode = "redact"
)

// RedactionRequest is one operator submission.
type RedactionRequest struct {
	// Performer is the acting administrator.
	Performer string `json:"performer"`
	// OldName is the identity being retired.
	OldName string `json:"oldname"`
	// NewName is the identity the history is reattributed to. For
	// ModeRedact it may equal a previously renamed-to name.
	NewName string `json:"newname"`
	Mode    Mode   `json:"mode"`
}

// RedactionResult reports what the orchestrator dispatched. Per-database
// job outcomes are not part of it: jobs complete asynchronously and their
// failures surface in server logs, never back to the submitting request.
type RedactionResult struct {
	// RequestID correlates the audit log entry and the fanned-out jobs.
	RequestID string `json:"request_id"`
	// Databases the request fanned out to, one job each.
	Databases []string `json:"databases"`
	// LockedAt is when the global account lock was applied.
	LockedAt time.Time `json:"locked_at"`
}

// RedactionAPI is implemented by the orchestrator.
type RedactionAPI interface {
	PerformRedaction(ctx context.Context, req *RedactionRequest) (*RedactionResult, error)
}

// ExportAPI collects the PII still held for an account, one database at a
// time, into the on-disk export artifact.
type ExportAPI interface {
	ExportDatabase(ctx context.Context, database, username string) error
}

// JobPayload is the wire format of one queued per-database redaction job.
type JobPayload struct {
	RequestID string `json:"request_id"`
	Database  string `json:"database"`
	OldName   string `json:"oldname"`
	NewName   string `json:"newname"`
}

// JobStatus describes the lifecycle status of a per-database job.
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// JobResult is the definite outcome a job reports after running, whether
// or not individual rules inside it failed.
type JobResult struct {
	Database  string
	Status    JobStatus
	LastError string
	// RulesApplied counts rules that executed, RulesSkipped counts rules
	// whose table was absent or whose feature is not deployed.
	RulesApplied int
	RulesSkipped int
	PagesDeleted int
}

// ValidationError is a synchronous rejection of a redaction request. It is
// fatal to the request and nothing is dispatched.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid redaction request: %s", e.Reason)
}
