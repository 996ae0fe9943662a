// Copyright 2026 The scrubd Authors.
//
// SPDX-License-Identifier: AGPL-3.0-only
// Please see the LICENSE file in the repository root for full details.

package internal

import (
	"context"
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	directoryapi "github.com/wikifarm/scrubd/directory/api"
	"github.com/wikifarm/scrubd/redaction/api"
	"github.com/wikifarm/scrubd/setup/config"
)

// JobProducer dispatches one per-database redaction job to the work queue.
type JobProducer interface {
	DispatchRedaction(ctx context.Context, job *api.JobPayload) error
}

// CacheDeferrer holds cache invalidations for an account until the deferral
// window closes, so nothing repopulates the caches mid-redaction.
type CacheDeferrer interface {
	BeginDeferral(name string)
	EndDeferral(ctx context.Context, name string) error
}

// Orchestrator validates redaction requests, optionally renames, fans out
// per-database jobs and applies the farm-wide account consequences. It
// implements api.RedactionAPI.
type Orchestrator struct {
	Cfg       *config.Redaction
	Directory directoryapi.GlobalDirectory
	Renamer   directoryapi.Renamer
	Deferrer  CacheDeferrer
	Producer  JobProducer
}

// PerformRedaction runs one request end to end. Validation failures return
// *api.ValidationError and dispatch nothing. Once jobs have been dispatched
// the account consequences are applied in order: email clear, then lock,
// immediately, without waiting for any job to complete. Failures past the
// dispatch point surface as an error but already-dispatched jobs are never
// retracted; the pass is idempotent so the operator simply resubmits.
func (o *Orchestrator) PerformRedaction(ctx context.Context, req *api.RedactionRequest) (*api.RedactionResult, error) {
	if err := o.validate(ctx, req); err != nil {
		return nil, err
	}

	requestID := uuid.NewString()
	// The audit trail names actor and target only. The old name is the
	// thing being scrubbed and must not outlive the request in any log.
	log := logrus.WithFields(logrus.Fields{
		"request_id": requestID,
		"performer":  req.Performer,
		"target":     req.NewName,
		"mode":       req.Mode,
	})

	if req.Mode == api.ModeRename {
		opts := directoryapi.RenameOptions{
			SuppressRedirects: true,
			SuppressLog:       true,
			Force:             true,
		}
		if err := o.Renamer.Rename(ctx, req.Performer, req.OldName, req.NewName, opts); err != nil {
			sentry.CaptureException(err)
			return nil, fmt.Errorf("renaming account: %w", err)
		}
		// The rename subsystem creates the target account. If it is not
		// visible yet the rename did not actually complete.
		renamed, err := o.Directory.GlobalAccount(ctx, req.NewName)
		if err != nil {
			return nil, fmt.Errorf("resolving renamed account: %w", err)
		}
		if renamed == nil {
			return nil, fmt.Errorf("account %q not present after rename", req.NewName)
		}
	}

	if err := o.Directory.InvalidateCache(ctx, req.NewName); err != nil {
		log.WithError(err).Warn("Failed to invalidate directory cache")
	}
	o.Deferrer.BeginDeferral(req.NewName)
	defer func() {
		if err := o.Deferrer.EndDeferral(ctx, req.NewName); err != nil {
			log.WithError(err).Warn("Failed to flush deferred cache invalidations")
		}
	}()

	databases, err := o.Directory.ListAttached(ctx, req.NewName)
	if err != nil {
		return nil, fmt.Errorf("listing attached wikis: %w", err)
	}
	for _, database := range databases {
		job := &api.JobPayload{
			RequestID: requestID,
			Database:  database,
			OldName:   req.OldName,
			NewName:   req.NewName,
		}
		if err := o.Producer.DispatchRedaction(ctx, job); err != nil {
			sentry.CaptureException(err)
			return nil, fmt.Errorf("dispatching job for %q: %w", database, err)
		}
	}
	requestsDispatched.Inc()

	if err := o.Directory.ClearEmail(ctx, req.NewName); err != nil {
		sentry.CaptureException(err)
		return nil, fmt.Errorf("clearing account email: %w", err)
	}
	if err := o.Directory.Lock(ctx, req.NewName); err != nil {
		sentry.CaptureException(err)
		return nil, fmt.Errorf("locking account: %w", err)
	}
	lockedAt := time.Now().UTC()

	log.WithField("databases", len(databases)).Info("Redaction dispatched and account locked")
	return &api.RedactionResult{
		RequestID: requestID,
		Databases: databases,
		LockedAt:  lockedAt,
	}, nil
}

func (o *Orchestrator) validate(ctx context.Context, req *api.RedactionRequest) error {
	switch {
	case req.Performer == "":
		return &api.ValidationError{Reason: "performer must be named"}
	case req.OldName == "":
		return &api.ValidationError{Reason: "oldname must be named"}
	case req.NewName == "":
		return &api.ValidationError{Reason: "newname must be named"}
	case req.OldName == req.NewName:
		return &api.ValidationError{Reason: "oldname and newname must differ"}
	case req.Performer == req.OldName || req.Performer == req.NewName:
		return &api.ValidationError{Reason: "performer may not redact their own account"}
	case req.Mode != api.ModeRename && req.Mode != api.ModeRedact:
		return &api.ValidationError{Reason: fmt.Sprintf("unknown mode %q", req.Mode)}
	}

	oldAccount, err := o.Directory.GlobalAccount(ctx, req.OldName)
	if err != nil {
		return fmt.Errorf("resolving %q: %w", req.OldName, err)
	}
	newAccount, err := o.Directory.GlobalAccount(ctx, req.NewName)
	if err != nil {
		return fmt.Errorf("resolving %q: %w", req.NewName, err)
	}

	if oldAccount != nil && oldAccount.RenameInProgress {
		return &api.ValidationError{Reason: "a rename of the old account is already in progress"}
	}
	if newAccount != nil && newAccount.RenameInProgress {
		return &api.ValidationError{Reason: "a rename of the new account is already in progress"}
	}

	switch req.Mode {
	case api.ModeRename:
		if oldAccount == nil {
			return &api.ValidationError{Reason: fmt.Sprintf("account %q does not exist", req.OldName)}
		}
		if newAccount != nil {
			return &api.ValidationError{Reason: fmt.Sprintf("account %q already exists", req.NewName)}
		}
	case api.ModeRedact:
		// Redact mode reruns the scrub after a completed rename, so the
		// old account is usually gone and only the new one must exist.
		if newAccount == nil {
			return &api.ValidationError{Reason: fmt.Sprintf("account %q does not exist", req.NewName)}
		}
	}
	return nil
}
