// Copyright 2026 The scrubd Authors.
//
// SPDX-License-Identifier: AGPL-3.0-only
// Please see the LICENSE file in the repository root for full details.

package internal

import (
	"context"
	"fmt"

	"github.com/getsentry/sentry-go"
	"github.com/sirupsen/logrus"

	"github.com/wikifarm/scrubd/redaction/api"
	"github.com/wikifarm/scrubd/redaction/rules"
	"github.com/wikifarm/scrubd/redaction/storage"
	"github.com/wikifarm/scrubd/redaction/types"
	"github.com/wikifarm/scrubd/setup/config"
)

// OpenDatabaseFunc opens a per-wiki database connection by database name.
type OpenDatabaseFunc func(database string) (storage.Database, error)

// Redactor runs the full redaction pass against one wiki database. A pass
// is idempotent: re-running a job over an already-scrubbed database changes
// nothing, so at-least-once delivery from the job stream is safe.
type Redactor struct {
	Cfg          *config.Redaction
	RuleSet      *rules.RuleSet
	OpenDatabase OpenDatabaseFunc
}

// RedactDatabase executes every applicable rule, removes rename events and
// suppresses the old user pages in the named database. It always returns a
// definite result: per-rule failures are recorded and skipped rather than
// aborting the pass.
func (r *Redactor) RedactDatabase(ctx context.Context, job *api.JobPayload) *api.JobResult {
	res := &api.JobResult{
		Database: job.Database,
		Status:   api.JobStatusFailed,
	}
	log := logrus.WithFields(logrus.Fields{
		"database":   job.Database,
		"request_id": job.RequestID,
	})

	db, err := r.OpenDatabase(job.Database)
	if err != nil {
		res.LastError = fmt.Sprintf("opening database: %s", err)
		log.WithError(err).Error("Failed to open wiki database")
		jobsProcessed.WithLabelValues(string(api.JobStatusFailed)).Inc()
		return res
	}
	defer db.Close() // nolint: errcheck

	target, err := db.ResolveTarget(ctx, job.Database, job.OldName, job.NewName)
	if err != nil {
		res.LastError = fmt.Sprintf("resolving target account: %s", err)
		log.WithError(err).Error("Failed to resolve target account")
		jobsProcessed.WithLabelValues(string(api.JobStatusFailed)).Inc()
		return res
	}
	if target.UserID == 0 {
		// The account never existed locally, or was already removed.
		// Nothing can be attributed to it, so no rule may run.
		res.LastError = "target account has no local user ID"
		log.Warn("Target account has a user ID equal to 0, skipping database")
		jobsProcessed.WithLabelValues(string(api.JobStatusFailed)).Inc()
		return res
	}

	applicable := r.RuleSet.ForFeatures(r.Cfg.FeatureEnabled)
	// Rows referencing the actor must go before rows are rewritten, so
	// that a failure midway never leaves a dangling actor reference.
	for _, rule := range rules.Deletes(applicable) {
		r.applyRule(ctx, db, target, rule, res, log)
	}
	for _, rule := range rules.Updates(applicable) {
		r.applyRule(ctx, db, target, rule, res, log)
	}

	if err := db.DeleteRenameEvents(ctx, target); err != nil {
		res.LastError = fmt.Sprintf("deleting rename events: %s", err)
		log.WithError(err).Error("Failed to delete rename log events")
		sentry.CaptureException(err)
	}

	r.suppressUserPages(ctx, db, target, res, log)

	res.Status = api.JobStatusCompleted
	jobsProcessed.WithLabelValues(string(api.JobStatusCompleted)).Inc()
	log.WithFields(logrus.Fields{
		"rules_applied": res.RulesApplied,
		"rules_skipped": res.RulesSkipped,
		"pages_deleted": res.PagesDeleted,
	}).Info("Redaction pass completed")
	return res
}

func (r *Redactor) applyRule(
	ctx context.Context, db storage.Database, target *types.Target,
	rule rules.Rule, res *api.JobResult, log *logrus.Entry,
) {
	if rule.UsesBinding(rules.BindActorID) && target.ActorID == 0 {
		// No actor row means no rows can reference this account.
		res.RulesSkipped++
		rulesSkipped.Inc()
		return
	}
	exists, err := db.TableExists(ctx, rule.Table)
	if err != nil {
		res.LastError = fmt.Sprintf("checking table %q: %s", rule.Table, err)
		log.WithError(err).WithField("table", rule.Table).Error("Failed to check table existence")
		sentry.CaptureException(err)
		return
	}
	if !exists {
		res.RulesSkipped++
		rulesSkipped.Inc()
		return
	}

	var affected int64
	switch rule.Kind {
	case rules.KindDelete:
		affected, err = db.ExecuteDelete(ctx, rule, target)
	default:
		affected, err = db.ExecuteUpdate(ctx, rule, target)
	}
	if err != nil {
		res.LastError = fmt.Sprintf("applying rule on %q: %s", rule.Table, err)
		log.WithError(err).WithField("table", rule.Table).Error("Failed to apply redaction rule")
		sentry.CaptureException(err)
		return
	}
	res.RulesApplied++
	rulesApplied.Inc()
	if affected > 0 {
		// Replicas must observe the scrub before the next rule runs, so
		// a reader never sees a half-redacted database for longer than
		// the replication lag window.
		if err := r.waitForReplication(ctx, db); err != nil {
			log.WithError(err).WithField("table", rule.Table).Warn("Replication wait did not complete")
		}
	}
}

func (r *Redactor) waitForReplication(ctx context.Context, db storage.Database) error {
	if r.Cfg.ReplicationWait > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Cfg.ReplicationWait)
		defer cancel()
	}
	return db.WaitForReplication(ctx)
}

func (r *Redactor) suppressUserPages(
	ctx context.Context, db storage.Database, target *types.Target,
	res *api.JobResult, log *logrus.Entry,
) {
	namespaces := types.UserPageNamespaces(r.Cfg.FeatureEnabled)
	titleKey := types.TitleKey(target.OldName)
	pages, err := db.SelectUserPages(ctx, namespaces, titleKey)
	if err != nil {
		res.LastError = fmt.Sprintf("selecting user pages: %s", err)
		log.WithError(err).Error("Failed to select user pages")
		sentry.CaptureException(err)
		return
	}
	for _, page := range pages {
		if err := db.SuppressPage(ctx, page); err != nil {
			res.LastError = fmt.Sprintf("suppressing page %d: %s", page.ID, err)
			log.WithError(err).WithFields(logrus.Fields{
				"page_id":   page.ID,
				"namespace": page.Namespace,
			}).Error("Failed to suppress user page")
			sentry.CaptureException(err)
			continue
		}
		res.PagesDeleted++
		pagesSuppressed.Inc()
	}
	if len(pages) == 0 {
		return
	}
	// Log rows naming the old titles are identifying on their own, so
	// they go regardless of whether every page suppression succeeded.
	if err := db.PurgePageReferences(ctx, namespaces, titleKey); err != nil {
		res.LastError = fmt.Sprintf("purging page references: %s", err)
		log.WithError(err).Error("Failed to purge log references to suppressed pages")
		sentry.CaptureException(err)
		return
	}
	log.WithFields(logrus.Fields{
		"pages":    len(pages),
		"acted_as": r.Cfg.SystemActor,
	}).Debug("Suppressed user pages")
}
