// Copyright 2026 The scrubd Authors.
//
// SPDX-License-Identifier: AGPL-3.0-only
// Please see the LICENSE file in the repository root for full details.

package consumers

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/getsentry/sentry-go"
	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"

	"github.com/wikifarm/scrubd/redaction/api"
	"github.com/wikifarm/scrubd/redaction/internal"
	"github.com/wikifarm/scrubd/setup/config"
	"github.com/wikifarm/scrubd/setup/jetstream"
	"github.com/wikifarm/scrubd/setup/process"
)

// RedactionJobConsumer consumes per-database redaction jobs from the work
// queue and runs the redaction pass for each. Jobs are always acknowledged
// once the pass has produced a definite result: the pass is idempotent, so
// redelivery after a crash is safe, but a failed pass is not redelivered
// because retrying it without operator action would fail the same way.
type RedactionJobConsumer struct {
	ctx       context.Context
	process   *process.ProcessContext
	jetstream nats.JetStreamContext
	durable   string
	topic     string
	redactor  *internal.Redactor
}

func NewRedactionJobConsumer(
	process *process.ProcessContext,
	cfg *config.JetStream,
	js nats.JetStreamContext,
	redactor *internal.Redactor,
) *RedactionJobConsumer {
	return &RedactionJobConsumer{
		ctx:       process.Context(),
		process:   process,
		jetstream: js,
		durable:   cfg.Durable("RedactionJobConsumer"),
		topic:     cfg.Prefixed(jetstream.InputRedactionJob),
		redactor:  redactor,
	}
}

// Start begins consumption.
func (s *RedactionJobConsumer) Start() error {
	return jetstream.JetStreamConsumer(
		s.ctx, s.jetstream, s.topic, s.durable, 1,
		s.onMessage, nats.DeliverAll(), nats.ManualAck(),
	)
}

func (s *RedactionJobConsumer) onMessage(ctx context.Context, msgs []*nats.Msg) bool {
	msg := msgs[0] // Guaranteed to exist if onMessage is called
	var job api.JobPayload
	if err := json.Unmarshal(msg.Data, &job); err != nil {
		logrus.WithError(err).Errorf("Failed to unmarshal redaction job, discarding")
		return true
	}
	log := logrus.WithFields(logrus.Fields{
		"database":   job.Database,
		"request_id": job.RequestID,
	})

	res := s.redactor.RedactDatabase(ctx, &job)
	if res.Status == api.JobStatusFailed {
		log.WithField("last_error", res.LastError).Error("Redaction job failed")
		sentry.CaptureMessage("redaction job failed for database " + job.Database)
		s.process.Degraded(fmt.Errorf("redaction job failed for database %q", job.Database))
	} else if res.LastError != "" {
		log.WithField("last_error", res.LastError).Warn("Redaction job completed with skipped rules")
	}
	return true
}
