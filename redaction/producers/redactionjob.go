// Copyright 2026 The scrubd Authors.
//
// SPDX-License-Identifier: AGPL-3.0-only
// Please see the LICENSE file in the repository root for full details.

package producers

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"

	"github.com/wikifarm/scrubd/redaction/api"
	"github.com/wikifarm/scrubd/setup/jetstream"
)

// RedactionJob publishes per-database redaction jobs onto the work queue
// stream. Message IDs are derived from the request and database so that a
// resubmitted request inside the duplicate window is dropped by the server.
type RedactionJob struct {
	JetStream nats.JetStreamContext
	Topic     string
}

func (p *RedactionJob) DispatchRedaction(ctx context.Context, job *api.JobPayload) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("json.Marshal: %w", err)
	}
	msg := nats.NewMsg(p.Topic)
	msg.Header.Set(jetstream.DatabaseID, job.Database)
	msg.Header.Set(jetstream.RequestID, job.RequestID)
	msg.Data = payload

	logrus.WithFields(logrus.Fields{
		"database":   job.Database,
		"request_id": job.RequestID,
	}).Tracef("Producing to topic '%s'", p.Topic)

	_, err = p.JetStream.PublishMsg(msg,
		nats.Context(ctx),
		nats.MsgId(job.RequestID+"/"+job.Database),
	)
	return err
}
