// Copyright 2026 The scrubd Authors.
//
// SPDX-License-Identifier: AGPL-3.0-only
// Please see the LICENSE file in the repository root for full details.

package jetstream

import (
	"time"

	"github.com/nats-io/nats.go"

	"github.com/wikifarm/scrubd/setup/config"
)

// Message header names used on redaction job messages.
const (
	DatabaseID = "database_id"
	RequestID  = "request_id"
)

// Stream and subject names. InputRedactionJob carries one message per
// (request, database) pair.
var (
	InputRedactionJob = "InputRedactionJob"
)

var streams = []*nats.StreamConfig{
	{
		Name:      InputRedactionJob,
		Retention: nats.WorkQueuePolicy,
		Storage:   nats.FileStorage,
	},
}

// PrepareStreams creates any streams that do not already exist on the
// JetStream deployment, with the configured topic prefix applied.
func PrepareStreams(js nats.JetStreamContext, cfg *config.JetStream) error {
	for _, stream := range streams {
		name := cfg.Prefixed(stream.Name)
		info, err := js.StreamInfo(name)
		if err != nil && err != nats.ErrStreamNotFound {
			return err
		}
		if info == nil {
			namespaced := *stream
			namespaced.Name = name
			namespaced.Subjects = []string{name}
			namespaced.Duplicates = time.Minute * 5
			if cfg.InMemory {
				namespaced.Storage = nats.MemoryStorage
			}
			if _, err = js.AddStream(&namespaced); err != nil {
				return err
			}
		}
	}
	return nil
}
