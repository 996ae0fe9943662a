// Copyright 2026 The scrubd Authors.
//
// SPDX-License-Identifier: AGPL-3.0-only
// Please see the LICENSE file in the repository root for full details.

package process

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
)

// ProcessContext is passed to all long-lived components so that they can
// register themselves for shutdown and be waited upon when the process exits.
type ProcessContext struct {
	wg       sync.WaitGroup
	ctx      context.Context
	shutdown context.CancelFunc
	degraded map[string]struct{}
	mutex    sync.Mutex
}

func NewProcessContext() *ProcessContext {
	ctx, shutdown := context.WithCancel(context.Background())
	return &ProcessContext{
		ctx:      ctx,
		shutdown: shutdown,
	}
}

// Context returns the root context for the process. It is cancelled when
// ShutdownScrubd is called.
func (b *ProcessContext) Context() context.Context {
	return b.ctx
}

func (b *ProcessContext) ComponentStarted() {
	b.wg.Add(1)
}

func (b *ProcessContext) ComponentFinished() {
	b.wg.Done()
}

func (b *ProcessContext) ShutdownScrubd() {
	b.shutdown()
}

// WaitForShutdown blocks until ShutdownScrubd is called.
func (b *ProcessContext) WaitForShutdown() <-chan struct{} {
	return b.ctx.Done()
}

// WaitForComponentsToFinish blocks until every component that called
// ComponentStarted has called ComponentFinished.
func (b *ProcessContext) WaitForComponentsToFinish() {
	b.wg.Wait()
}

// Degraded marks the process as degraded. A component should call this when
// it hits an error that it can work around but that an operator should know
// about, e.g. a wiki database that cannot be reached.
func (b *ProcessContext) Degraded(err error) {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	if b.degraded == nil {
		b.degraded = map[string]struct{}{}
	}
	if _, ok := b.degraded[err.Error()]; !ok {
		logrus.WithError(err).Warn("Process is degraded")
		b.degraded[err.Error()] = struct{}{}
	}
}

func (b *ProcessContext) IsDegraded() (bool, []string) {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	if len(b.degraded) > 0 {
		errors := make([]string, 0, len(b.degraded))
		for err := range b.degraded {
			errors = append(errors, err)
		}
		return true, errors
	}
	return false, nil
}
