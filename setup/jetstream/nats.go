// Copyright 2026 The scrubd Authors.
//
// SPDX-License-Identifier: AGPL-3.0-only
// Please see the LICENSE file in the repository root for full details.

package jetstream

import (
	"strings"
	"sync"
	"time"

	natsserver "github.com/nats-io/nats-server/v2/server"
	natsclient "github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"

	"github.com/wikifarm/scrubd/setup/config"
	"github.com/wikifarm/scrubd/setup/process"
)

type NATSInstance struct {
	*natsserver.Server
	nc *natsclient.Conn
	js natsclient.JetStreamContext

	once sync.Once
}

var natsLock sync.Mutex

// Prepare returns a JetStream context, starting an embedded NATS server
// if no external addresses are configured.
func (s *NATSInstance) Prepare(process *process.ProcessContext, cfg *config.JetStream) (natsclient.JetStreamContext, *natsclient.Conn) {
	natsLock.Lock()
	defer natsLock.Unlock()
	// check if we need an in-process NATS Server
	if len(cfg.Addresses) != 0 {
		// reuse existing connections
		if s.nc != nil {
			return s.js, s.nc
		}
		js, nc := setupNATS(process, cfg, nil)
		s.js = js
		s.nc = nc
		return js, nc
	}
	if s.Server == nil {
		var err error
		s.once.Do(func() {
			opts := &natsserver.Options{
				ServerName:      "scrubd-nats",
				DontListen:      true,
				JetStream:       true,
				StoreDir:        string(cfg.StoragePath),
				NoSystemAccount: true,
				MaxPayload:      16 * 1024 * 1024,
				NoSigs:          true,
				NoLog:           cfg.NoLog,
			}
			s.Server, err = natsserver.NewServer(opts)
			if err != nil {
				panic(err)
			}
			if !cfg.NoLog {
				s.Server.ConfigureLogger()
			}
			go func() {
				process.ComponentStarted()
				s.Server.Start()
			}()
			go func() {
				<-process.WaitForShutdown()
				s.Server.Shutdown()
				s.Server.WaitForShutdown()
				process.ComponentFinished()
			}()
		})
		if err != nil {
			panic(err)
		}
	}
	if !s.Server.ReadyForConnections(time.Second * 60) {
		logrus.Fatalln("NATS did not start in time")
	}
	// reuse existing connections
	if s.nc != nil {
		return s.js, s.nc
	}
	nc, err := natsclient.Connect("", natsclient.InProcessServer(s))
	if err != nil {
		logrus.Fatalln("Failed to create NATS client")
	}
	js, _ := setupNATS(process, cfg, nc)
	s.js = js
	s.nc = nc
	return js, nc
}

func setupNATS(process *process.ProcessContext, cfg *config.JetStream, nc *natsclient.Conn) (natsclient.JetStreamContext, *natsclient.Conn) {
	if nc == nil {
		var err error
		opts := []natsclient.Option{}
		nc, err = natsclient.Connect(strings.Join(cfg.Addresses, ","), opts...)
		if err != nil {
			logrus.WithError(err).Panic("Unable to connect to NATS")
			return nil, nil
		}
	}

	js, err := nc.JetStream()
	if err != nil {
		logrus.WithError(err).Panic("Unable to get JetStream context")
		return nil, nil
	}

	if err := PrepareStreams(js, cfg); err != nil {
		logrus.WithError(err).Panic("Unable to prepare JetStream streams")
		return nil, nil
	}

	return js, nc
}
