// Copyright 2026 The scrubd Authors.
//
// SPDX-License-Identifier: AGPL-3.0-only
// Please see the LICENSE file in the repository root for full details.

package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/wikifarm/scrubd/adminapi"
	"github.com/wikifarm/scrubd/directory"
	"github.com/wikifarm/scrubd/internal/caching"
	"github.com/wikifarm/scrubd/redaction"
	"github.com/wikifarm/scrubd/setup/config"
	"github.com/wikifarm/scrubd/setup/jetstream"
	"github.com/wikifarm/scrubd/setup/process"
)

const version = "0.1.0"

var (
	configPath   = flag.String("config", "scrubd.yaml", "The path to the config file")
	printVersion = flag.Bool("version", false, "Print the version and exit")
)

func main() {
	flag.Parse()
	if *printVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		logrus.WithError(err).Fatalf("Failed to load config from %q", *configPath)
	}

	level, err := logrus.ParseLevel(cfg.Global.Logging.Level)
	if err != nil {
		logrus.WithError(err).Fatalf("Invalid log level %q", cfg.Global.Logging.Level)
	}
	logrus.SetLevel(level)

	if cfg.Global.Sentry.Enabled {
		logrus.Info("Setting up Sentry for debugging...")
		err = sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.Global.Sentry.DSN,
			Environment:      cfg.Global.Sentry.Environment,
			ServerName:       cfg.Global.FarmName,
			Release:          "scrubd@" + version,
			AttachStacktrace: true,
		})
		if err != nil {
			logrus.WithError(err).Panic("Failed to start Sentry")
		}
	}

	processCtx := process.NewProcessContext()

	caches := caching.NewRistrettoCache(
		int64(cfg.Global.Cache.EstimatedMaxSize),
		cfg.Global.Cache.MaxAge,
		cfg.Global.Cache.EnablePrometheus,
	)

	natsInstance := &jetstream.NATSInstance{}
	js, _ := natsInstance.Prepare(processCtx, &cfg.Global.JetStream)

	client := directory.NewClient(cfg.Directory.BaseURL, cfg.Directory.AccessToken)
	cachedDirectory := directory.NewCachedDirectory(client, caches)

	ruleSet, err := redaction.LoadRuleSet(&cfg.Redaction)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load redaction rule table")
	}
	logrus.WithFields(logrus.Fields{
		"farm":  cfg.Global.FarmName,
		"rules": len(ruleSet.Rules),
	}).Info("Starting scrubd")

	consumer := redaction.NewJobConsumer(processCtx, cfg, js, ruleSet)
	if err := consumer.Start(); err != nil {
		logrus.WithError(err).Panic("Failed to start redaction job consumer")
	}

	redactionAPI := redaction.NewRedactionAPI(cfg, cachedDirectory, client, cachedDirectory, js)

	router := mux.NewRouter()
	adminapi.AddRoutes(router, &cfg.AdminAPI, &cfg.Global.Metrics, redactionAPI, processCtx)
	server := &http.Server{
		Addr:         cfg.AdminAPI.ListenAddress,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute,
	}
	go func() {
		logrus.Infof("Admin API listening on %s", cfg.AdminAPI.ListenAddress)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.WithError(err).Error("Admin API server stopped")
			processCtx.ShutdownScrubd()
		}
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	select {
	case <-sigs:
		logrus.Info("Received shutdown signal")
	case <-processCtx.WaitForShutdown():
		logrus.Info("Internal shutdown requested")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Warn("Admin API shutdown did not complete")
	}
	processCtx.ShutdownScrubd()
	processCtx.WaitForComponentsToFinish()
	if cfg.Global.Sentry.Enabled {
		if !sentry.Flush(time.Second * 5) {
			logrus.Warnf("failed to flush all Sentry events!")
		}
	}
	logrus.Info("Shutdown complete")
}
