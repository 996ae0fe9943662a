// Copyright 2026 The scrubd Authors.
//
// SPDX-License-Identifier: AGPL-3.0-only
// Please see the LICENSE file in the repository root for full details.

// Package adminapi is scrubd's operator HTTP surface. It accepts redaction
// requests, mints anonymized replacement usernames and exposes metrics. It
// is meant to listen on an internal address behind operator auth only.
package adminapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/wikifarm/scrubd/internal/httputil"
	"github.com/wikifarm/scrubd/ip"
	"github.com/wikifarm/scrubd/redaction/api"
	"github.com/wikifarm/scrubd/setup/config"
	"github.com/wikifarm/scrubd/setup/process"
)

// AddRoutes wires the admin API endpoints onto the router. The metrics
// endpoint is only registered when enabled in the global configuration.
func AddRoutes(router *mux.Router, cfg *config.AdminAPI, metricsCfg *config.Metrics, redactionAPI api.RedactionAPI, processCtx *process.ProcessContext) {
	router.Handle("/_scrubd/admin/redact",
		httputil.MakeAuthAPI("redact", cfg.AccessToken, func(req *http.Request) httputil.JSONResponse {
			return handleRedact(req, redactionAPI)
		}),
	).Methods(http.MethodPost)

	router.Handle("/_scrubd/admin/hash",
		httputil.MakeAuthAPI("hash", cfg.AccessToken, func(req *http.Request) httputil.JSONResponse {
			return handleHash(req, cfg.HashPrefixOptions)
		}),
	).Methods(http.MethodPost)

	if metricsCfg.Enabled {
		router.Handle("/metrics", httputil.PrometheusHandler()).Methods(http.MethodGet)
	}

	// Unauthenticated liveness probe, degraded when jobs have failed.
	router.HandleFunc("/_scrubd/monitor/health", func(w http.ResponseWriter, _ *http.Request) {
		if degraded, reasons := processCtx.IsDegraded(); degraded {
			w.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"status": "degraded",
				"errors": reasons,
			})
			return
		}
		w.WriteHeader(http.StatusOK)
	}).Methods(http.MethodGet)
}

func handleRedact(req *http.Request, redactionAPI api.RedactionAPI) httputil.JSONResponse {
	var request api.RedactionRequest
	if err := json.NewDecoder(req.Body).Decode(&request); err != nil {
		return httputil.MessageResponse(http.StatusBadRequest, "malformed request body")
	}
	logrus.WithFields(logrus.Fields{
		"performer": request.Performer,
		"remote":    ip.RemoteAddr(req, ""),
	}).Info("Received redaction request")
	res, err := redactionAPI.PerformRedaction(req.Context(), &request)
	if err != nil {
		var verr *api.ValidationError
		if errors.As(err, &verr) {
			return httputil.MessageResponse(http.StatusBadRequest, verr.Reason)
		}
		// The error may carry names; the response to the operator does
		// not repeat them.
		logrus.WithError(err).Error("Redaction request failed")
		return httputil.MessageResponse(http.StatusInternalServerError, "redaction request failed, see server logs")
	}
	return httputil.JSONResponse{Code: http.StatusOK, JSON: res}
}
