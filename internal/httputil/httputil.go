// Copyright 2026 The scrubd Authors.
//
// SPDX-License-Identifier: AGPL-3.0-only
// Please see the LICENSE file in the repository root for full details.

// Package httputil carries the HTTP plumbing shared by scrubd's operator
// surface: JSON responses, bearer-token auth and per-endpoint metrics.
package httputil

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

var requestsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "scrubd",
		Subsystem: "adminapi",
		Name:      "requests_total",
		Help:      "Requests served by the admin API, by endpoint and code",
	},
	[]string{"endpoint", "code"},
)

var registerMetrics sync.Once

func init() {
	registerMetrics.Do(func() {
		prometheus.MustRegister(requestsTotal)
	})
}

// JSONResponse is a response body plus its HTTP status code.
type JSONResponse struct {
	Code int
	JSON interface{}
}

// ErrorResponse is the wire shape of every admin API error.
type ErrorResponse struct {
	Error string `json:"error"`
}

// MessageResponse makes a JSONResponse with the given code and message.
func MessageResponse(code int, msg string) JSONResponse {
	return JSONResponse{Code: code, JSON: ErrorResponse{Error: msg}}
}

// RespondWithJSON writes a JSONResponse to the wire.
func RespondWithJSON(w http.ResponseWriter, res JSONResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(res.Code)
	if err := json.NewEncoder(w).Encode(res.JSON); err != nil {
		logrus.WithError(err).Error("Failed to write JSON response")
	}
}

// MakeAuthAPI wraps a JSON handler with bearer-token auth and a per-endpoint
// request counter. The token check is constant behaviour, not rate limited:
// the admin API listens on an operator-only address.
func MakeAuthAPI(metricsName, accessToken string, f func(req *http.Request) JSONResponse) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		res := withAuth(req, accessToken, f)
		requestsTotal.WithLabelValues(metricsName, http.StatusText(res.Code)).Inc()
		RespondWithJSON(w, res)
	})
}

func withAuth(req *http.Request, accessToken string, f func(req *http.Request) JSONResponse) JSONResponse {
	token, err := bearerToken(req)
	if err != nil {
		return MessageResponse(http.StatusUnauthorized, err.Error())
	}
	if token != accessToken {
		return MessageResponse(http.StatusForbidden, "access token mismatch")
	}
	return f(req)
}

func bearerToken(req *http.Request) (string, error) {
	authBearer := req.Header.Get("Authorization")
	parts := strings.SplitN(authBearer, " ", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" || parts[1] == "" {
		return "", errMissingToken
	}
	return parts[1], nil
}

var errMissingToken = errors.New("missing bearer token")

// PrometheusHandler exposes the process metrics registry.
func PrometheusHandler() http.Handler {
	return promhttp.Handler()
}
