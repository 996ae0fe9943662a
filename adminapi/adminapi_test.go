// Copyright 2026 The scrubd Authors.
//
// SPDX-License-Identifier: AGPL-3.0-only
// Please see the LICENSE file in the repository root for full details.

package adminapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wikifarm/scrubd/redaction/api"
	"github.com/wikifarm/scrubd/setup/config"
	"github.com/wikifarm/scrubd/setup/process"
)

type fakeRedactionAPI struct {
	req *api.RedactionRequest
	res *api.RedactionResult
	err error
}

func (f *fakeRedactionAPI) PerformRedaction(_ context.Context, req *api.RedactionRequest) (*api.RedactionResult, error) {
	f.req = req
	if f.err != nil {
		return nil, f.err
	}
	return f.res, nil
}

func testServer(t *testing.T, redactionAPI api.RedactionAPI) *httptest.Server {
	t.Helper()
	router := mux.NewRouter()
	AddRoutes(router, &config.AdminAPI{
		AccessToken:       "hunter2",
		HashPrefixOptions: []string{"Scrubbed-", "Retired-"},
	}, &config.Metrics{Enabled: true}, redactionAPI, process.NewProcessContext())
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv
}

func doJSON(t *testing.T, srv *httptest.Server, path, token, body string) (*http.Response, map[string]interface{}) {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, srv.URL+path, bytes.NewBufferString(body))
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	res, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer res.Body.Close() // nolint: errcheck
	var decoded map[string]interface{}
	require.NoError(t, json.NewDecoder(res.Body).Decode(&decoded))
	return res, decoded
}

func TestRedactRequiresToken(t *testing.T) {
	srv := testServer(t, &fakeRedactionAPI{})

	res, _ := doJSON(t, srv, "/_scrubd/admin/redact", "", `{}`)
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)

	res, _ = doJSON(t, srv, "/_scrubd/admin/redact", "wrong", `{}`)
	assert.Equal(t, http.StatusForbidden, res.StatusCode)
}

func TestRedactDispatches(t *testing.T) {
	fake := &fakeRedactionAPI{
		res: &api.RedactionResult{
			RequestID: "req-1",
			Databases: []string{"wiki1", "wiki2"},
		},
	}
	srv := testServer(t, fake)

	res, body := doJSON(t, srv, "/_scrubd/admin/redact", "hunter2",
		`{"performer":"AdminEve","oldname":"Alice Smith","newname":"Scrubbed-4f2a","mode":"rename"}`)
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "req-1", body["request_id"])
	assert.Len(t, body["databases"], 2)

	require.NotNil(t, fake.req)
	assert.Equal(t, api.ModeRename, fake.req.Mode)
	assert.Equal(t, "Alice Smith", fake.req.OldName)
}

func TestRedactValidationErrorIsBadRequest(t *testing.T) {
	fake := &fakeRedactionAPI{err: &api.ValidationError{Reason: "oldname and newname must differ"}}
	srv := testServer(t, fake)

	res, body := doJSON(t, srv, "/_scrubd/admin/redact", "hunter2", `{"mode":"rename"}`)
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
	assert.Equal(t, "oldname and newname must differ", body["error"])
}

func TestHashGeneratesPrefixedName(t *testing.T) {
	srv := testServer(t, &fakeRedactionAPI{})

	res, body := doJSON(t, srv, "/_scrubd/admin/hash", "hunter2", `{"prefix":"Retired-","length":12}`)
	require.Equal(t, http.StatusOK, res.StatusCode)
	name, ok := body["name"].(string)
	require.True(t, ok)
	assert.True(t, strings.HasPrefix(name, "Retired-"))
	assert.Len(t, strings.TrimPrefix(name, "Retired-"), 12)
}

func TestHashDefaultsAndRejections(t *testing.T) {
	srv := testServer(t, &fakeRedactionAPI{})

	// No body: first configured prefix, default length.
	res, body := doJSON(t, srv, "/_scrubd/admin/hash", "hunter2", "")
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.True(t, strings.HasPrefix(body["name"].(string), "Scrubbed-"))

	res, _ = doJSON(t, srv, "/_scrubd/admin/hash", "hunter2", `{"prefix":"Whatever-"}`)
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)

	res, _ = doJSON(t, srv, "/_scrubd/admin/hash", "hunter2", `{"prefix":"Scrubbed-","length":2}`)
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
}

func TestHealthEndpoint(t *testing.T) {
	router := mux.NewRouter()
	processCtx := process.NewProcessContext()
	AddRoutes(router, &config.AdminAPI{AccessToken: "hunter2"}, &config.Metrics{}, &fakeRedactionAPI{}, processCtx)
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	res, err := srv.Client().Get(srv.URL + "/_scrubd/monitor/health")
	require.NoError(t, err)
	res.Body.Close() // nolint: errcheck
	assert.Equal(t, http.StatusOK, res.StatusCode)

	processCtx.Degraded(errors.New("wiki3 unreachable"))
	res, err = srv.Client().Get(srv.URL + "/_scrubd/monitor/health")
	require.NoError(t, err)
	res.Body.Close() // nolint: errcheck
	assert.Equal(t, http.StatusServiceUnavailable, res.StatusCode)
}

func TestHashWithoutConfiguredPrefixes(t *testing.T) {
	router := mux.NewRouter()
	AddRoutes(router, &config.AdminAPI{AccessToken: "hunter2"}, &config.Metrics{}, &fakeRedactionAPI{}, process.NewProcessContext())
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	// No hash_prefix_options configured: an empty prefix mints a bare hash.
	res, body := doJSON(t, srv, "/_scrubd/admin/hash", "hunter2", "")
	require.Equal(t, http.StatusOK, res.StatusCode)
	name := body["name"].(string)
	assert.Len(t, name, defaultHashLength)

	// A named prefix is still rejected when none are configured.
	res, _ = doJSON(t, srv, "/_scrubd/admin/hash", "hunter2", `{"prefix":"Scrubbed-"}`)
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
}

func TestMetricsEndpointGatedByConfig(t *testing.T) {
	for _, enabled := range []bool{true, false} {
		router := mux.NewRouter()
		AddRoutes(router, &config.AdminAPI{AccessToken: "hunter2"}, &config.Metrics{Enabled: enabled}, &fakeRedactionAPI{}, process.NewProcessContext())
		srv := httptest.NewServer(router)

		res, err := srv.Client().Get(srv.URL + "/metrics")
		require.NoError(t, err)
		res.Body.Close() // nolint: errcheck
		if enabled {
			assert.Equal(t, http.StatusOK, res.StatusCode)
		} else {
			assert.Equal(t, http.StatusNotFound, res.StatusCode)
		}
		srv.Close()
	}
}

func TestHashesAreUnique(t *testing.T) {
	srv := testServer(t, &fakeRedactionAPI{})

	seen := map[string]bool{}
	for i := 0; i < 8; i++ {
		res, body := doJSON(t, srv, "/_scrubd/admin/hash", "hunter2", `{"prefix":"Scrubbed-"}`)
		require.Equal(t, http.StatusOK, res.StatusCode)
		name := body["name"].(string)
		assert.False(t, seen[name])
		seen[name] = true
	}
}
