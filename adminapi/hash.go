// Copyright 2026 The scrubd Authors.
//
// SPDX-License-Identifier: AGPL-3.0-only
// Please see the LICENSE file in the repository root for full details.

package adminapi

import (
	"crypto/rand"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/wikifarm/scrubd/internal/httputil"
)

const (
	minHashLength     = 8
	maxHashLength     = 32
	defaultHashLength = 32
)

type hashRequest struct {
	Prefix string `json:"prefix"`
	Length int    `json:"length"`
}

type hashResponse struct {
	Name string `json:"name"`
}

// handleHash mints an anonymized replacement username: a configured prefix
// followed by a random hex hash. Operators paste the result straight into
// the newname field of a redaction request.
func handleHash(req *http.Request, prefixOptions []string) httputil.JSONResponse {
	request := hashRequest{Length: defaultHashLength}
	if req.Body != nil && req.ContentLength != 0 {
		if err := json.NewDecoder(req.Body).Decode(&request); err != nil {
			return httputil.MessageResponse(http.StatusBadRequest, "malformed request body")
		}
	}
	if request.Prefix == "" && len(prefixOptions) > 0 {
		request.Prefix = prefixOptions[0]
	}
	if !prefixAllowed(request.Prefix, prefixOptions) {
		return httputil.MessageResponse(http.StatusBadRequest,
			fmt.Sprintf("prefix %q is not an allowed hash prefix", request.Prefix))
	}
	if request.Length < minHashLength || request.Length > maxHashLength {
		return httputil.MessageResponse(http.StatusBadRequest,
			fmt.Sprintf("length must be between %d and %d", minHashLength, maxHashLength))
	}
	name, err := randomHash(request.Prefix, request.Length)
	if err != nil {
		return httputil.MessageResponse(http.StatusInternalServerError, "failed to generate random hash")
	}
	return httputil.JSONResponse{Code: http.StatusOK, JSON: hashResponse{Name: name}}
}

func prefixAllowed(prefix string, options []string) bool {
	// Farms without configured prefixes mint bare hashes.
	if len(options) == 0 {
		return prefix == ""
	}
	for _, option := range options {
		if prefix == option {
			return true
		}
	}
	return false
}

func randomHash(prefix string, length int) (string, error) {
	entropy := make([]byte, 32)
	if _, err := rand.Read(entropy); err != nil {
		return "", err
	}
	sum := sha1.Sum(entropy)
	return prefix + hex.EncodeToString(sum[:])[:length], nil
}
