// Copyright 2026 The scrubd Authors.
//
// SPDX-License-Identifier: AGPL-3.0-only
// Please see the LICENSE file in the repository root for full details.

// Package ip resolves the address an operator request really came from,
// which the admin API records in its audit trail.
package ip

import (
	"net"
	"net/http"
	"strings"
)

// RemoteAddr returns the requesting address, preferring X-Forwarded-For
// when a reverse proxy sits in front of the admin API, then a custom
// header if one is named, then the connection's own remote address.
func RemoteAddr(req *http.Request, customHeaderName string) string {
	addr := req.RemoteAddr

	candidates := []string{
		req.Header.Get("X-Forwarded-For"),
		req.Header.Get(customHeaderName),
		req.RemoteAddr,
	}
	for _, candidate := range candidates {
		if candidate != "" {
			addr = candidate
			break
		}
	}

	// Forwarding proxies append, so the first entry is the client.
	parts := strings.Split(addr, ",")
	if ip := net.ParseIP(strings.TrimSpace(parts[0])); ip != nil {
		return ip.String()
	}
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return addr
}
