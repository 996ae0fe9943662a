// Copyright 2026 The scrubd Authors.
//
// SPDX-License-Identifier: AGPL-3.0-only
// Please see the LICENSE file in the repository root for full details.

// Package directory contains the HTTP client for the farm's identity
// directory service and a cache-fronted wrapper around it.
package directory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/wikifarm/scrubd/directory/api"
)

const defaultRequestTimeout = 30 * time.Second

// Client talks JSON over HTTP to the identity directory service. It
// implements api.GlobalDirectory and api.Renamer.
type Client struct {
	baseURL     string
	accessToken string
	client      *http.Client
}

func NewClient(baseURL, accessToken string) *Client {
	return &Client{
		baseURL:     baseURL,
		accessToken: accessToken,
		client: &http.Client{
			Timeout: defaultRequestTimeout,
		},
	}
}

func (c *Client) GlobalAccount(ctx context.Context, name string) (*api.GlobalAccount, error) {
	var account api.GlobalAccount
	found, err := c.do(ctx, http.MethodGet, c.accountURL(name), nil, &account)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return &account, nil
}

func (c *Client) ListAttached(ctx context.Context, name string) ([]string, error) {
	var resp struct {
		Attached []string `json:"attached"`
	}
	found, err := c.do(ctx, http.MethodGet, c.accountURL(name)+"/attached", nil, &resp)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("no such account %q", name)
	}
	return resp.Attached, nil
}

func (c *Client) Lock(ctx context.Context, name string) error {
	return c.post(ctx, c.accountURL(name)+"/lock", nil)
}

func (c *Client) ClearEmail(ctx context.Context, name string) error {
	return c.post(ctx, c.accountURL(name)+"/email/clear", nil)
}

func (c *Client) InvalidateCache(ctx context.Context, name string) error {
	return c.post(ctx, c.accountURL(name)+"/invalidate", nil)
}

func (c *Client) Rename(ctx context.Context, performer, oldName, newName string, opts api.RenameOptions) error {
	body := struct {
		Performer string            `json:"performer"`
		OldName   string            `json:"oldname"`
		NewName   string            `json:"newname"`
		Options   api.RenameOptions `json:"options"`
	}{performer, oldName, newName, opts}
	return c.post(ctx, c.baseURL+"/_directory/rename", body)
}

func (c *Client) accountURL(name string) string {
	return c.baseURL + "/_directory/account/" + url.PathEscape(name)
}

func (c *Client) post(ctx context.Context, u string, body interface{}) error {
	found, err := c.do(ctx, http.MethodPost, u, body, nil)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("directory: %s: account not found", u)
	}
	return nil
}

// do performs one request against the directory. The bool return reports
// whether the resource existed; a 404 is not an error at this layer since
// "account does not exist" is a normal answer.
func (c *Client) do(ctx context.Context, method, u string, body, result interface{}) (bool, error) {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return false, err
		}
		reader = bytes.NewReader(encoded)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return false, err
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("directory request failed: %w", err)
	}
	defer resp.Body.Close() // nolint: errcheck
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return false, nil
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return false, fmt.Errorf("directory returned HTTP %d: %s", resp.StatusCode, string(b))
	}
	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return false, fmt.Errorf("decoding directory response: %w", err)
		}
	}
	return true, nil
}
