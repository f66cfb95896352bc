// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package index

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Indexing methods, as sent to <base>/indexing.
const (
	MethodAdd    = http.MethodPost
	MethodUpdate = http.MethodPatch
	MethodRemove = http.MethodDelete
)

// maxResponseBytes caps how much of a server reply is read.
const maxResponseBytes = 8 << 20

// ErrEmptyQuery is returned by Query for a blank question.
var ErrEmptyQuery = errors.New("empty query")

// =============================================================================
// ERROR TYPES
// =============================================================================

// Error is a failed request to the index server.
type Error struct {
	Method string
	Path   string // the indexed path, empty for queries
	Status int    // HTTP status, zero when no response arrived
	Body   string
	Cause  error
}

func (e *Error) Error() string {
	target := "query"
	if e.Path != "" {
		target = e.Path
	}
	switch {
	case e.Cause != nil:
		return fmt.Sprintf("index %s %s: %v", e.Method, target, e.Cause)
	case e.Body != "":
		return fmt.Sprintf("index %s %s: status %d: %s", e.Method, target, e.Status, e.Body)
	default:
		return fmt.Sprintf("index %s %s: status %d", e.Method, target, e.Status)
	}
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// =============================================================================
// CLIENT
// =============================================================================

// Client talks to one index server. It is safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a client for baseURL. A zero timeout means none.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// BaseURL returns the server base URL.
func (c *Client) BaseURL() string { return c.baseURL }

// Sync sends one indexing request for path and returns the server's reply.
func (c *Client) Sync(ctx context.Context, method, path string) (string, error) {
	switch method {
	case MethodAdd, MethodUpdate, MethodRemove:
	default:
		return "", fmt.Errorf("index: unsupported method %q", method)
	}
	body, err := c.do(ctx, method, c.baseURL+"/indexing", map[string]string{"path": path})
	if err != nil {
		var ie *Error
		if errors.As(err, &ie) {
			ie.Path = path
		}
		return "", err
	}
	return strings.TrimSpace(body), nil
}

// Query asks the server a question and returns its markdown answer.
func (c *Client) Query(ctx context.Context, query string) (string, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return "", ErrEmptyQuery
	}
	body, err := c.do(ctx, http.MethodPost, c.baseURL+"/", map[string]string{"query": query})
	if err != nil {
		return "", err
	}
	return answerText(body), nil
}

func (c *Client) do(ctx context.Context, method, url string, payload interface{}) (string, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return "", &Error{Method: method, Cause: err}
	}
	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(data))
	if err != nil {
		return "", &Error{Method: method, Cause: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &Error{Method: method, Cause: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", &Error{Method: method, Status: resp.StatusCode, Cause: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &Error{Method: method, Status: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	return string(body), nil
}

// answerText unwraps a reply sent as a JSON string; anything else is
// returned as is.
func answerText(body string) string {
	trimmed := strings.TrimSpace(body)
	if strings.HasPrefix(trimmed, `"`) {
		var s string
		if err := json.Unmarshal([]byte(trimmed), &s); err == nil {
			return s
		}
	}
	return trimmed
}
