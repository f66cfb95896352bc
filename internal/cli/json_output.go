// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"encoding/json"
	"io"
	"time"
)

// JSONResponse is the envelope for --json output.
type JSONResponse struct {
	Success   bool        `json:"success"`
	Data      interface{} `json:"data"`
	Error     *string     `json:"error"`
	Timestamp string      `json:"timestamp"`
	Command   string      `json:"command,omitempty"`
}

// NewJSONResponse creates a successful JSON response.
func NewJSONResponse(command string, data interface{}) *JSONResponse {
	return &JSONResponse{
		Success:   true,
		Data:      data,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Command:   command,
	}
}

// NewJSONErrorResponse creates an error JSON response carrying data, which
// may be nil.
func NewJSONErrorResponse(command string, err error, data interface{}) *JSONResponse {
	errStr := err.Error()
	return &JSONResponse{
		Success:   false,
		Data:      data,
		Error:     &errStr,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Command:   command,
	}
}

// Print writes the response as indented JSON.
func (r *JSONResponse) Print(w io.Writer) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(r)
}

// =============================================================================
// COMMAND-SPECIFIC DATA STRUCTURES
// =============================================================================

// VersionData is the data of `rigwrite version --json`.
type VersionData struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version"`
}

// GenData is the data of `rigwrite gen --json`. The generated text itself
// goes to the file or is included as Text when writing to stdout.
type GenData struct {
	Session          string          `json:"session"`
	Status           string          `json:"status"`
	Model            string          `json:"model"`
	Command          string          `json:"command,omitempty"`
	File             string          `json:"file,omitempty"`
	Text             string          `json:"text,omitempty"`
	DoneReason       string          `json:"done_reason,omitempty"`
	Records          int             `json:"records"`
	DecodeErrors     int             `json:"decode_errors"`
	PromptTokens     int             `json:"prompt_tokens"`
	CompletionTokens int             `json:"completion_tokens"`
	TokensPerSecond  float64         `json:"tokens_per_second"`
	DurationMs       int64           `json:"duration_ms"`
	Context          json.RawMessage `json:"context,omitempty"`
}

// IndexData is one indexing request of `rigwrite index --json`. In watch
// mode each request is printed as one compact JSON line.
type IndexData struct {
	Method   string `json:"method"`
	Path     string `json:"path"`
	Response string `json:"response,omitempty"`
	Error    string `json:"error,omitempty"`
}

// AskData is the data of `rigwrite ask --json`.
type AskData struct {
	Query  string `json:"query"`
	Answer string `json:"answer"`
}

// CommandData is one entry of `rigwrite commands --json`.
type CommandData struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Model       string   `json:"model,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
	Prompt      string   `json:"prompt"`
}

// ModelData is one entry of `rigwrite models --json`.
type ModelData struct {
	Name     string `json:"name"`
	Size     int64  `json:"size"`
	Default  bool   `json:"default"`
	Modified string `json:"modified_at,omitempty"`
}
