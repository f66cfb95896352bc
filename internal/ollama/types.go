// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ollama provides the HTTP client for communicating with Ollama API.
package ollama

import (
	"encoding/json"
	"fmt"
	"time"
)

// =============================================================================
// REQUEST TYPES
// =============================================================================

// Options contains model parameters for inference.
type Options struct {
	// Temperature is always sent: a zero temperature is a valid request.
	Temperature float64 `json:"temperature"`

	TopK       int      `json:"top_k,omitempty"`
	TopP       float64  `json:"top_p,omitempty"`
	NumCtx     int      `json:"num_ctx,omitempty"`
	NumPredict int      `json:"num_predict,omitempty"` // -1 for unlimited
	Stop       []string `json:"stop,omitempty"`
	Seed       int      `json:"seed,omitempty"`
}

// GenerateRequest is the request body for /api/generate endpoint.
type GenerateRequest struct {
	Model   string   `json:"model"`
	Prompt  string   `json:"prompt"`
	System  string   `json:"system,omitempty"`
	Options *Options `json:"options,omitempty"`

	// Context is the running context returned by a previous generation.
	// It is opaque: carried through byte-for-byte, never inspected.
	Context json.RawMessage `json:"context,omitempty"`

	Stream bool `json:"stream"`
}

// WithTemperature returns a copy of the request with the sampling temperature set.
func (r GenerateRequest) WithTemperature(t float64) GenerateRequest {
	opts := Options{}
	if r.Options != nil {
		opts = *r.Options
	}
	opts.Temperature = t
	r.Options = &opts
	return r
}

// =============================================================================
// RESPONSE TYPES
// =============================================================================

// GenerateResponse is one record from /api/generate. In streaming mode each
// newline-terminated line of the body is one GenerateResponse.
type GenerateResponse struct {
	Model              string          `json:"model"`
	CreatedAt          time.Time       `json:"created_at"`
	Response           string          `json:"response"`
	Done               bool            `json:"done"`
	DoneReason         string          `json:"done_reason,omitempty"`
	Context            json.RawMessage `json:"context,omitempty"`
	TotalDuration      int64           `json:"total_duration,omitempty"`
	LoadDuration       int64           `json:"load_duration,omitempty"`
	PromptEvalCount    int             `json:"prompt_eval_count,omitempty"`
	PromptEvalDuration int64           `json:"prompt_eval_duration,omitempty"`
	EvalCount          int             `json:"eval_count,omitempty"`
	EvalDuration       int64           `json:"eval_duration,omitempty"`
}

// TokensPerSecond calculates the generation speed from a response.
func (r *GenerateResponse) TokensPerSecond() float64 {
	if r.EvalDuration == 0 {
		return 0
	}
	return float64(r.EvalCount) / time.Duration(r.EvalDuration).Seconds()
}

// =============================================================================
// MODEL TYPES
// =============================================================================

// ModelInfo contains information about a model.
type ModelInfo struct {
	Name       string       `json:"name"`
	ModifiedAt time.Time    `json:"modified_at"`
	Size       int64        `json:"size"`
	Digest     string       `json:"digest"`
	Details    ModelDetails `json:"details,omitempty"`
}

// ModelDetails contains detailed information about a model.
type ModelDetails struct {
	Format            string   `json:"format"`
	Family            string   `json:"family"`
	Families          []string `json:"families"`
	ParameterSize     string   `json:"parameter_size"`
	QuantizationLevel string   `json:"quantization_level"`
}

// ListModelsResponse is the response from /api/tags endpoint.
type ListModelsResponse struct {
	Models []ModelInfo `json:"models"`
}

// =============================================================================
// ERROR TYPES
// =============================================================================

// OllamaError is the error body Ollama returns, either as the whole
// response or as a single line of a stream.
type OllamaError struct {
	Error string `json:"error"`
}

// FormatSize formats the model size in human-readable form.
func (m *ModelInfo) FormatSize() string {
	const (
		KB = 1024
		MB = KB * 1024
		GB = MB * 1024
	)

	switch {
	case m.Size >= GB:
		return fmt.Sprintf("%.1f GB", float64(m.Size)/GB)
	case m.Size >= MB:
		return fmt.Sprintf("%.1f MB", float64(m.Size)/MB)
	case m.Size >= KB:
		return fmt.Sprintf("%.1f KB", float64(m.Size)/KB)
	default:
		return fmt.Sprintf("%d B", m.Size)
	}
}
