// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"bytes"
	"encoding/json"
	"errors"
	"time"
)

// Record is one decoded line of a generation stream.
type Record struct {
	// Delta is the text fragment to append. It may be empty, notably on
	// the final record.
	Delta string

	// Final marks the last record of a generation.
	Final bool

	// Context is the running context the server hands back on the final
	// record. It is copied verbatim and never interpreted.
	Context json.RawMessage

	DoneReason string
	Model      string

	// Metrics is only populated on the final record.
	Metrics Metrics
}

// Metrics are the server-side counters reported with the final record.
type Metrics struct {
	TotalDuration      time.Duration
	LoadDuration       time.Duration
	PromptEvalDuration time.Duration
	EvalDuration       time.Duration
	PromptTokens       int
	CompletionTokens   int
}

// wireRecord mirrors a streamed /api/generate line. Required fields are
// pointers so that their absence can be told apart from zero values.
type wireRecord struct {
	Response           *string         `json:"response"`
	Done               *bool           `json:"done"`
	Error              string          `json:"error"`
	Context            json.RawMessage `json:"context"`
	DoneReason         string          `json:"done_reason"`
	Model              string          `json:"model"`
	TotalDuration      int64           `json:"total_duration"`
	LoadDuration       int64           `json:"load_duration"`
	PromptEvalCount    int             `json:"prompt_eval_count"`
	PromptEvalDuration int64           `json:"prompt_eval_duration"`
	EvalCount          int             `json:"eval_count"`
	EvalDuration       int64           `json:"eval_duration"`
}

var (
	errMissingResponse = errors.New("missing \"response\" field")
	errMissingDone     = errors.New("missing \"done\" field")
)

// Decode parses one line into a Record. Unknown fields are ignored. Any
// failure is returned as a *DecodeError, which callers treat as
// recoverable noise for that line only.
func Decode(line string) (Record, error) {
	var w wireRecord
	if err := json.Unmarshal([]byte(line), &w); err != nil {
		return Record{}, &DecodeError{Line: line, Err: err}
	}
	if w.Error != "" {
		return Record{}, &DecodeError{Line: line, Err: &ServerError{Message: w.Error}}
	}
	if w.Response == nil {
		return Record{}, &DecodeError{Line: line, Err: errMissingResponse}
	}
	if w.Done == nil {
		return Record{}, &DecodeError{Line: line, Err: errMissingDone}
	}

	rec := Record{
		Delta:      *w.Response,
		Final:      *w.Done,
		DoneReason: w.DoneReason,
		Model:      w.Model,
	}
	if len(w.Context) > 0 && !bytes.Equal(w.Context, []byte("null")) {
		rec.Context = append(json.RawMessage(nil), w.Context...)
	}
	if rec.Final {
		rec.Metrics = Metrics{
			TotalDuration:      time.Duration(w.TotalDuration),
			LoadDuration:       time.Duration(w.LoadDuration),
			PromptEvalDuration: time.Duration(w.PromptEvalDuration),
			EvalDuration:       time.Duration(w.EvalDuration),
			PromptTokens:       w.PromptEvalCount,
			CompletionTokens:   w.EvalCount,
		}
	}
	return rec, nil
}
