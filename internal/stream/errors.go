// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"errors"

	"github.com/jeranaias/rigwrite/internal/util"
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// DecodeError reports one malformed stream line. It never ends a session.
type DecodeError struct {
	Line string
	Err  error
}

func (e *DecodeError) Error() string {
	return "decode record " + util.QuoteTruncated(e.Line, 80) + ": " + e.Err.Error()
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// ServerError is an {"error": "..."} line emitted inside the stream.
type ServerError struct {
	Message string
}

func (e *ServerError) Error() string {
	return "server error: " + e.Message
}

// TransportError is a connection-level failure. It is fatal to the session
// and is never retried here.
type TransportError struct {
	Op  string // "open" or "read"
	Err error
}

func (e *TransportError) Error() string {
	return e.Op + " stream: " + e.Err.Error()
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// SinkError wraps a failure reported by the insertion sink.
type SinkError struct {
	Op  string
	Err error
}

func (e *SinkError) Error() string {
	return "sink " + e.Op + ": " + e.Err.Error()
}

func (e *SinkError) Unwrap() error {
	return e.Err
}

// IsDecodeError reports whether err is a per-record decode failure.
func IsDecodeError(err error) bool {
	var de *DecodeError
	return errors.As(err, &de)
}

// IsTransportError reports whether err is a connection-level failure.
func IsTransportError(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}
