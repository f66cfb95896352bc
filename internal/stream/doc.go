// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package stream turns a chunked, newline-delimited generation stream into
// incremental insertions into a document.
//
// # Pieces
//
//   - FrameBuffer: reassembles lines across arbitrary chunk boundaries
//   - Decode: parses one line into a Record
//   - Sink / PendingMarker: the document the session writes into
//   - Signal / Trigger: cooperative cancellation
//   - Engine / Session: drives one request from open to a terminal Status
//
// # Usage
//
//	engine := stream.NewEngine(ollama.NewClient())
//	res := engine.Run(ctx, stream.Request{
//	    Generate: ollama.GenerateRequest{Model: "llama2", Prompt: prompt},
//	    Sink:     doc,
//	    Position: doc.Cursor(),
//	    Trigger:  keys.Any(listener, keys.Interrupt()),
//	})
//
// A malformed line is logged and skipped; it never ends the session.
// Transport failures end it with StatusFailed and are not retried. Text
// already inserted is never rolled back.
package stream
