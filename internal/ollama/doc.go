// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ollama provides the HTTP client for communicating with Ollama API.
//
// This package implements the transport side of rigwrite: it opens
// /api/generate requests, either streaming (one JSON record per line in a
// chunked body) or one-shot, and maps HTTP failures onto ClientError.
//
// # Key Types
//
//   - Client: HTTP client for Ollama API communication
//   - GenerateRequest: prompt, model, options and the opaque running context
//   - GenerateResponse: one record of a generation
//   - ClientError: typed transport failures (not running, timeout, model not found)
//
// # Usage
//
//	client := ollama.NewClient()
//	body, err := client.OpenGenerateStream(ctx, ollama.GenerateRequest{
//	    Model:  "llama2",
//	    Prompt: "Hello",
//	})
//	if err != nil {
//	    return err
//	}
//	defer body.Close()
//
// Parsing of the streamed body is left to package stream, which reassembles
// records across chunk boundaries.
package ollama
