// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/jeranaias/rigwrite/internal/config"
	"github.com/jeranaias/rigwrite/internal/ollama"
)

// =============================================================================
// TEST HARNESS
// =============================================================================

// captureOutput swaps the process streams for buffers. Stdin is empty and
// there is no terminal to listen on.
func captureOutput(t *testing.T) (out, errOut *bytes.Buffer) {
	t.Helper()
	out, errOut = &bytes.Buffer{}, &bytes.Buffer{}

	oldIn, oldOut, oldErr, oldTTY := stdin, stdout, stderr, ttyIn
	stdin, stdout, stderr, ttyIn = strings.NewReader(""), out, errOut, nil
	t.Cleanup(func() {
		stdin, stdout, stderr, ttyIn = oldIn, oldOut, oldErr, oldTTY
	})
	return out, errOut
}

// setStdin replaces stdin for the rest of the test.
func setStdin(t *testing.T, r io.Reader) {
	t.Helper()
	old := stdin
	stdin = r
	t.Cleanup(func() { stdin = old })
}

// isolateConfig points HOME at a temp dir, clears RIGWRITE_* and resets
// the global config. It returns the temp HOME.
func isolateConfig(t *testing.T, ollamaURL string) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("USERPROFILE", home)
	for _, k := range []string{"RIGWRITE_CONFIG", "RIGWRITE_MODEL", "RIGWRITE_TEMPERATURE", "RIGWRITE_TELEMETRY", "RIGWRITE_LLAMA_INDEX_URL"} {
		t.Setenv(k, "")
	}
	t.Setenv("RIGWRITE_OLLAMA_URL", ollamaURL)

	config.ResetGlobalForTesting()
	t.Cleanup(config.ResetGlobalForTesting)
	return home
}

// fakeOllama serves the few endpoints the CLI touches. Streaming requests
// get lines, one write and flush each; non-streaming ones get final.
type fakeOllama struct {
	*httptest.Server

	lines  []string
	final  ollama.GenerateResponse
	status int
	models []ollama.ModelInfo

	mu       sync.Mutex
	requests []ollama.GenerateRequest
}

func newFakeOllama(t *testing.T, lines ...string) *fakeOllama {
	t.Helper()
	f := &fakeOllama{lines: lines, status: http.StatusOK}
	f.Server = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.Close)
	return f
}

func (f *fakeOllama) serve(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/":
		io.WriteString(w, "Ollama is running")
	case "/api/tags":
		json.NewEncoder(w).Encode(ollama.ListModelsResponse{Models: f.models})
	case "/api/generate":
		var req ollama.GenerateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		f.mu.Lock()
		f.requests = append(f.requests, req)
		f.mu.Unlock()

		if f.status != http.StatusOK {
			w.WriteHeader(f.status)
			io.WriteString(w, `{"error":"boom"}`)
			return
		}
		if !req.Stream {
			json.NewEncoder(w).Encode(f.final)
			return
		}
		w.Header().Set("Content-Type", "application/x-ndjson")
		flusher := w.(http.Flusher)
		for _, line := range f.lines {
			io.WriteString(w, line+"\n")
			flusher.Flush()
		}
	default:
		http.NotFound(w, r)
	}
}

func (f *fakeOllama) lastRequest(t *testing.T) ollama.GenerateRequest {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.requests) == 0 {
		t.Fatal("no generate request received")
	}
	return f.requests[len(f.requests)-1]
}

func (f *fakeOllama) requestCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

// helloStream is a three-record generation that returns a context.
var helloStream = []string{
	`{"model":"llama2:7b","response":"Hello","done":false}`,
	`{"model":"llama2:7b","response":", world","done":false}`,
	`{"model":"llama2:7b","response":"","done":true,"done_reason":"stop","context":[1,2,3],"prompt_eval_count":4,"eval_count":2,"eval_duration":1000000000}`,
}
