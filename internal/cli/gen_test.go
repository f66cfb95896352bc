// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/rigwrite/internal/commands"
	"github.com/jeranaias/rigwrite/internal/config"
	"github.com/jeranaias/rigwrite/internal/ollama"
)

// genResponse is the --json envelope of gen.
type genResponse struct {
	Success bool    `json:"success"`
	Data    GenData `json:"data"`
	Error   *string `json:"error"`
}

func runCLI(argv ...string) int {
	return Run(Parse(argv))
}

// =============================================================================
// STREAMING
// =============================================================================

func TestHandleGen_StreamsToStdout(t *testing.T) {
	srv := newFakeOllama(t, helloStream...)
	isolateConfig(t, srv.URL)
	out, errOut := captureOutput(t)

	code := runCLI("gen", "-q", "-p", "Say hello")

	require.Equal(t, ExitSuccess, code, errOut.String())
	assert.Equal(t, "Hello, world\n", out.String())
	assert.Empty(t, errOut.String())

	req := srv.lastRequest(t)
	assert.True(t, req.Stream)
	assert.Equal(t, "Say hello", req.Prompt)
	assert.Equal(t, config.DefaultModel, req.Model)
	require.NotNil(t, req.Options)
	assert.Equal(t, config.DefaultTemperature, req.Options.Temperature)
}

func TestHandleGen_StatsLine(t *testing.T) {
	srv := newFakeOllama(t, helloStream...)
	isolateConfig(t, srv.URL)
	_, errOut := captureOutput(t)

	require.Equal(t, ExitSuccess, runCLI("gen", "-p", "Say hello"))
	assert.Contains(t, errOut.String(), "[COMPLETED]")
	assert.Contains(t, errOut.String(), "2 tokens")
}

func TestHandleGen_CommandOnStdinSelection(t *testing.T) {
	srv := newFakeOllama(t, helloStream...)
	isolateConfig(t, srv.URL)
	captureOutput(t)
	setStdin(t, strings.NewReader("some rough notes"))

	require.Equal(t, ExitSuccess, runCLI("gen", "-q", "-c", "summarize-selection"))

	var summarize commands.Command
	for _, c := range commands.Builtin() {
		if c.ID == "summarize-selection" {
			summarize = c
		}
	}
	require.NotEmpty(t, summarize.Prompt)

	req := srv.lastRequest(t)
	assert.Equal(t, summarize.Prompt+"\n\nsome rough notes", req.Prompt)
}

func TestHandleGen_PromptWithSelection(t *testing.T) {
	srv := newFakeOllama(t, helloStream...)
	isolateConfig(t, srv.URL)
	captureOutput(t)

	require.Equal(t, ExitSuccess, runCLI("gen", "-q", "-p", "Translate to French", "-t", "good morning", "-m", "mistral", "--temperature", "0"))

	req := srv.lastRequest(t)
	assert.Equal(t, "Translate to French\n\ngood morning", req.Prompt)
	assert.Equal(t, "mistral", req.Model)
	require.NotNil(t, req.Options)
	assert.Equal(t, 0.0, req.Options.Temperature)
}

func TestHandleGen_IntoFile(t *testing.T) {
	srv := newFakeOllama(t, helloStream...)
	isolateConfig(t, srv.URL)
	out, errOut := captureOutput(t)

	path := filepath.Join(t.TempDir(), "draft.md")
	require.NoError(t, os.WriteFile(path, []byte("# Title\n"), 0644))

	code := runCLI("gen", "-q", "-p", "Continue", "-f", path, "--separator")
	require.Equal(t, ExitSuccess, code, errOut.String())
	assert.Empty(t, out.String())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "# Title\n\n\nHello, world", string(data))
	assert.NotContains(t, string(data), config.DefaultPlaceholder)
}

func TestHandleGen_AtOutsideDocument(t *testing.T) {
	srv := newFakeOllama(t, helloStream...)
	isolateConfig(t, srv.URL)
	captureOutput(t)

	path := filepath.Join(t.TempDir(), "draft.md")
	require.NoError(t, os.WriteFile(path, []byte("one line"), 0644))

	assert.Equal(t, ExitUsageError, runCLI("gen", "-p", "x", "-f", path, "--at", "9:1"))
	assert.Equal(t, 0, srv.requestCount())
}

func TestHandleGen_JSONOutput(t *testing.T) {
	srv := newFakeOllama(t,
		helloStream[0],
		`this line is not json`,
		helloStream[1],
		helloStream[2],
	)
	isolateConfig(t, srv.URL)
	out, _ := captureOutput(t)

	require.Equal(t, ExitSuccess, runCLI("gen", "--json", "-p", "Say hello"))

	var resp genResponse
	require.NoError(t, json.Unmarshal(out.Bytes(), &resp), out.String())
	assert.True(t, resp.Success)
	assert.Nil(t, resp.Error)
	assert.Equal(t, "completed", resp.Data.Status)
	assert.Equal(t, "Hello, world", resp.Data.Text)
	assert.Equal(t, 3, resp.Data.Records)
	assert.Equal(t, 1, resp.Data.DecodeErrors)
	assert.Equal(t, "llama2:7b", resp.Data.Model)
	assert.Equal(t, "stop", resp.Data.DoneReason)
	assert.Equal(t, 2, resp.Data.CompletionTokens)
	assert.JSONEq(t, `[1,2,3]`, string(resp.Data.Context))
	assert.NotEmpty(t, resp.Data.Session)
}

func TestHandleGen_ContextRoundTrip(t *testing.T) {
	srv := newFakeOllama(t, helloStream...)
	isolateConfig(t, srv.URL)
	captureOutput(t)

	ctxPath := filepath.Join(t.TempDir(), "ctx.json")
	require.Equal(t, ExitSuccess, runCLI("gen", "-q", "-p", "first", "--context-out", ctxPath))
	assert.Empty(t, srv.lastRequest(t).Context)

	saved, err := os.ReadFile(ctxPath)
	require.NoError(t, err)
	assert.JSONEq(t, `[1,2,3]`, string(saved))

	require.Equal(t, ExitSuccess, runCLI("gen", "-q", "-p", "second", "--context-in", ctxPath))
	assert.JSONEq(t, `[1,2,3]`, string(srv.lastRequest(t).Context))
}

func TestHandleGen_BadContextFile(t *testing.T) {
	srv := newFakeOllama(t, helloStream...)
	isolateConfig(t, srv.URL)
	captureOutput(t)

	ctxPath := filepath.Join(t.TempDir(), "ctx.json")
	require.NoError(t, os.WriteFile(ctxPath, []byte("{not json"), 0600))

	assert.Equal(t, ExitUsageError, runCLI("gen", "-p", "x", "--context-in", ctxPath))
	assert.Equal(t, 0, srv.requestCount())
}

func TestHandleGen_Batch(t *testing.T) {
	srv := newFakeOllama(t)
	srv.final = ollama.GenerateResponse{Model: "llama2", Response: "All at once", Done: true, EvalCount: 3}
	isolateConfig(t, srv.URL)
	out, _ := captureOutput(t)

	require.Equal(t, ExitSuccess, runCLI("gen", "-q", "--batch", "-p", "x"))
	assert.Equal(t, "All at once\n", out.String())
	assert.False(t, srv.lastRequest(t).Stream)
}

// =============================================================================
// FAILURES
// =============================================================================

func TestHandleGen_ServerError(t *testing.T) {
	srv := newFakeOllama(t)
	srv.status = http.StatusInternalServerError
	isolateConfig(t, srv.URL)
	_, errOut := captureOutput(t)

	assert.Equal(t, ExitGeneralError, runCLI("gen", "-p", "x"))
	assert.Contains(t, errOut.String(), "[ERROR]")
}

func TestHandleGen_ServerDown(t *testing.T) {
	srv := newFakeOllama(t)
	url := srv.URL
	srv.Close()
	isolateConfig(t, url)
	_, errOut := captureOutput(t)

	assert.Equal(t, ExitGeneralError, runCLI("gen", "-p", "x"))
	assert.Contains(t, errOut.String(), "[ERROR]")
}

func TestHandleGen_UsageErrors(t *testing.T) {
	srv := newFakeOllama(t, helloStream...)
	isolateConfig(t, srv.URL)

	tests := []struct {
		name string
		argv []string
	}{
		{"nothing to generate", []string{"gen"}},
		{"unknown flag", []string{"gen", "-p", "x", "--bogus", "1"}},
		{"temperature out of range", []string{"gen", "-p", "x", "--temperature", "5"}},
		{"temperature not a number", []string{"gen", "-p", "x", "--temperature", "warm"}},
		{"at without file", []string{"gen", "-p", "x", "--at", "1:1"}},
		{"command and prompt", []string{"gen", "-c", "summarize-selection", "-p", "x"}},
		{"command with empty selection", []string{"gen", "-c", "summarize-selection"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			captureOutput(t)
			assert.Equal(t, ExitUsageError, runCLI(tt.argv...))
		})
	}
	assert.Equal(t, 0, srv.requestCount())
}

func TestHandleGen_UnknownCommandID(t *testing.T) {
	srv := newFakeOllama(t, helloStream...)
	isolateConfig(t, srv.URL)
	_, errOut := captureOutput(t)

	assert.Equal(t, ExitGeneralError, runCLI("gen", "-c", "no-such-command", "-t", "text"))
	assert.Contains(t, errOut.String(), "command not found: no-such-command")
}

// =============================================================================
// TELEMETRY
// =============================================================================

func TestHandleGen_RecordsTelemetry(t *testing.T) {
	srv := newFakeOllama(t, helloStream...)
	isolateConfig(t, srv.URL)
	t.Setenv("RIGWRITE_TELEMETRY", "1")
	out, errOut := captureOutput(t)

	require.Equal(t, ExitSuccess, runCLI("gen", "-q", "-p", "one"))
	require.Equal(t, ExitSuccess, runCLI("gen", "-q", "-t", "notes", "-c", "summarize-selection"))

	out.Reset()
	require.Equal(t, ExitSuccess, runCLI("stats", "--json", "--recent", "5"), errOut.String())

	var resp struct {
		Success bool      `json:"success"`
		Data    StatsData `json:"data"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &resp), out.String())
	assert.Equal(t, 2, resp.Data.Summary.Sessions)
	assert.Equal(t, 2, resp.Data.Summary.ByStatus["completed"])
	assert.Equal(t, 4, resp.Data.Summary.CompletionTokens)
	require.Len(t, resp.Data.Recent, 2)
	assert.Equal(t, "summarize-selection", resp.Data.Recent[0].Command)
}

func TestHandleStats_TelemetryOff(t *testing.T) {
	isolateConfig(t, "http://127.0.0.1:1")
	_, errOut := captureOutput(t)

	assert.Equal(t, ExitUsageError, runCLI("stats"))
	assert.Contains(t, errOut.String(), "telemetry.enabled")
}
