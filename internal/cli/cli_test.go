// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/rigwrite/internal/config"
	"github.com/jeranaias/rigwrite/internal/index"
	"github.com/jeranaias/rigwrite/internal/ollama"
	"github.com/jeranaias/rigwrite/internal/stream"
)

// =============================================================================
// PARSE
// =============================================================================

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		argv    []string
		wantCmd Command
		check   func(*testing.T, Args)
	}{
		{name: "no args shows help", argv: nil, wantCmd: CmdHelp},
		{name: "gen", argv: []string{"gen", "-p", "hi"}, wantCmd: CmdGen, check: func(t *testing.T, a Args) {
			assert.Equal(t, []string{"-p", "hi"}, a.Raw)
		}},
		{name: "generate alias", argv: []string{"generate"}, wantCmd: CmdGen},
		{name: "g alias", argv: []string{"g"}, wantCmd: CmdGen},
		{name: "chat", argv: []string{"chat"}, wantCmd: CmdChat},
		{name: "commands alias", argv: []string{"cmds"}, wantCmd: CmdCommands},
		{name: "models", argv: []string{"models"}, wantCmd: CmdModels},
		{name: "stats", argv: []string{"stats", "--recent", "3"}, wantCmd: CmdStats},
		{name: "config", argv: []string{"config", "get", "ollama.url"}, wantCmd: CmdConfig},
		{name: "index", argv: []string{"index", "--watch", "notes"}, wantCmd: CmdIndex, check: func(t *testing.T, a Args) {
			assert.Equal(t, []string{"--watch", "notes"}, a.Raw)
		}},
		{name: "ask", argv: []string{"ask", "why?"}, wantCmd: CmdAsk},
		{name: "version flag", argv: []string{"--version"}, wantCmd: CmdVersion},
		{name: "help flag", argv: []string{"-h"}, wantCmd: CmdHelp},
		{name: "case insensitive", argv: []string{"GEN"}, wantCmd: CmdGen},
		{name: "unknown", argv: []string{"frobnicate"}, wantCmd: CmdUnknown, check: func(t *testing.T, a Args) {
			assert.Equal(t, "frobnicate", a.Name)
		}},
		{name: "global flags anywhere", argv: []string{"gen", "-q", "-p", "hi", "--json", "--verbose"}, wantCmd: CmdGen,
			check: func(t *testing.T, a Args) {
				assert.True(t, a.Quiet)
				assert.True(t, a.JSON)
				assert.True(t, a.Verbose)
				assert.Equal(t, []string{"-p", "hi"}, a.Raw)
			}},
		{name: "config path", argv: []string{"--config", "/tmp/x.toml", "commands"}, wantCmd: CmdCommands,
			check: func(t *testing.T, a Args) {
				assert.Equal(t, "/tmp/x.toml", a.ConfigPath)
			}},
		{name: "config path with equals", argv: []string{"commands", "--config=/tmp/y.json"}, wantCmd: CmdCommands,
			check: func(t *testing.T, a Args) {
				assert.Equal(t, "/tmp/y.json", a.ConfigPath)
			}},
		{name: "double dash protects prompt", argv: []string{"gen", "--", "--json"}, wantCmd: CmdGen,
			check: func(t *testing.T, a Args) {
				assert.False(t, a.JSON)
				assert.Equal(t, []string{"--", "--json"}, a.Raw)
			}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, args := Parse(tt.argv)
			assert.Equal(t, tt.wantCmd, cmd)
			if tt.check != nil {
				tt.check(t, args)
			}
		})
	}
}

// =============================================================================
// RUN
// =============================================================================

func TestRun_HelpAndVersion(t *testing.T) {
	out, _ := captureOutput(t)

	assert.Equal(t, ExitSuccess, Run(Parse(nil)))
	assert.Contains(t, out.String(), "rigwrite gen")
	assert.Contains(t, out.String(), Version)

	out.Reset()
	assert.Equal(t, ExitSuccess, Run(Parse([]string{"version", "--json"})))
	var resp struct {
		Success bool        `json:"success"`
		Data    VersionData `json:"data"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, Version, resp.Data.Version)
}

func TestRun_UnknownCommand(t *testing.T) {
	_, errOut := captureOutput(t)

	assert.Equal(t, ExitUsageError, Run(Parse([]string{"frobnicate"})))
	assert.Contains(t, errOut.String(), "unknown command")
}

// =============================================================================
// ERRORS
// =============================================================================

func TestGetExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitSuccess},
		{"cancelled", ErrCancelled, ExitCancelled},
		{"wrapped cancelled", fmt.Errorf("gen: %w", ErrCancelled), ExitCancelled},
		{"validation", NewValidationError("at", "x", "bad"), ExitUsageError},
		{"missing argument", ErrMissingArgument("prompt", "rigwrite gen -p hi"), ExitUsageError},
		{"config", fmt.Errorf("invalid config: %w", config.ValidateErrors{{Field: "ollama.url", Message: "bad"}}), ExitConfigError},
		{"transport", &stream.TransportError{Op: "open", Err: errors.New("refused")}, ExitGeneralError},
		{"not found", &NotFoundError{Resource: "command", ID: "x"}, ExitGeneralError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GetExitCode(tt.err))
		})
	}
}

func TestDisplayError(t *testing.T) {
	var buf bytes.Buffer
	DisplayError(&buf, ErrCancelled, false)
	assert.Contains(t, buf.String(), "[Cancelled]")

	buf.Reset()
	DisplayError(&buf, NewValidationErrorWithExample("at", "x", "bad position", "--at 1:1"), false)
	assert.Contains(t, buf.String(), "[ERROR]")
	assert.Contains(t, buf.String(), "invalid at: bad position (got: x)")
	assert.Contains(t, buf.String(), "Example: --at 1:1")

	buf.Reset()
	DisplayError(&buf, &ollama.ClientError{Type: ollama.ErrTypeNotRunning, Message: "connection refused"}, false)
	assert.Contains(t, buf.String(), "ollama serve")

	buf.Reset()
	DisplayError(&buf, &index.Error{Method: "POST", Cause: errors.New("connection refused")}, false)
	assert.Contains(t, buf.String(), "index.llama_index_url")

	buf.Reset()
	DisplayError(&buf, nil, false)
	assert.Empty(t, buf.String())
}

func TestDisplayErrorJSON(t *testing.T) {
	tests := []struct {
		err      error
		wantType string
	}{
		{ErrCancelled, "cancelled"},
		{&stream.TransportError{Op: "open", Err: errors.New("x")}, "transport_error"},
		{&stream.SinkError{Op: "insert", Err: errors.New("x")}, "sink_error"},
		{&index.Error{Method: "PATCH", Path: "/a.md", Status: 500}, "index_error"},
		{NewValidationError("f", "v", "r"), "validation_error"},
		{&NotFoundError{Resource: "command", ID: "x"}, "not_found_error"},
		{NewCommandError("gen", "open", "x", nil), "command_error"},
		{errors.New("plain"), "generic_error"},
	}
	for _, tt := range tests {
		t.Run(tt.wantType, func(t *testing.T) {
			var buf bytes.Buffer
			DisplayError(&buf, tt.err, true)
			var out map[string]interface{}
			require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
			assert.Equal(t, tt.wantType, out["error_type"])
			assert.Equal(t, false, out["success"])
		})
	}
}

func TestErrUnknownFlags(t *testing.T) {
	err := ErrUnknownFlags("gen", []string{"bogus", "z"})
	assert.True(t, IsValidationError(err))
	assert.Contains(t, err.Error(), "--bogus, --z")
	assert.Contains(t, err.Error(), "not accepted by gen")
}

// =============================================================================
// FORMATTING
// =============================================================================

func TestFormatCount(t *testing.T) {
	assert.Equal(t, "0", formatCount(0))
	assert.Equal(t, "999", formatCount(999))
	assert.Equal(t, "1,000", formatCount(1000))
	assert.Equal(t, "1,234,567", formatCount(1234567))
	assert.Equal(t, "-42", formatCount(-42))
}

func TestFormatDurationShort(t *testing.T) {
	assert.Equal(t, "250ms", formatDurationShort(250*time.Millisecond))
	assert.Equal(t, "2.5s", formatDurationShort(2500*time.Millisecond))
	assert.Equal(t, "3m5s", formatDurationShort(3*time.Minute+5*time.Second))
	assert.Equal(t, "2h10m", formatDurationShort(2*time.Hour+10*time.Minute))
}

func TestRenderStatus(t *testing.T) {
	assert.Contains(t, RenderStatus("completed"), "[COMPLETED]")
	assert.Contains(t, RenderStatus("cancelled"), "[CANCELLED]")
	assert.Contains(t, RenderStatus("failed"), "[FAILED]")
	assert.Contains(t, RenderStatus("other"), "[OTHER]")
}

func TestForceColorsEnabled(t *testing.T) {
	t.Cleanup(func() { ForceColorsEnabled(false) })

	ForceColorsEnabled(true)
	assert.True(t, ColorsEnabled())

	ForceColorsEnabled(false)
	assert.False(t, ColorsEnabled())
	assert.Equal(t, termenv.Ascii, GetColorProfile())
}

func TestIsTerminal(t *testing.T) {
	assert.False(t, isTerminal(&bytes.Buffer{}))
	assert.False(t, isTerminal(strings.NewReader("x")))
	assert.False(t, isTerminal(nil))
}

func TestPadWidth(t *testing.T) {
	assert.Equal(t, "ab   ", padWidth("ab", 5))
	assert.Equal(t, "日本 ", padWidth("日本", 5))
	assert.Equal(t, "ab...", padWidth("abcdefgh", 5))
}
