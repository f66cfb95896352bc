// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/jeranaias/rigwrite/internal/commands"
	"github.com/jeranaias/rigwrite/internal/config"
	"github.com/jeranaias/rigwrite/internal/keys"
	"github.com/jeranaias/rigwrite/internal/ollama"
	"github.com/jeranaias/rigwrite/internal/stream"
	"github.com/jeranaias/rigwrite/internal/telemetry"
	"github.com/jeranaias/rigwrite/internal/util"
)

// Process streams. Tests swap these; ttyIn is what the key listener
// watches and may be nil.
var (
	stdin  io.Reader = os.Stdin
	stdout io.Writer = os.Stdout
	stderr io.Writer = os.Stderr
	ttyIn            = os.Stdin
)

// =============================================================================
// RUNTIME WIRING
// =============================================================================

// app is everything a generating command needs, built from one config.
type app struct {
	cfg      *config.Config
	registry *commands.Registry
	client   *ollama.Client
	logger   *log.Logger
	store    *telemetry.Store // nil when telemetry is off or unavailable
}

// loadConfig returns the config named by --config, or the global one.
func loadConfig(args Args) (*config.Config, error) {
	if args.ConfigPath != "" {
		return config.LoadFromPath(args.ConfigPath)
	}
	return config.Global(), nil
}

// newLogger sends event lines to stderr with --verbose and drops them
// otherwise.
func newLogger(args Args) *log.Logger {
	if args.Verbose {
		return log.New(stderr, "rigwrite: ", log.LstdFlags|log.Lmicroseconds)
	}
	return log.New(io.Discard, "", 0)
}

func newApp(args Args) (*app, error) {
	cfg, err := loadConfig(args)
	if err != nil {
		return nil, err
	}
	reg, err := commands.NewRegistry(cfg.PromptCommands())
	if err != nil {
		return nil, err
	}

	rt := &app{
		cfg:      cfg,
		registry: reg,
		logger:   newLogger(args),
		client: ollama.NewClientWithConfig(&ollama.ClientConfig{
			BaseURL:       cfg.Ollama.URL,
			HeaderTimeout: cfg.HeaderTimeout(),
			DefaultModel:  cfg.Ollama.DefaultModel,
			AutoStart:     cfg.Ollama.AutoStart,
		}),
	}

	if cfg.Telemetry.Enabled {
		store, err := telemetry.Open(cfg.Telemetry.Path)
		if err != nil {
			// Telemetry failures are logged only.
			rt.logger.Printf("TELEMETRY_OPEN_ERROR | path=%s err=%v", cfg.Telemetry.Path, err)
		} else {
			rt.store = store
		}
	}
	return rt, nil
}

func (rt *app) Close() {
	if rt.store != nil {
		rt.store.Close()
	}
}

// engine builds a stream engine. The placeholder is only drawn when the
// sink is something a person is looking at.
func (rt *app) engine(placeholder bool) *stream.Engine {
	glyph := rt.cfg.PlaceholderRune()
	if !placeholder {
		glyph = 0
	}
	return stream.NewEngine(rt.client,
		stream.WithLogger(rt.logger),
		stream.WithReadSize(rt.cfg.Stream.ReadBuffer),
		stream.WithPlaceholder(glyph),
	)
}

// cancelTrigger fires on Ctrl-C, SIGTERM or, when stdin is a terminal,
// any key press.
func (rt *app) cancelTrigger() stream.Trigger {
	listener := keys.NewListener(ttyIn)
	listener.SetLogger(rt.logger)
	return keys.Any(keys.Interrupt(), listener)
}

// ensureRunning checks the server before a generation so that a missing
// server is reported plainly rather than as a failed session.
func (rt *app) ensureRunning(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return rt.client.EnsureRunning(ctx)
}

// record stores a session's statistics if telemetry is on.
func (rt *app) record(ctx context.Context, id, model, command string, res stream.Result) {
	if rt.store == nil {
		return
	}
	entry := telemetry.EntryFromResult(id, model, command, res)
	if err := rt.store.Record(ctx, entry); err != nil {
		rt.logger.Printf("TELEMETRY_RECORD_ERROR | session=%s err=%v", id, err)
	}
}

// resultError maps a terminal status onto the command's error.
func resultError(res stream.Result) error {
	switch res.Status {
	case stream.StatusCancelled:
		return ErrCancelled
	case stream.StatusFailed:
		return res.Err
	}
	return nil
}

// =============================================================================
// FORMATTING
// =============================================================================

// formatDurationShort formats a short duration string.
func formatDurationShort(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	if d < time.Hour {
		m := int(d.Minutes())
		s := int(d.Seconds()) % 60
		return fmt.Sprintf("%dm%ds", m, s)
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	return fmt.Sprintf("%dh%dm", h, m)
}

// padWidth cuts or pads s to exactly width terminal cells.
func padWidth(s string, width int) string {
	s = util.TruncateWidth(s, width)
	if pad := width - util.StringWidth(s); pad > 0 {
		s += strings.Repeat(" ", pad)
	}
	return s
}

// formatCount formats a token count with thousands separators.
func formatCount(n int) string {
	s := fmt.Sprintf("%d", n)
	if n < 0 {
		return s
	}
	for i := len(s) - 3; i > 0; i -= 3 {
		s = s[:i] + "," + s[i:]
	}
	return s
}
