// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ollama

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"time"
)

// startOllamaProcess launches `ollama serve` detached from this process and
// polls until the server answers or the platform's readiness window closes.
func (c *Client) startOllamaProcess(ctx context.Context) error {
	ollamaPath, err := findOllamaExecutable()
	if err != nil {
		return &ClientError{
			Type:    ErrTypeConnection,
			Message: "failed to find Ollama executable",
			Cause:   err,
		}
	}

	cmd := exec.Command(ollamaPath, "serve")
	// GPU-related variables (OLLAMA_VULKAN etc.) must reach the server
	cmd.Env = os.Environ()
	detach(cmd)

	if err := cmd.Start(); err != nil {
		return &ClientError{
			Type:    ErrTypeConnection,
			Message: fmt.Sprintf("failed to start Ollama (path: %s)", ollamaPath),
			Cause:   err,
		}
	}
	if cmd.Process != nil {
		_ = cmd.Process.Release()
	}

	return c.waitReady(ctx, ollamaPath, startupWindow)
}

// waitReady polls CheckRunning every half second until it succeeds, ctx is
// done, or window elapses.
func (c *Client) waitReady(ctx context.Context, path string, window time.Duration) error {
	start := time.Now()
	deadline := start.Add(window)
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	fmt.Fprintf(os.Stderr, "Starting Ollama service...\n")

	var lastErr error
	for time.Now().Before(deadline) {
		checkCtx, cancel := context.WithTimeout(ctx, time.Second)
		lastErr = c.CheckRunning(checkCtx)
		cancel()
		if lastErr == nil {
			fmt.Fprintf(os.Stderr, "Ollama service started (%.1fs)\n", time.Since(start).Seconds())
			return nil
		}

		select {
		case <-ctx.Done():
			return &ClientError{Type: ErrTypeCanceled, Message: "Ollama startup cancelled", Cause: ctx.Err()}
		case <-ticker.C:
		}
	}

	return &ClientError{
		Type:    ErrTypeConnection,
		Message: fmt.Sprintf("Ollama started but not responding after %s (path: %s)", window, path),
		Cause:   lastErr,
	}
}
