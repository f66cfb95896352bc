// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"fmt"
	"time"
)

// =============================================================================
// STREAM STATISTICS
// =============================================================================

// Stats holds statistics collected during one session.
type Stats struct {
	// Timing
	StartTime      time.Time
	FirstTokenTime time.Time
	EndTime        time.Time

	// Server-side counters from the final record
	Metrics

	// Computed
	TTFT            time.Duration // Time to first non-empty delta
	TokensPerSecond float64
}

func newStats() Stats {
	return Stats{StartTime: time.Now()}
}

// recordDelta marks the arrival of the first non-empty delta.
func (s *Stats) recordDelta(delta string) {
	if delta != "" && s.FirstTokenTime.IsZero() {
		s.FirstTokenTime = time.Now()
		s.TTFT = s.FirstTokenTime.Sub(s.StartTime)
	}
}

// finalize copies the final record's counters and computes throughput.
func (s *Stats) finalize(m Metrics) {
	s.Metrics = m
	if m.EvalDuration > 0 {
		s.TokensPerSecond = float64(m.CompletionTokens) / m.EvalDuration.Seconds()
	}
}

// Elapsed is the wall-clock duration of the session.
func (s Stats) Elapsed() time.Duration {
	if s.EndTime.IsZero() {
		return time.Since(s.StartTime)
	}
	return s.EndTime.Sub(s.StartTime)
}

// Format returns a one-line summary such as "1.2s | 42 tokens | 35.0 tok/s | TTFT 180ms".
func (s Stats) Format() string {
	return fmt.Sprintf("%s | %d tokens | %.1f tok/s | TTFT %dms",
		formatElapsed(s.Elapsed()), s.CompletionTokens, s.TokensPerSecond, s.TTFT.Milliseconds())
}

func formatElapsed(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return fmt.Sprintf("%.1fs", d.Seconds())
}
