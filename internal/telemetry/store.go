// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package telemetry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/jeranaias/rigwrite/internal/stream"
)

// =============================================================================
// TYPES
// =============================================================================

// Entry is the record of one generation session. It never holds prompt or
// response text.
type Entry struct {
	ID               string        `json:"id"`
	Model            string        `json:"model"`
	Command          string        `json:"command"` // command ID, or "" for a raw prompt
	Status           string        `json:"status"`
	StartTime        time.Time     `json:"start_time"`
	Duration         time.Duration `json:"duration"`
	TTFT             time.Duration `json:"ttft"`
	Records          int           `json:"records"`
	DecodeErrors     int           `json:"decode_errors"`
	PromptTokens     int           `json:"prompt_tokens"`
	CompletionTokens int           `json:"completion_tokens"`
	TokensPerSecond  float64       `json:"tokens_per_second"`
	Error            string        `json:"error,omitempty"`
}

// EntryFromResult maps a finished session onto an Entry.
func EntryFromResult(id, model, command string, res stream.Result) Entry {
	e := Entry{
		ID:               id,
		Model:            model,
		Command:          command,
		Status:           res.Status.String(),
		StartTime:        res.Stats.StartTime,
		Duration:         res.Stats.Elapsed(),
		TTFT:             res.Stats.TTFT,
		Records:          res.Records,
		DecodeErrors:     res.DecodeErrors,
		PromptTokens:     res.Stats.PromptTokens,
		CompletionTokens: res.Stats.CompletionTokens,
		TokensPerSecond:  res.Stats.TokensPerSecond,
	}
	if res.Model != "" {
		e.Model = res.Model
	}
	if res.Err != nil {
		e.Error = res.Err.Error()
	}
	return e
}

// Summary aggregates every recorded session.
type Summary struct {
	Sessions         int            `json:"sessions"`
	ByStatus         map[string]int `json:"by_status"`
	ByModel          map[string]int `json:"by_model"`
	PromptTokens     int            `json:"prompt_tokens"`
	CompletionTokens int            `json:"completion_tokens"`
	DecodeErrors     int            `json:"decode_errors"`
	AvgTokensPerSec  float64        `json:"avg_tokens_per_second"` // over completed sessions with throughput
	First            time.Time      `json:"first"`
	Last             time.Time      `json:"last"`
}

// Models returns the model names in the summary, most used first.
func (s Summary) Models() []string {
	models := make([]string, 0, len(s.ByModel))
	for m := range s.ByModel {
		models = append(models, m)
	}
	sort.Slice(models, func(i, j int) bool {
		if s.ByModel[models[i]] != s.ByModel[models[j]] {
			return s.ByModel[models[i]] > s.ByModel[models[j]]
		}
		return models[i] < models[j]
	})
	return models
}

// =============================================================================
// STORE
// =============================================================================

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
    id TEXT PRIMARY KEY,
    model TEXT NOT NULL,
    command TEXT NOT NULL DEFAULT '',
    status TEXT NOT NULL,
    start_time INTEGER NOT NULL,       -- Unix nanoseconds
    duration_ns INTEGER NOT NULL,
    ttft_ns INTEGER NOT NULL,
    records INTEGER NOT NULL,
    decode_errors INTEGER NOT NULL,
    prompt_tokens INTEGER NOT NULL,
    completion_tokens INTEGER NOT NULL,
    tokens_per_second REAL NOT NULL,
    error TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_sessions_start_time ON sessions(start_time);
CREATE INDEX IF NOT EXISTS idx_sessions_model ON sessions(model);
`

// ErrClosed is returned by operations on a closed store.
var ErrClosed = errors.New("telemetry store is closed")

// Store persists session entries in a SQLite database.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the store at path. ":memory:" opens a
// private in-memory database.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
			return nil, fmt.Errorf("failed to create telemetry directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open telemetry database: %w", err)
	}

	// One writer at a time; this also keeps ":memory:" on a single connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database. Safe to call more than once.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// Record stores one entry. Recording the same ID twice replaces it.
func (s *Store) Record(ctx context.Context, e Entry) error {
	if s.db == nil {
		return ErrClosed
	}
	if e.ID == "" {
		return errors.New("telemetry entry has no id")
	}
	_, err := s.db.ExecContext(ctx, `
INSERT OR REPLACE INTO sessions
    (id, model, command, status, start_time, duration_ns, ttft_ns, records,
     decode_errors, prompt_tokens, completion_tokens, tokens_per_second, error)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Model, e.Command, e.Status, e.StartTime.UnixNano(), int64(e.Duration), int64(e.TTFT),
		e.Records, e.DecodeErrors, e.PromptTokens, e.CompletionTokens, e.TokensPerSecond, e.Error)
	if err != nil {
		return fmt.Errorf("failed to record session %s: %w", e.ID, err)
	}
	return nil
}

// Recent returns up to n entries, newest first.
func (s *Store) Recent(ctx context.Context, n int) ([]Entry, error) {
	if s.db == nil {
		return nil, ErrClosed
	}
	if n <= 0 {
		return nil, nil
	}

	rows, err := s.db.QueryContext(ctx, `
SELECT id, model, command, status, start_time, duration_ns, ttft_ns, records,
       decode_errors, prompt_tokens, completion_tokens, tokens_per_second, error
FROM sessions
ORDER BY start_time DESC, id
LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var start, dur, ttft int64
		if err := rows.Scan(&e.ID, &e.Model, &e.Command, &e.Status, &start, &dur, &ttft, &e.Records,
			&e.DecodeErrors, &e.PromptTokens, &e.CompletionTokens, &e.TokensPerSecond, &e.Error); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		e.StartTime = time.Unix(0, start)
		e.Duration = time.Duration(dur)
		e.TTFT = time.Duration(ttft)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Summary aggregates all stored entries.
func (s *Store) Summary(ctx context.Context) (Summary, error) {
	sum := Summary{ByStatus: map[string]int{}, ByModel: map[string]int{}}
	if s.db == nil {
		return sum, ErrClosed
	}

	var first, last sql.NullInt64
	var avg sql.NullFloat64
	err := s.db.QueryRowContext(ctx, `
SELECT COUNT(*),
       COALESCE(SUM(prompt_tokens), 0),
       COALESCE(SUM(completion_tokens), 0),
       COALESCE(SUM(decode_errors), 0),
       MIN(start_time),
       MAX(start_time),
       (SELECT AVG(tokens_per_second) FROM sessions
         WHERE status = 'completed' AND tokens_per_second > 0)
FROM sessions`).Scan(&sum.Sessions, &sum.PromptTokens, &sum.CompletionTokens, &sum.DecodeErrors, &first, &last, &avg)
	if err != nil {
		return sum, fmt.Errorf("failed to summarize sessions: %w", err)
	}
	if first.Valid {
		sum.First = time.Unix(0, first.Int64)
	}
	if last.Valid {
		sum.Last = time.Unix(0, last.Int64)
	}
	if avg.Valid {
		sum.AvgTokensPerSec = avg.Float64
	}

	if err := s.countBy(ctx, "status", sum.ByStatus); err != nil {
		return sum, err
	}
	if err := s.countBy(ctx, "model", sum.ByModel); err != nil {
		return sum, err
	}
	return sum, nil
}

// countBy fills dst with row counts grouped by column (a fixed identifier).
func (s *Store) countBy(ctx context.Context, column string, dst map[string]int) error {
	rows, err := s.db.QueryContext(ctx, "SELECT "+column+", COUNT(*) FROM sessions GROUP BY "+column)
	if err != nil {
		return fmt.Errorf("failed to group sessions by %s: %w", column, err)
	}
	defer rows.Close()
	for rows.Next() {
		var key string
		var n int
		if err := rows.Scan(&key, &n); err != nil {
			return err
		}
		dst[key] = n
	}
	return rows.Err()
}

// DeleteBefore removes entries that started before t and reports how many.
func (s *Store) DeleteBefore(ctx context.Context, t time.Time) (int64, error) {
	if s.db == nil {
		return 0, ErrClosed
	}
	res, err := s.db.ExecContext(ctx, "DELETE FROM sessions WHERE start_time < ?", t.UnixNano())
	if err != nil {
		return 0, fmt.Errorf("failed to prune sessions: %w", err)
	}
	return res.RowsAffected()
}
