// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package telemetry

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/rigwrite/internal/stream"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "nested", "telemetry.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestEntryFromResult(t *testing.T) {
	start := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	res := stream.Result{
		Status:       stream.StatusFailed,
		Err:          &stream.TransportError{Op: "read", Err: errors.New("connection reset")},
		Records:      7,
		DecodeErrors: 1,
		Stats: stream.Stats{
			StartTime:       start,
			EndTime:         start.Add(1500 * time.Millisecond),
			TTFT:            200 * time.Millisecond,
			Metrics:         stream.Metrics{PromptTokens: 12, CompletionTokens: 6},
			TokensPerSecond: 4,
		},
	}

	e := EntryFromResult("abc", "llama2", "summarize-selection", res)

	assert.Equal(t, "abc", e.ID)
	assert.Equal(t, "failed", e.Status)
	assert.Equal(t, 1500*time.Millisecond, e.Duration)
	assert.Equal(t, 200*time.Millisecond, e.TTFT)
	assert.Equal(t, 12, e.PromptTokens)
	assert.Equal(t, 6, e.CompletionTokens)
	assert.Contains(t, e.Error, "connection reset")
	assert.Equal(t, "llama2", e.Model)

	res.Model = "llama2:13b"
	assert.Equal(t, "llama2:13b", EntryFromResult("abc", "llama2", "", res).Model)
}

func TestStore_RecordAndRecent(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	base := time.Now().Add(-time.Hour)

	for i, id := range []string{"a", "b", "c"} {
		require.NoError(t, store.Record(ctx, Entry{
			ID:               id,
			Model:            "llama2",
			Status:           "completed",
			StartTime:        base.Add(time.Duration(i) * time.Minute),
			Duration:         time.Second,
			CompletionTokens: 10 * (i + 1),
		}))
	}

	recent, err := store.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "c", recent[0].ID, "newest first")
	assert.Equal(t, "b", recent[1].ID)
	assert.Equal(t, time.Second, recent[0].Duration)
	assert.Equal(t, 30, recent[0].CompletionTokens)
	assert.True(t, recent[0].StartTime.Equal(base.Add(2*time.Minute)))

	none, err := store.Recent(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestStore_RecordReplacesSameID(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Record(ctx, Entry{ID: "x", Model: "m", Status: "cancelled", StartTime: time.Now()}))
	require.NoError(t, store.Record(ctx, Entry{ID: "x", Model: "m", Status: "completed", StartTime: time.Now()}))

	recent, err := store.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, "completed", recent[0].Status)
}

func TestStore_RecordRequiresID(t *testing.T) {
	store := openTestStore(t)
	assert.Error(t, store.Record(context.Background(), Entry{Model: "m"}))
}

func TestStore_Summary(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	now := time.Now()

	entries := []Entry{
		{ID: "1", Model: "llama2", Status: "completed", StartTime: now.Add(-3 * time.Minute), PromptTokens: 5, CompletionTokens: 20, TokensPerSecond: 10},
		{ID: "2", Model: "llama2", Status: "completed", StartTime: now.Add(-2 * time.Minute), PromptTokens: 5, CompletionTokens: 40, TokensPerSecond: 30},
		{ID: "3", Model: "mistral", Status: "cancelled", StartTime: now.Add(-time.Minute), CompletionTokens: 3, DecodeErrors: 2},
	}
	for _, e := range entries {
		require.NoError(t, store.Record(ctx, e))
	}

	sum, err := store.Summary(ctx)
	require.NoError(t, err)

	assert.Equal(t, 3, sum.Sessions)
	assert.Equal(t, 10, sum.PromptTokens)
	assert.Equal(t, 63, sum.CompletionTokens)
	assert.Equal(t, 2, sum.DecodeErrors)
	assert.InDelta(t, 20.0, sum.AvgTokensPerSec, 0.001)
	assert.Equal(t, map[string]int{"completed": 2, "cancelled": 1}, sum.ByStatus)
	assert.Equal(t, []string{"llama2", "mistral"}, sum.Models())
	assert.True(t, sum.First.Before(sum.Last))
}

func TestStore_SummaryEmpty(t *testing.T) {
	store := openTestStore(t)

	sum, err := store.Summary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, sum.Sessions)
	assert.True(t, sum.First.IsZero())
	assert.Zero(t, sum.AvgTokensPerSec)
}

func TestStore_DeleteBefore(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, store.Record(ctx, Entry{ID: "old", Model: "m", Status: "completed", StartTime: now.AddDate(0, 0, -40)}))
	require.NoError(t, store.Record(ctx, Entry{ID: "new", Model: "m", Status: "completed", StartTime: now}))

	n, err := store.DeleteBefore(ctx, now.AddDate(0, 0, -30))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	recent, err := store.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, "new", recent[0].ID)
}

func TestStore_PersistsAcrossOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "telemetry.db")
	ctx := context.Background()

	store, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, store.Record(ctx, Entry{ID: "keep", Model: "m", Status: "completed", StartTime: time.Now()}))
	require.NoError(t, store.Close())
	require.NoError(t, store.Close(), "second close is a no-op")

	_, err = store.Recent(ctx, 1)
	assert.ErrorIs(t, err, ErrClosed)

	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()

	recent, err := reopened.Recent(ctx, 1)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, "keep", recent[0].ID)
}

func TestOpen_Memory(t *testing.T) {
	store, err := Open(":memory:")
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.Record(context.Background(), Entry{ID: "m", Model: "x", Status: "completed", StartTime: time.Now()}))
	sum, err := store.Summary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Sessions)
}
