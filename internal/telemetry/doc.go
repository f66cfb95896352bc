// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package telemetry records per-session generation statistics for rigwrite.
//
// Only counters and timings are stored: model, command, terminal status,
// token counts, throughput. Prompt and response text never reach the store.
//
// # Usage
//
//	store, err := telemetry.Open(cfg.Telemetry.Path)
//	if err != nil {
//	    return err
//	}
//	defer store.Close()
//
//	res := engine.Run(ctx, req)
//	store.Record(ctx, telemetry.EntryFromResult(id, model, "summarize-selection", res))
//
//	sum, _ := store.Summary(ctx)
package telemetry
