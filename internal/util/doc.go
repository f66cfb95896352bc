// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util holds small helpers shared across rigwrite.
//
// String helpers count runes or display cells (via go-runewidth), never
// bytes. AtomicWriteFile is the only way config and documents are written
// to disk.
package util
