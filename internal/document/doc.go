// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package document provides the insertion sinks a stream session writes
// into: an in-memory Document, a File that saves itself progressively, and
// an append-only Writer for terminal output.
package document
