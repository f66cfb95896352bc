// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import "fmt"

// Position is a zero-based (line, column) location in a document. Columns
// count runes, not bytes or cells.
type Position struct {
	Line int
	Col  int
}

func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line+1, p.Col+1)
}

// Sink is the document a session writes into. It knows nothing about the
// stream protocol.
type Sink interface {
	// EndOfDocument returns the position just past the last character.
	EndOfDocument() Position

	// InsertAt inserts text at pos and returns the position just past
	// the inserted text.
	InsertAt(pos Position, text string) (Position, error)

	// SetCursor moves the user-visible cursor.
	SetCursor(pos Position)
}

// PendingMarker is implemented by sinks that can show a one-cell glyph while
// a request is waiting for its first response.
type PendingMarker interface {
	ShowPending(pos Position, glyph rune) error

	// ClearPending removes the glyph shown at pos. Calling it when no
	// glyph is shown is a no-op.
	ClearPending(pos Position) error
}
