// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package document

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/jeranaias/rigwrite/internal/stream"
	"github.com/jeranaias/rigwrite/internal/util"
)

var (
	// ErrOutOfRange is returned for a position outside the document.
	ErrOutOfRange = errors.New("position out of range")

	// ErrPendingMoved is returned by ClearPending when the text under the
	// placeholder was edited while it was shown. The text is left alone.
	ErrPendingMoved = errors.New("placeholder was edited while pending")
)

// Document is an in-memory, line-based text buffer with a cursor. All
// mutations are serialized, so a session and any other writer never
// interleave within a single insert.
type Document struct {
	mu      sync.Mutex
	lines   []string
	cursor  stream.Position
	pending map[stream.Position]rune
}

var (
	_ stream.Sink          = (*Document)(nil)
	_ stream.PendingMarker = (*Document)(nil)
)

// New creates a document holding text. The cursor starts at the end.
func New(text string) *Document {
	d := &Document{
		lines:   strings.Split(text, "\n"),
		pending: make(map[stream.Position]rune),
	}
	d.cursor = d.end()
	return d
}

// String returns the full text.
func (d *Document) String() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return strings.Join(d.lines, "\n")
}

// Lines returns a copy of the document's lines.
func (d *Document) Lines() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return slices.Clone(d.lines)
}

// Cursor returns the current cursor position.
func (d *Document) Cursor() stream.Position {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cursor
}

// SetCursor moves the cursor, clamping it into the document.
func (d *Document) SetCursor(pos stream.Position) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cursor = d.clamp(pos)
}

// EndOfDocument returns the position just past the last character.
func (d *Document) EndOfDocument() stream.Position {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.end()
}

// InsertAt inserts text at pos and returns the position just past it.
func (d *Document) InsertAt(pos stream.Position, text string) (stream.Position, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.valid(pos) {
		return pos, fmt.Errorf("insert at %s: %w", pos, ErrOutOfRange)
	}
	return d.insert(pos, text), nil
}

// ShowPending inserts glyph at pos as a visible "waiting" marker.
func (d *Document) ShowPending(pos stream.Position, glyph rune) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.valid(pos) {
		return fmt.Errorf("show placeholder at %s: %w", pos, ErrOutOfRange)
	}
	d.insert(pos, string(glyph))
	d.pending[pos] = glyph
	return nil
}

// ClearPending removes the glyph shown at pos. A second call, or a call for
// a position with no glyph, does nothing.
func (d *Document) ClearPending(pos stream.Position) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	glyph, ok := d.pending[pos]
	if !ok {
		return nil
	}
	delete(d.pending, pos)

	if !d.valid(pos) {
		return ErrPendingMoved
	}
	line := []rune(d.lines[pos.Line])
	if pos.Col >= len(line) || line[pos.Col] != glyph {
		return ErrPendingMoved
	}
	d.lines[pos.Line] = string(slices.Delete(line, pos.Col, pos.Col+1))
	return nil
}

// insert assumes the lock is held and pos is valid.
func (d *Document) insert(pos stream.Position, text string) stream.Position {
	line := []rune(d.lines[pos.Line])
	head, tail := string(line[:pos.Col]), string(line[pos.Col:])

	parts := strings.Split(head+text, "\n")
	last := len(parts) - 1
	end := stream.Position{Line: pos.Line + last, Col: util.RuneLen(parts[last])}
	parts[last] += tail

	d.lines = slices.Concat(d.lines[:pos.Line], parts, d.lines[pos.Line+1:])
	return end
}

func (d *Document) end() stream.Position {
	last := len(d.lines) - 1
	return stream.Position{Line: last, Col: util.RuneLen(d.lines[last])}
}

func (d *Document) valid(pos stream.Position) bool {
	if pos.Line < 0 || pos.Line >= len(d.lines) || pos.Col < 0 {
		return false
	}
	return pos.Col <= util.RuneLen(d.lines[pos.Line])
}

func (d *Document) clamp(pos stream.Position) stream.Position {
	if pos.Line < 0 {
		return stream.Position{}
	}
	if pos.Line >= len(d.lines) {
		return d.end()
	}
	pos.Col = max(0, min(pos.Col, util.RuneLen(d.lines[pos.Line])))
	return pos
}

// ParsePosition parses a one-based "LINE:COL" or "LINE" (column 1) into a
// zero-based Position.
func ParsePosition(s string) (stream.Position, error) {
	lineStr, colStr, hasCol := strings.Cut(strings.TrimSpace(s), ":")
	line, err := strconv.Atoi(lineStr)
	if err != nil || line < 1 {
		return stream.Position{}, fmt.Errorf("invalid line in position %q", s)
	}
	col := 1
	if hasCol {
		col, err = strconv.Atoi(colStr)
		if err != nil || col < 1 {
			return stream.Position{}, fmt.Errorf("invalid column in position %q", s)
		}
	}
	return stream.Position{Line: line - 1, Col: col - 1}, nil
}
