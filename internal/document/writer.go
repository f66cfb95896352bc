// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package document

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/jeranaias/rigwrite/internal/stream"
	"github.com/jeranaias/rigwrite/internal/util"
)

// ErrNotAtEnd is returned when a Writer is asked to insert anywhere but at
// its tail.
var ErrNotAtEnd = errors.New("writer only appends at its end")

// Writer is an append-only sink over an io.Writer such as a terminal. It
// tracks the end position of what it has written; the placeholder is drawn
// in place and erased with a backspace.
type Writer struct {
	mu      sync.Mutex
	w       io.Writer
	end     stream.Position
	pending bool
}

var (
	_ stream.Sink          = (*Writer)(nil)
	_ stream.PendingMarker = (*Writer)(nil)
)

// NewWriter returns a Writer whose output starts at line 1, column 1.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// EndOfDocument returns the position after the last written character.
func (w *Writer) EndOfDocument() stream.Position {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.end
}

// InsertAt writes text, which must go at the current end.
func (w *Writer) InsertAt(pos stream.Position, text string) (stream.Position, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if pos != w.end || w.pending {
		return w.end, fmt.Errorf("insert at %s: %w", pos, ErrNotAtEnd)
	}
	if _, err := io.WriteString(w.w, text); err != nil {
		return w.end, err
	}
	w.end = advance(w.end, text)
	return w.end, nil
}

// SetCursor is a no-op: a terminal cursor already sits at the tail.
func (w *Writer) SetCursor(stream.Position) {}

// ShowPending draws glyph at the end of the output.
func (w *Writer) ShowPending(pos stream.Position, glyph rune) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if pos != w.end || w.pending {
		return fmt.Errorf("show placeholder at %s: %w", pos, ErrNotAtEnd)
	}
	if _, err := io.WriteString(w.w, string(glyph)); err != nil {
		return err
	}
	w.pending = true
	return nil
}

// ClearPending erases the glyph drawn by ShowPending.
func (w *Writer) ClearPending(stream.Position) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.pending {
		return nil
	}
	w.pending = false
	_, err := io.WriteString(w.w, "\b \b")
	return err
}

// Reset starts a new logical document, as after a prompt line.
func (w *Writer) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.end = stream.Position{}
	w.pending = false
}

// advance returns the position reached by writing text starting at p.
func advance(p stream.Position, text string) stream.Position {
	i := strings.LastIndexByte(text, '\n')
	if i < 0 {
		return stream.Position{Line: p.Line, Col: p.Col + util.RuneLen(text)}
	}
	return stream.Position{
		Line: p.Line + strings.Count(text, "\n"),
		Col:  util.RuneLen(text[i+1:]),
	}
}
