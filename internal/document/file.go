// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package document

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/jeranaias/rigwrite/internal/stream"
	"github.com/jeranaias/rigwrite/internal/util"
)

// DefaultSaveInterval is the minimum time between progressive saves.
const DefaultSaveInterval = 250 * time.Millisecond

// File is a Document bound to a path on disk. Every change marks it dirty;
// dirty contents are written back atomically, at most once per save
// interval, so a reader of the file sees the generation as it arrives.
// Call Flush when the session ends to write the remainder.
type File struct {
	*Document

	path    string
	perm    fs.FileMode
	limiter *rate.Limiter

	saveMu sync.Mutex
	dirty  bool
	saves  int
}

var (
	_ stream.Sink          = (*File)(nil)
	_ stream.PendingMarker = (*File)(nil)
)

// FileOption configures a File.
type FileOption func(*File)

// WithSaveInterval sets the minimum time between progressive saves. Zero
// saves on every change.
func WithSaveInterval(d time.Duration) FileOption {
	return func(f *File) {
		if d <= 0 {
			f.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		f.limiter = rate.NewLimiter(rate.Every(d), 1)
	}
}

// OpenFile loads path into a Document. A missing file opens as an empty
// document and is created on the first save.
func OpenFile(path string, opts ...FileOption) (*File, error) {
	f := &File{
		path:    path,
		perm:    0644,
		limiter: rate.NewLimiter(rate.Every(DefaultSaveInterval), 1),
	}
	for _, opt := range opts {
		opt(f)
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if info, statErr := os.Stat(path); statErr == nil {
			f.perm = info.Mode().Perm()
		}
	case errors.Is(err, fs.ErrNotExist):
		data = nil
	default:
		return nil, fmt.Errorf("open document: %w", err)
	}

	f.Document = New(string(data))
	return f, nil
}

// Path returns the file's path.
func (f *File) Path() string { return f.path }

// Saves reports how many times the file has been written.
func (f *File) Saves() int {
	f.saveMu.Lock()
	defer f.saveMu.Unlock()
	return f.saves
}

// InsertAt inserts into the document and saves if the interval allows.
func (f *File) InsertAt(pos stream.Position, text string) (stream.Position, error) {
	end, err := f.Document.InsertAt(pos, text)
	if err != nil {
		return end, err
	}
	return end, f.changed()
}

// ShowPending shows the placeholder and saves if the interval allows.
func (f *File) ShowPending(pos stream.Position, glyph rune) error {
	if err := f.Document.ShowPending(pos, glyph); err != nil {
		return err
	}
	return f.changed()
}

// ClearPending removes the placeholder and saves if the interval allows.
func (f *File) ClearPending(pos stream.Position) error {
	if err := f.Document.ClearPending(pos); err != nil {
		return err
	}
	return f.changed()
}

// Flush writes the document if anything changed since the last save.
func (f *File) Flush() error {
	f.saveMu.Lock()
	defer f.saveMu.Unlock()
	if !f.dirty {
		return nil
	}
	return f.saveLocked()
}

func (f *File) changed() error {
	f.saveMu.Lock()
	defer f.saveMu.Unlock()
	f.dirty = true
	if !f.limiter.Allow() {
		return nil
	}
	return f.saveLocked()
}

func (f *File) saveLocked() error {
	if err := util.AtomicWriteFile(f.path, []byte(f.Document.String()), f.perm); err != nil {
		return fmt.Errorf("save %s: %w", f.path, err)
	}
	f.dirty = false
	f.saves++
	return nil
}
