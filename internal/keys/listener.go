// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package keys

import (
	"errors"
	"log"
	"os"
	"sync"

	"github.com/muesli/cancelreader"
	"golang.org/x/term"

	"github.com/jeranaias/rigwrite/internal/stream"
)

// Listener turns any key press on a terminal into a cancel event. While a
// handler is registered the terminal is in cbreak mode: keys arrive one at
// a time without echo, and Ctrl-C still raises SIGINT.
type Listener struct {
	in     *os.File
	logger *log.Logger

	mu     sync.Mutex
	active bool
}

var _ stream.Trigger = (*Listener)(nil)

// NewListener listens on in, normally os.Stdin.
func NewListener(in *os.File) *Listener {
	return &Listener{in: in, logger: log.Default()}
}

// SetLogger routes listener events to l.
func (l *Listener) SetLogger(logger *log.Logger) {
	if logger != nil {
		l.logger = logger
	}
}

// IsTerminal reports whether the listener's input is a terminal.
func (l *Listener) IsTerminal() bool {
	return l.in != nil && term.IsTerminal(int(l.in.Fd()))
}

// OnCancelEvent calls handler on the next key press. If the input is not a
// terminal, or another handler is already registered, nothing is
// registered and the returned function does nothing.
func (l *Listener) OnCancelEvent(handler func()) func() {
	if !l.IsTerminal() {
		return func() {}
	}

	l.mu.Lock()
	if l.active {
		l.mu.Unlock()
		return func() {}
	}
	l.active = true
	l.mu.Unlock()

	release := func() {
		l.mu.Lock()
		l.active = false
		l.mu.Unlock()
	}

	fd := int(l.in.Fd())
	restore, err := enterCbreak(fd)
	if err != nil {
		l.logger.Printf("KEYS_CBREAK_ERROR | fd=%d err=%v", fd, err)
		release()
		return func() {}
	}

	r, err := cancelreader.NewReader(l.in)
	if err != nil {
		l.logger.Printf("KEYS_READER_ERROR | fd=%d err=%v", fd, err)
		restore()
		release()
		return func() {}
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		var b [1]byte
		n, err := r.Read(b[:])
		if errors.Is(err, cancelreader.ErrCanceled) {
			return
		}
		if n > 0 {
			handler()
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			r.Cancel()
			<-done
			r.Close()
			restore()
			release()
		})
	}
}
