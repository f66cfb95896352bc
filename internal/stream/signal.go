// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import "sync"

// =============================================================================
// CANCELLATION SIGNAL
// =============================================================================

// Signal is a single-use latch observed by exactly one session. Once
// tripped it stays tripped; a new session gets a new Signal.
type Signal struct {
	mu      sync.Mutex
	tripped bool
	done    chan struct{}
}

// NewSignal returns an untripped signal.
func NewSignal() *Signal {
	return &Signal{done: make(chan struct{})}
}

// Trip sets the signal. Safe to call any number of times, from any
// goroutine, including after the session has finished.
func (s *Signal) Trip() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.tripped {
		s.tripped = true
		close(s.done)
	}
}

// IsTripped reports whether Trip has been called.
func (s *Signal) IsTripped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tripped
}

// Done is closed when the signal trips.
func (s *Signal) Done() <-chan struct{} {
	return s.done
}

// =============================================================================
// EXTERNAL TRIGGERS
// =============================================================================

// Trigger is an external source of cancel events, such as a key press
// routed in by the application shell.
type Trigger interface {
	// OnCancelEvent registers handler and returns a function that
	// deregisters it. The returned function must be safe to call once.
	OnCancelEvent(handler func()) (unregister func())
}

// TriggerFunc adapts a registration function to the Trigger interface.
type TriggerFunc func(handler func()) (unregister func())

// OnCancelEvent calls f(handler).
func (f TriggerFunc) OnCancelEvent(handler func()) func() {
	return f(handler)
}
