// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-runewidth"

	"github.com/jeranaias/rigwrite/internal/ollama"
)

// =============================================================================
// STATUS AND RESULT
// =============================================================================

// Status is the terminal state of a session.
type Status int

const (
	StatusCompleted Status = iota
	StatusCancelled
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusCompleted:
		return "completed"
	case StatusCancelled:
		return "cancelled"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Result is what a session reports when it terminates.
type Result struct {
	Status Status

	// Err is set only for StatusFailed: a *TransportError or *SinkError.
	Err error

	// Context is the opaque running context from the final record, to be
	// passed unchanged into a follow-up request.
	Context json.RawMessage

	// Model is the model the server reports having used; DoneReason is why
	// it stopped ("stop", "length"). Both are empty until records carry them.
	Model      string
	DoneReason string

	Records      int
	DecodeErrors int
	Stats        Stats
}

// =============================================================================
// ENGINE
// =============================================================================

// Transport opens a streaming generation and returns its body once the
// response headers have arrived. Cancelling ctx must abort a blocked read
// on the returned body. *ollama.Client satisfies Transport.
type Transport interface {
	OpenGenerateStream(ctx context.Context, req ollama.GenerateRequest) (io.ReadCloser, error)
}

const (
	// DefaultReadSize is the buffer size for each read from the transport.
	DefaultReadSize = 4096

	// DefaultPlaceholder is the pending glyph shown until headers arrive.
	DefaultPlaceholder = '…'
)

// narrow measures glyph width independent of the user's locale.
var narrow = &runewidth.Condition{EastAsianWidth: false}

// Engine holds the wiring shared by sessions. It is immutable after
// construction and safe for concurrent use.
type Engine struct {
	transport   Transport
	logger      *log.Logger
	readSize    int
	placeholder rune
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger routes session events to l.
func WithLogger(l *log.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithReadSize sets the per-read buffer size.
func WithReadSize(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.readSize = n
		}
	}
}

// WithPlaceholder sets the pending glyph. Zero disables it; glyphs that do
// not occupy exactly one cell are ignored.
func WithPlaceholder(r rune) Option {
	return func(e *Engine) {
		if r == 0 || narrow.RuneWidth(r) == 1 {
			e.placeholder = r
		}
	}
}

// NewEngine creates an engine that opens streams through t.
func NewEngine(t Transport, opts ...Option) *Engine {
	e := &Engine{
		transport:   t,
		logger:      log.Default(),
		readSize:    DefaultReadSize,
		placeholder: DefaultPlaceholder,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Request describes one generation.
type Request struct {
	Generate ollama.GenerateRequest

	// Sink receives the deltas. Position is where the user asked for the
	// generation; the placeholder is shown there.
	Sink     Sink
	Position Position

	// Trigger, if set, is registered for the lifetime of the session and
	// trips its signal on any external cancel event.
	Trigger Trigger

	// Signal optionally supplies the session's latch. Nil means a fresh one.
	Signal *Signal
}

// Start runs a session in its own goroutine and returns immediately.
func (e *Engine) Start(ctx context.Context, req Request) *Session {
	s := e.newSession(req)
	go func() {
		s.result = s.run(ctx)
		close(s.done)
	}()
	return s
}

// Run runs a session on the calling goroutine and returns its result.
func (e *Engine) Run(ctx context.Context, req Request) Result {
	s := e.newSession(req)
	s.result = s.run(ctx)
	close(s.done)
	return s.result
}

func (e *Engine) newSession(req Request) *Session {
	sig := req.Signal
	if sig == nil {
		sig = NewSignal()
	}
	return &Session{
		id:     uuid.NewString(),
		engine: e,
		req:    req,
		signal: sig,
		done:   make(chan struct{}),
	}
}

// =============================================================================
// SESSION
// =============================================================================

// Session is one generation request driven end to end. Its frame buffer,
// tail position and signal belong to it alone.
type Session struct {
	id     string
	engine *Engine
	req    Request
	signal *Signal

	frames       FrameBuffer
	body         io.ReadCloser
	pendingShown bool
	tail         Position

	records      int
	decodeErrors int
	context      json.RawMessage
	model        string
	doneReason   string
	stats        Stats

	done   chan struct{}
	result Result
}

// ID returns the session's unique identifier.
func (s *Session) ID() string { return s.id }

// Signal returns the session's cancellation latch.
func (s *Session) Signal() *Signal { return s.signal }

// Cancel trips the session's signal. Idempotent; a no-op once finished.
func (s *Session) Cancel() { s.signal.Trip() }

// Done is closed when the session has terminated.
func (s *Session) Done() <-chan struct{} { return s.done }

// Wait blocks until the session terminates and returns its result.
func (s *Session) Wait() Result {
	<-s.done
	return s.result
}

func (s *Session) run(parent context.Context) Result {
	s.stats = newStats()

	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	if s.req.Trigger != nil {
		unregister := s.req.Trigger.OnCancelEvent(s.signal.Trip)
		defer unregister()
	}

	// Tripping the signal aborts whatever the transport is blocked on.
	go func() {
		select {
		case <-s.signal.Done():
			cancel()
		case <-ctx.Done():
		}
	}()

	s.showPending()

	if s.cancelRequested(parent) {
		return s.cancelled()
	}

	gen := s.req.Generate
	gen.Stream = true
	body, err := s.engine.transport.OpenGenerateStream(ctx, gen)
	if body != nil {
		s.body = body
		defer body.Close()
	}
	if s.cancelRequested(parent) {
		return s.cancelled()
	}
	if err != nil {
		return s.failed(&TransportError{Op: "open", Err: err})
	}

	// Headers are in: the placeholder goes, exactly where it was put.
	s.clearPending()
	s.tail = s.req.Sink.EndOfDocument()

	buf := make([]byte, s.engine.readSize)
	for {
		if s.cancelRequested(parent) {
			return s.cancelled()
		}
		n, readErr := body.Read(buf)
		if s.cancelRequested(parent) {
			return s.cancelled()
		}

		if n > 0 {
			s.frames.Append(buf[:n])
			for _, line := range s.frames.Drain() {
				final, err := s.apply(line)
				if err != nil {
					return s.failed(err)
				}
				if final {
					// Anything left unread on the body is discarded.
					return s.completed()
				}
			}
		}

		if errors.Is(readErr, io.EOF) {
			if line, ok := s.frames.Flush(); ok {
				if _, err := s.apply(line); err != nil {
					return s.failed(err)
				}
			}
			return s.completed()
		}
		if readErr != nil {
			return s.failed(&TransportError{Op: "read", Err: readErr})
		}
	}
}

// apply decodes one line and writes its delta at the tracked tail. It
// reports whether the line was the final record.
func (s *Session) apply(line string) (bool, error) {
	if strings.TrimSpace(line) == "" {
		return false, nil
	}

	rec, err := Decode(line)
	if err != nil {
		s.decodeErrors++
		s.logf("STREAM_DECODE_ERROR | session=%s err=%v", s.id, err)
		return false, nil
	}
	s.records++

	if rec.Delta != "" {
		s.stats.recordDelta(rec.Delta)
		end, err := s.req.Sink.InsertAt(s.tail, rec.Delta)
		if err != nil {
			return false, &SinkError{Op: "insert", Err: err}
		}
		s.tail = end
		s.req.Sink.SetCursor(end)
	}

	if rec.Context != nil {
		s.context = rec.Context
	}
	if rec.Model != "" {
		s.model = rec.Model
	}
	if rec.Final {
		s.doneReason = rec.DoneReason
		s.stats.finalize(rec.Metrics)
		return true, nil
	}
	return false, nil
}

// cancelRequested reports whether the session should stop now. A caller
// cancelling its context counts as a cancel request; a deadline does not.
func (s *Session) cancelRequested(parent context.Context) bool {
	if errors.Is(parent.Err(), context.Canceled) {
		s.signal.Trip()
	}
	return s.signal.IsTripped()
}

func (s *Session) showPending() {
	marker, ok := s.req.Sink.(PendingMarker)
	if !ok || s.engine.placeholder == 0 {
		return
	}
	if err := marker.ShowPending(s.req.Position, s.engine.placeholder); err != nil {
		s.logf("STREAM_PLACEHOLDER_ERROR | session=%s op=show pos=%s err=%v", s.id, s.req.Position, err)
		return
	}
	s.pendingShown = true
}

// clearPending removes the placeholder if it is still shown. A failure here
// is logged only: if the document moved under the glyph there is nothing
// sensible to repair.
func (s *Session) clearPending() {
	if !s.pendingShown {
		return
	}
	s.pendingShown = false
	if err := s.req.Sink.(PendingMarker).ClearPending(s.req.Position); err != nil {
		s.logf("STREAM_PLACEHOLDER_ERROR | session=%s op=clear pos=%s err=%v", s.id, s.req.Position, err)
	}
}

func (s *Session) completed() Result {
	res := s.finish(StatusCompleted, nil)
	s.logf("STREAM_COMPLETE | session=%s records=%d decode_errors=%d stats=%q",
		s.id, res.Records, res.DecodeErrors, res.Stats.Format())
	return res
}

func (s *Session) cancelled() Result {
	if s.body != nil {
		s.body.Close()
	}
	s.clearPending()
	s.req.Sink.SetCursor(s.req.Sink.EndOfDocument())
	res := s.finish(StatusCancelled, nil)
	s.logf("STREAM_CANCELLED | session=%s records=%d", s.id, res.Records)
	return res
}

// failed leaves already-applied deltas in place; only a placeholder that
// never got replaced is removed.
func (s *Session) failed(err error) Result {
	s.clearPending()
	res := s.finish(StatusFailed, err)
	s.logf("STREAM_FAILED | session=%s records=%d err=%v", s.id, res.Records, err)
	return res
}

func (s *Session) finish(status Status, err error) Result {
	s.stats.EndTime = time.Now()
	return Result{
		Status:       status,
		Err:          err,
		Context:      s.context,
		Model:        s.model,
		DoneReason:   s.doneReason,
		Records:      s.records,
		DecodeErrors: s.decodeErrors,
		Stats:        s.stats,
	}
}

func (s *Session) logf(format string, args ...any) {
	s.engine.logger.Printf(format, args...)
}
