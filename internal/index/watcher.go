// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package index

import (
	"context"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long the tree must stay quiet before queued
// changes are sent.
const DefaultDebounce = 500 * time.Millisecond

// Syncer sends one indexing request. *Client satisfies Syncer.
type Syncer interface {
	Sync(ctx context.Context, method, path string) (string, error)
}

// Event reports the outcome of one request sent by a Watcher.
type Event struct {
	Method   string
	Path     string
	Response string
	Err      error
}

// =============================================================================
// WATCHER
// =============================================================================

// Watcher sends PATCH for created or modified paths and DELETE for removed
// or renamed-away paths under a directory. Events are coalesced per path
// and flushed once the tree has been quiet for the debounce interval;
// within a flush every PATCH goes before any DELETE.
//
// Entries whose name starts with "." (.git, .obsidian, editor swap files)
// are ignored.
type Watcher struct {
	root     string
	syncer   Syncer
	debounce time.Duration
	onSync   func(Event)
	logger   *log.Logger

	watcher *fsnotify.Watcher
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	mu      sync.Mutex
	pending map[string]string // path -> method
	last    time.Time
}

// NewWatcher creates a watcher for the directory root. Call Start to begin.
func NewWatcher(root string, s Syncer, debounce time.Duration) (*Watcher, error) {
	if s == nil {
		return nil, fmt.Errorf("index watcher: nil syncer")
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("index watcher: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("index watcher: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("index watcher: %s is not a directory", abs)
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("index watcher: %w", err)
	}
	return &Watcher{
		root:     abs,
		syncer:   s,
		debounce: debounce,
		onSync:   func(Event) {},
		logger:   log.Default(),
		watcher:  fw,
		pending:  make(map[string]string),
	}, nil
}

// SetLogger routes watcher events to l.
func (w *Watcher) SetLogger(l *log.Logger) {
	if l != nil {
		w.logger = l
	}
}

// OnSync registers fn to be called after every request. Set it before Start.
func (w *Watcher) OnSync(fn func(Event)) {
	if fn != nil {
		w.onSync = fn
	}
}

// Root returns the absolute path of the watched directory.
func (w *Watcher) Root() string { return w.root }

// Start watches root and every directory below it. It stops when ctx is
// done or Stop is called. Changes still queued at that point are dropped.
func (w *Watcher) Start(ctx context.Context) error {
	if err := w.addRecursive(w.root); err != nil {
		return fmt.Errorf("index watcher: %w", err)
	}

	w.ctx, w.cancel = context.WithCancel(ctx)
	w.wg.Add(2)
	go w.processEvents()
	go w.processPending()

	w.logger.Printf("INDEX_WATCH | root=%s debounce=%s", w.root, w.debounce)
	return nil
}

// Stop stops watching and waits for the background goroutines to exit.
func (w *Watcher) Stop() error {
	if w.cancel != nil {
		w.cancel()
	}
	err := w.watcher.Close()
	w.wg.Wait()
	return err
}

// addRecursive watches dir and its subdirectories, skipping ignored ones.
func (w *Watcher) addRecursive(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return err
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && ignored(path) {
			return filepath.SkipDir
		}
		if err := w.watcher.Add(path); err != nil {
			w.logger.Printf("INDEX_WATCH_ERROR | path=%s err=%v", path, err)
		}
		return nil
	})
}

func (w *Watcher) processEvents() {
	defer w.wg.Done()

	for {
		select {
		case <-w.ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handle(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Printf("INDEX_WATCH_ERROR | root=%s err=%v", w.root, err)
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event) {
	path := filepath.Clean(event.Name)
	if ignored(path) {
		return
	}

	var method string
	switch {
	case event.Has(fsnotify.Create):
		method = MethodUpdate
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			if err := w.addRecursive(path); err != nil {
				w.logger.Printf("INDEX_WATCH_ERROR | path=%s err=%v", path, err)
			}
		}
	case event.Has(fsnotify.Write):
		method = MethodUpdate
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		method = MethodRemove
	default:
		return
	}

	w.mu.Lock()
	w.pending[path] = method
	w.last = time.Now()
	w.mu.Unlock()
}

func (w *Watcher) processPending() {
	defer w.wg.Done()

	tick := w.debounce / 3
	if tick < 10*time.Millisecond {
		tick = 10 * time.Millisecond
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			return
		case <-ticker.C:
			if batch := w.takeReady(); len(batch) > 0 {
				w.flush(batch)
			}
		}
	}
}

type change struct {
	method string
	path   string
}

// takeReady empties the queue once the tree has been quiet long enough.
// Updates sort before removals, each group by path.
func (w *Watcher) takeReady() []change {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.pending) == 0 || time.Since(w.last) < w.debounce {
		return nil
	}

	batch := make([]change, 0, len(w.pending))
	for path, method := range w.pending {
		batch = append(batch, change{method: method, path: path})
	}
	w.pending = make(map[string]string)

	sort.Slice(batch, func(i, j int) bool {
		if batch[i].method != batch[j].method {
			return batch[i].method == MethodUpdate
		}
		return batch[i].path < batch[j].path
	})
	return batch
}

func (w *Watcher) flush(batch []change) {
	for _, c := range batch {
		if w.ctx.Err() != nil {
			return
		}
		resp, err := w.syncer.Sync(w.ctx, c.method, c.path)
		if err != nil {
			w.logger.Printf("INDEX_SYNC_ERROR | method=%s path=%s err=%v", c.method, c.path, err)
		} else {
			w.logger.Printf("INDEX_SYNC | method=%s path=%s", c.method, c.path)
		}
		w.onSync(Event{Method: c.method, Path: c.path, Response: resp, Err: err})
	}
}

// ignored reports whether path names a hidden entry.
func ignored(path string) bool {
	return strings.HasPrefix(filepath.Base(path), ".")
}
