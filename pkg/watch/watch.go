// Package watch re-runs a callback whenever a story file changes on disk.
//
// Editors rarely write a file in place: many save to a temporary file and
// rename it over the original. The watcher therefore observes the parent
// directory and filters events by file name, so both styles of saving are
// picked up. Bursts of events (write, chmod, rename within a few
// milliseconds) are collapsed into a single callback by a debounce window.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the quiet period after the last event before the
// handler runs.
const DefaultDebounce = 150 * time.Millisecond

// Handler is called with the watched path after each debounced change.
// It runs on the watcher's goroutine; a slow handler delays later events.
type Handler func(ctx context.Context, path string)

// Option configures a [Watcher].
type Option func(*Watcher)

// WithDebounce overrides [DefaultDebounce]. Non-positive values are ignored.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithLogger sets the logger used for watch events and errors.
func WithLogger(l *log.Logger) Option {
	return func(w *Watcher) {
		if l != nil {
			w.logger = l
		}
	}
}

// Watcher watches a single file.
type Watcher struct {
	path     string
	handler  Handler
	debounce time.Duration
	logger   *log.Logger
	fsw      *fsnotify.Watcher
}

// New creates a watcher for path. Call [Watcher.Run] to start it.
func New(path string, handler Handler, opts ...Option) (*Watcher, error) {
	if handler == nil {
		return nil, errors.New("watch: nil handler")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", path, err)
	}

	w := &Watcher{
		path:     abs,
		handler:  handler,
		debounce: DefaultDebounce,
		logger:   log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(w)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := fsw.Add(filepath.Dir(abs)); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}
	w.fsw = fsw
	return w, nil
}

// Path returns the absolute path being watched.
func (w *Watcher) Path() string { return w.path }

// Run processes events until ctx is cancelled or the watcher is closed.
// It always closes the underlying fsnotify watcher before returning.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fsw.Close()

	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	w.logger.Debug("watching story", "path", w.path, "debounce", w.debounce)
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if !w.relevant(ev) {
				continue
			}
			w.logger.Debug("story changed", "path", ev.Name, "op", ev.Op.String())
			timer.Reset(w.debounce)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", "path", w.path, "err", err)
		case <-timer.C:
			w.handler(ctx, w.path)
		}
	}
}

// Close stops a running watcher.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}

func (w *Watcher) relevant(ev fsnotify.Event) bool {
	if filepath.Clean(ev.Name) != w.path {
		return false
	}
	return ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create)
}
