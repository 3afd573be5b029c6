// Package watcher turns files dropped into an inbox directory into upload
// intents. A file named "<user>.epub" is an upload for that user; removing
// it withdraws the book. Writes are debounced so a file still being copied
// is only picked up once it settles.
package watcher

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/mkrz/folio/internal/storage"
)

const defaultDebounce = 400 * time.Millisecond

// Watcher watches a single inbox directory for dropped book files.
type Watcher struct {
	root       string
	extensions []string
	onUpload   func(userID, path string)
	onRemove   func(userID string)
	debounce   time.Duration
	watcher    *fsnotify.Watcher
	logger     *zap.Logger // optional; when set, logs debug events

	mu          sync.Mutex
	debounceMap map[string]*time.Timer
	started     bool
	done        chan struct{}
	stopOnce    sync.Once
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithLogger sets a logger for debug output.
func WithLogger(l *zap.Logger) Option {
	return func(w *Watcher) { w.logger = l }
}

// WithDebounce overrides the settle delay before an upload fires.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) { w.debounce = d }
}

// New creates a watcher for the inbox at root. onUpload is called once per
// settled drop with the user ID and file path; onRemove when a book file
// disappears. extensions filters which files count (empty = .epub only).
func New(root string, extensions []string, onUpload func(userID, path string), onRemove func(userID string), opts ...Option) *Watcher {
	if len(extensions) == 0 {
		extensions = []string{".epub"}
	}
	w := &Watcher{
		root:        root,
		extensions:  extensions,
		onUpload:    onUpload,
		onRemove:    onRemove,
		debounce:    defaultDebounce,
		debounceMap: make(map[string]*time.Timer),
		done:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start begins watching. It creates the inbox directory if missing and runs
// until ctx is cancelled or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.started {
		w.mu.Unlock()
		return nil
	}
	if err := os.MkdirAll(w.root, 0755); err != nil {
		w.mu.Unlock()
		return err
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		w.mu.Unlock()
		return err
	}
	if err := fsw.Add(w.root); err != nil {
		_ = fsw.Close()
		w.mu.Unlock()
		return err
	}
	w.watcher = fsw
	w.started = true
	w.mu.Unlock()

	if w.logger != nil {
		w.logger.Debug("inbox watcher starting", zap.String("root", w.root))
	}
	go w.run(ctx)
	return nil
}

// SyncExisting fires an upload for every matching file already in the inbox,
// so books dropped while the service was down are picked up.
func (w *Watcher) SyncExisting() {
	entries, err := os.ReadDir(w.root)
	if err != nil {
		if w.logger != nil {
			w.logger.Debug("inbox sync failed", zap.Error(err))
		}
		return
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		path := filepath.Join(w.root, e.Name())
		if user, ok := w.matchUser(path); ok && w.onUpload != nil {
			w.onUpload(user, path)
		}
	}
}

// Stop stops the watcher. Safe to call more than once.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.done)
		w.mu.Lock()
		if w.watcher != nil {
			_ = w.watcher.Close()
		}
		for path, t := range w.debounceMap {
			t.Stop()
			delete(w.debounceMap, path)
		}
		w.mu.Unlock()
	})
}

func (w *Watcher) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			w.Stop()
			return
		case <-w.done:
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(ev)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			if err != nil && w.logger != nil {
				w.logger.Debug("inbox watcher error", zap.Error(err))
			}
		}
	}
}

func (w *Watcher) handleEvent(ev fsnotify.Event) {
	user, ok := w.matchUser(ev.Name)
	if !ok {
		return
	}
	if w.logger != nil {
		w.logger.Debug("inbox event", zap.String("op", ev.Op.String()), zap.String("path", ev.Name))
	}
	switch {
	case ev.Op.Has(fsnotify.Create) || ev.Op.Has(fsnotify.Write):
		w.debounceUpload(user, ev.Name)
	case ev.Op.Has(fsnotify.Remove) || ev.Op.Has(fsnotify.Rename):
		w.cancelDebounce(ev.Name)
		if w.onRemove != nil {
			w.onRemove(user)
		}
	}
}

// matchUser maps a path to its user ID when the extension is recognized.
func (w *Watcher) matchUser(path string) (string, bool) {
	ext := strings.ToLower(filepath.Ext(path))
	matched := false
	for _, e := range w.extensions {
		if strings.ToLower(e) == ext {
			matched = true
			break
		}
	}
	if !matched {
		return "", false
	}
	return storage.UserFromFilename(path, ext)
}

func (w *Watcher) debounceUpload(user, path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.debounceMap[path]; ok {
		t.Stop()
	}
	w.debounceMap[path] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.debounceMap, path)
		w.mu.Unlock()
		if w.logger != nil {
			w.logger.Debug("inbox upload (debounced)", zap.String("user", user), zap.String("path", path))
		}
		if w.onUpload != nil {
			w.onUpload(user, path)
		}
	})
}

func (w *Watcher) cancelDebounce(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.debounceMap[path]; ok {
		t.Stop()
		delete(w.debounceMap, path)
	}
}
