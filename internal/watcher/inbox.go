// Package watcher provides inbox directories: files dropped into a watched
// directory are read and ingested as documents.
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

	"github.com/hyperjump/latentfs/internal/extract"
)

const defaultDebounce = 400 * time.Millisecond

// Ingestor receives the text content of dropped files.
type Ingestor interface {
	Ingest(ctx context.Context, texts []string) ([]string, error)
}

// Inbox watches directories (non-recursively) and ingests files matching the
// configured extensions. File content goes through text extraction, so PDF,
// DOCX, and XLSX drops work alongside plain text. Write bursts for the same
// file are debounced; a file is only re-ingested when its modification time
// changes.
type Inbox struct {
	roots      []string
	extensions []string
	ingestor   Ingestor
	extractor  *extract.Extractor
	debounce   time.Duration
	logger     *zap.Logger

	watcher     *fsnotify.Watcher
	mu          sync.Mutex
	debounceMap map[string]*time.Timer
	processed   map[string]time.Time
	done        chan struct{}
	started     bool
	stopOnce    sync.Once
}

// Option configures an Inbox.
type Option func(*Inbox)

// WithDebounce overrides the write-burst debounce interval.
func WithDebounce(d time.Duration) Option {
	return func(w *Inbox) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithLogger sets the inbox logger.
func WithLogger(l *zap.Logger) Option {
	return func(w *Inbox) { w.logger = l }
}

// NewInbox creates an inbox over the given directories. extensions filter
// which files are ingested (empty = all).
func NewInbox(roots []string, extensions []string, ingestor Ingestor, opts ...Option) *Inbox {
	w := &Inbox{
		roots:       roots,
		extensions:  extensions,
		ingestor:    ingestor,
		extractor:   extract.NewExtractor(),
		debounce:    defaultDebounce,
		logger:      zap.NewNop(),
		debounceMap: make(map[string]*time.Timer),
		processed:   make(map[string]time.Time),
		done:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start begins watching. Missing roots are created. Files already present in
// the roots are ingested once at startup. Runs until ctx is cancelled or Stop
// is called.
func (w *Inbox) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.started {
		w.mu.Unlock()
		return nil
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		w.mu.Unlock()
		return err
	}
	for _, root := range w.roots {
		if err := os.MkdirAll(root, 0755); err != nil {
			_ = watcher.Close()
			w.mu.Unlock()
			return err
		}
		if err := watcher.Add(root); err != nil {
			_ = watcher.Close()
			w.mu.Unlock()
			return err
		}
	}
	w.watcher = watcher
	w.started = true
	w.mu.Unlock()

	w.logger.Info("inbox watching",
		zap.Strings("directories", w.roots),
		zap.Strings("extensions", w.extensions))

	for _, root := range w.roots {
		w.syncExisting(ctx, root)
	}
	go w.run(ctx)
	return nil
}

func (w *Inbox) run(ctx context.Context) {
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
			w.handleEvent(ctx, ev)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			if err != nil {
				w.logger.Warn("inbox watch error", zap.Error(err))
			}
		}
	}
}

func (w *Inbox) handleEvent(ctx context.Context, ev fsnotify.Event) {
	switch ev.Op {
	case fsnotify.Create, fsnotify.Write:
		if w.matchExtension(ev.Name) {
			w.scheduleIngest(ctx, ev.Name)
		}
	case fsnotify.Remove, fsnotify.Rename:
		w.cancelPending(ev.Name)
	}
}

// syncExisting ingests files already sitting in the root when watching starts.
func (w *Inbox) syncExisting(ctx context.Context, root string) {
	entries, err := os.ReadDir(root)
	if err != nil {
		w.logger.Warn("inbox sync failed", zap.String("root", root), zap.Error(err))
		return
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		path := filepath.Join(root, e.Name())
		if w.matchExtension(path) {
			w.ingestFile(ctx, path)
		}
	}
}

func (w *Inbox) matchExtension(path string) bool {
	if len(w.extensions) == 0 {
		return true
	}
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range w.extensions {
		if strings.ToLower(e) == ext {
			return true
		}
	}
	return false
}

func (w *Inbox) scheduleIngest(ctx context.Context, path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.debounceMap[path]; ok {
		t.Stop()
	}
	w.debounceMap[path] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.debounceMap, path)
		w.mu.Unlock()
		w.ingestFile(ctx, path)
	})
}

func (w *Inbox) cancelPending(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.debounceMap[path]; ok {
		t.Stop()
		delete(w.debounceMap, path)
	}
}

func (w *Inbox) ingestFile(ctx context.Context, path string) {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return
	}
	w.mu.Lock()
	if prev, ok := w.processed[path]; ok && !info.ModTime().After(prev) {
		w.mu.Unlock()
		return
	}
	w.mu.Unlock()

	raw, err := w.extractor.Extract(path)
	if err != nil {
		w.logger.Warn("inbox extraction failed", zap.String("path", path), zap.Error(err))
		return
	}
	text := strings.TrimSpace(raw)
	if text == "" {
		return
	}

	ids, err := w.ingestor.Ingest(ctx, []string{text})
	if err != nil {
		w.logger.Error("inbox ingest failed", zap.String("path", path), zap.Error(err))
		return
	}
	w.mu.Lock()
	w.processed[path] = info.ModTime()
	w.mu.Unlock()
	w.logger.Info("inbox ingested file",
		zap.String("path", path),
		zap.Strings("document_ids", ids))
}

// Directories returns the watched root directories.
func (w *Inbox) Directories() []string {
	return append([]string(nil), w.roots...)
}

// Stop stops watching and releases resources.
func (w *Inbox) Stop() {
	w.mu.Lock()
	if !w.started || w.watcher == nil {
		w.mu.Unlock()
		return
	}
	for path, t := range w.debounceMap {
		t.Stop()
		delete(w.debounceMap, path)
	}
	_ = w.watcher.Close()
	w.watcher = nil
	w.started = false
	w.mu.Unlock()
	w.stopOnce.Do(func() { close(w.done) })
}
