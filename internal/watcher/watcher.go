// Package watcher keeps the vector store in step with watched document directories.
package watcher

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/ayush1014/CiteTalk-voice-Backend/internal/indexer"
	"github.com/ayush1014/CiteTalk-voice-Backend/pkg/utils"
)

const defaultDebounce = 400 * time.Millisecond

// FileIndexer is the part of the indexer the watcher drives.
type FileIndexer interface {
	ReplaceFile(ctx context.Context, path string, metadata map[string]interface{}) ([]string, error)
	RemoveFile(ctx context.Context, path string) (int, error)
}

// Watcher re-ingests files when they change and drops their chunks when they disappear.
type Watcher struct {
	idx        FileIndexer
	roots      []string
	extensions []string
	recursive  bool
	debounce   time.Duration
	logger     *zap.Logger

	mu      sync.Mutex
	fsw     *fsnotify.Watcher
	pending map[string]*time.Timer
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(w *Watcher) { w.logger = l }
}

// WithDebounce sets how long a file must be quiet before it is re-ingested.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// New creates a watcher over roots. An empty extensions list accepts every file.
func New(idx FileIndexer, roots, extensions []string, recursive bool, opts ...Option) *Watcher {
	w := &Watcher{
		idx:        idx,
		extensions: extensions,
		recursive:  recursive,
		debounce:   defaultDebounce,
		pending:    make(map[string]*time.Timer),
	}
	for _, r := range roots {
		if abs, err := filepath.Abs(r); err == nil {
			w.roots = append(w.roots, filepath.Clean(abs))
		}
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = utils.OrNop(w.logger)
	return w
}

// Roots returns the watched root directories.
func (w *Watcher) Roots() []string {
	return append([]string(nil), w.roots...)
}

// Start registers the roots with fsnotify and processes events until ctx is done or Stop
// is called. Missing roots are created.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.fsw != nil {
		return nil
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	for _, root := range w.roots {
		if err := os.MkdirAll(root, 0o755); err != nil {
			_ = fsw.Close()
			return err
		}
		if err := w.watchTree(fsw, root); err != nil {
			_ = fsw.Close()
			return err
		}
	}
	w.fsw = fsw
	w.ctx, w.cancel = context.WithCancel(ctx)
	w.logger.Info("Watching directories",
		zap.Strings("roots", w.roots), zap.Strings("extensions", w.extensions), zap.Bool("recursive", w.recursive))

	w.wg.Add(1)
	go w.loop(w.ctx, fsw)
	return nil
}

func (w *Watcher) watchTree(fsw *fsnotify.Watcher, dir string) error {
	if !w.recursive {
		return fsw.Add(dir)
	}
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return fsw.Add(path)
		}
		return nil
	})
}

func (w *Watcher) loop(ctx context.Context, fsw *fsnotify.Watcher) {
	defer w.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-fsw.Events:
			if !ok {
				return
			}
			w.handle(ctx, fsw, ev)
		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("Watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) handle(ctx context.Context, fsw *fsnotify.Watcher, ev fsnotify.Event) {
	path := filepath.Clean(ev.Name)
	w.logger.Debug("Watcher event", zap.String("op", ev.Op.String()), zap.String("path", path))

	switch {
	case ev.Has(fsnotify.Create) || ev.Has(fsnotify.Write):
		info, err := os.Stat(path)
		if err != nil {
			return
		}
		if info.IsDir() {
			if ev.Has(fsnotify.Create) && w.recursive {
				if err := w.watchTree(fsw, path); err != nil {
					w.logger.Warn("Failed to watch new directory", zap.String("path", path), zap.Error(err))
				}
				w.syncDir(ctx, path)
			}
			return
		}
		if w.accepts(path) {
			w.schedule(ctx, path)
		}
	case ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename):
		w.cancelPending(path)
		w.remove(ctx, path)
	}
}

func (w *Watcher) accepts(path string) bool {
	if strings.HasPrefix(filepath.Base(path), ".") {
		return false
	}
	return indexer.ExtensionAllowed(filepath.Ext(path), w.extensions)
}

func (w *Watcher) schedule(ctx context.Context, path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.pending[path]; ok && t.Stop() {
		w.wg.Done()
	}
	var timer *time.Timer
	w.wg.Add(1)
	timer = time.AfterFunc(w.debounce, func() {
		defer w.wg.Done()
		w.mu.Lock()
		if w.pending[path] == timer {
			delete(w.pending, path)
		}
		w.mu.Unlock()
		w.ingest(ctx, path)
	})
	w.pending[path] = timer
}

func (w *Watcher) cancelPending(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.pending[path]; ok {
		if t.Stop() {
			w.wg.Done()
		}
		delete(w.pending, path)
	}
}

func (w *Watcher) ingest(ctx context.Context, path string) {
	if ctx.Err() != nil {
		return
	}
	ids, err := w.idx.ReplaceFile(ctx, path, nil)
	if err != nil {
		w.logger.Warn("Failed to ingest changed file", zap.String("path", path), zap.Error(err))
		return
	}
	w.logger.Info("Re-ingested file", zap.String("path", path), zap.Int("chunks", len(ids)))
}

// remove drops chunks for path. A removed directory shows up as a single event, so
// everything previously stored under it cannot be enumerated here; only the path itself
// is cleared.
func (w *Watcher) remove(ctx context.Context, path string) {
	if !w.accepts(path) {
		return
	}
	n, err := w.idx.RemoveFile(ctx, path)
	if err != nil {
		w.logger.Warn("Failed to remove file chunks", zap.String("path", path), zap.Error(err))
		return
	}
	if n > 0 {
		w.logger.Info("Removed file from index", zap.String("path", path), zap.Int("chunks", n))
	}
}

func (w *Watcher) syncDir(ctx context.Context, dir string) {
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if path != dir && !w.recursive {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Type().IsRegular() && w.accepts(path) {
			w.ingest(ctx, path)
		}
		return nil
	})
}

// Sync ingests every matching file already present under the roots.
func (w *Watcher) Sync(ctx context.Context) {
	for _, root := range w.roots {
		w.syncDir(ctx, root)
	}
}

// SyncInBackground runs Sync on a goroutine bound to the running watcher. Stop cancels it
// and waits for the file being ingested to finish. It reports false if the watcher is not
// running.
func (w *Watcher) SyncInBackground() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.fsw == nil {
		return false
	}
	ctx := w.ctx
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.Sync(ctx)
		w.logger.Debug("Initial sync finished", zap.Strings("roots", w.roots))
	}()
	return true
}

// Stop cancels pending re-ingests and waits for the event loop, any re-ingest already
// running and a background sync to exit.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if w.fsw == nil {
		w.mu.Unlock()
		return
	}
	for path, t := range w.pending {
		if t.Stop() {
			w.wg.Done()
		}
		delete(w.pending, path)
	}
	w.cancel()
	fsw := w.fsw
	w.fsw = nil
	w.mu.Unlock()

	_ = fsw.Close()
	w.wg.Wait()
}
