package index

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"dormguide/internal/loader"
	"dormguide/internal/log"
)

// StaleMarker is notified when the corpus changes.
type StaleMarker interface {
	MarkStale()
}

// Watcher marks the index stale when an eligible corpus file changes.
type Watcher struct {
	dir      string
	exts     []string
	debounce time.Duration
	target   StaleMarker
	watcher  *fsnotify.Watcher
	logger   *slog.Logger

	timerMu sync.Mutex
	timer   *time.Timer

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewWatcher creates a watcher over dir. It does nothing until Start.
func NewWatcher(dir string, exts []string, debounce time.Duration, target StaleMarker) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}
	if debounce <= 0 {
		debounce = 500 * time.Millisecond
	}
	return &Watcher{
		dir:      dir,
		exts:     exts,
		debounce: debounce,
		target:   target,
		watcher:  fw,
		logger:   log.NewModuleLogger("index", "watcher"),
		stopCh:   make(chan struct{}),
	}, nil
}

// Start begins watching the documents directory.
func (w *Watcher) Start() error {
	if err := w.watcher.Add(w.dir); err != nil {
		return fmt.Errorf("watch %s: %w", w.dir, err)
	}
	w.logger.Info("Watching corpus directory", "dir", w.dir)
	w.wg.Add(1)
	go w.loop()
	return nil
}

// Stop ends watching and cancels a pending notification.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
		_ = w.watcher.Close()
		w.wg.Wait()
		w.timerMu.Lock()
		if w.timer != nil {
			w.timer.Stop()
		}
		w.timerMu.Unlock()
	})
}

func (w *Watcher) loop() {
	defer w.wg.Done()
	for {
		select {
		case <-w.stopCh:
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if w.relevant(ev) {
				w.schedule()
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("Watcher error", "error", err)
		}
	}
}

func (w *Watcher) relevant(ev fsnotify.Event) bool {
	if !loader.HasExtension(ev.Name, w.exts) {
		return false
	}
	return ev.Has(fsnotify.Create) || ev.Has(fsnotify.Write) ||
		ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename)
}

// schedule coalesces bursts of events into one MarkStale call.
func (w *Watcher) schedule() {
	w.timerMu.Lock()
	defer w.timerMu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() {
		select {
		case <-w.stopCh:
			return
		default:
		}
		w.logger.Info("Corpus changed, index marked stale", "dir", w.dir)
		w.target.MarkStale()
	})
}
