package config

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/abyssdigger/corelog"
)

const DEFAULT_DEBOUNCE = 500 * time.Millisecond

// Watcher reloads a configuration file when it changes and applies it.
//
// The parent directory is watched rather than the file itself, so editors
// that save by writing a new file and renaming it over the old one are seen.
// Bursts of events are collapsed: the file is reloaded once the debounce
// interval has passed without a new event.
type Watcher struct {
	mu sync.Mutex

	path     string
	applier  *Applier
	log      *corelog.Module
	debounce time.Duration
	onReload func(error)

	watcher  *fsnotify.Watcher
	timer    *time.Timer
	inflight sync.WaitGroup // scheduled or running reloads
	stopCh   chan struct{}
	doneCh   chan struct{}
	running  bool
}

// NewWatcher creates a watcher for the file at path. Reload outcomes are
// logged through log.
func NewWatcher(path string, a *Applier, log *corelog.Module) *Watcher {
	return &Watcher{
		path:     filepath.Clean(path),
		applier:  a,
		log:      log,
		debounce: DEFAULT_DEBOUNCE,
	}
}

// Sets the debounce interval. Zero or negative restores DEFAULT_DEBOUNCE.
func (w *Watcher) SetDebounce(d time.Duration) *Watcher {
	w.mu.Lock()
	defer w.mu.Unlock()
	if d <= 0 {
		d = DEFAULT_DEBOUNCE
	}
	w.debounce = d
	return w
}

// Registers a callback invoked after every reload attempt with its result.
func (w *Watcher) OnReload(fn func(err error)) *Watcher {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onReload = fn
	return w
}

// Start begins watching. It returns once the watch is in place; events are
// handled in the background until ctx is done or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(filepath.Dir(w.path)); err != nil {
		watcher.Close()
		return err
	}

	w.watcher = watcher
	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})
	w.running = true
	go w.processEvents(ctx, watcher, w.stopCh, w.doneCh)

	w.log.Verbose("Watching %s for configuration changes", w.path)
	return nil
}

// Stop ends watching. It returns once the event loop has exited and a reload
// already running has finished applying; pending reloads are dropped.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if w.running {
		w.running = false
		close(w.stopCh)
	}
	done := w.doneCh
	w.mu.Unlock()
	if done != nil {
		<-done
	}
	w.inflight.Wait()
}

func (w *Watcher) processEvents(ctx context.Context, watcher *fsnotify.Watcher, stopCh, doneCh chan struct{}) {
	defer close(doneCh)
	defer watcher.Close()
	defer w.cancelPending()

	for {
		select {
		case <-ctx.Done():
			w.mu.Lock()
			w.running = false
			w.mu.Unlock()
			return

		case <-stopCh:
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			w.handleFsEvent(ctx, event)

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			w.log.Error("Configuration watcher error: %v", err)
		}
	}
}

func (w *Watcher) handleFsEvent(ctx context.Context, event fsnotify.Event) {
	if filepath.Clean(event.Name) != w.path {
		return
	}
	switch {
	case event.Op&fsnotify.Create == fsnotify.Create:
	case event.Op&fsnotify.Write == fsnotify.Write:
	default:
		// removal or rename away: keep the last applied configuration
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.stopTimerLocked()
	w.inflight.Add(1)
	w.timer = time.AfterFunc(w.debounce, func() {
		defer w.inflight.Done()
		w.reload(ctx)
	})
}

func (w *Watcher) cancelPending() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.stopTimerLocked()
}

// A timer stopped before firing will never call Done itself.
func (w *Watcher) stopTimerLocked() {
	if w.timer != nil && w.timer.Stop() {
		w.inflight.Done()
	}
	w.timer = nil
}

func (w *Watcher) reload(ctx context.Context) {
	err := w.Reload(ctx)

	w.mu.Lock()
	fn := w.onReload
	w.mu.Unlock()
	if fn != nil {
		fn(err)
	}
}

// Reload loads and applies the file once, logging the outcome.
func (w *Watcher) Reload(ctx context.Context) error {
	cfg, err := Load(w.path)
	if err == nil {
		err = w.applier.Apply(ctx, cfg)
	}
	if err != nil {
		w.log.Error("Failed to reload configuration from %s: %v", w.path, err)
		return err
	}
	w.log.Info("Configuration reloaded from %s", w.path)
	return nil
}
