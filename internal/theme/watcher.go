package theme

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// DefaultPollInterval is how often a watched theme is checked.
const DefaultPollInterval = time.Second

// Watcher polls a user theme, including the partials it imports, and reports
// the resolved CSS when anything changes.
type Watcher struct {
	mu     sync.RWMutex
	logger *slog.Logger

	theme        *Theme
	pollInterval time.Duration

	onChange func(css string)
	onError  func(err error)

	// Last reload error, reported once until it changes
	lastErr string

	stopCh chan struct{}
	doneCh chan struct{}

	running bool
}

// NewWatcher creates a new theme watcher.
func NewWatcher(theme *Theme, logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}

	return &Watcher{
		logger:       logger,
		theme:        theme,
		pollInterval: DefaultPollInterval,
	}
}

// SetPollInterval sets the polling interval. Takes effect on the next Start.
func (w *Watcher) SetPollInterval(interval time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if interval > 0 {
		w.pollInterval = interval
	}
}

// SetChangeCallback sets the callback receiving the new CSS. It runs on the
// watcher goroutine.
func (w *Watcher) SetChangeCallback(callback func(css string)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onChange = callback
}

// SetErrorCallback sets the callback invoked when a reload fails.
func (w *Watcher) SetErrorCallback(callback func(err error)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onError = callback
}

// Start begins polling. Bundled themes are not watched.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	if w.theme == nil || w.theme.IsBundled {
		w.mu.Unlock()
		w.logger.Debug("not watching bundled theme")
		return nil
	}

	w.running = true
	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})
	interval := w.pollInterval
	path := w.theme.Path
	w.mu.Unlock()

	go w.watchLoop(ctx, interval)

	w.logger.Debug("theme watcher started", "path", path, "interval", interval)
	return nil
}

// Stop stops polling and waits for the loop to exit.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	close(w.stopCh)
	done := w.doneCh
	w.mu.Unlock()

	<-done
	w.logger.Debug("theme watcher stopped")
}

// IsRunning returns whether the watcher is polling.
func (w *Watcher) IsRunning() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.running
}

func (w *Watcher) watchLoop(ctx context.Context, interval time.Duration) {
	defer close(w.doneCh)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.check()
		}
	}
}

// check reloads the theme once and fires the callbacks.
func (w *Watcher) check() {
	w.mu.Lock()
	theme := w.theme
	onChange := w.onChange
	onError := w.onError

	changed, err := theme.Reload()
	css := theme.CSS

	report := false
	if err != nil {
		report = err.Error() != w.lastErr
		w.lastErr = err.Error()
	} else {
		w.lastErr = ""
	}
	w.mu.Unlock()

	if err != nil {
		if report {
			w.logger.Warn("failed to reload theme", "theme", theme.Name, "error", err)
			if onError != nil {
				onError(err)
			}
		}
		return
	}

	if changed {
		w.logger.Info("theme changed on disk", "theme", theme.Name, "imports", len(theme.Imports))
		if onChange != nil {
			onChange(css)
		}
	}
}
