package daemon

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/jmylchreest/fsclock/internal/config"
	"github.com/jmylchreest/fsclock/internal/store"
)

// ConfigWatcher reloads fsclockd.toml when it changes on disk. Invalid
// files are reported and the previous configuration stays in effect.
type ConfigWatcher struct {
	mu     sync.RWMutex
	logger *slog.Logger
	path   string
	file   *store.FileWatcher

	currentConfig *config.DaemonConfig

	onReload func(newConfig *config.DaemonConfig)
	onError  func(err error)
}

// NewConfigWatcher creates a ConfigWatcher for path.
func NewConfigWatcher(path string, logger *slog.Logger) (*ConfigWatcher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	fw, err := store.NewFileWatcher(path, logger)
	if err != nil {
		return nil, err
	}

	w := &ConfigWatcher{logger: logger, path: path, file: fw}
	fw.SetChangeCallback(w.reload)
	return w, nil
}

// SetReloadCallback sets the callback for successfully reloaded configs.
// It runs on the watcher goroutine.
func (w *ConfigWatcher) SetReloadCallback(callback func(newConfig *config.DaemonConfig)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onReload = callback
}

// SetErrorCallback sets the callback for configs that fail to load.
func (w *ConfigWatcher) SetErrorCallback(callback func(err error)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onError = callback
}

// Start begins watching with initialConfig as the current configuration.
func (w *ConfigWatcher) Start(initialConfig *config.DaemonConfig) error {
	w.mu.Lock()
	w.currentConfig = initialConfig
	w.mu.Unlock()

	if err := w.file.Start(); err != nil {
		return err
	}
	w.logger.Debug("config watcher started", "path", w.path)
	return nil
}

// Stop stops watching.
func (w *ConfigWatcher) Stop() {
	if err := w.file.Stop(); err != nil {
		w.logger.Debug("config watcher close failed", "error", err)
	}
}

// CurrentConfig returns the last valid configuration.
func (w *ConfigWatcher) CurrentConfig() *config.DaemonConfig {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.currentConfig
}

func (w *ConfigWatcher) reload() {
	w.mu.RLock()
	onReload := w.onReload
	onError := w.onError
	w.mu.RUnlock()

	newConfig, err := config.LoadDaemonConfigFrom(w.path)
	if err != nil {
		w.logger.Warn("config file changed but validation failed", "path", w.path, "error", err)
		if onError != nil {
			onError(err)
		}
		return
	}

	w.mu.Lock()
	w.currentConfig = newConfig
	w.mu.Unlock()

	w.logger.Info("config reloaded successfully", "path", w.path)
	if onReload != nil {
		onReload(newConfig)
	}
}

// StateWatcher reports settings written to state.json by other processes.
type StateWatcher struct {
	logger   *slog.Logger
	settings *store.SettingsFile
	file     *store.FileWatcher

	mu       sync.RWMutex
	onChange func(s *store.Settings)
}

// NewStateWatcher creates a StateWatcher for settings.
func NewStateWatcher(settings *store.SettingsFile, logger *slog.Logger) (*StateWatcher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	fw, err := store.NewFileWatcher(settings.Path(), logger)
	if err != nil {
		return nil, err
	}

	w := &StateWatcher{logger: logger, settings: settings, file: fw}
	fw.SetChangeCallback(w.reload)
	return w, nil
}

// SetChangeCallback sets the callback receiving the reloaded settings.
// It runs on the watcher goroutine.
func (w *StateWatcher) SetChangeCallback(callback func(s *store.Settings)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onChange = callback
}

// Start begins watching.
func (w *StateWatcher) Start() error {
	return w.file.Start()
}

// Stop stops watching.
func (w *StateWatcher) Stop() {
	if err := w.file.Stop(); err != nil {
		w.logger.Debug("state watcher close failed", "error", err)
	}
}

func (w *StateWatcher) reload() {
	s, err := w.settings.Load()
	if err != nil {
		if !errors.Is(err, store.ErrNoSettings) {
			w.logger.Warn("failed to reload settings", "error", err)
		}
		return
	}

	w.mu.RLock()
	cb := w.onChange
	w.mu.RUnlock()
	if cb != nil {
		cb(s)
	}
}
