package store

import (
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce collapses the burst of events an editor or an atomic
// rename produces into one callback.
const DefaultDebounce = 100 * time.Millisecond

// FileWatcher watches a single file for changes. It watches the parent
// directory so atomic replacements are seen.
type FileWatcher struct {
	watcher  *fsnotify.Watcher
	filePath string
	logger   *slog.Logger
	debounce time.Duration
	onChange func()
	done     chan struct{}
	exited   chan struct{}
	mu       sync.Mutex
	running  bool
}

// NewFileWatcher creates a watcher for filePath.
func NewFileWatcher(filePath string, logger *slog.Logger) (*FileWatcher, error) {
	if logger == nil {
		logger = slog.Default()
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &FileWatcher{
		watcher:  watcher,
		filePath: filePath,
		logger:   logger,
		debounce: DefaultDebounce,
		done:     make(chan struct{}),
		exited:   make(chan struct{}),
	}, nil
}

// SetDebounce sets the quiet period before the callback fires.
func (fw *FileWatcher) SetDebounce(d time.Duration) {
	fw.mu.Lock()
	defer fw.mu.Unlock()
	fw.debounce = d
}

// SetChangeCallback sets the callback invoked on the watcher goroutine after
// the file was written, created or replaced.
func (fw *FileWatcher) SetChangeCallback(fn func()) {
	fw.mu.Lock()
	defer fw.mu.Unlock()
	fw.onChange = fn
}

// Path returns the watched file.
func (fw *FileWatcher) Path() string {
	return fw.filePath
}

// Start begins watching.
func (fw *FileWatcher) Start() error {
	fw.mu.Lock()
	defer fw.mu.Unlock()
	if fw.running {
		return nil
	}

	if err := fw.watcher.Add(filepath.Dir(fw.filePath)); err != nil {
		return err
	}
	fw.running = true

	go fw.watch(fw.debounce)
	fw.logger.Debug("file watcher started", "path", fw.filePath)
	return nil
}

func (fw *FileWatcher) watch(debounce time.Duration) {
	defer close(fw.exited)

	filename := filepath.Base(fw.filePath)
	var timer *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != filename {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(debounce)
			} else {
				timer.Reset(debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			fw.mu.Lock()
			cb := fw.onChange
			fw.mu.Unlock()
			fw.logger.Debug("file changed", "path", fw.filePath)
			if cb != nil {
				cb()
			}

		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			fw.logger.Warn("file watcher error", "path", fw.filePath, "error", err)

		case <-fw.done:
			if timer != nil {
				timer.Stop()
			}
			return
		}
	}
}

// Stop stops the watcher and waits for the goroutine to exit.
func (fw *FileWatcher) Stop() error {
	fw.mu.Lock()
	if !fw.running {
		fw.mu.Unlock()
		return fw.watcher.Close()
	}
	fw.running = false
	close(fw.done)
	fw.mu.Unlock()

	err := fw.watcher.Close()
	<-fw.exited
	return err
}
