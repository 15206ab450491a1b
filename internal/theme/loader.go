package theme

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	coreglib "github.com/diamondburned/gotk4/pkg/core/glib"
	"github.com/diamondburned/gotk4/pkg/gdk/v4"
	"github.com/diamondburned/gotk4/pkg/gtk/v4"
)

// Loader owns the display-wide CSS provider for overlay windows. The
// provider holds the theme CSS followed by the background rule.
type Loader struct {
	mu        sync.RWMutex
	logger    *slog.Logger
	provider  *gtk.CSSProvider
	themesDir string
	display   *gdk.Display

	theme      *Theme
	css        string // Resolved theme CSS, owned by the UI thread
	background float64

	watcher *Watcher
	onError func(err error)
}

// NewLoader creates a new theme loader.
func NewLoader(logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}

	themesDir, err := ThemesDir()
	if err != nil {
		logger.Warn("failed to get themes directory", "error", err)
		themesDir = ""
	}

	return &Loader{
		logger:    logger,
		provider:  gtk.NewCSSProvider(),
		themesDir: themesDir,
	}
}

// SetThemesDir overrides the user themes directory.
func (l *Loader) SetThemesDir(dir string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.themesDir = dir
}

// SetErrorCallback sets the callback for theme load and reload failures.
func (l *Loader) SetErrorCallback(fn func(err error)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.onError = fn
}

// LoadTheme loads a theme by name. User themes in the themes directory
// shadow bundled themes of the same name; unknown names fall back to the
// default theme.
func (l *Loader) LoadTheme(name string) error {
	if name == "" {
		name = DefaultThemeName
	}

	l.mu.Lock()
	themesDir := l.themesDir
	onError := l.onError
	l.mu.Unlock()

	var theme *Theme
	if themesDir != "" {
		path := filepath.Join(themesDir, name+".css")
		if _, err := os.Stat(path); err == nil {
			t, err := NewTheme(name, path)
			if err != nil {
				l.logger.Warn("failed to load user theme, trying bundled", "theme", name, "error", err)
				if onError != nil {
					onError(err)
				}
			} else {
				theme = t
				l.logger.Info("loaded user theme", "name", name, "path", path)
			}
		}
	}

	if theme == nil {
		if t, found := NewBundledTheme(name); found {
			theme = t
			l.logger.Info("loaded bundled theme", "name", name)
		} else {
			l.logger.Warn("theme not found, using default", "theme", name)
			theme = NewDefaultTheme()
		}
	}

	l.mu.Lock()
	l.theme = theme
	l.css = theme.CSS
	l.reloadLocked()
	l.mu.Unlock()
	return nil
}

// SetBackgroundAlpha changes the opacity of the tint behind the clock on
// every overlay window.
func (l *Loader) SetBackgroundAlpha(alpha float64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.background == alpha && l.css != "" {
		return
	}
	l.background = alpha
	l.reloadLocked()
}

// BackgroundAlpha returns the last alpha passed to SetBackgroundAlpha.
func (l *Loader) BackgroundAlpha() float64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.background
}

func (l *Loader) reloadLocked() {
	css := l.css
	if css == "" {
		css = NewDefaultTheme().CSS
	}
	l.provider.LoadFromString(css + "\n" + BackgroundRule(l.background))
}

// Theme returns the currently loaded theme.
func (l *Loader) Theme() *Theme {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.theme
}

// CurrentTheme returns the name of the currently loaded theme.
func (l *Loader) CurrentTheme() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.theme == nil {
		return ""
	}
	return l.theme.Name
}

// Apply installs the provider on display, or the default display if nil.
func (l *Loader) Apply(display *gdk.Display) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if display == nil {
		display = gdk.DisplayGetDefault()
	}
	if display == nil {
		l.logger.Warn("no display available, cannot apply theme")
		return
	}

	l.display = display
	gtk.StyleContextAddProviderForDisplay(display, l.provider, gtk.STYLE_PROVIDER_PRIORITY_APPLICATION)
	l.logger.Debug("applied theme to display")
}

// StartHotReload watches the current user theme and reapplies it on the
// main loop when it changes. Bundled themes are not watched.
func (l *Loader) StartHotReload(ctx context.Context) {
	l.StopHotReload()

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.theme == nil || l.theme.IsBundled {
		l.logger.Debug("not starting hot-reload for bundled theme")
		return
	}

	// The watcher reloads its own copy so the UI side never races with it.
	watched, err := NewTheme(l.theme.Name, l.theme.Path)
	if err != nil {
		l.logger.Warn("failed to start theme watcher", "error", err)
		return
	}

	w := NewWatcher(watched, l.logger)
	w.SetChangeCallback(func(css string) {
		coreglib.IdleAdd(func() {
			l.mu.Lock()
			l.css = css
			l.reloadLocked()
			l.mu.Unlock()
			l.logger.Info("hot-reloaded theme", "name", watched.Name)
		})
	})
	w.SetErrorCallback(func(err error) {
		l.mu.RLock()
		onError := l.onError
		l.mu.RUnlock()
		if onError != nil {
			onError(err)
		}
	})

	if err := w.Start(ctx); err != nil {
		l.logger.Warn("failed to start theme watcher", "error", err)
		return
	}
	l.watcher = w
}

// StopHotReload stops watching the theme.
func (l *Loader) StopHotReload() {
	l.mu.Lock()
	w := l.watcher
	l.watcher = nil
	l.mu.Unlock()

	if w != nil {
		w.Stop()
	}
}

// ListThemes returns bundled and user theme names.
func (l *Loader) ListThemes() []string {
	l.mu.RLock()
	dir := l.themesDir
	l.mu.RUnlock()

	infos, err := ListAvailableThemes(dir)
	if err != nil {
		l.logger.Debug("failed to read themes directory", "error", err)
	}
	names := make([]string, 0, len(infos))
	for _, info := range infos {
		names = append(names, info.Name)
	}
	return names
}
