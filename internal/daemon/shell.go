package daemon

import (
	"errors"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/oklog/ulid/v2"

	"github.com/jmylchreest/fsclock/internal/clock"
	"github.com/jmylchreest/fsclock/internal/config"
	"github.com/jmylchreest/fsclock/internal/dbus"
	"github.com/jmylchreest/fsclock/internal/display"
	"github.com/jmylchreest/fsclock/internal/fullscreen"
	"github.com/jmylchreest/fsclock/internal/store"
)

// Invoker runs fn on the UI thread and returns once it has completed.
type Invoker func(fn func())

// Source names recorded with settings changes.
const (
	SourceDaemon = "fsclockd"
)

// ShellOptions configures a Shell.
type ShellOptions struct {
	Manager  *display.Manager
	Signal   *fullscreen.Signal
	Settings *store.SettingsFile
	Invoke   Invoker
	Logger   *slog.Logger

	// Defaults restored by RestoreDefaults.
	Defaults config.ClockConfig

	SnapshotDir  string
	SnapshotSize int
}

// Shell is the application surface over the overlay manager. Every call
// runs on the UI thread through the Invoker; user changes are persisted.
type Shell struct {
	manager  *display.Manager
	signal   *fullscreen.Signal
	settings *store.SettingsFile
	invoke   Invoker
	logger   *slog.Logger

	// Guarded by the UI thread.
	defaults     config.ClockConfig
	current      *store.Settings
	onState      func(visible, effective bool)
	snapshotDir  string
	snapshotSize int
}

var _ dbus.Controller = (*Shell)(nil)

// NewShell creates a Shell. It installs the manager's state callback.
func NewShell(opts ShellOptions) *Shell {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	invoke := opts.Invoke
	if invoke == nil {
		invoke = func(fn func()) { fn() }
	}
	size := opts.SnapshotSize
	if size < 0 {
		size = 0
	}

	s := &Shell{
		manager:      opts.Manager,
		signal:       opts.Signal,
		settings:     opts.Settings,
		invoke:       invoke,
		logger:       logger,
		defaults:     opts.Defaults,
		current:      store.DefaultSettings(),
		snapshotDir:  opts.SnapshotDir,
		snapshotSize: size,
	}
	s.manager.SetStateCallback(s.stateChanged)
	return s
}

// SetStateListener sets the function told about every visibility change,
// typically the D-Bus StateChanged emitter. Must be called on the UI thread.
func (s *Shell) SetStateListener(fn func(visible, effective bool)) {
	s.onState = fn
}

func (s *Shell) stateChanged(state display.State) {
	s.logger.Info("overlay state changed", "state", state)
	if s.onState != nil {
		s.onState(state != display.StateHidden, state == display.StateShown)
	}
}

// Start initializes the manager on screens using the persisted settings.
// Missing settings fall back to the configured defaults; visibility is
// restored only when rememberVisible is set, otherwise startVisible wins.
// Must be called on the UI thread.
func (s *Shell) Start(screens []display.Monitor, rememberVisible, startVisible bool) {
	loaded, err := s.settings.Load()
	fresh := errors.Is(err, store.ErrNoSettings)
	switch {
	case fresh:
		loaded = s.defaultSettings()
	case err != nil:
		s.logger.Warn("failed to load settings, using defaults", "path", s.settings.Path(), "error", err)
		loaded = s.defaultSettings()
	}

	visible := startVisible
	if rememberVisible && !fresh && err == nil {
		visible = loaded.Visible
	}

	s.manager.Initialize(screens, loaded.BackgroundAlpha, loaded.HandsAlpha, loaded.FaceAlpha)
	if visible {
		s.manager.Show()
	}
	s.current = loaded
	if fresh {
		s.persist(store.TriggerStartup, "first run", SourceDaemon)
	}

	s.logger.Info("overlay shell started",
		"visible", visible,
		"background_alpha", loaded.BackgroundAlpha,
		"face_alpha", loaded.FaceAlpha,
		"hands_alpha", loaded.HandsAlpha)
}

func (s *Shell) defaultSettings() *store.Settings {
	st := store.DefaultSettings()
	st.BackgroundAlpha = s.defaults.BackgroundAlpha
	st.FaceAlpha = s.defaults.FaceAlpha
	st.HandsAlpha = s.defaults.HandsAlpha
	return st
}

// Toggle flips the user's visibility and returns the new value.
func (s *Shell) Toggle(source string) (bool, error) {
	var visible bool
	s.invoke(func() {
		visible = s.manager.Toggle()
		s.persist(store.TriggerUser, "toggle", source)
	})
	return visible, nil
}

// Show makes the clock visible.
func (s *Shell) Show(source string) error {
	s.invoke(func() {
		s.manager.Show()
		s.persist(store.TriggerUser, "show", source)
	})
	return nil
}

// Hide hides the clock.
func (s *Shell) Hide(source string) error {
	s.invoke(func() {
		s.manager.Hide()
		s.persist(store.TriggerUser, "hide", source)
	})
	return nil
}

// SetAlpha sets one layer's opacity and returns the clamped value.
func (s *Shell) SetAlpha(layer display.Layer, value float64, source string) (float64, error) {
	var applied float64
	var err error
	s.invoke(func() {
		applied, err = s.manager.SetAlpha(layer, value)
		if err == nil {
			s.persist(store.TriggerUser, string(layer)+" alpha", source)
		}
	})
	return applied, err
}

// RestoreDefaults resets the opacities to the configured defaults.
func (s *Shell) RestoreDefaults(source string) error {
	s.invoke(func() {
		s.manager.SetBackgroundAlpha(s.defaults.BackgroundAlpha)
		s.manager.SetFaceAlpha(s.defaults.FaceAlpha)
		s.manager.SetHandsAlpha(s.defaults.HandsAlpha)
		s.persist(store.TriggerDefaults, "restore defaults", source)
	})
	return nil
}

// Status reports the overlay state.
func (s *Shell) Status() dbus.Status {
	var st dbus.Status
	s.invoke(func() {
		st = dbus.Status{
			Visible:         s.manager.IsVisible(),
			Effective:       s.manager.EffectiveVisible(),
			BackgroundAlpha: s.manager.BackgroundAlpha(),
			FaceAlpha:       s.manager.FaceAlpha(),
			HandsAlpha:      s.manager.HandsAlpha(),
			Displays:        int32(len(s.manager.Overlays())),
		}
		if lc := s.current.LastChange; lc != nil {
			st.ChangedAt = lc.Timestamp
		}
	})
	if s.signal != nil {
		st.FullscreenApps = s.signal.Apps()
	}
	return st
}

// NotifyFullscreen feeds an externally detected transition into the
// full-screen signal.
func (s *Shell) NotifyFullscreen(app string, fullscreen bool) {
	if s.signal == nil {
		return
	}
	s.invoke(func() {
		if fullscreen {
			s.signal.Enter(app)
		} else {
			s.signal.Exit(app)
		}
	})
}

// Snapshot renders the clock to a PNG. An empty path writes a uniquely
// named file in the snapshot directory; a directory path gets the same
// treatment. size scales the longest side, 0 uses the default size.
func (s *Shell) Snapshot(path string, size int) (string, error) {
	if size <= 0 {
		size = s.snapshotSize
	}

	var img *image.RGBA
	s.invoke(func() {
		img = s.manager.CaptureStillImage(max(size, config.DefaultSnapshotSize))
	})

	out, err := SnapshotPath(s.snapshotDir, path)
	if err != nil {
		return "", err
	}

	var final image.Image = img
	if size > 0 {
		final = clock.Thumbnail(img, size)
	}

	if err := WritePNG(out, final); err != nil {
		return "", err
	}
	s.logger.Info("wrote snapshot", "path", out, "size", final.Bounds().Size())
	return out, nil
}

// SnapshotPath resolves where a snapshot is written. An empty path or an
// existing directory gets a uniquely named file; other paths get a .png
// extension if they lack one.
func SnapshotPath(dir, path string) (string, error) {
	if path != "" {
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			dir = path
		} else {
			if !strings.EqualFold(filepath.Ext(path), ".png") {
				path += ".png"
			}
			return path, nil
		}
	}
	if dir == "" {
		return "", errors.New("no snapshot directory configured")
	}
	return filepath.Join(dir, "fsclock-"+strings.ToLower(ulid.Make().String())+".png"), nil
}

// WritePNG encodes img to path, creating parent directories.
func WritePNG(path string, img image.Image) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create snapshot directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create snapshot: %w", err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("encode snapshot: %w", err)
	}
	return f.Close()
}

// StyleFromConfig builds the clock style, loading the dial if configured.
// A dial that fails to load is returned as an error alongside a style
// without it.
func StyleFromConfig(cfg *config.DaemonConfig) (clock.Style, error) {
	style := clock.Style{
		HideSeconds:   !cfg.Clock.ShowSeconds,
		SmoothSeconds: cfg.Clock.SmoothSeconds,
		MinuteTicks:   cfg.Clock.MinuteTicks,
	}
	path := cfg.DialPath()
	if path == "" {
		return style, nil
	}
	dial, err := clock.LoadDial(path)
	if err != nil {
		return style, err
	}
	style.Dial = dial
	return style, nil
}

// ApplySettings adopts settings written by another process, typically the
// fsclock CLI while the bus was unavailable. Nothing is persisted.
func (s *Shell) ApplySettings(next *store.Settings) {
	s.invoke(func() {
		if next.Equal(s.current) {
			return
		}
		s.logger.Info("applying external settings change", "visible", next.Visible)
		s.manager.SetBackgroundAlpha(next.BackgroundAlpha)
		s.manager.SetFaceAlpha(next.FaceAlpha)
		s.manager.SetHandsAlpha(next.HandsAlpha)
		if next.Visible != s.manager.IsVisible() {
			if next.Visible {
				s.manager.Show()
			} else {
				s.manager.Hide()
			}
		}
		s.current = next
	})
}

// ApplyConfig updates the clock style, repaint interval and defaults after
// a config reload. Persisted opacities are left alone.
func (s *Shell) ApplyConfig(cfg *config.DaemonConfig, style clock.Style) {
	s.invoke(func() {
		s.defaults = cfg.Clock
		s.manager.SetStyle(style)
		s.manager.SetRepaintInterval(cfg.Clock.RepaintInterval.Duration())
	})
}

// Settings returns a copy of the last persisted or adopted settings.
func (s *Shell) Settings() store.Settings {
	var cp store.Settings
	s.invoke(func() { cp = *s.current })
	return cp
}

// persist snapshots the manager into the settings file. A failed write is
// logged; the change stays applied.
func (s *Shell) persist(trigger store.Trigger, reason, source string) {
	next := &store.Settings{
		Visible:         s.manager.IsVisible(),
		BackgroundAlpha: s.manager.BackgroundAlpha(),
		FaceAlpha:       s.manager.FaceAlpha(),
		HandsAlpha:      s.manager.HandsAlpha(),
		SchemaVersion:   store.CurrentSchemaVersion,
	}
	next.Record(trigger, reason, source)
	s.current = next

	if err := s.settings.Save(next); err != nil {
		s.logger.Warn("failed to persist settings", "path", s.settings.Path(), "error", err)
	}
}
