package daemon

import (
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/fsclock/internal/clock"
	"github.com/jmylchreest/fsclock/internal/config"
	"github.com/jmylchreest/fsclock/internal/display"
	"github.com/jmylchreest/fsclock/internal/fullscreen"
	"github.com/jmylchreest/fsclock/internal/store"
)

type fakeWindow struct {
	bgAlpha float64
	visible bool
}

func (w *fakeWindow) SetBackgroundAlpha(a float64) { w.bgAlpha = a }
func (w *fakeWindow) Present(*image.RGBA)          {}
func (w *fakeWindow) SetVisible(v bool)            { w.visible = v }
func (w *fakeWindow) Destroy()                     {}

type fakeFactory struct {
	windows map[string]*fakeWindow
}

func (f *fakeFactory) CreateWindow(m display.Monitor) (display.Window, error) {
	w := &fakeWindow{}
	f.windows[m.ID] = w
	return w, nil
}

type fakeScheduler struct{}

func (fakeScheduler) Every(time.Duration, func()) func() { return func() {} }

type shellFixture struct {
	shell    *Shell
	manager  *display.Manager
	factory  *fakeFactory
	signal   *fullscreen.Signal
	settings *store.SettingsFile
	dir      string
}

func testDefaults() config.ClockConfig {
	return config.ClockConfig{BackgroundAlpha: 0.5, FaceAlpha: 0.6, HandsAlpha: 0.7}
}

func newShellFixture(t *testing.T) *shellFixture {
	t.Helper()
	dir := t.TempDir()
	f := &shellFixture{
		factory:  &fakeFactory{windows: make(map[string]*fakeWindow)},
		signal:   fullscreen.New(nil),
		settings: store.NewSettingsFile(filepath.Join(dir, "state.json")),
		dir:      dir,
	}
	f.manager = display.NewManager(display.Options{
		Factory:   f.factory,
		Scheduler: fakeScheduler{},
		Signal:    f.signal,
	})
	f.shell = NewShell(ShellOptions{
		Manager:     f.manager,
		Signal:      f.signal,
		Settings:    f.settings,
		Defaults:    testDefaults(),
		SnapshotDir: filepath.Join(dir, "snapshots"),
	})
	return f
}

func screens() []display.Monitor {
	return []display.Monitor{
		{ID: "DP-1", Width: 64, Height: 48},
		{ID: "HDMI-A-1", Width: 32, Height: 32},
	}
}

func TestShell_StartFreshUsesConfiguredDefaults(t *testing.T) {
	f := newShellFixture(t)
	f.shell.Start(screens(), true, false)

	assert.False(t, f.manager.IsVisible())
	assert.Equal(t, 0.5, f.manager.BackgroundAlpha())
	assert.Equal(t, 0.6, f.manager.FaceAlpha())
	assert.Equal(t, 0.7, f.manager.HandsAlpha())

	saved, err := f.settings.Load()
	require.NoError(t, err)
	require.NotNil(t, saved.LastChange)
	assert.Equal(t, store.TriggerStartup, saved.LastChange.Trigger)
	assert.Equal(t, 0.6, saved.FaceAlpha)
}

func TestShell_StartRestoresPersistedSettings(t *testing.T) {
	f := newShellFixture(t)
	require.NoError(t, f.settings.Save(&store.Settings{
		Visible:         true,
		BackgroundAlpha: 0.1,
		FaceAlpha:       0.2,
		HandsAlpha:      0.3,
		SchemaVersion:   store.CurrentSchemaVersion,
	}))

	f.shell.Start(screens(), true, false)

	assert.True(t, f.manager.IsVisible())
	assert.Equal(t, 0.1, f.manager.BackgroundAlpha())
	assert.Equal(t, 0.2, f.manager.FaceAlpha())
	assert.Equal(t, 0.3, f.manager.HandsAlpha())
	assert.True(t, f.factory.windows["DP-1"].visible)
}

func TestShell_StartVisibleWhenNotRemembering(t *testing.T) {
	f := newShellFixture(t)
	require.NoError(t, f.settings.Save(&store.Settings{Visible: false, SchemaVersion: 1}))

	f.shell.Start(screens(), false, true)
	assert.True(t, f.manager.IsVisible())
}

func TestShell_TogglePersists(t *testing.T) {
	f := newShellFixture(t)
	f.shell.Start(screens(), true, false)

	visible, err := f.shell.Toggle("test")
	require.NoError(t, err)
	assert.True(t, visible)

	saved, err := f.settings.Load()
	require.NoError(t, err)
	assert.True(t, saved.Visible)
	assert.Equal(t, store.TriggerUser, saved.LastChange.Trigger)
	assert.Equal(t, "toggle", saved.LastChange.Reason)
	assert.Equal(t, "test", saved.LastChange.Source)

	require.NoError(t, f.shell.Hide("test"))
	saved, err = f.settings.Load()
	require.NoError(t, err)
	assert.False(t, saved.Visible)
}

func TestShell_StateListener(t *testing.T) {
	f := newShellFixture(t)
	type change struct{ visible, effective bool }
	var changes []change
	f.shell.SetStateListener(func(visible, effective bool) {
		changes = append(changes, change{visible, effective})
	})
	f.shell.Start(screens(), true, false)

	require.NoError(t, f.shell.Show("test"))
	f.signal.Enter("0xabc")
	f.signal.Exit("0xabc")

	assert.Equal(t, []change{{true, true}, {true, false}, {true, true}}, changes)
}

func TestShell_SetAlpha(t *testing.T) {
	f := newShellFixture(t)
	f.shell.Start(screens(), true, false)

	applied, err := f.shell.SetAlpha(display.LayerFace, 1.5, "test")
	require.NoError(t, err)
	assert.Equal(t, 1.0, applied)

	applied, err = f.shell.SetAlpha(display.LayerBackground, 0.25, "test")
	require.NoError(t, err)
	assert.Equal(t, 0.25, applied)
	assert.Equal(t, 0.25, f.factory.windows["DP-1"].bgAlpha)

	saved, err := f.settings.Load()
	require.NoError(t, err)
	assert.Equal(t, 1.0, saved.FaceAlpha)
	assert.Equal(t, 0.25, saved.BackgroundAlpha)
	assert.Equal(t, "background alpha", saved.LastChange.Reason)

	_, err = f.shell.SetAlpha(display.Layer("rim"), 0.5, "test")
	assert.Error(t, err)
}

func TestShell_RestoreDefaults(t *testing.T) {
	f := newShellFixture(t)
	f.shell.Start(screens(), true, false)
	_, err := f.shell.SetAlpha(display.LayerHands, 0.05, "test")
	require.NoError(t, err)

	require.NoError(t, f.shell.RestoreDefaults("test"))

	assert.Equal(t, 0.7, f.manager.HandsAlpha())
	saved, err := f.settings.Load()
	require.NoError(t, err)
	assert.Equal(t, 0.7, saved.HandsAlpha)
	assert.Equal(t, store.TriggerDefaults, saved.LastChange.Trigger)
}

func TestShell_Status(t *testing.T) {
	f := newShellFixture(t)
	f.shell.Start(screens(), true, true)
	f.shell.NotifyFullscreen("game", true)

	st := f.shell.Status()
	assert.True(t, st.Visible)
	assert.False(t, st.Effective)
	assert.True(t, st.Suppressed())
	assert.Equal(t, int32(2), st.Displays)
	assert.Equal(t, []string{"game"}, st.FullscreenApps)
	assert.NotZero(t, st.ChangedAt)

	f.shell.NotifyFullscreen("game", false)
	st = f.shell.Status()
	assert.True(t, st.Effective)
	assert.Empty(t, st.FullscreenApps)
}

func TestShell_SnapshotToDirectory(t *testing.T) {
	f := newShellFixture(t)
	f.shell.Start(screens(), true, false)

	path, err := f.shell.Snapshot("", 32)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(f.dir, "snapshots"), filepath.Dir(path))
	assert.Equal(t, ".png", filepath.Ext(path))

	file, err := os.Open(path)
	require.NoError(t, err)
	defer file.Close()
	img, err := png.Decode(file)
	require.NoError(t, err)
	// First overlay is 64x48, scaled so the longest side is 32.
	assert.Equal(t, image.Pt(32, 24), img.Bounds().Size())
}

func TestShell_SnapshotExplicitPath(t *testing.T) {
	f := newShellFixture(t)
	f.shell.Start(nil, true, false)

	path, err := f.shell.Snapshot(filepath.Join(f.dir, "out", "clock"), 0)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(f.dir, "out", "clock.png"), path)

	file, err := os.Open(path)
	require.NoError(t, err)
	defer file.Close()
	img, err := png.Decode(file)
	require.NoError(t, err)
	assert.Equal(t, image.Pt(config.DefaultSnapshotSize, config.DefaultSnapshotSize), img.Bounds().Size())
}

func TestShell_SnapshotExistingDirectory(t *testing.T) {
	f := newShellFixture(t)
	f.shell.Start(screens(), true, false)
	target := t.TempDir()

	path, err := f.shell.Snapshot(target, 16)
	require.NoError(t, err)
	assert.Equal(t, target, filepath.Dir(path))
	assert.FileExists(t, path)
}

func TestShell_ApplySettings(t *testing.T) {
	f := newShellFixture(t)
	f.shell.Start(screens(), true, false)

	next := &store.Settings{
		Visible:         true,
		BackgroundAlpha: 0.3,
		FaceAlpha:       0.4,
		HandsAlpha:      0.5,
		SchemaVersion:   store.CurrentSchemaVersion,
	}
	f.shell.ApplySettings(next)

	assert.True(t, f.manager.IsVisible())
	assert.Equal(t, 0.3, f.manager.BackgroundAlpha())
	assert.Equal(t, 0.4, f.manager.FaceAlpha())
	assert.Equal(t, 0.5, f.manager.HandsAlpha())
	assert.Equal(t, 0.5, f.shell.Settings().HandsAlpha)
}

func TestShell_ApplyConfig(t *testing.T) {
	f := newShellFixture(t)
	f.shell.Start(screens(), true, false)

	cfg := config.DefaultDaemonConfig()
	cfg.Clock.HandsAlpha = 0.33
	cfg.Clock.RepaintInterval = config.Duration(250 * time.Millisecond)
	f.shell.ApplyConfig(cfg, clock.Style{HideSeconds: true})

	assert.Equal(t, 250*time.Millisecond, f.manager.RepaintInterval())
	// Persisted opacities stay; the new defaults apply on restore.
	assert.Equal(t, 0.7, f.manager.HandsAlpha())
	require.NoError(t, f.shell.RestoreDefaults("test"))
	assert.Equal(t, 0.33, f.manager.HandsAlpha())
}

func TestShell_InvokerIsUsed(t *testing.T) {
	f := newShellFixture(t)
	calls := 0
	f.shell.invoke = func(fn func()) {
		calls++
		fn()
	}
	f.shell.Start(screens(), true, false)

	_, err := f.shell.Toggle("test")
	require.NoError(t, err)
	_ = f.shell.Status()
	assert.Equal(t, 2, calls)
}

func TestSnapshotPath(t *testing.T) {
	dir := t.TempDir()

	p, err := SnapshotPath(dir, "")
	require.NoError(t, err)
	assert.Equal(t, dir, filepath.Dir(p))
	assert.Regexp(t, `^fsclock-[0-9a-z]{26}\.png$`, filepath.Base(p))

	p, err = SnapshotPath(dir, "/tmp/clock.PNG")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/clock.PNG", p)

	_, err = SnapshotPath("", "")
	assert.Error(t, err)
}

func TestStyleFromConfig(t *testing.T) {
	cfg := config.DefaultDaemonConfig()

	style, err := StyleFromConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, clock.Style{}, style, "defaults draw all three hands and hour ticks only")

	cfg.Clock.ShowSeconds = false
	cfg.Clock.SmoothSeconds = true
	cfg.Clock.MinuteTicks = true
	style, err = StyleFromConfig(cfg)
	require.NoError(t, err)
	assert.True(t, style.HideSeconds)
	assert.True(t, style.SmoothSeconds)
	assert.True(t, style.MinuteTicks)
	assert.Nil(t, style.Dial)

	cfg.Clock.Dial = filepath.Join(t.TempDir(), "missing.svg")
	style, err = StyleFromConfig(cfg)
	assert.Error(t, err)
	assert.True(t, style.HideSeconds)
	assert.Nil(t, style.Dial)
}

func TestStyleFromConfig_DefaultDrawsSecondHand(t *testing.T) {
	style, err := StyleFromConfig(config.DefaultDaemonConfig())
	require.NoError(t, err)

	// 10:00:30, so only the second hand points at six o'clock.
	img := image.NewRGBA(image.Rect(0, 0, 400, 400))
	clock.Render(img, time.Date(2024, 3, 14, 10, 0, 30, 0, time.UTC), 0, 1, style)
	assert.NotZero(t, img.RGBAAt(200, 320).A)
}
