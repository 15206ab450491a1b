package main

import (
	"errors"
	"image/png"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/fsclock/internal/config"
	"github.com/jmylchreest/fsclock/internal/dbus"
	"github.com/jmylchreest/fsclock/internal/store"
)

func newTestControl(t *testing.T) *settingsControl {
	t.Helper()
	logger = slog.New(slog.NewTextHandler(io.Discard, nil))

	dir := t.TempDir()
	c := newSettingsControl(store.NewSettingsFile(filepath.Join(dir, "state.json")))
	c.snapshotDir = filepath.Join(dir, "snapshots")
	c.now = func() time.Time { return time.Date(2024, 1, 1, 10, 10, 30, 0, time.UTC) }
	c.loadDaemonConfig = func() (*config.DaemonConfig, error) {
		dc := config.DefaultDaemonConfig()
		dc.Clock.BackgroundAlpha = 0.4
		dc.Clock.FaceAlpha = 0.5
		dc.Clock.HandsAlpha = 0.6
		return dc, nil
	}
	return c
}

func TestSettingsControl_Visibility(t *testing.T) {
	c := newTestControl(t)

	st, err := c.Status()
	require.NoError(t, err)
	assert.False(t, st.Visible)
	assert.False(t, st.Effective)
	assert.Zero(t, st.ChangedAt)

	visible, err := c.Toggle()
	require.NoError(t, err)
	assert.True(t, visible)

	require.NoError(t, c.Hide())
	s, err := c.file.Load()
	require.NoError(t, err)
	assert.False(t, s.Visible)
	assert.Equal(t, "hide", s.LastChange.Reason)
	assert.Equal(t, sourceCLI, s.LastChange.Source)

	require.NoError(t, c.Show())
	st, err = c.Status()
	require.NoError(t, err)
	assert.True(t, st.Visible)
	assert.NotZero(t, st.ChangedAt)
}

func TestSettingsControl_SetAlpha(t *testing.T) {
	c := newTestControl(t)

	applied, err := c.SetAlpha("face", 1.4)
	require.NoError(t, err)
	assert.Equal(t, 1.0, applied)

	applied, err = c.SetAlpha("bg", 0.3)
	require.NoError(t, err)
	assert.Equal(t, 0.3, applied)

	_, err = c.SetAlpha("rim", 0.3)
	assert.Error(t, err)

	st, err := c.Status()
	require.NoError(t, err)
	assert.Equal(t, 1.0, st.FaceAlpha)
	assert.Equal(t, 0.3, st.BackgroundAlpha)
}

func TestSettingsControl_RestoreDefaultsUsesDaemonConfig(t *testing.T) {
	c := newTestControl(t)
	_, err := c.SetAlpha("hands", 0.1)
	require.NoError(t, err)

	require.NoError(t, c.RestoreDefaults())

	s, err := c.file.Load()
	require.NoError(t, err)
	assert.Equal(t, 0.4, s.BackgroundAlpha)
	assert.Equal(t, 0.5, s.FaceAlpha)
	assert.Equal(t, 0.6, s.HandsAlpha)
	assert.Equal(t, store.TriggerDefaults, s.LastChange.Trigger)
}

func TestSettingsControl_RestoreDefaultsFallsBack(t *testing.T) {
	c := newTestControl(t)
	c.loadDaemonConfig = func() (*config.DaemonConfig, error) {
		return nil, errors.New("broken toml")
	}

	require.NoError(t, c.RestoreDefaults())
	s, err := c.file.Load()
	require.NoError(t, err)
	assert.Equal(t, config.DefaultDaemonConfig().Clock.FaceAlpha, s.FaceAlpha)
}

func TestSettingsControl_Snapshot(t *testing.T) {
	c := newTestControl(t)

	path, err := c.Snapshot("", 64)
	require.NoError(t, err)
	assert.Equal(t, c.snapshotDir, filepath.Dir(path))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	img, err := png.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, 64, img.Bounds().Dx())
	assert.Equal(t, 64, img.Bounds().Dy())
}

func TestSettingsControl_NotifyFullscreenNeedsDaemon(t *testing.T) {
	c := newTestControl(t)
	assert.ErrorIs(t, c.NotifyFullscreen("mpv", true), dbus.ErrNotRunning)
}

func TestParseAlpha(t *testing.T) {
	tests := []struct {
		in      string
		current float64
		want    float64
		wantErr bool
	}{
		{"0.5", 0.9, 0.5, false},
		{"35%", 0.9, 0.35, false},
		{"1.5", 0, 1, false},
		{"+10%", 0.5, 0.6, false},
		{"-0.2", 0.5, 0.3, false},
		{"-80%", 0.5, 0, false},
		{"+0.05", 0.9, 0.95, false},
		{"", 0, 0, true},
		{"half", 0, 0, true},
		{"NaN", 0, 0, true},
		{"%", 0, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseAlpha(tt.in, tt.current)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAlphaTarget(t *testing.T) {
	tests := []struct {
		name    string
		values  []string
		by      string
		current float64
		want    float64
		wantErr bool
	}{
		{"absolute", []string{"0.6"}, "", 0.2, 0.6, false},
		{"signed positional is relative", []string{"-0.2"}, "", 0.5, 0.3, false},
		{"negative step", nil, "-0.2", 0.5, 0.3, false},
		{"unsigned step increases", nil, "10%", 0.5, 0.6, false},
		{"step clamps", nil, "+0.8", 0.5, 1, false},
		{"value and step", []string{"0.6"}, "+0.1", 0.5, 0, true},
		{"blank step", nil, " ", 0.5, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := alphaTarget(tt.values, tt.by, tt.current)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAlphaCmd_DocumentsNegativeValues(t *testing.T) {
	assert.Contains(t, alphaCmd.Long, "--by=-0.1")
	assert.Contains(t, alphaCmd.Long, "fsclock alpha -- face -0.1")
	require.NotNil(t, alphaCmd.Flags().Lookup("by"))
}

func TestFormatAlpha(t *testing.T) {
	assert.Equal(t, "0.80 (80%)", formatAlpha(0.8))
}
