package main

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/jmylchreest/fsclock/internal/clock"
	"github.com/jmylchreest/fsclock/internal/config"
	"github.com/jmylchreest/fsclock/internal/daemon"
	"github.com/jmylchreest/fsclock/internal/dbus"
	"github.com/jmylchreest/fsclock/internal/display"
	"github.com/jmylchreest/fsclock/internal/store"
	"github.com/jmylchreest/fsclock/internal/tui"
)

const sourceCLI = "cli"

// control is what every subcommand drives: the running daemon over the
// session bus, or the saved settings while it is not running.
type control interface {
	tui.Backend
	Show() error
	Hide() error
	NotifyFullscreen(app string, fullscreen bool) error
	Close() error
}

var _ control = (*dbus.Client)(nil)
var _ control = (*settingsControl)(nil)

// connect returns a bus client, or a settingsControl when fsclockd is not
// reachable. offline reports which one.
func connect() (ctl control, offline bool) {
	client, err := dbus.Connect()
	if err == nil {
		return client, false
	}
	if errors.Is(err, dbus.ErrNotRunning) {
		logger.Debug("fsclockd not running, editing saved settings")
	} else {
		logger.Debug("session bus unavailable, editing saved settings", "error", err)
	}
	return newSettingsControl(store.NewSettingsFile(statePath())), true
}

// settingsControl edits state.json directly. fsclockd applies the result
// when it is running without a bus and at its next start otherwise.
type settingsControl struct {
	file *store.SettingsFile
	// loadDaemonConfig supplies defaults for RestoreDefaults and the
	// snapshot style.
	loadDaemonConfig func() (*config.DaemonConfig, error)
	snapshotDir      string
	now              func() time.Time
}

func newSettingsControl(file *store.SettingsFile) *settingsControl {
	dir := ""
	if cfg != nil {
		dir = cfg.SnapshotDir()
	}
	return &settingsControl{
		file:             file,
		loadDaemonConfig: config.LoadDaemonConfig,
		snapshotDir:      dir,
		now:              time.Now,
	}
}

func (c *settingsControl) Status() (dbus.Status, error) {
	s, err := c.file.LoadOrDefault()
	if err != nil {
		return dbus.Status{}, err
	}
	st := dbus.Status{
		Visible:         s.Visible,
		BackgroundAlpha: s.BackgroundAlpha,
		FaceAlpha:       s.FaceAlpha,
		HandsAlpha:      s.HandsAlpha,
	}
	if s.LastChange != nil {
		st.ChangedAt = s.LastChange.Timestamp
	}
	return st, nil
}

func (c *settingsControl) Toggle() (bool, error) {
	s, err := c.file.Update(func(s *store.Settings) {
		s.Visible = !s.Visible
		s.Record(store.TriggerUser, "toggle", sourceCLI)
	})
	if err != nil {
		return false, err
	}
	return s.Visible, nil
}

func (c *settingsControl) Show() error {
	return c.setVisible(true, "show")
}

func (c *settingsControl) Hide() error {
	return c.setVisible(false, "hide")
}

func (c *settingsControl) setVisible(visible bool, reason string) error {
	_, err := c.file.Update(func(s *store.Settings) {
		s.Visible = visible
		s.Record(store.TriggerUser, reason, sourceCLI)
	})
	return err
}

func (c *settingsControl) SetAlpha(layer string, value float64) (float64, error) {
	l, err := display.ParseLayer(layer)
	if err != nil {
		return 0, err
	}
	s, err := c.file.Update(func(s *store.Settings) {
		s.SetAlpha(l, value)
		s.Record(store.TriggerUser, string(l)+" alpha", sourceCLI)
	})
	if err != nil {
		return 0, err
	}
	return s.Alpha(l), nil
}

func (c *settingsControl) RestoreDefaults() error {
	defaults := c.daemonConfig().Clock
	_, err := c.file.Update(func(s *store.Settings) {
		s.BackgroundAlpha = defaults.BackgroundAlpha
		s.FaceAlpha = defaults.FaceAlpha
		s.HandsAlpha = defaults.HandsAlpha
		s.Record(store.TriggerDefaults, "restore defaults", sourceCLI)
	})
	return err
}

// Snapshot renders the clock with the saved opacities, without a daemon.
func (c *settingsControl) Snapshot(path string, size int) (string, error) {
	if size <= 0 {
		size = config.DefaultSnapshotSize
	}
	s, err := c.file.LoadOrDefault()
	if err != nil {
		return "", err
	}

	style, err := daemon.StyleFromConfig(c.daemonConfig())
	if err != nil {
		logger.Warn("failed to load dial, drawing plain face", "error", err)
	}

	r := clock.NewRenderer(size, size, s.FaceAlpha, s.HandsAlpha)
	r.SetStyle(style)
	r.SetTime(c.now())

	out, err := daemon.SnapshotPath(c.snapshotDir, path)
	if err != nil {
		return "", err
	}
	if err := daemon.WritePNG(out, r.CaptureStillImage()); err != nil {
		return "", err
	}
	return out, nil
}

func (c *settingsControl) NotifyFullscreen(string, bool) error {
	return dbus.ErrNotRunning
}

func (c *settingsControl) Close() error { return nil }

func (c *settingsControl) daemonConfig() *config.DaemonConfig {
	dc, err := c.loadDaemonConfig()
	if err != nil {
		logger.Warn("failed to load fsclockd config, using built-in defaults", "error", err)
		return config.DefaultDaemonConfig()
	}
	return dc
}

// parseAlpha accepts "0.5", "50%" or a signed relative change such as
// "+10%" or "-0.05" applied to current.
func parseAlpha(s string, current float64) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errors.New("empty opacity")
	}

	relative := s[0] == '+' || s[0] == '-'
	num := s
	scale := 1.0
	if strings.HasSuffix(num, "%") {
		num = strings.TrimSuffix(num, "%")
		scale = 100
	}

	v, err := strconv.ParseFloat(num, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("invalid opacity %q (use 0-1, 0%%-100%%, or +/- a step)", s)
	}
	v /= scale

	if relative {
		v += current
	}
	return clock.Clamp(math.Round(v*1000) / 1000), nil
}
