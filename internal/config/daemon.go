package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Duration is a time.Duration that can be unmarshaled from human-readable strings.
// Supports formats like "500ms", "1s", "1m", or integer milliseconds.
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler for TOML parsing.
func (d *Duration) UnmarshalText(text []byte) error {
	s := string(text)

	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		*d = Duration(time.Duration(ms) * time.Millisecond)
		return nil
	}

	dur, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: must be like '500ms', '1s', '1m' or milliseconds: %w", s, err)
	}
	*d = Duration(dur)
	return nil
}

// MarshalText implements encoding.TextMarshaler for TOML output.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Duration returns the underlying time.Duration.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// DaemonConfig is the configuration for fsclockd.
// Loaded from ~/.config/fsclock/fsclockd.toml
type DaemonConfig struct {
	Clock      ClockConfig      `toml:"clock"`
	Display    DisplayConfig    `toml:"display"`
	Fullscreen FullscreenConfig `toml:"fullscreen"`
	Behavior   BehaviorConfig   `toml:"behavior"`
	Theme      ThemeConfig      `toml:"theme"`
}

// ClockConfig contains clock appearance defaults. The alphas are used until
// the user changes them at runtime; persisted values take precedence.
type ClockConfig struct {
	BackgroundAlpha float64  `toml:"background_alpha"` // 0.0-1.0
	FaceAlpha       float64  `toml:"face_alpha"`       // 0.0-1.0
	HandsAlpha      float64  `toml:"hands_alpha"`      // 0.0-1.0
	ShowSeconds     bool     `toml:"show_seconds"`     // Second hand, on by default
	SmoothSeconds   bool     `toml:"smooth_seconds"`
	MinuteTicks     bool     `toml:"minute_ticks"`     // Minute marks between hour ticks
	RepaintInterval Duration `toml:"repaint_interval"` // e.g. "1s"
	Dial            string   `toml:"dial"`             // Optional SVG dial path
}

// DisplayConfig contains monitor selection settings.
type DisplayConfig struct {
	SkipPrimary bool     `toml:"skip_primary"` // Only draw on secondary monitors
	Exclude     []string `toml:"exclude"`      // Connector names, e.g. "eDP-1"
	Layer       string   `toml:"layer"`        // "overlay" or "top"
}

// FullscreenConfig selects how full-screen applications are detected.
type FullscreenConfig struct {
	Source         string   `toml:"source"`          // "auto", "hyprland", "x11", "none"
	ReconnectDelay Duration `toml:"reconnect_delay"` // Delay before reconnecting a failed source
}

// BehaviorConfig contains behavior settings.
type BehaviorConfig struct {
	StartVisible    bool `toml:"start_visible"`    // Show the clock at startup
	RememberVisible bool `toml:"remember_visible"` // Restore the last show/hide state instead
	NotifyErrors    bool `toml:"notify_errors"`    // Desktop notification on config/theme errors
}

// ThemeConfig contains theme settings.
type ThemeConfig struct {
	Name string `toml:"name"` // Theme name without .css extension
}

// Layer names.
const (
	LayerOverlay = "overlay"
	LayerTop     = "top"
)

// Fullscreen source names.
const (
	SourceAuto     = "auto"
	SourceHyprland = "hyprland"
	SourceX11      = "x11"
	SourceNone     = "none"
)

// ValidSources returns all valid fullscreen source values.
func ValidSources() []string {
	return []string{SourceAuto, SourceHyprland, SourceX11, SourceNone}
}

// DefaultDaemonConfig returns a new DaemonConfig with default values.
func DefaultDaemonConfig() *DaemonConfig {
	return &DaemonConfig{
		Clock: ClockConfig{
			BackgroundAlpha: 0.8,
			FaceAlpha:       0.9,
			HandsAlpha:      0.9,
			ShowSeconds:     true,
			RepaintInterval: Duration(time.Second),
		},
		Display: DisplayConfig{
			Layer: LayerOverlay,
		},
		Fullscreen: FullscreenConfig{
			Source:         SourceAuto,
			ReconnectDelay: Duration(5 * time.Second),
		},
		Behavior: BehaviorConfig{
			StartVisible:    false,
			RememberVisible: true,
			NotifyErrors:    true,
		},
		Theme: ThemeConfig{
			Name: "default",
		},
	}
}

// DaemonConfigPath returns the path to the daemon config file.
func DaemonConfigPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "fsclock", "fsclockd.toml"), nil
}

// LoadDaemonConfig loads the daemon configuration from disk.
// If the file doesn't exist, returns the default configuration.
func LoadDaemonConfig() (*DaemonConfig, error) {
	path, err := DaemonConfigPath()
	if err != nil {
		return nil, fmt.Errorf("failed to get config path: %w", err)
	}
	return LoadDaemonConfigFrom(path)
}

// LoadDaemonConfigFrom loads the daemon configuration from path.
func LoadDaemonConfigFrom(path string) (*DaemonConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultDaemonConfig(), nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Start with defaults, then overlay with file contents
	config := DefaultDaemonConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// SaveDaemonConfig saves the daemon configuration to path.
func SaveDaemonConfig(path string, config *DaemonConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := toml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// Write atomically via temp file
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return os.Rename(tmpPath, path)
}

// Validate checks if the configuration is valid.
func (c *DaemonConfig) Validate() error {
	alphas := []struct {
		name  string
		value float64
	}{
		{"background_alpha", c.Clock.BackgroundAlpha},
		{"face_alpha", c.Clock.FaceAlpha},
		{"hands_alpha", c.Clock.HandsAlpha},
	}
	for _, a := range alphas {
		if a.value < 0 || a.value > 1 {
			return fmt.Errorf("%s must be between 0 and 1, got %g", a.name, a.value)
		}
	}

	interval := c.Clock.RepaintInterval.Duration()
	if interval < 50*time.Millisecond || interval > time.Minute {
		return fmt.Errorf("repaint_interval must be between 50ms and 1m, got %s", interval)
	}

	if c.Display.Layer != LayerOverlay && c.Display.Layer != LayerTop {
		return fmt.Errorf("invalid layer %q, must be %q or %q", c.Display.Layer, LayerOverlay, LayerTop)
	}

	if !slices.Contains(ValidSources(), c.Fullscreen.Source) {
		return fmt.Errorf("invalid fullscreen source %q, must be one of: %v", c.Fullscreen.Source, ValidSources())
	}

	if c.Fullscreen.ReconnectDelay.Duration() < 0 {
		return fmt.Errorf("reconnect_delay must not be negative")
	}

	return nil
}

// DialPath returns the configured dial path with ~ expanded.
func (c *DaemonConfig) DialPath() string {
	return expandPath(c.Clock.Dial)
}

// expandPath expands ~ to the user's home directory.
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}
