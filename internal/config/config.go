// Package config handles configuration file loading and parsing.
package config

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// Default configuration values.
const (
	DefaultStatusFormat  = "plain"
	DefaultSnapshotSize  = 512
	DefaultTUIStep       = 0.05
	DefaultWaybarText    = "{{if .Visible}}clock{{else}}clock off{{end}}"
	DefaultWaybarTooltip = "fsclock: {{.State}}{{if .Fullscreen}} (fullscreen: {{len .FullscreenApps}}){{end}}\nbackground {{percent .BackgroundAlpha}} face {{percent .FaceAlpha}} hands {{percent .HandsAlpha}}"
	DefaultPlainTmpl     = "{{.State}} background={{percent .BackgroundAlpha}} face={{percent .FaceAlpha}} hands={{percent .HandsAlpha}} displays={{.Displays}}"
)

// Config represents the fsclock CLI configuration.
type Config struct {
	Status    StatusConfig    `toml:"status"`
	Templates TemplatesConfig `toml:"templates"`
	TUI       TUIConfig       `toml:"tui"`
	Snapshot  SnapshotConfig  `toml:"snapshot"`
}

// StatusConfig holds defaults for the status command.
type StatusConfig struct {
	Format string `toml:"format"` // plain, json, yaml, waybar
}

// TemplatesConfig holds output templates.
type TemplatesConfig struct {
	Plain         string            `toml:"plain"`
	WaybarText    string            `toml:"waybar_text"`
	WaybarTooltip string            `toml:"waybar_tooltip"`
	Custom        map[string]string `toml:"custom"`
}

// TUIConfig holds preferences TUI settings.
type TUIConfig struct {
	ShowHelp bool    `toml:"show_help"`
	Step     float64 `toml:"step"` // Slider step per key press
}

// SnapshotConfig holds snapshot defaults.
type SnapshotConfig struct {
	Dir  string `toml:"dir"`  // Empty = <data dir>/snapshots
	Size int    `toml:"size"` // Longest side in pixels, 0 = native
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		Status: StatusConfig{
			Format: DefaultStatusFormat,
		},
		Templates: TemplatesConfig{
			Plain:         DefaultPlainTmpl,
			WaybarText:    DefaultWaybarText,
			WaybarTooltip: DefaultWaybarTooltip,
			Custom:        make(map[string]string),
		},
		TUI: TUIConfig{
			ShowHelp: true,
			Step:     DefaultTUIStep,
		},
		Snapshot: SnapshotConfig{
			Size: DefaultSnapshotSize,
		},
	}
}

// ConfigPath returns the path to the config file.
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config.
func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.toml")
}

// ConfigDir returns the fsclock configuration directory.
func ConfigDir() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, "fsclock")
}

// DataPath returns the path to the data directory.
// Uses XDG_DATA_HOME if set, otherwise ~/.local/share.
func DataPath() string {
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		dataHome = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataHome, "fsclock")
}

// StatePath returns the path to the persisted settings file.
func StatePath() string {
	return filepath.Join(DataPath(), "state.json")
}

// SnapshotDir returns the directory snapshots are written to.
func (c *Config) SnapshotDir() string {
	if c.Snapshot.Dir != "" {
		return expandPath(c.Snapshot.Dir)
	}
	return filepath.Join(DataPath(), "snapshots")
}

// LoadConfig loads configuration from the specified path.
// If path is empty, uses the default config path.
// Returns default config if file doesn't exist.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		path = ConfigPath()
	}

	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, err
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save writes the configuration to the specified path.
// Creates parent directories if needed.
func (c *Config) Save(path string) error {
	if path == "" {
		path = ConfigPath()
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := toml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// GetTemplate returns the template for the given name.
// First checks custom templates, then built-in ones.
// Returns empty string if not found.
func (c *Config) GetTemplate(name string) string {
	if tmpl, ok := c.Templates.Custom[name]; ok {
		return tmpl
	}

	switch name {
	case "plain":
		return c.Templates.Plain
	case "waybar_text":
		return c.Templates.WaybarText
	case "waybar_tooltip":
		return c.Templates.WaybarTooltip
	default:
		return ""
	}
}

// EnsureDataDir creates the data directory if it doesn't exist.
func EnsureDataDir() error {
	path := DataPath()
	if path == "" {
		return errors.New("unable to determine data directory")
	}
	return os.MkdirAll(path, 0755)
}
