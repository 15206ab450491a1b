package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/jmylchreest/fsclock/internal/display"
)

// Trigger records what caused a settings change.
type Trigger string

const (
	// TriggerUser is a change made through the CLI, TUI or D-Bus.
	TriggerUser Trigger = "user"
	// TriggerDefaults is a RestoreDefaults call.
	TriggerDefaults Trigger = "defaults"
	// TriggerStartup is the state written when fsclockd first starts.
	TriggerStartup Trigger = "startup"
)

// Transition records details about the last settings change.
type Transition struct {
	Trigger   Trigger `json:"trigger"`
	Reason    string  `json:"reason"`           // e.g. "toggle", "face alpha"
	Source    string  `json:"source,omitempty"` // e.g. "cli", "tui", "dbus", "fsclockd"
	Timestamp int64   `json:"timestamp"`
}

// Time returns the transition timestamp.
func (t *Transition) Time() time.Time {
	if t == nil || t.Timestamp == 0 {
		return time.Time{}
	}
	return time.Unix(t.Timestamp, 0)
}

// Settings is the user-controlled overlay state shared between fsclock and
// fsclockd. Persisted to ~/.local/share/fsclock/state.json.
type Settings struct {
	Visible         bool    `json:"visible"`
	BackgroundAlpha float64 `json:"background_alpha"`
	FaceAlpha       float64 `json:"face_alpha"`
	HandsAlpha      float64 `json:"hands_alpha"`

	LastChange *Transition `json:"last_change,omitempty"`

	SchemaVersion int `json:"schema_version"`
}

// CurrentSchemaVersion is the current version of the settings schema.
const CurrentSchemaVersion = 1

// ErrNoSettings is returned by Load when nothing has been persisted yet.
var ErrNoSettings = errors.New("no persisted settings")

// DefaultSettings returns hidden settings with the built-in opacities.
func DefaultSettings() *Settings {
	return &Settings{
		BackgroundAlpha: display.DefaultBackgroundAlpha,
		FaceAlpha:       display.DefaultFaceAlpha,
		HandsAlpha:      display.DefaultHandsAlpha,
		SchemaVersion:   CurrentSchemaVersion,
	}
}

// Alpha returns the opacity stored for layer l.
func (s *Settings) Alpha(l display.Layer) float64 {
	switch l {
	case display.LayerBackground:
		return s.BackgroundAlpha
	case display.LayerFace:
		return s.FaceAlpha
	default:
		return s.HandsAlpha
	}
}

// SetAlpha stores the opacity for layer l, clamped to [0, 1].
func (s *Settings) SetAlpha(l display.Layer, v float64) {
	v = clamp(v)
	switch l {
	case display.LayerBackground:
		s.BackgroundAlpha = v
	case display.LayerFace:
		s.FaceAlpha = v
	case display.LayerHands:
		s.HandsAlpha = v
	}
}

// Record stamps the settings with a transition.
func (s *Settings) Record(trigger Trigger, reason, source string) {
	s.LastChange = &Transition{
		Trigger:   trigger,
		Reason:    reason,
		Source:    source,
		Timestamp: time.Now().Unix(),
	}
}

// Equal reports whether two settings describe the same overlay state,
// ignoring the transition record.
func (s *Settings) Equal(o *Settings) bool {
	if s == nil || o == nil {
		return s == o
	}
	return s.Visible == o.Visible &&
		s.BackgroundAlpha == o.BackgroundAlpha &&
		s.FaceAlpha == o.FaceAlpha &&
		s.HandsAlpha == o.HandsAlpha
}

func clamp(v float64) float64 {
	switch {
	case math.IsNaN(v) || v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}

// SettingsFile reads and writes Settings at a fixed path. Safe for
// concurrent use within one process; cross-process writers rely on the
// atomic rename.
type SettingsFile struct {
	mu   sync.RWMutex
	path string
}

// NewSettingsFile returns a SettingsFile for path.
func NewSettingsFile(path string) *SettingsFile {
	return &SettingsFile{path: path}
}

// Path returns the file path.
func (f *SettingsFile) Path() string {
	return f.path
}

// Load reads the settings. Returns ErrNoSettings if the file does not exist.
// Alphas outside [0, 1] are clamped.
func (f *SettingsFile) Load() (*Settings, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoSettings
		}
		return nil, fmt.Errorf("read settings: %w", err)
	}

	s := DefaultSettings()
	if err := json.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("parse settings %s: %w", f.path, err)
	}

	if s.SchemaVersion == 0 {
		s.SchemaVersion = CurrentSchemaVersion
	}
	for _, l := range display.Layers() {
		s.SetAlpha(l, s.Alpha(l))
	}
	return s, nil
}

// LoadOrDefault is Load with missing or unreadable files mapped to
// DefaultSettings. The error is returned alongside for logging.
func (f *SettingsFile) LoadOrDefault() (*Settings, error) {
	s, err := f.Load()
	if err != nil {
		if errors.Is(err, ErrNoSettings) {
			return DefaultSettings(), nil
		}
		return DefaultSettings(), err
	}
	return s, nil
}

// Save writes the settings atomically.
func (f *SettingsFile) Save(s *Settings) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(f.path), 0700); err != nil {
		return fmt.Errorf("create settings directory: %w", err)
	}

	if s.SchemaVersion == 0 {
		s.SchemaVersion = CurrentSchemaVersion
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}

	tmpPath := f.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	return os.Rename(tmpPath, f.path)
}

// Update loads the settings (or defaults), applies fn and saves the result.
func (f *SettingsFile) Update(fn func(*Settings)) (*Settings, error) {
	// A corrupt file is replaced by defaults.
	s, _ := f.LoadOrDefault()
	fn(s)
	if err := f.Save(s); err != nil {
		return nil, err
	}
	return s, nil
}
