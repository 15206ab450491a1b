package output

import (
	"time"

	"github.com/jmylchreest/fsclock/internal/dbus"
	"github.com/jmylchreest/fsclock/internal/display"
	"github.com/jmylchreest/fsclock/internal/store"
)

// StateStopped is reported when fsclockd is not running and the view was
// built from the persisted settings.
const StateStopped = "stopped"

// View is the status handed to formatters and templates.
type View struct {
	State           string    `json:"state" yaml:"state"`
	Running         bool      `json:"running" yaml:"running"`
	Visible         bool      `json:"visible" yaml:"visible"`
	Effective       bool      `json:"effective" yaml:"effective"`
	Fullscreen      bool      `json:"fullscreen" yaml:"fullscreen"`
	BackgroundAlpha float64   `json:"background_alpha" yaml:"background_alpha"`
	FaceAlpha       float64   `json:"face_alpha" yaml:"face_alpha"`
	HandsAlpha      float64   `json:"hands_alpha" yaml:"hands_alpha"`
	Displays        int       `json:"displays" yaml:"displays"`
	FullscreenApps  []string  `json:"fullscreen_apps" yaml:"fullscreen_apps"`
	ChangedAt       time.Time `json:"changed_at,omitzero" yaml:"changed_at,omitempty"`
}

// FromStatus builds a view from a running daemon's status.
func FromStatus(st dbus.Status) *View {
	state := display.StateShown
	switch {
	case !st.Visible:
		state = display.StateHidden
	case !st.Effective:
		state = display.StateSuppressed
	}

	apps := st.FullscreenApps
	if apps == nil {
		apps = []string{}
	}
	return &View{
		State:           state.String(),
		Running:         true,
		Visible:         st.Visible,
		Effective:       st.Effective,
		Fullscreen:      len(st.FullscreenApps) > 0,
		BackgroundAlpha: st.BackgroundAlpha,
		FaceAlpha:       st.FaceAlpha,
		HandsAlpha:      st.HandsAlpha,
		Displays:        int(st.Displays),
		FullscreenApps:  apps,
		ChangedAt:       st.Changed(),
	}
}

// FromSettings builds a view from persisted settings while fsclockd is not
// running. Nothing is on screen.
func FromSettings(s *store.Settings) *View {
	return &View{
		State:           StateStopped,
		Visible:         s.Visible,
		BackgroundAlpha: s.BackgroundAlpha,
		FaceAlpha:       s.FaceAlpha,
		HandsAlpha:      s.HandsAlpha,
		FullscreenApps:  []string{},
		ChangedAt:       s.LastChange.Time(),
	}
}
