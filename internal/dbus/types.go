package dbus

import (
	"time"

	"github.com/godbus/dbus/v5"
)

// Status is the overlay state reported by GetStatus.
// D-Bus signature: (bbdddiasx)
type Status struct {
	Visible         bool     `json:"visible" yaml:"visible"`
	Effective       bool     `json:"effective" yaml:"effective"`
	BackgroundAlpha float64  `json:"background_alpha" yaml:"background_alpha"`
	FaceAlpha       float64  `json:"face_alpha" yaml:"face_alpha"`
	HandsAlpha      float64  `json:"hands_alpha" yaml:"hands_alpha"`
	Displays        int32    `json:"displays" yaml:"displays"`
	FullscreenApps  []string `json:"fullscreen_apps" yaml:"fullscreen_apps"`
	ChangedAt       int64    `json:"changed_at,omitempty" yaml:"changed_at,omitempty"` // Unix seconds of the last user change
}

// Suppressed reports whether a full-screen application is holding back a
// clock the user wants shown.
func (s Status) Suppressed() bool {
	return s.Visible && !s.Effective
}

// Changed returns ChangedAt as a time, zero if unknown.
func (s Status) Changed() time.Time {
	if s.ChangedAt == 0 {
		return time.Time{}
	}
	return time.Unix(s.ChangedAt, 0)
}

// Urgency is the freedesktop notification urgency hint.
type Urgency byte

const (
	UrgencyLow      Urgency = 0
	UrgencyNormal   Urgency = 1
	UrgencyCritical Urgency = 2
)

// String returns the string representation of the urgency.
func (u Urgency) String() string {
	switch u {
	case UrgencyLow:
		return "low"
	case UrgencyNormal:
		return "normal"
	case UrgencyCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// Notification is an outgoing org.freedesktop.Notifications.Notify call.
type Notification struct {
	AppName       string
	ReplacesID    uint32
	AppIcon       string
	Summary       string
	Body          string
	Urgency       Urgency
	Category      string // e.g. "fsclock.config"
	Transient     bool   // Do not keep in the notification history
	ExpireTimeout int32  // -1 = server default, 0 = never expire
}

// Hints builds the hints dictionary for the Notify call.
func (n *Notification) Hints() map[string]dbus.Variant {
	hints := map[string]dbus.Variant{
		"urgency": dbus.MakeVariant(byte(n.Urgency)),
	}
	if n.Category != "" {
		hints["category"] = dbus.MakeVariant(n.Category)
	}
	if n.Transient {
		hints["transient"] = dbus.MakeVariant(true)
	}
	if n.AppName != "" {
		hints["desktop-entry"] = dbus.MakeVariant(n.AppName)
	}
	return hints
}
