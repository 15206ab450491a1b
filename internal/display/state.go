package display

import "fmt"

// State is the visibility state of the overlays.
type State int

const (
	// StateHidden means the user has hidden the clock.
	StateHidden State = iota
	// StateShown means the clock is on screen.
	StateShown
	// StateSuppressed means the user wants the clock shown but a
	// full-screen application is holding it back.
	StateSuppressed
)

// String returns the string representation of State.
func (s State) String() string {
	switch s {
	case StateHidden:
		return "hidden"
	case StateShown:
		return "shown"
	case StateSuppressed:
		return "suppressed"
	default:
		return "unknown"
	}
}

// ParseState parses the output of State.String.
func ParseState(s string) (State, bool) {
	switch s {
	case "hidden":
		return StateHidden, true
	case "shown":
		return StateShown, true
	case "suppressed":
		return StateSuppressed, true
	default:
		return StateHidden, false
	}
}

// Layer names one of the three independently faded parts of the overlay.
type Layer string

const (
	LayerBackground Layer = "background"
	LayerFace       Layer = "face"
	LayerHands      Layer = "hands"
)

// Layers lists every layer in paint order.
func Layers() []Layer {
	return []Layer{LayerBackground, LayerFace, LayerHands}
}

// ParseLayer parses a layer name. "bg" is accepted for background.
func ParseLayer(s string) (Layer, error) {
	switch s {
	case "background", "bg":
		return LayerBackground, nil
	case "face":
		return LayerFace, nil
	case "hands":
		return LayerHands, nil
	default:
		return "", fmt.Errorf("unknown layer %q, must be one of background, face, hands", s)
	}
}

// DefaultAlpha returns the opacity RestoreDefaults applies to l.
func (l Layer) DefaultAlpha() float64 {
	switch l {
	case LayerBackground:
		return DefaultBackgroundAlpha
	case LayerFace:
		return DefaultFaceAlpha
	default:
		return DefaultHandsAlpha
	}
}
