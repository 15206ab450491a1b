package dbus

import (
	"fmt"

	"github.com/godbus/dbus/v5"
)

// EmitStateChanged emits the StateChanged signal. effective is false while
// the clock is hidden or suppressed.
func (s *ControlServer) EmitStateChanged(visible, effective bool) error {
	conn := s.Connection()
	if conn == nil {
		return fmt.Errorf("not connected to D-Bus")
	}

	if err := conn.Emit(Path, Interface+".StateChanged", visible, effective); err != nil {
		return fmt.Errorf("failed to emit StateChanged signal: %w", err)
	}

	s.logger.Debug("emitted StateChanged signal", "visible", visible, "effective", effective)
	return nil
}

// stateChangedMatch matches StateChanged signals from fsclockd.
func stateChangedMatch() []dbus.MatchOption {
	return []dbus.MatchOption{
		dbus.WithMatchObjectPath(Path),
		dbus.WithMatchInterface(Interface),
		dbus.WithMatchMember("StateChanged"),
	}
}

// parseStateChanged decodes a StateChanged signal body.
func parseStateChanged(sig *dbus.Signal) (visible, effective bool, ok bool) {
	if sig == nil || sig.Name != Interface+".StateChanged" || len(sig.Body) != 2 {
		return false, false, false
	}
	visible, ok1 := sig.Body[0].(bool)
	effective, ok2 := sig.Body[1].(bool)
	return visible, effective, ok1 && ok2
}
