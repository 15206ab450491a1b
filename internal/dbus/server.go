package dbus

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/introspect"

	"github.com/jmylchreest/fsclock/internal/display"
)

const (
	// Interface is the fsclock control interface name.
	Interface = "io.github.jmylchreest.FsClock1"
	// Path is the control object path.
	Path = "/io/github/jmylchreest/FsClock"
	// BusName is the bus name fsclockd claims.
	BusName = "io.github.jmylchreest.FsClock1"

	// SourceDBus identifies changes made over the bus.
	SourceDBus = "dbus"
)

// ErrAlreadyRunning is returned by Start when another fsclockd owns the name.
var ErrAlreadyRunning = errors.New("fsclockd is already running")

// Controller is the application surface exposed over D-Bus. Implementations
// marshal calls onto the UI thread.
type Controller interface {
	Toggle(source string) (bool, error)
	Show(source string) error
	Hide(source string) error
	SetAlpha(layer display.Layer, value float64, source string) (float64, error)
	RestoreDefaults(source string) error
	Status() Status
	Snapshot(path string, size int) (string, error)
	NotifyFullscreen(app string, fullscreen bool)
}

// ControlServer exports a Controller on the session bus.
type ControlServer struct {
	mu      sync.Mutex
	conn    *dbus.Conn
	logger  *slog.Logger
	object  *controlObject
	running bool
}

// NewControlServer creates a server for ctrl.
func NewControlServer(ctrl Controller, logger *slog.Logger) *ControlServer {
	if logger == nil {
		logger = slog.Default()
	}
	return &ControlServer{
		logger: logger,
		object: &controlObject{ctrl: ctrl, logger: logger},
	}
}

// Start connects to the session bus, exports the control object and claims
// the bus name. Returns ErrAlreadyRunning if the name is owned elsewhere.
func (s *ControlServer) Start() error {
	conn, err := dbus.SessionBus()
	if err != nil {
		return fmt.Errorf("failed to connect to session bus: %w", err)
	}
	return s.StartOn(conn)
}

// StartOn is Start on an existing connection.
func (s *ControlServer) StartOn(conn *dbus.Conn) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("server already running")
	}

	if err := conn.Export(s.object, Path, Interface); err != nil {
		return fmt.Errorf("failed to export object: %w", err)
	}

	node := &introspect.Node{
		Name: Path,
		Interfaces: []introspect.Interface{
			introspect.IntrospectData,
			{
				Name:    Interface,
				Methods: controlMethods(),
				Signals: controlSignals(),
			},
		},
	}
	if err := conn.Export(introspect.NewIntrospectable(node), Path,
		"org.freedesktop.DBus.Introspectable"); err != nil {
		return fmt.Errorf("failed to export introspectable: %w", err)
	}

	reply, err := conn.RequestName(BusName, dbus.NameFlagDoNotQueue)
	if err != nil {
		return fmt.Errorf("failed to request bus name: %w", err)
	}
	if reply != dbus.RequestNameReplyPrimaryOwner {
		_ = conn.Export(nil, Path, Interface)
		return ErrAlreadyRunning
	}

	s.conn = conn
	s.running = true
	s.logger.Info("D-Bus control server started", "interface", Interface, "path", Path)
	return nil
}

// Stop releases the bus name and unexports the object. The shared session
// connection stays open.
func (s *ControlServer) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}
	s.running = false

	if _, err := s.conn.ReleaseName(BusName); err != nil {
		s.logger.Warn("failed to release bus name", "error", err)
	}
	_ = s.conn.Export(nil, Path, Interface)

	s.logger.Info("D-Bus control server stopped")
	return nil
}

// Connection returns the bus connection, nil before Start.
func (s *ControlServer) Connection() *dbus.Conn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn
}

// controlObject holds the exported D-Bus methods.
type controlObject struct {
	ctrl   Controller
	logger *slog.Logger
}

func failed(err error) *dbus.Error {
	if err == nil {
		return nil
	}
	return dbus.MakeFailedError(err)
}

// Toggle flips the user visibility and returns the new value.
// D-Bus method: Toggle() -> b
func (o *controlObject) Toggle() (bool, *dbus.Error) {
	o.logger.Debug("Toggle called")
	visible, err := o.ctrl.Toggle(SourceDBus)
	return visible, failed(err)
}

// Show makes the clock visible.
// D-Bus method: Show()
func (o *controlObject) Show() *dbus.Error {
	o.logger.Debug("Show called")
	return failed(o.ctrl.Show(SourceDBus))
}

// Hide hides the clock.
// D-Bus method: Hide()
func (o *controlObject) Hide() *dbus.Error {
	o.logger.Debug("Hide called")
	return failed(o.ctrl.Hide(SourceDBus))
}

// SetAlpha sets the opacity of a layer and returns the clamped value.
// D-Bus method: SetAlpha(sd) -> d
func (o *controlObject) SetAlpha(layer string, value float64) (float64, *dbus.Error) {
	o.logger.Debug("SetAlpha called", "layer", layer, "value", value)
	l, err := display.ParseLayer(layer)
	if err != nil {
		return 0, failed(err)
	}
	v, err := o.ctrl.SetAlpha(l, value, SourceDBus)
	return v, failed(err)
}

// RestoreDefaults resets all opacities.
// D-Bus method: RestoreDefaults()
func (o *controlObject) RestoreDefaults() *dbus.Error {
	o.logger.Debug("RestoreDefaults called")
	return failed(o.ctrl.RestoreDefaults(SourceDBus))
}

// GetStatus returns the overlay state.
// D-Bus method: GetStatus() -> (bbdddiasx)
func (o *controlObject) GetStatus() (bool, bool, float64, float64, float64, int32, []string, int64, *dbus.Error) {
	st := o.ctrl.Status()
	apps := st.FullscreenApps
	if apps == nil {
		apps = []string{}
	}
	return st.Visible, st.Effective, st.BackgroundAlpha, st.FaceAlpha, st.HandsAlpha,
		st.Displays, apps, st.ChangedAt, nil
}

// Snapshot writes a PNG of the clock and returns its path. An empty path
// picks a default location; size 0 keeps the native size.
// D-Bus method: Snapshot(si) -> s
func (o *controlObject) Snapshot(path string, size int32) (string, *dbus.Error) {
	o.logger.Debug("Snapshot called", "path", path, "size", size)
	if size < 0 {
		return "", failed(fmt.Errorf("size must not be negative, got %d", size))
	}
	out, err := o.ctrl.Snapshot(path, int(size))
	return out, failed(err)
}

// NotifyFullscreen reports a full-screen transition from an external
// detector, e.g. a compositor script.
// D-Bus method: NotifyFullscreen(sb)
func (o *controlObject) NotifyFullscreen(app string, fullscreen bool) *dbus.Error {
	o.logger.Debug("NotifyFullscreen called", "app", app, "fullscreen", fullscreen)
	o.ctrl.NotifyFullscreen(app, fullscreen)
	return nil
}

func controlMethods() []introspect.Method {
	return []introspect.Method{
		{
			Name: "Toggle",
			Args: []introspect.Arg{
				{Name: "visible", Type: "b", Direction: "out"},
			},
		},
		{Name: "Show"},
		{Name: "Hide"},
		{
			Name: "SetAlpha",
			Args: []introspect.Arg{
				{Name: "layer", Type: "s", Direction: "in"},
				{Name: "value", Type: "d", Direction: "in"},
				{Name: "applied", Type: "d", Direction: "out"},
			},
		},
		{Name: "RestoreDefaults"},
		{
			Name: "GetStatus",
			Args: []introspect.Arg{
				{Name: "visible", Type: "b", Direction: "out"},
				{Name: "effective", Type: "b", Direction: "out"},
				{Name: "background_alpha", Type: "d", Direction: "out"},
				{Name: "face_alpha", Type: "d", Direction: "out"},
				{Name: "hands_alpha", Type: "d", Direction: "out"},
				{Name: "displays", Type: "i", Direction: "out"},
				{Name: "fullscreen_apps", Type: "as", Direction: "out"},
				{Name: "changed_at", Type: "x", Direction: "out"},
			},
		},
		{
			Name: "Snapshot",
			Args: []introspect.Arg{
				{Name: "path", Type: "s", Direction: "in"},
				{Name: "size", Type: "i", Direction: "in"},
				{Name: "written", Type: "s", Direction: "out"},
			},
		},
		{
			Name: "NotifyFullscreen",
			Args: []introspect.Arg{
				{Name: "app", Type: "s", Direction: "in"},
				{Name: "fullscreen", Type: "b", Direction: "in"},
			},
		},
	}
}

func controlSignals() []introspect.Signal {
	return []introspect.Signal{
		{
			Name: "StateChanged",
			Args: []introspect.Arg{
				{Name: "visible", Type: "b"},
				{Name: "effective", Type: "b"},
			},
		},
	}
}
