package layershell

import (
	"fmt"
	"log/slog"
	"slices"
	"unsafe"

	coreglib "github.com/diamondburned/gotk4/pkg/core/glib"
	"github.com/diamondburned/gotk4/pkg/gdk/v4"

	"github.com/jmylchreest/fsclock/internal/display"
)

// MonitorFilter limits which monitors get an overlay.
type MonitorFilter struct {
	// SkipPrimary leaves the first monitor without a clock.
	SkipPrimary bool
	// Exclude lists connector names to skip.
	Exclude []string
}

// Allows reports whether m should get an overlay.
func (f MonitorFilter) Allows(m display.Monitor) bool {
	if f.SkipPrimary && m.Primary {
		return false
	}
	return !slices.Contains(f.Exclude, m.ID)
}

// Apply returns the monitors f allows, in order.
func (f MonitorFilter) Apply(monitors []display.Monitor) []display.Monitor {
	out := make([]display.Monitor, 0, len(monitors))
	for _, m := range monitors {
		if f.Allows(m) {
			out = append(out, m)
		}
	}
	return out
}

// MonitorWatcher reports the monitor list of the default display and its
// changes.
type MonitorWatcher struct {
	display  *gdk.Display
	filter   MonitorFilter
	logger   *slog.Logger
	onChange func([]display.Monitor)
	handle   coreglib.SignalHandle
	started  bool
}

// NewMonitorWatcher creates a watcher for the default display.
func NewMonitorWatcher(filter MonitorFilter, logger *slog.Logger) (*MonitorWatcher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	d := gdk.DisplayGetDefault()
	if d == nil {
		return nil, &display.DisplayError{Message: "no display available"}
	}
	return &MonitorWatcher{display: d, filter: filter, logger: logger}, nil
}

// SetChangeCallback sets the callback invoked with the new list after a
// monitor is connected or disconnected.
func (w *MonitorWatcher) SetChangeCallback(cb func([]display.Monitor)) {
	w.onChange = cb
}

// SetFilter replaces the filter. The next Monitors call uses it.
func (w *MonitorWatcher) SetFilter(filter MonitorFilter) {
	w.filter = filter
}

// Start begins watching for changes.
func (w *MonitorWatcher) Start() {
	if w.started {
		return
	}
	w.started = true
	w.handle = w.display.Monitors().ConnectItemsChanged(func(position, removed, added uint) {
		monitors := w.Monitors()
		w.logger.Info("monitor configuration changed",
			"count", len(monitors),
			"added", added,
			"removed", removed)
		if w.onChange != nil {
			w.onChange(monitors)
		}
	})
}

// Stop stops watching for changes.
func (w *MonitorWatcher) Stop() {
	if !w.started {
		return
	}
	w.started = false
	w.display.Monitors().HandlerDisconnect(w.handle)
}

// Monitors returns the current monitors allowed by the filter.
func (w *MonitorWatcher) Monitors() []display.Monitor {
	list := w.display.Monitors()
	if list == nil {
		w.logger.Warn("no monitors list available")
		return nil
	}

	var monitors []display.Monitor
	for i, n := uint(0), list.NItems(); i < n; i++ {
		m := wrapMonitor(list.Item(i))
		if m == nil {
			continue
		}
		monitors = append(monitors, describe(m, int(i)))
	}
	return w.filter.Apply(monitors)
}

func describe(m *gdk.Monitor, index int) display.Monitor {
	id := m.Connector()
	if id == "" {
		id = fmt.Sprintf("monitor-%d", index)
	}
	geom := m.Geometry()
	scale := max(m.ScaleFactor(), 1)
	return display.Monitor{
		ID:      id,
		Name:    m.Model(),
		Width:   geom.Width() * scale,
		Height:  geom.Height() * scale,
		Primary: index == 0,
	}
}

// findMonitor returns the GDK monitor with connector id.
func findMonitor(d *gdk.Display, id string) *gdk.Monitor {
	list := d.Monitors()
	if list == nil {
		return nil
	}
	for i, n := uint(0), list.NItems(); i < n; i++ {
		m := wrapMonitor(list.Item(i))
		if m == nil {
			continue
		}
		if describe(m, int(i)).ID == id {
			return m
		}
	}
	return nil
}

// wrapMonitor wraps a coreglib.Object as a gdk.Monitor.
// gotk4 does not export its own wrapper for list model items.
func wrapMonitor(obj *coreglib.Object) *gdk.Monitor {
	if obj == nil {
		return nil
	}
	type monitor struct {
		_ [0]func()
		*coreglib.Object
	}
	m := &monitor{Object: obj}
	return (*gdk.Monitor)(unsafe.Pointer(m))
}
