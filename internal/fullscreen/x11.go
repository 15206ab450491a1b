package fullscreen

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"

	"github.com/jezek/xgb"
	"github.com/jezek/xgb/xproto"
)

// X11Source watches EWMH properties on an X server. Every managed client
// listed in _NET_CLIENT_LIST is observed for _NET_WM_STATE_FULLSCREEN.
type X11Source struct {
	display string
	logger  *slog.Logger
}

// NewX11Source creates a source for display. An empty display uses $DISPLAY.
func NewX11Source(display string, logger *slog.Logger) *X11Source {
	if logger == nil {
		logger = slog.Default()
	}
	return &X11Source{display: display, logger: logger}
}

// Name implements Source.
func (x *X11Source) Name() string { return KindX11 }

type ewmhAtoms struct {
	clientList xproto.Atom
	wmState    xproto.Atom
	fullscreen xproto.Atom
}

// x11Session is the per-connection state of an X11Source.
type x11Session struct {
	conn    *xgb.Conn
	root    xproto.Window
	atoms   ewmhAtoms
	clients []xproto.Window
	full    map[xproto.Window]bool
	logger  *slog.Logger
}

// Run implements Source.
func (x *X11Source) Run(ctx context.Context, sink Sink) error {
	conn, err := xgb.NewConnDisplay(x.display)
	if err != nil {
		return fmt.Errorf("connect X11 display %q: %w", x.display, err)
	}
	defer conn.Close()

	s := &x11Session{
		conn:   conn,
		root:   xproto.Setup(conn).DefaultScreen(conn).Root,
		full:   make(map[xproto.Window]bool),
		logger: x.logger,
	}
	if err := s.internAtoms(); err != nil {
		return err
	}
	if err := s.watch(s.root); err != nil {
		return fmt.Errorf("select root events: %w", err)
	}

	clients, err := s.clientList()
	if err != nil {
		return err
	}
	s.clients = clients
	for _, w := range clients {
		s.track(w)
	}
	sink(Event{Kind: EventSync, Apps: s.fullscreenApps()})

	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	for {
		ev, xerr := conn.WaitForEvent()
		if ev == nil && xerr == nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return errors.New("X11 connection closed")
		}
		if xerr != nil {
			// Windows routinely vanish between an event and our request.
			s.logger.Debug("X11 error", "error", xerr.Error())
			continue
		}

		prop, ok := ev.(xproto.PropertyNotifyEvent)
		if !ok {
			continue
		}
		for _, out := range s.handleProperty(prop) {
			sink(out)
		}
	}
}

func (s *x11Session) internAtoms() error {
	names := []string{"_NET_CLIENT_LIST", "_NET_WM_STATE", "_NET_WM_STATE_FULLSCREEN"}
	atoms := make([]xproto.Atom, len(names))
	for i, name := range names {
		reply, err := xproto.InternAtom(s.conn, false, uint16(len(name)), name).Reply()
		if err != nil {
			return fmt.Errorf("intern atom %s: %w", name, err)
		}
		atoms[i] = reply.Atom
	}
	s.atoms = ewmhAtoms{clientList: atoms[0], wmState: atoms[1], fullscreen: atoms[2]}
	return nil
}

func (s *x11Session) watch(w xproto.Window) error {
	return xproto.ChangeWindowAttributesChecked(s.conn, w, xproto.CwEventMask,
		[]uint32{xproto.EventMaskPropertyChange}).Check()
}

func (s *x11Session) clientList() ([]xproto.Window, error) {
	reply, err := xproto.GetProperty(s.conn, false, s.root, s.atoms.clientList,
		xproto.AtomWindow, 0, 1<<16).Reply()
	if err != nil {
		return nil, fmt.Errorf("read _NET_CLIENT_LIST: %w", err)
	}
	return decodeWindows(reply.Value), nil
}

func (s *x11Session) isFullscreen(w xproto.Window) bool {
	reply, err := xproto.GetProperty(s.conn, false, w, s.atoms.wmState,
		xproto.AtomAtom, 0, 64).Reply()
	if err != nil {
		return false
	}
	return slices.Contains(decodeAtoms(reply.Value), s.atoms.fullscreen)
}

// track starts watching w and records its current state.
func (s *x11Session) track(w xproto.Window) {
	if err := s.watch(w); err != nil {
		s.logger.Debug("cannot watch X11 client", "window", windowKey(w), "error", err)
		return
	}
	s.full[w] = s.isFullscreen(w)
}

func (s *x11Session) fullscreenApps() []string {
	var apps []string
	for w, full := range s.full {
		if full {
			apps = append(apps, windowKey(w))
		}
	}
	return apps
}

func (s *x11Session) handleProperty(ev xproto.PropertyNotifyEvent) []Event {
	switch {
	case ev.Window == s.root && ev.Atom == s.atoms.clientList:
		clients, err := s.clientList()
		if err != nil {
			s.logger.Debug("client list refresh failed", "error", err)
			return nil
		}
		added, removed := diffWindows(s.clients, clients)
		s.clients = clients

		var out []Event
		for _, w := range removed {
			delete(s.full, w)
			out = append(out, Event{Kind: EventTerminate, App: windowKey(w)})
		}
		for _, w := range added {
			out = append(out, Event{Kind: EventLaunch, App: windowKey(w)})
			s.track(w)
			if s.full[w] {
				out = append(out, Event{Kind: EventEnter, App: windowKey(w)})
			}
		}
		return out

	case ev.Atom == s.atoms.wmState:
		was, known := s.full[ev.Window]
		if !known {
			return nil
		}
		now := s.isFullscreen(ev.Window)
		if now == was {
			return nil
		}
		s.full[ev.Window] = now
		kind := EventExit
		if now {
			kind = EventEnter
		}
		return []Event{{Kind: kind, App: windowKey(ev.Window)}}
	}
	return nil
}

func windowKey(w xproto.Window) string {
	return "x11:" + strconv.FormatUint(uint64(w), 16)
}

func decodeWindows(value []byte) []xproto.Window {
	windows := make([]xproto.Window, 0, len(value)/4)
	for i := 0; i+4 <= len(value); i += 4 {
		windows = append(windows, xproto.Window(xgb.Get32(value[i:])))
	}
	return windows
}

func decodeAtoms(value []byte) []xproto.Atom {
	atoms := make([]xproto.Atom, 0, len(value)/4)
	for i := 0; i+4 <= len(value); i += 4 {
		atoms = append(atoms, xproto.Atom(xgb.Get32(value[i:])))
	}
	return atoms
}

// diffWindows returns the windows present only in next and only in prev.
func diffWindows(prev, next []xproto.Window) (added, removed []xproto.Window) {
	for _, w := range next {
		if !slices.Contains(prev, w) {
			added = append(added, w)
		}
	}
	for _, w := range prev {
		if !slices.Contains(next, w) {
			removed = append(removed, w)
		}
	}
	return added, removed
}
