package fullscreen

import (
	"log/slog"
	"maps"
	"slices"
	"sync"
	"sync/atomic"
	"time"
)

// EventKind identifies a full-screen related environment event.
type EventKind int

const (
	// EventEnter reports that an application entered full-screen.
	EventEnter EventKind = iota
	// EventExit reports that an application left full-screen.
	EventExit
	// EventLaunch reports a newly launched application. Treated as an exit
	// for that application.
	EventLaunch
	// EventTerminate reports that an application went away. Treated as an
	// exit so the aggregate state cannot wedge on a vanished application.
	EventTerminate
	// EventSync replaces the applications previously reported by the same
	// Origin with Event.Apps. Entries from other origins are kept.
	EventSync
)

// String returns the name of the event kind.
func (k EventKind) String() string {
	switch k {
	case EventEnter:
		return "enter"
	case EventExit:
		return "exit"
	case EventLaunch:
		return "launch"
	case EventTerminate:
		return "terminate"
	case EventSync:
		return "sync"
	default:
		return "unknown"
	}
}

// unnamedApp is used for events that carry no application key.
const unnamedApp = "unnamed"

// Event is a single observation from the environment.
type Event struct {
	Kind EventKind
	App  string   // application key for enter/exit/launch/terminate
	Apps []string // full set for EventSync
	// Origin names the reporter, e.g. a Source name. Empty for reports
	// made directly through Enter, Exit and friends.
	Origin string
}

// Releaser is implemented by subscription targets that can be torn down
// without unsubscribing. A released target is dropped instead of notified.
type Releaser interface {
	Released() bool
}

type subscription struct {
	target  any
	onEnter func()
	onExit  func()
	removed bool
}

// Signal holds the aggregate full-screen state and its subscribers.
//
// Handle and every subscriber callback are expected to run on the UI
// thread. IsFullscreen may be called from any goroutine.
type Signal struct {
	logger *slog.Logger
	active atomic.Bool

	mu         sync.Mutex
	apps       map[string]string // app key -> origin
	since      time.Time
	subs       []*subscription
	pending    []bool
	delivering bool
}

var (
	shared     *Signal
	sharedOnce sync.Once
)

// Shared returns the process-wide Signal, creating it on first use.
// It is never re-created or destroyed.
func Shared() *Signal {
	sharedOnce.Do(func() {
		shared = New(nil)
	})
	return shared
}

// New creates an independent Signal. Most callers want Shared.
func New(logger *slog.Logger) *Signal {
	if logger == nil {
		logger = slog.Default()
	}
	return &Signal{
		logger: logger,
		apps:   make(map[string]string),
		since:  time.Now(),
	}
}

// SetLogger replaces the logger used for transition logging.
func (s *Signal) SetLogger(logger *slog.Logger) {
	if logger == nil {
		return
	}
	s.mu.Lock()
	s.logger = logger
	s.mu.Unlock()
}

// IsFullscreen reports whether at least one application is full-screen.
func (s *Signal) IsFullscreen() bool {
	return s.active.Load()
}

// Apps returns the keys of the applications currently full-screen, sorted.
func (s *Signal) Apps() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	apps := make([]string, 0, len(s.apps))
	for app := range s.apps {
		apps = append(apps, app)
	}
	slices.Sort(apps)
	return apps
}

// Since returns the time of the last aggregate transition.
func (s *Signal) Since() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.since
}

// SubscriberCount returns the number of live subscriptions.
func (s *Signal) SubscriberCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

// Subscribe registers onEnter and onExit for target. Subscribing the same
// target again replaces its previous pair and keeps its position in the
// notification order. Neither callback is invoked for the current state.
// target must be comparable; a pointer to the owner is typical.
func (s *Signal) Subscribe(target any, onEnter, onExit func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sub := &subscription{target: target, onEnter: onEnter, onExit: onExit}
	for i, existing := range s.subs {
		if existing.target == target {
			existing.removed = true
			s.subs[i] = sub
			return
		}
	}
	s.subs = append(s.subs, sub)
}

// Unsubscribe removes the subscription for target. It reports whether a
// subscription existed.
func (s *Signal) Unsubscribe(target any) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.removeLocked(target)
}

func (s *Signal) removeLocked(target any) bool {
	for i, existing := range s.subs {
		if existing.target == target {
			existing.removed = true
			s.subs = slices.Delete(s.subs, i, i+1)
			return true
		}
	}
	return false
}

// Enter records that app entered full-screen.
func (s *Signal) Enter(app string) { s.Handle(Event{Kind: EventEnter, App: app}) }

// Exit records that app left full-screen.
func (s *Signal) Exit(app string) { s.Handle(Event{Kind: EventExit, App: app}) }

// Launched records that app was launched.
func (s *Signal) Launched(app string) { s.Handle(Event{Kind: EventLaunch, App: app}) }

// Terminated records that app went away.
func (s *Signal) Terminated(app string) { s.Handle(Event{Kind: EventTerminate, App: app}) }

// Sync replaces the directly reported full-screen apps with apps.
func (s *Signal) Sync(apps []string) { s.Handle(Event{Kind: EventSync, Apps: apps}) }

// Handle applies ev to the full-screen set and notifies subscribers if the
// aggregate state flipped. Events raised from inside a callback update the
// set immediately; their notifications are delivered after the current
// round completes, in order.
func (s *Signal) Handle(ev Event) {
	s.mu.Lock()

	s.applyLocked(ev)

	now := len(s.apps) > 0
	if now != s.active.Load() {
		s.active.Store(now)
		s.since = time.Now()
		s.pending = append(s.pending, now)
		s.logger.Debug("fullscreen state changed",
			"fullscreen", now,
			"event", ev.Kind.String(),
			"app", ev.App,
			"apps", len(s.apps))
	}

	if s.delivering {
		s.mu.Unlock()
		return
	}
	s.delivering = true

	for len(s.pending) > 0 {
		entered := s.pending[0]
		s.pending = s.pending[1:]
		round := slices.Clone(s.subs)
		s.mu.Unlock()

		s.notify(round, entered)

		s.mu.Lock()
	}

	s.delivering = false
	s.mu.Unlock()
}

func (s *Signal) applyLocked(ev Event) {
	app := ev.App
	if app == "" {
		app = unnamedApp
	}

	switch ev.Kind {
	case EventEnter:
		s.apps[app] = ev.Origin
	case EventExit, EventLaunch, EventTerminate:
		delete(s.apps, app)
	case EventSync:
		maps.DeleteFunc(s.apps, func(_, origin string) bool {
			return origin == ev.Origin
		})
		for _, a := range ev.Apps {
			if a == "" {
				a = unnamedApp
			}
			s.apps[a] = ev.Origin
		}
	}
}

func (s *Signal) notify(round []*subscription, entered bool) {
	for _, sub := range round {
		s.mu.Lock()
		skip := sub.removed
		if !skip {
			if r, ok := sub.target.(Releaser); ok && r.Released() {
				s.logger.Debug("dropping released fullscreen subscriber")
				s.removeLocked(sub.target)
				skip = true
			}
		}
		s.mu.Unlock()
		if skip {
			continue
		}

		cb := sub.onExit
		if entered {
			cb = sub.onEnter
		}
		if cb != nil {
			cb()
		}
	}
}

// Sink receives events from a Source.
type Sink func(Event)

// Feed returns a Sink that hands each event to dispatch, which must run the
// supplied function on the UI thread. A nil dispatch applies events on the
// caller's goroutine.
func (s *Signal) Feed(dispatch func(func())) Sink {
	if dispatch == nil {
		return s.Handle
	}
	return func(ev Event) {
		dispatch(func() { s.Handle(ev) })
	}
}
