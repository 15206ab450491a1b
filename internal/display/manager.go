package display

import (
	"fmt"
	"image"
	"log/slog"
	"slices"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/jmylchreest/fsclock/internal/clock"
)

// Default opacities restored by RestoreDefaults.
const (
	DefaultBackgroundAlpha = 0.8
	DefaultFaceAlpha       = 0.9
	DefaultHandsAlpha      = 0.9
)

// DefaultRepaintInterval is how often a visible overlay is redrawn.
const DefaultRepaintInterval = time.Second

// Monitor identifies a connected display. ID is stable across
// reconfiguration (the connector name) and is the reconciliation key.
type Monitor struct {
	ID      string
	Name    string
	Width   int
	Height  int
	Primary bool
}

// Window is one overlay surface covering a monitor.
type Window interface {
	// SetBackgroundAlpha sets the opacity of the full-window background layer.
	SetBackgroundAlpha(alpha float64)
	// Present shows frame. frame is reused by the caller after Present returns.
	Present(frame *image.RGBA)
	SetVisible(visible bool)
	Destroy()
}

// WindowFactory creates overlay windows.
type WindowFactory interface {
	CreateWindow(m Monitor) (Window, error)
}

// Scheduler runs fn every d on the UI thread until stop is called.
type Scheduler interface {
	Every(d time.Duration, fn func()) (stop func())
}

// FullscreenSignal is the subset of the full-screen broadcaster the manager
// needs.
type FullscreenSignal interface {
	IsFullscreen() bool
	Subscribe(target any, onEnter, onExit func())
	Unsubscribe(target any) bool
}

// StateCallback is called after the visibility state changes.
type StateCallback func(state State)

// Options configures a Manager.
type Options struct {
	Factory         WindowFactory
	Scheduler       Scheduler
	Signal          FullscreenSignal
	RepaintInterval time.Duration
	Style           clock.Style
	// Now returns the time to draw; defaults to time.Now.
	Now    func() time.Time
	Logger *slog.Logger
}

// overlay is the per-monitor state.
type overlay struct {
	id       string
	monitor  Monitor
	window   Window
	renderer *clock.Renderer
	shown    bool
	stop     func()
}

// OverlayInfo describes an overlay for status reporting.
type OverlayInfo struct {
	ID      string
	Monitor Monitor
	Shown   bool
}

// Manager owns one clock overlay per monitor and decides whether they are
// on screen. Overlays are visible only while the user wants them shown and
// no application is full-screen.
//
// All methods must be called on the UI thread.
type Manager struct {
	factory   WindowFactory
	scheduler Scheduler
	signal    FullscreenSignal
	interval  time.Duration
	style     clock.Style
	now       func() time.Time
	logger    *slog.Logger

	screens  []Monitor
	overlays map[string]*overlay

	visible    bool
	suppressed bool

	backgroundAlpha float64
	faceAlpha       float64
	handsAlpha      float64

	initialized bool
	closed      bool
	lastState   State
	onState     StateCallback
}

// NewManager creates a manager. Initialize must be called before overlays
// are created.
func NewManager(opts Options) *Manager {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	interval := opts.RepaintInterval
	if interval <= 0 {
		interval = DefaultRepaintInterval
	}

	return &Manager{
		factory:         opts.Factory,
		scheduler:       opts.Scheduler,
		signal:          opts.Signal,
		interval:        interval,
		style:           opts.Style,
		now:             now,
		logger:          logger,
		overlays:        make(map[string]*overlay),
		backgroundAlpha: DefaultBackgroundAlpha,
		faceAlpha:       DefaultFaceAlpha,
		handsAlpha:      DefaultHandsAlpha,
	}
}

// Initialize creates one overlay per screen with the given opacities and
// starts following full-screen transitions. Overlays start hidden.
func (m *Manager) Initialize(screens []Monitor, backgroundAlpha, handsAlpha, faceAlpha float64) {
	m.backgroundAlpha = clock.Clamp(backgroundAlpha)
	m.handsAlpha = clock.Clamp(handsAlpha)
	m.faceAlpha = clock.Clamp(faceAlpha)
	m.visible = false
	m.closed = false
	m.initialized = true

	if m.signal != nil {
		m.signal.Subscribe(m, m.enterFullscreen, m.exitFullscreen)
		m.suppressed = m.signal.IsFullscreen()
	}

	m.screens = uniqueScreens(screens)
	m.reconcile()
	for _, o := range m.ordered() {
		o.window.SetBackgroundAlpha(m.backgroundAlpha)
		o.renderer.SetFaceAlpha(m.faceAlpha)
		o.renderer.SetHandsAlpha(m.handsAlpha)
	}
	m.apply()

	m.logger.Debug("overlay manager initialized",
		"screens", len(m.screens),
		"overlays", len(m.overlays),
		"suppressed", m.suppressed)
}

// Show records that the user wants the clock visible.
func (m *Manager) Show() {
	m.visible = true
	m.apply()
}

// Hide records that the user wants the clock hidden.
func (m *Manager) Hide() {
	m.visible = false
	m.apply()
}

// Toggle flips the user's visibility intent and returns the new value.
func (m *Manager) Toggle() bool {
	if m.visible {
		m.Hide()
	} else {
		m.Show()
	}
	return m.visible
}

// IsVisible reports the user's intent, independent of suppression.
func (m *Manager) IsVisible() bool { return m.visible }

// IsSuppressed reports whether overlays are held back by a full-screen
// application.
func (m *Manager) IsSuppressed() bool { return m.suppressed }

// EffectiveVisible reports whether overlays are actually on screen.
func (m *Manager) EffectiveVisible() bool { return m.visible && !m.suppressed }

// State returns the current visibility state.
func (m *Manager) State() State {
	switch {
	case !m.visible:
		return StateHidden
	case m.suppressed:
		return StateSuppressed
	default:
		return StateShown
	}
}

// SetStateCallback sets the callback for visibility state changes.
func (m *Manager) SetStateCallback(cb StateCallback) {
	m.onState = cb
}

// BackgroundAlpha returns the background layer opacity.
func (m *Manager) BackgroundAlpha() float64 { return m.backgroundAlpha }

// FaceAlpha returns the clock face opacity.
func (m *Manager) FaceAlpha() float64 { return m.faceAlpha }

// HandsAlpha returns the hands opacity.
func (m *Manager) HandsAlpha() float64 { return m.handsAlpha }

// SetBackgroundAlpha clamps and applies the background opacity to every
// overlay, shown or not.
func (m *Manager) SetBackgroundAlpha(v float64) {
	m.backgroundAlpha = clock.Clamp(v)
	for _, o := range m.ordered() {
		o.window.SetBackgroundAlpha(m.backgroundAlpha)
	}
}

// SetFaceAlpha clamps and applies the face opacity to every overlay.
func (m *Manager) SetFaceAlpha(v float64) {
	m.faceAlpha = clock.Clamp(v)
	for _, o := range m.ordered() {
		o.renderer.SetFaceAlpha(m.faceAlpha)
		m.repaintIfShown(o)
	}
}

// SetHandsAlpha clamps and applies the hands opacity to every overlay.
func (m *Manager) SetHandsAlpha(v float64) {
	m.handsAlpha = clock.Clamp(v)
	for _, o := range m.ordered() {
		o.renderer.SetHandsAlpha(m.handsAlpha)
		m.repaintIfShown(o)
	}
}

// Alpha returns the opacity of layer l.
func (m *Manager) Alpha(l Layer) float64 {
	switch l {
	case LayerBackground:
		return m.backgroundAlpha
	case LayerFace:
		return m.faceAlpha
	case LayerHands:
		return m.handsAlpha
	default:
		return 0
	}
}

// SetAlpha clamps and applies the opacity of layer l and returns the value
// actually stored.
func (m *Manager) SetAlpha(l Layer, v float64) (float64, error) {
	switch l {
	case LayerBackground:
		m.SetBackgroundAlpha(v)
	case LayerFace:
		m.SetFaceAlpha(v)
	case LayerHands:
		m.SetHandsAlpha(v)
	default:
		return 0, fmt.Errorf("unknown layer %q", l)
	}
	return m.Alpha(l), nil
}

// RestoreDefaults resets all three opacities.
func (m *Manager) RestoreDefaults() {
	m.SetBackgroundAlpha(DefaultBackgroundAlpha)
	m.SetFaceAlpha(DefaultFaceAlpha)
	m.SetHandsAlpha(DefaultHandsAlpha)
}

// SetStyle changes the clock style of every overlay.
func (m *Manager) SetStyle(style clock.Style) {
	m.style = style
	for _, o := range m.ordered() {
		o.renderer.SetStyle(style)
		m.repaintIfShown(o)
	}
}

// SetRepaintInterval changes the repaint period, restarting running timers.
func (m *Manager) SetRepaintInterval(d time.Duration) {
	if d <= 0 {
		d = DefaultRepaintInterval
	}
	if d == m.interval {
		return
	}
	m.interval = d
	for _, o := range m.ordered() {
		if o.stop != nil {
			m.stopTimer(o)
			m.startTimer(o)
		}
	}
}

// RepaintInterval returns the repaint period.
func (m *Manager) RepaintInterval() time.Duration { return m.interval }

// Screens returns the current display list.
func (m *Manager) Screens() []Monitor { return slices.Clone(m.screens) }

// SetScreens reconciles overlays with a new display list: overlays are
// created for new displays and destroyed for removed ones. Overlays of
// displays present in both lists are left alone.
func (m *Manager) SetScreens(screens []Monitor) {
	m.screens = uniqueScreens(screens)
	if !m.initialized || m.closed {
		return
	}
	m.reconcile()
	m.apply()
}

// Overlays describes the live overlays in display order.
func (m *Manager) Overlays() []OverlayInfo {
	var infos []OverlayInfo
	for _, o := range m.ordered() {
		infos = append(infos, OverlayInfo{ID: o.id, Monitor: o.monitor, Shown: o.shown})
	}
	return infos
}

// CaptureStillImage renders the clock of the first overlay at the current
// time. Without overlays it renders an offscreen square of size pixels.
func (m *Manager) CaptureStillImage(size int) *image.RGBA {
	if overlays := m.ordered(); len(overlays) > 0 {
		r := overlays[0].renderer
		r.SetTime(m.now())
		return r.CaptureStillImage()
	}
	r := clock.NewRenderer(size, size, m.faceAlpha, m.handsAlpha)
	r.SetStyle(m.style)
	r.SetTime(m.now())
	return r.CaptureStillImage()
}

// Close unsubscribes from full-screen transitions and destroys every
// overlay.
func (m *Manager) Close() {
	if m.signal != nil {
		m.signal.Unsubscribe(m)
	}
	for _, o := range m.overlays {
		m.destroy(o)
	}
	m.closed = true
	m.logger.Debug("overlay manager closed")
}

// Released reports whether the manager has been closed.
func (m *Manager) Released() bool { return m.closed }

func (m *Manager) enterFullscreen() {
	m.logger.Debug("suppressing overlays for fullscreen")
	m.suppressed = true
	m.reconcile()
	m.apply()
}

func (m *Manager) exitFullscreen() {
	m.logger.Debug("fullscreen ended, restoring overlays")
	m.suppressed = false
	m.reconcile()
	m.apply()
}

// reconcile makes the overlay set match m.screens. Failed creations are
// retried on the next call.
func (m *Manager) reconcile() {
	if m.closed {
		return
	}

	wanted := make(map[string]Monitor, len(m.screens))
	for _, s := range m.screens {
		wanted[s.ID] = s
	}

	for id, o := range m.overlays {
		if _, ok := wanted[id]; !ok {
			m.logger.Info("display removed", "monitor", id)
			m.destroy(o)
		}
	}

	for _, s := range m.screens {
		if o, ok := m.overlays[s.ID]; ok {
			if o.monitor.Width != s.Width || o.monitor.Height != s.Height {
				o.renderer.SetSize(s.Width, s.Height)
				m.repaintIfShown(o)
			}
			o.monitor = s
			continue
		}
		m.create(s)
	}
}

func (m *Manager) create(s Monitor) {
	if m.factory == nil {
		return
	}
	w, err := m.factory.CreateWindow(s)
	if err != nil {
		m.logger.Warn("failed to create overlay", "monitor", s.ID, "error", err)
		return
	}

	r := clock.NewRenderer(s.Width, s.Height, m.faceAlpha, m.handsAlpha)
	r.SetStyle(m.style)
	w.SetBackgroundAlpha(m.backgroundAlpha)

	o := &overlay{
		id:       ulid.Make().String(),
		monitor:  s,
		window:   w,
		renderer: r,
	}
	m.overlays[s.ID] = o
	m.logger.Info("overlay created", "monitor", s.ID, "overlay", o.id, "width", s.Width, "height", s.Height)
}

func (m *Manager) destroy(o *overlay) {
	m.stopTimer(o)
	o.window.Destroy()
	delete(m.overlays, o.monitor.ID)
}

// apply pushes the effective visibility to every overlay.
func (m *Manager) apply() {
	on := m.EffectiveVisible()
	for _, o := range m.ordered() {
		if on {
			m.showOverlay(o)
		} else {
			m.hideOverlay(o)
		}
	}

	if state := m.State(); state != m.lastState {
		m.lastState = state
		if m.onState != nil {
			m.onState(state)
		}
	}
}

func (m *Manager) showOverlay(o *overlay) {
	m.repaint(o)
	if !o.shown {
		o.window.SetVisible(true)
		o.shown = true
	}
	if o.stop == nil {
		m.startTimer(o)
	}
}

func (m *Manager) hideOverlay(o *overlay) {
	m.stopTimer(o)
	if o.shown {
		o.window.SetVisible(false)
		o.shown = false
	}
}

func (m *Manager) repaint(o *overlay) {
	o.renderer.SetTime(m.now())
	o.window.Present(o.renderer.Frame())
}

// tick is the timer repaint; it skips frames identical to the last one.
func (m *Manager) tick(o *overlay) {
	o.renderer.SetTime(m.now())
	if !o.renderer.Stale() {
		return
	}
	o.window.Present(o.renderer.Frame())
}

func (m *Manager) repaintIfShown(o *overlay) {
	if o.shown {
		m.repaint(o)
	}
}

func (m *Manager) startTimer(o *overlay) {
	if m.scheduler == nil {
		return
	}
	o.stop = m.scheduler.Every(m.interval, func() { m.tick(o) })
}

func (m *Manager) stopTimer(o *overlay) {
	if o.stop != nil {
		o.stop()
		o.stop = nil
	}
}

// ordered returns overlays in screen order.
func (m *Manager) ordered() []*overlay {
	out := make([]*overlay, 0, len(m.overlays))
	for _, s := range m.screens {
		if o, ok := m.overlays[s.ID]; ok {
			out = append(out, o)
		}
	}
	return out
}

func uniqueScreens(screens []Monitor) []Monitor {
	seen := make(map[string]bool, len(screens))
	out := make([]Monitor, 0, len(screens))
	for _, s := range screens {
		if seen[s.ID] {
			continue
		}
		seen[s.ID] = true
		out = append(out, s)
	}
	return out
}

// DisplayError represents a display-related error.
type DisplayError struct {
	Monitor string
	Message string
	Cause   error
}

func (e *DisplayError) Error() string {
	msg := e.Message
	if e.Monitor != "" {
		msg = e.Monitor + ": " + msg
	}
	if e.Cause != nil {
		return msg + ": " + e.Cause.Error()
	}
	return msg
}

func (e *DisplayError) Unwrap() error {
	return e.Cause
}
