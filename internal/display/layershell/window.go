// Package layershell implements overlay windows for the display package
// with GTK4 and the wlr-layer-shell protocol.
package layershell

import (
	"fmt"
	"image"
	"log/slog"

	layershell "github.com/diamondburned/gotk4-layer-shell/pkg/gtk4layershell"
	"github.com/diamondburned/gotk4/pkg/cairo"
	"github.com/diamondburned/gotk4/pkg/gdk/v4"
	"github.com/diamondburned/gotk4/pkg/glib/v2"
	"github.com/diamondburned/gotk4/pkg/gtk/v4"

	"github.com/jmylchreest/fsclock/internal/display"
)

// CSSClass is set on every overlay window for theming.
const CSSClass = "fsclock-overlay"

// Namespace is the layer-shell namespace compositors see.
const Namespace = "fsclock"

// Background applies the background layer opacity. All overlays share one
// style, so the factory forwards to a single implementation.
type Background interface {
	SetBackgroundAlpha(alpha float64)
}

// Layer names accepted by Factory.
const (
	LayerOverlay = "overlay"
	LayerTop     = "top"
)

// Factory creates layer-shell overlay windows.
type Factory struct {
	app        *gtk.Application
	display    *gdk.Display
	background Background
	layer      layershell.LayerShellLayer
	logger     *slog.Logger
}

// NewFactory creates a window factory. layer is LayerOverlay or LayerTop.
func NewFactory(app *gtk.Application, background Background, layer string, logger *slog.Logger) (*Factory, error) {
	if logger == nil {
		logger = slog.Default()
	}
	d := gdk.DisplayGetDefault()
	if d == nil {
		return nil, &display.DisplayError{Message: "no display available"}
	}
	if !layershell.IsSupported() {
		return nil, &display.DisplayError{Message: "compositor does not support wlr-layer-shell"}
	}

	l := layershell.LayerShellLayerOverlay
	if layer == LayerTop {
		l = layershell.LayerShellLayerTop
	}

	return &Factory{
		app:        app,
		display:    d,
		background: background,
		layer:      l,
		logger:     logger,
	}, nil
}

// CreateWindow implements display.WindowFactory.
func (f *Factory) CreateWindow(m display.Monitor) (display.Window, error) {
	monitor := findMonitor(f.display, m.ID)
	if monitor == nil {
		return nil, &display.DisplayError{Monitor: m.ID, Message: "monitor not found"}
	}

	w := gtk.NewWindow()
	w.SetApplication(f.app)
	w.SetDecorated(false)
	w.SetResizable(false)
	w.SetFocusable(false)
	w.SetCanTarget(false)
	w.AddCSSClass(CSSClass)

	layershell.InitForWindow(w)
	layershell.SetLayer(w, f.layer)
	layershell.SetNamespace(w, Namespace)
	layershell.SetMonitor(w, monitor)
	for _, edge := range []layershell.LayerShellEdge{
		layershell.LayerShellEdgeTop,
		layershell.LayerShellEdgeBottom,
		layershell.LayerShellEdgeLeft,
		layershell.LayerShellEdgeRight,
	} {
		layershell.SetAnchor(w, edge, true)
	}
	// -1 keeps the surface over panels instead of being pushed aside.
	layershell.SetExclusiveZone(w, -1)
	layershell.SetKeyboardMode(w, layershell.LayerShellKeyboardModeNone)
	// The compositor routes pointer input by surface input region, not by
	// GTK's can-target, so the region is emptied once the surface exists.
	w.ConnectRealize(func() {
		if err := passThrough(gdk.BaseSurface(w.Surface())); err != nil {
			f.logger.Warn("overlay will intercept input", "monitor", m.ID, "error", err)
		}
	})

	picture := gtk.NewPicture()
	picture.SetCanShrink(true)
	picture.SetContentFit(gtk.ContentFitFill)
	picture.SetCanTarget(false)
	w.SetChild(picture)

	f.logger.Debug("layer-shell window created", "monitor", m.ID)

	return &Window{
		window:     w,
		picture:    picture,
		background: f.background,
	}, nil
}

// inputRegioner is the part of gdk.Surface that takes an input region.
type inputRegioner interface {
	SetInputRegion(region *cairo.Region)
}

// passThrough gives s an empty input region so every click and scroll
// reaches whatever is below it.
func passThrough(s inputRegioner) error {
	region, err := cairo.RegionCreate()
	if err != nil {
		return fmt.Errorf("create input region: %w", err)
	}
	s.SetInputRegion(region)
	return nil
}

// Window is a full-monitor layer-shell surface showing clock frames.
type Window struct {
	window     *gtk.Window
	picture    *gtk.Picture
	background Background
}

// SetBackgroundAlpha implements display.Window.
func (w *Window) SetBackgroundAlpha(alpha float64) {
	if w.background != nil {
		w.background.SetBackgroundAlpha(alpha)
	}
}

// Present implements display.Window. The pixels are copied once into
// GLib-owned memory backing the texture; the frame stays with the caller.
func (w *Window) Present(frame *image.RGBA) {
	b := frame.Bounds()
	if b.Empty() {
		return
	}
	texture := gdk.NewMemoryTexture(
		b.Dx(), b.Dy(),
		gdk.MemoryR8G8B8A8Premultiplied,
		glib.NewBytes(frame.Pix),
		uint(frame.Stride),
	)
	w.picture.SetPaintable(texture)
}

// SetVisible implements display.Window.
func (w *Window) SetVisible(visible bool) {
	w.window.SetVisible(visible)
}

// Destroy implements display.Window.
func (w *Window) Destroy() {
	w.window.SetVisible(false)
	w.window.Destroy()
}
