package clock

import (
	"image"
	"time"
)

// Renderer holds the drawing state of one clock surface. It is not safe
// for concurrent use.
type Renderer struct {
	width, height int
	now           time.Time
	faceAlpha     float64
	handsAlpha    float64
	style         Style
	frame         *image.RGBA
	drawn         frameKey
}

// frameKey is everything a frame depends on.
type frameKey struct {
	width, height         int
	hour, minute, second  float64
	faceAlpha, handsAlpha float64
	style                 Style
}

func (r *Renderer) key() frameKey {
	hour, minute, second := HandAngles(r.now, r.style.SmoothSeconds)
	if r.style.HideSeconds {
		second = 0
	}
	return frameKey{
		width:      r.width,
		height:     r.height,
		hour:       hour,
		minute:     minute,
		second:     second,
		faceAlpha:  r.faceAlpha,
		handsAlpha: r.handsAlpha,
		style:      r.style,
	}
}

// NewRenderer creates a renderer for a width x height surface.
func NewRenderer(width, height int, faceAlpha, handsAlpha float64) *Renderer {
	return &Renderer{
		width:      max(width, 0),
		height:     max(height, 0),
		now:        time.Now(),
		faceAlpha:  Clamp(faceAlpha),
		handsAlpha: Clamp(handsAlpha),
	}
}

// SetTime sets the time shown on the next frame.
func (r *Renderer) SetTime(t time.Time) { r.now = t }

// Time returns the time shown.
func (r *Renderer) Time() time.Time { return r.now }

// SetFaceAlpha sets the face opacity, clamped to [0,1].
func (r *Renderer) SetFaceAlpha(a float64) { r.faceAlpha = Clamp(a) }

// FaceAlpha returns the face opacity.
func (r *Renderer) FaceAlpha() float64 { return r.faceAlpha }

// SetHandsAlpha sets the hands opacity, clamped to [0,1].
func (r *Renderer) SetHandsAlpha(a float64) { r.handsAlpha = Clamp(a) }

// HandsAlpha returns the hands opacity.
func (r *Renderer) HandsAlpha() float64 { return r.handsAlpha }

// SetStyle replaces the style.
func (r *Renderer) SetStyle(s Style) { r.style = s }

// Style returns the style.
func (r *Renderer) Style() Style { return r.style }

// SetSize resizes the surface.
func (r *Renderer) SetSize(width, height int) {
	r.width, r.height = max(width, 0), max(height, 0)
}

// Size returns the surface size.
func (r *Renderer) Size() (int, int) { return r.width, r.height }

// Frame renders the current state. The returned image is reused by the next
// call to Frame.
func (r *Renderer) Frame() *image.RGBA {
	rect := image.Rect(0, 0, r.width, r.height)
	if r.frame == nil || r.frame.Bounds() != rect {
		r.frame = image.NewRGBA(rect)
	}
	Render(r.frame, r.now, r.faceAlpha, r.handsAlpha, r.style)
	r.drawn = r.key()
	return r.frame
}

// Stale reports whether Frame would differ from the last frame it returned.
func (r *Renderer) Stale() bool {
	return r.frame == nil || r.key() != r.drawn
}

// CaptureStillImage renders the current state into a new image owned by the
// caller.
func (r *Renderer) CaptureStillImage() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, r.width, r.height))
	Render(img, r.now, r.faceAlpha, r.handsAlpha, r.style)
	return img
}
