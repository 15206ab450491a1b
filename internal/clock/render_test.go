package clock

import (
	"image"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func at(h, m, s int) time.Time {
	return time.Date(2024, 3, 14, h, m, s, 0, time.UTC)
}

func renderAt(t *testing.T, w, h int, when time.Time, face, hands float64) *image.RGBA {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	Render(img, when, face, hands, Style{})
	return img
}

func TestClamp(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{1.5, 1},
		{-0.2, 0},
		{0.3, 0.3},
		{0, 0},
		{1, 1},
		{math.NaN(), 0},
		{math.Inf(1), 1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Clamp(tt.in))
	}
}

func TestHandAngles(t *testing.T) {
	hour, minute, second := HandAngles(at(3, 0, 0), false)
	assert.InDelta(t, 90, hour, 1e-9)
	assert.InDelta(t, 0, minute, 1e-9)
	assert.InDelta(t, 0, second, 1e-9)

	// 15:30:30 - hour hand halfway between 3 and 4.
	hour, minute, second = HandAngles(at(15, 30, 30), false)
	assert.InDelta(t, 105, hour, 1e-9)
	assert.InDelta(t, 183, minute, 1e-9)
	assert.InDelta(t, 180, second, 1e-9)

	half := at(0, 0, 10).Add(500 * time.Millisecond)
	_, _, second = HandAngles(half, true)
	assert.InDelta(t, 63, second, 1e-9)
	_, _, second = HandAngles(half, false)
	assert.InDelta(t, 60, second, 1e-9)
}

func TestRender_HourHandPosition(t *testing.T) {
	three := renderAt(t, 200, 200, at(3, 0, 0), 0.9, 0.9)
	nine := renderAt(t, 200, 200, at(9, 0, 0), 0.9, 0.9)

	// Right of centre the hour hand is present at 3:00 and absent at 9:00.
	assert.Greater(t, three.RGBAAt(140, 100).R, nine.RGBAAt(140, 100).R)
	// And the reverse on the left.
	assert.Greater(t, nine.RGBAAt(60, 100).R, three.RGBAAt(60, 100).R)
}

func TestRender_OutsideFaceTransparent(t *testing.T) {
	img := renderAt(t, 400, 200, at(10, 10, 0), 1, 1)

	assert.Equal(t, uint8(0), img.RGBAAt(0, 0).A)
	assert.Equal(t, uint8(0), img.RGBAAt(399, 199).A)
	// Centre of the face is covered.
	assert.NotZero(t, img.RGBAAt(200, 100).A)
}

func TestRender_FaceAlpha(t *testing.T) {
	// A point on the face away from hands and ticks at 12:00.
	opaque := renderAt(t, 200, 200, at(12, 0, 0), 1, 1)
	faint := renderAt(t, 200, 200, at(12, 0, 0), 0.3, 1)
	none := renderAt(t, 200, 200, at(12, 0, 0), 0, 1)

	p := image.Pt(70, 140)
	assert.InDelta(t, 255, int(opaque.RGBAAt(p.X, p.Y).A), 1)
	assert.InDelta(t, 77, int(faint.RGBAAt(p.X, p.Y).A), 2)
	assert.Equal(t, uint8(0), none.RGBAAt(p.X, p.Y).A)
}

func TestRender_HandsAlphaZeroHidesHands(t *testing.T) {
	img := renderAt(t, 200, 200, at(3, 0, 0), 1, 0)
	assert.Equal(t, uint8(0), img.RGBAAt(140, 100).R)
}

func TestRender_Idempotent(t *testing.T) {
	a := renderAt(t, 120, 90, at(7, 42, 13), 0.6, 0.8)
	b := renderAt(t, 120, 90, at(7, 42, 13), 0.6, 0.8)
	assert.Equal(t, a.Pix, b.Pix)

	// Rendering over a dirty buffer gives the same result.
	Render(b, at(1, 2, 3), 1, 1, Style{MinuteTicks: true})
	Render(b, at(7, 42, 13), 0.6, 0.8, Style{})
	assert.Equal(t, a.Pix, b.Pix)
}

func TestRender_SecondHand(t *testing.T) {
	when := at(12, 0, 45) // second hand points left
	with := renderAt(t, 400, 400, when, 1, 1)
	without := image.NewRGBA(image.Rect(0, 0, 400, 400))
	Render(without, when, 1, 1, Style{HideSeconds: true})

	assert.Greater(t, with.RGBAAt(160, 200).R, without.RGBAAt(160, 200).R)
}

func TestRender_ZeroStyleDrawsSecondHand(t *testing.T) {
	// 10:00:30: hour and minute hands point up, the second hand down.
	img := renderAt(t, 400, 400, at(10, 0, 30), 0, 1)
	assert.NotZero(t, img.RGBAAt(200, 320).A)
}

// countTicks samples the tick band, beyond the reach of every hand, at
// each minute position of a face filling img.
func countTicks(img *image.RGBA) int {
	side := float64(img.Bounds().Dx())
	cx, cy := side/2, side/2
	r := 93 * side / unitSize
	n := 0
	for i := 0; i < 60; i++ {
		sin, cos := math.Sincos(float64(i) * 6 * math.Pi / 180)
		x := int(math.Round(cx + r*sin))
		y := int(math.Round(cy - r*cos))
		if img.RGBAAt(x, y).A > 0 {
			n++
		}
	}
	return n
}

func TestRender_TwelveTicks(t *testing.T) {
	img := renderAt(t, 1000, 1000, at(12, 0, 0), 0, 1)
	assert.Equal(t, 12, countTicks(img))

	Render(img, at(12, 0, 0), 0, 1, Style{MinuteTicks: true})
	assert.Equal(t, 60, countTicks(img))
}

func TestRender_EmptySurface(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 0, 10))
	assert.NotPanics(t, func() { Render(img, time.Now(), 1, 1, Style{}) })
}

func TestRenderer_ClampsAndCaptures(t *testing.T) {
	r := NewRenderer(100, 100, 1.5, -0.2)
	assert.Equal(t, 1.0, r.FaceAlpha())
	assert.Equal(t, 0.0, r.HandsAlpha())

	r.SetFaceAlpha(0.25)
	r.SetHandsAlpha(2)
	assert.Equal(t, 0.25, r.FaceAlpha())
	assert.Equal(t, 1.0, r.HandsAlpha())

	r.SetTime(at(6, 15, 0))
	still := r.CaptureStillImage()
	frame := r.Frame()
	require.Equal(t, still.Bounds(), frame.Bounds())
	assert.Equal(t, still.Pix, frame.Pix)

	// The still is independent of later frames.
	r.SetTime(at(9, 45, 0))
	r.Frame()
	assert.NotEqual(t, still.Pix, r.Frame().Pix)
}

func TestRenderer_Stale(t *testing.T) {
	r := NewRenderer(50, 50, 1, 1)
	r.SetTime(at(6, 15, 0))
	assert.True(t, r.Stale(), "nothing drawn yet")

	r.Frame()
	assert.False(t, r.Stale())

	// Same wall-clock second, different instant.
	r.SetTime(at(6, 15, 0).Add(300 * time.Millisecond))
	assert.False(t, r.Stale())

	r.SetTime(at(6, 15, 1))
	assert.True(t, r.Stale(), "second hand moved")
	r.Frame()

	r.SetFaceAlpha(0.5)
	assert.True(t, r.Stale())
	r.Frame()

	r.SetStyle(Style{HideSeconds: true})
	assert.True(t, r.Stale())
	r.Frame()
	r.SetTime(at(6, 15, 1).Add(500 * time.Millisecond))
	assert.False(t, r.Stale())
}

func TestRenderer_SetSize(t *testing.T) {
	r := NewRenderer(10, 10, 1, 1)
	r.SetSize(64, 32)
	w, h := r.Size()
	assert.Equal(t, 64, w)
	assert.Equal(t, 32, h)
	assert.Equal(t, image.Rect(0, 0, 64, 32), r.Frame().Bounds())
}

func TestThumbnail(t *testing.T) {
	img := renderAt(t, 400, 200, at(10, 10, 0), 1, 1)

	thumb := Thumbnail(img, 100)
	assert.Equal(t, image.Rect(0, 0, 100, 50), thumb.Bounds())

	tall := image.NewRGBA(image.Rect(0, 0, 50, 200))
	assert.Equal(t, image.Rect(0, 0, 25, 100), Thumbnail(tall, 100).Bounds())

	assert.True(t, Thumbnail(img, 0).Bounds().Empty())
}
