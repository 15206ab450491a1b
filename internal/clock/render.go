// Package clock rasterises an analog clock face with independently
// adjustable face and hands opacity.
package clock

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"time"

	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
	"golang.org/x/image/draw"
)

// Hands and ticks are laid out on a 200x200 grid with the origin at the
// bottom left and the pivot at (100,100), pointing at twelve o'clock.
const (
	unitSize   = 200.0
	unitCenter = 100.0
	faceRadius = 100.0
	capRadius  = 4.0
)

type point struct{ x, y float64 }

var (
	hourHand   = []point{{100, 158}, {107, 101}, {100, 86}, {93, 101}}
	minuteHand = []point{{100, 190}, {105, 101}, {100, 86}, {95, 101}}
	secondHand = []point{{100, 192}, {101, 100}, {100, 80}, {99, 100}}
	hourTick   = []point{{98.5, 194}, {101.5, 194}, {101.5, 180}, {98.5, 180}}
	minorTick  = []point{{99.25, 194}, {100.75, 194}, {100.75, 184}, {99.25, 184}}
	centerCap  = capPolygon(24)
)

// Every outline winds clockwise on the unit grid so overlapping shapes fill
// solid under the non-zero rule.
func capPolygon(n int) []point {
	pts := make([]point, n)
	for i := range pts {
		sin, cos := math.Sincos(2 * math.Pi * float64(i) / float64(n))
		pts[i] = point{unitCenter + capRadius*sin, unitCenter + capRadius*cos}
	}
	return pts
}

var (
	faceColor  = color.NRGBA{R: 0, G: 0, B: 0}
	handsColor = color.NRGBA{R: 255, G: 255, B: 255}
)

// Style selects optional clock features. The zero Style draws twelve
// hour ticks and the hour, minute and second hands.
type Style struct {
	// HideSeconds leaves out the second hand.
	HideSeconds bool
	// SmoothSeconds sweeps the second hand instead of ticking.
	SmoothSeconds bool
	// MinuteTicks adds the 48 minute marks between the hour ticks.
	MinuteTicks bool
	// Dial, when set, is drawn over the face at face opacity and replaces
	// the ticks.
	Dial *oksvg.SvgIcon
}

// LoadDial reads an SVG dial from path.
func LoadDial(path string) (*oksvg.SvgIcon, error) {
	icon, err := oksvg.ReadIcon(path, oksvg.WarnErrorMode)
	if err != nil {
		return nil, fmt.Errorf("load dial %s: %w", path, err)
	}
	return icon, nil
}

// Clamp limits v to [0,1]. NaN becomes 0.
func Clamp(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

// HandAngles returns the clockwise angles in degrees from twelve o'clock of
// the hour, minute and second hands at t.
func HandAngles(t time.Time, smooth bool) (hour, minute, second float64) {
	h, m, s := t.Clock()
	sec := float64(s)
	if smooth {
		sec += float64(t.Nanosecond()) / float64(time.Second)
	}
	minute = (float64(m) + sec/60) * 6
	hour = (float64(h%12) + float64(m)/60) * 30
	second = sec * 6
	return hour, minute, second
}

// Render draws the clock for t into dst, replacing its contents. The face is
// the largest circle centred in dst; the rest of dst is left transparent.
// dst must have its origin at (0,0).
func Render(dst *image.RGBA, t time.Time, faceAlpha, handsAlpha float64, style Style) {
	draw.Draw(dst, dst.Bounds(), image.Transparent, image.Point{}, draw.Src)

	b := dst.Bounds()
	w, h := b.Dx(), b.Dy()
	side := min(w, h)
	if side <= 0 {
		return
	}

	g := grid{
		scale: float64(side) / unitSize,
		cx:    float64(w) / 2,
		cy:    float64(h) / 2,
	}
	faceAlpha = Clamp(faceAlpha)
	handsAlpha = Clamp(handsAlpha)

	scanner := rasterx.NewScannerGV(w, h, dst, b)
	filler := rasterx.NewFiller(w, h, scanner)

	if faceAlpha > 0 {
		filler.SetColor(withAlpha(faceColor, faceAlpha))
		rasterx.AddCircle(g.cx, g.cy, faceRadius*g.scale, filler)
		filler.Draw()
		filler.Clear()

		if style.Dial != nil {
			r := faceRadius * g.scale
			style.Dial.SetTarget(g.cx-r, g.cy-r, 2*r, 2*r)
			style.Dial.Draw(rasterx.NewDasher(w, h, scanner), faceAlpha)
		}
	}

	if handsAlpha <= 0 {
		return
	}

	filler.SetColor(withAlpha(handsColor, handsAlpha))
	filler.SetWinding(true)
	if style.Dial == nil {
		for i := 0; i < 60; i++ {
			switch {
			case i%5 == 0:
				g.polygon(filler, hourTick, float64(i)*6)
			case style.MinuteTicks:
				g.polygon(filler, minorTick, float64(i)*6)
			}
		}
	}

	hourDeg, minuteDeg, secondDeg := HandAngles(t, style.SmoothSeconds)
	g.polygon(filler, hourHand, hourDeg)
	g.polygon(filler, minuteHand, minuteDeg)
	if !style.HideSeconds {
		g.polygon(filler, secondHand, secondDeg)
	}
	g.polygon(filler, centerCap, 0)
	filler.Draw()
	filler.Clear()
}

// grid maps the unit clock grid onto the destination image.
type grid struct {
	scale  float64
	cx, cy float64
}

// at maps a unit point rotated clockwise by deg around the pivot.
func (g grid) at(p point, deg float64) (float64, float64) {
	dx := (p.x - unitCenter) * g.scale
	dy := -(p.y - unitCenter) * g.scale
	rad := deg * math.Pi / 180
	sin, cos := math.Sincos(rad)
	return g.cx + dx*cos - dy*sin, g.cy + dx*sin + dy*cos
}

func (g grid) polygon(f *rasterx.Filler, pts []point, deg float64) {
	for i, p := range pts {
		x, y := g.at(p, deg)
		if i == 0 {
			f.Start(rasterx.ToFixedP(x, y))
			continue
		}
		f.Line(rasterx.ToFixedP(x, y))
	}
	f.Stop(true)
}

func withAlpha(c color.NRGBA, a float64) color.NRGBA {
	c.A = uint8(math.Round(Clamp(a) * 255))
	return c
}

// Thumbnail scales img so its longest side is size pixels.
func Thumbnail(img image.Image, size int) *image.RGBA {
	b := img.Bounds()
	if size <= 0 || b.Empty() {
		return image.NewRGBA(image.Rect(0, 0, 0, 0))
	}

	w, h := size, size
	if b.Dx() > b.Dy() {
		h = max(1, size*b.Dy()/b.Dx())
	} else if b.Dy() > b.Dx() {
		w = max(1, size*b.Dx()/b.Dy())
	}

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}
