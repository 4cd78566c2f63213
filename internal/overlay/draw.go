package overlay

import (
	"image"
	"image/color"
	"math"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

var (
	colorMarker    = color.NRGBA{R: 0, G: 255, B: 0, A: 255}
	colorBlindspot = color.NRGBA{R: 255, G: 0, B: 0, A: 255}
	colorPanel     = color.NRGBA{R: 0, G: 0, B: 0, A: 200}
	colorText      = color.NRGBA{R: 255, G: 255, B: 255, A: 255}
)

var face = basicfont.Face7x13

// canvas is an RGBA copy of a frame that overlay primitives draw onto.
type canvas struct {
	img *image.RGBA
}

func newCanvas(src image.Image) *canvas {
	b := src.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)
	return &canvas{img: dst}
}

func (c *canvas) width() int  { return c.img.Bounds().Dx() }
func (c *canvas) height() int { return c.img.Bounds().Dy() }

// fillRect alpha-blends col over r.
func (c *canvas) fillRect(r image.Rectangle, col color.NRGBA) {
	draw.Draw(c.img, r.Intersect(c.img.Bounds()), image.NewUniform(col), image.Point{}, draw.Over)
}

// strokeRect draws a border of the given width inside r.
func (c *canvas) strokeRect(r image.Rectangle, col color.NRGBA, width int) {
	c.fillRect(image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+width), col)
	c.fillRect(image.Rect(r.Min.X, r.Max.Y-width, r.Max.X, r.Max.Y), col)
	c.fillRect(image.Rect(r.Min.X, r.Min.Y+width, r.Min.X+width, r.Max.Y-width), col)
	c.fillRect(image.Rect(r.Max.X-width, r.Min.Y+width, r.Max.X, r.Max.Y-width), col)
}

func (c *canvas) blendPixel(x, y int, col color.NRGBA) {
	if !(image.Point{X: x, Y: y}).In(c.img.Bounds()) {
		return
	}
	c.fillRect(image.Rect(x, y, x+1, y+1), col)
}

// ring draws a circle outline of the given stroke width centred on (cx, cy).
func (c *canvas) ring(cx, cy, radius int, col color.NRGBA, width float64) {
	inner := float64(radius) - width/2
	outer := float64(radius) + width/2
	reach := radius + int(math.Ceil(width))
	for y := cy - reach; y <= cy+reach; y++ {
		for x := cx - reach; x <= cx+reach; x++ {
			d := math.Hypot(float64(x-cx), float64(y-cy))
			if d >= inner && d <= outer {
				c.blendPixel(x, y, col)
			}
		}
	}
}

// line draws a segment by stamping width x width squares along it.
func (c *canvas) line(x0, y0, x1, y1 int, col color.NRGBA, width int) {
	steps := max(abs(x1-x0), abs(y1-y0))
	half := width / 2
	for i := 0; i <= steps; i++ {
		t := 0.0
		if steps > 0 {
			t = float64(i) / float64(steps)
		}
		x := int(math.Round(float64(x0) + t*float64(x1-x0)))
		y := int(math.Round(float64(y0) + t*float64(y1-y0)))
		c.fillRect(image.Rect(x-half, y-half, x-half+width, y-half+width), col)
	}
}

// triangle fills the triangle a, b, p.
func (c *canvas) triangle(a, b, p image.Point, col color.NRGBA) {
	bounds := image.Rectangle{
		Min: image.Point{X: min(a.X, b.X, p.X), Y: min(a.Y, b.Y, p.Y)},
		Max: image.Point{X: max(a.X, b.X, p.X), Y: max(a.Y, b.Y, p.Y)},
	}
	for y := bounds.Min.Y; y <= bounds.Max.Y; y++ {
		for x := bounds.Min.X; x <= bounds.Max.X; x++ {
			q := image.Point{X: x, Y: y}
			d1, d2, d3 := edge(a, b, q), edge(b, p, q), edge(p, a, q)
			hasNeg := d1 < 0 || d2 < 0 || d3 < 0
			hasPos := d1 > 0 || d2 > 0 || d3 > 0
			if !(hasNeg && hasPos) {
				c.blendPixel(x, y, col)
			}
		}
	}
}

func edge(a, b, q image.Point) int {
	return (b.X-a.X)*(q.Y-a.Y) - (b.Y-a.Y)*(q.X-a.X)
}

// textSize returns the pixel size of s at the given integer scale.
func textSize(s string, scale int) image.Point {
	m := face.Metrics()
	w := font.MeasureString(face, s).Ceil()
	h := (m.Ascent + m.Descent).Ceil()
	return image.Point{X: w * scale, Y: h * scale}
}

// text draws s with its top-left corner at pt. Scales above 1 render at
// native size and upscale with nearest-neighbour to keep the bitmap font crisp.
func (c *canvas) text(pt image.Point, s string, col color.NRGBA, scale int) {
	if scale < 1 {
		scale = 1
	}
	size := textSize(s, 1)
	if size.X == 0 {
		return
	}
	glyphs := image.NewRGBA(image.Rect(0, 0, size.X, size.Y))
	d := &font.Drawer{
		Dst:  glyphs,
		Src:  image.NewUniform(col),
		Face: face,
		Dot:  fixed.P(0, face.Metrics().Ascent.Ceil()),
	}
	d.DrawString(s)
	target := image.Rect(pt.X, pt.Y, pt.X+size.X*scale, pt.Y+size.Y*scale)
	draw.NearestNeighbor.Scale(c.img, target, glyphs, glyphs.Bounds(), draw.Over, nil)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
