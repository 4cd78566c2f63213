package overlay

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"tacreview/internal/analysis"
)

const (
	soldierRadius    = 25
	strokeWidth      = 3
	arrowHeadSize    = 10
	panelMargin      = 20
	panelPadding     = 10
	badgePadding     = 15
	badgeScale       = 3
	labelScale       = 1
	blindspotAlphaHi = 120
	blindspotAlphaLo = 80
)

// Renderer draws analysis findings onto a frame.
type Renderer interface {
	// Render returns a new image; frame is not modified. annotation may be
	// nil, in which case only the score badge, timestamp, and cover line are
	// drawn.
	Render(frame image.Image, result analysis.FrameAnalysis, annotation *analysis.Annotation) (image.Image, error)
}

// Painter is the built-in Renderer.
type Painter struct{}

// NewPainter returns the default renderer.
func NewPainter() *Painter {
	return &Painter{}
}

var titleCaser = cases.Title(language.English)

// Render implements Renderer. Blindspots are drawn first so soldiers and
// labels sit on top of them.
func (p *Painter) Render(frame image.Image, result analysis.FrameAnalysis, annotation *analysis.Annotation) (image.Image, error) {
	if frame == nil {
		return nil, errors.New("overlay: nil frame")
	}
	if frame.Bounds().Empty() {
		return nil, errors.New("overlay: empty frame")
	}
	c := newCanvas(frame)
	if annotation != nil {
		for _, spot := range annotation.Blindspots {
			drawBlindspot(c, spot)
		}
		for _, soldier := range annotation.Soldiers {
			drawSoldier(c, soldier)
		}
	}
	drawScoreBadge(c, result.Score)
	drawTimestamp(c, result.TimestampSeconds)
	drawFooter(c, result)
	return c.img, nil
}

// ScoreColor maps a score to its badge color band.
func ScoreColor(score int) color.NRGBA {
	switch {
	case score >= 90:
		return color.NRGBA{R: 0, G: 255, B: 0, A: 255}
	case score >= 70:
		return color.NRGBA{R: 255, G: 255, B: 0, A: 255}
	case score >= 50:
		return color.NRGBA{R: 255, G: 165, B: 0, A: 255}
	default:
		return color.NRGBA{R: 255, G: 0, B: 0, A: 255}
	}
}

// FormationLabel renders a formation tag for display, e.g. "column" -> "Column".
func FormationLabel(result analysis.FrameAnalysis) string {
	return titleCaser.String(result.Formation())
}

func pct(value float64, extent int) int {
	return int(value / 100 * float64(extent))
}

func drawSoldier(c *canvas, soldier analysis.SoldierMarker) {
	x := pct(soldier.Position.X, c.width())
	y := pct(soldier.Position.Y, c.height())
	c.ring(x, y, soldierRadius, colorMarker, strokeWidth)

	angle := soldier.ThreatAxis.Direction * math.Pi / 180
	length := soldier.ThreatAxis.Length / 100 * float64(min(c.width(), c.height()))
	endX := x + int(length*math.Cos(angle))
	endY := y + int(length*math.Sin(angle))
	c.line(x, y, endX, endY, colorMarker, strokeWidth)

	head := func(offset float64) image.Point {
		return image.Point{
			X: endX + int(arrowHeadSize*math.Cos(angle+offset)),
			Y: endY + int(arrowHeadSize*math.Sin(angle+offset)),
		}
	}
	spread := 150 * math.Pi / 180
	c.triangle(image.Point{X: endX, Y: endY}, head(spread), head(-spread), colorMarker)
}

func drawBlindspot(c *canvas, spot analysis.Blindspot) {
	r := image.Rect(
		pct(spot.Area.X, c.width()),
		pct(spot.Area.Y, c.height()),
		pct(spot.Area.X+spot.Area.Width, c.width()),
		pct(spot.Area.Y+spot.Area.Height, c.height()),
	)
	fill := colorBlindspot
	fill.A = blindspotAlphaLo
	if spot.HighSeverity() {
		fill.A = blindspotAlphaHi
	}
	c.fillRect(r, fill)
	c.strokeRect(r, colorBlindspot, 2)

	size := textSize(spot.Caption, labelScale)
	at := image.Point{
		X: r.Min.X + (r.Dx()-size.X)/2,
		Y: max(5, r.Min.Y-size.Y-5),
	}
	c.fillRect(image.Rect(at.X-5, at.Y-2, at.X+size.X+5, at.Y+size.Y+2), colorPanel)
	c.text(at, spot.Caption, colorText, labelScale)
}

func drawScoreBadge(c *canvas, score int) {
	label := fmt.Sprintf("%d/100", score)
	size := textSize(label, badgeScale)
	x := c.width() - size.X - badgePadding*2 - panelMargin
	box := image.Rect(x, panelMargin, x+size.X+badgePadding*2, panelMargin+size.Y+badgePadding*2)
	c.fillRect(box, colorPanel)
	c.text(image.Point{X: x + badgePadding, Y: panelMargin + badgePadding}, label, ScoreColor(score), badgeScale)
}

func drawTimestamp(c *canvas, seconds float64) {
	label := fmt.Sprintf("T: %.1fs", seconds)
	drawPanel(c, image.Point{X: panelMargin, Y: panelMargin}, label)
}

// drawFooter writes the cover line and formation at the bottom-left.
func drawFooter(c *canvas, result analysis.FrameAnalysis) {
	cover := "Cover: " + result.CoverSummary.Compact()
	formation := "Formation: " + FormationLabel(result)
	lineHeight := textSize(cover, labelScale).Y + panelPadding*2
	base := c.height() - panelMargin - lineHeight
	drawPanel(c, image.Point{X: panelMargin, Y: base}, cover)
	drawPanel(c, image.Point{X: panelMargin, Y: base - lineHeight - 4}, formation)
}

func drawPanel(c *canvas, at image.Point, label string) {
	size := textSize(label, labelScale)
	c.fillRect(image.Rect(at.X, at.Y, at.X+size.X+panelPadding*2, at.Y+size.Y+panelPadding*2), colorPanel)
	c.text(image.Point{X: at.X + panelPadding, Y: at.Y + panelPadding}, label, colorText, labelScale)
}
