// Package ui draws the viewer's panels: HUD, performance, overlay toggles,
// the solver control panel and the particle inspector.
package ui

import (
	"fmt"

	rl "github.com/gen2brain/raylib-go/raylib"
	"github.com/go-gl/mathgl/mgl32"
)

// Style is the shared panel look.
type Style struct {
	PanelBg     rl.Color
	PanelBorder rl.Color
	Header      rl.Color
	Label       rl.Color
	Value       rl.Color
	Muted       rl.Color
	Gauge       rl.Color
	GaugeOver   rl.Color
	GaugeTrack  rl.Color

	Padding    int32
	LineHeight int32
	LabelWidth int32
	GaugeH     int32
	FontSize   int32
	HeaderSize int32
}

func defaultStyle() Style {
	return Style{
		PanelBg:     rl.Color{R: 18, G: 22, B: 28, A: 235},
		PanelBorder: rl.Color{R: 64, G: 76, B: 90, A: 255},
		Header:      rl.Color{R: 120, G: 200, B: 255, A: 255},
		Label:       rl.LightGray,
		Value:       rl.RayWhite,
		Muted:       rl.Color{R: 150, G: 150, B: 150, A: 255},
		Gauge:       rl.Color{R: 80, G: 160, B: 220, A: 255},
		GaugeOver:   rl.Color{R: 220, G: 110, B: 90, A: 255},
		GaugeTrack:  rl.Color{R: 40, G: 44, B: 50, A: 255},
		Padding:     10,
		LineHeight:  16,
		LabelWidth:  80,
		GaugeH:      10,
		FontSize:    12,
		HeaderSize:  14,
	}
}

// Painter draws panel primitives in one Style.
type Painter struct {
	Style Style
}

// NewPainter returns a painter with the default style.
func NewPainter() *Painter {
	return &Painter{Style: defaultStyle()}
}

// Panel fills a bordered box.
func (p *Painter) Panel(x, y, width, height int32) {
	rl.DrawRectangle(x, y, width, height, p.Style.PanelBg)
	rl.DrawRectangleLines(x, y, width, height, p.Style.PanelBorder)
}

// Header draws a section title and returns the next line's y.
func (p *Painter) Header(x, y int32, title string) int32 {
	rl.DrawText(title, x, y, p.Style.HeaderSize, p.Style.Header)
	return y + p.Style.LineHeight + 2
}

// Field draws "label  value" and returns the next line's y.
func (p *Painter) Field(x, y int32, label, value string) int32 {
	rl.DrawText(label, x, y, p.Style.FontSize, p.Style.Label)
	rl.DrawText(value, x+p.Style.LabelWidth, y, p.Style.FontSize, p.Style.Value)
	return y + p.Style.LineHeight
}

// Vec draws a vector field with three decimals.
func (p *Painter) Vec(x, y int32, label string, v mgl32.Vec3) int32 {
	return p.Field(x, y, label, fmt.Sprintf("%7.3f %7.3f %7.3f", v[0], v[1], v[2]))
}

// Gauge draws value against a reference. The track spans twice the
// reference with a tick at the reference itself; values past it switch to
// the over colour.
func (p *Painter) Gauge(x, y int32, label string, value, reference float32, width int32) int32 {
	s := p.Style
	gx := x + s.LabelWidth
	gw := width - s.LabelWidth - 50

	var ratio float32
	if reference > 0 {
		ratio = min(max(value/(2*reference), 0), 1)
	}
	fill := s.Gauge
	if value > reference && reference > 0 {
		fill = s.GaugeOver
	}

	rl.DrawText(label, x, y, s.FontSize, s.Label)
	rl.DrawRectangle(gx, y+2, gw, s.GaugeH, s.GaugeTrack)
	rl.DrawRectangle(gx, y+2, int32(float32(gw)*ratio), s.GaugeH, fill)
	rl.DrawLine(gx+gw/2, y, gx+gw/2, y+s.GaugeH+4, s.Muted)
	rl.DrawText(fmt.Sprintf("%.3g", value), gx+gw+5, y, s.FontSize, s.Value)
	return y + s.LineHeight + 2
}
