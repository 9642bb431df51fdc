// Package render draws the capture surface: the frozen background, the dim
// overlay, the selection spotlight with its border, anchors and size label,
// and the action toolbar. Rendering is a pure function of its inputs.
package render

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"snapnote/src/geom"
	"snapnote/src/selection"
)

// Status is the readiness of the capture surface.
type Status int

const (
	StatusLoading Status = iota
	StatusReady
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusReady:
		return "ready"
	case StatusError:
		return "error"
	default:
		return "loading"
	}
}

var (
	DimColor        = color.RGBA{0, 0, 0, 102}
	StatusDimColor  = color.RGBA{0, 0, 0, 179}
	BorderColor     = color.RGBA{0x21, 0x96, 0xF3, 0xFF}
	AnchorColor     = color.RGBA{0x4C, 0xAF, 0x50, 0xFF}
	AnchorOutline   = color.RGBA{0xFF, 0xFF, 0xFF, 0xFF}
	LabelBackground = color.RGBA{0, 0, 0, 160}
	LabelText       = color.RGBA{0xFF, 0xFF, 0xFF, 0xFF}
	ToolbarColor    = color.RGBA{0x30, 0x30, 0x30, 0xE6}
	ButtonColor     = color.RGBA{0x45, 0x45, 0x45, 0xFF}
	ErrorText       = color.RGBA{0xF4, 0x43, 0x36, 0xFF}
)

const (
	// BorderWidth is the selection border thickness in logical pixels.
	BorderWidth = 2
	// LabelOffset is how far above the selection the size label sits.
	LabelOffset = 25
)

// Scene is the immutable part of a frame.
type Scene struct {
	// Background is nil while the capture is loading or failed.
	Background *image.RGBA
	Mapper     geom.Mapper
}

// State is the mutable part of a frame.
type State struct {
	Status    Status
	Message   string
	Selection selection.Selection
	Dragging  bool
}

// Size returns the native frame size.
func (s Scene) Size() image.Point {
	if s.Background != nil {
		return s.Background.Bounds().Size()
	}
	if s.Mapper.Native.X > 0 && s.Mapper.Native.Y > 0 {
		return s.Mapper.Native
	}
	if s.Mapper.Logical.X > 0 && s.Mapper.Logical.Y > 0 {
		return s.Mapper.Logical
	}
	return image.Pt(1, 1)
}

// Render draws one frame at native resolution.
func Render(scene Scene, st State) *image.RGBA {
	size := scene.Size()
	dst := image.NewRGBA(image.Rectangle{Max: size})

	if st.Status != StatusReady || scene.Background == nil {
		renderStatus(dst, st)
		return dst
	}

	draw.Draw(dst, dst.Bounds(), scene.Background, image.Point{}, draw.Src)
	draw.Draw(dst, dst.Bounds(), image.NewUniform(DimColor), image.Point{}, draw.Over)

	if !st.Selection.HasArea() {
		return dst
	}
	m := scene.Mapper
	sel := st.Selection.Rect()
	spot := m.NativeRect(sel)
	draw.Draw(dst, spot, scene.Background, spot.Min, draw.Src)

	bw := m.NativeLength(BorderWidth)
	strokeRect(dst, spot.Inset(-bw/2), bw, BorderColor)

	outline := m.NativeLength(1)
	for _, b := range st.Selection.Boxes() {
		r := m.NativeRect(b.Rect)
		draw.Draw(dst, r, image.NewUniform(AnchorColor), image.Point{}, draw.Src)
		strokeRect(dst, r, outline, AnchorOutline)
	}

	drawSizeLabel(dst, m, sel)

	if !st.Dragging && st.Selection.Actionable() {
		drawToolbar(dst, m, ToolbarLayout(sel, m.Logical))
	}
	return dst
}

// SizeLabel returns the readout shown above the selection.
func SizeLabel(r geom.Rect) string {
	return fmt.Sprintf("%d x %d", int(math.Round(r.W)), int(math.Round(r.H)))
}

// StatusLines returns the text shown for a surface that is not ready.
func StatusLines(st State) []string {
	switch st.Status {
	case StatusError:
		lines := []string{"Screen capture failed"}
		if st.Message != "" {
			lines = append(lines, st.Message)
		}
		return append(lines, "Press Esc to close")
	case StatusLoading:
		return []string{"Capturing screen...", "Press Esc to close"}
	default:
		return []string{"Waiting for screen capture...", "Press Esc to close"}
	}
}

func renderStatus(dst *image.RGBA, st State) {
	draw.Draw(dst, dst.Bounds(), image.NewUniform(StatusDimColor), image.Point{}, draw.Src)
	lines := StatusLines(st)
	face := basicfont.Face7x13
	lineH := face.Metrics().Height.Ceil() + 6
	b := dst.Bounds()
	y := b.Dy()/2 - (len(lines)*lineH)/2 + face.Metrics().Ascent.Ceil()
	for i, line := range lines {
		col := color.Color(LabelText)
		if st.Status == StatusError && i == 0 {
			col = ErrorText
		}
		d := &font.Drawer{Dst: dst, Src: image.NewUniform(col), Face: face}
		w := d.MeasureString(line).Ceil()
		d.Dot = fixed.P(b.Dx()/2-w/2, y)
		d.DrawString(line)
		y += lineH
	}
}

func drawSizeLabel(dst *image.RGBA, m geom.Mapper, sel geom.Rect) {
	text := SizeLabel(sel)
	face := basicfont.Face7x13
	d := &font.Drawer{Dst: dst, Src: image.NewUniform(LabelText), Face: face}
	w := d.MeasureString(text).Ceil()
	h := face.Metrics().Height.Ceil()

	origin := m.NativePoint(geom.Pt(sel.X, math.Max(0, sel.Y-LabelOffset)))
	x, y := int(math.Round(origin.X)), int(math.Round(origin.Y))
	bg := image.Rect(x, y, x+w+8, y+h+6).Intersect(dst.Bounds())
	draw.Draw(dst, bg, image.NewUniform(LabelBackground), image.Point{}, draw.Over)
	d.Dot = fixed.P(x+4, y+3+face.Metrics().Ascent.Ceil())
	d.DrawString(text)
}

func drawToolbar(dst *image.RGBA, m geom.Mapper, tb Toolbar) {
	draw.Draw(dst, m.NativeRect(tb.Rect), image.NewUniform(ToolbarColor), image.Point{}, draw.Over)
	face := basicfont.Face7x13
	for _, b := range tb.Buttons {
		r := m.NativeRect(b.Rect)
		draw.Draw(dst, r, image.NewUniform(ButtonColor), image.Point{}, draw.Src)
		d := &font.Drawer{Dst: dst, Src: image.NewUniform(LabelText), Face: face}
		w := d.MeasureString(b.Label).Ceil()
		d.Dot = fixed.P(r.Min.X+(r.Dx()-w)/2, r.Min.Y+(r.Dy()+face.Metrics().Ascent.Ceil())/2)
		d.DrawString(b.Label)
	}
}

// strokeRect draws a border of thickness t just inside r.
func strokeRect(dst *image.RGBA, r image.Rectangle, t int, c color.Color) {
	if r.Empty() {
		return
	}
	src := image.NewUniform(c)
	edges := []image.Rectangle{
		image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+t),
		image.Rect(r.Min.X, r.Max.Y-t, r.Max.X, r.Max.Y),
		image.Rect(r.Min.X, r.Min.Y, r.Min.X+t, r.Max.Y),
		image.Rect(r.Max.X-t, r.Min.Y, r.Max.X, r.Max.Y),
	}
	for _, e := range edges {
		draw.Draw(dst, e.Intersect(dst.Bounds()), src, image.Point{}, draw.Src)
	}
}
