package render

import (
	"image"
	"math"

	"snapnote/src/geom"
	"snapnote/src/messages"
)

// Toolbar geometry in logical pixels.
const (
	ButtonWidth   = 56
	ButtonHeight  = 28
	ButtonPadding = 4
	// ToolbarGap separates the toolbar from the selection edge.
	ToolbarGap = 10
)

// Button is one toolbar entry.
type Button struct {
	Action messages.Action
	Label  string
	Rect   geom.Rect
}

// Toolbar is the laid-out action bar shown under an idle, actionable
// selection.
type Toolbar struct {
	Rect    geom.Rect
	Buttons []Button
}

var toolbarEntries = []struct {
	action messages.Action
	label  string
}{
	{messages.ActionPin, "Pin"},
	{messages.ActionRecognize, "OCR"},
	{messages.ActionCopy, "Copy"},
	{messages.ActionCancel, "Close"},
}

// ToolbarSize returns the width and height of the toolbar.
func ToolbarSize() (float64, float64) {
	n := float64(len(toolbarEntries))
	return ButtonPadding + n*(ButtonWidth+ButtonPadding), ButtonHeight + 2*ButtonPadding
}

// ToolbarLayout places the toolbar for selection rect sel on a surface of
// the given logical size. It prefers the bottom-right corner under the
// selection and falls back upward and leftward near the surface edges.
func ToolbarLayout(sel geom.Rect, surface image.Point) Toolbar {
	tbW, tbH := ToolbarSize()
	W, H := float64(surface.X), float64(surface.Y)

	tx := sel.X + sel.W - tbW
	ty := sel.Y + sel.H + ToolbarGap
	if tx < 0 {
		tx = 0
	}
	if ty+tbH > H {
		ty = sel.Y + sel.H - tbH - ToolbarGap
	}
	if ty > H-30 {
		ty = sel.Y + sel.H - 40
	}
	// Keep it on the surface even for selections hugging an edge.
	tx = math.Max(0, math.Min(tx, W-tbW))
	ty = math.Max(0, math.Min(ty, H-tbH))

	tb := Toolbar{Rect: geom.Rect{X: tx, Y: ty, W: tbW, H: tbH}}
	x := tx + ButtonPadding
	for _, e := range toolbarEntries {
		tb.Buttons = append(tb.Buttons, Button{
			Action: e.action,
			Label:  e.label,
			Rect:   geom.Rect{X: x, Y: ty + ButtonPadding, W: ButtonWidth, H: ButtonHeight},
		})
		x += ButtonWidth + ButtonPadding
	}
	return tb
}

// Hit returns the action of the button under p. A point on the toolbar
// background between buttons reports ok with an empty action so callers can
// swallow the event.
func (t Toolbar) Hit(p geom.Point) (messages.Action, bool) {
	if !t.Rect.Contains(p) {
		return "", false
	}
	for _, b := range t.Buttons {
		if b.Rect.Contains(p) {
			return b.Action, true
		}
	}
	return "", true
}
