// Package overlay holds the state of one capture surface: the frozen
// capture, the surface size, and the selection machine. Input handlers
// return an Outcome telling the caller what to redraw or dispatch. A Session
// is owned by the event loop goroutine.
package overlay

import (
	"errors"
	"image"
	"log"
	"math"

	"github.com/google/uuid"

	"snapnote/src/geom"
	"snapnote/src/messages"
	"snapnote/src/render"
	"snapnote/src/screenshot"
	"snapnote/src/selection"
)

var (
	// ErrNotActionable is returned for a finish action on a selection smaller
	// than the minimum span.
	ErrNotActionable = errors.New("selection too small")
	// ErrNotReady is returned when the capture has not materialized.
	ErrNotReady = errors.New("capture not ready")
)

// Cursor names reported through Outcome.
const (
	CursorDefault   = "default"
	CursorCrosshair = "crosshair"
)

// Outcome describes the effect of one input event.
type Outcome struct {
	Redraw bool
	// Action is set when the event requests a finish action or cancel.
	Action messages.Action
	// Cursor is set when the pointer cursor should change.
	Cursor string
}

// Session is one live capture surface.
type Session struct {
	id      string
	status  render.Status
	message string
	capture *screenshot.Capture
	surface image.Point
	machine selection.Machine
	cursor  string
}

// New returns a loading session for a surface of the given logical size.
func New(surface image.Point) *Session {
	return &Session{
		id:      uuid.NewString(),
		status:  render.StatusLoading,
		surface: surface,
		cursor:  CursorCrosshair,
	}
}

func (s *Session) ID() string                     { return s.id }
func (s *Session) Status() render.Status          { return s.status }
func (s *Session) Capture() *screenshot.Capture   { return s.capture }
func (s *Session) Selection() selection.Selection { return s.machine.Selection() }
func (s *Session) Mode() selection.Mode           { return s.machine.Mode() }
func (s *Session) Surface() image.Point           { return s.surface }

// Ready installs the capture. A surface that has not reported its size yet
// adopts the capture's logical size.
func (s *Session) Ready(c *screenshot.Capture) {
	if c == nil || c.Image == nil {
		s.Fail(screenshot.ErrDecode)
		return
	}
	s.capture = c
	s.status = render.StatusReady
	if s.surface.X <= 0 || s.surface.Y <= 0 {
		s.surface = c.Logical
	}
	log.Printf("overlay: session %s ready, native %v surface %v", s.id, c.NativeSize(), s.surface)
}

// Fail puts the session in the error state. The surface stays up until
// cancelled.
func (s *Session) Fail(err error) {
	s.status = render.StatusError
	if err != nil {
		s.message = err.Error()
	}
	s.machine.Reset()
	log.Printf("overlay: session %s failed: %v", s.id, err)
}

// Message returns the error detail for a failed session.
func (s *Session) Message() string { return s.message }

// Resize records the surface's current logical size.
func (s *Session) Resize(surface image.Point) bool {
	if surface.X <= 0 || surface.Y <= 0 || surface == s.surface {
		return false
	}
	s.surface = surface
	return true
}

// Mapper maps the surface onto the capture raster.
func (s *Session) Mapper() geom.Mapper {
	m := geom.Mapper{Logical: s.surface, Native: s.surface}
	if s.capture != nil {
		m.Native = s.capture.NativeSize()
	}
	return m
}

// Toolbar returns the toolbar layout and whether it is visible.
func (s *Session) Toolbar() (render.Toolbar, bool) {
	sel := s.machine.Selection()
	if s.status != render.StatusReady || s.machine.Dragging() || !sel.Actionable() {
		return render.Toolbar{}, false
	}
	return render.ToolbarLayout(sel.Rect(), s.surface), true
}

func (s *Session) clamp(p geom.Point) geom.Point {
	return geom.Pt(
		math.Max(0, math.Min(p.X, float64(s.surface.X))),
		math.Max(0, math.Min(p.Y, float64(s.surface.Y))),
	)
}

func (s *Session) setCursor(c string) string {
	if c == s.cursor {
		return ""
	}
	s.cursor = c
	return c
}

// PointerDown handles a primary-button press. Toolbar buttons take precedence
// over anchors and new drawing.
func (s *Session) PointerDown(p geom.Point) Outcome {
	if s.status != render.StatusReady {
		return Outcome{}
	}
	p = s.clamp(p)
	if tb, ok := s.Toolbar(); ok {
		if action, hit := tb.Hit(p); hit {
			return Outcome{Action: action}
		}
	}
	mode := s.machine.Press(p)
	cursor := CursorCrosshair
	if mode == selection.Resizing {
		cursor = s.machine.ActiveAnchor().Cursor()
	}
	return Outcome{Redraw: true, Cursor: s.setCursor(cursor)}
}

// PointerMove handles motion with or without the button held.
func (s *Session) PointerMove(p geom.Point) Outcome {
	if s.status != render.StatusReady {
		return Outcome{}
	}
	p = s.clamp(p)
	if s.machine.Move(p) {
		return Outcome{Redraw: true}
	}
	if tb, ok := s.Toolbar(); ok && tb.Rect.Contains(p) {
		return Outcome{Cursor: s.setCursor(CursorDefault)}
	}
	return Outcome{Cursor: s.setCursor(s.machine.Hover(p).Cursor())}
}

// PointerUp ends a gesture.
func (s *Session) PointerUp(p geom.Point) Outcome {
	if s.status != render.StatusReady {
		return Outcome{}
	}
	if s.machine.Dragging() {
		s.machine.Move(s.clamp(p))
	}
	if !s.machine.Release() {
		return Outcome{}
	}
	return Outcome{Redraw: true}
}

// Key handles a key press. Escape cancels in any state; the finish shortcuts
// need a ready capture.
func (s *Session) Key(name string) Outcome {
	switch name {
	case messages.KeyEscape:
		s.machine.Reset()
		return Outcome{Action: messages.ActionCancel}
	}
	if s.status != render.StatusReady || s.machine.Dragging() {
		return Outcome{}
	}
	switch name {
	case messages.KeyReturn, messages.KeyEnter:
		return Outcome{Action: messages.ActionCopy}
	case messages.KeyF3:
		return Outcome{Action: messages.ActionPin}
	}
	return Outcome{}
}

// CropRect returns the native-pixel rectangle under the selection.
func (s *Session) CropRect() (image.Rectangle, error) {
	if s.status != render.StatusReady || s.capture == nil {
		return image.Rectangle{}, ErrNotReady
	}
	sel := s.machine.Selection()
	if !sel.Actionable() {
		return image.Rectangle{}, ErrNotActionable
	}
	r := s.Mapper().NativeRect(sel.Rect())
	if r.Empty() {
		return image.Rectangle{}, ErrNotActionable
	}
	return r, nil
}

// Frame renders the surface at native resolution.
func (s *Session) Frame() *image.RGBA {
	scene := render.Scene{Mapper: s.Mapper()}
	if s.capture != nil {
		scene.Background = s.capture.Image
	}
	return render.Render(scene, render.State{
		Status:    s.status,
		Message:   s.message,
		Selection: s.machine.Selection(),
		Dragging:  s.machine.Dragging(),
	})
}
