// Package selection implements the interactive selection rectangle: drawing,
// anchor hit-testing and anchor-driven resizing.
package selection

import (
	"snapnote/src/geom"
)

// Mode is the interaction state of a Machine.
type Mode int

const (
	Idle Mode = iota
	Drawing
	Resizing
)

func (m Mode) String() string {
	switch m {
	case Drawing:
		return "drawing"
	case Resizing:
		return "resizing"
	default:
		return "idle"
	}
}

// Machine owns the selection and the current gesture. It is confined to the
// interaction goroutine and performs no locking.
type Machine struct {
	sel    Selection
	mode   Mode
	anchor Anchor
}

// Selection returns a copy of the current selection.
func (m *Machine) Selection() Selection { return m.sel }

// Mode returns the current interaction mode.
func (m *Machine) Mode() Mode { return m.mode }

// ActiveAnchor returns the anchor being dragged, or AnchorNone.
func (m *Machine) ActiveAnchor() Anchor { return m.anchor }

// Dragging reports whether a drawing or resizing gesture is in progress.
func (m *Machine) Dragging() bool { return m.mode != Idle }

// Press handles a primary-button press. Anchors are tested before a new
// drawing gesture is assumed.
func (m *Machine) Press(p geom.Point) Mode {
	if m.mode != Idle {
		return m.mode
	}
	if a := m.sel.AnchorAt(p); a != AnchorNone {
		m.sel.Normalize()
		m.mode = Resizing
		m.anchor = a
		return m.mode
	}
	m.sel = At(p)
	m.mode = Drawing
	m.anchor = AnchorNone
	return m.mode
}

// Move handles pointer motion. It reports whether the selection changed.
func (m *Machine) Move(p geom.Point) bool {
	switch m.mode {
	case Drawing:
		m.sel.End = p
		return true
	case Resizing:
		m.sel.resizeTo(m.anchor, p)
		return true
	}
	return false
}

// Release ends the current gesture and normalizes the selection. It reports
// whether a gesture was active.
func (m *Machine) Release() bool {
	if m.mode == Idle {
		return false
	}
	m.sel.Normalize()
	m.mode = Idle
	m.anchor = AnchorNone
	return true
}

// Hover returns the anchor under p while idle, for cursor feedback.
func (m *Machine) Hover(p geom.Point) Anchor {
	if m.mode != Idle {
		return m.anchor
	}
	return m.sel.AnchorAt(p)
}

// Reset discards the selection and any gesture.
func (m *Machine) Reset() {
	*m = Machine{}
}
