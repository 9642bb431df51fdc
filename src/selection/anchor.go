package selection

import (
	"snapnote/src/geom"
)

// Anchor identifies one of the eight resize handles.
type Anchor int

const (
	AnchorNone Anchor = iota
	AnchorNW
	AnchorN
	AnchorNE
	AnchorE
	AnchorSE
	AnchorS
	AnchorSW
	AnchorW
)

// Edge names which corner coordinate an anchor drives along one axis.
type Edge int

const (
	EdgeNone Edge = iota
	EdgeStart
	EdgeEnd
)

type anchorRule struct {
	name string
	x    Edge
	y    Edge
	// fx, fy locate the anchor point as a fraction of the rect size.
	fx, fy float64
}

var anchorRules = map[Anchor]anchorRule{
	AnchorNW: {"nw", EdgeStart, EdgeStart, 0, 0},
	AnchorN:  {"n", EdgeNone, EdgeStart, 0.5, 0},
	AnchorNE: {"ne", EdgeEnd, EdgeStart, 1, 0},
	AnchorE:  {"e", EdgeEnd, EdgeNone, 1, 0.5},
	AnchorSE: {"se", EdgeEnd, EdgeEnd, 1, 1},
	AnchorS:  {"s", EdgeNone, EdgeEnd, 0.5, 1},
	AnchorSW: {"sw", EdgeStart, EdgeEnd, 0, 1},
	AnchorW:  {"w", EdgeStart, EdgeNone, 0, 0.5},
}

// Anchors lists every anchor in hit-test order.
var Anchors = []Anchor{AnchorNW, AnchorN, AnchorNE, AnchorE, AnchorSE, AnchorS, AnchorSW, AnchorW}

func (a Anchor) String() string {
	if r, ok := anchorRules[a]; ok {
		return r.name
	}
	return "none"
}

// Rule returns the axis edges the anchor moves.
func (a Anchor) Rule() (x, y Edge) {
	r := anchorRules[a]
	return r.x, r.y
}

// Cursor returns the resize cursor name shown while hovering the anchor.
func (a Anchor) Cursor() string {
	if a == AnchorNone {
		return "crosshair"
	}
	return a.String() + "-resize"
}

// ParseAnchor maps a symbolic name back to an Anchor.
func ParseAnchor(name string) Anchor {
	for a, r := range anchorRules {
		if r.name == name {
			return a
		}
	}
	return AnchorNone
}

// Box is the drawn square of one anchor.
type Box struct {
	Anchor Anchor
	Rect   geom.Rect
}

// Boxes derives the anchor squares from the selection. They are recomputed
// on every call and never cached, so they cannot drift from the selection.
func (s Selection) Boxes() []Box {
	r := s.Rect()
	half := float64(AnchorSize) / 2
	boxes := make([]Box, 0, len(Anchors))
	for _, a := range Anchors {
		rule := anchorRules[a]
		cx := r.X + r.W*rule.fx
		cy := r.Y + r.H*rule.fy
		boxes = append(boxes, Box{
			Anchor: a,
			Rect:   geom.Rect{X: cx - half, Y: cy - half, W: AnchorSize, H: AnchorSize},
		})
	}
	return boxes
}

// AnchorAt returns the anchor whose hit box contains p. Selections that are
// not actionable have no anchors.
func (s Selection) AnchorAt(p geom.Point) Anchor {
	if !s.Actionable() {
		return AnchorNone
	}
	for _, b := range s.Boxes() {
		hit := geom.Rect{
			X: b.Rect.X - hitPadding,
			Y: b.Rect.Y - hitPadding,
			W: b.Rect.W + 2*hitPadding,
			H: b.Rect.H + 2*hitPadding,
		}
		if hit.Contains(p) {
			return b.Anchor
		}
	}
	return AnchorNone
}

// resizeTo applies the anchor's rule for pointer position p. The rectangle
// may invert during the gesture; Normalize on release repairs it.
func (s *Selection) resizeTo(a Anchor, p geom.Point) {
	x, y := a.Rule()
	switch x {
	case EdgeStart:
		s.Start.X = p.X
	case EdgeEnd:
		s.End.X = p.X
	}
	switch y {
	case EdgeStart:
		s.Start.Y = p.Y
	case EdgeEnd:
		s.End.Y = p.Y
	}
}
