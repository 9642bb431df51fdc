package selection

import (
	"snapnote/src/geom"
)

const (
	// MinSpan is the smallest width and height, in logical pixels, of an
	// actionable selection.
	MinSpan = 5
	// AnchorSize is the side of a drawn anchor square.
	AnchorSize = 8
	// hitPadding widens each anchor's hit box on every side.
	hitPadding = 2
)

// Selection is a pair of logical corner points. Start and End follow the
// drag direction until Normalize reorders them.
type Selection struct {
	Start geom.Point
	End   geom.Point
}

// At returns a zero-size selection at p.
func At(p geom.Point) Selection { return Selection{Start: p, End: p} }

// Rect returns the normalized rectangle.
func (s Selection) Rect() geom.Rect { return geom.Normalize(s.Start, s.End) }

// Normalize moves Start to the top-left and End to the bottom-right corner.
// It is idempotent.
func (s *Selection) Normalize() {
	r := s.Rect()
	s.Start = geom.Pt(r.X, r.Y)
	s.End = geom.Pt(r.X+r.W, r.Y+r.H)
}

// Actionable reports whether the selection is large enough for finish
// actions and for resize anchors.
func (s Selection) Actionable() bool {
	r := s.Rect()
	return r.W >= MinSpan && r.H >= MinSpan
}

// HasArea reports whether the selection is non-degenerate.
func (s Selection) HasArea() bool { return !s.Rect().Empty() }
