// Package geom converts between the logical input space, where pointer
// events are reported, and the native pixel space of a captured raster.
//
// Interaction math stays in logical space. Rendering and cropping map the
// resolved geometry into native pixels with a single multiply so rounding
// never compounds.
package geom

import (
	"fmt"
	"image"
	"math"
)

// Point is a position in logical space.
type Point struct {
	X float64
	Y float64
}

// Pt is shorthand for Point{X: x, Y: y}.
func Pt(x, y float64) Point { return Point{X: x, Y: y} }

// Rect is an axis-aligned rectangle in logical space. W and H are never
// negative for a rectangle produced by Normalize.
type Rect struct {
	X float64
	Y float64
	W float64
	H float64
}

func (r Rect) String() string {
	return fmt.Sprintf("{x:%g y:%g w:%g h:%g}", r.X, r.Y, r.W, r.H)
}

// Normalize returns the rectangle spanned by two unordered corner points.
func Normalize(a, b Point) Rect {
	return Rect{
		X: math.Min(a.X, b.X),
		Y: math.Min(a.Y, b.Y),
		W: math.Abs(b.X - a.X),
		H: math.Abs(b.Y - a.Y),
	}
}

// Contains reports whether p lies inside r, edges included.
func (r Rect) Contains(p Point) bool {
	return p.X >= r.X && p.X <= r.X+r.W && p.Y >= r.Y && p.Y <= r.Y+r.H
}

// Empty reports whether r has no area.
func (r Rect) Empty() bool { return r.W <= 0 || r.H <= 0 }

// ToNative scales a logical point by the display scale factor.
func ToNative(p Point, scaleFactor float64) Point {
	return Point{X: p.X * scaleFactor, Y: p.Y * scaleFactor}
}

// LogicalSize derives the logical size of a display from its native pixel
// size and scale factor.
func LogicalSize(native image.Point, scaleFactor float64) image.Point {
	if scaleFactor <= 0 {
		scaleFactor = 1
	}
	return image.Pt(
		int(math.Round(float64(native.X)/scaleFactor)),
		int(math.Round(float64(native.Y)/scaleFactor)),
	)
}

// Mapper maps logical surface geometry onto a native raster. The ratio is
// taken from the actual raster and surface sizes rather than the reported
// scale factor, which tolerates surfaces that are not sized exactly to the
// display.
type Mapper struct {
	Logical image.Point
	Native  image.Point
}

// Ratio returns the per-axis native/logical ratio. A degenerate logical size
// maps 1:1.
func (m Mapper) Ratio() (float64, float64) {
	rx, ry := 1.0, 1.0
	if m.Logical.X > 0 {
		rx = float64(m.Native.X) / float64(m.Logical.X)
	}
	if m.Logical.Y > 0 {
		ry = float64(m.Native.Y) / float64(m.Logical.Y)
	}
	return rx, ry
}

// NativePoint maps a logical point to native pixels without rounding.
func (m Mapper) NativePoint(p Point) Point {
	rx, ry := m.Ratio()
	return Point{X: p.X * rx, Y: p.Y * ry}
}

// NativeRect maps a logical rectangle to native pixels. Origin and size are
// rounded independently, then the result is clamped to the raster.
func (m Mapper) NativeRect(r Rect) image.Rectangle {
	rx, ry := m.Ratio()
	x := int(math.Round(r.X * rx))
	y := int(math.Round(r.Y * ry))
	w := int(math.Round(r.W * rx))
	h := int(math.Round(r.H * ry))
	out := image.Rect(x, y, x+w, y+h)
	return out.Intersect(image.Rectangle{Max: m.Native})
}

// NativeLength maps a logical length along X to native pixels, at least 1.
func (m Mapper) NativeLength(l float64) int {
	rx, _ := m.Ratio()
	n := int(math.Round(l * rx))
	if n < 1 {
		n = 1
	}
	return n
}
