// Package geometry resolves which display the pointer is on and where the
// capture panel goes on it.
//
// All coordinates use the Cocoa convention: the origin is the bottom-left
// corner of the primary display and y grows upward. Backends with a
// top-left origin convert with FlipY.
package geometry

import "fmt"

// Point is a position in global coordinates.
type Point struct {
	X, Y float64
}

// Size is a width and height in points.
type Size struct {
	Width, Height float64
}

// Rect is an axis-aligned rectangle anchored at its bottom-left corner.
type Rect struct {
	X, Y          float64
	Width, Height float64
}

// NewRect builds a Rect from an origin and a size.
func NewRect(origin Point, size Size) Rect {
	return Rect{X: origin.X, Y: origin.Y, Width: size.Width, Height: size.Height}
}

func (r Rect) MinX() float64 { return r.X }
func (r Rect) MinY() float64 { return r.Y }
func (r Rect) MaxX() float64 { return r.X + r.Width }
func (r Rect) MaxY() float64 { return r.Y + r.Height }
func (r Rect) MidX() float64 { return r.X + r.Width/2 }
func (r Rect) MidY() float64 { return r.Y + r.Height/2 }

// Origin returns the bottom-left corner.
func (r Rect) Origin() Point { return Point{X: r.X, Y: r.Y} }

// Size returns the rectangle's dimensions.
func (r Rect) Size() Size { return Size{Width: r.Width, Height: r.Height} }

// Center returns the midpoint.
func (r Rect) Center() Point { return Point{X: r.MidX(), Y: r.MidY()} }

// Contains reports whether p lies inside r. The minimum edges are
// inclusive and the maximum edges exclusive, so adjacent displays never
// both claim a point on their shared edge.
func (r Rect) Contains(p Point) bool {
	return p.X >= r.MinX() && p.X < r.MaxX() &&
		p.Y >= r.MinY() && p.Y < r.MaxY()
}

// ContainsRect reports whether other lies entirely within r, edges included.
func (r Rect) ContainsRect(other Rect) bool {
	return other.MinX() >= r.MinX() && other.MaxX() <= r.MaxX() &&
		other.MinY() >= r.MinY() && other.MaxY() <= r.MaxY()
}

func (r Rect) String() string {
	return fmt.Sprintf("(%g,%g %gx%g)", r.X, r.Y, r.Width, r.Height)
}

// FlipY converts r between a top-left origin and the bottom-left origin
// used here. primaryHeight is the height of the primary display. The
// conversion is its own inverse.
func FlipY(r Rect, primaryHeight float64) Rect {
	r.Y = primaryHeight - r.Y - r.Height
	return r
}

// FlipPoint converts p between a top-left origin and a bottom-left origin.
func FlipPoint(p Point, primaryHeight float64) Point {
	p.Y = primaryHeight - p.Y
	return p
}
