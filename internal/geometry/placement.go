package geometry

import "math"

// PointerOffset is the gap between the pointer and the panel, in pixels.
const PointerOffset = 20

// Placement is where a panel of a given size should appear.
type Placement struct {
	Origin Point
	Size   Size
}

// Frame returns the placement as a rectangle.
func (p Placement) Frame() Rect {
	return NewRect(p.Origin, p.Size)
}

// Place positions a panel of size near pointer p inside usable.
//
// The panel prefers the right of and below the pointer. It flips to the
// other side of the pointer on an axis where it would overflow, and
// centers on that axis if it still does not fit. When size fits in usable
// the result is always contained in it.
func Place(size Size, p Point, usable Rect, scale float64) Placement {
	if scale <= 0 || math.IsNaN(scale) || math.IsInf(scale, 0) {
		scale = 1
	}
	off := PointerOffset / scale
	w, h := size.Width, size.Height

	x := p.X + off
	if x+w > usable.MaxX() {
		x = p.X - w - off
	}
	if x < usable.MinX() || x+w > usable.MaxX() {
		x = usable.MidX() - w/2
	}

	// below the pointer first; y grows upward
	y := p.Y - h - off
	if y < usable.MinY() {
		y = p.Y + off
	}
	if y < usable.MinY() || y+h > usable.MaxY() {
		y = usable.MidY() - h/2
	}

	return Placement{Origin: Point{X: x, Y: y}, Size: size}
}

// PlaceOn resolves the display for p and places the panel on its usable area.
func PlaceOn(size Size, p Point, displays []Display) (Display, Placement) {
	d := Resolve(p, displays)
	return d, Place(size, p, d.Usable, d.Scale)
}
