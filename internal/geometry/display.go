package geometry

// Display is a snapshot of one attached screen.
type Display struct {
	// Bounds is the full frame in global coordinates.
	Bounds Rect
	// Usable excludes the menu bar and dock.
	Usable Rect
	// Scale is the backing scale factor (2 on Retina).
	Scale   float64
	Primary bool
}

// FallbackDisplay is used when the platform reports no displays at all.
var FallbackDisplay = Display{
	Bounds:  Rect{Width: 1440, Height: 900},
	Usable:  Rect{Width: 1440, Height: 900},
	Scale:   1,
	Primary: true,
}

// Resolve returns the display under p.
//
// The first display whose bounds contain p wins. Otherwise the first
// primary display is used, then the first display listed, then
// FallbackDisplay. The same inputs always give the same answer.
func Resolve(p Point, displays []Display) Display {
	for _, d := range displays {
		if d.Bounds.Contains(p) {
			return d
		}
	}
	for _, d := range displays {
		if d.Primary {
			return d
		}
	}
	if len(displays) > 0 {
		return displays[0]
	}
	return FallbackDisplay
}
