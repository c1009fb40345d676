package desktop

import (
	"math"

	"contextcollector/internal/geometry"
)

// screenRect is a rectangle in virtual-screen pixels: origin at the
// primary monitor's top-left corner, y growing down.
type screenRect struct {
	Left, Top, Right, Bottom int32
}

func (r screenRect) rect() geometry.Rect {
	return geometry.Rect{
		X:      float64(r.Left),
		Y:      float64(r.Top),
		Width:  float64(r.Right - r.Left),
		Height: float64(r.Bottom - r.Top),
	}
}

// monitorInfo is one monitor as the OS reports it.
type monitorInfo struct {
	Bounds  screenRect
	Work    screenRect
	Primary bool
	DPI     uint32
}

// primaryHeight is the height of the monitor that anchors both coordinate
// systems.
func primaryHeight(monitors []monitorInfo) float64 {
	for _, m := range monitors {
		if m.Primary {
			return m.Bounds.rect().Height
		}
	}
	if len(monitors) > 0 {
		return monitors[0].Bounds.rect().Height
	}
	return geometry.FallbackDisplay.Bounds.Height
}

// displaysFromMonitors converts top-left monitor rectangles into displays.
// The primary monitor is listed first.
func displaysFromMonitors(monitors []monitorInfo) []geometry.Display {
	h := primaryHeight(monitors)
	displays := make([]geometry.Display, 0, len(monitors))
	var rest []geometry.Display
	for _, m := range monitors {
		bounds := m.Bounds.rect()
		if bounds.Width <= 0 || bounds.Height <= 0 {
			continue
		}
		scale := 1.0
		if m.DPI > 0 {
			scale = float64(m.DPI) / 96
		}
		d := geometry.Display{
			Bounds:  geometry.FlipY(bounds, h),
			Usable:  geometry.FlipY(m.Work.rect(), h),
			Scale:   scale,
			Primary: m.Primary,
		}
		if m.Primary {
			displays = append(displays, d)
		} else {
			rest = append(rest, d)
		}
	}
	return append(displays, rest...)
}

// pointerFromScreen converts a cursor position in virtual-screen pixels.
func pointerFromScreen(x, y int32, monitors []monitorInfo) geometry.Point {
	return geometry.FlipPoint(geometry.Point{X: float64(x), Y: float64(y)}, primaryHeight(monitors))
}

// screenOrigin is the top-left corner of frame in virtual-screen pixels.
func screenOrigin(frame geometry.Rect, displays []geometry.Display) (int, int) {
	h := geometry.FallbackDisplay.Bounds.Height
	for _, d := range displays {
		if d.Primary {
			h = d.Bounds.Height
			break
		}
	}
	top := geometry.FlipY(frame, h)
	return int(math.Round(top.X)), int(math.Round(top.Y))
}

// windowPosition is frame's top-left corner relative to the top-left of
// display d, which is what the Wails runtime expects.
func windowPosition(frame geometry.Rect, d geometry.Display) (int, int) {
	local := frame
	local.X -= d.Bounds.X
	local.Y -= d.Bounds.Y
	top := geometry.FlipY(local, d.Bounds.Height)
	return int(top.X), int(top.Y)
}
