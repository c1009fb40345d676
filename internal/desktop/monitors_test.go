package desktop

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"contextcollector/internal/geometry"
)

// A 1080p primary with a bottom taskbar, and a 1280x1024 monitor to its
// left sitting 200px higher.
var testMonitors = []monitorInfo{
	{
		Bounds: screenRect{Left: -1280, Top: -200, Right: 0, Bottom: 824},
		Work:   screenRect{Left: -1280, Top: -200, Right: 0, Bottom: 824},
		DPI:    144,
	},
	{},
	{
		Bounds:  screenRect{Right: 1920, Bottom: 1080},
		Work:    screenRect{Right: 1920, Bottom: 1040},
		Primary: true,
	},
}

func TestDisplaysFromMonitors(t *testing.T) {
	got := displaysFromMonitors(testMonitors)
	require.Len(t, got, 2)

	primary := got[0]
	assert.True(t, primary.Primary, "primary first")
	assert.Equal(t, geometry.Rect{Width: 1920, Height: 1080}, primary.Bounds)
	assert.Equal(t, geometry.Rect{Y: 40, Width: 1920, Height: 1040}, primary.Usable, "taskbar stays below the usable area")
	assert.Equal(t, 1.0, primary.Scale)

	side := got[1]
	assert.False(t, side.Primary)
	assert.Equal(t, geometry.Rect{X: -1280, Y: 256, Width: 1280, Height: 1024}, side.Bounds)
	assert.Equal(t, 1.5, side.Scale)
}

func TestPointerFromScreen(t *testing.T) {
	displays := displaysFromMonitors(testMonitors)

	p := pointerFromScreen(-100, 0, testMonitors)
	assert.Equal(t, geometry.Point{X: -100, Y: 1080}, p)
	assert.False(t, geometry.Resolve(p, displays).Primary, "pointer on the side monitor")

	p = pointerFromScreen(960, 540, testMonitors)
	assert.True(t, geometry.Resolve(p, displays).Primary)
}

func TestPrimaryHeightWithoutPrimary(t *testing.T) {
	monitors := []monitorInfo{{Bounds: screenRect{Right: 1280, Bottom: 800}}}
	assert.Equal(t, 800.0, primaryHeight(monitors))
	assert.Equal(t, geometry.FallbackDisplay.Bounds.Height, primaryHeight(nil))
}

func TestScreenOrigin(t *testing.T) {
	displays := displaysFromMonitors(testMonitors)

	x, y := screenOrigin(geometry.Rect{X: 100, Y: 500, Width: 800, Height: 500}, displays)
	assert.Equal(t, 100, x)
	assert.Equal(t, 80, y)

	// a frame placed on the side monitor round-trips to its pixels
	frame := geometry.Rect{X: -1200, Y: 600, Width: 800, Height: 500}
	x, y = screenOrigin(frame, displays)
	assert.Equal(t, -1200, x)
	assert.Equal(t, -20, y)
}

func TestWindowPosition(t *testing.T) {
	d := geometry.Display{Bounds: geometry.Rect{Width: 1920, Height: 1080}}

	x, y := windowPosition(geometry.Rect{X: 120, Y: 120, Width: 800, Height: 500}, d)
	assert.Equal(t, 120, x)
	assert.Equal(t, 460, y)

	x, y = windowPosition(geometry.Rect{X: 0, Y: 580, Width: 800, Height: 500}, d)
	assert.Equal(t, 0, x)
	assert.Equal(t, 0, y, "touching the top edge")
}
