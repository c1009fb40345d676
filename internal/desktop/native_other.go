//go:build !darwin && !windows

package desktop

import (
	"context"
	"log/slog"

	wailsRuntime "github.com/wailsapp/wails/v2/pkg/runtime"

	"contextcollector/internal/activation"
	"contextcollector/internal/geometry"
)

// Without a native layer the display list comes from the Wails runtime.
const nativeDisplaysWithoutRuntime = false

// nativePointer has no global pointer source here; it answers the centre
// of the window's current screen, so the panel opens centred there.
func nativePointer(ctx context.Context) geometry.Point {
	if ctx == nil {
		return geometry.FallbackDisplay.Bounds.Center()
	}
	return geometry.Resolve(geometry.Point{}, nativeDisplays(ctx, nil)).Bounds.Center()
}

func nativeDisplays(ctx context.Context, logger *slog.Logger) []geometry.Display {
	screens, err := wailsRuntime.ScreenGetAll(ctx)
	if err != nil {
		if logger != nil {
			logger.Warn("screen query failed", "error", err)
		}
		return nil
	}
	return displaysFromScreens(screens)
}

// displaysFromScreens maps Wails screens onto displays. Wails reports no
// screen offsets, so every display sits at the origin and the current
// screen is listed first to win resolution.
func displaysFromScreens(screens []wailsRuntime.Screen) []geometry.Display {
	displays := make([]geometry.Display, 0, len(screens))
	var rest []geometry.Display
	for _, s := range screens {
		w, h := float64(s.Size.Width), float64(s.Size.Height)
		if w <= 0 || h <= 0 {
			w, h = float64(s.Width), float64(s.Height)
		}
		if w <= 0 || h <= 0 {
			continue
		}
		scale := 1.0
		if s.PhysicalSize.Width > 0 {
			scale = float64(s.PhysicalSize.Width) / w
		}
		d := geometry.Display{
			Bounds:  geometry.Rect{Width: w, Height: h},
			Usable:  geometry.Rect{Width: w, Height: h},
			Scale:   scale,
			Primary: s.IsPrimary,
		}
		if s.IsCurrent {
			displays = append(displays, d)
		} else {
			rest = append(rest, d)
		}
	}
	return append(displays, rest...)
}

// nativePlace positions the window relative to its screen's top-left
// corner, which is what Wails expects.
func nativePlace(ctx context.Context, frame geometry.Rect, displays []geometry.Display) error {
	d := geometry.Resolve(frame.Center(), displays)
	x, y := windowPosition(frame, d)
	wailsRuntime.WindowSetPosition(ctx, x, y)
	return nil
}

func nativeSetPolicy(activation.Policy) {}

func nativeActivate() {}

func nativeDeactivate() {}

func nativeOrderFront() {}

// Focus cannot be queried portably; the window is shown on top by Wails.
func nativeIsActive() bool { return true }

func nativePanelIsKey() bool { return true }
