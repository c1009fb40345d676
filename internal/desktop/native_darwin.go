//go:build darwin

package desktop

/*
#cgo CFLAGS: -x objective-c -fobjc-arc
#cgo LDFLAGS: -framework Cocoa

#import <Cocoa/Cocoa.h>

typedef struct {
	double bx, by, bw, bh;
	double ux, uy, uw, uh;
	double scale;
} ccScreen;

static void ccOnMain(void (^block)(void)) {
	if ([NSThread isMainThread]) {
		block();
	} else {
		dispatch_sync(dispatch_get_main_queue(), block);
	}
}

// The capture panel is the app's only window that can become key; status
// bar windows from the tray cannot.
static NSWindow *ccPanelWindow(void) {
	for (NSWindow *w in [NSApp windows]) {
		if ([w canBecomeKeyWindow]) {
			return w;
		}
	}
	return nil;
}

static void ccMouseLocation(double *x, double *y) {
	__block NSPoint p = NSZeroPoint;
	ccOnMain(^{
		p = [NSEvent mouseLocation];
	});
	*x = p.x;
	*y = p.y;
}

static int ccScreens(ccScreen *out, int max) {
	__block int n = 0;
	ccOnMain(^{
		for (NSScreen *s in [NSScreen screens]) {
			if (n >= max) {
				break;
			}
			NSRect f = [s frame];
			NSRect v = [s visibleFrame];
			out[n].bx = f.origin.x;
			out[n].by = f.origin.y;
			out[n].bw = f.size.width;
			out[n].bh = f.size.height;
			out[n].ux = v.origin.x;
			out[n].uy = v.origin.y;
			out[n].uw = v.size.width;
			out[n].uh = v.size.height;
			out[n].scale = [s backingScaleFactor];
			n++;
		}
	});
	return n;
}

static void ccSetPolicy(int accessory) {
	ccOnMain(^{
		[NSApp setActivationPolicy:accessory ? NSApplicationActivationPolicyAccessory
		                                     : NSApplicationActivationPolicyRegular];
	});
}

static void ccActivate(void) {
	ccOnMain(^{
		[NSApp activateIgnoringOtherApps:YES];
	});
}

static void ccDeactivate(void) {
	ccOnMain(^{
		[NSApp deactivate];
	});
}

static int ccIsActive(void) {
	__block BOOL active = NO;
	ccOnMain(^{
		active = [NSApp isActive];
	});
	return active ? 1 : 0;
}

static int ccPanelIsKey(void) {
	__block BOOL key = NO;
	ccOnMain(^{
		NSWindow *w = ccPanelWindow();
		key = w != nil && [w isKeyWindow];
	});
	return key ? 1 : 0;
}

static void ccOrderFront(void) {
	ccOnMain(^{
		NSWindow *w = ccPanelWindow();
		if (w != nil) {
			[w makeKeyAndOrderFront:nil];
		}
	});
}

// ccPlacePanel floats the panel above full-screen apps on every Space and
// sets its frame in global Cocoa coordinates.
static int ccPlacePanel(double x, double y, double w, double h) {
	__block int ok = 0;
	ccOnMain(^{
		NSWindow *win = ccPanelWindow();
		if (win == nil) {
			return;
		}
		NSInteger level = CGShieldingWindowLevel();
		if (level <= 0) {
			level = NSScreenSaverWindowLevel;
		}
		[win setLevel:level + 1];
		[win setCollectionBehavior:NSWindowCollectionBehaviorCanJoinAllSpaces |
		                           NSWindowCollectionBehaviorStationary |
		                           NSWindowCollectionBehaviorFullScreenAuxiliary];
		[win setFrame:NSMakeRect(x, y, w, h) display:YES];
		ok = 1;
	});
	return ok;
}
*/
import "C"

import (
	"context"
	"errors"
	"log/slog"

	"contextcollector/internal/activation"
	"contextcollector/internal/geometry"
)

const maxScreens = 16

// AppKit answers display queries before Wails is up.
const nativeDisplaysWithoutRuntime = true

func nativePointer(context.Context) geometry.Point {
	var x, y C.double
	C.ccMouseLocation(&x, &y)
	return geometry.Point{X: float64(x), Y: float64(y)}
}

func nativeDisplays(_ context.Context, _ *slog.Logger) []geometry.Display {
	var buf [maxScreens]C.ccScreen
	n := int(C.ccScreens(&buf[0], maxScreens))
	displays := make([]geometry.Display, 0, n)
	for i := 0; i < n; i++ {
		s := buf[i]
		displays = append(displays, geometry.Display{
			Bounds: geometry.Rect{X: float64(s.bx), Y: float64(s.by), Width: float64(s.bw), Height: float64(s.bh)},
			Usable: geometry.Rect{X: float64(s.ux), Y: float64(s.uy), Width: float64(s.uw), Height: float64(s.uh)},
			Scale:  float64(s.scale),
			// NSScreen.screens lists the menu-bar screen first
			Primary: i == 0,
		})
	}
	return displays
}

func nativePlace(_ context.Context, frame geometry.Rect, _ []geometry.Display) error {
	ok := C.ccPlacePanel(C.double(frame.X), C.double(frame.Y), C.double(frame.Width), C.double(frame.Height))
	if ok == 0 {
		return errors.New("no panel window")
	}
	return nil
}

func nativeSetPolicy(p activation.Policy) {
	accessory := C.int(0)
	if p == activation.PolicyBackground {
		accessory = 1
	}
	C.ccSetPolicy(accessory)
}

func nativeActivate() { C.ccActivate() }
func nativeDeactivate() { C.ccDeactivate() }
func nativeOrderFront() { C.ccOrderFront() }

func nativeIsActive() bool {
	return C.ccIsActive() != 0
}

func nativePanelIsKey() bool {
	return C.ccPanelIsKey() != 0
}
