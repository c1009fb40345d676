//go:build darwin

package inputhook

/*
#cgo LDFLAGS: -framework ApplicationServices -framework CoreFoundation

#include <ApplicationServices/ApplicationServices.h>
#include <mach/mach_time.h>
#include <pthread.h>
#include <unistd.h>

extern void goInputHookKeyDown(int keycode, unsigned long long flags, unsigned long long nanos);
extern void goInputHookLost(void);

static CFMachPortRef hookTap = NULL;
static CFRunLoopSourceRef hookSource = NULL;
static CFRunLoopRef hookRunLoop = NULL;
static pthread_t hookThread;
static volatile int hookThreadRunning = 0;
static volatile int hookEnabled = 0;
static volatile int hookStopping = 0;
static mach_timebase_info_data_t hookTimebase;

// CGEventTimestamp counts mach absolute time units; the timebase is 1/1 on
// Intel.
static uint64_t hookEventNanos(CGEventRef event) {
    if (hookTimebase.denom == 0) {
        mach_timebase_info(&hookTimebase);
    }
    return CGEventGetTimestamp(event) * hookTimebase.numer / hookTimebase.denom;
}

static CGEventRef hookCallback(CGEventTapProxy proxy, CGEventType type, CGEventRef event, void *refcon) {
    (void)proxy;
    (void)refcon;

    // The system disables a tap whose callback is too slow.
    if (type == kCGEventTapDisabledByTimeout || type == kCGEventTapDisabledByUserInput) {
        if (hookTap != NULL) {
            CGEventTapEnable(hookTap, true);
        }
        return event;
    }

    if (type == kCGEventKeyDown) {
        if (CGEventGetIntegerValueField(event, kCGKeyboardEventAutorepeat) != 0) {
            return event;
        }
        int64_t keycode = CGEventGetIntegerValueField(event, kCGKeyboardEventKeycode);
        goInputHookKeyDown((int)keycode, (unsigned long long)CGEventGetFlags(event),
            (unsigned long long)hookEventNanos(event));
    }
    return event;
}

static void* hookRunLoopThread(void* arg) {
    (void)arg;
    hookRunLoop = CFRunLoopGetCurrent();
    CFRunLoopAddSource(hookRunLoop, hookSource, kCFRunLoopCommonModes);
    CGEventTapEnable(hookTap, true);
    hookEnabled = 1;

    CFRunLoopRun();

    hookEnabled = 0;
    hookRunLoop = NULL;
    if (!hookStopping) {
        goInputHookLost();
    }
    return NULL;
}

static void stopHookTap(void) {
    if (hookTap == NULL) {
        return;
    }
    hookStopping = 1;
    CGEventTapEnable(hookTap, false);
    hookEnabled = 0;

    if (hookRunLoop != NULL) {
        CFRunLoopStop(hookRunLoop);
    }
    if (hookThreadRunning) {
        pthread_join(hookThread, NULL);
        hookThreadRunning = 0;
    }
    if (hookSource != NULL) {
        CFRelease(hookSource);
        hookSource = NULL;
    }
    CFMachPortInvalidate(hookTap);
    CFRelease(hookTap);
    hookTap = NULL;
    hookRunLoop = NULL;
}

static int startHookTap(void) {
    if (hookTap != NULL) {
        return 1;
    }
    hookStopping = 0;

    hookTap = CGEventTapCreate(
        kCGSessionEventTap,
        kCGHeadInsertEventTap,
        kCGEventTapOptionListenOnly,
        CGEventMaskBit(kCGEventKeyDown),
        hookCallback,
        NULL
    );
    if (hookTap == NULL) {
        return -1;
    }

    hookSource = CFMachPortCreateRunLoopSource(kCFAllocatorDefault, hookTap, 0);
    if (hookSource == NULL) {
        CFRelease(hookTap);
        hookTap = NULL;
        return -2;
    }

    hookThreadRunning = 1;
    if (pthread_create(&hookThread, NULL, hookRunLoopThread, NULL) != 0) {
        hookThreadRunning = 0;
        CFRelease(hookSource);
        CFRelease(hookTap);
        hookSource = NULL;
        hookTap = NULL;
        return -3;
    }

    for (int i = 0; i < 100 && !hookEnabled; i++) {
        usleep(10000);
    }
    if (!hookEnabled) {
        stopHookTap();
        return -4;
    }
    return 0;
}

static int checkHookAccessibility(int prompt) {
    const void *keys[] = { kAXTrustedCheckOptionPrompt };
    const void *values[] = { prompt ? kCFBooleanTrue : kCFBooleanFalse };
    CFDictionaryRef opts = CFDictionaryCreate(kCFAllocatorDefault, keys, values, 1,
        &kCFCopyStringDictionaryKeyCallBacks, &kCFTypeDictionaryValueCallBacks);
    Boolean trusted = AXIsProcessTrustedWithOptions(opts);
    CFRelease(opts);
    return trusted ? 1 : 0;
}
*/
import "C"

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"contextcollector/internal/gesture"
)

const (
	// kVK_ANSI_C
	copyKeycode     = 8
	primaryModifier = gesture.ModCommand
)

// CGEventFlags modifier masks.
const (
	cgFlagShift     = 1 << 17
	cgFlagControl   = 1 << 18
	cgFlagAlternate = 1 << 19
	cgFlagCommand   = 1 << 20
)

// activeDarwinHook receives callbacks from the tap thread.
var activeDarwinHook atomic.Pointer[DarwinHook]

//export goInputHookKeyDown
func goInputHookKeyDown(keycode C.int, flags C.ulonglong, nanos C.ulonglong) {
	h := activeDarwinHook.Load()
	if h == nil {
		return
	}
	h.deliver(gesture.KeyEvent{
		Keycode:   uint16(keycode),
		Modifiers: modifiersFromCGFlags(uint64(flags)),
		Timestamp: time.Duration(nanos),
	})
}

// goInputHookLost runs on the tap thread when its run loop ended without
// stopHookTap, e.g. the tap was invalidated.
//
//export goInputHookLost
func goInputHookLost() {
	h := activeDarwinHook.Load()
	if h == nil {
		return
	}
	// Stop joins the tap thread, so it cannot run on it.
	go func() {
		_ = h.Stop()
		h.reportLost(fmt.Errorf("%w: event tap run loop exited", ErrHookLost))
	}()
}

func modifiersFromCGFlags(flags uint64) gesture.Modifiers {
	var m gesture.Modifiers
	if flags&cgFlagShift != 0 {
		m |= gesture.ModShift
	}
	if flags&cgFlagControl != 0 {
		m |= gesture.ModControl
	}
	if flags&cgFlagAlternate != 0 {
		m |= gesture.ModOption
	}
	if flags&cgFlagCommand != 0 {
		m |= gesture.ModCommand
	}
	return m
}

// DarwinHook observes key-downs through a listen-only CGEventTap running on
// its own thread.
type DarwinHook struct {
	baseHook

	stopMu sync.Mutex
	done   chan struct{}
}

func newPlatformHook() Hook {
	return &DarwinHook{}
}

func requestPermission() bool {
	return C.checkHookAccessibility(1) == 1
}

// Available checks the Accessibility permission.
func (d *DarwinHook) Available() (bool, string) {
	if C.checkHookAccessibility(0) == 1 {
		return true, "CGEventTap available"
	}
	return false, "Accessibility permission required. Go to System Settings > Privacy & Security > Accessibility and add this application."
}

// Start creates the event tap.
func (d *DarwinHook) Start(ctx context.Context, fn Handler) error {
	d.stopMu.Lock()
	defer d.stopMu.Unlock()
	if d.IsRunning() {
		return ErrAlreadyRunning
	}
	if C.checkHookAccessibility(0) != 1 {
		return ErrPermissionDenied
	}

	d.setRunning(true, fn)
	activeDarwinHook.Store(d)

	switch C.startHookTap() {
	case 0:
	case 1:
		d.reset()
		return ErrAlreadyRunning
	case -1:
		d.reset()
		return ErrPermissionDenied
	case -2:
		d.reset()
		return fmt.Errorf("%w: run loop source", ErrCreationFailed)
	case -3:
		d.reset()
		return fmt.Errorf("%w: run loop thread", ErrCreationFailed)
	default:
		d.reset()
		return fmt.Errorf("%w: timeout waiting for tap", ErrCreationFailed)
	}

	d.done = make(chan struct{})
	go func(done chan struct{}) {
		select {
		case <-ctx.Done():
			_ = d.Stop()
		case <-done:
		}
	}(d.done)

	return nil
}

// Stop disables and releases the tap.
func (d *DarwinHook) Stop() error {
	d.stopMu.Lock()
	defer d.stopMu.Unlock()
	if !d.IsRunning() {
		return nil
	}
	C.stopHookTap()
	d.reset()
	if d.done != nil {
		close(d.done)
		d.done = nil
	}
	return nil
}

func (d *DarwinHook) reset() {
	activeDarwinHook.CompareAndSwap(d, nil)
	d.setRunning(false, nil)
}

var _ Hook = (*DarwinHook)(nil)
