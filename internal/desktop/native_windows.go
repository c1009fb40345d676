//go:build windows

package desktop

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"unsafe"

	wailsRuntime "github.com/wailsapp/wails/v2/pkg/runtime"
	"golang.org/x/sys/windows"

	"contextcollector/internal/activation"
	"contextcollector/internal/geometry"
)

var (
	user32 = windows.NewLazySystemDLL("user32.dll")
	shcore = windows.NewLazySystemDLL("shcore.dll")

	procGetCursorPos        = user32.NewProc("GetCursorPos")
	procEnumDisplayMonitors = user32.NewProc("EnumDisplayMonitors")
	procGetMonitorInfoW     = user32.NewProc("GetMonitorInfoW")
	procFindWindowW         = user32.NewProc("FindWindowW")
	procSetWindowPos        = user32.NewProc("SetWindowPos")
	procGetDpiForMonitor    = shcore.NewProc("GetDpiForMonitor")
)

const (
	monitorInfoFPrimary = 0x1
	mdtEffectiveDPI     = 0

	swpNoSize     = 0x0001
	swpNoZOrder   = 0x0004
	swpNoActivate = 0x0010
)

// user32 answers display queries before Wails is up.
const nativeDisplaysWithoutRuntime = true

type cursorPoint struct {
	X, Y int32
}

type monitorInfoW struct {
	CbSize  uint32
	Monitor screenRect
	Work    screenRect
	Flags   uint32
}

var (
	enumMu       sync.Mutex
	enumMonitors []monitorInfo
)

var enumMonitorProc = windows.NewCallback(func(hMonitor, _, _, _ uintptr) uintptr {
	info := monitorInfoW{CbSize: uint32(unsafe.Sizeof(monitorInfoW{}))}
	if r, _, _ := procGetMonitorInfoW.Call(hMonitor, uintptr(unsafe.Pointer(&info))); r == 0 {
		return 1
	}
	enumMonitors = append(enumMonitors, monitorInfo{
		Bounds:  info.Monitor,
		Work:    info.Work,
		Primary: info.Flags&monitorInfoFPrimary != 0,
		DPI:     monitorDPI(hMonitor),
	})
	return 1
})

// monitors lists every attached monitor in virtual-screen pixels.
func monitors() ([]monitorInfo, error) {
	enumMu.Lock()
	defer enumMu.Unlock()

	enumMonitors = nil
	r, _, err := procEnumDisplayMonitors.Call(0, 0, enumMonitorProc, 0)
	if r == 0 {
		return nil, fmt.Errorf("EnumDisplayMonitors: %w", err)
	}
	out := enumMonitors
	enumMonitors = nil
	return out, nil
}

// monitorDPI needs Windows 8.1; older systems report 96.
func monitorDPI(hMonitor uintptr) uint32 {
	if procGetDpiForMonitor.Find() != nil {
		return 96
	}
	var dpiX, dpiY uint32
	hr, _, _ := procGetDpiForMonitor.Call(hMonitor, mdtEffectiveDPI,
		uintptr(unsafe.Pointer(&dpiX)), uintptr(unsafe.Pointer(&dpiY)))
	if hr != 0 || dpiX == 0 {
		return 96
	}
	return dpiX
}

func nativePointer(context.Context) geometry.Point {
	ms, err := monitors()
	if err != nil || len(ms) == 0 {
		return geometry.FallbackDisplay.Bounds.Center()
	}
	var p cursorPoint
	if r, _, _ := procGetCursorPos.Call(uintptr(unsafe.Pointer(&p))); r == 0 {
		return geometry.Resolve(geometry.Point{}, displaysFromMonitors(ms)).Bounds.Center()
	}
	return pointerFromScreen(p.X, p.Y, ms)
}

func nativeDisplays(_ context.Context, logger *slog.Logger) []geometry.Display {
	ms, err := monitors()
	if err != nil {
		if logger != nil {
			logger.Warn("monitor query failed", "error", err)
		}
		return nil
	}
	return displaysFromMonitors(ms)
}

// panelWindow finds this process's panel window.
func panelWindow() windows.HWND {
	title, err := windows.UTF16PtrFromString(PanelTitle)
	if err != nil {
		return 0
	}
	r, _, _ := procFindWindowW.Call(0, uintptr(unsafe.Pointer(title)))
	hwnd := windows.HWND(r)
	if hwnd == 0 {
		return 0
	}
	var pid uint32
	if _, err := windows.GetWindowThreadProcessId(hwnd, &pid); err != nil || int(pid) != os.Getpid() {
		return 0
	}
	return hwnd
}

// nativePlace moves the panel in virtual-screen pixels. Without a window
// handle it falls back to the Wails runtime, which positions relative to
// the window's current monitor.
func nativePlace(ctx context.Context, frame geometry.Rect, displays []geometry.Display) error {
	hwnd := panelWindow()
	if hwnd == 0 {
		x, y := windowPosition(frame, geometry.Resolve(frame.Center(), displays))
		wailsRuntime.WindowSetPosition(ctx, x, y)
		return nil
	}
	x, y := screenOrigin(frame, displays)
	r, _, err := procSetWindowPos.Call(uintptr(hwnd), 0, uintptr(x), uintptr(y), 0, 0,
		swpNoSize|swpNoZOrder|swpNoActivate)
	if r == 0 {
		return fmt.Errorf("SetWindowPos: %w", err)
	}
	return nil
}

func nativeSetPolicy(activation.Policy) {}

func nativeActivate() {}

func nativeDeactivate() {}

func nativeOrderFront() {}

// The window is shown on top by Wails.
func nativeIsActive() bool { return true }

func nativePanelIsKey() bool { return true }
