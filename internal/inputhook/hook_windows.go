//go:build windows

package inputhook

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"
	"unsafe"

	"golang.org/x/sys/windows"

	"contextcollector/internal/gesture"
)

const (
	// VK_C
	copyKeycode     = 0x43
	primaryModifier = gesture.ModControl
)

const (
	whKeyboardLL = 13
	wmKeyDown    = 0x0100
	wmSysKeyDown = 0x0104
	wmQuit       = 0x0012

	vkShift   = 0x10
	vkControl = 0x11
	vkMenu    = 0x12
	vkLWin    = 0x5B
	vkRWin    = 0x5C
)

var (
	user32                  = windows.NewLazySystemDLL("user32.dll")
	procSetWindowsHookExW   = user32.NewProc("SetWindowsHookExW")
	procUnhookWindowsHookEx = user32.NewProc("UnhookWindowsHookEx")
	procCallNextHookEx      = user32.NewProc("CallNextHookEx")
	procGetMessageW         = user32.NewProc("GetMessageW")
	procPostThreadMessageW  = user32.NewProc("PostThreadMessageW")
	procGetAsyncKeyState    = user32.NewProc("GetAsyncKeyState")
)

// kbdllhookstruct mirrors KBDLLHOOKSTRUCT.
type kbdllhookstruct struct {
	VkCode      uint32
	ScanCode    uint32
	Flags       uint32
	Time        uint32
	DwExtraInfo uintptr
}

type msg struct {
	Hwnd    uintptr
	Message uint32
	WParam  uintptr
	LParam  uintptr
	Time    uint32
	Pt      struct{ X, Y int32 }
}

// hookProc is created once; Windows callbacks cannot be released.
var (
	hookProcOnce sync.Once
	hookProcPtr  uintptr
	activeWinMu  sync.RWMutex
	activeWin    *WindowsHook
)

// WindowsHook observes key-downs with a WH_KEYBOARD_LL hook on a dedicated,
// locked OS thread running a message loop.
type WindowsHook struct {
	baseHook
	epoch time.Time

	stopMu   sync.Mutex
	threadID uint32
	done     chan struct{}
	held     map[uint32]bool
}

func newPlatformHook() Hook {
	return &WindowsHook{}
}

func requestPermission() bool {
	return true
}

// Available always reports true: low-level hooks need no special rights.
func (w *WindowsHook) Available() (bool, string) {
	return true, "WH_KEYBOARD_LL available"
}

// Start installs the hook on its own thread.
func (w *WindowsHook) Start(ctx context.Context, fn Handler) error {
	w.stopMu.Lock()
	defer w.stopMu.Unlock()

	if w.IsRunning() {
		return ErrAlreadyRunning
	}

	hookProcOnce.Do(func() {
		hookProcPtr = windows.NewCallback(lowLevelKeyboardProc)
	})

	w.epoch = time.Now()
	w.held = make(map[uint32]bool)
	w.setRunning(true, fn)
	activeWinMu.Lock()
	activeWin = w
	activeWinMu.Unlock()

	started := make(chan error, 1)
	w.done = make(chan struct{})
	go w.messageLoop(started, w.done)

	if err := <-started; err != nil {
		<-w.done
		w.clear()
		return err
	}

	go func(done chan struct{}) {
		select {
		case <-ctx.Done():
			_ = w.Stop()
		case <-done:
		}
	}(w.done)
	return nil
}

func (w *WindowsHook) messageLoop(started chan<- error, done chan struct{}) {
	defer close(done)
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	w.threadID = windows.GetCurrentThreadId()

	hook, _, callErr := procSetWindowsHookExW.Call(whKeyboardLL, hookProcPtr, 0, 0)
	if hook == 0 {
		started <- fmt.Errorf("%w: SetWindowsHookExW: %v", ErrCreationFailed, callErr)
		return
	}
	defer procUnhookWindowsHookEx.Call(hook)
	started <- nil

	var m msg
	for {
		r, _, callErr := procGetMessageW.Call(uintptr(unsafe.Pointer(&m)), 0, 0, 0)
		if int32(r) < 0 {
			go w.lose(done, fmt.Errorf("%w: GetMessageW: %v", ErrHookLost, callErr))
			return
		}
		if r == 0 {
			return
		}
	}
}

// lose runs once the hook thread has exited without WM_QUIT.
func (w *WindowsHook) lose(done <-chan struct{}, err error) {
	<-done
	w.stopMu.Lock()
	if !w.IsRunning() {
		w.stopMu.Unlock()
		return
	}
	w.clear()
	w.stopMu.Unlock()
	w.reportLost(err)
}

// Stop posts WM_QUIT to the hook thread and waits for it to unhook.
func (w *WindowsHook) Stop() error {
	w.stopMu.Lock()
	defer w.stopMu.Unlock()

	if !w.IsRunning() {
		return nil
	}
	procPostThreadMessageW.Call(uintptr(w.threadID), wmQuit, 0, 0)
	<-w.done
	w.clear()
	return nil
}

func (w *WindowsHook) clear() {
	activeWinMu.Lock()
	if activeWin == w {
		activeWin = nil
	}
	activeWinMu.Unlock()
	w.setRunning(false, nil)
}

func lowLevelKeyboardProc(nCode int, wParam uintptr, lParam uintptr) uintptr {
	if nCode >= 0 && (wParam == wmKeyDown || wParam == wmSysKeyDown) {
		activeWinMu.RLock()
		w := activeWin
		activeWinMu.RUnlock()
		if w != nil {
			kb := (*kbdllhookstruct)(unsafe.Pointer(lParam))
			w.onKeyDown(kb.VkCode)
		}
	}
	r, _, _ := procCallNextHookEx.Call(0, uintptr(nCode), wParam, lParam)
	return r
}

// onKeyDown runs on the hook thread. Repeats of a held key are dropped;
// the held set is refreshed from the async key state.
func (w *WindowsHook) onKeyDown(vk uint32) {
	for code := range w.held {
		if !keyDown(int(code)) {
			delete(w.held, code)
		}
	}
	if w.held[vk] {
		return
	}
	w.held[vk] = true

	switch vk {
	case vkShift, vkControl, vkMenu, vkLWin, vkRWin, 0xA0, 0xA1, 0xA2, 0xA3, 0xA4, 0xA5:
		return
	}
	w.deliver(gesture.KeyEvent{
		Keycode:   uint16(vk),
		Modifiers: asyncModifiers(),
		Timestamp: time.Since(w.epoch),
	})
}

func keyDown(vk int) bool {
	r, _, _ := procGetAsyncKeyState.Call(uintptr(vk))
	return r&0x8000 != 0
}

func asyncModifiers() gesture.Modifiers {
	var m gesture.Modifiers
	if keyDown(vkShift) {
		m |= gesture.ModShift
	}
	if keyDown(vkControl) {
		m |= gesture.ModControl
	}
	if keyDown(vkMenu) {
		m |= gesture.ModOption
	}
	if keyDown(vkLWin) || keyDown(vkRWin) {
		m |= gesture.ModCommand
	}
	return m
}

var _ Hook = (*WindowsHook)(nil)
