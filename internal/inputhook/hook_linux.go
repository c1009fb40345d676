//go:build linux

package inputhook

import (
	"bufio"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
	"unsafe"

	"golang.org/x/sys/unix"

	"contextcollector/internal/gesture"
)

const (
	// KEY_C
	copyKeycode     = 46
	primaryModifier = gesture.ModControl
)

// linux/input-event-codes.h
const (
	evKey = 0x01

	keyRelease = 0
	keyPress   = 1

	keyLeftCtrl   = 29
	keyLeftShift  = 42
	keyRightShift = 54
	keyLeftAlt    = 56
	keyRightCtrl  = 97
	keyRightAlt   = 100
	keyLeftMeta   = 125
	keyRightMeta  = 126
)

var modifierKeys = map[uint16]gesture.Modifiers{
	keyLeftCtrl:   gesture.ModControl,
	keyRightCtrl:  gesture.ModControl,
	keyLeftShift:  gesture.ModShift,
	keyRightShift: gesture.ModShift,
	keyLeftAlt:    gesture.ModOption,
	keyRightAlt:   gesture.ModOption,
	keyLeftMeta:   gesture.ModCommand,
	keyRightMeta:  gesture.ModCommand,
}

// inputEventSize is sizeof(struct input_event) for this architecture.
var inputEventSize = int(unsafe.Sizeof(unix.Timeval{})) + 8

const pollTimeoutMillis = 100

// LinuxHook reads key events from /dev/input keyboards. Every device is
// polled from one goroutine so handlers see a single ordered stream.
type LinuxHook struct {
	baseHook
	devicesFile string

	stopMu sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func newPlatformHook() Hook {
	return &LinuxHook{devicesFile: "/proc/bus/input/devices"}
}

func requestPermission() bool {
	ok, _ := newPlatformHook().Available()
	return ok
}

// Available checks that at least one keyboard device is readable.
func (l *LinuxHook) Available() (bool, string) {
	devices, err := l.keyboardDevices()
	if err != nil {
		return false, fmt.Sprintf("cannot list input devices: %v", err)
	}
	if len(devices) == 0 {
		return false, "no keyboard devices found"
	}
	for _, dev := range devices {
		fd, err := unix.Open(dev, unix.O_RDONLY|unix.O_CLOEXEC, 0)
		if err == nil {
			unix.Close(fd)
			return true, fmt.Sprintf("found keyboard device: %s", dev)
		}
	}
	return false, "cannot read keyboard devices (need to be in the 'input' group or run as root)"
}

// Start opens every readable keyboard device and begins polling.
func (l *LinuxHook) Start(ctx context.Context, fn Handler) error {
	l.stopMu.Lock()
	defer l.stopMu.Unlock()

	if l.IsRunning() {
		return ErrAlreadyRunning
	}

	devices, err := l.keyboardDevices()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCreationFailed, err)
	}
	if len(devices) == 0 {
		return fmt.Errorf("%w: no keyboard devices", ErrCreationFailed)
	}

	var (
		fds    []int
		denied int
	)
	for _, dev := range devices {
		fd, err := unix.Open(dev, unix.O_RDONLY|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
		if err != nil {
			if errors.Is(err, unix.EACCES) || errors.Is(err, unix.EPERM) {
				denied++
			}
			continue
		}
		fds = append(fds, fd)
	}
	if len(fds) == 0 {
		if denied > 0 {
			return ErrPermissionDenied
		}
		return fmt.Errorf("%w: no keyboard device could be opened", ErrCreationFailed)
	}

	if l.cancel != nil {
		// the previous loop ended on its own
		l.cancel()
	}
	loopCtx, cancel := context.WithCancel(ctx)
	l.cancel = cancel
	l.done = make(chan struct{})
	l.setRunning(true, fn)

	go l.readLoop(loopCtx, fds, l.done)
	return nil
}

// Stop ends the poll loop and closes the devices.
func (l *LinuxHook) Stop() error {
	l.stopMu.Lock()
	defer l.stopMu.Unlock()

	if l.cancel == nil {
		return nil
	}
	l.cancel()
	<-l.done
	l.cancel = nil
	l.setRunning(false, nil)
	return nil
}

// readLoop delivers key-downs until ctx ends. When it ends for any other
// reason the hook marks itself stopped and reports the loss.
func (l *LinuxHook) readLoop(ctx context.Context, fds []int, done chan struct{}) {
	err := l.pollDevices(ctx, fds)
	l.setRunning(false, nil)
	close(done)
	if err != nil && ctx.Err() == nil {
		l.reportLost(err)
	}
}

// pollDevices owns fds and closes them before returning.
func (l *LinuxHook) pollDevices(ctx context.Context, fds []int) error {
	defer func() {
		for _, fd := range fds {
			unix.Close(fd)
		}
	}()

	epoch := time.Now()
	var mods modifierState
	buf := make([]byte, inputEventSize*64)

	for ctx.Err() == nil {
		if len(fds) == 0 {
			return fmt.Errorf("%w: all keyboard devices closed", ErrHookLost)
		}
		pfds := make([]unix.PollFd, len(fds))
		for i, fd := range fds {
			pfds[i] = unix.PollFd{Fd: int32(fd), Events: unix.POLLIN}
		}
		n, err := unix.Poll(pfds, pollTimeoutMillis)
		if err != nil {
			if errors.Is(err, unix.EINTR) {
				continue
			}
			return fmt.Errorf("%w: poll: %v", ErrHookLost, err)
		}
		if n == 0 {
			continue
		}

		live := fds[:0]
		for i, pfd := range pfds {
			fd := fds[i]
			if pfd.Revents&(unix.POLLERR|unix.POLLHUP|unix.POLLNVAL) != 0 {
				// unplugged
				unix.Close(fd)
				continue
			}
			live = append(live, fd)
			if pfd.Revents&unix.POLLIN == 0 {
				continue
			}
			nr, err := unix.Read(fd, buf)
			if err != nil || nr < inputEventSize {
				continue
			}
			for off := 0; off+inputEventSize <= nr; off += inputEventSize {
				typ, code, value := decodeInputEvent(buf[off : off+inputEventSize])
				if ev, ok := mods.apply(typ, code, value, time.Since(epoch)); ok {
					l.deliver(ev)
				}
			}
		}
		fds = live
	}
	return nil
}

// decodeInputEvent extracts type, code and value from a raw input_event.
func decodeInputEvent(raw []byte) (typ, code uint16, value int32) {
	tv := inputEventSize - 8
	typ = binary.NativeEndian.Uint16(raw[tv : tv+2])
	code = binary.NativeEndian.Uint16(raw[tv+2 : tv+4])
	value = int32(binary.NativeEndian.Uint32(raw[tv+4 : tv+8]))
	return typ, code, value
}

// modifierState tracks held modifiers across all devices.
type modifierState struct {
	held map[uint16]bool
}

// apply folds one evdev event into the state and returns a KeyEvent for
// non-modifier key presses. Autorepeat (value 2) is not a physical press.
func (m *modifierState) apply(typ, code uint16, value int32, at time.Duration) (gesture.KeyEvent, bool) {
	if typ != evKey {
		return gesture.KeyEvent{}, false
	}
	if _, isMod := modifierKeys[code]; isMod {
		if m.held == nil {
			m.held = make(map[uint16]bool)
		}
		switch value {
		case keyPress:
			m.held[code] = true
		case keyRelease:
			delete(m.held, code)
		}
		return gesture.KeyEvent{}, false
	}
	if value != keyPress {
		return gesture.KeyEvent{}, false
	}
	return gesture.KeyEvent{Keycode: code, Modifiers: m.current(), Timestamp: at}, true
}

func (m *modifierState) current() gesture.Modifiers {
	var mods gesture.Modifiers
	for code := range m.held {
		mods |= modifierKeys[code]
	}
	return mods
}

func (l *LinuxHook) keyboardDevices() ([]string, error) {
	f, err := os.Open(l.devicesFile)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return parseKeyboardDevices(f)
}

// parseKeyboardDevices reads /proc/bus/input/devices and returns the event
// nodes of devices bound to the kbd handler.
func parseKeyboardDevices(r io.Reader) ([]string, error) {
	var (
		devices []string
		handler string
		isKbd   bool
	)
	flush := func() {
		if isKbd && handler != "" {
			devices = append(devices, "/dev/input/"+handler)
		}
		handler = ""
		isKbd = false
	}

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			flush()
			continue
		}
		if rest, ok := strings.CutPrefix(line, "H: Handlers="); ok {
			for _, part := range strings.Fields(rest) {
				switch {
				case part == "kbd":
					isKbd = true
				case strings.HasPrefix(part, "event"):
					handler = part
				}
			}
		}
	}
	flush()
	return devices, scanner.Err()
}

var _ Hook = (*LinuxHook)(nil)
