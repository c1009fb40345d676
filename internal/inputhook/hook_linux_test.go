//go:build linux

package inputhook

import (
	"context"
	"encoding/binary"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"contextcollector/internal/gesture"
)

const procDevices = `I: Bus=0011 Vendor=0001 Product=0001 Version=ab41
N: Name="AT Translated Set 2 keyboard"
P: Phys=isa0060/serio0/input0
H: Handlers=sysrq kbd event3 leds
B: EV=120013
B: KEY=402000000 3803078f800d001 feffffdfffefffff fffffffffffffffe

I: Bus=0011 Vendor=0002 Product=0007 Version=01b1
N: Name="SynPS/2 Synaptics TouchPad"
H: Handlers=mouse0 event4
B: EV=b

I: Bus=0003 Vendor=046d Product=c52b Version=0111
N: Name="Logitech USB Receiver"
H: Handlers=sysrq kbd leds event7
B: EV=12001f
`

func TestParseKeyboardDevices(t *testing.T) {
	devices, err := parseKeyboardDevices(strings.NewReader(procDevices))
	require.NoError(t, err)
	assert.Equal(t, []string{"/dev/input/event3", "/dev/input/event7"}, devices)
}

func TestParseKeyboardDevices_Empty(t *testing.T) {
	devices, err := parseKeyboardDevices(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, devices)
}

func TestModifierState(t *testing.T) {
	var m modifierState

	_, ok := m.apply(evKey, keyLeftCtrl, keyPress, 0)
	assert.False(t, ok, "modifier presses are not delivered")

	ev, ok := m.apply(evKey, copyKeycode, keyPress, 10*time.Millisecond)
	require.True(t, ok)
	assert.Equal(t, gesture.ModControl, ev.Modifiers)
	assert.Equal(t, uint16(copyKeycode), ev.Keycode)
	assert.Equal(t, 10*time.Millisecond, ev.Timestamp)

	_, ok = m.apply(evKey, copyKeycode, 2, 0)
	assert.False(t, ok, "autorepeat is not a physical press")

	_, ok = m.apply(evKey, copyKeycode, keyRelease, 0)
	assert.False(t, ok)

	m.apply(evKey, keyLeftCtrl, keyRelease, 0)
	ev, ok = m.apply(evKey, copyKeycode, keyPress, 0)
	require.True(t, ok)
	assert.Equal(t, gesture.Modifiers(0), ev.Modifiers)
}

func TestModifierState_BothSidesHeld(t *testing.T) {
	var m modifierState
	m.apply(evKey, keyLeftCtrl, keyPress, 0)
	m.apply(evKey, keyRightCtrl, keyPress, 0)
	m.apply(evKey, keyLeftCtrl, keyRelease, 0)
	m.apply(evKey, keyLeftShift, keyPress, 0)

	ev, ok := m.apply(evKey, copyKeycode, keyPress, 0)
	require.True(t, ok)
	assert.Equal(t, gesture.ModControl|gesture.ModShift, ev.Modifiers)
}

func TestModifierState_IgnoresNonKeyEvents(t *testing.T) {
	var m modifierState
	_, ok := m.apply(0x00, 0, 0, 0) // EV_SYN
	assert.False(t, ok)
}

func TestDecodeInputEvent(t *testing.T) {
	raw := make([]byte, inputEventSize)
	tv := inputEventSize - 8
	binary.NativeEndian.PutUint16(raw[tv:], evKey)
	binary.NativeEndian.PutUint16(raw[tv+2:], copyKeycode)
	binary.NativeEndian.PutUint32(raw[tv+4:], keyPress)

	typ, code, value := decodeInputEvent(raw)
	assert.Equal(t, uint16(evKey), typ)
	assert.Equal(t, uint16(copyKeycode), code)
	assert.Equal(t, int32(keyPress), value)
}

func newPipe(t *testing.T) (r, w int) {
	t.Helper()
	var p [2]int
	require.NoError(t, unix.Pipe2(p[:], unix.O_NONBLOCK|unix.O_CLOEXEC))
	return p[0], p[1]
}

func TestReadLoop_ReportsLossWhenDevicesClose(t *testing.T) {
	r, w := newPipe(t)

	h := &LinuxHook{}
	lost := make(chan error, 1)
	h.OnLost(func(err error) { lost <- err })
	h.setRunning(true, func(gesture.KeyEvent) {})

	done := make(chan struct{})
	go h.readLoop(context.Background(), []int{r}, done)
	require.NoError(t, unix.Close(w))

	select {
	case err := <-lost:
		assert.ErrorIs(t, err, ErrHookLost)
	case <-time.After(2 * time.Second):
		t.Fatal("loss not reported")
	}
	<-done
	assert.False(t, h.IsRunning())
}

func TestReadLoop_StopIsNotALoss(t *testing.T) {
	r, w := newPipe(t)
	defer unix.Close(w)

	h := &LinuxHook{}
	lost := make(chan error, 1)
	h.OnLost(func(err error) { lost <- err })
	h.setRunning(true, func(gesture.KeyEvent) {})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go h.readLoop(ctx, []int{r}, done)
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("loop did not exit")
	}
	assert.Empty(t, lost)
	assert.False(t, h.IsRunning())
}

func TestLinuxHook_WatcherMarksLossFailed(t *testing.T) {
	old := retryDelay
	retryDelay = time.Hour
	defer func() { retryDelay = old }()

	r, w := newPipe(t)

	h := &LinuxHook{}
	watcher := NewWatcher(h, gesture.NewDetector(DefaultTrigger()), nil, quietLogger())
	watcher.setStatus(StatusActive)
	watcher.mu.Lock()
	watcher.ctx, watcher.cancel = context.WithCancel(context.Background())
	watcher.mu.Unlock()
	defer watcher.Stop()

	h.setRunning(true, watcher.handle)
	done := make(chan struct{})
	go h.readLoop(context.Background(), []int{r}, done)
	require.NoError(t, unix.Close(w))
	<-done

	require.Eventually(t, func() bool {
		return watcher.Status() == StatusFailed
	}, 2*time.Second, 5*time.Millisecond)
	assert.False(t, h.IsRunning())
}
