package inputhook

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"contextcollector/internal/gesture"
)

var testTrigger = gesture.Trigger{Keycode: 8, Modifiers: gesture.ModCommand}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestWatcher(t *testing.T) (*Watcher, *Simulated, *atomic.Int32) {
	t.Helper()
	hook := NewSimulated()
	var fired atomic.Int32
	w := NewWatcher(hook, gesture.NewDetector(testTrigger), func(gesture.Signal) {
		fired.Add(1)
	}, quietLogger())
	return w, hook, &fired
}

func copyAt(ms int) gesture.KeyEvent {
	return gesture.KeyEvent{Keycode: 8, Modifiers: gesture.ModCommand, Timestamp: time.Duration(ms) * time.Millisecond}
}

func TestWatcher_FiresOncePerDoublePress(t *testing.T) {
	w, hook, fired := newTestWatcher(t)
	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()

	assert.Equal(t, StatusActive, w.Status())

	hook.Emit(copyAt(0))
	hook.Emit(copyAt(150))
	hook.Emit(copyAt(300))
	hook.Emit(gesture.KeyEvent{Keycode: 9, Modifiers: gesture.ModCommand, Timestamp: 310 * time.Millisecond})
	hook.Emit(copyAt(500))

	assert.Equal(t, int32(2), fired.Load())
}

func TestWatcher_IgnoresEventsAfterStop(t *testing.T) {
	w, hook, fired := newTestWatcher(t)
	require.NoError(t, w.Start(context.Background()))
	hook.Emit(copyAt(0))

	require.NoError(t, w.Stop())
	assert.Equal(t, StatusStopped, w.Status())

	hook.Emit(copyAt(100))
	assert.Equal(t, int32(0), fired.Load())
}

func TestWatcher_StopWithoutStart(t *testing.T) {
	w, _, _ := newTestWatcher(t)
	assert.NoError(t, w.Stop())
}

func TestWatcher_RetriesCreationFailureOnce(t *testing.T) {
	old := retryDelay
	retryDelay = time.Millisecond
	defer func() { retryDelay = old }()

	w, hook, _ := newTestWatcher(t)
	hook.FailStarts(fmt.Errorf("%w: busy", ErrCreationFailed))

	require.NoError(t, w.Start(context.Background()))
	assert.Equal(t, 2, hook.Starts())
	assert.Equal(t, StatusActive, w.Status())
}

func TestWatcher_CreationFailureTwiceGivesUp(t *testing.T) {
	old := retryDelay
	retryDelay = time.Millisecond
	defer func() { retryDelay = old }()

	w, hook, _ := newTestWatcher(t)
	hook.FailStarts(ErrCreationFailed, ErrCreationFailed, ErrCreationFailed)

	err := w.Start(context.Background())
	require.ErrorIs(t, err, ErrCreationFailed)
	assert.Equal(t, 2, hook.Starts())
	assert.Equal(t, StatusFailed, w.Status())
}

func TestWatcher_PermissionDeniedIsNotRetried(t *testing.T) {
	w, hook, _ := newTestWatcher(t)
	hook.FailStarts(ErrPermissionDenied)

	err := w.Start(context.Background())
	require.ErrorIs(t, err, ErrPermissionDenied)
	assert.Equal(t, 1, hook.Starts())
	assert.Equal(t, StatusPermissionDenied, w.Status())
}

func TestWatcher_RetryHonoursContext(t *testing.T) {
	old := retryDelay
	retryDelay = time.Hour
	defer func() { retryDelay = old }()

	w, hook, _ := newTestWatcher(t)
	hook.FailStarts(ErrCreationFailed)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := w.Start(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, hook.Starts())
}

func TestWatcher_RecoversHandlerPanic(t *testing.T) {
	hook := NewSimulated()
	w := NewWatcher(hook, gesture.NewDetector(testTrigger), func(gesture.Signal) {
		panic("boom")
	}, quietLogger())
	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()

	hook.Emit(copyAt(0))
	assert.NotPanics(t, func() { hook.Emit(copyAt(10)) })
}

func TestSimulated_DoubleStart(t *testing.T) {
	hook := NewSimulated()
	require.NoError(t, hook.Start(context.Background(), func(gesture.KeyEvent) {}))
	assert.ErrorIs(t, hook.Start(context.Background(), func(gesture.KeyEvent) {}), ErrAlreadyRunning)
}

func TestDefaultTriggerUsesPrimaryModifier(t *testing.T) {
	trig := DefaultTrigger()
	assert.Equal(t, primaryModifier, trig.Modifiers)
	assert.Equal(t, uint16(copyKeycode), trig.Keycode)
}

func TestWatcher_RestartsLostHook(t *testing.T) {
	old := retryDelay
	retryDelay = time.Millisecond
	defer func() { retryDelay = old }()

	w, hook, fired := newTestWatcher(t)
	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()

	hook.Emit(copyAt(0))
	hook.Lose(errors.New("all keyboards unplugged"))
	assert.False(t, hook.IsRunning())

	require.Eventually(t, func() bool {
		return w.Status() == StatusActive && hook.IsRunning()
	}, time.Second, time.Millisecond)
	assert.Equal(t, 2, hook.Starts())

	// the press before the loss does not pair with one after it
	hook.Emit(copyAt(100))
	assert.Equal(t, int32(0), fired.Load())
	hook.Emit(copyAt(200))
	assert.Equal(t, int32(1), fired.Load())
}

func TestWatcher_LostHookRestartFails(t *testing.T) {
	old := retryDelay
	retryDelay = time.Millisecond
	defer func() { retryDelay = old }()

	w, hook, _ := newTestWatcher(t)
	failed := make(chan error, 1)
	w.OnFailure(func(err error) { failed <- err })
	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()

	hook.FailStarts(ErrPermissionDenied)
	hook.Lose(errors.New("device revoked"))

	select {
	case err := <-failed:
		assert.ErrorIs(t, err, ErrHookLost)
		assert.ErrorIs(t, err, ErrPermissionDenied)
	case <-time.After(time.Second):
		t.Fatal("failure not reported")
	}
	assert.Equal(t, StatusPermissionDenied, w.Status())
	assert.Equal(t, 2, hook.Starts())
}

func TestWatcher_LossAfterStopIsIgnored(t *testing.T) {
	old := retryDelay
	retryDelay = time.Millisecond
	defer func() { retryDelay = old }()

	w, hook, _ := newTestWatcher(t)
	require.NoError(t, w.Start(context.Background()))
	require.NoError(t, w.Stop())

	hook.Lose(errors.New("late"))
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, StatusStopped, w.Status())
	assert.Equal(t, 1, hook.Starts())
}

func TestWatcher_StatusFailedUntilRestart(t *testing.T) {
	old := retryDelay
	retryDelay = time.Hour
	defer func() { retryDelay = old }()

	w, hook, _ := newTestWatcher(t)
	require.NoError(t, w.Start(context.Background()))

	hook.Lose(errors.New("gone"))
	assert.Equal(t, StatusFailed, w.Status())

	require.NoError(t, w.Stop())
	assert.Equal(t, StatusStopped, w.Status())
	assert.Equal(t, 1, hook.Starts())
}
