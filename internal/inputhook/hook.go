// Package inputhook observes the system-wide key-down stream.
//
// Hooks never modify or swallow events. Handlers run on the hook's own
// delivery context (a run-loop thread, reader goroutine or hook thread),
// never on the UI context, and must return quickly: some platforms disable
// a hook that stalls event delivery.
//
// Platform support:
//   - macOS: listen-only CGEventTap (requires Accessibility permission)
//   - Linux: /dev/input/event* (requires the input group or root)
//   - Windows: WH_KEYBOARD_LL low-level hook
package inputhook

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"contextcollector/internal/gesture"
)

// Handler receives every key-down seen by a hook.
type Handler func(gesture.KeyEvent)

// Hook is a global key-down subscription.
type Hook interface {
	// Start begins delivering key-downs to fn.
	Start(ctx context.Context, fn Handler) error

	// Stop releases the subscription. Safe to call when not started.
	Stop() error

	// Available reports whether the hook can start with current
	// permissions, with a human-readable reason.
	Available() (bool, string)
}

// ErrPermissionDenied is returned when the process may not observe global
// input. It is not retried.
var ErrPermissionDenied = errors.New("permission to observe global input denied")

// ErrCreationFailed is returned when the OS rejected the hook or resources
// ran out. Callers may retry.
var ErrCreationFailed = errors.New("global input hook creation failed")

// ErrAlreadyRunning is returned when Start is called on a running hook.
var ErrAlreadyRunning = errors.New("input hook already running")

// ErrHookLost is reported when a running hook stops on its own, for example
// when every keyboard device went away.
var ErrHookLost = errors.New("input hook lost its event source")

// LossNotifier is implemented by hooks that can stop without Stop being
// called.
type LossNotifier interface {
	// OnLost registers fn. It is called once per loss, after the hook has
	// marked itself stopped, with an error wrapping ErrHookLost.
	OnLost(fn func(error))
}

// New creates the hook for the current platform.
func New() Hook {
	return newPlatformHook()
}

// DefaultTrigger is the copy key with the platform's primary modifier.
func DefaultTrigger() gesture.Trigger {
	return gesture.Trigger{Keycode: copyKeycode, Modifiers: primaryModifier}
}

// RequestPermission asks the OS to grant input monitoring where the
// platform has a prompt for it. It reports whether permission is held.
func RequestPermission() bool {
	return requestPermission()
}

// baseHook holds the running flag and handler shared by implementations.
type baseHook struct {
	mu      sync.RWMutex
	running bool
	handler Handler
	lost    func(error)
}

// OnLost implements LossNotifier.
func (b *baseHook) OnLost(fn func(error)) {
	b.mu.Lock()
	b.lost = fn
	b.mu.Unlock()
}

func (b *baseHook) reportLost(err error) {
	b.mu.RLock()
	fn := b.lost
	b.mu.RUnlock()
	if fn != nil {
		fn(err)
	}
}

func (b *baseHook) setRunning(running bool, fn Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.running = running
	b.handler = fn
}

// IsRunning reports whether the hook is started.
func (b *baseHook) IsRunning() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.running
}

func (b *baseHook) deliver(ev gesture.KeyEvent) {
	b.mu.RLock()
	fn := b.handler
	b.mu.RUnlock()
	if fn != nil {
		fn(ev)
	}
}

// Simulated is a hook that delivers events injected by tests.
type Simulated struct {
	baseHook
	startErr []error
	starts   int
}

// NewSimulated returns a simulated hook.
func NewSimulated() *Simulated {
	return &Simulated{}
}

// FailStarts makes the next len(errs) calls to Start return errs in order.
func (s *Simulated) FailStarts(errs ...error) {
	s.mu.Lock()
	s.startErr = append(s.startErr, errs...)
	s.mu.Unlock()
}

// Starts returns how many times Start was called.
func (s *Simulated) Starts() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.starts
}

// Start implements Hook.
func (s *Simulated) Start(ctx context.Context, fn Handler) error {
	s.mu.Lock()
	s.starts++
	if len(s.startErr) > 0 {
		err := s.startErr[0]
		s.startErr = s.startErr[1:]
		s.mu.Unlock()
		return err
	}
	if s.running {
		s.mu.Unlock()
		return ErrAlreadyRunning
	}
	s.running = true
	s.handler = fn
	s.mu.Unlock()
	return nil
}

// Stop implements Hook.
func (s *Simulated) Stop() error {
	s.setRunning(false, nil)
	return nil
}

// Available implements Hook.
func (s *Simulated) Available() (bool, string) {
	return true, "simulated hook (for testing)"
}

// Emit delivers ev as if it came from the keyboard. Ignored when stopped.
func (s *Simulated) Emit(ev gesture.KeyEvent) {
	s.deliver(ev)
}

// Lose stops the hook as if its event source disappeared and reports cause.
func (s *Simulated) Lose(cause error) {
	s.setRunning(false, nil)
	s.reportLost(fmt.Errorf("%w: %v", ErrHookLost, cause))
}
