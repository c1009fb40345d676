//go:build !darwin && !linux && !windows

package inputhook

import (
	"context"
	"fmt"

	"contextcollector/internal/gesture"
)

const (
	copyKeycode     = 0
	primaryModifier = gesture.ModControl
)

// StubHook is used on platforms without a global key-event source.
type StubHook struct{}

func newPlatformHook() Hook {
	return StubHook{}
}

func requestPermission() bool {
	return false
}

// Available returns false on unsupported platforms.
func (StubHook) Available() (bool, string) {
	return false, "global key events are not supported on this platform"
}

// Start always fails on unsupported platforms.
func (StubHook) Start(ctx context.Context, fn Handler) error {
	return fmt.Errorf("%w: unsupported platform", ErrCreationFailed)
}

// Stop is a no-op.
func (StubHook) Stop() error {
	return nil
}
