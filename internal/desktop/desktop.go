// Package desktop drives the Wails window as the capture panel.
//
// The single Wails window is reused for every panel: creating a panel
// sizes and positions it, closing hides it. On macOS native AppKit calls
// handle the activation policy, focus checks and the global frame.
package desktop

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	wailsRuntime "github.com/wailsapp/wails/v2/pkg/runtime"

	"contextcollector/internal/activation"
	"contextcollector/internal/geometry"
)

// Frontend event names.
const (
	// EventCaptureNew tells the frontend a fresh panel opened and should
	// reload its content.
	EventCaptureNew = "capture:new"
	// EventHookInactive tells the frontend the gesture is unavailable.
	EventHookInactive = "hook:inactive"
)

// PanelTitle is the panel window's title.
const PanelTitle = "ContextCollector"

// ErrNotAttached is returned before the Wails runtime has started.
var ErrNotAttached = errors.New("desktop backend not attached to a window")

// Backend implements activation.Platform on top of the Wails runtime.
type Backend struct {
	logger *slog.Logger

	mu  sync.RWMutex
	ctx context.Context
}

// New creates a detached backend. Call Attach from the Wails startup hook.
func New(logger *slog.Logger) *Backend {
	if logger == nil {
		logger = slog.Default()
	}
	return &Backend{logger: logger}
}

// Attach binds the backend to the Wails runtime context.
func (b *Backend) Attach(ctx context.Context) {
	b.mu.Lock()
	b.ctx = ctx
	b.mu.Unlock()
}

func (b *Backend) context() (context.Context, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.ctx, b.ctx != nil
}

// Emit sends an event to the frontend. It is dropped while detached.
func (b *Backend) Emit(name string, data ...interface{}) {
	ctx, ok := b.context()
	if !ok {
		b.logger.Debug("event dropped, not attached", "event", name)
		return
	}
	wailsRuntime.EventsEmit(ctx, name, data...)
}

// Pointer returns the pointer location in global coordinates.
func (b *Backend) Pointer() geometry.Point {
	ctx, _ := b.context()
	return nativePointer(ctx)
}

// Displays lists the attached displays.
func (b *Backend) Displays() []geometry.Display {
	ctx, ok := b.context()
	if !ok && !nativeDisplaysWithoutRuntime {
		return nil
	}
	return nativeDisplays(ctx, b.logger)
}

// CreatePanel sizes and positions the window for a new panel. The window
// stays hidden until OrderFront.
func (b *Backend) CreatePanel(frame geometry.Rect) (activation.Panel, error) {
	ctx, ok := b.context()
	if !ok {
		return nil, ErrNotAttached
	}
	wailsRuntime.WindowSetSize(ctx, int(frame.Width), int(frame.Height))
	if err := nativePlace(ctx, frame, b.Displays()); err != nil {
		return nil, fmt.Errorf("place panel: %w", err)
	}
	return &panel{ctx: ctx}, nil
}

// SetPolicy switches between a background agent and a regular app.
func (b *Backend) SetPolicy(p activation.Policy) {
	nativeSetPolicy(p)
}

// Activate brings the app to the foreground.
func (b *Backend) Activate() {
	nativeActivate()
}

// Deactivate hands focus back to the previously active app.
func (b *Backend) Deactivate() {
	nativeDeactivate()
}

// IsActive reports whether the app is frontmost.
func (b *Backend) IsActive() bool {
	return nativeIsActive()
}

type panel struct {
	ctx context.Context
}

func (p *panel) OrderFront() {
	wailsRuntime.WindowShow(p.ctx)
	nativeOrderFront()
}

func (p *panel) IsKey() bool {
	return nativePanelIsKey()
}

func (p *panel) Minimize() {
	wailsRuntime.WindowMinimise(p.ctx)
}

func (p *panel) Restore() {
	wailsRuntime.WindowUnminimise(p.ctx)
}

func (p *panel) Close() {
	wailsRuntime.WindowHide(p.ctx)
}

var (
	_ activation.Platform = (*Backend)(nil)
	_ activation.Panel    = (*panel)(nil)
)
