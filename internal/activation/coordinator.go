// Package activation owns the capture panel's lifecycle and the process
// activation policy.
//
// Every panel and policy side effect runs on a Dispatcher. The exported
// methods only post work, so they are safe to call from any goroutine,
// including an input-hook callback.
package activation

import (
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"contextcollector/internal/geometry"
)

// ErrActivationUnverified is logged when the panel is still not key, or the
// app still not active, after the single retry.
var ErrActivationUnverified = errors.New("panel activation could not be verified")

// Policy is the process-wide activation policy.
type Policy int

const (
	// PolicyBackground is an accessory agent: no dock icon, and panels may
	// float over other apps' full-screen spaces.
	PolicyBackground Policy = iota
	// PolicyForeground is a regular app.
	PolicyForeground
)

func (p Policy) String() string {
	if p == PolicyForeground {
		return "foreground"
	}
	return "background"
}

// State is the panel's visibility.
type State int32

const (
	StateHidden State = iota
	StateShown
	StateMinimized
)

func (s State) String() string {
	switch s {
	case StateShown:
		return "shown"
	case StateMinimized:
		return "minimized"
	default:
		return "hidden"
	}
}

// Panel is a live capture panel.
type Panel interface {
	OrderFront()
	IsKey() bool
	Minimize()
	Restore()
	Close()
}

// Platform is the windowing system as the coordinator sees it.
type Platform interface {
	// Pointer returns the pointer location in global coordinates.
	Pointer() geometry.Point
	// Displays lists the attached displays, queried fresh on each call.
	Displays() []geometry.Display
	// CreatePanel makes a panel with the given frame. It is not yet shown.
	CreatePanel(frame geometry.Rect) (Panel, error)
	SetPolicy(p Policy)
	Activate()
	Deactivate()
	IsActive() bool
}

// DefaultSettleDelay is how long the window server gets before activation
// is checked.
const DefaultSettleDelay = 150 * time.Millisecond

// DefaultPanelSize is the capture panel's size in points.
var DefaultPanelSize = geometry.Size{Width: 800, Height: 500}

// Options configures a Coordinator.
type Options struct {
	PanelSize   geometry.Size
	SettleDelay time.Duration
	Logger      *slog.Logger
}

// Coordinator shows, hides and minimizes the capture panel.
type Coordinator struct {
	platform Platform
	dispatch Dispatcher
	logger   *slog.Logger

	state atomic.Int32

	mu      sync.Mutex
	onShown func(fresh bool)

	// owned by the dispatcher
	panel  Panel
	gen    uint64
	size   geometry.Size
	settle time.Duration
}

// New creates a coordinator in the Hidden state.
func New(platform Platform, dispatch Dispatcher, opts Options) *Coordinator {
	if opts.PanelSize.Width <= 0 || opts.PanelSize.Height <= 0 {
		opts.PanelSize = DefaultPanelSize
	}
	if opts.SettleDelay <= 0 {
		opts.SettleDelay = DefaultSettleDelay
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Coordinator{
		platform: platform,
		dispatch: dispatch,
		logger:   opts.Logger,
		size:     opts.PanelSize,
		settle:   opts.SettleDelay,
	}
}

// OnShown registers the handler told that a panel became visible. fresh is
// true when a new panel was created. It runs on the dispatcher.
func (c *Coordinator) OnShown(fn func(fresh bool)) {
	c.mu.Lock()
	c.onShown = fn
	c.mu.Unlock()
}

// State returns the current panel state.
func (c *Coordinator) State() State {
	return State(c.state.Load())
}

// Configure changes the size and settle delay used by later shows.
func (c *Coordinator) Configure(size geometry.Size, settle time.Duration) {
	c.dispatch.Post(func() {
		if size.Width > 0 && size.Height > 0 {
			c.size = size
		}
		if settle > 0 {
			c.settle = settle
		}
	})
}

// Show makes the panel visible and focused, creating it if needed.
func (c *Coordinator) Show() {
	c.dispatch.Post(c.show)
}

// Hide dismisses the panel. afterSave keeps the app a background agent and
// hands focus back; otherwise the app becomes a regular app again.
func (c *Coordinator) Hide(afterSave bool) {
	c.dispatch.Post(func() { c.hide(afterSave) })
}

// Minimize minimizes a shown panel.
func (c *Coordinator) Minimize() {
	c.dispatch.Post(c.minimize)
}

func (c *Coordinator) show() {
	c.platform.SetPolicy(PolicyBackground)

	if c.panel != nil {
		if c.State() == StateMinimized {
			c.panel.Restore()
		}
		c.panel.OrderFront()
		c.platform.Activate()
		c.setState(StateShown)
		c.gen++
		c.scheduleVerify(c.gen, 0)
		c.logger.Debug("panel re-shown")
		c.notifyShown(false)
		return
	}

	pointer := c.platform.Pointer()
	display, placement := geometry.PlaceOn(c.size, pointer, c.platform.Displays())
	frame := placement.Frame()

	panel, err := c.platform.CreatePanel(frame)
	if err != nil {
		c.logger.Error("create panel failed", "error", err, "frame", frame.String())
		return
	}
	c.panel = panel
	c.gen++
	panel.OrderFront()
	c.platform.Activate()
	c.setState(StateShown)
	c.scheduleVerify(c.gen, 0)

	c.logger.Info("panel shown",
		"pointer_x", pointer.X, "pointer_y", pointer.Y,
		"display", display.Bounds.String(), "scale", display.Scale,
		"frame", frame.String())
	c.notifyShown(true)
}

func (c *Coordinator) hide(afterSave bool) {
	if c.panel == nil {
		c.logger.Debug("hide ignored, no panel")
		return
	}
	c.panel.Close()
	c.panel = nil
	c.gen++
	c.setState(StateHidden)

	if afterSave {
		c.platform.Deactivate()
	} else {
		c.platform.SetPolicy(PolicyForeground)
	}
	c.logger.Info("panel hidden", "after_save", afterSave)
}

func (c *Coordinator) minimize() {
	if c.panel == nil || c.State() != StateShown {
		c.logger.Debug("minimize ignored", "state", c.State().String())
		return
	}
	c.panel.Minimize()
	c.gen++
	c.setState(StateMinimized)
}

func (c *Coordinator) scheduleVerify(gen uint64, attempt int) {
	c.dispatch.After(c.settle, func() { c.verify(gen, attempt) })
}

// verify checks that the panel took focus. A check from an earlier show or
// a panel that is gone is ignored.
func (c *Coordinator) verify(gen uint64, attempt int) {
	if c.panel == nil || gen != c.gen {
		return
	}
	if c.panel.IsKey() && c.platform.IsActive() {
		c.logger.Debug("panel activation verified", "attempt", attempt)
		return
	}
	if attempt == 0 {
		c.logger.Info("panel not focused, retrying activation")
		c.panel.OrderFront()
		c.platform.Activate()
		c.scheduleVerify(gen, 1)
		return
	}
	c.logger.Warn("panel activation failed", "error", ErrActivationUnverified,
		"key", c.panel.IsKey(), "active", c.platform.IsActive())
}

func (c *Coordinator) setState(s State) {
	c.state.Store(int32(s))
}

func (c *Coordinator) notifyShown(fresh bool) {
	c.mu.Lock()
	fn := c.onShown
	c.mu.Unlock()
	if fn != nil {
		fn(fresh)
	}
}
