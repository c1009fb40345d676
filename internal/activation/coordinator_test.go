package activation

import (
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"contextcollector/internal/geometry"
)

// manualDispatcher runs posted work only when the test drains it, and
// holds delayed work until the test fires it.
type manualDispatcher struct {
	queue  []func()
	timers []pendingTimer
}

type pendingTimer struct {
	delay time.Duration
	fn    func()
}

func (m *manualDispatcher) Post(fn func()) {
	m.queue = append(m.queue, fn)
}

func (m *manualDispatcher) After(d time.Duration, fn func()) {
	m.timers = append(m.timers, pendingTimer{delay: d, fn: fn})
}

func (m *manualDispatcher) drain() {
	for len(m.queue) > 0 {
		fn := m.queue[0]
		m.queue = m.queue[1:]
		fn()
	}
}

// fire runs every timer scheduled so far, then drains.
func (m *manualDispatcher) fire() {
	pending := m.timers
	m.timers = nil
	for _, t := range pending {
		m.Post(t.fn)
	}
	m.drain()
}

type fakePanel struct {
	frame     geometry.Rect
	key       bool
	fronts    int
	minimized bool
	restores  int
	closed    bool
}

func (p *fakePanel) OrderFront() { p.fronts++ }
func (p *fakePanel) IsKey() bool { return p.key }
func (p *fakePanel) Minimize() { p.minimized = true }
func (p *fakePanel) Close() { p.closed = true }

func (p *fakePanel) Restore() {
	p.minimized = false
	p.restores++
}

type fakePlatform struct {
	pointer  geometry.Point
	displays []geometry.Display

	createErr error
	panels    []*fakePanel
	keyOnOpen bool

	policies    []Policy
	activates   int
	deactivates int
	active      bool
}

func (f *fakePlatform) Pointer() geometry.Point { return f.pointer }
func (f *fakePlatform) Displays() []geometry.Display { return f.displays }
func (f *fakePlatform) SetPolicy(p Policy) { f.policies = append(f.policies, p) }
func (f *fakePlatform) Activate() { f.activates++ }
func (f *fakePlatform) Deactivate() { f.deactivates++ }
func (f *fakePlatform) IsActive() bool { return f.active }
func (f *fakePlatform) lastPanel() *fakePanel { return f.panels[len(f.panels)-1] }
func (f *fakePlatform) lastPolicy() Policy { return f.policies[len(f.policies)-1] }

func (f *fakePlatform) CreatePanel(frame geometry.Rect) (Panel, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	p := &fakePanel{frame: frame, key: f.keyOnOpen}
	f.panels = append(f.panels, p)
	return p, nil
}

func newFixture(t *testing.T) (*Coordinator, *fakePlatform, *manualDispatcher) {
	t.Helper()
	platform := &fakePlatform{
		pointer: geometry.Point{X: 100, Y: 100},
		displays: []geometry.Display{{
			Bounds:  geometry.Rect{Width: 1920, Height: 1080},
			Usable:  geometry.Rect{Width: 1920, Height: 1080},
			Scale:   1,
			Primary: true,
		}},
		keyOnOpen: true,
		active:    true,
	}
	d := &manualDispatcher{}
	c := New(platform, d, Options{
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	return c, platform, d
}

func TestShow_CreatesPlacedPanel(t *testing.T) {
	c, platform, d := newFixture(t)

	var fresh []bool
	c.OnShown(func(f bool) { fresh = append(fresh, f) })

	c.Show()
	assert.Equal(t, StateHidden, c.State(), "show only posts")
	d.drain()

	require.Len(t, platform.panels, 1)
	panel := platform.lastPanel()
	assert.Equal(t, geometry.Rect{X: 120, Y: 120, Width: 800, Height: 500}, panel.frame)
	assert.Equal(t, 1, panel.fronts)
	assert.Equal(t, 1, platform.activates)
	assert.Equal(t, []Policy{PolicyBackground}, platform.policies)
	assert.Equal(t, StateShown, c.State())
	assert.Equal(t, []bool{true}, fresh)
}

func TestShow_TwiceKeepsOnePanel(t *testing.T) {
	c, platform, d := newFixture(t)
	var fresh []bool
	c.OnShown(func(f bool) { fresh = append(fresh, f) })

	c.Show()
	c.Show()
	d.drain()

	require.Len(t, platform.panels, 1)
	assert.Equal(t, 2, platform.lastPanel().fronts)
	assert.Equal(t, 2, platform.activates)
	assert.Equal(t, StateShown, c.State())
	assert.Equal(t, []bool{true, false}, fresh)
}

func TestHideAfterSave_ThenShowCreatesFreshPanel(t *testing.T) {
	c, platform, d := newFixture(t)

	c.Show()
	c.Hide(true)
	d.drain()

	first := platform.lastPanel()
	assert.True(t, first.closed)
	assert.Equal(t, StateHidden, c.State())
	assert.Equal(t, 1, platform.deactivates)
	assert.Equal(t, PolicyBackground, platform.lastPolicy(), "a save keeps the agent policy")

	c.Show()
	d.drain()
	require.Len(t, platform.panels, 2)
	assert.NotSame(t, first, platform.lastPanel())
	assert.Equal(t, StateShown, c.State())
}

func TestHideWithoutSave_RestoresForegroundPolicy(t *testing.T) {
	c, platform, d := newFixture(t)

	c.Show()
	c.Hide(false)
	d.drain()

	assert.Equal(t, []Policy{PolicyBackground, PolicyForeground}, platform.policies)
	assert.Equal(t, 0, platform.deactivates)
	assert.Equal(t, StateHidden, c.State())
}

func TestHide_WhenHiddenIsNoop(t *testing.T) {
	c, platform, d := newFixture(t)

	c.Hide(false)
	c.Hide(true)
	d.drain()

	assert.Empty(t, platform.policies)
	assert.Equal(t, 0, platform.deactivates)
	assert.Equal(t, StateHidden, c.State())
}

func TestMinimizeAndReshow(t *testing.T) {
	c, platform, d := newFixture(t)

	c.Minimize()
	d.drain()
	assert.Equal(t, StateHidden, c.State(), "minimize without a panel does nothing")

	c.Show()
	c.Minimize()
	d.drain()
	panel := platform.lastPanel()
	assert.True(t, panel.minimized)
	assert.Equal(t, StateMinimized, c.State())

	c.Show()
	d.drain()
	assert.False(t, panel.minimized)
	assert.Equal(t, 1, panel.restores)
	assert.Len(t, platform.panels, 1)
	assert.Equal(t, StateShown, c.State())
}

func TestHide_MinimizedPanelIsReleased(t *testing.T) {
	c, platform, d := newFixture(t)

	c.Show()
	c.Minimize()
	c.Hide(false)
	d.drain()

	assert.True(t, platform.lastPanel().closed)
	assert.Equal(t, StateHidden, c.State())
}

func TestVerify_PassesWithoutRetry(t *testing.T) {
	c, platform, d := newFixture(t)

	c.Show()
	d.drain()
	require.Len(t, d.timers, 1)
	assert.Equal(t, DefaultSettleDelay, d.timers[0].delay)

	d.fire()
	assert.Empty(t, d.timers)
	assert.Equal(t, 1, platform.lastPanel().fronts)
	assert.Equal(t, 1, platform.activates)
}

func TestVerify_RetriesExactlyOnce(t *testing.T) {
	c, platform, d := newFixture(t)
	platform.keyOnOpen = false

	c.Show()
	d.drain()

	d.fire()
	panel := platform.lastPanel()
	assert.Equal(t, 2, panel.fronts, "one retry")
	assert.Equal(t, 2, platform.activates)
	require.Len(t, d.timers, 1, "second check scheduled")

	d.fire()
	assert.Equal(t, 2, panel.fronts, "no escalation after the second check")
	assert.Empty(t, d.timers)
	assert.Equal(t, StateShown, c.State())
}

func TestVerify_RetrySucceeds(t *testing.T) {
	c, platform, d := newFixture(t)
	platform.active = false

	c.Show()
	d.drain()
	d.fire()

	platform.active = true
	d.fire()
	assert.Empty(t, d.timers)
	assert.Equal(t, 2, platform.lastPanel().fronts)
}

func TestVerify_StaleCheckIgnored(t *testing.T) {
	c, platform, d := newFixture(t)
	platform.keyOnOpen = false

	c.Show()
	c.Hide(true)
	c.Show()
	d.drain()
	require.Len(t, d.timers, 2)

	old := platform.panels[0]
	current := platform.panels[1]
	d.timers[0].fn()
	assert.Equal(t, 1, old.fronts, "check for a closed panel is ignored")
	assert.Equal(t, 1, current.fronts, "check for an earlier show does not touch the new panel")

	d.timers[1].fn()
	assert.Equal(t, 2, current.fronts)
}

func TestShow_CreateFailureStaysHidden(t *testing.T) {
	c, platform, d := newFixture(t)
	platform.createErr = errors.New("no window server")
	shown := false
	c.OnShown(func(bool) { shown = true })

	c.Show()
	d.drain()

	assert.Equal(t, StateHidden, c.State())
	assert.Empty(t, d.timers)
	assert.False(t, shown)
	assert.Equal(t, 0, platform.activates)

	platform.createErr = nil
	c.Show()
	d.drain()
	assert.Equal(t, StateShown, c.State())
}

func TestShow_UsesDisplayUnderPointer(t *testing.T) {
	c, platform, d := newFixture(t)
	platform.displays = append(platform.displays, geometry.Display{
		Bounds: geometry.Rect{X: 1920, Width: 2560, Height: 1440},
		Usable: geometry.Rect{X: 1920, Width: 2560, Height: 1415},
		Scale:  2,
	})
	platform.pointer = geometry.Point{X: 2000, Y: 1000}

	c.Show()
	d.drain()

	assert.Equal(t, geometry.Rect{X: 2010, Y: 490, Width: 800, Height: 500}, platform.lastPanel().frame)
}

func TestConfigure(t *testing.T) {
	c, platform, d := newFixture(t)
	c.Configure(geometry.Size{Width: 400, Height: 300}, 50*time.Millisecond)
	c.Show()
	d.drain()

	assert.Equal(t, geometry.Size{Width: 400, Height: 300}, platform.lastPanel().frame.Size())
	require.Len(t, d.timers, 1)
	assert.Equal(t, 50*time.Millisecond, d.timers[0].delay)
}

func TestStrings(t *testing.T) {
	assert.Equal(t, "hidden", StateHidden.String())
	assert.Equal(t, "shown", StateShown.String())
	assert.Equal(t, "minimized", StateMinimized.String())
	assert.Equal(t, "background", PolicyBackground.String())
	assert.Equal(t, "foreground", PolicyForeground.String())
}
