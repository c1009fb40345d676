// Package gesture recognizes a double press of a trigger key on the global
// key-down stream.
//
// The detector is purely event driven: state is evaluated only when a
// key-down arrives, there are no timers. An armed detector stays armed until
// the next qualifying press overwrites it.
package gesture

import (
	"strings"
	"sync"
	"time"
)

// Threshold is the maximum interval between the two presses of a pair.
const Threshold = 400 * time.Millisecond

// Modifiers is a bitset of modifier keys held during a key-down.
type Modifiers uint8

// Modifier bits.
const (
	ModShift Modifiers = 1 << iota
	ModControl
	ModOption
	ModCommand
)

// Has reports whether every bit in want is set.
func (m Modifiers) Has(want Modifiers) bool {
	return m&want == want
}

func (m Modifiers) String() string {
	if m == 0 {
		return "none"
	}
	var parts []string
	if m&ModControl != 0 {
		parts = append(parts, "ctrl")
	}
	if m&ModOption != 0 {
		parts = append(parts, "alt")
	}
	if m&ModShift != 0 {
		parts = append(parts, "shift")
	}
	if m&ModCommand != 0 {
		parts = append(parts, "cmd")
	}
	return strings.Join(parts, "+")
}

// ParseModifier maps a config name to a modifier bit.
func ParseModifier(name string) (Modifiers, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "shift":
		return ModShift, true
	case "ctrl", "control":
		return ModControl, true
	case "alt", "option":
		return ModOption, true
	case "cmd", "command", "meta", "super", "win":
		return ModCommand, true
	}
	return 0, false
}

// KeyEvent is a single physical key-down observed on the global stream.
type KeyEvent struct {
	Keycode   uint16
	Modifiers Modifiers
	// Timestamp is monotonic; only differences between events are meaningful.
	Timestamp time.Duration
}

// Trigger is the key and the modifiers that must be held for a press to count.
type Trigger struct {
	Keycode   uint16
	Modifiers Modifiers
}

// Matches reports whether ev is a qualifying press.
func (t Trigger) Matches(ev KeyEvent) bool {
	return ev.Keycode == t.Keycode && ev.Modifiers.Has(t.Modifiers)
}

// Signal is emitted once per recognized pair.
type Signal struct {
	First    time.Duration
	Second   time.Duration
	Interval time.Duration
}

// Detector turns qualifying key-downs into Signals.
type Detector struct {
	trigger Trigger

	mu    sync.Mutex
	armed bool
	last  time.Duration
}

// NewDetector returns a detector for t.
func NewDetector(t Trigger) *Detector {
	return &Detector{trigger: t}
}

// Trigger returns the configured trigger.
func (d *Detector) Trigger() Trigger {
	return d.trigger
}

// OnKeyEvent feeds one key-down to the detector. It returns a Signal and
// true when ev completes a pair.
func (d *Detector) OnKeyEvent(ev KeyEvent) (Signal, bool) {
	if !d.trigger.Matches(ev) {
		return Signal{}, false
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.armed {
		interval := ev.Timestamp - d.last
		if interval >= 0 && interval <= Threshold {
			sig := Signal{First: d.last, Second: ev.Timestamp, Interval: interval}
			d.armed = false
			d.last = 0
			return sig, true
		}
	}
	d.armed = true
	d.last = ev.Timestamp
	return Signal{}, false
}

// Armed reports whether a first press is waiting for its pair, and when it
// arrived.
func (d *Detector) Armed() (time.Duration, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.last, d.armed
}

// Reset disarms the detector.
func (d *Detector) Reset() {
	d.mu.Lock()
	d.armed = false
	d.last = 0
	d.mu.Unlock()
}
