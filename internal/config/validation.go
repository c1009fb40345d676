package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"contextcollector/internal/gesture"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid configuration")

const (
	minSettleDelay = 10 * time.Millisecond
	maxSettleDelay = 2 * time.Second
	maxKeycode     = 0xFFFF
)

// ValidationError is one invalid field.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors collects every invalid field.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	msgs := make([]string, len(e))
	for i, err := range e {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "; ")
}

// Is makes errors.Is(err, ErrInvalid) hold.
func (e ValidationErrors) Is(target error) bool {
	return target == ErrInvalid
}

// HotkeyKeys are the key names accepted for the direct shortcut.
var HotkeyKeys = func() map[string]bool {
	keys := map[string]bool{"space": true, "return": true, "escape": true, "tab": true}
	for c := 'a'; c <= 'z'; c++ {
		keys[string(c)] = true
	}
	for c := '0'; c <= '9'; c++ {
		keys[string(c)] = true
	}
	return keys
}()

// Validate checks the configuration.
func (c *Config) Validate() error {
	var errs ValidationErrors
	add := func(field, format string, args ...any) {
		errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	if c.Version < 1 || c.Version > Version {
		add("version", "unsupported version %d (current: %d)", c.Version, Version)
	}

	if c.Gesture.Keycode < 0 || c.Gesture.Keycode > maxKeycode {
		add("gesture.keycode", "out of range: %d", c.Gesture.Keycode)
	}
	for _, m := range c.Gesture.Modifiers {
		if _, ok := gesture.ParseModifier(m); !ok {
			add("gesture.modifiers", "unknown modifier %q", m)
		}
	}

	if c.Hotkey.Enabled {
		if len(c.Hotkey.Modifiers) == 0 {
			add("hotkey.modifiers", "at least one modifier is required")
		}
		for _, m := range c.Hotkey.Modifiers {
			if _, ok := gesture.ParseModifier(m); !ok {
				add("hotkey.modifiers", "unknown modifier %q", m)
			}
		}
		if !HotkeyKeys[strings.ToLower(c.Hotkey.Key)] {
			add("hotkey.key", "unsupported key %q", c.Hotkey.Key)
		}
	}

	if c.Panel.Width <= 0 || c.Panel.Height <= 0 {
		add("panel", "size must be positive, got %dx%d", c.Panel.Width, c.Panel.Height)
	}
	if d := c.Panel.SettleDelay.Std(); d < minSettleDelay || d > maxSettleDelay {
		add("panel.settle_delay", "%s is outside %s..%s", d, minSettleDelay, maxSettleDelay)
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		add("logging.level", "unknown level %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		add("logging.format", "unknown format %q", c.Logging.Format)
	}
	switch c.Logging.Output {
	case "stderr", "stdout":
	case "file":
		if c.Logging.FilePath == "" {
			add("logging.file_path", "required when output is file")
		}
	default:
		add("logging.output", "unknown output %q", c.Logging.Output)
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}
