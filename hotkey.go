package main

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"golang.design/x/hotkey"

	"contextcollector/internal/config"
	"contextcollector/internal/gesture"
)

var hotkeyKeys = map[string]hotkey.Key{
	"space": hotkey.KeySpace, "return": hotkey.KeyReturn,
	"escape": hotkey.KeyEscape, "tab": hotkey.KeyTab,
	"0": hotkey.Key0, "1": hotkey.Key1, "2": hotkey.Key2, "3": hotkey.Key3, "4": hotkey.Key4,
	"5": hotkey.Key5, "6": hotkey.Key6, "7": hotkey.Key7, "8": hotkey.Key8, "9": hotkey.Key9,
	"a": hotkey.KeyA, "b": hotkey.KeyB, "c": hotkey.KeyC, "d": hotkey.KeyD, "e": hotkey.KeyE,
	"f": hotkey.KeyF, "g": hotkey.KeyG, "h": hotkey.KeyH, "i": hotkey.KeyI, "j": hotkey.KeyJ,
	"k": hotkey.KeyK, "l": hotkey.KeyL, "m": hotkey.KeyM, "n": hotkey.KeyN, "o": hotkey.KeyO,
	"p": hotkey.KeyP, "q": hotkey.KeyQ, "r": hotkey.KeyR, "s": hotkey.KeyS, "t": hotkey.KeyT,
	"u": hotkey.KeyU, "v": hotkey.KeyV, "w": hotkey.KeyW, "x": hotkey.KeyX, "y": hotkey.KeyY,
	"z": hotkey.KeyZ,
}

// parseHotkey converts the configured shortcut for the current platform.
func parseHotkey(cfg config.HotkeyConfig) ([]hotkey.Modifier, hotkey.Key, error) {
	key, ok := hotkeyKeys[strings.ToLower(cfg.Key)]
	if !ok {
		return nil, 0, fmt.Errorf("unsupported hotkey key %q", cfg.Key)
	}
	var mods []hotkey.Modifier
	for _, name := range cfg.Modifiers {
		bit, ok := gesture.ParseModifier(name)
		if !ok {
			return nil, 0, fmt.Errorf("unknown hotkey modifier %q", name)
		}
		mod, ok := hotkeyModifiers[bit]
		if !ok {
			return nil, 0, fmt.Errorf("modifier %q has no hotkey equivalent here", name)
		}
		mods = append(mods, mod)
	}
	return mods, key, nil
}

// hotkeyBinding keeps at most one direct shortcut registered.
type hotkeyBinding struct {
	onPress func()
	logger  *slog.Logger

	mu   sync.Mutex
	hk   *hotkey.Hotkey
	stop chan struct{}
}

func newHotkeyBinding(onPress func(), logger *slog.Logger) *hotkeyBinding {
	return &hotkeyBinding{onPress: onPress, logger: logger}
}

// Apply replaces the registered shortcut with cfg. A disabled config only
// unregisters.
func (b *hotkeyBinding) Apply(cfg config.HotkeyConfig) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.unregisterLocked()

	if !cfg.Enabled {
		return nil
	}
	mods, key, err := parseHotkey(cfg)
	if err != nil {
		return err
	}
	hk := hotkey.New(mods, key)
	if err := hk.Register(); err != nil {
		return fmt.Errorf("register hotkey %s+%s: %w", strings.Join(cfg.Modifiers, "+"), cfg.Key, err)
	}
	b.hk = hk
	b.stop = make(chan struct{})
	go b.listen(hk, b.stop)

	b.logger.Info("hotkey registered", "modifiers", cfg.Modifiers, "key", cfg.Key)
	return nil
}

func (b *hotkeyBinding) listen(hk *hotkey.Hotkey, stop <-chan struct{}) {
	for {
		select {
		case <-stop:
			return
		case _, ok := <-hk.Keydown():
			if !ok {
				return
			}
			b.logger.Debug("hotkey pressed")
			b.onPress()
		}
	}
}

func (b *hotkeyBinding) unregisterLocked() {
	if b.hk == nil {
		return
	}
	close(b.stop)
	if err := b.hk.Unregister(); err != nil {
		b.logger.Warn("unregister hotkey", "error", err)
	}
	b.hk, b.stop = nil, nil
}

// Close unregisters the shortcut.
func (b *hotkeyBinding) Close() {
	b.mu.Lock()
	b.unregisterLocked()
	b.mu.Unlock()
}
