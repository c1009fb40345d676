//go:build linux

package main

import (
	"golang.design/x/hotkey"

	"contextcollector/internal/gesture"
)

// X11 maps Alt to Mod1 and Super to Mod4 on common layouts.
var hotkeyModifiers = map[gesture.Modifiers]hotkey.Modifier{
	gesture.ModShift:   hotkey.ModShift,
	gesture.ModControl: hotkey.ModCtrl,
	gesture.ModOption:  hotkey.Mod1,
	gesture.ModCommand: hotkey.Mod4,
}
