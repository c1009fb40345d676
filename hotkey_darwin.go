//go:build darwin

package main

import (
	"golang.design/x/hotkey"

	"contextcollector/internal/gesture"
)

var hotkeyModifiers = map[gesture.Modifiers]hotkey.Modifier{
	gesture.ModShift:   hotkey.ModShift,
	gesture.ModControl: hotkey.ModCtrl,
	gesture.ModOption:  hotkey.ModOption,
	gesture.ModCommand: hotkey.ModCmd,
}
