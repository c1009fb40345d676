// Package config handles configuration loading and validation for
// contextcollector.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"contextcollector/internal/gesture"
)

// Version is the current configuration schema version.
const Version = 1

// Config holds the complete application configuration.
type Config struct {
	Version int `toml:"version" json:"version" yaml:"version"`

	// Gesture overrides the double-press trigger.
	Gesture GestureConfig `toml:"gesture" json:"gesture" yaml:"gesture"`

	// Hotkey is an optional single-press shortcut for the panel.
	Hotkey HotkeyConfig `toml:"hotkey" json:"hotkey" yaml:"hotkey"`

	Panel   PanelConfig   `toml:"panel" json:"panel" yaml:"panel"`
	Storage StorageConfig `toml:"storage" json:"storage" yaml:"storage"`
	Logging LoggingConfig `toml:"logging" json:"logging" yaml:"logging"`
}

// GestureConfig selects the key that must be pressed twice. Zero values
// keep the platform's copy shortcut.
type GestureConfig struct {
	// Keycode is the platform keycode; 0 means the copy key.
	Keycode int `toml:"keycode" json:"keycode" yaml:"keycode"`
	// Modifiers that must be held, e.g. ["cmd"]. Empty means the platform
	// primary modifier.
	Modifiers []string `toml:"modifiers" json:"modifiers" yaml:"modifiers"`
}

// HotkeyConfig is the direct shortcut.
type HotkeyConfig struct {
	Enabled   bool     `toml:"enabled" json:"enabled" yaml:"enabled"`
	Modifiers []string `toml:"modifiers" json:"modifiers" yaml:"modifiers"`
	Key       string   `toml:"key" json:"key" yaml:"key"`
}

// PanelConfig sizes the capture panel.
type PanelConfig struct {
	Width  int `toml:"width" json:"width" yaml:"width"`
	Height int `toml:"height" json:"height" yaml:"height"`
	// SettleDelay is how long to wait before checking the panel has focus.
	SettleDelay Duration `toml:"settle_delay" json:"settle_delay" yaml:"settle_delay"`
}

// StorageConfig locates captures and the index.
type StorageConfig struct {
	// BaseDir defaults to ~/ContextCollector.
	BaseDir string `toml:"base_dir" json:"base_dir" yaml:"base_dir"`
	// Database defaults to <base_dir>/.index.db.
	Database string `toml:"database" json:"database" yaml:"database"`
}

// LoggingConfig mirrors logging.Config.
type LoggingConfig struct {
	Level    string `toml:"level" json:"level" yaml:"level"`
	Format   string `toml:"format" json:"format" yaml:"format"`
	Output   string `toml:"output" json:"output" yaml:"output"`
	FilePath string `toml:"file_path" json:"file_path" yaml:"file_path"`
}

// Duration is a time.Duration written as "150ms" in config files.
type Duration time.Duration

// UnmarshalText parses a Go duration string.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}
	*d = Duration(v)
	return nil
}

// MarshalText formats the duration.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Version: Version,
		Hotkey: HotkeyConfig{
			Enabled:   false,
			Modifiers: []string{"ctrl", "shift"},
			Key:       "l",
		},
		Panel: PanelConfig{
			Width:       800,
			Height:      500,
			SettleDelay: Duration(150 * time.Millisecond),
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
	}
}

// Dir returns the application's config directory.
func Dir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "contextcollector")
	}
	return filepath.Join(os.TempDir(), "contextcollector")
}

// Path returns the default configuration file path.
func Path() string {
	return filepath.Join(Dir(), "config.toml")
}

// ApplyEnvOverrides applies CONTEXTCOLLECTOR_* environment variables.
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("CONTEXTCOLLECTOR_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("CONTEXTCOLLECTOR_BASE_DIR"); v != "" {
		c.Storage.BaseDir = v
	}
	if v := os.Getenv("CONTEXTCOLLECTOR_DATABASE"); v != "" {
		c.Storage.Database = v
	}
}

// Trigger applies the gesture override to def.
func (c *Config) Trigger(def gesture.Trigger) gesture.Trigger {
	t := def
	if c.Gesture.Keycode > 0 {
		t.Keycode = uint16(c.Gesture.Keycode)
	}
	if len(c.Gesture.Modifiers) > 0 {
		var mods gesture.Modifiers
		for _, name := range c.Gesture.Modifiers {
			if m, ok := gesture.ParseModifier(name); ok {
				mods |= m
			}
		}
		t.Modifiers = mods
	}
	return t
}

// Clone returns a deep copy.
func (c *Config) Clone() *Config {
	clone := *c
	clone.Gesture.Modifiers = append([]string(nil), c.Gesture.Modifiers...)
	clone.Hotkey.Modifiers = append([]string(nil), c.Hotkey.Modifiers...)
	return &clone
}
