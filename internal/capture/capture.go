// Package capture builds the initial text of a capture panel.
package capture

import (
	"context"
	"fmt"
	"time"

	"github.com/atotto/clipboard"
)

// Header starts every capture so the user has a place to annotate.
const Header = "// Notes:\n\n"

// DefaultDelay lets the second copy of the gesture land on the clipboard
// before it is read.
const DefaultDelay = 100 * time.Millisecond

// Source provides the text to capture.
type Source interface {
	ReadAll() (string, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func() (string, error)

// ReadAll calls f.
func (f SourceFunc) ReadAll() (string, error) {
	return f()
}

// Clipboard reads the system clipboard.
func Clipboard() Source {
	return SourceFunc(clipboard.ReadAll)
}

// Content waits delay, reads src and returns the text under Header. On a
// read error the bare header is returned with the error.
func Content(ctx context.Context, src Source, delay time.Duration) (string, error) {
	if delay > 0 {
		t := time.NewTimer(delay)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return Header, ctx.Err()
		case <-t.C:
		}
	}
	text, err := src.ReadAll()
	if err != nil {
		return Header, fmt.Errorf("read clipboard: %w", err)
	}
	return Header + text, nil
}
