// Package notify shows desktop notifications.
package notify

import (
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"sync"
)

// AppName is the sender name shown by notification daemons.
const AppName = "ContextCollector"

// ErrUnsupported is returned when no notification mechanism is available.
var ErrUnsupported = errors.New("notifications unsupported on this platform")

// Sender delivers one notification.
type Sender func(title, message string) error

// Send shows a desktop notification.
func Send(title, message string) error {
	return send(title, message)
}

// Once sends each keyed notice at most once.
type Once struct {
	mu   sync.Mutex
	sent map[string]struct{}
	send Sender
}

// NewOnce returns a guard around sender. A nil sender uses Send.
func NewOnce(sender Sender) *Once {
	if sender == nil {
		sender = Send
	}
	return &Once{sent: make(map[string]struct{}), send: sender}
}

// Notify sends the notice for key unless it was already sent. It reports
// whether a send was attempted. A failed send still consumes the key.
func (o *Once) Notify(key, title, message string) (bool, error) {
	o.mu.Lock()
	if _, ok := o.sent[key]; ok {
		o.mu.Unlock()
		return false, nil
	}
	o.sent[key] = struct{}{}
	o.mu.Unlock()

	return true, o.send(title, message)
}

// Sent reports whether key has been used.
func (o *Once) Sent(key string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	_, ok := o.sent[key]
	return ok
}

// runFirst runs each command until one succeeds.
func runFirst(cmds ...*exec.Cmd) error {
	var errs []error
	for _, cmd := range cmds {
		err := cmd.Run()
		if err == nil {
			return nil
		}
		errs = append(errs, fmt.Errorf("%s: %w", cmd.Path, err))
	}
	return errors.Join(errs...)
}

func appleScriptQuote(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
}

func powerShellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
