//go:build darwin

package notify

import (
	"fmt"
	"os/exec"
)

func send(title, message string) error {
	script := fmt.Sprintf("display notification %s with title %s",
		appleScriptQuote(message), appleScriptQuote(title))
	if err := exec.Command("osascript", "-e", script).Run(); err != nil {
		return fmt.Errorf("osascript: %w", err)
	}
	return nil
}
