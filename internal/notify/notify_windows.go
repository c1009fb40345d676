//go:build windows

package notify

import (
	"fmt"
	"os/exec"
)

func send(title, message string) error {
	script := fmt.Sprintf(
		"Add-Type -AssemblyName PresentationFramework; [System.Windows.MessageBox]::Show(%s, %s, 'OK', 'Information')",
		powerShellQuote(message), powerShellQuote(title))
	if err := exec.Command("powershell", "-NoProfile", "-Command", script).Run(); err != nil {
		return fmt.Errorf("powershell: %w", err)
	}
	return nil
}
