//go:build linux

package notify

import (
	"fmt"
	"os/exec"

	"github.com/godbus/dbus/v5"
)

const (
	notificationsName = "org.freedesktop.Notifications"
	notificationsPath = "/org/freedesktop/Notifications"
	expireTimeout     = int32(5000)
)

func send(title, message string) error {
	if err := sendDBus(title, message); err == nil {
		return nil
	}
	return runFirst(
		exec.Command("notify-send", "-a", AppName, title, message),
		exec.Command("zenity", "--info", "--text", message, "--title", title),
	)
}

func sendDBus(title, message string) error {
	conn, err := dbus.SessionBus()
	if err != nil {
		return fmt.Errorf("connect session bus: %w", err)
	}
	obj := conn.Object(notificationsName, dbus.ObjectPath(notificationsPath))
	call := obj.Call(notificationsName+".Notify", 0,
		AppName, uint32(0), "", title, message,
		[]string{}, map[string]dbus.Variant{}, expireTimeout)
	if call.Err != nil {
		return fmt.Errorf("notify: %w", call.Err)
	}
	return nil
}
