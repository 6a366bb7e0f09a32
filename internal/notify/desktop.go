package notify

import (
	"os/exec"
	"runtime"
)

// DesktopNotifier sends desktop notifications
type DesktopNotifier struct {
	enabled bool
}

// NewDesktopNotifier creates a new desktop notifier
func NewDesktopNotifier(enabled bool) *DesktopNotifier {
	return &DesktopNotifier{enabled: enabled}
}

// Send sends a desktop notification
func (d *DesktopNotifier) Send(a Alert) error {
	if !d.enabled {
		return nil
	}

	switch runtime.GOOS {
	case "darwin":
		return d.sendMacOS(a)
	case "linux":
		return d.sendLinux(a)
	default:
		return nil // Unsupported
	}
}

func (d *DesktopNotifier) sendMacOS(a Alert) error {
	script := `display notification "` + a.Message + `" with title "` + a.Title + `"`
	cmd := exec.Command("osascript", "-e", script)
	return cmd.Run()
}

func (d *DesktopNotifier) sendLinux(a Alert) error {
	// Try notify-send (most common)
	cmd := exec.Command("notify-send", a.Title, a.Message)
	return cmd.Run()
}
