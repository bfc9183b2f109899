package notify

import "os"

// ForMode returns the notifier for a configured mode. "auto" picks the
// session-bus backend for a root daemon and the direct desktop backend
// otherwise.
func ForMode(mode string) Notifier {
	switch mode {
	case "off":
		return Nop{}
	case "dbus":
		return &DBusNotifier{}
	case "desktop":
		return &DesktopNotifier{}
	default:
		if os.Geteuid() == 0 {
			return &DBusNotifier{}
		}
		return &DesktopNotifier{}
	}
}
