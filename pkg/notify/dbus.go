package notify

import (
	"fmt"
	"os/exec"
	"os/user"
	"strconv"
	"strings"

	"github.com/arthur-debert/morphd/pkg/logging"
)

// DBusNotifier delivers through notify-send on the owner's session bus.
// The daemon runs as root, so it drops to the owner with sudo and points
// at their session bus socket.
type DBusNotifier struct{}

// Syncing implements Notifier.
func (n *DBusNotifier) Syncing(uid int, name, targetExt string) {
	n.send(uid, syncingBody(name, targetExt))
}

// Restored implements Notifier.
func (n *DBusNotifier) Restored(uid int, name, targetExt string) {
	n.send(uid, restoredBody(name, targetExt))
}

// Failed implements Notifier.
func (n *DBusNotifier) Failed(uid int, name, reason string) {
	n.send(uid, failedBody(name, reason))
}

func (n *DBusNotifier) send(uid int, body string) {
	logger := logging.GetLogger("notify.dbus")

	u, err := user.LookupId(strconv.Itoa(uid))
	if err != nil {
		logger.Debug().Int("uid", uid).Msg("no passwd entry, skipping notification")
		return
	}

	bus := fmt.Sprintf("unix:path=/run/user/%d/bus", uid)
	cmd := exec.Command("sudo", "-u", u.Username,
		"env", "DBUS_SESSION_BUS_ADDRESS="+bus,
		"notify-send",
		"-a", appName,
		"-i", "document-export",
		"Morphing Data", body)
	if out, err := cmd.CombinedOutput(); err != nil {
		logger.Debug().Err(err).
			Str("user", u.Username).
			Str("output", strings.TrimSpace(string(out))).
			Msg("notification delivery failed")
	}
}
