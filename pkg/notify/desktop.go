package notify

import (
	"github.com/gen2brain/beeep"

	"github.com/arthur-debert/morphd/pkg/logging"
)

// DesktopNotifier delivers straight to the current session. It is the
// backend for an unprivileged daemon watching the invoking user's own
// tree; the uid argument is ignored since there is only one session.
type DesktopNotifier struct{}

// Syncing implements Notifier.
func (n *DesktopNotifier) Syncing(_ int, name, targetExt string) {
	n.send(syncingBody(name, targetExt))
}

// Restored implements Notifier.
func (n *DesktopNotifier) Restored(_ int, name, targetExt string) {
	n.send(restoredBody(name, targetExt))
}

// Failed implements Notifier.
func (n *DesktopNotifier) Failed(_ int, name, reason string) {
	n.send(failedBody(name, reason))
}

func (n *DesktopNotifier) send(body string) {
	if err := beeep.Notify(appName, body, ""); err != nil {
		logger := logging.GetLogger("notify.desktop")
		logger.Debug().Err(err).Msg("notification delivery failed")
	}
}
