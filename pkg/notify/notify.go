// Package notify delivers desktop notifications about conversion
// activity. The daemon usually runs as root, so the default backend
// re-enters the owner's session bus via sudo and notify-send; an
// unprivileged daemon talks to the session directly.
package notify

import (
	"fmt"
	"strings"
)

// Notifier is the operational notification collaborator. Implementations
// must be safe for concurrent use; delivery is best-effort and never
// fails a job.
type Notifier interface {
	// Syncing announces that a conversion of name to targetExt started.
	Syncing(uid int, name, targetExt string)
	// Restored announces a version-history restore of name.
	Restored(uid int, name, targetExt string)
	// Failed announces a failed conversion of name.
	Failed(uid int, name, reason string)
}

const appName = "morphd"

func syncingBody(name, targetExt string) string {
	return fmt.Sprintf("Syncing %s to %s", name, strings.ToUpper(targetExt))
}

func restoredBody(name, targetExt string) string {
	return fmt.Sprintf("Restored %s from version history (%s)", name, strings.ToUpper(targetExt))
}

func failedBody(name, reason string) string {
	return fmt.Sprintf("Could not convert %s: %s", name, reason)
}

// Nop discards all notifications.
type Nop struct{}

// Syncing implements Notifier.
func (Nop) Syncing(int, string, string) {}

// Restored implements Notifier.
func (Nop) Restored(int, string, string) {}

// Failed implements Notifier.
func (Nop) Failed(int, string, string) {}
