package trigger

import "strings"

// Suffixes left behind by downloaders and editors. A name carrying one is
// still being written and must never reach classification.
var transientSuffixes = []string{
	".part",
	".partial",
	".crdownload",
	".download",
	".tmp",
	".swp",
	".swx",
	"~",
}

// IsTransientName reports whether name looks like a partial download,
// editor swap file, or other short-lived artifact.
func IsTransientName(name string) bool {
	if name == "" {
		return true
	}
	// Hidden entries (and everything under them) are excluded from
	// watching entirely; a hidden name here is always noise.
	if name[0] == '.' {
		return true
	}
	// Emacs-style #name# lock/backup files.
	if len(name) > 2 && name[0] == '#' && name[len(name)-1] == '#' {
		return true
	}
	lower := strings.ToLower(name)
	for _, suffix := range transientSuffixes {
		if strings.HasSuffix(lower, suffix) {
			return true
		}
	}
	// Our own in-flight conversion outputs.
	if strings.Contains(lower, ".morphtmp") {
		return true
	}
	return false
}
