// Package guard tracks content fingerprints of files the daemon itself
// just wrote, so that its own finalize renames are never mistaken for
// user triggers. Records live in memory only and expire after a short
// window; a restart simply forgets them.
package guard

import (
	"sync"
	"time"

	"github.com/arthur-debert/morphd/pkg/logging"
)

// DefaultTTL matches the original lock window: long enough to swallow the
// event for our own rename, short enough that a genuine later trigger for
// identical bytes still works.
const DefaultTTL = 2 * time.Second

type record struct {
	fingerprint uint64
	expires     time.Time
}

// LoopGuard is safe for concurrent use by the conversion workers.
type LoopGuard struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]record
	now     func() time.Time
}

// New creates a LoopGuard with the given window. ttl <= 0 uses DefaultTTL.
func New(ttl time.Duration) *LoopGuard {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &LoopGuard{
		ttl:     ttl,
		entries: make(map[string]record),
		now:     time.Now,
	}
}

// Record registers a fingerprint for path. Called by the coordinator
// immediately after a successful finalize.
func (g *LoopGuard) Record(path string, fingerprint uint64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.entries[path] = record{
		fingerprint: fingerprint,
		expires:     g.now().Add(g.ttl),
	}
}

// IsSelfProduced reports whether an incoming event for path matches a
// recent write of our own. A match consumes the record, so the next event
// for the same path is evaluated fresh.
func (g *LoopGuard) IsSelfProduced(path string, fingerprint uint64) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	rec, ok := g.entries[path]
	if !ok {
		return false
	}
	if g.now().After(rec.expires) {
		delete(g.entries, path)
		return false
	}
	if rec.fingerprint != fingerprint {
		return false
	}
	delete(g.entries, path)
	logger := logging.GetLogger("guard")
	logger.Debug().Str("path", path).Msg("suppressed self-produced event")
	return true
}

// Prune drops expired records. The daemon runs this on a ticker so an
// idle guard does not accumulate entries from failed consumptions.
func (g *LoopGuard) Prune() {
	g.mu.Lock()
	defer g.mu.Unlock()
	now := g.now()
	for path, rec := range g.entries {
		if now.After(rec.expires) {
			delete(g.entries, path)
		}
	}
}

// Len returns the number of live records.
func (g *LoopGuard) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.entries)
}
