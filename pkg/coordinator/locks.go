package coordinator

import "sync"

// keyedLocks serializes jobs that resolve to the same final path. Two
// triggers racing toward photo.png run one after the other, never
// interleaved. Keys are reference-counted so the map stays bounded by
// the number of in-flight jobs.
type keyedLocks struct {
	mu    sync.Mutex
	locks map[string]*lockRef
}

type lockRef struct {
	mu   sync.Mutex
	refs int
}

func newKeyedLocks() *keyedLocks {
	return &keyedLocks{locks: make(map[string]*lockRef)}
}

// acquire blocks until the key is free and returns the release func.
func (k *keyedLocks) acquire(key string) func() {
	k.mu.Lock()
	ref, ok := k.locks[key]
	if !ok {
		ref = &lockRef{}
		k.locks[key] = ref
	}
	ref.refs++
	k.mu.Unlock()

	ref.mu.Lock()
	return func() {
		ref.mu.Unlock()
		k.mu.Lock()
		ref.refs--
		if ref.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
