package app

import "sync"

// keyedLock provides a critical section per string key. Both callers run
// their work (the second waits for the first), which is why this is not a
// singleflight.Group: a duplicate report must still be reconciled as a
// merge, not collapsed into the first caller's result.
type keyedLock struct {
	mu      sync.Mutex
	entries map[string]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

func newKeyedLock() *keyedLock {
	return &keyedLock{entries: make(map[string]*lockEntry)}
}

// Lock blocks until the key's section is free and returns the unlock func.
// Entries are reference-counted and removed when the last holder releases,
// so the map does not grow with the keyspace.
func (l *keyedLock) Lock(key string) (unlock func()) {
	l.mu.Lock()
	e, ok := l.entries[key]
	if !ok {
		e = &lockEntry{}
		l.entries[key] = e
	}
	e.refs++
	l.mu.Unlock()

	e.mu.Lock()

	return func() {
		e.mu.Unlock()
		l.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(l.entries, key)
		}
		l.mu.Unlock()
	}
}
