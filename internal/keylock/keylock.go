// Package keylock provides per-key mutual exclusion.
package keylock

import "sync"

// Locker serialises work per string key. Entries are reference counted and
// removed once no caller holds or waits on them.
type Locker struct {
	mu    sync.Mutex
	locks map[string]*entry
}

type entry struct {
	mu   sync.Mutex
	refs int
}

// New creates a new Locker
func New() *Locker {
	return &Locker{locks: make(map[string]*entry)}
}

// Lock acquires the lock for key and returns its release function.
func (l *Locker) Lock(key string) (unlock func()) {
	l.mu.Lock()
	e, ok := l.locks[key]
	if !ok {
		e = &entry{}
		l.locks[key] = e
	}
	e.refs++
	l.mu.Unlock()

	e.mu.Lock()
	return func() {
		e.mu.Unlock()

		l.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(l.locks, key)
		}
		l.mu.Unlock()
	}
}

// Do runs fn while holding the lock for key.
func (l *Locker) Do(key string, fn func() error) error {
	unlock := l.Lock(key)
	defer unlock()
	return fn()
}

// Len returns the number of keys currently held or awaited
func (l *Locker) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
