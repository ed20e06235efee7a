// Package keylock provides the serialization boundary for check-then-write sequences on allocations.
//
// A Locker hands out a critical section per key. Two callers holding the same key never run concurrently,
// callers with different keys do not block each other (unless the Locker is global).
package keylock

import "sync"

// Locker acquires the critical section for a key. The returned function releases it and must be called exactly once.
type Locker interface {
	Lock(key string) (unlock func())
}

// Keyed is a Locker with one mutex per key. Entries are reference counted and removed
// once the last holder or waiter is gone, so the map does not grow with the number of resources ever seen.
type Keyed struct {
	mu      sync.Mutex
	entries map[string]*entry
}

type entry struct {
	mu   sync.Mutex
	refs int
}

// NewKeyed creates a per-key Locker.
func NewKeyed() *Keyed {
	return &Keyed{entries: make(map[string]*entry)}
}

// Lock blocks until the critical section for key is free.
func (k *Keyed) Lock(key string) func() {
	k.mu.Lock()
	e, ok := k.entries[key]
	if !ok {
		e = &entry{}
		k.entries[key] = e
	}
	e.refs++
	k.mu.Unlock()

	e.mu.Lock()

	var once sync.Once

	return func() {
		once.Do(func() {
			e.mu.Unlock()

			k.mu.Lock()
			e.refs--
			if e.refs == 0 {
				delete(k.entries, key)
			}
			k.mu.Unlock()
		})
	}
}

// Len returns the number of keys currently held or waited for.
func (k *Keyed) Len() int {
	k.mu.Lock()
	defer k.mu.Unlock()

	return len(k.entries)
}

// Global is a Locker with a single critical section shared by all keys.
type Global struct {
	mu sync.Mutex
}

// NewGlobal creates a Locker that serializes every caller regardless of the key.
func NewGlobal() *Global {
	return &Global{}
}

// Lock blocks until the global critical section is free. The key is ignored.
func (g *Global) Lock(_ string) func() {
	g.mu.Lock()

	var once sync.Once

	return func() {
		once.Do(g.mu.Unlock)
	}
}
