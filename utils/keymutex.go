package utils

import "sync"

// KeyMutex provides a mutex per string key. The engine serializes
// read-modify-write work per subject (team, player, group, tournament) with
// it; different keys never contend. Entries are reference counted and
// removed once the last holder unlocks, so the map does not grow with the
// subject population.
type KeyMutex struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

type keyLock struct {
	mu   sync.Mutex
	refs int
}

func NewKeyMutex() *KeyMutex {
	return &KeyMutex{locks: make(map[string]*keyLock)}
}

func (k *KeyMutex) Lock(key string) {
	k.mu.Lock()
	entry, ok := k.locks[key]
	if !ok {
		entry = &keyLock{}
		k.locks[key] = entry
	}
	entry.refs++
	k.mu.Unlock()

	entry.mu.Lock()
}

func (k *KeyMutex) Unlock(key string) {
	k.mu.Lock()
	entry, ok := k.locks[key]
	if !ok {
		k.mu.Unlock()
		panic("utils: unlock of unlocked key " + key)
	}
	entry.refs--
	if entry.refs == 0 {
		delete(k.locks, key)
	}
	k.mu.Unlock()

	entry.mu.Unlock()
}

// LockPair locks two keys in a stable order so callers that need both (a
// rating update touches winner and loser) cannot deadlock against each
// other.
func (k *KeyMutex) LockPair(a, b string) {
	if a == b {
		k.Lock(a)
		return
	}
	if b < a {
		a, b = b, a
	}
	k.Lock(a)
	k.Lock(b)
}

func (k *KeyMutex) UnlockPair(a, b string) {
	if a == b {
		k.Unlock(a)
		return
	}
	if b < a {
		a, b = b, a
	}
	k.Unlock(b)
	k.Unlock(a)
}
