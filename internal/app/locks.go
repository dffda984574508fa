package app

import (
	"sort"
	"sync"
)

// KeyedLocker hands out one mutex per key. Keys passed to a single Lock call are
// acquired in ascending order, so two callers locking the same set can never deadlock.
//
// Lock order across calls: a transfer or bill reference lock is always taken before
// any account lock, never after.
type KeyedLocker struct {
	mu      sync.Mutex
	entries map[string]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

func NewKeyedLocker() *KeyedLocker {
	return &KeyedLocker{entries: make(map[string]*lockEntry)}
}

// Lock blocks until every key is held and returns the function that releases them.
// Empty and repeated keys are ignored.
func (l *KeyedLocker) Lock(keys ...string) (unlock func()) {
	ordered := make([]string, 0, len(keys))
	seen := make(map[string]bool, len(keys))
	for _, k := range keys {
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		ordered = append(ordered, k)
	}
	sort.Strings(ordered)

	held := make([]*lockEntry, 0, len(ordered))
	for _, k := range ordered {
		e := l.acquire(k)
		e.mu.Lock()
		held = append(held, e)
	}

	return func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i].mu.Unlock()
			l.release(ordered[i])
		}
	}
}

func (l *KeyedLocker) acquire(key string) *lockEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.entries[key]
	if !ok {
		e = &lockEntry{}
		l.entries[key] = e
	}
	e.refs++
	return e
}

func (l *KeyedLocker) release(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e := l.entries[key]
	e.refs--
	if e.refs == 0 {
		delete(l.entries, key)
	}
}

func accountKey(number string) string {
	if number == "" {
		return ""
	}
	return "account:" + number
}

func transferKey(ref string) string { return "transfer:" + ref }

func billKey(ref string) string { return "bill:" + ref }
