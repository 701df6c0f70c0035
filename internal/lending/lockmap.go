package lending

import (
	"sort"
	"sync"
)

// lockMap serializes operations touching the same account position or
// pool. Keys are locked in sorted order so two operations over
// overlapping key sets cannot deadlock.
type lockMap struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newLockMap() *lockMap {
	return &lockMap{locks: make(map[string]*sync.Mutex)}
}

func (l *lockMap) get(key string) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	m, ok := l.locks[key]
	if !ok {
		m = &sync.Mutex{}
		l.locks[key] = m
	}
	return m
}

// lock acquires every key and returns the matching release function.
func (l *lockMap) lock(keys ...string) func() {
	sorted := make([]string, 0, len(keys))
	seen := make(map[string]bool, len(keys))
	for _, k := range keys {
		if !seen[k] {
			seen[k] = true
			sorted = append(sorted, k)
		}
	}
	sort.Strings(sorted)

	held := make([]*sync.Mutex, 0, len(sorted))
	for _, k := range sorted {
		m := l.get(k)
		m.Lock()
		held = append(held, m)
	}
	return func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i].Unlock()
		}
	}
}
