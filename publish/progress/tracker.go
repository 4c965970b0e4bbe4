// Package progress keeps per-file chunk progress for concurrently running uploads
// and renders it as text progress bars.
package progress

import (
	"sync"
	"sync/atomic"
)

// Progress is the number of chunks done out of the file's total.
type Progress struct {
	Done  int
	Total int
}

// Complete reports whether every chunk is done.
func (p Progress) Complete() bool {
	return p.Done >= p.Total
}

// Entry is a snapshot of one tracked file.
type Entry struct {
	Key   string
	Title string
	Progress
}

type entry struct {
	key   string
	title string
	state atomic.Pointer[Progress]
}

// Tracker is a concurrency-safe store of progress keyed by file.
// Every (done, total) pair is published as one immutable value, so readers never see a
// torn pair and never wait for a writer.
type Tracker struct {
	mu      sync.RWMutex
	order   []*entry
	entries map[string]*entry
}

// NewTracker ...
func NewTracker() *Tracker {
	return &Tracker{entries: map[string]*entry{}}
}

// Register starts tracking key at (0, total). Registering a key again resets it.
func (t *Tracker) Register(key, title string, total int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.entries[key]
	if !ok {
		e = &entry{key: key}
		t.entries[key] = e
		t.order = append(t.order, e)
	}
	e.title = title
	e.state.Store(&Progress{Done: 0, Total: total})
}

// Set moves key to done chunks. Progress only moves forward and never past the total;
// unknown keys are ignored.
func (t *Tracker) Set(key string, done int) {
	e := t.lookup(key)
	if e == nil {
		return
	}

	for {
		current := e.state.Load()
		if done <= current.Done {
			return
		}
		next := &Progress{Done: done, Total: current.Total}
		if next.Done > next.Total {
			next.Done = next.Total
		}
		if e.state.CompareAndSwap(current, next) {
			return
		}
	}
}

// Get returns the current progress of key.
func (t *Tracker) Get(key string) (Progress, bool) {
	e := t.lookup(key)
	if e == nil {
		return Progress{}, false
	}
	return *e.state.Load(), true
}

// Snapshot returns every tracked file in registration order.
func (t *Tracker) Snapshot() []Entry {
	t.mu.RLock()
	order := make([]*entry, len(t.order))
	copy(order, t.order)
	titles := make([]string, len(order))
	for i, e := range order {
		titles[i] = e.title
	}
	t.mu.RUnlock()

	entries := make([]Entry, 0, len(order))
	for i, e := range order {
		entries = append(entries, Entry{Key: e.key, Title: titles[i], Progress: *e.state.Load()})
	}
	return entries
}

// Total sums the progress of every tracked file.
func (t *Tracker) Total() Progress {
	var total Progress
	for _, e := range t.Snapshot() {
		total.Done += e.Done
		total.Total += e.Total
	}
	return total
}

func (t *Tracker) lookup(key string) *entry {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.entries[key]
}
