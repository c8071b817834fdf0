package utils

import (
	"sync"
	"time"
)

// Deduplicator remembers request keys for a window and hands back the result
// stored for the first request. Used to make client retries of joins safe.
type Deduplicator struct {
	window time.Duration
	now    func() time.Time

	mu      sync.Mutex
	entries map[string]dedupEntry
}

type dedupEntry struct {
	at    time.Time
	value interface{}
}

// NewDeduplicator creates a deduplicator. Keys expire after window.
func NewDeduplicator(window time.Duration) *Deduplicator {
	return &Deduplicator{
		window:  window,
		now:     time.Now,
		entries: make(map[string]dedupEntry),
	}
}

// Lookup returns the value stored for key within the window
func (d *Deduplicator) Lookup(key string) (interface{}, bool) {
	if key == "" {
		return nil, false
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	e, ok := d.entries[key]
	if !ok || d.now().Sub(e.at) >= d.window {
		return nil, false
	}
	return e.value, true
}

// Remember stores value for key
func (d *Deduplicator) Remember(key string, value interface{}) {
	if key == "" {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	d.entries[key] = dedupEntry{at: now, value: value}

	// Cleanup old entries if map gets too big
	if len(d.entries) > 10000 {
		for k, v := range d.entries {
			if now.Sub(v.at) > 2*d.window {
				delete(d.entries, k)
			}
		}
	}
}

// Len is the number of remembered keys
func (d *Deduplicator) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.entries)
}
