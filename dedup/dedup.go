// Package dedup tracks record identities across a run so the same
// profile or listing surfaced by multiple queries is emitted once.
package dedup

import (
	"sync"

	"github.com/leadscout/leadscout/models"
)

// Deduplicator is a concurrency-safe first-writer-wins identity set.
type Deduplicator struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

// New creates an empty Deduplicator.
func New() *Deduplicator {
	return &Deduplicator{seen: make(map[string]struct{})}
}

// IsNew claims the identity key and reports whether this caller is the
// first to see it. Keys are canonicalized, so URL variants that differ
// only in query string or fragment collapse to one identity. An
// unresolvable key is never new.
func (d *Deduplicator) IsNew(key string) bool {
	canonical := models.CanonicalKey(key)
	if canonical == "" {
		return false
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.seen[canonical]; ok {
		return false
	}
	d.seen[canonical] = struct{}{}
	return true
}

// Len reports how many distinct identities have been claimed.
func (d *Deduplicator) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.seen)
}
