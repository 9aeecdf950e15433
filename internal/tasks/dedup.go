package tasks

import "sync"

// DedupSet records which track ids have already been placed during one request.
//
// It is seeded with the seed track id so the seed can never be accepted. Safe for concurrent use.
type DedupSet struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

// NewDedupSet returns a set that already contains seed.
func NewDedupSet(seed string) *DedupSet {
	d := &DedupSet{seen: make(map[string]struct{})}
	if seed != "" {
		d.seen[seed] = struct{}{}
	}
	return d
}

// TryMark marks id and reports true when it was absent. Empty ids are never accepted.
func (d *DedupSet) TryMark(id string) bool {
	if id == "" {
		return false
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.seen[id]; ok {
		return false
	}
	d.seen[id] = struct{}{}
	return true
}

// Seen reports whether id has been marked, without marking it.
func (d *DedupSet) Seen(id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	_, ok := d.seen[id]
	return ok
}

// Len returns the number of marked ids, seed included.
func (d *DedupSet) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.seen)
}
