package normalize

import (
	"sync"

	"dealsift/internal/types"
)

// Accumulator collects extracted listings across a whole run, deduplicated
// by identifier with first-seen-wins semantics. All inserts are serialized
// through one mutex, so fan-out page workers can report concurrently while
// "first seen" stays well defined by insert order.
//
// The accumulator is run-scoped: create one per run, never share across runs.
type Accumulator struct {
	mu      sync.Mutex
	seen    map[string]*types.Listing
	pending []*types.Listing
	dropped int
}

// NewAccumulator creates an Accumulator with the given estimated capacity.
func NewAccumulator(estimatedCapacity int) *Accumulator {
	return &Accumulator{
		seen: make(map[string]*types.Listing, estimatedCapacity),
	}
}

// Insert adds a listing unless its identifier has been seen before. Returns
// true if the listing was added, false if it was discarded as a duplicate.
// Insert never fails: synthetic identifiers guarantee every listing has a key.
func (a *Accumulator) Insert(l *types.Listing) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, dup := a.seen[l.Identifier]; dup {
		a.dropped++
		return false
	}
	a.seen[l.Identifier] = l
	a.pending = append(a.pending, l)
	return true
}

// All returns every accumulated listing.
func (a *Accumulator) All() []*types.Listing {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make([]*types.Listing, 0, len(a.seen))
	for _, l := range a.seen {
		if l != nil { // imported checkpoint ids carry no record
			out = append(out, l)
		}
	}
	return out
}

// Drain returns the listings added since the last Drain and clears the
// pending set. The dedup map is untouched, so later duplicates of drained
// records are still discarded.
func (a *Accumulator) Drain() []*types.Listing {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := a.pending
	a.pending = nil
	return out
}

// Len returns the number of unique listings accumulated.
func (a *Accumulator) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.seen)
}

// Dropped returns the number of duplicate inserts discarded.
func (a *Accumulator) Dropped() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.dropped
}

// Export returns all seen identifiers, for checkpoint serialization.
func (a *Accumulator) Export() []string {
	a.mu.Lock()
	defer a.mu.Unlock()

	ids := make([]string, 0, len(a.seen))
	for id := range a.seen {
		ids = append(ids, id)
	}
	return ids
}

// Import pre-marks identifiers as seen, for checkpoint restore. Imported
// identifiers occupy the dedup map without a record, so a resumed run skips
// listings already persisted by the previous run.
func (a *Accumulator) Import(ids []string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	for _, id := range ids {
		if _, ok := a.seen[id]; !ok {
			a.seen[id] = nil
		}
	}
}
