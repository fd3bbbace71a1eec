// Package latest drops results that were overtaken by a newer request for
// the same slot.
package latest

import "sync"

type Ticket struct {
	slot string
	seq  uint64
}

type Guard struct {
	mu   sync.Mutex
	seqs map[string]uint64
}

func New() *Guard {
	return &Guard{seqs: make(map[string]uint64)}
}

// Begin marks the start of a request for slot; any earlier ticket for the
// same slot becomes stale.
func (g *Guard) Begin(slot string) Ticket {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seqs[slot]++
	return Ticket{slot: slot, seq: g.seqs[slot]}
}

// Commit runs apply only if t is still the newest ticket for its slot. apply
// runs under the guard's lock so a concurrent Begin cannot interleave.
func (g *Guard) Commit(t Ticket, apply func()) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.seqs[t.slot] != t.seq {
		return false
	}
	apply()
	return true
}
