package report

import "sync"

// passGuard tracks a generation counter per report key so that a pass
// superseded by a newer one (financial year or access scope changed while it
// was in flight) discards its result instead of overwriting fresher data.
type passGuard struct {
	mu     sync.Mutex
	latest map[string]uint64
}

func newPassGuard() *passGuard {
	return &passGuard{latest: make(map[string]uint64)}
}

// begin registers a new pass for key and returns its generation token.
func (g *passGuard) begin(key string) uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.latest[key]++
	return g.latest[key]
}

// commit reports whether the pass identified by gen is still the most recent
// one for key. A false return means a newer pass started meanwhile and this
// pass's result must be dropped.
func (g *passGuard) commit(key string, gen uint64) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.latest[key] == gen
}
