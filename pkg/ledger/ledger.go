// Package ledger owns per-agent committed load: the one piece of state
// shared across concurrently-routing batches. Commit is serialized behind a
// single mutex, and Snapshot copies every counter while holding that same
// mutex, so lowest-load selection always sees a consistent view. Snapshot
// is therefore not lock-free: it waits for any in-progress Commit.
package ledger

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// Ledger tracks committed load per agent ID.
type Ledger struct {
	mu    sync.Mutex
	loads map[string]*int64
}

// New builds a Ledger seeded with the given initial loads (e.g. from the
// agent roster at batch start).
func New(initial map[string]int) *Ledger {
	l := &Ledger{loads: make(map[string]*int64, len(initial))}
	for id, v := range initial {
		val := int64(v)
		l.loads[id] = &val
	}
	return l
}

// Snapshot returns a consistent, independent copy of every known agent's
// current committed load.
func (l *Ledger) Snapshot() map[string]int {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make(map[string]int, len(l.loads))
	for id, counter := range l.loads {
		out[id] = int(atomic.LoadInt64(counter))
	}
	return out
}

// Commit atomically adds delta to agentID's committed load. Registers the
// agent at zero load first if it has never been seen.
func (l *Ledger) Commit(agentID string, delta int) (newLoad int, err error) {
	if agentID == "" {
		return 0, fmt.Errorf("ledger: empty agent id")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	counter, ok := l.loads[agentID]
	if !ok {
		var zero int64
		counter = &zero
		l.loads[agentID] = counter
	}
	updated := atomic.AddInt64(counter, int64(delta))
	if updated < 0 {
		atomic.AddInt64(counter, int64(-delta))
		return 0, fmt.Errorf("ledger: commit would drive agent %s load negative", agentID)
	}
	return int(updated), nil
}

// Load returns one agent's current committed load, or 0 if unknown.
func (l *Ledger) Load(agentID string) int {
	l.mu.Lock()
	counter, ok := l.loads[agentID]
	l.mu.Unlock()
	if !ok {
		return 0
	}
	return int(atomic.LoadInt64(counter))
}
