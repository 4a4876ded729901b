// Package progress persists the StageOutcome stream for external pollers
// and batch recovery.
package progress

import (
	"sort"
	"sync"

	"github.com/orbitdesk/ticketrouter/pkg/models"
)

// Store upserts and queries StageOutcome rows. The pgx-backed
// implementation in pkg/database satisfies the same interface for
// production use; MemStore below is used for tests and for the control
// surface's unit tests.
type Store interface {
	Upsert(outcome models.StageOutcome) error
	ByBatch(batchID string) ([]models.StageOutcome, error)
	ByTicket(ticketID string) ([]models.StageOutcome, error)
}

type key struct {
	ticketID string
	stage    models.Stage
}

// MemStore is an in-memory Store keyed by (ticket, stage), upserting in
// place. A write over an existing terminal (completed/failed) row is
// dropped rather than applied, enforcing that a StageOutcome never
// transitions away from a terminal status even if a caller mistakenly
// retries after success.
type MemStore struct {
	mu   sync.RWMutex
	rows map[key]models.StageOutcome
}

// NewMemStore builds an empty MemStore.
func NewMemStore() *MemStore {
	return &MemStore{rows: make(map[key]models.StageOutcome)}
}

func (s *MemStore) Upsert(outcome models.StageOutcome) error {
	k := key{ticketID: outcome.TicketID, stage: outcome.Stage}

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.rows[k]; ok && existing.Status.Terminal() {
		return nil
	}
	s.rows[k] = outcome
	return nil
}

func (s *MemStore) ByBatch(batchID string) ([]models.StageOutcome, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.StageOutcome
	for _, row := range s.rows {
		if row.BatchID == batchID {
			out = append(out, row)
		}
	}
	sortOutcomes(out)
	return out, nil
}

func (s *MemStore) ByTicket(ticketID string) ([]models.StageOutcome, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.StageOutcome
	for _, row := range s.rows {
		if row.TicketID == ticketID {
			out = append(out, row)
		}
	}
	sortOutcomes(out)
	return out, nil
}

func sortOutcomes(rows []models.StageOutcome) {
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].TicketID != rows[j].TicketID {
			return rows[i].TicketID < rows[j].TicketID
		}
		return rows[i].Start.Before(rows[j].Start)
	})
}
