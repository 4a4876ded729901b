package pii

import (
	"sync"

	"github.com/orbitdesk/ticketrouter/pkg/models"
)

// MemStore is an in-memory BindingStore. Production wiring uses the
// pgx-backed repository in pkg/database; this implementation exists for
// tests and for any short-lived batch that never needs bindings to survive
// a process restart.
type MemStore struct {
	mu       sync.RWMutex
	bindings map[string][]models.PIIBinding
}

// NewMemStore constructs an empty MemStore.
func NewMemStore() *MemStore {
	return &MemStore{bindings: make(map[string][]models.PIIBinding)}
}

func (m *MemStore) SaveBindings(ticketID string, bindings []models.PIIBinding) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bindings[ticketID] = append(append([]models.PIIBinding{}, m.bindings[ticketID]...), bindings...)
	return nil
}

func (m *MemStore) LoadBindings(ticketID string) ([]models.PIIBinding, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.PIIBinding, len(m.bindings[ticketID]))
	copy(out, m.bindings[ticketID])
	return out, nil
}

func (m *MemStore) PurgeBindings(ticketID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.bindings, ticketID)
	return nil
}
