package simulation

import (
	"context"
	"errors"
	"slices"
	"sync"

	"github.com/google/uuid"
)

// ErrReportNotFound is returned when a report lookup yields no results.
var ErrReportNotFound = errors.New("report not found")

// MemoryStore keeps reports in process memory. It is safe for concurrent use.
type MemoryStore struct {
	mu      sync.RWMutex
	byID    map[uuid.UUID]*Report
	ordered []*Report
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byID: make(map[uuid.UUID]*Report)}
}

// Save stores r, replacing any report with the same ID.
func (m *MemoryStore) Save(_ context.Context, r *Report) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[r.ID]; ok {
		m.ordered = slices.DeleteFunc(m.ordered, func(x *Report) bool { return x.ID == r.ID })
	}
	m.byID[r.ID] = r
	m.ordered = append(m.ordered, r)
	return nil
}

// Get returns the report with id, or ErrReportNotFound.
func (m *MemoryStore) Get(_ context.Context, id uuid.UUID) (*Report, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.byID[id]
	if !ok {
		return nil, ErrReportNotFound
	}
	return r, nil
}

// List returns up to limit reports, most recently saved first. A
// non-positive limit returns all of them.
func (m *MemoryStore) List(_ context.Context, limit int) ([]*Report, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := len(m.ordered)
	if limit > 0 {
		n = min(n, limit)
	}
	out := make([]*Report, 0, n)
	for i := len(m.ordered) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, m.ordered[i])
	}
	return out, nil
}
