package storage

import (
	"context"
	"sync"

	"github.com/dhima/usage-log/pkg/models"
)

// Memory keeps the state in process. Reads and writes copy, so callers never
// share event slices or property maps with the store.
type Memory struct {
	mu    sync.RWMutex
	state *models.State
}

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Read(_ context.Context) (*models.State, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.state == nil {
		return nil, nil
	}
	cpy := m.state.Clone()
	return &cpy, nil
}

func (m *Memory) Write(_ context.Context, state models.State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cpy := state.Clone()
	m.state = &cpy
	return nil
}
