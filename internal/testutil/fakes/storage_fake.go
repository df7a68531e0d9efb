package fakes

import (
	"context"
	"errors"
	"sync"

	"github.com/dhima/usage-log/pkg/models"
)

// ErrStorageDown is the default error injected by FakeStorage.
var ErrStorageDown = errors.New("storage unavailable")

// FakeStorage is an in-memory usage state backend that records every write.
type FakeStorage struct {
	mu       sync.Mutex
	State    *models.State
	Writes   []models.State
	Reads    int
	FailRead bool
	// FailWriteAfter makes every write after the first N fail; zero disables it.
	FailWriteAfter int
	FailError      error
}

func NewFakeStorage() *FakeStorage {
	return &FakeStorage{}
}

func (f *FakeStorage) Read(_ context.Context) (*models.State, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Reads++
	if f.FailRead {
		return nil, f.failure()
	}
	if f.State == nil {
		return nil, nil
	}
	cpy := f.State.Clone()
	return &cpy, nil
}

func (f *FakeStorage) Write(_ context.Context, state models.State) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailWriteAfter > 0 && len(f.Writes) >= f.FailWriteAfter {
		return f.failure()
	}
	cpy := state.Clone()
	f.State = &cpy
	f.Writes = append(f.Writes, state.Clone())
	return nil
}

// LastWrite returns the most recent state written, or nil.
func (f *FakeStorage) LastWrite() *models.State {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.Writes) == 0 {
		return nil
	}
	last := f.Writes[len(f.Writes)-1]
	return &last
}

func (f *FakeStorage) failure() error {
	if f.FailError == nil {
		return ErrStorageDown
	}
	return f.FailError
}
