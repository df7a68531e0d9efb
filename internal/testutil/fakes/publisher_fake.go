package fakes

import (
	"context"
	"errors"
	"sync"

	"github.com/dhima/usage-log/pkg/models"
)

// PublishedSnapshot is one call captured by FakePublisher.
type PublishedSnapshot struct {
	Slot  string
	State models.State
}

// FakePublisher captures published snapshots and can simulate failures.
type FakePublisher struct {
	mu        sync.Mutex
	Snapshots []PublishedSnapshot
	FailNext  bool
	FailError error
	Closed    bool
}

func (p *FakePublisher) Publish(_ context.Context, slot string, state models.State) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.FailNext {
		p.FailNext = false
		if p.FailError == nil {
			p.FailError = errors.New("publish failed")
		}
		return p.FailError
	}
	p.Snapshots = append(p.Snapshots, PublishedSnapshot{Slot: slot, State: state.Clone()})
	return nil
}

func (p *FakePublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Closed = true
	return nil
}
