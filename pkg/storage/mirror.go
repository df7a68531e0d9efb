package storage

import (
	"context"
	"fmt"

	"github.com/dhima/usage-log/pkg/models"
)

// Publisher receives every state written through a Mirror.
type Publisher interface {
	Publish(ctx context.Context, slot string, state models.State) error
	Close() error
}

// Mirror reads from and writes to a primary backend, and publishes each
// successfully written state to downstream consumers. A publish failure is
// returned after the primary write has already landed.
type Mirror struct {
	primary   Backend
	publisher Publisher
	slot      string
}

func NewMirror(primary Backend, publisher Publisher, slot string) *Mirror {
	if slot == "" {
		slot = DefaultSlot
	}
	return &Mirror{primary: primary, publisher: publisher, slot: slot}
}

func (m *Mirror) Read(ctx context.Context) (*models.State, error) {
	return m.primary.Read(ctx)
}

func (m *Mirror) Write(ctx context.Context, state models.State) error {
	if err := m.primary.Write(ctx, state); err != nil {
		return err
	}
	if err := m.publisher.Publish(ctx, m.slot, state); err != nil {
		return fmt.Errorf("usage state stored but not mirrored: %w", err)
	}
	return nil
}

// Close closes the publisher.
func (m *Mirror) Close() error {
	return m.publisher.Close()
}
