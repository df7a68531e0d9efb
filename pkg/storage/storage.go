// Package storage provides backends for persisting usage log state.
//
// Every backend satisfies usage.Storage: Read returns the last written state
// or nil, and Write replaces it wholesale. Backends that keep a serialised
// blob treat an unreadable blob as absent so the log can heal it on its next
// write; I/O failures are returned to the caller.
package storage

import (
	"context"
	"errors"

	"github.com/dhima/usage-log/pkg/models"
)

// DefaultSlot is the key a state blob is stored under when none is given.
const DefaultSlot = "history"

var (
	// ErrMalformedState marks a stored blob that is not a usage state.
	ErrMalformedState = errors.New("malformed usage state")
	// ErrUnknownDriver is returned by Open for an unsupported storage driver.
	ErrUnknownDriver = errors.New("unknown storage driver")
)

// Backend is the read/write contract shared by every storage implementation.
type Backend interface {
	Read(ctx context.Context) (*models.State, error)
	Write(ctx context.Context, state models.State) error
}
