package usage

import (
	"errors"
	"fmt"
)

var (
	// ErrStorageRequired is returned by New when no storage backend is configured.
	ErrStorageRequired = errors.New("storage backend is required")
	// ErrInvalidTTL is returned by New for a negative TTL.
	ErrInvalidTTL = errors.New("ttl must not be negative")
	// ErrInvalidRange is returned by NewRange when end precedes start.
	ErrInvalidRange = errors.New("range end precedes start")
)

// ConfigError reports a caller mistake in Config. It is surfaced as-is and
// never retried.
type ConfigError struct {
	Field string
	Err   error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid usage log config: %s: %v", e.Field, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }
