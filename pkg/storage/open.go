package storage

import (
	"context"
	"fmt"
	"io"

	"github.com/dhima/usage-log/pkg/config"
	"github.com/dhima/usage-log/pkg/logging"
	"go.uber.org/zap"
)

// Handle is a backend opened from configuration together with whatever it
// holds open. Close releases pools and publishers.
type Handle struct {
	Backend
	closers []io.Closer
}

func (h *Handle) Close() error {
	var firstErr error
	for i := len(h.closers) - 1; i >= 0; i-- {
		if err := h.closers[i].Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

// Open builds the backend named by cfg.StorageDriver. When Kafka brokers are
// configured the backend is wrapped in a Mirror publishing to cfg.KafkaTopic.
func Open(ctx context.Context, cfg config.App, logger logging.Logger) (*Handle, error) {
	logger = logging.OrNoOp(logger)
	h := &Handle{}

	switch cfg.StorageDriver {
	case "", "memory":
		h.Backend = NewMemory()
	case "keyvalue":
		h.Backend = NewKeyValueStore(NewMapKeyValue(), cfg.Slot, logger)
	case "file":
		h.Backend = NewFileStore(cfg.StateFile, logger)
	case "mysql":
		db, err := OpenMySQL(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		h.closers = append(h.closers, db)
		store := NewMySQLStore(db, cfg.Slot, logger)
		if err := store.EnsureSchema(ctx); err != nil {
			_ = h.Close()
			return nil, err
		}
		h.Backend = store
	case "postgres":
		pool, err := ConnectPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		h.closers = append(h.closers, closerFunc(func() error { pool.Close(); return nil }))
		store := NewPostgresStore(pool, cfg.Slot, logger)
		if err := store.EnsureSchema(ctx); err != nil {
			_ = h.Close()
			return nil, err
		}
		h.Backend = store
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.StorageDriver)
	}

	if len(cfg.KafkaBrokers) > 0 {
		publisher := NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, logger)
		h.closers = append(h.closers, publisher)
		h.Backend = NewMirror(h.Backend, publisher, cfg.Slot)
	}

	logger.Info("usage storage opened",
		zap.String("driver", cfg.StorageDriver),
		zap.String("slot", cfg.Slot),
		zap.Bool("mirrored", len(cfg.KafkaBrokers) > 0))

	return h, nil
}
