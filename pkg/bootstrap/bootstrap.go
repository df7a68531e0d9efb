// Package bootstrap turns a loaded config.App into a ready usage log: the
// logger, the storage backend and the log itself, in that order.
package bootstrap

import (
	"context"
	"fmt"

	"github.com/dhima/usage-log/pkg/clock"
	"github.com/dhima/usage-log/pkg/config"
	"github.com/dhima/usage-log/pkg/logging"
	"github.com/dhima/usage-log/pkg/storage"
	"github.com/dhima/usage-log/pkg/usage"
	"go.uber.org/zap"
)

// Runtime owns everything opened for one usage log.
type Runtime struct {
	Log    *usage.Log
	Logger logging.Logger
	store  *storage.Handle
}

// Open builds a Runtime from cfg using the wall clock.
func Open(ctx context.Context, cfg config.App) (*Runtime, error) {
	return OpenWithClock(ctx, cfg, clock.RealClock{})
}

// OpenWithClock is Open with an explicit clock.
func OpenWithClock(ctx context.Context, cfg config.App, clk clock.Clock) (*Runtime, error) {
	logger, err := logging.NewLogger(cfg.Environment, cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	store, err := storage.Open(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to open usage storage",
			zap.String("driver", cfg.StorageDriver),
			zap.Error(err))
		_ = logger.Sync()
		return nil, fmt.Errorf("failed to open usage storage: %w", err)
	}

	log, err := usage.New(ctx, usage.Config{
		Storage: store,
		TTL:     cfg.TTL,
		Clock:   clk,
		Logger:  logger,
	})
	if err != nil {
		_ = store.Close()
		_ = logger.Sync()
		return nil, err
	}

	return &Runtime{Log: log, Logger: logger, store: store}, nil
}

// Close releases the storage backend and flushes the logger.
func (r *Runtime) Close() error {
	err := r.store.Close()
	// stderr sync errors are expected on some platforms
	_ = r.Logger.Sync()
	return err
}
