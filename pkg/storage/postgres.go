package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dhima/usage-log/pkg/logging"
	"github.com/dhima/usage-log/pkg/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

const postgresSchema = `
	CREATE TABLE IF NOT EXISTS usage_state (
		slot       TEXT        PRIMARY KEY,
		payload    TEXT        NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)
`

// PgxQuerier is the subset of *pgxpool.Pool the Postgres store needs.
type PgxQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresStore keeps one state blob per slot in the usage_state table.
type PostgresStore struct {
	db     PgxQuerier
	slot   string
	logger logging.Logger
}

func NewPostgresStore(db PgxQuerier, slot string, logger logging.Logger) *PostgresStore {
	if slot == "" {
		slot = DefaultSlot
	}
	return &PostgresStore{
		db:     db,
		slot:   slot,
		logger: logging.OrNoOp(logger).With(zap.String("backend", "postgres"), zap.String("slot", slot)),
	}
}

// ConnectPostgres opens a pgx pool and checks it answers.
func ConnectPostgres(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("pgxpool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return pool, nil
}

func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, postgresSchema); err != nil {
		return fmt.Errorf("failed to create usage_state table: %w", err)
	}
	return nil
}

func (s *PostgresStore) Read(ctx context.Context) (*models.State, error) {
	var payload string
	err := s.db.QueryRow(ctx, `SELECT payload FROM usage_state WHERE slot = $1`, s.slot).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read usage state: %w", err)
	}
	return decodeOrAbsent([]byte(payload), s.logger), nil
}

func (s *PostgresStore) Write(ctx context.Context, state models.State) error {
	data, err := EncodeState(state)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO usage_state (slot, payload, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (slot) DO UPDATE SET payload = EXCLUDED.payload, updated_at = EXCLUDED.updated_at
	`
	if _, err := s.db.Exec(ctx, query, s.slot, string(data), time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to write usage state: %w", err)
	}
	return nil
}
