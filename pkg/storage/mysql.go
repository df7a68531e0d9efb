package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dhima/usage-log/pkg/logging"
	"github.com/dhima/usage-log/pkg/models"
	_ "github.com/go-sql-driver/mysql"
	"go.uber.org/zap"
)

const mysqlSchema = `
	CREATE TABLE IF NOT EXISTS usage_state (
		slot       VARCHAR(191) NOT NULL PRIMARY KEY,
		payload    LONGTEXT     NOT NULL,
		updated_at DATETIME(3)  NOT NULL
	)
`

// MySQLStore keeps one state blob per slot in the usage_state table.
type MySQLStore struct {
	db     *sql.DB
	slot   string
	logger logging.Logger
}

// NewMySQLStore wires a sql.DB; pass a configured instance from OpenMySQL.
func NewMySQLStore(db *sql.DB, slot string, logger logging.Logger) *MySQLStore {
	if slot == "" {
		slot = DefaultSlot
	}
	return &MySQLStore{
		db:     db,
		slot:   slot,
		logger: logging.OrNoOp(logger).With(zap.String("backend", "mysql"), zap.String("slot", slot)),
	}
}

// OpenMySQL opens and pings a MySQL pool for the given DSN.
func OpenMySQL(ctx context.Context, dsn string) (*sql.DB, error) {
	if dsn == "" {
		return nil, errors.New("DATABASE_URL is required for the mysql driver")
	}

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	db.SetMaxIdleConns(2)
	db.SetMaxOpenConns(5)
	db.SetConnMaxLifetime(60 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// EnsureSchema creates the usage_state table if it does not exist.
func (s *MySQLStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, mysqlSchema); err != nil {
		return fmt.Errorf("failed to create usage_state table: %w", err)
	}
	return nil
}

func (s *MySQLStore) Read(ctx context.Context) (*models.State, error) {
	query := `SELECT payload FROM usage_state WHERE slot = ?`

	var payload string
	err := s.db.QueryRowContext(ctx, query, s.slot).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read usage state: %w", err)
	}
	return decodeOrAbsent([]byte(payload), s.logger), nil
}

func (s *MySQLStore) Write(ctx context.Context, state models.State) error {
	data, err := EncodeState(state)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO usage_state (slot, payload, updated_at)
		VALUES (?, ?, ?)
		ON DUPLICATE KEY UPDATE payload = VALUES(payload), updated_at = VALUES(updated_at)
	`
	if _, err := s.db.ExecContext(ctx, query, s.slot, string(data), time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to write usage state: %w", err)
	}
	return nil
}
