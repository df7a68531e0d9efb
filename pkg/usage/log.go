package usage

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/dhima/usage-log/pkg/clock"
	"github.com/dhima/usage-log/pkg/logging"
	"github.com/dhima/usage-log/pkg/models"
	"go.uber.org/zap"
)

// DefaultTTL is how long events are retained when Config.TTL is unset.
const DefaultTTL = 62 * 24 * time.Hour

// Storage is the read/write capability a Log persists its full state through.
// Read returns nil when nothing has been stored yet.
type Storage interface {
	Read(ctx context.Context) (*models.State, error)
	Write(ctx context.Context, state models.State) error
}

// Predicate narrows EventsWithin results.
type Predicate func(models.Event) bool

// Config configures New. Only Storage is required.
type Config struct {
	Storage Storage
	TTL     time.Duration
	Clock   clock.Clock
	Logger  logging.Logger
}

// Log is a bounded, time-windowed record of user interactions.
//
// Expired events are pruned only by New, at most once per calendar day of the
// clock's location. A live Log never prunes. Only one Log should own a given
// storage slot at a time: two owners race on the full-state write.
type Log struct {
	mu          sync.Mutex
	storage     Storage
	clock       clock.Clock
	logger      logging.Logger
	ttl         time.Duration
	expiresAt   time.Time
	lastCleaned time.Time
	events      []models.Event
}

// New loads prior state from cfg.Storage, prunes it if the last clean happened
// before today, and writes the result back.
func New(ctx context.Context, cfg Config) (*Log, error) {
	if cfg.Storage == nil {
		return nil, &ConfigError{Field: "storage", Err: ErrStorageRequired}
	}
	if cfg.TTL < 0 {
		return nil, &ConfigError{Field: "ttl", Err: ErrInvalidTTL}
	}

	ttl := cfg.TTL
	if ttl == 0 {
		ttl = DefaultTTL
	}
	clk := cfg.Clock
	if clk == nil {
		clk = clock.RealClock{}
	}

	now := clock.Millis(clk.Now())
	l := &Log{
		storage:   cfg.Storage,
		clock:     clk,
		logger:    logging.OrNoOp(cfg.Logger).With(zap.String("component", "usage_log")),
		ttl:       ttl,
		expiresAt: now.Add(-ttl),
	}

	stored, err := cfg.Storage.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read usage state: %w", err)
	}
	if stored == nil {
		stored = &models.State{}
	}
	// The backend's copy is never touched; pruning builds a fresh slice.
	l.events = stored.Clone().Events
	if l.events == nil {
		l.events = []models.Event{}
	}
	l.lastCleaned = stored.LastCleaned
	if l.lastCleaned.IsZero() {
		l.lastCleaned = now
	}

	loaded := len(l.events)
	cleaned := false
	if l.lastCleaned.Before(clock.StartOfDay(now)) {
		kept := make([]models.Event, 0, len(l.events))
		for _, ev := range l.events {
			if !ev.Time.Before(l.expiresAt) {
				kept = append(kept, ev)
			}
		}
		l.events = kept
		l.lastCleaned = now
		cleaned = true
	}

	if err := l.backup(ctx); err != nil {
		return nil, err
	}

	l.logger.Info("usage log loaded",
		zap.Int("events", len(l.events)),
		zap.Int("pruned", loaded-len(l.events)),
		zap.Bool("cleaned", cleaned),
		zap.Time("expires_at", l.expiresAt),
		zap.Duration("ttl", l.ttl))

	return l, nil
}

// Log appends an event stamped with the current time and persists the full
// state. It returns l so calls can be chained.
func (l *Log) Log(ctx context.Context, eventType string, properties models.Properties) (*Log, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	ev := models.Event{
		Time:       clock.Millis(l.clock.Now()),
		Type:       eventType,
		Properties: properties.Clone(),
	}
	l.events = append(l.events, ev)

	if err := l.backup(ctx); err != nil {
		return l, err
	}

	l.logger.Debug("usage event recorded",
		zap.String("type", eventType),
		zap.Int("events", len(l.events)))

	return l, nil
}

// EventsWithin returns the events inside r, in recorded order. When types is
// non-empty only those types match; when match is non-nil it must also accept
// the event. Returned events carry their own property maps.
func (l *Log) EventsWithin(r Range, types []string, match Predicate) []models.Event {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]models.Event, 0)
	for _, ev := range l.events {
		if !r.Contains(ev.Time) {
			continue
		}
		if len(types) > 0 && !slices.Contains(types, ev.Type) {
			continue
		}
		if match != nil && !match(ev) {
			continue
		}
		out = append(out, ev.Clone())
	}
	return out
}

// Serialize returns a copy of the state as it is persisted.
func (l *Log) Serialize() models.State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.snapshot()
}

// Backup writes the full state to storage.
func (l *Log) Backup(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.backup(ctx)
}

// Events returns a copy of every retained event.
func (l *Log) Events() []models.Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.snapshot().Events
}

// LastCleaned is when expired events were last pruned, or when the log first
// saw an empty slot.
func (l *Log) LastCleaned() time.Time {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lastCleaned
}

// ExpiresAt is the pruning threshold computed at construction.
func (l *Log) ExpiresAt() time.Time { return l.expiresAt }

// TTL is the retention window in effect.
func (l *Log) TTL() time.Duration { return l.ttl }

func (l *Log) snapshot() models.State {
	return models.State{
		Events:      l.events,
		LastCleaned: l.lastCleaned,
	}.Clone()
}

func (l *Log) backup(ctx context.Context) error {
	if err := l.storage.Write(ctx, l.snapshot()); err != nil {
		l.logger.Error("failed to write usage state",
			zap.Int("events", len(l.events)),
			zap.Error(err))
		return fmt.Errorf("failed to write usage state: %w", err)
	}
	return nil
}
