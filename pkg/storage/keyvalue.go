package storage

import (
	"context"
	"fmt"
	"sync"

	"github.com/dhima/usage-log/pkg/logging"
	"github.com/dhima/usage-log/pkg/models"
	"go.uber.org/zap"
)

// KeyValue is a string key/value store in the shape of browser local storage.
type KeyValue interface {
	GetItem(key string) (value string, ok bool, err error)
	SetItem(key, value string) error
}

// KeyValueStore keeps the state as a JSON string under a single key.
type KeyValueStore struct {
	kv     KeyValue
	key    string
	logger logging.Logger
}

// NewKeyValueStore stores state under key, or DefaultSlot when key is empty.
func NewKeyValueStore(kv KeyValue, key string, logger logging.Logger) *KeyValueStore {
	if key == "" {
		key = DefaultSlot
	}
	return &KeyValueStore{
		kv:     kv,
		key:    key,
		logger: logging.OrNoOp(logger).With(zap.String("backend", "keyvalue"), zap.String("key", key)),
	}
}

func (s *KeyValueStore) Read(_ context.Context) (*models.State, error) {
	value, ok, err := s.kv.GetItem(s.key)
	if err != nil {
		return nil, fmt.Errorf("failed to get item %q: %w", s.key, err)
	}
	if !ok {
		return nil, nil
	}
	return decodeOrAbsent([]byte(value), s.logger), nil
}

func (s *KeyValueStore) Write(_ context.Context, state models.State) error {
	data, err := EncodeState(state)
	if err != nil {
		return err
	}
	if err := s.kv.SetItem(s.key, string(data)); err != nil {
		return fmt.Errorf("failed to set item %q: %w", s.key, err)
	}
	return nil
}

// MapKeyValue is an in-process KeyValue.
type MapKeyValue struct {
	mu    sync.RWMutex
	items map[string]string
}

func NewMapKeyValue() *MapKeyValue {
	return &MapKeyValue{items: make(map[string]string)}
}

func (m *MapKeyValue) GetItem(key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.items[key]
	return v, ok, nil
}

func (m *MapKeyValue) SetItem(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[key] = value
	return nil
}
