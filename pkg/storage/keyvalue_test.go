package storage

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/dhima/usage-log/pkg/clock"
	"github.com/dhima/usage-log/pkg/models"
	"github.com/dhima/usage-log/pkg/usage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type brokenKeyValue struct{ err error }

func (b brokenKeyValue) GetItem(string) (string, bool, error) { return "", false, b.err }
func (b brokenKeyValue) SetItem(string, string) error         { return b.err }

func TestKeyValueStore_WhenLogCreated_ThenBacksUpUnderHistoryKey(t *testing.T) {
	// Arrange
	kv := NewMapKeyValue()
	store := NewKeyValueStore(kv, "", nil)

	// Act
	_, err := usage.New(context.Background(), usage.Config{Storage: store, Clock: clock.NewFixed(testNow)})

	// Assert
	require.NoError(t, err)
	raw, ok, err := kv.GetItem(DefaultSlot)
	require.NoError(t, err)
	require.True(t, ok)
	var persisted struct {
		Events      []json.RawMessage `json:"events"`
		LastCleaned int64             `json:"lastCleaned"`
	}
	require.NoError(t, json.Unmarshal([]byte(raw), &persisted))
	assert.Equal(t, testNow.UnixMilli(), persisted.LastCleaned)
	assert.Empty(t, persisted.Events)
}

func TestKeyValueStore_WhenHistoryAlreadyStored_ThenLogRebuildsIt(t *testing.T) {
	// Arrange
	startOfDay := clock.StartOfDay(testNow)
	kv := NewMapKeyValue()
	history := `{"events":[{"time":` + jsonInt(startOfDay.UnixMilli()) +
		`,"type":"person search","properties":{"fname":"jon","lname":"snow","location":"seattle, wa"}}]}`
	require.NoError(t, kv.SetItem(DefaultSlot, history))

	// Act
	l, err := usage.New(context.Background(), usage.Config{
		Storage: NewKeyValueStore(kv, DefaultSlot, nil),
		Clock:   clock.NewFixed(testNow),
	})

	// Assert
	require.NoError(t, err)
	events := l.Events()
	require.Len(t, events, 1)
	assert.Equal(t, startOfDay.UnixMilli(), events[0].Time.UnixMilli())
	assert.Equal(t, "person search", events[0].Type)
	assert.Equal(t, "seattle, wa", events[0].Properties["location"])
}

func TestKeyValueStore_WhenEventHasEmptyProperties_ThenRebuiltLogKeepsThemEmpty(t *testing.T) {
	// Arrange
	kv := NewMapKeyValue()
	store := NewKeyValueStore(kv, "", nil)
	cfg := usage.Config{Storage: store, Clock: clock.NewFixed(testNow)}
	first, err := usage.New(context.Background(), cfg)
	require.NoError(t, err)
	_, err = first.Log(context.Background(), "click", models.Properties{})
	require.NoError(t, err)

	// Act
	second, err := usage.New(context.Background(), cfg)

	// Assert
	require.NoError(t, err)
	require.Len(t, second.Events(), 1)
	assert.Equal(t, models.Properties{}, second.Events()[0].Properties)
}

func TestKeyValueStore_Read_WhenBlobMalformed_ThenTreatedAsAbsent(t *testing.T) {
	// Arrange
	kv := NewMapKeyValue()
	require.NoError(t, kv.SetItem(DefaultSlot, "{not json"))
	store := NewKeyValueStore(kv, DefaultSlot, nil)

	// Act
	state, err := store.Read(context.Background())

	// Assert
	require.NoError(t, err)
	assert.Nil(t, state)
}

func TestKeyValueStore_WhenBlobMalformed_ThenLogHealsIt(t *testing.T) {
	// Arrange
	kv := NewMapKeyValue()
	require.NoError(t, kv.SetItem(DefaultSlot, `{"events": 42}`))

	// Act
	_, err := usage.New(context.Background(), usage.Config{
		Storage: NewKeyValueStore(kv, DefaultSlot, nil),
		Clock:   clock.NewFixed(testNow),
	})

	// Assert
	require.NoError(t, err)
	raw, _, _ := kv.GetItem(DefaultSlot)
	state, err := DecodeState([]byte(raw))
	require.NoError(t, err)
	assert.Empty(t, state.Events)
	assert.Equal(t, testNow.UnixMilli(), state.LastCleaned.UnixMilli())
}

func TestKeyValueStore_WhenBackendFails_ThenErrorsPropagate(t *testing.T) {
	// Arrange
	boom := errors.New("storage disabled")
	store := NewKeyValueStore(brokenKeyValue{err: boom}, "", nil)
	ctx := context.Background()

	// Act
	_, readErr := store.Read(ctx)
	writeErr := store.Write(ctx, sampleState())

	// Assert
	assert.ErrorIs(t, readErr, boom)
	assert.ErrorIs(t, writeErr, boom)
}

func jsonInt(v int64) string {
	b, _ := json.Marshal(v)
	return string(b)
}
