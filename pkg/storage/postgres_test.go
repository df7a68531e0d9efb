package storage

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRow struct {
	payload string
	err     error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	*dest[0].(*string) = r.payload
	return nil
}

type fakePgx struct {
	row       fakeRow
	execErr   error
	queries   []string
	execSQL   []string
	execArgs  [][]any
	queryArgs [][]any
}

func (f *fakePgx) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	f.queries = append(f.queries, sql)
	f.queryArgs = append(f.queryArgs, args)
	return f.row
}

func (f *fakePgx) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.execSQL = append(f.execSQL, sql)
	f.execArgs = append(f.execArgs, args)
	if f.execErr != nil {
		return pgconn.CommandTag{}, f.execErr
	}
	return pgconn.NewCommandTag("INSERT 0 1"), nil
}

func TestPostgresStore_Read_WhenNoRows_ThenReturnsNil(t *testing.T) {
	// Arrange
	db := &fakePgx{row: fakeRow{err: pgx.ErrNoRows}}
	store := NewPostgresStore(db, "visitor-1", nil)

	// Act
	state, err := store.Read(context.Background())

	// Assert
	require.NoError(t, err)
	assert.Nil(t, state)
	require.Len(t, db.queryArgs, 1)
	assert.Equal(t, []any{"visitor-1"}, db.queryArgs[0])
}

func TestPostgresStore_Read_WhenRowExists_ThenDecodesPayload(t *testing.T) {
	// Arrange
	db := &fakePgx{row: fakeRow{payload: `{"events":[{"time":5,"type":"open"}],"lastCleaned":9}`}}
	store := NewPostgresStore(db, "", nil)

	// Act
	state, err := store.Read(context.Background())

	// Assert
	require.NoError(t, err)
	require.NotNil(t, state)
	require.Len(t, state.Events, 1)
	assert.Equal(t, "open", state.Events[0].Type)
	assert.Equal(t, int64(9), state.LastCleaned.UnixMilli())
}

func TestPostgresStore_Read_WhenScanFails_ThenReturnsError(t *testing.T) {
	// Arrange
	boom := errors.New("conn closed")
	store := NewPostgresStore(&fakePgx{row: fakeRow{err: boom}}, "", nil)

	// Act
	_, err := store.Read(context.Background())

	// Assert
	assert.ErrorIs(t, err, boom)
}

func TestPostgresStore_Write_WhenCalled_ThenUpsertsEncodedState(t *testing.T) {
	// Arrange
	db := &fakePgx{}
	store := NewPostgresStore(db, "", nil)
	state := sampleState()
	payload, err := EncodeState(state)
	require.NoError(t, err)

	// Act
	err = store.Write(context.Background(), state)

	// Assert
	require.NoError(t, err)
	require.Len(t, db.execSQL, 1)
	assert.True(t, strings.Contains(db.execSQL[0], "ON CONFLICT (slot)"))
	assert.Equal(t, DefaultSlot, db.execArgs[0][0])
	assert.Equal(t, string(payload), db.execArgs[0][1])
}

func TestPostgresStore_Write_WhenExecFails_ThenReturnsError(t *testing.T) {
	// Arrange
	boom := errors.New("read-only transaction")
	store := NewPostgresStore(&fakePgx{execErr: boom}, "", nil)

	// Act
	err := store.Write(context.Background(), sampleState())

	// Assert
	assert.ErrorIs(t, err, boom)
}

func TestConnectPostgres_WhenDSNInvalid_ThenReturnsError(t *testing.T) {
	// Act
	pool, err := ConnectPostgres(context.Background(), "postgres://%zz")

	// Assert
	assert.Nil(t, pool)
	assert.Error(t, err)
}
