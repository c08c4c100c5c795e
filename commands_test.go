package furr

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/furrdb/furr/wire"
)

func TestSession_Set(t *testing.T) {
	s, mock := newMockSession(t, "OK\n")

	require.NoError(t, s.Set(context.Background(), "name", "Alice Smith"))
	assert.Equal(t, "SET name Alice Smith\n", mock.Written())
}

func TestSession_SetRejected(t *testing.T) {
	s, mock := newMockSession(t)
	ctx := context.Background()

	err := s.Set(ctx, "name", "")
	require.ErrorIs(t, err, ErrEmptyValue)
	var ce *wire.CodecError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, wire.KindInvalidArgument, ce.Kind)

	err = s.Set(ctx, "first name", "Alice")
	require.ErrorAs(t, err, &ce)

	err = s.Set(ctx, "", "Alice")
	require.ErrorAs(t, err, &ce)

	assert.Zero(t, mock.WriteCalls())
	assert.Equal(t, StateConnected, s.State())
}

func TestSession_SetUnexpected(t *testing.T) {
	s, _ := newMockSession(t, "DONE\n", "ERR out of memory\n")

	err := s.Set(context.Background(), "a", "b")
	assert.ErrorIs(t, err, ErrUnexpectedResponse)

	err = s.Set(context.Background(), "a", "b")
	var se *wire.ServerError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "out of memory", se.Message)
	assert.Equal(t, StateConnected, s.State())
}

func TestSession_Get(t *testing.T) {
	s, mock := newMockSession(t, "Alice Smith\n", "\n")
	ctx := context.Background()

	item, err := s.Get(ctx, "name")
	require.NoError(t, err)
	assert.Equal(t, Item{Key: "name", Value: "Alice Smith", Found: true}, item)

	item, err = s.Get(ctx, "missing")
	require.NoError(t, err)
	assert.Equal(t, Item{Key: "missing"}, item)

	assert.Equal(t, "GET name\nGET missing\n", mock.Written())
}

func TestSession_ExistsDel(t *testing.T) {
	s, mock := newMockSession(t, "1\n", "0\n", "1\n", "0\n", "maybe\n")
	ctx := context.Background()

	ok, err := s.Exists(ctx, "name")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.Exists(ctx, "age")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = s.Del(ctx, "name")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.Del(ctx, "name")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = s.Exists(ctx, "name")
	assert.ErrorIs(t, err, ErrUnexpectedResponse)

	assert.Equal(t, "EXISTS name\nEXISTS age\nDEL name\nDEL name\nEXISTS name\n", mock.Written())
}

func TestSession_Keys(t *testing.T) {
	s, mock := newMockSession(t, "age,name\n", "\n")
	ctx := context.Background()

	keys, err := s.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"age", "name"}, keys)

	keys, err = s.Keys(ctx)
	require.NoError(t, err)
	assert.Empty(t, keys)

	assert.Equal(t, "KEYS\nKEYS\n", mock.Written())
}

func TestSession_ExitHelper(t *testing.T) {
	s, _ := newMockSession(t, "BYE\n")
	require.NoError(t, s.Exit(context.Background()))
	assert.Equal(t, StateClosed, s.State())

	s, _ = newMockSession(t, "ERR not now\n")
	var se *wire.ServerError
	require.ErrorAs(t, s.Exit(context.Background()), &se)
	assert.Equal(t, StateClosed, s.State())

	s, _ = newMockSession(t)
	require.Error(t, s.Exit(context.Background()))
	assert.Equal(t, StateClosed, s.State())
}

func TestSession_CRUD(t *testing.T) {
	srv := startServer(t)
	s := dialServer(t, srv)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "name", "Alice Smith"))
	require.NoError(t, s.Set(ctx, "age", "30"))

	item, err := s.Get(ctx, "name")
	require.NoError(t, err)
	assert.Equal(t, "Alice Smith", item.Value)

	ok, err := s.Exists(ctx, "age")
	require.NoError(t, err)
	assert.True(t, ok)

	keys, err := s.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"age", "name"}, keys)

	ok, err = s.Del(ctx, "name")
	require.NoError(t, err)
	assert.True(t, ok)

	item, err = s.Get(ctx, "name")
	require.NoError(t, err)
	assert.False(t, item.Found)

	require.NoError(t, s.Exit(ctx))
	_, err = s.Keys(ctx)
	assert.ErrorIs(t, err, ErrNotConnected)
}
