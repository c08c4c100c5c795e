package furr

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/furrdb/furr/internal/testutils"
	"github.com/furrdb/furr/wire"
)

func failWith(err error) func() (wire.Response, error) {
	return func() (wire.Response, error) {
		return wire.Response{}, err
	}
}

func TestCircuitBreaker_TripsOnTransportErrors(t *testing.T) {
	cb := NewCircuitBreakerConfig(1, time.Minute, time.Minute, zaptest.NewLogger(t))("server-1")
	assert.Equal(t, gobreaker.StateClosed, cb.State())

	transportErr := &wire.TransportError{Op: "read", Kind: wire.KindConnectionClosed, Err: errors.New("EOF")}
	for range 3 {
		_, err := cb.Execute(failWith(transportErr))
		require.ErrorAs(t, err, new(*wire.TransportError))
	}
	assert.Equal(t, gobreaker.StateOpen, cb.State())

	_, err := cb.Execute(failWith(nil))
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
}

func TestCircuitBreaker_IgnoresLiveServerErrors(t *testing.T) {
	cb := NewCircuitBreakerConfig(1, time.Minute, time.Minute, nil)("server-1")

	for _, err := range []error{
		&wire.ServerError{Message: "unknown command"},
		ErrEmptyValue,
		fmt.Errorf("%w: %w", ErrCancelled, &wire.TransportError{Op: "read", Kind: wire.KindTimeout, Err: errors.New("i/o timeout")}),
	} {
		for range 5 {
			_, got := cb.Execute(failWith(err))
			require.ErrorIs(t, got, err)
		}
	}

	assert.Equal(t, gobreaker.StateClosed, cb.State())
	assert.Zero(t, cb.Counts().TotalFailures)
}

func TestCircuitBreaker_Timeouts(t *testing.T) {
	cb := NewCircuitBreakerConfig(1, time.Minute, time.Minute, nil)("server-1")

	timeoutErr := fmt.Errorf("%w: %w", ErrTimeout, &wire.TransportError{Op: "read", Kind: wire.KindTimeout, Err: errors.New("i/o timeout")})
	for range 3 {
		_, _ = cb.Execute(failWith(timeoutErr))
	}
	assert.Equal(t, gobreaker.StateOpen, cb.State())
}

func TestClient_CircuitBreakerOpensOnDeadServer(t *testing.T) {
	client, err := NewClient(StaticServers(deadAddr(t)), ClientConfig{
		Timeout:           time.Second,
		Logger:            zaptest.NewLogger(t),
		NewCircuitBreaker: NewCircuitBreakerConfig(1, time.Minute, time.Minute, zaptest.NewLogger(t)),
	})
	require.NoError(t, err)
	defer client.Close()
	ctx := context.Background()

	for range 3 {
		_, err := client.Get(ctx, "a")
		require.Error(t, err)
		assert.NotErrorIs(t, err, gobreaker.ErrOpenState)
	}

	_, err = client.Get(ctx, "a")
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)

	stats := client.AllPoolStats()
	require.Len(t, stats, 1)
	assert.Equal(t, "open", stats[0].CircuitBreakerState)
	assert.Equal(t, uint64(4), client.Stats().Errors)
}

func TestClient_CircuitBreakerStaysClosedOnServerErrors(t *testing.T) {
	mock := testutils.NewConnectionMock(strings.Repeat("ERR boom\n", 5))
	client, err := NewClient(StaticServers("furr-1:7070"), ClientConfig{
		Logger:            zaptest.NewLogger(t),
		NewCircuitBreaker: NewCircuitBreakerConfig(1, time.Minute, time.Minute, nil),
		constructor: func(ctx context.Context, addr string) (*Session, error) {
			return NewSession(mock, Config{}), nil
		},
	})
	require.NoError(t, err)
	defer client.Close()

	for range 5 {
		_, err := client.Del(context.Background(), "k")
		var se *wire.ServerError
		require.ErrorAs(t, err, &se)
	}

	stats := client.AllPoolStats()[0]
	assert.Equal(t, "closed", stats.CircuitBreakerState)
	assert.Equal(t, uint64(1), stats.PoolStats.CreatedConns)
}
