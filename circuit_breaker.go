package furr

import (
	"errors"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"

	"github.com/furrdb/furr/wire"
)

// CircuitBreaker guards the calls sent to one server.
type CircuitBreaker = gobreaker.CircuitBreaker[wire.Response]

// NewCircuitBreakerConfig returns a factory of per-server circuit breakers.
//
// Only failures that end the session count against the breaker, except
// cancellations, which come from the caller. Server errors and invalid
// arguments mean the server is alive and answering.
func NewCircuitBreakerConfig(maxRequests uint32, interval, timeout time.Duration, logger *zap.Logger) func(serverAddr string) *CircuitBreaker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(serverAddr string) *CircuitBreaker {
		return gobreaker.NewCircuitBreaker[wire.Response](gobreaker.Settings{
			Name:        serverAddr,
			MaxRequests: maxRequests,
			Interval:    interval,
			Timeout:     timeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
				return counts.Requests >= 3 && failureRatio >= 0.6
			},
			IsSuccessful: func(err error) bool {
				return err == nil || !wire.ShouldCloseConnection(err) || errors.Is(err, ErrCancelled)
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				logger.Warn("circuit breaker state changed",
					zap.String("server", name),
					zap.Stringer("from", from),
					zap.Stringer("to", to),
				)
			},
		})
	}
}
