package redis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/pscheid92/tablehub/internal/metrics"
	goredis "github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"
)

const breakerComponent = "redis_mirror"

// CircuitBreakerHook rejects Redis work while the breaker is open.
// It sits behind MetricsHook, so rejected commands are still counted as errors.
type CircuitBreakerHook struct {
	cb *gobreaker.TwoStepCircuitBreaker
}

var _ goredis.Hook = (*CircuitBreakerHook)(nil)

// NewCircuitBreakerHook trips after at least 5 requests in a 10s window with a
// failure rate of 60% or more, and probes again after 30s.
func NewCircuitBreakerHook() *CircuitBreakerHook {
	return newCircuitBreakerHook(gobreaker.Settings{
		Name:        breakerComponent,
		MaxRequests: 1,
		Interval:    10 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: failureRateAtLeast(0.6, 5),
	})
}

func newCircuitBreakerHook(settings gobreaker.Settings) *CircuitBreakerHook {
	settings.OnStateChange = func(name string, from, to gobreaker.State) {
		slog.Warn("Circuit breaker state changed", "component", name, "from", from.String(), "to", to.String())
		metrics.CircuitBreakerStateChanges.WithLabelValues(name, to.String()).Inc()
		metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
	}
	metrics.CircuitBreakerState.WithLabelValues(settings.Name).Set(stateToFloat(gobreaker.StateClosed))
	return &CircuitBreakerHook{cb: gobreaker.NewTwoStepCircuitBreaker(settings)}
}

func failureRateAtLeast(ratio float64, minRequests uint32) func(gobreaker.Counts) bool {
	return func(counts gobreaker.Counts) bool {
		if counts.Requests < minRequests {
			return false
		}
		return float64(counts.TotalFailures)/float64(counts.Requests) >= ratio
	}
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

func (h *CircuitBreakerHook) DialHook(next goredis.DialHook) goredis.DialHook {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		done, err := h.cb.Allow()
		if err != nil {
			return nil, fmt.Errorf("redis circuit breaker open: %w", err)
		}
		conn, err := next(ctx, network, addr)
		done(err == nil)
		if err != nil {
			return nil, fmt.Errorf("circuit breaker dial failed: %w", err)
		}
		return conn, nil
	}
}

func (h *CircuitBreakerHook) ProcessHook(next goredis.ProcessHook) goredis.ProcessHook {
	return func(ctx context.Context, cmd goredis.Cmder) error {
		done, err := h.cb.Allow()
		if err != nil {
			return fmt.Errorf("redis circuit breaker open: %w", err)
		}
		err = next(ctx, cmd)
		done(isSuccessful(err))
		return err
	}
}

func (h *CircuitBreakerHook) ProcessPipelineHook(next goredis.ProcessPipelineHook) goredis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []goredis.Cmder) error {
		done, err := h.cb.Allow()
		if err != nil {
			return fmt.Errorf("redis circuit breaker open: %w", err)
		}
		err = next(ctx, cmds)
		done(isSuccessful(err))
		return err
	}
}

// isSuccessful treats a missing key as a healthy answer.
func isSuccessful(err error) bool {
	return err == nil || errors.Is(err, goredis.Nil)
}

// State returns the current breaker state.
func (h *CircuitBreakerHook) State() gobreaker.State {
	return h.cb.State()
}

// Counts returns the breaker's counters for the current window.
func (h *CircuitBreakerHook) Counts() gobreaker.Counts {
	return h.cb.Counts()
}
