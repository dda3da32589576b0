package registry

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/fairyhunter13/khbroker/internal/adapter/observability"
	"github.com/fairyhunter13/khbroker/internal/domain"
)

// Resilient wraps an upstream domain.ModelRegistry with the same
// exponential-backoff-with-jitter retry policy and circuit breaker
// applied to outbound provider calls elsewhere in this codebase: the
// registry is an external, possibly-flaky HTTP dependency, and a
// request handler must not be allowed to hammer it or hang on it.
type Resilient struct {
	upstream        domain.ModelRegistry
	breaker         *observability.CircuitBreaker
	maxElapsedTime  time.Duration
	initialInterval time.Duration
	maxInterval     time.Duration
	multiplier      float64
}

// NewResilient constructs a Resilient registry client. breakerName
// scopes the shared circuit-breaker instance (one per upstream).
func NewResilient(upstream domain.ModelRegistry, breakerName string, maxFailures int, breakerTimeout, maxElapsedTime, initialInterval, maxInterval time.Duration, multiplier float64) *Resilient {
	return &Resilient{
		upstream:        upstream,
		breaker:         observability.GetCircuitBreaker(breakerName, maxFailures, breakerTimeout),
		maxElapsedTime:  maxElapsedTime,
		initialInterval: initialInterval,
		maxInterval:     maxInterval,
		multiplier:      multiplier,
	}
}

// ParameterCount implements domain.ModelRegistry, retrying transient
// upstream failures with backoff and short-circuiting once the breaker
// trips.
func (r *Resilient) ParameterCount(ctx context.Context, modelName string) (float64, error) {
	var result float64
	op := func() error {
		v, err := r.upstream.ParameterCount(ctx, modelName)
		if err != nil {
			return err
		}
		result = v
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = r.initialInterval
	bo.MaxInterval = r.maxInterval
	bo.MaxElapsedTime = r.maxElapsedTime
	bo.Multiplier = r.multiplier

	err := r.breaker.Call(func() error {
		return backoff.Retry(op, backoff.WithContext(bo, ctx))
	})
	if err != nil {
		return 0, fmt.Errorf("op=registry.Resilient.ParameterCount: %w", err)
	}
	return result, nil
}
