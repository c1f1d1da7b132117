package integrations

import (
	"errors"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/endorhq/endor/pkg/metrics"
)

// BreakerSettings tune the circuit breaker guarding each provider.
type BreakerSettings struct {
	FailureThreshold uint32
	OpenTimeout      time.Duration
	Interval         time.Duration
}

// DefaultBreakerSettings returns the default breaker configuration.
func DefaultBreakerSettings() BreakerSettings {
	return BreakerSettings{
		FailureThreshold: 5,
		OpenTimeout:      30 * time.Second,
		Interval:         60 * time.Second,
	}
}

func newBreaker(name string, settings BreakerSettings) *gobreaker.CircuitBreaker[any] {
	if settings.FailureThreshold == 0 {
		settings = DefaultBreakerSettings()
	}
	return gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    settings.Interval,
		Timeout:     settings.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= settings.FailureThreshold
		},
		// A rejected grant or token is the caller's fault, not an outage.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrRejected)
		},
	})
}

// guarded runs fn through the provider's breaker and records the outcome.
func guarded[T any](cb *gobreaker.CircuitBreaker[any], fn func() (T, error)) (T, error) {
	var zero T

	out, err := cb.Execute(func() (any, error) {
		return fn()
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		metrics.IntegrationCalls.WithLabelValues(cb.Name(), "rejected").Inc()
		return zero, ErrUnavailable
	}
	if err != nil {
		metrics.IntegrationCalls.WithLabelValues(cb.Name(), "failure").Inc()
		return zero, err
	}

	metrics.IntegrationCalls.WithLabelValues(cb.Name(), "success").Inc()
	value, _ := out.(T)
	return value, nil
}
