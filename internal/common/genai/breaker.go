// internal/common/genai/breaker.go
package genai

import (
	"errors"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"cinesense/internal/common/config"
	"cinesense/internal/common/logger"
	"cinesense/internal/common/metrics"
)

func newBreaker(name string, cfg config.BreakerConfig, log logger.Logger) *gobreaker.CircuitBreaker[interface{}] {
	maxFailures := uint32(cfg.MaxFailures)
	if maxFailures == 0 {
		maxFailures = 5
	}

	metrics.CircuitBreakerState.WithLabelValues(name).Set(0)

	return gobreaker.NewCircuitBreaker[interface{}](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    durationOr(cfg.Interval, time.Minute),
		Timeout:     durationOr(cfg.OpenTimeout, 30*time.Second),
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		// An unconfigured provider is not an outage.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrProviderNotConfigured)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("circuit breaker state changed", map[string]interface{}{
				"provider": name,
				"from":     from.String(),
				"to":       to.String(),
			})
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateValue(to))
		},
	})
}

func stateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}

func durationOr(ms int, d time.Duration) time.Duration {
	if ms <= 0 {
		return d
	}
	return config.GetDuration(ms)
}
