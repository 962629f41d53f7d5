package service

import (
	"context"
	"errors"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/Adams521/everything-gift/internal/config"
	"github.com/Adams521/everything-gift/internal/logging"
	"github.com/Adams521/everything-gift/internal/metrics"
)

const breakerName = "ai-engine"

// GuardedEngine bounds every call to the wrapped engine with a fixed timeout,
// a token-bucket throttle and a circuit breaker. It never retries.
type GuardedEngine struct {
	engine  AIEngine
	timeout time.Duration
	limiter *rate.Limiter
	cb      *gobreaker.CircuitBreaker[string]
}

// NewGuardedEngine wraps engine using the AI configuration
func NewGuardedEngine(engine AIEngine, cfg *config.AIConfig) *GuardedEngine {
	var limiter *rate.Limiter
	if cfg.RateLimit > 0 {
		burst := cfg.RateBurst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}

	minRequests := cfg.BreakerMinRequests
	failureRatio := cfg.BreakerFailureRatio

	metrics.CircuitBreakerState.WithLabelValues(breakerName).Set(0)

	cb := gobreaker.NewCircuitBreaker[string](gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     cfg.BreakerOpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < minRequests {
				return false
			}
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			return ratio >= failureRatio
		},
		// caller cancellation is not the engine's fault
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).
				Msg("AI circuit breaker state transition")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
		},
	})

	return &GuardedEngine{
		engine:  engine,
		timeout: cfg.Timeout,
		limiter: limiter,
		cb:      cb,
	}
}

// IsEnabled delegates to the wrapped engine
func (g *GuardedEngine) IsEnabled() bool {
	return engineEnabled(g.engine)
}

// Generate runs one guarded call
func (g *GuardedEngine) Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error) {
	if !g.IsEnabled() {
		return "", ErrAIDisabled
	}

	if g.limiter != nil && !g.limiter.Allow() {
		metrics.AICallsRejected.WithLabelValues("rate_limited").Inc()
		return "", ErrAIRateLimited
	}

	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	start := time.Now()
	text, err := g.cb.Execute(func() (string, error) {
		return g.engine.Generate(ctx, prompt, opts)
	})

	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.AICallsRejected.WithLabelValues("circuit_open").Inc()
		return "", ErrAICircuitOpen
	case err != nil:
		metrics.AICallDuration.WithLabelValues("error").Observe(time.Since(start).Seconds())
		return "", err
	}

	metrics.AICallDuration.WithLabelValues("ok").Observe(time.Since(start).Seconds())
	return text, nil
}

// stateToFloat converts circuit breaker state to numeric value for metrics
func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}
