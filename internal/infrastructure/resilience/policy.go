package resilience

import (
	"log/slog"
	"math/rand/v2"
	"time"
)

// StateChangeFunc observes circuit breaker transitions, e.g. for metrics.
type StateChangeFunc func(operation, from, to string)

// Config holds one retry policy and one breaker policy; every operation name
// passed to Execute gets its own breaker built from it.
type Config struct {
	RetryMaxAttempts    int
	RetryInitialBackoff time.Duration
	RetryMaxBackoff     time.Duration
	RetryMultiplier     float64
	// RetryMaxHintWait caps how long a server supplied Retry-After may stall
	// a retry.
	RetryMaxHintWait time.Duration
	// Jitter returns a value in [0,1). Waits are spread over [wait/2, wait).
	Jitter func() float64

	BreakerEnabled          bool
	BreakerMinRequests      uint32
	BreakerFailureRatio     float64
	BreakerOpenTimeout      time.Duration
	BreakerHalfOpenMaxCalls uint32

	Logger        *slog.Logger
	OnStateChange StateChangeFunc
}

func DefaultConfig() Config {
	return Config{
		RetryMaxAttempts:    3,
		RetryInitialBackoff: 200 * time.Millisecond,
		RetryMaxBackoff:     2 * time.Second,
		RetryMultiplier:     2.0,
		RetryMaxHintWait:    5 * time.Second,
		Jitter:              rand.Float64,

		BreakerEnabled:          true,
		BreakerMinRequests:      5,
		BreakerFailureRatio:     0.5,
		BreakerOpenTimeout:      30 * time.Second,
		BreakerHalfOpenMaxCalls: 1,
	}
}

func (c Config) normalize() Config {
	out := c
	def := DefaultConfig()

	if out.RetryMaxAttempts <= 0 {
		out.RetryMaxAttempts = def.RetryMaxAttempts
	}
	if out.RetryInitialBackoff <= 0 {
		out.RetryInitialBackoff = def.RetryInitialBackoff
	}
	if out.RetryMaxBackoff <= 0 {
		out.RetryMaxBackoff = def.RetryMaxBackoff
	}
	out.RetryMaxBackoff = max(out.RetryMaxBackoff, out.RetryInitialBackoff)
	if out.RetryMultiplier < 1.0 {
		out.RetryMultiplier = def.RetryMultiplier
	}
	if out.RetryMaxHintWait <= 0 {
		out.RetryMaxHintWait = def.RetryMaxHintWait
	}
	if out.Jitter == nil {
		out.Jitter = def.Jitter
	}

	if out.BreakerMinRequests == 0 {
		out.BreakerMinRequests = def.BreakerMinRequests
	}
	if out.BreakerFailureRatio <= 0 || out.BreakerFailureRatio > 1 {
		out.BreakerFailureRatio = def.BreakerFailureRatio
	}
	if out.BreakerOpenTimeout <= 0 {
		out.BreakerOpenTimeout = def.BreakerOpenTimeout
	}
	if out.BreakerHalfOpenMaxCalls == 0 {
		out.BreakerHalfOpenMaxCalls = def.BreakerHalfOpenMaxCalls
	}
	if out.Logger == nil {
		out.Logger = slog.Default()
	}

	return out
}

// backoff returns the wait before retry number attempt (1-based), before
// jitter is applied.
func (c Config) backoff(attempt int) time.Duration {
	wait := float64(c.RetryInitialBackoff)
	for i := 1; i < attempt; i++ {
		wait *= c.RetryMultiplier
		if wait >= float64(c.RetryMaxBackoff) {
			return c.RetryMaxBackoff
		}
	}
	return time.Duration(wait)
}

func (c Config) jittered(wait time.Duration) time.Duration {
	if wait <= 0 {
		return 0
	}
	half := wait / 2
	return half + time.Duration(c.Jitter()*float64(wait-half))
}
