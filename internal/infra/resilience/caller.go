// Package resilience wraps external network calls with correlation IDs,
// structured timing logs, and bounded retry with exponential backoff plus
// jitter on transient failures.
package resilience

import (
	"context"
	"errors"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"careerpilot/internal/domain"
	"careerpilot/internal/infra/metrics"
)

type Config struct {
	MaxAttempts int           // total attempts, including the first
	BaseDelay   time.Duration // backoff base
	MaxDelay    time.Duration // cap on a single backoff sleep
	CallTimeout time.Duration // per-attempt deadline
}

func (c *Config) defaults() {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.BaseDelay <= 0 {
		c.BaseDelay = 500 * time.Millisecond
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = 5 * time.Second
	}
	if c.CallTimeout <= 0 {
		c.CallTimeout = 30 * time.Second
	}
}

// Caller holds the retry policy. It keeps no state between calls.
type Caller struct {
	cfg Config
	log *zerolog.Logger
}

func NewCaller(cfg Config, log *zerolog.Logger) *Caller {
	cfg.defaults()
	return &Caller{cfg: cfg, log: log}
}

// Call runs fn under the caller's retry policy. fn performs one network
// round trip; transient failures are retried up to the attempt bound,
// everything else propagates immediately. Every log line for one Call
// shares a correlation id so start/success/failure can be cross-referenced.
func Call[T any](ctx context.Context, c *Caller, op string, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	cid := uuid.NewString()
	log := c.log.With().Str("op", op).Str("correlation_id", cid).Logger()

	start := time.Now()
	log.Info().Msg("call start")

	var lastErr error
	for attempt := 1; attempt <= c.cfg.MaxAttempts; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, c.cfg.CallTimeout)
		out, err := fn(attemptCtx)
		cancel()

		if err == nil {
			elapsed := time.Since(start)
			metrics.ObserveAICall(op, true, elapsed)
			log.Info().Dur("duration", elapsed).Int("attempts", attempt).Msg("call success")
			return out, nil
		}

		lastErr = err
		if !Transient(err) || attempt == c.cfg.MaxAttempts {
			break
		}

		metrics.IncRetry(op)
		delay := c.backoff(attempt)
		log.Warn().Err(err).Int("attempt", attempt).Dur("backoff", delay).Msg("transient failure, retrying")
		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(delay):
		}
	}

	elapsed := time.Since(start)
	metrics.ObserveAICall(op, false, elapsed)
	log.Error().Err(lastErr).Dur("duration", elapsed).Msg("call failure")
	return zero, lastErr
}

// backoff returns base * 2^(attempt-1) plus a uniform random jitter in
// [0, delay/2), capped at MaxDelay.
func (c *Caller) backoff(attempt int) time.Duration {
	delay := c.cfg.BaseDelay << (attempt - 1)
	if delay > c.cfg.MaxDelay {
		delay = c.cfg.MaxDelay
	}
	if half := int64(delay / 2); half > 0 {
		delay += time.Duration(rand.Int64N(half))
	}
	if delay > c.cfg.MaxDelay {
		delay = c.cfg.MaxDelay
	}
	return delay
}

var transientMarkers = []string{
	"429", "rate", "timeout", "timed out", "unavailable",
	"500", "502", "503", "504", "overloaded",
}

// Transient classifies an error as retryable. Safety blocks and caller
// cancellation are permanent; rate-limit, timeout, unavailable and
// 5xx-class signals are transient.
func Transient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, domain.ErrSafetyBlocked) || errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, m := range transientMarkers {
		if strings.Contains(msg, m) {
			return true
		}
	}
	return false
}
