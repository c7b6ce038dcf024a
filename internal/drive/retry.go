package drive

import (
	"context"
	"math/rand"
	"time"

	"go.uber.org/zap"
)

const (
	defaultMaxAttempts = 3
	defaultBaseDelay   = time.Second
	maxJitter          = time.Second
)

// Retryer wraps remote operations with exponential backoff and jitter.
// Terminal failures (401/403/404) are surfaced immediately; everything else
// (network errors, timeouts, 429, 5xx) is retried up to MaxAttempts.
type Retryer struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Logger      *zap.Logger

	// jitter is overridable so tests run without sleeping on randomness.
	jitter func() time.Duration
}

// NewRetryer builds a Retryer with sane defaults for zero values.
func NewRetryer(maxAttempts int, baseDelay time.Duration, logger *zap.Logger) *Retryer {
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}
	if baseDelay <= 0 {
		baseDelay = defaultBaseDelay
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Retryer{
		MaxAttempts: maxAttempts,
		BaseDelay:   baseDelay,
		Logger:      logger,
		jitter: func() time.Duration {
			return time.Duration(rand.Int63n(int64(maxJitter)))
		},
	}
}

// Do executes op until it succeeds, fails terminally, exhausts attempts or
// the context is cancelled. The returned error is the classified last
// failure.
func Do[T any](ctx context.Context, r *Retryer, label string, op func(context.Context) (T, error)) (T, error) {
	var zero T
	var lastErr *RemoteError

	for attempt := 1; attempt <= r.MaxAttempts; attempt++ {
		result, err := op(ctx)
		if err == nil {
			return result, nil
		}

		lastErr = Classify(err)
		if lastErr.Terminal() {
			return zero, lastErr
		}
		if attempt == r.MaxAttempts {
			break
		}

		delay := r.BaseDelay*(1<<(attempt-1)) + r.jitter()
		r.Logger.Warn("remote call failed, retrying",
			zap.String("operation", label),
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
			zap.Error(lastErr),
		)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, Classify(ctx.Err())
		case <-timer.C:
		}
	}

	r.Logger.Error("remote call exhausted retries",
		zap.String("operation", label),
		zap.Int("attempts", r.MaxAttempts),
		zap.Error(lastErr),
	)
	return zero, lastErr
}
