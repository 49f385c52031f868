package resilience

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Policy bounds the retries of one kind of external call
type Policy struct {
	Service     string
	Operation   string
	MaxAttempts int           // Total attempts including the first
	Backoff     time.Duration // Delay before the first retry
	Multiplier  float64       // Backoff growth per retry; 1 keeps it fixed
	MaxBackoff  time.Duration

	// OnRetry is called before each retry sleep
	OnRetry func(attempt int, err error)
}

// Fixed returns a policy with a constant delay between attempts
func Fixed(service, operation string, attempts int, backoff time.Duration) Policy {
	return Policy{
		Service:     service,
		Operation:   operation,
		MaxAttempts: attempts,
		Backoff:     backoff,
		Multiplier:  1,
		OnRetry:     RetryLogger(service, operation),
	}
}

func (p Policy) withDefaults() Policy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 1
	}
	if p.Backoff < 0 {
		p.Backoff = 0
	}
	if p.Multiplier < 1 {
		p.Multiplier = 1
	}
	if p.MaxBackoff <= 0 {
		p.MaxBackoff = time.Minute
	}
	return p
}

func (p Policy) delay(attempt int) time.Duration {
	d := float64(p.Backoff)
	for i := 0; i < attempt; i++ {
		d *= p.Multiplier
	}
	if d > float64(p.MaxBackoff) {
		d = float64(p.MaxBackoff)
	}
	return time.Duration(d)
}

// Do runs fn until it succeeds, fails permanently, ctx is done, or the
// attempts run out. Exhaustion yields an *UnavailableError.
func Do(ctx context.Context, p Policy, fn func(ctx context.Context) error) error {
	_, err := DoVal(ctx, p, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// DoVal is Do for calls that return a value
func DoVal[T any](ctx context.Context, p Policy, fn func(ctx context.Context) (T, error)) (T, error) {
	p = p.withDefaults()

	var zero T
	var lastErr error
	for attempt := 0; attempt < p.MaxAttempts; attempt++ {
		val, err := fn(ctx)
		if err == nil {
			return val, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return zero, ctx.Err()
		}
		if IsPermanent(err) {
			return zero, err
		}
		if attempt == p.MaxAttempts-1 {
			break
		}

		if p.OnRetry != nil {
			p.OnRetry(attempt+1, err)
		}

		timer := time.NewTimer(p.delay(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, ctx.Err()
		case <-timer.C:
		}
	}

	return zero, &UnavailableError{
		Service:   p.Service,
		Operation: p.Operation,
		Attempts:  p.MaxAttempts,
		Err:       lastErr,
	}
}

// RetryLogger returns an OnRetry callback that logs each retry attempt
func RetryLogger(service, operation string) func(int, error) {
	return func(attempt int, err error) {
		zap.L().Warn("retrying external call",
			zap.String("service", service),
			zap.String("operation", operation),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
	}
}
