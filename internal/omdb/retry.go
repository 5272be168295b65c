package omdb

import (
	"context"
	"errors"
	"log"
	"math/rand"
	"net"
	"strings"
	"time"
)

// errTemporary marks failures worth retrying, such as 5xx answers from
// the upstream service. Wrap with fmt.Errorf("...: %w", errTemporary).
var errTemporary = errors.New("temporary upstream failure")

type RetryConfig struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}

func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:  3,
		InitialDelay: 500 * time.Millisecond,
		MaxDelay:     5 * time.Second,
		Multiplier:   2.0,
	}
}

// retryWithBackoff runs fn up to cfg.MaxAttempts times with exponential
// backoff between attempts. Permanent errors abort immediately.
func retryWithBackoff(ctx context.Context, cfg RetryConfig, op string, fn func() error) error {
	var lastErr error
	delay := cfg.InitialDelay

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if !isTransientError(lastErr) {
			return lastErr
		}
		if attempt == cfg.MaxAttempts {
			break
		}

		wait := applyJitter(delay)
		log.Printf("[omdb] %s attempt %d/%d failed: %v (retrying in %v)", op, attempt, cfg.MaxAttempts, lastErr, wait)

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		delay = time.Duration(float64(delay) * cfg.Multiplier)
		if delay > cfg.MaxDelay {
			delay = cfg.MaxDelay
		}
	}

	return lastErr
}

// applyJitter spreads the delay by +/-25% so concurrent refreshers do
// not hammer the upstream in lockstep.
func applyJitter(d time.Duration) time.Duration {
	jitter := time.Duration(rand.Int63n(int64(d) / 2))
	return d*3/4 + jitter
}

func isTransientError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, errTemporary) {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	msg := err.Error()
	for _, s := range []string{
		"connection refused",
		"connection reset",
		"no such host",
		"EOF",
	} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}
