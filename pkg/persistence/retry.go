package persistence

import (
	"context"
	"errors"
	"math"
	"time"
)

// Backoff controls how failed commits are retried.
type Backoff struct {
	Base     time.Duration
	Factor   float64
	Max      time.Duration
	Attempts int
}

// DefaultBackoff retries up to five times starting at 100ms, doubling up to 5s.
func DefaultBackoff() Backoff {
	return Backoff{
		Base:     100 * time.Millisecond,
		Factor:   2,
		Max:      5 * time.Second,
		Attempts: 5,
	}
}

// Delay returns the wait after the given failed attempt (1-based).
func (b Backoff) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := float64(b.Base) * math.Pow(b.Factor, float64(attempt-1))
	if b.Max > 0 && d > float64(b.Max) {
		return b.Max
	}
	return time.Duration(d)
}

func (b Backoff) attempts() int {
	if b.Attempts < 1 {
		return 1
	}
	return b.Attempts
}

// Permanent reports whether err will not go away by retrying.
func Permanent(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrBadField) ||
		errors.Is(err, context.Canceled)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
