package retry

import (
	"context"
	"time"
)

const (
	defaultBackoffMin = 1 * time.Second
	defaultBackoffMax = 30 * time.Second
)

// Backoff produces capped exponential delays. The zero value is usable and
// starts at one second, doubling up to thirty seconds.
type Backoff struct {
	Min time.Duration
	Max time.Duration

	attempt int
}

// Next returns the delay to wait before the next attempt and advances the
// sequence.
func (b *Backoff) Next() time.Duration {
	min := b.Min
	if min <= 0 {
		min = defaultBackoffMin
	}
	max := b.Max
	if max < min {
		max = defaultBackoffMax
	}

	d := min << b.attempt
	if d <= 0 || d > max {
		d = max
	} else {
		b.attempt++
	}
	return d
}

// Reset restarts the sequence after a success.
func (b *Backoff) Reset() { b.attempt = 0 }

// Attempts returns how many delays have been handed out since the last reset.
func (b *Backoff) Attempts() int { return b.attempt }

// Sleep waits for the next backoff delay or until ctx is done.
func (b *Backoff) Sleep(ctx context.Context) error {
	timer := time.NewTimer(b.Next())
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
