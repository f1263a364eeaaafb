package retry

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Record is one observed failure, as surfaced to the UI layer.
type Record struct {
	Op        string
	Err       error
	Class     Class
	Retryable bool
	At        time.Time
}

// Coordinator records the most recent failure per session and exposes a
// uniform retry helper. All user-visible errors funnel through here so
// classification and display stay consistent.
type Coordinator struct {
	logger zerolog.Logger
	now    func() time.Time

	mu       sync.Mutex
	last     *Record
	retrying bool
}

// NewCoordinator creates a Coordinator logging through the given logger.
func NewCoordinator(logger zerolog.Logger) *Coordinator {
	return &Coordinator{logger: logger, now: time.Now}
}

// HandleError records err against the named operation and returns the record.
// Session-expired errors are recorded but flagged non-retryable so the caller
// escalates to re-authentication instead of looping here.
func (c *Coordinator) HandleError(err error, op string) Record {
	rec := Record{
		Op:        op,
		Err:       err,
		Class:     ClassOf(err),
		Retryable: Retryable(err),
		At:        c.now(),
	}

	c.mu.Lock()
	c.last = &rec
	c.mu.Unlock()

	c.logger.Warn().Str("op", op).Str("class", string(rec.Class)).Err(err).Msg("operation failed")
	return rec
}

// LastError returns the most recent failure record, if any.
func (c *Coordinator) LastError() (Record, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.last == nil {
		return Record{}, false
	}
	return *c.last, true
}

// CanRetry reports whether the recorded failure may be retried.
func (c *Coordinator) CanRetry() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last != nil && c.last.Retryable
}

// IsRetrying reports whether a RetryOperation call is in flight.
func (c *Coordinator) IsRetrying() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.retrying
}

// Clear drops the recorded error, e.g. after the user dismisses the banner.
func (c *Coordinator) Clear() {
	c.mu.Lock()
	c.last = nil
	c.mu.Unlock()
}

// RetryOperation re-invokes a failed operation. On success the error state is
// cleared; on failure the new error is recorded in place of the old one.
func (c *Coordinator) RetryOperation(ctx context.Context, op string, fn func(context.Context) error) error {
	c.mu.Lock()
	if c.last != nil && !c.last.Retryable {
		last := *c.last
		c.mu.Unlock()
		return last.Err
	}
	c.retrying = true
	c.mu.Unlock()

	err := fn(ctx)

	c.mu.Lock()
	c.retrying = false
	if err == nil {
		c.last = nil
	}
	c.mu.Unlock()

	if err != nil {
		c.HandleError(err, op)
		return err
	}
	c.logger.Debug().Str("op", op).Msg("retry succeeded")
	return nil
}
