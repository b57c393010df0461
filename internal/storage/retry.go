package storage

import (
	"context"
	"time"
)

const (
	defaultRetryAttempts = 3
	defaultRetryBackoff  = 500 * time.Millisecond
)

// retryPolicy retries an operation with linear backoff. Used by the NAS
// backends, where transient DSM errors clear within a second or two.
type retryPolicy struct {
	attempts int
	backoff  time.Duration
}

func defaultRetryPolicy() retryPolicy {
	return retryPolicy{attempts: defaultRetryAttempts, backoff: defaultRetryBackoff}
}

// run calls op up to p.attempts times, sleeping attempt*backoff between
// tries. The attempt number is passed so callers can degrade the operation
// (e.g. collapse a destination path) on later tries.
func (p retryPolicy) run(ctx context.Context, op func(attempt int) error) error {
	var err error
	for attempt := 1; attempt <= p.attempts; attempt++ {
		if err = op(attempt); err == nil {
			return nil
		}
		if attempt == p.attempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt) * p.backoff):
		}
	}
	return err
}
