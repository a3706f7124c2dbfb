package cache

import (
	"context"
	"errors"
	"time"
)

// RetryableError marks a backend failure as transient (a dropped Redis
// connection, a dial timeout). Anything not wrapped is treated as final.
type RetryableError struct{ Err error }

// Retryable wraps err so [RetryWithBackoff] tries again. nil stays nil.
func Retryable(err error) error {
	if err == nil {
		return nil
	}
	return &RetryableError{Err: err}
}

func (e *RetryableError) Error() string { return e.Err.Error() }
func (e *RetryableError) Unwrap() error { return e.Err }

func IsRetryable(err error) bool {
	var target *RetryableError
	return errors.As(err, &target)
}

const retryAttempts = 3

// retryDelay is the wait before the second attempt. It doubles afterwards.
var retryDelay = time.Second

// RetryWithBackoff calls fn until it succeeds, returns a non-retryable
// error, or [retryAttempts] calls have failed. A cancelled ctx aborts the
// wait between attempts.
func RetryWithBackoff(ctx context.Context, fn func() error) error {
	wait := retryDelay
	for attempt := 1; ; attempt++ {
		err := fn()
		if err == nil || !IsRetryable(err) || attempt == retryAttempts {
			return err
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		wait *= 2
	}
}
