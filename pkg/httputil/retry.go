package httputil

import (
	"context"
	"errors"
	"time"
)

// maxRetryAfter caps the wait a server can ask for with Retry-After.
const maxRetryAfter = 30 * time.Second

// RetryableError marks a transient failure such as a dropped connection or
// a 5xx answer from a rendering service. After, when set, is the wait the
// server asked for and replaces the backoff delay for that attempt.
type RetryableError struct {
	Err   error
	After time.Duration
}

func (e *RetryableError) Error() string { return e.Err.Error() }
func (e *RetryableError) Unwrap() error { return e.Err }

// Retry calls fn up to attempts times. Only failures wrapped in
// [RetryableError] are retried; any other error is returned at once. The
// delay doubles after each retry. It returns the last error, or ctx.Err()
// if the context ends while waiting.
func Retry(ctx context.Context, attempts int, delay time.Duration, fn func() error) error {
	attempts = max(attempts, 1)
	var lastErr error

	for i := range attempts {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		var re *RetryableError
		if !errors.As(err, &re) {
			return err
		}
		if i == attempts-1 {
			break
		}

		wait := delay
		if re.After > 0 {
			wait = min(re.After, maxRetryAfter)
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		delay *= 2
	}
	return lastErr
}

func isRetryable(err error) bool {
	return errors.As(err, new(*RetryableError))
}
