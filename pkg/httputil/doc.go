// Package httputil provides HTTP helpers for remote rendering backends.
//
// # Retry
//
// [Retry] wraps calls to a rendering service with automatic retry for
// transient failures:
//
//   - Network errors
//   - 5xx server errors
//   - 429 rate limit responses
//
// Only errors wrapped in [RetryableError] are retried. [CheckStatus] maps an
// HTTP status code to nil, a permanent error, or a retryable one:
//
//	err := httputil.Retry(ctx, 3, time.Second, func() error {
//	    resp, err := client.Do(req)
//	    if err != nil {
//	        return &httputil.RetryableError{Err: err}
//	    }
//	    defer resp.Body.Close()
//	    return httputil.CheckStatus(resp.StatusCode)
//	})
//
// The delay doubles after each attempt. Cancelling the context stops the
// retry loop immediately.
package httputil
