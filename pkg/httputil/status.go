package httputil

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrStatus is returned for non-2xx responses.
	ErrStatus = errors.New("unexpected status")

	// ErrBadRequest is returned for 400 responses. Rendering services use it
	// to report diagram syntax errors, so the body usually holds the message.
	ErrBadRequest = errors.New("bad request")
)

// CheckStatus classifies an HTTP status code. 2xx codes return nil, 5xx and
// 429 return a [RetryableError], and everything else a permanent error.
func CheckStatus(code int) error {
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusBadRequest:
		return ErrBadRequest
	case code >= 500, code == http.StatusTooManyRequests:
		return &RetryableError{Err: fmt.Errorf("%w: %d", ErrStatus, code)}
	default:
		return fmt.Errorf("%w: %d", ErrStatus, code)
	}
}

// RetryAfter returns the wait requested by a Retry-After header given in
// seconds. HTTP dates and missing or malformed values return zero.
func RetryAfter(h http.Header) time.Duration {
	secs, err := strconv.Atoi(strings.TrimSpace(h.Get("Retry-After")))
	if err != nil || secs < 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}
