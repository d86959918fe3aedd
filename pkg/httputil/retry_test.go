package httputil

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"
)

func TestRetrySucceedsAfterTransientFailures(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), 3, time.Millisecond, func() error {
		calls++
		if calls < 3 {
			return &RetryableError{Err: errors.New("flaky")}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Retry() error = %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestRetryStopsOnPermanentError(t *testing.T) {
	permanent := errors.New("syntax error")
	calls := 0
	err := Retry(context.Background(), 5, time.Millisecond, func() error {
		calls++
		return permanent
	})
	if !errors.Is(err, permanent) {
		t.Errorf("Retry() error = %v, want %v", err, permanent)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestRetryReturnsLastError(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), 2, time.Millisecond, func() error {
		calls++
		return &RetryableError{Err: errors.New("down")}
	})
	if err == nil || err.Error() != "down" {
		t.Errorf("Retry() error = %v, want down", err)
	}
	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
}

func TestRetryCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := Retry(ctx, 3, time.Hour, func() error {
		return &RetryableError{Err: errors.New("down")}
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Retry() error = %v, want context.Canceled", err)
	}
}

func TestRetryHonorsRetryAfter(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	calls := 0
	// The backoff delay is an hour; only After lets the retry happen in time.
	err := Retry(ctx, 2, time.Hour, func() error {
		calls++
		if calls == 1 {
			return &RetryableError{Err: errors.New("busy"), After: time.Millisecond}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Retry() error = %v", err)
	}
	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
}

func TestRetryAfter(t *testing.T) {
	tests := []struct {
		value string
		want  time.Duration
	}{
		{"", 0},
		{"3", 3 * time.Second},
		{" 10 ", 10 * time.Second},
		{"-1", 0},
		{"Wed, 21 Oct 2015 07:28:00 GMT", 0},
	}
	for _, tt := range tests {
		h := http.Header{}
		if tt.value != "" {
			h.Set("Retry-After", tt.value)
		}
		if got := RetryAfter(h); got != tt.want {
			t.Errorf("RetryAfter(%q) = %v, want %v", tt.value, got, tt.want)
		}
	}
}

func TestCheckStatus(t *testing.T) {
	tests := []struct {
		name      string
		code      int
		wantErr   bool
		retryable bool
		wantType  error
	}{
		{name: "200 OK", code: 200},
		{name: "204 No Content", code: 204},
		{name: "400 Bad Request", code: 400, wantErr: true, wantType: ErrBadRequest},
		{name: "404 Not Found", code: 404, wantErr: true, wantType: ErrStatus},
		{name: "429 Too Many Requests", code: 429, wantErr: true, retryable: true},
		{name: "500 Internal Server Error", code: 500, wantErr: true, retryable: true},
		{name: "503 Service Unavailable", code: 503, wantErr: true, retryable: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckStatus(tt.code)
			if (err != nil) != tt.wantErr {
				t.Fatalf("CheckStatus(%d) error = %v, wantErr %v", tt.code, err, tt.wantErr)
			}
			if tt.wantType != nil && !errors.Is(err, tt.wantType) {
				t.Errorf("CheckStatus(%d) error = %v, want %v", tt.code, err, tt.wantType)
			}
			if got := isRetryable(err); tt.wantErr && got != tt.retryable {
				t.Errorf("CheckStatus(%d) retryable = %v, want %v", tt.code, got, tt.retryable)
			}
		})
	}
}
