package util

import (
	"errors"
	"syscall"
	"testing"
	"time"
)

func TestIsRetryableError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{
			name:     "nil error",
			err:      nil,
			expected: false,
		},
		{
			name:     "ETIMEDOUT",
			err:      syscall.ETIMEDOUT,
			expected: true,
		},
		{
			name:     "ECONNRESET",
			err:      syscall.ECONNRESET,
			expected: true,
		},
		{
			name:     "ECONNREFUSED",
			err:      syscall.ECONNREFUSED,
			expected: true,
		},
		{
			name:     "ENOENT (not retryable)",
			err:      syscall.ENOENT,
			expected: false,
		},
		{
			name:     "timeout in error message",
			err:      errors.New("request timeout"),
			expected: true,
		},
		{
			name:     "HTTP 503 in message",
			err:      errors.New("unexpected status 503"),
			expected: true,
		},
		{
			name:     "HTTP 404 in message",
			err:      errors.New("unexpected status 404"),
			expected: false,
		},
		{
			name:     "generic error",
			err:      errors.New("no images found"),
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetryableError(tt.err); got != tt.expected {
				t.Errorf("IsRetryableError(%v) = %v, want %v", tt.err, got, tt.expected)
			}
		})
	}
}

func TestRetryWithBackoffSucceedsAfterTransientFailures(t *testing.T) {
	cfg := &RetryConfig{
		MaxAttempts: 3,
		InitialWait: time.Millisecond,
		MaxWait:     5 * time.Millisecond,
	}

	attempts := 0
	result, err := RetryWithBackoff(cfg, func() (int, error) {
		attempts++
		if attempts < 3 {
			return 0, errors.New("connection reset by peer")
		}
		return 42, nil
	}, "test-op")

	if err != nil {
		t.Fatalf("expected success, got error: %v", err)
	}
	if result != 42 {
		t.Errorf("expected result 42, got %d", result)
	}
	if attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", attempts)
	}
}

func TestRetryWithBackoffStopsOnNonRetryable(t *testing.T) {
	cfg := &RetryConfig{
		MaxAttempts: 5,
		InitialWait: time.Millisecond,
		MaxWait:     5 * time.Millisecond,
	}

	attempts := 0
	_, err := RetryWithBackoff(cfg, func() (int, error) {
		attempts++
		return 0, errors.New("permanent failure")
	}, "test-op")

	if err == nil {
		t.Fatal("expected error")
	}
	if attempts != 1 {
		t.Errorf("expected 1 attempt for non-retryable error, got %d", attempts)
	}
}

func TestRetryWithBackoffExhaustsAttempts(t *testing.T) {
	cfg := &RetryConfig{
		MaxAttempts: 3,
		InitialWait: time.Millisecond,
		MaxWait:     2 * time.Millisecond,
	}

	attempts := 0
	_, err := RetryWithBackoff(cfg, func() (int, error) {
		attempts++
		return 0, errors.New("request timed out")
	}, "test-op")

	if err == nil {
		t.Fatal("expected error after exhausting attempts")
	}
	if attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", attempts)
	}
}
