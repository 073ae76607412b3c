package errors

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestNew(t *testing.T) {
	err := New(ErrCodeNotReady, "no snapshot published")
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if err.Code != ErrCodeNotReady {
		t.Errorf("expected code %s, got %s", ErrCodeNotReady, err.Code)
	}
	if err.Message != "no snapshot published" {
		t.Errorf("expected message 'no snapshot published', got %s", err.Message)
	}
	if err.Cause != nil {
		t.Errorf("expected nil cause, got %v", err.Cause)
	}
}

func TestWrap(t *testing.T) {
	cause := errors.New("connection reset")
	err := Wrap(ErrCodeNetwork, "page request failed", cause)

	if err.Code != ErrCodeNetwork {
		t.Errorf("expected code %s, got %s", ErrCodeNetwork, err.Code)
	}
	if !errors.Is(err, cause) {
		t.Errorf("expected cause to be wrapped")
	}
}

func TestWrapWithContext(t *testing.T) {
	cause := errors.New("timeout")
	ctx := map[string]any{
		"resource": "dcim/devices",
		"attempt":  3,
	}

	err := WrapWithContext(ErrCodeTimeout, "fetch failed", cause, ctx)

	if err.Code != ErrCodeTimeout {
		t.Errorf("expected code %s, got %s", ErrCodeTimeout, err.Code)
	}
	if err.Context == nil {
		t.Fatal("expected context to be set")
	}
	if err.Context["resource"] != "dcim/devices" {
		t.Errorf("expected resource to be dcim/devices")
	}
}

func TestError(t *testing.T) {
	tests := []struct {
		name     string
		err      *StructuredError
		expected string
	}{
		{
			name:     "error without cause",
			err:      New(ErrCodeNotFound, "not found"),
			expected: "[NOT_FOUND] not found",
		},
		{
			name:     "error with cause",
			err:      Wrap(ErrCodeInternal, "failed", errors.New("root cause")),
			expected: "[INTERNAL] failed: root cause",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.err.Error()
			if got != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestRetryable(t *testing.T) {
	tests := []struct {
		code ErrorCode
		want bool
	}{
		{ErrCodeNetwork, true},
		{ErrCodeRateLimitExceeded, true},
		{ErrCodeTimeout, true},
		{ErrCodeUnauthorized, false},
		{ErrCodeSchema, false},
		{ErrCodeNotReady, false},
		{ErrCodeInvalidRequest, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			if got := New(tt.code, "x").Retryable(); got != tt.want {
				t.Errorf("Retryable() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRetryAfter(t *testing.T) {
	err := NewWithContext(ErrCodeRateLimitExceeded, "throttled", map[string]any{
		ContextKeyRetryAfter: 7 * time.Second,
	})
	d, ok := err.RetryAfter()
	if !ok || d != 7*time.Second {
		t.Errorf("RetryAfter() = %v, %v; want 7s, true", d, ok)
	}

	if _, ok := New(ErrCodeNetwork, "x").RetryAfter(); ok {
		t.Error("expected no retry-after without context")
	}
}

func TestIsAndCodeOf(t *testing.T) {
	inner := New(ErrCodeUnauthorized, "token rejected")
	outer := Wrap(ErrCodeInternal, "refresh failed", inner)
	wrapped := fmt.Errorf("cycle: %w", outer)

	if !Is(wrapped, ErrCodeUnauthorized) {
		t.Error("expected nested UNAUTHORIZED to be found")
	}
	if !Is(wrapped, ErrCodeInternal) {
		t.Error("expected outer INTERNAL to be found")
	}
	if Is(wrapped, ErrCodeNetwork) {
		t.Error("did not expect NETWORK")
	}
	if got := CodeOf(wrapped); got != ErrCodeInternal {
		t.Errorf("CodeOf() = %s, want %s", got, ErrCodeInternal)
	}
	if got := CodeOf(errors.New("plain")); got != "" {
		t.Errorf("CodeOf(plain) = %q, want empty", got)
	}
	if IsRetryable(errors.New("plain")) {
		t.Error("plain errors are not retryable")
	}
	if !IsRetryable(fmt.Errorf("x: %w", New(ErrCodeNetwork, "reset"))) {
		t.Error("wrapped NETWORK error should be retryable")
	}
}

func TestAsStructured(t *testing.T) {
	se, ok := AsStructured(fmt.Errorf("x: %w", New(ErrCodeSchema, "bad record")))
	if !ok || se.Code != ErrCodeSchema {
		t.Errorf("AsStructured() = %v, %v; want SCHEMA, true", se, ok)
	}
	if _, ok := AsStructured(errors.New("plain")); ok {
		t.Error("plain error should not convert")
	}
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := Wrap(ErrCodeInternal, "wrapped", cause)

	unwrapped := err.Unwrap()
	if !errors.Is(unwrapped, cause) {
		t.Errorf("expected unwrapped error to be original cause")
	}
}
