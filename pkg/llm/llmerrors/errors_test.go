package llmerrors

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorType
	}{
		{"deadline", context.DeadlineExceeded, ErrorTypeTimeout},
		{"wrapped deadline", fmt.Errorf("call failed: %w", context.DeadlineExceeded), ErrorTypeTimeout},
		{"canceled", context.Canceled, ErrorTypeUnknown},
		{"rate limit text", errors.New("429 too many requests"), ErrorTypeRateLimit},
		{"quota text", errors.New("quota exceeded for project"), ErrorTypeRateLimit},
		{"auth text", errors.New("invalid api key"), ErrorTypeAuth},
		{"connection refused", errors.New("dial tcp: connection refused"), ErrorTypeUnavailable},
		{"server error", errors.New("unexpected status 503"), ErrorTypeUnavailable},
		{"empty", errors.New("empty response from model"), ErrorTypeEmptyResponse},
		{"unknown", errors.New("something odd"), ErrorTypeUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.err)
			if got.Type != tt.want {
				t.Errorf("Classify(%v).Type = %s, want %s", tt.err, got.Type, tt.want)
			}
		})
	}
}

func TestClassifyPassesThroughClassified(t *testing.T) {
	orig := NewErrorWithStatus(ErrorTypeAuth, 401, "unauthorized")
	got := Classify(fmt.Errorf("wrapped: %w", orig))
	if got != orig {
		t.Errorf("Classify should pass through an already classified error")
	}
}

func TestRetryability(t *testing.T) {
	retryable := []ErrorType{ErrorTypeTimeout, ErrorTypeUnavailable, ErrorTypeRateLimit, ErrorTypeEmptyResponse, ErrorTypeUnknown}
	for _, et := range retryable {
		if !(&Error{Type: et}).IsRetryable() {
			t.Errorf("%s should be retryable", et)
		}
	}
	terminal := []ErrorType{ErrorTypeMalformed, ErrorTypeAuth, ErrorTypeBadPrompt}
	for _, et := range terminal {
		e := &Error{Type: et}
		if e.IsRetryable() {
			t.Errorf("%s should not be retryable", et)
		}
		if cfg := e.GetRetryConfig(); cfg.MaxRetries != 0 {
			t.Errorf("%s retry config allows %d retries", et, cfg.MaxRetries)
		}
	}
}

func TestIsAndTypeOf(t *testing.T) {
	err := fmt.Errorf("outer: %w", NewError(ErrorTypeRateLimit, "slow down"))
	if !Is(err, ErrorTypeRateLimit) {
		t.Error("Is should match through wrapping")
	}
	if Is(err, ErrorTypeTimeout) {
		t.Error("Is matched the wrong type")
	}
	if got := TypeOf(err); got != ErrorTypeRateLimit {
		t.Errorf("TypeOf = %s, want rate_limit", got)
	}
	if got := TypeOf(errors.New("plain")); got != ErrorTypeUnknown {
		t.Errorf("TypeOf(plain) = %s, want unknown", got)
	}
}
