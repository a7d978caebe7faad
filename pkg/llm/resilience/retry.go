// Package resilience provides retry and timeout middleware for completion
// backend clients.
package resilience

import (
	"context"
	"math"
	"math/rand"
	"time"

	"consilium/pkg/llm"
	"consilium/pkg/llm/llmerrors"
	"consilium/pkg/logx"
)

// RetryableClient wraps an llm.LLMClient with classified retry logic.
// Backoff parameters come from the classification of each failure, so a
// rate-limited call waits longer than a flaky connection.
type RetryableClient struct {
	client llm.LLMClient
	logger *logx.Logger
}

// NewRetryableClient creates a new retrying client wrapper.
func NewRetryableClient(client llm.LLMClient) *RetryableClient {
	return &RetryableClient{
		client: client,
		logger: logx.NewLogger("llm:retry"),
	}
}

// Complete implements llm.LLMClient with per-error-type retry behavior.
func (r *RetryableClient) Complete(ctx context.Context, in llm.CompletionRequest) (llm.CompletionResponse, error) {
	var lastErr *llmerrors.Error

	attempt := 0
	for {
		resp, err := r.client.Complete(ctx, in)
		if err == nil {
			return resp, nil
		}

		lastErr = llmerrors.Classify(err)
		cfg := lastErr.GetRetryConfig()

		if !lastErr.IsRetryable() || attempt >= cfg.MaxRetries {
			return llm.CompletionResponse{}, lastErr
		}

		attempt++
		delay := backoffDelay(cfg, attempt)
		r.logger.Debug("retrying %s after %s error (attempt %d/%d, delay %s)",
			r.client.GetModelName(), lastErr.Type, attempt, cfg.MaxRetries, delay)

		select {
		case <-ctx.Done():
			return llm.CompletionResponse{}, llmerrors.Classify(ctx.Err())
		case <-time.After(delay):
		}
	}
}

// GetModelName returns the wrapped client's model name.
func (r *RetryableClient) GetModelName() string {
	return r.client.GetModelName()
}

// backoffDelay computes the exponential backoff delay for the given attempt.
func backoffDelay(cfg llmerrors.RetryConfig, attempt int) time.Duration {
	delay := time.Duration(float64(cfg.InitialDelay) * math.Pow(cfg.BackoffFactor, float64(attempt-1)))
	if delay > cfg.MaxDelay {
		delay = cfg.MaxDelay
	}
	if cfg.Jitter && delay > 0 {
		jitter := time.Duration(rand.Int63n(int64(delay) / 5)) //nolint:gosec // Jitter does not need crypto randomness
		delay += jitter - time.Duration(int64(delay)/10)
	}
	if delay < 0 {
		delay = cfg.InitialDelay
	}
	return delay
}
