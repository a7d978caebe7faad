package resilience

import (
	"context"
	"errors"
	"time"

	"consilium/pkg/llm"
	"consilium/pkg/llm/llmerrors"
)

// DefaultCallTimeout bounds a single backend call when no override is
// configured. A call past this point is treated as a backend error, never
// left pending.
const DefaultCallTimeout = 30 * time.Second

// TimeoutClient wraps an llm.LLMClient with a per-call deadline.
type TimeoutClient struct {
	client  llm.LLMClient
	timeout time.Duration
}

// NewTimeoutClient creates a client wrapper enforcing the given per-call
// timeout. A non-positive timeout falls back to DefaultCallTimeout.
func NewTimeoutClient(client llm.LLMClient, timeout time.Duration) *TimeoutClient {
	if timeout <= 0 {
		timeout = DefaultCallTimeout
	}
	return &TimeoutClient{
		client:  client,
		timeout: timeout,
	}
}

// Complete implements llm.LLMClient, classifying deadline expiry as a
// timeout error distinct from caller cancellation.
func (t *TimeoutClient) Complete(ctx context.Context, in llm.CompletionRequest) (llm.CompletionResponse, error) {
	callCtx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	resp, err := t.client.Complete(callCtx, in)
	if err != nil {
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			return llm.CompletionResponse{}, llmerrors.NewErrorWithCause(
				llmerrors.ErrorTypeTimeout, err, "backend call exceeded deadline")
		}
		return llm.CompletionResponse{}, err
	}
	return resp, nil
}

// GetModelName returns the wrapped client's model name.
func (t *TimeoutClient) GetModelName() string {
	return t.client.GetModelName()
}

// Wrap applies the standard middleware stack (timeout inside retry) to a raw
// backend client.
func Wrap(client llm.LLMClient, timeout time.Duration) llm.LLMClient {
	return NewRetryableClient(NewTimeoutClient(client, timeout))
}
