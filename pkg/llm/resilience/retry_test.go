package resilience

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"consilium/pkg/llm"
	"consilium/pkg/llm/llmerrors"
)

func TestRetryRecoversFromTransientFailure(t *testing.T) {
	inner := llm.NewMockClient(
		[]llm.CompletionResponse{{Content: "recovered"}},
		[]error{llmerrors.NewError(llmerrors.ErrorTypeUnavailable, "503"), nil},
	)
	client := NewRetryableClient(inner)

	resp, err := client.Complete(context.Background(), llm.CompletionRequest{
		Messages: []llm.CompletionMessage{llm.NewUserMessage("hi")},
	})
	require.NoError(t, err)
	assert.Equal(t, "recovered", resp.Content)
	assert.Equal(t, 2, inner.CallCount())
}

func TestRetryGivesUpOnTerminalError(t *testing.T) {
	inner := llm.NewMockClient(nil, []error{
		llmerrors.NewError(llmerrors.ErrorTypeAuth, "bad key"),
	})
	client := NewRetryableClient(inner)

	_, err := client.Complete(context.Background(), llm.CompletionRequest{
		Messages: []llm.CompletionMessage{llm.NewUserMessage("hi")},
	})
	require.Error(t, err)
	assert.True(t, llmerrors.Is(err, llmerrors.ErrorTypeAuth))
	assert.Equal(t, 1, inner.CallCount())
}

func TestRetryHonorsMaxRetries(t *testing.T) {
	unavailable := llmerrors.NewError(llmerrors.ErrorTypeUnavailable, "down")
	inner := llm.NewMockClient(nil, []error{unavailable, unavailable, unavailable, unavailable})
	client := NewRetryableClient(inner)

	_, err := client.Complete(context.Background(), llm.CompletionRequest{
		Messages: []llm.CompletionMessage{llm.NewUserMessage("hi")},
	})
	require.Error(t, err)

	// MaxRetries for unavailable is 2, so one initial call plus two retries.
	maxRetries := llmerrors.DefaultRetryConfigs[llmerrors.ErrorTypeUnavailable].MaxRetries
	assert.Equal(t, maxRetries+1, inner.CallCount())
}

func TestRetryStopsOnContextCancel(t *testing.T) {
	rateLimited := llmerrors.NewError(llmerrors.ErrorTypeRateLimit, "429")
	inner := llm.NewMockClient(nil, []error{rateLimited, rateLimited, rateLimited, rateLimited})
	client := NewRetryableClient(inner)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	_, err := client.Complete(ctx, llm.CompletionRequest{
		Messages: []llm.CompletionMessage{llm.NewUserMessage("hi")},
	})
	require.Error(t, err)
	// Rate limit backoff starts at one second; cancellation must cut it
	// short instead of sleeping the schedule out.
	assert.Less(t, time.Since(start), time.Second)
}

func TestTimeoutClientDeadline(t *testing.T) {
	slow := &slowClient{delay: 200 * time.Millisecond}
	client := NewTimeoutClient(slow, 20*time.Millisecond)

	_, err := client.Complete(context.Background(), llm.CompletionRequest{
		Messages: []llm.CompletionMessage{llm.NewUserMessage("hi")},
	})
	require.Error(t, err)
	assert.True(t, llmerrors.Is(err, llmerrors.ErrorTypeTimeout))
}

type slowClient struct {
	delay time.Duration
}

func (s *slowClient) Complete(ctx context.Context, _ llm.CompletionRequest) (llm.CompletionResponse, error) {
	select {
	case <-time.After(s.delay):
		return llm.CompletionResponse{Content: "late"}, nil
	case <-ctx.Done():
		return llm.CompletionResponse{}, ctx.Err()
	}
}

func (s *slowClient) GetModelName() string { return "slow-model" }
