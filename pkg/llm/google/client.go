// Package google provides the Google Gemini backend client.
package google

import (
	"context"
	"strings"
	"sync"

	"google.golang.org/genai"

	"consilium/pkg/llm"
	"consilium/pkg/llm/llmerrors"
)

// DefaultModel is used when no model is configured for a role.
const DefaultModel = "gemini-2.0-flash"

// Client wraps the Google GenAI client to implement llm.LLMClient.
// The underlying client requires a context to construct, so it is created
// lazily on first use. One Client is shared by concurrent callers, so the
// initialization is mutex-guarded; a failed construction is retried on the
// next call rather than cached.
type Client struct {
	mu     sync.Mutex
	client *genai.Client
	apiKey string
	model  string
}

// NewClient creates a raw Gemini client; resilience middleware is applied
// at a higher level.
func NewClient(apiKey, model string) *Client {
	if model == "" {
		model = DefaultModel
	}
	return &Client{
		apiKey: apiKey,
		model:  model,
	}
}

// ensureClient returns the underlying GenAI client, constructing it on
// first use. Safe for concurrent callers.
func (c *Client) ensureClient(ctx context.Context) (*genai.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.client == nil {
		client, err := genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:  c.apiKey,
			Backend: genai.BackendGeminiAPI,
		})
		if err != nil {
			return nil, llmerrors.NewErrorWithCause(llmerrors.ErrorTypeUnavailable, err, "failed to create Gemini client")
		}
		c.client = client
	}
	return c.client, nil
}

// Complete implements the llm.LLMClient interface.
func (c *Client) Complete(ctx context.Context, in llm.CompletionRequest) (llm.CompletionResponse, error) {
	client, err := c.ensureClient(ctx)
	if err != nil {
		return llm.CompletionResponse{}, err
	}

	contents, systemInstruction, err := convertMessages(in.Messages)
	if err != nil {
		return llm.CompletionResponse{}, err
	}

	//nolint:gosec // MaxTokens validated at config load, overflow not reachable
	maxTokens := int32(in.MaxTokens)
	config := &genai.GenerateContentConfig{
		Temperature:     &in.Temperature,
		MaxOutputTokens: maxTokens,
	}
	if systemInstruction != "" {
		config.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: systemInstruction}},
		}
	}

	result, err := client.Models.GenerateContent(ctx, c.model, contents, config)
	if err != nil {
		return llm.CompletionResponse{}, llmerrors.Classify(err)
	}
	if result == nil || result.Text() == "" {
		return llm.CompletionResponse{}, llmerrors.NewError(llmerrors.ErrorTypeEmptyResponse, "received empty response from Gemini API")
	}

	return llm.CompletionResponse{
		Content:    result.Text(),
		StopReason: stopReason(result),
	}, nil
}

// GetModelName returns the model name for this client.
func (c *Client) GetModelName() string {
	return c.model
}

// convertMessages converts messages to Gemini Content, extracting system
// messages into a system instruction.
func convertMessages(messages []llm.CompletionMessage) (contents []*genai.Content, systemInstruction string, err error) {
	if len(messages) == 0 {
		return nil, "", llmerrors.NewError(llmerrors.ErrorTypeBadPrompt, "message list cannot be empty")
	}

	var systemParts []string
	for i := range messages {
		msg := &messages[i]
		if msg.Role == llm.RoleSystem {
			systemParts = append(systemParts, msg.Content)
			continue
		}
		role := genai.RoleUser
		if msg.Role == llm.RoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, &genai.Content{
			Role:  role,
			Parts: []*genai.Part{{Text: msg.Content}},
		})
	}

	if len(contents) == 0 {
		return nil, "", llmerrors.NewError(llmerrors.ErrorTypeBadPrompt, "must have at least one non-system message")
	}
	return contents, strings.Join(systemParts, "\n\n"), nil
}

func stopReason(result *genai.GenerateContentResponse) string {
	if len(result.Candidates) == 0 {
		return ""
	}
	return string(result.Candidates[0].FinishReason)
}
