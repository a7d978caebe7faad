// Package llm provides interfaces and types for completion backend clients.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"consilium/pkg/llm/llmerrors"
)

// CompletionRole represents the role of a message in a conversation.
type CompletionRole string

const (
	// RoleSystem indicates a system message that provides instructions or context.
	RoleSystem CompletionRole = "system"
	// RoleUser indicates a message from the human user.
	RoleUser CompletionRole = "user"
	// RoleAssistant indicates a message from the AI assistant.
	RoleAssistant CompletionRole = "assistant"
)

const (
	// TemperatureDeterministic is used for routing, evaluation, and other
	// judgment tasks where consistency matters more than variety.
	TemperatureDeterministic = 0.1

	// TemperatureDefault is the default for specialist consultations.
	TemperatureDefault = 0.3

	// TemperatureExploratory is used for supportive domains where a less
	// clinical register is preferred.
	TemperatureExploratory = 0.5
)

// CompletionMessage represents a message in a completion request.
type CompletionMessage struct {
	Content string
	Role    CompletionRole
}

// CompletionRequest represents a request to generate a completion.
type CompletionRequest struct {
	Messages    []CompletionMessage
	MaxTokens   int
	Temperature float32
}

// CompletionResponse represents a response from a completion request.
type CompletionResponse struct {
	Content    string // Main response text
	StopReason string // Why the response stopped, when the backend reports it
}

// LLMClient defines the interface for completion backend interactions.
type LLMClient interface { //nolint:revive // Conventional name for this interface
	// Complete generates a completion synchronously.
	Complete(ctx context.Context, in CompletionRequest) (CompletionResponse, error)

	// GetModelName returns the model name for this client.
	GetModelName() string
}

// NewCompletionRequest creates a new completion request with default values.
func NewCompletionRequest(messages []CompletionMessage) CompletionRequest {
	return CompletionRequest{
		Messages:    messages,
		MaxTokens:   4096,
		Temperature: TemperatureDefault,
	}
}

// NewSystemMessage creates a new system message.
func NewSystemMessage(content string) CompletionMessage {
	return CompletionMessage{
		Role:    RoleSystem,
		Content: content,
	}
}

// NewUserMessage creates a new user message.
func NewUserMessage(content string) CompletionMessage {
	return CompletionMessage{
		Role:    RoleUser,
		Content: content,
	}
}

// NewAssistantMessage creates a new assistant message.
func NewAssistantMessage(content string) CompletionMessage {
	return CompletionMessage{
		Role:    RoleAssistant,
		Content: content,
	}
}

// Config represents configuration for an LLM client.
type Config struct {
	APIKey      string
	ModelName   string
	Host        string // Backend host URL, only used by local runtimes
	MaxTokens   int
	Temperature float32
}

// Validate validates the client configuration.
func (c *Config) Validate() error {
	if c.ModelName == "" {
		return fmt.Errorf("model name cannot be empty")
	}
	if c.MaxTokens <= 0 {
		return fmt.Errorf("max tokens must be positive")
	}
	if c.Temperature < 0.0 || c.Temperature > 2.0 {
		return fmt.Errorf("temperature must be between 0.0 and 2.0")
	}
	return nil
}

// UnmarshalStructured extracts the first JSON object embedded in a
// completion's content and unmarshals it into dest. Backends are asked for
// pure JSON but routinely wrap it in prose or markdown fences, so the
// extraction tolerates leading and trailing noise. A response with no
// parseable object yields a classified malformed-output error.
func UnmarshalStructured(content string, dest any) error {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return llmerrors.NewError(llmerrors.ErrorTypeEmptyResponse, "empty completion content")
	}

	start := strings.IndexByte(trimmed, '{')
	end := strings.LastIndexByte(trimmed, '}')
	if start < 0 || end <= start {
		return llmerrors.NewError(llmerrors.ErrorTypeMalformed,
			fmt.Sprintf("no JSON object found in completion (%d bytes)", len(trimmed)))
	}

	if err := json.Unmarshal([]byte(trimmed[start:end+1]), dest); err != nil {
		return llmerrors.NewErrorWithCause(llmerrors.ErrorTypeMalformed, err, "completion JSON did not match requested schema")
	}
	return nil
}
