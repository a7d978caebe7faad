package metrics

import (
	"context"
	"time"

	"consilium/pkg/llm"
	"consilium/pkg/llm/llmerrors"
)

// instrumentedClient records every backend call against a Recorder.
type instrumentedClient struct {
	client    llm.LLMClient
	recorder  Recorder
	provider  string
	component string
}

// InstrumentClient wraps a backend client so every call is observed with
// its provider, the engine component issuing it, and the classified
// outcome. Recording is strictly passive; the wrapped call's result is
// returned untouched.
func InstrumentClient(client llm.LLMClient, recorder Recorder, provider, component string) llm.LLMClient {
	if recorder == nil {
		recorder = NopRecorder{}
	}
	return &instrumentedClient{
		client:    client,
		recorder:  recorder,
		provider:  provider,
		component: component,
	}
}

// Complete implements llm.LLMClient.
func (c *instrumentedClient) Complete(ctx context.Context, in llm.CompletionRequest) (llm.CompletionResponse, error) {
	start := time.Now()
	resp, err := c.client.Complete(ctx, in)

	outcome := "success"
	if err != nil {
		outcome = llmerrors.TypeOf(err).String()
	}
	c.recorder.RecordBackendRequest(c.provider, c.component, outcome, time.Since(start))
	return resp, err
}

// GetModelName returns the wrapped client's model name.
func (c *instrumentedClient) GetModelName() string {
	return c.client.GetModelName()
}
