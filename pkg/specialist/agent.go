// Package specialist implements the per-specialty consultation agents.
// Each agent is a stateless wrapper around a completion backend: identical
// inputs produce independent generations, and all durable state lives with
// the caller.
package specialist

import (
	"context"
	"fmt"
	"strings"

	"consilium/pkg/consult"
	"consilium/pkg/history"
	"consilium/pkg/llm"
	"consilium/pkg/logx"
)

const responseGuidelines = `Guidelines for every response:
- Provide clear, accurate medical information at a patient-appropriate level.
- Explain the likely explanations for the symptoms described, most likely first.
- State plainly what warning signs would require urgent or emergency care.
- Recommend consulting a healthcare professional for diagnosis and treatment.
- Never prescribe specific medications or dosages.
- Do not present your response as a diagnosis.`

// Agent answers queries from one specialty's perspective. Agents are safe
// for concurrent use; they hold no per-query state.
type Agent struct {
	specialty   consult.Specialty
	client      llm.LLMClient
	temperature float32
	maxTokens   int
	logger      *logx.Logger
}

// NewAgent creates an agent for the given specialty.
func NewAgent(specialty consult.Specialty, client llm.LLMClient, temperature float32, maxTokens int) *Agent {
	if maxTokens <= 0 {
		maxTokens = 2048
	}
	return &Agent{
		specialty:   specialty,
		client:      client,
		temperature: temperature,
		maxTokens:   maxTokens,
		logger:      logx.NewLogger("specialist:" + specialty.String()),
	}
}

// Specialty returns the specialty this agent answers for.
func (a *Agent) Specialty() consult.Specialty {
	return a.specialty
}

// Respond generates one answer attempt. Evaluator feedback from the prior
// attempt, if any, is passed through verbatim. A backend failure is
// returned as a GenerationFailure scoped to this specialty.
func (a *Agent) Respond(ctx context.Context, query consult.Query, exchanges []history.Exchange, feedback string, attempt int) (consult.Candidate, error) {
	req := llm.CompletionRequest{
		Messages:    a.buildMessages(query, exchanges, feedback),
		MaxTokens:   a.maxTokens,
		Temperature: a.temperature,
	}

	a.logger.Debug("generating attempt %d for query %s", attempt, query.ID)
	resp, err := a.client.Complete(ctx, req)
	if err != nil {
		return consult.Candidate{}, &consult.GenerationFailure{Specialty: a.specialty, Err: err}
	}

	return consult.Candidate{
		Specialty: a.specialty,
		Text:      resp.Content,
		Attempt:   attempt,
		Feedback:  feedback,
	}, nil
}

func (a *Agent) buildMessages(query consult.Query, exchanges []history.Exchange, feedback string) []llm.CompletionMessage {
	var system strings.Builder
	system.WriteString(knowledgeFor(a.specialty))
	system.WriteString("\n\n")
	system.WriteString(responseGuidelines)

	messages := []llm.CompletionMessage{llm.NewSystemMessage(system.String())}

	for _, ex := range exchanges {
		switch ex.Speaker {
		case history.SpeakerPatient:
			messages = append(messages, llm.NewUserMessage(ex.Text))
		case history.SpeakerSystem:
			messages = append(messages, llm.NewAssistantMessage(ex.Text))
		}
	}

	prompt := query.Text
	if feedback != "" {
		prompt = fmt.Sprintf("%s\n\nYour previous answer to this query was reviewed and needs improvement.\nReviewer feedback:\n%s\n\nProvide an improved answer that addresses the feedback.", query.Text, feedback)
	}
	messages = append(messages, llm.NewUserMessage(prompt))

	return messages
}
