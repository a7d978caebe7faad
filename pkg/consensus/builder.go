// Package consensus merges passing specialist answers into one coherent
// response. A single passing answer passes through unchanged; only
// multi-specialty consultations pay for a merge call.
package consensus

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"consilium/pkg/consult"
	"consilium/pkg/llm"
	"consilium/pkg/logx"
)

const mergeSystemPrompt = `You are a medical consultation synthesizer. Multiple specialists have
answered the same patient query. Merge their answers into one coherent
response.

Rules:
- Preserve every safety warning and every recommendation to seek care.
- Where specialists agree, state the shared guidance once.
- Where specialists disagree, surface the disagreement explicitly and
  explain what each perspective implies, rather than silently picking one.
- Attribute specialty-specific points to their specialty when that helps
  the patient understand.
- Do not introduce medical claims that no specialist made.`

// Builder merges candidate answers.
type Builder struct {
	client llm.LLMClient
	logger *logx.Logger
}

// NewBuilder creates a consensus Builder.
func NewBuilder(client llm.LLMClient) *Builder {
	return &Builder{
		client: client,
		logger: logx.NewLogger("consensus"),
	}
}

// Build merges the passing candidates. degraded lists specialties whose
// retries were exhausted; their absence is disclosed in the result rather
// than hidden. Callers guarantee at least one passing candidate.
func (b *Builder) Build(ctx context.Context, query consult.Query, passing []consult.Candidate, degraded []consult.Specialty) (consult.ConsensusResult, error) {
	if len(passing) == 0 {
		return consult.ConsensusResult{}, fmt.Errorf("consensus requires at least one passing candidate")
	}

	contributing := make([]consult.Specialty, 0, len(passing))
	for _, c := range passing {
		contributing = append(contributing, c.Specialty)
	}
	sort.Slice(contributing, func(i, j int) bool { return contributing[i] < contributing[j] })

	result := consult.ConsensusResult{
		Contributing: contributing,
		Degraded:     degraded,
	}

	// A single passing answer is already coherent; merging it through the
	// backend could only distort it.
	if len(passing) == 1 {
		result.Text = b.withDegradedNote(passing[0].Text, degraded)
		return result, nil
	}

	merged, err := b.merge(ctx, query, passing)
	if err != nil {
		// The merge call failing must not discard verified answers.
		// Concatenate them with attribution instead.
		b.logger.Warn("merge call failed, concatenating answers: %v", err)
		merged = b.concatenate(passing)
	}

	result.Text = b.withDegradedNote(merged, degraded)
	return result, nil
}

func (b *Builder) merge(ctx context.Context, query consult.Query, passing []consult.Candidate) (string, error) {
	var prompt strings.Builder
	fmt.Fprintf(&prompt, "Patient query:\n%s\n\n", query.Text)
	for _, c := range passing {
		fmt.Fprintf(&prompt, "Answer from %s:\n%s\n\n", c.Specialty, c.Text)
	}
	prompt.WriteString("Merge these into one response for the patient.")

	req := llm.CompletionRequest{
		Messages: []llm.CompletionMessage{
			llm.NewSystemMessage(mergeSystemPrompt),
			llm.NewUserMessage(prompt.String()),
		},
		MaxTokens:   2048,
		Temperature: llm.TemperatureDefault,
	}

	resp, err := b.client.Complete(ctx, req)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(resp.Content) == "" {
		return "", fmt.Errorf("merge returned empty content")
	}
	return resp.Content, nil
}

// concatenate joins passing answers with specialty attribution. Used only
// when the merge call itself fails.
func (b *Builder) concatenate(passing []consult.Candidate) string {
	var out strings.Builder
	for i, c := range passing {
		if i > 0 {
			out.WriteString("\n\n")
		}
		fmt.Fprintf(&out, "From the %s perspective:\n%s", displayName(c.Specialty), c.Text)
	}
	return out.String()
}

func (b *Builder) withDegradedNote(text string, degraded []consult.Specialty) string {
	if len(degraded) == 0 {
		return text
	}
	names := make([]string, len(degraded))
	for i, s := range degraded {
		names[i] = displayName(s)
	}
	return fmt.Sprintf("%s\n\nNote: input from %s could not be verified for this consultation and is not included. Consider following up with that specialty directly.",
		text, strings.Join(names, ", "))
}

func displayName(s consult.Specialty) string {
	return strings.ReplaceAll(s.String(), "_", " ")
}
