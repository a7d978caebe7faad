// Package triage classifies an incoming query into one or more specialties
// plus an urgency level, with an independent emergency scan.
package triage

import (
	"context"
	"fmt"
	"strings"

	"consilium/pkg/consult"
	"consilium/pkg/llm"
	"consilium/pkg/logx"
)

// Router classifies queries. The backend call is best-effort: any failure
// or unparsable output degrades to the keyword classifier rather than
// failing the request.
type Router struct {
	client           llm.LLMClient
	logger           *logx.Logger
	defaultSpecialty consult.Specialty
}

// NewRouter creates a Router using the given backend client.
func NewRouter(client llm.LLMClient, defaultSpecialty consult.Specialty) *Router {
	if !defaultSpecialty.IsValid() {
		defaultSpecialty = consult.InternalMedicine
	}
	return &Router{
		client:           client,
		logger:           logx.NewLogger("triage"),
		defaultSpecialty: defaultSpecialty,
	}
}

// routerOutput is the schema the backend is asked to fill.
type routerOutput struct {
	PrimarySpecialty    string   `json:"primary_specialty"`
	SecondarySpecialty  []string `json:"secondary_specialties"`
	UrgencyLevel        string   `json:"urgency_level"`
	Keywords            []string `json:"keywords"`
	RequiresEmergency   bool     `json:"requires_emergency"`
	Confidence          float64  `json:"confidence"`
	SuspectedConditions []string `json:"suspected_conditions"`
}

const routerSystemPrompt = `You are a medical triage assistant that determines which medical
specialty should handle a patient query.

Analyze the query and respond with ONLY a JSON object with these fields:
- primary_specialty: the single most appropriate specialty
- secondary_specialties: up to 3 other relevant specialties
- urgency_level: one of "low", "medium", "high", "critical"
- keywords: up to 8 relevant medical keywords from the query
- requires_emergency: true if the query suggests immediate emergency care
- confidence: your confidence in the classification, 0.0-1.0
- suspected_conditions: up to 5 conditions suggested by the symptoms

Available specialties: cardiology, neurology, oncology, pediatrics,
psychiatry, dermatology, internal_medicine, emergency_medicine.

Always prioritize patient safety in your analysis.`

// Route classifies a query into a RoutingDecision. The returned decision's
// primary specialty is always a member of the closed set. An empty query is
// the only hard failure.
func (r *Router) Route(ctx context.Context, query consult.Query) (consult.RoutingDecision, error) {
	text := strings.TrimSpace(query.Text)
	if text == "" {
		return consult.RoutingDecision{}, fmt.Errorf("%w: query text is empty", consult.ErrInvalidInput)
	}

	// The emergency scan never depends on the backend.
	emergency, matched := EmergencyScan(text)

	var decision consult.RoutingDecision
	if query.SpecialtyHint.IsValid() {
		// Caller picked the specialty; skip the classification call.
		decision = consult.RoutingDecision{
			Primary:    query.SpecialtyHint,
			Urgency:    consult.UrgencyMedium,
			Confidence: 1.0,
		}
	} else {
		decision = r.classify(ctx, text)
	}

	if emergency {
		decision.Emergency = true
		decision.Urgency = decision.Urgency.Raise(consult.UrgencyCritical)
		decision.Keywords = appendUnique(decision.Keywords, matched)
	}
	if query.UrgencyHint != nil {
		decision.Urgency = decision.Urgency.Raise(*query.UrgencyHint)
	}

	r.logger.Info("routed query %s: primary=%s urgency=%s emergency=%v fallback=%v",
		query.ID, decision.Primary, decision.Urgency, decision.Emergency, decision.Fallback)
	return decision, nil
}

// classify runs the backend classification, degrading to the keyword table
// on any failure.
func (r *Router) classify(ctx context.Context, text string) consult.RoutingDecision {
	req := llm.CompletionRequest{
		Messages: []llm.CompletionMessage{
			llm.NewSystemMessage(routerSystemPrompt),
			llm.NewUserMessage(fmt.Sprintf("Patient query: %s\n\nReturn ONLY the JSON object.", text)),
		},
		MaxTokens:   1024,
		Temperature: llm.TemperatureDeterministic,
	}

	resp, err := r.client.Complete(ctx, req)
	if err != nil {
		r.logger.Warn("backend classification failed, using keyword fallback: %v", err)
		return r.fallbackDecision(text)
	}

	var out routerOutput
	if err := llm.UnmarshalStructured(resp.Content, &out); err != nil {
		r.logger.Warn("unparsable classification output, using keyword fallback: %v", err)
		return r.fallbackDecision(text)
	}

	primary, recognized := consult.ParseSpecialty(out.PrimarySpecialty, r.defaultSpecialty)
	if !recognized {
		r.logger.Warn("unrecognized specialty %q coerced to %s", out.PrimarySpecialty, r.defaultSpecialty)
	}

	var secondary []consult.Specialty
	for _, raw := range out.SecondarySpecialty {
		if s, ok := consult.ParseSpecialty(raw, ""); ok && s != primary {
			secondary = append(secondary, s)
		}
	}

	return consult.RoutingDecision{
		Primary:    primary,
		Secondary:  secondary,
		Urgency:    consult.ParseUrgency(out.UrgencyLevel),
		Keywords:   out.Keywords,
		Emergency:  out.RequiresEmergency,
		Confidence: out.Confidence,
	}
}

// fallbackDecision produces a best-effort decision from the keyword table.
func (r *Router) fallbackDecision(text string) consult.RoutingDecision {
	primary, secondary, matched := classifyByKeywords(text, r.defaultSpecialty)
	return consult.RoutingDecision{
		Primary:   primary,
		Secondary: secondary,
		Urgency:   consult.UrgencyMedium,
		Keywords:  matched,
		Fallback:  true,
	}
}

func appendUnique(dst, src []string) []string {
	seen := make(map[string]bool, len(dst))
	for _, s := range dst {
		seen[s] = true
	}
	for _, s := range src {
		if !seen[s] {
			seen[s] = true
			dst = append(dst, s)
		}
	}
	return dst
}
