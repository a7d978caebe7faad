// Package review scores specialist answers against fixed quality and
// safety criteria. The backend supplies the scores; the pass decision is
// always computed locally from the configured thresholds.
package review

import (
	"context"
	"fmt"
	"strings"

	"consilium/pkg/config"
	"consilium/pkg/consult"
	"consilium/pkg/llm"
	"consilium/pkg/logx"
)

// Criteria are the thresholds an answer must meet to be released.
type Criteria struct {
	MinQualityScore         int
	SafetyFloor             int
	RequireSafetyDisclaimer bool
	DomainSpecificChecks    []string
}

// CriteriaFromConfig builds Criteria from the evaluation config section.
func CriteriaFromConfig(cfg *config.Config) Criteria {
	return Criteria{
		MinQualityScore:         cfg.Evaluation.MinQualityScore,
		SafetyFloor:             cfg.Evaluation.SafetyFloor,
		RequireSafetyDisclaimer: cfg.Evaluation.RequireSafetyDisclaimer,
		DomainSpecificChecks:    cfg.Evaluation.DomainSpecificChecks,
	}
}

// Evaluator judges candidates. It is stateless and safe for concurrent use.
type Evaluator struct {
	client   llm.LLMClient
	criteria Criteria
	logger   *logx.Logger
}

// NewEvaluator creates an Evaluator with the given criteria.
func NewEvaluator(client llm.LLMClient, criteria Criteria) *Evaluator {
	return &Evaluator{
		client:   client,
		criteria: criteria,
		logger:   logx.NewLogger("review"),
	}
}

// evaluatorOutput is the schema the backend is asked to fill. Pass is
// deliberately absent: the decision belongs to this package, not the model.
type evaluatorOutput struct {
	QualityScore       int    `json:"quality_score"`
	SafetyScore        int    `json:"safety_score"`
	Complete           bool   `json:"complete"`
	AppropriateAdvice  bool   `json:"appropriate_advice"`
	SafetyCompliant    bool   `json:"safety_compliant"`
	Feedback           string `json:"feedback"`
	RequiresEscalation bool   `json:"requires_escalation"`
}

const unverifiableFeedback = "The answer could not be verified against quality and safety criteria. Regenerate it with clear structure, explicit safety guidance, and a recommendation to consult a healthcare professional."

// criteriaFor applies any per-request overrides on top of the configured
// criteria.
func (e *Evaluator) criteriaFor(query consult.Query) Criteria {
	criteria := e.criteria
	if o := query.Criteria; o != nil {
		if o.MinQualityScore > 0 {
			criteria.MinQualityScore = o.MinQualityScore
		}
		if o.SafetyFloor > 0 {
			criteria.SafetyFloor = o.SafetyFloor
		}
	}
	return criteria
}

// Evaluate scores one candidate. An unverifiable answer (backend failure or
// unparsable output) is treated as a failing evaluation with synthetic
// feedback, never as a silent pass.
func (e *Evaluator) Evaluate(ctx context.Context, query consult.Query, candidate consult.Candidate) consult.Evaluation {
	req := llm.CompletionRequest{
		Messages: []llm.CompletionMessage{
			llm.NewSystemMessage(e.systemPrompt()),
			llm.NewUserMessage(e.userPrompt(query, candidate)),
		},
		MaxTokens:   1024,
		Temperature: llm.TemperatureDeterministic,
	}

	resp, err := e.client.Complete(ctx, req)
	if err != nil {
		e.logger.Warn("evaluation call failed for %s attempt %d: %v", candidate.Specialty, candidate.Attempt, err)
		return e.unverifiable()
	}

	var out evaluatorOutput
	if err := llm.UnmarshalStructured(resp.Content, &out); err != nil {
		e.logger.Warn("unparsable evaluation for %s attempt %d: %v", candidate.Specialty, candidate.Attempt, err)
		return e.unverifiable()
	}

	eval := consult.Evaluation{
		QualityScore:       clampScore(out.QualityScore),
		SafetyScore:        clampScore(out.SafetyScore),
		Complete:           out.Complete,
		AppropriateAdvice:  out.AppropriateAdvice,
		SafetyCompliant:    out.SafetyCompliant,
		Feedback:           out.Feedback,
		RequiresEscalation: out.RequiresEscalation,
	}
	eval.Pass = pass(eval, e.criteriaFor(query))

	e.logger.Debug("evaluated %s attempt %d: quality=%d safety=%d pass=%v",
		candidate.Specialty, candidate.Attempt, eval.QualityScore, eval.SafetyScore, eval.Pass)
	return eval
}

// pass derives the pass decision from the scores and thresholds. The
// backend never decides this directly.
func pass(eval consult.Evaluation, criteria Criteria) bool {
	return eval.QualityScore >= criteria.MinQualityScore &&
		eval.SafetyScore >= criteria.SafetyFloor &&
		eval.SafetyCompliant
}

func (e *Evaluator) unverifiable() consult.Evaluation {
	return consult.Evaluation{
		QualityScore:    0,
		SafetyScore:     0,
		SafetyCompliant: false,
		Pass:            false,
		Feedback:        unverifiableFeedback,
	}
}

func (e *Evaluator) systemPrompt() string {
	var b strings.Builder
	b.WriteString(`You are a medical answer reviewer. Score the candidate answer for clinical quality and patient safety.

Respond with ONLY a JSON object with these fields:
- quality_score: integer 1-10, clinical accuracy and usefulness
- safety_score: integer 1-10, patient safety of the advice
- complete: true if the answer addresses the whole query
- appropriate_advice: true if the advice matches the severity of the situation
- safety_compliant: true if the answer avoids diagnosis claims, avoids prescribing, and recommends professional care
- feedback: specific, actionable improvement guidance
- requires_escalation: true if the answer should have flagged emergency care and did not`)

	if e.criteria.RequireSafetyDisclaimer {
		b.WriteString("\n\nsafety_compliant additionally requires an explicit statement that the answer is informational and not a substitute for professional medical advice.")
	}
	if len(e.criteria.DomainSpecificChecks) > 0 {
		b.WriteString("\n\nAdditional checks the answer must satisfy:\n")
		for _, check := range e.criteria.DomainSpecificChecks {
			fmt.Fprintf(&b, "- %s\n", check)
		}
	}
	return b.String()
}

func (e *Evaluator) userPrompt(query consult.Query, candidate consult.Candidate) string {
	return fmt.Sprintf("Patient query:\n%s\n\nCandidate answer from %s (attempt %d):\n%s\n\nReturn ONLY the JSON object.",
		query.Text, candidate.Specialty, candidate.Attempt, candidate.Text)
}

func clampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > 10 {
		return 10
	}
	return score
}
