package workflow

import (
	"context"
	"errors"

	"consilium/pkg/consult"
	"consilium/pkg/history"
	"consilium/pkg/logx"
	"consilium/pkg/review"
	"consilium/pkg/specialist"
)

// loopResult is the outcome of one specialty's improvement loop.
type loopResult struct {
	specialty consult.Specialty
	passed    bool
	attempts  int
}

// runImprovementLoop drives one specialty through generate, evaluate, and
// regenerate-with-feedback, up to maxAttempts. The loop stops early on a
// pass or when the context is canceled. Every attempt is recorded on the
// state; the best-scoring candidate survives even when nothing passes.
func runImprovementLoop(
	ctx context.Context,
	state *WorkflowState,
	agent *specialist.Agent,
	evaluator *review.Evaluator,
	query consult.Query,
	exchanges []history.Exchange,
	maxAttempts int,
	logger *logx.Logger,
) loopResult {
	specialty := agent.Specialty()
	result := loopResult{specialty: specialty}
	feedback := ""

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if ctx.Err() != nil {
			break
		}
		result.attempts = attempt
		if attempt > 1 {
			state.MaybeTransition(StatusRetrying)
		}

		candidate, err := agent.Respond(ctx, query, exchanges, feedback, attempt)
		if err != nil {
			var gf *consult.GenerationFailure
			if errors.As(err, &gf) {
				logger.Warn("consult %s: %v (attempt %d)", state.ConsultID(), gf, attempt)
			} else {
				logger.Warn("consult %s: generation error for %s attempt %d: %v", state.ConsultID(), specialty, attempt, err)
			}
			// A failed generation still consumes an attempt. There is no
			// candidate to evaluate, so carry the prior feedback forward.
			state.RecordAttempt(specialty, consult.Candidate{Specialty: specialty, Attempt: attempt}, consult.Evaluation{
				Feedback: feedback,
			})
			continue
		}

		state.MaybeTransition(StatusEvaluating)
		eval := evaluator.Evaluate(ctx, query, candidate)
		state.RecordAttempt(specialty, candidate, eval)

		if eval.Pass {
			result.passed = true
			return result
		}
		feedback = eval.Feedback
		logger.Debug("consult %s: %s attempt %d failed evaluation (quality=%d safety=%d)",
			state.ConsultID(), specialty, attempt, eval.QualityScore, eval.SafetyScore)
	}

	state.MarkDegraded(specialty)
	return result
}
