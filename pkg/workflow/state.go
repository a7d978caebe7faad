// Package workflow owns the per-consultation state machine and the
// orchestration engine that drives a query through routing, specialist
// fan-out, evaluation, consensus, and the safety gate.
package workflow

import (
	"fmt"
	"sync"
	"time"

	"consilium/pkg/consult"
)

// Status is one phase of a consultation's lifecycle.
type Status string

const (
	StatusRouting           Status = "routing"
	StatusConsulting        Status = "consulting"
	StatusEvaluating        Status = "evaluating"
	StatusRetrying          Status = "retrying"
	StatusBuildingConsensus Status = "building-consensus"
	StatusSafetyChecking    Status = "safety-checking"
	StatusDone              Status = "done"
	StatusFailed            Status = "failed"
)

// ValidTransitions defines the allowed status transitions.
var ValidTransitions = map[Status][]Status{
	StatusRouting:           {StatusConsulting, StatusFailed},
	StatusConsulting:        {StatusEvaluating, StatusFailed},
	StatusEvaluating:        {StatusRetrying, StatusBuildingConsensus, StatusFailed},
	StatusRetrying:          {StatusEvaluating, StatusBuildingConsensus, StatusFailed},
	StatusBuildingConsensus: {StatusSafetyChecking, StatusFailed},
	StatusSafetyChecking:    {StatusDone, StatusFailed},
	StatusDone:              {},
	StatusFailed:            {},
}

// IsValidTransition reports whether from may transition to to. Any status
// may fail.
func IsValidTransition(from, to Status) bool {
	if to == StatusFailed {
		return true
	}
	for _, s := range ValidTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transitions are allowed from s.
func (s Status) Terminal() bool {
	return s == StatusDone || s == StatusFailed
}

// WorkflowState is the single mutable record of one consultation. It is
// owned by the engine; components receive data from it and return results,
// they never hold a reference to it.
type WorkflowState struct {
	mu sync.Mutex

	consultID string
	status    Status
	startedAt time.Time

	routing     consult.RoutingDecision
	candidates  map[consult.Specialty]consult.Candidate  // best candidate so far per specialty
	evaluations map[consult.Specialty]consult.Evaluation // evaluation of the best candidate
	attempts    map[consult.Specialty]int
	degraded    map[consult.Specialty]bool
}

// NewWorkflowState creates the state record for one consultation.
func NewWorkflowState(consultID string) *WorkflowState {
	return &WorkflowState{
		consultID:   consultID,
		status:      StatusRouting,
		startedAt:   time.Now(),
		candidates:  make(map[consult.Specialty]consult.Candidate),
		evaluations: make(map[consult.Specialty]consult.Evaluation),
		attempts:    make(map[consult.Specialty]int),
		degraded:    make(map[consult.Specialty]bool),
	}
}

// ConsultID returns the consultation id.
func (w *WorkflowState) ConsultID() string {
	return w.consultID
}

// Status returns the current status.
func (w *WorkflowState) Status() Status {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.status
}

// Transition moves the workflow to the next status, rejecting transitions
// outside the table.
func (w *WorkflowState) Transition(to Status) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !IsValidTransition(w.status, to) {
		return fmt.Errorf("invalid workflow transition %s -> %s", w.status, to)
	}
	w.status = to
	return nil
}

// MaybeTransition transitions to the given status only when the table
// allows it, reporting whether the transition happened. Concurrent
// improvement loops use this to flip between evaluating and retrying
// without failing on whichever loop got there first.
func (w *WorkflowState) MaybeTransition(to Status) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.status == to || !IsValidTransition(w.status, to) {
		return false
	}
	w.status = to
	return true
}

// SetRouting records the routing decision.
func (w *WorkflowState) SetRouting(rd consult.RoutingDecision) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.routing = rd
}

// Routing returns the recorded routing decision.
func (w *WorkflowState) Routing() consult.RoutingDecision {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.routing
}

// RecordAttempt records one generation attempt for a specialty, keeping
// the candidate only if it scores higher than the best so far.
func (w *WorkflowState) RecordAttempt(specialty consult.Specialty, candidate consult.Candidate, eval consult.Evaluation) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.attempts[specialty]++
	prev, have := w.evaluations[specialty]
	if !have || scoreOf(eval) > scoreOf(prev) {
		w.candidates[specialty] = candidate
		w.evaluations[specialty] = eval
	}
}

// MarkDegraded records that a specialty exhausted its attempts without a
// passing answer.
func (w *WorkflowState) MarkDegraded(specialty consult.Specialty) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.degraded[specialty] = true
}

// Attempts returns a copy of the per-specialty attempt counts.
func (w *WorkflowState) Attempts() map[consult.Specialty]int {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make(map[consult.Specialty]int, len(w.attempts))
	for k, v := range w.attempts {
		out[k] = v
	}
	return out
}

// Passing returns the best candidate for every specialty whose evaluation
// passed, in the order given by specialties.
func (w *WorkflowState) Passing(specialties []consult.Specialty) []consult.Candidate {
	w.mu.Lock()
	defer w.mu.Unlock()
	var out []consult.Candidate
	for _, s := range specialties {
		if eval, ok := w.evaluations[s]; ok && eval.Pass {
			out = append(out, w.candidates[s])
		}
	}
	return out
}

// Degraded returns the specialties marked degraded, in the order given by
// specialties.
func (w *WorkflowState) Degraded(specialties []consult.Specialty) []consult.Specialty {
	w.mu.Lock()
	defer w.mu.Unlock()
	var out []consult.Specialty
	for _, s := range specialties {
		if w.degraded[s] {
			out = append(out, s)
		}
	}
	return out
}

// Elapsed returns the time since the consultation started.
func (w *WorkflowState) Elapsed() time.Duration {
	return time.Since(w.startedAt)
}

// scoreOf orders evaluations when picking the best candidate. Safety
// dominates quality so a safer answer is never displaced by a slicker one.
func scoreOf(e consult.Evaluation) int {
	return e.SafetyScore*100 + e.QualityScore
}
