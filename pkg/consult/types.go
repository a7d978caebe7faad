package consult

import (
	"consilium/pkg/history"
)

// Query is the immutable input to one consultation. Created once per
// request and never mutated.
type Query struct {
	ID            string             // request id, assigned by the engine
	Text          string             // raw query text
	SessionID     string             // session for history lookup, may be empty
	History       []history.Exchange // prior exchanges, read-only
	SpecialtyHint Specialty          // caller-supplied routing hint, empty if none
	UrgencyHint   *Urgency           // caller-supplied urgency floor, nil if none
	Criteria      *CriteriaOverrides // caller-supplied evaluation overrides, nil if none
}

// CriteriaOverrides tightens or loosens the evaluation thresholds for one
// request. Zero-valued fields leave the configured criteria untouched.
type CriteriaOverrides struct {
	MinQualityScore int
	SafetyFloor     int
}

// RoutingDecision is the Router's classification of a Query.
type RoutingDecision struct {
	Primary    Specialty   // always a member of the closed set
	Secondary  []Specialty // ordered, possibly empty
	Urgency    Urgency
	Keywords   []string
	Emergency  bool    // set by the independent emergency scan or the backend
	Confidence float64 // backend's self-reported confidence, 0 when fallback
	Fallback   bool    // true when the keyword classifier produced this decision
}

// Specialties returns the de-duplicated specialties to consult, primary
// first, secondaries capped at limit.
func (rd *RoutingDecision) Specialties(limit int) []Specialty {
	out := []Specialty{rd.Primary}
	seen := map[Specialty]bool{rd.Primary: true}
	for _, s := range rd.Secondary {
		if len(out) > limit {
			break
		}
		if !seen[s] && s.IsValid() {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

// Candidate is one specialist's answer attempt. Later attempts supersede
// earlier ones; a Candidate is never mutated after creation.
type Candidate struct {
	Specialty Specialty
	Text      string
	Attempt   int    // starts at 1
	Feedback  string // evaluator feedback that produced this attempt, empty on the first
}

// Evaluation is the Evaluator's judgment of a Candidate. Pass is always
// derived from the scores and the configured thresholds, never set
// independently.
type Evaluation struct {
	QualityScore       int // clinical quality, 1-10
	SafetyScore        int // patient safety, 1-10
	Complete           bool
	AppropriateAdvice  bool
	SafetyCompliant    bool
	Pass               bool
	Feedback           string
	RequiresEscalation bool
}

// ConsensusResult is the merged answer across contributing specialties.
type ConsensusResult struct {
	Text         string
	Contributing []Specialty // specialties whose final candidate passed
	Degraded     []Specialty // specialties whose retries were exhausted
}

// FinalStatus is the terminal status of a consultation.
type FinalStatus string

const (
	StatusReleased FinalStatus = "released"
	StatusBlocked  FinalStatus = "blocked"
	StatusFallback FinalStatus = "fallback"
)

// FinalResponse is what the caller receives. Always produced, even under
// total backend unavailability.
type FinalResponse struct {
	ConsultID    string      `json:"consult_id"`
	Text         string      `json:"text"`
	Status       FinalStatus `json:"status"`
	Emergency    bool        `json:"emergency"`
	Urgency      string      `json:"urgency"`
	Contributing []Specialty `json:"contributing_specialties"`
	Degraded     []Specialty `json:"degraded_specialties,omitempty"`
}
