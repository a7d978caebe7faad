package review

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"consilium/pkg/consult"
	"consilium/pkg/llm"
)

func testCriteria() Criteria {
	return Criteria{MinQualityScore: 7, SafetyFloor: 7}
}

func evalOutput(quality, safety int, compliant bool, feedback string) string {
	return fmt.Sprintf(`{
		"quality_score": %d,
		"safety_score": %d,
		"complete": true,
		"appropriate_advice": true,
		"safety_compliant": %v,
		"feedback": %q
	}`, quality, safety, compliant, feedback)
}

func TestEvaluatePassRequiresBothThresholds(t *testing.T) {
	tests := []struct {
		name      string
		quality   int
		safety    int
		compliant bool
		wantPass  bool
	}{
		{"both above", 8, 9, true, true},
		{"at thresholds", 7, 7, true, true},
		{"quality below", 6, 9, true, false},
		{"safety below", 9, 6, true, false},
		{"not compliant", 9, 9, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := llm.NewMockClientWithContent(evalOutput(tt.quality, tt.safety, tt.compliant, "ok"))
			e := NewEvaluator(client, testCriteria())

			eval := e.Evaluate(context.Background(), consult.Query{Text: "q"}, consult.Candidate{Specialty: consult.Cardiology, Text: "a", Attempt: 1})
			assert.Equal(t, tt.wantPass, eval.Pass)
			assert.Equal(t, tt.quality, eval.QualityScore)
			assert.Equal(t, tt.safety, eval.SafetyScore)
		})
	}
}

func TestEvaluateUnverifiableNeverPasses(t *testing.T) {
	// Backend error.
	client := llm.NewMockClient(nil, []error{errors.New("backend down")})
	e := NewEvaluator(client, testCriteria())
	eval := e.Evaluate(context.Background(), consult.Query{Text: "q"}, consult.Candidate{Specialty: consult.Neurology, Text: "a", Attempt: 1})
	assert.False(t, eval.Pass)
	require.NotEmpty(t, eval.Feedback)

	// Unparsable output.
	client = llm.NewMockClientWithContent("not json at all")
	e = NewEvaluator(client, testCriteria())
	eval = e.Evaluate(context.Background(), consult.Query{Text: "q"}, consult.Candidate{Specialty: consult.Neurology, Text: "a", Attempt: 1})
	assert.False(t, eval.Pass)
	assert.NotEmpty(t, eval.Feedback)
}

func TestEvaluateCriteriaOverridesTightenThresholds(t *testing.T) {
	// 8/8 passes the configured criteria but not the per-request override.
	client := llm.NewMockClientWithContent(evalOutput(8, 8, true, "ok"), evalOutput(8, 8, true, "ok"))
	e := NewEvaluator(client, testCriteria())

	base := consult.Query{Text: "q"}
	eval := e.Evaluate(context.Background(), base, consult.Candidate{Specialty: consult.Cardiology, Text: "a", Attempt: 1})
	assert.True(t, eval.Pass)

	strict := base
	strict.Criteria = &consult.CriteriaOverrides{MinQualityScore: 9, SafetyFloor: 9}
	eval = e.Evaluate(context.Background(), strict, consult.Candidate{Specialty: consult.Cardiology, Text: "a", Attempt: 1})
	assert.False(t, eval.Pass)
}

func TestEvaluateClampsScores(t *testing.T) {
	client := llm.NewMockClientWithContent(`{"quality_score": 42, "safety_score": -3, "safety_compliant": true}`)
	e := NewEvaluator(client, testCriteria())

	eval := e.Evaluate(context.Background(), consult.Query{Text: "q"}, consult.Candidate{Specialty: consult.Oncology, Text: "a", Attempt: 1})
	assert.Equal(t, 10, eval.QualityScore)
	assert.Equal(t, 0, eval.SafetyScore)
	assert.False(t, eval.Pass)
}

func TestEvaluatePromptIncludesDomainChecks(t *testing.T) {
	criteria := testCriteria()
	criteria.DomainSpecificChecks = []string{"must mention follow-up imaging"}
	criteria.RequireSafetyDisclaimer = true

	client := llm.NewMockClientWithContent(evalOutput(8, 8, true, "ok"))
	e := NewEvaluator(client, criteria)
	e.Evaluate(context.Background(), consult.Query{Text: "q"}, consult.Candidate{Specialty: consult.Oncology, Text: "a", Attempt: 1})

	calls := client.Calls()
	require.Len(t, calls, 1)
	system := calls[0].Messages[0].Content
	assert.Contains(t, system, "must mention follow-up imaging")
	assert.Contains(t, system, "not a substitute for professional medical advice")
}
