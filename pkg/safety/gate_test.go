package safety

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"consilium/pkg/consult"
)

func TestFinalizeReleasedAppendsDisclaimer(t *testing.T) {
	g := NewGate()
	routing := consult.RoutingDecision{Primary: consult.Cardiology, Urgency: consult.UrgencyMedium}
	result := consult.ConsensusResult{Text: "answer body", Contributing: []consult.Specialty{consult.Cardiology}}

	resp := g.Finalize("c1", routing, result, false)
	assert.Equal(t, consult.StatusReleased, resp.Status)
	assert.Contains(t, resp.Text, "answer body")
	assert.Contains(t, resp.Text, "not a substitute for professional medical advice")
	assert.Equal(t, "medium", resp.Urgency)
	assert.Equal(t, []consult.Specialty{consult.Cardiology}, resp.Contributing)
}

func TestFinalizeEmergencyAlwaysPrependsNotice(t *testing.T) {
	g := NewGate()
	routing := consult.RoutingDecision{Primary: consult.EmergencyMedicine, Urgency: consult.UrgencyCritical, Emergency: true}

	// Released with an answer.
	resp := g.Finalize("c1", routing, consult.ConsensusResult{Text: "go to the ED"}, false)
	assert.True(t, resp.Emergency)
	assert.True(t, strings.Contains(resp.Text, "EMERGENCY"))
	assert.Less(t, strings.Index(resp.Text, "EMERGENCY"), strings.Index(resp.Text, "go to the ED"))

	// Fallback with no verified answer at all.
	resp = g.Finalize("c2", routing, consult.ConsensusResult{}, true)
	assert.Equal(t, consult.StatusFallback, resp.Status)
	assert.Contains(t, resp.Text, "EMERGENCY")
}

func TestFinalizeAllExhaustedYieldsFallback(t *testing.T) {
	g := NewGate()
	routing := consult.RoutingDecision{Primary: consult.InternalMedicine, Urgency: consult.UrgencyMedium}
	degraded := []consult.Specialty{consult.InternalMedicine}

	resp := g.Finalize("c1", routing, consult.ConsensusResult{Degraded: degraded}, true)
	assert.Equal(t, consult.StatusFallback, resp.Status)
	assert.Contains(t, resp.Text, "healthcare professional")
	assert.Empty(t, resp.Contributing)
	assert.Equal(t, degraded, resp.Degraded)
}

func TestFinalizeEmptyConsensusTextIsFallback(t *testing.T) {
	g := NewGate()
	routing := consult.RoutingDecision{Primary: consult.InternalMedicine}

	resp := g.Finalize("c1", routing, consult.ConsensusResult{Text: "   "}, false)
	assert.Equal(t, consult.StatusFallback, resp.Status)
}

func TestFinalizeIsDeterministic(t *testing.T) {
	g := NewGate()
	routing := consult.RoutingDecision{Primary: consult.Neurology, Urgency: consult.UrgencyHigh, Emergency: true}
	result := consult.ConsensusResult{Text: "same input"}

	first := g.Finalize("c1", routing, result, false)
	second := g.Finalize("c1", routing, result, false)
	assert.Equal(t, first, second)
}

func TestBlocked(t *testing.T) {
	g := NewGate()
	resp := g.Blocked("c1", "invalid input: query text is empty")
	assert.Equal(t, consult.StatusBlocked, resp.Status)
	assert.Contains(t, resp.Text, "invalid input")
}
