package triage

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"consilium/pkg/consult"
	"consilium/pkg/llm"
)

func TestRouteClassifiesFromBackend(t *testing.T) {
	client := llm.NewMockClientWithContent(`{
		"primary_specialty": "cardiology",
		"secondary_specialties": ["internal_medicine"],
		"urgency_level": "high",
		"keywords": ["palpitations"],
		"requires_emergency": false,
		"confidence": 0.9
	}`)
	router := NewRouter(client, consult.InternalMedicine)

	rd, err := router.Route(context.Background(), consult.Query{Text: "I keep having palpitations"})
	require.NoError(t, err)
	assert.Equal(t, consult.Cardiology, rd.Primary)
	assert.Equal(t, []consult.Specialty{consult.InternalMedicine}, rd.Secondary)
	assert.Equal(t, consult.UrgencyHigh, rd.Urgency)
	assert.False(t, rd.Emergency)
	assert.False(t, rd.Fallback)
	assert.InDelta(t, 0.9, rd.Confidence, 0.001)
}

func TestRouteCoercesUnknownSpecialty(t *testing.T) {
	client := llm.NewMockClientWithContent(`{"primary_specialty": "astrology", "urgency_level": "low"}`)
	router := NewRouter(client, consult.InternalMedicine)

	rd, err := router.Route(context.Background(), consult.Query{Text: "what do the stars say"})
	require.NoError(t, err)
	assert.Equal(t, consult.InternalMedicine, rd.Primary)
	assert.True(t, rd.Primary.IsValid())
}

func TestRouteFallsBackOnBackendError(t *testing.T) {
	client := llm.NewMockClient(nil, []error{errors.New("backend down")})
	router := NewRouter(client, consult.InternalMedicine)

	rd, err := router.Route(context.Background(), consult.Query{Text: "I have a strange rash on my arm"})
	require.NoError(t, err)
	assert.True(t, rd.Fallback)
	assert.Equal(t, consult.Dermatology, rd.Primary)
}

func TestRouteFallsBackOnMalformedOutput(t *testing.T) {
	client := llm.NewMockClientWithContent("I cannot answer in JSON, sorry")
	router := NewRouter(client, consult.InternalMedicine)

	rd, err := router.Route(context.Background(), consult.Query{Text: "frequent headaches and dizziness"})
	require.NoError(t, err)
	assert.True(t, rd.Fallback)
	assert.Equal(t, consult.Neurology, rd.Primary)
}

func TestRouteFallbackClassifiesInjuries(t *testing.T) {
	client := llm.NewMockClient(nil, []error{errors.New("backend down")})
	router := NewRouter(client, consult.InternalMedicine)

	rd, err := router.Route(context.Background(), consult.Query{Text: "I fell off a ladder and I think my wrist has a fracture"})
	require.NoError(t, err)
	assert.True(t, rd.Fallback)
	assert.Equal(t, consult.Traumatology, rd.Primary)
}

func TestRouteFallbackDefaultsWithoutKeywords(t *testing.T) {
	client := llm.NewMockClient(nil, []error{errors.New("backend down")})
	router := NewRouter(client, consult.InternalMedicine)

	rd, err := router.Route(context.Background(), consult.Query{Text: "I just feel off lately"})
	require.NoError(t, err)
	assert.True(t, rd.Fallback)
	assert.Equal(t, consult.InternalMedicine, rd.Primary)
}

func TestRouteRejectsEmptyQuery(t *testing.T) {
	router := NewRouter(llm.NewMockClientWithContent("{}"), consult.InternalMedicine)

	_, err := router.Route(context.Background(), consult.Query{Text: "   "})
	require.Error(t, err)
	assert.ErrorIs(t, err, consult.ErrInvalidInput)
	assert.Equal(t, 0, router.client.(*llm.MockClient).CallCount())
}

func TestRouteEmergencyScanIndependentOfBackend(t *testing.T) {
	// Backend is down, yet the emergency must still be flagged.
	client := llm.NewMockClient(nil, []error{errors.New("backend down")})
	router := NewRouter(client, consult.InternalMedicine)

	rd, err := router.Route(context.Background(), consult.Query{Text: "my father has crushing chest pain"})
	require.NoError(t, err)
	assert.True(t, rd.Emergency)
	assert.Equal(t, consult.UrgencyCritical, rd.Urgency)
}

func TestRouteSpecialtyHintSkipsBackend(t *testing.T) {
	client := llm.NewMockClientWithContent("{}")
	router := NewRouter(client, consult.InternalMedicine)

	rd, err := router.Route(context.Background(), consult.Query{
		Text:          "follow-up on my skin condition",
		SpecialtyHint: consult.Dermatology,
	})
	require.NoError(t, err)
	assert.Equal(t, consult.Dermatology, rd.Primary)
	assert.Equal(t, 0, client.CallCount())
}

func TestRouteUrgencyHintIsAFloor(t *testing.T) {
	client := llm.NewMockClientWithContent(`{"primary_specialty": "internal_medicine", "urgency_level": "low"}`)
	router := NewRouter(client, consult.InternalMedicine)

	hint := consult.UrgencyHigh
	rd, err := router.Route(context.Background(), consult.Query{Text: "mild fatigue", UrgencyHint: &hint})
	require.NoError(t, err)
	assert.Equal(t, consult.UrgencyHigh, rd.Urgency)
}

func TestEmergencyScan(t *testing.T) {
	hit, matched := EmergencyScan("I think I'm having a heart attack")
	assert.True(t, hit)
	assert.Contains(t, matched, "heart attack")

	hit, _ = EmergencyScan("mild seasonal allergies")
	assert.False(t, hit)
}
