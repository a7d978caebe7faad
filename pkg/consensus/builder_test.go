package consensus

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"consilium/pkg/consult"
	"consilium/pkg/llm"
)

func TestBuildSinglePassingIsIdentity(t *testing.T) {
	client := llm.NewMockClientWithContent("should never be called")
	b := NewBuilder(client)

	passing := []consult.Candidate{{Specialty: consult.Cardiology, Text: "the answer", Attempt: 1}}
	result, err := b.Build(context.Background(), consult.Query{Text: "q"}, passing, nil)
	require.NoError(t, err)
	assert.Equal(t, "the answer", result.Text)
	assert.Equal(t, []consult.Specialty{consult.Cardiology}, result.Contributing)
	assert.Equal(t, 0, client.CallCount())
}

func TestBuildMergesMultipleSpecialties(t *testing.T) {
	client := llm.NewMockClientWithContent("merged view of both specialties")
	b := NewBuilder(client)

	passing := []consult.Candidate{
		{Specialty: consult.Cardiology, Text: "heart view", Attempt: 1},
		{Specialty: consult.Neurology, Text: "nerve view", Attempt: 2},
	}
	result, err := b.Build(context.Background(), consult.Query{Text: "q"}, passing, nil)
	require.NoError(t, err)
	assert.Equal(t, "merged view of both specialties", result.Text)
	assert.ElementsMatch(t, []consult.Specialty{consult.Cardiology, consult.Neurology}, result.Contributing)

	calls := client.Calls()
	require.Len(t, calls, 1)
	prompt := calls[0].Messages[1].Content
	assert.Contains(t, prompt, "heart view")
	assert.Contains(t, prompt, "nerve view")
}

func TestBuildConcatenatesWhenMergeFails(t *testing.T) {
	client := llm.NewMockClient(nil, []error{errors.New("backend down")})
	b := NewBuilder(client)

	passing := []consult.Candidate{
		{Specialty: consult.Cardiology, Text: "heart view", Attempt: 1},
		{Specialty: consult.Dermatology, Text: "skin view", Attempt: 1},
	}
	result, err := b.Build(context.Background(), consult.Query{Text: "q"}, passing, nil)
	require.NoError(t, err)
	assert.Contains(t, result.Text, "heart view")
	assert.Contains(t, result.Text, "skin view")
	assert.Contains(t, result.Text, "cardiology")
}

func TestBuildDisclosesDegradedSpecialties(t *testing.T) {
	client := llm.NewMockClientWithContent("unused")
	b := NewBuilder(client)

	passing := []consult.Candidate{{Specialty: consult.InternalMedicine, Text: "general guidance", Attempt: 1}}
	degraded := []consult.Specialty{consult.Oncology}
	result, err := b.Build(context.Background(), consult.Query{Text: "q"}, passing, degraded)
	require.NoError(t, err)
	assert.Contains(t, result.Text, "general guidance")
	assert.Contains(t, result.Text, "oncology")
	assert.Equal(t, degraded, result.Degraded)
}

func TestBuildRequiresAPassingCandidate(t *testing.T) {
	b := NewBuilder(llm.NewMockClientWithContent("unused"))
	_, err := b.Build(context.Background(), consult.Query{Text: "q"}, nil, nil)
	assert.Error(t, err)
}
