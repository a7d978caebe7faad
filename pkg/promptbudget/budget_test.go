package promptbudget

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"consilium/pkg/history"
)

func TestCountIsPositiveForText(t *testing.T) {
	c, err := NewCounter()
	require.NoError(t, err)

	assert.Equal(t, 0, c.Count(""))
	assert.Greater(t, c.Count("how long has the headache lasted"), 0)

	short := c.Count("headache")
	long := c.Count(strings.Repeat("headache and nausea after meals ", 20))
	assert.Greater(t, long, short)
}

func TestTrimHistoryKeepsNewestSuffix(t *testing.T) {
	c, err := NewCounter()
	require.NoError(t, err)

	exchanges := []history.Exchange{
		{Speaker: history.SpeakerPatient, Text: strings.Repeat("old context ", 100)},
		{Speaker: history.SpeakerSystem, Text: strings.Repeat("old answer ", 100)},
		{Speaker: history.SpeakerPatient, Text: "recent question"},
		{Speaker: history.SpeakerSystem, Text: "recent answer"},
	}

	budget := c.Count("recent question") + c.Count("recent answer") + 2
	trimmed := c.TrimHistory(exchanges, budget)

	require.Len(t, trimmed, 2)
	assert.Equal(t, "recent question", trimmed[0].Text)
	assert.Equal(t, "recent answer", trimmed[1].Text)
}

func TestTrimHistoryWithinBudgetIsIdentity(t *testing.T) {
	c, err := NewCounter()
	require.NoError(t, err)

	exchanges := []history.Exchange{
		{Speaker: history.SpeakerPatient, Text: "short"},
		{Speaker: history.SpeakerSystem, Text: "also short"},
	}
	trimmed := c.TrimHistory(exchanges, 10_000)
	assert.Equal(t, exchanges, trimmed)
}

func TestTrimHistoryKeepsNewestWhenNothingFits(t *testing.T) {
	c, err := NewCounter()
	require.NoError(t, err)

	exchanges := []history.Exchange{
		{Speaker: history.SpeakerPatient, Text: strings.Repeat("very long ", 500)},
		{Speaker: history.SpeakerSystem, Text: strings.Repeat("also very long ", 500)},
	}
	trimmed := c.TrimHistory(exchanges, 1)
	require.Len(t, trimmed, 1)
	assert.Equal(t, exchanges[1].Text, trimmed[0].Text)
}

func TestTrimHistoryEmpty(t *testing.T) {
	c, err := NewCounter()
	require.NoError(t, err)
	assert.Empty(t, c.TrimHistory(nil, 100))
}
