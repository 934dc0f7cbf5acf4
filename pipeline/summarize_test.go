package pipeline

import (
	"context"
	"testing"

	"papergraph/tools"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSummaryFenced(t *testing.T) {
	s, err := ParseSummary(goodSummary)
	require.NoError(t, err)
	assert.Equal(t, "Graph Attention Networks", s.Title)
	assert.Equal(t, "masked self-attention", s.Method)
	assert.Equal(t, "edge features\nscalability", s.Gaps)
}

func TestParseSummaryMissingField(t *testing.T) {
	_, err := ParseSummary(`{"goal":"g","method":"m","background":"b","future":"f"}`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "gaps")
}

func TestParseSummaryNotJSON(t *testing.T) {
	_, err := ParseSummary("I could not read the article, sorry.")
	assert.ErrorIs(t, err, ErrSummaryFormat)

	_, err = ParseSummary(`["goal","method"]`)
	assert.ErrorIs(t, err, ErrSummaryFormat)
}

func TestParseSummaryNullValues(t *testing.T) {
	s, err := ParseSummary(`{"goal":"g","method":null,"background":"","future":"f","gaps":"x"}`)
	require.NoError(t, err)
	assert.Empty(t, s.Method)
	assert.Empty(t, s.Title)
}

func TestSummarizeWithoutProvider(t *testing.T) {
	p, _ := newTestPipeline(t, nil, fakeExtractor{})
	_, err := p.Summarize(context.Background(), "text")
	assert.ErrorIs(t, err, tools.ErrLLMNotConfigured)
}

func TestSummarizeSendsJSONRequest(t *testing.T) {
	llm := &scriptedLLM{replies: map[string]string{"summarize": goodSummary}}
	p, _ := newTestPipeline(t, llm, fakeExtractor{})

	s, err := p.Summarize(context.Background(), "Some article body.")
	require.NoError(t, err)
	assert.Equal(t, "classify nodes", s.Goal)

	require.Len(t, llm.calls, 1)
	assert.True(t, llm.calls[0].JSON)
	assert.Equal(t, "m", llm.calls[0].Model)
	assert.Contains(t, llm.calls[0].Messages[0].Content, "Some article body.")
}
