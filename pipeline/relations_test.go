package pipeline

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"papergraph/models"
	"papergraph/tools"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRelationsFiltersUnknownEndpoints(t *testing.T) {
	known := mapset.NewSet[int64](1, 2, 3)
	raw := "```json\n" + `[
		{"from": 1, "to": 2, "relation": "extends", "label": "same task", "weight": 0.9},
		{"from": 1, "to": 99, "relation": "CITES"},
		{"from": 3, "to": 3, "relation": "SELF"},
		{"from": 2, "to": 3, "relation": ""},
		{"from": "3", "to": "1", "relation": "builds on", "weight": 4},
		{"from": 1, "to": 2, "relation": "EXTENDS", "weight": 0.1}
	]` + "\n```"

	d := ParseRelations(raw, "u1", known)
	require.Len(t, d.Edges, 2)
	assert.Equal(t, 3, d.Discarded)
	assert.Equal(t, 1, d.Duplicates)

	assert.Equal(t, "EXTENDS", d.Edges[0].Relation)
	assert.InDelta(t, 0.9, d.Edges[0].Weight, 1e-9)
	assert.Equal(t, "same task", d.Edges[0].Label)
	assert.Equal(t, models.EDGE_ORIGIN_LLM, d.Edges[0].Origin)

	assert.Equal(t, int64(3), d.Edges[1].FromNodeID)
	assert.Equal(t, "BUILDS_ON", d.Edges[1].Relation)
	assert.Equal(t, 1.0, d.Edges[1].Weight)

	for _, e := range d.Edges {
		assert.True(t, known.Contains(e.FromNodeID))
		assert.True(t, known.Contains(e.ToNodeID))
		assert.Equal(t, "u1", e.UserID)
	}
}

func TestParseRelationsObjectWrapper(t *testing.T) {
	d := ParseRelations(`{"edges":[{"source":1,"target":2,"type":"contrasts with"}]}`, "u1", mapset.NewSet[int64](1, 2))
	require.Len(t, d.Edges, 1)
	assert.Equal(t, "CONTRASTS_WITH", d.Edges[0].Relation)
	assert.Equal(t, 1.0, d.Edges[0].Weight)
}

func TestParseRelationsDegradesToEmpty(t *testing.T) {
	for _, raw := range []string{"", "no idea", `{"answer": "none"}`} {
		d := ParseRelations(raw, "u1", mapset.NewSet[int64](1, 2))
		assert.Empty(t, d.Edges, raw)
		assert.True(t, d.Unparsable, raw)
	}
	d := ParseRelations(`{"edges": []}`, "u1", mapset.NewSet[int64](1, 2))
	assert.Empty(t, d.Edges)
	assert.False(t, d.Unparsable)
}

func TestDeriveRelationsNeedsTwoNodes(t *testing.T) {
	llm := &scriptedLLM{}
	p, _ := newTestPipeline(t, llm, fakeExtractor{})

	d, err := p.DeriveRelations(context.Background(), "u1", []models.Node{{ID: 1}})
	require.NoError(t, err)
	assert.Empty(t, d.Edges)
	assert.Zero(t, llm.count("relations"))
}

func TestDeriveRelationsPromptListsNodes(t *testing.T) {
	llm := &scriptedLLM{replies: map[string]string{"relations": `{"edges":[{"from":7,"to":8,"relation":"EXTENDS"}]}`}}
	p, _ := newTestPipeline(t, llm, fakeExtractor{})

	d, err := p.DeriveRelations(context.Background(), "u1", []models.Node{
		{ID: 7, Title: "Alpha", Goal: "g7"},
		{ID: 8, Title: "Beta", Gaps: "gap8"},
	})
	require.NoError(t, err)
	require.Len(t, d.Edges, 1)

	prompt := llm.calls[0].Messages[0].Content
	assert.Contains(t, prompt, "[7] Alpha")
	assert.Contains(t, prompt, "[8] Beta")
	assert.Contains(t, prompt, "gaps: gap8")
}

func TestDeriveRelationsKeepsNewestNodesWithinBudget(t *testing.T) {
	llm := &scriptedLLM{replies: map[string]string{
		"relations": `{"edges":[{"from":12,"to":11,"relation":"EXTENDS"},{"from":12,"to":1,"relation":"EXTENDS"}]}`,
	}}
	p, _ := newTestPipeline(t, llm, fakeExtractor{})
	p.Opts.MaxInputTokens = 600

	long := strings.Repeat("graph attention over citation networks ", 80)
	nodes := make([]models.Node, 0, 12)
	for i := int64(1); i <= 12; i++ {
		nodes = append(nodes, models.Node{
			ID: i, Title: fmt.Sprintf("Paper %d", i),
			Goal: long, Method: long, Background: long, Future: long, Gaps: long,
		})
	}

	d, err := p.DeriveRelations(context.Background(), "u1", nodes)
	require.NoError(t, err)

	require.Len(t, llm.calls, 1)
	prompt := llm.calls[0].Messages[0].Content
	assert.Contains(t, prompt, "[12] Paper 12")
	assert.Contains(t, prompt, "[11] Paper 11")
	assert.NotContains(t, prompt, "[1] Paper 1\n")

	// every listed record is whole
	assert.Equal(t, strings.Count(prompt, "] Paper "), strings.Count(prompt, "\ngaps: "))

	// an edge to a node left out of the prompt is not a valid endpoint
	require.Len(t, d.Edges, 1)
	assert.Equal(t, int64(11), d.Edges[0].ToNodeID)
	assert.Equal(t, 1, d.Discarded)
}

func TestRelationsInputShrinksExcerptsBeforeDroppingNodes(t *testing.T) {
	long := strings.Repeat("word ", 200)
	nodes := []models.Node{
		{ID: 2, Title: "B", Goal: long},
		{ID: 1, Title: "A", Goal: long},
	}
	full, listed := relationsInput(nodes, 0)
	require.Len(t, listed, 2)
	assert.Equal(t, int64(1), listed[0].ID)
	assert.Less(t, strings.Index(full, "[1] A"), strings.Index(full, "[2] B"))

	budget := tools.CountTokens(nodeRecord(nodes[0], attrExcerpts[len(attrExcerpts)-1])) * 2
	small, listed := relationsInput(nodes, budget)
	assert.Len(t, listed, 2)
	assert.Less(t, len(small), len(full))
}
