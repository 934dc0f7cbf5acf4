package pipeline

import (
	"context"
	"errors"
	"testing"

	"papergraph/graphdb"
	"papergraph/models"
	"papergraph/tools"

	"github.com/jinzhu/gorm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIngestCreatesOneArticleAndOneNode(t *testing.T) {
	llm := &scriptedLLM{replies: map[string]string{"summarize": goodSummary}}
	p, conn := newTestPipeline(t, llm, fakeExtractor{text: "Graph attention networks operate on graph-structured data."})

	res, err := p.Ingest(context.Background(), conn, UploadInput{UserID: "u1", FileName: "gat.pdf", Data: []byte("%PDF-1.5 body")})
	require.NoError(t, err)

	var articles, nodes int
	conn.Model(&models.Article{}).Count(&articles)
	conn.Model(&models.Node{}).Count(&nodes)
	assert.Equal(t, 1, articles)
	assert.Equal(t, 1, nodes)

	assert.Equal(t, "Graph Attention Networks", res.Article.Title)
	assert.Equal(t, res.Article.ID, res.Node.ArticleID)
	assert.Equal(t, 3, res.Article.Pages)
	assert.Contains(t, res.Article.URL, "/files/u1/")
	assert.Equal(t, "classify nodes", res.Node.Goal)
	assert.LessOrEqual(t, len([]rune(res.Node.Content)), 40)
	assert.Empty(t, res.Edges)
	// a single node has nothing to relate to
	assert.Zero(t, llm.count("relations"))
}

func TestIngestDerivesEdgesBetweenKnownNodes(t *testing.T) {
	llm := &scriptedLLM{replies: map[string]string{"summarize": goodSummary}}
	p, conn := newTestPipeline(t, llm, fakeExtractor{text: "body"})

	first, err := p.Ingest(context.Background(), conn, UploadInput{UserID: "u1", Title: "First", FileName: "a.pdf", Data: []byte("%PDF-a")})
	require.NoError(t, err)

	llm.replies["relations"] = `[{"from": 2, "to": 1, "relation": "EXTENDS"}, {"from": 2, "to": 42, "relation": "CITES"}]`
	second, err := p.Ingest(context.Background(), conn, UploadInput{UserID: "u1", Title: "Second", FileName: "b.pdf", Data: []byte("%PDF-b")})
	require.NoError(t, err)
	require.Equal(t, int64(2), second.Node.ID)

	require.Len(t, second.Edges, 1)
	assert.Equal(t, second.Node.ID, second.Edges[0].FromNodeID)
	assert.Equal(t, first.Node.ID, second.Edges[0].ToNodeID)
	assert.Equal(t, 1, second.Discarded)

	// the same proposal again is skipped by the unique tuple
	created, skipped, _, err := p.RelateUser(context.Background(), conn, "u1")
	require.NoError(t, err)
	assert.Empty(t, created)
	assert.Equal(t, 1, skipped)

	var edges int
	conn.Model(&models.Edge{}).Count(&edges)
	assert.Equal(t, 1, edges)
}

func TestIngestRelationFailureDegrades(t *testing.T) {
	llm := &scriptedLLM{
		replies: map[string]string{"summarize": goodSummary},
		errs:    map[string]error{"relations": errors.New("provider down")},
	}
	p, conn := newTestPipeline(t, llm, fakeExtractor{text: "body"})

	_, err := p.Ingest(context.Background(), conn, UploadInput{UserID: "u1", FileName: "a.pdf", Data: []byte("%PDF-a")})
	require.NoError(t, err)
	res, err := p.Ingest(context.Background(), conn, UploadInput{UserID: "u1", FileName: "b.pdf", Data: []byte("%PDF-b")})
	require.NoError(t, err)
	assert.Empty(t, res.Edges)
}

func TestIngestSummaryFailureStopsBeforePersist(t *testing.T) {
	llm := &scriptedLLM{replies: map[string]string{"summarize": `{"goal":"only a goal"}`}}
	p, conn := newTestPipeline(t, llm, fakeExtractor{text: "body"})

	_, err := p.Ingest(context.Background(), conn, UploadInput{UserID: "u1", FileName: "a.pdf", Data: []byte("%PDF-a")})
	require.Error(t, err)
	assert.Equal(t, StageSummarize, Stage(err))

	var articles int
	conn.Model(&models.Article{}).Count(&articles)
	assert.Zero(t, articles)
}

func TestIngestExtractionFailure(t *testing.T) {
	llm := &scriptedLLM{replies: map[string]string{"summarize": goodSummary}}
	p, conn := newTestPipeline(t, llm, fakeExtractor{err: tools.ErrNoText})

	_, err := p.Ingest(context.Background(), conn, UploadInput{UserID: "u1", FileName: "scan.pdf", Data: []byte("%PDF-x")})
	require.Error(t, err)
	assert.Equal(t, StageExtract, Stage(err))
	assert.ErrorIs(t, err, tools.ErrNoText)
	assert.Zero(t, llm.count("summarize"))
}

func TestIngestKeepsEdgesStoredBeforeFailure(t *testing.T) {
	llm := &scriptedLLM{replies: map[string]string{"summarize": goodSummary}}
	p, conn := newTestPipeline(t, llm, fakeExtractor{text: "body"})

	_, err := p.Ingest(context.Background(), conn, UploadInput{UserID: "u1", FileName: "a.pdf", Data: []byte("%PDF-a")})
	require.NoError(t, err)

	inserts := 0
	conn.Callback().Create().Before("gorm:create").Register("fail_second_edge", func(scope *gorm.Scope) {
		if scope.TableName() != "edges" {
			return
		}
		inserts++
		if inserts == 2 {
			scope.Err(errors.New("disk full"))
		}
	})

	llm.replies["relations"] = `[{"from": 2, "to": 1, "relation": "EXTENDS"}, {"from": 2, "to": 1, "relation": "CITES"}]`
	res, err := p.Ingest(context.Background(), conn, UploadInput{UserID: "u1", FileName: "b.pdf", Data: []byte("%PDF-b")})
	require.NoError(t, err)

	require.Len(t, res.Edges, 1)
	assert.Equal(t, "EXTENDS", res.Edges[0].Relation)
	assert.NotZero(t, res.Edges[0].ID)

	var edges int
	conn.Model(&models.Edge{}).Count(&edges)
	assert.Equal(t, 1, edges)
}

func TestIngestQueuesSyncOnlyWithWorker(t *testing.T) {
	llm := &scriptedLLM{replies: map[string]string{"summarize": goodSummary}}
	p, conn := newTestPipeline(t, llm, fakeExtractor{text: "body"})
	p.Graph = graphdb.NewSyncer(nopRunner{}, 0.3, nil)

	_, err := p.Ingest(context.Background(), conn, UploadInput{UserID: "u1", FileName: "a.pdf", Data: []byte("%PDF-a")})
	require.NoError(t, err)
	var jobs int
	conn.Model(&models.SyncJob{}).Count(&jobs)
	assert.Zero(t, jobs)
	assert.False(t, p.SyncQueued())

	p.Opts.SyncQueue = true
	_, err = p.Ingest(context.Background(), conn, UploadInput{UserID: "u1", FileName: "b.pdf", Data: []byte("%PDF-b")})
	require.NoError(t, err)
	var job models.SyncJob
	require.NoError(t, conn.First(&job).Error)
	assert.Equal(t, "u1", job.UserID)
	assert.Equal(t, models.SYNC_STATUS_PENDING, job.Status)
}
