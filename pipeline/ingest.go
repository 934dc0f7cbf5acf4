package pipeline

import (
	"bytes"
	"context"
	"strings"
	"time"

	"papergraph/db"
	"papergraph/metrics"
	"papergraph/models"
	"papergraph/storage"
	"papergraph/tools"

	"github.com/jinzhu/gorm"
)

const (
	StageStore     = "store"
	StageExtract   = "extract"
	StageSummarize = "summarize"
	StagePersist   = "persist"
)

type UploadInput struct {
	UserID    string
	SessionID *int64
	Title     string
	FileName  string
	Data      []byte
}

type UploadResult struct {
	Article   models.Article `json:"article"`
	Node      models.Node    `json:"node"`
	Edges     []models.Edge  `json:"edges"`
	Skipped   int            `json:"skipped"`
	Discarded int            `json:"discarded"`
}

// Ingest runs an upload end to end: store, extract, summarize, persist the
// article and its node, derive relations, mirror into the graph. Stages are
// sequential and nothing already committed is undone when a later stage
// fails. Relation derivation and graph mirroring only log their failures.
func (p *Pipeline) Ingest(ctx context.Context, conn *gorm.DB, in UploadInput) (res UploadResult, err error) {
	defer func() {
		status := "ok"
		if err != nil {
			status = Stage(err)
		}
		metrics.Uploads.WithLabelValues(status).Inc()
	}()
	log := p.Log.With("user_id", in.UserID, "file", in.FileName)

	fileName := tools.SafeFileName(in.FileName)
	key := storage.ObjectKey(in.UserID, fileName)
	url, err := p.Store.Put(ctx, key, "application/pdf", bytes.NewReader(in.Data))
	if err != nil {
		log.Error("store upload failed", "error", err)
		return res, stageErr(StageStore, err)
	}

	extracted, err := p.Extractor.Extract(in.Data)
	if err != nil {
		log.Error("text extraction failed", "error", err, "key", key)
		return res, stageErr(StageExtract, err)
	}

	summary, err := p.Summarize(ctx, extracted.Text)
	if err != nil {
		log.Error("summarization failed", "error", err)
		return res, stageErr(StageSummarize, err)
	}

	title := strings.TrimSpace(in.Title)
	if title == "" {
		title = summary.Title
	}
	if title == "" {
		title = tools.TitleFromFileName(in.FileName)
	}

	res.Article = models.Article{
		UserID:      in.UserID,
		SessionID:   in.SessionID,
		Title:       title,
		FileName:    fileName,
		StoragePath: key,
		URL:         url,
		SizeBytes:   int64(len(in.Data)),
		Checksum:    tools.ChecksumSHA256(in.Data),
		Pages:       extracted.Pages,
	}
	err = db.Transaction(conn, func(tx *gorm.DB) error {
		if err := tx.Create(&res.Article).Error; err != nil {
			return err
		}
		res.Node = models.Node{
			ArticleID:  res.Article.ID,
			UserID:     in.UserID,
			Title:      title,
			Goal:       summary.Goal,
			Method:     summary.Method,
			Background: summary.Background,
			Future:     summary.Future,
			Gaps:       summary.Gaps,
			Content:    tools.Excerpt(extracted.Text, p.Opts.ExcerptChars),
			SourceURL:  url,
		}
		return tx.Create(&res.Node).Error
	})
	if err != nil {
		log.Error("persist article failed", "error", err)
		return res, stageErr(StagePersist, err)
	}
	log.Info("article ingested", "article_id", res.Article.ID, "node_id", res.Node.ID, "pages", extracted.Pages)

	res.Edges, res.Skipped, res.Discarded = p.relateNewNode(ctx, conn, in.UserID)
	p.mirror(ctx, conn, in.UserID, []models.Node{res.Node}, res.Edges)
	return res, nil
}

// relateNewNode derives edges across all of the user's nodes and stores the
// new ones. Failures degrade to whatever was stored before them.
func (p *Pipeline) relateNewNode(ctx context.Context, conn *gorm.DB, userID string) ([]models.Edge, int, int) {
	created, skipped, discarded, err := p.RelateUser(ctx, conn, userID)
	if err != nil {
		// edges stored before the failure are kept and reported
		p.Log.Warn("relation derivation failed", "user_id", userID, "stored", len(created), "error", err)
	}
	if created == nil {
		created = []models.Edge{}
	}
	return created, skipped, discarded
}

// RelateUser derives relations over every node the user owns and persists the
// ones not stored yet.
func (p *Pipeline) RelateUser(ctx context.Context, conn *gorm.DB, userID string) ([]models.Edge, int, int, error) {
	nodes, err := db.UserNodes(conn, userID)
	if err != nil {
		return nil, 0, 0, err
	}
	d, err := p.DeriveRelations(ctx, userID, nodes)
	if err != nil {
		return nil, 0, 0, err
	}
	created, skipped, err := db.CreateEdges(conn, d.Edges)
	if err != nil {
		return created, skipped + d.Duplicates, d.Discarded, err
	}
	return created, skipped + d.Duplicates, d.Discarded, nil
}

// mirror pushes fresh rows into the graph database right away and queues a
// debounced full sync for the similarity relations.
func (p *Pipeline) mirror(ctx context.Context, conn *gorm.DB, userID string, nodes []models.Node, edges []models.Edge) {
	if !p.Graph.Enabled() {
		return
	}
	if _, err := p.Graph.UpsertNodes(ctx, nodes); err != nil {
		p.Log.Warn("graph mirror of nodes failed", "user_id", userID, "error", err)
	} else if _, err := p.Graph.UpsertEdges(ctx, edges); err != nil {
		p.Log.Warn("graph mirror of edges failed", "user_id", userID, "error", err)
	}
	p.QueueSync(conn, userID)
}

// SyncQueued reports whether queued graph syncs are processed.
func (p *Pipeline) SyncQueued() bool {
	return p.Graph.Enabled() && p.Opts.SyncQueue
}

// QueueSync schedules a debounced full graph sync for the user. Nothing is
// queued when no worker runs.
func (p *Pipeline) QueueSync(conn *gorm.DB, userID string) {
	if !p.SyncQueued() {
		return
	}
	if _, err := db.EnqueueSync(conn, userID, time.Now().Add(p.Opts.SyncDebounce)); err != nil {
		p.Log.Warn("queue graph sync failed", "user_id", userID, "error", err)
	}
}

// Mirror is the exported form used by handlers that change nodes or edges.
func (p *Pipeline) Mirror(ctx context.Context, conn *gorm.DB, userID string, nodes []models.Node, edges []models.Edge) {
	p.mirror(ctx, conn, userID, nodes, edges)
}
