package controllers

import (
	"errors"
	"net/http"
	"strings"

	"papergraph/models"
	"papergraph/pipeline"
	"papergraph/tools"

	"github.com/gin-gonic/gin"
)

type SummarizeRequest struct {
	Text      string `json:"text"`
	ArticleID int64  `json:"article_id"`
}

// POST /api/ai/summarize
// With text, only returns the summary. With article_id, the stored PDF is
// summarized again and the article's node is updated.
func Summarize(c *gin.Context) {
	user, db, ok := userAndDB(c)
	if !ok {
		return
	}
	svc, ok := services(c)
	if !ok {
		return
	}
	var req SummarizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, err.Error(), http.StatusBadRequest)
		return
	}
	ctx := c.Request.Context()
	p := svc.Pipeline

	if req.ArticleID <= 0 {
		if strings.TrimSpace(req.Text) == "" {
			RespondError(c, "text or article_id is required", http.StatusBadRequest)
			return
		}
		summary, err := p.Summarize(ctx, req.Text)
		if err != nil {
			RespondError(c, "summarization failed: "+err.Error(), http.StatusInternalServerError)
			return
		}
		RespondSuccess(c, gin.H{"summary": summary})
		return
	}

	article, ok := findArticle(c, db, user.ID, req.ArticleID)
	if !ok {
		return
	}
	data, err := p.Store.Get(ctx, article.StoragePath)
	if err != nil {
		RespondError(c, "stored file unavailable: "+err.Error(), http.StatusInternalServerError)
		return
	}
	extracted, err := p.Extractor.Extract(data)
	if err != nil {
		RespondError(c, "text extraction failed: "+err.Error(), http.StatusInternalServerError)
		return
	}
	summary, err := p.Summarize(ctx, extracted.Text)
	if err != nil {
		RespondError(c, "summarization failed: "+err.Error(), http.StatusInternalServerError)
		return
	}

	var node models.Node
	fields := map[string]interface{}{
		"goal":       summary.Goal,
		"method":     summary.Method,
		"background": summary.Background,
		"future":     summary.Future,
		"gaps":       summary.Gaps,
		"content":    tools.Excerpt(extracted.Text, p.Opts.ExcerptChars),
	}
	if err := db.Where("article_id = ?", article.ID).First(&node).Error; err != nil {
		node = models.Node{
			ArticleID: article.ID, UserID: user.ID, Title: article.Title, SourceURL: article.URL,
			Goal: summary.Goal, Method: summary.Method, Background: summary.Background,
			Future: summary.Future, Gaps: summary.Gaps, Content: fields["content"].(string),
		}
		err = db.Create(&node).Error
		if err != nil {
			RespondError(c, err.Error(), http.StatusInternalServerError)
			return
		}
	} else if err := db.Model(&node).Updates(fields).Error; err != nil {
		RespondError(c, err.Error(), http.StatusInternalServerError)
		return
	}

	p.Mirror(ctx, db, user.ID, []models.Node{node}, nil)
	RespondSuccess(c, gin.H{"summary": summary, "node": node})
}

// POST /api/ai/relations
func DeriveRelations(c *gin.Context) {
	user, db, ok := userAndDB(c)
	if !ok {
		return
	}
	svc, ok := services(c)
	if !ok {
		return
	}

	created, skipped, discarded, err := svc.Pipeline.RelateUser(c.Request.Context(), db, user.ID)
	if len(created) > 0 {
		svc.Pipeline.Mirror(c.Request.Context(), db, user.ID, nil, created)
	}
	if err != nil {
		code := http.StatusInternalServerError
		if errors.Is(err, tools.ErrLLMNotConfigured) {
			code = http.StatusServiceUnavailable
		}
		RespondError(c, "relation derivation failed: "+err.Error(), code)
		return
	}

	RespondSuccess(c, gin.H{
		"edges":     created,
		"created":   len(created),
		"skipped":   skipped,
		"discarded": discarded,
	})
}

// POST /api/chat
func SendChat(c *gin.Context) {
	user, db, ok := userAndDB(c)
	if !ok {
		return
	}
	svc, ok := services(c)
	if !ok {
		return
	}
	var req pipeline.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, err.Error(), http.StatusBadRequest)
		return
	}
	if req.SessionID != nil && !requireSession(c, db, user.ID, *req.SessionID) {
		return
	}

	reply, err := svc.Pipeline.Chat(c.Request.Context(), db, user.ID, req)
	if err != nil {
		if errors.Is(err, pipeline.ErrEmptyMessage) {
			RespondError(c, "message is required", http.StatusBadRequest)
			return
		}
		logFor(c).Error("chat failed", "user_id", user.ID, "error", err)
		RespondError(c, "chat failed: "+err.Error(), http.StatusInternalServerError)
		return
	}
	RespondSuccess(c, gin.H{"reply": reply.Answer.Content, "messages": []models.ChatMessage{reply.Question, reply.Answer}})
}

// GET /api/chat?session_id=&limit=
func GetChat(c *gin.Context) {
	user, db, ok := userAndDB(c)
	if !ok {
		return
	}
	sessionID, ok := QueryID(c, "session_id")
	if !ok {
		return
	}
	limit := clampInt(queryInt(c, "limit", 100), 1, 500)

	q := db.Where("user_id = ?", user.ID)
	if sessionID != nil {
		q = q.Where("session_id = ?", *sessionID)
	} else {
		q = q.Where("session_id IS NULL")
	}
	var msgs []models.ChatMessage
	if err := q.Order("id desc").Limit(limit).Find(&msgs).Error; err != nil {
		RespondError(c, err.Error(), http.StatusInternalServerError)
		return
	}
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	RespondSuccess(c, gin.H{"messages": msgs})
}
