package controllers

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	dbpkg "papergraph/db"
	"papergraph/models"
	"papergraph/pipeline"
	"papergraph/tools"

	"github.com/gin-gonic/gin"
	"github.com/jinzhu/gorm"
)

type ArticleUpdateRequest struct {
	Title     *string `json:"title"`
	SessionID *int64  `json:"session_id"`
}

// POST /api/articles/upload (multipart: file, title?, session_id?)
func UploadArticle(c *gin.Context) {
	user, db, ok := userAndDB(c)
	if !ok {
		return
	}
	svc, ok := services(c)
	if !ok {
		return
	}

	limit := svc.MaxUploadBytes
	if limit <= 0 {
		limit = 32 << 20
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit+1<<20)

	fh, err := c.FormFile("file")
	if err != nil {
		RespondError(c, "file is required", http.StatusBadRequest)
		return
	}
	if fh.Size > limit {
		RespondError(c, "file too large", http.StatusBadRequest)
		return
	}
	f, err := fh.Open()
	if err != nil {
		RespondError(c, "cannot read upload", http.StatusBadRequest)
		return
	}
	data, err := io.ReadAll(io.LimitReader(f, limit+1))
	f.Close()
	if err != nil {
		RespondError(c, "cannot read upload", http.StatusBadRequest)
		return
	}
	if int64(len(data)) > limit {
		RespondError(c, "file too large", http.StatusBadRequest)
		return
	}
	if !tools.IsPDF(data) {
		RespondError(c, "file is not a PDF", http.StatusBadRequest)
		return
	}

	var sessionID *int64
	if v := strings.TrimSpace(c.PostForm("session_id")); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil || id <= 0 {
			RespondError(c, "invalid session_id", http.StatusBadRequest)
			return
		}
		if !requireSession(c, db, user.ID, id) {
			return
		}
		sessionID = &id
	}

	res, err := svc.Pipeline.Ingest(c.Request.Context(), db, pipeline.UploadInput{
		UserID:    user.ID,
		SessionID: sessionID,
		Title:     c.PostForm("title"),
		FileName:  fh.Filename,
		Data:      data,
	})
	if err != nil {
		RespondError(c, "upload failed: "+err.Error(), http.StatusInternalServerError)
		return
	}
	RespondSuccess(c, res)
}

// GET /api/articles?session_id=
func GetArticles(c *gin.Context) {
	user, db, ok := userAndDB(c)
	if !ok {
		return
	}
	sessionID, ok := QueryID(c, "session_id")
	if !ok {
		return
	}

	q := db.Where("user_id = ?", user.ID)
	if sessionID != nil {
		q = q.Where("session_id = ?", *sessionID)
	}
	var articles []models.Article
	if err := q.Order("id desc").Find(&articles).Error; err != nil {
		RespondError(c, err.Error(), http.StatusInternalServerError)
		return
	}
	RespondSuccess(c, gin.H{"articles": articles})
}

// GET /api/articles/:id
func GetArticleByID(c *gin.Context) {
	user, db, ok := userAndDB(c)
	if !ok {
		return
	}
	id, ok := ParamID(c, "id")
	if !ok {
		return
	}

	article, ok := findArticle(c, db, user.ID, id)
	if !ok {
		return
	}
	var node models.Node
	if err := db.Where("article_id = ?", article.ID).First(&node).Error; err != nil && !gorm.IsRecordNotFoundError(err) {
		RespondError(c, err.Error(), http.StatusInternalServerError)
		return
	}
	payload := gin.H{"article": article}
	if node.ID > 0 {
		payload["node"] = node
	}
	RespondSuccess(c, payload)
}

// PUT /api/articles/:id
func UpdateArticle(c *gin.Context) {
	user, db, ok := userAndDB(c)
	if !ok {
		return
	}
	id, ok := ParamID(c, "id")
	if !ok {
		return
	}
	var req ArticleUpdateRequest
	if err := c.ShouldBind(&req); err != nil {
		RespondError(c, err.Error(), http.StatusBadRequest)
		return
	}
	article, ok := findArticle(c, db, user.ID, id)
	if !ok {
		return
	}

	fields := map[string]interface{}{}
	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			RespondError(c, "title must not be empty", http.StatusBadRequest)
			return
		}
		fields["title"] = title
	}
	if req.SessionID != nil {
		if *req.SessionID <= 0 {
			fields["session_id"] = nil
		} else if !requireSession(c, db, user.ID, *req.SessionID) {
			return
		} else {
			fields["session_id"] = *req.SessionID
		}
	}
	if len(fields) == 0 {
		RespondError(c, "nothing to update", http.StatusBadRequest)
		return
	}

	var node models.Node
	err := dbpkg.Transaction(db, func(tx *gorm.DB) error {
		if err := tx.Model(&article).Updates(fields).Error; err != nil {
			return err
		}
		title, renamed := fields["title"]
		if !renamed {
			return nil
		}
		// the node carries the article title for graph labels
		if err := tx.Model(&models.Node{}).Where("article_id = ?", article.ID).Update("title", title).Error; err != nil {
			return err
		}
		if err := tx.Where("article_id = ?", article.ID).First(&node).Error; err != nil && !gorm.IsRecordNotFoundError(err) {
			return err
		}
		return nil
	})
	if err != nil {
		RespondError(c, err.Error(), http.StatusInternalServerError)
		return
	}
	if err := db.First(&article, article.ID).Error; err != nil {
		RespondError(c, err.Error(), http.StatusInternalServerError)
		return
	}

	if node.ID > 0 {
		if svc := ServicesInstance(c); svc != nil && svc.Pipeline != nil {
			svc.Pipeline.Mirror(c.Request.Context(), db, user.ID, []models.Node{node}, nil)
		}
	}
	RespondSuccess(c, gin.H{"article": article})
}

// DELETE /api/articles/:id
func DeleteArticle(c *gin.Context) {
	user, db, ok := userAndDB(c)
	if !ok {
		return
	}
	id, ok := ParamID(c, "id")
	if !ok {
		return
	}
	article, ok := findArticle(c, db, user.ID, id)
	if !ok {
		return
	}

	nodeID, err := dbpkg.DeleteArticle(db, article)
	if err != nil {
		RespondError(c, err.Error(), http.StatusInternalServerError)
		return
	}

	// Secondary stores are cleaned best effort; the rows are already gone.
	if svc := ServicesInstance(c); svc != nil && svc.Pipeline != nil {
		log := logFor(c)
		if svc.Pipeline.Store != nil {
			if err := svc.Pipeline.Store.Delete(c.Request.Context(), article.StoragePath); err != nil {
				log.Warn("stored file not removed", "article_id", article.ID, "key", article.StoragePath, "error", err)
			}
		}
		if nodeID > 0 {
			if err := svc.Pipeline.Graph.DeleteNode(c.Request.Context(), nodeID); err != nil {
				log.Warn("graph node not removed", "node_id", nodeID, "error", err)
			}
		}
	}

	RespondSuccess(c, gin.H{"deleted": article.ID})
}

func findArticle(c *gin.Context, db *gorm.DB, userID string, id int64) (models.Article, bool) {
	var article models.Article
	err := db.Where("id = ? AND user_id = ?", id, userID).First(&article).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			RespondError(c, "article not found", http.StatusNotFound)
		} else {
			RespondError(c, err.Error(), http.StatusInternalServerError)
		}
		return article, false
	}
	return article, true
}

// ownsSession reports whether the session exists and belongs to userID.
func ownsSession(db *gorm.DB, userID string, id int64) (bool, error) {
	var count int
	err := db.Model(&models.BrainstormingSession{}).Where("id = ? AND user_id = ?", id, userID).Count(&count).Error
	return count > 0, err
}

// requireSession answers 404 for a session the user does not own and 500
// when the lookup fails.
func requireSession(c *gin.Context, db *gorm.DB, userID string, id int64) bool {
	owned, err := ownsSession(db, userID, id)
	if err != nil {
		RespondError(c, err.Error(), http.StatusInternalServerError)
		return false
	}
	if !owned {
		RespondError(c, "session not found", http.StatusNotFound)
		return false
	}
	return true
}
