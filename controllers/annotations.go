package controllers

import (
	"encoding/json"
	"net/http"
	"strings"

	"papergraph/models"

	"github.com/gin-gonic/gin"
)

type AnnotationRequest struct {
	Page     int             `json:"page"`
	Kind     string          `json:"kind"`
	Content  string          `json:"content"`
	Comment  string          `json:"comment"`
	Color    string          `json:"color"`
	Position json.RawMessage `json:"position"`
}

// GET /api/articles/:id/annotations
func GetAnnotations(c *gin.Context) {
	user, db, ok := userAndDB(c)
	if !ok {
		return
	}
	id, ok := ParamID(c, "id")
	if !ok {
		return
	}
	if _, ok := findArticle(c, db, user.ID, id); !ok {
		return
	}

	var items []models.Annotation
	if err := db.Where("article_id = ? AND user_id = ?", id, user.ID).Order("page asc, id asc").Find(&items).Error; err != nil {
		RespondError(c, err.Error(), http.StatusInternalServerError)
		return
	}
	RespondSuccess(c, gin.H{"annotations": items})
}

// POST /api/articles/:id/annotations
func CreateAnnotation(c *gin.Context) {
	user, db, ok := userAndDB(c)
	if !ok {
		return
	}
	id, ok := ParamID(c, "id")
	if !ok {
		return
	}
	var req AnnotationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, err.Error(), http.StatusBadRequest)
		return
	}

	kind := strings.ToLower(strings.TrimSpace(req.Kind))
	if kind == "" {
		kind = models.ANNOTATION_KIND_HIGHLIGHT
	}
	switch kind {
	case models.ANNOTATION_KIND_HIGHLIGHT, models.ANNOTATION_KIND_NOTE, models.ANNOTATION_KIND_UNDERLINE:
	default:
		RespondError(c, "invalid kind", http.StatusBadRequest)
		return
	}
	if req.Page < 0 {
		RespondError(c, "invalid page", http.StatusBadRequest)
		return
	}
	if _, ok := findArticle(c, db, user.ID, id); !ok {
		return
	}

	item := models.Annotation{
		UserID:    user.ID,
		ArticleID: id,
		Page:      req.Page,
		Kind:      kind,
		Content:   req.Content,
		Comment:   req.Comment,
		Color:     strings.TrimSpace(req.Color),
		Position:  string(req.Position),
	}
	if err := db.Create(&item).Error; err != nil {
		RespondError(c, err.Error(), http.StatusInternalServerError)
		return
	}
	RespondSuccess(c, gin.H{"annotation": item})
}
