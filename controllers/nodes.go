package controllers

import (
	"errors"
	"net/http"
	"strings"

	"papergraph/models"

	"github.com/gin-gonic/gin"
	"github.com/jinzhu/gorm"
)

type NodeUpdateRequest struct {
	Title      *string `json:"title"`
	Goal       *string `json:"goal"`
	Method     *string `json:"method"`
	Background *string `json:"background"`
	Future     *string `json:"future"`
	Gaps       *string `json:"gaps"`
}

func (r NodeUpdateRequest) fields() map[string]interface{} {
	f := map[string]interface{}{}
	set := func(col string, v *string) {
		if v != nil {
			f[col] = strings.TrimSpace(*v)
		}
	}
	set("title", r.Title)
	set("goal", r.Goal)
	set("method", r.Method)
	set("background", r.Background)
	set("future", r.Future)
	set("gaps", r.Gaps)
	return f
}

// GET /api/nodes?session_id=
func GetNodes(c *gin.Context) {
	user, db, ok := userAndDB(c)
	if !ok {
		return
	}
	sessionID, ok := QueryID(c, "session_id")
	if !ok {
		return
	}

	q := db.Where("nodes.user_id = ?", user.ID)
	if sessionID != nil {
		q = q.Select("nodes.*").Joins("join articles on articles.id = nodes.article_id").
			Where("articles.session_id = ?", *sessionID)
	}
	var nodes []models.Node
	if err := q.Order("nodes.id asc").Find(&nodes).Error; err != nil {
		RespondError(c, err.Error(), http.StatusInternalServerError)
		return
	}
	RespondSuccess(c, gin.H{"nodes": nodes})
}

// GET /api/nodes/:id
func GetNodeByID(c *gin.Context) {
	user, db, ok := userAndDB(c)
	if !ok {
		return
	}
	id, ok := ParamID(c, "id")
	if !ok {
		return
	}
	node, ok := findNode(c, db, user.ID, id)
	if !ok {
		return
	}
	RespondSuccess(c, gin.H{"node": node})
}

// PUT /api/nodes/:id
func UpdateNode(c *gin.Context) {
	user, db, ok := userAndDB(c)
	if !ok {
		return
	}
	id, ok := ParamID(c, "id")
	if !ok {
		return
	}
	var req NodeUpdateRequest
	if err := c.ShouldBind(&req); err != nil {
		RespondError(c, err.Error(), http.StatusBadRequest)
		return
	}
	fields := req.fields()
	if len(fields) == 0 {
		RespondError(c, "nothing to update", http.StatusBadRequest)
		return
	}
	if t, ok := fields["title"]; ok && t == "" {
		RespondError(c, "title must not be empty", http.StatusBadRequest)
		return
	}

	node, ok := findNode(c, db, user.ID, id)
	if !ok {
		return
	}
	if err := db.Model(&node).Updates(fields).Error; err != nil {
		RespondError(c, err.Error(), http.StatusInternalServerError)
		return
	}
	if err := db.First(&node, node.ID).Error; err != nil {
		RespondError(c, err.Error(), http.StatusInternalServerError)
		return
	}

	if svc := ServicesInstance(c); svc != nil && svc.Pipeline != nil {
		svc.Pipeline.Mirror(c.Request.Context(), db, user.ID, []models.Node{node}, nil)
	}
	RespondSuccess(c, gin.H{"node": node})
}

func findNode(c *gin.Context, db *gorm.DB, userID string, id int64) (models.Node, bool) {
	var node models.Node
	err := db.Where("id = ? AND user_id = ?", id, userID).First(&node).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			RespondError(c, "node not found", http.StatusNotFound)
		} else {
			RespondError(c, err.Error(), http.StatusInternalServerError)
		}
		return node, false
	}
	return node, true
}
