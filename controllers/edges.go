package controllers

import (
	"errors"
	"net/http"
	"strings"

	dbpkg "papergraph/db"
	"papergraph/models"
	"papergraph/tools"

	"github.com/gin-gonic/gin"
	"github.com/jinzhu/gorm"
)

type EdgeCreateRequest struct {
	From     int64    `json:"from" form:"from"`
	To       int64    `json:"to" form:"to"`
	Relation string   `json:"relation" form:"relation"`
	Label    string   `json:"label" form:"label"`
	Weight   *float64 `json:"weight" form:"weight"`
}

type EdgeUpdateRequest struct {
	Relation *string  `json:"relation"`
	Label    *string  `json:"label"`
	Weight   *float64 `json:"weight"`
}

// GET /api/edges?node_id=
func GetEdges(c *gin.Context) {
	user, db, ok := userAndDB(c)
	if !ok {
		return
	}
	nodeID, ok := QueryID(c, "node_id")
	if !ok {
		return
	}

	q := db.Where("user_id = ?", user.ID)
	if nodeID != nil {
		q = q.Where("from_node_id = ? OR to_node_id = ?", *nodeID, *nodeID)
	}
	var edges []models.Edge
	if err := q.Order("id asc").Find(&edges).Error; err != nil {
		RespondError(c, err.Error(), http.StatusInternalServerError)
		return
	}
	RespondSuccess(c, gin.H{"edges": edges})
}

// POST /api/edges
func CreateEdge(c *gin.Context) {
	user, db, ok := userAndDB(c)
	if !ok {
		return
	}
	var req EdgeCreateRequest
	if err := c.ShouldBind(&req); err != nil {
		RespondError(c, err.Error(), http.StatusBadRequest)
		return
	}

	edge := models.Edge{
		UserID:     user.ID,
		FromNodeID: req.From,
		ToNodeID:   req.To,
		Relation:   tools.NormalizeRelation(req.Relation),
		Label:      strings.TrimSpace(req.Label),
		Weight:     1,
		Origin:     models.EDGE_ORIGIN_MANUAL,
	}
	if req.Weight != nil {
		edge.Weight = tools.ClampWeight(*req.Weight)
	}
	if missing := edge.MissingFields(); missing != "" {
		RespondError(c, missing+" is required", http.StatusBadRequest)
		return
	}
	if edge.FromNodeID == edge.ToNodeID {
		RespondError(c, "an edge cannot connect a node to itself", http.StatusBadRequest)
		return
	}

	var count int
	if err := db.Model(&models.Node{}).
		Where("user_id = ? AND id IN (?)", user.ID, []int64{edge.FromNodeID, edge.ToNodeID}).
		Count(&count).Error; err != nil {
		RespondError(c, err.Error(), http.StatusInternalServerError)
		return
	}
	if count != 2 {
		RespondError(c, "from and to must be existing nodes", http.StatusBadRequest)
		return
	}

	created, _, err := dbpkg.CreateEdges(db, []models.Edge{edge})
	if err != nil {
		RespondError(c, err.Error(), http.StatusInternalServerError)
		return
	}
	if len(created) == 0 {
		RespondError(c, "edge already exists", http.StatusConflict)
		return
	}

	if svc := ServicesInstance(c); svc != nil && svc.Pipeline != nil {
		svc.Pipeline.Mirror(c.Request.Context(), db, user.ID, nil, created)
	}
	RespondSuccess(c, gin.H{"edge": created[0]})
}

// PUT /api/edges/:id
func UpdateEdge(c *gin.Context) {
	user, db, ok := userAndDB(c)
	if !ok {
		return
	}
	id, ok := ParamID(c, "id")
	if !ok {
		return
	}
	var req EdgeUpdateRequest
	if err := c.ShouldBind(&req); err != nil {
		RespondError(c, err.Error(), http.StatusBadRequest)
		return
	}
	edge, ok := findEdge(c, db, user.ID, id)
	if !ok {
		return
	}

	fields := map[string]interface{}{}
	if req.Relation != nil {
		rel := tools.NormalizeRelation(*req.Relation)
		if rel == "" {
			RespondError(c, "relation must not be empty", http.StatusBadRequest)
			return
		}
		fields["relation"] = rel
	}
	if req.Label != nil {
		fields["label"] = strings.TrimSpace(*req.Label)
	}
	if req.Weight != nil {
		fields["weight"] = tools.ClampWeight(*req.Weight)
	}
	if len(fields) == 0 {
		RespondError(c, "nothing to update", http.StatusBadRequest)
		return
	}

	if err := db.Model(&edge).Updates(fields).Error; err != nil {
		if dbpkg.IsUniqueViolation(err) {
			RespondError(c, "edge already exists", http.StatusConflict)
			return
		}
		RespondError(c, err.Error(), http.StatusInternalServerError)
		return
	}
	if err := db.First(&edge, edge.ID).Error; err != nil {
		RespondError(c, err.Error(), http.StatusInternalServerError)
		return
	}

	if svc := ServicesInstance(c); svc != nil && svc.Pipeline != nil {
		svc.Pipeline.Mirror(c.Request.Context(), db, user.ID, nil, []models.Edge{edge})
	}
	RespondSuccess(c, gin.H{"edge": edge})
}

// DELETE /api/edges/:id
func DeleteEdge(c *gin.Context) {
	user, db, ok := userAndDB(c)
	if !ok {
		return
	}
	id, ok := ParamID(c, "id")
	if !ok {
		return
	}
	edge, ok := findEdge(c, db, user.ID, id)
	if !ok {
		return
	}
	if err := db.Delete(&models.Edge{}, "id = ?", edge.ID).Error; err != nil {
		RespondError(c, err.Error(), http.StatusInternalServerError)
		return
	}
	if svc := ServicesInstance(c); svc != nil && svc.Pipeline != nil {
		if err := svc.Pipeline.Graph.DeleteEdge(c.Request.Context(), edge.ID); err != nil {
			logFor(c).Warn("graph edge not removed", "edge_id", edge.ID, "error", err)
		}
	}
	RespondSuccess(c, gin.H{"deleted": edge.ID})
}

func findEdge(c *gin.Context, db *gorm.DB, userID string, id int64) (models.Edge, bool) {
	var edge models.Edge
	err := db.Where("id = ? AND user_id = ?", id, userID).First(&edge).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			RespondError(c, "edge not found", http.StatusNotFound)
		} else {
			RespondError(c, err.Error(), http.StatusInternalServerError)
		}
		return edge, false
	}
	return edge, true
}
