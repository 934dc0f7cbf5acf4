package controllers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"papergraph/models"

	"github.com/gin-gonic/gin"
	"github.com/jinzhu/gorm"
)

type SessionRequest struct {
	Name       *string               `json:"name"`
	Filter     *models.SessionFilter `json:"filter"`
	LastNodeID *int64                `json:"last_node_id"`
	LastEdgeID *int64                `json:"last_edge_id"`
}

// SessionView is a session with its filter decoded.
type SessionView struct {
	models.BrainstormingSession
	Filter models.SessionFilter `json:"filter"`
}

func viewOf(s models.BrainstormingSession) SessionView {
	return SessionView{BrainstormingSession: s, Filter: s.DecodeFilter()}
}

// GET /api/sessions
func GetSessions(c *gin.Context) {
	user, db, ok := userAndDB(c)
	if !ok {
		return
	}
	var items []models.BrainstormingSession
	if err := db.Where("user_id = ?", user.ID).Order("updated_at desc, id desc").Find(&items).Error; err != nil {
		RespondError(c, err.Error(), http.StatusInternalServerError)
		return
	}
	views := make([]SessionView, 0, len(items))
	for _, s := range items {
		views = append(views, viewOf(s))
	}
	RespondSuccess(c, gin.H{"sessions": views})
}

// GET /api/sessions/:id
func GetSessionByID(c *gin.Context) {
	user, db, ok := userAndDB(c)
	if !ok {
		return
	}
	id, ok := ParamID(c, "id")
	if !ok {
		return
	}
	s, ok := findSession(c, db, user.ID, id)
	if !ok {
		return
	}
	RespondSuccess(c, gin.H{"session": viewOf(s)})
}

// POST /api/sessions
func CreateSession(c *gin.Context) {
	user, db, ok := userAndDB(c)
	if !ok {
		return
	}
	var req SessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, err.Error(), http.StatusBadRequest)
		return
	}

	s := models.BrainstormingSession{UserID: user.ID, Name: "Untitled session"}
	if req.Name != nil && strings.TrimSpace(*req.Name) != "" {
		s.Name = strings.TrimSpace(*req.Name)
	}
	filter := models.SessionFilter{}
	if req.Filter != nil {
		filter = *req.Filter
	}
	if err := s.SetFilter(filter); err != nil {
		RespondError(c, err.Error(), http.StatusBadRequest)
		return
	}
	if !validLastSeen(c, db, user.ID, req) {
		return
	}
	s.LastNodeID = req.LastNodeID
	s.LastEdgeID = req.LastEdgeID

	if err := db.Create(&s).Error; err != nil {
		RespondError(c, err.Error(), http.StatusInternalServerError)
		return
	}
	RespondSuccess(c, gin.H{"session": viewOf(s)})
}

// PUT /api/sessions/:id replaces name and filter.
func UpdateSession(c *gin.Context) {
	saveSession(c, true)
}

// PATCH /api/sessions/:id/state saves the debounced UI state; only the
// fields present are written. Last writer wins.
func PatchSessionState(c *gin.Context) {
	saveSession(c, false)
}

func saveSession(c *gin.Context, replace bool) {
	user, db, ok := userAndDB(c)
	if !ok {
		return
	}
	id, ok := ParamID(c, "id")
	if !ok {
		return
	}
	var req SessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, err.Error(), http.StatusBadRequest)
		return
	}
	s, ok := findSession(c, db, user.ID, id)
	if !ok {
		return
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			RespondError(c, "name must not be empty", http.StatusBadRequest)
			return
		}
		s.Name = name
	} else if replace {
		RespondError(c, "name is required", http.StatusBadRequest)
		return
	}
	if req.Filter != nil {
		if err := s.SetFilter(*req.Filter); err != nil {
			RespondError(c, err.Error(), http.StatusBadRequest)
			return
		}
	} else if replace {
		_ = s.SetFilter(models.SessionFilter{})
	}
	if !validLastSeen(c, db, user.ID, req) {
		return
	}
	if req.LastNodeID != nil {
		s.LastNodeID = req.LastNodeID
	}
	if req.LastEdgeID != nil {
		s.LastEdgeID = req.LastEdgeID
	}

	now := time.Now().UTC()
	if err := db.Model(&models.BrainstormingSession{}).Where("id = ?", s.ID).Updates(map[string]interface{}{
		"name":         s.Name,
		"filter":       s.Filter,
		"last_node_id": s.LastNodeID,
		"last_edge_id": s.LastEdgeID,
		"updated_at":   now,
	}).Error; err != nil {
		RespondError(c, err.Error(), http.StatusInternalServerError)
		return
	}
	s.UpdatedAt = &now
	RespondSuccess(c, gin.H{"session": viewOf(s)})
}

// DELETE /api/sessions/:id
// Articles keep existing and lose their session; chat turns and analytics
// keep the dangling session id as history.
func DeleteSession(c *gin.Context) {
	user, db, ok := userAndDB(c)
	if !ok {
		return
	}
	id, ok := ParamID(c, "id")
	if !ok {
		return
	}
	s, ok := findSession(c, db, user.ID, id)
	if !ok {
		return
	}

	tx := db.Begin()
	if err := tx.Model(&models.Article{}).Where("session_id = ? AND user_id = ?", s.ID, user.ID).
		Update("session_id", nil).Error; err != nil {
		tx.Rollback()
		RespondError(c, err.Error(), http.StatusInternalServerError)
		return
	}
	if err := tx.Delete(&models.BrainstormingSession{}, "id = ?", s.ID).Error; err != nil {
		tx.Rollback()
		RespondError(c, err.Error(), http.StatusInternalServerError)
		return
	}
	if err := tx.Commit().Error; err != nil {
		RespondError(c, err.Error(), http.StatusInternalServerError)
		return
	}
	RespondSuccess(c, gin.H{"deleted": s.ID})
}

func findSession(c *gin.Context, db *gorm.DB, userID string, id int64) (models.BrainstormingSession, bool) {
	var s models.BrainstormingSession
	err := db.Where("id = ? AND user_id = ?", id, userID).First(&s).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			RespondError(c, "session not found", http.StatusNotFound)
		} else {
			RespondError(c, err.Error(), http.StatusInternalServerError)
		}
		return s, false
	}
	return s, true
}

// validLastSeen checks that last_node_id and last_edge_id, when given, point at
// rows the user owns.
func validLastSeen(c *gin.Context, db *gorm.DB, userID string, req SessionRequest) bool {
	checks := []struct {
		id    *int64
		model interface{}
		name  string
	}{
		{req.LastNodeID, &models.Node{}, "last_node_id"},
		{req.LastEdgeID, &models.Edge{}, "last_edge_id"},
	}
	for _, ch := range checks {
		if ch.id == nil {
			continue
		}
		var count int
		if err := db.Model(ch.model).Where("id = ? AND user_id = ?", *ch.id, userID).Count(&count).Error; err != nil {
			RespondError(c, err.Error(), http.StatusInternalServerError)
			return false
		}
		if count == 0 {
			RespondError(c, ch.name+" not found", http.StatusNotFound)
			return false
		}
	}
	return true
}
