package controllers

import (
	"net/http"
	"strings"

	"papergraph/models"

	"github.com/gin-gonic/gin"
)

// GET /api/admin/sync-jobs?status= (admin)
func GetSyncJobs(c *gin.Context) {
	_, db, ok := userAndDB(c)
	if !ok {
		return
	}
	q := db.Model(&models.SyncJob{})
	if status := strings.TrimSpace(c.Query("status")); status != "" {
		q = q.Where("status = ?", status)
	}
	limit := clampInt(queryInt(c, "limit", 200), 1, 500)

	var jobs []models.SyncJob
	if err := q.Order("id desc").Limit(limit).Find(&jobs).Error; err != nil {
		RespondError(c, err.Error(), http.StatusInternalServerError)
		return
	}
	RespondSuccess(c, gin.H{"jobs": jobs})
}

// DELETE /api/admin/analytics?event_type= (admin)
func ClearAnalytics(c *gin.Context) {
	user, db, ok := userAndDB(c)
	if !ok {
		return
	}
	q := db.Where("1 = 1")
	if et := strings.TrimSpace(c.Query("event_type")); et != "" {
		q = db.Where("event_type = ?", et)
	}
	res := q.Delete(&models.Analytics{})
	if res.Error != nil {
		RespondError(c, res.Error.Error(), http.StatusInternalServerError)
		return
	}
	logFor(c).Info("analytics cleared", "by", user.ID, "rows", res.RowsAffected)
	RespondSuccess(c, gin.H{"deleted": res.RowsAffected})
}
