package controllers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"papergraph/models"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/gin-gonic/gin"
	"github.com/jinzhu/gorm"
)

const maxAnalyticsBatch = 500

type AnalyticsEvent struct {
	SessionID *int64          `json:"session_id"`
	EventType string          `json:"event_type"`
	Target    string          `json:"target"`
	Payload   json.RawMessage `json:"payload"`
}

// AnalyticsBatch accepts {"events": [...]}; a single event object is also
// accepted by IngestAnalytics.
type AnalyticsBatch struct {
	Events []AnalyticsEvent `json:"events"`
}

// POST /api/analytics
func IngestAnalytics(c *gin.Context) {
	user, db, ok := userAndDB(c)
	if !ok {
		return
	}
	raw, err := c.GetRawData()
	if err != nil {
		RespondError(c, "cannot read body", http.StatusBadRequest)
		return
	}

	var batch AnalyticsBatch
	if err := json.Unmarshal(raw, &batch); err != nil {
		RespondError(c, "invalid JSON body", http.StatusBadRequest)
		return
	}
	if len(batch.Events) == 0 {
		var single AnalyticsEvent
		if err := json.Unmarshal(raw, &single); err == nil && single.EventType != "" {
			batch.Events = []AnalyticsEvent{single}
		}
	}
	if len(batch.Events) == 0 {
		RespondError(c, "events is required", http.StatusBadRequest)
		return
	}
	if len(batch.Events) > maxAnalyticsBatch {
		RespondError(c, fmt.Sprintf("too many events (max %d)", maxAnalyticsBatch), http.StatusBadRequest)
		return
	}

	rows := make([]models.Analytics, 0, len(batch.Events))
	sessions := mapset.NewThreadUnsafeSet[int64]()
	for i, ev := range batch.Events {
		et := strings.TrimSpace(ev.EventType)
		if et == "" {
			RespondError(c, fmt.Sprintf("events[%d].event_type is required", i), http.StatusBadRequest)
			return
		}
		if ev.SessionID != nil && !sessions.Contains(*ev.SessionID) {
			if !requireSession(c, db, user.ID, *ev.SessionID) {
				return
			}
			sessions.Add(*ev.SessionID)
		}
		payload := ""
		if len(ev.Payload) > 0 && string(ev.Payload) != "null" {
			payload = string(ev.Payload)
		}
		rows = append(rows, models.Analytics{
			UserID:    user.ID,
			SessionID: ev.SessionID,
			EventType: et,
			Target:    strings.TrimSpace(ev.Target),
			Payload:   payload,
		})
	}

	tx := db.Begin()
	for i := range rows {
		if err := tx.Create(&rows[i]).Error; err != nil {
			tx.Rollback()
			RespondError(c, err.Error(), http.StatusInternalServerError)
			return
		}
	}
	if err := tx.Commit().Error; err != nil {
		RespondError(c, err.Error(), http.StatusInternalServerError)
		return
	}
	RespondSuccess(c, gin.H{"stored": len(rows)})
}

// GET /api/analytics?event_type=&session_id=&limit=&offset=
func GetAnalytics(c *gin.Context) {
	user, db, ok := userAndDB(c)
	if !ok {
		return
	}
	sessionID, ok := QueryID(c, "session_id")
	if !ok {
		return
	}
	limit := clampInt(queryInt(c, "limit", 200), 1, 500)
	offset := clampInt(queryInt(c, "offset", 0), 0, 1_000_000)

	query := db.Model(&models.Analytics{}).Where("user_id = ?", user.ID)
	if et := strings.TrimSpace(c.Query("event_type")); et != "" {
		query = query.Where("event_type = ?", et)
	}
	if sessionID != nil {
		query = query.Where("session_id = ?", *sessionID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		RespondError(c, err.Error(), http.StatusInternalServerError)
		return
	}
	var events []models.Analytics
	if err := query.Order("id desc").Limit(limit).Offset(offset).Find(&events).Error; err != nil {
		RespondError(c, err.Error(), http.StatusInternalServerError)
		return
	}
	RespondSuccess(c, gin.H{
		"total":  total,
		"limit":  limit,
		"offset": offset,
		"events": events,
	})
}

type eventTypeCount struct {
	EventType string `json:"event_type"`
	Count     int64  `json:"count"`
}

// GET /api/analytics/summary?from=YYYY-MM-DD&to=YYYY-MM-DD
// Counts by event type plus a zero-filled daily series (UTC days).
func GetAnalyticsSummary(c *gin.Context) {
	user, db, ok := userAndDB(c)
	if !ok {
		return
	}
	from, to, ok := parseDateRange(c)
	if !ok {
		return
	}
	toExclusive := to.AddDate(0, 0, 1)

	base := func() *gorm.DB {
		return db.Table("analytics").
			Where("user_id = ?", user.ID).
			Where("created_at >= ? AND created_at < ?", from, toExclusive)
	}

	var byType []eventTypeCount
	if err := base().
		Select("event_type, count(*) as count").
		Group("event_type").
		Order("count desc, event_type asc").
		Scan(&byType).Error; err != nil {
		RespondError(c, err.Error(), http.StatusInternalServerError)
		return
	}

	var rows []dailyCount
	if err := base().
		Select(fmt.Sprintf("%s as day, count(*) as count", dayExpr(db, "created_at"))).
		Group("day").
		Order("day asc").
		Scan(&rows).Error; err != nil {
		RespondError(c, err.Error(), http.StatusInternalServerError)
		return
	}

	if byType == nil {
		byType = []eventTypeCount{}
	}
	RespondSuccess(c, gin.H{
		"from":    from.Format("2006-01-02"),
		"to":      to.Format("2006-01-02"),
		"by_type": byType,
		"series":  fillDailySeries(from, to, rows),
	})
}

// dayExpr formats a timestamp column as YYYY-MM-DD for the active dialect.
func dayExpr(db *gorm.DB, column string) string {
	dialect := strings.ToLower(db.Dialect().GetName())
	switch {
	case strings.Contains(dialect, "sqlite"):
		return fmt.Sprintf("substr(%s, 1, 10)", column)
	case strings.Contains(dialect, "postgres"):
		return fmt.Sprintf("to_char(date_trunc('day', %s AT TIME ZONE 'UTC'), 'YYYY-MM-DD')", column)
	}
	return fmt.Sprintf("date(%s)", column)
}
