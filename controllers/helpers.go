package controllers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

func ParamID(c *gin.Context, name string) (int64, bool) {
	v := c.Param(name)
	if v == "" {
		RespondError(c, name+" is required", http.StatusBadRequest)
		return 0, false
	}
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil || id <= 0 {
		RespondError(c, "invalid "+name, http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

// QueryID reads an optional positive id from the query string. A present but
// malformed value answers 400.
func QueryID(c *gin.Context, name string) (*int64, bool) {
	v := strings.TrimSpace(c.Query(name))
	if v == "" {
		return nil, true
	}
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil || id <= 0 {
		RespondError(c, "invalid "+name, http.StatusBadRequest)
		return nil, false
	}
	return &id, true
}

func queryInt(c *gin.Context, key string, def int) int {
	v := strings.TrimSpace(c.Query(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func clampInt(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

// parseDateRange reads from/to (YYYY-MM-DD), defaulting to the last 7 days.
func parseDateRange(c *gin.Context) (time.Time, time.Time, bool) {
	now := time.Now().UTC()
	to := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	from := to.AddDate(0, 0, -6)

	if v := strings.TrimSpace(c.Query("from")); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			RespondError(c, "invalid from (use YYYY-MM-DD)", http.StatusBadRequest)
			return from, to, false
		}
		from = t
	}
	if v := strings.TrimSpace(c.Query("to")); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			RespondError(c, "invalid to (use YYYY-MM-DD)", http.StatusBadRequest)
			return from, to, false
		}
		to = t
	}
	if to.Before(from) {
		RespondError(c, "to must not be before from", http.StatusBadRequest)
		return from, to, false
	}
	if to.Sub(from) > 366*24*time.Hour {
		RespondError(c, "range too large (max 366 days)", http.StatusBadRequest)
		return from, to, false
	}
	return from, to, true
}

type dailyCount struct {
	Day   string `json:"day"`
	Count int64  `json:"count"`
}

// fillDailySeries returns one entry per day in [from, to], zero-filled.
func fillDailySeries(from time.Time, to time.Time, rows []dailyCount) []dailyCount {
	m := map[string]int64{}
	for _, r := range rows {
		if r.Day == "" {
			continue
		}
		m[r.Day] += r.Count
	}

	out := []dailyCount{}
	cur := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	end := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, time.UTC)
	for !cur.After(end) {
		key := cur.Format("2006-01-02")
		out = append(out, dailyCount{Day: key, Count: m[key]})
		cur = cur.AddDate(0, 0, 1)
	}
	return out
}
