package router

import (
	"strconv"
	"time"

	"papergraph/controllers"
	"papergraph/logger"
	"papergraph/metrics"

	"github.com/gin-gonic/gin"
)

// Logger logs method, path, status and latency and records request metrics
// under the matched route template.
func Logger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		duration := time.Since(start)

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		metrics.HTTPRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(status)).Inc()
		metrics.HTTPDuration.WithLabelValues(c.Request.Method, route).Observe(duration.Seconds())

		kv := []interface{}{"method", c.Request.Method, "path", c.Request.URL.Path, "status", status, "ms", duration.Milliseconds()}
		if user, ok := controllers.GetUserLogged(c); ok {
			kv = append(kv, "user_id", user.ID)
		}
		switch {
		case status >= 500:
			log.Error("request", kv...)
		case status >= 400:
			log.Warn("request", kv...)
		default:
			log.Info("request", kv...)
		}
	}
}
