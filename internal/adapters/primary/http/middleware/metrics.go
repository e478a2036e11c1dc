package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"caption-service/internal/metrics"
)

// Metrics records request count and latency by route template.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())
		metrics.HTTPRequestsTotal.WithLabelValues(path, c.Request.Method, status).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(path, c.Request.Method, status).
			Observe(time.Since(start).Seconds())
	}
}
