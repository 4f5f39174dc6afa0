package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/persistorai/caseqc/internal/metrics"
)

// PrometheusMiddleware records HTTP request duration and count, and counts
// server errors by route.
func PrometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		duration := time.Since(start).Seconds()
		code := c.Writer.Status()
		status := strconv.Itoa(code)
		path := c.FullPath() // route pattern keeps label cardinality bounded
		if path == "" {
			path = "unknown"
		}
		metrics.RequestDuration.WithLabelValues(c.Request.Method, path, status).Observe(duration)
		metrics.RequestsTotal.WithLabelValues(c.Request.Method, path, status).Inc()

		if code >= 500 {
			metrics.ErrorsTotal.WithLabelValues("http_5xx").Inc()
		}
	}
}
