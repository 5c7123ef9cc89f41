package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Proton-105/users-backend/pkg/metrics"
)

// Metrics records request count and latency labelled by the matched route
// template, so /api/users/1 and /api/users/2 share a series.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		metrics.RecordRequest(c.Request.Method, c.FullPath(), c.Writer.Status(), time.Since(start))
	}
}
