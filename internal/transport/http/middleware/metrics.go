package middleware

import (
	"github.com/gin-gonic/gin"

	"docfill/internal/metrics"
)

// Metrics counts requests by matched route, so ids in the path never become
// label values.
func Metrics(recorder *metrics.Recorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		recorder.ObserveHTTP(c.Request.Method, route, c.Writer.Status())
	}
}
