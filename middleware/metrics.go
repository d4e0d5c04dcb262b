package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"shopcart-service/metrics"
)

// MetricsMiddleware records request counts and latency per route template,
// so ids in paths do not explode label cardinality.
func MetricsMiddleware(reg *metrics.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		if reg == nil {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		method := c.Request.Method
		reg.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(c.Writer.Status())).Inc()
		reg.HTTPLatency.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
	}
}
