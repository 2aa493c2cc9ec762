package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"focusrooms/backend/internal/logging"
	"focusrooms/backend/internal/metrics"
)

// RequestLogger logs each request once it completes and records it in the
// request metrics under its route template.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start)
		status := c.Writer.Status()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.RecordAPIRequest(c.Request.Method, route, status, duration)

		event := logging.Info()
		switch {
		case status >= 500:
			event = logging.Error()
		case status >= 400:
			event = logging.Warn()
		}
		if len(c.Errors) > 0 {
			event = event.Str("errors", c.Errors.String())
		}
		event.
			Str("method", c.Request.Method).
			Str("route", route).
			Int("status", status).
			Dur("duration", duration).
			Str("user_id", UserID(c)).
			Msg("request")
	}
}
