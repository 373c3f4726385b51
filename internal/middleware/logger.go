package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/stemsi/qbank-console/internal/response"
)

// RequestLogger writes one structured line per request. Errors attached
// with c.Error are included.
func RequestLogger(log zerolog.Logger) gin.HandlerFunc {
	log = log.With().Str("component", "http").Logger()
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		ev := log.Info()
		switch {
		case status >= 500:
			ev = log.Error()
		case status >= 400:
			ev = log.Warn()
		}
		if len(c.Errors) > 0 {
			ev = ev.Str("errors", c.Errors.String())
		}
		ev.Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Str("request_id", c.GetString(response.ContextKeyRequestID)).
			Msg("Request")
	}
}
