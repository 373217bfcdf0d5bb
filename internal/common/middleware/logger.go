package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"giveaway-miniapp/internal/common/logger"
)

func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		// init_data в query не логируем
		if raw := c.Request.URL.Query(); len(raw) > 0 {
			raw.Del("init_data")
			if q := raw.Encode(); q != "" {
				path = path + "?" + q
			}
		}

		c.Next()

		ev := logger.Info()
		if c.Writer.Status() >= 500 {
			ev = logger.Error()
		}
		ev.
			Str("method", c.Request.Method).
			Str("path", path).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Str("client_ip", c.ClientIP()).
			Str("user_agent", c.Request.UserAgent()).
			Int("body_size", c.Writer.Size()).
			Str("request_id", getRequestID(c)).
			Msg("Request processed")
	}
}
