package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"vabboost/internal/pkg/logger"
	"vabboost/internal/pkg/response"
)

const headerRequestID = "X-Request-ID"

// RequestID propagates or assigns X-Request-ID.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(headerRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Writer.Header().Set(headerRequestID, id)
		c.Next()
	}
}

// ErrorLogger logs failed requests and recovers from panics. Clients only
// ever see the generic 500 envelope; details stay in the log.
func ErrorLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		defer func() {
			if recovered := recover(); recovered != nil {
				logRequest(c, start, zerolog.ErrorLevel).
					Str("type", "panic").
					Str("error", fmt.Sprintf("%v", recovered)).
					Bytes("stack", debug.Stack()).
					Msg("request panicked")
				response.Abort(c, http.StatusInternalServerError, response.CodeInternal, "Internal server error")
				return
			}

			if len(c.Errors) > 0 {
				for _, err := range c.Errors {
					logRequest(c, start, zerolog.ErrorLevel).Err(err.Err).Msg("request error")
				}
				return
			}
			if c.Writer.Status() >= http.StatusInternalServerError {
				logRequest(c, start, zerolog.ErrorLevel).Msg("request failed")
				return
			}
			logRequest(c, start, zerolog.DebugLevel).Msg("request")
		}()

		c.Next()
	}
}

func logRequest(c *gin.Context, start time.Time, level zerolog.Level) *zerolog.Event {
	ev := logger.Logger.WithLevel(level).
		Int("status", c.Writer.Status()).
		Str("method", c.Request.Method).
		Str("path", c.Request.URL.Path).
		Str("client_ip", c.ClientIP()).
		Str("request_id", c.GetString("request_id")).
		Dur("latency", time.Since(start))
	if id := c.GetInt64(CtxAdminID); id != 0 {
		ev = ev.Int64("admin_id", id)
	}
	return ev
}
