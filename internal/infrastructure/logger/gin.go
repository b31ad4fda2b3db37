package logger

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const ginLoggerKey = "logger"

// AccessLog returns gin middleware that seeds the request with a scoped
// logger and emits one structured completion entry per request.
func AccessLog(base *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		reqLogger := base.With(
			zap.String("request_id", c.GetString("request_id")),
			zap.String("method", c.Request.Method),
			zap.String("path", path),
		)
		c.Set(ginLoggerKey, reqLogger)

		c.Next()

		status := c.Writer.Status()
		fields := []zap.Field{
			zap.Int("status", status),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
			zap.String("user_agent", c.Request.UserAgent()),
			zap.Int("body_size", c.Writer.Size()),
		}
		if query != "" {
			fields = append(fields, zap.String("query", query))
		}
		// The auth middlewares run after this one, so scope identifiers
		// only exist by the time the completion entry is written.
		if userID := c.GetString("jwt_user_id"); userID != "" {
			fields = append(fields, zap.String("user_id", userID))
		}
		if v, ok := c.Get("tenant_id"); ok {
			if id, ok := v.(uuid.UUID); ok && id != uuid.Nil {
				fields = append(fields, zap.String("tenant_id", id.String()))
			}
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.Strings("errors", c.Errors.Errors()))
		}

		logAtStatus(reqLogger, status, "request completed", fields)
	}
}

// logAtStatus picks the entry level from the response status: 5xx is an
// error on our side, 4xx is the client's problem.
func logAtStatus(l *zap.Logger, status int, msg string, fields []zap.Field) {
	switch {
	case status >= http.StatusInternalServerError:
		l.Error(msg, fields...)
	case status >= http.StatusBadRequest:
		l.Warn(msg, fields...)
	default:
		l.Info(msg, fields...)
	}
}

// Recovery converts handler panics into a 500 response and logs the stack
func Recovery(base *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}
			base.Error("Panic recovered",
				zap.String("request_id", c.GetString("request_id")),
				zap.String("method", c.Request.Method),
				zap.String("path", c.Request.URL.Path),
				zap.Any("panic", r),
				zap.Stack("stack"),
			)
			c.AbortWithStatus(http.StatusInternalServerError)
		}()
		c.Next()
	}
}

// RequestLogger returns the request-scoped logger seeded by AccessLog.
// Outside a request, or before the middleware ran, it falls back to a no-op
// logger so callers never need a nil check.
func RequestLogger(c *gin.Context) *zap.Logger {
	if v, ok := c.Get(ginLoggerKey); ok {
		if l, ok := v.(*zap.Logger); ok {
			return l
		}
	}
	return zap.NewNop()
}
