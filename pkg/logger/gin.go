package logger

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const headerRequestID = "X-Request-Id"

// Probes and scrapes would drown the request log at INFO.
var quietPaths = map[string]bool{
	"/healthz": true,
	"/metrics": true,
}

// Middleware tags each request with a request_id (taken from X-Request-Id or
// generated), puts the tagged logger on the request context and logs one
// summary line per request.
//
// Levels: 5xx or handler errors ERROR, 4xx WARN, probes DEBUG, rest INFO.
func Middleware(l *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		rid := c.GetHeader(headerRequestID)
		if rid == "" {
			rid = uuid.NewString()
		}
		c.Writer.Header().Set(headerRequestID, rid)

		reqLogger := l.With("request_id", rid)
		c.Request = c.Request.WithContext(With(c.Request.Context(), reqLogger))

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		status := c.Writer.Status()

		attrs := []any{
			"method", c.Request.Method,
			"path", path,
			"status", status,
			"client_ip", c.ClientIP(),
			"duration_ms", float64(time.Since(start).Microseconds()) / 1000,
		}
		if len(c.Errors) > 0 {
			attrs = append(attrs, "errors", c.Errors.String())
		}

		// Handlers downstream of auth replace the context logger with one
		// carrying user_id; prefer it for the summary.
		out := From(c.Request.Context())
		switch {
		case len(c.Errors) > 0 || status >= 500:
			out.Error("request", attrs...)
		case status >= 400:
			out.Warn("request", attrs...)
		case quietPaths[path]:
			out.Debug("request", attrs...)
		default:
			out.Info("request", attrs...)
		}
	}
}
