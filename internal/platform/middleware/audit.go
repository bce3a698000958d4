package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/medcore/hms/internal/platform/auth"
)

// AuditEntry describes one state-changing API call.
type AuditEntry struct {
	Timestamp  time.Time
	RequestID  string
	UserID     string
	Role       auth.Role
	Method     string
	Path       string
	Action     string
	StatusCode int
	RemoteIP   string
}

type AuditRecorder interface {
	RecordAccess(entry AuditEntry) error
}

type AuditRecorderFunc func(entry AuditEntry) error

func (f AuditRecorderFunc) RecordAccess(entry AuditEntry) error { return f(entry) }

var auditActions = map[string]string{
	http.MethodPost:   "create",
	http.MethodPut:    "update",
	http.MethodPatch:  "update",
	http.MethodDelete: "delete",
}

// Audit logs every write under /api/v1 with the caller's identity. Reads are
// not audited. Recorders receive the same entry; without any, the entry is
// only logged.
func Audit(logger zerolog.Logger, recorders ...AuditRecorder) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			action, write := auditActions[req.Method]
			if !write || !strings.HasPrefix(req.URL.Path, "/api/v1/") {
				return next(c)
			}

			err := next(c)

			status := c.Response().Status
			if he, ok := err.(*echo.HTTPError); ok {
				status = he.Code
			}
			rid, _ := c.Get(RequestIDKey).(string)
			entry := AuditEntry{
				Timestamp:  time.Now().UTC(),
				RequestID:  rid,
				UserID:     auth.UserIDFromContext(req.Context()),
				Role:       auth.RoleFromContext(req.Context()),
				Method:     req.Method,
				Path:       req.URL.Path,
				Action:     action,
				StatusCode: status,
				RemoteIP:   c.RealIP(),
			}

			for _, r := range recorders {
				if rerr := r.RecordAccess(entry); rerr != nil {
					logger.Warn().Err(rerr).Str("request_id", rid).Msg("audit recorder failed")
				}
			}
			logger.Info().
				Str("request_id", rid).
				Str("user_id", entry.UserID).
				Str("role", string(entry.Role)).
				Str("action", action).
				Str("path", entry.Path).
				Int("status", status).
				Msg("audit")

			return err
		}
	}
}
