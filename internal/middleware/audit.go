package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/asmil/asmil-api/internal/models"
)

// AuditWriter persists audit trail entries.
type AuditWriter interface {
	Create(ctx context.Context, entry *models.AuditLog) error
}

// Audit records an entry after every successful mutating request on the group it is mounted on.
func Audit(writer AuditWriter, logger *zap.Logger, resource string) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *gin.Context) {
		action := auditAction(c.Request.Method)
		if action == "" || writer == nil {
			c.Next()
			return
		}

		start := time.Now().UTC()
		c.Next()

		status := c.Writer.Status()
		if status >= http.StatusBadRequest || c.IsAborted() {
			return
		}

		entry := &models.AuditLog{
			Action:    action,
			Resource:  resource,
			IPAddress: c.ClientIP(),
			UserAgent: c.GetHeader("User-Agent"),
		}
		if claims, ok := Claims(c); ok {
			userID := claims.UserID
			userName := claims.FullName
			entry.UserID = &userID
			entry.UserName = &userName
		}
		if id := c.Param("id"); id != "" {
			entry.ResourceID = &id
		}
		entry.Details, _ = json.Marshal(map[string]interface{}{
			"path":       c.FullPath(),
			"method":     c.Request.Method,
			"status":     status,
			"latency_ms": time.Since(start).Milliseconds(),
		})

		if err := writer.Create(c.Request.Context(), entry); err != nil {
			logger.Warn("audit log write failed", zap.String("resource", entry.Resource), zap.Error(err))
		}
	}
}

func auditAction(method string) string {
	switch method {
	case http.MethodPost:
		return models.AuditActionCreate
	case http.MethodPut, http.MethodPatch:
		return models.AuditActionUpdate
	case http.MethodDelete:
		return models.AuditActionDelete
	default:
		return ""
	}
}
