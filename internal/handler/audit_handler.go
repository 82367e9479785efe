package handler

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/asmil/asmil-api/internal/models"
	"github.com/asmil/asmil-api/internal/service"
	"github.com/asmil/asmil-api/pkg/response"
)

type auditService interface {
	List(ctx context.Context, filter models.AuditFilter) ([]models.AuditLog, *models.Pagination, error)
	Export(ctx context.Context, filter models.AuditFilter) (*service.ExportFile, error)
}

// AuditHandler serves the audit log viewer.
type AuditHandler struct {
	service auditService
}

// NewAuditHandler constructs AuditHandler.
func NewAuditHandler(svc auditService) *AuditHandler {
	return &AuditHandler{service: svc}
}

// List godoc
// @Summary List audit log entries
// @Tags Audit
// @Produce json
// @Param user_id query string false "User"
// @Param resource query string false "Resource"
// @Param action query string false "Action"
// @Param from query string false "From (YYYY-MM-DD)"
// @Param to query string false "To (YYYY-MM-DD)"
// @Success 200 {object} map[string]interface{}
// @Router /audit-logs [get]
func (h *AuditHandler) List(c *gin.Context) {
	filter, err := auditFilter(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	logs, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Collection(c, "audit_logs", logs, pagination)
}

// Export godoc
// @Summary Export audit log as CSV
// @Tags Audit
// @Produce text/csv
// @Success 200 {file} file
// @Router /audit-logs/export [get]
func (h *AuditHandler) Export(c *gin.Context) {
	filter, err := auditFilter(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	file, err := h.service.Export(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	sendFile(c, file)
}

func auditFilter(c *gin.Context) (models.AuditFilter, error) {
	filter := models.AuditFilter{
		UserID:   c.Query("user_id"),
		Resource: strings.TrimSpace(c.Query("resource")),
		Action:   strings.ToUpper(strings.TrimSpace(c.Query("action"))),
	}
	var err error
	if filter.From, err = dateQuery(c, "from"); err != nil {
		return filter, err
	}
	if filter.To, err = dateQuery(c, "to"); err != nil {
		return filter, err
	}
	filter.Page, filter.PageSize = pageParams(c)
	return filter, nil
}
