package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/asmil/asmil-api/internal/finance"
	"github.com/asmil/asmil-api/internal/middleware"
	"github.com/asmil/asmil-api/internal/service"
	appErrors "github.com/asmil/asmil-api/pkg/errors"
	"github.com/asmil/asmil-api/pkg/response"
)

type financeService interface {
	Overview(ctx context.Context, now time.Time) (*finance.Overview, bool, error)
	Stats(ctx context.Context, now time.Time) (*service.InvoiceStats, bool, error)
	Export(ctx context.Context, now time.Time, format service.ExportFormat) (*service.ExportFile, error)
}

// FinanceHandler serves the server-side financial aggregates.
type FinanceHandler struct {
	service financeService
	now     func() time.Time
}

// NewFinanceHandler constructs FinanceHandler; now supplies the reference instant in the institute's timezone.
func NewFinanceHandler(svc financeService, now func() time.Time) *FinanceHandler {
	if now == nil {
		now = time.Now
	}
	return &FinanceHandler{service: svc, now: now}
}

// Overview godoc
// @Summary Finance overview
// @Description Totals, monthly revenue with trend, six-month series, forecast, top formations, unpaid invoices and method breakdown.
// @Tags Finance
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /finance/overview [get]
func (h *FinanceHandler) Overview(c *gin.Context) {
	start := time.Now()
	overview, cacheHit, err := h.service.Overview(c.Request.Context(), h.now())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, overview, nil, responseMeta(c, cacheHit, start))
}

// Stats godoc
// @Summary Invoice statistics
// @Tags Invoices
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /invoices/stats [get]
func (h *FinanceHandler) Stats(c *gin.Context) {
	start := time.Now()
	stats, cacheHit, err := h.service.Stats(c.Request.Context(), h.now())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats, nil, responseMeta(c, cacheHit, start))
}

// Export godoc
// @Summary Export the finance overview
// @Tags Finance
// @Produce octet-stream
// @Param format query string false "csv, pdf or xlsx" default(csv)
// @Success 200 {file} file
// @Router /finance/overview/export [get]
func (h *FinanceHandler) Export(c *gin.Context) {
	format, err := exportFormat(c.DefaultQuery("format", string(service.ExportFormatCSV)))
	if err != nil {
		response.Error(c, err)
		return
	}
	file, err := h.service.Export(c.Request.Context(), h.now(), format)
	if err != nil {
		response.Error(c, err)
		return
	}
	sendFile(c, file)
}

func exportFormat(raw string) (service.ExportFormat, error) {
	switch format := service.ExportFormat(strings.ToLower(strings.TrimSpace(raw))); format {
	case service.ExportFormatCSV, service.ExportFormatPDF, service.ExportFormatXLSX:
		return format, nil
	default:
		return "", appErrors.Clone(appErrors.ErrValidation, "format must be csv, pdf or xlsx")
	}
}

func responseMeta(c *gin.Context, cacheHit bool, start time.Time) map[string]interface{} {
	middleware.SetCacheHit(c, cacheHit)
	meta := middleware.ExtractMeta(c)
	if meta == nil {
		meta = map[string]interface{}{
			"cache_hit":          cacheHit,
			"processing_time_ms": time.Since(start).Milliseconds(),
		}
	}
	return meta
}
