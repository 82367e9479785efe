package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/asmil/asmil-api/internal/dto"
	appErrors "github.com/asmil/asmil-api/pkg/errors"
	"github.com/asmil/asmil-api/pkg/response"
)

type dashboardService interface {
	Admin(ctx context.Context, now time.Time) (*dto.AdminDashboardResponse, bool, error)
	Secretary(ctx context.Context, now time.Time) (*dto.SecretaryDashboardResponse, bool, error)
}

// DashboardHandler wires dashboard service to HTTP endpoints.
type DashboardHandler struct {
	service dashboardService
	now     func() time.Time
}

// NewDashboardHandler constructs the handler.
func NewDashboardHandler(service dashboardService, now func() time.Time) *DashboardHandler {
	if now == nil {
		now = time.Now
	}
	return &DashboardHandler{service: service, now: now}
}

// Admin godoc
// @Summary Admin dashboard summary
// @Tags Dashboard
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /dashboard/admin [get]
func (h *DashboardHandler) Admin(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	start := time.Now()
	summary, cacheHit, err := h.service.Admin(c.Request.Context(), h.now())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil, responseMeta(c, cacheHit, start))
}

// Secretary godoc
// @Summary Secretary dashboard
// @Description Today's sessions, unpaid invoices, payments of the month and today's attendance.
// @Tags Dashboard
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /dashboard/secretary [get]
func (h *DashboardHandler) Secretary(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	start := time.Now()
	summary, cacheHit, err := h.service.Secretary(c.Request.Context(), h.now())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil, responseMeta(c, cacheHit, start))
}
