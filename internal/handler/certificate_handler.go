package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/asmil/asmil-api/internal/models"
	"github.com/asmil/asmil-api/internal/service"
	"github.com/asmil/asmil-api/pkg/response"
)

type certificateService interface {
	List(ctx context.Context, filter models.CertificateFilter) ([]service.CertificateView, *models.Pagination, error)
	Get(ctx context.Context, id string) (*service.CertificateView, error)
	Issue(ctx context.Context, req service.IssueCertificateRequest) (*service.CertificateView, error)
	Revoke(ctx context.Context, id string, req service.RevokeCertificateRequest) (*service.CertificateView, error)
	PDF(ctx context.Context, id string) (*service.ExportFile, error)
}

// CertificateHandler exposes certificate endpoints.
type CertificateHandler struct {
	service certificateService
}

// NewCertificateHandler constructs CertificateHandler.
func NewCertificateHandler(svc certificateService) *CertificateHandler {
	return &CertificateHandler{service: svc}
}

// List godoc
// @Summary List certificates
// @Tags Certificates
// @Produce json
// @Param student_id query string false "Student"
// @Param formation_id query string false "Formation"
// @Param status query string false "valide or révoqué"
// @Success 200 {object} map[string]interface{}
// @Router /certificates [get]
func (h *CertificateHandler) List(c *gin.Context) {
	filter := models.CertificateFilter{
		StudentID:   c.Query("student_id"),
		FormationID: c.Query("formation_id"),
		Status:      models.CertificateStatus(c.Query("status")),
	}
	filter.Page, filter.PageSize = pageParams(c)

	certificates, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Collection(c, "certificates", certificates, pagination)
}

// Get godoc
// @Summary Get certificate
// @Tags Certificates
// @Produce json
// @Param id path string true "Certificate ID"
// @Success 200 {object} map[string]service.CertificateView
// @Router /certificates/{id} [get]
func (h *CertificateHandler) Get(c *gin.Context) {
	certificate, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Item(c, http.StatusOK, "certificate", certificate)
}

// Issue godoc
// @Summary Issue certificate
// @Description Final grade and attendance rate are computed from the student's enrollment in the formation.
// @Tags Certificates
// @Accept json
// @Produce json
// @Param payload body service.IssueCertificateRequest true "Certificate payload"
// @Success 201 {object} map[string]service.CertificateView
// @Router /certificates [post]
func (h *CertificateHandler) Issue(c *gin.Context) {
	var req service.IssueCertificateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidPayload(c, err)
		return
	}
	certificate, err := h.service.Issue(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, "certificate", certificate)
}

// Revoke godoc
// @Summary Revoke certificate
// @Tags Certificates
// @Accept json
// @Produce json
// @Param id path string true "Certificate ID"
// @Param payload body service.RevokeCertificateRequest true "Reason"
// @Success 200 {object} map[string]service.CertificateView
// @Router /certificates/{id}/revoke [post]
func (h *CertificateHandler) Revoke(c *gin.Context) {
	var req service.RevokeCertificateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidPayload(c, err)
		return
	}
	certificate, err := h.service.Revoke(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Item(c, http.StatusOK, "certificate", certificate)
}

// PDF godoc
// @Summary Download certificate PDF
// @Tags Certificates
// @Produce application/pdf
// @Param id path string true "Certificate ID"
// @Success 200 {file} file
// @Router /certificates/{id}/pdf [get]
func (h *CertificateHandler) PDF(c *gin.Context) {
	file, err := h.service.PDF(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	sendFile(c, file)
}
