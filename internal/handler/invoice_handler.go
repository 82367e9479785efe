package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/asmil/asmil-api/internal/models"
	"github.com/asmil/asmil-api/internal/service"
	"github.com/asmil/asmil-api/pkg/response"
)

type invoiceService interface {
	List(ctx context.Context, filter models.InvoiceFilter) ([]models.InvoiceView, *models.Pagination, error)
	Get(ctx context.Context, id string) (*models.InvoiceView, error)
	Create(ctx context.Context, req service.InvoiceRequest) (*models.Invoice, error)
	Update(ctx context.Context, id string, req service.InvoiceRequest) (*models.InvoiceView, error)
	Delete(ctx context.Context, id string) error
}

// InvoiceHandler exposes invoice endpoints; statuses in responses are derived from payments.
type InvoiceHandler struct {
	service invoiceService
}

// NewInvoiceHandler constructs InvoiceHandler.
func NewInvoiceHandler(svc invoiceService) *InvoiceHandler {
	return &InvoiceHandler{service: svc}
}

// List godoc
// @Summary List invoices
// @Tags Invoices
// @Produce json
// @Param enrollment_id query string false "Enrollment"
// @Param student_id query string false "Student"
// @Param status query string false "payée, partielle, impayée or en retard"
// @Param search query string false "Invoice number or student name"
// @Success 200 {object} map[string]interface{}
// @Router /invoices [get]
func (h *InvoiceHandler) List(c *gin.Context) {
	filter := models.InvoiceFilter{
		EnrollmentID: c.Query("enrollment_id"),
		StudentID:    c.Query("student_id"),
		Search:       strings.TrimSpace(c.Query("search")),
		Status:       models.InvoiceStatus(c.Query("status")),
	}
	filter.Page, filter.PageSize = pageParams(c)

	invoices, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Collection(c, "invoices", invoices, pagination)
}

// Get godoc
// @Summary Get invoice
// @Tags Invoices
// @Produce json
// @Param id path string true "Invoice ID"
// @Success 200 {object} map[string]models.InvoiceView
// @Router /invoices/{id} [get]
func (h *InvoiceHandler) Get(c *gin.Context) {
	invoice, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Item(c, http.StatusOK, "invoice", invoice)
}

// Create godoc
// @Summary Create invoice
// @Tags Invoices
// @Accept json
// @Produce json
// @Param payload body service.InvoiceRequest true "Invoice payload"
// @Success 201 {object} map[string]models.Invoice
// @Router /invoices [post]
func (h *InvoiceHandler) Create(c *gin.Context) {
	var req service.InvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidPayload(c, err)
		return
	}
	invoice, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, "invoice", invoice)
}

// Update godoc
// @Summary Update invoice
// @Tags Invoices
// @Accept json
// @Produce json
// @Param id path string true "Invoice ID"
// @Param payload body service.InvoiceRequest true "Invoice payload"
// @Success 200 {object} map[string]models.InvoiceView
// @Router /invoices/{id} [put]
func (h *InvoiceHandler) Update(c *gin.Context) {
	var req service.InvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidPayload(c, err)
		return
	}
	invoice, err := h.service.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Item(c, http.StatusOK, "invoice", invoice)
}

// Delete godoc
// @Summary Delete invoice
// @Tags Invoices
// @Param id path string true "Invoice ID"
// @Success 204
// @Router /invoices/{id} [delete]
func (h *InvoiceHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
