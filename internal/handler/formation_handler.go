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

type formationService interface {
	List(ctx context.Context, filter models.FormationFilter) ([]models.Formation, *models.Pagination, error)
	Get(ctx context.Context, id string) (*models.Formation, error)
	Create(ctx context.Context, req service.FormationRequest) (*models.Formation, error)
	Update(ctx context.Context, id string, req service.FormationRequest) (*models.Formation, error)
	Delete(ctx context.Context, id string) error
	ListModules(ctx context.Context, filter models.ModuleFilter) ([]models.Module, *models.Pagination, error)
	GetModule(ctx context.Context, id string) (*models.Module, error)
	CreateModule(ctx context.Context, req service.ModuleRequest) (*models.Module, error)
	UpdateModule(ctx context.Context, id string, req service.ModuleRequest) (*models.Module, error)
	DeleteModule(ctx context.Context, id string) error
}

// FormationHandler serves formations and their modules.
type FormationHandler struct {
	service formationService
}

// NewFormationHandler constructs FormationHandler.
func NewFormationHandler(svc formationService) *FormationHandler {
	return &FormationHandler{service: svc}
}

// List godoc
// @Summary List formations
// @Tags Formations
// @Produce json
// @Param search query string false "Title search"
// @Param type query string false "certifiante, diplomante or service"
// @Success 200 {object} map[string]interface{}
// @Router /formations [get]
func (h *FormationHandler) List(c *gin.Context) {
	var filter models.FormationFilter
	filter.Search = strings.TrimSpace(c.Query("search"))
	filter.Type = models.FormationType(c.Query("type"))
	filter.Page, filter.PageSize = pageParams(c)

	formations, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Collection(c, "formations", formations, pagination)
}

// Get godoc
// @Summary Get formation
// @Tags Formations
// @Produce json
// @Param id path string true "Formation ID"
// @Success 200 {object} map[string]models.Formation
// @Router /formations/{id} [get]
func (h *FormationHandler) Get(c *gin.Context) {
	formation, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Item(c, http.StatusOK, "formation", formation)
}

// Create godoc
// @Summary Create formation
// @Tags Formations
// @Accept json
// @Produce json
// @Param payload body service.FormationRequest true "Formation payload"
// @Success 201 {object} map[string]models.Formation
// @Router /formations [post]
func (h *FormationHandler) Create(c *gin.Context) {
	var req service.FormationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidPayload(c, err)
		return
	}
	formation, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, "formation", formation)
}

// Update godoc
// @Summary Update formation
// @Tags Formations
// @Accept json
// @Produce json
// @Param id path string true "Formation ID"
// @Param payload body service.FormationRequest true "Formation payload"
// @Success 200 {object} map[string]models.Formation
// @Router /formations/{id} [put]
func (h *FormationHandler) Update(c *gin.Context) {
	var req service.FormationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidPayload(c, err)
		return
	}
	formation, err := h.service.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Item(c, http.StatusOK, "formation", formation)
}

// Delete godoc
// @Summary Delete formation
// @Tags Formations
// @Param id path string true "Formation ID"
// @Success 204
// @Router /formations/{id} [delete]
func (h *FormationHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// FormationModules godoc
// @Summary Modules of a formation
// @Tags Formations
// @Produce json
// @Param id path string true "Formation ID"
// @Success 200 {object} map[string]interface{}
// @Router /formations/{id}/modules [get]
func (h *FormationHandler) FormationModules(c *gin.Context) {
	filter := models.ModuleFilter{FormationID: c.Param("id")}
	filter.Page, filter.PageSize = pageParams(c)
	h.listModules(c, filter)
}

// ListModules godoc
// @Summary List modules
// @Tags Modules
// @Produce json
// @Param formation_id query string false "Formation ID"
// @Success 200 {object} map[string]interface{}
// @Router /modules [get]
func (h *FormationHandler) ListModules(c *gin.Context) {
	filter := models.ModuleFilter{FormationID: c.Query("formation_id")}
	filter.Page, filter.PageSize = pageParams(c)
	h.listModules(c, filter)
}

func (h *FormationHandler) listModules(c *gin.Context, filter models.ModuleFilter) {
	modules, pagination, err := h.service.ListModules(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Collection(c, "modules", modules, pagination)
}

// GetModule godoc
// @Summary Get module
// @Tags Modules
// @Produce json
// @Param id path string true "Module ID"
// @Success 200 {object} map[string]models.Module
// @Router /modules/{id} [get]
func (h *FormationHandler) GetModule(c *gin.Context) {
	module, err := h.service.GetModule(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Item(c, http.StatusOK, "module", module)
}

// CreateModule godoc
// @Summary Create module
// @Tags Modules
// @Accept json
// @Produce json
// @Param payload body service.ModuleRequest true "Module payload"
// @Success 201 {object} map[string]models.Module
// @Router /modules [post]
func (h *FormationHandler) CreateModule(c *gin.Context) {
	var req service.ModuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidPayload(c, err)
		return
	}
	module, err := h.service.CreateModule(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, "module", module)
}

// UpdateModule godoc
// @Summary Update module
// @Tags Modules
// @Accept json
// @Produce json
// @Param id path string true "Module ID"
// @Param payload body service.ModuleRequest true "Module payload"
// @Success 200 {object} map[string]models.Module
// @Router /modules/{id} [put]
func (h *FormationHandler) UpdateModule(c *gin.Context) {
	var req service.ModuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidPayload(c, err)
		return
	}
	module, err := h.service.UpdateModule(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Item(c, http.StatusOK, "module", module)
}

// DeleteModule godoc
// @Summary Delete module
// @Tags Modules
// @Param id path string true "Module ID"
// @Success 204
// @Router /modules/{id} [delete]
func (h *FormationHandler) DeleteModule(c *gin.Context) {
	if err := h.service.DeleteModule(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
