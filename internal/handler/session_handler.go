package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/asmil/asmil-api/internal/dto"
	"github.com/asmil/asmil-api/internal/models"
	"github.com/asmil/asmil-api/internal/service"
	"github.com/asmil/asmil-api/pkg/response"
)

type sessionService interface {
	List(ctx context.Context, filter models.SessionFilter) ([]models.SessionDetail, *models.Pagination, error)
	Get(ctx context.Context, id string) (*models.SessionDetail, error)
	Create(ctx context.Context, req service.SessionRequest) (*models.Session, error)
	Update(ctx context.Context, id string, req service.SessionRequest) (*models.Session, error)
	Delete(ctx context.Context, id string) error
	Timetable(ctx context.Context, filter service.TimetableFilter) ([]dto.TimetableDay, error)
}

// SessionHandler exposes sessions and the weekly timetable.
type SessionHandler struct {
	service sessionService
}

// NewSessionHandler constructs SessionHandler.
func NewSessionHandler(svc sessionService) *SessionHandler {
	return &SessionHandler{service: svc}
}

// List godoc
// @Summary List sessions
// @Tags Sessions
// @Produce json
// @Param module_id query string false "Module"
// @Param teacher_id query string false "Teacher"
// @Param room query string false "Room"
// @Param status query string false "Comma separated statuses"
// @Success 200 {object} map[string]interface{}
// @Router /sessions [get]
func (h *SessionHandler) List(c *gin.Context) {
	filter := models.SessionFilter{
		ModuleID:  c.Query("module_id"),
		TeacherID: c.Query("teacher_id"),
		Room:      strings.TrimSpace(c.Query("room")),
	}
	for _, status := range strings.Split(c.Query("status"), ",") {
		if status = strings.TrimSpace(status); status != "" {
			filter.Statuses = append(filter.Statuses, models.SessionStatus(status))
		}
	}
	filter.Page, filter.PageSize = pageParams(c)

	sessions, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Collection(c, "sessions", sessions, pagination)
}

// Get godoc
// @Summary Get session
// @Tags Sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} map[string]models.SessionDetail
// @Router /sessions/{id} [get]
func (h *SessionHandler) Get(c *gin.Context) {
	session, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Item(c, http.StatusOK, "session", session)
}

// Create godoc
// @Summary Create session
// @Description Rejects schedules that double-book a room (409 ROOM_CONFLICT).
// @Tags Sessions
// @Accept json
// @Produce json
// @Param payload body service.SessionRequest true "Session payload"
// @Success 201 {object} map[string]models.Session
// @Failure 409 {object} response.Envelope
// @Router /sessions [post]
func (h *SessionHandler) Create(c *gin.Context) {
	var req service.SessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidPayload(c, err)
		return
	}
	session, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, "session", session)
}

// Update godoc
// @Summary Update session
// @Tags Sessions
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param payload body service.SessionRequest true "Session payload"
// @Success 200 {object} map[string]models.Session
// @Failure 409 {object} response.Envelope
// @Router /sessions/{id} [put]
func (h *SessionHandler) Update(c *gin.Context) {
	var req service.SessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidPayload(c, err)
		return
	}
	session, err := h.service.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Item(c, http.StatusOK, "session", session)
}

// Delete godoc
// @Summary Delete session
// @Tags Sessions
// @Param id path string true "Session ID"
// @Success 204
// @Router /sessions/{id} [delete]
func (h *SessionHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Timetable godoc
// @Summary Weekly timetable
// @Description Slots of running and upcoming sessions grouped by weekday.
// @Tags Sessions
// @Produce json
// @Param room query string false "Room"
// @Param teacher_id query string false "Teacher"
// @Success 200 {object} map[string][]dto.TimetableDay
// @Router /timetable [get]
func (h *SessionHandler) Timetable(c *gin.Context) {
	days, err := h.service.Timetable(c.Request.Context(), service.TimetableFilter{
		Room:      strings.TrimSpace(c.Query("room")),
		TeacherID: c.Query("teacher_id"),
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Item(c, http.StatusOK, "timetable", days)
}
