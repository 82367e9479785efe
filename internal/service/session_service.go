package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/asmil/asmil-api/internal/dto"
	"github.com/asmil/asmil-api/internal/models"
	appErrors "github.com/asmil/asmil-api/pkg/errors"
)

type sessionRepository interface {
	List(ctx context.Context, filter models.SessionFilter) ([]models.SessionDetail, int, error)
	ListAll(ctx context.Context, filter models.SessionFilter) ([]models.SessionDetail, error)
	FindByID(ctx context.Context, id string) (*models.SessionDetail, error)
	Create(ctx context.Context, session *models.Session) error
	Update(ctx context.Context, session *models.Session) error
	Delete(ctx context.Context, id string) error
}

type moduleLookup interface {
	FindByID(ctx context.Context, id string) (*models.Module, error)
}

type teacherLookup interface {
	FindByID(ctx context.Context, id string) (*models.Teacher, error)
}

// SessionRequest is the payload for creating or updating sessions.
type SessionRequest struct {
	ModuleID  string                `json:"module_id" validate:"required"`
	TeacherID string                `json:"teacher_id"`
	Room      string                `json:"room" validate:"required"`
	Schedule  []models.ScheduleSlot `json:"schedule" validate:"dive"`
	StartDate time.Time             `json:"start_date" validate:"required"`
	EndDate   time.Time             `json:"end_date" validate:"required"`
	Capacity  int                   `json:"capacity" validate:"gte=0"`
	Status    models.SessionStatus  `json:"status" validate:"omitempty,oneof='à venir' 'en cours' terminée"`
}

// TimetableFilter narrows the weekly timetable.
type TimetableFilter struct {
	Room      string
	TeacherID string
}

// SessionService manages sessions, room booking and the timetable.
type SessionService struct {
	sessions  sessionRepository
	modules   moduleLookup
	teachers  teacherLookup
	cache     aggregateInvalidator
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewSessionService constructs a SessionService.
func NewSessionService(sessions sessionRepository, modules moduleLookup, teachers teacherLookup, cache aggregateInvalidator, validate *validator.Validate, logger *zap.Logger) *SessionService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionService{
		sessions:  sessions,
		modules:   modules,
		teachers:  teachers,
		cache:     orNoop(cache),
		validator: validate,
		logger:    logger,
		now:       time.Now,
	}
}

// List returns sessions with pagination.
func (s *SessionService) List(ctx context.Context, filter models.SessionFilter) ([]models.SessionDetail, *models.Pagination, error) {
	items, total, err := s.sessions.List(ctx, filter)
	if err != nil {
		return nil, nil, internalError(err, "failed to list sessions")
	}
	return items, paginationFor(filter.Page, filter.PageSize, total), nil
}

// Get returns a session by id.
func (s *SessionService) Get(ctx context.Context, id string) (*models.SessionDetail, error) {
	session, err := s.sessions.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "session not found", "failed to load session")
	}
	return session, nil
}

// StatusAt derives the lifecycle status of a session spanning [start, end] at now.
func StatusAt(start, end, now time.Time) models.SessionStatus {
	day := now.Format("2006-01-02")
	switch {
	case day < start.Format("2006-01-02"):
		return models.SessionStatusUpcoming
	case day > end.Format("2006-01-02"):
		return models.SessionStatusFinished
	default:
		return models.SessionStatusRunning
	}
}

func (s *SessionService) validate(ctx context.Context, req SessionRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return validationError(err, "invalid session payload")
	}
	if req.EndDate.Before(req.StartDate) {
		return appErrors.Clone(appErrors.ErrValidation, "end_date must not precede start_date")
	}
	for i, slot := range req.Schedule {
		start, end, _ := slot.Minutes()
		if end <= start {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("schedule slot %d ends before it starts", i+1))
		}
		for _, other := range req.Schedule[i+1:] {
			if slot.Overlaps(other) {
				return appErrors.Clone(appErrors.ErrValidation, "schedule slots overlap")
			}
		}
	}
	if _, err := s.modules.FindByID(ctx, req.ModuleID); err != nil {
		return lookupError(err, "module not found", "failed to load module")
	}
	if req.TeacherID != "" {
		if _, err := s.teachers.FindByID(ctx, req.TeacherID); err != nil {
			return lookupError(err, "teacher not found", "failed to load teacher")
		}
	}
	return nil
}

// FindRoomConflict returns the first session other than excludeID that books the same room
// on an overlapping slot during an overlapping date range.
func FindRoomConflict(candidate models.Session, others []models.SessionDetail, excludeID string) *models.SessionDetail {
	for i := range others {
		other := others[i]
		if other.ID == excludeID || !strings.EqualFold(other.Room, candidate.Room) {
			continue
		}
		if other.Status == models.SessionStatusFinished {
			continue
		}
		if candidate.StartDate.After(other.EndDate) || other.StartDate.After(candidate.EndDate) {
			continue
		}
		for _, a := range candidate.Schedule {
			for _, b := range other.Schedule {
				if a.Overlaps(b) {
					return &other
				}
			}
		}
	}
	return nil
}

func (s *SessionService) checkRoom(ctx context.Context, session models.Session) error {
	if session.Status == models.SessionStatusFinished || len(session.Schedule) == 0 {
		return nil
	}
	others, err := s.sessions.ListAll(ctx, models.SessionFilter{Room: session.Room})
	if err != nil {
		return internalError(err, "failed to check room availability")
	}
	if conflict := FindRoomConflict(session, others, session.ID); conflict != nil {
		return appErrors.Clone(appErrors.ErrRoomConflict, fmt.Sprintf("room %s is already booked by %s", session.Room, conflict.ModuleTitle))
	}
	return nil
}

func (s *SessionService) applyRequest(session *models.Session, req SessionRequest) {
	session.ModuleID = req.ModuleID
	session.TeacherID = strPtr(req.TeacherID)
	session.Room = strings.TrimSpace(req.Room)
	session.Schedule = make(models.Schedule, 0, len(req.Schedule))
	for _, slot := range req.Schedule {
		session.Schedule = append(session.Schedule, slot.Normalized())
	}
	session.StartDate = req.StartDate
	session.EndDate = req.EndDate
	session.Capacity = req.Capacity
	session.Status = req.Status
	if session.Status == "" {
		session.Status = StatusAt(req.StartDate, req.EndDate, s.now())
	}
}

// Create schedules a session after checking the room is free.
func (s *SessionService) Create(ctx context.Context, req SessionRequest) (*models.Session, error) {
	if err := s.validate(ctx, req); err != nil {
		return nil, err
	}
	session := &models.Session{}
	s.applyRequest(session, req)
	if err := s.checkRoom(ctx, *session); err != nil {
		return nil, err
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, internalError(err, "failed to create session")
	}
	s.cache.InvalidateAggregates(ctx)
	return session, nil
}

// Update modifies a session after checking the room is free.
func (s *SessionService) Update(ctx context.Context, id string, req SessionRequest) (*models.Session, error) {
	if err := s.validate(ctx, req); err != nil {
		return nil, err
	}
	detail, err := s.sessions.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "session not found", "failed to load session")
	}
	session := detail.Session
	s.applyRequest(&session, req)
	if err := s.checkRoom(ctx, session); err != nil {
		return nil, err
	}
	if err := s.sessions.Update(ctx, &session); err != nil {
		return nil, internalError(err, "failed to update session")
	}
	s.cache.InvalidateAggregates(ctx)
	return &session, nil
}

// Delete removes a session.
func (s *SessionService) Delete(ctx context.Context, id string) error {
	if err := s.sessions.Delete(ctx, id); err != nil {
		return lookupError(err, "session not found", "failed to delete session")
	}
	s.cache.InvalidateAggregates(ctx)
	return nil
}

// Timetable returns the weekly slots of running and upcoming sessions grouped by day, Monday first.
func (s *SessionService) Timetable(ctx context.Context, filter TimetableFilter) ([]dto.TimetableDay, error) {
	sessions, err := s.sessions.ListAll(ctx, models.SessionFilter{
		Room:      filter.Room,
		TeacherID: filter.TeacherID,
		Statuses:  []models.SessionStatus{models.SessionStatusRunning, models.SessionStatusUpcoming},
	})
	if err != nil {
		return nil, internalError(err, "failed to load timetable")
	}
	return BuildTimetable(sessions), nil
}

// BuildTimetable groups session slots per weekday; days without slots are kept empty.
func BuildTimetable(sessions []models.SessionDetail) []dto.TimetableDay {
	byDay := make(map[string][]dto.SessionSlot, len(models.WeekDays))
	for _, session := range sessions {
		for _, slot := range session.Schedule {
			byDay[slot.Day] = append(byDay[slot.Day], dto.SessionSlot{
				SessionID:      session.ID,
				ModuleTitle:    session.ModuleTitle,
				FormationTitle: session.FormationTitle,
				TeacherName:    session.TeacherName,
				Room:           session.Room,
				StartTime:      slot.StartTime,
				EndTime:        slot.EndTime,
			})
		}
	}
	days := make([]dto.TimetableDay, 0, len(models.WeekDays))
	for _, day := range models.WeekDays {
		slots := byDay[day]
		if slots == nil {
			slots = []dto.SessionSlot{}
		}
		sort.SliceStable(slots, func(i, j int) bool {
			a, _ := models.ClockMinutes(slots[i].StartTime)
			b, _ := models.ClockMinutes(slots[j].StartTime)
			return a < b
		})
		days = append(days, dto.TimetableDay{Day: day, Slots: slots})
	}
	return days
}
