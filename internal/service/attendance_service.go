package service

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/asmil/asmil-api/internal/models"
	appErrors "github.com/asmil/asmil-api/pkg/errors"
)

type attendanceRepository interface {
	List(ctx context.Context, filter models.AttendanceFilter) ([]models.Attendance, int, error)
	FindByID(ctx context.Context, id string) (*models.Attendance, error)
	Upsert(ctx context.Context, row *models.Attendance) error
	UpsertBatch(ctx context.Context, tx *sqlx.Tx, rows []models.Attendance) error
	Update(ctx context.Context, row *models.Attendance) error
	Delete(ctx context.Context, id string) error
}

// AttendanceRequest records the presence of one enrollment on one day.
type AttendanceRequest struct {
	EnrollmentID string                  `json:"enrollment_id" validate:"required"`
	Date         time.Time               `json:"date" validate:"required"`
	Status       models.AttendanceStatus `json:"status" validate:"required,oneof=présent absent retard excusé"`
	Notes        string                  `json:"notes"`
}

// BulkAttendanceRequest records a whole roll call in one transaction.
type BulkAttendanceRequest struct {
	Records []AttendanceRequest `json:"records" validate:"required,min=1,dive"`
}

// AttendanceService manages attendance records.
type AttendanceService struct {
	attendance  attendanceRepository
	enrollments enrollmentLookup
	tx          TxRunner
	cache       aggregateInvalidator
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewAttendanceService constructs an AttendanceService.
func NewAttendanceService(attendance attendanceRepository, enrollments enrollmentLookup, tx TxRunner, cache aggregateInvalidator, validate *validator.Validate, logger *zap.Logger) *AttendanceService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AttendanceService{attendance: attendance, enrollments: enrollments, tx: tx, cache: orNoop(cache), validator: validate, logger: logger}
}

// List returns attendance rows.
func (s *AttendanceService) List(ctx context.Context, filter models.AttendanceFilter) ([]models.Attendance, *models.Pagination, error) {
	items, total, err := s.attendance.List(ctx, filter)
	if err != nil {
		return nil, nil, internalError(err, "failed to list attendance")
	}
	return items, paginationFor(filter.Page, filter.PageSize, total), nil
}

// Get returns one attendance row.
func (s *AttendanceService) Get(ctx context.Context, id string) (*models.Attendance, error) {
	row, err := s.attendance.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "attendance not found", "failed to load attendance")
	}
	return row, nil
}

func toAttendance(req AttendanceRequest) models.Attendance {
	return models.Attendance{
		EnrollmentID: req.EnrollmentID,
		Date:         req.Date,
		Status:       req.Status,
		Notes:        strPtr(req.Notes),
	}
}

// Create records attendance; an existing row for the same enrollment and day is overwritten.
func (s *AttendanceService) Create(ctx context.Context, req AttendanceRequest) (*models.Attendance, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid attendance payload")
	}
	if _, err := s.enrollments.FindByID(ctx, req.EnrollmentID); err != nil {
		return nil, lookupError(err, "enrollment not found", "failed to load enrollment")
	}
	row := toAttendance(req)
	if err := s.attendance.Upsert(ctx, &row); err != nil {
		return nil, internalError(err, "failed to record attendance")
	}
	s.cache.InvalidateAggregates(ctx)
	return &row, nil
}

// BulkCreate records every row or none.
func (s *AttendanceService) BulkCreate(ctx context.Context, req BulkAttendanceRequest) ([]models.Attendance, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid attendance payload")
	}
	seen := make(map[string]struct{}, len(req.Records))
	rows := make([]models.Attendance, 0, len(req.Records))
	for _, record := range req.Records {
		key := record.EnrollmentID + "|" + record.Date.Format("2006-01-02")
		if _, dup := seen[key]; dup {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("duplicate attendance for enrollment %s on %s", record.EnrollmentID, record.Date.Format("2006-01-02")))
		}
		seen[key] = struct{}{}
		rows = append(rows, toAttendance(record))
	}
	if err := s.tx(ctx, func(tx *sqlx.Tx) error {
		return s.attendance.UpsertBatch(ctx, tx, rows)
	}); err != nil {
		return nil, internalError(err, "failed to record attendance")
	}
	s.cache.InvalidateAggregates(ctx)
	return rows, nil
}

// Update edits one attendance row.
func (s *AttendanceService) Update(ctx context.Context, id string, req AttendanceRequest) (*models.Attendance, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid attendance payload")
	}
	row, err := s.attendance.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "attendance not found", "failed to load attendance")
	}
	row.Date = req.Date
	row.Status = req.Status
	row.Notes = strPtr(req.Notes)
	if err := s.attendance.Update(ctx, row); err != nil {
		return nil, internalError(err, "failed to update attendance")
	}
	s.cache.InvalidateAggregates(ctx)
	return row, nil
}

// Delete removes an attendance row.
func (s *AttendanceService) Delete(ctx context.Context, id string) error {
	if err := s.attendance.Delete(ctx, id); err != nil {
		return lookupError(err, "attendance not found", "failed to delete attendance")
	}
	s.cache.InvalidateAggregates(ctx)
	return nil
}
