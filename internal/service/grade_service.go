package service

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/asmil/asmil-api/internal/models"
	appErrors "github.com/asmil/asmil-api/pkg/errors"
)

type gradeRepository interface {
	List(ctx context.Context, filter models.GradeFilter) ([]models.Grade, int, error)
	FindByID(ctx context.Context, id string) (*models.Grade, error)
	Create(ctx context.Context, grade *models.Grade) error
	Update(ctx context.Context, grade *models.Grade) error
	Delete(ctx context.Context, id string) error
}

// GradeRequest is the payload for recording an evaluation result.
type GradeRequest struct {
	EnrollmentID   string          `json:"enrollment_id" validate:"required"`
	EvaluationName string          `json:"evaluation_name" validate:"required"`
	Value          decimal.Decimal `json:"value"`
	MaxValue       decimal.Decimal `json:"max_value"`
	Weight         decimal.Decimal `json:"weight"`
	Date           *time.Time      `json:"date"`
}

// GradeService manages grades of enrollments.
type GradeService struct {
	grades      gradeRepository
	enrollments enrollmentLookup
	validator   *validator.Validate
	logger      *zap.Logger
	now         func() time.Time
}

// NewGradeService constructs a GradeService.
func NewGradeService(grades gradeRepository, enrollments enrollmentLookup, validate *validator.Validate, logger *zap.Logger) *GradeService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GradeService{grades: grades, enrollments: enrollments, validator: validate, logger: logger, now: time.Now}
}

// List returns grades, optionally for one enrollment.
func (s *GradeService) List(ctx context.Context, filter models.GradeFilter) ([]models.Grade, *models.Pagination, error) {
	items, total, err := s.grades.List(ctx, filter)
	if err != nil {
		return nil, nil, internalError(err, "failed to list grades")
	}
	return items, paginationFor(filter.Page, filter.PageSize, total), nil
}

// Get returns one grade.
func (s *GradeService) Get(ctx context.Context, id string) (*models.Grade, error) {
	grade, err := s.grades.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "grade not found", "failed to load grade")
	}
	return grade, nil
}

func (s *GradeService) prepare(ctx context.Context, req GradeRequest) (GradeRequest, error) {
	if err := s.validator.Struct(req); err != nil {
		return req, validationError(err, "invalid grade payload")
	}
	if req.MaxValue.IsZero() {
		req.MaxValue = decimal.NewFromInt(20)
	}
	if req.Weight.IsZero() {
		req.Weight = decimal.NewFromInt(1)
	}
	switch {
	case !req.MaxValue.IsPositive():
		return req, appErrors.Clone(appErrors.ErrValidation, "max_value must be greater than zero")
	case req.Weight.IsNegative():
		return req, appErrors.Clone(appErrors.ErrValidation, "weight must not be negative")
	case req.Value.IsNegative():
		return req, appErrors.Clone(appErrors.ErrValidation, "value must not be negative")
	case req.Value.GreaterThan(req.MaxValue):
		return req, appErrors.Clone(appErrors.ErrValidation, "value must not exceed max_value")
	}
	if _, err := s.enrollments.FindByID(ctx, req.EnrollmentID); err != nil {
		return req, lookupError(err, "enrollment not found", "failed to load enrollment")
	}
	return req, nil
}

func applyGradeRequest(grade *models.Grade, req GradeRequest, now time.Time) {
	grade.EnrollmentID = req.EnrollmentID
	grade.EvaluationName = req.EvaluationName
	grade.Value = req.Value
	grade.MaxValue = req.MaxValue
	grade.Weight = req.Weight
	if req.Date != nil {
		grade.Date = *req.Date
	} else if grade.Date.IsZero() {
		grade.Date = now
	}
}

// Create records a grade.
func (s *GradeService) Create(ctx context.Context, req GradeRequest) (*models.Grade, error) {
	req, err := s.prepare(ctx, req)
	if err != nil {
		return nil, err
	}
	grade := &models.Grade{}
	applyGradeRequest(grade, req, s.now())
	if err := s.grades.Create(ctx, grade); err != nil {
		return nil, internalError(err, "failed to create grade")
	}
	return grade, nil
}

// Update edits a grade.
func (s *GradeService) Update(ctx context.Context, id string, req GradeRequest) (*models.Grade, error) {
	req, err := s.prepare(ctx, req)
	if err != nil {
		return nil, err
	}
	grade, err := s.grades.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "grade not found", "failed to load grade")
	}
	applyGradeRequest(grade, req, s.now())
	if err := s.grades.Update(ctx, grade); err != nil {
		return nil, internalError(err, "failed to update grade")
	}
	return grade, nil
}

// Delete removes a grade.
func (s *GradeService) Delete(ctx context.Context, id string) error {
	if err := s.grades.Delete(ctx, id); err != nil {
		return lookupError(err, "grade not found", "failed to delete grade")
	}
	return nil
}
