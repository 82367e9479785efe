package service

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/asmil/asmil-api/internal/models"
	"github.com/asmil/asmil-api/internal/repository"
	appErrors "github.com/asmil/asmil-api/pkg/errors"
)

type studentRepository interface {
	List(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.StudentDetail, error)
	ExistsByEmail(ctx context.Context, email string, excludeID string) (bool, error)
	Create(ctx context.Context, student *models.Student) error
	Update(ctx context.Context, student *models.Student) error
	UpdatePhoto(ctx context.Context, id, url string) error
	Delete(ctx context.Context, id string) error
}

type imageStore interface {
	Store(folder, owner string, data []byte) (string, error)
	Remove(publicURL string)
}

// StudentRequest holds the payload for creating or updating students.
type StudentRequest struct {
	FirstName      string               `json:"first_name" validate:"required"`
	LastName       string               `json:"last_name" validate:"required"`
	DateOfBirth    *time.Time           `json:"date_of_birth"`
	Gender         string               `json:"gender" validate:"omitempty,oneof=M F"`
	Email          string               `json:"email" validate:"omitempty,email"`
	PhoneParent    string               `json:"phone_parent"`
	Address        string               `json:"address"`
	Status         models.StudentStatus `json:"status" validate:"omitempty,oneof=actif inactif diplômé"`
	FormationID    string               `json:"formation_id"`
	EnrollmentDate *time.Time           `json:"enrollment_date"`
}

// StudentService handles student use-cases.
type StudentService struct {
	repo      studentRepository
	sequences sequenceGenerator
	images    imageStore
	cache     aggregateInvalidator
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewStudentService constructs the student service.
func NewStudentService(repo studentRepository, sequences sequenceGenerator, images imageStore, cache aggregateInvalidator, validate *validator.Validate, logger *zap.Logger) *StudentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentService{repo: repo, sequences: sequences, images: images, cache: orNoop(cache), validator: validate, logger: logger, now: time.Now}
}

// List returns students and pagination metadata.
func (s *StudentService) List(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, *models.Pagination, error) {
	students, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, internalError(err, "failed to list students")
	}
	return students, paginationFor(filter.Page, filter.PageSize, total), nil
}

// Get returns detailed student information.
func (s *StudentService) Get(ctx context.Context, id string) (*models.StudentDetail, error) {
	student, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "student not found", "failed to load student")
	}
	return student, nil
}

func (s *StudentService) checkEmail(ctx context.Context, email, excludeID string) error {
	if email == "" {
		return nil
	}
	exists, err := s.repo.ExistsByEmail(ctx, email, excludeID)
	if err != nil {
		return internalError(err, "failed to validate email")
	}
	if exists {
		return appErrors.Clone(appErrors.ErrConflict, "email already used by another student")
	}
	return nil
}

func applyStudentRequest(student *models.Student, req StudentRequest) {
	student.FirstName = req.FirstName
	student.LastName = req.LastName
	student.DateOfBirth = req.DateOfBirth
	student.Gender = req.Gender
	student.Email = strPtr(req.Email)
	student.PhoneParent = strPtr(req.PhoneParent)
	student.Address = strPtr(req.Address)
	student.FormationID = strPtr(req.FormationID)
	if req.Status != "" {
		student.Status = req.Status
	}
	if req.EnrollmentDate != nil {
		student.EnrollmentDate = *req.EnrollmentDate
	}
}

// Create registers a new student with the next ASM-YYYY-NNNN number.
func (s *StudentService) Create(ctx context.Context, req StudentRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid student payload")
	}
	if err := s.checkEmail(ctx, req.Email, ""); err != nil {
		return nil, err
	}
	year := s.now().Year()
	seq, err := s.sequences.Next(ctx, repository.SequenceStudent, year)
	if err != nil {
		return nil, internalError(err, "failed to allocate registration number")
	}
	student := &models.Student{
		RegistrationNumber: formatNumber(studentNumberFormat, year, seq),
		Status:             models.StudentStatusActive,
	}
	applyStudentRequest(student, req)
	if err := s.repo.Create(ctx, student); err != nil {
		return nil, internalError(err, "failed to create student")
	}
	s.cache.InvalidateAggregates(ctx)
	return student, nil
}

// Update modifies an existing student record.
func (s *StudentService) Update(ctx context.Context, id string, req StudentRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid student payload")
	}
	detail, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "student not found", "failed to load student")
	}
	if err := s.checkEmail(ctx, req.Email, id); err != nil {
		return nil, err
	}
	student := detail.Student
	applyStudentRequest(&student, req)
	if err := s.repo.Update(ctx, &student); err != nil {
		return nil, internalError(err, "failed to update student")
	}
	s.cache.InvalidateAggregates(ctx)
	return &student, nil
}

// Delete removes a student.
func (s *StudentService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return lookupError(err, "student not found", "failed to delete student")
	}
	s.cache.InvalidateAggregates(ctx)
	return nil
}

// UploadPhoto stores a new photo for the student and returns its URL.
func (s *StudentService) UploadPhoto(ctx context.Context, id string, data []byte) (string, error) {
	detail, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return "", lookupError(err, "student not found", "failed to load student")
	}
	url, err := s.images.Store("students", id, data)
	if err != nil {
		return "", err
	}
	if err := s.repo.UpdatePhoto(ctx, id, url); err != nil {
		s.images.Remove(url)
		return "", internalError(err, "failed to save student photo")
	}
	if detail.PhotoURL != nil {
		s.images.Remove(*detail.PhotoURL)
	}
	return url, nil
}
