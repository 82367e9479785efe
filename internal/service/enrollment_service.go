package service

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/asmil/asmil-api/internal/models"
	"github.com/asmil/asmil-api/internal/repository"
	appErrors "github.com/asmil/asmil-api/pkg/errors"
)

type enrollmentRepository interface {
	List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.EnrollmentDetail, error)
	ExistsActive(ctx context.Context, studentID, sessionID string) (bool, error)
	CreateTx(ctx context.Context, tx *sqlx.Tx, item *models.Enrollment) error
	Update(ctx context.Context, item *models.Enrollment) error
	Delete(ctx context.Context, id string) error
}

type txSequenceGenerator interface {
	NextTx(ctx context.Context, tx *sqlx.Tx, name string, year int) (int, error)
}

type invoiceWriter interface {
	CreateTx(ctx context.Context, tx *sqlx.Tx, invoice *models.Invoice) error
}

type studentLookup interface {
	FindByID(ctx context.Context, id string) (*models.StudentDetail, error)
}

type sessionLookup interface {
	FindByID(ctx context.Context, id string) (*models.SessionDetail, error)
}

type sessionFormationLookup interface {
	FormationOfSession(ctx context.Context, sessionID string) (*models.Formation, error)
}

// EnrollmentRequest is the payload to enroll a student into a session.
type EnrollmentRequest struct {
	StudentID      string                  `json:"student_id" validate:"required"`
	SessionID      string                  `json:"session_id" validate:"required"`
	Status         models.EnrollmentStatus `json:"status" validate:"omitempty,oneof='en attente' actif terminé annulé"`
	EnrollmentDate *time.Time              `json:"enrollment_date"`
}

// EnrollmentUpdateRequest changes the status or date of an enrollment.
type EnrollmentUpdateRequest struct {
	Status         models.EnrollmentStatus `json:"status" validate:"required,oneof='en attente' actif terminé annulé"`
	EnrollmentDate *time.Time              `json:"enrollment_date"`
}

// EnrollmentResult returns the created enrollment with its opening invoice.
type EnrollmentResult struct {
	Enrollment models.Enrollment `json:"enrollment"`
	Invoice    models.Invoice    `json:"invoice"`
}

// EnrollmentServiceParams groups the collaborators of EnrollmentService.
type EnrollmentServiceParams struct {
	Enrollments    enrollmentRepository
	Invoices       invoiceWriter
	Sequences      txSequenceGenerator
	Students       studentLookup
	Sessions       sessionLookup
	Formations     sessionFormationLookup
	Tx             TxRunner
	Cache          aggregateInvalidator
	Validator      *validator.Validate
	Logger         *zap.Logger
	InvoiceDueDays int
}

// EnrollmentService registers students into sessions and opens their invoice.
type EnrollmentService struct {
	enrollments enrollmentRepository
	invoices    invoiceWriter
	sequences   txSequenceGenerator
	students    studentLookup
	sessions    sessionLookup
	formations  sessionFormationLookup
	tx          TxRunner
	cache       aggregateInvalidator
	validator   *validator.Validate
	logger      *zap.Logger
	dueDays     int
	now         func() time.Time
}

// NewEnrollmentService constructs an EnrollmentService.
func NewEnrollmentService(p EnrollmentServiceParams) *EnrollmentService {
	if p.Validator == nil {
		p.Validator = validator.New()
	}
	if p.Logger == nil {
		p.Logger = zap.NewNop()
	}
	if p.InvoiceDueDays <= 0 {
		p.InvoiceDueDays = 30
	}
	return &EnrollmentService{
		enrollments: p.Enrollments,
		invoices:    p.Invoices,
		sequences:   p.Sequences,
		students:    p.Students,
		sessions:    p.Sessions,
		formations:  p.Formations,
		tx:          p.Tx,
		cache:       orNoop(p.Cache),
		validator:   p.Validator,
		logger:      p.Logger,
		dueDays:     p.InvoiceDueDays,
		now:         time.Now,
	}
}

// List returns enrollments with pagination.
func (s *EnrollmentService) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, *models.Pagination, error) {
	items, total, err := s.enrollments.List(ctx, filter)
	if err != nil {
		return nil, nil, internalError(err, "failed to list enrollments")
	}
	return items, paginationFor(filter.Page, filter.PageSize, total), nil
}

// Get returns one enrollment.
func (s *EnrollmentService) Get(ctx context.Context, id string) (*models.EnrollmentDetail, error) {
	item, err := s.enrollments.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "enrollment not found", "failed to load enrollment")
	}
	return item, nil
}

// Enroll creates the enrollment and its FAC invoice in one transaction.
// The invoice amount is the formation's registration plus tuition fee.
func (s *EnrollmentService) Enroll(ctx context.Context, req EnrollmentRequest) (*EnrollmentResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid enrollment payload")
	}
	if _, err := s.students.FindByID(ctx, req.StudentID); err != nil {
		return nil, lookupError(err, "student not found", "failed to load student")
	}
	session, err := s.sessions.FindByID(ctx, req.SessionID)
	if err != nil {
		return nil, lookupError(err, "session not found", "failed to load session")
	}
	if session.Status == models.SessionStatusFinished {
		return nil, appErrors.Clone(appErrors.ErrValidation, "session is already finished")
	}
	exists, err := s.enrollments.ExistsActive(ctx, req.StudentID, req.SessionID)
	if err != nil {
		return nil, internalError(err, "failed to check enrollment")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "student already enrolled in this session")
	}
	formation, err := s.formations.FormationOfSession(ctx, req.SessionID)
	if err != nil {
		return nil, lookupError(err, "formation not found for session", "failed to load formation")
	}

	now := s.now()
	status := req.Status
	if status == "" {
		status = models.EnrollmentStatusActive
	}
	amount := formation.TotalFee()
	enrollment := models.Enrollment{
		StudentID:   req.StudentID,
		SessionID:   req.SessionID,
		Status:      status,
		TotalAmount: amount,
		PaidAmount:  decimal.Zero,
	}
	if req.EnrollmentDate != nil {
		enrollment.EnrollmentDate = *req.EnrollmentDate
	}
	due := now.AddDate(0, 0, s.dueDays)
	studentID := req.StudentID
	invoice := models.Invoice{
		StudentID: &studentID,
		Amount:    amount,
		DueDate:   &due,
		Status:    models.InvoiceStatusUnpaid,
	}

	err = s.tx(ctx, func(tx *sqlx.Tx) error {
		if err := s.enrollments.CreateTx(ctx, tx, &enrollment); err != nil {
			return err
		}
		seq, err := s.sequences.NextTx(ctx, tx, repository.SequenceInvoice, now.Year())
		if err != nil {
			return err
		}
		invoice.EnrollmentID = enrollment.ID
		invoice.InvoiceNumber = formatNumber(invoiceNumberFormat, now.Year(), seq)
		return s.invoices.CreateTx(ctx, tx, &invoice)
	})
	if err != nil {
		return nil, internalError(err, "failed to create enrollment")
	}
	s.logger.Info("student enrolled",
		zap.String("enrollment_id", enrollment.ID),
		zap.String("invoice_number", invoice.InvoiceNumber),
		zap.String("amount", amount.StringFixed(2)),
	)
	s.cache.InvalidateAggregates(ctx)
	return &EnrollmentResult{Enrollment: enrollment, Invoice: invoice}, nil
}

// Update changes the enrollment status or date.
func (s *EnrollmentService) Update(ctx context.Context, id string, req EnrollmentUpdateRequest) (*models.Enrollment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid enrollment payload")
	}
	detail, err := s.enrollments.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "enrollment not found", "failed to load enrollment")
	}
	enrollment := detail.Enrollment
	enrollment.Status = req.Status
	if req.EnrollmentDate != nil {
		enrollment.EnrollmentDate = *req.EnrollmentDate
	}
	if err := s.enrollments.Update(ctx, &enrollment); err != nil {
		return nil, internalError(err, "failed to update enrollment")
	}
	s.cache.InvalidateAggregates(ctx)
	return &enrollment, nil
}

// Delete removes an enrollment; invoices and payments cascade in the database.
func (s *EnrollmentService) Delete(ctx context.Context, id string) error {
	if err := s.enrollments.Delete(ctx, id); err != nil {
		return lookupError(err, "enrollment not found", "failed to delete enrollment")
	}
	s.cache.InvalidateAggregates(ctx)
	return nil
}
