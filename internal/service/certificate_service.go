package service

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/asmil/asmil-api/internal/finance"
	"github.com/asmil/asmil-api/internal/models"
	"github.com/asmil/asmil-api/internal/repository"
	appErrors "github.com/asmil/asmil-api/pkg/errors"
	"github.com/asmil/asmil-api/pkg/export"
)

type certificateRepository interface {
	List(ctx context.Context, filter models.CertificateFilter) ([]models.CertificateDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.CertificateDetail, error)
	ExistsValid(ctx context.Context, studentID, formationID string) (bool, error)
	Create(ctx context.Context, item *models.Certificate) error
	Revoke(ctx context.Context, id, reason string) error
}

type formationEnrollments interface {
	ListByStudentAndFormation(ctx context.Context, studentID, formationID string) ([]models.EnrollmentDetail, error)
}

type gradesByEnrollment interface {
	ListByEnrollments(ctx context.Context, enrollmentIDs []string) ([]models.Grade, error)
}

type attendanceByEnrollment interface {
	ListByEnrollments(ctx context.Context, enrollmentIDs []string) ([]models.Attendance, error)
}

// IssueCertificateRequest asks for a certificate of a student for a formation.
type IssueCertificateRequest struct {
	StudentID   string     `json:"student_id" validate:"required"`
	FormationID string     `json:"formation_id" validate:"required"`
	IssueDate   *time.Time `json:"issue_date"`
}

// RevokeCertificateRequest carries the revocation reason.
type RevokeCertificateRequest struct {
	Reason string `json:"reason" validate:"required"`
}

// CertificateView is a certificate with its honours mention.
type CertificateView struct {
	models.CertificateDetail
	Mention string `json:"mention,omitempty"`
}

// CertificateServiceParams groups the collaborators of CertificateService.
type CertificateServiceParams struct {
	Certificates certificateRepository
	Enrollments  formationEnrollments
	Grades       gradesByEnrollment
	Attendance   attendanceByEnrollment
	Sequences    sequenceGenerator
	Validator    *validator.Validate
	Logger       *zap.Logger
	Organisation string
}

// CertificateService issues, revokes and prints certificates.
type CertificateService struct {
	certificates certificateRepository
	enrollments  formationEnrollments
	grades       gradesByEnrollment
	attendance   attendanceByEnrollment
	sequences    sequenceGenerator
	validator    *validator.Validate
	logger       *zap.Logger
	organisation string
	now          func() time.Time
}

// NewCertificateService constructs a CertificateService.
func NewCertificateService(p CertificateServiceParams) *CertificateService {
	if p.Validator == nil {
		p.Validator = validator.New()
	}
	if p.Logger == nil {
		p.Logger = zap.NewNop()
	}
	return &CertificateService{
		certificates: p.Certificates,
		enrollments:  p.Enrollments,
		grades:       p.Grades,
		attendance:   p.Attendance,
		sequences:    p.Sequences,
		validator:    p.Validator,
		logger:       p.Logger,
		organisation: p.Organisation,
		now:          time.Now,
	}
}

func certificateView(detail models.CertificateDetail) CertificateView {
	return CertificateView{CertificateDetail: detail, Mention: finance.Mention(detail.Grade)}
}

// List returns certificates with pagination.
func (s *CertificateService) List(ctx context.Context, filter models.CertificateFilter) ([]CertificateView, *models.Pagination, error) {
	items, total, err := s.certificates.List(ctx, filter)
	if err != nil {
		return nil, nil, internalError(err, "failed to list certificates")
	}
	views := make([]CertificateView, 0, len(items))
	for _, item := range items {
		views = append(views, certificateView(item))
	}
	return views, paginationFor(filter.Page, filter.PageSize, total), nil
}

// Get returns one certificate.
func (s *CertificateService) Get(ctx context.Context, id string) (*CertificateView, error) {
	detail, err := s.certificates.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "certificate not found", "failed to load certificate")
	}
	view := certificateView(*detail)
	return &view, nil
}

// Issue computes the final grade and attendance rate over every enrollment of the
// student in the formation and stores a CERT-YYYY-NNNNN certificate.
func (s *CertificateService) Issue(ctx context.Context, req IssueCertificateRequest) (*CertificateView, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid certificate payload")
	}
	exists, err := s.certificates.ExistsValid(ctx, req.StudentID, req.FormationID)
	if err != nil {
		return nil, internalError(err, "failed to check certificates")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "a valid certificate already exists for this formation")
	}
	enrollments, err := s.enrollments.ListByStudentAndFormation(ctx, req.StudentID, req.FormationID)
	if err != nil {
		return nil, internalError(err, "failed to load enrollments")
	}
	if len(enrollments) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "student has no enrollment in this formation")
	}
	ids := make([]string, 0, len(enrollments))
	for _, e := range enrollments {
		ids = append(ids, e.ID)
	}
	grades, err := s.grades.ListByEnrollments(ctx, ids)
	if err != nil {
		return nil, internalError(err, "failed to load grades")
	}
	records, err := s.attendance.ListByEnrollments(ctx, ids)
	if err != nil {
		return nil, internalError(err, "failed to load attendance")
	}

	issued := s.now()
	if req.IssueDate != nil {
		issued = *req.IssueDate
	}
	seq, err := s.sequences.Next(ctx, repository.SequenceCertificate, issued.Year())
	if err != nil {
		return nil, internalError(err, "failed to allocate certificate number")
	}
	latest := enrollments[len(enrollments)-1]
	enrollmentID := latest.ID
	cert := models.Certificate{
		StudentID:         req.StudentID,
		FormationID:       req.FormationID,
		EnrollmentID:      &enrollmentID,
		CertificateNumber: formatNumber(certificateNumberFormat, issued.Year(), seq),
		Grade:             finance.WeightedAverage(grades),
		AttendanceRate:    finance.AttendanceRate(records),
		IssueDate:         issued,
		Status:            models.CertificateStatusValid,
	}
	if err := s.certificates.Create(ctx, &cert); err != nil {
		return nil, internalError(err, "failed to create certificate")
	}
	s.logger.Info("certificate issued", zap.String("number", cert.CertificateNumber), zap.String("student_id", cert.StudentID))
	view := certificateView(models.CertificateDetail{
		Certificate:    cert,
		StudentName:    latest.StudentName,
		FormationTitle: latest.FormationTitle,
	})
	return &view, nil
}

// Revoke marks a certificate as revoked.
func (s *CertificateService) Revoke(ctx context.Context, id string, req RevokeCertificateRequest) (*CertificateView, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid revocation payload")
	}
	if err := s.certificates.Revoke(ctx, id, strings.TrimSpace(req.Reason)); err != nil {
		return nil, lookupError(err, "certificate not found", "failed to revoke certificate")
	}
	return s.Get(ctx, id)
}

// PDF renders the printable certificate.
func (s *CertificateService) PDF(ctx context.Context, id string) (*ExportFile, error) {
	view, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	data, err := export.RenderCertificate(export.CertificateDocument{
		Organisation:   s.organisation,
		Number:         view.CertificateNumber,
		StudentName:    view.StudentName,
		FormationTitle: view.FormationTitle,
		IssueDate:      view.IssueDate.Format("02/01/2006"),
		FinalGrade:     view.Grade.StringFixed(2) + " / 20",
		AttendanceRate: view.AttendanceRate.StringFixed(2) + " %",
		Mention:        view.Mention,
		Revoked:        view.Status == models.CertificateStatusRevoked,
	})
	if err != nil {
		return nil, internalError(err, "failed to render certificate")
	}
	return &ExportFile{
		Filename:    sanitizeFilename(view.CertificateNumber) + ".pdf",
		ContentType: "application/pdf",
		Data:        data,
	}, nil
}
