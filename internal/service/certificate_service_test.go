package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asmil/asmil-api/internal/models"
	appErrors "github.com/asmil/asmil-api/pkg/errors"
)

type memoryCertificates struct {
	items map[string]models.CertificateDetail
	valid bool
}

func (m *memoryCertificates) List(context.Context, models.CertificateFilter) ([]models.CertificateDetail, int, error) {
	out := make([]models.CertificateDetail, 0, len(m.items))
	for _, item := range m.items {
		out = append(out, item)
	}
	return out, len(out), nil
}

func (m *memoryCertificates) FindByID(_ context.Context, id string) (*models.CertificateDetail, error) {
	item, ok := m.items[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &item, nil
}

func (m *memoryCertificates) ExistsValid(context.Context, string, string) (bool, error) {
	return m.valid, nil
}

func (m *memoryCertificates) Create(_ context.Context, item *models.Certificate) error {
	item.ID = "cert-1"
	m.items[item.ID] = models.CertificateDetail{Certificate: *item, StudentName: "Awa Koné", FormationTitle: "Comptabilité"}
	return nil
}

func (m *memoryCertificates) Revoke(_ context.Context, id, reason string) error {
	item, ok := m.items[id]
	if !ok {
		return sql.ErrNoRows
	}
	item.Status = models.CertificateStatusRevoked
	item.RevokedReason = &reason
	m.items[id] = item
	return nil
}

type fakeFormationEnrollments []models.EnrollmentDetail

func (f fakeFormationEnrollments) ListByStudentAndFormation(context.Context, string, string) ([]models.EnrollmentDetail, error) {
	return f, nil
}

type fakeGrades []models.Grade

func (f fakeGrades) ListByEnrollments(context.Context, []string) ([]models.Grade, error) { return f, nil }

type fakeAttendanceByEnrollment []models.Attendance

func (f fakeAttendanceByEnrollment) ListByEnrollments(context.Context, []string) ([]models.Attendance, error) {
	return f, nil
}

func newCertificateFixture(enrollments fakeFormationEnrollments) (*CertificateService, *memoryCertificates) {
	repo := &memoryCertificates{items: map[string]models.CertificateDetail{}}
	svc := NewCertificateService(CertificateServiceParams{
		Certificates: repo,
		Enrollments:  enrollments,
		Grades: fakeGrades{
			{Value: decimal.NewFromInt(15), MaxValue: decimal.NewFromInt(20), Weight: decimal.NewFromInt(1)},
			{Value: decimal.NewFromInt(8), MaxValue: decimal.NewFromInt(10), Weight: decimal.NewFromInt(2)},
		},
		Attendance: fakeAttendanceByEnrollment{
			{Status: models.AttendanceStatusPresent},
			{Status: models.AttendanceStatusPresent},
			{Status: models.AttendanceStatusLate},
			{Status: models.AttendanceStatusAbsent},
		},
		Sequences:    &fakeSequences{},
		Organisation: "ASMiL",
	})
	svc.now = func() time.Time { return time.Date(2024, time.July, 1, 10, 0, 0, 0, time.UTC) }
	return svc, repo
}

func twoEnrollments() fakeFormationEnrollments {
	return fakeFormationEnrollments{
		{Enrollment: models.Enrollment{ID: "e1"}, StudentName: "Awa Koné", FormationTitle: "Comptabilité"},
		{Enrollment: models.Enrollment{ID: "e2"}, StudentName: "Awa Koné", FormationTitle: "Comptabilité"},
	}
}

func TestCertificateIssueComputesResults(t *testing.T) {
	svc, _ := newCertificateFixture(twoEnrollments())

	view, err := svc.Issue(context.Background(), IssueCertificateRequest{StudentID: "st1", FormationID: "f1"})
	require.NoError(t, err)
	assert.Equal(t, "CERT-2024-00001", view.CertificateNumber)
	assert.Equal(t, "15.67", view.Grade.String())
	assert.Equal(t, "75", view.AttendanceRate.String())
	assert.Equal(t, "Bien", view.Mention)
	assert.Equal(t, models.CertificateStatusValid, view.Status)
	require.NotNil(t, view.EnrollmentID)
	assert.Equal(t, "e2", *view.EnrollmentID)
	assert.Equal(t, "Comptabilité", view.FormationTitle)
}

func TestCertificateIssueRejections(t *testing.T) {
	ctx := context.Background()

	svc, repo := newCertificateFixture(twoEnrollments())
	repo.valid = true
	_, err := svc.Issue(ctx, IssueCertificateRequest{StudentID: "st1", FormationID: "f1"})
	assert.True(t, errors.Is(err, appErrors.ErrConflict))

	svc, _ = newCertificateFixture(nil)
	_, err = svc.Issue(ctx, IssueCertificateRequest{StudentID: "st1", FormationID: "f1"})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	_, err = svc.Issue(ctx, IssueCertificateRequest{StudentID: "st1"})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}

func TestCertificateRevokeAndPrint(t *testing.T) {
	svc, _ := newCertificateFixture(twoEnrollments())
	ctx := context.Background()

	view, err := svc.Issue(ctx, IssueCertificateRequest{StudentID: "st1", FormationID: "f1"})
	require.NoError(t, err)

	_, err = svc.Revoke(ctx, view.ID, RevokeCertificateRequest{})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	revoked, err := svc.Revoke(ctx, view.ID, RevokeCertificateRequest{Reason: "  fraude  "})
	require.NoError(t, err)
	assert.Equal(t, models.CertificateStatusRevoked, revoked.Status)
	require.NotNil(t, revoked.RevokedReason)
	assert.Equal(t, "fraude", *revoked.RevokedReason)

	file, err := svc.PDF(ctx, view.ID)
	require.NoError(t, err)
	assert.Equal(t, "CERT-2024-00001.pdf", file.Filename)
	assert.Equal(t, "application/pdf", file.ContentType)
	assert.True(t, len(file.Data) > 4 && string(file.Data[:4]) == "%PDF")

	_, err = svc.Revoke(ctx, "missing", RevokeCertificateRequest{Reason: "x"})
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}
