package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asmil/asmil-api/internal/models"
	appErrors "github.com/asmil/asmil-api/pkg/errors"
)

type memoryEnrollments struct {
	fakeEnrollmentLookup
	active  bool
	created []*models.Enrollment
	updated []*models.Enrollment
	fail    error
}

func (m *memoryEnrollments) List(context.Context, models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error) {
	out := make([]models.EnrollmentDetail, 0, len(m.items))
	for _, item := range m.items {
		out = append(out, item)
	}
	return out, len(out), nil
}

func (m *memoryEnrollments) ExistsActive(context.Context, string, string) (bool, error) {
	return m.active, nil
}

func (m *memoryEnrollments) CreateTx(_ context.Context, _ *sqlx.Tx, item *models.Enrollment) error {
	if m.fail != nil {
		return m.fail
	}
	item.ID = "e-new"
	m.created = append(m.created, item)
	return nil
}

func (m *memoryEnrollments) Update(_ context.Context, item *models.Enrollment) error {
	m.updated = append(m.updated, item)
	return nil
}

func (m *memoryEnrollments) Delete(_ context.Context, id string) error {
	if _, ok := m.items[id]; !ok {
		return sql.ErrNoRows
	}
	return nil
}

type recordingInvoices struct {
	created []*models.Invoice
}

func (r *recordingInvoices) CreateTx(_ context.Context, _ *sqlx.Tx, invoice *models.Invoice) error {
	invoice.ID = "inv-new"
	r.created = append(r.created, invoice)
	return nil
}

type fakeStudentLookup map[string]models.StudentDetail

func (f fakeStudentLookup) FindByID(_ context.Context, id string) (*models.StudentDetail, error) {
	item, ok := f[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &item, nil
}

type fakeSessionLookup map[string]models.SessionDetail

func (f fakeSessionLookup) FindByID(_ context.Context, id string) (*models.SessionDetail, error) {
	item, ok := f[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &item, nil
}

type fakeSessionFormations struct{ formation models.Formation }

func (f fakeSessionFormations) FormationOfSession(context.Context, string) (*models.Formation, error) {
	return &f.formation, nil
}

type enrollmentFixture struct {
	svc         *EnrollmentService
	enrollments *memoryEnrollments
	invoices    *recordingInvoices
	cache       *countingInvalidator
}

func newEnrollmentFixture() enrollmentFixture {
	enrollments := &memoryEnrollments{fakeEnrollmentLookup: fakeEnrollmentLookup{items: map[string]models.EnrollmentDetail{
		"e1": {Enrollment: models.Enrollment{ID: "e1", Status: models.EnrollmentStatusPending}},
	}}}
	invoices := &recordingInvoices{}
	cache := &countingInvalidator{}
	svc := NewEnrollmentService(EnrollmentServiceParams{
		Enrollments: enrollments,
		Invoices:    invoices,
		Sequences:   &fakeSequences{values: map[string]int{"invoice": 41}},
		Students:    fakeStudentLookup{"st1": {Student: models.Student{ID: "st1"}}},
		Sessions: fakeSessionLookup{
			"open":   {Session: models.Session{ID: "open", Status: models.SessionStatusUpcoming}},
			"closed": {Session: models.Session{ID: "closed", Status: models.SessionStatusFinished}},
		},
		Formations: fakeSessionFormations{formation: models.Formation{
			ID: "f1", RegistrationFee: decimal.NewFromInt(25000), TuitionFee: decimal.NewFromInt(150000),
		}},
		Tx:             fakeTx,
		Cache:          cache,
		InvoiceDueDays: 15,
	})
	svc.now = func() time.Time { return time.Date(2024, time.September, 2, 9, 0, 0, 0, time.UTC) }
	return enrollmentFixture{svc: svc, enrollments: enrollments, invoices: invoices, cache: cache}
}

func TestEnrollOpensInvoice(t *testing.T) {
	f := newEnrollmentFixture()

	result, err := f.svc.Enroll(context.Background(), EnrollmentRequest{StudentID: "st1", SessionID: "open"})
	require.NoError(t, err)
	assert.Equal(t, "e-new", result.Enrollment.ID)
	assert.Equal(t, models.EnrollmentStatusActive, result.Enrollment.Status)
	assert.Equal(t, "175000", result.Enrollment.TotalAmount.String())
	assert.True(t, result.Enrollment.PaidAmount.IsZero())

	assert.Equal(t, "e-new", result.Invoice.EnrollmentID)
	assert.Equal(t, "FAC-2024-00042", result.Invoice.InvoiceNumber)
	assert.Equal(t, "175000", result.Invoice.Amount.String())
	assert.Equal(t, models.InvoiceStatusUnpaid, result.Invoice.Status)
	require.NotNil(t, result.Invoice.DueDate)
	assert.Equal(t, "2024-09-17", result.Invoice.DueDate.Format("2006-01-02"))
	require.NotNil(t, result.Invoice.StudentID)
	assert.Equal(t, "st1", *result.Invoice.StudentID)

	assert.Len(t, f.invoices.created, 1)
	assert.Equal(t, 1, f.cache.calls)
}

func TestEnrollRejections(t *testing.T) {
	ctx := context.Background()

	f := newEnrollmentFixture()
	_, err := f.svc.Enroll(ctx, EnrollmentRequest{StudentID: "ghost", SessionID: "open"})
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))

	_, err = f.svc.Enroll(ctx, EnrollmentRequest{StudentID: "st1", SessionID: "closed"})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	_, err = f.svc.Enroll(ctx, EnrollmentRequest{StudentID: "st1"})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	f.enrollments.active = true
	_, err = f.svc.Enroll(ctx, EnrollmentRequest{StudentID: "st1", SessionID: "open"})
	assert.True(t, errors.Is(err, appErrors.ErrConflict))
	assert.Empty(t, f.invoices.created)
	assert.Zero(t, f.cache.calls)
}

func TestEnrollRollsBackOnWriteFailure(t *testing.T) {
	f := newEnrollmentFixture()
	f.enrollments.fail = errors.New("insert failed")

	_, err := f.svc.Enroll(context.Background(), EnrollmentRequest{StudentID: "st1", SessionID: "open"})
	assert.True(t, errors.Is(err, appErrors.ErrInternal))
	assert.Empty(t, f.invoices.created)
}

func TestEnrollmentUpdateAndDelete(t *testing.T) {
	f := newEnrollmentFixture()
	ctx := context.Background()

	updated, err := f.svc.Update(ctx, "e1", EnrollmentUpdateRequest{Status: models.EnrollmentStatusCompleted})
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentStatusCompleted, updated.Status)

	_, err = f.svc.Update(ctx, "e1", EnrollmentUpdateRequest{Status: "unknown"})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	assert.True(t, errors.Is(f.svc.Delete(ctx, "missing"), appErrors.ErrNotFound))
	assert.NoError(t, f.svc.Delete(ctx, "e1"))
	assert.Equal(t, 2, f.cache.calls)
}
