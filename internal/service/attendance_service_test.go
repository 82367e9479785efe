package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asmil/asmil-api/internal/models"
	appErrors "github.com/asmil/asmil-api/pkg/errors"
)

type memoryAttendance struct {
	items    map[string]models.Attendance
	upserts  []models.Attendance
	batches  [][]models.Attendance
	batchErr error
}

func (m *memoryAttendance) List(context.Context, models.AttendanceFilter) ([]models.Attendance, int, error) {
	out := make([]models.Attendance, 0, len(m.items))
	for _, item := range m.items {
		out = append(out, item)
	}
	return out, len(out), nil
}

func (m *memoryAttendance) FindByID(_ context.Context, id string) (*models.Attendance, error) {
	item, ok := m.items[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &item, nil
}

func (m *memoryAttendance) Upsert(_ context.Context, row *models.Attendance) error {
	row.ID = "att-new"
	m.upserts = append(m.upserts, *row)
	return nil
}

func (m *memoryAttendance) UpsertBatch(_ context.Context, _ *sqlx.Tx, rows []models.Attendance) error {
	if m.batchErr != nil {
		return m.batchErr
	}
	m.batches = append(m.batches, rows)
	return nil
}

func (m *memoryAttendance) Update(_ context.Context, row *models.Attendance) error {
	m.items[row.ID] = *row
	return nil
}

func (m *memoryAttendance) Delete(_ context.Context, id string) error {
	if _, ok := m.items[id]; !ok {
		return sql.ErrNoRows
	}
	delete(m.items, id)
	return nil
}

func newAttendanceFixture() (*AttendanceService, *memoryAttendance, *countingInvalidator) {
	repo := &memoryAttendance{items: map[string]models.Attendance{}}
	enrollments := &fakeEnrollmentLookup{items: map[string]models.EnrollmentDetail{"e1": {Enrollment: models.Enrollment{ID: "e1"}}}}
	cache := &countingInvalidator{}
	return NewAttendanceService(repo, enrollments, fakeTx, cache, nil, nil), repo, cache
}

var rollCallDay = time.Date(2024, time.March, 11, 0, 0, 0, 0, time.UTC)

func TestAttendanceCreateUpserts(t *testing.T) {
	svc, repo, cache := newAttendanceFixture()

	row, err := svc.Create(context.Background(), AttendanceRequest{EnrollmentID: "e1", Date: rollCallDay, Status: models.AttendanceStatusLate})
	require.NoError(t, err)
	assert.Equal(t, "att-new", row.ID)
	assert.Len(t, repo.upserts, 1)
	assert.Equal(t, 1, cache.calls)

	_, err = svc.Create(context.Background(), AttendanceRequest{EnrollmentID: "e1", Date: rollCallDay, Status: "malade"})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	_, err = svc.Create(context.Background(), AttendanceRequest{EnrollmentID: "ghost", Date: rollCallDay, Status: models.AttendanceStatusAbsent})
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}

func TestAttendanceBulkCreate(t *testing.T) {
	svc, repo, cache := newAttendanceFixture()
	ctx := context.Background()

	rows, err := svc.BulkCreate(ctx, BulkAttendanceRequest{Records: []AttendanceRequest{
		{EnrollmentID: "e1", Date: rollCallDay, Status: models.AttendanceStatusPresent},
		{EnrollmentID: "e2", Date: rollCallDay, Status: models.AttendanceStatusAbsent, Notes: "malade"},
	}})
	require.NoError(t, err)
	assert.Len(t, rows, 2)
	require.Len(t, repo.batches, 1)
	assert.Len(t, repo.batches[0], 2)
	assert.Equal(t, 1, cache.calls)

	_, err = svc.BulkCreate(ctx, BulkAttendanceRequest{Records: []AttendanceRequest{
		{EnrollmentID: "e1", Date: rollCallDay, Status: models.AttendanceStatusPresent},
		{EnrollmentID: "e1", Date: rollCallDay.Add(3 * time.Hour), Status: models.AttendanceStatusAbsent},
	}})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	_, err = svc.BulkCreate(ctx, BulkAttendanceRequest{})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
	assert.Len(t, repo.batches, 1)
}

func TestAttendanceBulkCreateFailsAtomically(t *testing.T) {
	svc, repo, cache := newAttendanceFixture()
	repo.batchErr = errors.New("constraint violation")

	_, err := svc.BulkCreate(context.Background(), BulkAttendanceRequest{Records: []AttendanceRequest{
		{EnrollmentID: "e1", Date: rollCallDay, Status: models.AttendanceStatusPresent},
	}})
	assert.True(t, errors.Is(err, appErrors.ErrInternal))
	assert.Zero(t, cache.calls)
}
