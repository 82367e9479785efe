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

type memoryGrades struct {
	items map[string]models.Grade
}

func (m *memoryGrades) List(context.Context, models.GradeFilter) ([]models.Grade, int, error) {
	out := make([]models.Grade, 0, len(m.items))
	for _, item := range m.items {
		out = append(out, item)
	}
	return out, len(out), nil
}

func (m *memoryGrades) FindByID(_ context.Context, id string) (*models.Grade, error) {
	item, ok := m.items[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &item, nil
}

func (m *memoryGrades) Create(_ context.Context, grade *models.Grade) error {
	grade.ID = "g-new"
	m.items[grade.ID] = *grade
	return nil
}

func (m *memoryGrades) Update(_ context.Context, grade *models.Grade) error {
	m.items[grade.ID] = *grade
	return nil
}

func (m *memoryGrades) Delete(_ context.Context, id string) error {
	if _, ok := m.items[id]; !ok {
		return sql.ErrNoRows
	}
	delete(m.items, id)
	return nil
}

func newGradeFixture() (*GradeService, *memoryGrades) {
	repo := &memoryGrades{items: map[string]models.Grade{}}
	enrollments := &fakeEnrollmentLookup{items: map[string]models.EnrollmentDetail{"e1": {Enrollment: models.Enrollment{ID: "e1"}}}}
	svc := NewGradeService(repo, enrollments, nil, nil)
	svc.now = func() time.Time { return time.Date(2024, time.June, 3, 0, 0, 0, 0, time.UTC) }
	return svc, repo
}

func TestGradeCreateAppliesDefaults(t *testing.T) {
	svc, _ := newGradeFixture()

	grade, err := svc.Create(context.Background(), GradeRequest{EnrollmentID: "e1", EvaluationName: "Examen final", Value: decimal.NewFromInt(14)})
	require.NoError(t, err)
	assert.Equal(t, "20", grade.MaxValue.String())
	assert.Equal(t, "1", grade.Weight.String())
	assert.Equal(t, "2024-06-03", grade.Date.Format("2006-01-02"))
}

func TestGradeCreateRejections(t *testing.T) {
	svc, _ := newGradeFixture()
	ctx := context.Background()

	cases := map[string]GradeRequest{
		"above max":       {EnrollmentID: "e1", EvaluationName: "QCM", Value: decimal.NewFromInt(12), MaxValue: decimal.NewFromInt(10)},
		"negative value":  {EnrollmentID: "e1", EvaluationName: "QCM", Value: decimal.NewFromInt(-1)},
		"negative max":    {EnrollmentID: "e1", EvaluationName: "QCM", Value: decimal.NewFromInt(1), MaxValue: decimal.NewFromInt(-5)},
		"negative weight": {EnrollmentID: "e1", EvaluationName: "QCM", Value: decimal.NewFromInt(1), Weight: decimal.NewFromInt(-1)},
		"missing name":    {EnrollmentID: "e1", Value: decimal.NewFromInt(1)},
	}
	for name, req := range cases {
		_, err := svc.Create(ctx, req)
		assert.True(t, errors.Is(err, appErrors.ErrValidation), name)
	}

	_, err := svc.Create(ctx, GradeRequest{EnrollmentID: "ghost", EvaluationName: "QCM", Value: decimal.NewFromInt(1)})
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}

func TestGradeUpdateAndDelete(t *testing.T) {
	svc, repo := newGradeFixture()
	ctx := context.Background()
	repo.items["g1"] = models.Grade{ID: "g1", EnrollmentID: "e1", EvaluationName: "QCM", Value: decimal.NewFromInt(5), MaxValue: decimal.NewFromInt(10), Weight: decimal.NewFromInt(1)}

	grade, err := svc.Update(ctx, "g1", GradeRequest{EnrollmentID: "e1", EvaluationName: "QCM", Value: decimal.NewFromInt(8), MaxValue: decimal.NewFromInt(10), Weight: decimal.NewFromInt(2)})
	require.NoError(t, err)
	assert.Equal(t, "8", grade.Value.String())
	assert.Equal(t, "2", grade.Weight.String())

	require.NoError(t, svc.Delete(ctx, "g1"))
	assert.True(t, errors.Is(svc.Delete(ctx, "g1"), appErrors.ErrNotFound))
}
