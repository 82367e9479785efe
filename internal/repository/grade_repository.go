package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/asmil/asmil-api/internal/models"
)

const gradeColumns = `id, enrollment_id, evaluation_name, value, max_value, weight, date, created_at, updated_at`

// GradeRepository persists evaluation results.
type GradeRepository struct {
	db *sqlx.DB
}

// NewGradeRepository constructs a GradeRepository.
func NewGradeRepository(db *sqlx.DB) *GradeRepository {
	return &GradeRepository{db: db}
}

// List returns grades, optionally for one enrollment.
func (r *GradeRepository) List(ctx context.Context, filter models.GradeFilter) ([]models.Grade, int, error) {
	var cond conditions
	if filter.EnrollmentID != "" {
		cond.add("enrollment_id = " + cond.bind(filter.EnrollmentID))
	}
	limit, offset := paginate(filter.Page, filter.PageSize)

	query := fmt.Sprintf("SELECT %s FROM grades%s ORDER BY date DESC LIMIT %d OFFSET %d", gradeColumns, cond.where(), limit, offset)
	grades := make([]models.Grade, 0)
	if err := r.db.SelectContext(ctx, &grades, query, cond.args...); err != nil {
		return nil, 0, fmt.Errorf("list grades: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM grades"+cond.where(), cond.args...); err != nil {
		return nil, 0, fmt.Errorf("count grades: %w", err)
	}
	return grades, total, nil
}

// ListByEnrollments returns every grade of the given enrollments.
func (r *GradeRepository) ListByEnrollments(ctx context.Context, enrollmentIDs []string) ([]models.Grade, error) {
	grades := make([]models.Grade, 0)
	if len(enrollmentIDs) == 0 {
		return grades, nil
	}
	query := "SELECT " + gradeColumns + " FROM grades WHERE enrollment_id = ANY($1) ORDER BY date"
	if err := r.db.SelectContext(ctx, &grades, query, pq.Array(enrollmentIDs)); err != nil {
		return nil, fmt.Errorf("list enrollment grades: %w", err)
	}
	return grades, nil
}

// FindByID returns a grade by id.
func (r *GradeRepository) FindByID(ctx context.Context, id string) (*models.Grade, error) {
	var grade models.Grade
	if err := r.db.GetContext(ctx, &grade, "SELECT "+gradeColumns+" FROM grades WHERE id = $1", id); err != nil {
		return nil, err
	}
	return &grade, nil
}

// Create inserts a grade.
func (r *GradeRepository) Create(ctx context.Context, grade *models.Grade) error {
	if grade.ID == "" {
		grade.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	grade.CreatedAt = now
	grade.UpdatedAt = now
	const query = `INSERT INTO grades (id, enrollment_id, evaluation_name, value, max_value, weight, date, created_at, updated_at)
        VALUES (:id, :enrollment_id, :evaluation_name, :value, :max_value, :weight, :date, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, grade); err != nil {
		return fmt.Errorf("create grade: %w", err)
	}
	return nil
}

// Update modifies a grade.
func (r *GradeRepository) Update(ctx context.Context, grade *models.Grade) error {
	grade.UpdatedAt = time.Now().UTC()
	const query = `UPDATE grades SET evaluation_name = :evaluation_name, value = :value, max_value = :max_value, weight = :weight, date = :date, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, grade); err != nil {
		return fmt.Errorf("update grade: %w", err)
	}
	return nil
}

// Delete removes a grade.
func (r *GradeRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM grades WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete grade: %w", err)
	}
	return expectAffected(res)
}
