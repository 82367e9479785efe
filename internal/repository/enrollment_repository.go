package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/asmil/asmil-api/internal/models"
)

const enrollmentColumns = `id, student_id, session_id, status, total_amount, paid_amount, enrollment_date, created_at, updated_at`

const enrollmentDetailSelect = `SELECT e.id, e.student_id, e.session_id, e.status, e.total_amount, e.paid_amount, e.enrollment_date, e.created_at, e.updated_at,
        s.first_name || ' ' || s.last_name AS student_name, m.title AS module_title, f.id AS formation_id, f.title AS formation_title
        FROM enrollments e
        JOIN students s ON s.id = e.student_id
        JOIN sessions se ON se.id = e.session_id
        JOIN modules m ON m.id = se.module_id
        JOIN formations f ON f.id = m.formation_id`

// EnrollmentRepository persists enrollments.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs an EnrollmentRepository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

// List returns enrollments with student and session labels.
func (r *EnrollmentRepository) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error) {
	var cond conditions
	if filter.StudentID != "" {
		cond.add("e.student_id = " + cond.bind(filter.StudentID))
	}
	if filter.SessionID != "" {
		cond.add("e.session_id = " + cond.bind(filter.SessionID))
	}
	if filter.Status != "" {
		cond.add("e.status = " + cond.bind(filter.Status))
	}
	limit, offset := paginate(filter.Page, filter.PageSize)

	query := fmt.Sprintf("%s%s ORDER BY e.enrollment_date DESC LIMIT %d OFFSET %d", enrollmentDetailSelect, cond.where(), limit, offset)
	items := make([]models.EnrollmentDetail, 0)
	if err := r.db.SelectContext(ctx, &items, query, cond.args...); err != nil {
		return nil, 0, fmt.Errorf("list enrollments: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM enrollments e"+cond.where(), cond.args...); err != nil {
		return nil, 0, fmt.Errorf("count enrollments: %w", err)
	}
	return items, total, nil
}

// All returns every enrollment row.
func (r *EnrollmentRepository) All(ctx context.Context) ([]models.Enrollment, error) {
	items := make([]models.Enrollment, 0)
	if err := r.db.SelectContext(ctx, &items, "SELECT "+enrollmentColumns+" FROM enrollments ORDER BY enrollment_date"); err != nil {
		return nil, fmt.Errorf("list all enrollments: %w", err)
	}
	return items, nil
}

// FindByID returns an enrollment detail by id.
func (r *EnrollmentRepository) FindByID(ctx context.Context, id string) (*models.EnrollmentDetail, error) {
	var item models.EnrollmentDetail
	if err := r.db.GetContext(ctx, &item, enrollmentDetailSelect+" WHERE e.id = $1", id); err != nil {
		return nil, err
	}
	return &item, nil
}

// ListByStudentAndFormation returns the enrollments a student holds in sessions of a formation.
func (r *EnrollmentRepository) ListByStudentAndFormation(ctx context.Context, studentID, formationID string) ([]models.EnrollmentDetail, error) {
	items := make([]models.EnrollmentDetail, 0)
	if err := r.db.SelectContext(ctx, &items, enrollmentDetailSelect+" WHERE e.student_id = $1 AND f.id = $2", studentID, formationID); err != nil {
		return nil, fmt.Errorf("list enrollments of formation: %w", err)
	}
	return items, nil
}

// ExistsActive reports an enrollment of the student in the session that is not cancelled.
func (r *EnrollmentRepository) ExistsActive(ctx context.Context, studentID, sessionID string) (bool, error) {
	var count int
	const query = `SELECT COUNT(*) FROM enrollments WHERE student_id = $1 AND session_id = $2 AND status <> $3`
	if err := r.db.GetContext(ctx, &count, query, studentID, sessionID, models.EnrollmentStatusCancelled); err != nil {
		return false, fmt.Errorf("check enrollment: %w", err)
	}
	return count > 0, nil
}

// CreateTx inserts an enrollment inside tx.
func (r *EnrollmentRepository) CreateTx(ctx context.Context, tx *sqlx.Tx, item *models.Enrollment) error {
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	item.CreatedAt = now
	item.UpdatedAt = now
	if item.EnrollmentDate.IsZero() {
		item.EnrollmentDate = now
	}
	const query = `INSERT INTO enrollments (id, student_id, session_id, status, total_amount, paid_amount, enrollment_date, created_at, updated_at)
        VALUES (:id, :student_id, :session_id, :status, :total_amount, :paid_amount, :enrollment_date, :created_at, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, query, item); err != nil {
		return fmt.Errorf("create enrollment: %w", err)
	}
	return nil
}

// Update modifies an enrollment.
func (r *EnrollmentRepository) Update(ctx context.Context, item *models.Enrollment) error {
	item.UpdatedAt = time.Now().UTC()
	const query = `UPDATE enrollments SET status = :status, total_amount = :total_amount, enrollment_date = :enrollment_date, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, item); err != nil {
		return fmt.Errorf("update enrollment: %w", err)
	}
	return nil
}

// RefreshPaidAmount recomputes the cached paid_amount from the enrollment's payments.
func (r *EnrollmentRepository) RefreshPaidAmount(ctx context.Context, id string) error {
	const query = `UPDATE enrollments SET paid_amount = COALESCE((
            SELECT SUM(p.amount) FROM payments p JOIN invoices i ON i.id = p.invoice_id WHERE i.enrollment_id = $1
        ), 0), updated_at = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, time.Now().UTC()); err != nil {
		return fmt.Errorf("refresh paid amount: %w", err)
	}
	return nil
}

// Delete removes an enrollment.
func (r *EnrollmentRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM enrollments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete enrollment: %w", err)
	}
	return expectAffected(res)
}

// CountByStatus groups enrollments by status.
func (r *EnrollmentRepository) CountByStatus(ctx context.Context) (map[models.EnrollmentStatus]int, error) {
	var rows []struct {
		Status models.EnrollmentStatus `db:"status"`
		Count  int                     `db:"count"`
	}
	if err := r.db.SelectContext(ctx, &rows, `SELECT status, COUNT(*) AS count FROM enrollments GROUP BY status`); err != nil {
		return nil, fmt.Errorf("count enrollments by status: %w", err)
	}
	counts := make(map[models.EnrollmentStatus]int, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}
