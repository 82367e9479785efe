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

const attendanceColumns = `id, enrollment_id, date, status, notes, created_at, updated_at`

const upsertAttendanceQuery = `INSERT INTO attendances (id, enrollment_id, date, status, notes, created_at, updated_at)
        VALUES (:id, :enrollment_id, :date, :status, :notes, :created_at, :updated_at)
        ON CONFLICT (enrollment_id, date) DO UPDATE SET status = EXCLUDED.status, notes = EXCLUDED.notes, updated_at = EXCLUDED.updated_at`

// AttendanceRepository persists attendance records; one row per enrollment and day.
type AttendanceRepository struct {
	db *sqlx.DB
}

// NewAttendanceRepository constructs an AttendanceRepository.
func NewAttendanceRepository(db *sqlx.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

func attendanceConditions(filter models.AttendanceFilter) conditions {
	var cond conditions
	if filter.EnrollmentID != "" {
		cond.add("enrollment_id = " + cond.bind(filter.EnrollmentID))
	}
	if filter.Date != nil {
		cond.add("date = " + cond.bind(filter.Date.Format("2006-01-02")))
	}
	if filter.From != nil {
		cond.add("date >= " + cond.bind(filter.From.Format("2006-01-02")))
	}
	if filter.To != nil {
		cond.add("date <= " + cond.bind(filter.To.Format("2006-01-02")))
	}
	return cond
}

// List returns attendance rows matching the filter.
func (r *AttendanceRepository) List(ctx context.Context, filter models.AttendanceFilter) ([]models.Attendance, int, error) {
	cond := attendanceConditions(filter)
	limit, offset := paginate(filter.Page, filter.PageSize)

	query := fmt.Sprintf("SELECT %s FROM attendances%s ORDER BY date DESC LIMIT %d OFFSET %d", attendanceColumns, cond.where(), limit, offset)
	rows := make([]models.Attendance, 0)
	if err := r.db.SelectContext(ctx, &rows, query, cond.args...); err != nil {
		return nil, 0, fmt.Errorf("list attendances: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM attendances"+cond.where(), cond.args...); err != nil {
		return nil, 0, fmt.Errorf("count attendances: %w", err)
	}
	return rows, total, nil
}

// ListAll returns every attendance row matching filter, ignoring pagination.
func (r *AttendanceRepository) ListAll(ctx context.Context, filter models.AttendanceFilter) ([]models.Attendance, error) {
	cond := attendanceConditions(filter)
	rows := make([]models.Attendance, 0)
	if err := r.db.SelectContext(ctx, &rows, "SELECT "+attendanceColumns+" FROM attendances"+cond.where()+" ORDER BY date", cond.args...); err != nil {
		return nil, fmt.Errorf("list attendances: %w", err)
	}
	return rows, nil
}

// ListByEnrollments returns attendance of several enrollments.
func (r *AttendanceRepository) ListByEnrollments(ctx context.Context, enrollmentIDs []string) ([]models.Attendance, error) {
	rows := make([]models.Attendance, 0)
	if len(enrollmentIDs) == 0 {
		return rows, nil
	}
	query := "SELECT " + attendanceColumns + " FROM attendances WHERE enrollment_id = ANY($1) ORDER BY date"
	if err := r.db.SelectContext(ctx, &rows, query, pq.Array(enrollmentIDs)); err != nil {
		return nil, fmt.Errorf("list enrollment attendances: %w", err)
	}
	return rows, nil
}

// FindByID returns an attendance row by id.
func (r *AttendanceRepository) FindByID(ctx context.Context, id string) (*models.Attendance, error) {
	var row models.Attendance
	if err := r.db.GetContext(ctx, &row, "SELECT "+attendanceColumns+" FROM attendances WHERE id = $1", id); err != nil {
		return nil, err
	}
	return &row, nil
}

func prepareAttendance(row *models.Attendance, now time.Time) {
	if row.ID == "" {
		row.ID = uuid.NewString()
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = now
	}
	row.UpdatedAt = now
}

// Upsert records one attendance; an existing row for the same enrollment and day is overwritten.
func (r *AttendanceRepository) Upsert(ctx context.Context, row *models.Attendance) error {
	prepareAttendance(row, time.Now().UTC())
	if _, err := r.db.NamedExecContext(ctx, upsertAttendanceQuery, row); err != nil {
		return fmt.Errorf("upsert attendance: %w", err)
	}
	return nil
}

// UpsertBatch records many rows inside tx.
func (r *AttendanceRepository) UpsertBatch(ctx context.Context, tx *sqlx.Tx, rows []models.Attendance) error {
	now := time.Now().UTC()
	for i := range rows {
		prepareAttendance(&rows[i], now)
		if _, err := tx.NamedExecContext(ctx, upsertAttendanceQuery, &rows[i]); err != nil {
			return fmt.Errorf("upsert attendance %d: %w", i, err)
		}
	}
	return nil
}

// Update modifies an attendance row.
func (r *AttendanceRepository) Update(ctx context.Context, row *models.Attendance) error {
	row.UpdatedAt = time.Now().UTC()
	const query = `UPDATE attendances SET date = :date, status = :status, notes = :notes, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, row); err != nil {
		return fmt.Errorf("update attendance: %w", err)
	}
	return nil
}

// Delete removes an attendance row.
func (r *AttendanceRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM attendances WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete attendance: %w", err)
	}
	return expectAffected(res)
}
