package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/asmil/asmil-api/internal/models"
)

const studentColumns = `s.id, s.registration_number, s.first_name, s.last_name, s.date_of_birth, s.gender, s.email, s.phone_parent, s.address,
        s.status, s.formation_id, s.enrollment_date, s.photo_url, s.created_at, s.updated_at`

// StudentRepository manages persistence for student records.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs a StudentRepository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// List returns students matching the provided filters.
func (r *StudentRepository) List(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, int, error) {
	var cond conditions
	if filter.Status != "" {
		cond.add("s.status = " + cond.bind(filter.Status))
	}
	if filter.FormationID != "" {
		cond.add("s.formation_id = " + cond.bind(filter.FormationID))
	}
	if filter.Search != "" {
		p := cond.bind(likePattern(filter.Search))
		cond.add(fmt.Sprintf("(LOWER(s.first_name) LIKE %[1]s OR LOWER(s.last_name) LIKE %[1]s OR LOWER(s.registration_number) LIKE %[1]s)", p))
	}
	base := "FROM students s LEFT JOIN formations f ON f.id = s.formation_id" + cond.where()

	allowedSorts := map[string]string{
		"last_name":           "s.last_name",
		"registration_number": "s.registration_number",
		"enrollment_date":     "s.enrollment_date",
		"created_at":          "s.created_at",
	}
	column, ok := allowedSorts[filter.SortBy]
	if !ok {
		column = "s.created_at"
	}
	order := "DESC"
	if filter.SortOrder == "asc" || filter.SortOrder == "ASC" {
		order = "ASC"
	}
	limit, offset := paginate(filter.Page, filter.PageSize)

	query := fmt.Sprintf(`SELECT %s, f.title AS formation_title
        %s ORDER BY %s %s LIMIT %d OFFSET %d`, studentColumns, base, column, order, limit, offset)
	students := make([]models.StudentDetail, 0)
	if err := r.db.SelectContext(ctx, &students, query, cond.args...); err != nil {
		return nil, 0, fmt.Errorf("list students: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+base, cond.args...); err != nil {
		return nil, 0, fmt.Errorf("count students: %w", err)
	}
	return students, total, nil
}

// All returns every student; used by the finance aggregations and backups.
func (r *StudentRepository) All(ctx context.Context) ([]models.Student, error) {
	query := fmt.Sprintf("SELECT %s FROM students s ORDER BY s.created_at", studentColumns)
	students := make([]models.Student, 0)
	if err := r.db.SelectContext(ctx, &students, query); err != nil {
		return nil, fmt.Errorf("list all students: %w", err)
	}
	return students, nil
}

// FindByID fetches a student detail by ID.
func (r *StudentRepository) FindByID(ctx context.Context, id string) (*models.StudentDetail, error) {
	query := fmt.Sprintf(`SELECT %s, f.title AS formation_title
        FROM students s LEFT JOIN formations f ON f.id = s.formation_id
        WHERE s.id = $1`, studentColumns)
	var detail models.StudentDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// ExistsByEmail checks if another student uses the email.
func (r *StudentRepository) ExistsByEmail(ctx context.Context, email string, excludeID string) (bool, error) {
	query := "SELECT 1 FROM students WHERE LOWER(email) = LOWER($1)"
	args := []interface{}{email}
	if excludeID != "" {
		query += " AND id <> $2"
		args = append(args, excludeID)
	}
	var exists int
	if err := r.db.GetContext(ctx, &exists, query+" LIMIT 1", args...); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check student email: %w", err)
	}
	return true, nil
}

// Create inserts a new student record.
func (r *StudentRepository) Create(ctx context.Context, student *models.Student) error {
	if student.ID == "" {
		student.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if student.CreatedAt.IsZero() {
		student.CreatedAt = now
	}
	if student.EnrollmentDate.IsZero() {
		student.EnrollmentDate = now
	}
	student.UpdatedAt = now
	const query = `INSERT INTO students (id, registration_number, first_name, last_name, date_of_birth, gender, email, phone_parent, address, status, formation_id, enrollment_date, photo_url, created_at, updated_at)
        VALUES (:id, :registration_number, :first_name, :last_name, :date_of_birth, :gender, :email, :phone_parent, :address, :status, :formation_id, :enrollment_date, :photo_url, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, student); err != nil {
		return fmt.Errorf("create student: %w", err)
	}
	return nil
}

// Update modifies an existing student.
func (r *StudentRepository) Update(ctx context.Context, student *models.Student) error {
	student.UpdatedAt = time.Now().UTC()
	const query = `UPDATE students SET first_name = :first_name, last_name = :last_name, date_of_birth = :date_of_birth, gender = :gender, email = :email,
        phone_parent = :phone_parent, address = :address, status = :status, formation_id = :formation_id, enrollment_date = :enrollment_date, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, student); err != nil {
		return fmt.Errorf("update student: %w", err)
	}
	return nil
}

// UpdatePhoto stores the public URL of the student's photo.
func (r *StudentRepository) UpdatePhoto(ctx context.Context, id, url string) error {
	const query = `UPDATE students SET photo_url = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, url, time.Now().UTC()); err != nil {
		return fmt.Errorf("update student photo: %w", err)
	}
	return nil
}

// Delete removes a student.
func (r *StudentRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM students WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete student: %w", err)
	}
	return expectAffected(res)
}

// CountByStatus groups students by status.
func (r *StudentRepository) CountByStatus(ctx context.Context) (map[models.StudentStatus]int, error) {
	var rows []struct {
		Status models.StudentStatus `db:"status"`
		Count  int                  `db:"count"`
	}
	if err := r.db.SelectContext(ctx, &rows, `SELECT status, COUNT(*) AS count FROM students GROUP BY status`); err != nil {
		return nil, fmt.Errorf("count students by status: %w", err)
	}
	counts := make(map[models.StudentStatus]int, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}
