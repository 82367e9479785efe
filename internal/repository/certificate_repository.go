package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/asmil/asmil-api/internal/models"
)

const certificateDetailSelect = `SELECT c.id, c.student_id, c.formation_id, c.enrollment_id, c.certificate_number, c.grade, c.attendance_rate, c.issue_date,
        c.status, c.revoked_reason, c.created_at, c.updated_at,
        s.first_name || ' ' || s.last_name AS student_name, f.title AS formation_title
        FROM certificates c
        JOIN students s ON s.id = c.student_id
        JOIN formations f ON f.id = c.formation_id`

// CertificateRepository persists issued certificates.
type CertificateRepository struct {
	db *sqlx.DB
}

// NewCertificateRepository constructs a CertificateRepository.
func NewCertificateRepository(db *sqlx.DB) *CertificateRepository {
	return &CertificateRepository{db: db}
}

// List returns certificates with student and formation labels.
func (r *CertificateRepository) List(ctx context.Context, filter models.CertificateFilter) ([]models.CertificateDetail, int, error) {
	var cond conditions
	if filter.StudentID != "" {
		cond.add("c.student_id = " + cond.bind(filter.StudentID))
	}
	if filter.FormationID != "" {
		cond.add("c.formation_id = " + cond.bind(filter.FormationID))
	}
	if filter.Status != "" {
		cond.add("c.status = " + cond.bind(filter.Status))
	}
	limit, offset := paginate(filter.Page, filter.PageSize)

	query := fmt.Sprintf("%s%s ORDER BY c.issue_date DESC LIMIT %d OFFSET %d", certificateDetailSelect, cond.where(), limit, offset)
	items := make([]models.CertificateDetail, 0)
	if err := r.db.SelectContext(ctx, &items, query, cond.args...); err != nil {
		return nil, 0, fmt.Errorf("list certificates: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM certificates c"+cond.where(), cond.args...); err != nil {
		return nil, 0, fmt.Errorf("count certificates: %w", err)
	}
	return items, total, nil
}

// FindByID returns a certificate detail by id.
func (r *CertificateRepository) FindByID(ctx context.Context, id string) (*models.CertificateDetail, error) {
	var item models.CertificateDetail
	if err := r.db.GetContext(ctx, &item, certificateDetailSelect+" WHERE c.id = $1", id); err != nil {
		return nil, err
	}
	return &item, nil
}

// ExistsValid reports a valid certificate of the student for the formation.
func (r *CertificateRepository) ExistsValid(ctx context.Context, studentID, formationID string) (bool, error) {
	var count int
	const query = `SELECT COUNT(*) FROM certificates WHERE student_id = $1 AND formation_id = $2 AND status = $3`
	if err := r.db.GetContext(ctx, &count, query, studentID, formationID, models.CertificateStatusValid); err != nil {
		return false, fmt.Errorf("check certificate: %w", err)
	}
	return count > 0, nil
}

// Create inserts a certificate.
func (r *CertificateRepository) Create(ctx context.Context, item *models.Certificate) error {
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	item.CreatedAt = now
	item.UpdatedAt = now
	const query = `INSERT INTO certificates (id, student_id, formation_id, enrollment_id, certificate_number, grade, attendance_rate, issue_date, status, revoked_reason, created_at, updated_at)
        VALUES (:id, :student_id, :formation_id, :enrollment_id, :certificate_number, :grade, :attendance_rate, :issue_date, :status, :revoked_reason, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, item); err != nil {
		return fmt.Errorf("create certificate: %w", err)
	}
	return nil
}

// Revoke marks a certificate as revoked with a reason.
func (r *CertificateRepository) Revoke(ctx context.Context, id, reason string) error {
	const query = `UPDATE certificates SET status = $2, revoked_reason = $3, updated_at = $4 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, models.CertificateStatusRevoked, reason, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("revoke certificate: %w", err)
	}
	return expectAffected(res)
}
