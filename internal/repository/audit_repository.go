package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/asmil/asmil-api/internal/models"
)

const auditSelect = `SELECT a.id, a.user_id, u.full_name AS user_name, a.action, a.resource, a.resource_id, a.details,
        a.ip_address, a.user_agent, a.created_at
        FROM audit_logs a
        LEFT JOIN users u ON u.id = a.user_id`

// AuditRepository stores and queries the audit trail.
type AuditRepository struct {
	db *sqlx.DB
}

// NewAuditRepository constructs an AuditRepository.
func NewAuditRepository(db *sqlx.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// Create stores an audit log entry.
func (r *AuditRepository) Create(ctx context.Context, entry *models.AuditLog) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	if len(entry.Details) == 0 {
		entry.Details = []byte("{}")
	}
	const query = `INSERT INTO audit_logs (id, user_id, action, resource, resource_id, details, ip_address, user_agent, created_at)
        VALUES (:id, :user_id, :action, :resource, :resource_id, :details, :ip_address, :user_agent, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, entry); err != nil {
		return fmt.Errorf("create audit log: %w", err)
	}
	return nil
}

func auditConditions(filter models.AuditFilter) conditions {
	var cond conditions
	if filter.UserID != "" {
		cond.add("a.user_id = " + cond.bind(filter.UserID))
	}
	if filter.Resource != "" {
		cond.add("a.resource = " + cond.bind(filter.Resource))
	}
	if filter.Action != "" {
		cond.add("a.action = " + cond.bind(filter.Action))
	}
	if filter.From != nil {
		cond.add("a.created_at >= " + cond.bind(*filter.From))
	}
	if filter.To != nil {
		cond.add("a.created_at <= " + cond.bind(*filter.To))
	}
	return cond
}

// List returns a page of audit entries, newest first.
func (r *AuditRepository) List(ctx context.Context, filter models.AuditFilter) ([]models.AuditLog, int, error) {
	cond := auditConditions(filter)
	limit, offset := paginate(filter.Page, filter.PageSize)

	query := fmt.Sprintf("%s%s ORDER BY a.created_at DESC LIMIT %d OFFSET %d", auditSelect, cond.where(), limit, offset)
	entries := make([]models.AuditLog, 0)
	if err := r.db.SelectContext(ctx, &entries, query, cond.args...); err != nil {
		return nil, 0, fmt.Errorf("list audit logs: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM audit_logs a"+cond.where(), cond.args...); err != nil {
		return nil, 0, fmt.Errorf("count audit logs: %w", err)
	}
	return entries, total, nil
}

// ListAll returns every audit entry matching filter for export.
func (r *AuditRepository) ListAll(ctx context.Context, filter models.AuditFilter) ([]models.AuditLog, error) {
	cond := auditConditions(filter)
	entries := make([]models.AuditLog, 0)
	if err := r.db.SelectContext(ctx, &entries, auditSelect+cond.where()+" ORDER BY a.created_at DESC", cond.args...); err != nil {
		return nil, fmt.Errorf("list audit logs: %w", err)
	}
	return entries, nil
}
