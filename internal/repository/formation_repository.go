package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/asmil/asmil-api/internal/models"
)

const formationColumns = `id, title, type, category, duration_months, registration_fee, tuition_fee, description, created_at, updated_at`

// FormationRepository persists training programmes.
type FormationRepository struct {
	db *sqlx.DB
}

// NewFormationRepository constructs a FormationRepository.
func NewFormationRepository(db *sqlx.DB) *FormationRepository {
	return &FormationRepository{db: db}
}

// List returns formations matching the filter.
func (r *FormationRepository) List(ctx context.Context, filter models.FormationFilter) ([]models.Formation, int, error) {
	var cond conditions
	if filter.Type != "" {
		cond.add("type = " + cond.bind(filter.Type))
	}
	if filter.Search != "" {
		p := cond.bind(likePattern(filter.Search))
		cond.add(fmt.Sprintf("(LOWER(title) LIKE %[1]s OR LOWER(COALESCE(category, '')) LIKE %[1]s)", p))
	}
	limit, offset := paginate(filter.Page, filter.PageSize)

	query := fmt.Sprintf("SELECT %s FROM formations%s ORDER BY title ASC LIMIT %d OFFSET %d", formationColumns, cond.where(), limit, offset)
	formations := make([]models.Formation, 0)
	if err := r.db.SelectContext(ctx, &formations, query, cond.args...); err != nil {
		return nil, 0, fmt.Errorf("list formations: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM formations"+cond.where(), cond.args...); err != nil {
		return nil, 0, fmt.Errorf("count formations: %w", err)
	}
	return formations, total, nil
}

// All returns every formation.
func (r *FormationRepository) All(ctx context.Context) ([]models.Formation, error) {
	formations := make([]models.Formation, 0)
	if err := r.db.SelectContext(ctx, &formations, "SELECT "+formationColumns+" FROM formations ORDER BY title"); err != nil {
		return nil, fmt.Errorf("list all formations: %w", err)
	}
	return formations, nil
}

// FindByID returns a formation by id.
func (r *FormationRepository) FindByID(ctx context.Context, id string) (*models.Formation, error) {
	var formation models.Formation
	if err := r.db.GetContext(ctx, &formation, "SELECT "+formationColumns+" FROM formations WHERE id = $1", id); err != nil {
		return nil, err
	}
	return &formation, nil
}

// Create inserts a formation.
func (r *FormationRepository) Create(ctx context.Context, formation *models.Formation) error {
	if formation.ID == "" {
		formation.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	formation.CreatedAt = now
	formation.UpdatedAt = now
	const query = `INSERT INTO formations (id, title, type, category, duration_months, registration_fee, tuition_fee, description, created_at, updated_at)
        VALUES (:id, :title, :type, :category, :duration_months, :registration_fee, :tuition_fee, :description, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, formation); err != nil {
		return fmt.Errorf("create formation: %w", err)
	}
	return nil
}

// Update modifies a formation.
func (r *FormationRepository) Update(ctx context.Context, formation *models.Formation) error {
	formation.UpdatedAt = time.Now().UTC()
	const query = `UPDATE formations SET title = :title, type = :type, category = :category, duration_months = :duration_months,
        registration_fee = :registration_fee, tuition_fee = :tuition_fee, description = :description, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, formation); err != nil {
		return fmt.Errorf("update formation: %w", err)
	}
	return nil
}

// Delete removes a formation.
func (r *FormationRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM formations WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete formation: %w", err)
	}
	return expectAffected(res)
}

// FormationOfSession resolves the formation a session belongs to through its module.
func (r *FormationRepository) FormationOfSession(ctx context.Context, sessionID string) (*models.Formation, error) {
	const query = `SELECT f.id, f.title, f.type, f.category, f.duration_months, f.registration_fee, f.tuition_fee, f.description, f.created_at, f.updated_at
        FROM sessions se JOIN modules m ON m.id = se.module_id JOIN formations f ON f.id = m.formation_id WHERE se.id = $1`
	var formation models.Formation
	if err := r.db.GetContext(ctx, &formation, query, sessionID); err != nil {
		return nil, err
	}
	return &formation, nil
}
