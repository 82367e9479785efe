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

const sessionDetailSelect = `SELECT se.id, se.module_id, se.teacher_id, se.room, se.schedule, se.start_date, se.end_date, se.capacity, se.status, se.created_at, se.updated_at,
        m.title AS module_title, f.id AS formation_id, f.title AS formation_title,
        CASE WHEN t.id IS NULL THEN NULL ELSE t.first_name || ' ' || t.last_name END AS teacher_name
        FROM sessions se
        JOIN modules m ON m.id = se.module_id
        JOIN formations f ON f.id = m.formation_id
        LEFT JOIN teachers t ON t.id = se.teacher_id`

// SessionRepository persists scheduled sessions.
type SessionRepository struct {
	db *sqlx.DB
}

// NewSessionRepository constructs a SessionRepository.
func NewSessionRepository(db *sqlx.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

func sessionConditions(filter models.SessionFilter) conditions {
	var cond conditions
	if filter.ModuleID != "" {
		cond.add("se.module_id = " + cond.bind(filter.ModuleID))
	}
	if filter.TeacherID != "" {
		cond.add("se.teacher_id = " + cond.bind(filter.TeacherID))
	}
	if filter.Room != "" {
		cond.add("LOWER(se.room) = LOWER(" + cond.bind(filter.Room) + ")")
	}
	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, s := range filter.Statuses {
			statuses[i] = string(s)
		}
		cond.add("se.status = ANY(" + cond.bind(pq.Array(statuses)) + ")")
	}
	return cond
}

// List returns sessions with module/formation/teacher labels.
func (r *SessionRepository) List(ctx context.Context, filter models.SessionFilter) ([]models.SessionDetail, int, error) {
	cond := sessionConditions(filter)
	limit, offset := paginate(filter.Page, filter.PageSize)

	query := fmt.Sprintf("%s%s ORDER BY se.start_date DESC LIMIT %d OFFSET %d", sessionDetailSelect, cond.where(), limit, offset)
	sessions := make([]models.SessionDetail, 0)
	if err := r.db.SelectContext(ctx, &sessions, query, cond.args...); err != nil {
		return nil, 0, fmt.Errorf("list sessions: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM sessions se"+cond.where(), cond.args...); err != nil {
		return nil, 0, fmt.Errorf("count sessions: %w", err)
	}
	return sessions, total, nil
}

// ListAll returns every session matching filter without pagination (timetable, conflict checks).
func (r *SessionRepository) ListAll(ctx context.Context, filter models.SessionFilter) ([]models.SessionDetail, error) {
	cond := sessionConditions(filter)
	sessions := make([]models.SessionDetail, 0)
	if err := r.db.SelectContext(ctx, &sessions, sessionDetailSelect+cond.where()+" ORDER BY se.start_date", cond.args...); err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return sessions, nil
}

// FindByID returns a session detail by id.
func (r *SessionRepository) FindByID(ctx context.Context, id string) (*models.SessionDetail, error) {
	var session models.SessionDetail
	if err := r.db.GetContext(ctx, &session, sessionDetailSelect+" WHERE se.id = $1", id); err != nil {
		return nil, err
	}
	return &session, nil
}

// Create inserts a session.
func (r *SessionRepository) Create(ctx context.Context, session *models.Session) error {
	if session.ID == "" {
		session.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	session.CreatedAt = now
	session.UpdatedAt = now
	const query = `INSERT INTO sessions (id, module_id, teacher_id, room, schedule, start_date, end_date, capacity, status, created_at, updated_at)
        VALUES (:id, :module_id, :teacher_id, :room, :schedule, :start_date, :end_date, :capacity, :status, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, session); err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

// Update modifies a session.
func (r *SessionRepository) Update(ctx context.Context, session *models.Session) error {
	session.UpdatedAt = time.Now().UTC()
	const query = `UPDATE sessions SET module_id = :module_id, teacher_id = :teacher_id, room = :room, schedule = :schedule, start_date = :start_date,
        end_date = :end_date, capacity = :capacity, status = :status, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, session); err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	return nil
}

// Delete removes a session.
func (r *SessionRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return expectAffected(res)
}
