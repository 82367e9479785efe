package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/asmil/asmil-api/internal/models"
	"github.com/asmil/asmil-api/pkg/database"
)

const settingColumns = `key, value, type, description, updated_by, updated_at`

const upsertSettingQuery = `INSERT INTO settings (key, value, type, description, updated_by, updated_at)
        VALUES (:key, :value, :type, :description, :updated_by, :updated_at)
        ON CONFLICT (key)
        DO UPDATE SET value = EXCLUDED.value, type = EXCLUDED.type, description = COALESCE(EXCLUDED.description, settings.description),
                      updated_by = EXCLUDED.updated_by, updated_at = EXCLUDED.updated_at`

// SettingRepository persists key/value settings.
type SettingRepository struct {
	db *sqlx.DB
}

// NewSettingRepository constructs the repository.
func NewSettingRepository(db *sqlx.DB) *SettingRepository {
	return &SettingRepository{db: db}
}

// List returns every stored setting ordered by key.
func (r *SettingRepository) List(ctx context.Context) ([]models.Setting, error) {
	settings := make([]models.Setting, 0)
	if err := r.db.SelectContext(ctx, &settings, "SELECT "+settingColumns+" FROM settings ORDER BY key ASC"); err != nil {
		return nil, fmt.Errorf("list settings: %w", err)
	}
	return settings, nil
}

// ListByKeys returns settings whose key is in keys.
func (r *SettingRepository) ListByKeys(ctx context.Context, keys []string) ([]models.Setting, error) {
	settings := make([]models.Setting, 0)
	if len(keys) == 0 {
		return settings, nil
	}
	query := "SELECT " + settingColumns + " FROM settings WHERE key = ANY($1) ORDER BY key ASC"
	if err := r.db.SelectContext(ctx, &settings, query, pq.Array(keys)); err != nil {
		return nil, fmt.Errorf("list settings: %w", err)
	}
	return settings, nil
}

// BulkUpsert writes all settings in one transaction.
func (r *SettingRepository) BulkUpsert(ctx context.Context, settings []models.Setting) error {
	if len(settings) == 0 {
		return nil
	}
	now := time.Now().UTC()
	return database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		for i := range settings {
			settings[i].UpdatedAt = now
			if _, err := tx.NamedExecContext(ctx, upsertSettingQuery, settings[i]); err != nil {
				return fmt.Errorf("upsert setting %s: %w", settings[i].Key, err)
			}
		}
		return nil
	})
}
