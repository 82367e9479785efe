package repository

import (
	"context"
	"errors"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asmil/asmil-api/internal/models"
)

func TestSettingRepositoryBulkUpsert(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewSettingRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO settings").WithArgs(anyArgs(6)...).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO settings").WithArgs(anyArgs(6)...).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.BulkUpsert(context.Background(), []models.Setting{
		{Key: "institute_name", Value: "ASMiL", Type: models.SettingTypeString},
		{Key: "invoice_due_days", Value: "30", Type: models.SettingTypeNumber},
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSettingRepositoryBulkUpsertRollback(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewSettingRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO settings").WithArgs(anyArgs(6)...).WillReturnError(errors.New("boom"))
	mock.ExpectRollback()

	err := repo.BulkUpsert(context.Background(), []models.Setting{{Key: "currency", Value: "FCFA", Type: models.SettingTypeString}})
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSettingRepositoryListByKeys(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewSettingRepository(db)

	mock.ExpectQuery(`SELECT key, value, type, description, updated_by, updated_at FROM settings WHERE key = ANY\(\$1\)`).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"key", "value", "type"}).AddRow("currency", "FCFA", "string"))

	settings, err := repo.ListByKeys(context.Background(), []string{"currency"})
	require.NoError(t, err)
	require.Len(t, settings, 1)
	assert.Equal(t, "FCFA", settings[0].Value)
	assert.NoError(t, mock.ExpectationsWereMet())
}
