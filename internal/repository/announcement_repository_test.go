package repository

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asmil/asmil-api/internal/models"
)

func TestAnnouncementRepositoryListActive(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewAnnouncementRepository(db)

	at := time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`FROM announcements WHERE type = \$1 AND published = TRUE AND publish_date <= \$2 AND \(expiry_date IS NULL OR expiry_date >= \$2\) ORDER BY publish_date DESC`).
		WithArgs(models.AnnouncementTypeUrgent, at).
		WillReturnRows(sqlmock.NewRows([]string{"id", "title", "type", "published"}).AddRow("a-1", "Fermeture", "urgent", true))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM announcements WHERE`).
		WithArgs(models.AnnouncementTypeUrgent, at).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	items, total, err := repo.List(context.Background(), models.AnnouncementFilter{Type: models.AnnouncementTypeUrgent, ActiveOnly: true, At: at})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, models.AnnouncementTypeUrgent, items[0].Type)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}
