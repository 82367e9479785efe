package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asmil/asmil-api/internal/models"
	appErrors "github.com/asmil/asmil-api/pkg/errors"
)

type fakeAuditRepo struct {
	entries []models.AuditLog
	filter  models.AuditFilter
	err     error
}

func (f *fakeAuditRepo) Create(_ context.Context, entry *models.AuditLog) error {
	if f.err != nil {
		return f.err
	}
	f.entries = append(f.entries, *entry)
	return nil
}

func (f *fakeAuditRepo) List(_ context.Context, filter models.AuditFilter) ([]models.AuditLog, int, error) {
	f.filter = filter
	if f.err != nil {
		return nil, 0, f.err
	}
	return f.entries, 45, nil
}

func (f *fakeAuditRepo) ListAll(_ context.Context, filter models.AuditFilter) ([]models.AuditLog, error) {
	f.filter = filter
	if f.err != nil {
		return nil, f.err
	}
	return f.entries, nil
}

func TestAuditServiceListPaginates(t *testing.T) {
	repo := &fakeAuditRepo{entries: []models.AuditLog{{ID: "a1", Action: models.AuditActionLogin, Resource: "auth"}}}
	svc := NewAuditService(repo, NewExportService("ASMiL", nil), nil)

	items, pagination, err := svc.List(context.Background(), models.AuditFilter{Action: models.AuditActionLogin, Page: 2, PageSize: 20})
	require.NoError(t, err)
	assert.Len(t, items, 1)
	assert.Equal(t, 2, pagination.Page)
	assert.Equal(t, 45, pagination.TotalCount)
	assert.Equal(t, 3, pagination.TotalPages)
	assert.Equal(t, models.AuditActionLogin, repo.filter.Action)
}

func TestAuditServiceCreateWrapsFailure(t *testing.T) {
	svc := NewAuditService(&fakeAuditRepo{err: errors.New("db down")}, NewExportService("ASMiL", nil), nil)

	err := svc.Create(context.Background(), &models.AuditLog{Action: models.AuditActionCreate, Resource: "students"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInternal.Code, appErrors.FromError(err).Code)
}

func TestAuditServiceExportCSV(t *testing.T) {
	userID := "u-1"
	repo := &fakeAuditRepo{entries: []models.AuditLog{{
		ID:        "a1",
		UserID:    &userID,
		Action:    models.AuditActionUpdate,
		Resource:  "students",
		IPAddress: "10.0.0.1",
		CreatedAt: time.Date(2024, 3, 4, 9, 30, 0, 0, time.UTC),
	}}}
	svc := NewAuditService(repo, NewExportService("ASMiL", nil), nil)
	svc.now = func() time.Time { return time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC) }

	file, err := svc.Export(context.Background(), models.AuditFilter{Resource: "students"})
	require.NoError(t, err)
	assert.Equal(t, "journal_audit_20240305.csv", file.Filename)
	assert.True(t, strings.HasPrefix(file.ContentType, "text/csv"))

	body := string(file.Data)
	assert.Contains(t, body, "Utilisateur")
	// the user id stands in when no name was recorded
	assert.Contains(t, body, "u-1")
	assert.Contains(t, body, "2024-03-04 09:30:00")
	assert.Equal(t, "students", repo.filter.Resource)
}

func TestParseExportFormat(t *testing.T) {
	format, err := ParseExportFormat("")
	require.NoError(t, err)
	assert.Equal(t, ExportFormatCSV, format)

	format, err = ParseExportFormat(" XLSX ")
	require.NoError(t, err)
	assert.Equal(t, ExportFormatXLSX, format)

	_, err = ParseExportFormat("docx")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}
