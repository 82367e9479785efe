package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asmil/asmil-api/internal/dto"
	"github.com/asmil/asmil-api/internal/models"
	appErrors "github.com/asmil/asmil-api/pkg/errors"
)

type memorySettings struct {
	rows     map[string]models.Setting
	upserted [][]models.Setting
}

func (m *memorySettings) ListByKeys(_ context.Context, keys []string) ([]models.Setting, error) {
	out := make([]models.Setting, 0, len(keys))
	for _, key := range keys {
		if row, ok := m.rows[key]; ok {
			out = append(out, row)
		}
	}
	return out, nil
}

func (m *memorySettings) BulkUpsert(_ context.Context, settings []models.Setting) error {
	m.upserted = append(m.upserted, settings)
	for _, row := range settings {
		m.rows[row.Key] = row
	}
	return nil
}

func newSettingFixture() (*SettingService, *memorySettings, *fakeAudit) {
	repo := &memorySettings{rows: map[string]models.Setting{
		"institute_name": {Key: "institute_name", Value: "ASMiL Abidjan"},
	}}
	audit := &fakeAudit{}
	return NewSettingService(repo, audit, nil, nil), repo, audit
}

func settingValues(items []dto.SettingItem) map[string]string {
	out := make(map[string]string, len(items))
	for _, item := range items {
		out[item.Key] = item.Value
	}
	return out
}

func TestSettingListFallsBackToDefaults(t *testing.T) {
	svc, _, _ := newSettingFixture()

	items, err := svc.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, items, len(settingKeys))
	values := settingValues(items)
	assert.Equal(t, "ASMiL Abidjan", values["institute_name"])
	assert.Equal(t, "FCFA", values["currency"])
	assert.Equal(t, "true", values["backup_enabled"])
	assert.Equal(t, "institute_name", items[0].Key)
}

func TestSettingValue(t *testing.T) {
	svc, _, _ := newSettingFixture()
	ctx := context.Background()

	value, err := svc.Value(ctx, "institute_name")
	require.NoError(t, err)
	assert.Equal(t, "ASMiL Abidjan", value)

	value, err = svc.Value(ctx, "invoice_due_days")
	require.NoError(t, err)
	assert.Equal(t, "30", value)

	_, err = svc.Value(ctx, "unknown")
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}

func TestSettingBulkUpdateNormalisesAndAudits(t *testing.T) {
	svc, repo, audit := newSettingFixture()
	actor := &models.JWTClaims{UserID: "u1", Role: models.RoleAdmin}

	items, err := svc.BulkUpdate(context.Background(), dto.BulkUpdateSettingsRequest{Items: []dto.UpdateSettingRequest{
		{Key: "backup_enabled", Value: " 0 "},
		{Key: "invoice_due_days", Value: "45"},
		{Key: "backup_schedule", Value: "30 3 * * 1"},
	}}, actor)
	require.NoError(t, err)
	values := settingValues(items)
	assert.Equal(t, "false", values["backup_enabled"])
	assert.Equal(t, "45", values["invoice_due_days"])

	require.Len(t, repo.upserted, 1)
	require.NotNil(t, repo.rows["backup_enabled"].UpdatedBy)
	assert.Equal(t, "u1", *repo.rows["backup_enabled"].UpdatedBy)
	require.Len(t, audit.entries, 1)
	assert.Equal(t, models.AuditActionSettingsUpdate, audit.entries[0].Action)
	assert.Contains(t, string(audit.entries[0].Details), "backup_schedule")
}

func TestSettingBulkUpdateRejectsInvalidItems(t *testing.T) {
	svc, repo, audit := newSettingFixture()
	actor := &models.JWTClaims{UserID: "u1", Role: models.RoleAdmin}
	ctx := context.Background()

	cases := []dto.UpdateSettingRequest{
		{Key: "unknown_key", Value: "x"},
		{Key: "backup_enabled", Value: "peut-être"},
		{Key: "invoice_due_days", Value: "-1"},
		{Key: "invoice_due_days", Value: "trente"},
		{Key: "certificate_min_attendance", Value: "120"},
		{Key: "backup_schedule", Value: "every day"},
	}
	for _, item := range cases {
		_, err := svc.BulkUpdate(ctx, dto.BulkUpdateSettingsRequest{Items: []dto.UpdateSettingRequest{item}}, actor)
		assert.True(t, errors.Is(err, appErrors.ErrValidation), item.Key+"="+item.Value)
	}

	_, err := svc.BulkUpdate(ctx, dto.BulkUpdateSettingsRequest{}, actor)
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	_, err = svc.BulkUpdate(ctx, dto.BulkUpdateSettingsRequest{Items: []dto.UpdateSettingRequest{{Key: "currency", Value: "XOF"}}}, nil)
	assert.True(t, errors.Is(err, appErrors.ErrUnauthorized))

	assert.Empty(t, repo.upserted)
	assert.Empty(t, audit.entries)
}
