package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asmil/asmil-api/internal/models"
	"github.com/asmil/asmil-api/internal/repository"
	appErrors "github.com/asmil/asmil-api/pkg/errors"
	"github.com/asmil/asmil-api/pkg/jobs"
	"github.com/asmil/asmil-api/pkg/storage"
)

type memoryBackupStore struct {
	tables     map[string]json.RawMessage
	restored   map[string]json.RawMessage
	restoreErr error
}

func (m *memoryBackupStore) Dump(context.Context) (map[string]json.RawMessage, error) {
	return m.tables, nil
}

func (m *memoryBackupStore) Restore(_ context.Context, data map[string]json.RawMessage) (map[string]int, error) {
	if m.restoreErr != nil {
		return nil, m.restoreErr
	}
	m.restored = data
	counts := make(map[string]int, len(data))
	for table, rows := range data {
		var items []json.RawMessage
		if err := json.Unmarshal(rows, &items); err != nil {
			return nil, err
		}
		counts[table] = len(items)
	}
	return counts, nil
}

type staticSetting map[string]string

func (s staticSetting) Value(_ context.Context, key string) (string, error) {
	return s[key], nil
}

type recordingBackups struct{ triggers []string }

func (r *recordingBackups) RecordBackup(trigger string, _ error) { r.triggers = append(r.triggers, trigger) }

type backupFixture struct {
	svc      *BackupService
	store    *memoryBackupStore
	files    *storage.LocalStorage
	audit    *fakeAudit
	cache    *countingInvalidator
	recorder *recordingBackups
}

func newBackupFixture(t *testing.T, settings staticSetting) backupFixture {
	t.Helper()
	files, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	store := &memoryBackupStore{tables: map[string]json.RawMessage{
		"students":   json.RawMessage(`[{"id":"st1","first_name":"Awa"}]`),
		"formations": json.RawMessage(`[]`),
	}}
	audit := &fakeAudit{}
	cache := &countingInvalidator{}
	recorder := &recordingBackups{}
	svc := NewBackupService(BackupServiceParams{
		Store:    store,
		Files:    files,
		Signer:   storage.NewSignedURLSigner("backup-secret", time.Hour),
		Metrics:  recorder,
		Settings: settings,
		Audit:    audit,
		Cache:    cache,
		Config:   BackupConfig{Retention: 24 * time.Hour, MaxImportBytes: 4096, DownloadPath: "/backups/download/"},
	})
	svc.now = func() time.Time { return time.Date(2024, time.May, 10, 2, 0, 0, 0, time.UTC) }
	return backupFixture{svc: svc, store: store, files: files, audit: audit, cache: cache, recorder: recorder}
}

func TestParseBackup(t *testing.T) {
	doc, err := ParseBackup([]byte(`{"version":"1.0","exported_at":"2024-05-10T02:00:00Z","data":{"students":[],"payments":[{"id":"p1"}]}}`))
	require.NoError(t, err)
	assert.Equal(t, "1.0", doc.Version)
	assert.Len(t, doc.Data, 2)

	invalid := map[string]string{
		"not json":      `{"version":`,
		"no version":    `{"data":{}}`,
		"no data":       `{"version":"1.0"}`,
		"null data":     `{"version":"1.0","data":null}`,
		"unknown table": `{"version":"1.0","data":{"users":[]}}`,
		"not an array":  `{"version":"1.0","data":{"students":{"id":"st1"}}}`,
	}
	for name, raw := range invalid {
		_, err := ParseBackup([]byte(raw))
		assert.True(t, errors.Is(err, appErrors.ErrInvalidBackup), name)
	}
}

func TestBackupExportProducesDocument(t *testing.T) {
	f := newBackupFixture(t, nil)

	file, err := f.svc.Export(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "asmil_backup_20240510_020000.json", file.Filename)
	assert.Equal(t, "application/json", file.ContentType)

	doc, err := ParseBackup(file.Data)
	require.NoError(t, err)
	assert.Equal(t, models.BackupFormatVersion, doc.Version)
	assert.JSONEq(t, `[{"id":"st1","first_name":"Awa"}]`, string(doc.Data["students"]))
	assert.Equal(t, []string{"manual"}, f.recorder.triggers)
}

func TestBackupImportRestoresAndAudits(t *testing.T) {
	f := newBackupFixture(t, nil)
	actor := &models.JWTClaims{UserID: "u1"}

	summary, err := f.svc.Import(context.Background(), []byte(`{"version":"1.0","data":{"students":[{"id":"a"},{"id":"b"}]}}`), actor, models.LoginRequest{IP: "10.0.0.9"})
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"students": 2}, summary.Tables)
	assert.Equal(t, 1, f.cache.calls)
	require.Len(t, f.audit.entries, 1)
	assert.Equal(t, models.AuditActionBackupImport, f.audit.entries[0].Action)
	assert.Equal(t, "10.0.0.9", f.audit.entries[0].IPAddress)
}

func TestBackupImportRejections(t *testing.T) {
	f := newBackupFixture(t, nil)
	ctx := context.Background()

	big := make([]byte, 5000)
	_, err := f.svc.Import(ctx, big, nil, models.LoginRequest{})
	assert.True(t, errors.Is(err, appErrors.ErrPayloadTooLarge))

	_, err = f.svc.Import(ctx, []byte(`{"data":{}}`), nil, models.LoginRequest{})
	assert.True(t, errors.Is(err, appErrors.ErrInvalidBackup))

	assert.Nil(t, f.store.restored)
	assert.Zero(t, f.cache.calls)
	assert.Empty(t, f.audit.entries)
}

func TestBackupImportMissingDependentTablesIsInvalid(t *testing.T) {
	f := newBackupFixture(t, nil)
	f.store.restoreErr = fmt.Errorf("%w: students", repository.ErrRestoreDependency)

	_, err := f.svc.Import(context.Background(), []byte(`{"version":"1.0","data":{"students":[{"id":"a"}]}}`), nil, models.LoginRequest{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrInvalidBackup))
	assert.Equal(t, 400, appErrors.FromError(err).Status)
	assert.Zero(t, f.cache.calls)
	assert.Empty(t, f.audit.entries)
}

func TestBackupScheduledRunAndDownload(t *testing.T) {
	f := newBackupFixture(t, staticSetting{"backup_enabled": "true"})
	ctx := context.Background()

	require.NoError(t, f.svc.HandleJob(ctx, jobs.Job{Type: JobTypeScheduledBackup}))
	assert.Equal(t, []string{"scheduled"}, f.recorder.triggers)

	files, err := f.svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "asmil_backup_20240510_020000.json", files[0].Name)
	assert.Contains(t, files[0].DownloadURL, "/backups/download/")
	assert.NotContains(t, files[0].DownloadURL, "//")

	token := files[0].DownloadURL[len("/backups/download/"):]
	file, name, err := f.svc.Open(token)
	require.NoError(t, err)
	defer file.Close()
	assert.Equal(t, "asmil_backup_20240510_020000.json", name)
	raw, err := io.ReadAll(file)
	require.NoError(t, err)
	_, err = ParseBackup(raw)
	assert.NoError(t, err)

	_, _, err = f.svc.Open(token + "x")
	assert.True(t, errors.Is(err, appErrors.ErrForbidden))
}

func TestBackupScheduledRunSkippedWhenDisabled(t *testing.T) {
	f := newBackupFixture(t, staticSetting{"backup_enabled": "false"})

	name, err := f.svc.RunScheduled(context.Background())
	require.NoError(t, err)
	assert.Empty(t, name)
	assert.Empty(t, f.recorder.triggers)

	files, err := f.files.List(".json")
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestBackupHandleJobRejectsUnknownType(t *testing.T) {
	f := newBackupFixture(t, nil)
	assert.Error(t, f.svc.HandleJob(context.Background(), jobs.Job{Type: "other"}))
}
