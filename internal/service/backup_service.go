package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/asmil/asmil-api/internal/models"
	"github.com/asmil/asmil-api/internal/repository"
	appErrors "github.com/asmil/asmil-api/pkg/errors"
	"github.com/asmil/asmil-api/pkg/jobs"
	"github.com/asmil/asmil-api/pkg/storage"
)

// JobTypeScheduledBackup is the queue job type that writes a backup file.
const JobTypeScheduledBackup = "backup.scheduled"

const backupFileSuffix = ".json"

type backupStore interface {
	Dump(ctx context.Context) (map[string]json.RawMessage, error)
	Restore(ctx context.Context, data map[string]json.RawMessage) (map[string]int, error)
}

type backupFiles interface {
	Save(name string, data []byte) (string, error)
	Open(name string) (*os.File, error)
	List(suffix string) ([]storage.FileInfo, error)
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type downloadSigner interface {
	Generate(id, relPath string) (string, time.Time, error)
	Parse(token string) (id, relPath string, expiresAt time.Time, err error)
}

type backupRecorder interface {
	RecordBackup(trigger string, err error)
}

type settingReader interface {
	Value(ctx context.Context, key string) (string, error)
}

// BackupConfig tunes storage and downloads.
type BackupConfig struct {
	Retention      time.Duration
	MaxImportBytes int64
	DownloadPath   string
}

// BackupServiceParams groups the collaborators of BackupService.
type BackupServiceParams struct {
	Store    backupStore
	Files    backupFiles
	Signer   downloadSigner
	Metrics  backupRecorder
	Settings settingReader
	Audit    auditWriter
	Cache    aggregateInvalidator
	Logger   *zap.Logger
	Config   BackupConfig
}

// BackupService exports, restores and schedules JSON backups of the domain tables.
type BackupService struct {
	store    backupStore
	files    backupFiles
	signer   downloadSigner
	metrics  backupRecorder
	settings settingReader
	audit    auditWriter
	cache    aggregateInvalidator
	logger   *zap.Logger
	cfg      BackupConfig
	now      func() time.Time
}

// NewBackupService constructs a BackupService.
func NewBackupService(p BackupServiceParams) *BackupService {
	if p.Logger == nil {
		p.Logger = zap.NewNop()
	}
	if p.Config.MaxImportBytes <= 0 {
		p.Config.MaxImportBytes = 50 * 1024 * 1024
	}
	return &BackupService{
		store:    p.Store,
		files:    p.Files,
		signer:   p.Signer,
		metrics:  p.Metrics,
		settings: p.Settings,
		audit:    p.Audit,
		cache:    orNoop(p.Cache),
		logger:   p.Logger,
		cfg:      p.Config,
		now:      time.Now,
	}
}

func (s *BackupService) record(trigger string, err error) {
	if s.metrics != nil {
		s.metrics.RecordBackup(trigger, err)
	}
}

// Export builds the backup document and its encoded JSON.
func (s *BackupService) Export(ctx context.Context) (*ExportFile, error) {
	payload, at, err := s.encode(ctx)
	s.record("manual", err)
	if err != nil {
		return nil, err
	}
	return &ExportFile{
		Filename:    backupFilename(at),
		ContentType: "application/json",
		Data:        payload,
	}, nil
}

func (s *BackupService) encode(ctx context.Context) ([]byte, time.Time, error) {
	data, err := s.store.Dump(ctx)
	if err != nil {
		return nil, time.Time{}, internalError(err, "failed to export data")
	}
	at := s.now().UTC()
	doc := models.BackupDocument{Version: models.BackupFormatVersion, ExportedAt: at, Data: data}
	payload, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, time.Time{}, internalError(err, "failed to encode backup")
	}
	return payload, at, nil
}

func backupFilename(at time.Time) string {
	return "asmil_backup_" + at.Format("20060102_150405") + backupFileSuffix
}

// ParseBackup checks the document has the top-level version and data fields and only known tables.
func ParseBackup(raw []byte) (*models.BackupDocument, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(raw, &top); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInvalidBackup.Code, appErrors.ErrInvalidBackup.Status, "le fichier n'est pas un JSON valide")
	}
	if _, ok := top["version"]; !ok {
		return nil, appErrors.Clone(appErrors.ErrInvalidBackup, "champ version manquant")
	}
	if _, ok := top["data"]; !ok {
		return nil, appErrors.Clone(appErrors.ErrInvalidBackup, "champ data manquant")
	}
	var doc models.BackupDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInvalidBackup.Code, appErrors.ErrInvalidBackup.Status, "structure de sauvegarde invalide")
	}
	if doc.Data == nil {
		return nil, appErrors.Clone(appErrors.ErrInvalidBackup, "champ data vide")
	}
	known := make(map[string]struct{}, len(repository.BackupTables))
	for _, table := range repository.BackupTables {
		known[table] = struct{}{}
	}
	for table, rows := range doc.Data {
		if _, ok := known[table]; !ok {
			return nil, appErrors.Clone(appErrors.ErrInvalidBackup, fmt.Sprintf("table inconnue %q", table))
		}
		if trimmed := bytes.TrimSpace(rows); len(trimmed) == 0 || trimmed[0] != '[' {
			return nil, appErrors.Clone(appErrors.ErrInvalidBackup, fmt.Sprintf("la table %q doit être un tableau", table))
		}
	}
	return &doc, nil
}

// Import replaces the tables present in the document in one transaction.
func (s *BackupService) Import(ctx context.Context, raw []byte, actor *models.JWTClaims, meta models.LoginRequest) (*models.RestoreSummary, error) {
	if int64(len(raw)) > s.cfg.MaxImportBytes {
		return nil, appErrors.Clone(appErrors.ErrPayloadTooLarge, fmt.Sprintf("backup exceeds %d bytes", s.cfg.MaxImportBytes))
	}
	doc, err := ParseBackup(raw)
	if err != nil {
		return nil, err
	}
	counts, err := s.store.Restore(ctx, doc.Data)
	if err != nil {
		if errors.Is(err, repository.ErrRestoreDependency) {
			return nil, appErrors.Wrap(err, appErrors.ErrInvalidBackup.Code, appErrors.ErrInvalidBackup.Status,
				"la sauvegarde doit inclure les tables qui dépendent des tables restaurées")
		}
		return nil, internalError(err, "failed to restore backup")
	}
	s.cache.InvalidateAggregates(ctx)

	s.logger.Info("backup restored", zap.String("version", doc.Version), zap.Int("tables", len(counts)))
	if s.audit != nil {
		details, _ := json.Marshal(map[string]interface{}{"version": doc.Version, "tables": counts})
		entry := &models.AuditLog{
			Action:    models.AuditActionBackupImport,
			Resource:  "backup",
			Details:   details,
			IPAddress: meta.IP,
			UserAgent: meta.UserAgent,
		}
		if actor != nil {
			entry.UserID = &actor.UserID
		}
		if err := s.audit.Create(ctx, entry); err != nil {
			s.logger.Warn("failed to record backup import audit", zap.Error(err))
		}
	}
	return &models.RestoreSummary{Version: doc.Version, Tables: counts}, nil
}

// HandleJob processes queue jobs addressed to the backup service.
func (s *BackupService) HandleJob(ctx context.Context, job jobs.Job) error {
	if job.Type != JobTypeScheduledBackup {
		return fmt.Errorf("unsupported job type %q", job.Type)
	}
	_, err := s.RunScheduled(ctx)
	return err
}

// RunScheduled writes a backup file and prunes files past retention.
// It is a no-op returning an empty name when backup_enabled is false.
func (s *BackupService) RunScheduled(ctx context.Context) (string, error) {
	if s.settings != nil {
		if raw, err := s.settings.Value(ctx, "backup_enabled"); err == nil {
			if enabled, perr := strconv.ParseBool(raw); perr == nil && !enabled {
				s.logger.Info("scheduled backup skipped, disabled in settings")
				return "", nil
			}
		}
	}
	payload, at, err := s.encode(ctx)
	if err == nil {
		var name string
		name, err = s.files.Save(backupFilename(at), payload)
		if err == nil {
			s.record("scheduled", nil)
			s.logger.Info("scheduled backup written", zap.String("file", name), zap.Int("bytes", len(payload)))
			s.prune()
			return name, nil
		}
	}
	s.record("scheduled", err)
	return "", err
}

func (s *BackupService) prune() {
	if s.cfg.Retention <= 0 {
		return
	}
	deleted, err := s.files.CleanupOlderThan(s.cfg.Retention)
	if err != nil {
		s.logger.Warn("backup retention cleanup failed", zap.Error(err))
		return
	}
	if len(deleted) > 0 {
		s.logger.Info("old backups removed", zap.Strings("files", deleted))
	}
}

// List returns stored backups with signed download links.
func (s *BackupService) List(ctx context.Context) ([]models.BackupFile, error) {
	files, err := s.files.List(backupFileSuffix)
	if err != nil {
		return nil, internalError(err, "failed to list backups")
	}
	result := make([]models.BackupFile, 0, len(files))
	for _, f := range files {
		token, expires, err := s.signer.Generate(strings.TrimSuffix(path.Base(f.Name), backupFileSuffix), f.Name)
		if err != nil {
			return nil, internalError(err, "failed to sign backup link")
		}
		result = append(result, models.BackupFile{
			Name:        f.Name,
			Size:        f.Size,
			CreatedAt:   f.ModifiedAt,
			DownloadURL: strings.TrimSuffix(s.cfg.DownloadPath, "/") + "/" + token,
			ExpiresAt:   expires,
		})
	}
	return result, nil
}

// Open resolves a signed download token into the stored file.
func (s *BackupService) Open(token string) (*os.File, string, error) {
	_, rel, _, err := s.signer.Parse(token)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrForbidden.Code, appErrors.ErrForbidden.Status, "lien de téléchargement invalide ou expiré")
	}
	f, err := s.files.Open(rel)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, "", appErrors.Clone(appErrors.ErrNotFound, "backup not found")
		}
		return nil, "", internalError(err, "failed to open backup")
	}
	return f, path.Base(rel), nil
}
