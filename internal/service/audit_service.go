package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/asmil/asmil-api/internal/models"
	"github.com/asmil/asmil-api/pkg/export"
)

type auditRepository interface {
	Create(ctx context.Context, entry *models.AuditLog) error
	List(ctx context.Context, filter models.AuditFilter) ([]models.AuditLog, int, error)
	ListAll(ctx context.Context, filter models.AuditFilter) ([]models.AuditLog, error)
}

// AuditService reads and writes the audit trail.
type AuditService struct {
	repo     auditRepository
	exporter *ExportService
	logger   *zap.Logger
	now      func() time.Time
}

// NewAuditService constructs an AuditService.
func NewAuditService(repo auditRepository, exporter *ExportService, logger *zap.Logger) *AuditService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuditService{repo: repo, exporter: exporter, logger: logger, now: time.Now}
}

// Create stores an entry.
func (s *AuditService) Create(ctx context.Context, entry *models.AuditLog) error {
	if err := s.repo.Create(ctx, entry); err != nil {
		return internalError(err, "failed to write audit log")
	}
	return nil
}

// List returns audit entries, newest first.
func (s *AuditService) List(ctx context.Context, filter models.AuditFilter) ([]models.AuditLog, *models.Pagination, error) {
	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, internalError(err, "failed to list audit logs")
	}
	return items, paginationFor(filter.Page, filter.PageSize, total), nil
}

// Export renders the filtered audit trail as CSV.
func (s *AuditService) Export(ctx context.Context, filter models.AuditFilter) (*ExportFile, error) {
	items, err := s.repo.ListAll(ctx, filter)
	if err != nil {
		return nil, internalError(err, "failed to load audit logs")
	}
	now := s.now()
	return s.exporter.Render(ExportFormatCSV, "journal_audit", AuditDataset(items), now)
}

// AuditDataset lays out audit entries as export rows.
func AuditDataset(items []models.AuditLog) export.Dataset {
	headers := []string{"Date", "Utilisateur", "Action", "Ressource", "Identifiant", "Adresse IP", "Détails"}
	rows := make([]map[string]string, 0, len(items))
	for _, item := range items {
		user := deref(item.UserName)
		if user == "" {
			user = deref(item.UserID)
		}
		rows = append(rows, map[string]string{
			"Date":        item.CreatedAt.Format("2006-01-02 15:04:05"),
			"Utilisateur": user,
			"Action":      item.Action,
			"Ressource":   item.Resource,
			"Identifiant": deref(item.ResourceID),
			"Adresse IP":  item.IPAddress,
			"Détails":     string(item.Details),
		})
	}
	return export.Dataset{Title: "Journal d'audit", Headers: headers, Rows: rows}
}
