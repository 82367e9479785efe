package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/asmil/asmil-api/internal/dto"
	"github.com/asmil/asmil-api/internal/models"
	appErrors "github.com/asmil/asmil-api/pkg/errors"
)

type settingRepository interface {
	ListByKeys(ctx context.Context, keys []string) ([]models.Setting, error)
	BulkUpsert(ctx context.Context, settings []models.Setting) error
}

type knownSetting struct {
	Key         string
	Type        models.SettingType
	Description string
	Default     string
	// Check validates a normalised value beyond its type.
	Check func(value string) error
}

var settingKeys = []string{
	"institute_name",
	"institute_address",
	"institute_phone",
	"currency",
	"invoice_prefix",
	"invoice_due_days",
	"certificate_min_attendance",
	"backup_enabled",
	"backup_schedule",
}

var knownSettings = map[string]knownSetting{
	"institute_name":    {Key: "institute_name", Type: models.SettingTypeString, Description: "Nom affiché sur les documents", Default: "ASMiL"},
	"institute_address": {Key: "institute_address", Type: models.SettingTypeString, Description: "Adresse de l'institut"},
	"institute_phone":   {Key: "institute_phone", Type: models.SettingTypeString, Description: "Téléphone de l'institut"},
	"currency":          {Key: "currency", Type: models.SettingTypeString, Description: "Devise des montants", Default: "FCFA"},
	"invoice_prefix":    {Key: "invoice_prefix", Type: models.SettingTypeString, Description: "Préfixe des numéros de facture", Default: "FAC"},
	"invoice_due_days": {Key: "invoice_due_days", Type: models.SettingTypeNumber, Description: "Délai de paiement des factures (jours)", Default: "30",
		Check: func(value string) error {
			if n, _ := strconv.ParseFloat(value, 64); n < 0 {
				return fmt.Errorf("must not be negative")
			}
			return nil
		}},
	"certificate_min_attendance": {Key: "certificate_min_attendance", Type: models.SettingTypeNumber, Description: "Assiduité minimale pour un certificat (%)", Default: "0",
		Check: func(value string) error {
			if n, _ := strconv.ParseFloat(value, 64); n < 0 || n > 100 {
				return fmt.Errorf("must be between 0 and 100")
			}
			return nil
		}},
	"backup_enabled": {Key: "backup_enabled", Type: models.SettingTypeBoolean, Description: "Sauvegardes automatiques", Default: "true"},
	"backup_schedule": {Key: "backup_schedule", Type: models.SettingTypeString, Description: "Expression cron des sauvegardes", Default: "0 2 * * *",
		Check: func(value string) error {
			_, err := cron.ParseStandard(value)
			return err
		}},
}

// SettingService reads and writes the institute settings.
type SettingService struct {
	repo      settingRepository
	audit     auditWriter
	validator *validator.Validate
	logger    *zap.Logger
}

// NewSettingService constructs a SettingService.
func NewSettingService(repo settingRepository, audit auditWriter, validate *validator.Validate, logger *zap.Logger) *SettingService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SettingService{repo: repo, audit: audit, validator: validate, logger: logger}
}

// List returns every known setting, falling back to defaults for unset keys.
func (s *SettingService) List(ctx context.Context) ([]dto.SettingItem, error) {
	rows, err := s.repo.ListByKeys(ctx, settingKeys)
	if err != nil {
		return nil, internalError(err, "failed to list settings")
	}
	existing := make(map[string]models.Setting, len(rows))
	for _, row := range rows {
		existing[row.Key] = row
	}
	items := make([]dto.SettingItem, 0, len(settingKeys))
	for _, key := range settingKeys {
		meta := knownSettings[key]
		item := dto.SettingItem{Key: key, Type: string(meta.Type), Description: meta.Description, Value: meta.Default}
		if row, ok := existing[key]; ok {
			item.Value = row.Value
		}
		items = append(items, item)
	}
	return items, nil
}

// Value returns one setting or its default.
func (s *SettingService) Value(ctx context.Context, key string) (string, error) {
	meta, ok := knownSettings[key]
	if !ok {
		return "", appErrors.Clone(appErrors.ErrValidation, "unsupported setting key")
	}
	rows, err := s.repo.ListByKeys(ctx, []string{key})
	if err != nil {
		return "", internalError(err, "failed to load setting")
	}
	if len(rows) > 0 {
		return rows[0].Value, nil
	}
	return meta.Default, nil
}

// BulkUpdate validates every item and stores them in one transaction.
func (s *SettingService) BulkUpdate(ctx context.Context, req dto.BulkUpdateSettingsRequest, actor *models.JWTClaims) ([]dto.SettingItem, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid settings payload")
	}
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}

	toUpsert := make([]models.Setting, 0, len(req.Items))
	changes := make(map[string]string, len(req.Items))
	for _, item := range req.Items {
		meta, ok := knownSettings[item.Key]
		if !ok {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported setting key %q", item.Key))
		}
		value, err := normaliseSetting(meta, item.Value)
		if err != nil {
			return nil, err
		}
		description := meta.Description
		userID := actor.UserID
		toUpsert = append(toUpsert, models.Setting{
			Key:         meta.Key,
			Value:       value,
			Type:        meta.Type,
			Description: &description,
			UpdatedBy:   &userID,
		})
		changes[meta.Key] = value
	}

	if err := s.repo.BulkUpsert(ctx, toUpsert); err != nil {
		return nil, internalError(err, "failed to update settings")
	}
	s.emitAudit(ctx, actor, changes)

	result := make([]dto.SettingItem, 0, len(toUpsert))
	for _, row := range toUpsert {
		result = append(result, dto.SettingItem{Key: row.Key, Value: row.Value, Type: string(row.Type), Description: knownSettings[row.Key].Description})
	}
	return result, nil
}

func normaliseSetting(meta knownSetting, raw string) (string, error) {
	value := strings.TrimSpace(raw)
	switch meta.Type {
	case models.SettingTypeBoolean:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("%s expects a boolean value", meta.Key))
		}
		value = strconv.FormatBool(b)
	case models.SettingTypeNumber:
		if _, err := strconv.ParseFloat(value, 64); err != nil {
			return "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("%s expects a numeric value", meta.Key))
		}
	}
	if meta.Check != nil {
		if err := meta.Check(value); err != nil {
			return "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("%s: %v", meta.Key, err))
		}
	}
	return value, nil
}

func (s *SettingService) emitAudit(ctx context.Context, actor *models.JWTClaims, changes map[string]string) {
	if s.audit == nil {
		return
	}
	details, _ := json.Marshal(changes)
	userID := actor.UserID
	if err := s.audit.Create(ctx, &models.AuditLog{
		UserID:    &userID,
		Action:    models.AuditActionSettingsUpdate,
		Resource:  "settings",
		Details:   details,
		IPAddress: "system",
		UserAgent: "settings-service",
	}); err != nil {
		s.logger.Warn("failed to record settings audit", zap.Error(err))
	}
}
