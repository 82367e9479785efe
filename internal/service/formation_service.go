package service

import (
	"context"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/asmil/asmil-api/internal/models"
	appErrors "github.com/asmil/asmil-api/pkg/errors"
)

type formationRepository interface {
	List(ctx context.Context, filter models.FormationFilter) ([]models.Formation, int, error)
	FindByID(ctx context.Context, id string) (*models.Formation, error)
	Create(ctx context.Context, formation *models.Formation) error
	Update(ctx context.Context, formation *models.Formation) error
	Delete(ctx context.Context, id string) error
}

type moduleRepository interface {
	List(ctx context.Context, filter models.ModuleFilter) ([]models.Module, int, error)
	FindByID(ctx context.Context, id string) (*models.Module, error)
	Create(ctx context.Context, module *models.Module) error
	Update(ctx context.Context, module *models.Module) error
	Delete(ctx context.Context, id string) error
}

// FormationRequest is the payload for creating or updating formations.
type FormationRequest struct {
	Title           string               `json:"title" validate:"required"`
	Type            models.FormationType `json:"type" validate:"required,oneof=certifiante diplomante service"`
	Category        string               `json:"category"`
	DurationMonths  int                  `json:"duration_months" validate:"gte=0"`
	RegistrationFee decimal.Decimal      `json:"registration_fee"`
	TuitionFee      decimal.Decimal      `json:"tuition_fee"`
	Description     string               `json:"description"`
}

// ModuleRequest is the payload for creating or updating modules.
type ModuleRequest struct {
	FormationID string `json:"formation_id" validate:"required"`
	Title       string `json:"title" validate:"required"`
	Hours       int    `json:"hours" validate:"gte=0"`
	Description string `json:"description"`
}

// FormationService manages formations and their modules.
type FormationService struct {
	formations formationRepository
	modules    moduleRepository
	cache      aggregateInvalidator
	validator  *validator.Validate
	logger     *zap.Logger
}

// NewFormationService constructs a FormationService.
func NewFormationService(formations formationRepository, modules moduleRepository, cache aggregateInvalidator, validate *validator.Validate, logger *zap.Logger) *FormationService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FormationService{formations: formations, modules: modules, cache: orNoop(cache), validator: validate, logger: logger}
}

func validateFees(req FormationRequest) error {
	if req.RegistrationFee.IsNegative() || req.TuitionFee.IsNegative() {
		return appErrors.Clone(appErrors.ErrValidation, "fees must not be negative")
	}
	return nil
}

// List returns formations with pagination.
func (s *FormationService) List(ctx context.Context, filter models.FormationFilter) ([]models.Formation, *models.Pagination, error) {
	items, total, err := s.formations.List(ctx, filter)
	if err != nil {
		return nil, nil, internalError(err, "failed to list formations")
	}
	return items, paginationFor(filter.Page, filter.PageSize, total), nil
}

// Get returns a formation by id.
func (s *FormationService) Get(ctx context.Context, id string) (*models.Formation, error) {
	formation, err := s.formations.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "formation not found", "failed to load formation")
	}
	return formation, nil
}

func applyFormationRequest(f *models.Formation, req FormationRequest) {
	f.Title = req.Title
	f.Type = req.Type
	f.Category = strPtr(req.Category)
	f.DurationMonths = req.DurationMonths
	f.RegistrationFee = req.RegistrationFee
	f.TuitionFee = req.TuitionFee
	f.Description = strPtr(req.Description)
}

// Create registers a formation.
func (s *FormationService) Create(ctx context.Context, req FormationRequest) (*models.Formation, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid formation payload")
	}
	if err := validateFees(req); err != nil {
		return nil, err
	}
	formation := &models.Formation{}
	applyFormationRequest(formation, req)
	if err := s.formations.Create(ctx, formation); err != nil {
		return nil, internalError(err, "failed to create formation")
	}
	return formation, nil
}

// Update modifies a formation. Titles feed the revenue rollup so aggregates are dropped.
func (s *FormationService) Update(ctx context.Context, id string, req FormationRequest) (*models.Formation, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid formation payload")
	}
	if err := validateFees(req); err != nil {
		return nil, err
	}
	formation, err := s.formations.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "formation not found", "failed to load formation")
	}
	applyFormationRequest(formation, req)
	if err := s.formations.Update(ctx, formation); err != nil {
		return nil, internalError(err, "failed to update formation")
	}
	s.cache.InvalidateAggregates(ctx)
	return formation, nil
}

// Delete removes a formation.
func (s *FormationService) Delete(ctx context.Context, id string) error {
	if err := s.formations.Delete(ctx, id); err != nil {
		return lookupError(err, "formation not found", "failed to delete formation")
	}
	s.cache.InvalidateAggregates(ctx)
	return nil
}

// ListModules returns modules, optionally of one formation.
func (s *FormationService) ListModules(ctx context.Context, filter models.ModuleFilter) ([]models.Module, *models.Pagination, error) {
	if filter.FormationID != "" {
		if _, err := s.formations.FindByID(ctx, filter.FormationID); err != nil {
			return nil, nil, lookupError(err, "formation not found", "failed to load formation")
		}
	}
	items, total, err := s.modules.List(ctx, filter)
	if err != nil {
		return nil, nil, internalError(err, "failed to list modules")
	}
	return items, paginationFor(filter.Page, filter.PageSize, total), nil
}

// GetModule returns a module by id.
func (s *FormationService) GetModule(ctx context.Context, id string) (*models.Module, error) {
	module, err := s.modules.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "module not found", "failed to load module")
	}
	return module, nil
}

// CreateModule adds a module to an existing formation.
func (s *FormationService) CreateModule(ctx context.Context, req ModuleRequest) (*models.Module, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid module payload")
	}
	if _, err := s.formations.FindByID(ctx, req.FormationID); err != nil {
		return nil, lookupError(err, "formation not found", "failed to load formation")
	}
	module := &models.Module{FormationID: req.FormationID, Title: req.Title, Hours: req.Hours, Description: strPtr(req.Description)}
	if err := s.modules.Create(ctx, module); err != nil {
		return nil, internalError(err, "failed to create module")
	}
	return module, nil
}

// UpdateModule modifies a module.
func (s *FormationService) UpdateModule(ctx context.Context, id string, req ModuleRequest) (*models.Module, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid module payload")
	}
	module, err := s.modules.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "module not found", "failed to load module")
	}
	if req.FormationID != module.FormationID {
		if _, err := s.formations.FindByID(ctx, req.FormationID); err != nil {
			return nil, lookupError(err, "formation not found", "failed to load formation")
		}
	}
	module.FormationID = req.FormationID
	module.Title = req.Title
	module.Hours = req.Hours
	module.Description = strPtr(req.Description)
	if err := s.modules.Update(ctx, module); err != nil {
		return nil, internalError(err, "failed to update module")
	}
	return module, nil
}

// DeleteModule removes a module.
func (s *FormationService) DeleteModule(ctx context.Context, id string) error {
	if err := s.modules.Delete(ctx, id); err != nil {
		return lookupError(err, "module not found", "failed to delete module")
	}
	return nil
}
