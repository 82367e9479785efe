package service

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/asmil/asmil-api/internal/models"
	appErrors "github.com/asmil/asmil-api/pkg/errors"
)

type announcementRepository interface {
	List(ctx context.Context, filter models.AnnouncementFilter) ([]models.Announcement, int, error)
	GetByID(ctx context.Context, id string) (*models.Announcement, error)
	Create(ctx context.Context, announcement *models.Announcement) error
	Update(ctx context.Context, announcement *models.Announcement) error
	Delete(ctx context.Context, id string) error
}

// Audiences accepted for announcements.
var announcementAudiences = []string{"tous", "étudiants", "enseignants", "personnel"}

// AnnouncementService handles announcement workflows.
type AnnouncementService struct {
	repo      announcementRepository
	cache     aggregateInvalidator
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewAnnouncementService constructs the service.
func NewAnnouncementService(repo announcementRepository, cache aggregateInvalidator, validate *validator.Validate, logger *zap.Logger) *AnnouncementService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &AnnouncementService{repo: repo, cache: orNoop(cache), validator: validate, logger: logger, now: time.Now}
	_ = svc.validator.RegisterValidation("audience", func(fl validator.FieldLevel) bool {
		value := strings.ToLower(strings.TrimSpace(fl.Field().String()))
		for _, audience := range announcementAudiences {
			if value == audience {
				return true
			}
		}
		return false
	})
	return svc
}

// AnnouncementRequest describes the create and update payload.
type AnnouncementRequest struct {
	Title          string                  `json:"title" validate:"required"`
	Content        string                  `json:"content" validate:"required"`
	Type           models.AnnouncementType `json:"type" validate:"required,oneof=information urgent événement 'session ouverte'"`
	TargetAudience string                  `json:"target_audience" validate:"omitempty,audience"`
	PublishDate    *time.Time              `json:"publish_date"`
	ExpiryDate     *time.Time              `json:"expiry_date"`
	Published      *bool                   `json:"published"`
}

// List returns announcements; ActiveOnly keeps those published and not expired at filter.At.
func (s *AnnouncementService) List(ctx context.Context, filter models.AnnouncementFilter) ([]models.Announcement, *models.Pagination, error) {
	if filter.ActiveOnly && filter.At.IsZero() {
		filter.At = s.now()
	}
	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, internalError(err, "failed to list announcements")
	}
	return items, paginationFor(filter.Page, filter.PageSize, total), nil
}

// Get returns a single announcement.
func (s *AnnouncementService) Get(ctx context.Context, id string) (*models.Announcement, error) {
	item, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "announcement not found", "failed to load announcement")
	}
	return item, nil
}

func (s *AnnouncementService) apply(item *models.Announcement, req AnnouncementRequest) error {
	item.Title = strings.TrimSpace(req.Title)
	item.Content = req.Content
	item.Type = req.Type
	item.TargetAudience = strings.ToLower(strings.TrimSpace(req.TargetAudience))
	if item.TargetAudience == "" {
		item.TargetAudience = announcementAudiences[0]
	}
	if req.PublishDate != nil {
		item.PublishDate = *req.PublishDate
	} else if item.PublishDate.IsZero() {
		item.PublishDate = s.now()
	}
	item.ExpiryDate = req.ExpiryDate
	if req.Published != nil {
		item.Published = *req.Published
	}
	if item.ExpiryDate != nil && item.ExpiryDate.Before(item.PublishDate) {
		return appErrors.Clone(appErrors.ErrValidation, "expiry_date must not precede publish_date")
	}
	return nil
}

// Create publishes a new announcement; it is published unless told otherwise.
func (s *AnnouncementService) Create(ctx context.Context, req AnnouncementRequest, createdBy string) (*models.Announcement, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid announcement payload")
	}
	item := &models.Announcement{Published: true, CreatedBy: strPtr(createdBy)}
	if err := s.apply(item, req); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, item); err != nil {
		return nil, internalError(err, "failed to create announcement")
	}
	s.cache.InvalidateAggregates(ctx)
	return item, nil
}

// Update modifies an announcement.
func (s *AnnouncementService) Update(ctx context.Context, id string, req AnnouncementRequest) (*models.Announcement, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid announcement payload")
	}
	item, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "announcement not found", "failed to load announcement")
	}
	if err := s.apply(item, req); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, item); err != nil {
		return nil, internalError(err, "failed to update announcement")
	}
	s.cache.InvalidateAggregates(ctx)
	return item, nil
}

// Delete removes an announcement.
func (s *AnnouncementService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return lookupError(err, "announcement not found", "failed to delete announcement")
	}
	s.cache.InvalidateAggregates(ctx)
	return nil
}
