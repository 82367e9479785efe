package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/asmil/asmil-api/internal/models"
	appErrors "github.com/asmil/asmil-api/pkg/errors"
)

type userRepository interface {
	List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, user *models.User) error
	UpdateAvatar(ctx context.Context, id, avatarURL string) error
	Delete(ctx context.Context, id string) error
}

// CreateUserRequest represents payload for creating users.
type CreateUserRequest struct {
	Email    string            `json:"email" validate:"required,email"`
	FullName string            `json:"full_name" validate:"required"`
	Role     models.UserRole   `json:"role" validate:"required,oneof=Admin Gestionnaire"`
	Status   models.UserStatus `json:"status" validate:"omitempty,oneof=active inactive"`
	Phone    string            `json:"phone"`
	Password string            `json:"password" validate:"required,min=8"`
}

// UpdateUserRequest payload for updating users.
type UpdateUserRequest struct {
	FullName string            `json:"full_name" validate:"required"`
	Role     models.UserRole   `json:"role" validate:"required,oneof=Admin Gestionnaire"`
	Status   models.UserStatus `json:"status" validate:"omitempty,oneof=active inactive"`
	Phone    string            `json:"phone"`
}

// UpdateProfileRequest is what a user may change on their own account.
type UpdateProfileRequest struct {
	FullName string `json:"full_name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Phone    string `json:"phone"`
}

// UserService handles user management workflows.
type UserService struct {
	repo      userRepository
	images    imageStore
	validator *validator.Validate
	logger    *zap.Logger
}

// NewUserService creates an instance of UserService.
func NewUserService(repo userRepository, images imageStore, validate *validator.Validate, logger *zap.Logger) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &UserService{repo: repo, images: images, validator: validate, logger: logger}
}

// List returns paginated users and pagination metadata.
func (s *UserService) List(ctx context.Context, filter models.UserFilter) ([]models.User, *models.Pagination, error) {
	users, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, internalError(err, "failed to list users")
	}
	return users, paginationFor(filter.Page, filter.PageSize, total), nil
}

// Get returns a user by ID.
func (s *UserService) Get(ctx context.Context, id string) (*models.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "user not found", "failed to load user")
	}
	return user, nil
}

func (s *UserService) ensureEmailFree(ctx context.Context, email, ownerID string) error {
	existing, err := s.repo.FindByEmail(ctx, email)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil
	case err != nil:
		return internalError(err, "failed to check email uniqueness")
	case existing.ID != ownerID:
		return appErrors.Clone(appErrors.ErrConflict, "email already exists")
	}
	return nil
}

// Create adds a new user.
func (s *UserService) Create(ctx context.Context, req CreateUserRequest) (*models.User, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid create user payload")
	}
	if err := s.ensureEmailFree(ctx, req.Email, ""); err != nil {
		return nil, err
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, internalError(err, "failed to hash password")
	}

	status := req.Status
	if status == "" {
		status = models.UserStatusActive
	}
	user := &models.User{
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		FullName:     strings.TrimSpace(req.FullName),
		Role:         req.Role,
		Status:       status,
		Phone:        strPtr(req.Phone),
		PasswordHash: string(passwordHash),
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, internalError(err, "failed to create user")
	}
	return user, nil
}

// Update modifies role, status and contact details.
func (s *UserService) Update(ctx context.Context, id string, req UpdateUserRequest) (*models.User, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid update payload")
	}
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "user not found", "failed to load user")
	}
	user.FullName = strings.TrimSpace(req.FullName)
	user.Role = req.Role
	user.Phone = strPtr(req.Phone)
	if req.Status != "" {
		user.Status = req.Status
	}
	if err := s.repo.Update(ctx, user); err != nil {
		return nil, internalError(err, "failed to update user")
	}
	return user, nil
}

// UpdateProfile changes name, email and phone of an account, keeping role and status.
func (s *UserService) UpdateProfile(ctx context.Context, id string, req UpdateProfileRequest) (*models.User, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid profile payload")
	}
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "user not found", "failed to load user")
	}
	if err := s.ensureEmailFree(ctx, req.Email, id); err != nil {
		return nil, err
	}
	user.FullName = strings.TrimSpace(req.FullName)
	user.Email = strings.ToLower(strings.TrimSpace(req.Email))
	user.Phone = strPtr(req.Phone)
	if err := s.repo.Update(ctx, user); err != nil {
		return nil, internalError(err, "failed to update profile")
	}
	return user, nil
}

// Delete removes a user; an account cannot delete itself.
func (s *UserService) Delete(ctx context.Context, id, actorID string) error {
	if id == actorID {
		return appErrors.Clone(appErrors.ErrForbidden, "you cannot delete your own account")
	}
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return lookupError(err, "user not found", "failed to load user")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return lookupError(err, "user not found", "failed to delete user")
	}
	if user.AvatarURL != nil && s.images != nil {
		s.images.Remove(*user.AvatarURL)
	}
	return nil
}

// UploadAvatar stores a resized avatar and returns its public URL.
func (s *UserService) UploadAvatar(ctx context.Context, id string, data []byte) (*models.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "user not found", "failed to load user")
	}
	url, err := s.images.Store("avatars", id, data)
	if err != nil {
		return nil, err
	}
	if err := s.repo.UpdateAvatar(ctx, id, url); err != nil {
		s.images.Remove(url)
		return nil, lookupError(err, "user not found", "failed to save avatar")
	}
	if user.AvatarURL != nil {
		s.images.Remove(*user.AvatarURL)
	}
	user.AvatarURL = &url
	return user, nil
}
