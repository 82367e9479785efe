package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/asmil/asmil-api/internal/models"
	appErrors "github.com/asmil/asmil-api/pkg/errors"
)

type memoryUsers struct {
	items   map[string]*models.User
	avatars map[string]string
}

func (m *memoryUsers) List(context.Context, models.UserFilter) ([]models.User, int, error) {
	out := make([]models.User, 0, len(m.items))
	for _, u := range m.items {
		out = append(out, *u)
	}
	return out, len(out), nil
}

func (m *memoryUsers) FindByID(_ context.Context, id string) (*models.User, error) {
	u, ok := m.items[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *u
	return &clone, nil
}

func (m *memoryUsers) FindByEmail(_ context.Context, email string) (*models.User, error) {
	for _, u := range m.items {
		if u.Email == email {
			clone := *u
			return &clone, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *memoryUsers) Create(_ context.Context, user *models.User) error {
	user.ID = "u-new"
	clone := *user
	m.items[user.ID] = &clone
	return nil
}

func (m *memoryUsers) Update(_ context.Context, user *models.User) error {
	clone := *user
	m.items[user.ID] = &clone
	return nil
}

func (m *memoryUsers) UpdateAvatar(_ context.Context, id, url string) error {
	m.avatars[id] = url
	return nil
}

func (m *memoryUsers) Delete(_ context.Context, id string) error {
	delete(m.items, id)
	return nil
}

func newUserFixture() (*UserService, *memoryUsers, *fakeImages) {
	avatar := "/uploads/avatars/u2-old.png"
	repo := &memoryUsers{
		items: map[string]*models.User{
			"u1": {ID: "u1", Email: "admin@asmil.ci", FullName: "Admin", Role: models.RoleAdmin, Status: models.UserStatusActive},
			"u2": {ID: "u2", Email: "sec@asmil.ci", FullName: "Secrétaire", Role: models.RoleGestionnaire, Status: models.UserStatusActive, AvatarURL: &avatar},
		},
		avatars: map[string]string{},
	}
	images := &fakeImages{}
	return NewUserService(repo, images, nil, nil), repo, images
}

func TestUserCreate(t *testing.T) {
	svc, _, _ := newUserFixture()
	ctx := context.Background()

	user, err := svc.Create(ctx, CreateUserRequest{Email: " New@Asmil.ci ", FullName: "Nouveau", Role: models.RoleGestionnaire, Password: "motdepasse"})
	require.NoError(t, err)
	assert.Equal(t, "new@asmil.ci", user.Email)
	assert.Equal(t, models.UserStatusActive, user.Status)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("motdepasse")))

	_, err = svc.Create(ctx, CreateUserRequest{Email: "admin@asmil.ci", FullName: "Dup", Role: models.RoleAdmin, Password: "motdepasse"})
	assert.True(t, errors.Is(err, appErrors.ErrConflict))

	_, err = svc.Create(ctx, CreateUserRequest{Email: "x@asmil.ci", FullName: "X", Role: "Teacher", Password: "motdepasse"})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	_, err = svc.Create(ctx, CreateUserRequest{Email: "x@asmil.ci", FullName: "X", Role: models.RoleAdmin, Password: "court"})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}

func TestUserUpdateProfileKeepsRole(t *testing.T) {
	svc, _, _ := newUserFixture()
	ctx := context.Background()

	user, err := svc.UpdateProfile(ctx, "u2", UpdateProfileRequest{FullName: "Awa", Email: "sec@asmil.ci", Phone: "0102030405"})
	require.NoError(t, err)
	assert.Equal(t, "Awa", user.FullName)
	assert.Equal(t, models.RoleGestionnaire, user.Role)

	_, err = svc.UpdateProfile(ctx, "u2", UpdateProfileRequest{FullName: "Awa", Email: "admin@asmil.ci"})
	assert.True(t, errors.Is(err, appErrors.ErrConflict))
}

func TestUserDelete(t *testing.T) {
	svc, repo, images := newUserFixture()
	ctx := context.Background()

	assert.True(t, errors.Is(svc.Delete(ctx, "u1", "u1"), appErrors.ErrForbidden))
	require.NoError(t, svc.Delete(ctx, "u2", "u1"))
	assert.NotContains(t, repo.items, "u2")
	assert.Equal(t, []string{"/uploads/avatars/u2-old.png"}, images.removed)
	assert.True(t, errors.Is(svc.Delete(ctx, "u2", "u1"), appErrors.ErrNotFound))
}

func TestUserUploadAvatar(t *testing.T) {
	svc, repo, images := newUserFixture()

	user, err := svc.UploadAvatar(context.Background(), "u2", []byte("img"))
	require.NoError(t, err)
	require.NotNil(t, user.AvatarURL)
	assert.Equal(t, "/uploads/avatars/u2.png", *user.AvatarURL)
	assert.Equal(t, "/uploads/avatars/u2.png", repo.avatars["u2"])
	assert.Equal(t, []string{"/uploads/avatars/u2-old.png"}, images.removed)

	images.err = appErrors.Clone(appErrors.ErrUnsupportedMedia, "")
	_, err = svc.UploadAvatar(context.Background(), "u1", []byte("txt"))
	assert.True(t, errors.Is(err, appErrors.ErrUnsupportedMedia))
}
