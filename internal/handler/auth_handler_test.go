package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asmil/asmil-api/internal/middleware"
	"github.com/asmil/asmil-api/internal/models"
	appErrors "github.com/asmil/asmil-api/pkg/errors"
)

type fakeAuthSrv struct {
	loginReq  models.LoginRequest
	loginErr  error
	changedID string
	changeErr error
}

func (f *fakeAuthSrv) Login(_ context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	f.loginReq = req
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	return &models.LoginResponse{
		User:  models.UserInfo{ID: "u1", Email: req.Email, FullName: "Awa Koné", Role: models.RoleAdmin, Status: models.UserStatusActive},
		Token: "signed-token",
	}, nil
}

func (f *fakeAuthSrv) ChangePassword(_ context.Context, userID string, _ models.ChangePasswordRequest, _ models.LoginRequest) error {
	f.changedID = userID
	return f.changeErr
}

type fakeUserLookup struct{}

func (fakeUserLookup) Get(_ context.Context, id string) (*models.User, error) {
	if id != "u1" {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
	}
	return &models.User{ID: "u1", Email: "awa@asmil.ci", FullName: "Awa Koné", Role: models.RoleAdmin, Status: models.UserStatusActive}, nil
}

func withClaims(claims *models.JWTClaims) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.ContextUserKey, claims)
		c.Next()
	}
}

func TestAuthHandlerLoginReturnsSessionShape(t *testing.T) {
	gin.SetMode(gin.TestMode)
	srv := &fakeAuthSrv{}
	r := gin.New()
	r.POST("/auth/login", NewAuthHandler(srv, fakeUserLookup{}).Login)

	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"email":"awa@asmil.ci","password":"secret123"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "console")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "signed-token", body["token"])
	assert.Equal(t, "Admin", body["user"].(map[string]interface{})["role"])
	assert.Equal(t, "console", srv.loginReq.UserAgent)
}

func TestAuthHandlerLoginFailures(t *testing.T) {
	gin.SetMode(gin.TestMode)
	srv := &fakeAuthSrv{loginErr: appErrors.ErrInvalidCredentials}
	r := gin.New()
	r.POST("/auth/login", NewAuthHandler(srv, fakeUserLookup{}).Login)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"email":"awa@asmil.ci","password":"bad"}`)))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), appErrors.ErrInvalidCredentials.Code)
}

func TestAuthHandlerMe(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewAuthHandler(&fakeAuthSrv{}, fakeUserLookup{})

	r := gin.New()
	r.GET("/auth/me", withClaims(&models.JWTClaims{UserID: "u1", Role: models.RoleAdmin}), h.Me)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/auth/me", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"email":"awa@asmil.ci"`)

	anonymous := gin.New()
	anonymous.GET("/auth/me", h.Me)
	rec = httptest.NewRecorder()
	anonymous.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/auth/me", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthHandlerChangePasswordMismatch(t *testing.T) {
	gin.SetMode(gin.TestMode)
	srv := &fakeAuthSrv{changeErr: appErrors.ErrPasswordMismatch}
	r := gin.New()
	r.PUT("/auth/change-password/:id", NewAuthHandler(srv, fakeUserLookup{}).ChangePassword)

	body := `{"current_password":"old-pass","new_password":"new-pass-1","confirm_password":"new-pass-2"}`
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/auth/change-password/u1", strings.NewReader(body)))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), appErrors.ErrPasswordMismatch.Code)
	assert.Equal(t, "u1", srv.changedID)
}
