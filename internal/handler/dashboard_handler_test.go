package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asmil/asmil-api/internal/dto"
	"github.com/asmil/asmil-api/internal/middleware"
	appErrors "github.com/asmil/asmil-api/pkg/errors"
)

type fakeDashboardSrv struct {
	adminResp     *dto.AdminDashboardResponse
	secretaryResp *dto.SecretaryDashboardResponse
	hit           bool
	err           error
	lastNow       time.Time
}

func (f *fakeDashboardSrv) Admin(_ context.Context, now time.Time) (*dto.AdminDashboardResponse, bool, error) {
	f.lastNow = now
	return f.adminResp, f.hit, f.err
}

func (f *fakeDashboardSrv) Secretary(_ context.Context, now time.Time) (*dto.SecretaryDashboardResponse, bool, error) {
	f.lastNow = now
	return f.secretaryResp, f.hit, f.err
}

var dashboardNow = time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)

func dashboardRouter(srv *fakeDashboardSrv) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewDashboardHandler(srv, func() time.Time { return dashboardNow })
	r := gin.New()
	r.Use(middleware.WithResponseMeta())
	r.GET("/dashboard/admin", h.Admin)
	r.GET("/dashboard/secretary", h.Secretary)
	return r
}

func TestDashboardHandlerAdminExposesCacheHit(t *testing.T) {
	srv := &fakeDashboardSrv{adminResp: &dto.AdminDashboardResponse{}, hit: true}
	rec := httptest.NewRecorder()
	dashboardRouter(srv).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/dashboard/admin", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Data json.RawMessage        `json:"data"`
		Meta map[string]interface{} `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, true, body.Meta["cache_hit"])
	assert.Contains(t, body.Meta, "processing_time_ms")
	assert.Equal(t, dashboardNow, srv.lastNow)
}

func TestDashboardHandlerSecretaryPropagatesErrors(t *testing.T) {
	srv := &fakeDashboardSrv{err: appErrors.Clone(appErrors.ErrInternal, "failed to load dashboard")}
	rec := httptest.NewRecorder()
	dashboardRouter(srv).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/dashboard/secretary", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "failed to load dashboard")
}

func TestDashboardHandlerWithoutServiceFails(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewDashboardHandler(nil, nil)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/dashboard/admin", nil)

	h.Admin(c)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
