package middleware

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

	"github.com/asmil/asmil-api/internal/models"
	appErrors "github.com/asmil/asmil-api/pkg/errors"
)

type staticValidator struct {
	claims *models.JWTClaims
}

func (v staticValidator) ValidateToken(token string) (*models.JWTClaims, error) {
	if token != "valid" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token")
	}
	return v.claims, nil
}

func protectedRouter(claims *models.JWTClaims, guard gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(JWT(staticValidator{claims: claims}))
	r.PUT("/users/:id", guard, func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func doRequest(r http.Handler, method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", token)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestJWTRejectsMissingAndInvalidTokens(t *testing.T) {
	r := protectedRouter(&models.JWTClaims{UserID: "u1", Role: models.RoleAdmin}, RBAC(string(models.RoleAdmin)))

	for name, header := range map[string]string{
		"missing": "",
		"scheme":  "Basic abc",
		"empty":   "Bearer ",
		"forged":  "Bearer forged",
	} {
		t.Run(name, func(t *testing.T) {
			rec := doRequest(r, http.MethodPut, "/users/u1", header)
			require.Equal(t, http.StatusUnauthorized, rec.Code)
			var body map[string]interface{}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, "UNAUTHORIZED", body["error"].(map[string]interface{})["code"])
		})
	}

	assert.Equal(t, http.StatusOK, doRequest(r, http.MethodPut, "/users/u1", "Bearer valid").Code)
}

func TestRBACAllowsSelf(t *testing.T) {
	claims := &models.JWTClaims{UserID: "u2", Role: models.RoleGestionnaire}
	r := protectedRouter(claims, RBAC(string(models.RoleAdmin), RoleSelf))

	assert.Equal(t, http.StatusOK, doRequest(r, http.MethodPut, "/users/u2", "Bearer valid").Code)
	assert.Equal(t, http.StatusForbidden, doRequest(r, http.MethodPut, "/users/u3", "Bearer valid").Code)
}

func TestRequireRoles(t *testing.T) {
	secretary := &models.JWTClaims{UserID: "u2", Role: models.RoleGestionnaire}
	r := protectedRouter(secretary, RequireRoles(models.RoleAdmin))
	assert.Equal(t, http.StatusForbidden, doRequest(r, http.MethodPut, "/users/u2", "Bearer valid").Code)

	r = protectedRouter(secretary, RequireRoles(models.RoleAdmin, models.RoleGestionnaire))
	assert.Equal(t, http.StatusOK, doRequest(r, http.MethodPut, "/users/u2", "Bearer valid").Code)
}

func TestOptionalJWTNeverBlocks(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(OptionalJWT(staticValidator{claims: &models.JWTClaims{UserID: "u1"}}))
	r.GET("/", func(c *gin.Context) {
		if claims, ok := Claims(c); ok {
			c.String(http.StatusOK, claims.UserID)
			return
		}
		c.String(http.StatusOK, "anonymous")
	})

	assert.Equal(t, "anonymous", doRequest(r, http.MethodGet, "/", "Bearer forged").Body.String())
	assert.Equal(t, "u1", doRequest(r, http.MethodGet, "/", "Bearer valid").Body.String())
}

type recordingAudit struct {
	entries []*models.AuditLog
}

func (r *recordingAudit) Create(_ context.Context, entry *models.AuditLog) error {
	r.entries = append(r.entries, entry)
	return nil
}

func TestAuditRecordsSuccessfulMutations(t *testing.T) {
	gin.SetMode(gin.TestMode)
	writer := &recordingAudit{}
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(ContextUserKey, &models.JWTClaims{UserID: "u1", FullName: "Awa Koné"})
		c.Next()
	})
	group := r.Group("/students", Audit(writer, nil, "students"))
	group.GET("/:id", func(c *gin.Context) { c.Status(http.StatusOK) })
	group.PUT("/:id", func(c *gin.Context) { c.Status(http.StatusOK) })
	group.DELETE("/:id", func(c *gin.Context) {
		appErr := appErrors.Clone(appErrors.ErrNotFound, "student not found")
		c.JSON(appErr.Status, appErr)
	})

	doRequest(r, http.MethodGet, "/students/s1", "")
	doRequest(r, http.MethodDelete, "/students/s1", "")
	doRequest(r, http.MethodPut, "/students/s1", "")

	require.Len(t, writer.entries, 1)
	entry := writer.entries[0]
	assert.Equal(t, models.AuditActionUpdate, entry.Action)
	assert.Equal(t, "students", entry.Resource)
	require.NotNil(t, entry.ResourceID)
	assert.Equal(t, "s1", *entry.ResourceID)
	require.NotNil(t, entry.UserName)
	assert.Equal(t, "Awa Koné", *entry.UserName)

	var details map[string]interface{}
	require.NoError(t, json.Unmarshal(entry.Details, &details))
	assert.Equal(t, "/students/:id", details["path"])
	assert.EqualValues(t, http.StatusOK, details["status"])
}

func TestMetricsObservesMatchedRoute(t *testing.T) {
	gin.SetMode(gin.TestMode)
	observer := &recordingObserver{}
	r := gin.New()
	r.Use(Metrics(observer))
	r.GET("/students/:id", func(c *gin.Context) { c.Status(http.StatusOK) })

	doRequest(r, http.MethodGet, "/students/s1", "")
	doRequest(r, http.MethodGet, "/nowhere", "")

	require.Len(t, observer.paths, 2)
	assert.Equal(t, []string{"/students/:id", "unmatched"}, observer.paths)
	assert.Equal(t, []int{http.StatusOK, http.StatusNotFound}, observer.statuses)
}

type recordingObserver struct {
	paths    []string
	statuses []int
}

func (r *recordingObserver) ObserveHTTPRequest(_ string, path string, status int, _ time.Duration) {
	r.paths = append(r.paths, path)
	r.statuses = append(r.statuses, status)
}
