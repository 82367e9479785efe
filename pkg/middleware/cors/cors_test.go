package cors

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRouter(origins ...string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(New(origins))
	r.GET("/api/finance/overview/export", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	return r
}

func request(r *gin.Engine, method, origin string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, "/api/finance/overview/export", nil)
	if origin != "" {
		req.Header.Set("Origin", origin)
	}
	if method == http.MethodOptions {
		req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestAllowedConsoleOrigin(t *testing.T) {
	r := newRouter("https://console.asmil.test/")

	rec := request(r, http.MethodGet, "https://Console.asmil.test")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "https://Console.asmil.test", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
	assert.Contains(t, rec.Header().Get("Access-Control-Expose-Headers"), "Content-Disposition")
	assert.Equal(t, "Origin", rec.Header().Get("Vary"))

	rec = request(r, http.MethodOptions, "https://console.asmil.test")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "DELETE")
	assert.Equal(t, "600", rec.Header().Get("Access-Control-Max-Age"))
}

func TestUnknownOriginGetsNoGrant(t *testing.T) {
	r := newRouter("https://console.asmil.test")

	rec := request(r, http.MethodGet, "https://evil.test")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Credentials"))

	rec = request(r, http.MethodOptions, "https://evil.test")
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestEmptyListEchoesAnyOrigin(t *testing.T) {
	for _, r := range []*gin.Engine{newRouter(), newRouter("*")} {
		rec := request(r, http.MethodGet, "http://localhost:5173")
		assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))
	}
}

func TestRequestWithoutOriginPassesUntouched(t *testing.T) {
	rec := request(newRouter("https://console.asmil.test"), http.MethodGet, "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Empty(t, rec.Header().Get("Vary"))
}
