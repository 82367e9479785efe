package response

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asmil/asmil-api/internal/models"
	appErrors "github.com/asmil/asmil-api/pkg/errors"
)

func TestCollectionKeysItemsByResourceName(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	Collection(c, "students", []string{"a", "b"}, &models.Pagination{Page: 1, PageSize: 20, TotalCount: 2})

	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Len(t, body["students"], 2)
	pagination := body["pagination"].(map[string]interface{})
	assert.EqualValues(t, 2, pagination["total_count"])
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
}

func TestErrorCarriesTopLevelMessage(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	Error(c, appErrors.ErrAmountExceedsBalance)

	require.Equal(t, http.StatusBadRequest, w.Code)
	var body struct {
		Message string `json:"message"`
		Error   struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "le montant dépasse le reste à payer", body.Message)
	assert.Equal(t, "AMOUNT_EXCEEDS_BALANCE", body.Error.Code)
}
