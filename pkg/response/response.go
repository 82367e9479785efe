package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/asmil/asmil-api/internal/models"
	appErrors "github.com/asmil/asmil-api/pkg/errors"
)

// Envelope represents the contract used by aggregate endpoints (stats, dashboards).
type Envelope struct {
	Data       interface{}            `json:"data,omitempty"`
	Message    string                 `json:"message,omitempty"`
	Error      *appErrors.Error       `json:"error,omitempty"`
	Pagination *models.Pagination     `json:"pagination,omitempty"`
	Meta       map[string]interface{} `json:"meta,omitempty"`
}

func noStore(c *gin.Context) {
	c.Header("Cache-Control", "no-store")
	c.Header("Pragma", "no-cache")
}

// JSON sends a success response with optional pagination metadata.
func JSON(c *gin.Context, status int, data interface{}, pagination *models.Pagination, meta ...map[string]interface{}) {
	noStore(c)
	envelope := Envelope{Data: data, Pagination: pagination}
	if len(meta) > 0 && meta[0] != nil {
		envelope.Meta = meta[0]
	}
	c.JSON(status, envelope)
}

// Collection renders a list keyed by resource name, e.g. {"students": [...], "pagination": {...}}.
func Collection(c *gin.Context, name string, items interface{}, pagination *models.Pagination) {
	noStore(c)
	body := gin.H{name: items}
	if pagination != nil {
		body["pagination"] = pagination
	}
	c.JSON(http.StatusOK, body)
}

// Item renders a single resource keyed by its singular name.
func Item(c *gin.Context, status int, name string, item interface{}) {
	noStore(c)
	c.JSON(status, gin.H{name: item})
}

// Created responds with HTTP 201 Created.
func Created(c *gin.Context, name string, item interface{}) {
	Item(c, http.StatusCreated, name, item)
}

// Message sends a plain acknowledgement.
func Message(c *gin.Context, status int, message string) {
	noStore(c)
	c.JSON(status, gin.H{"message": message})
}

// Error sends an error response converting the error to the common structure.
func Error(c *gin.Context, err error) {
	appErr := appErrors.FromError(err)
	noStore(c)
	c.JSON(appErr.Status, Envelope{Message: appErr.Message, Error: appErr})
}

// Abort writes the error and stops the handler chain; used by middleware.
func Abort(c *gin.Context, err error) {
	Error(c, err)
	c.Abort()
}

// NoContent sends a 204 response.
func NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}
