package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/asmil/asmil-api/internal/models"
	"github.com/asmil/asmil-api/internal/service"
	"github.com/asmil/asmil-api/pkg/jobs"
	appErrors "github.com/asmil/asmil-api/pkg/errors"
	"github.com/asmil/asmil-api/pkg/response"
)

type backupService interface {
	Export(ctx context.Context) (*service.ExportFile, error)
	Import(ctx context.Context, raw []byte, actor *models.JWTClaims, meta models.LoginRequest) (*models.RestoreSummary, error)
	List(ctx context.Context) ([]models.BackupFile, error)
	Open(token string) (*os.File, string, error)
}

type jobEnqueuer interface {
	Enqueue(job jobs.Job) (string, error)
}

// BackupHandler serves export, restore and stored backups.
type BackupHandler struct {
	service   backupService
	queue     jobEnqueuer
	maxImport int64
}

// NewBackupHandler constructs BackupHandler. queue may be nil when background jobs are disabled.
func NewBackupHandler(svc backupService, queue jobEnqueuer, maxImport int64) *BackupHandler {
	return &BackupHandler{service: svc, queue: queue, maxImport: maxImport}
}

// Export godoc
// @Summary Download a full JSON backup
// @Tags Backup
// @Produce json
// @Success 200 {object} models.BackupDocument
// @Router /backup/export [get]
func (h *BackupHandler) Export(c *gin.Context) {
	file, err := h.service.Export(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	sendFile(c, file)
}

// Import godoc
// @Summary Restore a JSON backup
// @Description Accepts a multipart "file" field or a raw JSON body. All tables present in the document are replaced in one transaction.
// @Tags Backup
// @Accept mpfd
// @Accept json
// @Produce json
// @Param file formData file false "Backup document"
// @Success 200 {object} map[string]models.RestoreSummary
// @Failure 400 {object} response.Envelope
// @Router /backup/import [post]
func (h *BackupHandler) Import(c *gin.Context) {
	raw, err := h.readDocument(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	summary, err := h.service.Import(c.Request.Context(), raw, claimsFromContext(c), requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Item(c, http.StatusOK, "restore", summary)
}

func (h *BackupHandler) readDocument(c *gin.Context) ([]byte, error) {
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		return readUpload(c, "file", h.maxImport)
	}
	reader := io.Reader(c.Request.Body)
	if h.maxImport > 0 {
		reader = io.LimitReader(c.Request.Body, h.maxImport+1)
	}
	raw, err := io.ReadAll(reader)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "failed to read backup")
	}
	if h.maxImport > 0 && int64(len(raw)) > h.maxImport {
		return nil, appErrors.ErrPayloadTooLarge
	}
	if len(raw) == 0 {
		return nil, appErrors.Clone(appErrors.ErrInvalidBackup, "fichier de sauvegarde vide")
	}
	return raw, nil
}

// List godoc
// @Summary List stored backups with signed download links
// @Tags Backup
// @Produce json
// @Success 200 {object} map[string][]models.BackupFile
// @Router /backups [get]
func (h *BackupHandler) List(c *gin.Context) {
	files, err := h.service.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Item(c, http.StatusOK, "backups", files)
}

// Run godoc
// @Summary Queue a backup now
// @Tags Backup
// @Produce json
// @Success 202 {object} map[string]string
// @Router /backups/run [post]
func (h *BackupHandler) Run(c *gin.Context) {
	if h.queue == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "background jobs are disabled"))
		return
	}
	id, err := h.queue.Enqueue(jobs.Job{Type: service.JobTypeScheduledBackup})
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, http.StatusServiceUnavailable, "failed to queue backup"))
		return
	}
	response.Item(c, http.StatusAccepted, "job_id", id)
}

// Download godoc
// @Summary Download a stored backup through a signed token
// @Tags Backup
// @Produce json
// @Param token path string true "Signed token"
// @Success 200 {file} file
// @Failure 403 {object} response.Envelope
// @Router /backups/download/{token} [get]
func (h *BackupHandler) Download(c *gin.Context) {
	file, name, err := h.service.Open(c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, http.StatusInternalServerError, "failed to read backup"))
		return
	}
	if info.IsDir() {
		response.Error(c, errors.New("backup path is a directory"))
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	c.Header("Cache-Control", "no-store")
	c.DataFromReader(http.StatusOK, info.Size(), "application/json", file, nil)
}
