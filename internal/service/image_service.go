package service

import (
	"bytes"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/gabriel-vasile/mimetype"
	"go.uber.org/zap"

	appErrors "github.com/asmil/asmil-api/pkg/errors"
)

type fileSaver interface {
	Save(name string, data []byte) (string, error)
	Delete(name string) error
}

// ImageConfig controls stored image sizes and URLs.
type ImageConfig struct {
	PublicPath   string
	MaxFileBytes int64
	Size         int
}

// ImageService validates, squares and stores uploaded pictures (avatars and student photos).
type ImageService struct {
	storage fileSaver
	cfg     ImageConfig
	logger  *zap.Logger
	now     func() time.Time
}

var acceptedImageTypes = []string{"image/jpeg", "image/png", "image/gif", "image/bmp", "image/tiff"}

// NewImageService constructs an ImageService.
func NewImageService(storage fileSaver, cfg ImageConfig, logger *zap.Logger) *ImageService {
	if cfg.Size <= 0 {
		cfg.Size = 256
	}
	if cfg.MaxFileBytes <= 0 {
		cfg.MaxFileBytes = 5 * 1024 * 1024
	}
	if cfg.PublicPath == "" {
		cfg.PublicPath = "/uploads"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ImageService{storage: storage, cfg: cfg, logger: logger, now: time.Now}
}

// MaxFileBytes is the upload size limit.
func (s *ImageService) MaxFileBytes() int64 {
	return s.cfg.MaxFileBytes
}

// Store sniffs data, crops it to a Size x Size square and saves it as <folder>/<owner>-<unix>.<ext>.
// It returns the public URL of the stored file.
func (s *ImageService) Store(folder, owner string, data []byte) (string, error) {
	if int64(len(data)) > s.cfg.MaxFileBytes {
		return "", appErrors.Clone(appErrors.ErrPayloadTooLarge, fmt.Sprintf("image exceeds %d bytes", s.cfg.MaxFileBytes))
	}
	if len(data) == 0 {
		return "", appErrors.Clone(appErrors.ErrValidation, "image is empty")
	}
	detected := mimetype.Detect(data)
	if !mimetype.EqualsAny(detected.String(), acceptedImageTypes...) {
		return "", appErrors.Clone(appErrors.ErrUnsupportedMedia, fmt.Sprintf("unsupported image type %s", detected.String()))
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrUnsupportedMedia.Code, appErrors.ErrUnsupportedMedia.Status, "image could not be decoded")
	}
	square := imaging.Fill(img, s.cfg.Size, s.cfg.Size, imaging.Center, imaging.Lanczos)

	format, ext := imaging.JPEG, "jpg"
	if detected.Is("image/png") || detected.Is("image/gif") {
		format, ext = imaging.PNG, "png"
	}
	buf := &bytes.Buffer{}
	if err := imaging.Encode(buf, square, format, imaging.JPEGQuality(85)); err != nil {
		return "", internalError(err, "failed to encode image")
	}

	name := path.Join(folder, fmt.Sprintf("%s-%d.%s", sanitizeFilename(owner), s.now().Unix(), ext))
	rel, err := s.storage.Save(name, buf.Bytes())
	if err != nil {
		s.logger.Error("store image", zap.String("name", name), zap.Error(err))
		return "", internalError(err, "failed to store image")
	}
	return strings.TrimRight(s.cfg.PublicPath, "/") + "/" + rel, nil
}

// Remove deletes a previously stored image given its public URL. Unknown URLs are ignored.
func (s *ImageService) Remove(publicURL string) {
	prefix := strings.TrimRight(s.cfg.PublicPath, "/") + "/"
	if !strings.HasPrefix(publicURL, prefix) {
		return
	}
	if err := s.storage.Delete(strings.TrimPrefix(publicURL, prefix)); err != nil {
		s.logger.Warn("remove image", zap.String("url", publicURL), zap.Error(err))
	}
}
