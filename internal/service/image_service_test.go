package service

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/asmil/asmil-api/pkg/errors"
	"github.com/asmil/asmil-api/pkg/storage"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 120, A: 255})
		}
	}
	buf := &bytes.Buffer{}
	require.NoError(t, png.Encode(buf, img))
	return buf.Bytes()
}

func newImageFixture(t *testing.T, maxBytes int64) (*ImageService, string) {
	t.Helper()
	dir := t.TempDir()
	files, err := storage.NewLocalStorage(dir)
	require.NoError(t, err)
	svc := NewImageService(files, ImageConfig{PublicPath: "/uploads/", MaxFileBytes: maxBytes, Size: 16}, nil)
	svc.now = func() time.Time { return time.Unix(1700000000, 0) }
	return svc, dir
}

func TestImageStoreCropsToSquare(t *testing.T) {
	svc, dir := newImageFixture(t, 0)

	url, err := svc.Store("avatars", "u1", pngBytes(t, 40, 20))
	require.NoError(t, err)
	assert.Equal(t, "/uploads/avatars/u1-1700000000.png", url)

	raw, err := os.ReadFile(filepath.Join(dir, "avatars", "u1-1700000000.png"))
	require.NoError(t, err)
	stored, err := png.Decode(bytes.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, 16, stored.Bounds().Dx())
	assert.Equal(t, 16, stored.Bounds().Dy())

	svc.Remove(url)
	_, err = os.Stat(filepath.Join(dir, "avatars", "u1-1700000000.png"))
	assert.True(t, os.IsNotExist(err))
}

func TestImageStoreRejections(t *testing.T) {
	svc, _ := newImageFixture(t, 64)

	_, err := svc.Store("avatars", "u1", pngBytes(t, 40, 40))
	assert.True(t, errors.Is(err, appErrors.ErrPayloadTooLarge))

	_, err = svc.Store("avatars", "u1", []byte("just some text"))
	assert.True(t, errors.Is(err, appErrors.ErrUnsupportedMedia))

	_, err = svc.Store("avatars", "u1", nil)
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}

func TestImageRemoveIgnoresForeignURLs(t *testing.T) {
	svc, dir := newImageFixture(t, 0)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "keep.png"), []byte("x"), 0o644))

	svc.Remove("https://cdn.example.com/keep.png")
	_, err := os.Stat(filepath.Join(dir, "keep.png"))
	assert.NoError(t, err)
}
