package filestorage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gatortrader_backend/internal/common"
	"gatortrader_backend/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// 1x1 transparent PNG.
var pngBytes = []byte{
	0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a, 0x00, 0x00, 0x00, 0x0d, 0x49, 0x48, 0x44, 0x52,
	0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01, 0x08, 0x06, 0x00, 0x00, 0x00, 0x1f, 0x15, 0xc4,
	0x89, 0x00, 0x00, 0x00, 0x0d, 0x49, 0x44, 0x41, 0x54, 0x78, 0x9c, 0x63, 0x00, 0x01, 0x00, 0x00,
	0x05, 0x00, 0x01, 0x0d, 0x0a, 0x2d, 0xb4, 0x00, 0x00, 0x00, 0x00, 0x49, 0x45, 0x4e, 0x44, 0xae,
	0x42, 0x60, 0x82,
}

func setupLocalStore(t *testing.T) *LocalStore {
	store, err := NewLocalStore(t.TempDir(), "http://localhost:8080/files", zap.NewNop())
	require.NoError(t, err)
	return store
}

// newTestFileHeader builds a multipart.FileHeader the way gin would after parsing a request.
func newTestFileHeader(t *testing.T, fieldname, filename string, content []byte) *multipart.FileHeader {
	body := new(bytes.Buffer)
	writer := multipart.NewWriter(body)

	partHeader := make(textproto.MIMEHeader)
	partHeader.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`, fieldname, filename))
	part, err := writer.CreatePart(partHeader)
	require.NoError(t, err)
	_, err = io.Copy(part, bytes.NewReader(content))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	reader := multipart.NewReader(body, writer.Boundary())
	form, err := reader.ReadForm(32 << 20)
	require.NoError(t, err)

	files := form.File[fieldname]
	require.NotEmpty(t, files, "No files found for fieldname %s", fieldname)
	return files[0]
}

func TestLocalStore_UploadOverwrites(t *testing.T) {
	store := setupLocalStore(t)
	ctx := context.Background()

	require.NoError(t, store.Upload(ctx, BucketProfilePictures, "u1/avatar.png", strings.NewReader("one"), "image/png"))
	require.NoError(t, store.Upload(ctx, BucketProfilePictures, "u1/avatar.png", strings.NewReader("two"), "image/png"))

	data, err := os.ReadFile(filepath.Join(store.Root(), BucketProfilePictures, "u1", "avatar.png"))
	require.NoError(t, err)
	assert.Equal(t, "two", string(data))
}

func TestLocalStore_RejectsTraversal(t *testing.T) {
	store := setupLocalStore(t)

	err := store.Upload(context.Background(), BucketProductImages, "../../etc/passwd", strings.NewReader("x"), "text/plain")
	assert.Error(t, err)

	err = store.Upload(context.Background(), "../x", "a.png", strings.NewReader("x"), "image/png")
	assert.Error(t, err)
}

func TestLocalStore_PublicURLAndDelete(t *testing.T) {
	store := setupLocalStore(t)
	ctx := context.Background()

	assert.Equal(t, "http://localhost:8080/files/product_images/a/b.png", store.PublicURL(BucketProductImages, "a/b.png"))
	assert.Equal(t, "", store.PublicURL(BucketProductImages, ""))

	require.NoError(t, store.Upload(ctx, BucketProductImages, "a/b.png", strings.NewReader("x"), "image/png"))
	require.NoError(t, store.Delete(ctx, BucketProductImages, "a/b.png"))
	// Deleting a missing object is not an error.
	require.NoError(t, store.Delete(ctx, BucketProductImages, "a/b.png"))
}

func TestImageUploader_AcceptsPNG(t *testing.T) {
	store := setupLocalStore(t)
	uploader := NewImageUploader(store, &config.Config{MaxUploadBytes: 1 << 20}, zap.NewNop())

	objectPath, err := uploader.Upload(context.Background(), BucketProductImages, "owner/desk-123", newTestFileHeader(t, "image", "desk", pngBytes))
	require.NoError(t, err)
	assert.Equal(t, "owner/desk-123.png", objectPath)

	data, err := os.ReadFile(filepath.Join(store.Root(), BucketProductImages, "owner", "desk-123.png"))
	require.NoError(t, err)
	assert.Equal(t, pngBytes, data)
}

func TestImageUploader_RejectsNonImage(t *testing.T) {
	uploader := NewImageUploader(setupLocalStore(t), &config.Config{MaxUploadBytes: 1 << 20}, zap.NewNop())

	_, err := uploader.Upload(context.Background(), BucketProductImages, "owner/x", newTestFileHeader(t, "image", "notes.txt", []byte("plain text here")))
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrBadRequest))
}

func TestImageUploader_RejectsOversize(t *testing.T) {
	uploader := NewImageUploader(setupLocalStore(t), &config.Config{MaxUploadBytes: 10}, zap.NewNop())

	_, err := uploader.Upload(context.Background(), BucketProductImages, "owner/x", newTestFileHeader(t, "image", "big.png", pngBytes))
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrBadRequest))
}

func TestImageUploader_RemoveDeletesStoredObject(t *testing.T) {
	store := setupLocalStore(t)
	uploader := NewImageUploader(store, &config.Config{MaxUploadBytes: 1 << 20}, zap.NewNop())
	ctx := context.Background()

	objectPath, err := uploader.Upload(ctx, BucketProductImages, "owner/desk-123", newTestFileHeader(t, "image", "desk", pngBytes))
	require.NoError(t, err)

	require.NoError(t, uploader.Remove(ctx, BucketProductImages, objectPath))
	_, err = os.Stat(filepath.Join(store.Root(), BucketProductImages, "owner", "desk-123.png"))
	assert.True(t, os.IsNotExist(err))

	assert.NoError(t, uploader.Remove(ctx, BucketProductImages, ""))
}

func TestImageUploader_RemoveRejectsTraversal(t *testing.T) {
	uploader := NewImageUploader(setupLocalStore(t), &config.Config{MaxUploadBytes: 1 << 20}, zap.NewNop())

	assert.Error(t, uploader.Remove(context.Background(), BucketProductImages, "../../etc/passwd"))
}
