package filestorage

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"

	"gatortrader_backend/internal/common"
	"gatortrader_backend/internal/config"

	"github.com/gabriel-vasile/mimetype"
	"go.uber.org/zap"
)

var allowedImageTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// Uploader is what domain services depend on for image handling.
type Uploader interface {
	URLResolver
	Upload(ctx context.Context, bucket, objectBase string, fh *multipart.FileHeader) (string, error)
	Remove(ctx context.Context, bucket, objectPath string) error
}

// ImageUploader validates uploaded images and writes them to a BlobStore.
type ImageUploader struct {
	store    BlobStore
	maxBytes int64
	logger   *zap.Logger
}

func NewImageUploader(store BlobStore, cfg *config.Config, logger *zap.Logger) *ImageUploader {
	return &ImageUploader{store: store, maxBytes: cfg.MaxUploadBytes, logger: logger.Named("images")}
}

func (u *ImageUploader) PublicURL(bucket, objectPath string) string {
	return u.store.PublicURL(bucket, objectPath)
}

// Upload writes fh to bucket at objectBase plus an extension derived from the
// sniffed content type, and returns the stored object path.
func (u *ImageUploader) Upload(ctx context.Context, bucket, objectBase string, fh *multipart.FileHeader) (string, error) {
	if fh == nil {
		return "", common.ErrBadRequest.WithDetails("No file was provided.")
	}
	if u.maxBytes > 0 && fh.Size > u.maxBytes {
		return "", common.ErrBadRequest.WithDetails(fmt.Sprintf("Image exceeds the %d byte limit.", u.maxBytes))
	}

	src, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer src.Close()

	mtype, err := mimetype.DetectReader(src)
	if err != nil {
		return "", fmt.Errorf("failed to detect content type: %w", err)
	}
	contentType := mtype.String()
	ext, ok := allowedImageTypes[contentType]
	if !ok {
		return "", common.ErrBadRequest.WithDetails("Unsupported image type: " + contentType)
	}
	if _, err := src.Seek(0, io.SeekStart); err != nil {
		return "", fmt.Errorf("failed to rewind uploaded file: %w", err)
	}

	objectPath := objectBase + ext
	if err := u.store.Upload(ctx, bucket, objectPath, src, contentType); err != nil {
		u.logger.Error("Image upload failed", zap.String("bucket", bucket), zap.String("path", objectPath), zap.Error(err))
		return "", common.ErrUpstreamUnavailable.WithDetails("Could not store the image.")
	}
	return objectPath, nil
}

// Remove deletes a previously uploaded object. An empty path is a no-op.
func (u *ImageUploader) Remove(ctx context.Context, bucket, objectPath string) error {
	if objectPath == "" {
		return nil
	}
	if err := u.store.Delete(ctx, bucket, objectPath); err != nil {
		u.logger.Warn("Image removal failed", zap.String("bucket", bucket), zap.String("path", objectPath), zap.Error(err))
		return err
	}
	return nil
}
