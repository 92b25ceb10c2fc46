package filestorage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"

	gcs "cloud.google.com/go/storage"
	"go.uber.org/zap"
)

// GCSStore maps each logical bucket to a prefix inside one Cloud Storage bucket.
type GCSStore struct {
	bucket     *gcs.BucketHandle
	bucketName string
	logger     *zap.Logger
}

func NewGCSStore(bucket *gcs.BucketHandle, bucketName string, logger *zap.Logger) *GCSStore {
	return &GCSStore{bucket: bucket, bucketName: bucketName, logger: logger}
}

func (s *GCSStore) objectName(bucket, objectPath string) (string, error) {
	rel, err := cleanObjectPath(bucket, objectPath)
	if err != nil {
		return "", err
	}
	return bucket + "/" + rel, nil
}

func (s *GCSStore) Upload(ctx context.Context, bucket, objectPath string, r io.Reader, contentType string) error {
	name, err := s.objectName(bucket, objectPath)
	if err != nil {
		return err
	}

	w := s.bucket.Object(name).NewWriter(ctx)
	w.ContentType = contentType
	w.CacheControl = "public, max-age=3600"
	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return fmt.Errorf("failed to upload %s: %w", name, err)
	}
	if err := w.Close(); err != nil {
		s.logger.Error("Failed to finalize object upload", zap.String("object", name), zap.Error(err))
		return fmt.Errorf("failed to upload %s: %w", name, err)
	}
	return nil
}

func (s *GCSStore) PublicURL(bucket, objectPath string) string {
	if objectPath == "" {
		return ""
	}
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s/%s",
		s.bucketName, bucket, (&url.URL{Path: objectPath}).EscapedPath())
}

func (s *GCSStore) Delete(ctx context.Context, bucket, objectPath string) error {
	name, err := s.objectName(bucket, objectPath)
	if err != nil {
		return err
	}
	if err := s.bucket.Object(name).Delete(ctx); err != nil && !errors.Is(err, gcs.ErrObjectNotExist) {
		return fmt.Errorf("failed to delete %s: %w", name, err)
	}
	return nil
}
