// Package filestorage stores user uploaded images behind a small bucket/path abstraction.
package filestorage

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"gatortrader_backend/internal/config"
	"gatortrader_backend/internal/firebase"

	"go.uber.org/zap"
)

// Logical buckets.
const (
	BucketProductImages   = "product_images"
	BucketProfilePictures = "profile_pictures"
)

// BlobStore is the object storage used for listing images and profile pictures.
// Upload overwrites an existing object at the same path.
type BlobStore interface {
	Upload(ctx context.Context, bucket, objectPath string, r io.Reader, contentType string) error
	PublicURL(bucket, objectPath string) string
	Delete(ctx context.Context, bucket, objectPath string) error
}

// URLResolver is the read-only part of BlobStore that response mappers need.
type URLResolver interface {
	PublicURL(bucket, objectPath string) string
}

// NewBlobStore builds the store selected by BLOB_DRIVER.
func NewBlobStore(cfg *config.Config, fb *firebase.FirebaseService, logger *zap.Logger) (BlobStore, error) {
	switch cfg.BlobDriver {
	case config.BlobDriverGCS:
		bucket, err := fb.Bucket(context.Background())
		if err != nil {
			return nil, err
		}
		return NewGCSStore(bucket, fb.StorageBucketName(), logger), nil
	case config.BlobDriverLocal, "":
		return NewLocalStore(cfg.FileStoragePath, strings.TrimRight(cfg.PublicBaseURL, "/")+LocalFilesRoute, logger)
	default:
		return nil, fmt.Errorf("unsupported blob driver %q", cfg.BlobDriver)
	}
}

// cleanObjectPath rejects empty paths and paths escaping the bucket.
func cleanObjectPath(bucket, objectPath string) (string, error) {
	if bucket == "" || strings.ContainsAny(bucket, `/\`) {
		return "", fmt.Errorf("invalid bucket %q", bucket)
	}
	p := path.Clean("/" + strings.ReplaceAll(objectPath, `\`, "/"))
	p = strings.TrimPrefix(p, "/")
	if p == "" || p == "." || strings.Contains(objectPath, "..") {
		return "", fmt.Errorf("invalid object path %q", objectPath)
	}
	return p, nil
}
