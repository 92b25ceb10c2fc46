package filestorage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

// LocalFilesRoute is where the HTTP server exposes a LocalStore's root.
const LocalFilesRoute = "/files"

// LocalStore keeps objects on the local filesystem under root/<bucket>/<path>.
type LocalStore struct {
	root          string
	publicBaseURL string
	logger        *zap.Logger
}

// NewLocalStore creates the root directory if needed.
func NewLocalStore(root, publicBaseURL string, logger *zap.Logger) (*LocalStore, error) {
	if root == "" {
		return nil, fmt.Errorf("storage path cannot be empty")
	}
	if err := os.MkdirAll(root, os.ModePerm); err != nil {
		logger.Error("Failed to create storage path directory", zap.String("path", root), zap.Error(err))
		return nil, fmt.Errorf("failed to create storage path %s: %w", root, err)
	}
	logger.Info("Local blob store initialized", zap.String("storagePath", root))
	return &LocalStore{root: root, publicBaseURL: publicBaseURL, logger: logger}, nil
}

// Root is the directory the store writes into.
func (s *LocalStore) Root() string { return s.root }

func (s *LocalStore) Upload(_ context.Context, bucket, objectPath string, r io.Reader, _ string) error {
	rel, err := cleanObjectPath(bucket, objectPath)
	if err != nil {
		return err
	}
	destinationPath := filepath.Join(s.root, bucket, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(destinationPath), os.ModePerm); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", destinationPath, err)
	}

	// Write to a temp file first so a failed copy never leaves a truncated object behind.
	tmp, err := os.CreateTemp(filepath.Dir(destinationPath), ".upload-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	if _, err = io.Copy(tmp, r); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		s.logger.Error("Failed to copy uploaded file to destination", zap.String("path", destinationPath), zap.Error(err))
		return fmt.Errorf("failed to save file: %w", err)
	}
	if err = tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to save file: %w", err)
	}
	if err = os.Rename(tmp.Name(), destinationPath); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to move file into place: %w", err)
	}

	s.logger.Debug("File saved successfully", zap.String("path", destinationPath))
	return nil
}

func (s *LocalStore) PublicURL(bucket, objectPath string) string {
	if objectPath == "" {
		return ""
	}
	return s.publicBaseURL + "/" + bucket + "/" + objectPath
}

func (s *LocalStore) Delete(_ context.Context, bucket, objectPath string) error {
	rel, err := cleanObjectPath(bucket, objectPath)
	if err != nil {
		return err
	}
	fullPath := filepath.Join(s.root, bucket, filepath.FromSlash(rel))
	if err := os.Remove(fullPath); err != nil && !os.IsNotExist(err) {
		s.logger.Error("Failed to delete file", zap.String("path", fullPath), zap.Error(err))
		return fmt.Errorf("failed to delete file %s: %w", fullPath, err)
	}
	return nil
}
