// File: internal/category/service.go
package category

import (
	"context"

	"gatortrader_backend/internal/common"

	"go.uber.org/zap"
)

// Service defines the interface for category business logic.
type Service interface {
	GetAllCategories(ctx context.Context) ([]CategoryResponse, error)
	GetCategoryBySlug(ctx context.Context, slug string) (*CategoryResponse, error)
}

// ServiceImplementation implements the category Service interface.
type ServiceImplementation struct {
	repo   Repository
	logger *zap.Logger
}

// NewService creates a new category service.
func NewService(repo Repository, logger *zap.Logger) *ServiceImplementation {
	return &ServiceImplementation{repo: repo, logger: logger}
}

// GetAllCategories lists the fixed categories with their active listing counts.
func (s *ServiceImplementation) GetAllCategories(ctx context.Context) ([]CategoryResponse, error) {
	counts, err := s.repo.CountActiveByCategory(ctx)
	if err != nil {
		s.logger.Error("Failed to count listings per category", zap.Error(err))
		return nil, err
	}
	return ToCategoryResponses(counts), nil
}

func (s *ServiceImplementation) GetCategoryBySlug(ctx context.Context, slug string) (*CategoryResponse, error) {
	all, err := s.GetAllCategories(ctx)
	if err != nil {
		return nil, err
	}
	for i := range all {
		if all[i].Slug == slug {
			return &all[i], nil
		}
	}
	return nil, common.ErrNotFound.WithDetails("Category not found.")
}
