// File: internal/category/repository.go
package category

import (
	"context"
	"fmt"

	"gatortrader_backend/internal/listing"

	"gorm.io/gorm"
)

// Repository reads per-category aggregates from the listings table.
type Repository interface {
	CountActiveByCategory(ctx context.Context) (map[listing.Category]int64, error)
}

type gormRepository struct {
	db *gorm.DB
}

// NewGORMRepository creates a new GORM category repository.
func NewGORMRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

type categoryCount struct {
	Category listing.Category
	Count    int64
}

func (r *gormRepository) CountActiveByCategory(ctx context.Context) (map[listing.Category]int64, error) {
	var rows []categoryCount
	err := r.db.WithContext(ctx).Model(&listing.Listing{}).
		Select("category, COUNT(*) AS count").
		Where("status = ?", listing.StatusActive).
		Group("category").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count listings per category: %w", err)
	}
	counts := make(map[listing.Category]int64, len(rows))
	for _, row := range rows {
		counts[row.Category] = row.Count
	}
	return counts, nil
}
