// File: internal/listing/repository.go
package listing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gatortrader_backend/internal/common"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository defines the interface for listing data operations.
type Repository interface {
	Create(ctx context.Context, listing *Listing) error
	FindByID(ctx context.Context, id uuid.UUID) (*Listing, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]Listing, error)
	FindByStatus(ctx context.Context, statuses ...ListingStatus) ([]Listing, error)
	FindByOwner(ctx context.Context, ownerID uuid.UUID, statuses ...ListingStatus) ([]Listing, error)
	// UpdateOwned applies fields only while the listing belongs to ownerID and is active or inactive.
	UpdateOwned(ctx context.Context, id, ownerID uuid.UUID, fields map[string]interface{}) error
	// TransitionStatus moves a listing to `to` only if its current status is one of `from`.
	// It returns ErrInvalidState when no row matched.
	TransitionStatus(ctx context.Context, id uuid.UUID, from []ListingStatus, to ListingStatus) error
	DeleteOwned(ctx context.Context, id, ownerID uuid.UUID) error
	FindAllBatch(ctx context.Context, offset, limit int) ([]Listing, error)
	WithTx(tx *gorm.DB) Repository
}

type gormRepository struct {
	db *gorm.DB
}

// NewGORMRepository creates a new GORM listing repository.
func NewGORMRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

// WithTx returns a repository bound to tx.
func (r *gormRepository) WithTx(tx *gorm.DB) Repository {
	return &gormRepository{db: tx}
}

// Create inserts a new listing.
func (r *gormRepository) Create(ctx context.Context, listing *Listing) error {
	if listing.Status == "" {
		listing.Status = StatusActive
	}
	if err := r.db.WithContext(ctx).Create(listing).Error; err != nil {
		return fmt.Errorf("failed to create listing: %w", err)
	}
	return nil
}

// FindByID retrieves a listing by its ID.
func (r *gormRepository) FindByID(ctx context.Context, id uuid.UUID) (*Listing, error) {
	var l Listing
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&l).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.ErrNotFound.WithDetails("Listing not found.")
		}
		return nil, fmt.Errorf("failed to find listing: %w", err)
	}
	return &l, nil
}

// FindByIDs returns the listings that exist among ids.
func (r *gormRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]Listing, error) {
	var items []Listing
	if len(ids) == 0 {
		return items, nil
	}
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&items).Error; err != nil {
		return nil, fmt.Errorf("failed to load listings: %w", err)
	}
	return items, nil
}

// FindByStatus returns listings whose status is one of statuses, newest first.
func (r *gormRepository) FindByStatus(ctx context.Context, statuses ...ListingStatus) ([]Listing, error) {
	var items []Listing
	err := r.db.WithContext(ctx).
		Where("status IN ?", statuses).
		Order("created_at DESC").
		Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list listings: %w", err)
	}
	return items, nil
}

// FindByOwner returns the owner's listings in the given statuses, newest first.
func (r *gormRepository) FindByOwner(ctx context.Context, ownerID uuid.UUID, statuses ...ListingStatus) ([]Listing, error) {
	var items []Listing
	query := r.db.WithContext(ctx).Where("user_id = ?", ownerID)
	if len(statuses) > 0 {
		query = query.Where("status IN ?", statuses)
	}
	if err := query.Order("created_at DESC").Find(&items).Error; err != nil {
		return nil, fmt.Errorf("failed to list owner listings: %w", err)
	}
	return items, nil
}

// explainMiss turns a zero-row conditional write into NotFound, Forbidden or InvalidState.
func (r *gormRepository) explainMiss(ctx context.Context, id, ownerID uuid.UUID) error {
	l, err := r.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if l.UserID != ownerID {
		return common.ErrForbidden.WithDetails("You do not own this listing.")
	}
	return common.ErrInvalidState.WithDetails(fmt.Sprintf("Listing is %s and can no longer be changed.", l.Status))
}

func (r *gormRepository) UpdateOwned(ctx context.Context, id, ownerID uuid.UUID, fields map[string]interface{}) error {
	if _, ok := fields["updated_at"]; !ok {
		fields["updated_at"] = time.Now().UTC()
	}
	result := r.db.WithContext(ctx).Model(&Listing{}).
		Where("id = ? AND user_id = ? AND status IN ?", id, ownerID, OpenStatuses).
		Updates(fields)
	if result.Error != nil {
		return fmt.Errorf("failed to update listing: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return r.explainMiss(ctx, id, ownerID)
	}
	return nil
}

func (r *gormRepository) TransitionStatus(ctx context.Context, id uuid.UUID, from []ListingStatus, to ListingStatus) error {
	result := r.db.WithContext(ctx).Model(&Listing{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(map[string]interface{}{"status": to, "updated_at": time.Now().UTC()})
	if result.Error != nil {
		return fmt.Errorf("failed to update listing status: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return common.ErrInvalidState.WithDetails(fmt.Sprintf("Listing cannot move to %s from its current status.", to))
	}
	return nil
}

// DeleteOwned removes an open listing owned by ownerID.
func (r *gormRepository) DeleteOwned(ctx context.Context, id, ownerID uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ? AND status IN ?", id, ownerID, OpenStatuses).
		Delete(&Listing{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete listing: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return r.explainMiss(ctx, id, ownerID)
	}
	return nil
}

// FindAllBatch pages through every listing in id order.
func (r *gormRepository) FindAllBatch(ctx context.Context, offset, limit int) ([]Listing, error) {
	var items []Listing
	err := r.db.WithContext(ctx).Order("id").Offset(offset).Limit(limit).Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch listing batch: %w", err)
	}
	return items, nil
}
