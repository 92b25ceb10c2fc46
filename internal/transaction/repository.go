package transaction

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gatortrader_backend/internal/common"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository is the transaction ledger.
type Repository interface {
	// Create inserts a pending transaction. A second pending row for the same listing fails
	// with ErrAlreadyPending.
	Create(ctx context.Context, t *Transaction) error
	FindByID(ctx context.Context, id uuid.UUID) (*Transaction, error)
	// MarkCompleted moves a pending transaction to completed. ErrInvalidState if it was not pending.
	MarkCompleted(ctx context.Context, id uuid.UUID) error
	// DeletePending removes a pending transaction. ErrInvalidState if it was not pending.
	DeletePending(ctx context.Context, id uuid.UUID) error
	ListByParty(ctx context.Context, userID uuid.UUID, kind PartyKind, offset, limit int) ([]Transaction, int64, error)
	WithTx(tx *gorm.DB) Repository
}

type gormRepository struct {
	db *gorm.DB
}

// NewGORMRepository creates a new GORM transaction repository.
func NewGORMRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) WithTx(tx *gorm.DB) Repository {
	return &gormRepository{db: tx}
}

func (r *gormRepository) Create(ctx context.Context, t *Transaction) error {
	t.Status = StatusPending
	if err := r.db.WithContext(ctx).Create(t).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return common.ErrAlreadyPending
		}
		return fmt.Errorf("failed to create transaction: %w", err)
	}
	return nil
}

func (r *gormRepository) FindByID(ctx context.Context, id uuid.UUID) (*Transaction, error) {
	var t Transaction
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&t).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.ErrNotFound.WithDetails("Transaction not found.")
		}
		return nil, fmt.Errorf("failed to find transaction: %w", err)
	}
	return &t, nil
}

func (r *gormRepository) MarkCompleted(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Model(&Transaction{}).
		Where("id = ? AND status = ?", id, StatusPending).
		Updates(map[string]interface{}{"status": StatusCompleted, "updated_at": time.Now().UTC()})
	if result.Error != nil {
		return fmt.Errorf("failed to complete transaction: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return common.ErrInvalidState.WithDetails("Transaction is no longer pending.")
	}
	return nil
}

func (r *gormRepository) DeletePending(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Where("id = ? AND status = ?", id, StatusPending).Delete(&Transaction{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete transaction: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return common.ErrInvalidState.WithDetails("Transaction is no longer pending.")
	}
	return nil
}

func (r *gormRepository) ListByParty(ctx context.Context, userID uuid.UUID, kind PartyKind, offset, limit int) ([]Transaction, int64, error) {
	scoped := func() *gorm.DB {
		query := r.db.WithContext(ctx).Model(&Transaction{})
		switch kind {
		case KindPurchase:
			return query.Where("buyer_id = ?", userID)
		case KindSale:
			return query.Where("seller_id = ?", userID)
		default:
			return query.Where("buyer_id = ? OR seller_id = ?", userID, userID)
		}
	}

	var total int64
	if err := scoped().Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count transactions: %w", err)
	}
	var items []Transaction
	if err := scoped().Order("created_at DESC").Offset(offset).Limit(limit).Find(&items).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list transactions: %w", err)
	}
	return items, total, nil
}
