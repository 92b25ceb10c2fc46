package notification

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Outbox stores events for asynchronous delivery.
type Outbox interface {
	Enqueue(ctx context.Context, ev *OutboxEvent) error
	// ClaimDue returns up to limit queued events whose next attempt is due and pushes their
	// next_attempt_at forward by lease, so concurrent dispatchers skip them.
	ClaimDue(ctx context.Context, now time.Time, limit int, lease time.Duration) ([]OutboxEvent, error)
	MarkDelivered(ctx context.Context, id uuid.UUID, at time.Time) error
	// MarkFailed records a failed attempt. With dead set the event is not retried again.
	MarkFailed(ctx context.Context, id uuid.UUID, attempts int, next time.Time, lastErr string, dead bool) error
	WithTx(tx *gorm.DB) Outbox
}

type gormOutbox struct {
	db *gorm.DB
}

// NewGORMOutbox creates a new GORM-backed outbox.
func NewGORMOutbox(db *gorm.DB) Outbox {
	return &gormOutbox{db: db}
}

func (o *gormOutbox) WithTx(tx *gorm.DB) Outbox {
	return &gormOutbox{db: tx}
}

func (o *gormOutbox) Enqueue(ctx context.Context, ev *OutboxEvent) error {
	if ev.Status == "" {
		ev.Status = EventQueued
	}
	if ev.NextAttemptAt.IsZero() {
		ev.NextAttemptAt = time.Now().UTC()
	}
	if err := o.db.WithContext(ctx).Create(ev).Error; err != nil {
		return fmt.Errorf("failed to enqueue notification event: %w", err)
	}
	return nil
}

func (o *gormOutbox) ClaimDue(ctx context.Context, now time.Time, limit int, lease time.Duration) ([]OutboxEvent, error) {
	var events []OutboxEvent
	err := o.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// SQLite has no row locks; the dialector drops the clause there.
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
			Where("status = ? AND next_attempt_at <= ?", EventQueued, now).
			Order("next_attempt_at").
			Limit(limit).
			Find(&events).Error; err != nil {
			return err
		}
		if len(events) == 0 {
			return nil
		}
		ids := make([]uuid.UUID, 0, len(events))
		for _, ev := range events {
			ids = append(ids, ev.ID)
		}
		return tx.Model(&OutboxEvent{}).Where("id IN ?", ids).
			Update("next_attempt_at", now.Add(lease)).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to claim notification events: %w", err)
	}
	return events, nil
}

func (o *gormOutbox) MarkDelivered(ctx context.Context, id uuid.UUID, at time.Time) error {
	err := o.db.WithContext(ctx).Model(&OutboxEvent{}).Where("id = ?", id).
		Updates(map[string]interface{}{"status": EventDelivered, "delivered_at": at, "last_error": "", "updated_at": at}).Error
	if err != nil {
		return fmt.Errorf("failed to mark event %s delivered: %w", id, err)
	}
	return nil
}

func (o *gormOutbox) MarkFailed(ctx context.Context, id uuid.UUID, attempts int, next time.Time, lastErr string, dead bool) error {
	status := EventQueued
	if dead {
		status = EventDead
	}
	err := o.db.WithContext(ctx).Model(&OutboxEvent{}).Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":          status,
			"attempts":        attempts,
			"next_attempt_at": next,
			"last_error":      lastErr,
			"updated_at":      time.Now().UTC(),
		}).Error
	if err != nil {
		return fmt.Errorf("failed to record failed attempt for event %s: %w", id, err)
	}
	return nil
}
