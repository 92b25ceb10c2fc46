package notification

import (
	"time"

	"gatortrader_backend/internal/common"

	"github.com/google/uuid"
)

// NotificationType defines the type of notification.
type NotificationType string

const (
	SaleProposed  NotificationType = "sale_proposed"
	SaleAccepted  NotificationType = "sale_accepted"
	SaleRejected  NotificationType = "sale_rejected"  // the buyer declined
	SaleCancelled NotificationType = "sale_cancelled" // the seller withdrew
)

// Notification represents a user notification.
type Notification struct {
	ID                   uuid.UUID        `gorm:"type:uuid;primaryKey" json:"id"`
	UserID               uuid.UUID        `gorm:"type:uuid;not null;index:idx_notification_user_status" json:"user_id"` // recipient
	Type                 NotificationType `gorm:"type:varchar(100);not null" json:"type"`
	Message              string           `gorm:"type:text;not null" json:"message"`
	RelatedListingID     *uuid.UUID       `gorm:"type:uuid" json:"related_listing_id,omitempty"`
	RelatedTransactionID *uuid.UUID       `gorm:"type:uuid" json:"related_transaction_id,omitempty"`
	IsRead               bool             `gorm:"not null;default:false;index:idx_notification_user_status" json:"is_read"`
	CreatedAt            time.Time        `gorm:"not null;index:idx_notification_user_status" json:"created_at"`
}

// TableName specifies the table name for GORM.
func (Notification) TableName() string {
	return "notifications"
}

// EventStatus is the delivery state of an outbox event.
type EventStatus string

const (
	EventQueued    EventStatus = "queued"
	EventDelivered EventStatus = "delivered"
	EventDead      EventStatus = "dead"
)

// OutboxEvent is a notification waiting to be delivered. Rows are written in the same database
// transaction as the state change they describe.
type OutboxEvent struct {
	common.BaseModel
	Type          NotificationType `gorm:"type:varchar(100);not null"`
	FromUserID    uuid.UUID        `gorm:"type:uuid;not null"`
	ToUserID      uuid.UUID        `gorm:"type:uuid;not null"`
	ListingID     *uuid.UUID       `gorm:"type:uuid"`
	TransactionID *uuid.UUID       `gorm:"type:uuid"`
	Message       string           `gorm:"type:text;not null"`
	Status        EventStatus      `gorm:"type:varchar(20);not null;default:'queued';index:idx_notification_events_due,priority:1"`
	Attempts      int              `gorm:"not null;default:0"`
	NextAttemptAt time.Time        `gorm:"not null;index:idx_notification_events_due,priority:2"`
	LastError     string           `gorm:"type:text"`
	DeliveredAt   *time.Time
}

// TableName specifies the table name for GORM.
func (OutboxEvent) TableName() string {
	return "notification_events"
}

// NewEvent builds a queued event that is due immediately.
func NewEvent(typ NotificationType, from, to uuid.UUID, listingID, transactionID uuid.UUID, message string) *OutboxEvent {
	ev := &OutboxEvent{
		Type:          typ,
		FromUserID:    from,
		ToUserID:      to,
		Message:       message,
		Status:        EventQueued,
		NextAttemptAt: time.Now().UTC(),
	}
	if listingID != uuid.Nil {
		ev.ListingID = &listingID
	}
	if transactionID != uuid.Nil {
		ev.TransactionID = &transactionID
	}
	return ev
}
