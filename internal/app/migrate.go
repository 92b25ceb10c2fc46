package app

import (
	"fmt"

	"gatortrader_backend/internal/contact"
	"gatortrader_backend/internal/listing"
	"gatortrader_backend/internal/notification"
	"gatortrader_backend/internal/transaction"
	"gatortrader_backend/internal/user"

	"gorm.io/gorm"
)

// Models lists every table owned by the service.
func Models() []interface{} {
	return []interface{}{
		&user.User{},
		&user.RegisteredUser{},
		&listing.Listing{},
		&transaction.Transaction{},
		&notification.Notification{},
		&notification.OutboxEvent{},
		&contact.Submission{},
	}
}

// Migrate creates or updates the schema, including the partial unique index on pending transactions.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("auto-migrate failed: %w", err)
	}
	return nil
}
