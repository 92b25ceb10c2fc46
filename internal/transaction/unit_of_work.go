package transaction

import (
	"context"

	"gatortrader_backend/internal/listing"
	"gatortrader_backend/internal/notification"

	"gorm.io/gorm"
)

// Stores is the set of repositories bound to one database transaction.
type Stores struct {
	Transactions Repository
	Listings     listing.Repository
	Outbox       notification.Outbox
}

// UnitOfWork runs fn inside a single database transaction. Returning an error rolls back
// everything fn wrote.
type UnitOfWork interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, s Stores) error) error
}

type gormUnitOfWork struct {
	db           *gorm.DB
	transactions Repository
	listings     listing.Repository
	outbox       notification.Outbox
}

// NewUnitOfWork binds the given repositories to each transaction it opens.
func NewUnitOfWork(db *gorm.DB, transactions Repository, listings listing.Repository, outbox notification.Outbox) UnitOfWork {
	return &gormUnitOfWork{db: db, transactions: transactions, listings: listings, outbox: outbox}
}

func (u *gormUnitOfWork) WithinTx(ctx context.Context, fn func(ctx context.Context, s Stores) error) error {
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ctx, Stores{
			Transactions: u.transactions.WithTx(tx),
			Listings:     u.listings.WithTx(tx),
			Outbox:       u.outbox.WithTx(tx),
		})
	})
}
