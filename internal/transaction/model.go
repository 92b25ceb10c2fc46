// Package transaction records sale proposals between a seller and a buyer and drives the
// listing through pending to sold, or back to active when the sale is rejected.
package transaction

import (
	"time"

	"gatortrader_backend/internal/common"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Status is the state of a sale. Rejected sales are deleted rather than kept with a status.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
)

// Transaction links one listing to its buyer and seller.
type Transaction struct {
	common.BaseModel
	ListingID   uuid.UUID       `gorm:"type:uuid;not null;index;index:idx_transactions_pending_listing,unique,where:status = 'pending'"`
	BuyerID     uuid.UUID       `gorm:"type:uuid;not null;index"`
	SellerID    uuid.UUID       `gorm:"type:uuid;not null;index"`
	AgreedPrice decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Status      Status          `gorm:"type:varchar(20);not null;default:'pending'"`
}

// TableName specifies the table name for the Transaction model.
func (Transaction) TableName() string {
	return "transactions"
}

// IsParty reports whether userID is the buyer or the seller.
func (t *Transaction) IsParty(userID uuid.UUID) bool {
	return userID == t.BuyerID || userID == t.SellerID
}

// PartyKind selects transactions by the caller's role.
type PartyKind string

const (
	KindAll      PartyKind = "all"
	KindPurchase PartyKind = "purchase"
	KindSale     PartyKind = "sale"
)

// --- DTOs ---

// ProposeSaleRequest is the body of POST /listings/:id/sale.
type ProposeSaleRequest struct {
	BuyerUsername string           `json:"buyer_username" binding:"required,min=3,max=30"`
	Price         *decimal.Decimal `json:"price" binding:"required"`
}

// ListQuery is bound from GET /transactions.
type ListQuery struct {
	common.PaginationQuery
	Type string `form:"type" binding:"omitempty,oneof=all purchase sale"`
}

// TransactionResponse is the API view of a transaction from the caller's side.
type TransactionResponse struct {
	ID                   uuid.UUID       `json:"id"`
	ListingID            uuid.UUID       `json:"listing_id"`
	ListingTitle         string          `json:"listing_title,omitempty"`
	BuyerID              uuid.UUID       `json:"buyer_id"`
	SellerID             uuid.UUID       `json:"seller_id"`
	Type                 PartyKind       `json:"type"`
	CounterpartyUsername string          `json:"counterparty_username,omitempty"`
	AgreedPrice          decimal.Decimal `json:"agreed_price"`
	Status               Status          `json:"status"`
	CreatedAt            time.Time       `json:"created_at"`
	UpdatedAt            time.Time       `json:"updated_at"`
}

// ToTransactionResponse builds the response as seen by viewerID.
func ToTransactionResponse(t *Transaction, viewerID uuid.UUID, listingTitle, counterparty string) TransactionResponse {
	kind := KindSale
	if viewerID == t.BuyerID {
		kind = KindPurchase
	}
	return TransactionResponse{
		ID:                   t.ID,
		ListingID:            t.ListingID,
		ListingTitle:         listingTitle,
		BuyerID:              t.BuyerID,
		SellerID:             t.SellerID,
		Type:                 kind,
		CounterpartyUsername: counterparty,
		AgreedPrice:          t.AgreedPrice.Round(2),
		Status:               t.Status,
		CreatedAt:            t.CreatedAt,
		UpdatedAt:            t.UpdatedAt,
	}
}
