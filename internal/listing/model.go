// File: internal/listing/model.go
package listing

import (
	"strings"
	"time"

	"gatortrader_backend/internal/common"
	"gatortrader_backend/internal/filestorage"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ListingStatus defines the possible statuses of a listing.
type ListingStatus string

const (
	StatusActive   ListingStatus = "active"
	StatusInactive ListingStatus = "inactive"
	StatusPending  ListingStatus = "pending" // a sale has been proposed
	StatusSold     ListingStatus = "sold"
)

// OpenStatuses are the statuses in which the owner may still edit, toggle, delete or sell a listing.
var OpenStatuses = []ListingStatus{StatusActive, StatusInactive}

// IsOpen reports whether s is outside the sale flow.
func (s ListingStatus) IsOpen() bool {
	return s == StatusActive || s == StatusInactive
}

// Category is the fixed set of listing categories.
type Category string

const (
	CategoryBooks       Category = "Books"
	CategoryElectronics Category = "Electronics"
	CategoryFurniture   Category = "Furniture"
	CategoryClothing    Category = "Clothing"
	CategoryOther       Category = "Other"
)

// Categories lists every category in display order.
var Categories = []Category{CategoryBooks, CategoryElectronics, CategoryFurniture, CategoryClothing, CategoryOther}

// ParseCategory matches case-insensitively. The second result is false for unknown values.
func ParseCategory(raw string) (Category, bool) {
	for _, c := range Categories {
		if strings.EqualFold(string(c), strings.TrimSpace(raw)) {
			return c, true
		}
	}
	return "", false
}

// Listing represents a marketplace item post.
type Listing struct {
	common.BaseModel
	UserID      uuid.UUID       `gorm:"type:uuid;not null;index"`
	Title       string          `gorm:"type:varchar(255);not null"`
	Description string          `gorm:"type:text"`
	Price       decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Category    Category        `gorm:"type:varchar(50);not null;index"`
	ImagePath   string          `gorm:"type:varchar(512)"` // object path in the product_images bucket
	Status      ListingStatus   `gorm:"type:varchar(20);not null;default:'active';index"`
}

// TableName specifies the table name for the Listing model.
func (Listing) TableName() string {
	return "listings"
}

// --- DTOs (Data Transfer Objects) ---

// CreateListingRequest is bound from the multipart form of POST /listings.
type CreateListingRequest struct {
	Title       string `form:"title" binding:"required,min=1,max=255"`
	Description string `form:"description" binding:"max=5000"`
	Price       string `form:"price" binding:"required"`
	Category    string `form:"category" binding:"required,oneof=Books Electronics Furniture Clothing Other"`
}

// UpdateListingRequest is bound from the multipart form of PUT /listings/:id. Empty fields are left unchanged.
type UpdateListingRequest struct {
	Title       *string `form:"title" binding:"omitempty,min=1,max=255"`
	Description *string `form:"description" binding:"omitempty,max=5000"`
	Price       *string `form:"price"`
	Category    *string `form:"category" binding:"omitempty,oneof=Books Electronics Furniture Clothing Other"`
}

// SetStatusRequest toggles a listing between active and inactive.
type SetStatusRequest struct {
	Status ListingStatus `json:"status" binding:"required,oneof=active inactive"`
}

// ListingResponse defines the structure for listing data sent in API responses.
type ListingResponse struct {
	ID          uuid.UUID       `json:"id"`
	UserID      uuid.UUID       `json:"user_id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Category    Category        `json:"category"`
	ImageURL    string          `json:"image_url,omitempty"`
	Status      ListingStatus   `json:"status"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// ToListingResponse converts a Listing model to a ListingResponse DTO.
func ToListingResponse(l *Listing, urls filestorage.URLResolver) ListingResponse {
	return ListingResponse{
		ID:          l.ID,
		UserID:      l.UserID,
		Title:       l.Title,
		Description: l.Description,
		Price:       l.Price.Round(2),
		Category:    l.Category,
		ImageURL:    urls.PublicURL(filestorage.BucketProductImages, l.ImagePath),
		Status:      l.Status,
		CreatedAt:   l.CreatedAt,
		UpdatedAt:   l.UpdatedAt,
	}
}

// ToListingResponses maps a slice.
func ToListingResponses(items []Listing, urls filestorage.URLResolver) []ListingResponse {
	out := make([]ListingResponse, 0, len(items))
	for i := range items {
		out = append(out, ToListingResponse(&items[i], urls))
	}
	return out
}

// ParsePrice parses a non-negative money amount.
func ParsePrice(raw string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimPrefix(strings.TrimSpace(raw), "$"))
	if err != nil {
		return decimal.Zero, common.ErrBadRequest.WithDetails("Price must be a number.")
	}
	if d.IsNegative() {
		return decimal.Zero, common.ErrBadRequest.WithDetails("Price must not be negative.")
	}
	return d.Round(2), nil
}
