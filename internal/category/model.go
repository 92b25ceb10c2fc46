// File: internal/category/model.go
package category

import (
	"gatortrader_backend/internal/listing"

	"github.com/gosimple/slug"
)

// --- DTOs ---

// CategoryResponse defines the structure for category data sent in API responses.
type CategoryResponse struct {
	Name           listing.Category `json:"name"`
	Slug           string           `json:"slug"`
	ActiveListings int64            `json:"active_listings"`
}

// SlugFor returns the URL slug of c.
func SlugFor(c listing.Category) string {
	return slug.Make(string(c))
}

// ToCategoryResponses builds the response list in display order.
func ToCategoryResponses(counts map[listing.Category]int64) []CategoryResponse {
	out := make([]CategoryResponse, 0, len(listing.Categories))
	for _, c := range listing.Categories {
		out = append(out, CategoryResponse{Name: c, Slug: SlugFor(c), ActiveListings: counts[c]})
	}
	return out
}
