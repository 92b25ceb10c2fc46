package esutil

import (
	"encoding/json"
	"errors"
	"fmt"

	"gatortrader_backend/internal/listing"

	"github.com/gosimple/slug"
)

// ListingToElasticsearchDoc converts a listing.Listing object to its Elasticsearch document representation.
func ListingToElasticsearchDoc(l *listing.Listing) (string, error) {
	if l == nil {
		return "", errors.New("listing cannot be nil")
	}

	price, _ := l.Price.Round(2).Float64()
	doc := map[string]interface{}{
		"title":         l.Title,
		"description":   l.Description,
		"category":      string(l.Category),
		"category_slug": slug.Make(string(l.Category)),
		"price":         price,
		"status":        string(l.Status),
		"user_id":       l.UserID.String(),
		"created_at":    l.CreatedAt,
		"updated_at":    l.UpdatedAt,
	}
	if l.ImagePath != "" {
		doc["image_path"] = l.ImagePath
	}

	docBytes, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("error marshalling listing to JSON for ES: %w", err)
	}
	return string(docBytes), nil
}

// buildSearchQuery matches title and description over active listings only.
func buildSearchQuery(text string, limit int) (string, error) {
	query := map[string]interface{}{
		"size":    limit,
		"_source": false,
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"must": map[string]interface{}{
					"multi_match": map[string]interface{}{
						"query":     text,
						"fields":    []string{"title^2", "description"},
						"fuzziness": "AUTO",
					},
				},
				"filter": []interface{}{
					map[string]interface{}{"term": map[string]interface{}{"status": string(listing.StatusActive)}},
				},
			},
		},
	}
	b, err := json.Marshal(query)
	if err != nil {
		return "", fmt.Errorf("error marshalling search query: %w", err)
	}
	return string(b), nil
}

type searchResponse struct {
	Hits struct {
		Hits []struct {
			ID string `json:"_id"`
		} `json:"hits"`
	} `json:"hits"`
}
