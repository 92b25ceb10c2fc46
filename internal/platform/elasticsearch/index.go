package elasticsearch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/elastic/go-elasticsearch/v8/esapi"
	"go.uber.org/zap"
)

const ListingsIndexName = "listings"

func keywordSubfield() map[string]interface{} {
	return map[string]interface{}{"keyword": map[string]interface{}{"type": "keyword", "ignore_above": 256}}
}

// defineListingsMapping returns the JSON string for the listings index mapping.
func defineListingsMapping() (string, error) {
	mapping := map[string]interface{}{
		"mappings": map[string]interface{}{
			"properties": map[string]interface{}{
				"title":         map[string]interface{}{"type": "text", "fields": keywordSubfield()},
				"description":   map[string]interface{}{"type": "text"},
				"category":      map[string]interface{}{"type": "keyword"},
				"category_slug": map[string]interface{}{"type": "keyword"},
				"price":         map[string]interface{}{"type": "scaled_float", "scaling_factor": 100},
				"status":        map[string]interface{}{"type": "keyword"},
				"user_id":       map[string]interface{}{"type": "keyword"},
				"image_path":    map[string]interface{}{"type": "keyword", "index": false},
				"created_at":    map[string]interface{}{"type": "date"},
				"updated_at":    map[string]interface{}{"type": "date"},
			},
		},
	}
	mappingBytes, err := json.Marshal(mapping)
	if err != nil {
		return "", fmt.Errorf("error marshalling listings mapping to JSON: %w", err)
	}
	return string(mappingBytes), nil
}

// CreateListingsIndexIfNotExists creates the listings index with the defined mapping
// if it does not already exist.
func CreateListingsIndexIfNotExists(ctx context.Context, client *ESClientWrapper, logger *zap.Logger) error {
	log := logger.Named("elasticsearch_index_setup")

	res, err := esapi.IndicesExistsRequest{Index: []string{ListingsIndexName}}.Do(ctx, client.Client)
	if err != nil {
		log.Error("Error checking if listings index exists", zap.Error(err))
		return fmt.Errorf("error checking if listings index exists: %w", err)
	}
	res.Body.Close()

	switch res.StatusCode {
	case http.StatusOK:
		log.Info("Listings index already exists", zap.String("index_name", ListingsIndexName))
		return nil
	case http.StatusNotFound:
	default:
		log.Error("Error checking if listings index exists, unexpected status",
			zap.String("status", res.Status()),
			zap.String("index_name", ListingsIndexName),
		)
		return fmt.Errorf("error checking if listings index exists: status %s", res.Status())
	}

	mappingJSON, err := defineListingsMapping()
	if err != nil {
		return err
	}

	createRes, err := esapi.IndicesCreateRequest{
		Index: ListingsIndexName,
		Body:  strings.NewReader(mappingJSON),
	}.Do(ctx, client.Client)
	if err != nil {
		log.Error("Error creating listings index", zap.Error(err), zap.String("index_name", ListingsIndexName))
		return fmt.Errorf("error creating listings index %s: %w", ListingsIndexName, err)
	}
	defer createRes.Body.Close()

	if createRes.IsError() {
		var errorBody map[string]interface{}
		if err := decodeJSONBody(createRes.Body, &errorBody); err != nil {
			log.Error("Failed to parse listings index creation error response body", zap.Error(err), zap.String("status", createRes.Status()))
		} else {
			log.Error("Failed to create listings index",
				zap.String("status", createRes.Status()),
				zap.Any("error_details", errorBody),
			)
		}
		return fmt.Errorf("failed to create listings index %s: status %s", ListingsIndexName, createRes.Status())
	}

	log.Info("Listings index created successfully", zap.String("index_name", ListingsIndexName))
	return nil
}
