// Package esutil indexes listings into Elasticsearch and queries them back.
package esutil

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"gatortrader_backend/internal/listing"
	"gatortrader_backend/internal/platform/elasticsearch"

	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Indexer implements listing.Indexer against the listings index.
type Indexer struct {
	client *elasticsearch.ESClientWrapper
	index  string
	logger *zap.Logger
}

var _ listing.Indexer = (*Indexer)(nil)

// NewIndexer returns listing.DisabledIndexer when client is nil.
func NewIndexer(client *elasticsearch.ESClientWrapper, logger *zap.Logger) listing.Indexer {
	if client == nil {
		return listing.DisabledIndexer{}
	}
	return &Indexer{client: client, index: elasticsearch.ListingsIndexName, logger: logger.Named("es_indexer")}
}

func responseError(op string, res *esapi.Response) error {
	body, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
	return fmt.Errorf("elasticsearch %s failed: %s: %s", op, res.Status(), strings.TrimSpace(string(body)))
}

// Index creates or replaces the document for l.
func (i *Indexer) Index(ctx context.Context, l *listing.Listing) error {
	doc, err := ListingToElasticsearchDoc(l)
	if err != nil {
		return err
	}
	res, err := esapi.IndexRequest{
		Index:      i.index,
		DocumentID: l.ID.String(),
		Body:       strings.NewReader(doc),
	}.Do(ctx, i.client.Client)
	if err != nil {
		return fmt.Errorf("elasticsearch index request: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return responseError("index", res)
	}
	i.logger.Debug("Listing indexed", zap.String("listingID", l.ID.String()))
	return nil
}

// Delete removes the document. A missing document is not an error.
func (i *Indexer) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := esapi.DeleteRequest{Index: i.index, DocumentID: id.String()}.Do(ctx, i.client.Client)
	if err != nil {
		return fmt.Errorf("elasticsearch delete request: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() && res.StatusCode != http.StatusNotFound {
		return responseError("delete", res)
	}
	return nil
}

// Search returns the IDs of matching active listings, best match first.
func (i *Indexer) Search(ctx context.Context, text string, limit int) ([]uuid.UUID, error) {
	body, err := buildSearchQuery(text, limit)
	if err != nil {
		return nil, err
	}
	res, err := esapi.SearchRequest{
		Index: []string{i.index},
		Body:  strings.NewReader(body),
	}.Do(ctx, i.client.Client)
	if err != nil {
		return nil, fmt.Errorf("elasticsearch search request: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, responseError("search", res)
	}

	var parsed searchResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}
	ids := make([]uuid.UUID, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		id, err := uuid.Parse(h.ID)
		if err != nil {
			i.logger.Warn("Skipping search hit with non-UUID id", zap.String("id", h.ID))
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// SyncAll re-indexes every listing in batches and returns how many documents were written.
// Sold and pending listings are indexed too; the search query filters on status.
func SyncAll(ctx context.Context, repo listing.Repository, indexer listing.Indexer, batchSize int, logger *zap.Logger) (int, error) {
	if batchSize <= 0 {
		batchSize = 100
	}
	indexed := 0
	for offset := 0; ; offset += batchSize {
		batch, err := repo.FindAllBatch(ctx, offset, batchSize)
		if err != nil {
			return indexed, err
		}
		for idx := range batch {
			if err := indexer.Index(ctx, &batch[idx]); err != nil {
				logger.Error("Failed to index listing", zap.Error(err), zap.String("listingID", batch[idx].ID.String()))
				continue
			}
			indexed++
		}
		logger.Info("Indexed listing batch", zap.Int("offset", offset), zap.Int("size", len(batch)))
		if len(batch) < batchSize {
			return indexed, nil
		}
	}
}
