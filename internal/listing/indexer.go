package listing

import (
	"context"

	"gatortrader_backend/internal/common"

	"github.com/google/uuid"
)

// Indexer keeps a full-text index of listings.
type Indexer interface {
	Index(ctx context.Context, l *Listing) error
	Delete(ctx context.Context, id uuid.UUID) error
	// Search returns matching active listing IDs in relevance order.
	Search(ctx context.Context, query string, limit int) ([]uuid.UUID, error)
}

// DisabledIndexer is used when no search cluster is configured.
type DisabledIndexer struct{}

func (DisabledIndexer) Index(context.Context, *Listing) error { return nil }
func (DisabledIndexer) Delete(context.Context, uuid.UUID) error { return nil }

func (DisabledIndexer) Search(context.Context, string, int) ([]uuid.UUID, error) {
	return nil, common.ErrUpstreamUnavailable.WithDetails("Search is not configured.")
}
