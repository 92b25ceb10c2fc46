// File: internal/listing/service.go
package listing

import (
	"context"
	"errors"
	"mime/multipart"
	"strings"

	"gatortrader_backend/internal/common"
	"gatortrader_backend/internal/filestorage"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"go.uber.org/zap"
)

const searchResultLimit = 100

// Service defines the interface for listing business logic.
type Service interface {
	Create(ctx context.Context, ownerID uuid.UUID, req CreateListingRequest, image *multipart.FileHeader) (*ListingResponse, error)
	Get(ctx context.Context, id, viewerID uuid.UUID) (*ListingResponse, error)
	Update(ctx context.Context, id, ownerID uuid.UUID, req UpdateListingRequest, image *multipart.FileHeader) (*ListingResponse, error)
	Delete(ctx context.Context, id, ownerID uuid.UUID) error
	SetStatus(ctx context.Context, id, ownerID uuid.UUID, status ListingStatus) (*ListingResponse, error)
	Browse(ctx context.Context, q BrowseQuery) ([]ListingResponse, *common.Pagination, error)
	MyListings(ctx context.Context, ownerID uuid.UUID) ([]ListingResponse, error)
	Search(ctx context.Context, text string, q BrowseQuery) ([]ListingResponse, *common.Pagination, error)
	SyncIndex(ctx context.Context, id uuid.UUID)
}

// ServiceImplementation implements the listing Service interface.
type ServiceImplementation struct {
	repo    Repository
	images  filestorage.Uploader
	indexer Indexer
	logger  *zap.Logger
}

// NewService creates a new listing service.
func NewService(repo Repository, images filestorage.Uploader, indexer Indexer, logger *zap.Logger) *ServiceImplementation {
	if indexer == nil {
		indexer = DisabledIndexer{}
	}
	return &ServiceImplementation{repo: repo, images: images, indexer: indexer, logger: logger}
}

func (s *ServiceImplementation) respond(l *Listing) *ListingResponse {
	resp := ToListingResponse(l, s.images)
	return &resp
}

// imageBase is <owner>/<title-slug>-<uuid>; the uploader appends the extension.
func imageBase(ownerID uuid.UUID, title string) string {
	name := slug.Make(title)
	if name == "" {
		name = "item"
	}
	if len(name) > 60 {
		name = strings.Trim(name[:60], "-")
	}
	return ownerID.String() + "/" + name + "-" + uuid.NewString()
}

// Create stores a new active listing with an optional image.
func (s *ServiceImplementation) Create(ctx context.Context, ownerID uuid.UUID, req CreateListingRequest, image *multipart.FileHeader) (*ListingResponse, error) {
	price, err := ParsePrice(req.Price)
	if err != nil {
		return nil, err
	}
	category, ok := ParseCategory(req.Category)
	if !ok {
		return nil, common.ErrBadRequest.WithDetails("Unknown category: " + req.Category)
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, common.NewValidationAPIError(map[string]string{"Title": "The title field is required."})
	}

	l := &Listing{
		UserID:      ownerID,
		Title:       title,
		Description: strings.TrimSpace(req.Description),
		Price:       price,
		Category:    category,
		Status:      StatusActive,
	}
	if image != nil {
		path, err := s.images.Upload(ctx, filestorage.BucketProductImages, imageBase(ownerID, title), image)
		if err != nil {
			return nil, err
		}
		l.ImagePath = path
	}

	if err := s.repo.Create(ctx, l); err != nil {
		s.logger.Error("Failed to create listing", zap.Error(err), zap.String("userID", ownerID.String()))
		s.removeImage(ctx, l.ImagePath)
		return nil, err
	}
	s.logger.Info("Listing created", zap.String("listingID", l.ID.String()), zap.String("userID", ownerID.String()))
	s.index(ctx, l)
	return s.respond(l), nil
}

// Get returns a listing. Only the owner sees listings that are not active.
func (s *ServiceImplementation) Get(ctx context.Context, id, viewerID uuid.UUID) (*ListingResponse, error) {
	l, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if l.Status != StatusActive && l.UserID != viewerID {
		return nil, common.ErrNotFound.WithDetails("Listing not found.")
	}
	return s.respond(l), nil
}

// Update applies the supplied fields while the listing is active or inactive.
func (s *ServiceImplementation) Update(ctx context.Context, id, ownerID uuid.UUID, req UpdateListingRequest, image *multipart.FileHeader) (*ListingResponse, error) {
	fields := map[string]interface{}{}
	title := ""
	if req.Title != nil {
		title = strings.TrimSpace(*req.Title)
		if title == "" {
			return nil, common.NewValidationAPIError(map[string]string{"Title": "The title field is required."})
		}
		fields["title"] = title
	}
	if req.Description != nil {
		fields["description"] = strings.TrimSpace(*req.Description)
	}
	if req.Price != nil {
		price, err := ParsePrice(*req.Price)
		if err != nil {
			return nil, err
		}
		fields["price"] = price
	}
	if req.Category != nil {
		category, ok := ParseCategory(*req.Category)
		if !ok {
			return nil, common.ErrBadRequest.WithDetails("Unknown category: " + *req.Category)
		}
		fields["category"] = category
	}

	// Ownership and state are checked before any upload happens.
	current, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.UserID != ownerID {
		return nil, common.ErrForbidden.WithDetails("You do not own this listing.")
	}
	if !current.Status.IsOpen() {
		return nil, common.ErrInvalidState.WithDetails("Listings that are pending or sold cannot be edited.")
	}

	if image != nil {
		if title == "" {
			title = current.Title
		}
		path, err := s.images.Upload(ctx, filestorage.BucketProductImages, imageBase(ownerID, title), image)
		if err != nil {
			return nil, err
		}
		fields["image_path"] = path
	}
	if len(fields) == 0 {
		return s.respond(current), nil
	}

	newImage, _ := fields["image_path"].(string)
	if err := s.repo.UpdateOwned(ctx, id, ownerID, fields); err != nil {
		s.removeImage(ctx, newImage)
		return nil, err
	}
	if newImage != "" && newImage != current.ImagePath {
		s.removeImage(ctx, current.ImagePath)
	}
	updated, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.index(ctx, updated)
	return s.respond(updated), nil
}

// removeImage deletes a product image, logging instead of failing.
func (s *ServiceImplementation) removeImage(ctx context.Context, objectPath string) {
	if objectPath == "" {
		return
	}
	if err := s.images.Remove(ctx, filestorage.BucketProductImages, objectPath); err != nil {
		s.logger.Warn("Failed to remove listing image", zap.Error(err), zap.String("path", objectPath))
	}
}

// Delete removes an active or inactive listing owned by ownerID.
func (s *ServiceImplementation) Delete(ctx context.Context, id, ownerID uuid.UUID) error {
	current, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteOwned(ctx, id, ownerID); err != nil {
		return err
	}
	s.removeImage(ctx, current.ImagePath)
	s.logger.Info("Listing deleted", zap.String("listingID", id.String()), zap.String("userID", ownerID.String()))
	if err := s.indexer.Delete(ctx, id); err != nil {
		s.logger.Warn("Failed to remove listing from search index", zap.Error(err), zap.String("listingID", id.String()))
	}
	return nil
}

// SetStatus toggles between active and inactive.
func (s *ServiceImplementation) SetStatus(ctx context.Context, id, ownerID uuid.UUID, status ListingStatus) (*ListingResponse, error) {
	if !status.IsOpen() {
		return nil, common.NewValidationAPIError(map[string]string{"Status": "The status field must be one of the following values: active inactive."})
	}
	if err := s.repo.UpdateOwned(ctx, id, ownerID, map[string]interface{}{"status": status}); err != nil {
		return nil, err
	}
	l, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.index(ctx, l)
	return s.respond(l), nil
}

// Browse filters the active listings in memory.
func (s *ServiceImplementation) Browse(ctx context.Context, q BrowseQuery) ([]ListingResponse, *common.Pagination, error) {
	f, err := q.ToFilter()
	if err != nil {
		return nil, nil, err
	}
	if f.Sort == "" {
		f.Sort = SortNewest
	}
	items, err := s.repo.FindByStatus(ctx, StatusActive)
	if err != nil {
		return nil, nil, err
	}
	page, p := common.Paginate(ApplyFilter(items, f), q.Page, q.Limit())
	return ToListingResponses(page, s.images), p, nil
}

// MyListings returns the owner's active and inactive listings, newest first.
func (s *ServiceImplementation) MyListings(ctx context.Context, ownerID uuid.UUID) ([]ListingResponse, error) {
	items, err := s.repo.FindByOwner(ctx, ownerID, OpenStatuses...)
	if err != nil {
		return nil, err
	}
	return ToListingResponses(items, s.images), nil
}

// Search asks the index for matches and filters the hydrated rows. Without an explicit sort the
// index's relevance order is kept.
func (s *ServiceImplementation) Search(ctx context.Context, text string, q BrowseQuery) ([]ListingResponse, *common.Pagination, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil, common.ErrBadRequest.WithDetails("A search query is required.")
	}
	f, err := q.ToFilter()
	if err != nil {
		return nil, nil, err
	}
	f.Term = "" // the index already matched the text

	ids, err := s.indexer.Search(ctx, text, searchResultLimit)
	if err != nil {
		if _, ok := common.IsAPIError(err); ok {
			return nil, nil, err
		}
		s.logger.Error("Search request failed", zap.Error(err))
		return nil, nil, common.ErrUpstreamUnavailable.WithDetails("Search is temporarily unavailable.")
	}
	found, err := s.repo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, nil, err
	}

	byID := make(map[uuid.UUID]Listing, len(found))
	for _, l := range found {
		byID[l.ID] = l
	}
	ordered := make([]Listing, 0, len(ids))
	for _, id := range ids {
		if l, ok := byID[id]; ok && l.Status == StatusActive {
			ordered = append(ordered, l)
		}
	}
	page, p := common.Paginate(ApplyFilter(ordered, f), q.Page, q.Limit())
	return ToListingResponses(page, s.images), p, nil
}

// SyncIndex re-reads a listing and refreshes its index entry. Missing listings are removed.
func (s *ServiceImplementation) SyncIndex(ctx context.Context, id uuid.UUID) {
	l, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			if err := s.indexer.Delete(ctx, id); err != nil {
				s.logger.Warn("Failed to remove listing from search index", zap.Error(err), zap.String("listingID", id.String()))
			}
			return
		}
		s.logger.Warn("Failed to load listing for indexing", zap.Error(err), zap.String("listingID", id.String()))
		return
	}
	s.index(ctx, l)
}

func (s *ServiceImplementation) index(ctx context.Context, l *Listing) {
	if err := s.indexer.Index(ctx, l); err != nil {
		s.logger.Warn("Failed to index listing", zap.Error(err), zap.String("listingID", l.ID.String()))
	}
}
