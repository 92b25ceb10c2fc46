package listing

import (
	"context"
	"errors"
	"mime/multipart"
	"strings"
	"testing"
	"time"

	"gatortrader_backend/internal/common"
	"gatortrader_backend/internal/filestorage"
	"gatortrader_backend/internal/platform/database/dbtest"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
)

// MockUploader is a mock type for filestorage.Uploader
type MockUploader struct {
	mock.Mock
}

func (m *MockUploader) Upload(ctx context.Context, bucket, objectBase string, fh *multipart.FileHeader) (string, error) {
	args := m.Called(ctx, bucket, objectBase, fh)
	return args.String(0), args.Error(1)
}

func (m *MockUploader) Remove(ctx context.Context, bucket, objectPath string) error {
	return m.Called(ctx, bucket, objectPath).Error(0)
}

func (m *MockUploader) PublicURL(bucket, objectPath string) string {
	if objectPath == "" {
		return ""
	}
	return "https://cdn.test/" + bucket + "/" + objectPath
}

// MockIndexer is a mock type for Indexer
type MockIndexer struct {
	mock.Mock
}

func (m *MockIndexer) Index(ctx context.Context, l *Listing) error {
	return m.Called(ctx, l).Error(0)
}

func (m *MockIndexer) Delete(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockIndexer) Search(ctx context.Context, query string, limit int) ([]uuid.UUID, error) {
	args := m.Called(ctx, query, limit)
	ids, _ := args.Get(0).([]uuid.UUID)
	return ids, args.Error(1)
}

type ListingServiceSuite struct {
	suite.Suite
	ctx      context.Context
	repo     Repository
	uploader *MockUploader
	indexer  *MockIndexer
	service  *ServiceImplementation
	owner    uuid.UUID
}

func (s *ListingServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.repo = NewGORMRepository(dbtest.New(s.T(), &Listing{}))
	s.uploader = new(MockUploader)
	s.indexer = new(MockIndexer)
	s.indexer.On("Index", mock.Anything, mock.Anything).Return(nil).Maybe()
	s.indexer.On("Delete", mock.Anything, mock.Anything).Return(nil).Maybe()
	s.service = NewService(s.repo, s.uploader, s.indexer, zap.NewNop())
	s.owner = uuid.New()
}

func TestListingServiceSuite(t *testing.T) {
	suite.Run(t, new(ListingServiceSuite))
}

func (s *ListingServiceSuite) seed(title string, price int64, status ListingStatus, created time.Time) *Listing {
	l := &Listing{
		UserID:   s.owner,
		Title:    title,
		Price:    decimal.NewFromInt(price),
		Category: CategoryBooks,
		Status:   status,
	}
	l.CreatedAt = created
	s.Require().NoError(s.repo.Create(s.ctx, l))
	return l
}

func (s *ListingServiceSuite) TestCreate_StartsActiveAndUploadsImage() {
	fh := &multipart.FileHeader{Filename: "bike.png", Size: 10}
	s.uploader.On("Upload", mock.Anything, filestorage.BucketProductImages, mock.MatchedBy(func(base string) bool {
		return strings.HasPrefix(base, s.owner.String()+"/road-bike-")
	}), fh).Return(s.owner.String()+"/road-bike-x.png", nil).Once()

	resp, err := s.service.Create(s.ctx, s.owner, CreateListingRequest{
		Title: "Road Bike", Price: "120.5", Category: "electronics",
	}, fh)

	s.Require().NoError(err)
	s.Equal(StatusActive, resp.Status)
	s.Equal(CategoryElectronics, resp.Category)
	s.Equal("120.5", resp.Price.String())
	s.Equal("https://cdn.test/product_images/"+s.owner.String()+"/road-bike-x.png", resp.ImageURL)
	s.uploader.AssertExpectations(s.T())
	s.indexer.AssertCalled(s.T(), "Index", mock.Anything, mock.Anything)
}

func (s *ListingServiceSuite) TestCreate_RejectsNegativePrice() {
	_, err := s.service.Create(s.ctx, s.owner, CreateListingRequest{Title: "x", Price: "-3", Category: "Other"}, nil)
	s.ErrorIs(err, common.ErrBadRequest)
}

func (s *ListingServiceSuite) TestGet_HidesInactiveFromOthers() {
	l := s.seed("Hidden", 5, StatusInactive, time.Now())

	_, err := s.service.Get(s.ctx, l.ID, uuid.New())
	s.ErrorIs(err, common.ErrNotFound)

	resp, err := s.service.Get(s.ctx, l.ID, s.owner)
	s.Require().NoError(err)
	s.Equal(StatusInactive, resp.Status)
}

func (s *ListingServiceSuite) TestBrowse_OnlyActiveAndFiltered() {
	now := time.Now()
	s.seed("Cheap Book", 10, StatusActive, now.Add(-2*time.Hour))
	s.seed("Mid Book", 50, StatusActive, now.Add(-time.Hour))
	s.seed("Rare Book", 999, StatusActive, now)
	s.seed("Pending Book", 20, StatusPending, now)
	s.seed("Off Book", 30, StatusInactive, now)

	items, p, err := s.service.Browse(s.ctx, BrowseQuery{MinPrice: "0", MaxPrice: "100"})
	s.Require().NoError(err)
	s.Require().Len(items, 2)
	s.Equal("Mid Book", items[0].Title, "default sort is newest first")
	s.Equal(int64(2), p.TotalItems)

	items, _, err = s.service.Browse(s.ctx, BrowseQuery{Sort: string(SortPriceLowHigh)})
	s.Require().NoError(err)
	s.Len(items, 3)
	s.Equal("Cheap Book", items[0].Title)
}

func (s *ListingServiceSuite) TestMyListings_ExcludesPendingAndSold() {
	now := time.Now()
	s.seed("a", 1, StatusActive, now.Add(-time.Minute))
	s.seed("b", 1, StatusInactive, now)
	s.seed("c", 1, StatusPending, now)
	s.seed("d", 1, StatusSold, now)

	items, err := s.service.MyListings(s.ctx, s.owner)
	s.Require().NoError(err)
	s.Require().Len(items, 2)
	s.Equal("b", items[0].Title)
	s.Equal("a", items[1].Title)
}

func (s *ListingServiceSuite) TestSetStatus() {
	l := s.seed("Toggle", 5, StatusActive, time.Now())

	resp, err := s.service.SetStatus(s.ctx, l.ID, s.owner, StatusInactive)
	s.Require().NoError(err)
	s.Equal(StatusInactive, resp.Status)

	_, err = s.service.SetStatus(s.ctx, l.ID, s.owner, StatusSold)
	s.Error(err)
	apiErr, ok := common.IsAPIError(err)
	s.Require().True(ok)
	s.Equal("VALIDATION_ERROR", apiErr.Code)

	_, err = s.service.SetStatus(s.ctx, l.ID, uuid.New(), StatusActive)
	s.ErrorIs(err, common.ErrForbidden)
}

func (s *ListingServiceSuite) TestPendingListingIsFrozen() {
	l := s.seed("Frozen", 5, StatusPending, time.Now())

	_, err := s.service.SetStatus(s.ctx, l.ID, s.owner, StatusActive)
	s.ErrorIs(err, common.ErrInvalidState)

	err = s.service.Delete(s.ctx, l.ID, s.owner)
	s.ErrorIs(err, common.ErrInvalidState)

	title := "New"
	_, err = s.service.Update(s.ctx, l.ID, s.owner, UpdateListingRequest{Title: &title}, nil)
	s.ErrorIs(err, common.ErrInvalidState)
}

func (s *ListingServiceSuite) TestUpdateAndDelete() {
	l := s.seed("Old title", 5, StatusActive, time.Now())
	title, price := "New title", "7.25"

	resp, err := s.service.Update(s.ctx, l.ID, s.owner, UpdateListingRequest{Title: &title, Price: &price}, nil)
	s.Require().NoError(err)
	s.Equal("New title", resp.Title)
	s.Equal("7.25", resp.Price.String())

	s.Require().NoError(s.service.Delete(s.ctx, l.ID, s.owner))
	_, err = s.repo.FindByID(s.ctx, l.ID)
	s.ErrorIs(err, common.ErrNotFound)
	s.indexer.AssertCalled(s.T(), "Delete", mock.Anything, l.ID)
}

func (s *ListingServiceSuite) seedWithImage(title, imagePath string) *Listing {
	l := &Listing{
		UserID:    s.owner,
		Title:     title,
		Price:     decimal.NewFromInt(5),
		Category:  CategoryBooks,
		Status:    StatusActive,
		ImagePath: imagePath,
	}
	s.Require().NoError(s.repo.Create(s.ctx, l))
	return l
}

func (s *ListingServiceSuite) TestDelete_RemovesImage() {
	l := s.seedWithImage("Lamp", s.owner.String()+"/lamp-1.png")
	s.uploader.On("Remove", mock.Anything, filestorage.BucketProductImages, l.ImagePath).Return(nil).Once()

	s.Require().NoError(s.service.Delete(s.ctx, l.ID, s.owner))
	s.uploader.AssertExpectations(s.T())
}

func (s *ListingServiceSuite) TestDelete_ImageRemovalFailureIsNotFatal() {
	l := s.seedWithImage("Lamp", s.owner.String()+"/lamp-1.png")
	s.uploader.On("Remove", mock.Anything, filestorage.BucketProductImages, l.ImagePath).
		Return(errors.New("bucket unreachable")).Once()

	s.Require().NoError(s.service.Delete(s.ctx, l.ID, s.owner))
	_, err := s.repo.FindByID(s.ctx, l.ID)
	s.ErrorIs(err, common.ErrNotFound)
}

func (s *ListingServiceSuite) TestDelete_RefusedKeepsImage() {
	l := s.seedWithImage("Lamp", s.owner.String()+"/lamp-1.png")

	err := s.service.Delete(s.ctx, l.ID, uuid.New())
	s.ErrorIs(err, common.ErrForbidden)
	s.uploader.AssertNotCalled(s.T(), "Remove", mock.Anything, mock.Anything, mock.Anything)
}

func (s *ListingServiceSuite) TestUpdate_NewImageReplacesOld() {
	oldPath := s.owner.String() + "/lamp-old.png"
	newPath := s.owner.String() + "/lamp-new.jpg"
	l := s.seedWithImage("Lamp", oldPath)
	fh := &multipart.FileHeader{Filename: "lamp.jpg", Size: 10}
	s.uploader.On("Upload", mock.Anything, filestorage.BucketProductImages, mock.Anything, fh).Return(newPath, nil).Once()
	s.uploader.On("Remove", mock.Anything, filestorage.BucketProductImages, oldPath).Return(nil).Once()

	resp, err := s.service.Update(s.ctx, l.ID, s.owner, UpdateListingRequest{}, fh)
	s.Require().NoError(err)
	s.Equal("https://cdn.test/product_images/"+newPath, resp.ImageURL)
	s.uploader.AssertExpectations(s.T())
	s.uploader.AssertNotCalled(s.T(), "Remove", mock.Anything, mock.Anything, newPath)
}

func (s *ListingServiceSuite) TestUpdate_WithoutImageKeepsExisting() {
	l := s.seedWithImage("Lamp", s.owner.String()+"/lamp-old.png")
	title := "Desk lamp"

	_, err := s.service.Update(s.ctx, l.ID, s.owner, UpdateListingRequest{Title: &title}, nil)
	s.Require().NoError(err)
	s.uploader.AssertNotCalled(s.T(), "Remove", mock.Anything, mock.Anything, mock.Anything)
}

func (s *ListingServiceSuite) TestSearch_KeepsRelevanceOrderAndDropsInactive() {
	now := time.Now()
	first := s.seed("Lamp", 20, StatusActive, now.Add(-time.Hour))
	second := s.seed("Desk lamp", 40, StatusActive, now)
	sold := s.seed("Sold lamp", 10, StatusSold, now)
	s.indexer.On("Search", mock.Anything, "lamp", searchResultLimit).
		Return([]uuid.UUID{second.ID, sold.ID, first.ID}, nil).Once()

	items, _, err := s.service.Search(s.ctx, "lamp", BrowseQuery{})
	s.Require().NoError(err)
	s.Require().Len(items, 2)
	s.Equal(second.ID, items[0].ID)
	s.Equal(first.ID, items[1].ID)
}

func TestSearch_DisabledIndexerIsUnavailable(t *testing.T) {
	repo := NewGORMRepository(dbtest.New(t, &Listing{}))
	svc := NewService(repo, new(MockUploader), nil, zap.NewNop())

	_, _, err := svc.Search(context.Background(), "lamp", BrowseQuery{})
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrUpstreamUnavailable)
}
