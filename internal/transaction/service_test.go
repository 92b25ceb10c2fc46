package transaction

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"gatortrader_backend/internal/common"
	"gatortrader_backend/internal/listing"
	"gatortrader_backend/internal/notification"
	"gatortrader_backend/internal/platform/database/dbtest"
	"gatortrader_backend/internal/shared"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// fakeUsers is an in-memory shared.Service.
type fakeUsers struct {
	byID map[uuid.UUID]*shared.User
}

func (f *fakeUsers) add(username string) *shared.User {
	u := &shared.User{ID: uuid.New(), Username: username, Email: username + "@ufl.edu"}
	f.byID[u.ID] = u
	return u
}

func (f *fakeUsers) GetUserByID(_ context.Context, id uuid.UUID) (*shared.User, error) {
	if u, ok := f.byID[id]; ok {
		return u, nil
	}
	return nil, common.ErrNotFound.WithDetails("User not found.")
}

func (f *fakeUsers) GetUserByUsername(_ context.Context, username string) (*shared.User, error) {
	for _, u := range f.byID {
		if strings.EqualFold(u.Username, username) {
			return u, nil
		}
	}
	return nil, common.ErrNotFound.WithDetails("User not found with this username.")
}

func (f *fakeUsers) GetUserByFirebaseUID(context.Context, string) (*shared.User, error) {
	return nil, common.ErrNotFound
}

// failingListings fails every transition into failTo.
type failingListings struct {
	listing.Repository
	failTo listing.ListingStatus
}

func (f failingListings) WithTx(tx *gorm.DB) listing.Repository {
	return failingListings{Repository: f.Repository.WithTx(tx), failTo: f.failTo}
}

func (f failingListings) TransitionStatus(ctx context.Context, id uuid.UUID, from []listing.ListingStatus, to listing.ListingStatus) error {
	if to == f.failTo {
		return errors.New("listing store unavailable")
	}
	return f.Repository.TransitionStatus(ctx, id, from, to)
}

type recordingIndexer struct {
	mu  sync.Mutex
	ids []uuid.UUID
}

func (r *recordingIndexer) SyncIndex(_ context.Context, id uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ids = append(r.ids, id)
}

type LifecycleSuite struct {
	suite.Suite
	ctx      context.Context
	db       *gorm.DB
	txs      Repository
	listings listing.Repository
	outbox   notification.Outbox
	users    *fakeUsers
	indexer  *recordingIndexer
	service  *ServiceImplementation

	seller *shared.User
	buyer  *shared.User
	desk   *listing.Listing
}

func TestLifecycleSuite(t *testing.T) {
	suite.Run(t, new(LifecycleSuite))
}

func (s *LifecycleSuite) SetupTest() {
	s.ctx = context.Background()
	s.db = dbtest.New(s.T(), &listing.Listing{}, &Transaction{}, &notification.OutboxEvent{})
	s.txs = NewGORMRepository(s.db)
	s.listings = listing.NewGORMRepository(s.db)
	s.outbox = notification.NewGORMOutbox(s.db)
	s.users = &fakeUsers{byID: map[uuid.UUID]*shared.User{}}
	s.indexer = &recordingIndexer{}
	s.service = s.newService(s.listings)

	s.seller = s.users.add("alice")
	s.buyer = s.users.add("bob99")
	s.desk = &listing.Listing{
		UserID:   s.seller.ID,
		Title:    "Standing Desk",
		Price:    decimal.NewFromInt(25),
		Category: listing.CategoryFurniture,
		Status:   listing.StatusActive,
	}
	s.Require().NoError(s.listings.Create(s.ctx, s.desk))
}

func (s *LifecycleSuite) newService(listings listing.Repository) *ServiceImplementation {
	uow := NewUnitOfWork(s.db, s.txs, listings, s.outbox)
	return NewService(uow, s.txs, listings, s.users, s.indexer, zap.NewNop())
}

func price(v string) *decimal.Decimal {
	d := decimal.RequireFromString(v)
	return &d
}

func (s *LifecycleSuite) listingStatus() listing.ListingStatus {
	l, err := s.listings.FindByID(s.ctx, s.desk.ID)
	s.Require().NoError(err)
	return l.Status
}

func (s *LifecycleSuite) events() []notification.OutboxEvent {
	var out []notification.OutboxEvent
	s.Require().NoError(s.db.Order("created_at").Find(&out).Error)
	return out
}

func (s *LifecycleSuite) propose() *TransactionResponse {
	resp, err := s.service.ProposeSale(s.ctx, s.seller.ID, s.desk.ID, ProposeSaleRequest{BuyerUsername: "bob99", Price: price("20")})
	s.Require().NoError(err)
	return resp
}

func (s *LifecycleSuite) TestProposeThenAccept() {
	resp := s.propose()
	s.Equal(StatusPending, resp.Status)
	s.Equal(KindSale, resp.Type)
	s.Equal("bob99", resp.CounterpartyUsername)
	s.Equal(listing.StatusPending, s.listingStatus())

	evs := s.events()
	s.Require().Len(evs, 1)
	s.Equal(notification.SaleProposed, evs[0].Type)
	s.Equal(s.buyer.ID, evs[0].ToUserID)
	s.Equal(`The seller has marked "Standing Desk" as sold to you for $20.00. Please confirm to finalize.`, evs[0].Message)

	accepted, err := s.service.Accept(s.ctx, s.buyer.ID, resp.ID)
	s.Require().NoError(err)
	s.Equal(StatusCompleted, accepted.Status)
	s.Equal(KindPurchase, accepted.Type)
	s.Equal(listing.StatusSold, s.listingStatus())

	evs = s.events()
	s.Require().Len(evs, 2)
	s.Equal(notification.SaleAccepted, evs[1].Type)
	s.Equal(s.seller.ID, evs[1].ToUserID)
	s.Equal(`bob99 confirmed the purchase of "Standing Desk" for $20.00.`, evs[1].Message)

	_, err = s.service.Accept(s.ctx, s.buyer.ID, resp.ID)
	s.ErrorIs(err, common.ErrInvalidState)
	s.Equal([]uuid.UUID{s.desk.ID, s.desk.ID}, s.indexer.ids)
}

func (s *LifecycleSuite) TestProposeSale_Preconditions() {
	_, err := s.service.ProposeSale(s.ctx, s.seller.ID, s.desk.ID, ProposeSaleRequest{BuyerUsername: "alice", Price: price("5")})
	s.ErrorIs(err, common.ErrCounterpartyNotFound, "selling to yourself")

	_, err = s.service.ProposeSale(s.ctx, s.seller.ID, s.desk.ID, ProposeSaleRequest{BuyerUsername: "nobody", Price: price("5")})
	s.ErrorIs(err, common.ErrCounterpartyNotFound)

	_, err = s.service.ProposeSale(s.ctx, s.buyer.ID, s.desk.ID, ProposeSaleRequest{BuyerUsername: "alice", Price: price("5")})
	s.ErrorIs(err, common.ErrForbidden)

	_, err = s.service.ProposeSale(s.ctx, s.seller.ID, uuid.New(), ProposeSaleRequest{BuyerUsername: "bob99", Price: price("5")})
	s.ErrorIs(err, common.ErrNotFound)

	_, err = s.service.ProposeSale(s.ctx, s.seller.ID, s.desk.ID, ProposeSaleRequest{BuyerUsername: "bob99", Price: price("-1")})
	s.Error(err)

	s.Equal(listing.StatusActive, s.listingStatus())
	s.Empty(s.events())
}

func (s *LifecycleSuite) TestProposeSale_SecondProposalIsAlreadyPending() {
	s.propose()
	s.users.add("carol")

	_, err := s.service.ProposeSale(s.ctx, s.seller.ID, s.desk.ID, ProposeSaleRequest{BuyerUsername: "carol", Price: price("30")})
	s.ErrorIs(err, common.ErrAlreadyPending)

	apiErr, ok := common.IsAPIError(err)
	s.Require().True(ok)
	s.Equal("This product has already been marked as sold.", apiErr.Message)
}

func (s *LifecycleSuite) TestLedgerRejectsSecondPendingRow() {
	first := &Transaction{ListingID: s.desk.ID, BuyerID: s.buyer.ID, SellerID: s.seller.ID, AgreedPrice: decimal.NewFromInt(1)}
	s.Require().NoError(s.txs.Create(s.ctx, first))

	second := &Transaction{ListingID: s.desk.ID, BuyerID: s.buyer.ID, SellerID: s.seller.ID, AgreedPrice: decimal.NewFromInt(2)}
	s.ErrorIs(s.txs.Create(s.ctx, second), common.ErrAlreadyPending)

	s.Require().NoError(s.txs.MarkCompleted(s.ctx, first.ID))
	third := &Transaction{ListingID: s.desk.ID, BuyerID: s.buyer.ID, SellerID: s.seller.ID, AgreedPrice: decimal.NewFromInt(3)}
	s.NoError(s.txs.Create(s.ctx, third), "completed rows do not block a new pending row")
}

func (s *LifecycleSuite) TestConcurrentProposalsYieldOnePending() {
	buyers := []string{"bob99"}
	for i := 0; i < 4; i++ {
		buyers = append(buyers, s.users.add("buyer"+string(rune('a'+i))).Username)
	}

	var wg sync.WaitGroup
	errs := make([]error, len(buyers))
	for i, name := range buyers {
		wg.Add(1)
		go func(i int, name string) {
			defer wg.Done()
			_, errs[i] = s.service.ProposeSale(s.ctx, s.seller.ID, s.desk.ID, ProposeSaleRequest{BuyerUsername: name, Price: price("10")})
		}(i, name)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		s.ErrorIs(err, common.ErrAlreadyPending)
	}
	s.Equal(1, succeeded)

	var pending int64
	s.Require().NoError(s.db.Model(&Transaction{}).Where("listing_id = ? AND status = ?", s.desk.ID, StatusPending).Count(&pending).Error)
	s.Equal(int64(1), pending)
	s.Len(s.events(), 1)
}

func (s *LifecycleSuite) TestBuyerRejects() {
	resp := s.propose()

	s.Require().NoError(s.service.Reject(s.ctx, s.buyer.ID, resp.ID))

	s.Equal(listing.StatusActive, s.listingStatus())
	_, err := s.txs.FindByID(s.ctx, resp.ID)
	s.ErrorIs(err, common.ErrNotFound)

	for _, who := range []uuid.UUID{s.buyer.ID, s.seller.ID} {
		items, p, err := s.service.ListForUser(s.ctx, who, ListQuery{})
		s.Require().NoError(err)
		s.Empty(items)
		s.Equal(int64(0), p.TotalItems)
	}

	evs := s.events()
	s.Require().Len(evs, 2)
	s.Equal(notification.SaleRejected, evs[1].Type)
	s.Equal(s.seller.ID, evs[1].ToUserID)
	s.Equal(`bob99 declined the purchase of "Standing Desk". The listing is active again.`, evs[1].Message)
}

func (s *LifecycleSuite) TestSellerCancels() {
	resp := s.propose()

	s.Require().NoError(s.service.Reject(s.ctx, s.seller.ID, resp.ID))

	evs := s.events()
	s.Require().Len(evs, 2)
	s.Equal(notification.SaleCancelled, evs[1].Type)
	s.Equal(s.buyer.ID, evs[1].ToUserID)
	s.Equal(`The seller cancelled the sale of "Standing Desk". The listing is available again.`, evs[1].Message)

	// The listing can be sold again.
	again := s.propose()
	s.NotEqual(resp.ID, again.ID)
}

func (s *LifecycleSuite) TestPermissions() {
	resp := s.propose()
	stranger := s.users.add("mallory")

	_, err := s.service.Accept(s.ctx, s.seller.ID, resp.ID)
	s.ErrorIs(err, common.ErrForbidden, "the seller cannot accept")

	s.ErrorIs(s.service.Reject(s.ctx, stranger.ID, resp.ID), common.ErrForbidden)

	_, err = s.service.Get(s.ctx, stranger.ID, resp.ID)
	s.ErrorIs(err, common.ErrForbidden)

	_, err = s.service.Accept(s.ctx, s.buyer.ID, uuid.New())
	s.ErrorIs(err, common.ErrNotFound)

	got, err := s.service.Get(s.ctx, s.buyer.ID, resp.ID)
	s.Require().NoError(err)
	s.Equal("alice", got.CounterpartyUsername)
	s.Equal("Standing Desk", got.ListingTitle)
}

func (s *LifecycleSuite) TestRejectAfterAcceptIsInvalidState() {
	resp := s.propose()
	_, err := s.service.Accept(s.ctx, s.buyer.ID, resp.ID)
	s.Require().NoError(err)

	s.ErrorIs(s.service.Reject(s.ctx, s.buyer.ID, resp.ID), common.ErrInvalidState)
	s.Equal(listing.StatusSold, s.listingStatus())
}

func (s *LifecycleSuite) TestAcceptRollsBackWhenListingUpdateFails() {
	resp := s.propose()
	broken := s.newService(failingListings{Repository: s.listings, failTo: listing.StatusSold})

	_, err := broken.Accept(s.ctx, s.buyer.ID, resp.ID)
	s.ErrorIs(err, common.ErrPartialFailure)
	apiErr, ok := common.IsAPIError(err)
	s.Require().True(ok)
	s.Equal(map[string]bool{"retryable": true}, apiErr.Details)

	var stepErr *StepError
	s.Require().ErrorAs(err, &stepErr)
	s.Equal("mark_listing_sold", stepErr.Step)

	t, err := s.txs.FindByID(s.ctx, resp.ID)
	s.Require().NoError(err)
	s.Equal(StatusPending, t.Status, "step one is rolled back")
	s.Equal(listing.StatusPending, s.listingStatus())
	s.Len(s.events(), 1)

	// A retry with a healthy store succeeds.
	_, err = s.service.Accept(s.ctx, s.buyer.ID, resp.ID)
	s.NoError(err)
}

func (s *LifecycleSuite) TestRejectReactivationFailureLeavesStateUnchanged() {
	resp := s.propose()
	broken := s.newService(failingListings{Repository: s.listings, failTo: listing.StatusActive})

	err := broken.Reject(s.ctx, s.buyer.ID, resp.ID)
	s.ErrorIs(err, common.ErrReactivationFailed)

	_, err = s.txs.FindByID(s.ctx, resp.ID)
	s.NoError(err, "the transaction still exists")
	s.Equal(listing.StatusPending, s.listingStatus())
}

func (s *LifecycleSuite) TestListForUserByKind() {
	resp := s.propose()

	purchases, _, err := s.service.ListForUser(s.ctx, s.buyer.ID, ListQuery{Type: string(KindPurchase)})
	s.Require().NoError(err)
	s.Require().Len(purchases, 1)
	s.Equal(resp.ID, purchases[0].ID)
	s.Equal(KindPurchase, purchases[0].Type)
	s.Equal("alice", purchases[0].CounterpartyUsername)
	s.Equal("Standing Desk", purchases[0].ListingTitle)

	sales, _, err := s.service.ListForUser(s.ctx, s.buyer.ID, ListQuery{Type: string(KindSale)})
	s.Require().NoError(err)
	s.Empty(sales)

	all, _, err := s.service.ListForUser(s.ctx, s.seller.ID, ListQuery{})
	s.Require().NoError(err)
	s.Require().Len(all, 1)
	s.Equal(KindSale, all[0].Type)
}
