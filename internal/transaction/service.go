package transaction

import (
	"context"
	"errors"
	"fmt"

	"gatortrader_backend/internal/common"
	"gatortrader_backend/internal/listing"
	"gatortrader_backend/internal/notification"
	"gatortrader_backend/internal/shared"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ListingIndexer refreshes the search document of a listing after its status changed.
type ListingIndexer interface {
	SyncIndex(ctx context.Context, id uuid.UUID)
}

// Service is the sale lifecycle controller.
type Service interface {
	ProposeSale(ctx context.Context, sellerID, listingID uuid.UUID, req ProposeSaleRequest) (*TransactionResponse, error)
	Accept(ctx context.Context, callerID, transactionID uuid.UUID) (*TransactionResponse, error)
	Reject(ctx context.Context, callerID, transactionID uuid.UUID) error
	Get(ctx context.Context, callerID, transactionID uuid.UUID) (*TransactionResponse, error)
	ListForUser(ctx context.Context, callerID uuid.UUID, q ListQuery) ([]TransactionResponse, *common.Pagination, error)
}

// ServiceImplementation implements Service.
type ServiceImplementation struct {
	uow          UnitOfWork
	transactions Repository
	listings     listing.Repository
	users        shared.Service
	index        ListingIndexer
	logger       *zap.Logger
}

// NewService creates the lifecycle controller.
func NewService(uow UnitOfWork, transactions Repository, listings listing.Repository, users shared.Service, index ListingIndexer, logger *zap.Logger) *ServiceImplementation {
	return &ServiceImplementation{
		uow:          uow,
		transactions: transactions,
		listings:     listings,
		users:        users,
		index:        index,
		logger:       logger.Named("transaction"),
	}
}

func proposalMessage(title, price string) string {
	return fmt.Sprintf("The seller has marked \"%s\" as sold to you for $%s. Please confirm to finalize.", title, price)
}

func acceptedMessage(buyer, title, price string) string {
	return fmt.Sprintf("%s confirmed the purchase of \"%s\" for $%s.", buyer, title, price)
}

func cancelledMessage(title string) string {
	return fmt.Sprintf("The seller cancelled the sale of \"%s\". The listing is available again.", title)
}

func rejectedMessage(buyer, title string) string {
	return fmt.Sprintf("%s declined the purchase of \"%s\". The listing is active again.", buyer, title)
}

// ProposeSale marks the seller's listing as pending a sale to the named buyer.
func (s *ServiceImplementation) ProposeSale(ctx context.Context, sellerID, listingID uuid.UUID, req ProposeSaleRequest) (*TransactionResponse, error) {
	l, err := s.listings.FindByID(ctx, listingID)
	if err != nil {
		return nil, err
	}
	if l.UserID != sellerID {
		return nil, common.ErrForbidden.WithDetails("Only the seller can mark this listing as sold.")
	}
	if !l.Status.IsOpen() {
		return nil, common.ErrAlreadyPending
	}
	if req.Price == nil || req.Price.IsNegative() {
		return nil, common.NewValidationAPIError(map[string]string{"Price": "The price field must be greater than or equal to 0."})
	}
	price := req.Price.Round(2)

	var buyer *shared.User
	err = runSteps(ctx, s.logger, "propose_sale", step{
		name: "resolve_counterparty",
		run: func(ctx context.Context) error {
			u, err := s.users.GetUserByUsername(ctx, req.BuyerUsername)
			if err != nil {
				return err
			}
			if u.ID == sellerID {
				return common.ErrCounterpartyNotFound.WithDetails("You cannot sell a listing to yourself.")
			}
			buyer = u
			return nil
		},
		translate: func(err error) error {
			if errors.Is(err, common.ErrNotFound) {
				return common.ErrCounterpartyNotFound
			}
			return err
		},
	})
	if err != nil {
		return nil, err
	}

	t := &Transaction{ListingID: l.ID, BuyerID: buyer.ID, SellerID: sellerID, AgreedPrice: price}
	err = s.uow.WithinTx(ctx, func(ctx context.Context, st Stores) error {
		return runSteps(ctx, s.logger, "propose_sale",
			step{
				name: "insert_transaction",
				run:  func(ctx context.Context) error { return st.Transactions.Create(ctx, t) },
			},
			step{
				name: "mark_listing_pending",
				run: func(ctx context.Context) error {
					return st.Listings.TransitionStatus(ctx, l.ID, listing.OpenStatuses, listing.StatusPending)
				},
				translate: func(err error) error {
					if errors.Is(err, common.ErrInvalidState) {
						return common.ErrAlreadyPending
					}
					return err
				},
			},
			step{
				name: "enqueue_notification",
				run: func(ctx context.Context) error {
					return st.Outbox.Enqueue(ctx, notification.NewEvent(notification.SaleProposed, sellerID, buyer.ID, l.ID, t.ID,
						proposalMessage(l.Title, price.StringFixed(2))))
				},
			},
		)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Sale proposed",
		zap.String("transactionID", t.ID.String()),
		zap.String("listingID", l.ID.String()),
		zap.String("buyerID", buyer.ID.String()),
	)
	s.reindex(ctx, l.ID)
	resp := ToTransactionResponse(t, sellerID, l.Title, buyer.Username)
	return &resp, nil
}

// Accept finalizes a pending sale. Only the buyer may accept.
func (s *ServiceImplementation) Accept(ctx context.Context, callerID, transactionID uuid.UUID) (*TransactionResponse, error) {
	t, err := s.transactions.FindByID(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	if t.BuyerID != callerID {
		return nil, common.ErrForbidden.WithDetails("Only the buyer can accept this sale.")
	}
	if t.Status != StatusPending {
		return nil, common.ErrInvalidState.WithDetails("Transaction is no longer pending.")
	}

	title := s.listingTitle(ctx, t.ListingID)
	buyerName := s.username(ctx, t.BuyerID)
	sellerName := s.username(ctx, t.SellerID)

	err = s.uow.WithinTx(ctx, func(ctx context.Context, st Stores) error {
		return runSteps(ctx, s.logger, "accept_sale",
			step{
				name: "complete_transaction",
				run:  func(ctx context.Context) error { return st.Transactions.MarkCompleted(ctx, t.ID) },
			},
			step{
				name: "mark_listing_sold",
				run: func(ctx context.Context) error {
					return st.Listings.TransitionStatus(ctx, t.ListingID, []listing.ListingStatus{listing.StatusPending}, listing.StatusSold)
				},
				translate: func(error) error { return common.ErrPartialFailure },
			},
			step{
				name: "enqueue_notification",
				run: func(ctx context.Context) error {
					return st.Outbox.Enqueue(ctx, notification.NewEvent(notification.SaleAccepted, t.BuyerID, t.SellerID, t.ListingID, t.ID,
						acceptedMessage(buyerName, title, t.AgreedPrice.StringFixed(2))))
				},
			},
		)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Sale accepted", zap.String("transactionID", t.ID.String()), zap.String("listingID", t.ListingID.String()))
	s.reindex(ctx, t.ListingID)
	t.Status = StatusCompleted
	resp := ToTransactionResponse(t, callerID, title, sellerName)
	return &resp, nil
}

// Reject withdraws (seller) or declines (buyer) a pending sale and reactivates the listing.
func (s *ServiceImplementation) Reject(ctx context.Context, callerID, transactionID uuid.UUID) error {
	t, err := s.transactions.FindByID(ctx, transactionID)
	if err != nil {
		return err
	}
	if !t.IsParty(callerID) {
		return common.ErrForbidden.WithDetails("Only the buyer or the seller can reject this sale.")
	}
	if t.Status != StatusPending {
		return common.ErrInvalidState.WithDetails("Transaction is no longer pending.")
	}

	title := s.listingTitle(ctx, t.ListingID)
	var ev *notification.OutboxEvent
	if callerID == t.SellerID {
		ev = notification.NewEvent(notification.SaleCancelled, t.SellerID, t.BuyerID, t.ListingID, t.ID, cancelledMessage(title))
	} else {
		ev = notification.NewEvent(notification.SaleRejected, t.BuyerID, t.SellerID, t.ListingID, t.ID,
			rejectedMessage(s.username(ctx, t.BuyerID), title))
	}

	err = s.uow.WithinTx(ctx, func(ctx context.Context, st Stores) error {
		return runSteps(ctx, s.logger, "reject_sale",
			step{
				name: "reactivate_listing",
				run: func(ctx context.Context) error {
					return st.Listings.TransitionStatus(ctx, t.ListingID, []listing.ListingStatus{listing.StatusPending}, listing.StatusActive)
				},
				translate: func(error) error { return common.ErrReactivationFailed },
			},
			step{
				name: "delete_transaction",
				run:  func(ctx context.Context) error { return st.Transactions.DeletePending(ctx, t.ID) },
			},
			step{
				name: "enqueue_notification",
				run:  func(ctx context.Context) error { return st.Outbox.Enqueue(ctx, ev) },
			},
		)
	})
	if err != nil {
		return err
	}

	s.logger.Info("Sale rejected",
		zap.String("transactionID", t.ID.String()),
		zap.String("listingID", t.ListingID.String()),
		zap.String("by", string(ev.Type)),
	)
	s.reindex(ctx, t.ListingID)
	return nil
}

// Get returns a transaction to one of its parties.
func (s *ServiceImplementation) Get(ctx context.Context, callerID, transactionID uuid.UUID) (*TransactionResponse, error) {
	t, err := s.transactions.FindByID(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	if !t.IsParty(callerID) {
		return nil, common.ErrForbidden.WithDetails("You are not a party to this transaction.")
	}
	resp := ToTransactionResponse(t, callerID, s.listingTitle(ctx, t.ListingID), s.username(ctx, counterpartyOf(t, callerID)))
	return &resp, nil
}

func counterpartyOf(t *Transaction, viewerID uuid.UUID) uuid.UUID {
	if viewerID == t.BuyerID {
		return t.SellerID
	}
	return t.BuyerID
}

// ListForUser returns the caller's purchases, sales or both, newest first.
func (s *ServiceImplementation) ListForUser(ctx context.Context, callerID uuid.UUID, q ListQuery) ([]TransactionResponse, *common.Pagination, error) {
	kind := PartyKind(q.Type)
	if kind == "" {
		kind = KindAll
	}
	items, total, err := s.transactions.ListByParty(ctx, callerID, kind, q.Offset(), q.Limit())
	if err != nil {
		return nil, nil, err
	}

	listingIDs := make([]uuid.UUID, 0, len(items))
	for _, t := range items {
		listingIDs = append(listingIDs, t.ListingID)
	}
	found, err := s.listings.FindByIDs(ctx, listingIDs)
	if err != nil {
		return nil, nil, err
	}
	titles := make(map[uuid.UUID]string, len(found))
	for _, l := range found {
		titles[l.ID] = l.Title
	}

	names := map[uuid.UUID]string{}
	out := make([]TransactionResponse, 0, len(items))
	for i := range items {
		other := counterpartyOf(&items[i], callerID)
		name, ok := names[other]
		if !ok {
			name = s.username(ctx, other)
			names[other] = name
		}
		out = append(out, ToTransactionResponse(&items[i], callerID, titles[items[i].ListingID], name))
	}
	return out, common.NewPagination(total, q.Page, q.Limit()), nil
}

func (s *ServiceImplementation) listingTitle(ctx context.Context, id uuid.UUID) string {
	l, err := s.listings.FindByID(ctx, id)
	if err != nil {
		s.logger.Warn("Failed to load listing for transaction", zap.Error(err), zap.String("listingID", id.String()))
		return ""
	}
	return l.Title
}

func (s *ServiceImplementation) username(ctx context.Context, id uuid.UUID) string {
	u, err := s.users.GetUserByID(ctx, id)
	if err != nil {
		s.logger.Warn("Failed to resolve username", zap.Error(err), zap.String("userID", id.String()))
		return ""
	}
	return u.Username
}

func (s *ServiceImplementation) reindex(ctx context.Context, listingID uuid.UUID) {
	if s.index != nil {
		s.index.SyncIndex(ctx, listingID)
	}
}
