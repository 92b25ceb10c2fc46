package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"gatortrader_backend/internal/common"
	"gatortrader_backend/internal/notification"
	"gatortrader_backend/internal/platform/database/dbtest"
	"gatortrader_backend/internal/shared"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type stubUsers map[uuid.UUID]*shared.User

func (s stubUsers) GetUserByID(_ context.Context, id uuid.UUID) (*shared.User, error) {
	if u, ok := s[id]; ok {
		return u, nil
	}
	return nil, common.ErrNotFound
}

func (s stubUsers) GetUserByUsername(context.Context, string) (*shared.User, error) {
	return nil, common.ErrNotFound
}

func (s stubUsers) GetUserByFirebaseUID(context.Context, string) (*shared.User, error) {
	return nil, common.ErrNotFound
}

type MockChannel struct {
	mock.Mock
}

func (m *MockChannel) Name() string { return "mock" }

func (m *MockChannel) SendMessage(ctx context.Context, from, to notification.ChannelUser, text string) error {
	return m.Called(ctx, from, to, text).Error(0)
}

type DispatcherSuite struct {
	suite.Suite
	ctx     context.Context
	db      *gorm.DB
	outbox  notification.Outbox
	inbox   *notification.ServiceImplementation
	channel *MockChannel
	users   stubUsers
	now     time.Time
	d       *NotificationDispatcher

	seller, buyer *shared.User
}

func TestDispatcherSuite(t *testing.T) {
	suite.Run(t, new(DispatcherSuite))
}

func (s *DispatcherSuite) SetupTest() {
	s.ctx = context.Background()
	s.db = dbtest.New(s.T(), &notification.Notification{}, &notification.OutboxEvent{})
	s.outbox = notification.NewGORMOutbox(s.db)
	s.inbox = notification.NewService(notification.NewGORMRepository(s.db), zap.NewNop())
	s.channel = new(MockChannel)
	s.seller = &shared.User{ID: uuid.New(), Username: "alice", Email: "alice@ufl.edu"}
	s.buyer = &shared.User{ID: uuid.New(), Username: "bob99", Email: "bob99@ufl.edu", ProfilePictureURL: "http://cdn/bob.png"}
	s.users = stubUsers{s.seller.ID: s.seller, s.buyer.ID: s.buyer}
	s.now = time.Now().UTC()

	s.d = NewNotificationDispatcher(s.outbox, s.inbox, s.users, s.channel, NewLocalLease(), DispatchConfig{
		BatchSize:   10,
		MaxAttempts: 3,
		BaseBackoff: 30 * time.Second,
		MaxBackoff:  time.Hour,
		ClaimLease:  time.Minute,
		RunTimeout:  time.Minute,
	}, zap.NewNop())
	s.d.now = func() time.Time { return s.now }
}

func (s *DispatcherSuite) enqueue(to uuid.UUID) *notification.OutboxEvent {
	ev := notification.NewEvent(notification.SaleProposed, s.seller.ID, to, uuid.New(), uuid.New(), "hello")
	ev.NextAttemptAt = s.now.Add(-time.Second)
	s.Require().NoError(s.outbox.Enqueue(s.ctx, ev))
	return ev
}

func (s *DispatcherSuite) reload(id uuid.UUID) notification.OutboxEvent {
	var ev notification.OutboxEvent
	s.Require().NoError(s.db.First(&ev, "id = ?", id).Error)
	return ev
}

func (s *DispatcherSuite) TestDeliversAndRecordsInApp() {
	ev := s.enqueue(s.buyer.ID)
	s.channel.On("SendMessage", mock.Anything,
		notification.ChannelUser{ID: s.seller.ID, Username: "alice", Email: "alice@ufl.edu"},
		notification.ChannelUser{ID: s.buyer.ID, Username: "bob99", Email: "bob99@ufl.edu", PhotoURL: "http://cdn/bob.png"},
		"hello",
	).Return(nil).Once()

	stats, err := s.d.RunOnce(s.ctx)
	s.Require().NoError(err)
	s.Equal(DispatchStats{Claimed: 1, Delivered: 1}, stats)
	s.Equal(notification.EventDelivered, s.reload(ev.ID).Status)

	items, _, err := s.inbox.GetNotificationsForUser(s.ctx, s.buyer.ID, 1, 10)
	s.Require().NoError(err)
	s.Require().Len(items, 1)
	s.Equal(ev.ID, items[0].ID)

	stats, err = s.d.RunOnce(s.ctx)
	s.Require().NoError(err)
	s.Zero(stats.Claimed, "delivered events are not claimed again")
	s.channel.AssertExpectations(s.T())
}

func (s *DispatcherSuite) TestChannelFailureIsRetriedWithBackoff() {
	ev := s.enqueue(s.buyer.ID)
	s.channel.On("SendMessage", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(errors.New("503")).Once()

	stats, err := s.d.RunOnce(s.ctx)
	s.Require().NoError(err)
	s.Equal(1, stats.Retried)

	got := s.reload(ev.ID)
	s.Equal(notification.EventQueued, got.Status)
	s.Equal(1, got.Attempts)
	s.Contains(got.LastError, "503")
	s.WithinDuration(s.now.Add(30*time.Second), got.NextAttemptAt, time.Second)

	// The retry does not duplicate the in-app notification.
	s.now = s.now.Add(31 * time.Second)
	s.channel.On("SendMessage", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil).Once()
	stats, err = s.d.RunOnce(s.ctx)
	s.Require().NoError(err)
	s.Equal(1, stats.Delivered)

	count, err := s.inbox.UnreadCount(s.ctx, s.buyer.ID)
	s.Require().NoError(err)
	s.Equal(int64(1), count)
}

func (s *DispatcherSuite) TestGivesUpAfterMaxAttempts() {
	ev := s.enqueue(s.buyer.ID)
	s.Require().NoError(s.outbox.MarkFailed(s.ctx, ev.ID, 2, s.now.Add(-time.Second), "earlier", false))
	s.channel.On("SendMessage", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(errors.New("still down")).Once()

	stats, err := s.d.RunOnce(s.ctx)
	s.Require().NoError(err)
	s.Equal(1, stats.Dead)
	s.Equal(notification.EventDead, s.reload(ev.ID).Status)
}

func (s *DispatcherSuite) TestMissingRecipientIsDeadImmediately() {
	ev := s.enqueue(uuid.New())

	stats, err := s.d.RunOnce(s.ctx)
	s.Require().NoError(err)
	s.Equal(1, stats.Dead)
	s.Equal(notification.EventDead, s.reload(ev.ID).Status)
	s.channel.AssertNotCalled(s.T(), "SendMessage", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func (s *DispatcherSuite) TestInAppOnlySkipsUserLookup() {
	s.d.channel = notification.InAppOnly{}
	ev := s.enqueue(uuid.New())

	stats, err := s.d.RunOnce(s.ctx)
	s.Require().NoError(err)
	s.Equal(1, stats.Delivered)
	s.Equal(notification.EventDelivered, s.reload(ev.ID).Status)
}

func (s *DispatcherSuite) TestBackoffIsCapped() {
	s.Equal(30*time.Second, s.d.backoff(1))
	s.Equal(60*time.Second, s.d.backoff(2))
	s.Equal(time.Hour, s.d.backoff(20))
}

func TestLocalLease(t *testing.T) {
	l := NewLocalLease()
	ctx := context.Background()

	release, ok, err := l.Acquire(ctx, "k", time.Minute)
	if err != nil || !ok {
		t.Fatalf("first acquire: ok=%v err=%v", ok, err)
	}
	if _, ok, _ := l.Acquire(ctx, "k", time.Minute); ok {
		t.Fatal("second acquire should fail while held")
	}
	release()
	release()
	if _, ok, _ := l.Acquire(ctx, "k", time.Minute); !ok {
		t.Fatal("acquire after release should succeed")
	}
}
