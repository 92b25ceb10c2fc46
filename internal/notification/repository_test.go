package notification

import (
	"context"
	"testing"
	"time"

	"gatortrader_backend/internal/platform/database/dbtest"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGORMRepository_CreateIsIdempotentByID(t *testing.T) {
	repo := NewGORMRepository(dbtest.New(t, &Notification{}))
	ctx := context.Background()
	user := uuid.New()
	id := uuid.New()

	require.NoError(t, repo.Create(ctx, &Notification{ID: id, UserID: user, Type: SaleAccepted, Message: "first"}))
	require.NoError(t, repo.Create(ctx, &Notification{ID: id, UserID: user, Type: SaleAccepted, Message: "second"}))

	items, p, err := repo.GetByUserID(ctx, user, 1, 10)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "first", items[0].Message)
	assert.Equal(t, int64(1), p.TotalItems)

	unread, err := repo.CountUnread(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, int64(1), unread)

	require.NoError(t, repo.MarkAsRead(ctx, id, user))
	require.NoError(t, repo.MarkAsRead(ctx, id, user), "marking twice is fine")
	assert.Error(t, repo.MarkAsRead(ctx, id, uuid.New()), "other users cannot mark it")
}

func TestGORMOutbox_ClaimDeliverAndFail(t *testing.T) {
	outbox := NewGORMOutbox(dbtest.New(t, &OutboxEvent{}))
	ctx := context.Background()
	now := time.Now().UTC()

	due := NewEvent(SaleProposed, uuid.New(), uuid.New(), uuid.New(), uuid.New(), "due")
	due.NextAttemptAt = now.Add(-time.Minute)
	later := NewEvent(SaleProposed, uuid.New(), uuid.New(), uuid.New(), uuid.New(), "later")
	later.NextAttemptAt = now.Add(time.Hour)
	require.NoError(t, outbox.Enqueue(ctx, due))
	require.NoError(t, outbox.Enqueue(ctx, later))

	claimed, err := outbox.ClaimDue(ctx, now, 10, 5*time.Minute)
	require.NoError(t, err)
	require.Len(t, claimed, 1)
	assert.Equal(t, due.ID, claimed[0].ID)

	again, err := outbox.ClaimDue(ctx, now, 10, 5*time.Minute)
	require.NoError(t, err)
	assert.Empty(t, again, "a claimed event is leased")

	require.NoError(t, outbox.MarkFailed(ctx, due.ID, 1, now.Add(-time.Second), "boom", false))
	retry, err := outbox.ClaimDue(ctx, now, 10, time.Minute)
	require.NoError(t, err)
	require.Len(t, retry, 1)
	assert.Equal(t, 1, retry[0].Attempts)
	assert.Equal(t, "boom", retry[0].LastError)

	require.NoError(t, outbox.MarkDelivered(ctx, due.ID, now))
	done, err := outbox.ClaimDue(ctx, now.Add(2*time.Hour), 10, time.Minute)
	require.NoError(t, err)
	require.Len(t, done, 1, "only the later event remains queued")
	assert.Equal(t, later.ID, done[0].ID)
}
