package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gatortrader_backend/internal/common"
	"gatortrader_backend/internal/config"
	"gatortrader_backend/internal/notification"
	"gatortrader_backend/internal/shared"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const dispatchLeaseKey = "gatortrader:lease:notification-dispatch"

// InAppRecorder stores the in-app copy of an outbox event.
type InAppRecorder interface {
	RecordEvent(ctx context.Context, ev *notification.OutboxEvent) error
}

// DispatchConfig tunes delivery and retry.
type DispatchConfig struct {
	Schedule    string
	BatchSize   int
	MaxAttempts int
	BaseBackoff time.Duration
	MaxBackoff  time.Duration
	// ClaimLease is how long a claimed event stays invisible to other runs.
	ClaimLease time.Duration
	RunTimeout time.Duration
}

// DispatchConfigFrom reads the dispatcher settings from cfg.
func DispatchConfigFrom(cfg *config.Config) DispatchConfig {
	return DispatchConfig{
		Schedule:    cfg.NotificationDispatchSchedule,
		BatchSize:   cfg.NotificationDispatchBatch,
		MaxAttempts: cfg.NotificationMaxAttempts,
		BaseBackoff: 30 * time.Second,
		MaxBackoff:  time.Hour,
		ClaimLease:  5 * time.Minute,
		RunTimeout:  2 * time.Minute,
	}
}

// DispatchStats summarizes one run.
type DispatchStats struct {
	Claimed   int
	Delivered int
	Retried   int
	Dead      int
}

// NotificationDispatcher drains the notification outbox on a cron schedule.
type NotificationDispatcher struct {
	outbox    notification.Outbox
	inbox     InAppRecorder
	users     shared.Service
	channel   notification.Channel
	lease     Lease
	cfg       DispatchConfig
	logger    *zap.Logger
	scheduler *cron.Cron
	now       func() time.Time
}

func NewNotificationDispatcher(
	outbox notification.Outbox,
	inbox InAppRecorder,
	users shared.Service,
	channel notification.Channel,
	lease Lease,
	cfg DispatchConfig,
	logger *zap.Logger,
) *NotificationDispatcher {
	named := logger.Named("NotificationDispatcher")
	cl := NewCronLogger(logger.Named("cron"))
	return &NotificationDispatcher{
		outbox:    outbox,
		inbox:     inbox,
		users:     users,
		channel:   channel,
		lease:     lease,
		cfg:       cfg,
		logger:    named,
		scheduler: cron.New(cron.WithLogger(cl), cron.WithChain(cron.SkipIfStillRunning(cl))),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// SetupAndStart schedules the dispatcher and starts the scheduler in the background.
func (d *NotificationDispatcher) SetupAndStart() error {
	if d.cfg.Schedule == "" {
		d.logger.Warn("NOTIFICATION_DISPATCH_SCHEDULE is empty. Notifications will stay queued.")
		return nil
	}
	id, err := d.scheduler.AddFunc(d.cfg.Schedule, d.runJob)
	if err != nil {
		d.logger.Error("Failed to schedule notification dispatch", zap.String("schedule", d.cfg.Schedule), zap.Error(err))
		return err
	}
	d.logger.Info("Notification dispatch scheduled",
		zap.String("schedule", d.cfg.Schedule),
		zap.Any("jobID", id),
		zap.String("channel", d.channel.Name()),
	)
	d.scheduler.Start()
	return nil
}

// Stop waits for a running dispatch to finish, up to ten seconds.
func (d *NotificationDispatcher) Stop() {
	stopCtx := d.scheduler.Stop()
	select {
	case <-stopCtx.Done():
		d.logger.Info("Notification dispatcher stopped gracefully.")
	case <-time.After(10 * time.Second):
		d.logger.Warn("Notification dispatcher stop timed out.")
	}
}

func (d *NotificationDispatcher) runJob() {
	ctx, cancel := context.WithTimeout(context.Background(), d.cfg.RunTimeout)
	defer cancel()

	release, ok, err := d.lease.Acquire(ctx, dispatchLeaseKey, d.cfg.RunTimeout)
	if err != nil {
		d.logger.Error("Could not acquire dispatch lease", zap.Error(err))
		return
	}
	if !ok {
		d.logger.Debug("Another instance holds the dispatch lease; skipping run.")
		return
	}
	defer release()

	stats, err := d.RunOnce(ctx)
	if err != nil {
		d.logger.Error("Notification dispatch run failed", zap.Error(err))
		return
	}
	if stats.Claimed > 0 {
		d.logger.Info("Notification dispatch run completed",
			zap.Int("claimed", stats.Claimed),
			zap.Int("delivered", stats.Delivered),
			zap.Int("retried", stats.Retried),
			zap.Int("dead", stats.Dead),
		)
	}
}

// RunOnce claims one batch of due events and attempts each of them.
func (d *NotificationDispatcher) RunOnce(ctx context.Context) (DispatchStats, error) {
	var stats DispatchStats
	events, err := d.outbox.ClaimDue(ctx, d.now(), d.cfg.BatchSize, d.cfg.ClaimLease)
	if err != nil {
		return stats, err
	}
	stats.Claimed = len(events)

	for i := range events {
		ev := &events[i]
		deliverErr := d.deliver(ctx, ev)
		if deliverErr == nil {
			if err := d.outbox.MarkDelivered(ctx, ev.ID, d.now()); err != nil {
				d.logger.Error("Delivered event could not be marked", zap.String("eventID", ev.ID.String()), zap.Error(err))
			}
			stats.Delivered++
			continue
		}

		attempts := ev.Attempts + 1
		dead := attempts >= d.cfg.MaxAttempts || errors.Is(deliverErr, errPermanent)
		next := d.now().Add(d.backoff(attempts))
		if err := d.outbox.MarkFailed(ctx, ev.ID, attempts, next, deliverErr.Error(), dead); err != nil {
			d.logger.Error("Failed attempt could not be recorded", zap.String("eventID", ev.ID.String()), zap.Error(err))
		}
		if dead {
			stats.Dead++
			d.logger.Error("Notification event abandoned",
				zap.String("eventID", ev.ID.String()),
				zap.String("type", string(ev.Type)),
				zap.Int("attempts", attempts),
				zap.Error(deliverErr),
			)
			continue
		}
		stats.Retried++
		d.logger.Warn("Notification delivery failed; will retry",
			zap.String("eventID", ev.ID.String()),
			zap.Int("attempts", attempts),
			zap.Time("nextAttemptAt", next),
			zap.Error(deliverErr),
		)
	}
	return stats, nil
}

var errPermanent = errors.New("permanent delivery failure")

func (d *NotificationDispatcher) deliver(ctx context.Context, ev *notification.OutboxEvent) error {
	if err := d.inbox.RecordEvent(ctx, ev); err != nil {
		return fmt.Errorf("record in-app notification: %w", err)
	}
	if _, inAppOnly := d.channel.(notification.InAppOnly); inAppOnly {
		return nil
	}

	from, err := d.channelUser(ctx, ev.FromUserID)
	if err != nil {
		return err
	}
	to, err := d.channelUser(ctx, ev.ToUserID)
	if err != nil {
		return err
	}
	if err := d.channel.SendMessage(ctx, from, to, ev.Message); err != nil {
		return fmt.Errorf("%s: %w", d.channel.Name(), err)
	}
	return nil
}

func (d *NotificationDispatcher) channelUser(ctx context.Context, id uuid.UUID) (notification.ChannelUser, error) {
	u, err := d.users.GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return notification.ChannelUser{}, fmt.Errorf("%w: user %s no longer exists", errPermanent, id)
		}
		return notification.ChannelUser{}, fmt.Errorf("load user %s: %w", id, err)
	}
	return notification.ChannelUser{
		ID:       u.ID,
		Username: u.Username,
		Email:    u.Email,
		PhotoURL: u.ProfilePictureURL,
	}, nil
}

// backoff doubles from BaseBackoff per attempt, capped at MaxBackoff.
func (d *NotificationDispatcher) backoff(attempts int) time.Duration {
	wait := d.cfg.BaseBackoff
	for i := 1; i < attempts; i++ {
		wait *= 2
		if wait >= d.cfg.MaxBackoff {
			return d.cfg.MaxBackoff
		}
	}
	return wait
}
