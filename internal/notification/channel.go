package notification

import (
	"context"
	"fmt"

	"gatortrader_backend/internal/config"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ChannelUser is a participant as seen by an outbound messaging channel.
type ChannelUser struct {
	ID       uuid.UUID
	Username string
	Email    string
	PhotoURL string
}

// Channel delivers a message from one user to another outside the application.
type Channel interface {
	Name() string
	SendMessage(ctx context.Context, from, to ChannelUser, text string) error
}

// InAppOnly delivers nothing beyond the in-app notification the dispatcher always records.
type InAppOnly struct{}

func (InAppOnly) Name() string { return config.NotificationChannelInApp }

func (InAppOnly) SendMessage(context.Context, ChannelUser, ChannelUser, string) error { return nil }

// NewChannel builds the channel selected by NOTIFICATION_CHANNEL. The cleanup func releases
// any connection the channel holds.
func NewChannel(cfg *config.Config, logger *zap.Logger) (Channel, func(), error) {
	switch cfg.NotificationChannel {
	case config.NotificationChannelTalkJS:
		return NewTalkJSChannel(cfg.TalkJSBaseURL, cfg.TalkJSAppID, cfg.TalkJSSecretKey, nil, logger), func() {}, nil
	case config.NotificationChannelRabbitMQ:
		ch, err := DialAMQPChannel(cfg.AMQPURL, cfg.NotificationQueue, logger)
		if err != nil {
			return nil, nil, err
		}
		return ch, func() { ch.Close() }, nil
	case config.NotificationChannelInApp, "":
		return InAppOnly{}, func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unsupported notification channel %q", cfg.NotificationChannel)
	}
}
