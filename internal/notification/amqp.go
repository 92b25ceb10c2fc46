package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// MessageEnvelope is the JSON body published for each message.
type MessageEnvelope struct {
	ID           string    `json:"id"`
	FromID       string    `json:"from_id"`
	FromUsername string    `json:"from_username"`
	ToID         string    `json:"to_id"`
	ToUsername   string    `json:"to_username"`
	ToEmail      string    `json:"to_email,omitempty"`
	Text         string    `json:"text"`
	SentAt       time.Time `json:"sent_at"`
}

// AMQPChannel publishes messages to a durable RabbitMQ queue for an external mailer or chat bridge.
type AMQPChannel struct {
	mu     sync.Mutex
	conn   *amqp.Connection
	ch     *amqp.Channel
	queue  string
	logger *zap.Logger
}

// DialAMQPChannel connects and declares queue.
func DialAMQPChannel(url, queue string, logger *zap.Logger) (*AMQPChannel, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("rabbitmq dial: %w", err)
	}
	c := &AMQPChannel{conn: conn, queue: queue, logger: logger.Named("amqp")}
	if err := c.openChannel(); err != nil {
		_ = conn.Close()
		return nil, err
	}
	c.logger.Info("Connected to RabbitMQ", zap.String("queue", queue))
	return c, nil
}

func (c *AMQPChannel) openChannel() error {
	ch, err := c.conn.Channel()
	if err != nil {
		return fmt.Errorf("rabbitmq channel open: %w", err)
	}
	if _, err := ch.QueueDeclare(c.queue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		return fmt.Errorf("rabbitmq queue declare: %w", err)
	}
	c.ch = ch
	return nil
}

func (c *AMQPChannel) Name() string { return "rabbitmq" }

// SendMessage publishes a persistent message. A closed channel is reopened once.
func (c *AMQPChannel) SendMessage(ctx context.Context, from, to ChannelUser, text string) error {
	body, err := json.Marshal(MessageEnvelope{
		ID:           uuid.NewString(),
		FromID:       from.ID.String(),
		FromUsername: from.Username,
		ToID:         to.ID.String(),
		ToUsername:   to.Username,
		ToEmail:      to.Email,
		Text:         text,
		SentAt:       time.Now().UTC(),
	})
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ch == nil || c.ch.IsClosed() {
		if c.conn.IsClosed() {
			return fmt.Errorf("rabbitmq connection is closed")
		}
		if err := c.openChannel(); err != nil {
			return err
		}
	}

	err = c.ch.PublishWithContext(ctx, "", c.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("rabbitmq publish: %w", err)
	}
	return nil
}

// Close releases the channel and connection.
func (c *AMQPChannel) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ch != nil {
		_ = c.ch.Close()
	}
	if err := c.conn.Close(); err != nil {
		c.logger.Warn("Error closing RabbitMQ connection", zap.Error(err))
	}
}
