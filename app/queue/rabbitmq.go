// Package queue announces new comments to moderators over RabbitMQ.
package queue

import (
	"context"
	"fmt"
	"time"

	"inkwell/app/logger"
	"inkwell/app/models"

	"github.com/goccy/go-json"
	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	ModerationExchange  = "moderation"
	ModerationQueueName = "comment_moderation"
	PendingRoutingKey   = "comment.pending"
)

// Notifier announces comments awaiting approval.
type Notifier interface {
	NotifyPending(ctx context.Context, comment *models.Comment) error
	Close() error
}

// PendingComment is the message body published for each new comment.
type PendingComment struct {
	CommentID string    `json:"commentId"`
	PostID    string    `json:"postId"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"createdAt"`
}

type publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

type Client struct {
	conn    *amqp.Connection
	channel publisher
	closer  func() error
	logger  *logger.Logger
}

// NewRabbitMQClient connects and declares the moderation topology.
func NewRabbitMQClient(url string, log *logger.Logger) (*Client, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	err = channel.ExchangeDeclare(
		ModerationExchange, // name
		"direct",           // type
		true,               // durable
		false,              // auto-deleted
		false,              // internal
		false,              // no-wait
		nil,                // arguments
	)
	if err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	_, err = channel.QueueDeclare(
		ModerationQueueName, // name
		true,                // durable
		false,               // delete when unused
		false,               // exclusive
		false,               // no-wait
		nil,                 // arguments
	)
	if err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare queue: %w", err)
	}

	err = channel.QueueBind(ModerationQueueName, PendingRoutingKey, ModerationExchange, false, nil)
	if err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to bind queue: %w", err)
	}

	log.Info("Connected to RabbitMQ, publishing to exchange=%s", ModerationExchange)

	return &Client{
		conn:    conn,
		channel: channel,
		closer:  channel.Close,
		logger:  log,
	}, nil
}

func (c *Client) Close() error {
	if c.closer != nil {
		c.closer()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// NotifyPending publishes a persistent comment.pending message.
func (c *Client) NotifyPending(ctx context.Context, comment *models.Comment) error {
	body, err := json.Marshal(PendingComment{
		CommentID: comment.ID,
		PostID:    comment.Post.Ref,
		Name:      comment.Name,
		Email:     comment.Email,
		Comment:   comment.Comment,
		CreatedAt: comment.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	err = c.channel.PublishWithContext(ctx,
		ModerationExchange, // exchange
		PendingRoutingKey,  // routing key
		false,              // mandatory
		false,              // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
			MessageId:    comment.ID,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}

	c.logger.Debug("[RABBITMQ] published %s for comment %s", PendingRoutingKey, comment.ID)
	return nil
}

// NoopNotifier is used when no broker is configured.
type NoopNotifier struct{}

func (NoopNotifier) NotifyPending(context.Context, *models.Comment) error { return nil }

func (NoopNotifier) Close() error { return nil }
