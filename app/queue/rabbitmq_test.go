package queue

import (
	"context"
	"errors"
	"testing"
	"time"

	"inkwell/app/logger"
	"inkwell/app/models"

	"github.com/goccy/go-json"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeChannel struct {
	exchange, key string
	msg           amqp.Publishing
	err           error
}

func (f *fakeChannel) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	f.exchange, f.key, f.msg = exchange, key, msg
	return f.err
}

func TestNotifyPending(t *testing.T) {
	ch := &fakeChannel{}
	c := &Client{channel: ch, logger: logger.Discard()}

	created := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	comment := &models.Comment{
		ID:        "c1",
		CreatedAt: created,
		Post:      models.Reference{Ref: "p1"},
		Name:      "Ann",
		Email:     "ann@example.com",
		Comment:   "Hi",
	}
	require.NoError(t, c.NotifyPending(context.Background(), comment))

	assert.Equal(t, ModerationExchange, ch.exchange)
	assert.Equal(t, PendingRoutingKey, ch.key)
	assert.Equal(t, amqp.Persistent, ch.msg.DeliveryMode)
	assert.Equal(t, "c1", ch.msg.MessageId)

	var event PendingComment
	require.NoError(t, json.Unmarshal(ch.msg.Body, &event))
	assert.Equal(t, "p1", event.PostID)
	assert.True(t, created.Equal(event.CreatedAt))
}

func TestNotifyPendingError(t *testing.T) {
	c := &Client{channel: &fakeChannel{err: errors.New("channel closed")}, logger: logger.Discard()}
	err := c.NotifyPending(context.Background(), &models.Comment{ID: "c1"})
	assert.ErrorContains(t, err, "channel closed")
	assert.NoError(t, c.Close())
}

func TestNoopNotifier(t *testing.T) {
	var n Notifier = NoopNotifier{}
	assert.NoError(t, n.NotifyPending(context.Background(), &models.Comment{}))
	assert.NoError(t, n.Close())
}
