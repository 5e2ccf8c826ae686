package queue

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/streadway/amqp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unclebandit/reengage-backend/internal/model"
)

type fakeMessage struct {
	acked   bool
	nacked  bool
	requeue bool
}

func (m *fakeMessage) Ack(bool) error { m.acked = true; return nil }

func (m *fakeMessage) Nack(_, requeue bool) error {
	m.nacked = true
	m.requeue = requeue
	return nil
}

func discard() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

func body(t *testing.T) []byte {
	t.Helper()
	b, err := json.Marshal(Delivery{NotificationID: "n1", Email: "diana@example.com", Channel: model.ChannelEmail})
	require.NoError(t, err)
	return b
}

func TestProcessAcksOnSuccess(t *testing.T) {
	m := &fakeMessage{}
	var got Delivery
	Process(context.Background(), m, body(t), false, func(_ context.Context, d Delivery) error {
		got = d
		return nil
	}, discard())

	assert.True(t, m.acked)
	assert.False(t, m.nacked)
	assert.Equal(t, "n1", got.NotificationID)
	assert.Equal(t, model.ChannelEmail, got.Channel)
}

func TestProcessDropsMalformedPayload(t *testing.T) {
	m := &fakeMessage{}
	called := false
	Process(context.Background(), m, []byte("{not json"), false, func(context.Context, Delivery) error {
		called = true
		return nil
	}, discard())

	assert.False(t, called)
	assert.True(t, m.nacked)
	assert.False(t, m.requeue)
}

func TestProcessRequeuesFirstFailureOnly(t *testing.T) {
	fail := func(context.Context, Delivery) error { return errors.New("provider down") }

	first := &fakeMessage{}
	Process(context.Background(), first, body(t), false, fail, discard())
	assert.True(t, first.nacked)
	assert.True(t, first.requeue)

	again := &fakeMessage{}
	Process(context.Background(), again, body(t), true, fail, discard())
	assert.True(t, again.nacked)
	assert.False(t, again.requeue)
}

func TestLogPublisherRedactsEmail(t *testing.T) {
	var buf bytes.Buffer
	l := logrus.New()
	l.SetOutput(&buf)
	l.SetFormatter(&logrus.JSONFormatter{})

	p := &LogPublisher{Log: logrus.NewEntry(l)}
	require.NoError(t, p.Publish(context.Background(), Delivery{
		CampaignID: "c1",
		Email:      "diana@example.com",
		Subject:    "We miss you!",
	}))

	assert.Contains(t, buf.String(), "di***@example.com")
	assert.NotContains(t, buf.String(), "diana@example.com")
	assert.Contains(t, buf.String(), "We miss you!")
}

type fakeChannel struct {
	published []amqp.Publishing
	err       error
}

func (c *fakeChannel) Publish(_, _ string, _, _ bool, msg amqp.Publishing) error {
	if c.err != nil {
		return c.err
	}
	c.published = append(c.published, msg)
	return nil
}

// fakeBroker hands out sessions and lets tests drop the current one.
type fakeBroker struct {
	opened   []*fakeChannel
	closes   []chan *amqp.Error
	shutdown int
	dialErr  error
}

func (b *fakeBroker) open() (*amqpSession, error) {
	if b.dialErr != nil {
		return nil, b.dialErr
	}
	ch := &fakeChannel{}
	closed := make(chan *amqp.Error, 1)
	b.opened = append(b.opened, ch)
	b.closes = append(b.closes, closed)
	return &amqpSession{
		ch:     ch,
		closed: closed,
		close:  func() error { b.shutdown++; return nil },
	}, nil
}

func newTestPublisher(t *testing.T, b *fakeBroker) *AMQPPublisher {
	t.Helper()
	p := &AMQPPublisher{queue: "campaign_deliveries", open: b.open}
	s, err := b.open()
	require.NoError(t, err)
	p.session = s
	return p
}

func TestAMQPPublisher_Publish(t *testing.T) {
	b := &fakeBroker{}
	p := newTestPublisher(t, b)

	d := Delivery{NotificationID: "n-1", Email: "jane@example.com", Channel: model.ChannelEmail}
	require.NoError(t, p.Publish(context.Background(), d))

	require.Len(t, b.opened[0].published, 1)
	msg := b.opened[0].published[0]
	assert.Equal(t, "n-1", msg.MessageId)
	assert.Equal(t, amqp.Persistent, msg.DeliveryMode)
	var got Delivery
	require.NoError(t, json.Unmarshal(msg.Body, &got))
	assert.Equal(t, "jane@example.com", got.Email)
}

func TestAMQPPublisher_ReopensAfterChannelClose(t *testing.T) {
	b := &fakeBroker{}
	p := newTestPublisher(t, b)

	b.closes[0] <- &amqp.Error{Code: amqp.ConnectionForced, Reason: "broker restart"}

	require.NoError(t, p.Publish(context.Background(), Delivery{NotificationID: "n-1"}))
	require.Len(t, b.opened, 2)
	assert.Empty(t, b.opened[0].published)
	assert.Len(t, b.opened[1].published, 1)
	assert.Equal(t, 1, b.shutdown)
}

func TestAMQPPublisher_RetriesOnErrClosed(t *testing.T) {
	b := &fakeBroker{}
	p := newTestPublisher(t, b)
	// Closed before the notification arrived.
	b.opened[0].err = amqp.ErrClosed

	require.NoError(t, p.Publish(context.Background(), Delivery{NotificationID: "n-1"}))
	require.Len(t, b.opened, 2)
	assert.Len(t, b.opened[1].published, 1)
}

func TestAMQPPublisher_ReconnectFailure(t *testing.T) {
	b := &fakeBroker{}
	p := newTestPublisher(t, b)
	b.closes[0] <- nil
	b.dialErr = errors.New("connection refused")

	err := p.Publish(context.Background(), Delivery{NotificationID: "n-1"})
	require.Error(t, err)

	// Once the broker is back the next publish goes through.
	b.dialErr = nil
	require.NoError(t, p.Publish(context.Background(), Delivery{NotificationID: "n-2"}))
	assert.Len(t, b.opened[len(b.opened)-1].published, 1)
}

func TestAMQPPublisher_OtherErrorsReturned(t *testing.T) {
	b := &fakeBroker{}
	p := newTestPublisher(t, b)
	b.opened[0].err = errors.New("frame too large")

	err := p.Publish(context.Background(), Delivery{NotificationID: "n-1"})
	require.Error(t, err)
	assert.Len(t, b.opened, 1)
}
