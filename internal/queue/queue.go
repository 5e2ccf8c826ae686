package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/streadway/amqp"

	"github.com/unclebandit/reengage-backend/internal/logger"
	"github.com/unclebandit/reengage-backend/internal/model"
)

// Delivery is the hand-off to the external mail/push provider for one
// recorded notification.
type Delivery struct {
	NotificationID string        `json:"notificationId"`
	CampaignID     string        `json:"campaignId"`
	UserID         string        `json:"userId"`
	Email          string        `json:"email"`
	Name           string        `json:"name"`
	PushToken      string        `json:"pushToken,omitempty"`
	Channel        model.Channel `json:"channel"`
	Subject        string        `json:"subject"`
	Content        string        `json:"content"`
	SentAt         time.Time     `json:"sentAt"`
}

// Publisher hands deliveries to whatever performs the actual send.
type Publisher interface {
	Publish(ctx context.Context, d Delivery) error
}

// LogPublisher only logs deliveries. Used when no broker is configured.
type LogPublisher struct {
	Log *logrus.Entry
}

func (p *LogPublisher) Publish(_ context.Context, d Delivery) error {
	p.Log.WithFields(logrus.Fields{
		"campaign_id":     d.CampaignID,
		"notification_id": d.NotificationID,
		"channel":         d.Channel,
		"email":           logger.RedactEmail(d.Email),
	}).Infof("delivery: %s", d.Subject)
	return nil
}

// amqpChannel is the part of *amqp.Channel the publisher uses.
type amqpChannel interface {
	Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// amqpSession is one open connection and channel. closed fires when the
// broker or the client tears the channel down.
type amqpSession struct {
	ch     amqpChannel
	closed <-chan *amqp.Error
	close  func() error
}

func (s *amqpSession) alive() bool {
	select {
	case <-s.closed:
		return false
	default:
		return true
	}
}

// AMQPPublisher publishes deliveries as persistent JSON messages to a durable
// queue. A session lost to a broker restart or channel exception is re-opened
// on the next publish.
type AMQPPublisher struct {
	mu      sync.Mutex
	queue   string
	open    func() (*amqpSession, error)
	session *amqpSession
}

func NewAMQPPublisher(url, queue string) (*AMQPPublisher, error) {
	p := &AMQPPublisher{
		queue: queue,
		open:  func() (*amqpSession, error) { return dialSession(url, queue) },
	}
	s, err := p.open()
	if err != nil {
		return nil, err
	}
	p.session = s
	return p, nil
}

func dialSession(url, queue string) (*amqpSession, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("connect to RabbitMQ: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if _, err := Declare(ch, queue); err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}
	// Channels are also closed when their connection drops.
	closed := ch.NotifyClose(make(chan *amqp.Error, 1))
	return &amqpSession{
		ch:     ch,
		closed: closed,
		close: func() error {
			ch.Close()
			return conn.Close()
		},
	}, nil
}

// Declare declares the durable delivery queue.
func Declare(ch *amqp.Channel, queue string) (amqp.Queue, error) {
	q, err := ch.QueueDeclare(
		queue,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		return q, fmt.Errorf("declare queue %s: %w", queue, err)
	}
	return q, nil
}

func (p *AMQPPublisher) Publish(_ context.Context, d Delivery) error {
	body, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("encode delivery: %w", err)
	}
	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    d.NotificationID,
		Timestamp:    d.SentAt,
		Body:         body,
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.session == nil || !p.session.alive() {
		if err := p.reconnect(); err != nil {
			return err
		}
	}
	err = p.session.ch.Publish("", p.queue, false, false, msg)
	if errors.Is(err, amqp.ErrClosed) {
		// The close notification can trail the failure; retry once on a
		// fresh session.
		if rerr := p.reconnect(); rerr != nil {
			return rerr
		}
		err = p.session.ch.Publish("", p.queue, false, false, msg)
	}
	if err != nil {
		return fmt.Errorf("publish delivery %s: %w", d.NotificationID, err)
	}
	return nil
}

// reconnect replaces the current session. Callers hold p.mu.
func (p *AMQPPublisher) reconnect() error {
	if p.session != nil {
		p.session.close()
		p.session = nil
	}
	s, err := p.open()
	if err != nil {
		return fmt.Errorf("reconnect to RabbitMQ: %w", err)
	}
	p.session = s
	return nil
}

func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.session == nil {
		return nil
	}
	err := p.session.close()
	p.session = nil
	return err
}

// Handler processes one decoded delivery.
type Handler func(ctx context.Context, d Delivery) error

// Message is the subset of amqp.Delivery the consumer needs.
type Message interface {
	Ack(multiple bool) error
	Nack(multiple, requeue bool) error
}

// Process decodes one message body and runs the handler. Malformed payloads
// are dropped. A failing handler gets the message requeued once; a message
// that was already redelivered is dropped.
func Process(ctx context.Context, m Message, body []byte, redelivered bool, h Handler, log *logrus.Entry) {
	var d Delivery
	if err := json.Unmarshal(body, &d); err != nil {
		log.WithError(err).Warn("invalid delivery payload")
		m.Nack(false, false)
		return
	}

	if err := h(ctx, d); err != nil {
		log.WithError(err).WithFields(logrus.Fields{
			"notification_id": d.NotificationID,
			"redelivered":     redelivered,
		}).Warn("delivery failed")
		m.Nack(false, !redelivered)
		return
	}
	m.Ack(false)
}

// Consume runs until ctx is cancelled or the channel closes.
func Consume(ctx context.Context, ch *amqp.Channel, queue string, h Handler, log *logrus.Entry) error {
	msgs, err := ch.Consume(
		queue,
		"",
		false, // autoAck = false for reliability
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("register consumer: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-msgs:
			if !ok {
				return fmt.Errorf("delivery channel closed")
			}
			Process(ctx, &d, d.Body, d.Redelivered, h, log)
		}
	}
}
