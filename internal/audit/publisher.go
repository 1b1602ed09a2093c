// Package audit mirrors the append-only event stream to an AMQP exchange
// for downstream observability and compliance collaborators. Publishing
// is best-effort: the database row is the source of truth, the broker is
// a copy.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/leadpilot/outreach-router/internal/models"
)

// Publisher emits audit events to an external stream.
type Publisher interface {
	Publish(event *models.EventRow) error
	Close() error
}

// NopPublisher discards events. Used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(*models.EventRow) error { return nil }
func (NopPublisher) Close() error                   { return nil }

type amqpPublisher struct {
	conn     *amqp.Connection
	exchange string
	logger   *zap.Logger

	mu sync.Mutex
	ch *amqp.Channel
}

// NewAMQPPublisher connects to the broker and declares a durable topic
// exchange. Events are routed by their event type so consumers can bind
// to e.g. "send_blocked_*" only.
func NewAMQPPublisher(url, exchange string, logger *zap.Logger) (Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to broker: %w", err)
	}

	p := &amqpPublisher{
		conn:     conn,
		exchange: exchange,
		logger:   logger,
	}

	ch, err := p.channel()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	return p, nil
}

// channel returns the shared publish channel, reopening it if the broker
// closed it since the last publish.
func (p *amqpPublisher) channel() (*amqp.Channel, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ch != nil && !p.ch.IsClosed() {
		return p.ch, nil
	}

	ch, err := p.conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("failed to open publish channel: %w", err)
	}
	p.ch = ch

	go func() {
		closed := make(chan *amqp.Error, 1)
		<-ch.NotifyClose(closed)

		p.mu.Lock()
		if p.ch == ch {
			p.ch = nil
		}
		p.mu.Unlock()

		p.logger.Warn("Audit publish channel closed, will reopen on next publish")
	}()

	return ch, nil
}

func (p *amqpPublisher) Publish(event *models.EventRow) error {
	ch, err := p.channel()
	if err != nil {
		return err
	}

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err = ch.PublishWithContext(ctx, p.exchange, string(event.Type), false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    event.ID,
		Timestamp:    event.CreatedAt,
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	return nil
}

func (p *amqpPublisher) Close() error {
	p.mu.Lock()
	if p.ch != nil && !p.ch.IsClosed() {
		_ = p.ch.Close()
	}
	p.mu.Unlock()

	return p.conn.Close()
}
