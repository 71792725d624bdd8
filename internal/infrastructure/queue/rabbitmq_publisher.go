package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/victoragudo/hotel-management-system/booking-service/internal/domain/booking"
	"github.com/victoragudo/hotel-management-system/booking-service/internal/infrastructure/metrics"
)

var ErrPublishNacked = errors.New("broker did not acknowledge the event")

// Channel is the part of *amqp.Channel the publisher uses.
type Channel interface {
	Confirm(noWait bool) error
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	PublishWithDeferredConfirmWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) (*amqp.DeferredConfirmation, error)
	Close() error
}

type PublisherConfig struct {
	Exchange    string
	MaxAttempts int
	RetryDelay  time.Duration
}

// RabbitMQPublisher sends booking events to a topic exchange, routed by event type.
type RabbitMQPublisher struct {
	conn    *amqp.Connection
	ch      Channel
	mu      sync.Mutex
	config  PublisherConfig
	metrics *metrics.Metrics
	logger  *slog.Logger
}

func NewMQPublisher(amqpConnection *amqp.Connection, amqpChannel Channel, config PublisherConfig, m *metrics.Metrics, logger *slog.Logger) (*RabbitMQPublisher, error) {
	closeAll := func() {
		_ = amqpChannel.Close()
		if amqpConnection != nil {
			_ = amqpConnection.Close()
		}
	}

	if err := amqpChannel.Confirm(false); err != nil {
		closeAll()
		return nil, fmt.Errorf("failed to enable publish confirms: %w", err)
	}
	if err := amqpChannel.ExchangeDeclare(config.Exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		closeAll()
		return nil, fmt.Errorf("failed to declare exchange %s: %w", config.Exchange, err)
	}

	if config.MaxAttempts < 1 {
		config.MaxAttempts = 1
	}

	return &RabbitMQPublisher{
		conn:    amqpConnection,
		ch:      amqpChannel,
		config:  config,
		metrics: m,
		logger:  logger,
	}, nil
}

func (p *RabbitMQPublisher) Publish(ctx context.Context, event booking.Event) error {
	err := p.PublishWithRetry(ctx, event, p.config.MaxAttempts)
	p.metrics.EventPublished(string(event.Type), err)
	return err
}

func (p *RabbitMQPublisher) publishOnce(ctx context.Context, event booking.Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event %s: %w", event.ID, err)
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		MessageId:    event.ID,
		Type:         string(event.Type),
		Body:         body,
		DeliveryMode: amqp.Persistent,
		Timestamp:    event.OccurredAt,
	}

	p.mu.Lock()
	confirmation, err := p.ch.PublishWithDeferredConfirmWithContext(ctx, p.config.Exchange, string(event.Type), false, false, pub)
	p.mu.Unlock()
	if err != nil {
		return err
	}
	if confirmation == nil {
		return nil
	}

	acked, err := confirmation.WaitContext(ctx)
	if err != nil {
		return err
	}
	if !acked {
		return ErrPublishNacked
	}
	return nil
}

func (p *RabbitMQPublisher) backoffDelay(attempt int) time.Duration {
	return p.config.RetryDelay * time.Duration(attempt)
}

func (p *RabbitMQPublisher) PublishWithRetry(ctx context.Context, event booking.Event, maxAttempts int) error {
	var err error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err = p.publishOnce(ctx, event)
		if err == nil {
			p.logger.Debug("Booking event published", "event_type", event.Type, "event_id", event.ID, "attempt", attempt)
			return nil
		}
		if attempt == maxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("context canceled: %w", err)
		case <-time.After(p.backoffDelay(attempt)):
		}
	}
	return fmt.Errorf("publish failed after %d attempts: %w", maxAttempts, err)
}

func (p *RabbitMQPublisher) Close() {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
}

// DiscardPublisher is used when no broker is configured.
type DiscardPublisher struct {
	logger *slog.Logger
}

func NewDiscardPublisher(logger *slog.Logger) *DiscardPublisher {
	return &DiscardPublisher{logger: logger}
}

func (p *DiscardPublisher) Publish(_ context.Context, event booking.Event) error {
	p.logger.Debug("Booking event discarded, no broker configured", "event_type", event.Type, "event_id", event.ID)
	return nil
}
