// Package messaging publishes ledger events to RabbitMQ.
package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	"market-ledger/internal/models"
)

// Config holds the broker connection settings
type Config struct {
	URL      string
	Exchange string
}

// RabbitMQPublisher publishes ledger events to a durable topic exchange
type RabbitMQPublisher struct {
	mu       sync.Mutex
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
	logger   *logrus.Logger
}

// NewRabbitMQPublisher connects to the broker and declares the exchange
func NewRabbitMQPublisher(cfg Config, logger *logrus.Logger) (*RabbitMQPublisher, error) {
	if logger == nil {
		logger = logrus.New()
	}
	if cfg.URL == "" {
		return nil, fmt.Errorf("rabbitmq url is required")
	}
	if cfg.Exchange == "" {
		cfg.Exchange = "ledger.events"
	}

	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	err = channel.ExchangeDeclare(
		cfg.Exchange, // name
		"topic",      // type
		true,         // durable
		false,        // auto-deleted
		false,        // internal
		false,        // no-wait
		nil,          // arguments
	)
	if err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	logger.WithField("exchange", cfg.Exchange).Info("RabbitMQ publisher initialized")

	return &RabbitMQPublisher{
		conn:     conn,
		channel:  channel,
		exchange: cfg.Exchange,
		logger:   logger,
	}, nil
}

// PublishItemSold publishes the item.sold event for a committed sale
func (p *RabbitMQPublisher) PublishItemSold(ctx context.Context, sale *models.Sale) error {
	return p.publish(ctx, RoutingKeyItemSold, newItemSoldEvent(uuid.New().String(), sale))
}

// PublishBrandPurged publishes the brand.purged event
func (p *RabbitMQPublisher) PublishBrandPurged(ctx context.Context, brand string, removed map[models.Kind]int) error {
	return p.publish(ctx, RoutingKeyBrandPurged, newBrandPurgedEvent(uuid.New().String(), brand, removed, time.Now()))
}

func (p *RabbitMQPublisher) publish(ctx context.Context, routingKey string, event interface{}) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal %s event: %w", routingKey, err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.channel == nil {
		return fmt.Errorf("publisher is closed")
	}

	err = p.channel.PublishWithContext(ctx,
		p.exchange, // exchange
		routingKey, // routing key
		false,      // mandatory
		false,      // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish %s event: %w", routingKey, err)
	}

	p.logger.WithField("routing_key", routingKey).Debug("Event published")
	return nil
}

// Close closes the channel and the connection
func (p *RabbitMQPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.channel != nil {
		if err := p.channel.Close(); err != nil {
			p.logger.WithError(err).Warn("Error closing channel")
		}
		p.channel = nil
	}
	if p.conn != nil {
		err := p.conn.Close()
		p.conn = nil
		return err
	}
	return nil
}
