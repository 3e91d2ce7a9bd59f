package integration

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/RubachokBoss/homework-distributor/internal/config"
	"github.com/RubachokBoss/homework-distributor/internal/models"
	"github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

// EventPublisher announces domain events to other systems.
type EventPublisher interface {
	PublishTaskDistributed(ctx context.Context, event *models.TaskDistributedEvent) error
	PublishSubmissionReceived(ctx context.Context, event *models.SubmissionReceivedEvent) error
	Close() error
}

type rabbitMQClient struct {
	conn    *amqp091.Connection
	channel *amqp091.Channel
	cfg     config.RabbitMQConfig
	logger  zerolog.Logger
}

func NewRabbitMQClient(cfg config.RabbitMQConfig, logger zerolog.Logger) (EventPublisher, error) {
	conn, err := amqp091.Dial(cfg.URL)
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
		"direct",     // type
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

	queue, err := channel.QueueDeclare(
		cfg.QueueName, // name
		true,          // durable
		false,         // delete when unused
		false,         // exclusive
		false,         // no-wait
		nil,           // arguments
	)
	if err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare queue: %w", err)
	}

	for _, key := range []string{cfg.DistributedRoutingKey, cfg.SubmissionRoutingKey} {
		if err := channel.QueueBind(queue.Name, key, cfg.Exchange, false, nil); err != nil {
			channel.Close()
			conn.Close()
			return nil, fmt.Errorf("failed to bind queue to %s: %w", key, err)
		}
	}

	logger.Info().
		Str("exchange", cfg.Exchange).
		Str("queue", queue.Name).
		Msg("Connected to RabbitMQ")

	return &rabbitMQClient{
		conn:    conn,
		channel: channel,
		cfg:     cfg,
		logger:  logger,
	}, nil
}

func (c *rabbitMQClient) PublishTaskDistributed(ctx context.Context, event *models.TaskDistributedEvent) error {
	if err := c.publish(ctx, c.cfg.DistributedRoutingKey, event); err != nil {
		return err
	}

	c.logger.Debug().
		Int64("task_id", event.TaskID).
		Str("trigger", event.Trigger).
		Msg("Task distributed event published")

	return nil
}

func (c *rabbitMQClient) PublishSubmissionReceived(ctx context.Context, event *models.SubmissionReceivedEvent) error {
	if err := c.publish(ctx, c.cfg.SubmissionRoutingKey, event); err != nil {
		return err
	}

	c.logger.Debug().
		Int64("submission_id", event.SubmissionID).
		Int64("task_id", event.TaskID).
		Msg("Submission received event published")

	return nil
}

func (c *rabbitMQClient) publish(ctx context.Context, routingKey string, event any) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	publishCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err = c.channel.PublishWithContext(
		publishCtx,
		c.cfg.Exchange, // exchange
		routingKey,     // routing key
		false,          // mandatory
		false,          // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp091.Persistent,
			Timestamp:    time.Now(),
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}

	return nil
}

func (c *rabbitMQClient) Close() error {
	if c.channel != nil {
		if err := c.channel.Close(); err != nil {
			c.logger.Error().Err(err).Msg("Failed to close RabbitMQ channel")
		}
	}

	if c.conn != nil {
		if err := c.conn.Close(); err != nil {
			c.logger.Error().Err(err).Msg("Failed to close RabbitMQ connection")
		}
	}

	return nil
}

type noopPublisher struct{}

// NewNoopPublisher is used when RabbitMQ is disabled or unreachable.
func NewNoopPublisher() EventPublisher {
	return noopPublisher{}
}

func (noopPublisher) PublishTaskDistributed(context.Context, *models.TaskDistributedEvent) error {
	return nil
}

func (noopPublisher) PublishSubmissionReceived(context.Context, *models.SubmissionReceivedEvent) error {
	return nil
}

func (noopPublisher) Close() error { return nil }
