package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"ms-engagement/internal/logger"
	"ms-engagement/internal/models"

	"github.com/segmentio/kafka-go"
)

const (
	initialRetryDelay = 200 * time.Millisecond
	maxRetryDelay     = 10 * time.Second
)

type Consumer struct {
	reader     *kafka.Reader
	logger     *logger.Logger
	retryDelay time.Duration
}

// NewConsumer creates a new Kafka consumer for the given topic and group
func NewConsumer(brokers []string, topic, groupID string, log *logger.Logger) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 1,
		MaxBytes: 10e6, // 10MB
	})
	return &Consumer{reader: reader, logger: log, retryDelay: initialRetryDelay}
}

// DecodeEvent parses one engagement event message.
func DecodeEvent(msg kafka.Message) (models.EngagementEvent, error) {
	var event models.EngagementEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		return event, fmt.Errorf("failed to unmarshal message at offset %d: %w", msg.Offset, err)
	}
	if event.Type == "" || event.AttendeeID == "" {
		return event, fmt.Errorf("message at offset %d is missing type or attendee", msg.Offset)
	}
	return event, nil
}

// Start consumes until ctx is cancelled. A failing event is retried in place
// until the handler accepts it; its offset is committed only after that.
func (c *Consumer) Start(ctx context.Context, handler func(context.Context, models.EngagementEvent) error) error {
	c.logger.LogKafka("CONSUME", c.reader.Config().Topic, "consumer started")

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			c.logger.Error("KAFKA", fmt.Sprintf("Error reading message: %v", err))
			continue
		}

		event, err := DecodeEvent(msg)
		if err != nil {
			// a poison message would block the partition forever
			c.logger.Warn("KAFKA", err.Error())
			c.commit(ctx, msg)
			continue
		}

		if err := c.deliver(ctx, event, handler); err != nil {
			return nil
		}
		c.commit(ctx, msg)
	}
}

// deliver runs handler until it succeeds, backing off between attempts. It
// only gives up when ctx is done.
func (c *Consumer) deliver(ctx context.Context, event models.EngagementEvent, handler func(context.Context, models.EngagementEvent) error) error {
	delay := c.retryDelay
	for attempt := 1; ; attempt++ {
		err := handler(ctx, event)
		if err == nil {
			return nil
		}
		c.logger.Error("KAFKA", fmt.Sprintf("handler failed for %s/%s (attempt %d): %v", event.Type, event.AttendeeID, attempt, err))

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		if delay *= 2; delay > maxRetryDelay {
			delay = maxRetryDelay
		}
	}
}

func (c *Consumer) commit(ctx context.Context, msg kafka.Message) {
	if err := c.reader.CommitMessages(ctx, msg); err != nil && ctx.Err() == nil {
		c.logger.Error("KAFKA", fmt.Sprintf("failed to commit offset %d: %v", msg.Offset, err))
	}
}

// Close gracefully shuts down the Kafka reader
func (c *Consumer) Close() error {
	return c.reader.Close()
}
