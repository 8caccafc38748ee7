package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"ms-engagement/internal/logger"
	"ms-engagement/internal/models"

	"github.com/segmentio/kafka-go"
)

// messageWriter is the part of *kafka.Writer the producer uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Producer struct {
	Writer messageWriter
	Topic  string
	Logger *logger.Logger
}

func NewProducer(brokers []string, topic string, log *logger.Logger) *Producer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 50 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
	}
	return &Producer{Writer: writer, Topic: topic, Logger: log}
}

// PublishEngagementEvent streams one event keyed by attendee id, so a consumer
// sees each attendee's events in order.
func (p *Producer) PublishEngagementEvent(ctx context.Context, event models.EngagementEvent) error {
	msgBytes, err := json.Marshal(event)
	if err != nil {
		return err
	}

	p.Logger.LogKafka("PUBLISH", p.Topic, fmt.Sprintf("%s for %s (%+d)", event.Type, event.AttendeeID, event.Points))

	return p.Writer.WriteMessages(ctx,
		kafka.Message{
			Key:   []byte(event.AttendeeID),
			Value: msgBytes,
			Headers: []kafka.Header{
				{Key: "type", Value: []byte(event.Type)},
			},
		},
	)
}

func (p *Producer) Close() error {
	return p.Writer.Close()
}
