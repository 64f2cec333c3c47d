// Package events publishes score updates to downstream consumers.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

// ScoreEvent is the payload emitted after every successful goal save.
type ScoreEvent struct {
	UserID           string    `json:"user_id"`
	WeekStart        string    `json:"week_start"`
	Score            float64   `json:"score"`
	TargetMinutes    int       `json:"target_minutes"`
	ActualMinutes    int       `json:"actual_minutes"`
	UnplannedMinutes int       `json:"unplanned_minutes"`
	SavedAt          time.Time `json:"saved_at"`
}

// Publisher delivers score events. Implementations must be safe for
// concurrent use.
type Publisher interface {
	Publish(ctx context.Context, e ScoreEvent) error
	Close() error
}

// KafkaPublisher writes score events to a Kafka topic.
type KafkaPublisher struct {
	writer *kafka.Writer
}

// NewKafkaPublisher creates a publisher for the given brokers and topic.
func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			RequiredAcks: kafka.RequireAll,
			Compression:  kafka.Snappy,
			Async:        false,
		},
	}
}

// Publish implements Publisher. Events are keyed by user id so one user's
// scores stay ordered within a partition.
func (p *KafkaPublisher) Publish(ctx context.Context, e ScoreEvent) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode score event: %w", err)
	}
	if err := p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(e.UserID),
		Value: payload,
	}); err != nil {
		return fmt.Errorf("write score event: %w", err)
	}
	return nil
}

// Close implements Publisher.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// NoopPublisher discards events. Used when no brokers are configured.
type NoopPublisher struct{}

// Publish implements Publisher.
func (NoopPublisher) Publish(ctx context.Context, e ScoreEvent) error { return nil }

// Close implements Publisher.
func (NoopPublisher) Close() error { return nil }
