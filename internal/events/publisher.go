// Package events publishes domain events to Kafka.
package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/hubenschmidt/interview-coach/internal/metrics"
)

// Event type names carried in the eventType header.
const (
	FeedbackCreated    = "feedback.created"
	InterviewGenerated = "interview.generated"
)

// FeedbackCreatedEvent is published after a feedback record is stored.
type FeedbackCreatedEvent struct {
	FeedbackID  string    `json:"feedbackId"`
	InterviewID string    `json:"interviewId"`
	UserID      string    `json:"userId"`
	TotalScore  int       `json:"totalScore"`
	Fallback    bool      `json:"fallback"`
	CreatedAt   time.Time `json:"createdAt"`
}

// InterviewGeneratedEvent is published after a generated interview is stored.
type InterviewGeneratedEvent struct {
	InterviewID string    `json:"interviewId"`
	UserID      string    `json:"userId"`
	Role        string    `json:"role"`
	Questions   int       `json:"questions"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Publisher writes domain events to a single topic keyed by aggregate id.
// Without brokers it only logs.
type Publisher struct {
	writer  *kafka.Writer
	topic   string
	enabled bool
}

// Config holds Kafka publisher configuration.
type Config struct {
	Brokers []string
	Topic   string
}

// New creates a publisher. Empty brokers selects log-only mode.
func New(cfg Config) *Publisher {
	if len(cfg.Brokers) == 0 {
		slog.Info("kafka disabled, using log-only mode")
		return &Publisher{topic: cfg.Topic}
	}

	dialer := &kafka.Dialer{
		Timeout:   10 * time.Second,
		DualStack: true,
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 10 * time.Millisecond,
		WriteTimeout: 10 * time.Second,
		RequiredAcks: kafka.RequireOne,
		Transport:    &kafka.Transport{Dial: dialer.DialFunc},
	}

	slog.Info("kafka publisher initialized", "brokers", cfg.Brokers, "topic", cfg.Topic)
	return &Publisher{writer: writer, topic: cfg.Topic, enabled: true}
}

// Publish marshals event and writes it under key. A nil publisher is a no-op.
func (p *Publisher) Publish(ctx context.Context, eventType, key string, event any) error {
	if p == nil {
		return nil
	}

	payload, err := json.Marshal(event)
	if err != nil {
		metrics.EventsPublished.WithLabelValues(eventType, "error").Inc()
		return err
	}

	slog.Debug("publishing event", "topic", p.topic, "event_type", eventType, "key", key)

	if !p.enabled {
		metrics.EventsPublished.WithLabelValues(eventType, "logged").Inc()
		return nil
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "eventType", Value: []byte(eventType)},
		},
	}
	if err = p.writer.WriteMessages(ctx, msg); err != nil {
		slog.Error("kafka write failed", "topic", p.topic, "key", key, "error", err)
		metrics.EventsPublished.WithLabelValues(eventType, "error").Inc()
		return err
	}
	metrics.EventsPublished.WithLabelValues(eventType, "ok").Inc()
	return nil
}

// Close flushes and closes the writer.
func (p *Publisher) Close() error {
	if p == nil || p.writer == nil {
		return nil
	}
	return p.writer.Close()
}
