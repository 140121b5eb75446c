package producer

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"

	"commerce-auth-core/internal/audit/domain"
)

// kafkaEvent is the wire form of a token event. Raw token material never
// appears here; only identifiers and timestamps.
type kafkaEvent struct {
	ID        string     `json:"id"`
	UserID    string     `json:"user_id"`
	SessionID string     `json:"session_id,omitempty"`
	TokenType string     `json:"token_type"`
	Action    string     `json:"action"`
	Jti       string     `json:"jti,omitempty"`
	TokenID   string     `json:"token_id,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// KafkaProducer implements Producer using segmentio/kafka-go.
type KafkaProducer struct {
	writer *kafka.Writer
}

// NewKafkaProducer creates a Kafka producer that writes token events to the
// given topic, keyed by user id so one user's events stay ordered within a
// partition. Returns (nil, nil) when brokers or topic are unset (publishing
// disabled). Call Close when shutting down.
func NewKafkaProducer(brokers []string, topic string) (*KafkaProducer, error) {
	if len(brokers) == 0 || topic == "" {
		return nil, nil
	}
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 50 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
	}
	return &KafkaProducer{writer: writer}, nil
}

// Publish writes one event. The caller bounds ctx; a slow broker fails the
// publish rather than blocking the request path.
func (p *KafkaProducer) Publish(ctx context.Context, e *domain.TokenEvent) error {
	payload, err := json.Marshal(kafkaEvent{
		ID:        e.ID,
		UserID:    e.UserID,
		SessionID: e.SessionID,
		TokenType: e.TokenType,
		Action:    e.Action,
		Jti:       e.Jti,
		TokenID:   e.TokenID,
		ExpiresAt: e.ExpiresAt,
		CreatedAt: e.CreatedAt,
	})
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(e.UserID),
		Value: payload,
	})
}

// Close flushes and closes the underlying writer.
func (p *KafkaProducer) Close() error {
	if p == nil || p.writer == nil {
		return nil
	}
	return p.writer.Close()
}
