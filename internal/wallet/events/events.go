// Package events publishes wallet import outcomes to Kafka.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"certwallet/internal/platform/kafka/producer"
)

// DefaultTopic receives import events unless configured otherwise.
const DefaultTopic = "certwallet.imports"

// Import outcomes.
const (
	OutcomeImported  = "imported"
	OutcomeDuplicate = "duplicate"
	OutcomeConflict  = "conflict"
	OutcomeInvalid   = "invalid"
	OutcomeFailed    = "failed"
)

// ImportEvent records the outcome of one import request.
type ImportEvent struct {
	ID           string    `json:"id"`
	RequestID    string    `json:"request_id"`
	Outcome      string    `json:"outcome"`
	CredentialID string    `json:"credential_id,omitempty"`
	Filename     string    `json:"filename,omitempty"`
	IssuerID     string    `json:"issuer_id,omitempty"`
	Error        string    `json:"error,omitempty"`
	OccurredAt   time.Time `json:"occurred_at"`
}

// MessageProducer is the subset of the Kafka producer the publisher needs.
type MessageProducer interface {
	Produce(ctx context.Context, msg *producer.Message) error
}

// KafkaPublisher writes import events as JSON keyed by credential filename,
// so events for one credential stay ordered within a partition.
type KafkaPublisher struct {
	producer MessageProducer
	topic    string
	now      func() time.Time
}

func NewKafkaPublisher(p MessageProducer, topic string) *KafkaPublisher {
	if topic == "" {
		topic = DefaultTopic
	}
	return &KafkaPublisher{producer: p, topic: topic, now: time.Now}
}

// PublishImport fills in the event ID and timestamp when absent.
func (p *KafkaPublisher) PublishImport(ctx context.Context, event ImportEvent) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = p.now().UTC()
	}
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode import event: %w", err)
	}
	key := event.Filename
	if key == "" {
		key = event.RequestID
	}
	msg := &producer.Message{
		Topic: p.topic,
		Key:   []byte(key),
		Value: value,
		Headers: map[string]string{
			"event_type": "certificate.import",
			"outcome":    event.Outcome,
		},
	}
	if err := p.producer.Produce(ctx, msg); err != nil {
		return fmt.Errorf("publish import event: %w", err)
	}
	return nil
}

// DecodeImport parses a record value written by PublishImport.
func DecodeImport(value []byte) (ImportEvent, error) {
	var event ImportEvent
	if err := json.Unmarshal(value, &event); err != nil {
		return ImportEvent{}, fmt.Errorf("decode import event: %w", err)
	}
	if event.Outcome == "" {
		return ImportEvent{}, fmt.Errorf("decode import event: missing outcome")
	}
	return event, nil
}
