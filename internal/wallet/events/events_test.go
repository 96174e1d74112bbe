package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"certwallet/internal/platform/kafka/producer"
)

type recordingProducer struct {
	messages []*producer.Message
	err      error
}

func (p *recordingProducer) Produce(_ context.Context, msg *producer.Message) error {
	if p.err != nil {
		return p.err
	}
	p.messages = append(p.messages, msg)
	return nil
}

func TestPublishImport(t *testing.T) {
	rec := &recordingProducer{}
	pub := NewKafkaPublisher(rec, "")
	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	pub.now = func() time.Time { return fixed }

	err := pub.PublishImport(context.Background(), ImportEvent{
		RequestID:    "req-1",
		Outcome:      OutcomeImported,
		CredentialID: "urn:uuid:1",
		Filename:     "urn:uuid:1",
	})
	require.NoError(t, err)
	require.Len(t, rec.messages, 1)

	msg := rec.messages[0]
	assert.Equal(t, DefaultTopic, msg.Topic)
	assert.Equal(t, "urn:uuid:1", string(msg.Key))
	assert.Equal(t, OutcomeImported, msg.Headers["outcome"])

	var got ImportEvent
	require.NoError(t, json.Unmarshal(msg.Value, &got))
	_, err = uuid.Parse(got.ID)
	assert.NoError(t, err, "event id is a uuid")
	assert.True(t, fixed.Equal(got.OccurredAt))
	assert.Equal(t, "req-1", got.RequestID)
}

func TestPublishImportKeysByRequestWithoutFilename(t *testing.T) {
	rec := &recordingProducer{}
	pub := NewKafkaPublisher(rec, "custom")

	require.NoError(t, pub.PublishImport(context.Background(), ImportEvent{
		RequestID: "req-2",
		Outcome:   OutcomeInvalid,
		Error:     "missing field",
	}))
	assert.Equal(t, "custom", rec.messages[0].Topic)
	assert.Equal(t, "req-2", string(rec.messages[0].Key))
}

func TestPublishImportWrapsProducerError(t *testing.T) {
	boom := errors.New("broker down")
	pub := NewKafkaPublisher(&recordingProducer{err: boom}, "")

	err := pub.PublishImport(context.Background(), ImportEvent{RequestID: "r", Outcome: OutcomeFailed})
	assert.ErrorIs(t, err, boom)
}

func TestDecodeImport(t *testing.T) {
	rec := &recordingProducer{}
	pub := NewKafkaPublisher(rec, "")
	require.NoError(t, pub.PublishImport(context.Background(), ImportEvent{
		RequestID: "req-3",
		Outcome:   OutcomeDuplicate,
		Filename:  "degree.json",
	}))

	got, err := DecodeImport(rec.messages[0].Value)
	require.NoError(t, err)
	assert.Equal(t, OutcomeDuplicate, got.Outcome)
	assert.Equal(t, "degree.json", got.Filename)

	_, err = DecodeImport([]byte(`{"request_id":"r"}`))
	assert.Error(t, err)
	_, err = DecodeImport([]byte(`not json`))
	assert.Error(t, err)
}
