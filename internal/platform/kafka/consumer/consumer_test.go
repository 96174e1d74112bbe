package consumer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"
)

func TestNewValidatesConfig(t *testing.T) {
	noop := HandlerFunc(nil)
	tests := []struct {
		name string
		cfg  Config
	}{
		{"missing brokers", Config{GroupID: "g", Topics: []string{"t"}}},
		{"missing group", Config{Brokers: "localhost:9092", Topics: []string{"t"}}},
		{"missing topics", Config{Brokers: "localhost:9092", GroupID: "g"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.cfg, noop, nil)
			require.Error(t, err)
		})
	}
}

func TestToMessage(t *testing.T) {
	ts := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	msg := toMessage(&kgo.Record{
		Topic:     "certwallet.imports",
		Partition: 2,
		Offset:    41,
		Key:       []byte("degree.json"),
		Value:     []byte("{}"),
		Headers:   []kgo.RecordHeader{{Key: "outcome", Value: []byte("duplicate")}},
		Timestamp: ts,
	})

	assert.Equal(t, "certwallet.imports", msg.Topic)
	assert.Equal(t, int32(2), msg.Partition)
	assert.Equal(t, int64(41), msg.Offset)
	assert.Equal(t, "degree.json", string(msg.Key))
	assert.Equal(t, "duplicate", msg.Headers["outcome"])
	assert.Equal(t, ts, msg.Timestamp)
}
