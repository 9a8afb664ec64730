package kafka

import (
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"channel-console/activity"
	"channel-console/config"
)

func TestEncodeMessage(t *testing.T) {
	at := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	msg, err := encodeMessage(activity.Event{
		Kind:      activity.MessageProcessed,
		ChannelID: "lab-1",
		Outcome:   activity.Failure,
		Detail:    "filter rejected",
		At:        at,
	})
	require.NoError(t, err)

	assert.Equal(t, []byte("lab-1"), msg.Key)
	assert.Equal(t, at, msg.Time)
	assert.Equal(t, []kafka.Header{{Key: "kind", Value: []byte("message.processed")}}, msg.Headers)
	assert.JSONEq(t, `{
		"kind": "message.processed",
		"channel_id": "lab-1",
		"outcome": "failure",
		"detail": "filter rejected",
		"at": "2024-05-01T10:00:00Z"
	}`, string(msg.Value))
}

func TestPublisherName(t *testing.T) {
	p := New(config.KafkaConfig{Brokers: []string{"localhost:9092"}, Topic: "activity"}, nil)
	assert.Equal(t, "kafka", p.Name())
	assert.Equal(t, "activity", p.writer.Topic)
}

func TestWriterDoesNotWaitForBatches(t *testing.T) {
	p := New(config.KafkaConfig{Brokers: []string{"localhost:9092"}, Topic: "activity"}, nil)
	assert.LessOrEqual(t, p.writer.BatchTimeout, 10*time.Millisecond)
	assert.Positive(t, p.writer.WriteTimeout)
}
