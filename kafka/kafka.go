// Package kafka publishes console activity to a Kafka (or Redpanda) topic.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"channel-console/activity"
	"channel-console/config"
)

// Each event is written on its own; the writer's 1s default batch window
// would delay every save by that much.
const (
	batchTimeout = 10 * time.Millisecond
	writeTimeout = 5 * time.Second
)

type Publisher struct {
	writer *kafka.Writer
	logger *slog.Logger
}

func New(cfg config.KafkaConfig, logger *slog.Logger) *Publisher {
	return &Publisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(cfg.Brokers...),
			Topic:        cfg.Topic,
			RequiredAcks: kafka.RequireAll,
			Balancer:     &kafka.Hash{},
			BatchTimeout: batchTimeout,
			WriteTimeout: writeTimeout,
		},
		logger: logger,
	}
}

// Record writes ev keyed by channel ID, so events for one channel stay in
// order on a single partition.
func (p *Publisher) Record(ctx context.Context, ev activity.Event) error {
	msg, err := encodeMessage(ev)
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to write activity: %w", err)
	}
	p.logger.Debug("published activity", "topic", p.writer.Topic, "kind", ev.Kind, "channel_id", ev.ChannelID)
	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

func (p *Publisher) Name() string { return "kafka" }

func encodeMessage(ev activity.Event) (kafka.Message, error) {
	data, err := json.Marshal(ev)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("failed to encode activity: %w", err)
	}
	return kafka.Message{
		Key:   []byte(ev.ChannelID),
		Value: data,
		Time:  ev.At,
		Headers: []kafka.Header{
			{Key: "kind", Value: []byte(ev.Kind)},
		},
	}, nil
}
