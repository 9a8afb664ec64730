package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rabbitmq/amqp091-go"

	"channel-console/activity"
)

// Record publishes ev as a persistent JSON message to the activity exchange.
func (r *RabbitMQ) Record(ctx context.Context, ev activity.Event) error {
	msg, err := encodeEvent(ev)
	if err != nil {
		return err
	}

	ch, err := r.conn.Channel()
	if err != nil {
		return fmt.Errorf("could not open channel: %w", err)
	}
	defer ch.Close()

	err = ch.PublishWithContext(ctx,
		r.cfg.Exchange,
		"",    // fanout does not use a routing key
		false, // mandatory
		false, // immediate
		msg,
	)
	if err != nil {
		return fmt.Errorf("failed to publish activity: %w", err)
	}

	r.logger.Debug("published activity", "exchange", r.cfg.Exchange, "kind", ev.Kind, "channel_id", ev.ChannelID)
	return nil
}

func encodeEvent(ev activity.Event) (amqp091.Publishing, error) {
	body, err := json.Marshal(ev)
	if err != nil {
		return amqp091.Publishing{}, fmt.Errorf("failed to encode activity: %w", err)
	}
	return amqp091.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp091.Persistent,
		Type:         string(ev.Kind),
		Timestamp:    ev.At,
		Body:         body,
	}, nil
}
