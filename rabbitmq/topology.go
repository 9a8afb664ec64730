package rabbitmq

import (
	"fmt"
)

// SetupTopology declares the durable activity exchange and, when a queue is
// configured, a durable queue bound to it so events survive while no
// consumer is attached.
func (r *RabbitMQ) SetupTopology() error {
	ch, err := r.conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to open a channel: %w", err)
	}
	defer ch.Close()

	r.logger.Info("declaring activity exchange", "exchange", r.cfg.Exchange)
	err = ch.ExchangeDeclare(r.cfg.Exchange, "fanout", true, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("failed to declare activity exchange: %w", err)
	}

	if r.cfg.Queue == "" {
		return nil
	}

	r.logger.Info("declaring activity queue", "queue", r.cfg.Queue)
	_, err = ch.QueueDeclare(r.cfg.Queue, true, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("failed to declare activity queue: %w", err)
	}

	err = ch.QueueBind(r.cfg.Queue, "", r.cfg.Exchange, false, nil)
	if err != nil {
		return fmt.Errorf("failed to bind activity queue: %w", err)
	}

	r.logger.Info("activity topology setup complete", "exchange", r.cfg.Exchange, "queue", r.cfg.Queue)
	return nil
}
