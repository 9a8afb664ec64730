// Package rabbitmq publishes console activity to a RabbitMQ exchange.
package rabbitmq

import (
	"fmt"
	"log/slog"

	"github.com/rabbitmq/amqp091-go"

	"channel-console/config"
)

// RabbitMQ holds the connection and configuration for RabbitMQ interactions.
type RabbitMQ struct {
	conn   *amqp091.Connection
	logger *slog.Logger
	cfg    config.RabbitMQConfig
}

// New connects to the broker and declares the activity topology.
func New(cfg config.RabbitMQConfig, logger *slog.Logger) (*RabbitMQ, error) {
	conn, err := amqp091.Dial(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	logger.Info("connected to RabbitMQ successfully")

	r := &RabbitMQ{
		conn:   conn,
		logger: logger,
		cfg:    cfg,
	}

	if err := r.SetupTopology(); err != nil {
		conn.Close()
		return nil, err
	}
	return r, nil
}

// Close
func (r *RabbitMQ) Close() error {
	return r.conn.Close()
}

// Name identifies the publisher in activity sink logs.
func (r *RabbitMQ) Name() string { return "rabbitmq" }
