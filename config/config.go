package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// BackendConfig points the console at the channel routing service.
type BackendConfig struct {
	// BaseURL is the prefix every channel endpoint is resolved against.
	BaseURL        string `json:"base_url" validate:"required,url"`
	TimeoutSeconds int    `json:"timeout_seconds" validate:"min=1"`
}

func (b BackendConfig) Timeout() time.Duration {
	return time.Duration(b.TimeoutSeconds) * time.Second
}

// RabbitMQConfig enables publishing of console activity. Publishing is off
// when DSN is empty.
type RabbitMQConfig struct {
	DSN      string `json:"dsn"`
	Exchange string `json:"exchange" validate:"required_with=DSN"`
	// Queue, when set, is bound to Exchange so events are kept until read.
	Queue string `json:"queue"`
}

// KafkaConfig enables a second activity feed. Off when Brokers is empty.
type KafkaConfig struct {
	Brokers []string `json:"brokers"`
	Topic   string   `json:"topic" validate:"required_with=Brokers"`
}

// SessionsConfig controls how long abandoned editor and tester sessions live.
type SessionsConfig struct {
	IdleMinutes   int    `json:"idle_minutes" validate:"min=1"`
	SweepSchedule string `json:"sweep_schedule" validate:"required"`
}

func (s SessionsConfig) IdleTimeout() time.Duration {
	return time.Duration(s.IdleMinutes) * time.Minute
}

// Config представляет структуру файла конфигурации.
type Config struct {
	Port              string         `json:"port" validate:"required,numeric"`
	LogDir            string         `json:"log_dir" validate:"required"`
	LogLevel          string         `json:"log_level" validate:"oneof=debug info warn error"`
	DBPath            string         `json:"db_path" validate:"required"`
	LocalesDir        string         `json:"locales_dir"`
	CollectorSchedule string         `json:"collector_schedule" validate:"required"`
	Backend           BackendConfig  `json:"backend"`
	RabbitMQ          RabbitMQConfig `json:"rabbitmq"`
	Kafka             KafkaConfig    `json:"kafka"`
	Sessions          SessionsConfig `json:"sessions"`
	// ActivityRetentionDays bounds how long the activity trail is kept.
	ActivityRetentionDays int `json:"activity_retention_days" validate:"min=1"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Port:              "8080",
		LogDir:            "logs",
		LogLevel:          "info",
		DBPath:            "data/console.db",
		CollectorSchedule: "@every 30s",
		Backend: BackendConfig{
			BaseURL:        "http://localhost:8000/api/v1",
			TimeoutSeconds: 15,
		},
		RabbitMQ: RabbitMQConfig{
			Exchange: "channel_console_activity",
		},
		Kafka: KafkaConfig{
			Topic: "channel-console-activity",
		},
		Sessions: SessionsConfig{
			IdleMinutes:   60,
			SweepSchedule: "@every 1m",
		},
		ActivityRetentionDays: 30,
	}
}

// Load загружает конфигурацию из указанного файла. Отсутствие файла не
// считается ошибкой; значения из .env и переменных окружения имеют приоритет.
func Load(filePath string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()

	file, err := os.Open(filePath)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
	} else {
		defer file.Close()
		decoder := json.NewDecoder(file)
		if err := decoder.Decode(cfg); err != nil {
			return nil, fmt.Errorf("failed to decode config %s: %w", filePath, err)
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// ActivityRetention is the age after which activity entries are pruned.
func (c *Config) ActivityRetention() time.Duration {
	return time.Duration(c.ActivityRetentionDays) * 24 * time.Hour
}

func applyEnv(cfg *Config) error {
	if port := os.Getenv("CONSOLE_PORT"); port != "" {
		cfg.Port = port
	}
	if level := os.Getenv("CONSOLE_LOG_LEVEL"); level != "" {
		cfg.LogLevel = level
	}
	if baseURL := os.Getenv("CONSOLE_BACKEND_URL"); baseURL != "" {
		cfg.Backend.BaseURL = baseURL
	}
	if timeout := os.Getenv("CONSOLE_BACKEND_TIMEOUT"); timeout != "" {
		n, err := strconv.Atoi(timeout)
		if err != nil {
			return fmt.Errorf("CONSOLE_BACKEND_TIMEOUT must be a number of seconds: %w", err)
		}
		cfg.Backend.TimeoutSeconds = n
	}
	if dsn := os.Getenv("RABBITMQ_DSN"); dsn != "" {
		cfg.RabbitMQ.DSN = dsn
	}
	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		cfg.Kafka.Brokers = strings.Split(brokers, ",")
	}
	if topic := os.Getenv("KAFKA_TOPIC"); topic != "" {
		cfg.Kafka.Topic = topic
	}
	return nil
}
