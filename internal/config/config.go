// Package config centralises configuration parsing for the enrollment service.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config captures runtime configuration values for the enrollment service.
type Config struct {
	HTTPAddress    string        `env:"HTTP_ADDRESS" envDefault:":8080"`
	CatalogPath    string        `env:"CATALOG_PATH"`
	IdempotencyTTL time.Duration `env:"IDEMPOTENCY_TTL" envDefault:"10m"`
	LogEnv         string        `env:"LOG_ENV" envDefault:"dev"`
	LogLevel       string        `env:"LOG_LEVEL" envDefault:"info"`
	// CORSOrigin is echoed in Access-Control-Allow-Origin; empty disables CORS headers.
	CORSOrigin string `env:"CORS_ALLOWED_ORIGIN" envDefault:"http://localhost:5173"`

	KafkaBrokers       []string      `env:"KAFKA_BROKERS" envSeparator:","`
	KafkaTopic         string        `env:"KAFKA_TOPIC" envDefault:"enrollment_events"`
	OutboxPollInterval time.Duration `env:"OUTBOX_POLL_INTERVAL" envDefault:"1s"`
	OutboxBatchSize    int           `env:"OUTBOX_BATCH_SIZE" envDefault:"50"`
	OutboxQueueSize    int           `env:"OUTBOX_QUEUE_SIZE" envDefault:"1024"`
	OutboxMaxAttempts  int           `env:"OUTBOX_MAX_ATTEMPTS" envDefault:"5"`

	ConsumerGroupID string `env:"CONSUMER_GROUP_ID" envDefault:"enrollment-notifier"`
	MetricsAddress  string `env:"METRICS_ADDRESS" envDefault:":9195"`
}

// Load reads an optional .env file and then the process environment into Config.
// Variables already set in the environment win over the file.
func Load(dotenvFiles ...string) (Config, error) {
	if len(dotenvFiles) == 0 {
		dotenvFiles = []string{".env"}
	}
	for _, file := range dotenvFiles {
		if err := godotenv.Load(file); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", file, err)
		}
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	cfg.KafkaBrokers = trimEmpty(cfg.KafkaBrokers)
	return cfg, nil
}

// NotificationsEnabled reports whether roster changes should be sent to Kafka.
func (c Config) NotificationsEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

func trimEmpty(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
