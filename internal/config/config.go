package config

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// ----------------------------
	// SMTP
	// ----------------------------
	SMTPHost     string `envconfig:"SMTP_HOST" default:"localhost"`
	SMTPPort     int    `envconfig:"SMTP_PORT" default:"1025"`
	SMTPUser     string `envconfig:"SMTP_USER" default:""`
	SMTPPassword string `envconfig:"SMTP_PASSWORD" default:""`
	SMTPFrom     string `envconfig:"SMTP_FROM" default:"noreply@sendplan.io"`

	// ----------------------------
	// Scheduler
	// ----------------------------
	PollInterval time.Duration `envconfig:"POLL_INTERVAL" default:"1m"`
	JobBatchSize int           `envconfig:"JOB_BATCH_SIZE" default:"100"`
	SendTimeout  time.Duration `envconfig:"SEND_TIMEOUT" default:"30s"`

	// ----------------------------
	// Workers
	// ----------------------------
	WorkerCount int `envconfig:"WORKER_COUNT" default:"5"`
	RateLimit   int `envconfig:"RATE_LIMIT" default:"10"`
	QueueSize   int `envconfig:"QUEUE_SIZE" default:"100"`

	// ----------------------------
	// HTTP API
	// ----------------------------
	APIPort string `envconfig:"API_PORT" default:"8080"`

	// ----------------------------
	// Metrics
	// ----------------------------
	MetricsPort string `envconfig:"METRICS_PORT" default:"9090"`

	// ----------------------------
	// Database
	// ----------------------------
	DatabaseURL   string        `envconfig:"DATABASE_URL" required:"true"`
	DBConnectWait time.Duration `envconfig:"DB_CONNECT_WAIT" default:"30s"`
}

func Load() (*Config, error) {
	var cfg Config
	err := envconfig.Process("", &cfg)
	return &cfg, err
}
