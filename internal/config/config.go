// Package config loads server settings from the environment.
package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/sethvargo/go-envconfig"
)

// Config holds the server settings. Command line flags override it.
type Config struct {
	DBPath    string `env:"PERUTNINA_DB,default=perutnina.sqlite3"`
	Addr      string `env:"PERUTNINA_ADDR,default=:8080"`
	AdminUser string `env:"PERUTNINA_ADMIN_USER,default=Admin"`
	LogPath   string `env:"PERUTNINA_LOG"`

	SentryDSN   string `env:"SENTRY_DSN"`
	Environment string `env:"PERUTNINA_ENV,default=production"`

	// FirebaseCredentials is a service account JSON file. Without it push
	// notifications are only logged.
	FirebaseCredentials string `env:"FIREBASE_CREDENTIALS"`

	ExportSchedule string        `env:"ANALYTICS_SCHEDULE,default=0 2 * * *"`
	ExportDir      string        `env:"ANALYTICS_DIR,default=analytics"`
	AMQPURL        string        `env:"AMQP_URL"`
	AMQPExchange   string        `env:"AMQP_EXCHANGE,default=analytics"`
	ExportTimeout  time.Duration `env:"ANALYTICS_TIMEOUT,default=5m"`

	Workers     int           `env:"DISPATCH_WORKERS,default=4"`
	QueueSize   int           `env:"DISPATCH_QUEUE,default=256"`
	TaskTimeout time.Duration `env:"DISPATCH_TIMEOUT,default=10s"`

	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT,default=5s"`
}

// Load reads envPath (or .env in the working directory when envPath is
// empty and the file exists) into the environment, then processes and
// validates the configuration.
func Load(ctx context.Context, envPath string) (*Config, error) {
	if envPath != "" {
		if err := godotenv.Load(envPath); err != nil {
			return nil, fmt.Errorf("loading %s: %w", envPath, err)
		}
	} else if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	return LoadWith(ctx, envconfig.OsLookuper())
}

// LoadWith processes the configuration from l and validates it.
func LoadWith(ctx context.Context, l envconfig.Lookuper) (*Config, error) {
	cfg := &Config{}
	if err := envconfig.ProcessWith(ctx, cfg, l); err != nil {
		return nil, fmt.Errorf("processing environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.DBPath, validation.Required),
		validation.Field(&c.Addr, validation.Required),
		validation.Field(&c.AdminUser, validation.Required),
		validation.Field(&c.ExportSchedule, validation.Required, validation.By(cronSpec)),
		validation.Field(&c.ExportDir, validation.Required),
		validation.Field(&c.AMQPURL, validation.By(amqpURL)),
		validation.Field(&c.Workers, validation.Min(1), validation.Max(64)),
		validation.Field(&c.QueueSize, validation.Min(1)),
		validation.Field(&c.TaskTimeout, validation.Min(time.Second)),
	)
}

func cronSpec(value any) error {
	s, _ := value.(string)
	if _, err := cron.ParseStandard(s); err != nil {
		return errors.New("must be a valid cron expression")
	}
	return nil
}

func amqpURL(value any) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	if !strings.HasPrefix(s, "amqp://") && !strings.HasPrefix(s, "amqps://") {
		return errors.New("must start with amqp:// or amqps://")
	}
	return nil
}
