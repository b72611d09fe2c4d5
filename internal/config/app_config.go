// Package config loads process configuration from the environment.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/shaharia-lab/mailjob/internal/notification"
)

// Transport names accepted by MAILJOB_TRANSPORT.
const (
	TransportSMTP = "smtp"
	TransportLog  = "log"
)

// AppConfig holds all application-level configuration loaded from environment variables.
type AppConfig struct {
	// DataDir is the root data directory. Defaults to ~/.mailjob.
	DataDir string `envconfig:"MAILJOB_DATA_DIR"`

	// LogLevel sets the minimum log level (debug, info, warn, error). Defaults to info.
	LogLevel      string `envconfig:"LOG_LEVEL" default:"info"`
	LogMaxSizeMB  int    `envconfig:"LOG_MAX_SIZE_MB" default:"50"`
	LogMaxBackups int    `envconfig:"LOG_MAX_BACKUPS" default:"5"`

	// Port serves health, metrics and the event ingress API.
	Port int `envconfig:"PORT" default:"8991"`
	// CORSOrigins lists origins allowed to call the API (comma-separated).
	CORSOrigins []string `envconfig:"MAILJOB_CORS_ORIGINS"`

	Topic          string        `envconfig:"MAILJOB_TOPIC" default:"user"`
	TemplatesDir   string        `envconfig:"MAILJOB_TEMPLATES_DIR" default:"./templates"`
	RecipientField string        `envconfig:"MAILJOB_RECIPIENT_FIELD" default:"email"`
	BusWorkers     int           `envconfig:"MAILJOB_BUS_WORKERS" default:"3"`
	StopTimeout    time.Duration `envconfig:"MAILJOB_STOP_TIMEOUT" default:"30s"`

	// Transport selects the delivery backend: "smtp" or "log" (dry run).
	Transport string `envconfig:"MAILJOB_TRANSPORT" default:"smtp"`

	SMTPHost       string        `envconfig:"SMTP_HOST" default:"localhost"`
	SMTPPort       int           `envconfig:"SMTP_PORT" default:"587"`
	SMTPUsername   string        `envconfig:"SMTP_USERNAME"`
	SMTPPassword   string        `envconfig:"SMTP_PASSWORD"`
	SMTPFrom       string        `envconfig:"SMTP_FROM" default:"no-reply@localhost"`
	SMTPEncryption string        `envconfig:"SMTP_ENCRYPTION" default:"starttls"`
	SMTPTimeout    time.Duration `envconfig:"SMTP_TIMEOUT" default:"30s"`

	// LogRetention is how long dispatch log entries are kept.
	LogRetention  time.Duration `envconfig:"MAILJOB_LOG_RETENTION" default:"720h"`
	PruneInterval time.Duration `envconfig:"MAILJOB_PRUNE_INTERVAL" default:"1h"`

	// OTLPEndpoint enables trace export when set.
	OTLPEndpoint string `envconfig:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	OTLPInsecure bool   `envconfig:"OTEL_EXPORTER_OTLP_INSECURE" default:"true"`
	ServiceName  string `envconfig:"OTEL_SERVICE_NAME" default:"mailjob"`
}

// Load reads AppConfig from environment variables using envconfig.
// DataDir defaults to ~/.mailjob if not set.
func Load() (*AppConfig, error) {
	var c AppConfig
	if err := envconfig.Process("", &c); err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if c.DataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolving home directory: %w", err)
		}
		c.DataDir = filepath.Join(home, ".mailjob")
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks values envconfig cannot.
func (c *AppConfig) Validate() error {
	switch c.Transport {
	case TransportSMTP, TransportLog:
	default:
		return fmt.Errorf("invalid MAILJOB_TRANSPORT %q: want %q or %q", c.Transport, TransportSMTP, TransportLog)
	}
	if c.Topic == "" {
		return fmt.Errorf("MAILJOB_TOPIC must not be empty")
	}
	if c.StopTimeout <= 0 {
		return fmt.Errorf("MAILJOB_STOP_TIMEOUT must be positive")
	}
	return nil
}

// SlogLevel converts the LogLevel string to a slog.Level.
// Unknown values default to slog.LevelInfo.
func (c *AppConfig) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// LogDir returns the path to the log directory (~/.mailjob/logs).
func (c *AppConfig) LogDir() string {
	return filepath.Join(c.DataDir, "logs")
}

// DBPath returns the path to the dispatch log database.
func (c *AppConfig) DBPath() string {
	return filepath.Join(c.DataDir, "mailjob.db")
}

// SMTP returns the SMTP transport settings.
func (c *AppConfig) SMTP() notification.SMTPConfig {
	return notification.SMTPConfig{
		Host:       c.SMTPHost,
		Port:       c.SMTPPort,
		Username:   c.SMTPUsername,
		Password:   c.SMTPPassword,
		FromAddr:   c.SMTPFrom,
		Encryption: c.SMTPEncryption,
		Timeout:    c.SMTPTimeout,
	}
}
