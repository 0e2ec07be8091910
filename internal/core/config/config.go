package config

import (
	"time"

	"github.com/vietddude/devkit/internal/clients/ntfy"
	"github.com/vietddude/devkit/internal/clients/serper"
	redisclient "github.com/vietddude/devkit/internal/infra/redis"
	"github.com/vietddude/devkit/internal/infra/storage/sqlstore"
)

// State backends.
const (
	BackendFile     = "file"
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

// AppConfig represents the top-level configuration.
type AppConfig struct {
	Logging LoggingConfig `yaml:"logging"`
	State   StateConfig   `yaml:"state"`
	Retry   RetryConfig   `yaml:"retry"`
	Metrics MetricsConfig `yaml:"metrics"`
	Ntfy    ntfy.Config   `yaml:"ntfy"`
	Serper  serper.Config `yaml:"serper"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"  validate:"omitempty,oneof=debug info warn error"`
	Format string `yaml:"format" validate:"omitempty,oneof=json text"`
}

// StateConfig selects where rotation and dedupe state lives.
type StateConfig struct {
	Backend      string             `yaml:"backend"       validate:"oneof=file memory sqlite postgres redis"`
	RotationFile string             `yaml:"rotation_file"`
	DedupeDir    string             `yaml:"dedupe_dir"`
	SQLitePath   string             `yaml:"sqlite_path"`
	Database     sqlstore.Config    `yaml:"database"`
	Redis        redisclient.Config `yaml:"redis"`
}

// RetryConfig mirrors retry.Policy.
type RetryConfig struct {
	MaxAttempts  int           `yaml:"max_attempts"  validate:"gte=1"`
	InitialDelay time.Duration `yaml:"initial_delay" validate:"gte=0"`
	MaxDelay     time.Duration `yaml:"max_delay"     validate:"gtefield=InitialDelay"`
	Jitter       time.Duration `yaml:"jitter"        validate:"gte=0"`
}

// MetricsConfig holds the optional Pushgateway target.
type MetricsConfig struct {
	PushgatewayURL string `yaml:"pushgateway_url" validate:"omitempty,http_url"`
	Job            string `yaml:"job"`
}
