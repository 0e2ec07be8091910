package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v2"

	"github.com/vietddude/devkit/internal/clients/ntfy"
	"github.com/vietddude/devkit/internal/clients/serper"
	"github.com/vietddude/devkit/internal/dedupe"
	"github.com/vietddude/devkit/internal/retry"
)

const (
	DefaultRotationFile = "~/.claude/cc-devkits/rotation.json"
	DefaultDedupeDir    = "/tmp/.cc-devkits-dedupe"
	DefaultSQLitePath   = "~/.claude/cc-devkits/state.db"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Load reads configuration from a YAML file.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return parse(data)
}

// LoadOrDefault behaves like Load but a missing file yields the defaults.
// An empty path also yields the defaults.
func LoadOrDefault(path string) (*AppConfig, error) {
	if path == "" {
		return parse(nil)
	}
	cfg, err := Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return parse(nil)
	}
	return cfg, err
}

func parse(data []byte) (*AppConfig, error) {
	// Retry values are seeded before decoding so an explicit zero survives.
	cfg := AppConfig{
		Retry: RetryConfig{
			MaxAttempts:  retry.DefaultPolicy.MaxAttempts,
			InitialDelay: retry.DefaultPolicy.InitialDelay,
			MaxDelay:     retry.DefaultPolicy.MaxDelay,
			Jitter:       retry.DefaultPolicy.JitterMax,
		},
	}
	// Expand environment variables in the YAML content
	expandedData := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyEnv(&cfg)
	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the configuration against its struct tags.
func (c *AppConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config: invalid configuration: %w", err)
	}
	return nil
}

func applyDefaults(cfg *AppConfig) {
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}

	st := &cfg.State
	if st.Backend == "" {
		st.Backend = BackendFile
	}
	st.Backend = strings.ToLower(st.Backend)
	if st.RotationFile == "" {
		st.RotationFile = DefaultRotationFile
	}
	if st.DedupeDir == "" {
		st.DedupeDir = DefaultDedupeDir
	}
	if st.SQLitePath == "" {
		st.SQLitePath = DefaultSQLitePath
	}
	st.RotationFile = ExpandHome(st.RotationFile)
	st.DedupeDir = ExpandHome(st.DedupeDir)
	st.SQLitePath = ExpandHome(st.SQLitePath)
	if st.Database.Driver == "" {
		st.Database.Driver = "pgx"
	}
	if st.Database.MaxConns == 0 {
		st.Database.MaxConns = 5
	}
	if st.Redis.URL == "" {
		st.Redis.URL = "redis://localhost:6379/0"
	}
	if st.Redis.Prefix == "" {
		st.Redis.Prefix = "devkit"
	}

	// A null retry block decodes to zero values.
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry.MaxAttempts = retry.DefaultPolicy.MaxAttempts
	}

	if cfg.Metrics.Job == "" {
		cfg.Metrics.Job = "devkit"
	}

	if cfg.Ntfy.BaseURL == "" {
		cfg.Ntfy.BaseURL = ntfy.DefaultBaseURL
	}
	if cfg.Ntfy.Topic == "" {
		cfg.Ntfy.Topic = ntfy.DefaultTopic
	}
	if cfg.Ntfy.Timeout == 0 {
		cfg.Ntfy.Timeout = ntfy.DefaultTimeout
	}
	if cfg.Ntfy.Cooldown == 0 {
		cfg.Ntfy.Cooldown = dedupe.DefaultCooldown
	}

	if cfg.Serper.SearchURL == "" {
		cfg.Serper.SearchURL = serper.DefaultSearchURL
	}
	if cfg.Serper.ScrapeURL == "" {
		cfg.Serper.ScrapeURL = serper.DefaultScrapeURL
	}
	if cfg.Serper.Timeout == 0 {
		cfg.Serper.Timeout = serper.DefaultTimeout
	}
	if cfg.Serper.RotationGroup == "" {
		cfg.Serper.RotationGroup = "serper"
	}
}

// applyEnv lets the environment variables the hook scripts use override the
// file. Empty variables are ignored.
func applyEnv(cfg *AppConfig) {
	setFromEnv(&cfg.Ntfy.BaseURL, "NTFY_BASE_URL", "NTFY_URL")
	setFromEnv(&cfg.Ntfy.Topic, "NTFY_TOPIC")
	setFromEnv(&cfg.Ntfy.APIKey, "NTFY_API_KEY", "NTFY_TOKEN")
	setFromEnv(&cfg.Serper.APIKey, "SERPER_API_KEY")
	setFromEnv(&cfg.Serper.APIKeys, "SERPER_API_KEYS")

	setFromEnv(&cfg.State.Backend, "DEVKIT_STATE_BACKEND")
	if dir := os.Getenv("DEVKIT_STATE_DIR"); dir != "" {
		cfg.State.RotationFile = filepath.Join(dir, "rotation.json")
		cfg.State.DedupeDir = filepath.Join(dir, "dedupe")
		cfg.State.SQLitePath = filepath.Join(dir, "state.db")
	}
	setFromEnv(&cfg.State.Database.URL, "DEVKIT_DATABASE_URL")
	setFromEnv(&cfg.State.Redis.URL, "DEVKIT_REDIS_URL")
	setFromEnv(&cfg.Metrics.PushgatewayURL, "DEVKIT_PUSHGATEWAY_URL")
}

func setFromEnv(dst *string, names ...string) {
	for _, name := range names {
		if v := os.Getenv(name); v != "" {
			*dst = v
			return
		}
	}
}

// ExpandHome replaces a leading "~" with the user's home directory.
func ExpandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

// Policy builds a retry policy from the configured values.
func (r RetryConfig) Policy() retry.Policy {
	return retry.Policy{
		MaxAttempts:  r.MaxAttempts,
		InitialDelay: r.InitialDelay,
		MaxDelay:     r.MaxDelay,
		JitterMax:    r.Jitter,
	}
}
