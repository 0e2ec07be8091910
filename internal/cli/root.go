package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"
	"github.com/vietddude/stylelog"

	"github.com/vietddude/devkit/internal/control"
	"github.com/vietddude/devkit/internal/core/config"
	"github.com/vietddude/devkit/internal/redact"
)

// Version is set at build time.
var Version = "dev"

var (
	cfgPath      string
	isDebug      bool
	isVerbose    bool
	stateBackend string

	cfg *config.AppConfig
	app *control.App
)

var rootCmd = &cobra.Command{
	Use:   "devkit",
	Short: "Notification and search tools on a resilient request pipeline",
	Long: `devkit sends ntfy notifications and Serper search/scrape requests through a
pipeline that rotates API keys, suppresses duplicate notifications, retries
transient failures and masks credentials in every log line and error.`,
	Version:           Version,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
}

// Execute runs the command tree and exits non-zero on failure.
func Execute() {
	// Cancel in-flight requests and retry sleeps on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	shutdown()
	if err != nil {
		slog.Error("Command failed", "error", redactor().RedactError(err))
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "devkit.yaml", "config file, optional")
	rootCmd.PersistentFlags().BoolVar(&isDebug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&isVerbose, "verbose", false, "trace every outbound request")
	rootCmd.PersistentFlags().StringVar(&stateBackend, "state-backend", "", "override state.backend (file, memory, sqlite, postgres, redis)")
}

func setup(cmd *cobra.Command, args []string) error {
	_ = godotenv.Load()

	// Load Configuration
	loaded, err := config.LoadOrDefault(cfgPath)
	if err != nil {
		stylelog.InitDefault()
		return fmt.Errorf("failed to load config: %w", err)
	}
	if stateBackend != "" {
		loaded.State.Backend = strings.ToLower(stateBackend)
		if err := loaded.Validate(); err != nil {
			stylelog.InitDefault()
			return err
		}
	}
	cfg = loaded

	setupLogging(cfg.Logging, isDebug, os.Stderr)
	return nil
}

// setupLogging installs the process logger. "json" writes one JSON object
// per line to w; anything else uses the colored text handler.
func setupLogging(lc config.LoggingConfig, debug bool, w io.Writer) {
	slogLevel := slog.LevelInfo
	switch {
	case debug || lc.Level == "debug":
		slogLevel = slog.LevelDebug
	case lc.Level == "warn":
		slogLevel = slog.LevelWarn
	case lc.Level == "error":
		slogLevel = slog.LevelError
	}

	if lc.Format == "json" {
		slog.SetDefault(slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slogLevel})))
		return
	}

	stylelog.InitDefault(&tint.Options{
		Level:      slogLevel,
		TimeFormat: time.RFC3339,
	})
}

// getApp builds the App on first use. Commands that never touch state or
// the network do not pay for it.
func getApp(ctx context.Context) (*control.App, error) {
	if app != nil {
		return app, nil
	}
	a, err := control.NewApp(ctx, control.Config{
		App:     cfg,
		Verbose: isVerbose,
		Logger:  slog.Default(),
	})
	if err != nil {
		return nil, err
	}
	app = a
	return app, nil
}

func shutdown() {
	if app == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := app.PushMetrics(ctx); err != nil {
		slog.Warn("Failed to push metrics", "error", err)
	}
	if err := app.Close(); err != nil {
		slog.Warn("Error during shutdown", "error", err)
	}
}

func redactor() *redact.Redactor {
	if app != nil {
		return app.Redactor
	}
	return nil
}

// printJSON writes raw JSON indented, or v encoded when raw is empty.
func printJSON(w io.Writer, raw []byte, v any) error {
	if len(raw) > 0 {
		var anyv any
		if err := json.Unmarshal(raw, &anyv); err == nil {
			v = anyv
		}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
