package control

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/vietddude/devkit/internal/clients/ntfy"
	"github.com/vietddude/devkit/internal/clients/serper"
	"github.com/vietddude/devkit/internal/core/config"
	"github.com/vietddude/devkit/internal/core/domain"
	"github.com/vietddude/devkit/internal/dedupe"
	redisclient "github.com/vietddude/devkit/internal/infra/redis"
	"github.com/vietddude/devkit/internal/infra/secrets"
	"github.com/vietddude/devkit/internal/infra/storage"
	"github.com/vietddude/devkit/internal/infra/storage/file"
	"github.com/vietddude/devkit/internal/infra/storage/memory"
	"github.com/vietddude/devkit/internal/infra/storage/sqlstore"
	"github.com/vietddude/devkit/internal/infra/transport"
	"github.com/vietddude/devkit/internal/metrics"
	"github.com/vietddude/devkit/internal/pipeline"
	"github.com/vietddude/devkit/internal/redact"
	"github.com/vietddude/devkit/internal/rotation"
)

// ErrNoDatabase is returned by Migrate when the state backend is not SQL.
var ErrNoDatabase = errors.New("state backend has no database")

// App owns the state stores and the components built on them.
type App struct {
	cfg *config.AppConfig
	log *slog.Logger

	rotationStore storage.RotationStore
	dedupeStore   storage.DedupeStore
	db            *sqlstore.DB
	redisClient   *redisclient.Client

	Redactor  *redact.Redactor
	Rotator   *rotation.Rotator
	Gate      *dedupe.Gate
	Transport *transport.Transport
	Pipeline  *pipeline.Pipeline
	Ntfy      *ntfy.Client
	Serper    *serper.Client

	degraded atomic.Int64
}

// Config holds the application configuration.
type Config struct {
	App        *config.AppConfig
	Verbose    bool
	Logger     *slog.Logger
	HTTPClient *http.Client
}

// NewApp opens the configured state backend and wires the pipeline and
// clients on top of it.
func NewApp(ctx context.Context, cfg Config) (*App, error) {
	if cfg.App == nil {
		return nil, errors.New("control: nil config")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	a := &App{
		cfg:      cfg.App,
		log:      logger,
		Redactor: redact.NewRedactor(),
	}

	// 1. Resolve credential references
	if err := a.resolveSecrets(); err != nil {
		return nil, err
	}

	// 2. Initialize Storage
	if err := a.openState(ctx); err != nil {
		return nil, err
	}

	// 3. Initialize Shared Components
	a.Rotator = rotation.NewRotator(a.rotationStore,
		rotation.WithLogger(logger),
		rotation.WithDegradeHook(a.onDegrade),
	)
	a.Gate = dedupe.NewGate(a.dedupeStore,
		dedupe.WithLogger(logger),
		dedupe.WithDegradeHook(a.onDegrade),
	)

	topts := []transport.Option{
		transport.WithLogger(logger),
		transport.WithVerbose(cfg.Verbose),
		transport.WithRedactor(a.Redactor),
	}
	if cfg.HTTPClient != nil {
		topts = append(topts, transport.WithHTTPClient(cfg.HTTPClient))
	}
	a.Transport = transport.New(topts...)

	policy := cfg.App.Retry.Policy()
	a.Pipeline = pipeline.New(a.Transport,
		pipeline.WithRotator(a.Rotator),
		pipeline.WithGate(a.Gate),
		pipeline.WithPolicy(policy),
		pipeline.WithRedactor(a.Redactor),
		pipeline.WithLogger(logger),
	)

	// 4. Initialize Clients
	a.Ntfy = ntfy.New(cfg.App.Ntfy, a.Pipeline)
	a.Serper = serper.New(cfg.App.Serper, a.Pipeline, a.Rotator, policy, logger)

	logger.Debug("devkit initialized", "state_backend", cfg.App.State.Backend)
	return a, nil
}

func (a *App) resolveSecrets() error {
	refs := []*string{&a.cfg.Ntfy.APIKey, &a.cfg.Serper.APIKey, &a.cfg.Serper.APIKeys}
	for _, ref := range refs {
		if *ref == "" {
			continue
		}
		v, err := secrets.Resolve(*ref)
		if err != nil {
			return fmt.Errorf("failed to resolve credential: %w", err)
		}
		*ref = v
	}

	a.Redactor.Add(a.cfg.Ntfy.APIKey, a.cfg.Serper.APIKey)
	a.Redactor.Add(domain.SplitCredentials(a.cfg.Serper.APIKeys)...)
	return nil
}

func (a *App) openState(ctx context.Context) error {
	st := a.cfg.State

	switch st.Backend {
	case config.BackendMemory:
		store := memory.NewMemoryStorage()
		a.rotationStore = memory.NewRotationStore(store)
		a.dedupeStore = memory.NewDedupeStore(store)

	case config.BackendSQLite, config.BackendPostgres:
		dbCfg := st.Database
		if st.Backend == config.BackendSQLite {
			if err := os.MkdirAll(filepath.Dir(st.SQLitePath), 0o700); err != nil {
				return fmt.Errorf("failed to create state dir: %w", err)
			}
			dbCfg = sqlstore.Config{URL: st.SQLitePath, Driver: sqlstore.DriverSQLite}
		} else if dbCfg.Driver == sqlstore.DriverSQLite {
			return fmt.Errorf("postgres backend cannot use driver %q", dbCfg.Driver)
		}

		db, err := sqlstore.Open(ctx, dbCfg)
		if err != nil {
			return fmt.Errorf("failed to init db: %w", a.Redactor.RedactError(err))
		}
		if err := db.Migrate(ctx); err != nil {
			_ = db.Close()
			return err
		}
		a.db = db
		a.rotationStore = sqlstore.NewRotationRepo(db)
		a.dedupeStore = sqlstore.NewDedupeRepo(db)
		a.log.Debug("using sql state", "driver", dbCfg.Driver)

	case config.BackendRedis:
		rc, err := redisclient.NewClient(st.Redis)
		if err != nil {
			return fmt.Errorf("failed to init redis: %w", a.Redactor.RedactError(err))
		}
		a.redisClient = rc
		a.rotationStore = rc
		a.dedupeStore = rc

	default:
		a.rotationStore = file.NewRotationStore(st.RotationFile)
		a.dedupeStore = file.NewDedupeStore(st.DedupeDir)
	}
	return nil
}

// onDegrade logs absorbed state failures; the call itself proceeds.
func (a *App) onDegrade(err *storage.StateIOError) {
	a.degraded.Add(1)
	a.log.Warn("state unavailable, continuing",
		"component", err.Component,
		"op", err.Op,
		"error", a.Redactor.RedactError(err.Err),
	)
}

// Degraded reports how many state failures were absorbed.
func (a *App) Degraded() int64 {
	return a.degraded.Load()
}

// Config returns the resolved configuration.
func (a *App) Config() *config.AppConfig {
	return a.cfg
}

// Migrate applies the SQL schema. It fails for non-SQL backends.
func (a *App) Migrate(ctx context.Context) error {
	if a.db == nil {
		return fmt.Errorf("%w: backend %q", ErrNoDatabase, a.cfg.State.Backend)
	}
	return a.db.Migrate(ctx)
}

// PushMetrics sends the collected metrics to the configured Pushgateway.
func (a *App) PushMetrics(ctx context.Context) error {
	m := a.cfg.Metrics
	if err := metrics.Push(ctx, m.PushgatewayURL, m.Job); err != nil {
		return fmt.Errorf("failed to push metrics: %w", err)
	}
	return nil
}

// Close releases the state backend.
func (a *App) Close() error {
	var errs []error
	if a.db != nil {
		errs = append(errs, a.db.Close())
	}
	if a.redisClient != nil {
		errs = append(errs, a.redisClient.Close())
	}
	return errors.Join(errs...)
}
