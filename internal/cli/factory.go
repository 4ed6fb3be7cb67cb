package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/aretw0/anchorsync"
	"github.com/aretw0/anchorsync/internal/adapters/file"
	"github.com/aretw0/anchorsync/internal/config"
	"github.com/aretw0/anchorsync/internal/logging"
	"github.com/aretw0/anchorsync/pkg/adapters/artifact"
	"github.com/aretw0/anchorsync/pkg/adapters/memory"
	"github.com/aretw0/anchorsync/pkg/adapters/redis"
	"github.com/aretw0/anchorsync/pkg/adapters/simulated"
	"github.com/aretw0/anchorsync/pkg/domain"
	"github.com/aretw0/anchorsync/pkg/observability"
	"github.com/aretw0/anchorsync/pkg/persistence/middleware"
	"github.com/aretw0/anchorsync/pkg/ports"
)

// Options are the global flags shared by every command.
type Options struct {
	ConfigPath     string
	ConfigRequired bool
	// Dir overrides store.dir when set.
	Dir string
	// LogLevel overrides log_level when set.
	LogLevel string
	// LogOutput receives structured logs (default: Stderr).
	LogOutput io.Writer
	// ArtifactOutput prints attached artifacts when set; otherwise they are logged.
	ArtifactOutput io.Writer
	// Hooks are registered on the controller after the logging and metrics hooks.
	Hooks []domain.LifecycleHooks
}

// Environment bundles what a command needs to drive sessions.
type Environment struct {
	Config     *config.Config
	Logger     *slog.Logger
	Controller *anchorsync.Controller
	Provider   *simulated.Provider
	Metrics    *observability.Metrics
	Store      ports.SessionStore

	closers []func() error
}

// Setup loads the configuration and wires store, provider and hooks into a Controller.
// Callers must Close the environment.
func Setup(opts Options) (*Environment, error) {
	path := opts.ConfigPath
	if path == "" {
		path = config.DefaultPath
	}
	cfg, err := config.Load(path, opts.ConfigRequired)
	if err != nil {
		return nil, err
	}
	if opts.Dir != "" {
		cfg.Store.Dir = opts.Dir
	}
	if opts.LogLevel != "" {
		cfg.LogLevel = opts.LogLevel
	}

	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	var logger *slog.Logger
	if opts.LogOutput != nil {
		logger = logging.NewWithWriter(opts.LogOutput, level)
	} else {
		logger = logging.New(level)
	}

	env := &Environment{
		Config:  cfg,
		Logger:  logger,
		Metrics: observability.NewMetrics(),
	}

	store, locker, err := env.buildStore()
	if err != nil {
		_ = env.Close()
		return nil, err
	}
	env.Store = store

	simOpts, err := cfg.Simulated()
	if err != nil {
		_ = env.Close()
		return nil, err
	}
	env.Provider = simulated.New(simOpts)

	var spawner ports.ArtifactSpawner = artifact.NewLogger(logger)
	if opts.ArtifactOutput != nil {
		spawner = artifact.NewWriter(opts.ArtifactOutput)
	}

	ctrlOpts := []anchorsync.Option{
		anchorsync.WithStore(store),
		anchorsync.WithLogger(logger),
		anchorsync.WithSpawner(spawner),
		anchorsync.WithLifecycleHooks(observability.LoggingHooks(logger)),
		anchorsync.WithLifecycleHooks(env.Metrics.Hooks()),
	}
	for _, h := range opts.Hooks {
		ctrlOpts = append(ctrlOpts, anchorsync.WithLifecycleHooks(h))
	}
	if locker != nil {
		ctrlOpts = append(ctrlOpts, anchorsync.WithLocker(locker))
	}

	env.Controller, err = anchorsync.New(env.Provider, ctrlOpts...)
	if err != nil {
		_ = env.Close()
		return nil, err
	}
	return env, nil
}

// buildStore creates the configured session store, sealed when encryption is enabled.
// The locker is only returned for Redis stores with store.redis.lock set.
func (e *Environment) buildStore() (ports.SessionStore, ports.DistributedLocker, error) {
	cfg := e.Config.Store

	var (
		store  ports.SessionStore
		locker ports.DistributedLocker
	)
	switch cfg.Kind {
	case config.StoreMemory:
		store = memory.NewStore()
	case config.StoreFile:
		store = file.New(cfg.Dir)
	case config.StoreRedis:
		rs := redis.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB,
			redis.WithPrefix(cfg.Redis.Prefix),
			redis.WithTTL(cfg.Redis.TTL),
		)
		e.closers = append(e.closers, rs.Close)
		if cfg.Redis.Lock {
			locker = redis.NewLocker(rs.Client(), cfg.Redis.Prefix)
		}
		store = rs
	default:
		return nil, nil, fmt.Errorf("unknown store kind %q", cfg.Kind)
	}

	if cfg.Encryption.Enabled() {
		mw, err := cfg.Encryption.Middleware()
		if err != nil {
			return nil, nil, err
		}
		store = middleware.Chain(store, mw)
	}

	e.Logger.Debug("Session store ready",
		"kind", cfg.Kind,
		"encrypted", cfg.Encryption.Enabled(),
		"locked", locker != nil,
	)
	return store, locker, nil
}

// Close releases store connections.
func (e *Environment) Close() error {
	var errs []error
	for _, c := range e.closers {
		if err := c(); err != nil {
			errs = append(errs, err)
		}
	}
	e.closers = nil
	return errors.Join(errs...)
}
