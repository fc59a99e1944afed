package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"

	"launcher/internal/capes"
	"launcher/internal/commands"
	"launcher/internal/config"
	"launcher/internal/docstore"
	"launcher/internal/instance"
	"launcher/internal/launcherconfig"
	"launcher/internal/lifecycle"
	"launcher/internal/logging"
	"launcher/internal/presence"
	"launcher/internal/services/norisk"
)

// Option customises App construction.
type Option func(*options)

type options struct {
	registry       prometheus.Registerer
	httpClient     norisk.HTTPDoer
	presenceClient presence.Client
	clock          clockwork.Clock
	skipLock       bool
}

// WithRegistry registers document metrics on reg.
func WithRegistry(reg prometheus.Registerer) Option {
	return func(o *options) { o.registry = reg }
}

// WithHTTPClient overrides the API transport.
func WithHTTPClient(doer norisk.HTTPDoer) Option {
	return func(o *options) { o.httpClient = doer }
}

// WithPresenceClient overrides the Discord client.
func WithPresenceClient(c presence.Client) Option {
	return func(o *options) { o.presenceClient = c }
}

// WithClock overrides the clock used for cape timestamps.
func WithClock(c clockwork.Clock) Option {
	return func(o *options) { o.clock = c }
}

// WithoutInstanceLock skips the single-instance lock. Only meant for tests
// that run several apps against one data directory.
func WithoutInstanceLock() Option {
	return func(o *options) { o.skipLock = true }
}

// App is the launcher backend.
type App struct {
	cfg      *config.Config
	logger   *slog.Logger
	skipLock bool

	Metrics  *docstore.Metrics
	Config   *launcherconfig.Manager
	Capes    *capes.Manager
	Presence *presence.Manager
	API      *norisk.Client
	Commands *commands.Service

	orchestrator *lifecycle.Orchestrator

	mu     sync.Mutex
	lock   *instance.Lock
	ready  atomic.Bool
	closed bool
}

// New wires every component. It performs no I/O.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) *App {
	if cfg == nil {
		d := config.Default()
		cfg = &d
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	o := options{}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}

	a := &App{cfg: cfg, logger: logger, skipLock: o.skipLock}
	a.Metrics = docstore.NewMetrics(o.registry)

	presenceClient := o.presenceClient
	if presenceClient == nil {
		if cfg.Presence.ApplicationID != "" {
			presenceClient = presence.NewIPCClient(cfg.Presence.ApplicationID, "")
		} else {
			presenceClient = presence.NoopClient{}
		}
	}

	a.Presence = presence.New(presenceClient,
		presence.WithLogger(logger),
		presence.WithInitialState(func() bool { return a.Config.PresenceEnabled() }))
	a.Config = launcherconfig.New(cfg.LauncherConfigPath(),
		launcherconfig.WithLogger(logger),
		launcherconfig.WithMetrics(a.Metrics),
		launcherconfig.WithPresenceNotifier(a.Presence))

	capeOpts := []capes.Option{capes.WithLogger(logger), capes.WithMetrics(a.Metrics)}
	if o.clock != nil {
		capeOpts = append(capeOpts, capes.WithClock(o.clock))
	}
	a.Capes = capes.New(cfg.SavedCapesPath(), capeOpts...)

	if o.httpClient != nil {
		a.API = norisk.NewClient(cfg.API.BaseURL, cfg.API.StagingBaseURL, o.httpClient, logger)
	} else {
		a.API = norisk.NewConfiguredClient(cfg, logger)
	}

	a.Commands = commands.New(commands.Dependencies{
		Config:  a.Config,
		Capes:   a.Capes,
		Browser: a.API,
		Discord: a.API,
		Token:   cfg.API.Token,
		Ready:   a.Ready,
		Logger:  logger,
	})

	a.orchestrator = lifecycle.New(logger)
	a.orchestrator.Register(a.Config, a.Capes, a.Presence)
	return a
}

// DataDir returns the directory holding the state files.
func (a *App) DataDir() string { return a.cfg.Paths.DataDir }

// Logger returns the application logger.
func (a *App) Logger() *slog.Logger { return a.logger }

// Ready reports whether Start completed successfully.
func (a *App) Ready() bool { return a.ready.Load() }

// Statuses reports the outcome of each ready handler.
func (a *App) Statuses() []lifecycle.Status { return a.orchestrator.Statuses() }

// Start acquires the instance lock and loads every manager.
func (a *App) Start(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return errors.New("app closed")
	}

	if !a.skipLock && a.lock == nil {
		lock, err := instance.Acquire(a.cfg.InstanceLockPath())
		if err != nil {
			return err
		}
		a.lock = lock
	}

	if err := a.orchestrator.Run(ctx, a); err != nil {
		return fmt.Errorf("start launcher: %w", err)
	}
	a.ready.Store(true)
	return nil
}

// Close disconnects presence and releases the instance lock.
func (a *App) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return nil
	}
	a.closed = true
	a.ready.Store(false)

	var errs []error
	if err := a.Presence.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close presence: %w", err))
	}
	if err := a.lock.Release(); err != nil {
		errs = append(errs, err)
	}
	a.lock = nil
	return errors.Join(errs...)
}
