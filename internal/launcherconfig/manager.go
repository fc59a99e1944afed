package launcherconfig

import (
	"context"
	"log/slog"

	"launcher/internal/docstore"
	"launcher/internal/lifecycle"
	"launcher/internal/logging"
	"launcher/internal/services"
)

const documentName = "launcher_config"

// PresenceNotifier is informed when the Discord Rich Presence flag changes.
type PresenceNotifier interface {
	SetEnabled(ctx context.Context, enabled bool) error
}

// Option customises a Manager.
type Option func(*Manager)

// WithLogger sets the manager logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) { m.logger = logger }
}

// WithMetrics attaches shared document metrics.
func WithMetrics(metrics *docstore.Metrics) Option {
	return func(m *Manager) { m.metrics = metrics }
}

// WithPresenceNotifier sets the component told about presence flag changes.
func WithPresenceNotifier(n PresenceNotifier) Option {
	return func(m *Manager) { m.presence = n }
}

// Manager owns launcher_config.json.
type Manager struct {
	logger   *slog.Logger
	metrics  *docstore.Metrics
	presence PresenceNotifier
	store    *docstore.Manager[LauncherConfig]
}

// New constructs a manager for the document at path. No I/O happens until
// the manager's OnReady runs.
func New(path string, opts ...Option) *Manager {
	m := &Manager{}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	base := m.logger
	m.logger = logging.NewComponentLogger(base, "launcher_config")
	m.store = docstore.New(documentName, path, Default,
		docstore.WithLogger(base),
		docstore.WithMetrics(m.metrics))
	return m
}

// Name identifies the manager to the lifecycle orchestrator.
func (m *Manager) Name() string { return documentName }

// Path returns the backing file path.
func (m *Manager) Path() string { return m.store.Path() }

// Loaded reports whether the document has been read from disk.
func (m *Manager) Loaded() bool { return m.store.Loaded() }

// OnReady loads the document.
func (m *Manager) OnReady(ctx context.Context, host lifecycle.Host) error {
	return m.store.OnReady(ctx, host)
}

// Get returns a copy of the current configuration.
func (m *Manager) Get() LauncherConfig {
	return m.store.Snapshot()
}

// IsExperimental reports whether staging endpoints should be used.
func (m *Manager) IsExperimental() bool {
	return docstore.Query(m.store, func(c *LauncherConfig) bool { return c.IsExperimental })
}

// PresenceEnabled reports whether Discord Rich Presence is switched on.
func (m *Manager) PresenceEnabled() bool {
	return docstore.Query(m.store, func(c *LauncherConfig) bool { return c.EnableDiscordPresence })
}

// Set replaces the configuration with next. An identical record is a no-op.
// The stored schema version always survives. When the presence flag flips,
// the notifier is called after the file is written; its failure is logged
// and does not fail Set. A record that fails Validate is rejected with
// services.ErrValidation and nothing is stored.
func (m *Manager) Set(ctx context.Context, next LauncherConfig) (bool, error) {
	if err := next.Validate(); err != nil {
		return false, services.Wrap(services.ErrValidation, "launcher_config", "set", "", err)
	}

	var changes []FieldChange
	var presenceChanged bool

	changed, err := m.store.Mutate(func(cur *LauncherConfig) (bool, error) {
		changes = Diff(*cur, next)
		if len(changes) == 0 {
			return false, nil
		}
		presenceChanged = cur.EnableDiscordPresence != next.EnableDiscordPresence
		version := cur.Version
		*cur = next.Clone()
		cur.Version = version
		return true, nil
	})
	if !changed {
		if err == nil {
			m.logger.Debug("no config changes detected, skipping save")
		}
		return false, err
	}

	logger := logging.WithContext(ctx, m.logger)
	for _, c := range changes {
		logger.Info("config field changed",
			logging.String("field", c.Field),
			logging.String("old", c.Old),
			logging.String("new", c.New))
	}
	if err != nil {
		return true, err
	}

	if presenceChanged && m.presence != nil {
		if nerr := m.presence.SetEnabled(ctx, next.EnableDiscordPresence); nerr != nil {
			logging.WarnWithContext(logger, "presence update failed", "presence_toggle_failed",
				logging.Bool("enabled", next.EnableDiscordPresence),
				logging.Error(nerr),
				logging.String(logging.FieldErrorHint, "make sure Discord is running"),
				logging.String(logging.FieldImpact, "rich presence state may not match the setting until restart"))
		}
	}
	return true, nil
}

// Save writes the current configuration to disk.
func (m *Manager) Save() error {
	return m.store.Persist()
}
