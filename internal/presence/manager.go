package presence

import (
	"context"
	"log/slog"
	"sync"

	"launcher/internal/lifecycle"
	"launcher/internal/logging"
)

// Option customises a Manager.
type Option func(*Manager)

// WithLogger sets the manager logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) { m.logger = logger }
}

// WithInitialState supplies the flag read on readiness, typically the loaded
// launcher configuration.
func WithInitialState(fn func() bool) Option {
	return func(m *Manager) { m.initial = fn }
}

// WithActivity overrides the activity shown while connected.
func WithActivity(a Activity) Option {
	return func(m *Manager) { m.activity = a }
}

// Manager toggles Rich Presence on and off.
type Manager struct {
	client   Client
	logger   *slog.Logger
	initial  func() bool
	activity Activity

	mu      sync.Mutex
	enabled bool
}

// New returns a manager driving client. A nil client behaves as NoopClient.
func New(client Client, opts ...Option) *Manager {
	if client == nil {
		client = NoopClient{}
	}
	m := &Manager{
		client:   client,
		activity: Activity{Details: "In the launcher"},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	m.logger = logging.NewComponentLogger(m.logger, "presence")
	return m
}

// Name identifies the manager to the lifecycle orchestrator.
func (m *Manager) Name() string { return "presence" }

// OnReady applies the initial state. A failure to reach Discord is logged and
// does not block startup.
func (m *Manager) OnReady(ctx context.Context, _ lifecycle.Host) error {
	if m.initial == nil || !m.initial() {
		return nil
	}
	if err := m.SetEnabled(ctx, true); err != nil {
		logging.WarnWithContext(m.logger, "discord presence unavailable", "presence_connect_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "start Discord or disable presence in settings"),
			logging.String(logging.FieldImpact, "rich presence not shown"))
	}
	return nil
}

// Enabled reports the last state applied successfully.
func (m *Manager) Enabled() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.enabled
}

// SetEnabled connects and publishes the activity, or closes the connection.
func (m *Manager) SetEnabled(ctx context.Context, enabled bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !enabled {
		m.enabled = false
		if err := m.client.Close(); err != nil {
			return err
		}
		m.logger.Info("discord presence disabled")
		return nil
	}

	if err := m.client.Connect(ctx); err != nil {
		return err
	}
	if err := m.client.SetActivity(ctx, m.activity); err != nil {
		return err
	}
	m.enabled = true
	m.logger.Info("discord presence enabled")
	return nil
}

// Close releases the client connection.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.enabled = false
	return m.client.Close()
}
