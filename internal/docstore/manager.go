package docstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"launcher/internal/lifecycle"
	"launcher/internal/logging"
)

// ErrAlreadyLoaded is returned by a second call to Load.
var ErrAlreadyLoaded = errors.New("document already loaded")

var errNotObject = errors.New("state file does not hold a JSON object")

// Document is a JSON-serialisable value that can produce a deep copy of itself.
type Document[T any] interface {
	Clone() T
}

// Normalizer is implemented by documents that repair or migrate themselves
// after decoding. Normalize reports whether it changed anything, in which case
// the repaired document is written back.
type Normalizer interface {
	Normalize() bool
}

// Option customises a Manager.
type Option func(*options)

type options struct {
	logger   *slog.Logger
	metrics  *Metrics
	fileMode os.FileMode
}

// WithLogger sets the logger used for load and persist events.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithMetrics attaches Prometheus metrics. Several managers may share one
// Metrics value; series are labelled by document name.
func WithMetrics(m *Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithFileMode overrides the permission bits of the backing file.
func WithFileMode(mode os.FileMode) Option {
	return func(o *options) { o.fileMode = mode }
}

// Manager owns one document of type T and its backing file.
type Manager[T Document[T]] struct {
	name     string
	path     string
	defaults func() T
	logger   *slog.Logger
	metrics  *Metrics
	fileMode os.FileMode

	mu  sync.RWMutex
	doc T

	persistMu sync.Mutex
	loaded    atomic.Bool
}

// New constructs a manager holding defaults(). It performs no I/O.
func New[T Document[T]](name, path string, defaults func() T, opts ...Option) *Manager[T] {
	o := options{fileMode: 0o644}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	logger := logging.NewComponentLogger(o.logger, "docstore").With(logging.Document(name))

	return &Manager[T]{
		name:     name,
		path:     path,
		defaults: defaults,
		logger:   logger,
		metrics:  o.metrics,
		fileMode: o.fileMode,
		doc:      defaults(),
	}
}

// Name returns the document name used in logs and metrics.
func (m *Manager[T]) Name() string { return m.name }

// Path returns the backing file path.
func (m *Manager[T]) Path() string { return m.path }

// Loaded reports whether Load has been called.
func (m *Manager[T]) Loaded() bool { return m.loaded.Load() }

// OnReady loads the document when the host signals readiness.
func (m *Manager[T]) OnReady(ctx context.Context, _ lifecycle.Host) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return m.Load()
}

// Load reads the backing file once. An absent file materialises the defaults.
// An unreadable or undecodable file is replaced by the defaults and a warning
// is logged; only a failure to write the replacement is returned.
func (m *Manager[T]) Load() error {
	if !m.loaded.CompareAndSwap(false, true) {
		return ErrAlreadyLoaded
	}

	data, err := os.ReadFile(m.path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		m.replace(m.defaults())
		m.metrics.observeLoad(m.name, LoadCreated)
		m.logger.Info("state file absent, writing defaults", logging.String("path", m.path))
		return m.Persist()
	case err != nil:
		return m.fallback(fmt.Errorf("read state file: %w", err))
	}

	if trimmed := bytes.TrimSpace(data); len(trimmed) == 0 || trimmed[0] != '{' {
		return m.fallback(errNotObject)
	}
	doc := m.defaults()
	if err := json.Unmarshal(data, &doc); err != nil {
		return m.fallback(fmt.Errorf("decode state file: %w", err))
	}

	repaired := false
	if n, ok := any(&doc).(Normalizer); ok {
		repaired = n.Normalize()
	}
	m.replace(doc)
	m.metrics.observeLoad(m.name, LoadLoaded)
	m.logger.Debug("state loaded", logging.String("path", m.path), logging.Int("bytes", len(data)))

	if repaired {
		m.logger.Info("state normalized on load, rewriting", logging.String("path", m.path))
		return m.Persist()
	}
	return nil
}

func (m *Manager[T]) fallback(cause error) error {
	logging.WarnWithContext(m.logger, "state file unusable, falling back to defaults", "state_load_failed",
		logging.String("path", m.path),
		logging.Error(cause),
		logging.String(logging.FieldErrorHint, "previous contents are overwritten; restore from backup if needed"),
		logging.String(logging.FieldImpact, "stored values reset to defaults"))
	m.replace(m.defaults())
	m.metrics.observeLoad(m.name, LoadRecovered)
	return m.Persist()
}

func (m *Manager[T]) replace(doc T) {
	m.mu.Lock()
	m.doc = doc
	m.mu.Unlock()
}

// Snapshot returns a deep copy of the current document.
func (m *Manager[T]) Snapshot() T {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.doc.Clone()
}

// Read calls fn with the current document under the read lock. fn must not
// retain or modify the value.
func (m *Manager[T]) Read(fn func(*T)) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	fn(&m.doc)
}

// Query runs fn under the manager's read lock and returns its result.
func Query[T Document[T], R any](m *Manager[T], fn func(*T) R) R {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return fn(&m.doc)
}

// Mutate applies fn to a clone of the document under the write lock. When fn
// returns an error the clone is discarded. When it reports a change the clone
// becomes current and the document is persisted after the lock is released.
// A persist failure is returned with changed set; memory keeps the new value.
func (m *Manager[T]) Mutate(fn func(*T) (bool, error)) (bool, error) {
	m.mu.Lock()
	draft := m.doc.Clone()
	changed, err := fn(&draft)
	if err != nil {
		m.mu.Unlock()
		return false, err
	}
	if !changed {
		m.mu.Unlock()
		m.metrics.observeSkipped(m.name)
		return false, nil
	}
	m.doc = draft
	m.mu.Unlock()

	if err := m.Persist(); err != nil {
		return true, err
	}
	return true, nil
}

// Persist writes the full current document to the backing file.
func (m *Manager[T]) Persist() (err error) {
	m.persistMu.Lock()
	defer m.persistMu.Unlock()

	started := time.Now()
	defer func() { m.metrics.observePersist(m.name, started, err) }()

	m.mu.RLock()
	data, err := json.MarshalIndent(m.doc, "", "  ")
	m.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("encode %s: %w", m.name, err)
	}

	if err := writeFileAtomic(m.path, data, m.fileMode); err != nil {
		m.logger.Error("state persist failed",
			logging.String(logging.FieldEventType, "state_persist_failed"),
			logging.String("path", m.path),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check permissions and free space in the data directory"))
		return fmt.Errorf("persist %s: %w", m.name, err)
	}
	m.logger.Debug("state persisted", logging.String("path", m.path), logging.Int("bytes", len(data)))
	return nil
}
