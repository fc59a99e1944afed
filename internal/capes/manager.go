package capes

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"

	"launcher/internal/docstore"
	"launcher/internal/lifecycle"
	"launcher/internal/logging"
)

const documentName = "saved_capes"

// ErrEmptyID is returned when a cape id is blank.
var ErrEmptyID = errors.New("cape id cannot be empty")

// PropertyUpdate lists the fields to change on an existing cape. Nil fields
// are left untouched.
type PropertyUpdate struct {
	Name     *string
	Favorite *bool
	Tags     *[]string
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

// WithClock overrides the clock used to stamp added_at.
func WithClock(clock clockwork.Clock) Option {
	return func(m *Manager) { m.clock = clock }
}

// Manager owns saved_capes.json.
type Manager struct {
	logger  *slog.Logger
	metrics *docstore.Metrics
	clock   clockwork.Clock
	store   *docstore.Manager[Catalog]
}

// New constructs a manager for the catalog at path. No I/O happens until
// OnReady runs.
func New(path string, opts ...Option) *Manager {
	m := &Manager{clock: clockwork.NewRealClock()}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	base := m.logger
	m.logger = logging.NewComponentLogger(base, "capes")
	m.store = docstore.New(documentName, path, DefaultCatalog,
		docstore.WithLogger(base),
		docstore.WithMetrics(m.metrics))
	return m
}

// Name identifies the manager to the lifecycle orchestrator.
func (m *Manager) Name() string { return documentName }

// Path returns the backing file path.
func (m *Manager) Path() string { return m.store.Path() }

// Loaded reports whether the catalog has been read from disk.
func (m *Manager) Loaded() bool { return m.store.Loaded() }

// OnReady loads the catalog and stamps entries stored without a timestamp.
func (m *Manager) OnReady(ctx context.Context, host lifecycle.Host) error {
	if err := m.store.OnReady(ctx, host); err != nil {
		return err
	}
	now := m.now()
	stamped, err := m.store.Mutate(func(c *Catalog) (bool, error) {
		changed := false
		for i := range c.Capes {
			if c.Capes[i].AddedAt.IsZero() {
				c.Capes[i].AddedAt = now
				changed = true
			}
		}
		return changed, nil
	})
	if stamped {
		m.logger.Info("stamped capes missing added_at")
	}
	return err
}

// All returns every saved cape in catalog order.
func (m *Manager) All() []SavedCape {
	return m.Snapshot().Capes
}

// Snapshot returns a copy of the whole catalog.
func (m *Manager) Snapshot() Catalog {
	return m.store.Snapshot()
}

// Count returns the number of saved capes.
func (m *Manager) Count() int {
	return docstore.Query(m.store, func(c *Catalog) int { return len(c.Capes) })
}

// ByID returns the cape with id.
func (m *Manager) ByID(id string) (SavedCape, bool) {
	var cape SavedCape
	found := false
	m.store.Read(func(c *Catalog) {
		if i := c.indexOf(id); i >= 0 {
			cape = c.Capes[i].Clone()
			found = true
		}
	})
	return cape, found
}

// Favorites returns capes marked as favorite.
func (m *Manager) Favorites() []SavedCape {
	return m.filter(func(s SavedCape) bool { return s.Favorite })
}

// ByTag returns capes carrying tag. Surrounding whitespace is ignored, as it
// is when tags are stored.
func (m *Manager) ByTag(tag string) []SavedCape {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return []SavedCape{}
	}
	return m.filter(func(s SavedCape) bool { return s.HasTag(tag) })
}

func (m *Manager) filter(keep func(SavedCape) bool) []SavedCape {
	return docstore.Query(m.store, func(c *Catalog) []SavedCape {
		out := make([]SavedCape, 0, len(c.Capes))
		for _, cape := range c.Capes {
			if keep(cape) {
				out = append(out, cape.Clone())
			}
		}
		return out
	})
}

// Add inserts cape or replaces the entry with the same id in place.
func (m *Manager) Add(cape SavedCape) error {
	if strings.TrimSpace(cape.ID) == "" {
		return ErrEmptyID
	}
	cape = cape.Clone()
	cape.Tags = uniqueTags(cape.Tags)
	if cape.AddedAt.IsZero() {
		cape.AddedAt = m.now()
	}

	replaced := false
	_, err := m.store.Mutate(func(c *Catalog) (bool, error) {
		if i := c.indexOf(cape.ID); i >= 0 {
			c.Capes[i] = cape
			replaced = true
		} else {
			c.Capes = append(c.Capes, cape)
		}
		return true, nil
	})
	if err != nil {
		return err
	}
	m.logger.Debug("saved cape stored",
		logging.String("cape_id", cape.ID),
		logging.Bool("replaced", replaced))
	return nil
}

// Save records a cape stamped with the current time and upserts it.
func (m *Manager) Save(id, name string, favorite bool, tags []string) (SavedCape, error) {
	cape := SavedCape{
		ID:       id,
		Name:     name,
		Favorite: favorite,
		Tags:     uniqueTags(tags),
		AddedAt:  m.now(),
	}
	if err := m.Add(cape); err != nil {
		return SavedCape{}, err
	}
	return cape.Clone(), nil
}

// Remove deletes the cape with id and reports whether it existed.
func (m *Manager) Remove(id string) (bool, error) {
	removed, err := m.store.Mutate(func(c *Catalog) (bool, error) {
		i := c.indexOf(id)
		if i < 0 {
			return false, nil
		}
		c.Capes = slices.Delete(c.Capes, i, i+1)
		return true, nil
	})
	if removed && err == nil {
		m.logger.Debug("saved cape removed", logging.String("cape_id", id))
	}
	return removed, err
}

// UpdateProperties applies update to the cape with id. It returns false when
// no such cape exists.
func (m *Manager) UpdateProperties(id string, update PropertyUpdate) (SavedCape, bool, error) {
	return m.modify(id, func(s *SavedCape) bool {
		changed := false
		if update.Name != nil && s.Name != *update.Name {
			s.Name = *update.Name
			changed = true
		}
		if update.Favorite != nil && s.Favorite != *update.Favorite {
			s.Favorite = *update.Favorite
			changed = true
		}
		if update.Tags != nil {
			tags := uniqueTags(*update.Tags)
			if !slices.Equal(tags, s.Tags) {
				s.Tags = tags
				changed = true
			}
		}
		return changed
	})
}

// ToggleFavorite flips the favorite flag of the cape with id.
func (m *Manager) ToggleFavorite(id string) (SavedCape, bool, error) {
	return m.modify(id, func(s *SavedCape) bool {
		s.Favorite = !s.Favorite
		return true
	})
}

// AddTag adds tag to the cape with id. Adding a present tag does not write.
func (m *Manager) AddTag(id, tag string) (SavedCape, bool, error) {
	tag = strings.TrimSpace(tag)
	return m.modify(id, func(s *SavedCape) bool {
		if tag == "" || s.HasTag(tag) {
			return false
		}
		s.Tags = append(s.Tags, tag)
		return true
	})
}

// RemoveTag removes tag from the cape with id. Removing an absent tag does not
// write.
func (m *Manager) RemoveTag(id, tag string) (SavedCape, bool, error) {
	tag = strings.TrimSpace(tag)
	return m.modify(id, func(s *SavedCape) bool {
		before := len(s.Tags)
		s.Tags = slices.DeleteFunc(s.Tags, func(t string) bool { return t == tag })
		return len(s.Tags) != before
	})
}

// modify runs edit against the cape with id and returns the resulting record.
func (m *Manager) modify(id string, edit func(*SavedCape) bool) (SavedCape, bool, error) {
	var result SavedCape
	found := false
	_, err := m.store.Mutate(func(c *Catalog) (bool, error) {
		i := c.indexOf(id)
		if i < 0 {
			return false, nil
		}
		found = true
		changed := edit(&c.Capes[i])
		result = c.Capes[i].Clone()
		return changed, nil
	})
	if err != nil {
		return SavedCape{}, found, err
	}
	return result, found, nil
}

func (m *Manager) now() time.Time {
	return m.clock.Now().UTC()
}
