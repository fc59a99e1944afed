package capes

import (
	"path/filepath"
	"slices"
	"strings"
	"time"
)

// FileName is the catalog's file name inside the data directory.
const FileName = "saved_capes.json"

// SavedCape is one entry in the catalog.
type SavedCape struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Favorite bool      `json:"favorite"`
	Tags     []string  `json:"tags"`
	AddedAt  time.Time `json:"added_at"`
}

// Catalog is the persisted document.
type Catalog struct {
	Capes []SavedCape `json:"capes"`
}

// DefaultCatalog returns an empty catalog.
func DefaultCatalog() Catalog {
	return Catalog{Capes: []SavedCape{}}
}

// DefaultPath returns the catalog path inside dataDir.
func DefaultPath(dataDir string) string {
	return filepath.Join(dataDir, FileName)
}

// Clone returns a deep copy.
func (s SavedCape) Clone() SavedCape {
	s.Tags = slices.Clone(s.Tags)
	if s.Tags == nil {
		s.Tags = []string{}
	}
	return s
}

// HasTag reports whether the cape carries tag.
func (s SavedCape) HasTag(tag string) bool {
	return slices.Contains(s.Tags, tag)
}

// Clone returns a deep copy.
func (c Catalog) Clone() Catalog {
	out := Catalog{Capes: make([]SavedCape, len(c.Capes))}
	for i, cape := range c.Capes {
		out.Capes[i] = cape.Clone()
	}
	return out
}

// Normalize collapses duplicate ids and duplicate tags. When an id appears more
// than once the last record wins and keeps the position of the first.
func (c *Catalog) Normalize() bool {
	changed := false
	if c.Capes == nil {
		c.Capes = []SavedCape{}
	}

	index := make(map[string]int, len(c.Capes))
	out := c.Capes[:0:0]
	for _, cape := range c.Capes {
		tags := uniqueTags(cape.Tags)
		if !slices.Equal(tags, cape.Tags) {
			changed = true
		}
		cape.Tags = tags
		if i, ok := index[cape.ID]; ok {
			out[i] = cape
			changed = true
			continue
		}
		index[cape.ID] = len(out)
		out = append(out, cape)
	}
	c.Capes = out
	return changed
}

func (c *Catalog) indexOf(id string) int {
	return slices.IndexFunc(c.Capes, func(s SavedCape) bool { return s.ID == id })
}

// uniqueTags trims tags, drops empty ones and removes duplicates while keeping
// first-seen order. A nil input yields an empty slice.
func uniqueTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" || slices.Contains(out, tag) {
			continue
		}
		out = append(out, tag)
	}
	return out
}
