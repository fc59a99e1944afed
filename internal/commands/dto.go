package commands

import (
	"time"

	"launcher/internal/capes"
	"launcher/internal/services/norisk"
)

// SavedCapeInfo is the UI view of a saved cape.
type SavedCapeInfo struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Favorite bool      `json:"favorite"`
	Tags     []string  `json:"tags"`
	AddedAt  time.Time `json:"added_at"`
}

// CapeWithSavedInfo pairs a browsed cape with its saved record, if any.
type CapeWithSavedInfo struct {
	Cape      norisk.CosmeticCape `json:"cape"`
	SavedInfo *SavedCapeInfo      `json:"saved_info"`
}

func toInfo(c capes.SavedCape) SavedCapeInfo {
	tags := c.Tags
	if tags == nil {
		tags = []string{}
	}
	return SavedCapeInfo{
		ID:       c.ID,
		Name:     c.Name,
		Favorite: c.Favorite,
		Tags:     tags,
		AddedAt:  c.AddedAt,
	}
}

func toInfoPtr(c capes.SavedCape, found bool) *SavedCapeInfo {
	if !found {
		return nil
	}
	info := toInfo(c)
	return &info
}

func toInfos(list []capes.SavedCape) []SavedCapeInfo {
	out := make([]SavedCapeInfo, 0, len(list))
	for _, c := range list {
		out = append(out, toInfo(c))
	}
	return out
}
