package launcherconfig

import (
	"fmt"
	"path/filepath"

	"github.com/google/uuid"
)

// FileName is the document's file name inside the data directory.
const FileName = "launcher_config.json"

// CurrentVersion is the schema version written by this build.
const CurrentVersion uint32 = 1

const (
	defaultConcurrentDownloads = 5
	defaultConcurrentIOLimit   = 10
	defaultGroupingCriterion   = "group"
)

// Hooks holds optional commands run around a game launch.
type Hooks struct {
	PreLaunch *string `json:"pre_launch"`
	Wrapper   *string `json:"wrapper"`
	PostExit  *string `json:"post_exit"`
}

// LauncherConfig is the persisted preferences record.
type LauncherConfig struct {
	Version                  uint32     `json:"version"`
	IsExperimental           bool       `json:"is_experimental"`
	AutoCheckUpdates         bool       `json:"auto_check_updates"`
	ConcurrentDownloads      int        `json:"concurrent_downloads"`
	EnableDiscordPresence    bool       `json:"enable_discord_presence"`
	CheckBetaChannel         bool       `json:"check_beta_channel"`
	ProfileGroupingCriterion *string    `json:"profile_grouping_criterion"`
	OpenLogsAfterStarting    bool       `json:"open_logs_after_starting"`
	ConcurrentIOLimit        int        `json:"concurrent_io_limit"`
	LastPlayedProfile        *uuid.UUID `json:"last_played_profile"`
	Hooks                    Hooks      `json:"hooks"`
	HideOnProcessStart       bool       `json:"hide_on_process_start"`
}

// Default returns the configuration used when no file exists.
func Default() LauncherConfig {
	return LauncherConfig{
		Version:                  CurrentVersion,
		AutoCheckUpdates:         true,
		ConcurrentDownloads:      defaultConcurrentDownloads,
		EnableDiscordPresence:    true,
		ProfileGroupingCriterion: stringPtr(defaultGroupingCriterion),
		OpenLogsAfterStarting:    true,
		ConcurrentIOLimit:        defaultConcurrentIOLimit,
	}
}

// DefaultPath returns the document path inside dataDir.
func DefaultPath(dataDir string) string {
	return filepath.Join(dataDir, FileName)
}

// Clone returns a deep copy.
func (c LauncherConfig) Clone() LauncherConfig {
	out := c
	out.ProfileGroupingCriterion = clonePtr(c.ProfileGroupingCriterion)
	out.LastPlayedProfile = clonePtr(c.LastPlayedProfile)
	out.Hooks = c.Hooks.Clone()
	return out
}

// Clone returns a deep copy.
func (h Hooks) Clone() Hooks {
	return Hooks{
		PreLaunch: clonePtr(h.PreLaunch),
		Wrapper:   clonePtr(h.Wrapper),
		PostExit:  clonePtr(h.PostExit),
	}
}

// Normalize migrates older documents and resets limits that cannot be used.
func (c *LauncherConfig) Normalize() bool {
	changed := false
	if c.Version < CurrentVersion {
		c.Version = CurrentVersion
		changed = true
	}
	if c.ConcurrentDownloads <= 0 {
		c.ConcurrentDownloads = defaultConcurrentDownloads
		changed = true
	}
	if c.ConcurrentIOLimit <= 0 {
		c.ConcurrentIOLimit = defaultConcurrentIOLimit
		changed = true
	}
	return changed
}

// Validate rejects values that Normalize would reset on the next load.
func (c LauncherConfig) Validate() error {
	if c.ConcurrentDownloads <= 0 {
		return fmt.Errorf("concurrent_downloads must be positive, got %d", c.ConcurrentDownloads)
	}
	if c.ConcurrentIOLimit <= 0 {
		return fmt.Errorf("concurrent_io_limit must be positive, got %d", c.ConcurrentIOLimit)
	}
	return nil
}

func stringPtr(s string) *string { return &s }

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
