package launcherconfig

import (
	"fmt"
	"strconv"
)

// FieldChange records one differing field between two configurations.
type FieldChange struct {
	Field string
	Old   string
	New   string
}

// Diff lists the fields that differ between current and next. The schema
// version is not compared.
func Diff(current, next LauncherConfig) []FieldChange {
	var changes []FieldChange
	add := func(field, before, after string) {
		if before != after {
			changes = append(changes, FieldChange{Field: field, Old: before, New: after})
		}
	}

	add("is_experimental", strconv.FormatBool(current.IsExperimental), strconv.FormatBool(next.IsExperimental))
	add("auto_check_updates", strconv.FormatBool(current.AutoCheckUpdates), strconv.FormatBool(next.AutoCheckUpdates))
	add("concurrent_downloads", strconv.Itoa(current.ConcurrentDownloads), strconv.Itoa(next.ConcurrentDownloads))
	add("enable_discord_presence", strconv.FormatBool(current.EnableDiscordPresence), strconv.FormatBool(next.EnableDiscordPresence))
	add("check_beta_channel", strconv.FormatBool(current.CheckBetaChannel), strconv.FormatBool(next.CheckBetaChannel))
	add("profile_grouping_criterion", optString(current.ProfileGroupingCriterion), optString(next.ProfileGroupingCriterion))
	add("open_logs_after_starting", strconv.FormatBool(current.OpenLogsAfterStarting), strconv.FormatBool(next.OpenLogsAfterStarting))
	add("concurrent_io_limit", strconv.Itoa(current.ConcurrentIOLimit), strconv.Itoa(next.ConcurrentIOLimit))
	add("last_played_profile", optString(current.LastPlayedProfile), optString(next.LastPlayedProfile))
	add("hooks.pre_launch", optString(current.Hooks.PreLaunch), optString(next.Hooks.PreLaunch))
	add("hooks.wrapper", optString(current.Hooks.Wrapper), optString(next.Hooks.Wrapper))
	add("hooks.post_exit", optString(current.Hooks.PostExit), optString(next.Hooks.PostExit))
	add("hide_on_process_start", strconv.FormatBool(current.HideOnProcessStart), strconv.FormatBool(next.HideOnProcessStart))
	return changes
}

// optString renders an optional value, distinguishing absent from empty.
func optString[T any](p *T) string {
	if p == nil {
		return "<none>"
	}
	return strconv.Quote(fmt.Sprint(*p))
}
