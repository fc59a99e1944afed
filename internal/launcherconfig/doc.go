// Package launcherconfig manages the user preferences document
// (launcher_config.json) edited from the launcher UI.
//
// The Manager wraps a docstore.Manager, so the file is loaded once on
// readiness, repaired when unreadable, and rewritten in full on every change.
// Set compares the incoming record field by field, never lets a client
// overwrite the schema version, and informs the presence notifier when the
// Discord Rich Presence flag flips.
package launcherconfig
