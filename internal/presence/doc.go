// Package presence bridges the launcher to Discord Rich Presence.
//
// Manager implements launcherconfig.PresenceNotifier and lifecycle.ReadyHandler.
// It connects to the local Discord client over its IPC socket when enabled and
// closes the connection when disabled. Discord being absent is not an error the
// launcher cares about beyond a warning.
package presence
