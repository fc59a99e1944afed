// Package config loads, normalizes, and validates the launcher's bootstrap
// settings.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// LAUNCHER_API_TOKEN. The Config type answers the questions that must be
// settled before any state manager is constructed: where the data directory
// lives, which API endpoints to talk to, and how to log.
//
// User preferences edited from the UI are not stored here. They belong to the
// launcher_config.json document managed by the launcherconfig package.
package config
