// Package services defines shared utilities consumed by the command layer and
// the remote API integrations.
//
// Key responsibilities:
//   - Context helpers that stamp command names and correlation identifiers
//     for logging.
//   - Structured error markers plus the Wrap helper that classify remote
//     failures (network, non-success status, decode) so callers can match
//     them with errors.Is.
//
// Use these helpers when wiring new API clients so failure reporting stays
// uniform across integrations.
package services
