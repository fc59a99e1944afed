// Package logging builds the launcher's slog loggers.
//
// New selects a console or JSON handler (auto picks console when stderr is a
// terminal) and writes to stderr plus the optional log file. Every logger
// picks up the command name and correlation id from the context a record is
// logged with. The console handler turns component and document into a line
// prefix; the JSON handler keeps them as keys. WarnWithContext is used for
// recoverable failures such as a corrupt state file being replaced by
// defaults.
package logging
