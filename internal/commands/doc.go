// Package commands exposes the host-facing operations of the launcher backend.
//
// Each method annotates the context with the command name and a request id,
// refuses to run before the state managers have loaded, and shapes manager
// records into the DTOs the UI consumes. Absent capes are reported as nil
// results, never as errors.
package commands
