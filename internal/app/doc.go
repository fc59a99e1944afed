// Package app assembles the launcher backend.
//
// App is the explicit context object handed to the host: it owns the state
// managers, the presence bridge, the API client and the command service. New
// only wires components together; Start acquires the single-instance lock and
// runs the ready handlers, after which commands are accepted.
package app
