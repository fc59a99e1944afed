// Command launcher is a command-line front end to the launcher's state
// backend. Each invocation loads the bootstrap configuration, starts the
// backend (taking the single-instance lock), runs one command and exits.
package main
