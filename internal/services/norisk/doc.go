// Package norisk is a thin client for the launcher's HTTP API.
//
// Every call takes the caller's bearer token and an experimental flag that
// selects the staging base URL. Failures are tagged with the services package
// markers: ErrNetwork when the request never completed, ErrStatus (wrapping a
// *services.StatusError) for non-2xx replies and ErrDecode when the body does
// not match the expected type. Callers treat all three as "operation failed,
// state unchanged".
package norisk
