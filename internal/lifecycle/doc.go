// Package lifecycle runs post-initialization work once the host signals that
// it is ready.
//
// State managers are constructed without touching disk. Each one implements
// ReadyHandler and is registered with an Orchestrator in dependency order;
// Run invokes every handler exactly once, stops at the first failure, and
// records a Status per handler that callers can inspect afterwards.
package lifecycle
