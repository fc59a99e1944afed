// Package capes manages the saved cape catalog (saved_capes.json).
//
// Capes are keyed by their content hash. Every write goes through a
// docstore.Manager, so callers always receive copies and each effective change
// rewrites the whole catalog. Tags behave as a set: duplicates are collapsed on
// every mutation and when the file is loaded.
package capes
