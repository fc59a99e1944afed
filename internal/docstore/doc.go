// Package docstore keeps one JSON document per state domain in memory and on
// disk.
//
// A Manager owns a single value of a Document type. Construction is total and
// touches nothing on disk; Load (or OnReady when driven by the lifecycle
// orchestrator) reads the backing file once, falling back to defaults when the
// file is absent or unreadable and rewriting it so the next start is clean.
// Readers receive clones or a scoped view under a read lock. Mutations run on a
// clone under the write lock and are committed only when they report a change,
// after which the full document is persisted outside the document lock.
//
// Persists are serialised by a dedicated lock and written atomically via a
// temporary file in the target directory followed by a rename.
package docstore
