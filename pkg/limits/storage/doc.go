// Package storage provides persistence backends for limit rules,
// violations, templates, and notification subscriptions.
//
// Two implementations are available:
//
//   - MemoryStore: in-memory storage for tests and ephemeral deployments.
//     All data is lost when the process exits.
//
//   - SQLiteStore: durable single-file storage using SQLite in WAL mode,
//     suitable for single-instance deployments.
//
// Both implementations satisfy the limits.Store interface and are safe for
// concurrent use.
package storage
