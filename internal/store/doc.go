// Package store provides SQLite-backed persistence for modifier
// selections.
//
// The store is the namespaced key/value backend that modifier sets save
// their chosen subsets to:
//   - namespace: the modifier kind (or kind + reset suffix)
//   - key: the target node id
//   - value: a canonical JSON token of tracking ids (see internal/codec)
//
// # Critical Patterns
//
// Namespace Replacement:
//   - Set replaces a whole namespace in one transaction, mirroring the
//     get-mutate-set record contract modifier sets rely on
//
// Logical Time:
//   - Rows are stamped with seq from a logical clock, never timestamps
//   - The clock resumes from MAX(seq) when a database is reopened
//
// Deterministic Reads:
//   - All queries ORDER BY namespace, node_id COLLATE BINARY
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
package store
