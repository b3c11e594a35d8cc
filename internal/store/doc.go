// Package store provides SQLite-backed durable storage for bruch.
//
// The store holds four independent key spaces:
//   - articles: keyed by EAN, secondary index on name
//   - sales: keyed by auto-increment id, secondary index on date
//   - backups: keyed by auto-increment id, secondary index on date
//   - settings: small key/value preferences
//
// # Ordering
//
//   - ListArticles returns insertion order (ORDER BY rowid)
//   - ListSales and ListBackups return newest first (ORDER BY date DESC, id DESC)
//
// # Transactions
//
// Every bulk replace (ReplaceArticles, ReplaceSales, UpdateArticles) runs in a
// single transaction scoped to one key space. Operations spanning two key
// spaces, such as a restore, are sequenced by the caller: a fault between
// the two steps leaves them at different snapshot points.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - one open connection: statements from this process never interleave
//
// A Store starts uninitialized. Until Init succeeds every method returns a
// storage error wrapping ErrNotInitialized.
package store
