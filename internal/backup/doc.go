// Package backup creates, prunes and restores full-dataset snapshots.
//
// # Snapshots
//
// A backup is an immutable copy of every article and every sale taken at
// one instant. The Manager is the only writer that replaces the live
// article and sale key spaces, which it does during Restore.
//
// # Retention
//
// Every create path follows one rule: insert the new snapshot, then keep
// the newest Keep backups by date and delete the rest. Manual, action and
// automatic backups share one FIFO. Create and prune run under the
// Manager's mutex, so concurrent triggers in one process never leave more
// than Keep backups behind.
//
// # Restore
//
// Restore loads the requested snapshot, takes a safety backup of the
// current state, then replaces articles and sales in that order. Each
// replacement is atomic; the pair is not. A failure between them leaves
// articles restored and sales untouched, and the returned error names the
// failed step. The safety backup is always written first.
//
// # Scheduling
//
// Scheduler drives automatic backups from a ticker and from lifecycle
// hooks (OnForeground, OnTeardown). Its clock and ticker are injected so
// tests control time. Scheduler failures are logged and never returned.
package backup
