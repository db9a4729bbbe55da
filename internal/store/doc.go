// Package store provides a SQLite-backed durable key-value substrate.
//
// Every substrate entry is one row of the items table:
//
//	items(key TEXT PRIMARY KEY, value TEXT NOT NULL) WITHOUT ROWID
//
// Keys compare with BINARY collation, so a collection's entries
// ("Todo-<id>") form one contiguous key range and prefix scans are range
// queries on the primary key rather than table scans.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//
// # Quota
//
// WithQuota caps total usage, measured in bytes as the sum of key and value
// lengths. The check and the write run in one transaction.
package store
