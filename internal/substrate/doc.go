// Package substrate defines the key-value storage the record engine writes
// through, plus an in-memory implementation.
//
// A substrate is a flat dictionary of string keys to string values with the
// same surface as browser local storage: get, set, remove, key enumeration
// and a total key count. Durable implementations live in internal/store
// (SQLite) and internal/levelstore (LevelDB).
//
// # Quotas
//
// Implementations may enforce a byte quota. A write that would exceed it
// fails with *QuotaError, whose ErrorCode() is QuotaExceededCode (22, the
// code browsers report for QUOTA_EXCEEDED_ERR). Usage is measured as the sum
// of len(key)+len(value) over all entries.
//
// # Concurrency
//
// Every implementation in this module is safe for concurrent use. That does
// not make read-modify-write sequences built on top of a substrate atomic.
package substrate
