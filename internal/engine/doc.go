// Package engine implements the storage engine for one named record
// collection on top of a key-value substrate.
//
// PERSISTED LAYOUT:
//
// For a collection named "Todo":
//
//	Todo          -> "id1,id2,id3"        (the collection index)
//	Todo-id1      -> {"id":"id1",...}     (one entry per record)
//
// The index lists member ids in the order they were first added and never
// holds duplicates. The engine keeps an in-memory copy, loaded once by New
// and written back after every membership change.
//
// RESULTS:
//
// Every operation returns (value, error). Errors are *Error values carrying
// an ErrorKind so callers can classify failures without inspecting
// messages. A missing record is not an error for Find or Destroy.
//
// Create and Update report success only after reading the entry back and
// confirming it matches what was written.
//
// CONCURRENCY:
//
// An Engine is not safe for concurrent use. The index is a read-modify-write
// cycle over the substrate with no locking, so two engines sharing one
// collection key can lose each other's index updates. Callers that need
// concurrent access must serialize it themselves.
package engine
