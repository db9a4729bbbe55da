package engine

import (
	"errors"
	"fmt"

	"github.com/roach88/kvrecord/internal/substrate"
)

// ErrorKind categorizes engine errors.
type ErrorKind string

const (
	// KindSubstrateUnavailable indicates no substrate was provided.
	KindSubstrateUnavailable ErrorKind = "SUBSTRATE_UNAVAILABLE"

	// KindQuotaExceeded indicates the substrate rejected a write for lack of space.
	KindQuotaExceeded ErrorKind = "QUOTA_EXCEEDED"

	// KindNotFound indicates a written record could not be read back.
	KindNotFound ErrorKind = "NOT_FOUND"

	// KindInvalidID indicates an identifier that cannot be stored in the index.
	KindInvalidID ErrorKind = "INVALID_ID"

	// KindStorage covers every other substrate or serialization failure.
	KindStorage ErrorKind = "STORAGE"
)

var (
	// ErrNotFound is the cause of KindNotFound errors.
	ErrNotFound = errors.New("record not found")

	// ErrReadBackMismatch is returned when a re-read entry differs from what was written.
	ErrReadBackMismatch = errors.New("stored entry does not match written payload")

	// ErrNoStorage is returned by resolvers that have no engine attached.
	ErrNoStorage = errors.New("no storage attached")
)

// Error is returned by every engine operation.
type Error struct {
	// Kind identifies the error category.
	Kind ErrorKind

	// Op is the engine operation ("create", "find", ...).
	Op string

	// Key is the substrate key involved, when there is one.
	Key string

	// Err is the underlying cause.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("%s %s: %s: %v", e.Op, e.Key, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Message returns the cause's message without the engine's context, for
// surfacing to end users.
func (e *Error) Message() string {
	if e.Err == nil {
		return string(e.Kind)
	}
	return e.Err.Error()
}

// KindOf returns the ErrorKind of err, or "" when err is not an *Error.
// Uses errors.As to handle wrapped errors.
func KindOf(err error) ErrorKind {
	var ee *Error
	if errors.As(err, &ee) {
		return ee.Kind
	}
	return ""
}

// IsNotFound returns true if err is a KindNotFound error.
func IsNotFound(err error) bool {
	return KindOf(err) == KindNotFound
}

// IsQuotaExceeded returns true if err is a KindQuotaExceeded error.
func IsQuotaExceeded(err error) bool {
	return KindOf(err) == KindQuotaExceeded
}

// wrap classifies a substrate error.
func wrap(op, key string, err error) *Error {
	kind := KindStorage
	if substrate.IsQuotaExceeded(err) {
		kind = KindQuotaExceeded
	}
	return &Error{Kind: kind, Op: op, Key: key, Err: err}
}
