package substrate

import (
	"errors"
	"fmt"
)

// QuotaExceededCode is the numeric code carried by quota failures. It matches
// the legacy DOMException code browsers use for QUOTA_EXCEEDED_ERR.
const QuotaExceededCode = 22

// ErrUnavailable reports that no substrate is present.
var ErrUnavailable = errors.New("environment does not support key-value storage")

// QuotaError is returned by Set when the write would push usage past the
// substrate's quota.
type QuotaError struct {
	// Key is the key being written.
	Key string

	// Used is the usage before the write.
	Used int64

	// Need is the usage the write would have produced.
	Need int64

	// Limit is the configured quota.
	Limit int64
}

// Error implements the error interface.
func (e *QuotaError) Error() string {
	return fmt.Sprintf("QuotaExceededError: setting the value of %q exceeded the quota (%d > %d bytes)", e.Key, e.Need, e.Limit)
}

// ErrorCode returns QuotaExceededCode.
func (e *QuotaError) ErrorCode() int {
	return QuotaExceededCode
}

// Coder is implemented by errors that carry a numeric code.
type Coder interface {
	ErrorCode() int
}

// CodeOf returns the code of the first error in err's chain implementing
// Coder, or 0 when there is none.
func CodeOf(err error) int {
	var c Coder
	if errors.As(err, &c) {
		return c.ErrorCode()
	}
	return 0
}

// IsQuotaExceeded reports whether err carries QuotaExceededCode.
func IsQuotaExceeded(err error) bool {
	return CodeOf(err) == QuotaExceededCode
}

// CheckQuota returns a *QuotaError when replacing an entry of size old with
// one of size next would push usage past limit. Shrinking writes always
// pass. A limit of zero or less disables the check.
func CheckQuota(key string, used, old, next, limit int64) error {
	if limit <= 0 {
		return nil
	}
	need := used - old + next
	if need > limit && next > old {
		return &QuotaError{Key: key, Used: used, Need: need, Limit: limit}
	}
	return nil
}
