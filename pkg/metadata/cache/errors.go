package cache

import (
	"errors"
	"fmt"

	"github.com/nimbusnfs/nimbusnfs/internal/logger"
)

// ErrorCode classifies the reportable error taxonomy the cache surfaces to
// callers. It deliberately excludes internal invariant violations, which are
// never reportable errors; see Fatal below.
type ErrorCode int

const (
	// CodeStale means the entry or handle no longer refers to a live
	// backend object.
	CodeStale ErrorCode = iota + 1
	// CodeNotExist means an authoritative lookup miss: a complete
	// directory with no matching dirent.
	CodeNotExist
	// CodeTooManyCollisions means dirent insertion exhausted the AVL
	// index's probe bound.
	CodeTooManyCollisions
	// CodeConflict means a rename/create race with an upcall that was
	// retried once internally and still lost.
	CodeConflict
	// CodeBackend wraps a pass-through status from the sub-backend.
	CodeBackend
	// CodeShutdown means the call arrived after the reaper began
	// teardown.
	CodeShutdown
)

func (c ErrorCode) String() string {
	switch c {
	case CodeStale:
		return "STALE"
	case CodeNotExist:
		return "NOENT"
	case CodeTooManyCollisions:
		return "TOO_MANY_COLLISIONS"
	case CodeConflict:
		return "CONFLICT"
	case CodeBackend:
		return "BACKEND"
	case CodeShutdown:
		return "SHUTDOWN"
	default:
		return "UNKNOWN"
	}
}

// CacheError is the concrete error type returned for every member of the
// reportable error taxonomy. Key identifies the object involved, when known.
type CacheError struct {
	Code    ErrorCode
	Message string
	Key     Key
	Wrapped error
}

func (e *CacheError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("%s: %s (key=%q)", e.Code, e.Message, e.Key)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *CacheError) Unwrap() error { return e.Wrapped }

// Is allows errors.Is(err, ErrStale) style comparisons against the sentinel
// values below by matching on error code alone.
func (e *CacheError) Is(target error) bool {
	other, ok := target.(*CacheError)
	if !ok {
		return false
	}
	return e.Code == other.Code
}

// Sentinel errors for errors.Is-style comparisons. Each carries only a code;
// construct a real *CacheError with newError for anything returned from an
// operation.
var (
	ErrStale             = &CacheError{Code: CodeStale, Message: "stale handle"}
	ErrNotExist          = &CacheError{Code: CodeNotExist, Message: "no such entry"}
	ErrTooManyCollisions = &CacheError{Code: CodeTooManyCollisions, Message: "dirent probe bound exceeded"}
	ErrConflict          = &CacheError{Code: CodeConflict, Message: "concurrent modification"}
	ErrShutdown          = &CacheError{Code: CodeShutdown, Message: "cache is shutting down"}
)

func newError(code ErrorCode, key Key, format string, args ...any) *CacheError {
	return &CacheError{Code: code, Message: fmt.Sprintf(format, args...), Key: key}
}

// backendError wraps a sub-backend's own error unchanged, per §7's BACKEND(x)
// pass-through policy.
func backendError(key Key, err error) *CacheError {
	return &CacheError{Code: CodeBackend, Message: err.Error(), Key: key, Wrapped: err}
}

// invariantViolation is returned only by internal helpers that detect a
// broken invariant (lock-order breach, refcount underflow, and the like).
// Callers never receive this as a normal error value: Fatal below logs it and
// aborts the process, matching the reference design's "internal invariant
// violations are fatal" policy.
var errInvariant = errors.New("mdcache: internal invariant violated")

// Fatal logs a formatted invariant-violation message and aborts the process.
// It exists as a single call site so tests can (in principle) intercept it,
// though production code paths call it unconditionally: an invariant
// violation is defined as unrecoverable.
func Fatal(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	logger.Error("mdcache: FATAL invariant violation: %s", msg)
	panic(fmt.Errorf("%w: %s", errInvariant, msg))
}
