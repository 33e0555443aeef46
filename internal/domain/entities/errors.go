package entities

import (
	"errors"
	"fmt"
	"time"
)

// ErrorKind categorizes every failure the engine can report.
type ErrorKind string

const (
	ErrorKindNone                 ErrorKind = ""
	ErrorKindAuth                 ErrorKind = "AuthError"
	ErrorKindRateLimit            ErrorKind = "RateLimitError"
	ErrorKindTransport            ErrorKind = "TransportError"
	ErrorKindClassificationConfig ErrorKind = "ClassificationConfigError"
	ErrorKindLocalState           ErrorKind = "LocalStateError"
	ErrorKindDivergenceRecovery   ErrorKind = "DivergenceRecoveryError"
)

// ErrEmptyRemote is returned by a MirrorRepository when the remote has no branch to mirror.
var ErrEmptyRemote = errors.New("remote repository is empty")

// SyncError is the structured error carried through listings and sync jobs.
type SyncError struct {
	Kind ErrorKind
	Op   string
	Err  error

	// ResetAt is only set for rate limits, when the provider advertised it.
	ResetAt time.Time
}

// NewSyncError wraps err with the given kind and operation.
func NewSyncError(kind ErrorKind, op string, err error) *SyncError {
	return &SyncError{Kind: kind, Op: op, Err: err}
}

func (e *SyncError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Kind, e.Op)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Op, e.Err)
}

func (e *SyncError) Unwrap() error {
	return e.Err
}

// Retryable reports whether retrying the same operation later may succeed.
func (e *SyncError) Retryable() bool {
	return e.Kind == ErrorKindTransport || e.Kind == ErrorKindRateLimit
}

// KindOf extracts the ErrorKind from err. Untyped errors are treated as transport faults.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ErrorKindNone
	}
	var syncErr *SyncError
	if errors.As(err, &syncErr) {
		return syncErr.Kind
	}
	return ErrorKindTransport
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind ErrorKind) bool {
	return err != nil && KindOf(err) == kind
}
