package fetch

import (
	"errors"
	"fmt"
)

// Kind partitions fetch failures by how the poll loop should react.
type Kind int

const (
	// KindTransient covers timeouts, refused connections and upstream 5xx:
	// the cycle retries with backoff.
	KindTransient Kind = iota

	// KindInvalid covers malformed or unexpected responses: the cycle is
	// abandoned without retry.
	KindInvalid
)

func (k Kind) String() string {
	switch k {
	case KindTransient:
		return "transient"
	case KindInvalid:
		return "invalid"
	default:
		return "unknown"
	}
}

// Error is a classified fetch failure.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("fetch %s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("fetch %s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Transient wraps err as a retryable fetch failure.
func Transient(op string, err error) error {
	return &Error{Kind: KindTransient, Op: op, Err: err}
}

// Invalid wraps err as a non-retryable data-quality failure.
func Invalid(op string, err error) error {
	return &Error{Kind: KindInvalid, Op: op, Err: err}
}

// IsTransient reports whether err is a retryable fetch failure.
func IsTransient(err error) bool {
	var fe *Error
	return errors.As(err, &fe) && fe.Kind == KindTransient
}

// IsInvalid reports whether err is a non-retryable fetch failure.
func IsInvalid(err error) bool {
	var fe *Error
	return errors.As(err, &fe) && fe.Kind == KindInvalid
}
