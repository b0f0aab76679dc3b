package errno

import (
	"errors"
	"fmt"
)

// Kind classifies an error by how the caller should react to it.
type Kind uint8

const (
	// KindTransient marks failures that are expected to clear on their own:
	// timeouts, connection resets, endpoint rate limiting, 5xx responses.
	// Callers retry these with backoff.
	KindTransient Kind = iota + 1

	// KindPermanent marks failures that retrying cannot fix: unsupported
	// methods, rejected parameters, malformed responses. Callers escalate.
	KindPermanent

	// KindConfig marks invalid operator input detected before any polling
	// starts. The process reports it and exits.
	KindConfig
)

func (k Kind) String() string {
	switch k {
	case KindTransient:
		return "transient"
	case KindPermanent:
		return "permanent"
	case KindConfig:
		return "config"
	default:
		return "unknown"
	}
}

// Error carries a failure classification alongside the operation that
// produced it.
type Error struct {
	Kind Kind
	Op   string // e.g. "eth_blockNumber", "config.validate"
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s error", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Transient wraps err as a retryable failure of op.
func Transient(op string, err error) *Error {
	return &Error{Kind: KindTransient, Op: op, Err: err}
}

// Permanent wraps err as a non-retryable failure of op.
func Permanent(op string, err error) *Error {
	return &Error{Kind: KindPermanent, Op: op, Err: err}
}

// Config wraps err as an operator input failure.
func Config(op string, err error) *Error {
	return &Error{Kind: KindConfig, Op: op, Err: err}
}

// Configf is Config with a formatted message.
func Configf(op, format string, args ...any) *Error {
	return &Error{Kind: KindConfig, Op: op, Err: fmt.Errorf(format, args...)}
}

// KindOf extracts the classification of err, unwrapping as needed.
// Unclassified errors report KindPermanent: an error nobody marked as
// retryable must not be retried blindly.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindPermanent
}

func IsTransient(err error) bool {
	return err != nil && KindOf(err) == KindTransient
}

func IsPermanent(err error) bool {
	return err != nil && KindOf(err) == KindPermanent
}

func IsConfig(err error) bool {
	return err != nil && KindOf(err) == KindConfig
}
