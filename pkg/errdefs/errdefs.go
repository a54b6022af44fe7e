// Package errdefs defines Corral's error taxonomy. Every boundary named by
// the platform contract classifies its failures into one of these kinds so
// callers can decide between surfacing, retrying and dead-lettering without
// string matching.
package errdefs

import (
	"errors"
	"fmt"
)

// Kind classifies an error for policy decisions.
type Kind int

const (
	// KindUnknown is the zero kind; unclassified errors are treated as
	// transient by worker loops and fatal nowhere.
	KindUnknown Kind = iota

	// KindValidation covers bad input to any API. Never retried.
	KindValidation

	// KindNotFound covers entity lookup misses. No side effects.
	KindNotFound

	// KindConflict covers duplicate ids, existing versions, held leases.
	KindConflict

	// KindNotOwner covers Complete/Fail/Release with a mismatched caller
	// or an expired lease. Rejected silently, logged at warn.
	KindNotOwner

	// KindTransient covers broker hiccups, HTTP 5xx/408/429 and network
	// failures. Retried at the layer that owns the work.
	KindTransient

	// KindNonRetryable covers deserialization failures, non-retryable HTTP
	// 4xx, invalid agent configuration and budget exhaustion. The input is
	// dead-lettered and the lease failed with retryable=false.
	KindNonRetryable

	// KindFatal covers unrecoverable configuration and invariant
	// violations. Crash-and-restart.
	KindFatal
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindNotOwner:
		return "not_owner"
	case KindTransient:
		return "transient"
	case KindNonRetryable:
		return "non_retryable"
	case KindFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

type kindError struct {
	kind Kind
	err  error
}

func (e *kindError) Error() string { return e.err.Error() }
func (e *kindError) Unwrap() error { return e.err }

// Validationf returns a new validation error.
func Validationf(format string, args ...any) error {
	return &kindError{kind: KindValidation, err: fmt.Errorf(format, args...)}
}

// NotFoundf returns a new not-found error.
func NotFoundf(format string, args ...any) error {
	return &kindError{kind: KindNotFound, err: fmt.Errorf(format, args...)}
}

// Conflictf returns a new conflict error.
func Conflictf(format string, args ...any) error {
	return &kindError{kind: KindConflict, err: fmt.Errorf(format, args...)}
}

// NotOwnerf returns a new not-owner error.
func NotOwnerf(format string, args ...any) error {
	return &kindError{kind: KindNotOwner, err: fmt.Errorf(format, args...)}
}

// Transientf returns a new transient error.
func Transientf(format string, args ...any) error {
	return &kindError{kind: KindTransient, err: fmt.Errorf(format, args...)}
}

// NonRetryablef returns a new non-retryable error.
func NonRetryablef(format string, args ...any) error {
	return &kindError{kind: KindNonRetryable, err: fmt.Errorf(format, args...)}
}

// Fatalf returns a new fatal error.
func Fatalf(format string, args ...any) error {
	return &kindError{kind: KindFatal, err: fmt.Errorf(format, args...)}
}

// Wrap attaches a kind to an existing error, preserving the chain.
func Wrap(kind Kind, err error) error {
	if err == nil {
		return nil
	}
	return &kindError{kind: kind, err: err}
}

// KindOf returns the kind of err, walking the wrap chain. The outermost
// classified error wins.
func KindOf(err error) Kind {
	var ke *kindError
	if errors.As(err, &ke) {
		return ke.kind
	}
	return KindUnknown
}

// IsValidation reports whether err is classified as a validation error.
func IsValidation(err error) bool { return KindOf(err) == KindValidation }

// IsNotFound reports whether err is classified as not-found.
func IsNotFound(err error) bool { return KindOf(err) == KindNotFound }

// IsConflict reports whether err is classified as a conflict.
func IsConflict(err error) bool { return KindOf(err) == KindConflict }

// IsNotOwner reports whether err is classified as not-owner.
func IsNotOwner(err error) bool { return KindOf(err) == KindNotOwner }

// IsTransient reports whether err is classified as transient.
func IsTransient(err error) bool { return KindOf(err) == KindTransient }

// IsNonRetryable reports whether err is classified as non-retryable.
func IsNonRetryable(err error) bool { return KindOf(err) == KindNonRetryable }

// IsFatal reports whether err is classified as fatal.
func IsFatal(err error) bool { return KindOf(err) == KindFatal }
