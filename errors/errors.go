// Package errors provides error handling for apparatus.
//
// This package re-exports github.com/cockroachdb/errors, providing:
//   - Stack traces for debugging
//   - Error wrapping and context
//   - PII-safe error formatting
//
// Usage:
//
//	// Create new error
//	err := errors.New("something went wrong")
//
//	// Wrap with context
//	if err := doSomething(); err != nil {
//	    return errors.Wrap(err, "failed to do something")
//	}
//
//	// Check errors
//	if errors.Is(err, errors.ErrConflict) {
//	    // retry the build
//	}
//
// For full documentation see: https://pkg.go.dev/github.com/cockroachdb/errors
package errors

import (
	crdb "github.com/cockroachdb/errors"
)

// Core error creation and wrapping
var (
	New          = crdb.New
	Newf         = crdb.Newf
	Wrap         = crdb.Wrap
	Wrapf        = crdb.Wrapf
	WithStack    = crdb.WithStack
	WithMessage  = crdb.WithMessage
	WithMessagef = crdb.WithMessagef
)

// User-facing messages and details
var (
	WithHint    = crdb.WithHint
	WithHintf   = crdb.WithHintf
	WithDetail  = crdb.WithDetail
	WithDetailf = crdb.WithDetailf
)

// Error inspection
var (
	Is        = crdb.Is
	IsAny     = crdb.IsAny
	As        = crdb.As
	Unwrap    = crdb.Unwrap
	UnwrapAll = crdb.UnwrapAll
)

// Assertions and panics
var (
	AssertionFailedf = crdb.AssertionFailedf
)

// GetReportableStackTrace extracts a stack trace from an error for reporting.
var GetReportableStackTrace = crdb.GetReportableStackTrace

// Sentinel errors forming the error taxonomy of the aggregation core.
// Use these with errors.Is() for type-safe error checking.
// Wrap these with errors.Wrap() to add context while preserving the type.
var (
	// ErrInput indicates a malformed scope or reference. Fatal to the
	// whole call: nothing is written when an input error is raised.
	ErrInput = New("invalid input")

	// ErrProvenance indicates pack data missing required attribution.
	// Rejects the offending record only, never the surrounding scope.
	ErrProvenance = New("missing provenance")

	// ErrConflict indicates a concurrent write was detected on the same
	// variant unit. The caller should retry the build.
	ErrConflict = New("concurrent modification")

	// ErrIntegrity indicates a uniqueness invariant would be violated
	// despite the pre-check. This signals a programming bug and is never
	// silently swallowed.
	ErrIntegrity = New("integrity violation")

	// ErrNotFound indicates the requested resource does not exist.
	ErrNotFound = New("not found")
)

// IsInputError checks if an error is or wraps ErrInput.
func IsInputError(err error) bool {
	return err != nil && Is(err, ErrInput)
}

// IsProvenanceError checks if an error is or wraps ErrProvenance.
func IsProvenanceError(err error) bool {
	return err != nil && Is(err, ErrProvenance)
}

// IsConflictError checks if an error is or wraps ErrConflict.
func IsConflictError(err error) bool {
	return err != nil && Is(err, ErrConflict)
}

// IsIntegrityError checks if an error is or wraps ErrIntegrity.
func IsIntegrityError(err error) bool {
	return err != nil && Is(err, ErrIntegrity)
}

// IsNotFoundError checks if an error is or wraps ErrNotFound.
func IsNotFoundError(err error) bool {
	return err != nil && Is(err, ErrNotFound)
}

// NewInputError creates an input error with a formatted message.
func NewInputError(format string, args ...interface{}) error {
	return Wrap(ErrInput, Newf(format, args...).Error())
}

// NewProvenanceError creates a provenance error with a formatted message.
func NewProvenanceError(format string, args ...interface{}) error {
	return Wrap(ErrProvenance, Newf(format, args...).Error())
}

// NewConflictError creates a conflict error with a formatted message.
func NewConflictError(format string, args ...interface{}) error {
	return Wrap(ErrConflict, Newf(format, args...).Error())
}

// NewIntegrityError creates an integrity error with a formatted message.
func NewIntegrityError(format string, args ...interface{}) error {
	return Wrap(ErrIntegrity, Newf(format, args...).Error())
}

// NewNotFoundError creates a not-found error with a formatted message.
func NewNotFoundError(format string, args ...interface{}) error {
	return Wrap(ErrNotFound, Newf(format, args...).Error())
}
