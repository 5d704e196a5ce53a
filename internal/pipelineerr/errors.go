// Package pipelineerr defines the error kinds shared across the
// hierarchy-builder pipeline (spec §7) and the exit-code mapping used by
// the CLI.
package pipelineerr

import (
	"errors"
	"fmt"
)

// Kind identifies one of the pipeline's error categories. Kind is used by
// the CLI to choose an exit code and by tests to assert which failure
// path was taken.
type Kind int

const (
	// KindInternal covers invariant violations with no more specific kind.
	KindInternal Kind = iota
	// KindIOMissing is returned when an input file is absent or unreadable.
	KindIOMissing
	// KindFormatMismatch is returned when a binary file fails its version
	// or length-prefix validation.
	KindFormatMismatch
	// KindGeometryInvalid is returned when a region's outer ring is empty
	// or otherwise unsalvageable.
	KindGeometryInvalid
	// KindDuplicateID names the duplicate-id condition (a warning, never
	// fatal). The serializer reports a repeated id through its warn
	// callback and does not construct an Error of this kind.
	KindDuplicateID
)

func (k Kind) String() string {
	switch k {
	case KindIOMissing:
		return "io-missing"
	case KindFormatMismatch:
		return "format-mismatch"
	case KindGeometryInvalid:
		return "geometry-invalid"
	case KindDuplicateID:
		return "duplicate-id"
	default:
		return "internal"
	}
}

// Error wraps an underlying error with a Kind and, where meaningful, the
// offending object id rendered as a string.
type Error struct {
	Kind       Kind
	ObjectID   string // empty if not applicable
	Underlying error
}

func (e *Error) Error() string {
	if e.ObjectID == "" {
		return fmt.Sprintf("%s: %v", e.Kind, e.Underlying)
	}
	return fmt.Sprintf("%s: object %s: %v", e.Kind, e.ObjectID, e.Underlying)
}

func (e *Error) Unwrap() error { return e.Underlying }

// New constructs a pipeline Error of the given kind.
func New(kind Kind, objectID string, underlying error) *Error {
	return &Error{Kind: kind, ObjectID: objectID, Underlying: underlying}
}

// Newf constructs a pipeline Error of the given kind from a format string.
func Newf(kind Kind, objectID string, format string, args ...any) *Error {
	return New(kind, objectID, fmt.Errorf(format, args...))
}

// KindOf extracts the Kind of err, defaulting to KindInternal if err does
// not wrap a pipeline *Error.
func KindOf(err error) Kind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return KindInternal
}

// ExitCode maps a pipeline error to the CLI exit codes from spec §6:
// 0 success, 1 input-not-found, 2 format-mismatch, 3 internal error.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	switch KindOf(err) {
	case KindIOMissing:
		return 1
	case KindFormatMismatch:
		return 2
	default:
		return 3
	}
}
