package sim

import (
	"errors"
	"fmt"
)

// Sentinel errors identifying the failure classes of a simulation call.
// Callers match them with errors.Is; none of them is retried internally.
var (
	// ErrIndexOutOfRange: base index outside [0, rows).
	ErrIndexOutOfRange = errors.New("base index out of range")

	// ErrUnknownField: an override key that is not a column of the project schema.
	ErrUnknownField = errors.New("unknown field")

	// ErrInvalidValue: an override value of the wrong type, or a category absent
	// from the fitted category table.
	ErrInvalidValue = errors.New("invalid field value")

	// ErrArtifact: dataset or model artifact missing, unreadable or corrupt.
	ErrArtifact = errors.New("artifact unavailable")
)

// RangeError reports a base index outside the dataset.
type RangeError struct {
	Index int
	Rows  int
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("base index %d out of range: dataset has %d rows, valid range [0, %d)", e.Index, e.Rows, e.Rows)
}

func (e *RangeError) Unwrap() error { return ErrIndexOutOfRange }

// FieldError reports a bad override: either an unrecognized field name
// (Err == ErrUnknownField) or an unusable value (Err == ErrInvalidValue).
type FieldError struct {
	Field  string
	Reason string
	Err    error
}

func (e *FieldError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("%v: %q", e.Err, e.Field)
	}
	return fmt.Sprintf("%v for %q: %s", e.Err, e.Field, e.Reason)
}

func (e *FieldError) Unwrap() error { return e.Err }

func unknownField(name string) error {
	return &FieldError{Field: name, Err: ErrUnknownField}
}

func invalidValue(name, format string, args ...any) error {
	return &FieldError{Field: name, Reason: fmt.Sprintf(format, args...), Err: ErrInvalidValue}
}

// artifactError tags err as an artifact failure for the given path.
func artifactError(path string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrArtifact, path, err)
}
