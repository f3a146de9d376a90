package influxrel

import (
	"errors"
	"fmt"
	"strings"
)

// ValidationError reports a point that failed attribute validation before a
// write. Point.Write swallows it (returns false), Point.WriteStrict returns it.
type ValidationError struct {
	// Series names the metrics the point belongs to.
	Series string

	// Missing lists required attributes that were absent or nil.
	Missing []string

	// Reason carries a custom validator message when the failure did not
	// come from the required-attribute check.
	Reason string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if len(e.Missing) > 0 {
		return fmt.Sprintf("validation failed for %q: missing attributes: %s",
			e.Series, strings.Join(e.Missing, ", "))
	}
	return fmt.Sprintf("validation failed for %q: %s", e.Series, e.Reason)
}

// DoubleWriteError reports an attempt to persist an already-persisted point.
// It is fatal and never retried.
type DoubleWriteError struct {
	Series string
}

// Error implements the error interface.
func (e *DoubleWriteError) Error() string {
	return fmt.Sprintf("point already written to %q", e.Series)
}

// UnsupportedPrecisionError reports a write-path timestamp that cannot be
// converted unambiguously under the configured precision. The read path
// degrades to a warning instead; writes must never silently corrupt
// timestamps.
type UnsupportedPrecisionError struct {
	Precision string
	Value     any
}

// Error implements the error interface.
func (e *UnsupportedPrecisionError) Error() string {
	return fmt.Sprintf("cannot convert timestamp %v under unsupported precision %q",
		e.Value, e.Precision)
}

// IsValidationError reports whether err is (or wraps) a ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsDoubleWriteError reports whether err is (or wraps) a DoubleWriteError.
func IsDoubleWriteError(err error) bool {
	var de *DoubleWriteError
	return errors.As(err, &de)
}

// IsUnsupportedPrecisionError reports whether err is (or wraps) an
// UnsupportedPrecisionError.
func IsUnsupportedPrecisionError(err error) bool {
	var pe *UnsupportedPrecisionError
	return errors.As(err, &pe)
}
