/*
errors.go - Centralized error types for the integrity pipeline

PURPOSE:
  All Go-level error types in one place. These represent programming or
  boundary failures (oversized payload, exhausted parse cascade, storage
  faults). Data-quality problems are NOT Go errors - they are values
  (IntegrityError) inside DataIntegrityResult.

ERROR CATEGORIES:
  1. Input-boundary errors - payload guard violations
  2. Parse errors - cascade exhaustion
  3. Sink errors - storage failures surfaced by callers

USAGE:
  if errors.Is(err, integrity.ErrParseExhausted) {
      // all cascade attempts failed; no records exist
  }

SEE ALSO:
  - parser.go: Produces ParseExhaustedError
  - pipeline.go: Produces PayloadTooLargeError
*/
package integrity

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrPayloadTooLarge is returned when the raw payload exceeds the
	// configured byte ceiling. The cascade never runs on such input.
	ErrPayloadTooLarge = errors.New("payload exceeds size limit")

	// ErrParseExhausted is returned when every parse strategy failed.
	// No records exist and none are invented.
	ErrParseExhausted = errors.New("all parse attempts failed")

	// ErrEmptyInput is returned for a zero-byte payload.
	ErrEmptyInput = errors.New("empty input")

	// ErrStorageFailed wraps sink failures so callers can distinguish them
	// from data-integrity findings.
	ErrStorageFailed = errors.New("storage operation failed")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// PayloadTooLargeError reports the offending and permitted sizes.
type PayloadTooLargeError struct {
	Size  int
	Limit int
}

func (e *PayloadTooLargeError) Error() string {
	return fmt.Sprintf("payload of %d bytes exceeds limit of %d bytes", e.Size, e.Limit)
}

func (e *PayloadTooLargeError) Unwrap() error { return ErrPayloadTooLarge }

// ParseExhaustedError carries every attempt's failure reason so the report
// can show why escalation occurred.
type ParseExhaustedError struct {
	Attempts []ParseAttempt
}

func (e *ParseExhaustedError) Error() string {
	return fmt.Sprintf("all %d parse attempts failed", len(e.Attempts))
}

func (e *ParseExhaustedError) Unwrap() error { return ErrParseExhausted }

// StorageError wraps a sink failure with the operation that failed.
type StorageError struct {
	Operation string
	Err       error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage operation %q failed: %v", e.Operation, e.Err)
}

func (e *StorageError) Unwrap() error { return ErrStorageFailed }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsFatalInput returns true if the error means no usable records exist.
func IsFatalInput(err error) bool {
	return errors.Is(err, ErrPayloadTooLarge) ||
		errors.Is(err, ErrParseExhausted) ||
		errors.Is(err, ErrEmptyInput)
}
