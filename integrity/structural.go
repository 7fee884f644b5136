/*
structural.go - Top-level shape validation

PURPOSE:
  Checks the parsed payload's shape independent of business semantics:
  non-null, a sequence (not a scalar, not a lone object), non-empty, with
  record-shaped elements. A lone object is the classic "forgot to wrap in
  array" corruption - it is flagged, never silently coerced, though the
  element is still carried forward so record validation and recovery can
  salvage it when it looks like a record.

SEE ALSO:
  - record.go: Per-record field validation
  - pipeline.go: Decides whether a structural failure is fatal
*/
package integrity

import "fmt"

// StructureResult carries the shape findings plus the normalized element
// list. Records is nil when the payload is structurally unusable (fatal);
// it is non-nil (possibly empty) otherwise. Elements that are not records
// remain in the slice so indices line up with the input; record validation
// flags them individually.
type StructureResult struct {
	Errors   []IntegrityError
	Warnings []IntegrityWarning
	Records  []any
}

// Fatal reports whether the payload shape rules out any record processing.
func (r *StructureResult) Fatal() bool { return r.Records == nil }

// ValidateStructure checks the parsed payload's top-level shape.
func ValidateStructure(parsed any) *StructureResult {
	result := &StructureResult{}

	switch v := parsed.(type) {
	case nil:
		result.Errors = append(result.Errors, IntegrityError{
			Type:        ErrTypeDataCorruption,
			Severity:    SeverityCritical,
			Message:     "payload is null",
			Recoverable: false,
			RecordIndex: BatchScope,
		})
		return result

	case []any:
		if len(v) == 0 {
			result.Warnings = append(result.Warnings, IntegrityWarning{
				Type:        WarnEmptyPayload,
				Message:     "payload is an empty array; nothing to validate",
				RecordIndex: BatchScope,
			})
		}
		result.Records = v

	case map[string]any:
		// Lone object: flag it, then carry it as a single-element batch so
		// downstream stages can decide whether it is a salvageable record.
		result.Errors = append(result.Errors, IntegrityError{
			Type:        ErrTypeDataCorruption,
			Severity:    SeverityHigh,
			Message:     "payload is a single object, expected an array of records",
			Recoverable: looksLikeRecord(v),
			RecordIndex: BatchScope,
		})
		result.Records = []any{v}

	default:
		result.Errors = append(result.Errors, IntegrityError{
			Type:        ErrTypeDataCorruption,
			Severity:    SeverityCritical,
			Message:     fmt.Sprintf("payload is a %T, expected an array of records", parsed),
			Recoverable: false,
			RecordIndex: BatchScope,
		})
		return result
	}

	// Per-element shape check. Non-record elements are per-element errors,
	// never fatal for the whole batch.
	for i, el := range result.Records {
		if _, ok := el.(map[string]any); !ok {
			result.Errors = append(result.Errors, IntegrityError{
				Type:        ErrTypeDataCorruption,
				Severity:    SeverityHigh,
				Message:     fmt.Sprintf("element %d is a %T, expected a record object", i, el),
				Recoverable: false,
				RecordIndex: i,
			})
		}
	}

	return result
}

// looksLikeRecord reports whether a lone object is plausibly a single
// employee record, which makes array-wrapping a safe inference.
func looksLikeRecord(m map[string]any) bool {
	if _, ok := m["name"]; ok {
		return true
	}
	if _, ok := m["performance"]; ok {
		return true
	}
	return false
}
