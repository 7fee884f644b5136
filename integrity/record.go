/*
record.go - Per-record field validation

PURPOSE:
  Validates one employee-like record and its nested performance entries
  against business rules: required name, performance sequence rules, the
  array-size limit, competency-name sanitization, and score bounds.

VALIDATION VS RECOVERY:
  Validation observes; recovery mutates. The cleaned Employee returned
  here preserves original values wherever they are representable (an
  out-of-range score stays out of range, an unsanitized name stays
  unsanitized). The recovery engine re-applies the pure transforms when -
  and only when - policy allows. The single exception is a non-numeric
  score, which cannot be represented in the typed view: it is carried as
  zero and flagged as an error.

SEE ALSO:
  - sanitize.go: The pure transforms referenced by findings here
  - recovery.go: Applies the fixes these findings describe
*/
package integrity

import (
	"fmt"
)

// RecordResult carries one record's findings and its best-effort typed view.
// Employee is nil when the element is not a record shape at all.
type RecordResult struct {
	Errors   []IntegrityError
	Warnings []IntegrityWarning
	Employee *Employee
}

// metadataFields maps input keys to setters, in stable validation order.
var metadataFields = []string{"nip", "gol", "pangkat", "position", "sub_position", "organizational_level"}

// ValidateRecord validates a single parsed element at the given batch index.
func ValidateRecord(rec any, index int) *RecordResult {
	result := &RecordResult{}

	m, ok := rec.(map[string]any)
	if !ok {
		// Already reported by structural validation; nothing typed to build.
		return result
	}

	emp := &Employee{}

	result.validateName(m, emp, index)
	result.validateExternalID(m, emp)
	result.validateMetadata(m, emp, index)
	result.validatePerformance(m, emp, index)

	result.Employee = emp
	return result
}

// =============================================================================
// NAME AND IDENTITY
// =============================================================================

func (r *RecordResult) validateName(m map[string]any, emp *Employee, index int) {
	raw, present := m["name"]
	if !present || raw == nil {
		r.Errors = append(r.Errors, IntegrityError{
			Type:        ErrTypeSchemaViolation,
			Severity:    SeverityMedium,
			Message:     "employee name is missing",
			Recoverable: true,
			RecordIndex: index,
			FieldName:   "name",
		})
		return
	}

	name, wasString := CoerceString(raw)
	if !wasString {
		r.Warnings = append(r.Warnings, IntegrityWarning{
			Type:        WarnTypeCoerced,
			Message:     "employee name was not a string; coerced",
			RecordIndex: index,
			FieldName:   "name",
			Original:    fmt.Sprintf("%v", raw),
			Applied:     name,
		})
	}

	emp.Name = name
	if NormalizeKey(name) == "" {
		r.Errors = append(r.Errors, IntegrityError{
			Type:        ErrTypeSchemaViolation,
			Severity:    SeverityMedium,
			Message:     "employee name is blank",
			Recoverable: true,
			RecordIndex: index,
			FieldName:   "name",
		})
	}
}

func (r *RecordResult) validateExternalID(m map[string]any, emp *Employee) {
	if raw, ok := m["id"]; ok && raw != nil {
		id, _ := CoerceString(raw)
		emp.ExternalID = id
	}
}

// =============================================================================
// DESCRIPTIVE METADATA
// =============================================================================

func (r *RecordResult) validateMetadata(m map[string]any, emp *Employee, index int) {
	for _, field := range metadataFields {
		raw, present := m[field]
		if !present || raw == nil {
			continue // nullable; recovery may substitute a default
		}
		value, wasString := CoerceString(raw)
		if !wasString {
			r.Warnings = append(r.Warnings, IntegrityWarning{
				Type:        WarnTypeCoerced,
				Message:     fmt.Sprintf("field %q was not a string; coerced", field),
				RecordIndex: index,
				EmployeeName: emp.Name,
				FieldName:    field,
				Original:     fmt.Sprintf("%v", raw),
				Applied:      value,
			})
		}
		setMetadataField(emp, field, value)
	}
}

func setMetadataField(emp *Employee, field, value string) {
	switch field {
	case "nip":
		emp.NIP = &value
	case "gol":
		emp.Gol = &value
	case "pangkat":
		emp.Pangkat = &value
	case "position":
		emp.Position = &value
	case "sub_position":
		emp.SubPosition = &value
	case "organizational_level":
		emp.OrganizationalLevel = &value
	}
}

// =============================================================================
// PERFORMANCE SEQUENCE
// =============================================================================

func (r *RecordResult) validatePerformance(m map[string]any, emp *Employee, index int) {
	raw, present := m["performance"]
	if !present || raw == nil {
		r.Warnings = append(r.Warnings, IntegrityWarning{
			Type:         WarnMissingPerformance,
			Message:      "performance sequence is missing; treated as empty",
			RecordIndex:  index,
			EmployeeName: emp.Name,
			FieldName:    "performance",
		})
		return
	}

	entries, ok := raw.([]any)
	if !ok {
		r.Errors = append(r.Errors, IntegrityError{
			Type:         ErrTypeSchemaViolation,
			Severity:     SeverityMedium,
			Message:      fmt.Sprintf("performance is a %T, expected a sequence; treated as empty", raw),
			Recoverable:  true,
			RecordIndex:  index,
			EmployeeName: emp.Name,
			FieldName:    "performance",
		})
		return
	}

	if len(entries) == 0 {
		r.Warnings = append(r.Warnings, IntegrityWarning{
			Type:         WarnMissingPerformance,
			Message:      "performance sequence is empty",
			RecordIndex:  index,
			EmployeeName: emp.Name,
			FieldName:    "performance",
		})
		return
	}

	if len(entries) > MaxPerformanceEntries {
		r.Errors = append(r.Errors, IntegrityError{
			Type:         ErrTypeArraySize,
			Severity:     SeverityMedium,
			Message:      fmt.Sprintf("performance has %d entries, limit is %d", len(entries), MaxPerformanceEntries),
			Recoverable:  true,
			RecordIndex:  index,
			EmployeeName: emp.Name,
			FieldName:    "performance",
		})
	}

	for i, entry := range entries {
		r.validateCompetency(entry, emp, index, i)
	}
}

func (r *RecordResult) validateCompetency(entry any, emp *Employee, index, entryIdx int) {
	field := fmt.Sprintf("performance[%d]", entryIdx)

	em, ok := entry.(map[string]any)
	if !ok {
		r.Errors = append(r.Errors, IntegrityError{
			Type:         ErrTypeDataCorruption,
			Severity:     SeverityMedium,
			Message:      fmt.Sprintf("performance entry %d is a %T, expected an object", entryIdx, entry),
			Recoverable:  true,
			RecordIndex:  index,
			EmployeeName: emp.Name,
			FieldName:    field,
		})
		return
	}

	// Competency name
	rawName, _ := em["name"]
	name, wasString := CoerceString(rawName)
	if rawName != nil && !wasString {
		r.Warnings = append(r.Warnings, IntegrityWarning{
			Type:         WarnTypeCoerced,
			Message:      fmt.Sprintf("competency name in entry %d was not a string; coerced", entryIdx),
			RecordIndex:  index,
			EmployeeName: emp.Name,
			FieldName:    field,
			Original:     fmt.Sprintf("%v", rawName),
			Applied:      name,
		})
	}

	sanitized := SanitizeCompetencyName(name)
	if sanitized != name {
		r.Warnings = append(r.Warnings, IntegrityWarning{
			Type:         WarnCompetencySanitized,
			Message:      fmt.Sprintf("competency name in entry %d contains stray characters or whitespace", entryIdx),
			RecordIndex:  index,
			EmployeeName: emp.Name,
			FieldName:    field,
			Original:     name,
			Applied:      sanitized,
		})
	}
	if len([]rune(sanitized)) < MinCompetencyNameLen || len([]rune(sanitized)) > MaxCompetencyNameLen {
		r.Errors = append(r.Errors, IntegrityError{
			Type:         ErrTypeInvalidCompName,
			Severity:     SeverityMedium,
			Message:      fmt.Sprintf("competency name %q is invalid after sanitization (length %d, want %d-%d)", sanitized, len([]rune(sanitized)), MinCompetencyNameLen, MaxCompetencyNameLen),
			Recoverable:  true,
			RecordIndex:  index,
			EmployeeName: emp.Name,
			FieldName:    field,
		})
	}

	// Score
	score, numeric := CoerceScore(em["score"])
	if !numeric {
		r.Errors = append(r.Errors, IntegrityError{
			Type:         ErrTypeDataCorruption,
			Severity:     SeverityMedium,
			Message:      fmt.Sprintf("score in entry %d is not numeric; zero-substitution available", entryIdx),
			Recoverable:  true,
			RecordIndex:  index,
			EmployeeName: emp.Name,
			FieldName:    field,
		})
		score = MinScore
	} else if score.LessThan(MinScore) || score.GreaterThan(MaxScore) {
		// Clamping is always safe, so out-of-range is a warning, not an error.
		r.Warnings = append(r.Warnings, IntegrityWarning{
			Type:         WarnScoreOutOfRange,
			Message:      fmt.Sprintf("score %s in entry %d is outside [0, 100]; clamp available", score.String(), entryIdx),
			RecordIndex:  index,
			EmployeeName: emp.Name,
			FieldName:    field,
			Original:     score.String(),
			Applied:      NormalizeScore(score).String(),
		})
	}

	emp.Performance = append(emp.Performance, CompetencyScore{Name: name, Score: score, srcIndex: entryIdx})
}
