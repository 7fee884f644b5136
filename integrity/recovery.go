/*
recovery.go - Policy-gated auto-fix engine

PURPOSE:
  Given aggregated records and their findings, applies automatic fixes
  under the caller's RecoveryPolicy. Behavior is strictly additive and
  auditable: every applied fix appends one warning with before/after
  values (or a summary for array-level fixes).

WHAT FIXES NEVER DO:
  Invent business-meaningful values. A missing NIP stays structurally
  empty, a blank name becomes an obviously synthetic placeholder, a
  non-numeric score becomes zero. Only mechanical transforms (clamping,
  trimming, sanitization, truncation) touch existing values.

DRY-RUN SEMANTICS:
  With AutoFix disabled the engine mutates nothing; it still reports
  what it would have fixed via the recovery-options list. Combined with
  SkipCorruptedRecords, dry-run drops every record carrying any error,
  leaving only records that were clean on arrival.

FIX-WARNING ACCOUNTING:
  Sanitization is the one fix logged at detection time (the validator's
  competency_sanitized warning already carries before/after); applying
  it does not log a second time. Every other fix logs here.

SEE ALSO:
  - aggregate.go: Produces the record entries consumed here
  - score.go: Scores the combined findings afterwards
*/
package integrity

import (
	"fmt"
	"sort"
	"strings"
)

// RecoveryOutcome is the result of one recovery pass.
type RecoveryOutcome struct {
	Data           []Employee
	RecordsFixed   int
	RecordsSkipped int
	Warnings       []IntegrityWarning
}

// Recover applies policy-gated fixes to the aggregated records.
func Recover(agg *AggregateResult, policy RecoveryPolicy) *RecoveryOutcome {
	policy = policy.Normalize()
	outcome := &RecoveryOutcome{}

	errsByIndex := make(map[int][]IntegrityError)
	for _, e := range agg.Errors {
		errsByIndex[e.RecordIndex] = append(errsByIndex[e.RecordIndex], e)
	}

	for _, entry := range agg.Records {
		if entry.Dropped {
			continue // identity loser, resolved by the aggregator
		}
		if entry.Employee == nil {
			// Non-record element: nothing typed exists to repair or keep.
			outcome.RecordsSkipped++
			outcome.Warnings = append(outcome.Warnings, IntegrityWarning{
				Type:        WarnRecordSkipped,
				Message:     fmt.Sprintf("record %d is not a record object and was excluded", entry.Index),
				RecordIndex: entry.Index,
			})
			continue
		}

		recErrs := errsByIndex[entry.Index]
		rec := recoverRecord(entry, recErrs, policy, outcome)
		if rec == nil {
			continue // skipped
		}
		outcome.Data = append(outcome.Data, *rec)
	}

	return outcome
}

// recoverRecord repairs one record. Returns nil when the record is dropped.
func recoverRecord(entry RecordEntry, recErrs []IntegrityError, policy RecoveryPolicy, outcome *RecoveryOutcome) *Employee {
	emp := cloneEmployee(entry.Employee)
	fixer := &recordFixer{
		index:   entry.Index,
		emp:     emp,
		budget:  policy.MaxRecoveryAttempts,
		outcome: outcome,
	}

	if policy.AutoFix {
		fixer.fixName()
		fixer.fixEntries(policy, recErrs)
		fixer.fixPerformanceShape(policy)
		fixer.fixTruncation()
		// Default substitution targets records that needed repair; a clean
		// record passes through untouched.
		if len(recErrs) > 0 {
			fixer.fixMetadataDefaults(policy)
		}
	}

	if fixer.exhausted {
		outcome.Warnings = append(outcome.Warnings, IntegrityWarning{
			Type:         WarnAttemptsExhausted,
			Message:      fmt.Sprintf("recovery attempt budget (%d) exhausted for record %d; remaining issues unresolved", policy.MaxRecoveryAttempts, entry.Index),
			RecordIndex:  entry.Index,
			EmployeeName: emp.Name,
		})
	}

	unresolved := countUnresolved(recErrs, policy, fixer)
	if unresolved > 0 && policy.SkipCorruptedRecords {
		outcome.RecordsSkipped++
		outcome.Warnings = append(outcome.Warnings, IntegrityWarning{
			Type:         WarnRecordSkipped,
			Message:      fmt.Sprintf("record %d dropped: %d unresolved issue(s) and skip policy is active", entry.Index, unresolved),
			RecordIndex:  entry.Index,
			EmployeeName: emp.Name,
		})
		return nil
	}

	if fixer.applied > 0 {
		outcome.RecordsFixed++
	}
	return emp
}

// =============================================================================
// RECORD FIXER - Per-record fix application with an attempt budget
// =============================================================================

type recordFixer struct {
	index     int
	emp       *Employee
	budget    int
	applied   int
	exhausted bool
	outcome   *RecoveryOutcome
}

// spend consumes one attempt from the budget. Returns false when the budget
// is gone; the caller must not apply the fix in that case.
func (f *recordFixer) spend() bool {
	if f.applied >= f.budget {
		f.exhausted = true
		return false
	}
	f.applied++
	return true
}

func (f *recordFixer) warn(w IntegrityWarning) {
	w.RecordIndex = f.index
	if w.EmployeeName == "" {
		w.EmployeeName = f.emp.Name
	}
	f.outcome.Warnings = append(f.outcome.Warnings, w)
}

func (f *recordFixer) fixName() {
	if NormalizeKey(f.emp.Name) != "" {
		return
	}
	if !f.spend() {
		return
	}
	generated := fmt.Sprintf("Recovered Employee %d", f.index+1)
	f.warn(IntegrityWarning{
		Type:         WarnNameGenerated,
		Message:      "blank employee name replaced with a synthetic placeholder",
		FieldName:    "name",
		Original:     f.emp.Name,
		Applied:      generated,
		EmployeeName: generated,
	})
	f.emp.Name = generated
}

// fixEntries applies the per-entry mechanical transforms: sanitization,
// clamping, zero-substitution acknowledgement, and invalid-name handling.
func (f *recordFixer) fixEntries(policy RecoveryPolicy, recErrs []IntegrityError) {
	zeroSubbed := fieldsWithError(recErrs, ErrTypeDataCorruption)
	kept := f.emp.Performance[:0]

	for _, c := range f.emp.Performance {
		// Keyed by the entry's position in the raw input sequence: typed
		// positions shift when the validator drops non-object entries.
		field := fmt.Sprintf("performance[%d]", c.srcIndex)

		// Sanitization: logged at detection, applied silently here.
		sanitized := SanitizeCompetencyName(c.Name)
		if sanitized != c.Name {
			if !f.spend() {
				kept = append(kept, c)
				continue
			}
			c.Name = sanitized
		}

		if nameLengthInvalid(c.Name) {
			if policy.UseDefaultValues {
				if !f.spend() {
					kept = append(kept, c)
					continue
				}
				placeholder := fmt.Sprintf("Competency %d", c.srcIndex+1)
				f.warn(IntegrityWarning{
					Type:      WarnDefaultApplied,
					Message:   "unusable competency name replaced with a placeholder",
					FieldName: field,
					Original:  c.Name,
					Applied:   placeholder,
				})
				c.Name = placeholder
			} else {
				if !f.spend() {
					kept = append(kept, c)
					continue
				}
				f.warn(IntegrityWarning{
					Type:      WarnEntryRemoved,
					Message:   "entry with unusable competency name removed",
					FieldName: field,
					Original:  c.Name,
				})
				continue // entry dropped
			}
		}

		if zeroSubbed[field] {
			if f.spend() {
				f.warn(IntegrityWarning{
					Type:      WarnZeroSubstituted,
					Message:   "non-numeric score replaced with zero",
					FieldName: field,
					Applied:   "0",
				})
			}
		} else if clamped := NormalizeScore(c.Score); !clamped.Equal(c.Score) {
			if f.spend() {
				f.warn(IntegrityWarning{
					Type:      WarnScoreClamped,
					Message:   "out-of-range score clamped to [0, 100]",
					FieldName: field,
					Original:  c.Score.String(),
					Applied:   clamped.String(),
				})
				c.Score = clamped
			}
		}

		kept = append(kept, c)
	}
	f.emp.Performance = kept
}

// fixPerformanceShape injects the default entry for records whose
// performance sequence is missing, malformed, or empty.
func (f *recordFixer) fixPerformanceShape(policy RecoveryPolicy) {
	if len(f.emp.Performance) > 0 || !policy.UseDefaultValues {
		return
	}
	if !f.spend() {
		return
	}
	f.emp.Performance = []CompetencyScore{{Name: "Overall", Score: MinScore}}
	f.warn(IntegrityWarning{
		Type:      WarnDefaultApplied,
		Message:   "empty performance sequence replaced with default entry",
		FieldName: "performance",
		Applied:   `"Overall"=0`,
	})
}

func (f *recordFixer) fixTruncation() {
	if len(f.emp.Performance) <= MaxPerformanceEntries {
		return
	}
	if !f.spend() {
		return
	}
	dropped := len(f.emp.Performance) - MaxPerformanceEntries
	f.emp.Performance = f.emp.Performance[:MaxPerformanceEntries]
	f.warn(IntegrityWarning{
		Type:      WarnPerformanceTruncated,
		Message:   fmt.Sprintf("performance truncated to %d entries (%d dropped)", MaxPerformanceEntries, dropped),
		FieldName: "performance",
	})
}

func (f *recordFixer) fixMetadataDefaults(policy RecoveryPolicy) {
	if !policy.UseDefaultValues {
		return
	}
	var defaulted []string
	apply := func(field string, p **string) {
		if *p == nil {
			empty := ""
			*p = &empty
			defaulted = append(defaulted, field)
		}
	}
	apply("nip", &f.emp.NIP)
	apply("gol", &f.emp.Gol)
	apply("pangkat", &f.emp.Pangkat)
	apply("position", &f.emp.Position)
	apply("sub_position", &f.emp.SubPosition)
	apply("organizational_level", &f.emp.OrganizationalLevel)

	if len(defaulted) == 0 {
		return
	}
	if !f.spend() {
		// Defaults already applied above are harmless but must stay
		// consistent with the audit trail, so roll them back.
		for _, field := range defaulted {
			clearMetadataField(f.emp, field)
		}
		return
	}
	f.warn(IntegrityWarning{
		Type:      WarnDefaultApplied,
		Message:   "absent metadata fields set to empty-string defaults",
		FieldName: strings.Join(defaulted, ","),
		Applied:   `""`,
	})
}

func clearMetadataField(emp *Employee, field string) {
	switch field {
	case "nip":
		emp.NIP = nil
	case "gol":
		emp.Gol = nil
	case "pangkat":
		emp.Pangkat = nil
	case "position":
		emp.Position = nil
	case "sub_position":
		emp.SubPosition = nil
	case "organizational_level":
		emp.OrganizationalLevel = nil
	}
}

// =============================================================================
// UNRESOLVED ACCOUNTING
// =============================================================================

// countUnresolved reports how many of the record's errors remain open after
// the fix pass. Identity duplicates are resolved by the aggregator; batch
// scope errors are accounted at pipeline level.
func countUnresolved(recErrs []IntegrityError, policy RecoveryPolicy, fixer *recordFixer) int {
	unresolved := 0
	for _, e := range recErrs {
		switch {
		case !e.Recoverable:
			unresolved++
		case e.Type == ErrTypeCircularRef:
			// resolved by identity resolution
		case !policy.AutoFix:
			unresolved++
		case fixer.exhausted:
			unresolved++
		}
	}
	return unresolved
}

func fieldsWithError(recErrs []IntegrityError, t ErrorType) map[string]bool {
	out := make(map[string]bool)
	for _, e := range recErrs {
		if e.Type == t {
			out[e.FieldName] = true
		}
	}
	return out
}

func cloneEmployee(emp *Employee) *Employee {
	out := *emp
	out.Performance = make([]CompetencyScore, len(emp.Performance))
	copy(out.Performance, emp.Performance)
	clonePtr := func(p *string) *string {
		if p == nil {
			return nil
		}
		v := *p
		return &v
	}
	out.NIP = clonePtr(emp.NIP)
	out.Gol = clonePtr(emp.Gol)
	out.Pangkat = clonePtr(emp.Pangkat)
	out.Position = clonePtr(emp.Position)
	out.SubPosition = clonePtr(emp.SubPosition)
	out.OrganizationalLevel = clonePtr(emp.OrganizationalLevel)
	return &out
}

// =============================================================================
// RECOVERY OPTIONS
// =============================================================================

// optionTemplate maps an error class to its proposed remediation.
type optionTemplate struct {
	Type        RecoveryType
	Description string
	Confidence  Confidence
	Risk        RiskLevel
}

var optionTable = map[ErrorType]optionTemplate{
	ErrTypeSchemaViolation:  {RecoveryAutoFix, "substitute structural placeholders for missing required fields", ConfidenceHigh, RiskSafe},
	ErrTypeInvalidCompName:  {RecoveryAutoFix, "sanitize or replace unusable competency names", ConfidenceHigh, RiskSafe},
	ErrTypeArraySize:        {RecoveryAutoFix, "truncate oversized performance sequences to the limit", ConfidenceMedium, RiskModerate},
	ErrTypeCircularRef:      {RecoveryAutoFix, "resolve duplicate identities per the configured strategy", ConfidenceMedium, RiskModerate},
	ErrTypeDataCorruption:   {RecoveryFallbackValues, "replace corrupted values with neutral fallbacks", ConfidenceMedium, RiskModerate},
	ErrTypeEncoding:         {RecoveryFallbackValues, "re-decode the payload with a permissive encoding", ConfidenceLow, RiskModerate},
	ErrTypeJSONParse:        {RecoveryUserInput, "correct the payload syntax and resubmit", ConfidenceLow, RiskRisky},
	ErrTypeCriticalDataLoss: {RecoveryDataRestoration, "restore the affected records from a previous upload", ConfidenceLow, RiskRisky},
	ErrTypeStorage:          {RecoveryManualReview, "inspect the storage failure and retry the import", ConfidenceLow, RiskModerate},
}

// BuildRecoveryOptions derives the ranked remediation list from the detected
// errors. One option per error class, fields aggregated, stable order.
func BuildRecoveryOptions(errors []IntegrityError) []RecoveryOption {
	byType := make(map[ErrorType]map[string]bool)
	var order []ErrorType
	for _, e := range errors {
		if _, known := optionTable[e.Type]; !known {
			continue
		}
		if _, seen := byType[e.Type]; !seen {
			byType[e.Type] = make(map[string]bool)
			order = append(order, e.Type)
		}
		if e.FieldName != "" {
			byType[e.Type][e.FieldName] = true
		}
	}

	var options []RecoveryOption
	for _, t := range order {
		tpl := optionTable[t]
		var fields []string
		for f := range byType[t] {
			fields = append(fields, f)
		}
		sort.Strings(fields)
		options = append(options, RecoveryOption{
			Type:           tpl.Type,
			Description:    tpl.Description,
			Confidence:     tpl.Confidence,
			RiskLevel:      tpl.Risk,
			AffectedFields: fields,
		})
	}

	// Manual review when anything unrecoverable exists.
	for _, e := range errors {
		if !e.Recoverable {
			options = append(options, RecoveryOption{
				Type:        RecoveryManualReview,
				Description: "review records with unrecoverable corruption before accepting the upload",
				Confidence:  ConfidenceLow,
				RiskLevel:   RiskRisky,
			})
			break
		}
	}

	return options
}
