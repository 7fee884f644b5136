/*
Package integrity provides the data integrity and recovery pipeline.

PURPOSE:
  This package contains the core types and algorithms for validating
  untrusted employee-performance payloads: a cascading raw parser,
  structural and record validators, an aggregator that merges findings,
  a policy-gated recovery engine, and a quality scorer.

KEY CONCEPTS IN THIS FILE (types.go):
  - Employee/CompetencyScore: The cleaned record shapes handed to storage
  - IntegrityError/IntegrityWarning: Detected problems and observations
  - RecoveryOption: A proposed remediation with confidence and risk
  - IntegritySummary: Aggregate verdict including the 0-100 score
  - RecoveryPolicy: Caller-supplied knobs for the recovery engine

DESIGN PRINCIPLES:
  1. Values, not exceptions: expected bad input is reported as data,
     never thrown. Go errors are reserved for programming mistakes.
  2. Precision: competency scores use decimal.Decimal so clamping and
     averaging are exact.
  3. Auditability: every applied fix produces exactly one warning with
     before/after context.
  4. No ambient configuration: the policy is threaded explicitly through
     every call.

USAGE:
  pipeline := integrity.NewPipeline()
  result := pipeline.Run(rawPayload, integrity.DefaultPolicy())
  if result.Summary.RecommendedAction == integrity.ActionAbort {
      // refuse the upload
  }

SEE ALSO:
  - parser.go: Raw parse cascade
  - structural.go / record.go: Validators
  - aggregate.go: Finding aggregation and competency merge
  - recovery.go: Policy-gated auto-fix engine
  - score.go / report.go: Quality scoring and reporting
*/
package integrity

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// LIMITS - Single source of truth for validation bounds
// =============================================================================

const (
	// MaxPerformanceEntries bounds the performance sequence per employee.
	MaxPerformanceEntries = 25

	// MinCompetencyNameLen and MaxCompetencyNameLen bound a competency name
	// after sanitization.
	MinCompetencyNameLen = 2
	MaxCompetencyNameLen = 100

	// DefaultMaxPayloadBytes bounds the raw payload accepted by the pipeline.
	// Keeps the regex-fallback parser from chewing on pathological inputs.
	DefaultMaxPayloadBytes = 10 << 20

	// DefaultMaxParseAttempts is the full parse cascade depth.
	DefaultMaxParseAttempts = 3
)

// MinScore and MaxScore bound a competency score.
var (
	MinScore = decimal.Zero
	MaxScore = decimal.NewFromInt(100)
)

// =============================================================================
// EMPLOYEE RECORD - One person's performance snapshot
// =============================================================================

// Employee is the cleaned record shape produced by validation and recovery.
// Metadata fields are pointers because absent and empty are different facts:
// recovery may substitute an empty-string default for an absent field, and
// that substitution must be visible.
type Employee struct {
	ExternalID          string            `json:"external_id,omitempty"`
	Name                string            `json:"name"`
	NIP                 *string           `json:"nip"`
	Gol                 *string           `json:"gol"`
	Pangkat             *string           `json:"pangkat"`
	Position            *string           `json:"position"`
	SubPosition         *string           `json:"sub_position"`
	OrganizationalLevel *string           `json:"organizational_level"`
	Performance         []CompetencyScore `json:"performance"`
}

// CompetencyScore is one named metric for one employee.
// srcIndex is the entry's position in the raw performance sequence. Typed
// positions shift when non-object entries are dropped during validation, so
// findings keyed by input position must go through srcIndex.
type CompetencyScore struct {
	Name  string          `json:"name"`
	Score decimal.Decimal `json:"score"`

	srcIndex int
}

// =============================================================================
// FINDINGS - Errors, warnings, recovery options
// =============================================================================

type ErrorType string

const (
	ErrTypeJSONParse        ErrorType = "json_parse_error"
	ErrTypeDataCorruption   ErrorType = "data_corruption"
	ErrTypeSchemaViolation  ErrorType = "schema_violation"
	ErrTypeCriticalDataLoss ErrorType = "critical_data_loss"
	ErrTypeEncoding         ErrorType = "encoding_error"
	ErrTypeInvalidCompName  ErrorType = "invalid_competency_name"
	ErrTypeArraySize        ErrorType = "array_size_exceeded"
	ErrTypeCircularRef      ErrorType = "circular_reference"
	ErrTypeStorage          ErrorType = "storage_error"
)

type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// BatchScope marks findings that apply to the whole payload rather than a
// single record.
const BatchScope = -1

// IntegrityError is one detected problem.
type IntegrityError struct {
	Type        ErrorType `json:"type"`
	Severity    Severity  `json:"severity"`
	Message     string    `json:"message"`
	Recoverable bool      `json:"recoverable"`
	RecordIndex int       `json:"record_index"`
	EmployeeName string   `json:"employee_name,omitempty"`
	FieldName    string   `json:"field_name,omitempty"`
}

type WarningType string

const (
	WarnEmptyPayload        WarningType = "empty_payload"
	WarnSyntaxRepaired      WarningType = "syntax_repaired"
	WarnRegexFallback       WarningType = "regex_fallback_used"
	WarnTypeCoerced         WarningType = "type_coerced"
	WarnMissingPerformance  WarningType = "missing_performance"
	WarnCompetencySanitized WarningType = "competency_sanitized"
	WarnCompetencyMerged    WarningType = "competency_merged"
	WarnScoreOutOfRange     WarningType = "score_out_of_range"
	WarnScoreClamped        WarningType = "score_clamped"
	WarnZeroSubstituted     WarningType = "zero_substituted"
	WarnDefaultApplied      WarningType = "default_value_applied"
	WarnNameGenerated       WarningType = "name_generated"
	WarnEntryRemoved        WarningType = "entry_removed"
	WarnPerformanceTruncated WarningType = "performance_truncated"
	WarnDuplicateResolved   WarningType = "duplicate_identity_resolved"
	WarnRecordSkipped       WarningType = "record_skipped"
	WarnAttemptsExhausted   WarningType = "recovery_attempts_exhausted"
)

// IntegrityWarning is a non-blocking observation. Original/Applied carry the
// before/after values when a mechanical transform is involved.
type IntegrityWarning struct {
	Type        WarningType `json:"type"`
	Message     string      `json:"message"`
	RecordIndex int         `json:"record_index"`
	EmployeeName string     `json:"employee_name,omitempty"`
	FieldName    string     `json:"field_name,omitempty"`
	Original     string     `json:"original,omitempty"`
	Applied      string     `json:"applied,omitempty"`
}

type RecoveryType string

const (
	RecoveryAutoFix         RecoveryType = "auto_fix"
	RecoveryManualReview    RecoveryType = "manual_review"
	RecoveryDataRestoration RecoveryType = "data_restoration"
	RecoveryFallbackValues  RecoveryType = "fallback_values"
	RecoveryUserInput       RecoveryType = "user_input_required"
)

type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

type RiskLevel string

const (
	RiskSafe     RiskLevel = "safe"
	RiskModerate RiskLevel = "moderate"
	RiskRisky    RiskLevel = "risky"
)

// RecoveryOption is a proposed remediation for a class of detected problems.
type RecoveryOption struct {
	Type           RecoveryType `json:"type"`
	Description    string       `json:"description"`
	Confidence     Confidence   `json:"confidence"`
	RiskLevel      RiskLevel    `json:"risk_level"`
	AffectedFields []string     `json:"affected_fields"`
}

// =============================================================================
// SUMMARY AND RESULT
// =============================================================================

type RecommendedAction string

const (
	ActionProceed RecommendedAction = "proceed"
	ActionReview  RecommendedAction = "review_required"
	ActionManual  RecommendedAction = "manual_intervention"
	ActionAbort   RecommendedAction = "abort"
)

// IntegritySummary is the aggregate outcome of one pipeline run.
type IntegritySummary struct {
	TotalRecords       int               `json:"total_records"`
	CorruptedRecords   int               `json:"corrupted_records"`
	RecoverableRecords int               `json:"recoverable_records"`
	DataLossPercentage float64           `json:"data_loss_percentage"`
	IntegrityScore     int               `json:"integrity_score"`
	RecommendedAction  RecommendedAction `json:"recommended_action"`
}

// ParseAttempt records one cascade attempt, successful or not.
type ParseAttempt struct {
	Strategy string `json:"strategy"`
	Error    string `json:"error,omitempty"`
}

// DataIntegrityResult is the full outcome of a validation (and optional
// recovery) run. Data holds the post-recovery records; it is nil when the
// parse cascade or structural validation failed fatally.
type DataIntegrityResult struct {
	IsValid         bool               `json:"is_valid"`
	HasCorruption   bool               `json:"has_corruption"`
	Errors          []IntegrityError   `json:"errors"`
	Warnings        []IntegrityWarning `json:"warnings"`
	RecoveryOptions []RecoveryOption   `json:"recovery_options"`
	Summary         IntegritySummary   `json:"summary"`
	Data            []Employee         `json:"data,omitempty"`
	ParseAttempts   []ParseAttempt     `json:"parse_attempts,omitempty"`
	RecordsFixed    int                `json:"records_fixed"`
	RecordsSkipped  int                `json:"records_skipped"`
}

// =============================================================================
// RECOVERY POLICY
// =============================================================================

// DuplicateStrategy resolves near-duplicate competency names within one
// employee.
type DuplicateStrategy string

const (
	DuplicateKeepFirst DuplicateStrategy = "keep_first"
	DuplicateKeepLast  DuplicateStrategy = "keep_last"
	DuplicateAverage   DuplicateStrategy = "average"
)

// IdentityStrategy resolves two input records claiming the same identity.
type IdentityStrategy string

const (
	IdentityLastWriteWins  IdentityStrategy = "last_write_wins"
	IdentityFirstWriteWins IdentityStrategy = "first_write_wins"
)

// RecoveryPolicy controls what the recovery engine may do. Zero value is NOT
// usable; construct via DefaultPolicy and override fields.
type RecoveryPolicy struct {
	AutoFix              bool              `json:"auto_fix" yaml:"auto_fix"`
	UseDefaultValues     bool              `json:"use_default_values" yaml:"use_default_values"`
	SkipCorruptedRecords bool              `json:"skip_corrupted_records" yaml:"skip_corrupted_records"`
	MaxRecoveryAttempts  int               `json:"max_recovery_attempts" yaml:"max_recovery_attempts"`
	DuplicateStrategy    DuplicateStrategy `json:"duplicate_strategy" yaml:"duplicate_strategy"`
	IdentityStrategy     IdentityStrategy  `json:"identity_strategy" yaml:"identity_strategy"`
}

// DefaultPolicy returns the standard recovery posture: fix what is safely
// fixable, keep corrupted records for review, first competency occurrence
// wins, last identity write wins.
func DefaultPolicy() RecoveryPolicy {
	return RecoveryPolicy{
		AutoFix:              true,
		UseDefaultValues:     true,
		SkipCorruptedRecords: false,
		MaxRecoveryAttempts:  5,
		DuplicateStrategy:    DuplicateKeepFirst,
		IdentityStrategy:     IdentityLastWriteWins,
	}
}

// Normalize fills unset enum knobs with defaults and bounds the attempt
// counter. Returned policy is always usable.
func (p RecoveryPolicy) Normalize() RecoveryPolicy {
	if p.DuplicateStrategy == "" {
		p.DuplicateStrategy = DuplicateKeepFirst
	}
	if p.IdentityStrategy == "" {
		p.IdentityStrategy = IdentityLastWriteWins
	}
	if p.MaxRecoveryAttempts <= 0 {
		p.MaxRecoveryAttempts = 5
	}
	return p
}

// StringPtr is a small helper for the nullable metadata fields.
func StringPtr(s string) *string { return &s }
