/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

TYPES:
  Validation:
    ValidateRequest - raw payload plus policy selection
    (responses reuse integrity.DataIntegrityResult directly; the pipeline
     output IS the API contract for validation)

  Imports:
    DatabaseOperationResult - outcome of a pipeline-plus-storage run
    OperationMetadata       - audit facts about the run

  Read side:
    EmployeeDTO, ScoreDTO, ImportSessionDTO

VALIDATION:
  Validation is done in handlers, not in DTOs. DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
  - integrity/types.go: The embedded result shapes
*/
package api

import (
	"github.com/pulse/integrity-engine/integrity"
)

// =============================================================================
// REQUEST TYPES
// =============================================================================

// ValidateRequest carries a raw payload through validation or import.
// Policy selects a named preset; PolicyOverrides, when present, wins.
type ValidateRequest struct {
	Payload         string                    `json:"payload"`
	Policy          string                    `json:"policy,omitempty"`
	PolicyOverrides *integrity.RecoveryPolicy `json:"policy_overrides,omitempty"`
}

// =============================================================================
// IMPORT RESPONSE TYPES
// =============================================================================

// OperationMetadata describes one pipeline-plus-storage run.
type OperationMetadata struct {
	Operation        string `json:"operation"`
	SessionID        string `json:"session_id,omitempty"`
	Timestamp        string `json:"timestamp"`
	RecordsProcessed int    `json:"records_processed"`
	RecordsRecovered int    `json:"records_recovered"`
	RecordsSkipped   int    `json:"records_skipped"`
	DataQualityScore int    `json:"data_quality_score"`
}

// DatabaseOperationResult is the envelope returned by import endpoints.
type DatabaseOperationResult struct {
	Success         bool                         `json:"success"`
	Data            []integrity.Employee         `json:"data,omitempty"`
	Errors          []integrity.IntegrityError   `json:"errors,omitempty"`
	Warnings        []integrity.IntegrityWarning `json:"warnings,omitempty"`
	RecoveryOptions []integrity.RecoveryOption   `json:"recovery_options,omitempty"`
	Report          string                       `json:"report,omitempty"`
	Metadata        OperationMetadata            `json:"metadata"`
}

// =============================================================================
// READ-SIDE TYPES
// =============================================================================

// EmployeeDTO represents a stored employee in API responses.
type EmployeeDTO struct {
	ID                  string `json:"id"`
	ExternalID          string `json:"external_id,omitempty"`
	Name                string `json:"name"`
	NIP                 string `json:"nip,omitempty"`
	Gol                 string `json:"gol,omitempty"`
	Pangkat             string `json:"pangkat,omitempty"`
	Position            string `json:"position,omitempty"`
	SubPosition         string `json:"sub_position,omitempty"`
	OrganizationalLevel string `json:"organizational_level,omitempty"`
	CreatedAt           string `json:"created_at,omitempty"`
	UpdatedAt           string `json:"updated_at,omitempty"`
}

// ScoreDTO represents one stored competency score.
type ScoreDTO struct {
	SessionID  string `json:"session_id"`
	Competency string `json:"competency"`
	Score      string `json:"score"`
	CreatedAt  string `json:"created_at"`
}

// ImportSessionDTO represents one import audit row.
type ImportSessionDTO struct {
	ID                string `json:"id"`
	Operation         string `json:"operation"`
	Status            string `json:"status"`
	RecordsProcessed  int    `json:"records_processed"`
	RecordsRecovered  int    `json:"records_recovered"`
	RecordsSkipped    int    `json:"records_skipped"`
	QualityScore      int    `json:"quality_score"`
	RecommendedAction string `json:"recommended_action,omitempty"`
	Error             string `json:"error,omitempty"`
	StartedAt         string `json:"started_at"`
	FinishedAt        string `json:"finished_at,omitempty"`
}

// PolicyDTO represents a named policy preset.
type PolicyDTO struct {
	Name   string                   `json:"name"`
	Policy integrity.RecoveryPolicy `json:"policy"`
}

// ErrorResponse is the generic error envelope.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
