/*
handlers.go - HTTP API handlers for the data integrity engine

PURPOSE:
  Exposes the integrity pipeline via REST API. Handles HTTP
  request/response, JSON serialization, and delegates to the pipeline,
  roster ingest, and storage sink.

ENDPOINTS:
  Validation:
    POST   /api/integrity/validate   Run the pipeline, return the result
    POST   /api/integrity/report     Run the pipeline, return a text report

  Imports:
    POST   /api/imports              Validate, recover, and store a payload
    POST   /api/imports/roster       Same for a CSV roster body
    GET    /api/imports              Import session audit trail

  Read side:
    GET    /api/employees            List stored employees
    GET    /api/employees/{id}       Get one employee
    GET    /api/employees/{id}/scores Stored competency scores
    GET    /api/policies             Named recovery-policy presets

QUALITY GATE:
  Import endpoints enforce the recommended-action ladder before anything
  touches the database:
    proceed             store, 200
    review_required     store, 200 plus X-Integrity-Warnings header
    manual_intervention block, 422 with full result and text report
    abort               block, 422 (or 400 when parsing itself failed)
  Validation endpoints never store and always return 200 for payloads the
  pipeline could examine, whatever the verdict.

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Bad envelope, unknown policy, unparseable payload
  - 404: Resource not found
  - 422: Payload examined but below the storage bar
  - 500: Storage failures (reported as storage_error findings)

SECURITY NOTE:
  Currently NO authentication or authorization. All endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
  - integrity/pipeline.go: The pipeline driven here
*/
package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pulse/integrity-engine/factory"
	"github.com/pulse/integrity-engine/integrity"
	"github.com/pulse/integrity-engine/roster"
	"github.com/pulse/integrity-engine/store/sqlite"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store    *sqlite.Store
	Policies *factory.PolicySet
	Pipeline *integrity.Pipeline
}

// NewHandler creates a new handler with the given store and policy set.
func NewHandler(store *sqlite.Store, policies *factory.PolicySet) *Handler {
	if policies == nil {
		policies = factory.NewPolicySet()
	}
	return &Handler{
		Store:    store,
		Policies: policies,
		Pipeline: integrity.NewPipeline(),
	}
}

// resolvePolicy picks the effective recovery policy for a request.
// Inline overrides win over the named preset; the preset defaults to
// "default".
func (h *Handler) resolvePolicy(name string, overrides *integrity.RecoveryPolicy) (integrity.RecoveryPolicy, error) {
	if overrides != nil {
		return overrides.Normalize(), nil
	}
	if name == "" {
		name = "default"
	}
	policy, ok := h.Policies.Get(name)
	if !ok {
		return integrity.RecoveryPolicy{}, fmt.Errorf("unknown policy %q", name)
	}
	return policy, nil
}

func (h *Handler) decodeValidateRequest(w http.ResponseWriter, r *http.Request) (*ValidateRequest, integrity.RecoveryPolicy, bool) {
	var req ValidateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return nil, integrity.RecoveryPolicy{}, false
	}
	policy, err := h.resolvePolicy(req.Policy, req.PolicyOverrides)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid policy selection", err)
		return nil, integrity.RecoveryPolicy{}, false
	}
	return &req, policy, true
}

// =============================================================================
// VALIDATION HANDLERS
// =============================================================================

// ValidateData runs the pipeline and returns the full result without
// storing anything.
// POST /api/integrity/validate
func (h *Handler) ValidateData(w http.ResponseWriter, r *http.Request) {
	req, policy, ok := h.decodeValidateRequest(w, r)
	if !ok {
		return
	}

	result := h.Pipeline.Run([]byte(req.Payload), policy)
	writeJSON(w, http.StatusOK, result)
}

// ReportData runs the pipeline and returns the human-readable report.
// POST /api/integrity/report
func (h *Handler) ReportData(w http.ResponseWriter, r *http.Request) {
	req, policy, ok := h.decodeValidateRequest(w, r)
	if !ok {
		return
	}

	result := h.Pipeline.Run([]byte(req.Payload), policy)

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, integrity.Report(result))
}

// =============================================================================
// IMPORT HANDLERS
// =============================================================================

// ImportData validates, recovers, and stores a raw payload.
// POST /api/imports
func (h *Handler) ImportData(w http.ResponseWriter, r *http.Request) {
	req, policy, ok := h.decodeValidateRequest(w, r)
	if !ok {
		return
	}

	result := h.Pipeline.Run([]byte(req.Payload), policy)
	h.finishImport(w, r, result, "import")
}

// ImportRoster parses a CSV roster body, runs the pipeline on the
// resulting records, and stores survivors.
// POST /api/imports/roster?policy=name
func (h *Handler) ImportRoster(w http.ResponseWriter, r *http.Request) {
	policy, err := h.resolvePolicy(r.URL.Query().Get("policy"), nil)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid policy selection", err)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, int64(h.Pipeline.MaxPayloadBytes)+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to read body", err)
		return
	}
	if len(body) > h.Pipeline.MaxPayloadBytes {
		writeError(w, http.StatusRequestEntityTooLarge, "Roster exceeds payload limit", nil)
		return
	}

	parsed, err := roster.Parse(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to parse roster CSV", err)
		return
	}

	result := h.Pipeline.RunRecords(parsed.Records(), policy)
	h.finishImport(w, r, result, "roster_import")
}

// finishImport applies the quality gate and, when cleared, persists the
// recovered records inside one import session.
func (h *Handler) finishImport(w http.ResponseWriter, r *http.Request, result *integrity.DataIntegrityResult, operation string) {
	action := result.Summary.RecommendedAction

	// Parsing or structural validation failed outright.
	if action == integrity.ActionAbort && result.Data == nil {
		writeJSON(w, http.StatusBadRequest, operationResult(false, "", operation, result, true))
		return
	}

	if action == integrity.ActionManual || action == integrity.ActionAbort {
		writeJSON(w, http.StatusUnprocessableEntity, operationResult(false, "", operation, result, true))
		return
	}

	ctx := r.Context()
	sessionID, err := h.Store.CreateImportSession(ctx, operation)
	if err != nil {
		h.storageFailure(w, operation, result, err)
		return
	}

	if _, err := h.Store.StoreBatch(ctx, sessionID, result.Data); err != nil {
		h.Store.FinishImportSession(ctx, sessionID, result, "failed", err.Error())
		h.storageFailure(w, operation, result, err)
		return
	}

	if err := h.Store.FinishImportSession(ctx, sessionID, result, "completed", ""); err != nil {
		h.storageFailure(w, operation, result, err)
		return
	}

	if action == integrity.ActionReview {
		w.Header().Set("X-Integrity-Warnings", strconv.Itoa(len(result.Warnings)))
	}
	writeJSON(w, http.StatusOK, operationResult(true, sessionID, operation, result, false))
}

func (h *Handler) storageFailure(w http.ResponseWriter, operation string, result *integrity.DataIntegrityResult, err error) {
	res := operationResult(false, "", operation, result, false)
	res.Errors = append(res.Errors, integrity.IntegrityError{
		Type:        integrity.ErrTypeStorage,
		Severity:    integrity.SeverityCritical,
		Message:     err.Error(),
		Recoverable: true,
		RecordIndex: integrity.BatchScope,
	})
	writeJSON(w, http.StatusInternalServerError, res)
}

func operationResult(success bool, sessionID, operation string, result *integrity.DataIntegrityResult, withReport bool) DatabaseOperationResult {
	res := DatabaseOperationResult{
		Success:         success,
		Errors:          result.Errors,
		Warnings:        result.Warnings,
		RecoveryOptions: result.RecoveryOptions,
		Metadata: OperationMetadata{
			Operation:        operation,
			SessionID:        sessionID,
			Timestamp:        time.Now().UTC().Format(time.RFC3339),
			RecordsProcessed: result.Summary.TotalRecords,
			RecordsRecovered: result.RecordsFixed,
			RecordsSkipped:   result.RecordsSkipped,
			DataQualityScore: result.Summary.IntegrityScore,
		},
	}
	if success {
		res.Data = result.Data
	}
	if withReport {
		res.Report = integrity.Report(result)
	}
	return res
}

// ListImports returns the import session audit trail, newest first.
// GET /api/imports?limit=n
func (h *Handler) ListImports(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "Invalid limit", err)
			return
		}
		limit = n
	}

	sessions, err := h.Store.ListImportSessions(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list imports", err)
		return
	}

	dtos := make([]ImportSessionDTO, len(sessions))
	for i, s := range sessions {
		dtos[i] = ImportSessionDTO{
			ID:                s.ID,
			Operation:         s.Operation,
			Status:            s.Status,
			RecordsProcessed:  s.RecordsProcessed,
			RecordsRecovered:  s.RecordsRecovered,
			RecordsSkipped:    s.RecordsSkipped,
			QualityScore:      s.QualityScore,
			RecommendedAction: s.RecommendedAction,
			Error:             s.Error,
			StartedAt:         s.StartedAt.Format(time.RFC3339),
		}
		if s.FinishedAt != nil {
			dtos[i].FinishedAt = s.FinishedAt.Format(time.RFC3339)
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// READ-SIDE HANDLERS
// =============================================================================

// ListEmployees returns all stored employees.
// GET /api/employees
func (h *Handler) ListEmployees(w http.ResponseWriter, r *http.Request) {
	employees, err := h.Store.ListEmployees(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list employees", err)
		return
	}

	dtos := make([]EmployeeDTO, len(employees))
	for i, e := range employees {
		dtos[i] = toEmployeeDTO(e)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetEmployee returns a single stored employee.
// GET /api/employees/{id}
func (h *Handler) GetEmployee(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	emp, err := h.Store.GetEmployee(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get employee", err)
		return
	}
	if emp == nil {
		writeError(w, http.StatusNotFound, "Employee not found", nil)
		return
	}

	writeJSON(w, http.StatusOK, toEmployeeDTO(*emp))
}

// GetEmployeeScores returns an employee's stored competency scores.
// GET /api/employees/{id}/scores
func (h *Handler) GetEmployeeScores(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	emp, err := h.Store.GetEmployee(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get employee", err)
		return
	}
	if emp == nil {
		writeError(w, http.StatusNotFound, "Employee not found", nil)
		return
	}

	scores, err := h.Store.ListPerformanceScores(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list scores", err)
		return
	}

	dtos := make([]ScoreDTO, len(scores))
	for i, s := range scores {
		dtos[i] = ScoreDTO{
			SessionID:  s.SessionID,
			Competency: s.Competency,
			Score:      s.Score.String(),
			CreatedAt:  s.CreatedAt.Format(time.RFC3339),
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// ListPolicies returns every named recovery-policy preset.
// GET /api/policies
func (h *Handler) ListPolicies(w http.ResponseWriter, r *http.Request) {
	all := h.Policies.All()

	dtos := make([]PolicyDTO, 0, len(all))
	for _, name := range h.Policies.Names() {
		dtos = append(dtos, PolicyDTO{Name: name, Policy: all[name]})
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// HELPERS
// =============================================================================

func toEmployeeDTO(e sqlite.EmployeeRecord) EmployeeDTO {
	return EmployeeDTO{
		ID:                  e.ID,
		ExternalID:          e.ExternalID,
		Name:                e.Name,
		NIP:                 e.NIP,
		Gol:                 e.Gol,
		Pangkat:             e.Pangkat,
		Position:            e.Position,
		SubPosition:         e.SubPosition,
		OrganizationalLevel: e.OrganizationalLevel,
		CreatedAt:           e.CreatedAt.Format(time.RFC3339),
		UpdatedAt:           e.UpdatedAt.Format(time.RFC3339),
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
