package api_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulse/integrity-engine/api"
	"github.com/pulse/integrity-engine/factory"
	"github.com/pulse/integrity-engine/integrity"
	"github.com/pulse/integrity-engine/store/sqlite"
)

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	handler := api.NewHandler(store, factory.NewPolicySet())
	srv := httptest.NewServer(api.NewRouter(handler, api.RouterOptions{}))
	t.Cleanup(srv.Close)
	return srv
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	return resp
}

func decodeJSON[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

// =============================================================================
// VALIDATION ENDPOINTS
// =============================================================================

func TestValidateEndpoint_CleanPayload(t *testing.T) {
	srv := newServer(t)

	resp := postJSON(t, srv.URL+"/api/integrity/validate", api.ValidateRequest{
		Payload: `[{"name":"John","performance":[{"name":"Leadership","score":85}]}]`,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	result := decodeJSON[integrity.DataIntegrityResult](t, resp)
	assert.True(t, result.IsValid)
	assert.Equal(t, 100, result.Summary.IntegrityScore)
	require.Len(t, result.Data, 1)
}

func TestValidateEndpoint_CorruptPayloadStillReturns200(t *testing.T) {
	// Validation reports, it does not gate.
	srv := newServer(t)

	resp := postJSON(t, srv.URL+"/api/integrity/validate", api.ValidateRequest{Payload: `[{"na`})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	result := decodeJSON[integrity.DataIntegrityResult](t, resp)
	assert.False(t, result.IsValid)
	assert.Equal(t, integrity.ActionAbort, result.Summary.RecommendedAction)
}

func TestValidateEndpoint_UnknownPolicy(t *testing.T) {
	srv := newServer(t)

	resp := postJSON(t, srv.URL+"/api/integrity/validate", api.ValidateRequest{
		Payload: `[]`,
		Policy:  "nonexistent",
	})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestValidateEndpoint_BadBody(t *testing.T) {
	srv := newServer(t)

	resp, err := http.Post(srv.URL+"/api/integrity/validate", "application/json", strings.NewReader("{"))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestReportEndpoint_PlainText(t *testing.T) {
	srv := newServer(t)

	resp := postJSON(t, srv.URL+"/api/integrity/report", api.ValidateRequest{
		Payload: `[{"name":"John","performance":[{"name":"Leadership","score":85}]}]`,
	})
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/plain")

	buf := new(bytes.Buffer)
	buf.ReadFrom(resp.Body)
	assert.Contains(t, buf.String(), "=== DATA INTEGRITY REPORT ===")
}

// =============================================================================
// IMPORT QUALITY GATE
// =============================================================================

func TestImportEndpoint_CleanPayloadStored(t *testing.T) {
	srv := newServer(t)

	resp := postJSON(t, srv.URL+"/api/imports", api.ValidateRequest{
		Payload: `[{"name":"John","id":"EMP-1","performance":[{"name":"Leadership","score":85}]}]`,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	result := decodeJSON[api.DatabaseOperationResult](t, resp)
	assert.True(t, result.Success)
	assert.Equal(t, "import", result.Metadata.Operation)
	assert.NotEmpty(t, result.Metadata.SessionID)
	assert.Equal(t, 1, result.Metadata.RecordsProcessed)
	assert.Equal(t, 100, result.Metadata.DataQualityScore)

	// Stored and visible on the read side
	listResp, err := http.Get(srv.URL + "/api/employees")
	require.NoError(t, err)
	employees := decodeJSON[[]api.EmployeeDTO](t, listResp)
	require.Len(t, employees, 1)
	assert.Equal(t, "John", employees[0].Name)
	assert.Equal(t, "EMP-1", employees[0].ExternalID)

	scoresResp, err := http.Get(srv.URL + "/api/employees/" + employees[0].ID + "/scores")
	require.NoError(t, err)
	scores := decodeJSON[[]api.ScoreDTO](t, scoresResp)
	require.Len(t, scores, 1)
	assert.Equal(t, "Leadership", scores[0].Competency)
	assert.Equal(t, "85", scores[0].Score)

	// Audit trail recorded
	importsResp, err := http.Get(srv.URL + "/api/imports")
	require.NoError(t, err)
	sessions := decodeJSON[[]api.ImportSessionDTO](t, importsResp)
	require.Len(t, sessions, 1)
	assert.Equal(t, "completed", sessions[0].Status)
	assert.Equal(t, "proceed", sessions[0].RecommendedAction)
}

func TestImportEndpoint_ReviewLevelStoredWithWarningHeader(t *testing.T) {
	// GIVEN: recoverable damage that lands the score in review territory
	// WHEN: importing with the default policy
	// THEN: records are stored and the warning header is set

	srv := newServer(t)

	resp := postJSON(t, srv.URL+"/api/imports", api.ValidateRequest{
		Payload: `[{"name":"","performance":[{"name":"Leadership","score":85}]},{"name":"","performance":[{"name":"Teamwork","score":70}]}]`,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Integrity-Warnings"))

	result := decodeJSON[api.DatabaseOperationResult](t, resp)
	assert.True(t, result.Success)
	assert.Equal(t, 2, result.Metadata.RecordsRecovered)
	require.Len(t, result.Data, 2)
	assert.NotEmpty(t, result.Data[0].Name, "generated names stored, not blanks")
}

func TestImportEndpoint_ManualInterventionBlocked(t *testing.T) {
	// Four unusable records push the score below 70: nothing is stored.
	srv := newServer(t)

	resp := postJSON(t, srv.URL+"/api/imports", api.ValidateRequest{Payload: `[1,2,3,4]`})
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	result := decodeJSON[api.DatabaseOperationResult](t, resp)
	assert.False(t, result.Success)
	assert.Contains(t, result.Report, "=== DATA INTEGRITY REPORT ===")

	listResp, err := http.Get(srv.URL + "/api/employees")
	require.NoError(t, err)
	assert.Empty(t, decodeJSON[[]api.EmployeeDTO](t, listResp))

	importsResp, err := http.Get(srv.URL + "/api/imports")
	require.NoError(t, err)
	assert.Empty(t, decodeJSON[[]api.ImportSessionDTO](t, importsResp), "blocked imports leave no session")
}

func TestImportEndpoint_UnparseablePayloadIs400(t *testing.T) {
	srv := newServer(t)

	resp := postJSON(t, srv.URL+"/api/imports", api.ValidateRequest{Payload: `[{"na`})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	result := decodeJSON[api.DatabaseOperationResult](t, resp)
	assert.False(t, result.Success)
	assert.NotEmpty(t, result.Errors)
}

func TestImportEndpoint_EmptyArrayIsNoOp(t *testing.T) {
	srv := newServer(t)

	resp := postJSON(t, srv.URL+"/api/imports", api.ValidateRequest{Payload: `[]`})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	result := decodeJSON[api.DatabaseOperationResult](t, resp)
	assert.True(t, result.Success)
	assert.Zero(t, result.Metadata.RecordsProcessed)
}

// =============================================================================
// ROSTER IMPORT
// =============================================================================

func TestRosterImportEndpoint(t *testing.T) {
	srv := newServer(t)

	csv := "Nama,NIP,Leadership,Teamwork\nJohn,198001,85,90\nJane,198002,70,75\n"
	resp, err := http.Post(srv.URL+"/api/imports/roster", "text/csv", strings.NewReader(csv))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	result := decodeJSON[api.DatabaseOperationResult](t, resp)
	assert.True(t, result.Success)
	assert.Equal(t, "roster_import", result.Metadata.Operation)
	assert.Equal(t, 2, result.Metadata.RecordsProcessed)

	listResp, err := http.Get(srv.URL + "/api/employees")
	require.NoError(t, err)
	assert.Len(t, decodeJSON[[]api.EmployeeDTO](t, listResp), 2)
}

func TestRosterImportEndpoint_EmptyBody(t *testing.T) {
	srv := newServer(t)

	resp, err := http.Post(srv.URL+"/api/imports/roster", "text/csv", strings.NewReader(""))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

// =============================================================================
// READ SIDE
// =============================================================================

func TestGetEmployee_NotFound(t *testing.T) {
	srv := newServer(t)

	resp, err := http.Get(srv.URL + "/api/employees/missing")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestListPolicies_Builtins(t *testing.T) {
	srv := newServer(t)

	resp, err := http.Get(srv.URL + "/api/policies")
	require.NoError(t, err)
	policies := decodeJSON[[]api.PolicyDTO](t, resp)

	names := make([]string, len(policies))
	for i, p := range policies {
		names[i] = p.Name
	}
	assert.Equal(t, []string{"default", "dry_run", "lenient", "strict"}, names)
}

func TestListImports_BadLimit(t *testing.T) {
	srv := newServer(t)

	resp, err := http.Get(srv.URL + "/api/imports?limit=zero")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
