package integrity_test

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulse/integrity-engine/integrity"
)

// aggregate runs validation + aggregation over parsed-shaped records.
func aggregate(t *testing.T, policy integrity.RecoveryPolicy, records ...map[string]any) *integrity.AggregateResult {
	t.Helper()
	elements := make([]any, len(records))
	for i, r := range records {
		elements[i] = r
	}
	structural := integrity.ValidateStructure(elements)
	require.False(t, structural.Fatal())

	perRecord := make([]*integrity.RecordResult, len(structural.Records))
	for i, el := range structural.Records {
		perRecord[i] = integrity.ValidateRecord(el, i)
	}
	return integrity.Aggregate(structural, perRecord, policy)
}

// =============================================================================
// COMPETENCY MERGE
// =============================================================================

func TestAggregate_NearDuplicateCompetencies_MergedKeepFirst(t *testing.T) {
	// GIVEN: two case-variant entries for the same competency
	// WHEN: aggregating with the default keep_first strategy
	// THEN: exactly one entry survives, the first occurrence wins, and a
	//       competency_merged warning names the discarded scores

	rec := record("John",
		entry("Kualitas Kinerja", json.Number("85")),
		entry("KUALITAS KINERJA", json.Number("90")),
	)
	agg := aggregate(t, integrity.DefaultPolicy(), rec)

	emp := agg.Records[0].Employee
	require.Len(t, emp.Performance, 1)
	assert.Equal(t, "Kualitas Kinerja", emp.Performance[0].Name)
	assert.True(t, emp.Performance[0].Score.Equal(decimal.NewFromInt(85)))

	merged := findWarnings(agg.Warnings, integrity.WarnCompetencyMerged)
	require.Len(t, merged, 1)
	assert.Contains(t, merged[0].Original, "85")
	assert.Contains(t, merged[0].Original, "90")
}

func TestAggregate_DuplicateStrategy_KeepLast(t *testing.T) {
	policy := integrity.DefaultPolicy()
	policy.DuplicateStrategy = integrity.DuplicateKeepLast

	rec := record("John",
		entry("Leadership", json.Number("60")),
		entry("leadership", json.Number("80")),
	)
	agg := aggregate(t, policy, rec)

	emp := agg.Records[0].Employee
	require.Len(t, emp.Performance, 1)
	assert.True(t, emp.Performance[0].Score.Equal(decimal.NewFromInt(80)))
}

func TestAggregate_DuplicateStrategy_Average(t *testing.T) {
	// Averaging only happens when the policy explicitly asks for it.
	policy := integrity.DefaultPolicy()
	policy.DuplicateStrategy = integrity.DuplicateAverage

	rec := record("John",
		entry("Leadership", json.Number("60")),
		entry("LEADERSHIP", json.Number("80")),
	)
	agg := aggregate(t, policy, rec)

	emp := agg.Records[0].Employee
	require.Len(t, emp.Performance, 1)
	assert.True(t, emp.Performance[0].Score.Equal(decimal.NewFromInt(70)))
	assert.Equal(t, "Leadership", emp.Performance[0].Name, "first occurrence names the merged entry")
}

func TestAggregate_DistinctCompetencies_Untouched(t *testing.T) {
	rec := record("John",
		entry("Leadership", json.Number("60")),
		entry("Teamwork", json.Number("80")),
	)
	agg := aggregate(t, integrity.DefaultPolicy(), rec)

	assert.Len(t, agg.Records[0].Employee.Performance, 2)
	assert.Empty(t, findWarnings(agg.Warnings, integrity.WarnCompetencyMerged))
}

// =============================================================================
// IDENTITY RESOLUTION
// =============================================================================

func TestAggregate_DuplicateIdentity_LastWriteWinsByDefault(t *testing.T) {
	// GIVEN: two records with the same normalized name
	// WHEN: aggregating with the default identity strategy
	// THEN: a duplicate-identity error is recorded and the earlier record
	//       is marked dropped

	first := record("John Smith", entry("Leadership", json.Number("50")))
	second := record("john  smith", entry("Leadership", json.Number("90")))
	agg := aggregate(t, integrity.DefaultPolicy(), first, second)

	require.Len(t, agg.Errors, 1)
	assert.Equal(t, integrity.ErrTypeCircularRef, agg.Errors[0].Type)

	assert.True(t, agg.Records[0].Dropped, "earlier record loses under last_write_wins")
	assert.False(t, agg.Records[1].Dropped)
}

func TestAggregate_DuplicateIdentity_FirstWriteWins(t *testing.T) {
	policy := integrity.DefaultPolicy()
	policy.IdentityStrategy = integrity.IdentityFirstWriteWins

	first := record("John Smith")
	second := record("John Smith")
	agg := aggregate(t, policy, first, second)

	assert.False(t, agg.Records[0].Dropped)
	assert.True(t, agg.Records[1].Dropped)
}

func TestAggregate_DuplicateExternalID_DetectedAcrossNames(t *testing.T) {
	first := record("John Smith")
	first["id"] = json.Number("42")
	second := record("Completely Different")
	second["id"] = json.Number("42")

	agg := aggregate(t, integrity.DefaultPolicy(), first, second)

	require.Len(t, agg.Errors, 1)
	assert.Equal(t, integrity.ErrTypeCircularRef, agg.Errors[0].Type)
}

// =============================================================================
// CORRUPTION FLAG
// =============================================================================

func TestAggregate_HasCorruption_OnlyForCorruptionClassErrors(t *testing.T) {
	// schema_violation alone does not set the corruption flag
	missingName := map[string]any{"performance": []any{}}
	agg := aggregate(t, integrity.DefaultPolicy(), missingName)
	assert.False(t, agg.HasCorruption)

	// a non-numeric score is data_corruption and does set it
	corrupted := record("John", entry("Leadership", "bad"))
	agg = aggregate(t, integrity.DefaultPolicy(), corrupted)
	assert.True(t, agg.HasCorruption)
}

func findWarnings(warns []integrity.IntegrityWarning, wt integrity.WarningType) []integrity.IntegrityWarning {
	var out []integrity.IntegrityWarning
	for _, w := range warns {
		if w.Type == wt {
			out = append(out, w)
		}
	}
	return out
}
