/*
score.go - Quality scoring and the recommended-action ladder

PURPOSE:
  Computes the 0-100 integrity score from weighted error/warning counts,
  derives per-record corruption statistics, and classifies the overall
  verdict. All weights and thresholds live in the two tables below -
  nowhere else.

SCORING:
  Start at 100. Subtract a severity-scaled penalty per error and a flat
  penalty per warning; floor at 0. dataLossPercentage is corrupted over
  total, guarded against zero records.

SEE ALSO:
  - report.go: Renders the summary as deterministic text
  - pipeline.go: Calls Score after recovery
*/
package integrity

// severityPenalty is the per-error score deduction.
var severityPenalty = map[Severity]int{
	SeverityCritical: 25,
	SeverityHigh:     10,
	SeverityMedium:   5,
	SeverityLow:      1,
}

// warningPenalty is the flat per-warning deduction.
const warningPenalty = 2

// actionLadder maps minimum score to verdict, checked top-down.
var actionLadder = []struct {
	MinScore int
	Action   RecommendedAction
}{
	{90, ActionProceed},
	{70, ActionReview},
	{40, ActionManual},
	{0, ActionAbort},
}

// Score computes the integrity summary from the detected findings.
func Score(errors []IntegrityError, warnings []IntegrityWarning, totalRecords int) IntegritySummary {
	score := 100
	for _, e := range errors {
		score -= severityPenalty[e.Severity]
	}
	score -= warningPenalty * len(warnings)
	if score < 0 {
		score = 0
	}

	corrupted, recoverable := recordStats(errors)

	// Guard: zero records means zero loss, not NaN.
	lossPct := 0.0
	if totalRecords > 0 {
		lossPct = float64(corrupted) / float64(totalRecords) * 100
	}

	return IntegritySummary{
		TotalRecords:       totalRecords,
		CorruptedRecords:   corrupted,
		RecoverableRecords: recoverable,
		DataLossPercentage: lossPct,
		IntegrityScore:     score,
		RecommendedAction:  ClassifyScore(score),
	}
}

// ClassifyScore maps an integrity score onto the action ladder.
func ClassifyScore(score int) RecommendedAction {
	for _, rung := range actionLadder {
		if score >= rung.MinScore {
			return rung.Action
		}
	}
	return ActionAbort
}

// recordStats counts records with at least one error, and among those the
// records whose every error is recoverable. Batch-scope errors do not count
// against any single record.
func recordStats(errors []IntegrityError) (corrupted, recoverable int) {
	perRecord := make(map[int]bool) // index -> all recoverable so far
	for _, e := range errors {
		if e.RecordIndex == BatchScope {
			continue
		}
		allRecoverable, seen := perRecord[e.RecordIndex]
		if !seen {
			allRecoverable = true
		}
		perRecord[e.RecordIndex] = allRecoverable && e.Recoverable
	}

	for _, allRecoverable := range perRecord {
		corrupted++
		if allRecoverable {
			recoverable++
		}
	}
	return corrupted, recoverable
}
