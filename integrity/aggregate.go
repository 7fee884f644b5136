/*
aggregate.go - Finding aggregation and uniqueness enforcement

PURPOSE:
  Merges structural and per-record findings into one unified error and
  warning list with record-index provenance, enforces the two uniqueness
  invariants (competency names within an employee, employee identity
  across the batch), and computes the corruption flag. This stage does
  not decide pass/fail - it assembles facts for the scorer and the
  recovery engine.

COMPETENCY MERGE:
  Entries are grouped by case-insensitive, whitespace-normalized name.
  Groups larger than one are collapsed per policy (keep_first default,
  keep_last, average) with a competency_merged warning naming the
  discarded duplicates and the scores involved. No silent averaging -
  averaging only happens when the policy asks for it.

IDENTITY RESOLUTION:
  Two records sharing an external id or a normalized name are a
  duplicate-identity error. Policy decides the survivor
  (last_write_wins default); the loser is marked dropped and excluded
  from recovery output.

SEE ALSO:
  - record.go: Produces the per-record findings consumed here
  - recovery.go: Consumes the aggregated records
*/
package integrity

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// RecordEntry pairs a validated employee with its original batch index.
// Dropped marks identity-duplicate losers; they never reach recovery output.
type RecordEntry struct {
	Index    int
	Employee *Employee
	Dropped  bool
}

// AggregateResult is the unified fact set for the scorer and recovery engine.
type AggregateResult struct {
	Errors        []IntegrityError
	Warnings      []IntegrityWarning
	Records       []RecordEntry
	HasCorruption bool
}

// Aggregate merges structural and per-record findings and enforces the
// uniqueness invariants under the given policy.
func Aggregate(structural *StructureResult, perRecord []*RecordResult, policy RecoveryPolicy) *AggregateResult {
	policy = policy.Normalize()
	result := &AggregateResult{}

	result.Errors = append(result.Errors, structural.Errors...)
	result.Warnings = append(result.Warnings, structural.Warnings...)

	for i, rr := range perRecord {
		result.Errors = append(result.Errors, rr.Errors...)
		result.Warnings = append(result.Warnings, rr.Warnings...)
		result.Records = append(result.Records, RecordEntry{Index: i, Employee: rr.Employee})
	}

	for i := range result.Records {
		if result.Records[i].Employee != nil {
			result.mergeCompetencies(&result.Records[i], policy.DuplicateStrategy)
		}
	}

	result.resolveIdentities(policy.IdentityStrategy)

	for _, e := range result.Errors {
		if e.Type == ErrTypeDataCorruption || e.Type == ErrTypeCriticalDataLoss {
			result.HasCorruption = true
			break
		}
	}

	return result
}

// =============================================================================
// COMPETENCY MERGE
// =============================================================================

func (r *AggregateResult) mergeCompetencies(entry *RecordEntry, strategy DuplicateStrategy) {
	emp := entry.Employee

	groups := make(map[string][]int)
	var order []string
	for i, c := range emp.Performance {
		key := NormalizeKey(c.Name)
		if _, seen := groups[key]; !seen {
			order = append(order, key)
		}
		groups[key] = append(groups[key], i)
	}

	if len(order) == len(emp.Performance) {
		return // nothing to merge
	}

	merged := make([]CompetencyScore, 0, len(order))
	for _, key := range order {
		idxs := groups[key]
		if len(idxs) == 1 {
			merged = append(merged, emp.Performance[idxs[0]])
			continue
		}

		kept := resolveDuplicateGroup(emp.Performance, idxs, strategy)
		merged = append(merged, kept)

		var discarded []string
		for _, i := range idxs {
			c := emp.Performance[i]
			discarded = append(discarded, fmt.Sprintf("%q=%s", c.Name, c.Score.String()))
		}
		r.Warnings = append(r.Warnings, IntegrityWarning{
			Type:         WarnCompetencyMerged,
			Message:      fmt.Sprintf("%d near-duplicate entries for competency %q merged (%s)", len(idxs), kept.Name, strategy),
			RecordIndex:  entry.Index,
			EmployeeName: emp.Name,
			FieldName:    "performance",
			Original:     strings.Join(discarded, ", "),
			Applied:      fmt.Sprintf("%q=%s", kept.Name, kept.Score.String()),
		})
	}
	emp.Performance = merged
}

func resolveDuplicateGroup(entries []CompetencyScore, idxs []int, strategy DuplicateStrategy) CompetencyScore {
	switch strategy {
	case DuplicateKeepLast:
		return entries[idxs[len(idxs)-1]]
	case DuplicateAverage:
		sum := decimal.Zero
		for _, i := range idxs {
			sum = sum.Add(entries[i].Score)
		}
		avg := sum.Div(decimal.NewFromInt(int64(len(idxs))))
		return CompetencyScore{Name: entries[idxs[0]].Name, Score: avg, srcIndex: entries[idxs[0]].srcIndex}
	default: // keep_first
		return entries[idxs[0]]
	}
}

// =============================================================================
// IDENTITY RESOLUTION
// =============================================================================

// identityKeys returns the keys a record claims. A record can collide on
// either its external id or its normalized name.
func identityKeys(emp *Employee) []string {
	var keys []string
	if emp.ExternalID != "" {
		keys = append(keys, "id:"+emp.ExternalID)
	}
	if nk := NormalizeKey(emp.Name); nk != "" {
		keys = append(keys, "name:"+nk)
	}
	return keys
}

func (r *AggregateResult) resolveIdentities(strategy IdentityStrategy) {
	claimed := make(map[string]int) // key -> record slice position of current holder

	for pos := range r.Records {
		entry := &r.Records[pos]
		if entry.Employee == nil {
			continue
		}

		collidesWith := -1
		for _, key := range identityKeys(entry.Employee) {
			if holder, ok := claimed[key]; ok {
				collidesWith = holder
				break
			}
		}

		if collidesWith == -1 {
			for _, key := range identityKeys(entry.Employee) {
				claimed[key] = pos
			}
			continue
		}

		holder := &r.Records[collidesWith]
		r.Errors = append(r.Errors, IntegrityError{
			Type:         ErrTypeCircularRef,
			Severity:     SeverityHigh,
			Message:      fmt.Sprintf("record %d duplicates the identity of record %d", entry.Index, holder.Index),
			Recoverable:  true,
			RecordIndex:  entry.Index,
			EmployeeName: entry.Employee.Name,
		})

		loser, winner := entry, holder
		if strategy == IdentityLastWriteWins {
			loser, winner = holder, entry
		}
		loser.Dropped = true
		r.Warnings = append(r.Warnings, IntegrityWarning{
			Type:         WarnDuplicateResolved,
			Message:      fmt.Sprintf("record %d dropped in favor of record %d (%s)", loser.Index, winner.Index, strategy),
			RecordIndex:  loser.Index,
			EmployeeName: loser.Employee.Name,
		})

		// Winner takes over all claimed keys, including the loser's.
		winnerPos := collidesWith
		if winner == entry {
			winnerPos = pos
		}
		for _, key := range identityKeys(loser.Employee) {
			claimed[key] = winnerPos
		}
		for _, key := range identityKeys(winner.Employee) {
			claimed[key] = winnerPos
		}
	}
}
