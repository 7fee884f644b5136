/*
report.go - Human-readable integrity report

PURPOSE:
  Renders a DataIntegrityResult as a deterministic plain-text block:
  header, counts, enumerated errors, warnings and recovery options.
  Field order is stable so output is diff-friendly and testable.

SEE ALSO:
  - score.go: Produces the summary rendered here
*/
package integrity

import (
	"fmt"
	"sort"
	"strings"
)

// Report renders the result as a deterministic plain-text block.
func Report(result *DataIntegrityResult) string {
	var b strings.Builder

	b.WriteString("=== DATA INTEGRITY REPORT ===\n")
	fmt.Fprintf(&b, "Integrity score    : %d/100\n", result.Summary.IntegrityScore)
	fmt.Fprintf(&b, "Recommended action : %s\n", result.Summary.RecommendedAction)
	fmt.Fprintf(&b, "Valid              : %t\n", result.IsValid)
	fmt.Fprintf(&b, "Corruption detected: %t\n", result.HasCorruption)
	fmt.Fprintf(&b, "Records            : total=%d corrupted=%d recoverable=%d fixed=%d skipped=%d\n",
		result.Summary.TotalRecords,
		result.Summary.CorruptedRecords,
		result.Summary.RecoverableRecords,
		result.RecordsFixed,
		result.RecordsSkipped,
	)
	fmt.Fprintf(&b, "Data loss          : %.1f%%\n", result.Summary.DataLossPercentage)

	if len(result.ParseAttempts) > 0 {
		b.WriteString("\nParse attempts:\n")
		for i, a := range result.ParseAttempts {
			if a.Error == "" {
				fmt.Fprintf(&b, "  %d. %s: ok\n", i+1, a.Strategy)
			} else {
				fmt.Fprintf(&b, "  %d. %s: %s\n", i+1, a.Strategy, a.Error)
			}
		}
	}

	fmt.Fprintf(&b, "\nErrors (%d):\n", len(result.Errors))
	for i, e := range sortedErrors(result.Errors) {
		fmt.Fprintf(&b, "  %d. [%s] %s%s: %s\n", i+1, e.Severity, e.Type, scopeSuffix(e.RecordIndex, e.FieldName), e.Message)
	}

	fmt.Fprintf(&b, "\nWarnings (%d):\n", len(result.Warnings))
	for i, w := range sortedWarnings(result.Warnings) {
		fmt.Fprintf(&b, "  %d. %s%s: %s", i+1, w.Type, scopeSuffix(w.RecordIndex, w.FieldName), w.Message)
		if w.Original != "" || w.Applied != "" {
			fmt.Fprintf(&b, " (%s -> %s)", orDash(w.Original), orDash(w.Applied))
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "\nRecovery options (%d):\n", len(result.RecoveryOptions))
	for i, o := range result.RecoveryOptions {
		fmt.Fprintf(&b, "  %d. %s (confidence=%s, risk=%s)", i+1, o.Type, o.Confidence, o.RiskLevel)
		if len(o.AffectedFields) > 0 {
			fmt.Fprintf(&b, " fields=%s", strings.Join(o.AffectedFields, ","))
		}
		fmt.Fprintf(&b, ": %s\n", o.Description)
	}

	return b.String()
}

func scopeSuffix(index int, field string) string {
	switch {
	case index == BatchScope && field == "":
		return ""
	case index == BatchScope:
		return fmt.Sprintf(" (%s)", field)
	case field == "":
		return fmt.Sprintf(" (record %d)", index)
	default:
		return fmt.Sprintf(" (record %d, %s)", index, field)
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func sortedErrors(errors []IntegrityError) []IntegrityError {
	out := make([]IntegrityError, len(errors))
	copy(out, errors)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].RecordIndex != out[j].RecordIndex {
			return out[i].RecordIndex < out[j].RecordIndex
		}
		if out[i].Type != out[j].Type {
			return out[i].Type < out[j].Type
		}
		return out[i].FieldName < out[j].FieldName
	})
	return out
}

func sortedWarnings(warnings []IntegrityWarning) []IntegrityWarning {
	out := make([]IntegrityWarning, len(warnings))
	copy(out, warnings)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].RecordIndex != out[j].RecordIndex {
			return out[i].RecordIndex < out[j].RecordIndex
		}
		if out[i].Type != out[j].Type {
			return out[i].Type < out[j].Type
		}
		return out[i].FieldName < out[j].FieldName
	})
	return out
}
