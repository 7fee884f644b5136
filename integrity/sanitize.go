/*
sanitize.go - Pure normalization helpers

PURPOSE:
  Mechanical transforms shared by the validators, the aggregator and the
  recovery engine. All functions here are pure; they never report, they
  only transform. Callers decide what to log.

SEE ALSO:
  - record.go: Uses these during field validation
  - recovery.go: Re-applies them when a fix is actually committed
*/
package integrity

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	whitespaceRE   = regexp.MustCompile(`\s+`)
	disallowedRE   = regexp.MustCompile(`[^\p{L}\p{N} \-]`)
)

// SanitizeCompetencyName trims, collapses internal whitespace, and strips
// characters outside letters/digits/space/hyphen. Length rules are checked
// by the caller, not here.
func SanitizeCompetencyName(name string) string {
	out := disallowedRE.ReplaceAllString(name, "")
	out = whitespaceRE.ReplaceAllString(out, " ")
	return strings.TrimSpace(out)
}

// NormalizeKey produces the case-insensitive, whitespace-normalized form
// used for competency dedup and employee identity comparison.
func NormalizeKey(name string) string {
	return strings.ToLower(whitespaceRE.ReplaceAllString(strings.TrimSpace(name), " "))
}

// nameLengthInvalid checks the post-sanitization length rule.
func nameLengthInvalid(name string) bool {
	n := len([]rune(name))
	return n < MinCompetencyNameLen || n > MaxCompetencyNameLen
}

// NormalizeScore clamps a score into [0, 100].
func NormalizeScore(score decimal.Decimal) decimal.Decimal {
	if score.LessThan(MinScore) {
		return MinScore
	}
	if score.GreaterThan(MaxScore) {
		return MaxScore
	}
	return score
}

// CoerceScore converts an untyped score value to a finite decimal.
// Returns ok=false for non-numeric values, NaN and infinities; callers
// zero-substitute and report.
func CoerceScore(v any) (decimal.Decimal, bool) {
	switch s := v.(type) {
	case json.Number:
		d, err := decimal.NewFromString(s.String())
		return d, err == nil
	case float64:
		if math.IsNaN(s) || math.IsInf(s, 0) {
			return decimal.Zero, false
		}
		return decimal.NewFromFloat(s), true
	case float32:
		return CoerceScore(float64(s))
	case int:
		return decimal.NewFromInt(int64(s)), true
	case int64:
		return decimal.NewFromInt(s), true
	case string:
		trimmed := strings.TrimSpace(s)
		if trimmed == "" {
			return decimal.Zero, false
		}
		d, err := decimal.NewFromString(trimmed)
		return d, err == nil
	case decimal.Decimal:
		return s, true
	default:
		return decimal.Zero, false
	}
}

// CoerceString converts an untyped value to its display string. The bool
// reports whether the value was already a string (no coercion needed).
func CoerceString(v any) (string, bool) {
	switch s := v.(type) {
	case string:
		return s, true
	case json.Number:
		return s.String(), false
	case bool:
		return strconv.FormatBool(s), false
	case nil:
		return "", false
	default:
		return fmt.Sprintf("%v", s), false
	}
}
