/*
parser.go - Raw parse cascade

PURPOSE:
  Turns a raw byte payload into a tentative in-memory value using an
  ordered cascade of strategies, each strictly more permissive than the
  last:

    1. direct         - strict JSON decode, fail fast
    2. syntax_repair  - fixed textual repairs, then strict decode
    3. regex_fallback - field-pattern extraction, structure ignored

  The cascade short-circuits on first success. Every failed attempt's
  reason is retained so the final report can show why escalation
  occurred. If all attempts fail, no records are invented.

REPAIR RULES (attempt 2):
  - quote unquoted object keys
  - strip trailing commas before } or ]
  - normalize single quotes to double quotes
  - replace literal undefined/NaN tokens with null

SUCCESS CRITERION:
  An attempt succeeds the moment the payload parses at all. Whether the
  parsed value has the right shape (an array of records) is the
  structural validator's job - a lone object must reach it so it can be
  flagged rather than silently coerced.

SEE ALSO:
  - structural.go: Shape checks on the parsed value
  - pipeline.go: Size guard before the cascade runs
*/
package integrity

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// =============================================================================
// PARSE RESULT
// =============================================================================

// ParseResult is the outcome of the cascade. Attempts always lists every
// strategy that ran, in order; the last entry has an empty Error on success.
type ParseResult struct {
	OK       bool
	Value    any
	Strategy string
	Attempts []ParseAttempt
}

// =============================================================================
// STRATEGY CASCADE
// =============================================================================

type parseStrategy struct {
	name    string
	attempt func(raw []byte) (any, error)
}

// parseCascade is ordered from strict to permissive. Order is load-bearing.
var parseCascade = []parseStrategy{
	{name: "direct", attempt: parseDirect},
	{name: "syntax_repair", attempt: parseRepaired},
	{name: "regex_fallback", attempt: parseRegexFallback},
}

// ParseRaw runs the cascade over raw, stopping at the first strategy that
// produces a value. maxAttempts bounds cascade depth; values outside
// [1, len(cascade)] mean the full cascade.
func ParseRaw(raw []byte, maxAttempts int) *ParseResult {
	result := &ParseResult{}

	if len(bytes.TrimSpace(raw)) == 0 {
		result.Attempts = append(result.Attempts, ParseAttempt{
			Strategy: "direct",
			Error:    ErrEmptyInput.Error(),
		})
		return result
	}

	if maxAttempts <= 0 || maxAttempts > len(parseCascade) {
		maxAttempts = len(parseCascade)
	}

	for _, s := range parseCascade[:maxAttempts] {
		value, err := s.attempt(raw)
		if err != nil {
			result.Attempts = append(result.Attempts, ParseAttempt{
				Strategy: s.name,
				Error:    err.Error(),
			})
			continue
		}
		result.OK = true
		result.Value = value
		result.Strategy = s.name
		result.Attempts = append(result.Attempts, ParseAttempt{Strategy: s.name})
		return result
	}

	return result
}

// =============================================================================
// ATTEMPT 1 - DIRECT
// =============================================================================

// parseDirect is a strict JSON decode. json.Number preserves numeric
// precision until scores are coerced to decimal.
func parseDirect(raw []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var value any
	if err := dec.Decode(&value); err != nil {
		return nil, fmt.Errorf("direct parse: %w", err)
	}

	// Reject trailing garbage after the first value.
	if dec.More() {
		return nil, fmt.Errorf("direct parse: trailing data after JSON value")
	}
	return value, nil
}

// =============================================================================
// ATTEMPT 2 - SYNTAX REPAIR
// =============================================================================

var (
	unquotedKeyRE   = regexp.MustCompile(`([{,]\s*)([A-Za-z_][A-Za-z0-9_]*)(\s*):`)
	trailingCommaRE = regexp.MustCompile(`,(\s*[}\]])`)
	singleQuotedRE  = regexp.MustCompile(`'([^'\\]*)'`)
	badTokenRE      = regexp.MustCompile(`\b(undefined|NaN)\b`)
)

// RepairSyntax applies the fixed repair rules. Exported so tests and the
// report can show the repaired text alongside the original.
func RepairSyntax(raw string) string {
	out := unquotedKeyRE.ReplaceAllString(raw, `$1"$2"$3:`)
	out = singleQuotedRE.ReplaceAllString(out, `"$1"`)
	out = trailingCommaRE.ReplaceAllString(out, `$1`)
	out = badTokenRE.ReplaceAllString(out, `null`)
	return out
}

func parseRepaired(raw []byte) (any, error) {
	repaired := RepairSyntax(string(raw))
	value, err := parseDirect([]byte(repaired))
	if err != nil {
		return nil, fmt.Errorf("syntax repair: %w", err)
	}
	return value, nil
}

// =============================================================================
// ATTEMPT 3 - REGEX FALLBACK
// =============================================================================

var (
	nameFieldRE  = regexp.MustCompile(`"name"\s*:\s*"([^"]*)"`)
	scoreFieldRE = regexp.MustCompile(`"score"\s*:\s*(-?[0-9]+(?:\.[0-9]+)?)`)
)

type fieldMatch struct {
	pos   int
	value string
}

// parseRegexFallback scans for name/score field patterns regardless of
// overall structural validity and reconstructs a best-effort record list
// by positional pairing:
//
//   - a name immediately followed by a score (before any other name) is a
//     competency entry attached to the current record
//   - a name followed by another name opens a new employee record
//
// Records reconstructed this way still go through full validation; this
// stage only recovers the field sequence, it never fabricates values.
func parseRegexFallback(raw []byte) (any, error) {
	text := RepairSyntax(string(raw))

	names := collectMatches(nameFieldRE, text)
	scores := collectMatches(scoreFieldRE, text)
	if len(names) == 0 {
		return nil, fmt.Errorf("regex fallback: no recognizable name fields")
	}

	var records []any
	var current map[string]any
	scoreIdx := 0

	for i, n := range names {
		nextNamePos := len(text)
		if i+1 < len(names) {
			nextNamePos = names[i+1].pos
		}

		// Score between this name and the next one pairs with this name.
		if scoreIdx < len(scores) && scores[scoreIdx].pos > n.pos && scores[scoreIdx].pos < nextNamePos {
			if current == nil {
				// Competency seen before any employee name. Open an
				// anonymous record and let record validation flag it.
				current = map[string]any{"name": "", "performance": []any{}}
				records = append(records, current)
			}
			entry := map[string]any{
				"name":  n.value,
				"score": json.Number(scores[scoreIdx].value),
			}
			current["performance"] = append(current["performance"].([]any), entry)
			scoreIdx++
			continue
		}

		// Name without an adjacent score starts a new employee record.
		current = map[string]any{"name": strings.TrimSpace(n.value), "performance": []any{}}
		records = append(records, current)
	}

	if len(records) == 0 {
		return nil, fmt.Errorf("regex fallback: no records reconstructed")
	}
	return records, nil
}

func collectMatches(re *regexp.Regexp, text string) []fieldMatch {
	var out []fieldMatch
	for _, m := range re.FindAllStringSubmatchIndex(text, -1) {
		out = append(out, fieldMatch{pos: m[0], value: text[m[2]:m[3]]})
	}
	return out
}
