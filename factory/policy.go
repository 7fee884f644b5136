/*
Package factory provides JSON/YAML to Go recovery-policy conversion.

PURPOSE:
  Converts named policy definitions into integrity.RecoveryPolicy values.
  This enables policy configuration without code changes - operators can
  define postures in a JSON or YAML file, and the factory validates them
  and hands back ready-to-use policies.

WHY A FILE FORMAT?
  - Non-developers can adjust recovery postures
  - Easy integration with an admin UI
  - Version control for policy definitions

FILE SCHEMA (JSON shown; YAML is the same shape):
  {
    "cautious_import": {
      "auto_fix": true,
      "use_default_values": false,
      "skip_corrupted_records": true,
      "max_recovery_attempts": 3,
      "duplicate_strategy": "average",
      "identity_strategy": "first_write_wins"
    }
  }

BUILT-IN PRESETS:
  Every PolicySet starts with four builtins - default, strict, lenient,
  dry_run - so the HTTP surface always has something to offer. File
  definitions may shadow a builtin by reusing its name.

USAGE:
  set := factory.NewPolicySet()
  if err := set.LoadFile("policies.yaml"); err != nil { ... }
  policy, ok := set.Get("strict")

SEE ALSO:
  - integrity/types.go: RecoveryPolicy definition and Normalize
  - config/config.go: POLICY_FILE wiring
*/
package factory

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v2"

	"github.com/pulse/integrity-engine/integrity"
)

// =============================================================================
// POLICY SET
// =============================================================================

// PolicySet is a named collection of recovery policies. Not safe for
// concurrent mutation; load everything at startup.
type PolicySet struct {
	policies map[string]integrity.RecoveryPolicy
}

// NewPolicySet returns a set pre-populated with the built-in presets.
func NewPolicySet() *PolicySet {
	s := &PolicySet{policies: make(map[string]integrity.RecoveryPolicy)}
	for name, p := range builtins() {
		s.policies[name] = p
	}
	return s
}

// Get returns the named policy, normalized.
func (s *PolicySet) Get(name string) (integrity.RecoveryPolicy, bool) {
	p, ok := s.policies[name]
	if !ok {
		return integrity.RecoveryPolicy{}, false
	}
	return p.Normalize(), true
}

// Register adds or replaces a named policy after validating it.
func (s *PolicySet) Register(name string, p integrity.RecoveryPolicy) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("policy name must not be empty")
	}
	if err := validatePolicy(name, p); err != nil {
		return err
	}
	s.policies[name] = p.Normalize()
	return nil
}

// Names returns all policy names in sorted order.
func (s *PolicySet) Names() []string {
	names := make([]string, 0, len(s.policies))
	for name := range s.policies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// All returns a copy of the set keyed by name, every entry normalized.
func (s *PolicySet) All() map[string]integrity.RecoveryPolicy {
	out := make(map[string]integrity.RecoveryPolicy, len(s.policies))
	for name, p := range s.policies {
		out[name] = p.Normalize()
	}
	return out
}

// =============================================================================
// BUILT-IN PRESETS
// =============================================================================

func builtins() map[string]integrity.RecoveryPolicy {
	return map[string]integrity.RecoveryPolicy{
		// Fix what is safely fixable, keep everything for review.
		"default": integrity.DefaultPolicy(),

		// No silent mutation: report only, drop anything that would have
		// needed fixing.
		"strict": {
			AutoFix:              false,
			UseDefaultValues:     false,
			SkipCorruptedRecords: true,
			MaxRecoveryAttempts:  1,
			DuplicateStrategy:    integrity.DuplicateKeepFirst,
			IdentityStrategy:     integrity.IdentityFirstWriteWins,
		},

		// Maximum salvage: fix and default everything, keep every record.
		"lenient": {
			AutoFix:              true,
			UseDefaultValues:     true,
			SkipCorruptedRecords: false,
			MaxRecoveryAttempts:  10,
			DuplicateStrategy:    integrity.DuplicateAverage,
			IdentityStrategy:     integrity.IdentityLastWriteWins,
		},

		// Pure observation: nothing is mutated, nothing is dropped.
		"dry_run": {
			AutoFix:              false,
			UseDefaultValues:     false,
			SkipCorruptedRecords: false,
			MaxRecoveryAttempts:  1,
			DuplicateStrategy:    integrity.DuplicateKeepFirst,
			IdentityStrategy:     integrity.IdentityLastWriteWins,
		},
	}
}

// =============================================================================
// FILE LOADING
// =============================================================================

// ParsePolicies parses a JSON document mapping names to policies and merges
// the result into the set. Invalid definitions reject the whole document.
func (s *PolicySet) ParsePolicies(data []byte) error {
	var defs map[string]integrity.RecoveryPolicy
	if err := json.Unmarshal(data, &defs); err != nil {
		return fmt.Errorf("failed to parse policy JSON: %w", err)
	}
	return s.merge(defs)
}

// ParsePoliciesYAML is ParsePolicies for YAML input.
func (s *PolicySet) ParsePoliciesYAML(data []byte) error {
	var defs map[string]integrity.RecoveryPolicy
	if err := yaml.Unmarshal(data, &defs); err != nil {
		return fmt.Errorf("failed to parse policy YAML: %w", err)
	}
	return s.merge(defs)
}

// LoadFile loads policy definitions from a .json, .yaml, or .yml file.
func (s *PolicySet) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read policy file: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return s.ParsePolicies(data)
	case ".yaml", ".yml":
		return s.ParsePoliciesYAML(data)
	default:
		return fmt.Errorf("unsupported policy file extension: %s", filepath.Ext(path))
	}
}

func (s *PolicySet) merge(defs map[string]integrity.RecoveryPolicy) error {
	// Validate everything before touching the set.
	for name, p := range defs {
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("policy name must not be empty")
		}
		if err := validatePolicy(name, p); err != nil {
			return err
		}
	}
	for name, p := range defs {
		s.policies[name] = p.Normalize()
	}
	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

func validatePolicy(name string, p integrity.RecoveryPolicy) error {
	switch p.DuplicateStrategy {
	case "", integrity.DuplicateKeepFirst, integrity.DuplicateKeepLast, integrity.DuplicateAverage:
	default:
		return fmt.Errorf("policy %q: unknown duplicate_strategy %q", name, p.DuplicateStrategy)
	}

	switch p.IdentityStrategy {
	case "", integrity.IdentityLastWriteWins, integrity.IdentityFirstWriteWins:
	default:
		return fmt.Errorf("policy %q: unknown identity_strategy %q", name, p.IdentityStrategy)
	}

	if p.MaxRecoveryAttempts < 0 {
		return fmt.Errorf("policy %q: max_recovery_attempts must not be negative", name)
	}

	return nil
}
