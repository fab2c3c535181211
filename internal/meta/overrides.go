package meta

import (
	"fmt"
	"maps"

	"github.com/garagon/tatu/internal/types"
)

// Override changes the severity of, or disables, every finding of one rule.
type Override struct {
	Severity string `mapstructure:"severity" yaml:"severity,omitempty"`
	Disabled bool   `mapstructure:"disabled" yaml:"disabled,omitempty"`
}

// ValidateOverrides checks that every severity in overrides parses.
func ValidateOverrides(overrides map[string]Override) error {
	for id, o := range overrides {
		if o.Severity == "" {
			continue
		}
		if _, err := types.ParseSeverity(o.Severity); err != nil {
			return fmt.Errorf("rule override %s: %w", id, err)
		}
	}
	return nil
}

// ApplyOverrides returns derived copies of findings with overrides applied.
// Disabled rules are dropped; the input slice is never modified.
func ApplyOverrides(findings []types.Finding, overrides map[string]Override) []types.Finding {
	if len(overrides) == 0 {
		return findings
	}
	result := make([]types.Finding, 0, len(findings))
	for _, f := range findings {
		o, ok := overrides[f.RuleID]
		if !ok {
			result = append(result, f)
			continue
		}
		if o.Disabled {
			continue
		}
		if sev, err := types.ParseSeverity(o.Severity); err == nil && o.Severity != "" {
			f.Severity = sev
			f.Metadata = maps.Clone(f.Metadata)
			if f.Metadata == nil {
				f.Metadata = map[string]string{}
			}
			f.Metadata["severityOverride"] = "true"
		}
		result = append(result, f)
	}
	return result
}

// DisabledRules returns the IDs of rules switched off in overrides.
func DisabledRules(overrides map[string]Override) map[string]bool {
	disabled := make(map[string]bool)
	for id, o := range overrides {
		if o.Disabled {
			disabled[id] = true
		}
	}
	return disabled
}
