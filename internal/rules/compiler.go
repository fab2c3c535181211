package rules

import (
	"fmt"
	"regexp"
	"strings"
)

// Compile converts a Rule into a CompiledRule ready for execution.
func Compile(raw Rule) (*CompiledRule, error) {
	if raw.ID == "" {
		return nil, fmt.Errorf("rule missing ID")
	}
	if !raw.Severity.Valid() {
		return nil, fmt.Errorf("rule %s: invalid severity %d", raw.ID, int(raw.Severity))
	}

	compiled := &CompiledRule{Rule: raw}
	compiled.Extensions = normalizeExts(raw.Extensions)

	if raw.Pattern != "" {
		re, err := regexp.Compile(raw.Pattern)
		if err != nil {
			return nil, fmt.Errorf("rule %s: invalid regex: %w", raw.ID, err)
		}
		compiled.Regex = re
	}
	if raw.Exclude != "" {
		re, err := regexp.Compile(raw.Exclude)
		if err != nil {
			return nil, fmt.Errorf("rule %s: invalid exclude regex: %w", raw.ID, err)
		}
		compiled.exclude = re
	}
	return compiled, nil
}

// CompileAll compiles a slice of rules, returning compiled rules and any errors.
func CompileAll(raws []Rule) ([]*CompiledRule, []error) {
	var rules []*CompiledRule
	var errs []error
	for _, raw := range raws {
		cr, err := Compile(raw)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		rules = append(rules, cr)
	}
	return rules, errs
}

// MustCompileAll compiles static tables and panics on the first error.
func MustCompileAll(raws []Rule) []*CompiledRule {
	compiled, errs := CompileAll(raws)
	if len(errs) > 0 {
		panic(errs[0])
	}
	return compiled
}

// FilterByIDs removes rules whose IDs are in the disabled set.
func FilterByIDs(raws []Rule, disabled map[string]bool) []Rule {
	if len(disabled) == 0 {
		return raws
	}
	var result []Rule
	for _, rule := range raws {
		if !disabled[rule.ID] {
			result = append(result, rule)
		}
	}
	return result
}

// ByScanner returns the rules that belong to scanner.
func ByScanner(raws []Rule, scanner string) []Rule {
	var result []Rule
	for _, rule := range raws {
		if rule.Scanner == scanner {
			result = append(result, rule)
		}
	}
	return result
}

func normalizeExts(exts []string) []string {
	if len(exts) == 0 {
		return nil
	}
	out := make([]string, len(exts))
	for i, e := range exts {
		e = strings.ToLower(strings.TrimSpace(e))
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		out[i] = e
	}
	return out
}
