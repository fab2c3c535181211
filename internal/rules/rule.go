package rules

import (
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"github.com/garagon/tatu/internal/types"
)

// Scanner families a rule can belong to.
const (
	ScannerSecrets = "secrets"
	ScannerSAST    = "sast"
	ScannerDeps    = "dependencies"
	ScannerIaC     = "iac"
	ScannerDocker  = "docker"
)

// Rule is a declarative detection definition. Built-in tables are plain
// slices of Rule; custom rules are decoded from YAML into the same struct.
//
// A rule with an empty Pattern carries metadata only: the scanner that owns
// it decides when it fires (Dockerfile checks, Kubernetes structure checks,
// dependency advisories).
type Rule struct {
	ID         string         `yaml:"id"`
	Title      string         `yaml:"title"`
	Scanner    string         `yaml:"scanner"`
	Severity   types.Severity `yaml:"severity"`
	Pattern    string         `yaml:"pattern"`
	Message    string         `yaml:"message"`
	CWE        string         `yaml:"cwe"`
	OWASP      string         `yaml:"owasp"`
	Fix        string         `yaml:"fix"`
	Extensions []string       `yaml:"extensions"`
	Languages  []string       `yaml:"languages"`
	Exclude    string         `yaml:"exclude"`
}

// CompiledRule is a rule compiled and ready for execution. It is never
// mutated after Compile returns, so it can be shared between goroutines.
type CompiledRule struct {
	Rule
	Regex   *regexp.Regexp // nil for check-based rules
	exclude *regexp.Regexp
}

// Matchable reports whether the rule carries a pattern.
func (r *CompiledRule) Matchable() bool {
	return r.Regex != nil
}

// AppliesTo checks the extension and language allowlists. An empty list
// means "any". relPath is used for the extension check.
func (r *CompiledRule) AppliesTo(relPath, language string) bool {
	if len(r.Extensions) > 0 {
		ext := strings.ToLower(filepath.Ext(relPath))
		if !slices.Contains(r.Extensions, ext) {
			return false
		}
	}
	if len(r.Languages) > 0 && !slices.Contains(r.Languages, language) {
		return false
	}
	return true
}

// Excluded reports whether a matched text is dropped by the rule's exclude pattern.
func (r *CompiledRule) Excluded(matched string) bool {
	return r.exclude != nil && r.exclude.MatchString(matched)
}
