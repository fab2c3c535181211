// Package sast applies source-code pattern rules, selected per file by the
// language its extension maps to.
package sast

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/garagon/tatu/internal/engine/pattern"
	"github.com/garagon/tatu/internal/rules"
	"github.com/garagon/tatu/internal/rules/builtin"
	"github.com/garagon/tatu/internal/scanner"
	"github.com/garagon/tatu/internal/types"
)

// Scanner is the source-pattern analyzer.
type Scanner struct {
	rules []*rules.CompiledRule
}

func New(compiled []*rules.CompiledRule) *Scanner {
	return &Scanner{rules: compiled}
}

func (s *Scanner) Name() string { return rules.ScannerSAST }

func (s *Scanner) RuleCount() int { return len(s.rules) }

// Language returns the language for relPath, or "" when the extension is
// not recognised.
func Language(relPath string) string {
	return builtin.LanguageByExt[strings.ToLower(filepath.Ext(relPath))]
}

func (s *Scanner) Analyze(ctx context.Context, targets []*scanner.Target) ([]types.Finding, error) {
	var findings []types.Finding
	for _, t := range targets {
		if ctx.Err() != nil {
			return findings, ctx.Err()
		}
		lang := Language(t.RelPath)
		if lang == "" {
			continue
		}
		content, err := t.Read()
		if err != nil {
			continue
		}
		findings = append(findings, s.ScanContent(t.RelPath, lang, string(content))...)
	}
	return findings, nil
}

// ScanContent applies the rules that accept lang to one file. On test paths
// only medium and above are reported.
func (s *Scanner) ScanContent(relPath, lang, content string) []types.Finding {
	testPath := pattern.IsTestPath(relPath)
	lines := pattern.SplitLines(content)

	var findings []types.Finding
	for _, rule := range s.rules {
		if !rule.Matchable() || !rule.AppliesTo(relPath, lang) {
			continue
		}
		if testPath && rule.Severity <= types.SeverityLow {
			continue
		}
		for _, hit := range pattern.FindAll(rule, content) {
			if pattern.IsCommentLine(pattern.LineText(lines, hit.Line)) {
				continue
			}
			f := pattern.NewFinding(rule, relPath, lines, hit)
			f.Metadata = map[string]string{"language": lang}
			findings = append(findings, f)
		}
	}
	return findings
}
