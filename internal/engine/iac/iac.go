// Package iac scans infrastructure definitions: Terraform, CloudFormation,
// Kubernetes, Ansible, Compose and Helm values. Files are sniffed before
// any rule runs, and Kubernetes documents also get structural checks.
package iac

import (
	"context"
	"fmt"

	"github.com/garagon/tatu/internal/engine/pattern"
	"github.com/garagon/tatu/internal/rules"
	"github.com/garagon/tatu/internal/rules/builtin"
	"github.com/garagon/tatu/internal/scanner"
	"github.com/garagon/tatu/internal/types"
)

// Scanner is the infrastructure-as-code analyzer.
type Scanner struct {
	patterns   []*rules.CompiledRule
	structural map[string]*rules.CompiledRule
}

// New splits compiled into pattern rules and the structural Kubernetes
// checks, which are matched by ID.
func New(compiled []*rules.CompiledRule) *Scanner {
	s := &Scanner{structural: make(map[string]*rules.CompiledRule)}
	for _, r := range compiled {
		if r.Matchable() {
			s.patterns = append(s.patterns, r)
			continue
		}
		switch r.ID {
		case RuleMissingSecurityContext, RuleMissingProbes, RuleNamespacePolicy:
			s.structural[r.ID] = r
		}
	}
	return s
}

func (s *Scanner) Name() string { return rules.ScannerIaC }

func (s *Scanner) RuleCount() int { return len(s.patterns) + len(s.structural) }

func (s *Scanner) Analyze(ctx context.Context, targets []*scanner.Target) ([]types.Finding, error) {
	charts := make(map[string]bool)
	for _, t := range targets {
		if t.Base() == "Chart.yaml" {
			charts[t.Dir()] = true
		}
	}

	var findings []types.Finding
	for _, t := range targets {
		if ctx.Err() != nil {
			return findings, ctx.Err()
		}
		if !Candidate(t.RelPath) {
			continue
		}
		content, err := t.Read()
		if err != nil {
			continue
		}
		text := string(content)
		kind := Detect(t.RelPath, text, charts[t.Dir()])
		if kind == "" {
			continue
		}
		findings = append(findings, s.ScanContent(t.RelPath, kind, text)...)
	}
	return findings, nil
}

// ScanContent runs the rules for kind over one sniffed file.
func (s *Scanner) ScanContent(relPath, kind, content string) []types.Finding {
	lines := pattern.SplitLines(content)
	var findings []types.Finding
	for _, rule := range s.patterns {
		if !rule.AppliesTo(relPath, kind) {
			continue
		}
		for _, hit := range pattern.FindAll(rule, content) {
			if pattern.IsCommentLine(pattern.LineText(lines, hit.Line)) {
				continue
			}
			if hit.Secret && pattern.IsPlaceholder(hit.Value) {
				continue
			}
			f := pattern.NewFinding(rule, relPath, lines, hit)
			f.Metadata = map[string]string{"kind": kind}
			findings = append(findings, f)
		}
	}
	if kind == builtin.KindKubernetes && len(s.structural) > 0 {
		for _, v := range checkManifests(content) {
			rule, ok := s.structural[v.rule]
			if !ok {
				continue
			}
			findings = append(findings, structuralFinding(rule, relPath, lines, v))
		}
	}
	return findings
}

func structuralFinding(rule *rules.CompiledRule, relPath string, lines []string, v violation) types.Finding {
	object := v.kind
	if v.name != "" {
		object += "/" + v.name
	}
	return types.Finding{
		RuleID:   rule.ID,
		Title:    rule.Title,
		Severity: rule.Severity,
		Message:  fmt.Sprintf("%s: %s", rule.Message, object),
		FilePath: relPath,
		Line:     v.line,
		Column:   v.col,
		Snippet:  pattern.Snippet(pattern.LineText(lines, v.line)),
		CWE:      rule.CWE,
		OWASP:    rule.OWASP,
		Fix:      rule.Fix,
		Scanner:  rule.Scanner,
		Metadata: map[string]string{"kind": builtin.KindKubernetes, "object": object},
	}
}
