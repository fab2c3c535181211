// Package deps reads dependency manifests and lock files and reports
// packages whose version falls inside a known vulnerable range.
package deps

import (
	"context"
	"fmt"
	"slices"

	"github.com/garagon/tatu/internal/engine/pattern"
	"github.com/garagon/tatu/internal/rules"
	"github.com/garagon/tatu/internal/scanner"
	"github.com/garagon/tatu/internal/types"
	"github.com/garagon/tatu/internal/version"
)

// RuleID is the rule every dependency finding is reported under.
const RuleID = "vulnerable-dependency"

// Scanner is the dependency-manifest analyzer.
type Scanner struct {
	rule *rules.CompiledRule // nil when the rule is disabled
}

// New picks the vulnerable-dependency rule out of compiled. Without it the
// scanner reports nothing.
func New(compiled []*rules.CompiledRule) *Scanner {
	s := &Scanner{}
	for _, r := range compiled {
		if r.ID == RuleID {
			s.rule = r
		}
	}
	return s
}

func (s *Scanner) Name() string { return rules.ScannerDeps }

func (s *Scanner) RuleCount() int {
	if s.rule == nil {
		return 0
	}
	return 1
}

type manifestFile struct {
	target *scanner.Target
	parser parser
}

// Analyze groups manifest files by directory. Within a directory manifests
// are read before lock files, and a lock finding for a package and advisory
// already reported from the manifest is dropped.
func (s *Scanner) Analyze(ctx context.Context, targets []*scanner.Target) ([]types.Finding, error) {
	if s.rule == nil {
		return nil, nil
	}
	byDir := make(map[string][]manifestFile)
	var dirs []string
	for _, t := range targets {
		p, ok := parserFor(t.Base())
		if !ok {
			continue
		}
		dir := t.Dir()
		if _, seen := byDir[dir]; !seen {
			dirs = append(dirs, dir)
		}
		byDir[dir] = append(byDir[dir], manifestFile{target: t, parser: p})
	}
	slices.Sort(dirs)

	var findings []types.Finding
	for _, dir := range dirs {
		if ctx.Err() != nil {
			return findings, ctx.Err()
		}
		files := byDir[dir]
		slices.SortStableFunc(files, func(a, b manifestFile) int {
			switch {
			case a.parser.lock == b.parser.lock:
				return 0
			case a.parser.lock:
				return 1
			default:
				return -1
			}
		})

		reported := make(map[string]bool)
		for _, mf := range files {
			content, err := mf.target.Read()
			if err != nil {
				continue
			}
			deps, err := mf.parser.parse(string(content))
			if err != nil {
				continue
			}
			lines := pattern.SplitLines(string(content))
			for _, d := range deps {
				for _, adv := range Check(d) {
					key := indexKey(d.Ecosystem, d.Name) + "|" + adv.Advisory
					if reported[key] {
						continue
					}
					reported[key] = true
					findings = append(findings, s.finding(mf.target.RelPath, mf.parser.lock, lines, d, adv))
				}
			}
		}
	}
	return findings, nil
}

// Check returns the advisories whose range contains the dependency's version.
func Check(d Dependency) []VulnerablePackage {
	var hits []VulnerablePackage
	for _, adv := range Lookup(d.Ecosystem, d.Name) {
		if version.InRange(d.Version, adv.Range) {
			hits = append(hits, adv)
		}
	}
	return hits
}

func (s *Scanner) finding(relPath string, lock bool, lines []string, d Dependency, adv VulnerablePackage) types.Finding {
	fix := "No fixed version is available; replace the dependency."
	upgrade := "no fixed version available"
	if adv.Fixed != "" {
		fix = fmt.Sprintf("Upgrade %s to %s or later.", d.Name, adv.Fixed)
		upgrade = "fixed in " + adv.Fixed
	}
	source := "manifest"
	if lock {
		source = "lockfile"
	}
	return types.Finding{
		RuleID:   s.rule.ID,
		Title:    s.rule.Title,
		Severity: adv.Severity,
		Message:  fmt.Sprintf("%s@%s is affected by %s: %s (%s)", d.Name, d.Version, adv.Advisory, adv.Summary, upgrade),
		FilePath: relPath,
		Line:     d.Line,
		Snippet:  pattern.Snippet(pattern.LineText(lines, d.Line)),
		CWE:      s.rule.CWE,
		OWASP:    s.rule.OWASP,
		Fix:      fix,
		Scanner:  s.rule.Scanner,
		Metadata: map[string]string{
			"ecosystem":        d.Ecosystem,
			"package":          d.Name,
			"installedVersion": d.Version,
			"vulnerableRange":  adv.Range,
			"fixedVersion":     adv.Fixed,
			"advisory":         adv.Advisory,
			"source":           source,
		},
	}
}
