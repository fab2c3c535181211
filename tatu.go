// Package tatu is a static security analyzer for source trees. It finds
// leaked secrets, dangerous source patterns, vulnerable dependencies,
// infrastructure misconfigurations and Dockerfile issues, and can apply
// best-effort fixes for some of them.
//
// This is the library entry point. For the CLI tool, see cmd/tatu/.
package tatu

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/garagon/tatu/internal/engine/deps"
	"github.com/garagon/tatu/internal/engine/docker"
	"github.com/garagon/tatu/internal/engine/iac"
	"github.com/garagon/tatu/internal/engine/sast"
	"github.com/garagon/tatu/internal/engine/secrets"
	"github.com/garagon/tatu/internal/fix"
	"github.com/garagon/tatu/internal/meta"
	"github.com/garagon/tatu/internal/rules"
	"github.com/garagon/tatu/internal/rules/builtin"
	"github.com/garagon/tatu/internal/scanner"
	"github.com/garagon/tatu/internal/types"
)

// Re-export core types so consumers don't need to import internal packages.
type (
	Severity     = types.Severity
	Finding      = types.Finding
	ScanResult   = types.ScanResult
	Summary      = types.Summary
	RuleOverride = meta.Override
	FixResult    = fix.Result

	// CommandRunner executes the external commands Fix needs (git, go).
	CommandRunner = fix.Runner
)

const (
	SeverityInfo     = types.SeverityInfo
	SeverityLow      = types.SeverityLow
	SeverityMedium   = types.SeverityMedium
	SeverityHigh     = types.SeverityHigh
	SeverityCritical = types.SeverityCritical
)

// Scanner family names, usable with WithScanners.
const (
	ScannerSecrets      = rules.ScannerSecrets
	ScannerSAST         = rules.ScannerSAST
	ScannerDependencies = rules.ScannerDeps
	ScannerIaC          = rules.ScannerIaC
	ScannerDocker       = rules.ScannerDocker
)

// Scanners lists every scanner family in run order.
var Scanners = []string{ScannerSecrets, ScannerSAST, ScannerDependencies, ScannerIaC, ScannerDocker}

// ParseSeverity converts a severity name in any case.
var ParseSeverity = types.ParseSeverity

// RuleInfo provides summary metadata about a detection rule.
type RuleInfo struct {
	ID       string   `json:"id"`
	Title    string   `json:"title"`
	Severity Severity `json:"severity"`
	Scanner  string   `json:"scanner"`
}

// RuleDetail provides full information about a rule.
type RuleDetail struct {
	ID         string   `json:"id"`
	Title      string   `json:"title"`
	Severity   Severity `json:"severity"`
	Scanner    string   `json:"scanner"`
	Message    string   `json:"message,omitempty"`
	Pattern    string   `json:"pattern,omitempty"`
	CWE        string   `json:"cwe,omitempty"`
	OWASP      string   `json:"owasp,omitempty"`
	Fix        string   `json:"fix,omitempty"`
	Extensions []string `json:"extensions,omitempty"`
	Languages  []string `json:"languages,omitempty"`
	Custom     bool     `json:"custom,omitempty"`
}

// Scan scans a file or directory on disk.
func Scan(ctx context.Context, path string, opts ...Option) (*ScanResult, error) {
	s, err := buildScanner(applyOpts(opts))
	if err != nil {
		return nil, err
	}
	return s.Scan(ctx, path)
}

// ScanPaths scans only the given root-relative paths under root, such as
// the output of ChangedFiles.
func ScanPaths(ctx context.Context, root string, relPaths []string, opts ...Option) (*ScanResult, error) {
	s, err := buildScanner(applyOpts(opts))
	if err != nil {
		return nil, err
	}
	return s.ScanPaths(ctx, root, relPaths)
}

// ScanContent scans inline content without writing to disk. filename
// drives format detection (e.g. "app.py", "Dockerfile", "package.json").
func ScanContent(ctx context.Context, content, filename string, opts ...Option) (*ScanResult, error) {
	if filename == "" {
		return nil, fmt.Errorf("filename is required to detect the content format")
	}
	s, err := buildScanner(applyOpts(opts))
	if err != nil {
		return nil, err
	}
	targets := []*scanner.Target{{RelPath: filename, Content: []byte(content)}}
	return s.ScanTargets(ctx, "", targets)
}

// ChangedFiles returns the git-modified, staged and untracked files under root.
func ChangedFiles(ctx context.Context, root string) ([]string, error) {
	return scanner.GitChangedFiles(ctx, root)
}

// Failed reports whether result holds a finding at or above failOn.
func Failed(result *ScanResult, failOn Severity) bool {
	return types.ExceedsThreshold(result.Findings, failOn)
}

// Fix applies the auto-fix strategies under root for findings. With
// WithDryRun nothing is written and every result describes the planned action.
func Fix(ctx context.Context, root string, findings []Finding, opts ...Option) ([]FixResult, error) {
	cfg := applyOpts(opts)
	loaded, err := loadRules(cfg)
	if err != nil {
		return nil, err
	}
	e := fix.New(root)
	e.SetDryRun(cfg.dryRun)
	e.SetLogger(cfg.logger)
	if cfg.runner != nil {
		e.SetRunner(cfg.runner)
	}
	e.SetSecretRules(loaded.compiled[ScannerSecrets])
	return e.Run(ctx, findings), nil
}

// ListRules returns every available rule sorted by ID. WithScanners limits
// the list to some scanner families.
func ListRules(opts ...Option) []RuleInfo {
	cfg := applyOpts(opts)
	loaded, _ := loadRules(cfg)
	if loaded == nil {
		return nil
	}
	var infos []RuleInfo
	for _, r := range loaded.all() {
		infos = append(infos, RuleInfo{ID: r.ID, Title: r.Title, Severity: r.Severity, Scanner: r.Scanner})
	}
	slices.SortFunc(infos, func(a, b RuleInfo) int { return strings.Compare(a.ID, b.ID) })
	return infos
}

// ExplainRule returns detailed information about a rule. IDs match
// case-insensitively.
func ExplainRule(id string, opts ...Option) (*RuleDetail, error) {
	id = strings.ToLower(strings.TrimSpace(id))
	cfg := applyOpts(opts)
	loaded, err := loadRules(cfg)
	if err != nil {
		return nil, err
	}
	for _, r := range loaded.all() {
		if strings.ToLower(r.ID) != id {
			continue
		}
		return &RuleDetail{
			ID:         r.ID,
			Title:      r.Title,
			Severity:   r.Severity,
			Scanner:    r.Scanner,
			Message:    r.Message,
			Pattern:    r.Pattern,
			CWE:        r.CWE,
			OWASP:      r.OWASP,
			Fix:        r.Fix,
			Extensions: r.Extensions,
			Languages:  r.Languages,
			Custom:     loaded.custom[r.ID],
		}, nil
	}
	return nil, fmt.Errorf("rule %q not found", id)
}

// --- internal helpers ---

func applyOpts(opts []Option) *scanConfig {
	cfg := defaultConfig()
	for _, o := range opts {
		o(cfg)
	}
	return cfg
}

type ruleSet struct {
	compiled map[string][]*rules.CompiledRule
	custom   map[string]bool
}

// all returns every compiled rule in scanner order.
func (rs *ruleSet) all() []*rules.CompiledRule {
	var out []*rules.CompiledRule
	for _, name := range Scanners {
		out = append(out, rs.compiled[name]...)
	}
	return out
}

// loadRules loads built-in and custom rules, drops disabled ones, applies
// severity overrides and compiles them per scanner family. Enabled scanner
// families only.
func loadRules(cfg *scanConfig) (*ruleSet, error) {
	raw := builtin.All()
	custom := make(map[string]bool)
	if cfg.customRulesDir != "" {
		extra, err := rules.LoadFromDir(cfg.customRulesDir)
		if err != nil {
			return nil, fmt.Errorf("loading custom rules from %s: %w", cfg.customRulesDir, err)
		}
		for _, r := range extra {
			custom[r.ID] = true
		}
		raw = append(raw, extra...)
	}
	if err := meta.ValidateOverrides(cfg.ruleOverrides); err != nil {
		return nil, err
	}

	disabled := meta.DisabledRules(cfg.ruleOverrides)
	for _, id := range cfg.disabledRules {
		disabled[strings.TrimSpace(id)] = true
	}
	raw = rules.FilterByIDs(raw, disabled)
	for i, r := range raw {
		if o, ok := cfg.ruleOverrides[r.ID]; ok && o.Severity != "" {
			raw[i].Severity, _ = types.ParseSeverity(o.Severity)
		}
	}

	rs := &ruleSet{compiled: make(map[string][]*rules.CompiledRule), custom: custom}
	for _, name := range Scanners {
		if !cfg.enabled(name) {
			continue
		}
		compiled, errs := rules.CompileAll(rules.ByScanner(raw, name))
		for _, e := range errs {
			cfg.logger.Warnw("skipping rule", "scanner", name, "error", e)
		}
		rs.compiled[name] = compiled
	}
	return rs, nil
}

// buildScanner creates a Scanner with every enabled analyzer registered.
func buildScanner(cfg *scanConfig) (*scanner.Scanner, error) {
	loaded, err := loadRules(cfg)
	if err != nil {
		return nil, err
	}

	s := scanner.New()
	s.SetLogger(cfg.logger)
	s.SetMinSeverity(cfg.minSeverity)
	if len(cfg.ignorePatterns) > 0 {
		s.SetIgnorePatterns(cfg.ignorePatterns)
	}
	if err := s.SetOverrides(cfg.ruleOverrides); err != nil {
		return nil, err
	}

	analyzers := map[string]func([]*rules.CompiledRule) scanner.Analyzer{
		ScannerSecrets: func(c []*rules.CompiledRule) scanner.Analyzer {
			sc := secrets.New(c)
			sc.SetDecode(cfg.decodeBlobs)
			return sc
		},
		ScannerSAST:         func(c []*rules.CompiledRule) scanner.Analyzer { return sast.New(c) },
		ScannerDependencies: func(c []*rules.CompiledRule) scanner.Analyzer { return deps.New(c) },
		ScannerIaC:          func(c []*rules.CompiledRule) scanner.Analyzer { return iac.New(c) },
		ScannerDocker:       func(c []*rules.CompiledRule) scanner.Analyzer { return docker.New(c) },
	}
	for _, name := range Scanners {
		if compiled, ok := loaded.compiled[name]; ok {
			s.RegisterAnalyzer(analyzers[name](compiled))
		}
	}
	cfg.logger.Debugw("scanner ready", "analyzers", s.Analyzers(), "overrides", slices.Sorted(maps.Keys(cfg.ruleOverrides)))
	return s, nil
}
