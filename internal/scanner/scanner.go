package scanner

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/garagon/tatu/internal/meta"
	"github.com/garagon/tatu/internal/types"
)

// ErrInvalidRoot is returned when the scan root is missing or unreadable.
// It is the only error that stops a scan before any analyzer runs.
var ErrInvalidRoot = errors.New("invalid scan root")

// Scanner orchestrates the scanning process.
type Scanner struct {
	analyzers      []Analyzer
	minSeverity    Severity
	ignorePatterns []string
	overrides      map[string]meta.Override
	logger         *zap.SugaredLogger
}

// New creates a Scanner that reports findings down to low severity.
func New() *Scanner {
	return &Scanner{
		minSeverity: SeverityLow,
		logger:      zap.NewNop().Sugar(),
	}
}

// RegisterAnalyzer adds an analyzer to the scanner pipeline.
func (s *Scanner) RegisterAnalyzer(a Analyzer) {
	s.analyzers = append(s.analyzers, a)
}

// Analyzers returns the registered analyzer names in registration order.
func (s *Scanner) Analyzers() []string {
	names := make([]string, len(s.analyzers))
	for i, a := range s.analyzers {
		names[i] = a.Name()
	}
	return names
}

// SetMinSeverity sets the minimum severity for reported findings.
func (s *Scanner) SetMinSeverity(sev Severity) {
	s.minSeverity = sev
}

// SetIgnorePatterns sets additional file ignore patterns from config.
func (s *Scanner) SetIgnorePatterns(patterns []string) {
	s.ignorePatterns = patterns
}

// SetOverrides sets per-rule severity overrides and disables.
func (s *Scanner) SetOverrides(overrides map[string]meta.Override) error {
	if err := meta.ValidateOverrides(overrides); err != nil {
		return err
	}
	s.overrides = overrides
	return nil
}

// SetLogger sets the logger used for analyzer diagnostics.
func (s *Scanner) SetLogger(l *zap.SugaredLogger) {
	if l != nil {
		s.logger = l
	}
}

// Scan performs a full scan of the given path. The path can be a directory
// (walked recursively) or a single file.
func (s *Scanner) Scan(ctx context.Context, root string) (*ScanResult, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRoot, err)
	}
	if !info.IsDir() {
		// Single-file scan: use the filename as RelPath so extension and
		// filename filters still apply.
		targets := []*Target{{
			Path:    root,
			RelPath: filepath.Base(root),
		}}
		return s.ScanTargets(ctx, root, targets)
	}
	if _, err := os.ReadDir(root); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRoot, err)
	}

	discovery := &TargetDiscovery{IgnorePatterns: s.ignorePatterns}
	targets, err := discovery.Discover(root)
	if err != nil {
		return nil, err
	}
	return s.ScanTargets(ctx, root, targets)
}

// ScanPaths scans only the given root-relative paths, as produced by
// GitChangedFiles.
func (s *Scanner) ScanPaths(ctx context.Context, root string, relPaths []string) (*ScanResult, error) {
	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidRoot, root)
	}
	discovery := &TargetDiscovery{IgnorePatterns: s.ignorePatterns}
	return s.ScanTargets(ctx, root, discovery.TargetsFromPaths(root, relPaths))
}

// ScanTargets runs every analyzer concurrently over the same target list and
// merges the results. A failing or panicking analyzer becomes a warning; the
// others still complete.
func (s *Scanner) ScanTargets(ctx context.Context, root string, targets []*Target) (*ScanResult, error) {
	start := time.Now()

	outcomes := make([]analyzerOutcome, len(s.analyzers))
	var wg sync.WaitGroup
	for i, a := range s.analyzers {
		wg.Go(func() {
			outcomes[i] = s.runAnalyzer(ctx, a, targets)
		})
	}
	wg.Wait()

	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	var (
		findings []Finding
		warnings []string
		rules    int
	)
	for i, o := range outcomes {
		name := s.analyzers[i].Name()
		if o.err != nil {
			s.logger.Warnw("analyzer failed", "analyzer", name, "error", o.err)
			warnings = append(warnings, fmt.Sprintf("%s: %v", name, o.err))
		}
		findings = append(findings, assignIDs(name, o.findings)...)
		if rc, ok := s.analyzers[i].(RuleCounter); ok {
			rules += rc.RuleCount()
		}
	}

	findings = s.postProcess(findings)

	return &ScanResult{
		ScanID:       uuid.NewString(),
		Target:       root,
		Timestamp:    start.UTC(),
		FilesScanned: len(targets),
		RulesLoaded:  rules,
		Findings:     findings,
		Summary:      types.Summarize(findings),
		Score:        meta.RiskScore(findings),
		Warnings:     warnings,
		Duration:     time.Since(start),
	}, nil
}

type analyzerOutcome struct {
	findings []Finding
	err      error
}

func (s *Scanner) runAnalyzer(ctx context.Context, a Analyzer, targets []*Target) (out analyzerOutcome) {
	defer func() {
		if r := recover(); r != nil {
			out = analyzerOutcome{err: fmt.Errorf("panic: %v", r)}
		}
	}()
	begin := time.Now()
	findings, err := a.Analyze(ctx, targets)
	s.logger.Debugw("analyzer finished", "analyzer", a.Name(), "findings", len(findings), "elapsed", time.Since(begin))
	return analyzerOutcome{findings: findings, err: err}
}

// assignIDs gives each finding a generation-order id scoped to its analyzer.
// The slice is copied, so the analyzer's own output is never modified.
func assignIDs(name string, findings []Finding) []Finding {
	out := make([]Finding, len(findings))
	for i, f := range findings {
		f.ID = name + "-" + strconv.Itoa(i+1)
		if f.Scanner == "" {
			f.Scanner = name
		}
		f.FilePath = filepath.ToSlash(f.FilePath)
		out[i] = f
	}
	return out
}

// postProcess applies overrides, deduplicates, filters and sorts findings.
func (s *Scanner) postProcess(findings []Finding) []Finding {
	findings = meta.ApplyOverrides(findings, s.overrides)
	findings = meta.Deduplicate(findings)

	filtered := make([]Finding, 0, len(findings))
	for _, f := range findings {
		if !f.Severity.Valid() {
			s.logger.Warnw("dropping finding with invalid severity", "rule", f.RuleID, "severity", int(f.Severity))
			continue
		}
		if f.Severity >= s.minSeverity {
			filtered = append(filtered, f)
		}
	}

	SortFindings(filtered)
	return filtered
}

// SortFindings orders findings by severity (highest first), then file, line,
// column and rule.
func SortFindings(findings []Finding) {
	slices.SortStableFunc(findings, func(a, b Finding) int {
		return cmp.Or(
			cmp.Compare(b.Severity, a.Severity),
			cmp.Compare(a.FilePath, b.FilePath),
			cmp.Compare(a.Line, b.Line),
			cmp.Compare(a.Column, b.Column),
			cmp.Compare(a.RuleID, b.RuleID),
		)
	})
}
