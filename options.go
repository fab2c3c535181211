package tatu

import (
	"slices"

	"go.uber.org/zap"
)

// scanConfig holds the resolved configuration for a scan.
type scanConfig struct {
	customRulesDir string
	disabledRules  []string
	ruleOverrides  map[string]RuleOverride
	minSeverity    Severity
	ignorePatterns []string
	scanners       []string // nil means all
	decodeBlobs    bool
	dryRun         bool // only for Fix
	runner         CommandRunner
	logger         *zap.SugaredLogger
}

func defaultConfig() *scanConfig {
	return &scanConfig{
		minSeverity: SeverityLow,
		decodeBlobs: true,
		logger:      zap.NewNop().Sugar(),
	}
}

func (c *scanConfig) enabled(name string) bool {
	return c.scanners == nil || slices.Contains(c.scanners, name)
}

// Option configures a scan operation.
type Option func(*scanConfig)

// WithCustomRules loads additional rules from a directory.
func WithCustomRules(dir string) Option {
	return func(c *scanConfig) {
		c.customRulesDir = dir
	}
}

// WithDisabledRules excludes specific rule IDs from scanning.
func WithDisabledRules(ids ...string) Option {
	return func(c *scanConfig) {
		c.disabledRules = append(c.disabledRules, ids...)
	}
}

// WithRuleOverrides applies severity overrides or disables rules.
func WithRuleOverrides(overrides map[string]RuleOverride) Option {
	return func(c *scanConfig) {
		c.ruleOverrides = overrides
	}
}

// WithMinSeverity sets the minimum severity for reported findings
// (default: low).
func WithMinSeverity(sev Severity) Option {
	return func(c *scanConfig) {
		c.minSeverity = sev
	}
}

// WithIgnorePatterns sets file patterns to ignore during directory scanning.
func WithIgnorePatterns(patterns []string) Option {
	return func(c *scanConfig) {
		c.ignorePatterns = patterns
	}
}

// WithScanners runs (and lists rules of) only the named scanner families.
func WithScanners(names ...string) Option {
	return func(c *scanConfig) {
		c.scanners = append([]string{}, names...)
	}
}

// WithBlobDecoding toggles rescanning of base64 and hex blobs for secrets.
func WithBlobDecoding(on bool) Option {
	return func(c *scanConfig) {
		c.decodeBlobs = on
	}
}

// WithDryRun makes Fix report planned actions without applying them.
func WithDryRun(on bool) Option {
	return func(c *scanConfig) {
		c.dryRun = on
	}
}

// WithCommandRunner replaces the runner Fix uses for git and go commands.
func WithCommandRunner(r CommandRunner) Option {
	return func(c *scanConfig) {
		c.runner = r
	}
}

// WithLogger sets the logger for scanner and fix diagnostics.
func WithLogger(l *zap.SugaredLogger) Option {
	return func(c *scanConfig) {
		if l != nil {
			c.logger = l
		}
	}
}
