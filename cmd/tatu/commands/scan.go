package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/garagon/tatu"
	"github.com/garagon/tatu/internal/baseline"
	"github.com/garagon/tatu/internal/config"
	"github.com/garagon/tatu/internal/output"
)

// ErrThresholdExceeded is returned when a scan reports a finding at or
// above the --fail-on severity.
var ErrThresholdExceeded = errors.New("findings at or above the fail-on threshold")

var (
	flagFailOn         string
	flagCI             bool
	flagVerbose        bool
	flagChanged        bool
	flagBaseline       string
	flagUpdateBaseline bool
	flagScanners       []string
)

var scanCmd = &cobra.Command{
	Use:   "scan [path]",
	Short: "Scan a directory or file for security issues",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runScan,
}

func init() {
	scanCmd.Flags().StringVar(&flagFailOn, "fail-on", "", "Exit with code 1 if findings at or above this severity (critical, high, medium, low, info)")
	scanCmd.Flags().BoolVar(&flagCI, "ci", false, "CI mode: equivalent to --fail-on high --no-color")
	scanCmd.Flags().BoolVarP(&flagVerbose, "verbose", "v", false, "Show snippets and fixes for every finding")
	scanCmd.Flags().BoolVar(&flagChanged, "changed", false, "Only scan git-changed files (staged, unstaged, untracked)")
	scanCmd.Flags().StringVar(&flagBaseline, "baseline", "", "Compare against a baseline file and report new and fixed findings")
	scanCmd.Flags().BoolVar(&flagUpdateBaseline, "update-baseline", false, "Write this run's findings to the --baseline file")
	scanCmd.Flags().StringSliceVar(&flagScanners, "scanners", nil, "Scanners to run (secrets, sast, dependencies, iac, docker)")
	rootCmd.AddCommand(scanCmd)
}

func runScan(cmd *cobra.Command, args []string) error {
	target := "."
	if len(args) > 0 {
		target = args[0]
	}

	cfg := loadScanConfig(cmd, target)
	applyCIDefaults()

	minSev, err := parseSeverityFlag()
	if err != nil {
		return err
	}
	if flagUpdateBaseline && flagBaseline == "" {
		return fmt.Errorf("--update-baseline requires --baseline")
	}

	ctx, cancel := contextWithInterrupt()
	defer cancel()

	spinner := output.NewSpinner(cmd.ErrOrStderr())
	if showSpinner(cmd) {
		spinner.Start("Scanning " + target)
	}
	result, err := executeScan(ctx, target, scanOptions(cfg, minSev))
	spinner.Stop()
	if err != nil {
		return err
	}
	result.Target = target

	findings := result.Findings
	if flagBaseline != "" {
		findings, err = compareBaseline(cmd.ErrOrStderr(), result)
		if err != nil {
			return err
		}
	}

	if err := writeOutput(cmd, result); err != nil {
		return err
	}

	return checkFailOnThreshold(findings)
}

// loadScanConfig reads .tatu.yml from the target and applies its values to
// every flag the user did not set explicitly.
func loadScanConfig(cmd *cobra.Command, target string) config.Config {
	cfg, err := config.Load(target)
	if err != nil {
		logger.Warnw("ignoring config", "error", err)
	}
	if !cmd.Flags().Changed("severity") && cfg.Severity != "" {
		flagSeverity = cfg.Severity
	}
	if !cmd.Flags().Changed("format") && cfg.Format != "" {
		flagFormat = cfg.Format
	}
	if !cmd.Flags().Changed("output") && cfg.Output != "" {
		flagOutput = cfg.Output
	}
	if !cmd.Flags().Changed("fail-on") && cfg.FailOn != "" {
		flagFailOn = cfg.FailOn
	}
	if !cmd.Flags().Changed("rules") && cfg.Rules != "" {
		flagRules = cfg.Rules
	}
	if !cmd.Flags().Changed("scanners") {
		flagScanners = nil
		for _, name := range tatu.Scanners {
			if cfg.Enabled(name) {
				flagScanners = append(flagScanners, name)
			}
		}
	}
	return cfg
}

func applyCIDefaults() {
	if flagCI {
		if flagFailOn == "" {
			flagFailOn = "high"
		}
		flagNoColor = true
	}
	if os.Getenv("NO_COLOR") != "" {
		flagNoColor = true
	}
}

func parseSeverityFlag() (tatu.Severity, error) {
	if flagSeverity == "" {
		return tatu.SeverityLow, nil
	}
	sev, err := tatu.ParseSeverity(flagSeverity)
	if err != nil {
		return 0, fmt.Errorf("invalid --severity: %w", err)
	}
	return sev, nil
}

func scanOptions(cfg config.Config, minSev tatu.Severity) []tatu.Option {
	opts := append(ruleOptions(),
		tatu.WithMinSeverity(minSev),
		tatu.WithScanners(flagScanners...),
	)
	if len(cfg.Ignore) > 0 {
		opts = append(opts, tatu.WithIgnorePatterns(cfg.Ignore))
	}
	if len(cfg.RuleOverrides) > 0 {
		opts = append(opts, tatu.WithRuleOverrides(cfg.RuleOverrides))
	}
	return opts
}

func contextWithInterrupt() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}

func executeScan(ctx context.Context, target string, opts []tatu.Option) (*tatu.ScanResult, error) {
	if flagChanged {
		changed, err := tatu.ChangedFiles(ctx, target)
		if err != nil {
			return nil, fmt.Errorf("getting changed files: %w", err)
		}
		logger.Debugw("changed files", "count", len(changed))
		result, err := tatu.ScanPaths(ctx, target, changed, opts...)
		if err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}
		return result, nil
	}
	result, err := tatu.Scan(ctx, target, opts...)
	if err != nil {
		return nil, fmt.Errorf("scan failed: %w", err)
	}
	return result, nil
}

// compareBaseline reports the difference against the baseline file and
// returns the findings the fail-on threshold applies to: only new ones.
func compareBaseline(w io.Writer, result *tatu.ScanResult) ([]tatu.Finding, error) {
	base, err := baseline.Load(flagBaseline)
	if err != nil {
		return nil, err
	}
	diff := base.Compare(result.Findings)
	fmt.Fprintf(w, "baseline: %d new, %d fixed, %d unchanged\n", len(diff.New), len(diff.Fixed), diff.Unchanged)
	for _, e := range diff.Fixed {
		logger.Debugw("fixed since baseline", "rule", e.Rule, "file", e.File, "line", e.Line)
	}

	if flagUpdateBaseline {
		if err := baseline.FromResult(result).Save(flagBaseline); err != nil {
			return nil, fmt.Errorf("saving baseline: %w", err)
		}
	}
	return diff.New, nil
}

func showSpinner(cmd *cobra.Command) bool {
	if flagCI || flagOutput == "" && flagFormat != "terminal" {
		return false
	}
	if cmd.ErrOrStderr() != os.Stderr {
		return false
	}
	info, err := os.Stderr.Stat()
	return err == nil && info.Mode()&os.ModeCharDevice != 0
}

func writeOutput(cmd *cobra.Command, result *tatu.ScanResult) error {
	output.ToolVersion = Version

	formatter, err := output.ForFormat(flagFormat, flagNoColor, flagVerbose)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	if flagOutput != "" {
		f, err := os.Create(flagOutput)
		if err != nil {
			return fmt.Errorf("creating output file: %w", err)
		}
		defer func() { _ = f.Close() }()
		w = f
	}

	return formatter.Format(w, result)
}

func checkFailOnThreshold(findings []tatu.Finding) error {
	if flagFailOn == "" {
		return nil
	}
	threshold, err := tatu.ParseSeverity(flagFailOn)
	if err != nil {
		return fmt.Errorf("invalid --fail-on: %w", err)
	}
	if tatu.Failed(&tatu.ScanResult{Findings: findings}, threshold) {
		return fmt.Errorf("%w (%s)", ErrThresholdExceeded, threshold)
	}
	return nil
}
