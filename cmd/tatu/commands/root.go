package commands

import (
	"github.com/spf13/cobra"

	"github.com/garagon/tatu"
	"github.com/garagon/tatu/internal/logging"
)

var (
	flagSeverity     string
	flagFormat       string
	flagOutput       string
	flagRules        string
	flagNoColor      bool
	flagDisableRules []string
	flagDebug        bool
)

var logger = logging.Nop()

var rootCmd = &cobra.Command{
	Use:   "tatu",
	Short: "Static security scanner for source trees",
	Long: `Tatu scans a source tree for leaked secrets, dangerous code patterns, vulnerable
dependencies, infrastructure misconfigurations and Dockerfile issues, and can apply
best-effort fixes for some of them.`,
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		l, err := logging.New(flagDebug)
		if err != nil {
			return err
		}
		logger = l
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagSeverity, "severity", "", "Minimum severity to report (critical, high, medium, low, info) (default: low)")
	rootCmd.PersistentFlags().StringVar(&flagFormat, "format", "terminal", "Output format (terminal, json, sarif, markdown, html)")
	rootCmd.PersistentFlags().StringVarP(&flagOutput, "output", "o", "", "Output file path (default: stdout)")
	rootCmd.PersistentFlags().StringVar(&flagRules, "rules", "", "Additional rules directory")
	rootCmd.PersistentFlags().BoolVar(&flagNoColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().StringSliceVar(&flagDisableRules, "disable-rule", nil, "Rule IDs to disable (comma-separated, repeatable)")
	rootCmd.PersistentFlags().BoolVar(&flagDebug, "debug", false, "Enable debug logging on stderr")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// ruleOptions carries the rule-selection flags shared by every command.
func ruleOptions() []tatu.Option {
	opts := []tatu.Option{tatu.WithLogger(logger)}
	if flagRules != "" {
		opts = append(opts, tatu.WithCustomRules(flagRules))
	}
	if len(flagDisableRules) > 0 {
		opts = append(opts, tatu.WithDisabledRules(flagDisableRules...))
	}
	return opts
}
