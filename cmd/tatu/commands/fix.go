package commands

import (
	"fmt"
	"io"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/garagon/tatu"
)

var flagDryRun bool

var fixCmd = &cobra.Command{
	Use:   "fix [path]",
	Short: "Scan a directory and apply automatic fixes",
	Long: `Scans the directory, then applies best-effort fixes: .gitignore entries for
secret files, .env.example generation, redaction of secrets in docs, dependency
upgrades and untracking committed .env files. Prototype-pollution findings only
get a suggested change.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runFix,
}

func init() {
	fixCmd.Flags().BoolVar(&flagDryRun, "dry-run", false, "Show what would change without writing anything")
	rootCmd.AddCommand(fixCmd)
}

func runFix(cmd *cobra.Command, args []string) error {
	root := "."
	if len(args) > 0 {
		root = args[0]
	}

	cfg := loadScanConfig(cmd, root)
	applyCIDefaults()
	if flagNoColor {
		pterm.DisableColor()
	}
	minSev, err := parseSeverityFlag()
	if err != nil {
		return err
	}

	ctx, cancel := contextWithInterrupt()
	defer cancel()

	opts := scanOptions(cfg, minSev)
	result, err := executeScan(ctx, root, opts)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	if len(result.Findings) == 0 {
		fmt.Fprint(w, pterm.Success.Sprintln("No findings, nothing to fix."))
		return nil
	}

	results, err := tatu.Fix(ctx, root, result.Findings, append(opts, tatu.WithDryRun(flagDryRun))...)
	if err != nil {
		return err
	}
	return printFixResults(w, results)
}

func fixStatus(r tatu.FixResult) string {
	switch {
	case !r.Success:
		return pterm.FgRed.Sprint("failed")
	case r.Applied:
		return pterm.FgGreen.Sprint("applied")
	case flagDryRun:
		return pterm.FgCyan.Sprint("planned")
	default:
		return pterm.FgGray.Sprint("skipped")
	}
}

func printFixResults(w io.Writer, results []tatu.FixResult) error {
	if len(results) == 0 {
		fmt.Fprint(w, pterm.Info.Sprintln("No fixable findings."))
		return nil
	}

	data := pterm.TableData{{"Strategy", "Status", "File", "Message"}}
	var applied, failed int
	for _, r := range results {
		if r.Applied {
			applied++
		}
		if !r.Success {
			failed++
		}
		data = append(data, []string{r.Strategy, fixStatus(r), r.File, r.Message})
	}
	table, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
	if err != nil {
		return err
	}
	fmt.Fprintln(w, table)

	for _, r := range results {
		if r.Suggestion == "" {
			continue
		}
		fmt.Fprintf(w, "\n%s\n%s\n", pterm.Bold.Sprintf("Suggested change for %s:", r.File), r.Suggestion)
	}

	fmt.Fprintln(w)
	summary := fmt.Sprintf("%d applied, %d failed, %d total", applied, failed, len(results))
	if failed > 0 {
		fmt.Fprint(w, pterm.Warning.Sprintln(summary))
	} else {
		fmt.Fprint(w, pterm.Success.Sprintln(summary))
	}
	return nil
}
