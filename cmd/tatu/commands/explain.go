package commands

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/garagon/tatu"
)

var explainCmd = &cobra.Command{
	Use:   "explain <RULE_ID>",
	Short: "Show detailed information about a detection rule",
	Args:  cobra.ExactArgs(1),
	RunE:  runExplain,
}

func init() {
	rootCmd.AddCommand(explainCmd)
}

func runExplain(cmd *cobra.Command, args []string) error {
	found, err := tatu.ExplainRule(args[0], ruleOptions()...)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()

	if strings.ToLower(flagFormat) == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(found)
	}

	color := func(code, text string) string {
		if flagNoColor {
			return text
		}
		return code + text + "\033[0m"
	}

	bold := "\033[1m"
	dim := "\033[2m"
	yellow := "\033[33m"
	cyan := "\033[36m"
	red := "\033[31m"

	sevColor := cyan
	switch found.Severity {
	case tatu.SeverityCritical:
		sevColor = red + bold
	case tatu.SeverityHigh:
		sevColor = red
	case tatu.SeverityMedium:
		sevColor = yellow
	}

	fmt.Fprintf(w, "\n%s %s\n", color(dim, "Rule:"), color(bold, found.ID))
	if found.Title != "" {
		fmt.Fprintf(w, "%s %s\n", color(dim, "Title:"), found.Title)
	}
	fmt.Fprintf(w, "%s %s\n", color(dim, "Severity:"), color(sevColor, found.Severity.String()))
	fmt.Fprintf(w, "%s %s\n", color(dim, "Scanner:"), found.Scanner)
	if found.CWE != "" {
		fmt.Fprintf(w, "%s %s\n", color(dim, "CWE:"), found.CWE)
	}
	if found.OWASP != "" {
		fmt.Fprintf(w, "%s %s\n", color(dim, "OWASP:"), found.OWASP)
	}
	if found.Custom {
		fmt.Fprintf(w, "%s %s\n", color(dim, "Source:"), "custom rule")
	}

	if found.Message != "" {
		fmt.Fprintf(w, "\n%s\n%s\n", color(bold, "Message:"), found.Message)
	}

	if found.Pattern != "" {
		fmt.Fprintf(w, "\n%s\n  %s\n", color(bold, "Pattern:"), color(dim, found.Pattern))
	} else {
		fmt.Fprintf(w, "\n%s\n  %s\n", color(bold, "Pattern:"), color(dim, "structural check (no regex)"))
	}

	if len(found.Languages) > 0 || len(found.Extensions) > 0 {
		fmt.Fprintf(w, "\n%s\n", color(bold, "Applies to:"))
		if len(found.Languages) > 0 {
			fmt.Fprintf(w, "  languages: %s\n", strings.Join(found.Languages, ", "))
		}
		if len(found.Extensions) > 0 {
			fmt.Fprintf(w, "  extensions: %s\n", strings.Join(found.Extensions, ", "))
		}
	}

	if found.Fix != "" {
		fmt.Fprintf(w, "\n%s\n%s\n", color(bold, "Fix:"), found.Fix)
	}

	fmt.Fprintln(w)
	return nil
}
