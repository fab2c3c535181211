package commands

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/garagon/tatu"
	"github.com/garagon/tatu/internal/rules"
)

var flagListScanner string

var listRulesCmd = &cobra.Command{
	Use:   "list-rules",
	Short: "List all available detection rules",
	RunE:  runListRules,
}

func init() {
	listRulesCmd.Flags().StringVar(&flagListScanner, "scanner", "", "Filter by scanner (secrets, sast, dependencies, iac, docker)")
	rootCmd.AddCommand(listRulesCmd)
}

func runListRules(cmd *cobra.Command, args []string) error {
	opts := ruleOptions()
	if flagListScanner != "" {
		name := strings.ToLower(strings.TrimSpace(flagListScanner))
		if !slices.Contains(tatu.Scanners, name) {
			return fmt.Errorf("unknown scanner %q (want one of %s)", flagListScanner, strings.Join(tatu.Scanners, ", "))
		}
		opts = append(opts, tatu.WithScanners(name))
	}
	if flagRules != "" {
		// ListRules drops loader errors; surface them here.
		if _, err := rules.LoadFromDir(flagRules); err != nil {
			return fmt.Errorf("loading custom rules from %s: %w", flagRules, err)
		}
	}
	infos := tatu.ListRules(opts...)

	w := cmd.OutOrStdout()

	if strings.ToLower(flagFormat) == "json" {
		if infos == nil {
			infos = []tatu.RuleInfo{}
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(infos)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "ID\tTITLE\tSEVERITY\tSCANNER\n")
	fmt.Fprintf(tw, "--\t-----\t--------\t-------\n")
	for _, r := range infos {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.ID, r.Title, r.Severity.String(), r.Scanner)
	}
	_ = tw.Flush()
	fmt.Fprintf(w, "\n%d rules loaded\n", len(infos))

	return nil
}
