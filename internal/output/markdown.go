package output

import (
	"cmp"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/garagon/tatu/internal/scanner"
	"github.com/garagon/tatu/internal/types"
)

// MarkdownFormatter outputs findings as GitHub-flavored markdown, suitable
// for job summaries and pull request comments.
type MarkdownFormatter struct{}

func (f *MarkdownFormatter) Format(w io.Writer, result *scanner.ScanResult) error {
	if len(result.Findings) == 0 {
		f.printClean(w, result)
		return nil
	}
	f.printSummary(w, result)
	f.printFindings(w, result.Findings)
	f.printFooter(w, result)
	return nil
}

func (f *MarkdownFormatter) printClean(w io.Writer, result *scanner.ScanResult) {
	fmt.Fprintf(w, "### ✅ Tatu Security Scan: no issues found\n\n")
	fmt.Fprintf(w, "> %d files scanned · %d rules · %.2fs\n",
		result.FilesScanned, result.RulesLoaded, result.Duration.Seconds())
	printWarningsMarkdown(w, result.Warnings)
}

func (f *MarkdownFormatter) printSummary(w io.Writer, result *scanner.ScanResult) {
	fmt.Fprintf(w, "### 🚨 Tatu Security Scan: %d findings\n\n", result.Summary.Total)
	fmt.Fprintf(w, "> **Target:** `%s` · %d files · %d rules · %.2fs · risk score **%d/100**\n\n",
		result.Target, result.FilesScanned, result.RulesLoaded, result.Duration.Seconds(), result.Score)

	fmt.Fprintf(w, "| Severity | Count |\n")
	fmt.Fprintf(w, "|----------|-------|\n")
	for _, sev := range types.Severities {
		if c := result.Summary.Count(sev); c > 0 {
			fmt.Fprintf(w, "| %s %s | %d |\n", severityEmoji(sev), sev.String(), c)
		}
	}
	fmt.Fprintln(w)
}

func (f *MarkdownFormatter) printFindings(w io.Writer, findings []scanner.Finding) {
	for _, sev := range types.Severities {
		filtered := filterBySeverity(findings, sev)
		if len(filtered) == 0 {
			continue
		}

		fmt.Fprintf(w, "<details%s>\n", openByDefault(sev))
		fmt.Fprintf(w, "<summary>%s <strong>%s (%d)</strong></summary>\n\n", severityEmoji(sev), sev.String(), len(filtered))

		fmt.Fprintf(w, "| Rule | Finding | Location | Fix |\n")
		fmt.Fprintf(w, "|------|---------|----------|-----|\n")
		for _, group := range groupByFile(filtered) {
			for _, finding := range group.findings {
				desc := escapeMarkdown(truncate(finding.Message, 120))
				if finding.CWE != "" {
					desc += "<br><sub>" + escapeMarkdown(finding.CWE) + "</sub>"
				}
				fmt.Fprintf(w, "| `%s` | %s | `%s` | %s |\n",
					finding.RuleID, desc, finding.Location(), escapeMarkdown(truncate(finding.Fix, 120)))
			}
		}
		fmt.Fprintf(w, "\n</details>\n\n")
	}
}

func (f *MarkdownFormatter) printFooter(w io.Writer, result *scanner.ScanResult) {
	type fc struct {
		path  string
		count int
	}
	counts := map[string]int{}
	for _, finding := range result.Findings {
		counts[finding.FilePath]++
	}
	sorted := make([]fc, 0, len(counts))
	for path, count := range counts {
		sorted = append(sorted, fc{path, count})
	}
	slices.SortFunc(sorted, func(a, b fc) int {
		if c := cmp.Compare(b.count, a.count); c != 0 {
			return c
		}
		return cmp.Compare(a.path, b.path)
	})

	if len(sorted) > 1 {
		fmt.Fprintf(w, "**Top affected files:**\n\n")
		fmt.Fprintf(w, "| File | Findings |\n")
		fmt.Fprintf(w, "|------|----------|\n")
		for _, s := range sorted[:min(len(sorted), topFiles)] {
			fmt.Fprintf(w, "| `%s` | %d |\n", s.path, s.count)
		}
		fmt.Fprintln(w)
	}

	printWarningsMarkdown(w, result.Warnings)
	fmt.Fprintf(w, "---\n")
	fmt.Fprintf(w, "*Scanned by [tatu](%s) %s*\n", informationURI, ToolVersion)
}

func printWarningsMarkdown(w io.Writer, warnings []string) {
	if len(warnings) == 0 {
		return
	}
	fmt.Fprintf(w, "\n**Warnings:**\n\n")
	for _, msg := range warnings {
		fmt.Fprintf(w, "- %s\n", escapeMarkdown(msg))
	}
	fmt.Fprintln(w)
}

func severityEmoji(sev scanner.Severity) string {
	switch sev {
	case scanner.SeverityCritical:
		return "🔴"
	case scanner.SeverityHigh:
		return "🟠"
	case scanner.SeverityMedium:
		return "🟡"
	case scanner.SeverityLow:
		return "🔵"
	default:
		return "⚪"
	}
}

func openByDefault(sev scanner.Severity) string {
	if sev >= scanner.SeverityHigh {
		return " open"
	}
	return ""
}

func escapeMarkdown(s string) string {
	return strings.NewReplacer("|", "\\|", "<", "&lt;", ">", "&gt;", "`", "'").Replace(s)
}
