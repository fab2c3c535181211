package output

import (
	"cmp"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/garagon/tatu/internal/scanner"
	"github.com/garagon/tatu/internal/types"
)

// ANSI color codes
const (
	reset     = "\033[0m"
	bold      = "\033[1m"
	dim       = "\033[2m"
	underline = "\033[4m"
	red       = "\033[31m"
	green     = "\033[32m"
	yellow    = "\033[33m"
	blue      = "\033[34m"
	cyan      = "\033[36m"
)

const (
	barWidth     = 40
	lineWidth    = 72
	ruleIDWidth  = 28
	previewWidth = 72
	topFiles     = 5
)

// TerminalFormatter outputs findings grouped by severity, then by file.
type TerminalFormatter struct {
	NoColor bool
	Verbose bool
}

func (f *TerminalFormatter) color(code, text string) string {
	if f.NoColor {
		return text
	}
	return code + text + reset
}

func (f *TerminalFormatter) Format(w io.Writer, result *scanner.ScanResult) error {
	if os.Getenv("NO_COLOR") != "" {
		f.NoColor = true
	}

	f.printHeader(w, result)

	if len(result.Findings) == 0 {
		fmt.Fprintf(w, "\n  %s No security issues found.\n", f.color(green, "✔"))
	} else {
		f.printDashboard(w, result)
		for _, sev := range types.Severities {
			filtered := filterBySeverity(result.Findings, sev)
			if len(filtered) > 0 {
				f.printSeveritySection(w, sev, filtered)
			}
		}
		f.printTopFiles(w, result.Findings)
	}

	f.printWarnings(w, result.Warnings)
	f.printFooter(w, result)
	return nil
}

func (f *TerminalFormatter) separator() string {
	return strings.Repeat("─", lineWidth)
}

func (f *TerminalFormatter) sectionHeader(title string) string {
	prefix := "── " + title + " "
	remaining := max(lineWidth-utf8.RuneCountInString(prefix), 0)
	return prefix + strings.Repeat("─", remaining)
}

func (f *TerminalFormatter) printHeader(w io.Writer, result *scanner.ScanResult) {
	sep := f.separator()
	fmt.Fprintf(w, "\n%s\n", f.color(dim, sep))
	fmt.Fprintf(w, "  %s\n", f.color(bold, "TATU SCAN RESULTS"))

	var parts []string
	if result.Target != "" {
		parts = append(parts, "Target: "+result.Target)
	}
	parts = append(parts, fmt.Sprintf("%d files", result.FilesScanned))
	parts = append(parts, fmt.Sprintf("%d rules", result.RulesLoaded))
	if result.Duration > 0 {
		parts = append(parts, fmt.Sprintf("%.2fs", result.Duration.Seconds()))
	}
	fmt.Fprintf(w, "  %s\n", strings.Join(parts, "  ·  "))
	fmt.Fprintf(w, "%s\n", f.color(dim, sep))
}

func (f *TerminalFormatter) printDashboard(w io.Writer, result *scanner.ScanResult) {
	s := result.Summary
	peak := max(s.Critical, s.High, s.Medium, s.Low, s.Info)
	if peak == 0 {
		return
	}

	fmt.Fprintln(w)
	for _, sev := range types.Severities {
		c := s.Count(sev)
		if c == 0 {
			continue
		}
		label := fmt.Sprintf("  %-10s", sev.String())
		fmt.Fprintf(w, "%s %s %4d\n", f.color(bold, label), f.renderBar(c, peak, sev), c)
	}
	fmt.Fprintf(w, "\n  %s  %s\n",
		f.color(bold, fmt.Sprintf("%d findings", s.Total)),
		f.color(scoreColor(result.Score), fmt.Sprintf("risk score %d/100", result.Score)))
}

func (f *TerminalFormatter) printSeveritySection(w io.Writer, sev scanner.Severity, findings []scanner.Finding) {
	header := f.sectionHeader(fmt.Sprintf("%s (%d)", sev.String(), len(findings)))
	fmt.Fprintf(w, "\n%s\n", f.color(bold, header))

	for _, group := range groupByFile(findings) {
		fmt.Fprintf(w, "\n  %s\n", f.color(bold+underline, group.filePath))
		for _, finding := range group.findings {
			f.printFinding(w, finding, sev >= scanner.SeverityHigh || f.Verbose)
		}
	}
}

func (f *TerminalFormatter) printFinding(w io.Writer, finding scanner.Finding, expanded bool) {
	loc := "file"
	if finding.Line > 0 {
		loc = fmt.Sprintf("line %d", finding.Line)
	}
	fmt.Fprintf(w, "    %s %s %s\n",
		f.severityIcon(finding.Severity),
		f.color(bold, fmt.Sprintf("%-*s", ruleIDWidth, finding.RuleID)),
		f.color(cyan, loc),
	)
	fmt.Fprintf(w, "      %s %s\n", f.color(dim, "│"), truncate(finding.Message, previewWidth))
	if !expanded {
		return
	}
	if finding.Snippet != "" {
		fmt.Fprintf(w, "      %s %s\n", f.color(dim, "│"), f.color(dim, truncate(finding.Snippet, previewWidth)))
	}
	if finding.Fix != "" {
		fmt.Fprintf(w, "      %s %s %s\n", f.color(dim, "│"), f.color(green, "fix:"), truncate(finding.Fix, previewWidth))
	}
}

func (f *TerminalFormatter) printTopFiles(w io.Writer, findings []scanner.Finding) {
	type fileCount struct {
		path  string
		count int
	}
	counts := map[string]int{}
	for _, finding := range findings {
		counts[finding.FilePath]++
	}
	sorted := make([]fileCount, 0, len(counts))
	for path, count := range counts {
		sorted = append(sorted, fileCount{path, count})
	}
	slices.SortFunc(sorted, func(a, b fileCount) int {
		if c := cmp.Compare(b.count, a.count); c != 0 {
			return c
		}
		return cmp.Compare(a.path, b.path)
	})

	if len(sorted) < 2 {
		return
	}
	fmt.Fprintf(w, "\n%s\n\n", f.color(bold, f.sectionHeader("TOP AFFECTED FILES")))
	for _, fc := range sorted[:min(len(sorted), topFiles)] {
		fmt.Fprintf(w, "  %4d  %s\n", fc.count, fc.path)
	}
}

func (f *TerminalFormatter) printWarnings(w io.Writer, warnings []string) {
	if len(warnings) == 0 {
		return
	}
	fmt.Fprintf(w, "\n%s\n\n", f.color(bold, f.sectionHeader("WARNINGS")))
	for _, msg := range warnings {
		fmt.Fprintf(w, "  %s %s\n", f.color(yellow, "!"), msg)
	}
}

func (f *TerminalFormatter) printFooter(w io.Writer, result *scanner.ScanResult) {
	sep := f.separator()
	fmt.Fprintf(w, "\n%s\n", f.color(dim, sep))

	parts := []string{
		fmt.Sprintf("%d files scanned", result.FilesScanned),
		fmt.Sprintf("%d findings", len(result.Findings)),
		fmt.Sprintf("%d rules", result.RulesLoaded),
	}
	if result.Duration > 0 {
		parts = append(parts, fmt.Sprintf("%.2fs", result.Duration.Seconds()))
	}
	fmt.Fprintf(w, "  %s\n", strings.Join(parts, " · "))
	fmt.Fprintf(w, "%s\n", f.color(dim, sep))
}

func (f *TerminalFormatter) severityIcon(sev scanner.Severity) string {
	switch sev {
	case scanner.SeverityCritical:
		return f.color(red+bold, "✖")
	case scanner.SeverityHigh:
		return f.color(red, "▲")
	case scanner.SeverityMedium:
		return f.color(yellow, "■")
	case scanner.SeverityLow:
		return f.color(blue, "●")
	default:
		return f.color(cyan, "○")
	}
}

func severityColor(sev scanner.Severity) string {
	switch sev {
	case scanner.SeverityCritical:
		return red + bold
	case scanner.SeverityHigh:
		return red
	case scanner.SeverityMedium:
		return yellow
	case scanner.SeverityLow:
		return blue
	default:
		return cyan
	}
}

func scoreColor(score int) string {
	switch {
	case score >= 70:
		return red + bold
	case score >= 40:
		return yellow
	default:
		return green
	}
}

func (f *TerminalFormatter) renderBar(count, peak int, sev scanner.Severity) string {
	filled := count * barWidth / peak
	if filled == 0 && count > 0 {
		filled = 1
	}
	// keep one empty block so the bar boundary stays visible
	if filled >= barWidth {
		filled = barWidth - 1
	}
	return f.color(severityColor(sev), strings.Repeat("█", filled)) +
		f.color(dim, strings.Repeat("░", barWidth-filled))
}

func filterBySeverity(findings []scanner.Finding, sev scanner.Severity) []scanner.Finding {
	var result []scanner.Finding
	for _, f := range findings {
		if f.Severity == sev {
			result = append(result, f)
		}
	}
	return result
}

func truncate(s string, maxLen int) string {
	s = strings.NewReplacer("\n", " ", "\r", "", "\t", " ").Replace(s)
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	return string([]rune(s)[:maxLen-3]) + "..."
}

type fileGroup struct {
	filePath string
	findings []scanner.Finding
}

// groupByFile groups findings by file, keeping first-seen file order.
func groupByFile(findings []scanner.Finding) []fileGroup {
	index := make(map[string]int)
	var groups []fileGroup
	for _, f := range findings {
		i, ok := index[f.FilePath]
		if !ok {
			i = len(groups)
			index[f.FilePath] = i
			groups = append(groups, fileGroup{filePath: f.FilePath})
		}
		groups[i].findings = append(groups[i].findings, f)
	}
	return groups
}
