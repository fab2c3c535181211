// Package pattern is the matching primitive shared by the rule-driven
// scanners: every non-overlapping match of a compiled rule with 1-based
// positions, plus the masking, snippet and path heuristics they have in common.
package pattern

import (
	"sort"
	"strings"

	"github.com/garagon/tatu/internal/rules"
	"github.com/garagon/tatu/internal/types"
)

// SecretGroup is the named capture group holding a credential value.
const SecretGroup = "secret"

// Hit is one match of a rule inside a file.
type Hit struct {
	Start, End         int // byte offsets into the content
	Line, Column       int
	EndLine, EndColumn int
	Text               string
	Value              string // the secret group when present, else Text
	Secret             bool   // Value came from the secret group
}

// FindAll returns every non-overlapping match of rule in content, in offset
// order. Matches dropped by the rule's exclude pattern are skipped.
// Go regexps keep no position state, so each call starts from offset 0.
func FindAll(rule *rules.CompiledRule, content string) []Hit {
	if !rule.Matchable() {
		return nil
	}
	locs := rule.Regex.FindAllStringSubmatchIndex(content, -1)
	if len(locs) == 0 {
		return nil
	}
	group := rule.Regex.SubexpIndex(SecretGroup)
	idx := newLineIndex(content)

	hits := make([]Hit, 0, len(locs))
	for _, loc := range locs {
		text := content[loc[0]:loc[1]]
		if rule.Excluded(text) {
			continue
		}
		h := Hit{Start: loc[0], End: loc[1], Text: text, Value: text}
		if group > 0 && loc[2*group] >= 0 {
			h.Value = content[loc[2*group]:loc[2*group+1]]
			h.Secret = true
		}
		h.Line, h.Column = idx.position(loc[0])
		end := max(loc[1]-1, loc[0])
		h.EndLine, h.EndColumn = idx.position(end)
		h.EndColumn++
		hits = append(hits, h)
	}
	return hits
}

// NewFinding builds the Finding for a hit. When the hit carries a secret
// value, the value is masked in the message and snippet and never stored raw.
func NewFinding(rule *rules.CompiledRule, relPath string, lines []string, h Hit) types.Finding {
	line := LineText(lines, h.Line)
	msg := rule.Message
	if h.Secret {
		masked := Mask(h.Value)
		msg += ": " + masked
		line = strings.ReplaceAll(line, h.Value, masked)
	}
	return types.Finding{
		RuleID:    rule.ID,
		Title:     rule.Title,
		Severity:  rule.Severity,
		Message:   msg,
		FilePath:  relPath,
		Line:      h.Line,
		Column:    h.Column,
		EndLine:   h.EndLine,
		EndColumn: h.EndColumn,
		Snippet:   Snippet(line),
		CWE:       rule.CWE,
		OWASP:     rule.OWASP,
		Fix:       rule.Fix,
		Scanner:   rule.Scanner,
	}
}

// LineAt returns the 1-based line containing offset, counting the newlines
// that precede it.
func LineAt(content string, offset int) int {
	offset = min(max(offset, 0), len(content))
	return strings.Count(content[:offset], "\n") + 1
}

// SplitLines splits content into lines without their terminators.
func SplitLines(content string) []string {
	lines := strings.Split(content, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return lines
}

// LineText returns the 1-based line n, or "" when out of range.
func LineText(lines []string, n int) string {
	if n < 1 || n > len(lines) {
		return ""
	}
	return lines[n-1]
}

// lineIndex holds the offset of every newline so positions resolve with a
// binary search instead of a rescan per match.
type lineIndex []int

func newLineIndex(content string) lineIndex {
	var idx lineIndex
	for i := 0; i < len(content); i++ {
		if content[i] == '\n' {
			idx = append(idx, i)
		}
	}
	return idx
}

// position returns the 1-based line and byte column of offset.
func (idx lineIndex) position(offset int) (int, int) {
	n := sort.SearchInts(idx, offset) // newlines strictly before offset
	start := 0
	if n > 0 {
		start = idx[n-1] + 1
	}
	return n + 1, offset - start + 1
}
