package meta

import (
	"fmt"

	"github.com/garagon/tatu/internal/types"
)

// Deduplicate removes duplicate findings by (FilePath, RuleID, Line, Column,
// Message) composite key, keeping the highest severity instance. Findings
// without a position, such as manifest-level dependency findings, stay
// distinct through their messages. Output keeps the
// order in which keys were first seen.
func Deduplicate(findings []types.Finding) []types.Finding {
	index := make(map[string]int)
	result := make([]types.Finding, 0, len(findings))
	for _, f := range findings {
		k := fmt.Sprintf("%s:%s:%d:%d:%s", f.FilePath, f.RuleID, f.Line, f.Column, f.Message)
		if i, ok := index[k]; ok {
			if f.Severity > result[i].Severity {
				result[i] = f
			}
			continue
		}
		index[k] = len(result)
		result = append(result, f)
	}
	return result
}
