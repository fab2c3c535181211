package fix

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/garagon/tatu/internal/engine/pattern"
	"github.com/garagon/tatu/internal/rules"
	"github.com/garagon/tatu/internal/types"
)

// Redacted replaces secrets found in documentation.
const Redacted = "[REDACTED]"

var docExts = map[string]bool{".md": true, ".markdown": true, ".mdx": true, ".txt": true, ".rst": true, ".adoc": true}

// IsDocFile reports whether relPath is prose documentation.
func IsDocFile(relPath string) bool {
	return docExts[strings.ToLower(path.Ext(relPath))]
}

// redactDocs re-matches each secret finding on its line and replaces the
// secret with Redacted. Findings whose rule no longer matches the line
// (such as decoded blobs) are left alone.
func (e *Engine) redactDocs(_ context.Context, findings []types.Finding) []Result {
	byFile := make(map[string][]types.Finding)
	files := distinctFiles(findings, func(f types.Finding) bool {
		return f.Scanner == rules.ScannerSecrets && f.Line > 0 && IsDocFile(f.FilePath)
	})
	for _, f := range findings {
		byFile[f.FilePath] = append(byFile[f.FilePath], f)
	}

	var results []Result
	for _, rel := range files {
		count := 0
		_, err := e.rewrite(rel, false, func(old string) (string, bool, error) {
			lines := strings.Split(old, "\n")
			for _, f := range byFile[rel] {
				rule, ok := e.secrets[f.RuleID]
				if !ok || f.Scanner != rules.ScannerSecrets || f.Line < 1 || f.Line > len(lines) {
					continue
				}
				line := lines[f.Line-1]
				for _, hit := range pattern.FindAll(rule, line) {
					if strings.Contains(line, hit.Value) {
						line = strings.ReplaceAll(line, hit.Value, Redacted)
						count++
					}
				}
				lines[f.Line-1] = line
			}
			return strings.Join(lines, "\n"), count > 0, nil
		})
		switch {
		case err != nil:
			results = append(results, failed(rel, err))
		case count == 0:
			results = append(results, Result{Success: true, File: rel, Message: "no secret left to redact"})
		default:
			results = append(results, Result{
				Success: true,
				Applied: !e.dryRun,
				File:    rel,
				Message: fmt.Sprintf("%s %d secret(s)", e.verb("redacted", "would redact"), count),
			})
		}
	}
	return results
}
