package fix

import (
	"context"
	"fmt"
	"strings"

	"github.com/garagon/tatu/internal/rules"
	"github.com/garagon/tatu/internal/types"
)

const gitignoreHeader = "# Secret files (added by tatu fix)"

// GitignoreEntries are ensured in the root .gitignore when secrets are found.
var GitignoreEntries = []string{".env", ".env.local", ".env.*.local", "*.pem", "*.key"}

func (e *Engine) gitignore(_ context.Context, findings []types.Finding) []Result {
	needed := false
	for _, f := range findings {
		if f.Scanner == rules.ScannerSecrets || IsEnvFile(f.FilePath) {
			needed = true
			break
		}
	}
	if !needed {
		return nil
	}

	var added []string
	_, err := e.rewrite(".gitignore", true, func(old string) (string, bool, error) {
		present := make(map[string]bool)
		for _, l := range strings.Split(old, "\n") {
			present[strings.TrimPrefix(strings.TrimSpace(l), "/")] = true
		}
		for _, entry := range GitignoreEntries {
			if !present[entry] {
				added = append(added, entry)
			}
		}
		if len(added) == 0 {
			return old, false, nil
		}
		var b strings.Builder
		b.WriteString(old)
		if old != "" && !strings.HasSuffix(old, "\n") {
			b.WriteByte('\n')
		}
		if old != "" {
			b.WriteByte('\n')
		}
		b.WriteString(gitignoreHeader + "\n")
		for _, entry := range added {
			b.WriteString(entry + "\n")
		}
		return b.String(), true, nil
	})
	if err != nil {
		return []Result{failed(".gitignore", err)}
	}
	if len(added) == 0 {
		return []Result{{Success: true, File: ".gitignore", Message: "secret file patterns already ignored"}}
	}
	return []Result{{
		Success: true,
		Applied: !e.dryRun,
		File:    ".gitignore",
		Message: fmt.Sprintf("%s %s", e.verb("added", "would add"), strings.Join(added, ", ")),
	}}
}
