package fix

import (
	"context"
	"fmt"
	"path"
	"regexp"
	"strings"

	"github.com/garagon/tatu/internal/engine/deps"
	"github.com/garagon/tatu/internal/types"
)

// dependencyUpdate bumps vulnerable dependencies to their fixed version.
// package.json and requirements files are edited in place; go.mod is
// updated with go get. Lock files and other formats get a suggested command.
func (e *Engine) dependencyUpdate(ctx context.Context, findings []types.Finding) []Result {
	byFile := make(map[string][]types.Finding)
	files := distinctFiles(findings, func(f types.Finding) bool {
		return f.RuleID == deps.RuleID && f.Metadata["fixedVersion"] != ""
	})
	for _, f := range findings {
		if f.RuleID == deps.RuleID && f.Metadata["fixedVersion"] != "" {
			byFile[f.FilePath] = append(byFile[f.FilePath], f)
		}
	}

	var results []Result
	for _, rel := range files {
		base := path.Base(rel)
		switch {
		case base == "package.json":
			results = append(results, e.editManifest(rel, byFile[rel], bumpPackageJSON))
		case strings.HasPrefix(base, "requirements") && path.Ext(base) == ".txt":
			results = append(results, e.editManifest(rel, byFile[rel], bumpRequirement))
		case base == "go.mod":
			results = append(results, e.goGet(ctx, rel, byFile[rel])...)
		default:
			for _, f := range byFile[rel] {
				results = append(results, Result{
					Success:    true,
					File:       rel,
					Message:    fmt.Sprintf("%s cannot be edited in place", base),
					Suggestion: upgradeCommand(f),
				})
			}
		}
	}
	return results
}

// bumpFunc rewrites one line to require fixed; ok is false when the
// dependency is not declared on that line.
type bumpFunc func(line, name, fixed string) (string, bool)

func (e *Engine) editManifest(rel string, findings []types.Finding, bump bumpFunc) Result {
	var bumped []string
	_, err := e.rewrite(rel, false, func(old string) (string, bool, error) {
		lines := strings.Split(old, "\n")
		for _, f := range findings {
			name, fixed := f.Metadata["package"], f.Metadata["fixedVersion"]
			if f.Line < 1 || f.Line > len(lines) {
				continue
			}
			if updated, ok := bump(lines[f.Line-1], name, fixed); ok {
				lines[f.Line-1] = updated
				bumped = append(bumped, name+"@"+fixed)
			}
		}
		return strings.Join(lines, "\n"), len(bumped) > 0, nil
	})
	switch {
	case err != nil:
		return failed(rel, err)
	case len(bumped) == 0:
		return Result{File: rel, Message: "no dependency declaration found to update"}
	}
	return Result{
		Success:    true,
		Applied:    !e.dryRun,
		File:       rel,
		Message:    fmt.Sprintf("%s %s", e.verb("updated", "would update"), strings.Join(bumped, ", ")),
		Suggestion: "reinstall dependencies to refresh the lock file",
	}
}

func bumpPackageJSON(line, name, fixed string) (string, bool) {
	re := regexp.MustCompile(`("` + regexp.QuoteMeta(name) + `"\s*:\s*")[^"]*(")`)
	if !re.MatchString(line) {
		return line, false
	}
	return re.ReplaceAllString(line, "${1}^"+fixed+"${2}"), true
}

func bumpRequirement(line, name, fixed string) (string, bool) {
	re := regexp.MustCompile(`(?i)^(\s*` + regexp.QuoteMeta(name) + `\s*(?:\[[^\]]*\])?)\s*(?:===|==|~=|>=|>)\s*[^\s;,#]+`)
	if !re.MatchString(line) {
		return line, false
	}
	return re.ReplaceAllString(line, "${1}=="+fixed), true
}

func (e *Engine) goGet(ctx context.Context, rel string, findings []types.Finding) []Result {
	dir, err := e.abs(path.Dir(rel))
	if err != nil {
		return []Result{failed(rel, err)}
	}
	var results []Result
	for _, f := range findings {
		target := f.Metadata["package"] + "@v" + strings.TrimPrefix(f.Metadata["fixedVersion"], "v")
		if e.dryRun {
			results = append(results, Result{Success: true, File: rel, Message: "would run go get " + target})
			continue
		}
		unlock := e.lock(rel)
		_, err := e.runner.Run(ctx, dir, "go", "get", target)
		unlock()
		if err != nil {
			results = append(results, failed(rel, err))
			continue
		}
		results = append(results, Result{Success: true, Applied: true, File: rel, Message: "ran go get " + target})
	}
	return results
}

func upgradeCommand(f types.Finding) string {
	name, fixed := f.Metadata["package"], f.Metadata["fixedVersion"]
	switch f.Metadata["ecosystem"] {
	case deps.EcosystemNPM:
		return fmt.Sprintf("npm install %s@%s", name, fixed)
	case deps.EcosystemPyPI:
		return fmt.Sprintf("pip install '%s>=%s'", name, fixed)
	case deps.EcosystemGo:
		return fmt.Sprintf("go get %s@v%s", name, fixed)
	}
	return fmt.Sprintf("upgrade %s to %s", name, fixed)
}
