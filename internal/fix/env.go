package fix

import (
	"context"
	"fmt"
	"maps"
	"path"
	"slices"

	"github.com/garagon/tatu/internal/types"
	"github.com/joho/godotenv"
)

// envExample writes a <dir>/.env.example next to every .env file with
// findings, listing its keys with empty values. Keys already in an existing
// example are kept with their values.
func (e *Engine) envExample(_ context.Context, findings []types.Finding) []Result {
	var results []Result
	for _, rel := range distinctFiles(findings, func(f types.Finding) bool { return IsEnvFile(f.FilePath) }) {
		results = append(results, e.exampleFor(rel))
	}
	return results
}

func (e *Engine) exampleFor(envRel string) Result {
	envPath, err := e.abs(envRel)
	if err != nil {
		return failed(envRel, err)
	}
	env, err := godotenv.Read(envPath)
	if err != nil {
		return failed(envRel, fmt.Errorf("read %s: %w", envRel, err))
	}

	exampleRel := path.Join(path.Dir(envRel), ".env.example")
	var missing []string
	changed, err := e.rewrite(exampleRel, true, func(old string) (string, bool, error) {
		existing, err := godotenv.Unmarshal(old)
		if err != nil {
			return "", false, fmt.Errorf("parse %s: %w", exampleRel, err)
		}
		for _, k := range slices.Sorted(maps.Keys(env)) {
			if _, ok := existing[k]; !ok {
				existing[k] = ""
				missing = append(missing, k)
			}
		}
		if len(missing) == 0 {
			return old, false, nil
		}
		out, err := godotenv.Marshal(existing)
		if err != nil {
			return "", false, err
		}
		return out + "\n", true, nil
	})
	if err != nil {
		return failed(exampleRel, err)
	}
	if !changed {
		return Result{Success: true, File: exampleRel, Message: "example already lists every key"}
	}
	return Result{
		Success: true,
		Applied: !e.dryRun,
		File:    exampleRel,
		Message: fmt.Sprintf("%s %d keys from %s with values removed", e.verb("wrote", "would write"), len(missing), envRel),
	}
}

// untrackEnv removes .env files with findings from the git index, leaving
// the working copy in place.
func (e *Engine) untrackEnv(ctx context.Context, findings []types.Finding) []Result {
	var results []Result
	for _, rel := range distinctFiles(findings, func(f types.Finding) bool { return IsEnvFile(f.FilePath) }) {
		if _, err := e.abs(rel); err != nil {
			results = append(results, failed(rel, err))
			continue
		}
		if _, err := e.runner.Run(ctx, e.root, "git", "ls-files", "--error-unmatch", "--", rel); err != nil {
			results = append(results, Result{Success: true, File: rel, Message: "not tracked by git"})
			continue
		}
		if e.dryRun {
			results = append(results, Result{Success: true, File: rel, Message: "would run git rm --cached " + rel})
			continue
		}
		unlock := e.lock(rel)
		_, err := e.runner.Run(ctx, e.root, "git", "rm", "--cached", "--quiet", "--", rel)
		unlock()
		if err != nil {
			results = append(results, failed(rel, err))
			continue
		}
		results = append(results, Result{Success: true, Applied: true, File: rel, Message: "removed from the git index; commit the change and rotate its secrets"})
	}
	return results
}
