package scanner

import (
	"context"
	"maps"
	"os/exec"
	"slices"
	"strings"
)

// GitChangedFiles returns the root-relative paths of files that are
// modified, staged or untracked in the git work tree containing root,
// sorted. Binary files and default-ignored directories are left out. When
// git is missing or root is not inside a work tree the result is empty and
// the error nil.
func GitChangedFiles(ctx context.Context, root string) ([]string, error) {
	if _, err := exec.LookPath("git"); err != nil {
		return nil, nil
	}
	if _, err := runGit(ctx, root, "rev-parse", "--is-inside-work-tree"); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, nil
	}

	changed := make(map[string]bool)

	// staged and unstaged; repos without a commit only have the index
	out, err := runGit(ctx, root, "diff", "--name-only", "-z", "--relative", "HEAD")
	if err != nil {
		out, err = runGit(ctx, root, "diff", "--name-only", "-z", "--relative", "--cached")
		if err != nil {
			return nil, ctx.Err()
		}
	}
	addPaths(changed, out)

	if out, err := runGit(ctx, root, "ls-files", "-z", "--others", "--exclude-standard"); err == nil {
		addPaths(changed, out)
	}

	return slices.Sorted(maps.Keys(changed)), nil
}

func addPaths(set map[string]bool, out string) {
	for p := range strings.SplitSeq(out, "\x00") {
		if p == "" || isBinaryExt(p) || inIgnoredDir(p) {
			continue
		}
		set[p] = true
	}
}

func runGit(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	out, err := cmd.Output()
	if err != nil {
		return "", err
	}
	return string(out), nil
}
