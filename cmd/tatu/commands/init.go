package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/garagon/tatu/internal/config"
	"github.com/garagon/tatu/internal/scanner"
)

var (
	flagHook   bool
	flagCIOnly bool
)

var initCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Initialize tatu configuration files",
	Long:  `Scaffolds .tatu.yml, .tatuignore, and a GitHub Actions workflow for tatu scanning.`,
	Args:  cobra.MaximumNArgs(1),
	RunE:  runInit,
}

func init() {
	initCmd.Flags().BoolVar(&flagHook, "hook", false, "Create a git pre-commit hook that runs tatu on changed files")
	initCmd.Flags().BoolVar(&flagCIOnly, "ci", false, "Only generate GitHub Actions workflow (skip config files)")
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	dir := "."
	if len(args) > 0 {
		dir = args[0]
	}

	if flagHook {
		return initHook(dir)
	}

	if flagCIOnly {
		return initCIOnly(dir)
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating directory %s: %w", dir, err)
	}

	files := []struct {
		path    string
		content string
	}{
		{
			path:    filepath.Join(dir, config.FileNames[0]),
			content: config.Template,
		},
		{
			path:    filepath.Join(dir, scanner.IgnoreFile),
			content: ignoreTemplate,
		},
		{
			path:    filepath.Join(dir, ".github", "workflows", "tatu.yml"),
			content: workflowTemplate,
		},
	}

	for _, f := range files {
		if err := writeScaffold(f.path, f.content, 0644); err != nil {
			return err
		}
	}

	return nil
}

// writeScaffold creates path with content unless it already exists.
func writeScaffold(path, content string, perm os.FileMode) error {
	if _, err := os.Stat(path); err == nil {
		fmt.Printf("  skip %s (already exists)\n", path)
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating directory for %s: %w", path, err)
	}
	if err := os.WriteFile(path, []byte(content), perm); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	fmt.Printf("  create %s\n", path)
	return nil
}

func initHook(dir string) error {
	gitDir := filepath.Join(dir, ".git")
	if _, err := os.Stat(gitDir); os.IsNotExist(err) {
		return fmt.Errorf("no .git directory found in %s (is this a git repository?)", dir)
	}
	return writeScaffold(filepath.Join(gitDir, "hooks", "pre-commit"), preCommitTemplate, 0755)
}

func initCIOnly(dir string) error {
	return writeScaffold(filepath.Join(dir, ".github", "workflows", "tatu.yml"), workflowTemplate, 0644)
}

const ignoreTemplate = `# tatu ignore patterns
# Files matching these patterns will be skipped during scanning.
# node_modules/, vendor/, dist/, build/ and .git/ are always skipped.

# Test fixtures with intentional secrets
testdata/
fixtures/

# Generated and minified code
*.min.js
*.bundle.js
*.pb.go

# Logs and temp
*.log
tmp/
`

const preCommitTemplate = `#!/bin/sh
# tatu pre-commit hook
echo "Running tatu security scan on changed files..."
tatu scan . --changed --fail-on high --no-color
exit $?
`

const workflowTemplate = `name: tatu Security Scan

on:
  push:
    branches: [main]
  pull_request:
    branches: [main]

permissions:
  security-events: write
  contents: read
  pull-requests: write

jobs:
  tatu:
    runs-on: ubuntu-latest
    steps:
      - uses: actions/checkout@v4

      - uses: actions/setup-go@v5
        with:
          go-version: stable

      - name: Install tatu
        run: go install github.com/garagon/tatu/cmd/tatu@latest

      - name: Run tatu scan
        id: scan
        continue-on-error: true
        run: tatu scan . --format sarif --output results.sarif --fail-on high

      - name: Upload SARIF results
        if: always()
        uses: github/codeql-action/upload-sarif@v3
        with:
          sarif_file: results.sarif

      - name: Build PR summary
        if: github.event_name == 'pull_request' && always()
        run: tatu scan . --format markdown --output tatu-report.md

      - name: Comment on PR
        if: github.event_name == 'pull_request' && always()
        uses: actions/github-script@v7
        with:
          script: |
            const fs = require('fs');
            await github.rest.issues.createComment({
              owner: context.repo.owner,
              repo: context.repo.repo,
              issue_number: context.issue.number,
              body: fs.readFileSync('tatu-report.md', 'utf8')
            });

      - name: Fail on findings
        if: steps.scan.outcome == 'failure'
        run: exit 1
`
