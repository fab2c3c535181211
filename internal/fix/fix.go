// Package fix applies remediations for scan findings. Six strategies run in
// a fixed order, each gated on the findings it handles; a strategy that
// fails reports a failed Result and never stops the others.
package fix

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/garagon/tatu/internal/rules"
	"github.com/garagon/tatu/internal/rules/builtin"
	"github.com/garagon/tatu/internal/types"
	"go.uber.org/zap"
)

// Strategy names.
const (
	StrategyGitignore          = "gitignore"
	StrategyEnvExample         = "env-example"
	StrategyRedactDocs         = "redact-docs"
	StrategyPrototypePollution = "prototype-pollution"
	StrategyDependencyUpdate   = "dependency-update"
	StrategyUntrackEnv         = "untrack-env"
)

// Result reports one action taken (or, in dry-run mode, planned) by a strategy.
type Result struct {
	Strategy   string `json:"strategy"`
	Success    bool   `json:"success"`
	Applied    bool   `json:"applied"`
	File       string `json:"file,omitempty"`
	Message    string `json:"message"`
	Suggestion string `json:"suggestion,omitempty"`
}

// Runner executes an external command in dir and returns its combined output.
type Runner interface {
	Run(ctx context.Context, dir, name string, args ...string) ([]byte, error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, dir, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	if err != nil {
		return out, fmt.Errorf("%s %s: %w: %s", name, strings.Join(args, " "), err, strings.TrimSpace(string(out)))
	}
	return out, nil
}

// Engine runs the fix strategies against files under root.
type Engine struct {
	root    string
	dryRun  bool
	runner  Runner
	logger  *zap.SugaredLogger
	secrets map[string]*rules.CompiledRule

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New creates an engine rooted at the scanned directory.
func New(root string) *Engine {
	e := &Engine{
		root:    root,
		runner:  ExecRunner{},
		logger:  zap.NewNop().Sugar(),
		secrets: make(map[string]*rules.CompiledRule),
		locks:   make(map[string]*sync.Mutex),
	}
	e.SetSecretRules(rules.MustCompileAll(builtin.Secrets()))
	return e
}

// SetDryRun makes strategies report what they would do without writing
// files or running commands.
func (e *Engine) SetDryRun(on bool) { e.dryRun = on }

func (e *Engine) SetRunner(r Runner) { e.runner = r }

func (e *Engine) SetLogger(l *zap.SugaredLogger) { e.logger = l }

// SetSecretRules replaces the rules used to re-locate secrets for redaction.
func (e *Engine) SetSecretRules(compiled []*rules.CompiledRule) {
	e.secrets = make(map[string]*rules.CompiledRule, len(compiled))
	for _, r := range compiled {
		if r.Matchable() {
			e.secrets[r.ID] = r
		}
	}
}

type strategy struct {
	name string
	run  func(ctx context.Context, findings []types.Finding) []Result
}

// Run executes every strategy in order and collects their results.
func (e *Engine) Run(ctx context.Context, findings []types.Finding) []Result {
	strategies := []strategy{
		{StrategyGitignore, e.gitignore},
		{StrategyEnvExample, e.envExample},
		{StrategyRedactDocs, e.redactDocs},
		{StrategyPrototypePollution, e.prototypePollution},
		{StrategyDependencyUpdate, e.dependencyUpdate},
		{StrategyUntrackEnv, e.untrackEnv},
	}
	var results []Result
	for _, s := range strategies {
		if ctx.Err() != nil {
			results = append(results, Result{Strategy: s.name, Message: ctx.Err().Error()})
			continue
		}
		for _, r := range e.safeRun(ctx, s, findings) {
			r.Strategy = s.name
			e.logger.Debugw("fix", "strategy", r.Strategy, "file", r.File, "success", r.Success, "applied", r.Applied, "message", r.Message)
			results = append(results, r)
		}
	}
	return results
}

func (e *Engine) safeRun(ctx context.Context, s strategy, findings []types.Finding) (results []Result) {
	defer func() {
		if rec := recover(); rec != nil {
			results = []Result{{Message: fmt.Sprintf("panic: %v", rec)}}
		}
	}()
	return s.run(ctx, findings)
}

// lock serialises writes to one path.
func (e *Engine) lock(rel string) func() {
	e.mu.Lock()
	m, ok := e.locks[rel]
	if !ok {
		m = &sync.Mutex{}
		e.locks[rel] = m
	}
	e.mu.Unlock()
	m.Lock()
	return m.Unlock
}

// abs resolves a root-relative path, refusing paths that leave the root.
func (e *Engine) abs(rel string) (string, error) {
	local := filepath.FromSlash(rel)
	if !filepath.IsLocal(local) {
		return "", fmt.Errorf("path %q escapes the scan root", rel)
	}
	return filepath.Join(e.root, local), nil
}

// rewrite applies edit to a file under the path lock. edit returns the new
// content and whether anything changed. Missing files read as empty when
// create is set.
func (e *Engine) rewrite(rel string, create bool, edit func(old string) (string, bool, error)) (bool, error) {
	p, err := e.abs(rel)
	if err != nil {
		return false, err
	}
	unlock := e.lock(rel)
	defer unlock()

	data, err := os.ReadFile(p)
	if err != nil && !(create && os.IsNotExist(err)) {
		return false, fmt.Errorf("read %s: %w", rel, err)
	}
	updated, changed, err := edit(string(data))
	if err != nil || !changed || e.dryRun {
		return changed, err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return false, fmt.Errorf("create %s: %w", path.Dir(rel), err)
	}
	if err := os.WriteFile(p, []byte(updated), 0o644); err != nil {
		return false, fmt.Errorf("write %s: %w", rel, err)
	}
	return true, nil
}

// verb picks the dry-run or applied wording for a message.
func (e *Engine) verb(applied, planned string) string {
	if e.dryRun {
		return planned
	}
	return applied
}

// distinctFiles returns the file paths of findings accepted by keep, in
// first-seen order.
func distinctFiles(findings []types.Finding, keep func(types.Finding) bool) []string {
	seen := make(map[string]bool)
	var files []string
	for _, f := range findings {
		if keep(f) && !seen[f.FilePath] {
			seen[f.FilePath] = true
			files = append(files, f.FilePath)
		}
	}
	return files
}

// IsEnvFile reports whether relPath is a dotenv file holding real values.
// Templates such as .env.example are not.
func IsEnvFile(relPath string) bool {
	base := strings.ToLower(path.Base(relPath))
	if base == ".env" {
		return true
	}
	if !strings.HasPrefix(base, ".env.") {
		return false
	}
	for _, s := range []string{".example", ".sample", ".template", ".dist", ".defaults"} {
		if strings.HasSuffix(base, s) {
			return false
		}
	}
	return true
}

func failed(file string, err error) Result {
	return Result{File: file, Message: err.Error()}
}
