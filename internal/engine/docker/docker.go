// Package docker runs a fixed, ordered list of checks over each Dockerfile.
// Unlike the pattern scanners, every check reports at most once per file.
package docker

import (
	"context"
	"fmt"
	"path"
	"regexp"
	"strings"

	"github.com/garagon/tatu/internal/engine/pattern"
	"github.com/garagon/tatu/internal/rules"
	"github.com/garagon/tatu/internal/rules/builtin"
	"github.com/garagon/tatu/internal/scanner"
	"github.com/garagon/tatu/internal/types"
)

// MaxExposedPorts is the most distinct ports a Dockerfile may expose
// before docker-excessive-ports fires.
const MaxExposedPorts = 5

// result is the outcome of one check: the line it points at (0 for
// whole-file findings) and an optional message detail.
type result struct {
	line   int
	detail string
	secret string // raw value to mask in the snippet
}

type check struct {
	id  string
	run func(df *dockerfile) (result, bool)
}

// checks run in this order; the rule table mirrors it.
var checks = []check{
	{"docker-root-user", checkRootUser},
	{"docker-unpinned-image", checkUnpinnedImage},
	{"docker-add-instead-of-copy", checkAdd},
	{"docker-sudo", checkSudo},
	{"docker-package-upgrade", checkUpgrade},
	{"docker-excessive-ports", checkPorts},
	{"docker-secret-in-build", checkSecrets},
	{"docker-missing-healthcheck", checkHealthcheck},
	{"docker-curl-pipe-shell", checkCurlPipe},
}

type dockerfile struct {
	lines        []string
	instructions []instruction
}

// IsDockerfile reports whether relPath names a container build file.
func IsDockerfile(relPath string) bool {
	base := strings.ToLower(path.Base(relPath))
	switch {
	case base == "dockerfile" || base == "containerfile" || strings.HasSuffix(base, ".dockerfile"):
		return true
	case strings.HasPrefix(base, "dockerfile."):
		ext := path.Ext(base)
		return builtin.LanguageByExt[ext] == "" && ext != ".md"
	}
	return false
}

// Scanner is the container-build analyzer.
type Scanner struct {
	rules map[string]*rules.CompiledRule
}

// New keeps the compiled rules that name a known check.
func New(compiled []*rules.CompiledRule) *Scanner {
	s := &Scanner{rules: make(map[string]*rules.CompiledRule)}
	for _, r := range compiled {
		s.rules[r.ID] = r
	}
	return s
}

func (s *Scanner) Name() string { return rules.ScannerDocker }

func (s *Scanner) RuleCount() int {
	n := 0
	for _, c := range checks {
		if s.rules[c.id] != nil {
			n++
		}
	}
	return n
}

func (s *Scanner) Analyze(ctx context.Context, targets []*scanner.Target) ([]types.Finding, error) {
	var findings []types.Finding
	for _, t := range targets {
		if ctx.Err() != nil {
			return findings, ctx.Err()
		}
		if !IsDockerfile(t.RelPath) {
			continue
		}
		content, err := t.Read()
		if err != nil {
			continue
		}
		findings = append(findings, s.ScanContent(t.RelPath, string(content))...)
	}
	return findings, nil
}

// ScanContent runs every enabled check over one Dockerfile.
func (s *Scanner) ScanContent(relPath, content string) []types.Finding {
	df := &dockerfile{lines: pattern.SplitLines(content), instructions: parse(content)}
	if len(df.instructions) == 0 {
		return nil
	}
	var findings []types.Finding
	for _, c := range checks {
		rule := s.rules[c.id]
		if rule == nil {
			continue
		}
		res, hit := c.run(df)
		if !hit {
			continue
		}
		findings = append(findings, s.finding(rule, relPath, df, res))
	}
	return findings
}

func (s *Scanner) finding(rule *rules.CompiledRule, relPath string, df *dockerfile, res result) types.Finding {
	msg := rule.Message
	if res.detail != "" {
		msg = res.detail
	}
	f := types.Finding{
		RuleID:   rule.ID,
		Title:    rule.Title,
		Severity: rule.Severity,
		Message:  msg,
		FilePath: relPath,
		Line:     res.line,
		CWE:      rule.CWE,
		OWASP:    rule.OWASP,
		Fix:      rule.Fix,
		Scanner:  rule.Scanner,
	}
	if res.line > 0 {
		f.Column = 1
		text := pattern.LineText(df.lines, res.line)
		if res.secret != "" {
			text = strings.ReplaceAll(text, res.secret, pattern.Mask(res.secret))
		}
		f.Snippet = pattern.Snippet(text)
	}
	return f
}

// finalStage returns the instructions after the last FROM.
func (df *dockerfile) finalStage() []instruction {
	for i := len(df.instructions) - 1; i >= 0; i-- {
		if df.instructions[i].cmd == "FROM" {
			return df.instructions[i:]
		}
	}
	return df.instructions
}

func checkRootUser(df *dockerfile) (result, bool) {
	var last *instruction
	for _, ins := range df.finalStage() {
		if ins.cmd == "USER" {
			last = &ins
		}
	}
	if last == nil {
		return result{}, true
	}
	user, _, _ := strings.Cut(last.args, ":")
	if user == "root" || user == "0" {
		return result{line: last.line, detail: "Final USER is root"}, true
	}
	return result{}, false
}

func checkUnpinnedImage(df *dockerfile) (result, bool) {
	stages := make(map[string]bool)
	for _, ins := range df.instructions {
		if ins.cmd != "FROM" {
			continue
		}
		w := ins.words()
		if len(w) == 0 {
			continue
		}
		image := w[0]
		if !pinned(image, stages) {
			return result{line: ins.line, detail: fmt.Sprintf("Base image %s has no tag or uses latest", image)}, true
		}
		if len(w) >= 3 && strings.EqualFold(w[1], "as") {
			stages[strings.ToLower(w[2])] = true
		}
	}
	return result{}, false
}

// pinned reports whether a FROM reference names a fixed image. Stage
// aliases, build args and scratch are treated as pinned.
func pinned(image string, stages map[string]bool) bool {
	lower := strings.ToLower(image)
	if lower == "scratch" || stages[lower] || strings.Contains(image, "$") || strings.Contains(image, "@") {
		return true
	}
	slash := strings.LastIndex(image, "/")
	colon := strings.LastIndex(image, ":")
	if colon <= slash {
		return false
	}
	return image[colon+1:] != "latest"
}

var archiveExts = []string{".tar", ".tar.gz", ".tgz", ".tar.bz2", ".tbz2", ".tar.xz", ".txz"}

func checkAdd(df *dockerfile) (result, bool) {
	for _, ins := range df.instructions {
		if ins.cmd != "ADD" {
			continue
		}
		w := ins.words()
		if len(w) < 2 {
			continue
		}
		for _, src := range w[:len(w)-1] {
			if !remoteOrArchive(src) {
				return result{line: ins.line}, true
			}
		}
	}
	return result{}, false
}

func remoteOrArchive(src string) bool {
	lower := strings.ToLower(src)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") || strings.HasPrefix(lower, "git@") {
		return true
	}
	for _, ext := range archiveExts {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

var (
	sudoRe     = regexp.MustCompile(`\bsudo\b`)
	upgradeRe  = regexp.MustCompile(`\b(?:apt-get|apt)\s+(?:-\S+\s+)*(?:dist-|full-)?upgrade\b|\b(?:yum|dnf|microdnf|apk)\s+(?:-\S+\s+)*upgrade\b`)
	curlPipeRe = regexp.MustCompile(`\b(?:curl|wget)\b[^|;&]*\|\s*(?:sudo\s+)?(?:sh|bash|zsh|ash|dash)\b`)
)

func firstRun(df *dockerfile, re *regexp.Regexp) (result, bool) {
	for _, ins := range df.instructions {
		if ins.cmd == "RUN" && re.MatchString(ins.args) {
			return result{line: ins.line}, true
		}
	}
	return result{}, false
}

func checkSudo(df *dockerfile) (result, bool) { return firstRun(df, sudoRe) }

func checkUpgrade(df *dockerfile) (result, bool) { return firstRun(df, upgradeRe) }

func checkCurlPipe(df *dockerfile) (result, bool) { return firstRun(df, curlPipeRe) }

func checkPorts(df *dockerfile) (result, bool) {
	ports := make(map[string]bool)
	for _, ins := range df.instructions {
		if ins.cmd != "EXPOSE" {
			continue
		}
		for _, p := range ins.words() {
			port, _, _ := strings.Cut(p, "/")
			ports[port] = true
		}
		if len(ports) > MaxExposedPorts {
			return result{line: ins.line, detail: fmt.Sprintf("%d ports exposed (more than %d)", len(ports), MaxExposedPorts)}, true
		}
	}
	return result{}, false
}

var secretKeyRe = regexp.MustCompile(`(?i)(?:password|passwd|secret|token|api_?key|access_?key|private_?key|credentials?)`)

func checkSecrets(df *dockerfile) (result, bool) {
	for _, ins := range df.instructions {
		if ins.cmd != "ENV" && ins.cmd != "ARG" {
			continue
		}
		for _, kv := range assignments(ins) {
			key, value := kv[0], kv[1]
			if !secretKeyRe.MatchString(key) || value == "" || strings.HasPrefix(value, "$") {
				continue
			}
			return result{
				line:   ins.line,
				detail: fmt.Sprintf("Secret-shaped value in %s %s=%s", ins.cmd, key, pattern.Mask(value)),
				secret: value,
			}, true
		}
	}
	return result{}, false
}

// assignments returns key/value pairs of an ENV or ARG instruction,
// including the legacy "ENV key value" form. Quotes are stripped.
func assignments(ins instruction) [][2]string {
	fields := strings.Fields(ins.args)
	if len(fields) == 0 {
		return nil
	}
	if ins.cmd == "ENV" && !strings.Contains(fields[0], "=") {
		return [][2]string{{fields[0], unquote(strings.TrimSpace(strings.TrimPrefix(ins.args, fields[0])))}}
	}
	var out [][2]string
	for _, f := range fields {
		k, v, _ := strings.Cut(f, "=")
		out = append(out, [2]string{k, unquote(v)})
	}
	return out
}

func unquote(s string) string {
	if len(s) >= 2 && (s[0] == '"' || s[0] == '\'') && s[len(s)-1] == s[0] {
		return s[1 : len(s)-1]
	}
	return s
}

func checkHealthcheck(df *dockerfile) (result, bool) {
	for _, ins := range df.instructions {
		if ins.cmd == "HEALTHCHECK" && !strings.EqualFold(strings.TrimSpace(ins.args), "NONE") {
			return result{}, false
		}
	}
	return result{}, true
}
