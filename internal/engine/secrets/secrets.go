// Package secrets detects hardcoded credentials: vendor token formats,
// private keys, connection strings and generic password assignments.
package secrets

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"

	"github.com/garagon/tatu/internal/engine/pattern"
	"github.com/garagon/tatu/internal/rules"
	"github.com/garagon/tatu/internal/scanner"
	"github.com/garagon/tatu/internal/types"
)

// Files that are never scanned for secrets.
var (
	skipExts = map[string]bool{
		".lock": true, ".sum": true, ".map": true,
		".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".ico": true,
		".svg": true, ".webp": true, ".pdf": true, ".zip": true, ".gz": true,
		".tar": true, ".tgz": true, ".woff": true, ".woff2": true, ".ttf": true,
		".eot": true, ".mp3": true, ".mp4": true, ".exe": true, ".dll": true,
		".so": true, ".dylib": true, ".bin": true, ".class": true, ".jar": true,
		".pyc": true, ".wasm": true,
	}
	skipNames = map[string]bool{
		"package-lock.json": true, "yarn.lock": true, "pnpm-lock.yaml": true,
		"poetry.lock": true, "Pipfile.lock": true, "composer.lock": true,
		"Gemfile.lock": true, "Cargo.lock": true, "go.sum": true,
	}
)

// Scanner is the secrets analyzer.
type Scanner struct {
	rules  []*rules.CompiledRule
	decode bool
}

// New returns a secrets scanner over the compiled secret rules. Encoded
// blobs are decoded and rescanned.
func New(compiled []*rules.CompiledRule) *Scanner {
	return &Scanner{rules: compiled, decode: true}
}

// SetDecode toggles rescanning of base64 and hex blobs.
func (s *Scanner) SetDecode(on bool) { s.decode = on }

func (s *Scanner) Name() string { return rules.ScannerSecrets }

func (s *Scanner) RuleCount() int { return len(s.rules) }

// Skipped reports whether a path is excluded from secret scanning entirely.
func Skipped(relPath string) bool {
	base := filepath.Base(relPath)
	if skipNames[base] {
		return true
	}
	if skipExts[strings.ToLower(filepath.Ext(base))] {
		return true
	}
	return pattern.IsTestPath(relPath)
}

func (s *Scanner) Analyze(ctx context.Context, targets []*scanner.Target) ([]types.Finding, error) {
	var findings []types.Finding
	for _, t := range targets {
		if ctx.Err() != nil {
			return findings, ctx.Err()
		}
		if Skipped(t.RelPath) {
			continue
		}
		content, err := t.Read()
		if err != nil || isBinary(content) {
			continue
		}
		findings = append(findings, s.ScanContent(t.RelPath, string(content))...)
	}
	return findings, nil
}

// ScanContent applies every secret rule to one file.
func (s *Scanner) ScanContent(relPath, content string) []types.Finding {
	lines := pattern.SplitLines(content)
	var findings []types.Finding
	for _, rule := range s.rules {
		if !rule.Matchable() || !rule.AppliesTo(relPath, "") {
			continue
		}
		for _, hit := range pattern.FindAll(rule, content) {
			if pattern.IsCommentLine(pattern.LineText(lines, hit.Line)) {
				continue
			}
			if hit.Secret && pattern.IsPlaceholder(hit.Value) {
				continue
			}
			findings = append(findings, pattern.NewFinding(rule, relPath, lines, hit))
		}
	}
	if s.decode {
		findings = append(findings, s.scanBlobs(relPath, content, lines)...)
	}
	return findings
}

// scanBlobs rescans decoded base64/hex runs. Findings point at the line of
// the encoded run and carry no snippet, since the line holds the encoded secret.
func (s *Scanner) scanBlobs(relPath, content string, lines []string) []types.Finding {
	var findings []types.Finding
	for _, blob := range pattern.DecodeBlobs(content) {
		if pattern.IsCommentLine(pattern.LineText(lines, blob.Line)) {
			continue
		}
		for _, rule := range s.rules {
			if !rule.Matchable() || !rule.AppliesTo(relPath, "") {
				continue
			}
			for _, hit := range pattern.FindAll(rule, blob.Text) {
				if hit.Secret && pattern.IsPlaceholder(hit.Value) {
					continue
				}
				f := pattern.NewFinding(rule, relPath, nil, hit)
				f.Message += " (" + blob.Encoding + "-encoded)"
				f.Line, f.Column, f.EndLine, f.EndColumn = blob.Line, 0, 0, 0
				f.Snippet = ""
				f.Metadata = map[string]string{"encoding": blob.Encoding}
				findings = append(findings, f)
			}
		}
	}
	return findings
}

// isBinary applies the NUL-byte heuristic to the first 8 KiB.
func isBinary(content []byte) bool {
	head := content[:min(len(content), 8000)]
	return bytes.IndexByte(head, 0) >= 0
}
