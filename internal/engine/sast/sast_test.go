package sast_test

import (
	"context"
	"testing"

	"github.com/garagon/tatu/internal/engine/sast"
	"github.com/garagon/tatu/internal/rules"
	"github.com/garagon/tatu/internal/rules/builtin"
	"github.com/garagon/tatu/internal/scanner"
	"github.com/garagon/tatu/internal/types"
	"github.com/stretchr/testify/require"
)

func newScanner() *sast.Scanner {
	return sast.New(rules.MustCompileAll(builtin.SAST()))
}

func analyze(t *testing.T, files map[string]string) []types.Finding {
	t.Helper()
	var targets []*scanner.Target
	for rel, content := range files {
		targets = append(targets, &scanner.Target{RelPath: rel, Content: []byte(content)})
	}
	findings, err := newScanner().Analyze(context.Background(), targets)
	require.NoError(t, err)
	return findings
}

type hit struct {
	rule string
	line int
}

func hits(findings []types.Finding) []hit {
	out := make([]hit, 0, len(findings))
	for _, f := range findings {
		out = append(out, hit{f.RuleID, f.Line})
	}
	return out
}

const handlerJS = `const q = "SELECT * FROM users WHERE id = " + req.params.id;
exec("ls " + dir);
el.innerHTML = userInput;
// eval(payload);
console.log(q);
`

func TestJavaScriptRules(t *testing.T) {
	findings := analyze(t, map[string]string{"src/handler.js": handlerJS})
	require.ElementsMatch(t, []hit{
		{"sql-injection", 1},
		{"command-injection", 2},
		{"xss-dom-sink", 3},
		{"debug-statement", 5},
	}, hits(findings))

	for _, f := range findings {
		require.Equal(t, rules.ScannerSAST, f.Scanner)
		require.Equal(t, "javascript", f.Metadata["language"])
		if f.RuleID == "sql-injection" {
			require.Equal(t, types.SeverityCritical, f.Severity)
			require.Equal(t, 11, f.Column)
			require.Equal(t, "CWE-89", f.CWE)
		}
	}
}

func TestPythonRulesAndLanguageFilter(t *testing.T) {
	src := `import hashlib
cursor.execute("SELECT * FROM t WHERE id = %s" % uid)
digest = hashlib.md5(data).hexdigest()
requests.get(url, verify=False)
el.innerHTML = "not javascript"
`
	findings := analyze(t, map[string]string{"app/views.py": src})
	require.ElementsMatch(t, []hit{
		{"sql-injection", 2},
		{"weak-hash", 3},
		{"tls-verification-disabled", 4},
	}, hits(findings))
}

func TestUnknownLanguageSkipped(t *testing.T) {
	require.Empty(t, analyze(t, map[string]string{
		"notes.txt":  handlerJS,
		"README.md":  handlerJS,
		"Makefile":   handlerJS,
		"styles.css": handlerJS,
	}))
	require.Equal(t, "typescript", sast.Language("web/App.TSX"))
	require.Equal(t, "", sast.Language("notes.txt"))
}

func TestTestPathsSuppressLowSeverityOnly(t *testing.T) {
	src := "const id = Math.random();\neval(code);\n"
	findings := analyze(t, map[string]string{"src/__tests__/app.test.js": src})
	require.Equal(t, []hit{{"eval-usage", 2}}, hits(findings))

	findings = analyze(t, map[string]string{"src/app.js": src})
	require.ElementsMatch(t, []hit{{"insecure-random", 1}, {"eval-usage", 2}}, hits(findings))
}

func TestHardcodedIPExcludesLoopback(t *testing.T) {
	src := "const upstream = \"10.0.0.12\";\nconst local = \"127.0.0.1\";\n"
	findings := analyze(t, map[string]string{"src/net.ts": src})
	require.Equal(t, []hit{{"hardcoded-ip", 1}}, hits(findings))
}

func TestDeterministic(t *testing.T) {
	files := map[string]string{"src/handler.js": handlerJS}
	first := analyze(t, files)
	for range 3 {
		require.Equal(t, first, analyze(t, files))
	}
}

func TestCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newScanner().Analyze(ctx, []*scanner.Target{{RelPath: "a.js", Content: []byte(handlerJS)}})
	require.ErrorIs(t, err, context.Canceled)
}
