package scanner_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/garagon/tatu/internal/scanner"
	"github.com/stretchr/testify/require"
)

func TestTargetRead(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "app.js")
	require.NoError(t, os.WriteFile(path, []byte("hello\nworld"), 0644))

	target := &scanner.Target{Path: path, RelPath: "app.js"}
	data, err := target.Read()
	require.NoError(t, err)
	require.Equal(t, "hello\nworld", string(data))
	require.Nil(t, target.Content, "Read must not cache into the target")

	inline := &scanner.Target{RelPath: "x.py", Content: []byte("inline")}
	data, err = inline.Read()
	require.NoError(t, err)
	require.Equal(t, "inline", string(data))
}

func TestTargetDirAndBase(t *testing.T) {
	target := &scanner.Target{RelPath: "services/api/package.json"}
	require.Equal(t, "services/api", target.Dir())
	require.Equal(t, "package.json", target.Base())
	require.Equal(t, "", (&scanner.Target{RelPath: "go.mod"}).Dir())
}

func TestTargetDiscovery(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "app.js", "content")
	writeFile(t, dir, "src/helper.py", "code")
	writeFile(t, dir, "image.png", "binary")
	writeFile(t, dir, ".git/HEAD", "ref")
	writeFile(t, dir, "node_modules/lodash/index.js", "x")
	writeFile(t, dir, "vendor/lib/a.go", "x")
	writeFile(t, dir, ".terraform/modules/m.tf", "x")

	td := &scanner.TargetDiscovery{}
	targets, err := td.Discover(dir)
	require.NoError(t, err)

	paths := make(map[string]bool)
	for _, target := range targets {
		paths[target.RelPath] = true
		require.False(t, filepath.IsAbs(target.RelPath))
	}
	require.True(t, paths["app.js"])
	require.True(t, paths["src/helper.py"])
	require.False(t, paths["image.png"])
	require.False(t, paths[".git/HEAD"])
	require.False(t, paths["node_modules/lodash/index.js"])
	require.False(t, paths["vendor/lib/a.go"])
	require.False(t, paths[".terraform/modules/m.tf"])
}

func TestTatuIgnore(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "keep.js", "keep")
	writeFile(t, dir, "skip.log", "skip")
	writeFile(t, dir, "generated/out.js", "skip")
	writeFile(t, dir, "deep/a/b/fixture.yaml", "skip")
	writeFile(t, dir, scanner.IgnoreFile, "# comment\n*.log\ngenerated/\n**/fixture.yaml\n")

	td := &scanner.TargetDiscovery{}
	targets, err := td.Discover(dir)
	require.NoError(t, err)

	paths := make(map[string]bool)
	for _, target := range targets {
		paths[target.RelPath] = true
	}
	require.True(t, paths["keep.js"])
	require.False(t, paths["skip.log"])
	require.False(t, paths["generated/out.js"])
	require.False(t, paths["deep/a/b/fixture.yaml"])
}

func TestIgnorePatternsFromConfig(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "docs/guide.md", "x")
	writeFile(t, dir, "main.go", "x")

	td := &scanner.TargetDiscovery{IgnorePatterns: []string{"docs/**"}}
	targets, err := td.Discover(dir)
	require.NoError(t, err)
	require.Len(t, targets, 1)
	require.Equal(t, "main.go", targets[0].RelPath)
}
