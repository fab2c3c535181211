package baseline_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/garagon/tatu/internal/baseline"
	"github.com/garagon/tatu/internal/types"
	"github.com/stretchr/testify/require"
)

func result(findings ...types.Finding) *types.ScanResult {
	return &types.ScanResult{ScanID: "scan-1", Timestamp: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC), Findings: findings}
}

var (
	sqli  = types.Finding{RuleID: "sql-injection", FilePath: "src/db.js", Line: 7, Severity: types.SeverityHigh, Message: "Query built from request input"}
	key   = types.Finding{RuleID: "aws-access-key", FilePath: "src/config.js", Line: 2, Severity: types.SeverityCritical, Message: "AWS access key ID found: AKIA****MPLE"}
	image = types.Finding{RuleID: "docker-unpinned-image", FilePath: "Dockerfile", Line: 1, Severity: types.SeverityMedium, Message: "Base image node has no tag or uses latest"}
)

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "baseline.json")
	require.NoError(t, baseline.FromResult(result(sqli, key)).Save(path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	b, err := baseline.Load(path)
	require.NoError(t, err)
	require.Equal(t, baseline.FormatVersion, b.Version)
	require.Equal(t, "scan-1", b.ScanID)
	require.Len(t, b.Entries, 2)
	e, ok := b.Entries[types.Fingerprint(key)]
	require.True(t, ok)
	require.Equal(t, "aws-access-key", e.Rule)
	require.Equal(t, types.SeverityCritical, e.Severity)
}

func TestLoadMissingIsEmpty(t *testing.T) {
	b, err := baseline.Load(filepath.Join(t.TempDir(), "none.json"))
	require.NoError(t, err)
	require.Empty(t, b.Entries)

	d := b.Compare([]types.Finding{sqli})
	require.Len(t, d.New, 1)
	require.Empty(t, d.Fixed)
}

func TestLoadRejectsBadFiles(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{not json"), 0o600))
	_, err := baseline.Load(bad)
	require.Error(t, err)

	future := filepath.Join(dir, "future.json")
	require.NoError(t, os.WriteFile(future, []byte(`{"version": 9, "fingerprints": {}}`), 0o600))
	_, err = baseline.Load(future)
	require.ErrorContains(t, err, "unsupported version")

	link := filepath.Join(dir, "link.json")
	require.NoError(t, os.Symlink(future, link))
	_, err = baseline.Load(link)
	require.ErrorContains(t, err, "symlink")
	require.Error(t, baseline.FromResult(result()).Save(link))
}

func TestCompare(t *testing.T) {
	b := baseline.FromResult(result(sqli, key))

	moved := sqli
	moved.Line = 9
	d := b.Compare([]types.Finding{key, moved, image})

	require.Equal(t, 1, d.Unchanged)
	require.Equal(t, []types.Finding{moved, image}, d.New)
	require.Len(t, d.Fixed, 1)
	require.Equal(t, "src/db.js", d.Fixed[0].File)
	require.Equal(t, 7, d.Fixed[0].Line)
}

func TestCompareFixedSorted(t *testing.T) {
	b := baseline.FromResult(result(sqli, key, image))
	d := b.Compare(nil)
	require.Zero(t, d.Unchanged)
	require.Empty(t, d.New)
	require.Len(t, d.Fixed, 3)
	require.Equal(t, []string{"Dockerfile", "src/config.js", "src/db.js"},
		[]string{d.Fixed[0].File, d.Fixed[1].File, d.Fixed[2].File})
}
