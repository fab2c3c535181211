package commands

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

type scanJSON struct {
	FilesScanned int `json:"files_scanned"`
	Findings     []struct {
		RuleID   string `json:"rule"`
		Severity string `json:"severity"`
		File     string `json:"file"`
	} `json:"findings"`
	Summary struct {
		Total int `json:"total"`
	} `json:"summary"`
}

func decodeScan(t *testing.T, data string) scanJSON {
	t.Helper()
	var out scanJSON
	require.NoError(t, json.Unmarshal([]byte(data), &out))
	return out
}

func TestScanJSON(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{"Dockerfile": dockerfile})

	stdout, _, err := execute(t, "scan", dir, "--format", "json")
	require.NoError(t, err)

	out := decodeScan(t, stdout)
	require.Equal(t, 1, out.FilesScanned)
	require.Equal(t, 3, out.Summary.Total)
	require.Len(t, out.Findings, 3)
	require.Equal(t, "high", out.Findings[0].Severity)
	require.Equal(t, "docker-root-user", out.Findings[0].RuleID)
}

func TestScanTerminal(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{"Dockerfile": dockerfile})

	stdout, _, err := execute(t, "scan", dir, "--no-color")
	require.NoError(t, err)
	require.Contains(t, stdout, "TATU SCAN RESULTS")
	require.Contains(t, stdout, "docker-root-user")
	require.NotContains(t, stdout, "\033[")
}

func TestScanUsesConfigFile(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"Dockerfile": dockerfile,
		".tatu.yml":  "format: json\nseverity: medium\n",
	})

	stdout, _, err := execute(t, "scan", dir)
	require.NoError(t, err)
	out := decodeScan(t, stdout)
	require.Len(t, out.Findings, 2, "low findings are filtered by the config severity")
}

func TestScanFlagsOverrideConfig(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"Dockerfile": dockerfile,
		".tatu.yml":  "format: json\nseverity: medium\n",
	})

	stdout, _, err := execute(t, "scan", dir, "--format", "markdown", "--severity", "low")
	require.NoError(t, err)
	require.Contains(t, stdout, "Tatu Security Scan")
	require.Contains(t, stdout, "docker-missing-healthcheck")
}

func TestScanConfigDisablesScanner(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"Dockerfile":   dockerfile,
		"package.json": packageJSON,
		".tatu.yml":    "format: json\nscanners:\n  docker: false\n",
	})

	stdout, _, err := execute(t, "scan", dir)
	require.NoError(t, err)
	out := decodeScan(t, stdout)
	require.NotEmpty(t, out.Findings)
	for _, f := range out.Findings {
		require.Equal(t, "package.json", f.File)
	}
}

func TestScanWritesOutputFile(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{"Dockerfile": dockerfile})
	report := filepath.Join(t.TempDir(), "results.sarif")

	stdout, _, err := execute(t, "scan", dir, "--format", "sarif", "--output", report)
	require.NoError(t, err)
	require.Empty(t, stdout)

	data, err := os.ReadFile(report)
	require.NoError(t, err)
	require.Contains(t, string(data), `"version": "2.1.0"`)
	require.Contains(t, string(data), "docker-root-user")
}

func TestScanFailOn(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{"Dockerfile": dockerfile})

	_, _, err := execute(t, "scan", dir, "--format", "json", "--fail-on", "high")
	require.ErrorIs(t, err, ErrThresholdExceeded)

	_, _, err = execute(t, "scan", dir, "--format", "json", "--fail-on", "critical")
	require.NoError(t, err)

	_, _, err = execute(t, "scan", dir, "--format", "json", "--fail-on", "urgent")
	require.Error(t, err)
	require.Contains(t, err.Error(), "invalid --fail-on")
}

func TestScanCIMode(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{"Dockerfile": dockerfile})

	stdout, _, err := execute(t, "scan", dir, "--ci")
	require.ErrorIs(t, err, ErrThresholdExceeded)
	require.NotContains(t, stdout, "\033[")
}

func TestScanInvalidSeverity(t *testing.T) {
	_, _, err := execute(t, "scan", t.TempDir(), "--severity", "loud")
	require.Error(t, err)
	require.Contains(t, err.Error(), "invalid --severity")
}

func TestScanMissingPath(t *testing.T) {
	_, _, err := execute(t, "scan", filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrThresholdExceeded)
}

func TestScanBaseline(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{"Dockerfile": dockerfile})
	base := filepath.Join(t.TempDir(), "baseline.json")

	_, stderr, err := execute(t, "scan", dir, "--format", "json", "--baseline", base, "--update-baseline")
	require.NoError(t, err)
	require.Contains(t, stderr, "baseline: 3 new, 0 fixed, 0 unchanged")
	_, err = os.Stat(base)
	require.NoError(t, err)

	_, stderr, err = execute(t, "scan", dir, "--format", "json", "--baseline", base, "--fail-on", "low")
	require.NoError(t, err, "known findings do not trip the threshold")
	require.Contains(t, stderr, "baseline: 0 new, 0 fixed, 3 unchanged")

	writeFiles(t, dir, map[string]string{"Dockerfile": "FROM node:20\nUSER node\nRUN npm ci\n"})
	_, stderr, err = execute(t, "scan", dir, "--format", "json", "--baseline", base)
	require.NoError(t, err)
	require.Contains(t, stderr, "2 fixed")
}

func TestScanUpdateBaselineRequiresPath(t *testing.T) {
	_, _, err := execute(t, "scan", t.TempDir(), "--update-baseline")
	require.Error(t, err)
	require.Contains(t, err.Error(), "--baseline")
}
