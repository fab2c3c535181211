package commands

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/garagon/tatu"
)

func TestExplainKnownRule(t *testing.T) {
	stdout, _, err := execute(t, "explain", "sql-injection", "--no-color")
	require.NoError(t, err)

	require.Contains(t, stdout, "sql-injection")
	require.Contains(t, stdout, "CRITICAL")
	require.Contains(t, stdout, "sast")
	require.Contains(t, stdout, "CWE-89")
	require.Contains(t, stdout, "Pattern:")
	require.Contains(t, stdout, "Fix:")
	require.NotContains(t, stdout, "\033[")
}

func TestExplainIsCaseInsensitive(t *testing.T) {
	stdout, _, err := execute(t, "explain", "Docker-Root-User", "--no-color")
	require.NoError(t, err)
	require.Contains(t, stdout, "docker-root-user")
	require.Contains(t, stdout, "structural check")
}

func TestExplainJSON(t *testing.T) {
	stdout, _, err := execute(t, "explain", "aws-access-key", "--format", "json")
	require.NoError(t, err)

	var info tatu.RuleDetail
	require.NoError(t, json.Unmarshal([]byte(stdout), &info))
	require.Equal(t, "aws-access-key", info.ID)
	require.Equal(t, tatu.SeverityCritical, info.Severity)
	require.Equal(t, tatu.ScannerSecrets, info.Scanner)
	require.NotEmpty(t, info.Pattern)
}

func TestExplainNotFound(t *testing.T) {
	_, _, err := execute(t, "explain", "nonexistent-999")
	require.Error(t, err)
	require.Contains(t, err.Error(), "not found")
}
