package output_test

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/garagon/tatu/internal/output"
	"github.com/garagon/tatu/internal/types"
	"github.com/stretchr/testify/require"
)

func sampleResult() *types.ScanResult {
	findings := []types.Finding{
		{
			RuleID: "aws-access-key", Title: "AWS access key ID", Severity: types.SeverityCritical,
			Message: "AWS access key ID found: AKIA****MPLE", FilePath: "src/config.js", Line: 2, Column: 12,
			EndLine: 2, EndColumn: 32, Snippet: "const key = 'AKIA****MPLE'", CWE: "CWE-798",
			Fix: "Rotate the key and load it from the environment.", Scanner: "secrets",
		},
		{
			RuleID: "sql-injection", Title: "SQL injection", Severity: types.SeverityHigh,
			Message: "Query built from request input", FilePath: "src/db.js", Line: 7, Column: 3,
			Snippet: "db.query('SELECT ' + req.query.id)", Fix: "Use parameterised queries.", Scanner: "sast",
		},
		{
			RuleID: "vulnerable-dependency", Title: "Vulnerable dependency", Severity: types.SeverityHigh,
			Message: "lodash@4.17.15 is affected by CVE-2021-23337", FilePath: "package.json", Line: 4, Scanner: "dependencies",
		},
		{
			RuleID: "docker-missing-healthcheck", Title: "Missing HEALTHCHECK", Severity: types.SeverityLow,
			Message: "No HEALTHCHECK instruction", FilePath: "Dockerfile", Scanner: "docker",
			Fix: "Add a HEALTHCHECK instruction.",
		},
		{
			RuleID: "sql-injection", Title: "SQL injection", Severity: types.SeverityHigh,
			Message: "Query built from request input", FilePath: "src/db.js", Line: 12, Column: 5, Scanner: "sast",
		},
	}
	return &types.ScanResult{
		ScanID:       "run-1",
		Target:       "./app",
		FilesScanned: 4,
		RulesLoaded:  59,
		Findings:     findings,
		Summary:      types.Summarize(findings),
		Score:        72,
		Duration:     1500 * time.Millisecond,
	}
}

func TestTerminalFormatterNoFindings(t *testing.T) {
	f := &output.TerminalFormatter{NoColor: true}
	var buf bytes.Buffer
	result := &types.ScanResult{FilesScanned: 5, RulesLoaded: 59, Target: "testdata/clean"}
	require.NoError(t, f.Format(&buf, result))
	out := buf.String()
	require.Contains(t, out, "No security issues found")
	require.Contains(t, out, "TATU SCAN RESULTS")
	require.Contains(t, out, "5 files scanned")
	require.Contains(t, out, "0 findings")
	require.Contains(t, out, "Target: testdata/clean")
	require.NotContains(t, out, "\033[")
}

func TestTerminalFormatterWithFindings(t *testing.T) {
	f := &output.TerminalFormatter{NoColor: true}
	var buf bytes.Buffer
	require.NoError(t, f.Format(&buf, sampleResult()))
	out := buf.String()

	require.Contains(t, out, "CRITICAL (1)")
	require.Contains(t, out, "HIGH (3)")
	require.Contains(t, out, "LOW (1)")
	require.Contains(t, out, "█")
	require.Contains(t, out, "risk score 72/100")
	require.Contains(t, out, "AKIA****MPLE")
	require.Contains(t, out, "fix: Rotate the key")
	require.Contains(t, out, "line 2")
	require.Contains(t, out, "1.50s")
	require.Contains(t, out, "TOP AFFECTED FILES")

	// low findings are compact unless verbose
	require.NotContains(t, out, "fix: Add a HEALTHCHECK")
	require.Less(t, strings.Index(out, "CRITICAL (1)"), strings.Index(out, "HIGH (3)"))
}

func TestTerminalFormatterVerbose(t *testing.T) {
	f := &output.TerminalFormatter{NoColor: true, Verbose: true}
	var buf bytes.Buffer
	require.NoError(t, f.Format(&buf, sampleResult()))
	require.Contains(t, buf.String(), "fix: Add a HEALTHCHECK")
}

func TestTerminalFormatterWarnings(t *testing.T) {
	f := &output.TerminalFormatter{NoColor: true}
	var buf bytes.Buffer
	result := &types.ScanResult{Warnings: []string{"analyzer iac failed: boom"}}
	require.NoError(t, f.Format(&buf, result))
	require.Contains(t, buf.String(), "WARNINGS")
	require.Contains(t, buf.String(), "analyzer iac failed: boom")
}

func TestJSONFormatter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&output.JSONFormatter{}).Format(&buf, sampleResult()))

	var parsed types.ScanResult
	require.NoError(t, json.Unmarshal(buf.Bytes(), &parsed))
	require.Len(t, parsed.Findings, 5)
	require.Equal(t, "aws-access-key", parsed.Findings[0].RuleID)
	require.Equal(t, types.SeverityCritical, parsed.Findings[0].Severity)
	require.Equal(t, 5, parsed.Summary.Total)
	require.Contains(t, buf.String(), `"duration_ms": 1500`)
	require.Contains(t, buf.String(), `"severity": "critical"`)
}

func TestJSONFormatterEmptyFindingsIsArray(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&output.JSONFormatter{}).Format(&buf, &types.ScanResult{}))
	require.Contains(t, buf.String(), `"findings": []`)
}

type sarifDoc struct {
	Schema  string `json:"$schema"`
	Version string `json:"version"`
	Runs    []struct {
		Tool struct {
			Driver struct {
				Name           string `json:"name"`
				Version        string `json:"version"`
				InformationURI string `json:"informationUri"`
				Rules          []struct {
					ID            string `json:"id"`
					DefaultConfig struct {
						Level string `json:"level"`
					} `json:"defaultConfiguration"`
				} `json:"rules"`
			} `json:"driver"`
		} `json:"tool"`
		Results []struct {
			RuleID    string `json:"ruleId"`
			RuleIndex int    `json:"ruleIndex"`
			Level     string `json:"level"`
			Message   struct {
				Text string `json:"text"`
			} `json:"message"`
			Locations []struct {
				PhysicalLocation struct {
					ArtifactLocation struct {
						URI string `json:"uri"`
					} `json:"artifactLocation"`
					Region struct {
						StartLine   int `json:"startLine"`
						StartColumn int `json:"startColumn"`
						EndLine     int `json:"endLine"`
						EndColumn   int `json:"endColumn"`
					} `json:"region"`
				} `json:"physicalLocation"`
			} `json:"locations"`
			Fingerprints map[string]string `json:"fingerprints"`
		} `json:"results"`
	} `json:"runs"`
}

func formatSARIF(t *testing.T, result *types.ScanResult) sarifDoc {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, (&output.SARIFFormatter{}).Format(&buf, result))
	var doc sarifDoc
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
	return doc
}

func TestSARIFFormatter(t *testing.T) {
	original := output.ToolVersion
	defer func() { output.ToolVersion = original }()
	output.ToolVersion = "1.2.3"

	result := sampleResult()
	doc := formatSARIF(t, result)

	require.Equal(t, "2.1.0", doc.Version)
	require.Contains(t, doc.Schema, "sarif-schema-2.1.0")
	require.Len(t, doc.Runs, 1)
	driver := doc.Runs[0].Tool.Driver
	require.Equal(t, "tatu", driver.Name)
	require.Equal(t, "1.2.3", driver.Version)
	require.Equal(t, "https://github.com/garagon/tatu", driver.InformationURI)

	// every distinct rule exactly once, first-seen order
	var ids []string
	for _, r := range driver.Rules {
		ids = append(ids, r.ID)
	}
	require.Equal(t, []string{"aws-access-key", "sql-injection", "vulnerable-dependency", "docker-missing-healthcheck"}, ids)
	require.Equal(t, "error", driver.Rules[0].DefaultConfig.Level)

	results := doc.Runs[0].Results
	require.Len(t, results, len(result.Findings))
	for i, r := range results {
		require.Equal(t, result.Findings[i].RuleID, r.RuleID)
		require.Equal(t, r.RuleID, driver.Rules[r.RuleIndex].ID)
		require.Equal(t, types.Fingerprint(result.Findings[i]), r.Fingerprints["tatu/v1"])
	}
	require.Equal(t, 1, results[4].RuleIndex)

	first := results[0].Locations[0].PhysicalLocation
	require.Equal(t, "src/config.js", first.ArtifactLocation.URI)
	require.Equal(t, 2, first.Region.StartLine)
	require.Equal(t, 12, first.Region.StartColumn)
	require.Equal(t, 2, first.Region.EndLine)
	require.Equal(t, 32, first.Region.EndColumn)
	require.Equal(t, "AWS access key ID found: AKIA****MPLE", results[0].Message.Text)
}

func TestSARIFRegionForFileLevelFinding(t *testing.T) {
	doc := formatSARIF(t, &types.ScanResult{Findings: []types.Finding{
		{RuleID: "docker-missing-healthcheck", Severity: types.SeverityLow, FilePath: "Dockerfile", Message: "m"},
	}})
	region := doc.Runs[0].Results[0].Locations[0].PhysicalLocation.Region
	require.Equal(t, 1, region.StartLine)
	require.Equal(t, 1, region.StartColumn)
	require.Equal(t, 1, region.EndLine)
	require.Equal(t, 1, region.EndColumn)
}

func TestSARIFRegionEndColumnDefaultsToStart(t *testing.T) {
	doc := formatSARIF(t, &types.ScanResult{Findings: []types.Finding{
		{RuleID: "sql-injection", Severity: types.SeverityHigh, FilePath: "app.js", Line: 4, Column: 9, Message: "m"},
	}})
	region := doc.Runs[0].Results[0].Locations[0].PhysicalLocation.Region
	require.Equal(t, 4, region.EndLine)
	require.Equal(t, 9, region.StartColumn)
	require.Equal(t, 9, region.EndColumn)
}

func TestSARIFLevels(t *testing.T) {
	require.Equal(t, "error", output.SARIFLevel(types.SeverityCritical))
	require.Equal(t, "error", output.SARIFLevel(types.SeverityHigh))
	require.Equal(t, "warning", output.SARIFLevel(types.SeverityMedium))
	require.Equal(t, "note", output.SARIFLevel(types.SeverityLow))
	require.Equal(t, "note", output.SARIFLevel(types.SeverityInfo))
}

func TestSARIFFormatterEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&output.SARIFFormatter{}).Format(&buf, &types.ScanResult{FilesScanned: 5}))
	require.Contains(t, buf.String(), `"results": []`)
	require.Contains(t, buf.String(), `"rules": []`)
}

func TestMarkdownFormatterNoFindings(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&output.MarkdownFormatter{}).Format(&buf, &types.ScanResult{FilesScanned: 5, RulesLoaded: 59}))
	out := buf.String()
	require.Contains(t, out, "Tatu Security Scan: no issues found")
	require.Contains(t, out, "5 files scanned")
}

func TestMarkdownFormatterWithFindings(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&output.MarkdownFormatter{}).Format(&buf, sampleResult()))
	out := buf.String()
	require.Contains(t, out, "Tatu Security Scan: 5 findings")
	require.Contains(t, out, "risk score **72/100**")
	require.Contains(t, out, "| 🔴 CRITICAL | 1 |")
	require.Contains(t, out, "<details open>")
	require.Contains(t, out, "| `aws-access-key` |")
	require.Contains(t, out, "`src/config.js:2`")
	require.Contains(t, out, "`Dockerfile`")
	require.Contains(t, out, "Top affected files")
}

func TestMarkdownEscapes(t *testing.T) {
	var buf bytes.Buffer
	result := &types.ScanResult{Findings: []types.Finding{
		{RuleID: "xss-dom-sink", Message: "sink | with <script>", Severity: types.SeverityMedium, FilePath: "a.js", Line: 1},
	}}
	result.Summary = types.Summarize(result.Findings)
	require.NoError(t, (&output.MarkdownFormatter{}).Format(&buf, result))
	out := buf.String()
	require.Contains(t, out, `sink \| with &lt;script&gt;`)
	require.NotContains(t, out, "<script>")
}

func TestHTMLFormatter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&output.HTMLFormatter{}).Format(&buf, sampleResult()))
	out := buf.String()
	require.True(t, strings.HasPrefix(out, "<!DOCTYPE html>"))
	require.Contains(t, out, "<title>tatu scan report: ./app</title>")
	require.Contains(t, out, "<table>")
	require.Contains(t, out, "<code>aws-access-key</code>")
	require.Contains(t, out, "<details open>")
	require.True(t, strings.HasSuffix(out, "</html>\n"))
}

func TestForFormat(t *testing.T) {
	for _, name := range output.Formats {
		f, err := output.ForFormat(name, true, false)
		require.NoError(t, err, name)
		require.NotNil(t, f)
	}
	f, err := output.ForFormat("MD", false, false)
	require.NoError(t, err)
	require.IsType(t, &output.MarkdownFormatter{}, f)

	_, err = output.ForFormat("xml", false, false)
	require.Error(t, err)
}
