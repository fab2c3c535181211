package output

import (
	"encoding/json"
	"io"

	"github.com/garagon/tatu/internal/scanner"
	"github.com/garagon/tatu/internal/types"
)

// ToolVersion is the tatu version reported in SARIF output.
var ToolVersion = "dev"

const (
	sarifSchema    = "https://docs.oasis-open.org/sarif/sarif/v2.1.0/sarif-schema-2.1.0.json"
	sarifVersion   = "2.1.0"
	informationURI = "https://github.com/garagon/tatu"
	fingerprintKey = "tatu/v1"
)

// SARIFFormatter outputs findings in SARIF 2.1.0 format for code scanning UIs.
type SARIFFormatter struct{}

type sarifLog struct {
	Schema  string     `json:"$schema"`
	Version string     `json:"version"`
	Runs    []sarifRun `json:"runs"`
}

type sarifRun struct {
	Tool       sarifTool      `json:"tool"`
	Results    []sarifResult  `json:"results"`
	Properties map[string]any `json:"properties,omitempty"`
}

type sarifTool struct {
	Driver sarifDriver `json:"driver"`
}

type sarifDriver struct {
	Name           string      `json:"name"`
	Version        string      `json:"version"`
	InformationURI string      `json:"informationUri"`
	Rules          []sarifRule `json:"rules"`
}

type sarifRule struct {
	ID               string              `json:"id"`
	Name             string              `json:"name,omitempty"`
	ShortDescription sarifMessage        `json:"shortDescription"`
	Help             *sarifMessage       `json:"help,omitempty"`
	DefaultConfig    sarifDefaultConfig  `json:"defaultConfiguration"`
	Properties       sarifRuleProperties `json:"properties"`
}

type sarifDefaultConfig struct {
	Level string `json:"level"`
}

type sarifRuleProperties struct {
	Tags []string `json:"tags,omitempty"`
}

type sarifMessage struct {
	Text string `json:"text"`
}

type sarifResult struct {
	RuleID       string            `json:"ruleId"`
	RuleIndex    int               `json:"ruleIndex"`
	Level        string            `json:"level"`
	Message      sarifMessage      `json:"message"`
	Locations    []sarifLocation   `json:"locations"`
	Fingerprints map[string]string `json:"fingerprints"`
}

type sarifLocation struct {
	PhysicalLocation sarifPhysicalLocation `json:"physicalLocation"`
}

type sarifPhysicalLocation struct {
	ArtifactLocation sarifArtifactLocation `json:"artifactLocation"`
	Region           sarifRegion           `json:"region"`
}

type sarifArtifactLocation struct {
	URI string `json:"uri"`
}

type sarifRegion struct {
	StartLine   int `json:"startLine"`
	StartColumn int `json:"startColumn"`
	EndLine     int `json:"endLine"`
	EndColumn   int `json:"endColumn,omitempty"`
}

func (f *SARIFFormatter) Format(w io.Writer, result *scanner.ScanResult) error {
	// one catalog entry per distinct rule id, in first-seen order
	ruleIndex := map[string]int{}
	rules := []sarifRule{}
	for _, finding := range result.Findings {
		if _, ok := ruleIndex[finding.RuleID]; ok {
			continue
		}
		ruleIndex[finding.RuleID] = len(rules)
		rules = append(rules, catalogEntry(finding))
	}

	results := make([]sarifResult, 0, len(result.Findings))
	for _, finding := range result.Findings {
		results = append(results, sarifResult{
			RuleID:       finding.RuleID,
			RuleIndex:    ruleIndex[finding.RuleID],
			Level:        SARIFLevel(finding.Severity),
			Message:      sarifMessage{Text: finding.Message},
			Locations:    []sarifLocation{{PhysicalLocation: physicalLocation(finding)}},
			Fingerprints: map[string]string{fingerprintKey: types.Fingerprint(finding)},
		})
	}

	log := sarifLog{
		Schema:  sarifSchema,
		Version: sarifVersion,
		Runs: []sarifRun{{
			Tool: sarifTool{Driver: sarifDriver{
				Name:           "tatu",
				Version:        ToolVersion,
				InformationURI: informationURI,
				Rules:          rules,
			}},
			Results: results,
			Properties: map[string]any{
				"scanId":     result.ScanID,
				"riskScore":  result.Score,
				"durationMs": result.Duration.Milliseconds(),
			},
		}},
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(log)
}

func catalogEntry(f types.Finding) sarifRule {
	name := f.Title
	if name == "" {
		name = f.RuleID
	}
	rule := sarifRule{
		ID:               f.RuleID,
		Name:             name,
		ShortDescription: sarifMessage{Text: name},
		DefaultConfig:    sarifDefaultConfig{Level: SARIFLevel(f.Severity)},
		Properties:       sarifRuleProperties{Tags: ruleTags(f)},
	}
	if f.Fix != "" {
		rule.Help = &sarifMessage{Text: f.Fix}
	}
	return rule
}

func ruleTags(f types.Finding) []string {
	var tags []string
	for _, t := range []string{f.Scanner, f.CWE, f.OWASP} {
		if t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

func physicalLocation(f types.Finding) sarifPhysicalLocation {
	start := max(f.Line, 1)
	region := sarifRegion{
		StartLine:   start,
		StartColumn: max(f.Column, 1),
		EndLine:     start,
	}
	region.EndColumn = region.StartColumn
	if f.EndLine >= start {
		region.EndLine = f.EndLine
	}
	if f.EndColumn > 0 && (region.EndLine > start || f.EndColumn >= region.StartColumn) {
		region.EndColumn = f.EndColumn
	}
	return sarifPhysicalLocation{
		ArtifactLocation: sarifArtifactLocation{URI: f.FilePath},
		Region:           region,
	}
}

// SARIFLevel maps a severity onto the SARIF result level.
func SARIFLevel(sev types.Severity) string {
	switch sev {
	case types.SeverityCritical, types.SeverityHigh:
		return "error"
	case types.SeverityMedium:
		return "warning"
	default:
		return "note"
	}
}
