// Package types defines shared data structures (Finding, Severity, ScanResult)
// used across scanner, engine, fix and output packages to prevent import cycles.
package types

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Severity represents the severity level of a finding.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityLow
	SeverityMedium
	SeverityHigh
	SeverityCritical
)

// Severities lists every level from most to least severe.
var Severities = []Severity{
	SeverityCritical,
	SeverityHigh,
	SeverityMedium,
	SeverityLow,
	SeverityInfo,
}

func (s Severity) String() string {
	switch s {
	case SeverityCritical:
		return "CRITICAL"
	case SeverityHigh:
		return "HIGH"
	case SeverityMedium:
		return "MEDIUM"
	case SeverityLow:
		return "LOW"
	case SeverityInfo:
		return "INFO"
	default:
		return "UNKNOWN"
	}
}

// Valid reports whether s is one of the five defined levels.
func (s Severity) Valid() bool {
	return s >= SeverityInfo && s <= SeverityCritical
}

// MarshalText encodes the severity in its lower-case wire form.
func (s Severity) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid severity %d", int(s))
	}
	return []byte(strings.ToLower(s.String())), nil
}

// UnmarshalText accepts any case of the five level names.
func (s *Severity) UnmarshalText(b []byte) error {
	sev, err := ParseSeverity(string(b))
	if err != nil {
		return err
	}
	*s = sev
	return nil
}

// ParseSeverity converts a string to a Severity level.
func ParseSeverity(s string) (Severity, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "CRITICAL":
		return SeverityCritical, nil
	case "HIGH":
		return SeverityHigh, nil
	case "MEDIUM":
		return SeverityMedium, nil
	case "LOW":
		return SeverityLow, nil
	case "INFO":
		return SeverityInfo, nil
	default:
		return SeverityInfo, fmt.Errorf("unknown severity: %q", s)
	}
}

// Finding represents a single security finding. Scanners emit findings by
// value; later stages only ever work on copies.
type Finding struct {
	ID        string            `json:"id"`
	RuleID    string            `json:"rule"`
	Title     string            `json:"title,omitempty"`
	Severity  Severity          `json:"severity"`
	Message   string            `json:"message"`
	FilePath  string            `json:"file"`
	Line      int               `json:"line,omitempty"`
	Column    int               `json:"column,omitempty"`
	EndLine   int               `json:"endLine,omitempty"`
	EndColumn int               `json:"endColumn,omitempty"`
	Snippet   string            `json:"snippet,omitempty"`
	CWE       string            `json:"cwe,omitempty"`
	OWASP     string            `json:"owasp,omitempty"`
	Fix       string            `json:"fix,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	Scanner   string            `json:"scanner"`
}

// Location renders the finding position as file:line, or just the file when
// the finding is not line-addressable.
func (f Finding) Location() string {
	if f.Line <= 0 {
		return f.FilePath
	}
	return f.FilePath + ":" + strconv.Itoa(f.Line)
}

// Fingerprint returns a stable hash of rule, file, line and message.
func Fingerprint(f Finding) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s|%s|%d|%s", f.RuleID, filepath.ToSlash(f.FilePath), f.Line, f.Message)
	return hex.EncodeToString(h.Sum(nil))
}

// Summary counts findings per severity.
type Summary struct {
	Critical int `json:"critical"`
	High     int `json:"high"`
	Medium   int `json:"medium"`
	Low      int `json:"low"`
	Info     int `json:"info"`
	Total    int `json:"total"`
}

// Summarize buckets findings by severity.
func Summarize(findings []Finding) Summary {
	var s Summary
	for _, f := range findings {
		switch f.Severity {
		case SeverityCritical:
			s.Critical++
		case SeverityHigh:
			s.High++
		case SeverityMedium:
			s.Medium++
		case SeverityLow:
			s.Low++
		case SeverityInfo:
			s.Info++
		default:
			continue
		}
		s.Total++
	}
	return s
}

// Count returns the bucket for sev.
func (s Summary) Count(sev Severity) int {
	switch sev {
	case SeverityCritical:
		return s.Critical
	case SeverityHigh:
		return s.High
	case SeverityMedium:
		return s.Medium
	case SeverityLow:
		return s.Low
	case SeverityInfo:
		return s.Info
	default:
		return 0
	}
}

// ScanResult holds the complete results of a scan.
type ScanResult struct {
	ScanID       string        `json:"scan_id"`
	Target       string        `json:"target"`
	Timestamp    time.Time     `json:"timestamp"`
	FilesScanned int           `json:"files_scanned"`
	RulesLoaded  int           `json:"rules_loaded"`
	Findings     []Finding     `json:"findings"`
	Summary      Summary       `json:"summary"`
	Score        int           `json:"score"`
	Warnings     []string      `json:"warnings,omitempty"`
	Duration     time.Duration `json:"-"`
}

// MarshalJSON implements custom JSON marshaling so Duration serializes as milliseconds.
func (r ScanResult) MarshalJSON() ([]byte, error) {
	type Alias ScanResult
	return json.Marshal(struct {
		Alias
		DurationMS int64 `json:"duration_ms"`
	}{
		Alias:      Alias(r),
		DurationMS: r.Duration.Milliseconds(),
	})
}

// FilterBySeverity returns a copy of r keeping only findings at or above min,
// with the summary recomputed.
func FilterBySeverity(r *ScanResult, min Severity) *ScanResult {
	out := *r
	out.Findings = make([]Finding, 0, len(r.Findings))
	for _, f := range r.Findings {
		if f.Severity >= min {
			out.Findings = append(out.Findings, f)
		}
	}
	out.Summary = Summarize(out.Findings)
	return &out
}

// ExceedsThreshold reports whether any finding is at or above failOn.
func ExceedsThreshold(findings []Finding, failOn Severity) bool {
	for _, f := range findings {
		if f.Severity >= failOn {
			return true
		}
	}
	return false
}
