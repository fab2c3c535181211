// Package baseline persists finding fingerprints from one scan so a later
// scan can report which findings are new and which were fixed.
package baseline

import (
	"cmp"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/garagon/tatu/internal/types"
)

// FormatVersion is written to every baseline file.
const FormatVersion = 1

// Entry describes one finding recorded in a baseline.
type Entry struct {
	Rule     string         `json:"rule"`
	File     string         `json:"file"`
	Line     int            `json:"line,omitempty"`
	Severity types.Severity `json:"severity"`
	Message  string         `json:"message"`
}

// Baseline maps fingerprints to the findings they were computed from.
type Baseline struct {
	Version   int              `json:"version"`
	ScanID    string           `json:"scan_id,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
	Entries   map[string]Entry `json:"fingerprints"`
}

// FromResult records every finding of result.
func FromResult(result *types.ScanResult) *Baseline {
	b := &Baseline{
		Version:   FormatVersion,
		ScanID:    result.ScanID,
		CreatedAt: result.Timestamp.UTC(),
		Entries:   make(map[string]Entry, len(result.Findings)),
	}
	for _, f := range result.Findings {
		b.Entries[types.Fingerprint(f)] = Entry{
			Rule:     f.RuleID,
			File:     f.FilePath,
			Line:     f.Line,
			Severity: f.Severity,
			Message:  f.Message,
		}
	}
	return b
}

// Load reads a baseline file. A missing file yields an empty baseline, so
// the first run against a new path reports every finding as new. Symlinks
// are rejected.
func Load(path string) (*Baseline, error) {
	empty := &Baseline{Version: FormatVersion, Entries: map[string]Entry{}}
	info, err := os.Lstat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return empty, nil
		}
		return nil, err
	}
	if info.Mode()&os.ModeSymlink != 0 {
		return nil, fmt.Errorf("baseline file is a symlink (rejected): %s", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var b Baseline
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("parsing baseline %s: %w", path, err)
	}
	if b.Version != FormatVersion {
		return nil, fmt.Errorf("baseline %s: unsupported version %d", path, b.Version)
	}
	if b.Entries == nil {
		b.Entries = map[string]Entry{}
	}
	return &b, nil
}

// Save writes the baseline, creating parent directories as needed. Files
// are written owner-only; symlinks are rejected.
func (b *Baseline) Save(path string) error {
	if info, err := os.Lstat(path); err == nil && info.Mode()&os.ModeSymlink != 0 {
		return fmt.Errorf("baseline file is a symlink (rejected): %s", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o600)
}

// Diff is the outcome of comparing findings against a baseline.
type Diff struct {
	New       []types.Finding
	Fixed     []Entry
	Unchanged int
}

// Compare splits findings into new and unchanged, and lists baseline
// entries that no longer occur as fixed. A finding whose line moved
// counts as both new and fixed.
func (b *Baseline) Compare(findings []types.Finding) Diff {
	var d Diff
	seen := make(map[string]bool, len(findings))
	for _, f := range findings {
		fp := types.Fingerprint(f)
		seen[fp] = true
		if _, ok := b.Entries[fp]; ok {
			d.Unchanged++
			continue
		}
		d.New = append(d.New, f)
	}
	for fp, e := range b.Entries {
		if !seen[fp] {
			d.Fixed = append(d.Fixed, e)
		}
	}
	slices.SortFunc(d.Fixed, func(a, b Entry) int {
		return cmp.Or(
			cmp.Compare(a.File, b.File),
			cmp.Compare(a.Line, b.Line),
			cmp.Compare(a.Rule, b.Rule),
		)
	})
	return d
}
