// Package scanner orchestrates file discovery and concurrent execution of the
// domain scanners, then merges, filters, sorts and summarises their findings.
package scanner

import (
	"context"

	"github.com/garagon/tatu/internal/types"
)

// Analyzer is the interface that all scanners implement: take the discovered
// files, return findings. Implementations must not mutate targets.
type Analyzer interface {
	Name() string
	Analyze(ctx context.Context, targets []*Target) ([]types.Finding, error)
}

// AnalyzerFunc adapts a plain function to the Analyzer interface.
type AnalyzerFunc struct {
	ID string
	Fn func(ctx context.Context, targets []*Target) ([]types.Finding, error)
}

func (a AnalyzerFunc) Name() string { return a.ID }

func (a AnalyzerFunc) Analyze(ctx context.Context, targets []*Target) ([]types.Finding, error) {
	return a.Fn(ctx, targets)
}

// RuleCounter is implemented by analyzers that report how many rules they loaded.
type RuleCounter interface {
	RuleCount() int
}
