package meta

import (
	"math"

	"github.com/garagon/tatu/internal/types"
)

// Scanner multipliers for risk scoring. Leaked credentials weigh most.
var scannerMultiplier = map[string]float64{
	"secrets":      1.3,
	"sast":         1.2,
	"iac":          1.2,
	"dependencies": 1.1,
	"docker":       1.0,
}

// severityBase maps severity to base score points.
var severityBase = map[types.Severity]float64{
	types.SeverityCritical: 40,
	types.SeverityHigh:     25,
	types.SeverityMedium:   15,
	types.SeverityLow:      8,
	types.SeverityInfo:     3,
}

// ScoreFinding returns the risk points (0-100) of a single finding.
func ScoreFinding(f types.Finding) float64 {
	mult := scannerMultiplier[f.Scanner]
	if mult == 0 {
		mult = 1.0
	}
	return math.Min(severityBase[f.Severity]*mult, 100)
}

// RiskScore combines per-finding points into a run score (0-100). Each
// finding closes part of the remaining gap to 100, so the score grows with
// the number of findings but never exceeds the cap.
func RiskScore(findings []types.Finding) int {
	remaining := 1.0
	for _, f := range findings {
		remaining *= 1 - ScoreFinding(f)/100
	}
	return int(math.Round((1 - remaining) * 100))
}
