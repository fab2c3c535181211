package fix

import (
	"context"
	"strings"

	"github.com/garagon/tatu/internal/types"
)

const prototypePollutionSuggestion = `Reject dangerous keys before merging user input:

  const BLOCKED = new Set(["__proto__", "constructor", "prototype"]);
  function safeMerge(target, source) {
    for (const key of Object.keys(source)) {
      if (BLOCKED.has(key)) continue;
      target[key] = source[key];
    }
    return target;
  }

Or build lookup objects with Object.create(null) and validate payloads with a schema.`

// prototypePollution only suggests; merging semantics are application
// specific, so nothing is rewritten.
func (e *Engine) prototypePollution(_ context.Context, findings []types.Finding) []Result {
	var results []Result
	for _, f := range findings {
		if !strings.Contains(f.RuleID, "prototype-pollution") {
			continue
		}
		results = append(results, Result{
			Success:    true,
			File:       f.FilePath,
			Message:    "review " + f.Location() + " manually",
			Suggestion: prototypePollutionSuggestion,
		})
	}
	return results
}
