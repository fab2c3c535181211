package builtin

import (
	"github.com/garagon/tatu/internal/rules"
	"github.com/garagon/tatu/internal/types"
)

// Severity here is a default; each advisory carries its own.
var dependencyRules = []rules.Rule{
	{
		ID:       "vulnerable-dependency",
		Title:    "Vulnerable dependency",
		Severity: types.SeverityHigh,
		Message:  "Dependency version falls in a known vulnerable range",
		CWE:      "CWE-1395",
		OWASP:    "A06:2021",
		Fix:      "Upgrade to the fixed version.",
	},
}
