// Package builtin holds the built-in rule tables, one slice per scanner
// family. Tables are data: adding a rule never touches scanner control flow.
package builtin

import (
	"slices"

	"github.com/garagon/tatu/internal/rules"
)

// Secrets returns the secret-detection table.
func Secrets() []rules.Rule { return tag(rules.ScannerSecrets, secretRules) }

// SAST returns the source-pattern table.
func SAST() []rules.Rule { return tag(rules.ScannerSAST, sastRules) }

// IaC returns the infrastructure-as-code pattern table plus the
// structural Kubernetes checks.
func IaC() []rules.Rule {
	return append(tag(rules.ScannerIaC, iacRules), tag(rules.ScannerIaC, kubernetesRules)...)
}

// Kubernetes returns only the structural Kubernetes checks.
func Kubernetes() []rules.Rule { return tag(rules.ScannerIaC, kubernetesRules) }

// Docker returns the Dockerfile check metadata.
func Docker() []rules.Rule { return tag(rules.ScannerDocker, dockerRules) }

// Dependencies returns the dependency advisory rule metadata.
func Dependencies() []rules.Rule { return tag(rules.ScannerDeps, dependencyRules) }

// All returns every built-in rule in scanner order.
func All() []rules.Rule {
	var all []rules.Rule
	all = append(all, Secrets()...)
	all = append(all, SAST()...)
	all = append(all, Dependencies()...)
	all = append(all, IaC()...)
	all = append(all, Docker()...)
	return all
}

// Lookup finds a built-in rule by ID.
func Lookup(id string) (rules.Rule, bool) {
	for _, r := range All() {
		if r.ID == id {
			return r, true
		}
	}
	return rules.Rule{}, false
}

// tag returns a copy of table with Scanner set, so callers can never
// mutate the package-level slices.
func tag(scanner string, table []rules.Rule) []rules.Rule {
	out := slices.Clone(table)
	for i := range out {
		out[i].Scanner = scanner
	}
	return out
}
