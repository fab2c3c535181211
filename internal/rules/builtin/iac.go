package builtin

import (
	"github.com/garagon/tatu/internal/rules"
	"github.com/garagon/tatu/internal/types"
)

// Infrastructure file kinds produced by the IaC content sniff. IaC rules use
// them as their language allowlist.
const (
	KindTerraform      = "terraform"
	KindCloudFormation = "cloudformation"
	KindKubernetes     = "kubernetes"
	KindAnsible        = "ansible"
	KindCompose        = "compose"
	KindHelm           = "helm"
)

var iacRules = []rules.Rule{
	{
		ID:        "public-bucket-acl",
		Title:     "Public storage bucket",
		Severity:  types.SeverityHigh,
		Pattern:   `acl\s*=\s*"public-read(?:-write)?"|AccessControl["']?\s*:\s*["']?PublicRead(?:Write)?|block_public_acls\s*=\s*false`,
		Message:   "Storage bucket grants public access",
		CWE:       "CWE-732",
		OWASP:     "A01:2021",
		Fix:       "Use a private ACL and enable the public access block.",
		Languages: []string{KindTerraform, KindCloudFormation},
	},
	{
		ID:        "open-security-group",
		Title:     "Security group open to the internet",
		Severity:  types.SeverityCritical,
		Pattern:   `cidr_blocks\s*=\s*\[[^\]]*"0\.0\.0\.0/0"|CidrIp["']?\s*:\s*["']?0\.0\.0\.0/0|ipv6_cidr_blocks\s*=\s*\[[^\]]*"::/0"|CidrIpv6["']?\s*:\s*["']?::/0`,
		Message:   "Ingress allowed from any address",
		CWE:       "CWE-284",
		OWASP:     "A01:2021",
		Fix:       "Restrict the CIDR range to known networks.",
		Languages: []string{KindTerraform, KindCloudFormation},
	},
	{
		ID:        "public-database",
		Title:     "Publicly accessible database",
		Severity:  types.SeverityCritical,
		Pattern:   `publicly_accessible\s*=\s*true|PubliclyAccessible["']?\s*:\s*["']?true`,
		Message:   "Database instance is publicly accessible",
		CWE:       "CWE-284",
		OWASP:     "A01:2021",
		Fix:       "Set publicly_accessible to false and reach the database through a private network.",
		Languages: []string{KindTerraform, KindCloudFormation},
	},
	{
		ID:        "unencrypted-storage",
		Title:     "Unencrypted storage",
		Severity:  types.SeverityHigh,
		Pattern:   `\bencrypted\s*=\s*false|storage_encrypted\s*=\s*false|StorageEncrypted["']?\s*:\s*["']?false|\bEncrypted["']?\s*:\s*["']?false`,
		Message:   "Storage encryption disabled",
		CWE:       "CWE-311",
		OWASP:     "A02:2021",
		Fix:       "Enable encryption at rest.",
		Languages: []string{KindTerraform, KindCloudFormation},
	},
	{
		ID:        "privileged-container",
		Title:     "Privileged container",
		Severity:  types.SeverityCritical,
		Pattern:   `\bprivileged["']?\s*:\s*true|\bprivileged\s*=\s*true`,
		Message:   "Container runs in privileged mode",
		CWE:       "CWE-250",
		OWASP:     "A05:2021",
		Fix:       "Remove privileged mode and grant only the capabilities the workload needs.",
		Languages: []string{KindKubernetes, KindCompose, KindHelm, KindTerraform},
	},
	{
		ID:        "host-namespace",
		Title:     "Host namespace shared",
		Severity:  types.SeverityHigh,
		Pattern:   `\bhost(?:Network|PID|IPC)\s*:\s*true|\bnetwork_mode\s*:\s*["']?host\b|\bpid\s*:\s*["']?host\b`,
		Message:   "Workload shares a host namespace",
		CWE:       "CWE-668",
		OWASP:     "A05:2021",
		Fix:       "Do not share host network, PID or IPC namespaces.",
		Languages: []string{KindKubernetes, KindCompose, KindHelm},
	},
	{
		ID:        "run-as-root",
		Title:     "Container runs as root",
		Severity:  types.SeverityHigh,
		Pattern:   `\brunAsUser\s*:\s*0\b|\brunAsNonRoot\s*:\s*false`,
		Message:   "Container explicitly runs as root",
		CWE:       "CWE-250",
		OWASP:     "A05:2021",
		Fix:       "Set runAsNonRoot: true and a non-zero runAsUser.",
		Languages: []string{KindKubernetes, KindHelm},
	},
	{
		ID:        "privilege-escalation",
		Title:     "Privilege escalation allowed",
		Severity:  types.SeverityHigh,
		Pattern:   `\ballowPrivilegeEscalation\s*:\s*true`,
		Message:   "Container allows privilege escalation",
		CWE:       "CWE-269",
		OWASP:     "A05:2021",
		Fix:       "Set allowPrivilegeEscalation: false.",
		Languages: []string{KindKubernetes, KindHelm},
	},
	{
		ID:       "plaintext-credential",
		Title:    "Plaintext credential in infrastructure code",
		Severity: types.SeverityHigh,
		Pattern:  `(?i)\b(?:password|passwd|secret|secret_key|access_key|api_key|token)["']?\s*[:=]\s*["'](?P<secret>[^"'\s$\{]{4,})["']`,
		Message:  "Credential stored in plaintext",
		CWE:      "CWE-798",
		OWASP:    "A07:2021",
		Fix:      "Reference a secret store (Vault, SSM, Kubernetes Secret) instead of inlining the value.",
	},
	{
		ID:        "latest-image-tag",
		Title:     "Image uses latest tag",
		Severity:  types.SeverityMedium,
		Pattern:   `\bimage\s*[:=]\s*["']?[A-Za-z0-9./_-]+:latest\b`,
		Message:   "Container image pinned to the mutable latest tag",
		CWE:       "CWE-1104",
		OWASP:     "A06:2021",
		Fix:       "Pin images to a version tag or digest.",
		Languages: []string{KindKubernetes, KindCompose, KindHelm, KindTerraform},
	},
	{
		ID:        "tls-validation-disabled",
		Title:     "TLS validation disabled",
		Severity:  types.SeverityMedium,
		Pattern:   `\bvalidate_certs\s*:\s*(?:no|false|False)\b|\binsecure_skip_tls_verify\s*[:=]\s*true|\binsecure-skip-tls-verify\s*:\s*true`,
		Message:   "Certificate validation disabled",
		CWE:       "CWE-295",
		OWASP:     "A07:2021",
		Fix:       "Keep certificate validation enabled.",
		Languages: []string{KindAnsible, KindKubernetes, KindTerraform},
	},
}

// Structural checks run against parsed Kubernetes documents.
var kubernetesRules = []rules.Rule{
	{
		ID:        "k8s-missing-security-context",
		Title:     "Missing security context",
		Severity:  types.SeverityMedium,
		Message:   "Workload defines no securityContext",
		CWE:       "CWE-250",
		OWASP:     "A05:2021",
		Fix:       "Add a pod or container securityContext with runAsNonRoot and readOnlyRootFilesystem.",
		Languages: []string{KindKubernetes},
	},
	{
		ID:        "k8s-missing-probes",
		Title:     "Missing health probes",
		Severity:  types.SeverityLow,
		Message:   "Workload defines neither readinessProbe nor livenessProbe",
		CWE:       "CWE-754",
		Fix:       "Add readiness and liveness probes to each container.",
		Languages: []string{KindKubernetes},
	},
	{
		ID:        "k8s-namespace-network-policy",
		Title:     "Namespace network policy",
		Severity:  types.SeverityInfo,
		Message:   "Namespace declared; make sure a default-deny NetworkPolicy covers it",
		CWE:       "CWE-923",
		Fix:       "Add a default-deny NetworkPolicy to the namespace.",
		Languages: []string{KindKubernetes},
	},
}
