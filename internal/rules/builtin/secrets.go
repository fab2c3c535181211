package builtin

import (
	"github.com/garagon/tatu/internal/rules"
	"github.com/garagon/tatu/internal/types"
)

// Secret patterns capture the credential in a named group "secret" so the
// matcher can mask exactly that span.
const (
	cweHardcodedCreds = "CWE-798"
	owaspAuthFailures = "A07:2021"
	rotateFix         = "Revoke and rotate the credential, then load it from the environment or a secret manager."

	// assignmentEnd closes a key=value match: a quote, or the end of the
	// line for unquoted .env and YAML values, with an optional comment.
	assignmentEnd = `(?:["']|[ \t]*(?:#.*)?\r?$)`

	// assignmentRefs drops values that reference the environment, a
	// template or a member expression instead of holding a literal.
	assignmentRefs = `[:=][ \t]*["']?(?:\$\{?|\{\{|<|%\(|process\.env|os\.(?:environ|getenv)|getenv|ENV\[|System\.getenv)|[:=][ \t]*[A-Za-z_$][\w$]*(?:\.[A-Za-z_$][\w$]*)+[ \t]*$`
)

var secretRules = []rules.Rule{
	{
		ID:       "aws-access-key",
		Title:    "AWS access key ID",
		Severity: types.SeverityCritical,
		Pattern:  `\b(?P<secret>(?:AKIA|ABIA|ACCA|ASIA)[0-9A-Z]{16})\b`,
		Message:  "AWS access key ID found",
		CWE:      cweHardcodedCreds,
		OWASP:    owaspAuthFailures,
		Fix:      "Deactivate the key in IAM, rotate it, and use instance roles or environment credentials.",
	},
	{
		// No contextual anchor: any quoted 40-char base64 string matches.
		ID:       "aws-secret-key",
		Title:    "AWS secret access key",
		Severity: types.SeverityCritical,
		Pattern:  `["'](?P<secret>[A-Za-z0-9/+]{40})["']`,
		Message:  "Possible AWS secret access key found",
		CWE:      cweHardcodedCreds,
		OWASP:    owaspAuthFailures,
		Fix:      "Deactivate the key in IAM, rotate it, and use instance roles or environment credentials.",
	},
	{
		ID:       "github-token",
		Title:    "GitHub token",
		Severity: types.SeverityCritical,
		Pattern:  `\b(?P<secret>gh[pousr]_[A-Za-z0-9]{36,255})\b`,
		Message:  "GitHub token found",
		CWE:      cweHardcodedCreds,
		OWASP:    owaspAuthFailures,
		Fix:      rotateFix,
	},
	{
		ID:       "github-fine-grained-token",
		Title:    "GitHub fine-grained token",
		Severity: types.SeverityCritical,
		Pattern:  `\b(?P<secret>github_pat_[A-Za-z0-9_]{82})\b`,
		Message:  "GitHub fine-grained personal access token found",
		CWE:      cweHardcodedCreds,
		OWASP:    owaspAuthFailures,
		Fix:      rotateFix,
	},
	{
		ID:       "gitlab-token",
		Title:    "GitLab personal access token",
		Severity: types.SeverityCritical,
		Pattern:  `\b(?P<secret>glpat-[A-Za-z0-9_-]{20})`,
		Message:  "GitLab personal access token found",
		CWE:      cweHardcodedCreds,
		OWASP:    owaspAuthFailures,
		Fix:      rotateFix,
	},
	{
		ID:       "slack-token",
		Title:    "Slack token",
		Severity: types.SeverityHigh,
		Pattern:  `\b(?P<secret>xox[baprs]-[0-9A-Za-z-]{10,48})`,
		Message:  "Slack API token found",
		CWE:      cweHardcodedCreds,
		OWASP:    owaspAuthFailures,
		Fix:      rotateFix,
	},
	{
		ID:       "slack-webhook",
		Title:    "Slack webhook URL",
		Severity: types.SeverityHigh,
		Pattern:  `(?P<secret>https://hooks\.slack\.com/services/T[A-Za-z0-9_]+/B[A-Za-z0-9_]+/[A-Za-z0-9_]+)`,
		Message:  "Slack incoming webhook URL found",
		CWE:      cweHardcodedCreds,
		OWASP:    owaspAuthFailures,
		Fix:      "Regenerate the webhook and keep its URL out of source control.",
	},
	{
		ID:       "discord-webhook",
		Title:    "Discord webhook URL",
		Severity: types.SeverityHigh,
		Pattern:  `(?P<secret>https://(?:ptb\.|canary\.)?(?:discord|discordapp)\.com/api/webhooks/[0-9]+/[A-Za-z0-9_-]+)`,
		Message:  "Discord webhook URL found",
		CWE:      cweHardcodedCreds,
		OWASP:    owaspAuthFailures,
		Fix:      "Regenerate the webhook and keep its URL out of source control.",
	},
	{
		ID:       "stripe-secret-key",
		Title:    "Stripe live secret key",
		Severity: types.SeverityCritical,
		Pattern:  `\b(?P<secret>(?:sk|rk)_live_[0-9A-Za-z]{24,99})\b`,
		Message:  "Stripe live secret key found",
		CWE:      cweHardcodedCreds,
		OWASP:    owaspAuthFailures,
		Fix:      "Roll the key in the Stripe dashboard and load it from the environment.",
	},
	{
		ID:       "stripe-test-key",
		Title:    "Stripe test secret key",
		Severity: types.SeverityLow,
		Pattern:  `\b(?P<secret>sk_test_[0-9A-Za-z]{24,99})\b`,
		Message:  "Stripe test secret key found",
		CWE:      cweHardcodedCreds,
		OWASP:    owaspAuthFailures,
		Fix:      "Load test keys from the environment as well.",
	},
	{
		ID:       "google-api-key",
		Title:    "Google API key",
		Severity: types.SeverityHigh,
		Pattern:  `\b(?P<secret>AIza[0-9A-Za-z_-]{35})`,
		Message:  "Google API key found",
		CWE:      cweHardcodedCreds,
		OWASP:    owaspAuthFailures,
		Fix:      "Restrict or regenerate the key in the Google Cloud console.",
	},
	{
		// UUID-shaped, no contextual anchor.
		ID:       "heroku-api-key",
		Title:    "Heroku API key",
		Severity: types.SeverityHigh,
		Pattern:  `\b(?P<secret>[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12})\b`,
		Message:  "Possible Heroku API key found",
		CWE:      cweHardcodedCreds,
		OWASP:    owaspAuthFailures,
		Fix:      rotateFix,
	},
	{
		ID:       "twilio-api-key",
		Title:    "Twilio API key",
		Severity: types.SeverityHigh,
		Pattern:  `\b(?P<secret>SK[0-9a-fA-F]{32})\b`,
		Message:  "Twilio API key found",
		CWE:      cweHardcodedCreds,
		OWASP:    owaspAuthFailures,
		Fix:      rotateFix,
	},
	{
		ID:       "sendgrid-api-key",
		Title:    "SendGrid API key",
		Severity: types.SeverityHigh,
		Pattern:  `\b(?P<secret>SG\.[A-Za-z0-9_-]{22}\.[A-Za-z0-9_-]{43})`,
		Message:  "SendGrid API key found",
		CWE:      cweHardcodedCreds,
		OWASP:    owaspAuthFailures,
		Fix:      rotateFix,
	},
	{
		ID:       "npm-token",
		Title:    "npm access token",
		Severity: types.SeverityHigh,
		Pattern:  `\b(?P<secret>npm_[A-Za-z0-9]{36})\b`,
		Message:  "npm access token found",
		CWE:      cweHardcodedCreds,
		OWASP:    owaspAuthFailures,
		Fix:      "Revoke the token with `npm token revoke` and use CI secrets.",
	},
	{
		ID:       "openai-api-key",
		Title:    "OpenAI API key",
		Severity: types.SeverityHigh,
		Pattern:  `\b(?P<secret>sk-(?:proj-)?[A-Za-z0-9_-]{20,}T3BlbkFJ[A-Za-z0-9_-]{20,})`,
		Message:  "OpenAI API key found",
		CWE:      cweHardcodedCreds,
		OWASP:    owaspAuthFailures,
		Fix:      rotateFix,
	},
	{
		ID:       "private-key",
		Title:    "Private key",
		Severity: types.SeverityCritical,
		Pattern:  `-----BEGIN (?:RSA |EC |DSA |OPENSSH |PGP |ENCRYPTED )?PRIVATE KEY(?: BLOCK)?-----`,
		Message:  "Private key header found",
		CWE:      "CWE-321",
		OWASP:    "A02:2021",
		Fix:      "Remove the key from the repository, purge it from history and issue a new key pair.",
	},
	{
		ID:       "database-url",
		Title:    "Database URL with credentials",
		Severity: types.SeverityCritical,
		Pattern:  `(?i)\b(?:postgres(?:ql)?|mysql|mongodb(?:\+srv)?|rediss?|amqps?|mssql)://[^:\s/'"@]+:(?P<secret>[^@\s'"/]+)@[^\s'"]+`,
		Exclude:  `://[^:]+:(?:\$\{|\$[A-Z_]|<|\*+@|password@)`,
		Message:  "Database connection string with embedded password found",
		CWE:      cweHardcodedCreds,
		OWASP:    owaspAuthFailures,
		Fix:      "Move the connection string to an environment variable and rotate the database password.",
	},
	{
		ID:       "generic-password",
		Title:    "Hardcoded password",
		Severity: types.SeverityHigh,
		Pattern:  `(?im)\b(?:[a-z0-9]*_)*(?:password|passwd|pwd|secret)["']?[ \t]*[:=][ \t]*["']?(?P<secret>[^"'\s#,;()]{8,})` + assignmentEnd,
		Exclude:  assignmentRefs,
		Message:  "Hardcoded password found",
		CWE:      "CWE-259",
		OWASP:    owaspAuthFailures,
		Fix:      rotateFix,
	},
	{
		ID:       "generic-api-key",
		Title:    "Hardcoded API key",
		Severity: types.SeverityHigh,
		Pattern:  `(?im)\b(?:[a-z0-9]*_)*(?:api[_-]?key|apikey|access[_-]?token|auth[_-]?token|client[_-]?secret|secret[_-]?key)["']?[ \t]*[:=][ \t]*["']?(?P<secret>[A-Za-z0-9_\-./+=]{16,})` + assignmentEnd,
		Exclude:  assignmentRefs,
		Message:  "Hardcoded API key or token found",
		CWE:      cweHardcodedCreds,
		OWASP:    owaspAuthFailures,
		Fix:      rotateFix,
	},
	{
		ID:       "jwt-token",
		Title:    "JSON Web Token",
		Severity: types.SeverityMedium,
		Pattern:  `\b(?P<secret>eyJ[A-Za-z0-9_-]{10,}\.eyJ[A-Za-z0-9_-]{10,}\.[A-Za-z0-9_-]{10,})`,
		Message:  "JSON Web Token found",
		CWE:      cweHardcodedCreds,
		OWASP:    owaspAuthFailures,
		Fix:      "Do not commit issued tokens; mint them at runtime.",
	},
}
