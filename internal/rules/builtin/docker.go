package builtin

import (
	"github.com/garagon/tatu/internal/rules"
	"github.com/garagon/tatu/internal/types"
)

// Dockerfile checks are code; the table only carries their metadata, in the
// order the checks run.
var dockerRules = []rules.Rule{
	{
		ID:       "docker-root-user",
		Title:    "Container runs as root",
		Severity: types.SeverityHigh,
		Message:  "No USER instruction; the container runs as root",
		CWE:      "CWE-250",
		OWASP:    "A05:2021",
		Fix:      "Create an unprivileged user and switch to it with USER.",
	},
	{
		ID:       "docker-unpinned-image",
		Title:    "Unpinned base image",
		Severity: types.SeverityMedium,
		Message:  "Base image has no tag or uses latest",
		CWE:      "CWE-1104",
		OWASP:    "A06:2021",
		Fix:      "Pin the base image to a version tag or digest.",
	},
	{
		ID:       "docker-add-instead-of-copy",
		Title:    "ADD used for local files",
		Severity: types.SeverityLow,
		Message:  "ADD used where COPY suffices",
		CWE:      "CWE-829",
		Fix:      "Use COPY for local files; ADD only for remote URLs or archives.",
	},
	{
		ID:       "docker-sudo",
		Title:    "sudo in build step",
		Severity: types.SeverityMedium,
		Message:  "sudo used inside a RUN instruction",
		CWE:      "CWE-250",
		OWASP:    "A05:2021",
		Fix:      "Run privileged steps before USER instead of using sudo.",
	},
	{
		ID:       "docker-package-upgrade",
		Title:    "Package upgrade in build",
		Severity: types.SeverityLow,
		Message:  "Package manager upgrade makes the build non-reproducible",
		CWE:      "CWE-1357",
		Fix:      "Pin package versions instead of upgrading everything.",
	},
	{
		ID:       "docker-excessive-ports",
		Title:    "Excessive exposed ports",
		Severity: types.SeverityLow,
		Message:  "More than 5 ports exposed",
		CWE:      "CWE-1125",
		OWASP:    "A05:2021",
		Fix:      "Expose only the ports the service needs.",
	},
	{
		ID:       "docker-secret-in-build",
		Title:    "Secret in build argument",
		Severity: types.SeverityHigh,
		Message:  "Secret-shaped value in ENV or ARG",
		CWE:      "CWE-798",
		OWASP:    "A07:2021",
		Fix:      "Use build secrets (RUN --mount=type=secret) or runtime environment variables.",
	},
	{
		ID:       "docker-missing-healthcheck",
		Title:    "Missing HEALTHCHECK",
		Severity: types.SeverityLow,
		Message:  "No HEALTHCHECK instruction",
		CWE:      "CWE-754",
		Fix:      "Add a HEALTHCHECK instruction.",
	},
	{
		ID:       "docker-curl-pipe-shell",
		Title:    "Remote script piped to shell",
		Severity: types.SeverityHigh,
		Message:  "Remote content piped directly into a shell",
		CWE:      "CWE-494",
		OWASP:    "A08:2021",
		Fix:      "Download, verify a checksum, then execute.",
	},
}
