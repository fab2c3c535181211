package deps

import (
	"regexp"
	"strings"

	"github.com/garagon/tatu/internal/types"
)

// Ecosystems with a manifest parser.
const (
	EcosystemNPM  = "npm"
	EcosystemPyPI = "pypi"
	EcosystemGo   = "go"
)

// VulnerablePackage is one advisory: the versions of a package matched by
// Range are affected. Fixed is empty when no release addresses it.
type VulnerablePackage struct {
	Ecosystem string
	Name      string
	Range     string
	Fixed     string
	Severity  types.Severity
	Advisory  string
	Summary   string
}

var advisories = []VulnerablePackage{
	// npm
	{EcosystemNPM, "lodash", "<4.17.21", "4.17.21", types.SeverityHigh, "CVE-2021-23337", "Command injection via template"},
	{EcosystemNPM, "minimist", "<1.2.6", "1.2.6", types.SeverityCritical, "CVE-2021-44906", "Prototype pollution"},
	{EcosystemNPM, "axios", "<1.6.0", "1.6.0", types.SeverityMedium, "CVE-2023-45857", "XSRF token leaked to third-party hosts"},
	{EcosystemNPM, "node-fetch", "<2.6.7", "2.6.7", types.SeverityHigh, "CVE-2022-0235", "Cookie and auth header forwarded on redirect"},
	{EcosystemNPM, "jsonwebtoken", "<9.0.0", "9.0.0", types.SeverityHigh, "CVE-2022-23529", "Insecure key handling in verify"},
	{EcosystemNPM, "express", "<4.17.3", "4.17.3", types.SeverityHigh, "CVE-2022-24999", "Prototype pollution through qs"},
	{EcosystemNPM, "moment", ">=2.18.0 <2.29.4", "2.29.4", types.SeverityHigh, "CVE-2022-31129", "ReDoS in RFC 2822 parsing"},
	{EcosystemNPM, "handlebars", "<4.7.7", "4.7.7", types.SeverityCritical, "CVE-2021-23369", "Remote code execution in compiled templates"},
	{EcosystemNPM, "tar", "<6.1.9", "6.1.9", types.SeverityHigh, "CVE-2021-37713", "Arbitrary file write on extraction"},
	{EcosystemNPM, "ws", ">=7.0.0 <7.4.6", "7.4.6", types.SeverityMedium, "CVE-2021-32640", "ReDoS in Sec-Websocket-Protocol header"},
	{EcosystemNPM, "semver", "<5.7.2 || >=6.0.0 <6.3.1 || >=7.0.0 <7.5.2", "7.5.2", types.SeverityMedium, "CVE-2022-25883", "ReDoS in range parsing"},
	{EcosystemNPM, "json5", "<1.0.2 || >=2.0.0 <2.2.2", "2.2.2", types.SeverityHigh, "CVE-2022-46175", "Prototype pollution in parse"},
	{EcosystemNPM, "follow-redirects", "<1.15.4", "1.15.4", types.SeverityMedium, "CVE-2023-26159", "Improper URL handling"},
	{EcosystemNPM, "minimatch", "<3.0.5", "3.0.5", types.SeverityHigh, "CVE-2022-3517", "ReDoS in brace expansion"},
	{EcosystemNPM, "underscore", ">=1.3.2 <1.12.1", "1.12.1", types.SeverityCritical, "CVE-2021-23358", "Code injection via template"},
	{EcosystemNPM, "jquery", "<3.5.0", "3.5.0", types.SeverityMedium, "CVE-2020-11022", "XSS in htmlPrefilter"},
	{EcosystemNPM, "serialize-javascript", "<3.1.0", "3.1.0", types.SeverityHigh, "CVE-2020-7660", "Code injection via crafted regex"},

	// pypi
	{EcosystemPyPI, "django", "<3.2.14", "3.2.14", types.SeverityCritical, "CVE-2022-34265", "SQL injection in Trunc and Extract"},
	{EcosystemPyPI, "flask", "<2.2.5", "2.2.5", types.SeverityHigh, "CVE-2023-30861", "Session cookie cached by proxies"},
	{EcosystemPyPI, "requests", "<2.31.0", "2.31.0", types.SeverityMedium, "CVE-2023-32681", "Proxy-Authorization header leaked on redirect"},
	{EcosystemPyPI, "urllib3", "<1.26.18", "1.26.18", types.SeverityMedium, "CVE-2023-45803", "Request body kept on 303 redirect"},
	{EcosystemPyPI, "pyyaml", "<5.4", "5.4", types.SeverityCritical, "CVE-2020-14343", "Arbitrary code execution in full_load"},
	{EcosystemPyPI, "jinja2", "<3.1.3", "3.1.3", types.SeverityMedium, "CVE-2024-22195", "XSS through xmlattr filter"},
	{EcosystemPyPI, "pillow", "<10.0.1", "10.0.1", types.SeverityHigh, "CVE-2023-4863", "Heap overflow in bundled libwebp"},
	{EcosystemPyPI, "werkzeug", "<2.2.3", "2.2.3", types.SeverityHigh, "CVE-2023-25577", "Resource exhaustion parsing multipart data"},

	// go
	{EcosystemGo, "golang.org/x/crypto", "<0.17.0", "0.17.0", types.SeverityMedium, "CVE-2023-48795", "SSH prefix truncation (Terrapin)"},
	{EcosystemGo, "golang.org/x/net", "<0.17.0", "0.17.0", types.SeverityHigh, "CVE-2023-44487", "HTTP/2 rapid reset"},
	{EcosystemGo, "github.com/dgrijalva/jwt-go", "*", "", types.SeverityHigh, "CVE-2020-26160", "Audience check bypass; module is unmaintained"},
	{EcosystemGo, "gopkg.in/yaml.v3", "<3.0.1", "3.0.1", types.SeverityHigh, "CVE-2022-28948", "Panic on crafted input"},
}

var advisoryIndex = func() map[string][]VulnerablePackage {
	idx := make(map[string][]VulnerablePackage, len(advisories))
	for _, a := range advisories {
		k := indexKey(a.Ecosystem, a.Name)
		idx[k] = append(idx[k], a)
	}
	return idx
}()

// Advisories returns a copy of the advisory table.
func Advisories() []VulnerablePackage {
	return append([]VulnerablePackage(nil), advisories...)
}

// Lookup returns the advisories for a package by exact name. PyPI names
// are compared in their normalized form.
func Lookup(ecosystem, name string) []VulnerablePackage {
	return advisoryIndex[indexKey(ecosystem, name)]
}

func indexKey(ecosystem, name string) string {
	if ecosystem == EcosystemPyPI {
		name = NormalizePyPI(name)
	}
	return ecosystem + "|" + name
}

var pypiSeparators = regexp.MustCompile(`[-_.]+`)

// NormalizePyPI applies the registry's name normalization: lower case, with
// runs of "-", "_" and "." collapsed to "-".
func NormalizePyPI(name string) string {
	return pypiSeparators.ReplaceAllString(strings.ToLower(name), "-")
}
