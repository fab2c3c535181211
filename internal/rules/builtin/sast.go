package builtin

import (
	"github.com/garagon/tatu/internal/rules"
	"github.com/garagon/tatu/internal/types"
)

// Languages recognised by the source-pattern scanner.
const (
	LangJavaScript = "javascript"
	LangTypeScript = "typescript"
	LangPython     = "python"
	LangJava       = "java"
	LangGo         = "go"
	LangRuby       = "ruby"
	LangPHP        = "php"
	LangCSharp     = "csharp"
	LangKotlin     = "kotlin"
)

// LanguageByExt maps a lower-case file extension to its language.
var LanguageByExt = map[string]string{
	".js":   LangJavaScript,
	".jsx":  LangJavaScript,
	".mjs":  LangJavaScript,
	".cjs":  LangJavaScript,
	".ts":   LangTypeScript,
	".tsx":  LangTypeScript,
	".mts":  LangTypeScript,
	".py":   LangPython,
	".java": LangJava,
	".go":   LangGo,
	".rb":   LangRuby,
	".php":  LangPHP,
	".cs":   LangCSharp,
	".kt":   LangKotlin,
}

var jsLike = []string{LangJavaScript, LangTypeScript}

// \x60 is a backtick; Go raw strings cannot hold one.
var sastRules = []rules.Rule{
	{
		ID:       "sql-injection",
		Title:    "SQL injection",
		Severity: types.SeverityCritical,
		Pattern:  `(?i)(?:["'\x60]\s*(?:SELECT|INSERT|UPDATE|DELETE)\s[^"'\x60\n]*["'\x60]\s*\+|\x60\s*(?:SELECT|INSERT|UPDATE|DELETE)\s[^\x60\n]*\$\{|\bf["']\s*(?:SELECT|INSERT|UPDATE|DELETE)\s[^"'\n]*\{|\.(?:execute|query|raw)\s*\(\s*["'][^"'\n]*%s[^"'\n]*["']\s*%)`,
		Message:  "SQL query built by string concatenation or interpolation",
		CWE:      "CWE-89",
		OWASP:    "A03:2021",
		Fix:      "Use parameterized queries or prepared statements.",
	},
	{
		ID:       "command-injection",
		Title:    "OS command injection",
		Severity: types.SeverityCritical,
		Pattern:  `\b(?:exec|execSync|spawn|spawnSync|execFile)\s*\(\s*(?:["'\x60][^"'\x60\n]*["'\x60]\s*\+|\x60[^\x60\n]*\$\{)|\bos\.system\s*\(|\bos\.popen\s*\(|\bsubprocess\.[a-z_]+\([^)\n]*shell\s*=\s*True|\bRuntime\.getRuntime\(\)\.exec\s*\(|\bshell_exec\s*\(|\bexec\.Command\s*\(\s*"(?:sh|bash)"\s*,\s*"-c"`,
		Message:  "Shell command built from dynamic input",
		CWE:      "CWE-78",
		OWASP:    "A03:2021",
		Fix:      "Pass arguments as an array to a non-shell exec API and validate input against an allowlist.",
	},
	{
		ID:       "path-traversal",
		Title:    "Path traversal",
		Severity: types.SeverityHigh,
		Pattern:  `\b(?:readFile|readFileSync|createReadStream|sendFile|open)\s*\([^)\n]*\breq\.(?:params|query|body)|\bopen\s*\([^)\n]*\brequest\.(?:args|form|GET|POST)`,
		Message:  "File path derived from request input",
		CWE:      "CWE-22",
		OWASP:    "A01:2021",
		Fix:      "Resolve the path against a fixed base directory and reject results outside it.",
	},
	{
		ID:        "xss-dom-sink",
		Title:     "Unsafe DOM sink",
		Severity:  types.SeverityHigh,
		Pattern:   `\.(?:innerHTML|outerHTML)\s*=[^=]|\bdocument\.write(?:ln)?\s*\(|\bdangerouslySetInnerHTML\b|\.insertAdjacentHTML\s*\(`,
		Message:   "Markup written to an unsafe DOM sink",
		CWE:       "CWE-79",
		OWASP:     "A03:2021",
		Fix:       "Use textContent or a sanitizer such as DOMPurify before inserting markup.",
		Languages: jsLike,
	},
	{
		ID:        "eval-usage",
		Title:     "Dynamic code evaluation",
		Severity:  types.SeverityHigh,
		Pattern:   `\beval\s*\(|\bnew\s+Function\s*\(|\bsetTimeout\s*\(\s*["'\x60]`,
		Message:   "Dynamic code evaluation",
		CWE:       "CWE-95",
		OWASP:     "A03:2021",
		Fix:       "Avoid eval; parse data with a dedicated parser such as JSON.parse or ast.literal_eval.",
		Languages: []string{LangJavaScript, LangTypeScript, LangPython, LangPHP, LangRuby},
	},
	{
		ID:       "insecure-deserialization",
		Title:    "Insecure deserialization",
		Severity: types.SeverityHigh,
		Pattern:  `\b(?:c?[pP]ickle)\.loads?\s*\(|\bmarshal\.loads\s*\(|\byaml\.unsafe_load\s*\(|\byaml\.load\s*\([^)\n]*Loader\s*=\s*yaml\.(?:Unsafe)?Loader\b|\bunserialize\s*\(|\bnew\s+ObjectInputStream\s*\(|\bnode-serialize\b|\bBinaryFormatter\s*\(`,
		Message:  "Untrusted data deserialized with an unsafe API",
		CWE:      "CWE-502",
		OWASP:    "A08:2021",
		Fix:      "Deserialize only trusted data, or switch to a data-only format such as JSON.",
	},
	{
		ID:        "prototype-pollution",
		Title:     "Prototype pollution",
		Severity:  types.SeverityHigh,
		Pattern:   `\b__proto__\b|\[\s*["']constructor["']\s*\]\s*\[\s*["']prototype["']\s*\]|\b(?:_\.merge|_\.defaultsDeep|merge|deepmerge|extend)\s*\([^)\n]*\breq\.(?:body|query|params)`,
		Message:   "Object prototype reachable from user-controlled keys",
		CWE:       "CWE-1321",
		OWASP:     "A03:2021",
		Fix:       "Reject __proto__, constructor and prototype keys, or build objects with Object.create(null).",
		Languages: jsLike,
	},
	{
		ID:       "open-redirect",
		Title:    "Open redirect",
		Severity: types.SeverityMedium,
		Pattern:  `\bres\.redirect\s*\(\s*req\.(?:query|params|body)|\bwindow\.location(?:\.href)?\s*=\s*[^;\n]*(?:location\.(?:search|hash)|req\.query)`,
		Message:  "Redirect target taken from request input",
		CWE:      "CWE-601",
		OWASP:    "A01:2021",
		Fix:      "Redirect only to relative paths or to an allowlist of hosts.",
	},
	{
		ID:       "weak-hash",
		Title:    "Weak hash algorithm",
		Severity: types.SeverityMedium,
		Pattern:  `(?i)createHash\s*\(\s*["'](?:md5|sha1)["']|\bhashlib\.(?:md5|sha1)\s*\(|MessageDigest\.getInstance\s*\(\s*"(?:MD5|SHA-?1)"|\b(?:md5|sha1)\.(?:New|Sum)\s*\(|\bDigest::(?:MD5|SHA1)\b`,
		Message:  "MD5 or SHA-1 used",
		CWE:      "CWE-328",
		OWASP:    "A02:2021",
		Fix:      "Use SHA-256 or stronger; for passwords use bcrypt, scrypt or Argon2.",
	},
	{
		ID:       "insecure-random",
		Title:    "Insecure randomness",
		Severity: types.SeverityLow,
		Pattern:  `\bMath\.random\s*\(|\brandom\.(?:random|randint|choice|randrange)\s*\(|"math/rand"|\bnew\s+Random\s*\(`,
		Message:  "Non-cryptographic random number generator",
		CWE:      "CWE-338",
		OWASP:    "A02:2021",
		Fix:      "Use a cryptographically secure generator for tokens and identifiers.",
	},
	{
		ID:       "tls-verification-disabled",
		Title:    "TLS verification disabled",
		Severity: types.SeverityHigh,
		Pattern:  `rejectUnauthorized\s*:\s*false|NODE_TLS_REJECT_UNAUTHORIZED["']?\s*[=:]\s*["']?0|\bverify\s*=\s*False\b|InsecureSkipVerify\s*:\s*true|CURLOPT_SSL_VERIFYPEER\s*,\s*(?:false|0)|\bcheck_hostname\s*=\s*False`,
		Message:  "TLS certificate verification disabled",
		CWE:      "CWE-295",
		OWASP:    "A07:2021",
		Fix:      "Keep certificate verification on; trust a private CA explicitly if needed.",
	},
	{
		ID:       "cors-wildcard",
		Title:    "Wildcard CORS policy",
		Severity: types.SeverityMedium,
		Pattern:  `(?i)Access-Control-Allow-Origin["']?\s*[,:]\s*["']\*["']|\borigin\s*:\s*["']\*["']|\bcors\(\s*\)|AllowAllOrigins\s*:\s*true|CORS_ORIGIN_ALLOW_ALL\s*=\s*True`,
		Message:  "CORS allows any origin",
		CWE:      "CWE-942",
		OWASP:    "A05:2021",
		Fix:      "Restrict allowed origins to known hosts.",
	},
	{
		ID:       "hardcoded-ip",
		Title:    "Hardcoded IP address",
		Severity: types.SeverityLow,
		Pattern:  `\b(?:(?:25[0-5]|2[0-4][0-9]|1[0-9]{2}|[1-9]?[0-9])\.){3}(?:25[0-5]|2[0-4][0-9]|1[0-9]{2}|[1-9]?[0-9])\b`,
		Exclude:  `^(?:127\.0\.0\.1|0\.0\.0\.0|255\.255\.255\.\d+)$`,
		Message:  "Hardcoded IP address",
		CWE:      "CWE-547",
		OWASP:    "A05:2021",
		Fix:      "Move addresses to configuration.",
	},
	{
		ID:       "debug-statement",
		Title:    "Debug statement",
		Severity: types.SeverityInfo,
		Pattern:  `(?m)\bconsole\.(?:log|debug|trace)\s*\(|\bSystem\.out\.print(?:ln)?\s*\(|^\s*debugger\s*;?\s*$|\bvar_dump\s*\(|\bprint_r\s*\(`,
		Message:  "Debug output left in code",
		CWE:      "CWE-489",
		Fix:      "Remove debug output or route it through a leveled logger.",
	},
}
