// Package version decides whether an installed package version falls inside
// a vulnerable range expression. Every parse failure reports "not in range":
// a version we cannot read never produces a finding.
package version

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/mod/semver"
)

var (
	coerceRe     = regexp.MustCompile(`\d+(?:\.\d+){0,2}`)
	comparatorRe = regexp.MustCompile(`(<=|>=|==|<|>|=|\^|~)?\s*(v?\d[0-9A-Za-z.+-]*)`)
)

// Coerce normalizes a loose version string to canonical "vMAJOR.MINOR.PATCH".
// The first run of up to three dot-separated numbers is used, so "1.2",
// "v1.2.3-beta" and "2.2.5.post1" coerce to v1.2.0, v1.2.3 and v2.2.5.
func Coerce(v string) (string, bool) {
	m := coerceRe.FindString(strings.TrimSpace(v))
	if m == "" {
		return "", false
	}
	parts := strings.Split(m, ".")
	for len(parts) < 3 {
		parts = append(parts, "0")
	}
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return "", false
		}
		parts[i] = strconv.Itoa(n) // drop leading zeros
	}
	out := "v" + strings.Join(parts, ".")
	if !semver.IsValid(out) {
		return "", false
	}
	return out, true
}

// Compare returns -1, 0 or +1 comparing a and b after coercion. ok is false
// when either side does not parse.
func Compare(a, b string) (cmp int, ok bool) {
	ca, okA := Coerce(a)
	cb, okB := Coerce(b)
	if !okA || !okB {
		return 0, false
	}
	return semver.Compare(ca, cb), true
}

// InRange reports whether installed satisfies the range expression.
//
// Supported syntax: "||" separates alternatives; inside an alternative,
// comparators (<, <=, >, >=, =, ==) separated by spaces or commas must all
// hold; "^1.2.3" and "~1.2.3" are compatibility ranges; "1.0.0 - 2.0.0" is
// an inclusive span; "*" matches any version.
func InRange(installed, expr string) bool {
	v, ok := Coerce(installed)
	if !ok {
		return false
	}
	matched := false
	for _, alt := range strings.Split(expr, "||") {
		ok, err := satisfies(v, strings.TrimSpace(alt))
		if err != nil {
			return false
		}
		matched = matched || ok
	}
	return matched
}

func satisfies(v, alt string) (bool, error) {
	if alt == "" {
		return false, fmt.Errorf("empty range")
	}
	if alt == "*" || alt == "x" {
		return true, nil
	}
	if lo, hi, found := strings.Cut(alt, " - "); found {
		return satisfies(v, ">="+strings.TrimSpace(lo)+" <="+strings.TrimSpace(hi))
	}

	alt = strings.ReplaceAll(alt, ",", " ")
	matches := comparatorRe.FindAllStringSubmatchIndex(alt, -1)
	if len(matches) == 0 {
		return false, fmt.Errorf("no comparators in %q", alt)
	}
	// anything left over besides whitespace is unparsable
	consumed := 0
	for _, m := range matches {
		if strings.TrimSpace(alt[consumed:m[0]]) != "" {
			return false, fmt.Errorf("unexpected %q in range", alt[consumed:m[0]])
		}
		consumed = m[1]
	}
	if strings.TrimSpace(alt[consumed:]) != "" {
		return false, fmt.Errorf("unexpected %q in range", alt[consumed:])
	}

	for _, m := range matches {
		op := ""
		if m[2] >= 0 {
			op = alt[m[2]:m[3]]
		}
		bound, ok := Coerce(alt[m[4]:m[5]])
		if !ok {
			return false, fmt.Errorf("bad version %q", alt[m[4]:m[5]])
		}
		if !check(v, op, bound) {
			return false, nil
		}
	}
	return true, nil
}

func check(v, op, bound string) bool {
	c := semver.Compare(v, bound)
	switch op {
	case "<":
		return c < 0
	case "<=":
		return c <= 0
	case ">":
		return c > 0
	case ">=":
		return c >= 0
	case "^":
		return c >= 0 && semver.Compare(v, caretCeiling(bound)) < 0
	case "~":
		return c >= 0 && semver.Compare(v, tildeCeiling(bound)) < 0
	default: // "", "=", "=="
		return c == 0
	}
}

// caretCeiling returns the exclusive upper bound of ^bound: the next
// version that changes the left-most non-zero component.
func caretCeiling(bound string) string {
	maj, minor, patch := components(bound)
	switch {
	case maj > 0:
		return fmt.Sprintf("v%d.0.0", maj+1)
	case minor > 0:
		return fmt.Sprintf("v0.%d.0", minor+1)
	default:
		return fmt.Sprintf("v0.0.%d", patch+1)
	}
}

// tildeCeiling returns the exclusive upper bound of ~bound: the next minor.
func tildeCeiling(bound string) string {
	maj, minor, _ := components(bound)
	return fmt.Sprintf("v%d.%d.0", maj, minor+1)
}

func components(canonical string) (int, int, int) {
	parts := strings.SplitN(strings.TrimPrefix(canonical, "v"), ".", 3)
	var out [3]int
	for i := range min(len(parts), 3) {
		out[i], _ = strconv.Atoi(parts[i])
	}
	return out[0], out[1], out[2]
}

// FromSpec extracts an installed-version string from a manifest dependency
// spec by stripping range qualifiers: "^4.17.15" -> "4.17.15",
// "==2.2.0" -> "2.2.0". Specs that do not name a registry version (URLs,
// paths, workspace links, tags such as "latest") return false.
func FromSpec(spec string) (string, bool) {
	spec = strings.TrimSpace(spec)
	if spec == "" || strings.Contains(spec, "://") {
		return "", false
	}
	for _, p := range []string{"file:", "link:", "workspace:", "git+", "git:", "github:", "portal:"} {
		if strings.HasPrefix(spec, p) {
			return "", false
		}
	}
	m := coerceRe.FindString(spec)
	if m == "" {
		return "", false
	}
	return m, true
}
