package pattern

import (
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// SnippetMax bounds snippet length in bytes.
const SnippetMax = 120

var commentPrefixes = []string{"//", "#", "/*", "*", "<!--"}

// IsCommentLine reports whether the trimmed line opens with a comment token.
func IsCommentLine(line string) bool {
	trimmed := strings.TrimSpace(line)
	for _, p := range commentPrefixes {
		if strings.HasPrefix(trimmed, p) {
			return true
		}
	}
	return false
}

var testDirs = map[string]bool{
	"test": true, "tests": true, "__tests__": true, "testdata": true,
	"spec": true, "specs": true, "fixture": true, "fixtures": true,
	"__fixtures__": true, "mock": true, "mocks": true, "__mocks__": true,
	"example": true, "examples": true,
}

var testNameMarkers = []string{".test.", ".spec.", "_test.", ".mock.", ".fixture."}

// IsTestPath reports whether relPath follows test, fixture, mock or example
// naming conventions.
func IsTestPath(relPath string) bool {
	p := strings.ToLower(filepath.ToSlash(relPath))
	parts := strings.Split(p, "/")
	for _, dir := range parts[:len(parts)-1] {
		if testDirs[dir] {
			return true
		}
	}
	base := parts[len(parts)-1]
	for _, m := range testNameMarkers {
		if strings.Contains(base, m) {
			return true
		}
	}
	if strings.HasPrefix(base, "test_") && strings.HasSuffix(base, ".py") {
		return true
	}
	return strings.HasSuffix(base, ".example") || strings.HasSuffix(base, ".sample")
}

// Mask keeps the first and last four characters of a value. Values of eight
// characters or fewer are masked entirely.
func Mask(value string) string {
	r := []rune(value)
	if len(r) <= 8 {
		return strings.Repeat("*", len(r))
	}
	return string(r[:4]) + "****" + string(r[len(r)-4:])
}

// IsPlaceholder reports whether a value is a single repeated character, such
// as "********" or "xxxxxxxx".
func IsPlaceholder(value string) bool {
	if value == "" {
		return true
	}
	first, _ := utf8.DecodeRuneInString(value)
	return strings.Trim(value, string(first)) == ""
}

// Snippet trims a line and truncates it to SnippetMax bytes on a rune boundary.
func Snippet(line string) string {
	s := strings.TrimSpace(line)
	if len(s) <= SnippetMax {
		return s
	}
	cut := SnippetMax
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
