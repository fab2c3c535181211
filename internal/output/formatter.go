// Package output formats scan results for terminal (ANSI), JSON, SARIF,
// Markdown and HTML output.
package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/garagon/tatu/internal/scanner"
)

// Formatter is the interface for outputting scan results.
type Formatter interface {
	Format(w io.Writer, result *scanner.ScanResult) error
}

// Formats lists the accepted --format values.
var Formats = []string{"terminal", "json", "sarif", "markdown", "html"}

// ForFormat returns the formatter registered under name.
func ForFormat(name string, noColor, verbose bool) (Formatter, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "terminal", "text":
		return &TerminalFormatter{NoColor: noColor, Verbose: verbose}, nil
	case "json":
		return &JSONFormatter{}, nil
	case "sarif":
		return &SARIFFormatter{}, nil
	case "markdown", "md":
		return &MarkdownFormatter{}, nil
	case "html":
		return &HTMLFormatter{}, nil
	}
	return nil, fmt.Errorf("unknown format %q (want one of %s)", name, strings.Join(Formats, ", "))
}
