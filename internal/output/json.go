package output

import (
	"encoding/json"
	"io"

	"github.com/garagon/tatu/internal/scanner"
	"github.com/garagon/tatu/internal/types"
)

// JSONFormatter dumps the whole ScanResult.
type JSONFormatter struct{}

func (f *JSONFormatter) Format(w io.Writer, result *scanner.ScanResult) error {
	out := *result
	if out.Findings == nil {
		out.Findings = []types.Finding{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
