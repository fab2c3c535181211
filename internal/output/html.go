package output

import (
	"bytes"
	"fmt"
	"html"
	"io"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	gmhtml "github.com/yuin/goldmark/renderer/html"

	"github.com/garagon/tatu/internal/scanner"
)

const htmlStyle = `body{font-family:-apple-system,Segoe UI,Helvetica,Arial,sans-serif;max-width:1100px;margin:2rem auto;padding:0 1rem;color:#1f2328}
table{border-collapse:collapse;width:100%;margin:1rem 0}th,td{border:1px solid #d0d7de;padding:6px 10px;text-align:left;vertical-align:top}
th{background:#f6f8fa}code{background:#f6f8fa;padding:1px 4px;border-radius:4px}summary{cursor:pointer;margin:1rem 0}
blockquote{color:#59636e;border-left:4px solid #d0d7de;margin:0;padding:0 1rem}`

// HTMLFormatter renders the markdown report as a standalone HTML page.
type HTMLFormatter struct{}

func (f *HTMLFormatter) Format(w io.Writer, result *scanner.ScanResult) error {
	var md bytes.Buffer
	if err := (&MarkdownFormatter{}).Format(&md, result); err != nil {
		return err
	}

	// the markdown report embeds <details> blocks; all finding text in it
	// is already escaped
	gm := goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithRendererOptions(gmhtml.WithUnsafe()),
	)
	var body bytes.Buffer
	if err := gm.Convert(md.Bytes(), &body); err != nil {
		return fmt.Errorf("render html: %w", err)
	}

	title := "tatu scan report"
	if result.Target != "" {
		title += ": " + result.Target
	}
	_, err := fmt.Fprintf(w, "<!DOCTYPE html>\n<html lang=\"en\">\n<head>\n<meta charset=\"utf-8\">\n<title>%s</title>\n<style>%s</style>\n</head>\n<body>\n%s</body>\n</html>\n",
		html.EscapeString(title), htmlStyle, body.String())
	return err
}
