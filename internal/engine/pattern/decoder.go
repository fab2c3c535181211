package pattern

import (
	"encoding/base64"
	"encoding/hex"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	base64Re = regexp.MustCompile(`[A-Za-z0-9+/]{20,}={0,2}`)
	hexRe    = regexp.MustCompile(`(?:0x)?[0-9a-fA-F]{32,}`)
)

// Blob is a decoded base64 or hex run found in a file.
type Blob struct {
	Line     int
	Encoding string
	Text     string
}

// DecodeBlobs finds base64 and hex runs in content and returns the ones that
// decode to mostly printable text. Credentials in Kubernetes Secret manifests
// and CI variables are usually stored this way.
func DecodeBlobs(content string) []Blob {
	var blobs []Blob
	idx := newLineIndex(content)

	for _, loc := range base64Re.FindAllStringIndex(content, -1) {
		encoded := content[loc[0]:loc[1]]
		decoded, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			decoded, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(encoded, "="))
			if err != nil {
				continue
			}
		}
		if len(decoded) < 8 || !isPrintable(decoded) {
			continue
		}
		line, _ := idx.position(loc[0])
		blobs = append(blobs, Blob{Line: line, Encoding: "base64", Text: string(decoded)})
	}

	for _, loc := range hexRe.FindAllStringIndex(content, -1) {
		encoded := strings.TrimPrefix(content[loc[0]:loc[1]], "0x")
		if len(encoded)%2 != 0 {
			continue
		}
		decoded, err := hex.DecodeString(encoded)
		if err != nil {
			continue
		}
		if len(decoded) < 8 || !isPrintable(decoded) {
			continue
		}
		line, _ := idx.position(loc[0])
		blobs = append(blobs, Blob{Line: line, Encoding: "hex", Text: string(decoded)})
	}

	return blobs
}

func isPrintable(data []byte) bool {
	printable := 0
	for _, b := range data {
		if b < utf8.RuneSelf && (unicode.IsPrint(rune(b)) || b == '\n' || b == '\r' || b == '\t') {
			printable++
		}
	}
	return float64(printable)/float64(len(data)) > 0.9
}
