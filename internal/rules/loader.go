package rules

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// maxRuleFileSize is the maximum size for a single YAML rule file (1 MB).
const maxRuleFileSize = 1 << 20

var customScanners = map[string]bool{
	ScannerSecrets: true,
	ScannerSAST:    true,
	ScannerIaC:     true,
}

// LoadFromDir loads custom rules from a directory on disk.
// Files larger than 1 MB are skipped. Unknown YAML keys are rejected, and
// every rule must name the pattern scanner it extends.
func LoadFromDir(dir string) ([]Rule, error) {
	var all []Rule
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || !isYAML(path) {
			return nil
		}
		if info.Size() > maxRuleFileSize {
			fmt.Fprintf(os.Stderr, "warning: skipping oversized rule file %s (%d bytes, max %d)\n", path, info.Size(), maxRuleFileSize)
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}
		rules, err := parseMultiDocYAML(data)
		if err != nil {
			return fmt.Errorf("parsing %s: %w", path, err)
		}
		all = append(all, rules...)
		return nil
	})
	return all, err
}

// parseMultiDocYAML splits a YAML file on "---" boundaries and parses each document.
func parseMultiDocYAML(data []byte) ([]Rule, error) {
	var rules []Rule
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	for {
		var raw Rule
		err := decoder.Decode(&raw)
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, err
		}
		if raw.ID == "" {
			continue
		}
		if !customScanners[raw.Scanner] {
			return nil, fmt.Errorf("rule %s: scanner must be one of secrets, sast, iac (got %q)", raw.ID, raw.Scanner)
		}
		if raw.Pattern == "" {
			return nil, fmt.Errorf("rule %s: pattern is required", raw.ID)
		}
		rules = append(rules, raw)
	}
	return rules, nil
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}
