package iac

import (
	"strings"

	"gopkg.in/yaml.v3"
)

// Structural rule IDs.
const (
	RuleMissingSecurityContext = "k8s-missing-security-context"
	RuleMissingProbes          = "k8s-missing-probes"
	RuleNamespacePolicy        = "k8s-namespace-network-policy"
)

// podSpecPath is where each workload kind keeps its pod spec.
var podSpecPath = map[string][]string{
	"Pod":         {"spec"},
	"Deployment":  {"spec", "template", "spec"},
	"StatefulSet": {"spec", "template", "spec"},
	"DaemonSet":   {"spec", "template", "spec"},
	"ReplicaSet":  {"spec", "template", "spec"},
	"Job":         {"spec", "template", "spec"},
	"CronJob":     {"spec", "jobTemplate", "spec", "template", "spec"},
}

// runToCompletion kinds are not expected to serve probes.
var runToCompletion = map[string]bool{"Job": true, "CronJob": true}

// violation is a structural check failure in one manifest document.
type violation struct {
	rule string
	kind string
	name string
	line int
	col  int
}

// checkManifests decodes every YAML document in content and runs the
// structural checks. Documents are decoded one at a time, so a malformed
// document is skipped without hiding the ones after it.
func checkManifests(content string) []violation {
	var out []violation
	for _, d := range splitDocuments(content) {
		var doc yaml.Node
		if err := yaml.Unmarshal([]byte(d.text), &doc); err != nil || len(doc.Content) == 0 {
			continue
		}
		for _, v := range checkDocument(doc.Content[0]) {
			v.line += d.offset
			out = append(out, v)
		}
	}
	return out
}

// document is one YAML document and the number of lines before it.
type document struct {
	text   string
	offset int
}

// splitDocuments cuts content at "---" separator lines. Each separator
// stays at the top of the document it opens.
func splitDocuments(content string) []document {
	lines := strings.SplitAfter(content, "\n")
	var docs []document
	start := 0
	for i, l := range lines {
		if i > start && isSeparator(l) {
			docs = append(docs, document{text: strings.Join(lines[start:i], ""), offset: start})
			start = i
		}
	}
	return append(docs, document{text: strings.Join(lines[start:], ""), offset: start})
}

func isSeparator(line string) bool {
	line = strings.TrimRight(line, "\r\n")
	return line == "---" || strings.HasPrefix(line, "--- ") || strings.HasPrefix(line, "---\t")
}

func checkDocument(root *yaml.Node) []violation {
	if root.Kind != yaml.MappingNode {
		return nil
	}
	kindKey, kindVal := lookup(root, "kind")
	if kindVal == nil || kindVal.Kind != yaml.ScalarNode {
		return nil
	}
	kind := kindVal.Value
	name := ""
	if _, meta := lookup(root, "metadata"); meta != nil {
		if _, n := lookup(meta, "name"); n != nil {
			name = n.Value
		}
	}
	at := violation{kind: kind, name: name, line: kindKey.Line, col: kindKey.Column}

	if kind == "Namespace" {
		at.rule = RuleNamespacePolicy
		return []violation{at}
	}
	p, ok := podSpecPath[kind]
	if !ok {
		return nil
	}
	spec := nodeAt(root, p...)
	if spec == nil || spec.Kind != yaml.MappingNode {
		return nil
	}
	var containers []*yaml.Node
	if _, c := lookup(spec, "containers"); c != nil && c.Kind == yaml.SequenceNode {
		containers = c.Content
	}

	var out []violation
	if !hasKey(spec, "securityContext") {
		for _, c := range containers {
			if !hasKey(c, "securityContext") {
				v := at
				v.rule = RuleMissingSecurityContext
				out = append(out, v)
				break
			}
		}
	}
	if !runToCompletion[kind] {
		for _, c := range containers {
			if !hasKey(c, "readinessProbe") && !hasKey(c, "livenessProbe") {
				v := at
				v.rule = RuleMissingProbes
				out = append(out, v)
				break
			}
		}
	}
	return out
}

// lookup returns the key and value nodes for key in a mapping node.
func lookup(m *yaml.Node, key string) (*yaml.Node, *yaml.Node) {
	if m == nil || m.Kind != yaml.MappingNode {
		return nil, nil
	}
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			return m.Content[i], m.Content[i+1]
		}
	}
	return nil, nil
}

func hasKey(m *yaml.Node, key string) bool {
	_, v := lookup(m, key)
	return v != nil && v.Tag != "!!null"
}

func nodeAt(m *yaml.Node, keys ...string) *yaml.Node {
	for _, k := range keys {
		_, m = lookup(m, k)
		if m == nil {
			return nil
		}
	}
	return m
}
