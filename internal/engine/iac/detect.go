package iac

import (
	"path"
	"regexp"
	"strings"

	"github.com/garagon/tatu/internal/rules/builtin"
)

var candidateExts = map[string]bool{
	".tf": true, ".tfvars": true, ".yaml": true, ".yml": true, ".json": true, ".template": true,
}

var (
	cfnRe         = regexp.MustCompile(`AWSTemplateFormatVersion|["']?Type["']?\s*:\s*["']?AWS::`)
	apiVersionRe  = regexp.MustCompile(`(?m)^\s*(?:-\s*)?["']?apiVersion["']?\s*:`)
	kindRe        = regexp.MustCompile(`(?m)^\s*(?:-\s*)?["']?kind["']?\s*:`)
	servicesRe    = regexp.MustCompile(`(?m)^services\s*:`)
	composeBodyRe = regexp.MustCompile(`(?m)^\s+(?:image|build)\s*:`)
	hostsRe       = regexp.MustCompile(`(?m)^\s*(?:-\s*)?hosts\s*:`)
	playRe        = regexp.MustCompile(`(?m)^\s*(?:-\s*)?(?:tasks|roles|handlers)\s*:`)
	imageRe       = regexp.MustCompile(`(?m)^\s*image\s*:`)
	repositoryRe  = regexp.MustCompile(`(?m)^\s*repository\s*:`)
)

// Candidate reports whether relPath has an extension infrastructure files use.
func Candidate(relPath string) bool {
	return candidateExts[strings.ToLower(path.Ext(relPath))]
}

// Detect sniffs the infrastructure kind of a file. It returns "" for files
// that only share an extension with infrastructure code, such as arbitrary
// JSON or YAML data. inChart marks files that sit next to a Chart.yaml.
func Detect(relPath, content string, inChart bool) string {
	base := strings.ToLower(path.Base(relPath))
	ext := path.Ext(base)
	switch ext {
	case ".tf", ".tfvars":
		return builtin.KindTerraform
	case ".yaml", ".yml", ".json", ".template":
	default:
		return ""
	}

	switch {
	case cfnRe.MatchString(content):
		return builtin.KindCloudFormation
	case apiVersionRe.MatchString(content) && kindRe.MatchString(content):
		return builtin.KindKubernetes
	case isComposeName(base) && servicesRe.MatchString(content) && composeBodyRe.MatchString(content):
		return builtin.KindCompose
	case hostsRe.MatchString(content) && playRe.MatchString(content):
		return builtin.KindAnsible
	case strings.HasPrefix(base, "values") && ext != ".json" &&
		(inChart || imageRe.MatchString(content) && repositoryRe.MatchString(content)):
		return builtin.KindHelm
	}
	return ""
}

func isComposeName(base string) bool {
	return strings.HasPrefix(base, "docker-compose") || strings.HasPrefix(base, "compose")
}
