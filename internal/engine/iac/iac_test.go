package iac_test

import (
	"context"
	"testing"

	"github.com/garagon/tatu/internal/engine/iac"
	"github.com/garagon/tatu/internal/rules"
	"github.com/garagon/tatu/internal/rules/builtin"
	"github.com/garagon/tatu/internal/scanner"
	"github.com/garagon/tatu/internal/types"
	"github.com/stretchr/testify/require"
)

func analyze(t *testing.T, files map[string]string) []types.Finding {
	t.Helper()
	s := iac.New(rules.MustCompileAll(builtin.IaC()))
	var targets []*scanner.Target
	for rel, content := range files {
		targets = append(targets, &scanner.Target{RelPath: rel, Content: []byte(content)})
	}
	findings, err := s.Analyze(context.Background(), targets)
	require.NoError(t, err)
	return findings
}

type hit struct {
	rule string
	line int
}

func hits(findings []types.Finding) []hit {
	out := make([]hit, 0, len(findings))
	for _, f := range findings {
		out = append(out, hit{f.RuleID, f.Line})
	}
	return out
}

func find(findings []types.Finding, id string) types.Finding {
	for _, f := range findings {
		if f.RuleID == id {
			return f
		}
	}
	return types.Finding{}
}

const mainTF = `resource "aws_security_group" "web" {
  ingress {
    from_port   = 22
    to_port     = 22
    cidr_blocks = ["0.0.0.0/0"]
  }
}

resource "aws_s3_bucket" "logs" {
  acl = "public-read"
}

resource "aws_db_instance" "db" {
  publicly_accessible = true
  storage_encrypted   = false
  password            = "Sup3rS3cret!"
}
# cidr_blocks = ["0.0.0.0/0"]
`

func TestTerraform(t *testing.T) {
	findings := analyze(t, map[string]string{"infra/main.tf": mainTF})
	require.ElementsMatch(t, []hit{
		{"open-security-group", 5},
		{"public-bucket-acl", 10},
		{"public-database", 14},
		{"unencrypted-storage", 15},
		{"plaintext-credential", 16},
	}, hits(findings))

	sg := find(findings, "open-security-group")
	require.Equal(t, types.SeverityCritical, sg.Severity)
	require.Equal(t, "CWE-284", sg.CWE)
	require.Equal(t, rules.ScannerIaC, sg.Scanner)
	require.Equal(t, "terraform", sg.Metadata["kind"])

	cred := find(findings, "plaintext-credential")
	require.NotContains(t, cred.Message, "Sup3rS3cret!")
	require.NotContains(t, cred.Snippet, "Sup3rS3cret!")
}

const manifests = `apiVersion: v1
kind: Namespace
metadata:
  name: shop
---
apiVersion: apps/v1
kind: Deployment
metadata:
  name: web
  namespace: shop
spec:
  template:
    spec:
      hostNetwork: true
      containers:
        - name: web
          image: nginx:latest
          securityContext:
            privileged: true
---
apiVersion: apps/v1
kind: Deployment
metadata:
  name: api
spec:
  template:
    spec:
      securityContext:
        runAsNonRoot: true
      containers:
        - name: api
          image: example/api:1.4.2
          readinessProbe:
            httpGet: {path: /healthz, port: 8080}
`

func TestKubernetesPatternsAndStructure(t *testing.T) {
	findings := analyze(t, map[string]string{"k8s/app.yaml": manifests})
	require.ElementsMatch(t, []hit{
		{"host-namespace", 14},
		{"latest-image-tag", 17},
		{"privileged-container", 19},
		{"k8s-namespace-network-policy", 2},
		{"k8s-missing-probes", 7},
	}, hits(findings))

	ns := find(findings, "k8s-namespace-network-policy")
	require.Equal(t, types.SeverityInfo, ns.Severity)
	require.Equal(t, "Namespace/shop", ns.Metadata["object"])
	require.Equal(t, 1, ns.Column)

	probes := find(findings, "k8s-missing-probes")
	require.Contains(t, probes.Message, "Deployment/web")
	require.Equal(t, "kind: Deployment", probes.Snippet)
}

func TestMissingSecurityContext(t *testing.T) {
	pod := `apiVersion: v1
kind: Pod
metadata:
  name: worker
spec:
  containers:
    - name: worker
      image: example/worker:2.0.0
      livenessProbe:
        exec: {command: [true]}
`
	job := `apiVersion: batch/v1
kind: CronJob
metadata:
  name: nightly
spec:
  jobTemplate:
    spec:
      template:
        spec:
          containers:
            - name: report
              image: example/report:1.0.0
`
	findings := analyze(t, map[string]string{"k8s/pod.yaml": pod, "k8s/cron.yaml": job})
	require.ElementsMatch(t, []hit{
		{"k8s-missing-security-context", 2},
		{"k8s-missing-security-context", 2},
	}, hits(findings))
}

func TestMalformedManifestSkipped(t *testing.T) {
	content := "apiVersion: v1\nkind: Namespace\nmetadata:\n  name: a\n---\napiVersion: v1\nkind: Pod\nspec: [unclosed\n"
	findings := analyze(t, map[string]string{"k8s/broken.yaml": content})
	require.Equal(t, []hit{{"k8s-namespace-network-policy", 2}}, hits(findings))
}

func TestManifestAfterMalformedDocument(t *testing.T) {
	content := `apiVersion: v1
kind: Pod
spec: [unclosed
---
apiVersion: apps/v1
kind: Deployment
metadata:
  name: api
spec:
  template:
    spec:
      securityContext:
        runAsNonRoot: true
      containers:
        - name: api
          image: example/api:1.4.2
`
	findings := analyze(t, map[string]string{"k8s/mixed.yaml": content})
	require.Equal(t, []hit{{"k8s-missing-probes", 6}}, hits(findings))
	require.Contains(t, findings[0].Message, "Deployment/api")
}

func TestComposeAnsibleHelm(t *testing.T) {
	findings := analyze(t, map[string]string{
		"docker-compose.yml": "services:\n  app:\n    image: myorg/app:latest\n    privileged: true\n    network_mode: host\n",
		"playbooks/site.yml": "- hosts: web\n  tasks:\n    - name: fetch\n      get_url:\n        url: https://example.com/x\n        validate_certs: no\n",
		"charts/shop/Chart.yaml":  "apiVersion: v2\nname: shop\nversion: 0.1.0\n",
		"charts/shop/values.yaml": "replicaCount: 1\nsecurityContext:\n  privileged: true\n",
	})
	got := make(map[string][]hit)
	for _, f := range findings {
		got[f.FilePath] = append(got[f.FilePath], hit{f.RuleID, f.Line})
	}
	require.ElementsMatch(t, []hit{{"latest-image-tag", 3}, {"privileged-container", 4}, {"host-namespace", 5}}, got["docker-compose.yml"])
	require.Equal(t, []hit{{"tls-validation-disabled", 6}}, got["playbooks/site.yml"])
	require.Equal(t, []hit{{"privileged-container", 3}}, got["charts/shop/values.yaml"])
	require.Empty(t, got["charts/shop/Chart.yaml"])
}

func TestUnrelatedDataFilesIgnored(t *testing.T) {
	findings := analyze(t, map[string]string{
		".github/workflows/ci.yml": "name: ci\non: push\njobs:\n  build:\n    runs-on: ubuntu-latest\n    env:\n      password: \"hunter2hunter\"\n",
		"package.json":             `{"name": "x", "privileged": true}`,
		"config/values.yaml":       "replicaCount: 1\nprivileged: true\n",
		"main.go":                  `var cfg = "cidr_blocks = [\"0.0.0.0/0\"]"`,
	})
	require.Empty(t, findings)
}

func TestDetect(t *testing.T) {
	tests := []struct {
		path, content string
		inChart       bool
		want          string
	}{
		{"infra/main.tf", "", false, builtin.KindTerraform},
		{"prod.tfvars", "region = \"us-east-1\"", false, builtin.KindTerraform},
		{"stack.json", `{"AWSTemplateFormatVersion": "2010-09-09"}`, false, builtin.KindCloudFormation},
		{"stack.yaml", "Resources:\n  Bucket:\n    Type: AWS::S3::Bucket\n", false, builtin.KindCloudFormation},
		{"k8s/pod.yaml", "apiVersion: v1\nkind: Pod\n", false, builtin.KindKubernetes},
		{"Chart.yaml", "apiVersion: v2\nname: shop\n", true, ""},
		{"charts/shop/values.yaml", "replicaCount: 1\n", true, builtin.KindHelm},
		{"values.yaml", "image:\n  repository: nginx\n", false, builtin.KindHelm},
		{"values.yaml", "replicaCount: 1\n", false, ""},
		{"compose.yaml", "services:\n  db:\n    image: postgres\n", false, builtin.KindCompose},
		{"services.yaml", "services:\n  db:\n    image: postgres\n", false, ""},
		{"site.yml", "- hosts: all\n  roles:\n    - common\n", false, builtin.KindAnsible},
		{"package.json", `{"name": "x"}`, false, ""},
		{"README.md", "apiVersion: v1\nkind: Pod\n", false, ""},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, iac.Detect(tt.path, tt.content, tt.inChart), tt.path)
	}
}

func TestDisabledStructuralRule(t *testing.T) {
	raws := rules.FilterByIDs(builtin.IaC(), map[string]bool{"k8s-namespace-network-policy": true})
	s := iac.New(rules.MustCompileAll(raws))
	findings := s.ScanContent("ns.yaml", builtin.KindKubernetes, "apiVersion: v1\nkind: Namespace\n")
	require.Empty(t, findings)
	require.Equal(t, len(builtin.IaC())-1, s.RuleCount())
}
