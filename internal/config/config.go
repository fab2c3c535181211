// Package config loads .tatu.yml configuration: scanner toggles, ignore
// globs, severity thresholds, output settings and per-rule overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/garagon/tatu/internal/meta"
	"github.com/garagon/tatu/internal/rules"
)

// FileNames are the config file names looked up in the scan root, in order.
var FileNames = []string{".tatu.yml", ".tatu.yaml"}

// EnvPrefix prefixes environment overrides, e.g. TATU_SEVERITY=high or
// TATU_SCANNERS_DOCKER=false.
const EnvPrefix = "TATU"

const maxConfigSize = 1 << 20

// Scanners switches individual scanners on or off.
type Scanners struct {
	Secrets      bool `mapstructure:"secrets"`
	SAST         bool `mapstructure:"sast"`
	Dependencies bool `mapstructure:"dependencies"`
	IaC          bool `mapstructure:"iac"`
	Docker       bool `mapstructure:"docker"`
}

// Config represents the .tatu.yml configuration file.
type Config struct {
	Scanners      Scanners                 `mapstructure:"scanners"`
	Ignore        []string                 `mapstructure:"ignore"`
	Severity      string                   `mapstructure:"severity"`
	FailOn        string                   `mapstructure:"fail_on"`
	Format        string                   `mapstructure:"format"`
	Output        string                   `mapstructure:"output"`
	Rules         string                   `mapstructure:"rules"`
	RuleOverrides map[string]meta.Override `mapstructure:"rule_overrides"`

	// File is the config file that was read, empty when none was found.
	File string `mapstructure:"-"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		Scanners: Scanners{Secrets: true, SAST: true, Dependencies: true, IaC: true, Docker: true},
		Severity: "low",
		Format:   "terminal",
	}
}

// Enabled reports whether the named scanner family is switched on.
func (c Config) Enabled(scanner string) bool {
	switch scanner {
	case rules.ScannerSecrets:
		return c.Scanners.Secrets
	case rules.ScannerSAST:
		return c.Scanners.SAST
	case rules.ScannerDeps:
		return c.Scanners.Dependencies
	case rules.ScannerIaC:
		return c.Scanners.IaC
	case rules.ScannerDocker:
		return c.Scanners.Docker
	}
	return false
}

func newViper() *viper.Viper {
	defaults := Default()
	v := viper.New()
	v.SetDefault("scanners.secrets", defaults.Scanners.Secrets)
	v.SetDefault("scanners.sast", defaults.Scanners.SAST)
	v.SetDefault("scanners.dependencies", defaults.Scanners.Dependencies)
	v.SetDefault("scanners.iac", defaults.Scanners.IaC)
	v.SetDefault("scanners.docker", defaults.Scanners.Docker)
	v.SetDefault("ignore", []string{})
	v.SetDefault("severity", defaults.Severity)
	v.SetDefault("fail_on", "")
	v.SetDefault("format", defaults.Format)
	v.SetDefault("output", "")
	v.SetDefault("rules", "")

	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads .tatu.yml or .tatu.yaml from dir, layered over defaults and
// under TATU_* environment variables. If dir is a file, its parent directory
// is used. A missing config file is not an error.
func Load(dir string) (Config, error) {
	if info, err := os.Stat(dir); err == nil && !info.IsDir() {
		dir = filepath.Dir(dir)
	}
	v := newViper()

	var used string
	for _, name := range FileNames {
		path := filepath.Join(dir, name)
		info, err := os.Stat(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return Default(), fmt.Errorf("reading %s: %w", path, err)
		}
		if info.Size() > maxConfigSize {
			return Default(), fmt.Errorf("config file too large: %s (%d bytes, max 1 MB)", path, info.Size())
		}
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Default(), fmt.Errorf("parsing %s: %w", path, err)
		}
		used = path
		break
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Default(), fmt.Errorf("decoding config: %w", err)
	}
	cfg.File = used
	if err := meta.ValidateOverrides(cfg.RuleOverrides); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Template is the commented .tatu.yml written by `tatu init`.
const Template = `# tatu security scanner configuration
# https://github.com/garagon/tatu

# Scanners to run
scanners:
  secrets: true
  sast: true
  dependencies: true
  iac: true
  docker: true

# File patterns to ignore (in addition to .tatuignore)
ignore:
  - "*.min.js"
  - "fixtures/"

# Minimum severity to report: critical, high, medium, low, info
severity: low

# Exit with code 1 if findings at or above this severity
# fail_on: high

# Output format: terminal, json, sarif, markdown, html
format: terminal

# Additional rules directory
# rules: .tatu/rules/

# Per-rule overrides
# rule_overrides:
#   hardcoded-ip:
#     severity: info
#   debug-statement:
#     disabled: true
`
