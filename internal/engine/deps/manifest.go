package deps

import (
	"encoding/json"
	"fmt"
	"path"
	"regexp"
	"slices"
	"strings"

	"github.com/garagon/tatu/internal/engine/pattern"
	"github.com/garagon/tatu/internal/version"
	toml "github.com/pelletier/go-toml/v2"
	"golang.org/x/mod/modfile"
)

// Dependency is one declared or resolved package.
type Dependency struct {
	Ecosystem string
	Name      string
	Spec      string // as written in the file
	Version   string // installed version after stripping range qualifiers
	Line      int
}

// parser reads one manifest or lock file format.
type parser struct {
	ecosystem string
	lock      bool
	parse     func(content string) ([]Dependency, error)
}

// parserFor returns the parser for a file name, or false when the file is
// not a known manifest.
func parserFor(base string) (parser, bool) {
	switch {
	case base == "package.json":
		return parser{EcosystemNPM, false, parsePackageJSON}, true
	case base == "package-lock.json" || base == "npm-shrinkwrap.json":
		return parser{EcosystemNPM, true, parsePackageLock}, true
	case base == "Pipfile":
		return parser{EcosystemPyPI, false, parsePipfile}, true
	case base == "Pipfile.lock":
		return parser{EcosystemPyPI, true, parsePipfileLock}, true
	case base == "poetry.lock":
		return parser{EcosystemPyPI, true, parsePoetryLock}, true
	case strings.HasPrefix(base, "requirements") && path.Ext(base) == ".txt":
		return parser{EcosystemPyPI, false, parseRequirements}, true
	case base == "go.mod":
		return parser{EcosystemGo, false, parseGoMod}, true
	}
	return parser{}, false
}

func newDependency(ecosystem, name, spec string, line int) (Dependency, bool) {
	v, ok := version.FromSpec(spec)
	if !ok {
		return Dependency{}, false
	}
	return Dependency{Ecosystem: ecosystem, Name: name, Spec: spec, Version: v, Line: line}, true
}

// keyLine returns the first 1-based line whose trimmed text opens with the
// quoted JSON key, or 0.
func keyLine(lines []string, key string) int {
	quoted := `"` + key + `"`
	for i, l := range lines {
		rest, ok := strings.CutPrefix(strings.TrimSpace(l), quoted)
		if ok && strings.HasPrefix(strings.TrimSpace(rest), ":") {
			return i + 1
		}
	}
	return 0
}

func sortDeps(deps []Dependency) {
	slices.SortStableFunc(deps, func(a, b Dependency) int {
		if a.Line != b.Line {
			return a.Line - b.Line
		}
		return strings.Compare(a.Name, b.Name)
	})
}

// npm

func parsePackageJSON(content string) ([]Dependency, error) {
	var pkg struct {
		Dependencies         map[string]string `json:"dependencies"`
		DevDependencies      map[string]string `json:"devDependencies"`
		OptionalDependencies map[string]string `json:"optionalDependencies"`
	}
	if err := json.Unmarshal([]byte(content), &pkg); err != nil {
		return nil, fmt.Errorf("parse package.json: %w", err)
	}
	lines := pattern.SplitLines(content)
	var deps []Dependency
	for _, group := range []map[string]string{pkg.Dependencies, pkg.DevDependencies, pkg.OptionalDependencies} {
		for name, spec := range group {
			if d, ok := newDependency(EcosystemNPM, name, spec, keyLine(lines, name)); ok {
				deps = append(deps, d)
			}
		}
	}
	sortDeps(deps)
	return deps, nil
}

type lockV1Dep struct {
	Version      string               `json:"version"`
	Dependencies map[string]lockV1Dep `json:"dependencies"`
}

func parsePackageLock(content string) ([]Dependency, error) {
	var lock struct {
		Packages map[string]struct {
			Version string `json:"version"`
			Link    bool   `json:"link"`
		} `json:"packages"`
		Dependencies map[string]lockV1Dep `json:"dependencies"`
	}
	if err := json.Unmarshal([]byte(content), &lock); err != nil {
		return nil, fmt.Errorf("parse package-lock.json: %w", err)
	}
	lines := pattern.SplitLines(content)
	var deps []Dependency

	// lockfileVersion 2 and 3 key packages by install path
	if len(lock.Packages) > 0 {
		for key, p := range lock.Packages {
			i := strings.LastIndex(key, "node_modules/")
			if i < 0 || p.Link {
				continue
			}
			name := key[i+len("node_modules/"):]
			if d, ok := newDependency(EcosystemNPM, name, p.Version, keyLine(lines, key)); ok {
				deps = append(deps, d)
			}
		}
		sortDeps(deps)
		return deps, nil
	}

	var walk func(map[string]lockV1Dep)
	walk = func(m map[string]lockV1Dep) {
		for name, d := range m {
			if dep, ok := newDependency(EcosystemNPM, name, d.Version, keyLine(lines, name)); ok {
				deps = append(deps, dep)
			}
			walk(d.Dependencies)
		}
	}
	walk(lock.Dependencies)
	sortDeps(deps)
	return deps, nil
}

// pypi

var requirementRe = regexp.MustCompile(`^([A-Za-z0-9][A-Za-z0-9._-]*)\s*(?:\[[^\]]*\])?\s*(===|==|~=|>=|<=|!=|>|<)?\s*([^\s;,]*)`)

// parseRequirements reads pinned or lower-bounded requirement lines. Upper
// bounds and exclusions do not name an installed version and are skipped.
func parseRequirements(content string) ([]Dependency, error) {
	var deps []Dependency
	for i, line := range pattern.SplitLines(content) {
		if c := strings.Index(line, "#"); c >= 0 {
			line = line[:c]
		}
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "-") || strings.Contains(line, "://") {
			continue
		}
		m := requirementRe.FindStringSubmatch(line)
		if m == nil || m[3] == "" {
			continue
		}
		switch m[2] {
		case "<", "<=", "!=", "":
			continue
		}
		if d, ok := newDependency(EcosystemPyPI, m[1], m[2]+m[3], i+1); ok {
			deps = append(deps, d)
		}
	}
	return deps, nil
}

func parsePipfile(content string) ([]Dependency, error) {
	var pf struct {
		Packages    map[string]any `toml:"packages"`
		DevPackages map[string]any `toml:"dev-packages"`
	}
	if err := toml.Unmarshal([]byte(content), &pf); err != nil {
		return nil, fmt.Errorf("parse Pipfile: %w", err)
	}
	lines := pattern.SplitLines(content)
	var deps []Dependency
	for _, group := range []map[string]any{pf.Packages, pf.DevPackages} {
		for name, v := range group {
			var spec string
			switch v := v.(type) {
			case string:
				spec = v
			case map[string]any:
				spec, _ = v["version"].(string)
			}
			if spec == "" || spec == "*" {
				continue
			}
			if d, ok := newDependency(EcosystemPyPI, name, spec, tomlKeyLine(lines, name)); ok {
				deps = append(deps, d)
			}
		}
	}
	sortDeps(deps)
	return deps, nil
}

// tomlKeyLine returns the first line assigning key, quoted or bare.
func tomlKeyLine(lines []string, key string) int {
	for i, l := range lines {
		t := strings.TrimSpace(l)
		for _, k := range []string{key, `"` + key + `"`} {
			if rest, ok := strings.CutPrefix(t, k); ok && strings.HasPrefix(strings.TrimSpace(rest), "=") {
				return i + 1
			}
		}
	}
	return 0
}

func parsePipfileLock(content string) ([]Dependency, error) {
	var lock struct {
		Default map[string]struct {
			Version string `json:"version"`
		} `json:"default"`
		Develop map[string]struct {
			Version string `json:"version"`
		} `json:"develop"`
	}
	if err := json.Unmarshal([]byte(content), &lock); err != nil {
		return nil, fmt.Errorf("parse Pipfile.lock: %w", err)
	}
	lines := pattern.SplitLines(content)
	var deps []Dependency
	for name, p := range lock.Default {
		if d, ok := newDependency(EcosystemPyPI, name, p.Version, keyLine(lines, name)); ok {
			deps = append(deps, d)
		}
	}
	for name, p := range lock.Develop {
		if d, ok := newDependency(EcosystemPyPI, name, p.Version, keyLine(lines, name)); ok {
			deps = append(deps, d)
		}
	}
	sortDeps(deps)
	return deps, nil
}

func parsePoetryLock(content string) ([]Dependency, error) {
	var lock struct {
		Package []struct {
			Name    string `toml:"name"`
			Version string `toml:"version"`
		} `toml:"package"`
	}
	if err := toml.Unmarshal([]byte(content), &lock); err != nil {
		return nil, fmt.Errorf("parse poetry.lock: %w", err)
	}
	lines := pattern.SplitLines(content)
	var deps []Dependency
	for _, p := range lock.Package {
		line := slices.Index(lines, `name = "`+p.Name+`"`) + 1
		if d, ok := newDependency(EcosystemPyPI, p.Name, p.Version, line); ok {
			deps = append(deps, d)
		}
	}
	return deps, nil
}

// go

func parseGoMod(content string) ([]Dependency, error) {
	f, err := modfile.Parse("go.mod", []byte(content), nil)
	if err != nil {
		return nil, fmt.Errorf("parse go.mod: %w", err)
	}
	var deps []Dependency
	for _, req := range f.Require {
		line := 0
		if req.Syntax != nil {
			line = req.Syntax.Start.Line
		}
		if d, ok := newDependency(EcosystemGo, req.Mod.Path, req.Mod.Version, line); ok {
			deps = append(deps, d)
		}
	}
	return deps, nil
}
