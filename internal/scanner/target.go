package scanner

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
)

// maxFileSize skips generated or vendored blobs that no rule is written for.
const maxFileSize = 5 << 20

// IgnoreFile is the per-project ignore list read from the scan root.
const IgnoreFile = ".tatuignore"

// DefaultIgnoredDirs are never descended into.
var DefaultIgnoredDirs = []string{
	".git", "node_modules", "vendor", "dist", "build", "coverage",
	".next", ".nuxt", "__pycache__", ".venv", "venv", ".terraform", ".tatu",
}

// Target represents a file to be scanned.
type Target struct {
	Path    string // absolute or root-joined path on disk
	RelPath string // slash-separated, relative to the scan root
	Content []byte // preloaded content; nil means read from Path
}

// Read returns the file content. It never caches into the target, so
// concurrent scanners can share one target list.
func (t *Target) Read() ([]byte, error) {
	if t.Content != nil {
		return t.Content, nil
	}
	return os.ReadFile(t.Path)
}

// Base returns the file name of the target.
func (t *Target) Base() string {
	return filepath.Base(filepath.FromSlash(t.RelPath))
}

// Dir returns the slash-separated directory of the target relative to the root.
func (t *Target) Dir() string {
	dir := filepath.ToSlash(filepath.Dir(filepath.FromSlash(t.RelPath)))
	if dir == "." {
		return ""
	}
	return dir
}

// TargetDiscovery walks a directory and returns scannable targets.
type TargetDiscovery struct {
	IgnorePatterns []string
}

// Discover walks root and returns all targets, respecting .tatuignore.
func (td *TargetDiscovery) Discover(root string) ([]*Target, error) {
	td.loadIgnoreFile(root)

	skipDirs := make(map[string]bool, len(DefaultIgnoredDirs))
	for _, d := range DefaultIgnoredDirs {
		skipDirs[d] = true
	}

	var targets []*Target
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // skip inaccessible files
		}
		if info.IsDir() {
			if path != root && skipDirs[info.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		if !info.Mode().IsRegular() || info.Size() > maxFileSize {
			return nil
		}
		// skip binary/large files by extension
		if isBinaryExt(path) {
			return nil
		}
		relPath, err := filepath.Rel(root, path)
		if err != nil {
			return nil
		}
		relPath = filepath.ToSlash(relPath)
		if td.isIgnored(relPath) {
			return nil
		}
		targets = append(targets, &Target{
			Path:    path,
			RelPath: relPath,
		})
		return nil
	})
	return targets, err
}

// TargetsFromPaths builds targets for root-relative paths, dropping ones
// that are missing, ignored or binary. Used for changed-files scans.
func (td *TargetDiscovery) TargetsFromPaths(root string, relPaths []string) []*Target {
	td.loadIgnoreFile(root)
	var targets []*Target
	for _, rel := range relPaths {
		rel = filepath.ToSlash(rel)
		if isBinaryExt(rel) || td.isIgnored(rel) || inIgnoredDir(rel) {
			continue
		}
		path := filepath.Join(root, filepath.FromSlash(rel))
		info, err := os.Stat(path)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		targets = append(targets, &Target{Path: path, RelPath: rel})
	}
	return targets
}

func inIgnoredDir(relPath string) bool {
	parts := strings.Split(relPath, "/")
	for _, p := range parts[:len(parts)-1] {
		for _, d := range DefaultIgnoredDirs {
			if p == d {
				return true
			}
		}
	}
	return false
}

func (td *TargetDiscovery) loadIgnoreFile(root string) {
	f, err := os.Open(filepath.Join(root, IgnoreFile))
	if err != nil {
		return
	}
	defer f.Close()
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" && !strings.HasPrefix(line, "#") {
			td.IgnorePatterns = append(td.IgnorePatterns, line)
		}
	}
}

func (td *TargetDiscovery) isIgnored(relPath string) bool {
	for _, pattern := range td.IgnorePatterns {
		if matchGlob(pattern, relPath) {
			return true
		}
	}
	return false
}

// matchGlob supports ** globs that filepath.Match does not.
// "dir/**" matches any file under dir/ at any depth.
// "**/*.yaml" matches any .yaml file at any depth.
func matchGlob(pattern, relPath string) bool {
	pattern = strings.TrimSuffix(pattern, "/")
	// Fast path: no ** means filepath.Match is sufficient
	if !strings.Contains(pattern, "**") {
		if matched, _ := filepath.Match(pattern, relPath); matched {
			return true
		}
		if matched, _ := filepath.Match(pattern, filepath.Base(relPath)); matched {
			return true
		}
		// a bare directory name ignores everything beneath it
		return strings.HasPrefix(relPath, pattern+"/")
	}

	// "prefix/**" → match anything under prefix/
	if strings.HasSuffix(pattern, "/**") {
		prefix := strings.TrimSuffix(pattern, "/**")
		if strings.HasPrefix(relPath, prefix+"/") || relPath == prefix {
			return true
		}
	}

	// "**/<glob>" → match <glob> against every path suffix
	if strings.HasPrefix(pattern, "**/") {
		suffix := strings.TrimPrefix(pattern, "**/")
		parts := strings.Split(relPath, "/")
		for i := range parts {
			candidate := strings.Join(parts[i:], "/")
			if matched, _ := filepath.Match(suffix, candidate); matched {
				return true
			}
		}
	}

	// "prefix/**/suffix" → prefix matches start, suffix matches rest
	if idx := strings.Index(pattern, "/**/"); idx >= 0 {
		prefix := pattern[:idx]
		suffix := pattern[idx+4:]
		if strings.HasPrefix(relPath, prefix+"/") {
			rest := strings.TrimPrefix(relPath, prefix+"/")
			parts := strings.Split(rest, "/")
			for i := range parts {
				candidate := strings.Join(parts[i:], "/")
				if matched, _ := filepath.Match(suffix, candidate); matched {
					return true
				}
			}
		}
	}

	return false
}

var binaryExts = map[string]bool{
	".exe": true, ".dll": true, ".so": true, ".dylib": true,
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true,
	".ico": true, ".webp": true, ".woff": true, ".woff2": true,
	".ttf": true, ".eot": true, ".zip": true, ".tar": true,
	".gz": true, ".bz2": true, ".xz": true, ".7z": true,
	".pdf": true, ".mp3": true, ".mp4": true, ".avi": true,
	".mov": true, ".bin": true, ".o": true, ".a": true,
	".class": true, ".jar": true, ".pyc": true, ".wasm": true,
}

func isBinaryExt(path string) bool {
	return binaryExts[strings.ToLower(filepath.Ext(path))]
}

// IsBinaryExt reports whether path has a known binary extension.
func IsBinaryExt(path string) bool {
	return isBinaryExt(path)
}
