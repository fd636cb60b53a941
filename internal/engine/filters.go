package engine

import (
	"path/filepath"
	"strings"

	doublestar "github.com/bmatcuk/doublestar/v4"
)

var defaultExcludeDirs = map[string]bool{
	".git":         true,
	"node_modules": true,
	"target":       true,
	"vendor":       true,
	"dist":         true,
	"build":        true,
	".venv":        true,
	"venv":         true,
	"__pycache__":  true,
	".idea":        true,
	".vscode":      true,
}

// generated or bundled text that is noisy to scan
var defaultExcludeFileSuffixes = []string{
	".min.js", ".map", ".pb.go", ".gen.go",
}

var defaultExcludeFileNames = map[string]bool{
	"package-lock.json": true,
	"pnpm-lock.yaml":    true,
	"yarn.lock":         true,
	"go.sum":            true,
}

func isDefaultDirExcluded(name string) bool {
	return defaultExcludeDirs[name] || strings.HasPrefix(name, ".git")
}

func isDefaultFileExcluded(lowerRel string) bool {
	for _, s := range defaultExcludeFileSuffixes {
		if strings.HasSuffix(lowerRel, s) {
			return true
		}
	}
	return defaultExcludeFileNames[filepath.Base(lowerRel)]
}

// allowedByGlobs reports whether relPath passes the comma-separated include
// and exclude lists. Includes, when given, are a positive filter; excludes
// are applied last. A glob matches either the full relative path or the base
// name.
func allowedByGlobs(relPath, include, exclude string) bool {
	rp := strings.ReplaceAll(relPath, "\\", "/")
	if inc := parseGlobsList(include); len(inc) > 0 && !matchAnyGlob(rp, inc) {
		return false
	}
	if exc := parseGlobsList(exclude); len(exc) > 0 && matchAnyGlob(rp, exc) {
		return false
	}
	return true
}

func parseGlobsList(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p, trimGlobPrefix(p))
		}
	}
	return out
}

func matchAnyGlob(pathToMatch string, globs []string) bool {
	for _, g := range globs {
		if ok, _ := doublestar.Match(g, pathToMatch); ok {
			return true
		}
		if ok, _ := doublestar.Match(g, filepath.Base(pathToMatch)); ok {
			return true
		}
	}
	return false
}

func trimGlobPrefix(g string) string {
	s := strings.TrimPrefix(g, "./")
	for strings.HasPrefix(s, "**/") {
		s = strings.TrimPrefix(s, "**/")
	}
	return s
}
