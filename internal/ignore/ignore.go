// Package ignore reads .piiscanignore files: gitignore-style path patterns
// excluded from directory scans.
package ignore

import (
	"bufio"
	"bytes"
	"os"
	"path"
	"strings"

	doublestar "github.com/bmatcuk/doublestar/v4"
)

// FileName is the ignore file looked up at the scan root.
const FileName = ".piiscanignore"

type rule struct {
	glob    string
	dirOnly bool
	negate  bool
	// anchored rules contain a slash and match from the root only.
	anchored bool
}

// Matcher matches slash-separated paths relative to the scan root. The zero
// value matches nothing.
type Matcher struct {
	rules []rule
}

// Load reads patterns from path. A missing file yields an empty matcher and
// the read error.
func Load(p string) (Matcher, error) {
	b, err := os.ReadFile(p)
	if err != nil {
		return Matcher{}, err
	}
	return Parse(b), nil
}

// Parse builds a matcher from ignore-file content. Blank lines and lines
// starting with # are skipped; a leading ! re-includes a path.
func Parse(b []byte) Matcher {
	var m Matcher
	sc := bufio.NewScanner(bytes.NewReader(b))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		var r rule
		if strings.HasPrefix(line, "!") {
			r.negate = true
			line = line[1:]
		}
		if strings.HasSuffix(line, "/") {
			r.dirOnly = true
			line = strings.TrimSuffix(line, "/")
		}
		if strings.HasPrefix(line, "/") || strings.Contains(line, "/") {
			r.anchored = true
			line = strings.TrimPrefix(line, "/")
		}
		if line == "" || !doublestar.ValidatePattern(line) {
			continue
		}
		r.glob = line
		m.rules = append(m.rules, r)
	}
	return m
}

// Match reports whether rel is ignored. The last matching rule wins.
func (m Matcher) Match(rel string) bool {
	rel = strings.TrimPrefix(strings.ReplaceAll(rel, "\\", "/"), "./")
	ignored := false
	for _, r := range m.rules {
		if r.matches(rel) {
			ignored = !r.negate
		}
	}
	return ignored
}

func (r rule) matches(rel string) bool {
	// A rule naming a directory matches everything below it.
	dirs := parents(rel)
	if !r.dirOnly && r.match(rel) {
		return true
	}
	for _, d := range dirs {
		if r.match(d) {
			return true
		}
	}
	return false
}

func (r rule) match(p string) bool {
	if r.anchored {
		ok, _ := doublestar.Match(r.glob, p)
		return ok
	}
	ok, _ := doublestar.Match(r.glob, path.Base(p))
	return ok
}

// parents returns the directory prefixes of rel, shortest first.
func parents(rel string) []string {
	var out []string
	for i := 0; i < len(rel); i++ {
		if rel[i] == '/' {
			out = append(out, rel[:i])
		}
	}
	return out
}
