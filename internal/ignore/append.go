package ignore

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
)

// Append ensures pattern is present in root's ignore file, creating the file
// if missing. Idempotent.
func Append(root, pattern string) error {
	pattern = strings.TrimSpace(pattern)
	if pattern == "" {
		return nil
	}
	p := filepath.Join(root, FileName)
	existing := map[string]bool{}
	endsWithNewline := true
	if b, err := os.ReadFile(p); err == nil {
		sc := bufio.NewScanner(strings.NewReader(string(b)))
		for sc.Scan() {
			existing[strings.TrimSpace(sc.Text())] = true
		}
		endsWithNewline = len(b) == 0 || b[len(b)-1] == '\n'
	}
	if existing[pattern] {
		return nil
	}
	f, err := os.OpenFile(p, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer f.Close()
	if !endsWithNewline {
		pattern = "\n" + pattern
	}
	_, err = f.WriteString(pattern + "\n")
	return err
}

// DefaultDataIgnores are bulky generated paths that rarely hold personal
// data worth scanning.
func DefaultDataIgnores() []string {
	return []string{
		"*.min.js",
		"**/testdata/golden/**",
	}
}
