package engine

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/governable/piiscan/internal/rules"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		p := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0644))
	}
	return dir
}

func walked(t *testing.T, cfg WalkConfig) []string {
	t.Helper()
	var got []string
	err := Walk(context.Background(), cfg, func(path string, _ []byte) error {
		got = append(got, path)
		return nil
	})
	require.NoError(t, err)
	sort.Strings(got)
	return got
}

func TestWalk_SelectsSupportedText(t *testing.T) {
	dir := writeTree(t, map[string]string{
		"a.txt":                   "hello",
		"b.go":                    "package main\n",
		"c.md":                    "doc",
		"d.png":                   "\x89PNG\r\n\x1a\n....",
		"e.bin":                   "whatever",
		"f.log":                   "nul\x00byte",
		"node_modules/x/index.js": "var a = 1",
		"data/people.csv":         "a,b",
		"data/.piiscanignore-not": "x",
		"vendor/lib/readme.md":    "vendored",
		"web/app.min.js":          "minified",
		"package-lock.json":       "{}",
	})
	got := walked(t, WalkConfig{Root: dir, DefaultExcludes: true})
	assert.Equal(t, []string{"a.txt", "b.go", "c.md", "data/people.csv"}, got)

	got = walked(t, WalkConfig{Root: dir})
	assert.Contains(t, got, "node_modules/x/index.js")
	assert.Contains(t, got, "package-lock.json")
	assert.NotContains(t, got, "f.log")
}

func TestWalk_WithIncludeExcludeGlobs(t *testing.T) {
	dir := writeTree(t, map[string]string{"a.txt": "hello", "b.go": "package main\n", "c.md": "doc"})

	assert.Equal(t, []string{"b.go"}, walked(t, WalkConfig{Root: dir, IncludeGlobs: "**/*.go"}))
	assert.Equal(t, []string{"a.txt", "b.go"}, walked(t, WalkConfig{Root: dir, ExcludeGlobs: "**/*.md"}))
}

func TestWalk_IgnoreFileAndMaxBytes(t *testing.T) {
	dir := writeTree(t, map[string]string{
		".piiscanignore": "exports/\n",
		"exports/q1.csv": "a,b",
		"big.txt":        "0123456789",
		"small.txt":      "01",
	})
	assert.Equal(t, []string{"small.txt"}, walked(t, WalkConfig{Root: dir, MaxBytes: 5}))

	n, err := CountTargets(WalkConfig{Root: dir, MaxBytes: 5})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestScanDir(t *testing.T) {
	dir := writeTree(t, map[string]string{
		"notes.txt":        "reach me at jane@example.com",
		"clean.md":         "nothing here",
		"sub/contacts.csv": "name,email\nJohn,john@example.com\n",
		"broken.docx":      "not a zip",
	})
	var progress int
	e := New(rules.Default(), nil, WithThreads(2))
	res, err := e.ScanDir(context.Background(), WalkConfig{Root: dir}, FileOptions{Progress: func() { progress++ }})
	require.NoError(t, err)

	require.Len(t, res.Files, 4)
	assert.Equal(t, 4, progress)
	assert.Equal(t, 3, res.FilesScanned)
	assert.Equal(t, 2, res.FindingCount())
	assert.False(t, res.Degraded())

	byPath := map[string]FileResult{}
	for _, f := range res.Files {
		byPath[f.Path] = f
	}
	assert.Error(t, byPath["broken.docx"].Err)
	require.Len(t, byPath["notes.txt"].Report.Findings, 1)
	assert.Len(t, byPath["notes.txt"].Hash, 16)
}

func TestScanPaths_LinesAndMissing(t *testing.T) {
	dir := writeTree(t, map[string]string{"a.txt": "first\nsecond jane@example.com"})
	e := New(rules.Default(), nil)
	res, err := e.ScanPaths(context.Background(),
		[]string{filepath.Join(dir, "a.txt"), filepath.Join(dir, "missing.txt")},
		FileOptions{Lines: true})
	require.NoError(t, err)
	require.Len(t, res.Files, 2)
	assert.Equal(t, 1, res.FilesScanned)
	for _, f := range res.Files {
		if f.Err != nil {
			continue
		}
		require.Len(t, f.Report.Findings, 1)
		assert.Equal(t, 2, f.Report.Findings[0].Line)
	}
}

func TestAllowedByGlobs(t *testing.T) {
	assert.True(t, allowedByGlobs("src/a.go", "", ""))
	assert.True(t, allowedByGlobs("src/a.go", "**/*.go", ""))
	assert.True(t, allowedByGlobs("src/a.go", "*.go", ""))
	assert.False(t, allowedByGlobs("src/a.go", "*.py", ""))
	assert.False(t, allowedByGlobs("src/a.go", "", "src/**"))
}

func TestFastHash(t *testing.T) {
	assert.Equal(t, "0000000000000000", fastHash(nil))
	assert.Equal(t, fastHash([]byte("x")), fastHash([]byte("x")))
	assert.NotEqual(t, fastHash([]byte("x")), fastHash([]byte("y")))
}
