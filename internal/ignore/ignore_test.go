package ignore

import (
	"os"
	"path/filepath"
	"testing"
)

func TestIgnoreMatch(t *testing.T) {
	dir := t.TempDir()
	ig := filepath.Join(dir, FileName)
	content := "node_modules/\n*.csv\n# comment\n\nexports/*.parquet\n!exports/keep.parquet\nsecret.env\n"
	if err := os.WriteFile(ig, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	m, err := Load(ig)
	if err != nil {
		t.Fatal(err)
	}
	cases := map[string]bool{
		"node_modules/pkg/index.js": true,
		"node_modules":              false,
		"data/customers.csv":        true,
		"secret.env":                true,
		"conf/secret.env":           true,
		"exports/q1.parquet":        true,
		"exports/keep.parquet":      false,
		"nested/exports/q1.parquet": false,
		"src/app.go":                false,
	}
	for p, want := range cases {
		if got := m.Match(p); got != want {
			t.Fatalf("Match(%q)=%v want %v", p, got, want)
		}
	}
}

func TestLoad_Missing(t *testing.T) {
	m, err := Load(filepath.Join(t.TempDir(), FileName))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if m.Match("anything.txt") {
		t.Fatal("empty matcher must not match")
	}
}
