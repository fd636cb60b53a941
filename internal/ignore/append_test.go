package ignore

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestAppend_IdempotentAndCreates(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, FileName)
	if err := Append(dir, "exports/"); err != nil {
		t.Fatalf("Append: %v", err)
	}
	b, err := os.ReadFile(p)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(b) != "exports/\n" {
		t.Fatalf("unexpected content: %q", string(b))
	}
	if err := Append(dir, "exports/"); err != nil {
		t.Fatalf("Append second: %v", err)
	}
	b2, _ := os.ReadFile(p)
	if strings.Count(string(b2), "exports/") != 1 {
		t.Fatalf("expected single occurrence, got: %q", string(b2))
	}
}

func TestAppend_FixesMissingNewline(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, FileName)
	if err := os.WriteFile(p, []byte("*.csv"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := Append(dir, "logs/"); err != nil {
		t.Fatal(err)
	}
	m, err := Load(p)
	if err != nil {
		t.Fatal(err)
	}
	if !m.Match("a.csv") || !m.Match("logs/app.log") {
		t.Fatalf("expected both patterns active, file: %q", mustRead(t, p))
	}
}

func mustRead(t *testing.T, p string) string {
	t.Helper()
	b, _ := os.ReadFile(p)
	return string(b)
}
