package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"gopkg.in/yaml.v3"
)

func writeTemp(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	return p
}

func TestLoadFile_Basic(t *testing.T) {
	dir := t.TempDir()
	p := writeTemp(t, dir, "piiscan.yaml", `threads: 4
max_bytes: 123
fallback: false
min_score: 0.3
analyzer:
  url: http://localhost:5002
  timeout: 5s
cache:
  redis_url: redis://localhost:6379/0
  ttl: 1h
`)
	cfg, err := LoadFile(p)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.Threads == nil || *cfg.Threads != 4 {
		t.Fatalf("expected threads=4, got %#v", cfg.Threads)
	}
	if cfg.MaxBytes == nil || *cfg.MaxBytes != 123 {
		t.Fatalf("expected max_bytes=123, got %#v", cfg.MaxBytes)
	}
	if cfg.Fallback == nil || *cfg.Fallback {
		t.Fatalf("expected fallback=false to be set")
	}
	if cfg.Analyzer == nil || cfg.Analyzer.URL == nil || *cfg.Analyzer.URL != "http://localhost:5002" {
		t.Fatalf("expected analyzer.url, got %#v", cfg.Analyzer)
	}
	if got := cfg.AnalyzerTimeout(); got != 5*time.Second {
		t.Fatalf("expected analyzer timeout 5s, got %v", got)
	}
	if got := cfg.CacheTTL(); got != time.Hour {
		t.Fatalf("expected cache ttl 1h, got %v", got)
	}
	if cfg.Rules != nil {
		t.Fatalf("expected unset rules to stay nil")
	}
}

func TestLoadFile_Invalid(t *testing.T) {
	dir := t.TempDir()
	for name, body := range map[string]string{
		"score.yml":   "min_score: 2\n",
		"timeout.yml": "analyzer:\n  timeout: soon\n",
		"threads.yml": "threads: -1\n",
		"syntax.yml":  "threads: [\n",
	} {
		if _, err := LoadFile(writeTemp(t, dir, name, body)); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestLoadLocal_PrefersDotfile(t *testing.T) {
	dir := t.TempDir()
	// place both, expect the dotfile to be picked first by search order
	writeTemp(t, dir, "piiscan.yaml", "threads: 1\n")
	writeTemp(t, dir, ".piiscan.yaml", "threads: 7\n")
	cfg, err := LoadLocal(dir)
	if err != nil {
		t.Fatalf("LoadLocal: %v", err)
	}
	if cfg.Threads == nil || *cfg.Threads != 7 {
		t.Fatalf("expected threads=7 from .piiscan.yaml, got %#v", cfg.Threads)
	}
}

func TestLoadLocal_NoConfig(t *testing.T) {
	dir := t.TempDir()
	if _, err := LoadLocal(dir); err == nil {
		t.Fatal("expected error when no local config exists")
	}
}

func TestLoadGlobal_XDG_Config(t *testing.T) {
	dir := t.TempDir()
	cfgDir := filepath.Join(dir, "piiscan")
	if err := os.MkdirAll(cfgDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	p := filepath.Join(cfgDir, "config.yml")
	if err := os.WriteFile(p, []byte("threads: 9\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("XDG_CONFIG_HOME", dir)
	cfg, err := LoadGlobal()
	if err != nil {
		t.Fatalf("LoadGlobal: %v", err)
	}
	if cfg.Threads == nil || *cfg.Threads != 9 {
		t.Fatalf("expected threads=9 from global config, got %#v", cfg.Threads)
	}
}

func TestLoadGlobal_NoConfig(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "")
	t.Setenv("HOME", "")
	if _, err := LoadGlobal(); err == nil {
		t.Fatal("expected error when no global config dir exists")
	}
}

func TestStarterParses(t *testing.T) {
	var cfg FileConfig
	if err := yaml.Unmarshal([]byte(Starter), &cfg); err != nil {
		t.Fatalf("starter config does not parse: %v", err)
	}
	if err := cfg.validate(); err != nil {
		t.Fatalf("starter config invalid: %v", err)
	}
	if cfg.Server == nil || cfg.Server.Addr == nil || *cfg.Server.Addr != ":8080" {
		t.Fatalf("expected server.addr in starter, got %#v", cfg.Server)
	}
}
