package engine

import (
	"context"
	"io/fs"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/governable/piiscan/internal/extract"
	"github.com/governable/piiscan/internal/ignore"
)

// WalkConfig selects the files of a directory scan.
type WalkConfig struct {
	Root         string
	IncludeGlobs string
	ExcludeGlobs string
	// MaxBytes skips larger files; zero means no limit.
	MaxBytes        int64
	DefaultExcludes bool
}

// Walk traverses cfg.Root and invokes handle for each file the extract
// package can decode. Paths passed to handle are relative to the root and
// slash-separated. Plain-text files that look binary are skipped, as are
// paths matched by the root's .piiscanignore.
func Walk(ctx context.Context, cfg WalkConfig, handle func(path string, data []byte) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ign, _ := ignore.Load(filepath.Join(cfg.Root, ignore.FileName))
	return filepath.WalkDir(cfg.Root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			if p != cfg.Root && cfg.DefaultExcludes && isDefaultDirExcluded(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		rel, _ := filepath.Rel(cfg.Root, p)
		rel = filepath.ToSlash(rel)
		if !selected(rel, cfg) || ign.Match(rel) {
			return nil
		}
		if info, _ := d.Info(); info != nil && cfg.MaxBytes > 0 && info.Size() > cfg.MaxBytes {
			return nil
		}
		b, err := os.ReadFile(p)
		if err != nil {
			return nil
		}
		if extract.KindOf(rel) == extract.Plain && (looksBinary(b) || looksNonTextMIME(rel, b)) {
			return nil
		}
		return handle(rel, b)
	})
}

// selected applies extension support, default excludes and globs.
func selected(rel string, cfg WalkConfig) bool {
	if !extract.Supported(rel) {
		return false
	}
	if cfg.DefaultExcludes && isDefaultFileExcluded(strings.ToLower(rel)) {
		return false
	}
	return allowedByGlobs(rel, cfg.IncludeGlobs, cfg.ExcludeGlobs)
}

func looksBinary(b []byte) bool {
	const sniff = 800
	n := sniff
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if b[i] == 0 {
			return true
		}
	}
	return false
}

// looksNonTextMIME uses the extension and a header sniff to catch binary
// content saved under a text extension.
func looksNonTextMIME(path string, b []byte) bool {
	if ct := mime.TypeByExtension(filepath.Ext(path)); ct != "" {
		if strings.HasPrefix(ct, "image/") || strings.HasPrefix(ct, "video/") || strings.HasPrefix(ct, "audio/") {
			return true
		}
	}
	if len(b) >= 8 && string(b[:8]) == "\x89PNG\r\n\x1a\n" {
		return true
	}
	if len(b) >= 4 && b[0] == 'P' && b[1] == 'K' && b[2] == 3 && b[3] == 4 {
		return true
	}
	return false
}

// CountTargets returns how many files Walk would hand to a scan without
// reading them.
func CountTargets(cfg WalkConfig) (int, error) {
	ign, _ := ignore.Load(filepath.Join(cfg.Root, ignore.FileName))
	count := 0
	err := filepath.WalkDir(cfg.Root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if p != cfg.Root && cfg.DefaultExcludes && isDefaultDirExcluded(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		rel, _ := filepath.Rel(cfg.Root, p)
		rel = filepath.ToSlash(rel)
		if !selected(rel, cfg) || ign.Match(rel) {
			return nil
		}
		if info, _ := d.Info(); info != nil && cfg.MaxBytes > 0 && info.Size() > cfg.MaxBytes {
			return nil
		}
		count++
		return nil
	})
	return count, err
}
