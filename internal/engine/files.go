package engine

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	xxhash "github.com/cespare/xxhash/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/governable/piiscan/internal/extract"
	"github.com/governable/piiscan/internal/types"
)

// FileOptions configure multi-file scans.
type FileOptions struct {
	ScanOptions
	// Lines selects line mode for every file.
	Lines bool
	// Progress, if set, is called once per file scanned or failed, never
	// concurrently.
	Progress func()
}

// FileResult is the outcome for one file. Err holds per-file problems such
// as an unsupported format; the report is empty when Err is set.
type FileResult struct {
	Path   string       `json:"path"`
	Hash   string       `json:"hash"`
	Report types.Report `json:"report"`
	Err    error        `json:"-"`
}

// Result collects a multi-file scan.
type Result struct {
	Files        []FileResult
	FilesScanned int
	Duration     time.Duration
}

// FindingCount is the number of findings across all files.
func (r Result) FindingCount() int {
	n := 0
	for _, f := range r.Files {
		n += len(f.Report.Findings)
	}
	return n
}

// Degraded reports whether any file was scanned without the statistical
// detector.
func (r Result) Degraded() bool {
	for _, f := range r.Files {
		if f.Report.Degraded {
			return true
		}
	}
	return false
}

// ScanDocument decodes raw according to name and scans the text.
func (e *Engine) ScanDocument(ctx context.Context, name string, raw []byte, so ScanOptions, lines bool) (types.Report, error) {
	text, err := extract.Text(raw, name)
	if err != nil {
		return types.Report{}, err
	}
	if lines {
		return e.ScanLines(ctx, text, so)
	}
	return e.Scan(ctx, text, so)
}

// ScanPaths scans the named files concurrently. Unreadable or undecodable
// files are reported per file; a detection error or cancellation aborts the
// whole scan.
func (e *Engine) ScanPaths(ctx context.Context, paths []string, fo FileOptions) (Result, error) {
	started := time.Now()
	c := e.collector(ctx, fo)
	for _, p := range paths {
		b, err := os.ReadFile(p)
		if err != nil {
			c.fail(p, err)
			continue
		}
		c.submit(p, b)
	}
	return c.wait(started)
}

// ScanDir walks cfg.Root and scans every selected file.
func (e *Engine) ScanDir(ctx context.Context, cfg WalkConfig, fo FileOptions) (Result, error) {
	started := time.Now()
	c := e.collector(ctx, fo)
	err := Walk(c.ctx, cfg, func(rel string, data []byte) error {
		c.submit(rel, data)
		return nil
	})
	res, werr := c.wait(started)
	if werr != nil {
		return res, werr
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		return res, err
	}
	return res, nil
}

type collector struct {
	e   *Engine
	fo  FileOptions
	ctx context.Context
	g   *errgroup.Group

	mu    sync.Mutex
	files []FileResult
}

func (e *Engine) collector(ctx context.Context, fo FileOptions) *collector {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.threads)
	return &collector{e: e, fo: fo, ctx: gctx, g: g}
}

func (c *collector) add(fr FileResult) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.files = append(c.files, fr)
	if c.fo.Progress != nil {
		c.fo.Progress()
	}
}

func (c *collector) fail(path string, err error) {
	c.e.log.Warn("skipping file", zap.String("path", path), zap.Error(err))
	c.add(FileResult{Path: filepath.ToSlash(path), Err: err})
}

func (c *collector) submit(path string, data []byte) {
	c.g.Go(func() error {
		rep, err := c.e.ScanDocument(c.ctx, path, data, c.fo.ScanOptions, c.fo.Lines)
		if err != nil {
			var ue *extract.UnsupportedFormatError
			if errors.As(err, &ue) {
				c.fail(path, err)
				return nil
			}
			return err
		}
		c.add(FileResult{Path: filepath.ToSlash(path), Hash: fastHash(data), Report: rep})
		return nil
	})
}

func (c *collector) wait(started time.Time) (Result, error) {
	err := c.g.Wait()
	sort.Slice(c.files, func(i, j int) bool { return c.files[i].Path < c.files[j].Path })
	res := Result{Files: c.files, Duration: time.Since(started)}
	for _, f := range c.files {
		if f.Err == nil {
			res.FilesScanned++
		}
	}
	return res, err
}

// fastHash fingerprints file content so reports can tell unchanged files
// apart between runs.
func fastHash(b []byte) string {
	if len(b) == 0 {
		return "0000000000000000"
	}
	sum := xxhash.Sum64(b)
	var buf [16]byte
	const hex = "0123456789abcdef"
	for i := 15; i >= 0; i-- {
		buf[i] = hex[sum&0xF]
		sum >>= 4
	}
	return string(buf[:])
}
