package engine

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/governable/piiscan/internal/analyzer"
	"github.com/governable/piiscan/internal/detectors"
	"github.com/governable/piiscan/internal/merge"
	"github.com/governable/piiscan/internal/rules"
	"github.com/governable/piiscan/internal/score"
	"github.com/governable/piiscan/internal/types"
)

// DefaultAnalyzerTimeout bounds one statistical detector call.
const DefaultAnalyzerTimeout = 10 * time.Second

// ScanOptions narrow a single scan call.
type ScanOptions struct {
	// Entities restricts the statistical detector to these types. Pattern
	// rules always run.
	Entities []string
	// Language is passed to the statistical detector; empty uses its default.
	Language string
	// MinScore drops merged findings scoring below it.
	MinScore float64
}

// DetectionError is returned when the statistical detector fails and
// pattern fallback is disabled.
type DetectionError struct {
	Err error
}

func (e *DetectionError) Error() string { return "statistical detection failed: " + e.Err.Error() }

func (e *DetectionError) Unwrap() error { return e.Err }

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger. The default discards output.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// WithAnalyzerTimeout bounds each statistical detector call. Zero or less
// disables the bound; the caller's context still applies.
func WithAnalyzerTimeout(d time.Duration) Option {
	return func(e *Engine) { e.timeout = d }
}

// WithPatternFallback controls what happens when the statistical detector
// fails: true returns pattern-only reports marked degraded, false returns a
// *DetectionError.
func WithPatternFallback(on bool) Option {
	return func(e *Engine) { e.fallback = on }
}

// WithThreads bounds line-mode and multi-file parallelism.
func WithThreads(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.threads = n
		}
	}
}

// Engine combines a rule set and an optional statistical detector. Both are
// shared read-only, so an Engine is safe for concurrent use.
type Engine struct {
	rules    *rules.RuleSet
	an       analyzer.Analyzer
	log      *zap.Logger
	timeout  time.Duration
	fallback bool
	threads  int
}

// New builds an engine. A nil rule set behaves like rules.Empty(); a nil
// analyzer disables statistical detection, which is not treated as
// degradation.
func New(rs *rules.RuleSet, an analyzer.Analyzer, opts ...Option) *Engine {
	if rs == nil {
		rs = rules.Empty()
	}
	e := &Engine{
		rules:    rs,
		an:       an,
		log:      zap.NewNop(),
		timeout:  DefaultAnalyzerTimeout,
		fallback: true,
		threads:  runtime.GOMAXPROCS(0),
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Rules returns the engine's rule set.
func (e *Engine) Rules() *rules.RuleSet { return e.rules }

// Statistical reports whether a statistical detector is configured.
func (e *Engine) Statistical() bool { return e.an != nil }

// Scan analyzes text as one unit. Offsets in the report are byte offsets into
// text.
func (e *Engine) Scan(ctx context.Context, text string, so ScanOptions) (types.Report, error) {
	started := time.Now()
	rep, err := e.scan(ctx, text, so, false)
	if err != nil {
		return types.Report{}, err
	}
	e.log.Debug("scan complete",
		zap.Int("bytes", len(text)),
		zap.Int("findings", len(rep.Findings)),
		zap.Bool("degraded", rep.Degraded),
		zap.Duration("duration", time.Since(started)))
	return rep, nil
}

// ScanLines splits text on \n (dropping a trailing \r) and scans each
// non-empty line on its own. Offsets are relative to the line and Line is
// the 1-based line number. Lines are scanned in parallel; the report keeps
// line order. Once one line falls back to pattern rules, the statistical
// detector is skipped for the lines not yet started.
func (e *Engine) ScanLines(ctx context.Context, text string, so ScanOptions) (types.Report, error) {
	started := time.Now()
	lines := strings.Split(text, "\n")
	reps := make([]types.Report, len(lines))
	var down atomic.Bool

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.threads)
	for i, line := range lines {
		line = strings.TrimSuffix(line, "\r")
		if line == "" {
			continue
		}
		g.Go(func() error {
			rep, err := e.scan(gctx, line, so, down.Load())
			if err != nil {
				return err
			}
			if rep.Degraded {
				down.Store(true)
			}
			for j := range rep.Findings {
				rep.Findings[j].Line = i + 1
			}
			reps[i] = rep
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return types.Report{}, err
	}

	out := types.Report{Findings: []types.Finding{}}
	seen := map[string]bool{}
	for _, r := range reps {
		out.Findings = append(out.Findings, r.Findings...)
		out.Degraded = out.Degraded || r.Degraded
		for _, w := range r.Warnings {
			if !seen[w] {
				seen[w] = true
				out.Warnings = append(out.Warnings, w)
			}
		}
	}
	e.log.Debug("line scan complete",
		zap.Int("lines", len(lines)),
		zap.Int("findings", len(out.Findings)),
		zap.Bool("degraded", out.Degraded),
		zap.Duration("duration", time.Since(started)))
	return out, nil
}

// warnSkipped marks lines scanned after the statistical detector already
// failed earlier in the same call.
const warnSkipped = "statistical detector skipped after an earlier failure"

func (e *Engine) scan(ctx context.Context, text string, so ScanOptions, skipStat bool) (types.Report, error) {
	if err := ctx.Err(); err != nil {
		return types.Report{}, err
	}
	rep := types.Report{Findings: []types.Finding{}}
	if text == "" {
		return rep, nil
	}

	patc := make(chan []types.Finding, 1)
	go func() { patc <- score.Normalize(detectors.Detect(text, e.rules)) }()

	var stat []types.Finding
	var err error
	if skipStat && e.an != nil {
		rep.Degraded = true
		rep.Warnings = append(rep.Warnings, warnSkipped)
	} else {
		stat, err = e.statistical(ctx, text, so)
	}
	pattern := <-patc
	if err != nil {
		if ctx.Err() != nil {
			return types.Report{}, ctx.Err()
		}
		if !e.fallback {
			return types.Report{}, &DetectionError{Err: err}
		}
		e.log.Warn("statistical detector unavailable, using pattern rules only", zap.Error(err))
		rep.Degraded = true
		rep.Warnings = append(rep.Warnings, fmt.Sprintf("statistical detector unavailable: %v", err))
		stat = nil
	}

	for _, f := range merge.Merge(pattern, stat) {
		if f.Score < so.MinScore {
			continue
		}
		rep.Findings = append(rep.Findings, f)
	}
	return rep, nil
}

// errAnalyzerTimeout is reported when the analyzer does not answer within
// the configured timeout.
var errAnalyzerTimeout = errors.New("analyzer timed out")

func (e *Engine) statistical(ctx context.Context, text string, so ScanOptions) ([]types.Finding, error) {
	if e.an == nil {
		return nil, nil
	}
	actx, cancel := ctx, context.CancelFunc(func() {})
	if e.timeout > 0 {
		actx, cancel = context.WithTimeout(ctx, e.timeout)
	}
	defer cancel()

	type result struct {
		spans []analyzer.Span
		err   error
	}
	done := make(chan result, 1)
	go func() {
		spans, err := e.an.Analyze(actx, analyzer.Request{Text: text, Entities: so.Entities, Language: so.Language})
		done <- result{spans, err}
	}()

	var r result
	select {
	case r = <-done:
	case <-actx.Done():
		r.err = actx.Err()
	}
	if r.err != nil {
		if errors.Is(r.err, context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, fmt.Errorf("%w after %s", errAnalyzerTimeout, e.timeout)
		}
		return nil, r.err
	}

	spans := analyzer.Clean(r.spans, text)
	out := make([]types.Finding, 0, len(spans))
	for _, s := range spans {
		if !analyzer.Allowed(s.EntityType, so.Entities) {
			continue
		}
		out = append(out, types.Finding{
			EntityType:  s.EntityType,
			Start:       s.Start,
			End:         s.End,
			Score:       s.Score,
			MatchedText: text[s.Start:s.End],
			Source:      types.SourceStatistical,
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return types.Less(out[i], out[j]) })
	return out, nil
}
