package core

import (
	"context"
	"sync"

	"github.com/governable/piiscan/internal/analyzer"
	"github.com/governable/piiscan/internal/engine"
	"github.com/governable/piiscan/internal/rules"
	"github.com/governable/piiscan/internal/types"
)

// Re-export selected internal types as a stable public API surface.
type (
	Finding     = types.Finding
	Report      = types.Report
	Source      = types.Source
	RuleSet     = rules.RuleSet
	RuleSpec    = rules.Spec
	ConfigError = rules.ConfigError

	Engine         = engine.Engine
	Option         = engine.Option
	ScanOptions    = engine.ScanOptions
	DetectionError = engine.DetectionError

	Analyzer        = analyzer.Analyzer
	AnalyzerRequest = analyzer.Request
	Span            = analyzer.Span
	HTTPConfig      = analyzer.HTTPConfig
)

const (
	SourcePattern     = types.SourcePattern
	SourceStatistical = types.SourceStatistical
)

// Engine options.
var (
	WithLogger          = engine.WithLogger
	WithAnalyzerTimeout = engine.WithAnalyzerTimeout
	WithPatternFallback = engine.WithPatternFallback
	WithThreads         = engine.WithThreads
)

// DefaultRules returns the built-in pattern rules.
func DefaultRules() *RuleSet { return rules.Default() }

// LoadRules reads a YAML or JSON rule file.
func LoadRules(path string) (*RuleSet, error) { return rules.Load(path) }

// RulesFromMap compiles label → pattern pairs.
func RulesFromMap(patterns map[string]string) (*RuleSet, error) { return rules.FromMap(patterns) }

// NewHTTPAnalyzer returns a client for a Presidio-compatible analyzer service.
func NewHTTPAnalyzer(baseURL string, cfg HTTPConfig) Analyzer { return analyzer.NewHTTP(baseURL, cfg) }

// NewEngine builds a detection engine. A nil analyzer scans with pattern
// rules only.
func NewEngine(rs *RuleSet, an Analyzer, opts ...Option) *Engine { return engine.New(rs, an, opts...) }

var (
	defaultOnce   sync.Once
	defaultEngine *Engine
)

// Scan runs the built-in pattern rules over text.
func Scan(ctx context.Context, text string) (Report, error) {
	defaultOnce.Do(func() { defaultEngine = engine.New(rules.Default(), nil) })
	return defaultEngine.Scan(ctx, text, ScanOptions{})
}
