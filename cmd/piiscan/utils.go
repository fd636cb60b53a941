package piiscan

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/governable/piiscan/internal/analyzer"
	"github.com/governable/piiscan/internal/cache"
	"github.com/governable/piiscan/internal/config"
	"github.com/governable/piiscan/internal/engine"
	"github.com/governable/piiscan/internal/logger"
	"github.com/governable/piiscan/internal/rules"
)

const defaultCacheTTL = time.Hour

// settings is the resolved view of flags, local config and global config.
type settings struct {
	rulesPath       string
	analyzerURL     string
	analyzerTimeout time.Duration
	rate            float64
	language        string
	entities        []string
	fallback        bool
	threads         int
	minScore        float64
	include         string
	exclude         string
	maxBytes        int64
	defaultExcludes bool
	noColor         bool
	addr            string
	maxUploadBytes  int64
	logLevel        string
	logFormat       string
	cache           bool
	redisURL        string
	cacheTTL        time.Duration
}

// loadConfigs returns the local and global file configs. An explicit
// --config replaces the local lookup under root.
func loadConfigs(root string) (local, global config.FileConfig, err error) {
	if c, gerr := config.LoadGlobal(); gerr == nil {
		global = c
	}
	if flagConfig != "" {
		local, err = config.LoadFile(flagConfig)
		return local, global, err
	}
	if c, lerr := config.LoadLocal(root); lerr == nil {
		local = c
	}
	return local, global, nil
}

// resolve applies CLI > local > global precedence.
func resolve(cmd *cobra.Command, local, global config.FileConfig) (settings, error) {
	la, ga := analyzerOf(local), analyzerOf(global)
	ls, gs := serverOf(local), serverOf(global)
	ll, gl := loggingOf(local), loggingOf(global)
	lc, gc := cacheOf(local), cacheOf(global)

	s := settings{
		rulesPath:       pickString(flagRules, local.Rules, global.Rules),
		analyzerURL:     pickString(flagAnalyzerURL, la.URL, ga.URL),
		rate:            pickFloat(0, la.Rate, ga.Rate),
		language:        pickString(flagLanguage, la.Language, ga.Language),
		entities:        splitList(pickString(flagEntities, la.Entities, ga.Entities)),
		fallback:        !pickBool(flagNoFallback, negate(local.Fallback), negate(global.Fallback)),
		threads:         pickInt(flagThreads, local.Threads, global.Threads),
		minScore:        pickFloat(flagMinScore, local.MinScore, global.MinScore),
		include:         pickString(flagInclude, local.Include, global.Include),
		exclude:         pickString(flagExclude, local.Exclude, global.Exclude),
		maxBytes:        pickInt64(flagMaxBytes, local.MaxBytes, global.MaxBytes),
		defaultExcludes: true,
		noColor:         pickBool(flagNoColor, local.NoColor, global.NoColor),
		addr:            pickString(flagAddr, ls.Addr, gs.Addr),
		maxUploadBytes:  pickInt64(flagMaxUpload, ls.MaxUploadBytes, gs.MaxUploadBytes),
		logLevel:        pickString(flagLogLevel, ll.Level, gl.Level),
		logFormat:       pickString(flagLogFormat, ll.Format, gl.Format),
		cache:           pickBool(false, lc.Enabled, gc.Enabled),
		redisURL:        pickString("", lc.RedisURL, gc.RedisURL),
	}
	if cmd != nil && cmd.Flags().Lookup("default-excludes") != nil && cmd.Flags().Changed("default-excludes") {
		s.defaultExcludes = flagDefaultExcludes
	} else if local.DefaultExcludes != nil {
		s.defaultExcludes = *local.DefaultExcludes
	} else if global.DefaultExcludes != nil {
		s.defaultExcludes = *global.DefaultExcludes
	}

	if flagAnalyzerTimeout != "" {
		d, err := time.ParseDuration(flagAnalyzerTimeout)
		if err != nil {
			return s, fmt.Errorf("--analyzer-timeout: %w", err)
		}
		s.analyzerTimeout = d
	} else if d := local.AnalyzerTimeout(); d > 0 {
		s.analyzerTimeout = d
	} else {
		s.analyzerTimeout = global.AnalyzerTimeout()
	}

	s.cacheTTL = local.CacheTTL()
	if s.cacheTTL == 0 {
		s.cacheTTL = global.CacheTTL()
	}
	if s.cacheTTL == 0 {
		s.cacheTTL = defaultCacheTTL
	}
	if s.minScore < 0 || s.minScore > 1 {
		return s, fmt.Errorf("--min-score %v outside [0,1]", s.minScore)
	}
	return s, nil
}

func newLogger(s settings, defaultLevel, defaultFormat string) (*logger.Logger, error) {
	lvl, format := s.logLevel, s.logFormat
	if lvl == "" {
		lvl = defaultLevel
	}
	if format == "" {
		format = defaultFormat
	}
	return logger.New(logger.Config{Level: lvl, Format: format})
}

// built is an engine with the pieces that need closing or probing.
type built struct {
	engine *engine.Engine
	http   *analyzer.HTTPAnalyzer
	store  cache.Store
}

func (b built) Close() {
	if b.store != nil {
		_ = b.store.Close()
	}
}

// buildEngine loads the rule set and wires the optional analyzer, wrapped in
// a result cache when enabled. A bad rule file is fatal.
func buildEngine(ctx context.Context, s settings, log *logger.Logger) (built, error) {
	var b built
	rs := rules.Default()
	if s.rulesPath != "" {
		var err error
		if rs, err = rules.Load(s.rulesPath); err != nil {
			return b, err
		}
	}

	var an analyzer.Analyzer
	if s.analyzerURL != "" {
		b.http = analyzer.NewHTTP(s.analyzerURL, analyzer.HTTPConfig{Language: s.language, RateLimit: s.rate})
		an = b.http
		if s.cache {
			if s.redisURL != "" {
				r, err := cache.NewRedis(ctx, s.redisURL, "piiscan:", log.WithComponent("cache").Logger)
				if err != nil {
					return b, err
				}
				b.store = r
			} else {
				b.store = cache.NewMemory(0)
			}
			an = analyzer.Cached(an, b.store, s.cacheTTL)
		}
	}

	opts := []engine.Option{
		engine.WithLogger(log.WithComponent("engine").Logger),
		engine.WithPatternFallback(s.fallback),
		engine.WithThreads(s.threads),
	}
	if s.analyzerTimeout > 0 {
		opts = append(opts, engine.WithAnalyzerTimeout(s.analyzerTimeout))
	}
	b.engine = engine.New(rs, an, opts...)
	log.Debug("engine ready",
		zap.String("rules", rs.Source()),
		zap.Int("rule_count", rs.Len()),
		zap.Bool("statistical", an != nil),
		zap.Bool("cache", b.store != nil),
	)
	return b, nil
}

// isTTY reports whether w is an interactive terminal.
func isTTY(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, strings.ToUpper(p))
		}
	}
	return out
}

func analyzerOf(fc config.FileConfig) config.AnalyzerConfig {
	if fc.Analyzer == nil {
		return config.AnalyzerConfig{}
	}
	return *fc.Analyzer
}

func serverOf(fc config.FileConfig) config.ServerConfig {
	if fc.Server == nil {
		return config.ServerConfig{}
	}
	return *fc.Server
}

func loggingOf(fc config.FileConfig) config.LoggingConfig {
	if fc.Logging == nil {
		return config.LoggingConfig{}
	}
	return *fc.Logging
}

func cacheOf(fc config.FileConfig) config.CacheConfig {
	if fc.Cache == nil {
		return config.CacheConfig{}
	}
	return *fc.Cache
}

func negate(b *bool) *bool {
	if b == nil {
		return nil
	}
	v := !*b
	return &v
}

func pickString(cli string, local, global *string) string {
	if cli != "" {
		return cli
	}
	if local != nil && *local != "" {
		return *local
	}
	if global != nil && *global != "" {
		return *global
	}
	return ""
}

func pickInt(cli int, local, global *int) int {
	if cli != 0 {
		return cli
	}
	if local != nil && *local != 0 {
		return *local
	}
	if global != nil && *global != 0 {
		return *global
	}
	return 0
}

func pickInt64(cli int64, local, global *int64) int64 {
	if cli != 0 {
		return cli
	}
	if local != nil && *local != 0 {
		return *local
	}
	if global != nil && *global != 0 {
		return *global
	}
	return 0
}

func pickFloat(cli float64, local, global *float64) float64 {
	if cli != 0 {
		return cli
	}
	if local != nil && *local != 0 {
		return *local
	}
	if global != nil && *global != 0 {
		return *global
	}
	return 0
}

func pickBool(cli bool, local, global *bool) bool {
	if cli {
		return true
	}
	if local != nil {
		return *local
	}
	if global != nil {
		return *global
	}
	return false
}
