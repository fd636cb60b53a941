package piiscan

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/governable/piiscan/internal/report"
)

var (
	flagJSON       bool
	flagSARIF      bool
	flagThreads    int
	flagNoColor    bool
	flagMinScore   float64
	flagRules      string
	flagConfig     string
	flagLogLevel   string
	flagLogFormat  string
	flagNoFallback bool

	flagAnalyzerURL     string
	flagAnalyzerTimeout string
	flagEntities        string
	flagLanguage        string

	version = "0.1.0"
)

// errPIIFound makes `scan --fail` exit with status 1.
var errPIIFound = errors.New("pii found")

// rootCmd is the base Cobra command for the piiscan CLI.
var rootCmd = &cobra.Command{
	Use:           "piiscan",
	Short:         "Find personal data in text and documents",
	Long:          "piiscan combines pattern rules with a statistical entity recognizer and reports ranked, deduplicated PII findings.",
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the piiscan CLI. It should be called by the main package.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		if errors.Is(err, errPIIFound) {
			os.Exit(1)
		}
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(2)
	}
}

func init() {
	report.Version = version

	pf := rootCmd.PersistentFlags()
	pf.BoolVar(&flagJSON, "json", false, "emit JSON")
	pf.BoolVar(&flagSARIF, "sarif", false, "emit SARIF 2.1.0")
	pf.IntVar(&flagThreads, "threads", 0, "worker count (0 = GOMAXPROCS)")
	pf.BoolVar(&flagNoColor, "no-color", false, "disable colorized output")
	pf.Float64Var(&flagMinScore, "min-score", 0.0, "only report findings with score >= value (0-1)")
	pf.StringVar(&flagRules, "rules", "", "pattern rule file (YAML or JSON); built-in rules when unset")
	pf.StringVar(&flagConfig, "config", "", "config file; replaces the local .piiscan.yml lookup")
	pf.StringVar(&flagLogLevel, "log-level", "", "log level: debug|info|warn|error")
	pf.StringVar(&flagLogFormat, "log-format", "", "log format: json|console")
	pf.BoolVar(&flagNoFallback, "no-fallback", false, "fail instead of reporting pattern-only results when the analyzer is down")
	pf.StringVar(&flagAnalyzerURL, "analyzer-url", "", "base URL of a Presidio-compatible analyzer (unset = patterns only)")
	pf.StringVar(&flagAnalyzerTimeout, "analyzer-timeout", "", "per-call analyzer timeout (e.g. 5s)")
	pf.StringVar(&flagEntities, "entities", "", "comma-separated entity types for the analyzer")
	pf.StringVar(&flagLanguage, "language", "", "analyzer language (default en)")
	registerFlagCompletions()
}
