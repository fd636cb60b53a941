package piiscan

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/governable/piiscan/internal/engine"
	"github.com/governable/piiscan/internal/extract"
	"github.com/governable/piiscan/internal/report"
	"github.com/governable/piiscan/internal/tui"
)

var (
	flagPath            string
	flagStdin           bool
	flagStdinName       string
	flagLines           bool
	flagInclude         string
	flagExclude         string
	flagMaxBytes        int64
	flagDefaultExcludes bool
	flagTable           bool
	flagText            bool
	flagFail            bool
	flagTUI             bool
)

const defaultMaxBytes = 10 << 20

func init() {
	cmd := &cobra.Command{
		Use:   "scan [files...]",
		Short: "Scan files, a directory or stdin for PII",
		Example: `  piiscan scan notes.txt customers.csv
  piiscan scan -p ./exports --include "**/*.csv" --json
  cat mail.txt | piiscan scan --stdin --lines --fail
  piiscan scan --lines --tui export.csv`,
		RunE: runScan,
	}
	rootCmd.AddCommand(cmd)

	cmd.Flags().StringVarP(&flagPath, "path", "p", ".", "directory to scan when no files are given")
	cmd.Flags().BoolVar(&flagStdin, "stdin", false, "read the document from stdin")
	cmd.Flags().StringVar(&flagStdinName, "stdin-name", "stdin.txt", "file name used to pick the stdin format (e.g. data.csv)")
	cmd.Flags().BoolVar(&flagLines, "lines", false, "scan line by line; offsets are relative to each line")
	cmd.Flags().StringVar(&flagInclude, "include", "", "comma-separated include globs")
	cmd.Flags().StringVar(&flagExclude, "exclude", "", "comma-separated exclude globs")
	cmd.Flags().Int64Var(&flagMaxBytes, "max-bytes", 0, "skip files larger than this (default 10MiB)")
	cmd.Flags().BoolVar(&flagDefaultExcludes, "default-excludes", true, "apply built-in exclude list (node_modules, .git, images, etc.)")
	cmd.Flags().BoolVar(&flagTable, "table", false, "output in table format (default)")
	cmd.Flags().BoolVar(&flagText, "text", false, "output in plain text columnar format")
	cmd.Flags().BoolVar(&flagFail, "fail", false, "exit 1 when any PII is found")
	cmd.Flags().BoolVar(&flagTUI, "tui", false, "browse findings interactively (needs a terminal)")
}

func runScan(cmd *cobra.Command, args []string) error {
	abs, err := filepath.Abs(flagPath)
	if err != nil {
		return err
	}
	local, global, err := loadConfigs(abs)
	if err != nil {
		return err
	}
	st, err := resolve(cmd, local, global)
	if err != nil {
		return err
	}
	if st.maxBytes == 0 {
		st.maxBytes = defaultMaxBytes
	}
	log, err := newLogger(st, "warn", "console")
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(cmdContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()
	b, err := buildEngine(ctx, st, log)
	if err != nil {
		return err
	}
	defer b.Close()

	out := cmd.OutOrStdout()
	errOut := cmd.ErrOrStderr()
	machine := flagJSON || flagSARIF
	if flagTUI {
		if machine {
			return fmt.Errorf("--tui cannot be combined with --json or --sarif")
		}
		if !isTTY(out) {
			return fmt.Errorf("--tui needs an interactive terminal")
		}
	}
	fo := engine.FileOptions{
		ScanOptions: engine.ScanOptions{Entities: st.entities, Language: st.language, MinScore: st.minScore},
		Lines:       flagLines,
	}

	var res engine.Result
	var stdinRaw []byte
	base := ""
	switch {
	case flagStdin:
		res, stdinRaw, err = scanStdin(ctx, b.engine, cmd.InOrStdin(), fo)
	case len(args) > 0:
		res, err = b.engine.ScanPaths(ctx, args, fo)
	default:
		base = abs
		wc := engine.WalkConfig{
			Root:            abs,
			IncludeGlobs:    st.include,
			ExcludeGlobs:    st.exclude,
			MaxBytes:        st.maxBytes,
			DefaultExcludes: st.defaultExcludes,
		}
		total := 0
		if !machine && isTTY(errOut) {
			total, _ = engine.CountTargets(wc)
			_, _ = fmt.Fprintf(errOut, "Scanning %s with %d rules...\n", abs, b.engine.Rules().Len())
		}
		progressed := 0
		if total > 0 {
			fo.Progress = func() {
				progressed++
				if progressed%10 == 0 || progressed == total {
					pct := float64(progressed) / float64(total) * 100
					_, _ = fmt.Fprintf(errOut, "\r[%d/%d] %.0f%%", progressed, total, pct)
				}
			}
		}
		res, err = b.engine.ScanDir(ctx, wc, fo)
		if total > 0 {
			_, _ = fmt.Fprintln(errOut)
		}
	}
	if err != nil {
		return fmt.Errorf("scan error: %w", err)
	}

	noColor := st.noColor || !isTTY(out)
	switch {
	case flagTUI:
		if err := tui.Run(res, documentSource(base, stdinRaw)); err != nil {
			return err
		}
	case flagSARIF:
		if err := report.WriteSARIF(out, res); err != nil {
			return fmt.Errorf("sarif error: %w", err)
		}
	case flagJSON:
		if err := report.WriteJSON(out, res); err != nil {
			return err
		}
	case flagText:
		report.PrintText(out, res, report.PrintOptions{NoColor: noColor, Duration: res.Duration})
	default:
		report.PrintTable(out, res, report.PrintOptions{NoColor: noColor, Duration: res.Duration})
	}

	if flagFail && res.FindingCount() > 0 {
		return errPIIFound
	}
	return nil
}

func scanStdin(ctx context.Context, eng *engine.Engine, in io.Reader, fo engine.FileOptions) (engine.Result, []byte, error) {
	started := time.Now()
	raw, err := io.ReadAll(in)
	if err != nil {
		return engine.Result{}, nil, fmt.Errorf("read stdin: %w", err)
	}
	rep, err := eng.ScanDocument(ctx, flagStdinName, raw, fo.ScanOptions, fo.Lines)
	if err != nil {
		return engine.Result{}, nil, err
	}
	return engine.Result{
		Files:        []engine.FileResult{{Path: "-", Report: rep}},
		FilesScanned: 1,
		Duration:     time.Since(started),
	}, raw, nil
}

// documentSource re-decodes scanned files for the browser's detail pane.
// Walk results are relative to base; "-" is stdin.
func documentSource(base string, stdin []byte) tui.Source {
	return func(path string) (string, error) {
		if path == "-" {
			return extract.Text(stdin, flagStdinName)
		}
		p := filepath.FromSlash(path)
		if base != "" {
			p = filepath.Join(base, p)
		}
		raw, err := os.ReadFile(p)
		if err != nil {
			return "", err
		}
		return extract.Text(raw, path)
	}
}

func cmdContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
