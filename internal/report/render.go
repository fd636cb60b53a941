package report

import (
	"fmt"
	"io"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"
	"github.com/olekukonko/tablewriter"

	"github.com/governable/piiscan/internal/engine"
	"github.com/governable/piiscan/internal/types"
)

// PrintOptions control human-readable output.
type PrintOptions struct {
	NoColor  bool
	Duration time.Duration
}

var (
	scoreHighStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	scoreMedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	scoreLowStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	pathStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("7")).Bold(true)
	warnStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
)

// Level buckets a score for display: high, medium or low.
func Level(score float64) string {
	switch {
	case score >= 0.8:
		return "high"
	case score >= 0.5:
		return "medium"
	}
	return "low"
}

func colorScore(score float64, noColor bool) string {
	s := strconv.FormatFloat(score, 'f', 2, 64)
	if noColor {
		return s
	}
	switch Level(score) {
	case "high":
		return scoreHighStyle.Render(s)
	case "medium":
		return scoreMedStyle.Render(s)
	}
	return scoreLowStyle.Render(s)
}

// PrintText writes one line per finding grouped by file.
func PrintText(w io.Writer, res engine.Result, opts PrintOptions) {
	total := res.FindingCount()
	if total == 0 {
		fmt.Fprintln(w, "No PII found ✅")
	} else {
		fmt.Fprintf(w, "Findings: %d\n", total)
	}
	for _, f := range res.Files {
		if f.Err != nil {
			fmt.Fprintf(w, "%s: skipped: %v\n", f.Path, f.Err)
			continue
		}
		if len(f.Report.Findings) == 0 {
			continue
		}
		path := f.Path
		if !opts.NoColor {
			path = pathStyle.Render(path)
		}
		fmt.Fprintln(w, path)
		for _, fd := range f.Report.Findings {
			fmt.Fprintf(w, "  %s  %-20s %-11s %s  %s\n",
				colorScore(fd.Score, opts.NoColor), fd.EntityType, fd.Source, location(fd), clip(fd.MatchedText))
		}
	}
	footer(w, res, opts)
}

// PrintTable renders findings as a bordered table.
func PrintTable(w io.Writer, res engine.Result, opts PrintOptions) {
	if res.FindingCount() == 0 {
		fmt.Fprintln(w, "No PII found ✅")
	} else {
		table := tablewriter.NewWriter(w)
		table.Header("File", "Location", "Type", "Source", "Score", "Match")
		for _, f := range res.Files {
			for _, fd := range f.Report.Findings {
				_ = table.Append([]string{
					f.Path,
					location(fd),
					fd.EntityType,
					string(fd.Source),
					colorScore(fd.Score, opts.NoColor),
					clip(fd.MatchedText),
				})
			}
		}
		_ = table.Render()
	}
	for _, f := range res.Files {
		if f.Err != nil {
			fmt.Fprintf(w, "%s: skipped: %v\n", f.Path, f.Err)
		}
	}
	footer(w, res, opts)
}

func footer(w io.Writer, res engine.Result, opts PrintOptions) {
	if res.Degraded() {
		msg := "Warning: statistical detector unavailable for some files; results are pattern-only"
		if !opts.NoColor {
			msg = warnStyle.Render(msg)
		}
		fmt.Fprintln(w, msg)
	}
	if opts.Duration > 0 || res.FilesScanned > 0 {
		fmt.Fprintln(w)
		high, med, low := 0, 0, 0
		for _, f := range res.Files {
			for _, fd := range f.Report.Findings {
				switch Level(fd.Score) {
				case "high":
					high++
				case "medium":
					med++
				default:
					low++
				}
			}
		}
		fmt.Fprintf(w, "Findings: %d (high: %d, medium: %d, low: %d)\n", res.FindingCount(), high, med, low)
		if opts.Duration > 0 {
			fmt.Fprintf(w, "Scan duration: %.2fs\n", opts.Duration.Seconds())
		}
		if res.FilesScanned > 0 {
			fmt.Fprintf(w, "Files scanned: %d\n", res.FilesScanned)
		}
	}
}

func location(f types.Finding) string {
	if f.Line > 0 {
		return fmt.Sprintf("%d:%d-%d", f.Line, f.Start, f.End)
	}
	return fmt.Sprintf("%d-%d", f.Start, f.End)
}

// clip shortens long matches for terminal display.
func clip(s string) string {
	const max = 48
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	r := []rune(s)
	return string(r[:max-1]) + "…"
}
