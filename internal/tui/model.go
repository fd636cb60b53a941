package tui

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/governable/piiscan/internal/engine"
	"github.com/governable/piiscan/internal/types"
)

var (
	tableBorderStyle = lipgloss.NewStyle().
				BorderStyle(lipgloss.NormalBorder()).
				BorderForeground(lipgloss.Color("240"))

	detailPaneBorderStyle = lipgloss.NewStyle().
				BorderStyle(lipgloss.NormalBorder()).
				BorderForeground(lipgloss.Color("240"))

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("6")).
			Bold(true).
			Padding(0, 1)

	matchStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("9")).
			Bold(true)

	keyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("7")).
			Bold(true)

	dimStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))

	statusStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("236")).
			Foreground(lipgloss.Color("7"))

	statsStyle = lipgloss.NewStyle().
			Padding(0, 2).
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("237"))

	degradedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
)

const helpLine = "q: quit | j/k: navigate | ctrl+d/ctrl+u: scroll detail | c: copy location"

// Item is one table row: a finding and the file it was reported for.
type Item struct {
	Path    string
	Finding types.Finding
}

// Source returns the decoded text of a scanned file, the same text the
// engine saw, so finding offsets apply to it.
type Source func(path string) (string, error)

// Items flattens a multi-file result in report order.
func Items(res engine.Result) []Item {
	var out []Item
	for _, fr := range res.Files {
		for _, f := range fr.Report.Findings {
			out = append(out, Item{Path: fr.Path, Finding: f})
		}
	}
	return out
}

// Model is the read-only finding browser: a table of findings above a
// detail pane showing the offending line.
type Model struct {
	table         table.Model
	viewport      viewport.Model
	items         []Item
	source        Source
	texts         map[string]string
	files         int
	degraded      int
	quitting      bool
	ready         bool
	width         int
	height        int
	statusMessage string
}

// NewModel builds the browser for res. source may be nil, in which case the
// detail pane shows the matched text without its line.
func NewModel(res engine.Result, source Source) Model {
	items := Items(res)
	columns := []table.Column{
		{Title: "Score", Width: 7},
		{Title: "Entity", Width: 22},
		{Title: "Location", Width: 36},
		{Title: "Match", Width: 30},
	}
	rows := make([]table.Row, len(items))
	for i, it := range items {
		rows[i] = table.Row{
			fmt.Sprintf("%.2f", it.Finding.Score),
			it.Finding.EntityType,
			location(it),
			it.Finding.MatchedText,
		}
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithRows(rows),
		table.WithFocused(true),
		table.WithHeight(10),
	)
	s := table.DefaultStyles()
	s.Header = lipgloss.NewStyle().
		Background(lipgloss.Color("235")).
		Foreground(lipgloss.Color("15")).
		Bold(true).
		Padding(0, 1).
		Align(lipgloss.Left)
	s.Selected = lipgloss.NewStyle().
		Foreground(lipgloss.Color("232")).
		Background(lipgloss.Color("208")).
		Bold(true).
		Padding(0, 1)
	s.Cell = lipgloss.NewStyle().
		Padding(0, 1)
	t.SetStyles(s)

	degraded := 0
	for _, fr := range res.Files {
		if fr.Report.Degraded {
			degraded++
		}
	}

	m := Model{
		table:         t,
		items:         items,
		source:        source,
		texts:         make(map[string]string),
		files:         len(res.Files),
		degraded:      degraded,
		statusMessage: helpLine,
	}
	if len(items) == 0 {
		m.statusMessage = "q: quit"
	}
	return m
}

func (m Model) Init() tea.Cmd { return nil }

// location is path:line for line-mode findings and path plus the byte span
// otherwise.
func location(it Item) string {
	f := it.Finding
	if f.Line > 0 {
		return fmt.Sprintf("%s:%d [%d,%d)", it.Path, f.Line, f.Start, f.End)
	}
	return fmt.Sprintf("%s [%d,%d)", it.Path, f.Start, f.End)
}

func (m Model) selected() (Item, bool) {
	i := m.table.Cursor()
	if i < 0 || i >= len(m.items) {
		return Item{}, false
	}
	return m.items[i], true
}

func (m *Model) text(path string) (string, error) {
	if t, ok := m.texts[path]; ok {
		return t, nil
	}
	if m.source == nil {
		return "", fmt.Errorf("no source for %s", path)
	}
	t, err := m.source(path)
	if err != nil {
		return "", err
	}
	m.texts[path] = t
	return t, nil
}

// lineAt returns the 1-based number and content of the line holding f, and
// f's byte offset within that line. Line-mode findings already carry both.
func lineAt(text string, f types.Finding) (int, string, int) {
	if f.Line > 0 {
		lines := strings.Split(text, "\n")
		if f.Line > len(lines) {
			return f.Line, "", f.Start
		}
		return f.Line, strings.TrimSuffix(lines[f.Line-1], "\r"), f.Start
	}
	start := f.Start
	if start > len(text) {
		start = len(text)
	}
	ls := strings.LastIndexByte(text[:start], '\n') + 1
	le := strings.IndexByte(text[start:], '\n')
	if le < 0 {
		le = len(text)
	} else {
		le += start
	}
	n := strings.Count(text[:ls], "\n") + 1
	return n, strings.TrimSuffix(text[ls:le], "\r"), start - ls
}

func (m *Model) updateViewportContent() {
	if !m.ready {
		return
	}
	it, ok := m.selected()
	if !ok {
		m.viewport.SetContent("")
		return
	}
	m.viewport.SetContent(m.detail(it))
	m.viewport.GotoTop()
}

func (m *Model) detail(it Item) string {
	f := it.Finding
	var b strings.Builder
	b.WriteString(fmt.Sprintf("%s\n\n", titleStyle.Render("Finding Details")))
	b.WriteString(fmt.Sprintf("%s %s\n", keyStyle.Render("Path:"), it.Path))
	b.WriteString(fmt.Sprintf("%s %s\n", keyStyle.Render("Entity:"), f.EntityType))
	b.WriteString(fmt.Sprintf("%s %.2f\n", keyStyle.Render("Score:"), f.Score))
	b.WriteString(fmt.Sprintf("%s %s\n", keyStyle.Render("Source:"), f.Source))
	if f.Line > 0 {
		b.WriteString(fmt.Sprintf("%s %d\n", keyStyle.Render("Line:"), f.Line))
	}
	b.WriteString(fmt.Sprintf("%s [%d,%d)\n", keyStyle.Render("Span:"), f.Start, f.End))

	b.WriteString(fmt.Sprintf("\n%s\n", keyStyle.Render("Context:")))
	text, err := m.text(it.Path)
	if err != nil {
		b.WriteString(dimStyle.Render(fmt.Sprintf("(line unavailable: %v)", err)))
		b.WriteString("\n")
		b.WriteString(matchStyle.Render(f.MatchedText))
		return b.String()
	}
	n, line, col := lineAt(text, f)
	b.WriteString(dimStyle.Render(fmt.Sprintf("%4d ", n)))
	b.WriteString(markMatch(line, col, f.MatchedText, it.Path))
	b.WriteString("\n")
	return b.String()
}

// markMatch highlights line and renders the matched span in matchStyle. If
// the file changed since the scan and the span no longer holds the match,
// the line is shown without the mark.
func markMatch(line string, col int, match, filename string) string {
	end := col + len(match)
	if col < 0 || end > len(line) || line[col:end] != match {
		return highlightLine(line, filename)
	}
	return highlightLine(line[:col], filename) +
		matchStyle.Render(match) +
		highlightLine(line[end:], filename)
}

func highlightLine(line string, filename string) string {
	if line == "" {
		return line
	}
	lexer := lexers.Match(filename)
	if lexer == nil {
		ext := filepath.Ext(filename)
		if ext != "" {
			lexer = lexers.Match("file" + ext)
		}
	}
	if lexer == nil {
		return line
	}

	lexer = chroma.Coalesce(lexer)

	style := styles.Get("monokai")
	if style == nil {
		style = styles.Fallback
	}

	formatter := formatters.Get("terminal256")
	if formatter == nil {
		return line
	}

	iterator, err := lexer.Tokenise(nil, line)
	if err != nil {
		return line
	}

	var buf bytes.Buffer
	if err := formatter.Format(&buf, style, iterator); err != nil {
		return line
	}
	return strings.TrimSuffix(buf.String(), "\n")
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		tableHeight := (m.height - 4) / 2
		if tableHeight < 3 {
			tableHeight = 3
		}
		viewportHeight := m.height - tableHeight - 4 - 2*detailPaneBorderStyle.GetVerticalFrameSize()
		if viewportHeight < 3 {
			viewportHeight = 3
		}
		m.table.SetWidth(m.width)
		m.table.SetHeight(tableHeight)

		if !m.ready {
			m.viewport = viewport.New(m.width, viewportHeight)
			m.ready = true
		} else {
			m.viewport.Width = m.width
			m.viewport.Height = viewportHeight
		}
		m.updateViewportContent()
		return m, nil

	case statusMsg:
		m.statusMessage = string(msg)
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		case "c":
			return m, m.copyLocation()
		case "ctrl+d", "ctrl+u":
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}
		before := m.table.Cursor()
		m.table, cmd = m.table.Update(msg)
		if m.table.Cursor() != before {
			m.updateViewportContent()
		}
		return m, cmd
	}
	return m, nil
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if !m.ready {
		return "Initializing..."
	}

	stats := fmt.Sprintf("Findings: %-4d  |  Files: %d", len(m.items), m.files)
	if m.degraded > 0 {
		stats += "  |  " + degradedStyle.Render(fmt.Sprintf("%d degraded (pattern rules only)", m.degraded))
	}
	header := statsStyle.Width(m.width).Render(stats)

	tableRender := tableBorderStyle.Render(m.table.View())

	var detail string
	if len(m.items) == 0 {
		detail = lipgloss.Place(m.width, m.viewport.Height, lipgloss.Center, lipgloss.Center,
			lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Render("[OK] No PII detected"))
	} else {
		detail = m.viewport.View()
	}
	detailRender := detailPaneBorderStyle.Render(detail)

	status := statusStyle.Width(m.width).Render(m.statusMessage)
	return lipgloss.JoinVertical(lipgloss.Left, header, tableRender, detailRender, status)
}
