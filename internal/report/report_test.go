package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/governable/piiscan/internal/engine"
	"github.com/governable/piiscan/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sample() engine.Result {
	return engine.Result{
		FilesScanned: 2,
		Files: []engine.FileResult{
			{Path: "a.txt", Hash: "00000000000000aa", Report: types.Report{Findings: []types.Finding{
				{EntityType: "EMAIL_ADDRESS", Start: 9, End: 25, Score: 0.85, MatchedText: "jane@example.com", Source: types.SourcePattern},
				{EntityType: "PERSON", Start: 0, End: 4, Score: 0.4, MatchedText: "Jane", Source: types.SourceStatistical, Line: 2},
			}}},
			{Path: "b.csv", Report: types.Report{Findings: []types.Finding{}, Degraded: true, Warnings: []string{"statistical detector unavailable: down"}}},
			{Path: "c.docx", Err: errors.New("unsupported format")},
		},
	}
}

func TestPrintText_NoFindings_ShowsFooter(t *testing.T) {
	var buf bytes.Buffer
	PrintText(&buf, engine.Result{FilesScanned: 10}, PrintOptions{Duration: 1200 * time.Millisecond})
	out := buf.String()
	if !strings.Contains(out, "No PII found") {
		t.Fatalf("expected friendly no-findings message; got: %q", out)
	}
	if !strings.Contains(out, "Files scanned: 10") {
		t.Fatalf("expected footer with files scanned; got: %q", out)
	}
}

func TestPrintText_WithFindings(t *testing.T) {
	var buf bytes.Buffer
	PrintText(&buf, sample(), PrintOptions{NoColor: true})
	out := buf.String()
	assert.Contains(t, out, "Findings: 2")
	assert.Contains(t, out, "EMAIL_ADDRESS")
	assert.Contains(t, out, "9-25")
	assert.Contains(t, out, "2:0-4")
	assert.Contains(t, out, "c.docx: skipped")
	assert.Contains(t, out, "pattern-only")
	assert.Contains(t, out, "(high: 1, medium: 0, low: 1)")
	assert.NotContains(t, out, "\x1b[")
}

func TestPrintTable_WithFindings(t *testing.T) {
	var buf bytes.Buffer
	PrintTable(&buf, sample(), PrintOptions{NoColor: true})
	out := buf.String()
	assert.Contains(t, strings.ToUpper(out), "TYPE")
	assert.Contains(t, out, "EMAIL_ADDRESS")
	assert.Contains(t, out, "│")
}

func TestPrintTable_NoFindings(t *testing.T) {
	var buf bytes.Buffer
	PrintTable(&buf, engine.Result{}, PrintOptions{})
	assert.Contains(t, buf.String(), "No PII found")
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, sample()))
	var doc struct {
		Files []struct {
			Filename string            `json:"filename"`
			PIIFound bool              `json:"pii_found"`
			Degraded bool              `json:"degraded"`
			Findings []json.RawMessage `json:"findings"`
			Error    string            `json:"error"`
		} `json:"files"`
		PIIFound bool `json:"pii_found"`
		Degraded bool `json:"degraded"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
	require.Len(t, doc.Files, 3)
	assert.True(t, doc.PIIFound)
	assert.True(t, doc.Degraded)
	assert.True(t, doc.Files[0].PIIFound)
	assert.Len(t, doc.Files[0].Findings, 2)
	assert.NotNil(t, doc.Files[1].Findings)
	assert.Equal(t, "unsupported format", doc.Files[2].Error)
	assert.Contains(t, buf.String(), `"line_number": 2`)
}

func TestWriteSARIF(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteSARIF(&buf, sample()))
	var doc struct {
		Version string `json:"version"`
		Runs    []struct {
			Properties map[string]any `json:"properties"`
			Tool       struct {
				Driver struct {
					Rules []struct {
						ID string `json:"id"`
					} `json:"rules"`
				} `json:"driver"`
			} `json:"tool"`
			Results []struct {
				RuleID    string `json:"ruleId"`
				RuleIndex int    `json:"ruleIndex"`
				Level     string `json:"level"`
				Locations []struct {
					PhysicalLocation struct {
						Region map[string]int `json:"region"`
					} `json:"physicalLocation"`
				} `json:"locations"`
			} `json:"results"`
		} `json:"runs"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc), buf.String())
	assert.Equal(t, "2.1.0", doc.Version)
	require.Len(t, doc.Runs, 1)
	run := doc.Runs[0]
	require.Len(t, run.Tool.Driver.Rules, 2)
	assert.Equal(t, "EMAIL_ADDRESS", run.Tool.Driver.Rules[0].ID)
	assert.Equal(t, true, run.Properties["degraded"])

	require.Len(t, run.Results, 2)
	email, person := run.Results[0], run.Results[1]
	assert.Equal(t, "error", email.Level)
	assert.Equal(t, 0, email.RuleIndex)
	assert.Equal(t, map[string]int{"byteOffset": 9, "byteLength": 16}, email.Locations[0].PhysicalLocation.Region)
	assert.Equal(t, "note", person.Level)
	assert.Equal(t, 1, person.RuleIndex)
	assert.Equal(t, 2, person.Locations[0].PhysicalLocation.Region["startLine"])
}

func TestLevelAndClip(t *testing.T) {
	assert.Equal(t, "high", Level(0.8))
	assert.Equal(t, "medium", Level(0.5))
	assert.Equal(t, "low", Level(0.49))
	assert.Equal(t, "short", clip("short"))
	long := strings.Repeat("é", 60)
	assert.Equal(t, 48, len([]rune(clip(long))))
}
