package report

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/governable/piiscan/internal/engine"
	"github.com/governable/piiscan/internal/types"
)

type sarif struct {
	Schema  string     `json:"$schema"`
	Version string     `json:"version"`
	Runs    []sarifRun `json:"runs"`
}

type sarifRun struct {
	Tool       sarifTool      `json:"tool"`
	Results    []sarifResult  `json:"results"`
	Properties map[string]any `json:"properties,omitempty"`
}

type sarifTool struct {
	Driver sarifDriver `json:"driver"`
}

type sarifDriver struct {
	Name           string      `json:"name"`
	Version        string      `json:"version"`
	InformationURI string      `json:"informationUri,omitempty"`
	Rules          []sarifRule `json:"rules"`
}

type sarifRule struct {
	ID               string       `json:"id"`
	ShortDescription sarifMessage `json:"shortDescription"`
}

type sarifResult struct {
	RuleID     string         `json:"ruleId"`
	RuleIndex  int            `json:"ruleIndex"`
	Level      string         `json:"level"`
	Message    sarifMessage   `json:"message"`
	Locations  []sarifLoc     `json:"locations"`
	Properties map[string]any `json:"properties,omitempty"`
}

type sarifMessage struct {
	Text string `json:"text"`
}

type sarifLoc struct {
	PhysicalLocation sarifPhys `json:"physicalLocation"`
}

type sarifPhys struct {
	ArtifactLocation sarifArt    `json:"artifactLocation"`
	Region           sarifRegion `json:"region"`
}

type sarifArt struct {
	URI string `json:"uri"`
}

// sarifRegion uses byte offsets for whole-text findings and line plus
// 1-based byte column for line-mode findings.
type sarifRegion struct {
	StartLine   int  `json:"startLine,omitempty"`
	StartColumn int  `json:"startColumn,omitempty"`
	EndColumn   int  `json:"endColumn,omitempty"`
	ByteOffset  *int `json:"byteOffset,omitempty"`
	ByteLength  int  `json:"byteLength,omitempty"`
}

func scoreToLevel(score float64) string {
	switch Level(score) {
	case "high":
		return "error"
	case "medium":
		return "warning"
	}
	return "note"
}

// Version is reported as the SARIF tool version.
var Version = "dev"

// WriteSARIF writes the scan result as SARIF 2.1.0.
func WriteSARIF(w io.Writer, res engine.Result) error {
	ruleIdx := map[string]int{}
	var ruleIDs []string
	for _, f := range res.Files {
		for _, fd := range f.Report.Findings {
			if _, ok := ruleIdx[fd.EntityType]; !ok {
				ruleIdx[fd.EntityType] = 0
				ruleIDs = append(ruleIDs, fd.EntityType)
			}
		}
	}
	sort.Strings(ruleIDs)
	rules := make([]sarifRule, 0, len(ruleIDs))
	for i, id := range ruleIDs {
		ruleIdx[id] = i
		rules = append(rules, sarifRule{ID: id, ShortDescription: sarifMessage{Text: id + " detected"}})
	}

	run := sarifRun{
		Tool:    sarifTool{Driver: sarifDriver{Name: "piiscan", Version: Version, Rules: rules}},
		Results: []sarifResult{},
	}
	for _, f := range res.Files {
		for _, fd := range f.Report.Findings {
			run.Results = append(run.Results, sarifResult{
				RuleID:    fd.EntityType,
				RuleIndex: ruleIdx[fd.EntityType],
				Level:     scoreToLevel(fd.Score),
				Message:   sarifMessage{Text: fmt.Sprintf("%s detected (score %.2f, %s)", fd.EntityType, fd.Score, fd.Source)},
				Locations: []sarifLoc{{
					PhysicalLocation: sarifPhys{
						ArtifactLocation: sarifArt{URI: f.Path},
						Region:           region(fd),
					},
				}},
				Properties: map[string]any{"score": fd.Score, "source": string(fd.Source)},
			})
		}
	}
	if res.Degraded() {
		run.Properties = map[string]any{"degraded": true}
	}
	doc := sarif{
		Schema:  "https://json.schemastore.org/sarif-2.1.0.json",
		Version: "2.1.0",
		Runs:    []sarifRun{run},
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}

func region(f types.Finding) sarifRegion {
	if f.Line > 0 {
		return sarifRegion{StartLine: f.Line, StartColumn: f.Start + 1, EndColumn: f.End + 1}
	}
	off := f.Start
	return sarifRegion{ByteOffset: &off, ByteLength: f.Width()}
}
