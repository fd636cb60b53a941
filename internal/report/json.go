package report

import (
	"encoding/json"
	"io"

	"github.com/governable/piiscan/internal/engine"
	"github.com/governable/piiscan/internal/types"
)

// FileJSON is the per-file JSON shape, shared with the HTTP surface.
type FileJSON struct {
	Filename string          `json:"filename,omitempty"`
	PIIFound bool            `json:"pii_found"`
	Degraded bool            `json:"degraded"`
	Warnings []string        `json:"warnings,omitempty"`
	Findings []types.Finding `json:"findings"`
	Hash     string          `json:"hash,omitempty"`
	Error    string          `json:"error,omitempty"`
}

// NewFileJSON converts one report to its JSON shape.
func NewFileJSON(name string, rep types.Report) FileJSON {
	fs := rep.Findings
	if fs == nil {
		fs = []types.Finding{}
	}
	return FileJSON{
		Filename: name,
		PIIFound: rep.PIIFound(),
		Degraded: rep.Degraded,
		Warnings: rep.Warnings,
		Findings: fs,
	}
}

type resultJSON struct {
	Files        []FileJSON `json:"files"`
	FilesScanned int        `json:"files_scanned"`
	PIIFound     bool       `json:"pii_found"`
	Degraded     bool       `json:"degraded"`
	DurationMS   int64      `json:"duration_ms"`
}

// WriteJSON writes the whole scan result as one indented JSON document.
func WriteJSON(w io.Writer, res engine.Result) error {
	out := resultJSON{
		Files:        make([]FileJSON, 0, len(res.Files)),
		FilesScanned: res.FilesScanned,
		PIIFound:     res.FindingCount() > 0,
		Degraded:     res.Degraded(),
		DurationMS:   res.Duration.Milliseconds(),
	}
	for _, f := range res.Files {
		fj := NewFileJSON(f.Path, f.Report)
		fj.Hash = f.Hash
		if f.Err != nil {
			fj.Error = f.Err.Error()
		}
		out.Files = append(out.Files, fj)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
