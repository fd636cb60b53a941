package core

import (
	"encoding/json"
	"io"
)

// MarshalReport pretty-prints a report as JSON for humans or pipelines.
func MarshalReport(w io.Writer, rep Report) error {
	if rep.Findings == nil {
		rep.Findings = []Finding{}
	} // no `null` in JSON
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(rep)
}

// UnmarshalReport decodes report JSON, useful for ingestion tests.
func UnmarshalReport(r io.Reader) (Report, error) {
	var rep Report
	if err := json.NewDecoder(r).Decode(&rep); err != nil {
		return Report{}, err
	}
	return rep, nil
}
