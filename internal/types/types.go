package types

// Source identifies which detector produced a finding.
type Source string

const (
	SourcePattern     Source = "pattern"
	SourceStatistical Source = "statistical"
)

// Finding describes one detected PII span. Start and End are half-open byte
// offsets into the scanned text, so text[Start:End] == MatchedText. Line is
// 1-based and only set when the text was scanned line by line.
type Finding struct {
	EntityType  string  `json:"entity_type"`
	Start       int     `json:"start"`
	End         int     `json:"end"`
	Score       float64 `json:"score"`
	MatchedText string  `json:"matched_text"`
	Source      Source  `json:"source"`
	Line        int     `json:"line_number,omitempty"`
}

// Width is the span length in bytes.
func (f Finding) Width() int { return f.End - f.Start }

// Overlaps reports whether the two spans share at least one byte.
func (f Finding) Overlaps(o Finding) bool {
	return f.Start < o.End && o.Start < f.End
}

// Key identifies a finding within a single detector source.
func (f Finding) Key() SpanKey {
	return SpanKey{EntityType: f.EntityType, Start: f.Start, End: f.End}
}

// SpanKey is the (entity type, start, end) identity used for same-source dedup.
type SpanKey struct {
	EntityType string
	Start      int
	End        int
}

// Report is the ordered result of one scan call. Degraded is set when a
// detector was unavailable and the findings come from the remaining ones.
type Report struct {
	Findings []Finding `json:"findings"`
	Degraded bool      `json:"degraded"`
	Warnings []string  `json:"warnings,omitempty"`
}

// PIIFound reports whether the report holds at least one finding.
func (r Report) PIIFound() bool { return len(r.Findings) > 0 }

// Less is the report ordering: ascending start, descending score, then
// end, entity type and source so equal inputs always sort the same way.
func Less(a, b Finding) bool {
	if a.Start != b.Start {
		return a.Start < b.Start
	}
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	if a.End != b.End {
		return a.End < b.End
	}
	if a.EntityType != b.EntityType {
		return a.EntityType < b.EntityType
	}
	return a.Source < b.Source
}
