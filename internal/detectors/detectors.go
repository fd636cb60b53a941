package detectors

import (
	"github.com/governable/piiscan/internal/rules"
)

// RawMatch is one pattern hit before scoring.
type RawMatch struct {
	Label string
	Start int
	End   int
	Text  string
	Rule  *rules.Rule
}

// Detect applies every rule to text and returns all non-overlapping matches
// of each rule, rule by rule in rule-set order. Matches from different rules
// may overlap; resolving that is left to the merge stage. Matches rejected by
// a rule's validator and zero-width matches are dropped.
func Detect(text string, rs *rules.RuleSet) []RawMatch {
	if text == "" {
		return nil
	}
	var out []RawMatch
	for _, r := range rs.Rules() {
		for _, loc := range r.Pattern.FindAllStringIndex(text, -1) {
			start, end := loc[0], loc[1]
			if start == end {
				continue
			}
			m := text[start:end]
			if !r.Valid(m) {
				continue
			}
			out = append(out, RawMatch{Label: r.Label, Start: start, End: end, Text: m, Rule: r})
		}
	}
	return dedupe(out)
}

// IDs returns the labels the pattern detector can emit for rs.
func IDs(rs *rules.RuleSet) []string {
	return rs.Labels()
}

func dedupe(matches []RawMatch) []RawMatch {
	type key struct {
		label      string
		start, end int
	}
	seen := make(map[key]bool, len(matches))
	var result []RawMatch
	for _, m := range matches {
		k := key{m.Label, m.Start, m.End}
		if !seen[k] {
			seen[k] = true
			result = append(result, m)
		}
	}
	return result
}
