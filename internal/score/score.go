// Package score gives pattern matches a confidence comparable to the
// statistical detector's scores.
package score

import (
	"unicode/utf8"

	"github.com/governable/piiscan/internal/detectors"
	"github.com/governable/piiscan/internal/types"
)

// DefaultScore is assigned to matches of rules without exemplar or fixed
// score: structurally matched but unverified.
const DefaultScore = 0.5

// Similarity is the fraction of exemplar rune positions at which matched
// holds the same rune, clipped to [0,1]. An empty exemplar yields 0.
func Similarity(matched, exemplar string) float64 {
	n := utf8.RuneCountInString(exemplar)
	if n == 0 {
		return 0
	}
	agree := 0
	mr := []rune(matched)
	i := 0
	for _, er := range exemplar {
		if i >= len(mr) {
			break
		}
		if mr[i] == er {
			agree++
		}
		i++
	}
	return clamp(float64(agree) / float64(n))
}

// For scores one raw match according to its rule.
func For(m detectors.RawMatch) float64 {
	if m.Rule == nil {
		return DefaultScore
	}
	if m.Rule.Score != nil {
		return clamp(*m.Rule.Score)
	}
	if m.Rule.Exemplar != "" {
		return Similarity(m.Text, m.Rule.Exemplar)
	}
	return DefaultScore
}

// Normalize converts raw pattern matches into scored findings.
func Normalize(matches []detectors.RawMatch) []types.Finding {
	out := make([]types.Finding, 0, len(matches))
	for _, m := range matches {
		out = append(out, types.Finding{
			EntityType:  m.Label,
			Start:       m.Start,
			End:         m.End,
			Score:       For(m),
			MatchedText: m.Text,
			Source:      types.SourcePattern,
		})
	}
	return out
}

func clamp(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
