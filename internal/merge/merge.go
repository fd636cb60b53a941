// Package merge combines pattern and statistical findings into one
// non-overlapping, ordered list.
package merge

import (
	"sort"

	"github.com/governable/piiscan/internal/types"
)

// Merge resolves overlaps between findings from both detectors.
//
// Same-source duplicates (equal entity type and span) are dropped first.
// The remaining candidates are ranked by:
//
//	score, descending
//	statistical before pattern
//	wider span first
//	lower start first
//	entity type, ascending
//
// and taken greedily: a candidate is kept only if it shares no byte with an
// already kept finding. Findings that merely touch (one ends where the other
// starts) do not overlap. The result is sorted with types.Less.
//
// Ranking is O(n log n) and each overlap check is a binary search over the
// kept findings. Inserting into the kept slice shifts its tail, so with k
// findings kept the total is O(n log n + n*k) in the worst case.
func Merge(pattern, statistical []types.Finding) []types.Finding {
	cands := make([]types.Finding, 0, len(pattern)+len(statistical))
	cands = appendUnique(cands, pattern)
	cands = appendUnique(cands, statistical)
	if len(cands) == 0 {
		return nil
	}
	sort.SliceStable(cands, func(i, j int) bool { return higher(cands[i], cands[j]) })

	// kept is disjoint and sorted by start, hence also by end.
	kept := make([]types.Finding, 0, len(cands))
	for _, c := range cands {
		i := sort.Search(len(kept), func(i int) bool { return kept[i].End > c.Start })
		if i < len(kept) && kept[i].Start < c.End {
			continue
		}
		kept = append(kept, types.Finding{})
		copy(kept[i+1:], kept[i:])
		kept[i] = c
	}
	sort.SliceStable(kept, func(i, j int) bool { return types.Less(kept[i], kept[j]) })
	return kept
}

func appendUnique(dst, src []types.Finding) []types.Finding {
	seen := make(map[types.SpanKey]bool, len(src))
	for _, f := range src {
		if f.End <= f.Start {
			continue
		}
		k := f.Key()
		if seen[k] {
			continue
		}
		seen[k] = true
		dst = append(dst, f)
	}
	return dst
}

// higher reports whether a outranks b.
func higher(a, b types.Finding) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	if a.Source != b.Source {
		return a.Source == types.SourceStatistical
	}
	if a.Width() != b.Width() {
		return a.Width() > b.Width()
	}
	if a.Start != b.Start {
		return a.Start < b.Start
	}
	return a.EntityType < b.EntityType
}
