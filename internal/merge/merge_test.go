package merge

import (
	"testing"

	"github.com/governable/piiscan/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pat(typ string, start, end int, score float64) types.Finding {
	return types.Finding{EntityType: typ, Start: start, End: end, Score: score, Source: types.SourcePattern}
}

func stat(typ string, start, end int, score float64) types.Finding {
	return types.Finding{EntityType: typ, Start: start, End: end, Score: score, Source: types.SourceStatistical}
}

func TestMerge_HigherScoreWins(t *testing.T) {
	out := Merge(
		[]types.Finding{pat("Credit Card Number", 10, 29, 0.4)},
		[]types.Finding{stat("CREDIT_CARD", 12, 29, 0.9)},
	)
	require.Len(t, out, 1)
	assert.Equal(t, 0.9, out[0].Score)
	assert.Equal(t, types.SourceStatistical, out[0].Source)
}

func TestMerge_TieBreaks(t *testing.T) {
	tests := []struct {
		name    string
		pattern []types.Finding
		stat    []types.Finding
		want    types.Finding
	}{
		{
			name:    "statistical before pattern",
			pattern: []types.Finding{pat("EMAIL_ADDRESS", 0, 10, 0.8)},
			stat:    []types.Finding{stat("EMAIL_ADDRESS", 0, 10, 0.8)},
			want:    stat("EMAIL_ADDRESS", 0, 10, 0.8),
		},
		{
			name:    "wider span first",
			pattern: []types.Finding{pat("A", 0, 5, 0.5), pat("B", 2, 12, 0.5)},
			want:    pat("B", 2, 12, 0.5),
		},
		{
			name:    "lower start first",
			pattern: []types.Finding{pat("A", 3, 8, 0.5), pat("B", 0, 5, 0.5)},
			want:    pat("B", 0, 5, 0.5),
		},
		{
			name:    "entity type last",
			pattern: []types.Finding{pat("ZIP", 0, 5, 0.5), pat("AREA", 0, 5, 0.5)},
			want:    pat("AREA", 0, 5, 0.5),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := Merge(tt.pattern, tt.stat)
			require.Len(t, out, 1)
			assert.Equal(t, tt.want, out[0])
		})
	}
}

func TestMerge_DisjointAndTouchingKept(t *testing.T) {
	out := Merge(
		[]types.Finding{pat("A", 20, 30, 0.5), pat("B", 0, 10, 0.3)},
		[]types.Finding{stat("PERSON", 10, 20, 0.7)},
	)
	require.Len(t, out, 3)
	assert.Equal(t, []int{0, 10, 20}, []int{out[0].Start, out[1].Start, out[2].Start})
}

func TestMerge_ChainResolvedGreedily(t *testing.T) {
	// B beats A and C; A and C do not overlap each other but both overlap B.
	out := Merge([]types.Finding{
		pat("A", 0, 6, 0.5),
		pat("B", 4, 12, 0.9),
		pat("C", 10, 16, 0.5),
		pat("D", 16, 20, 0.1),
	}, nil)
	require.Len(t, out, 2)
	assert.Equal(t, "B", out[0].EntityType)
	assert.Equal(t, "D", out[1].EntityType)
}

func TestMerge_SameSourceDuplicatesDropped(t *testing.T) {
	f := pat("EMAIL_ADDRESS", 0, 10, 0.8)
	out := Merge([]types.Finding{f, f}, nil)
	assert.Len(t, out, 1)
}

func TestMerge_NoOverlapsAndOrdered(t *testing.T) {
	var ps, ss []types.Finding
	for i := 0; i < 50; i++ {
		ps = append(ps, pat("P", i*3, i*3+5, float64(i%7)/10))
		ss = append(ss, stat("S", i*4, i*4+3, float64(i%5)/10))
	}
	out := Merge(ps, ss)
	require.NotEmpty(t, out)
	for i := 1; i < len(out); i++ {
		assert.False(t, out[i-1].Overlaps(out[i]), "findings %d and %d overlap", i-1, i)
		assert.False(t, types.Less(out[i], out[i-1]), "findings out of order at %d", i)
	}
	assert.Equal(t, out, Merge(ps, ss))
}

func TestMerge_Empty(t *testing.T) {
	assert.Empty(t, Merge(nil, nil))
	assert.Empty(t, Merge([]types.Finding{pat("A", 3, 3, 1)}, nil))
}
