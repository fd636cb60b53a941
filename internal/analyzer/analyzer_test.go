package analyzer

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatic_FiltersAndCleans(t *testing.T) {
	text := "Jane lives in Paris"
	s := Static{
		{EntityType: "PERSON", Start: 0, End: 4, Score: 0.85},
		{EntityType: "LOCATION", Start: 14, End: 19, Score: 1.7},
		{EntityType: "LOCATION", Start: 14, End: 99, Score: 0.5},
	}

	all, err := s.Analyze(context.Background(), Request{Text: text})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, 1.0, all[1].Score)

	persons, err := s.Analyze(context.Background(), Request{Text: text, Entities: []string{"person"}})
	require.NoError(t, err)
	require.Len(t, persons, 1)
	assert.Equal(t, "PERSON", persons[0].EntityType)
}

func TestStatic_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Static{}.Analyze(ctx, Request{Text: "x"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFunc(t *testing.T) {
	boom := errors.New("boom")
	f := Func(func(context.Context, Request) ([]Span, error) { return nil, boom })
	_, err := f.Analyze(context.Background(), Request{})
	assert.ErrorIs(t, err, boom)
}

func TestClean(t *testing.T) {
	text := "héllo wörld"
	spans := Clean([]Span{
		{EntityType: "A", Start: 0, End: 6, Score: -1},
		{EntityType: "B", Start: 0, End: 2, Score: 0.5}, // splits é
		{EntityType: "", Start: 0, End: 1, Score: 0.5},
		{EntityType: "C", Start: 5, End: 5, Score: 0.5},
		{EntityType: "D", Start: 7, End: len(text), Score: 0.5},
	}, text)
	require.Len(t, spans, 2)
	assert.Equal(t, "A", spans[0].EntityType)
	assert.Equal(t, 0.0, spans[0].Score)
	assert.Equal(t, "wörld", text[spans[1].Start:spans[1].End])
}

func TestAllowed(t *testing.T) {
	assert.True(t, Allowed("PERSON", nil))
	assert.True(t, Allowed("PERSON", []string{"email_address", "Person"}))
	assert.False(t, Allowed("PERSON", []string{"EMAIL_ADDRESS"}))
}

func TestRuneOffsets(t *testing.T) {
	assert.Equal(t, []int{0, 1, 3, 4}, runeOffsets("aéb"))
	assert.Equal(t, []int{0}, runeOffsets(""))
}
