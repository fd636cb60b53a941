package analyzer

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/governable/piiscan/internal/cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCached_HitsSkipInner(t *testing.T) {
	var calls atomic.Int32
	inner := Func(func(_ context.Context, req Request) ([]Span, error) {
		calls.Add(1)
		return []Span{{EntityType: "PERSON", Start: 0, End: 4, Score: 0.9}}, nil
	})
	an := Cached(inner, cache.NewMemory(0), time.Minute)
	req := Request{Text: "Jane here", Language: "en"}

	first, err := an.Analyze(context.Background(), req)
	require.NoError(t, err)
	second, err := an.Analyze(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), calls.Load())

	_, err = an.Analyze(context.Background(), Request{Text: "Jane here", Language: "en", Entities: []string{"PERSON"}})
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load(), "allowlist is part of the key")
}

func TestCached_ErrorsNotCached(t *testing.T) {
	var calls atomic.Int32
	inner := Func(func(context.Context, Request) ([]Span, error) {
		calls.Add(1)
		return nil, errors.New("down")
	})
	an := Cached(inner, cache.NewMemory(0), time.Minute)
	for i := 0; i < 2; i++ {
		_, err := an.Analyze(context.Background(), Request{Text: "x"})
		assert.Error(t, err)
	}
	assert.Equal(t, int32(2), calls.Load())
}

func TestCached_NilPassthrough(t *testing.T) {
	assert.Nil(t, Cached(nil, cache.NewMemory(0), 0))
	s := Static{}
	assert.Equal(t, Analyzer(s), Cached(s, nil, 0))
}

func TestKey(t *testing.T) {
	a := Key(Request{Text: "t", Entities: []string{"b", "A"}})
	b := Key(Request{Text: "t", Entities: []string{"a", "B", "a"}})
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, Key(Request{Text: "t"}))
	assert.NotEqual(t, a, Key(Request{Text: "u", Entities: []string{"a", "b"}}))
}
