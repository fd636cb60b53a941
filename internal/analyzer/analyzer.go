// Package analyzer is the boundary to the statistical (NER) detector. The
// engine only sees the Analyzer interface; the concrete detector is an
// external service reached over HTTP, or a stub in tests.
package analyzer

import (
	"context"
	"math"
	"sort"
	"strings"
)

// Request is one analysis call. Entities narrows the types the detector may
// report; empty means all types it supports.
type Request struct {
	Text     string
	Entities []string
	Language string
}

// Span is one statistical detection. Start and End are byte offsets into
// Request.Text.
type Span struct {
	EntityType string  `json:"entity_type"`
	Start      int     `json:"start"`
	End        int     `json:"end"`
	Score      float64 `json:"score"`
}

// Analyzer detects PII spans in text. Implementations must be safe for
// concurrent use and must honor ctx cancellation.
type Analyzer interface {
	Analyze(ctx context.Context, req Request) ([]Span, error)
}

// Func adapts a plain function to Analyzer.
type Func func(ctx context.Context, req Request) ([]Span, error)

func (f Func) Analyze(ctx context.Context, req Request) ([]Span, error) { return f(ctx, req) }

// Static reports a fixed set of spans for any text, filtered by the request
// allowlist. Spans that fall outside the text are dropped.
type Static []Span

func (s Static) Analyze(ctx context.Context, req Request) ([]Span, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([]Span, 0, len(s))
	for _, sp := range s {
		if Allowed(sp.EntityType, req.Entities) {
			out = append(out, sp)
		}
	}
	return Clean(out, req.Text), nil
}

// Allowed reports whether typ passes the allowlist. An empty allowlist
// admits every type. Comparison ignores case.
func Allowed(typ string, allow []string) bool {
	if len(allow) == 0 {
		return true
	}
	for _, a := range allow {
		if strings.EqualFold(a, typ) {
			return true
		}
	}
	return false
}

// Clean drops spans with invalid offsets for text and clamps scores to [0,1].
// Spans must start and end on UTF-8 boundaries.
func Clean(spans []Span, text string) []Span {
	out := spans[:0:0]
	for _, s := range spans {
		if s.EntityType == "" || s.Start < 0 || s.End > len(text) || s.Start >= s.End {
			continue
		}
		if !boundary(text, s.Start) || !boundary(text, s.End) {
			continue
		}
		switch {
		case s.Score < 0 || math.IsNaN(s.Score):
			s.Score = 0
		case s.Score > 1:
			s.Score = 1
		}
		out = append(out, s)
	}
	return out
}

func boundary(text string, i int) bool {
	return i == len(text) || text[i]&0xC0 != 0x80
}

// normalizeEntities returns a sorted, deduplicated, upper-cased copy.
func normalizeEntities(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, e := range in {
		e = strings.ToUpper(strings.TrimSpace(e))
		if e == "" || seen[e] {
			continue
		}
		seen[e] = true
		out = append(out, e)
	}
	sort.Strings(out)
	return out
}
