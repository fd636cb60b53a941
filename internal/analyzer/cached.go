package analyzer

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/governable/piiscan/internal/cache"
)

type cached struct {
	next  Analyzer
	store cache.Store
	ttl   time.Duration
}

// Cached wraps an with a result cache. Lookups and writes that fail are
// ignored; only errors from an itself are returned, and those are never
// cached.
func Cached(an Analyzer, store cache.Store, ttl time.Duration) Analyzer {
	if an == nil || store == nil {
		return an
	}
	return &cached{next: an, store: store, ttl: ttl}
}

func (c *cached) Analyze(ctx context.Context, req Request) ([]Span, error) {
	key := Key(req)
	if b, ok, err := c.store.Get(ctx, key); err == nil && ok {
		var spans []Span
		if json.Unmarshal(b, &spans) == nil {
			return Clean(spans, req.Text), nil
		}
	}
	spans, err := c.next.Analyze(ctx, req)
	if err != nil {
		return nil, err
	}
	if b, err := json.Marshal(spans); err == nil {
		_ = c.store.Set(ctx, key, b, c.ttl)
	}
	return spans, nil
}

// Key is the cache key for req: a hash of language, entity allowlist and text.
func Key(req Request) string {
	d := xxhash.New()
	_, _ = d.WriteString(req.Language)
	_, _ = d.WriteString("\x00")
	_, _ = d.WriteString(strings.Join(normalizeEntities(req.Entities), ","))
	_, _ = d.WriteString("\x00")
	_, _ = d.WriteString(req.Text)
	return "analyze:" + strconv.FormatUint(d.Sum64(), 16)
}
