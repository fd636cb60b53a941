package analyzer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/time/rate"
)

// HTTPConfig configures an HTTPAnalyzer.
type HTTPConfig struct {
	// Language sent when a request has none. Defaults to "en".
	Language string
	// ScoreThreshold asks the service to omit weaker results.
	ScoreThreshold float64
	// RateLimit bounds outbound requests per second; 0 means unlimited.
	RateLimit float64
	Burst     int
	// Client defaults to an http.Client with a 30s timeout.
	Client *http.Client
}

// HTTPAnalyzer calls a Presidio-analyzer compatible REST service.
//
//	POST {base}/analyze  {"text","language","entities","score_threshold"}
//	  -> [{"entity_type","start","end","score"}]
//
// The service reports offsets in Unicode code points; they are converted to
// byte offsets before being returned.
type HTTPAnalyzer struct {
	base    string
	cfg     HTTPConfig
	client  *http.Client
	limiter *rate.Limiter
}

// NewHTTP returns a client for the service at baseURL.
func NewHTTP(baseURL string, cfg HTTPConfig) *HTTPAnalyzer {
	if cfg.Language == "" {
		cfg.Language = "en"
	}
	client := cfg.Client
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	a := &HTTPAnalyzer{
		base:   strings.TrimRight(baseURL, "/"),
		cfg:    cfg,
		client: client,
	}
	if cfg.RateLimit > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		a.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}
	return a
}

// BaseURL is the service root the client talks to.
func (a *HTTPAnalyzer) BaseURL() string { return a.base }

type analyzeRequest struct {
	Text           string   `json:"text"`
	Language       string   `json:"language"`
	Entities       []string `json:"entities,omitempty"`
	ScoreThreshold float64  `json:"score_threshold,omitempty"`
}

type analyzeResult struct {
	EntityType string  `json:"entity_type"`
	Start      int     `json:"start"`
	End        int     `json:"end"`
	Score      float64 `json:"score"`
}

// StatusError is returned when the service answers with a non-2xx status.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("analyzer: unexpected status %d", e.Code)
	}
	return fmt.Sprintf("analyzer: unexpected status %d: %s", e.Code, e.Body)
}

func (a *HTTPAnalyzer) Analyze(ctx context.Context, req Request) ([]Span, error) {
	if req.Text == "" {
		return nil, nil
	}
	lang := req.Language
	if lang == "" {
		lang = a.cfg.Language
	}
	body, err := json.Marshal(analyzeRequest{
		Text:           req.Text,
		Language:       lang,
		Entities:       normalizeEntities(req.Entities),
		ScoreThreshold: a.cfg.ScoreThreshold,
	})
	if err != nil {
		return nil, fmt.Errorf("analyzer: marshal: %w", err)
	}

	var results []analyzeResult
	if err := a.do(ctx, http.MethodPost, "/analyze", body, &results); err != nil {
		return nil, err
	}

	offsets := runeOffsets(req.Text)
	spans := make([]Span, 0, len(results))
	for _, r := range results {
		if r.Start < 0 || r.End >= len(offsets) || r.Start >= r.End {
			continue
		}
		if !Allowed(r.EntityType, req.Entities) {
			continue
		}
		spans = append(spans, Span{
			EntityType: r.EntityType,
			Start:      offsets[r.Start],
			End:        offsets[r.End],
			Score:      r.Score,
		})
	}
	return Clean(spans, req.Text), nil
}

// Health calls GET {base}/health.
func (a *HTTPAnalyzer) Health(ctx context.Context) error {
	return a.do(ctx, http.MethodGet, "/health", nil, nil)
}

// SupportedEntities lists the entity types the service can detect for
// language.
func (a *HTTPAnalyzer) SupportedEntities(ctx context.Context, language string) ([]string, error) {
	if language == "" {
		language = a.cfg.Language
	}
	q := url.Values{"language": {language}}
	var out []string
	if err := a.do(ctx, http.MethodGet, "/supportedentities?"+q.Encode(), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (a *HTTPAnalyzer) do(ctx context.Context, method, path string, body []byte, out any) error {
	if a.limiter != nil {
		if err := a.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("analyzer: rate limit: %w", err)
		}
	}
	var rdr io.Reader
	if body != nil {
		rdr = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, a.base+path, rdr)
	if err != nil {
		return fmt.Errorf("analyzer: request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("analyzer: %s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(snippet))}
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("analyzer: decode: %w", err)
	}
	return nil
}

// runeOffsets maps code point index to byte offset; the final element is
// len(text) so an exclusive end index can be converted too.
func runeOffsets(text string) []int {
	offs := make([]int, 0, utf8.RuneCountInString(text)+1)
	for i := range text {
		offs = append(offs, i)
	}
	return append(offs, len(text))
}
