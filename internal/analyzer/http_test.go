package analyzer

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func presidio(t *testing.T, handle func(req analyzeRequest) (int, any)) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/analyze", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		var req analyzeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		code, body := handle(req)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(body)
	})
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("Presidio Analyzer service is up"))
	})
	mux.HandleFunc("/supportedentities", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode([]string{"PERSON", r.URL.Query().Get("language")})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestHTTPAnalyzer_ConvertsCodePointOffsets(t *testing.T) {
	text := "Zoë Smith, zoe@example.com"
	var got analyzeRequest
	srv := presidio(t, func(req analyzeRequest) (int, any) {
		got = req
		return http.StatusOK, []analyzeResult{
			{EntityType: "PERSON", Start: 0, End: 9, Score: 0.85},
			{EntityType: "EMAIL_ADDRESS", Start: 11, End: 26, Score: 1.0},
		}
	})

	a := NewHTTP(srv.URL+"/", HTTPConfig{ScoreThreshold: 0.3})
	spans, err := a.Analyze(context.Background(), Request{Text: text, Entities: []string{"person", "EMAIL_ADDRESS", "person"}})
	require.NoError(t, err)

	assert.Equal(t, text, got.Text)
	assert.Equal(t, "en", got.Language)
	assert.Equal(t, []string{"EMAIL_ADDRESS", "PERSON"}, got.Entities)
	assert.Equal(t, 0.3, got.ScoreThreshold)

	require.Len(t, spans, 2)
	assert.Equal(t, "Zoë Smith", text[spans[0].Start:spans[0].End])
	assert.Equal(t, "zoe@example.com", text[spans[1].Start:spans[1].End])
}

func TestHTTPAnalyzer_DropsBadAndDisallowedSpans(t *testing.T) {
	srv := presidio(t, func(analyzeRequest) (int, any) {
		return http.StatusOK, []analyzeResult{
			{EntityType: "PERSON", Start: 0, End: 4, Score: 0.9},
			{EntityType: "LOCATION", Start: 0, End: 4, Score: 0.9},
			{EntityType: "PERSON", Start: 3, End: 400, Score: 0.9},
			{EntityType: "PERSON", Start: 2, End: 2, Score: 0.9},
		}
	})
	spans, err := NewHTTP(srv.URL, HTTPConfig{}).Analyze(context.Background(), Request{Text: "Jane", Entities: []string{"PERSON"}})
	require.NoError(t, err)
	require.Len(t, spans, 1)
	assert.Equal(t, Span{EntityType: "PERSON", Start: 0, End: 4, Score: 0.9}, spans[0])
}

func TestHTTPAnalyzer_StatusError(t *testing.T) {
	srv := presidio(t, func(analyzeRequest) (int, any) {
		return http.StatusInternalServerError, map[string]string{"error": "model not loaded"}
	})
	_, err := NewHTTP(srv.URL, HTTPConfig{}).Analyze(context.Background(), Request{Text: "Jane"})
	var serr *StatusError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, http.StatusInternalServerError, serr.Code)
	assert.Contains(t, serr.Error(), "model not loaded")
}

func TestHTTPAnalyzer_HonorsContext(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(func() { close(release); srv.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := NewHTTP(srv.URL, HTTPConfig{}).Analyze(ctx, Request{Text: "Jane"})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestHTTPAnalyzer_EmptyTextSkipsCall(t *testing.T) {
	var calls atomic.Int32
	srv := presidio(t, func(analyzeRequest) (int, any) {
		calls.Add(1)
		return http.StatusOK, []analyzeResult{}
	})
	spans, err := NewHTTP(srv.URL, HTTPConfig{}).Analyze(context.Background(), Request{})
	require.NoError(t, err)
	assert.Empty(t, spans)
	assert.Equal(t, int32(0), calls.Load())
}

func TestHTTPAnalyzer_RateLimited(t *testing.T) {
	srv := presidio(t, func(analyzeRequest) (int, any) { return http.StatusOK, []analyzeResult{} })
	a := NewHTTP(srv.URL, HTTPConfig{RateLimit: 0.001, Burst: 1})

	_, err := a.Analyze(context.Background(), Request{Text: "a"})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = a.Analyze(ctx, Request{Text: "b"})
	assert.Error(t, err, "second call must wait for a token and give up with the context")
}

func TestHTTPAnalyzer_HealthAndEntities(t *testing.T) {
	srv := presidio(t, nil)
	a := NewHTTP(srv.URL, HTTPConfig{Language: "de"})
	require.NoError(t, a.Health(context.Background()))

	ents, err := a.SupportedEntities(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, []string{"PERSON", "de"}, ents)

	ents, err = a.SupportedEntities(context.Background(), "en&language=fr #x")
	require.NoError(t, err)
	assert.Equal(t, []string{"PERSON", "en&language=fr #x"}, ents)

	down := NewHTTP("http://127.0.0.1:1", HTTPConfig{})
	assert.Error(t, down.Health(context.Background()))
}
