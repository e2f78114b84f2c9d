package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cinesense/internal/common/cache"
	"cinesense/internal/common/config"
	"cinesense/internal/common/jsonx"
	"cinesense/internal/common/logger"
	"cinesense/internal/common/tmdb"

	analyzeconversation "cinesense/internal/workers/recommendation/analyze-conversation"
	rerankcandidates "cinesense/internal/workers/recommendation/rerank-candidates"
	resolverecommendations "cinesense/internal/workers/recommendation/resolve-recommendations"
)

// ==========================
// Test Fixtures
// ==========================

type stubGenerator struct {
	mu     sync.Mutex
	result interface{}
	err    error
	calls  int
}

func (s *stubGenerator) GenerateStructured(_ context.Context, _ string, _ map[string]interface{}) (interface{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return s.result, s.err
}

type fixture struct {
	server   http.Handler
	resolver *stubGenerator
	analyzer *stubGenerator
	catalog  *tmdb.Client
}

func createTestConfig() *config.Config {
	return &config.Config{
		Pipeline: config.PipelineConfig{TopK: 10, ResolveConcurrency: 2},
	}
}

// newTMDB serves a tiny catalog: a Superbad search hit and its detail record.
func newTMDB(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/search/movie":
			w.Write([]byte(`{"page":1,"results":[{"id":123,"title":"Superbad"}]}`))
		case "/movie/123":
			w.Write([]byte(`{"id":123,"title":"Superbad","vote_average":7.6,"popularity":50,"release_date":"2007-08-17","genres":[{"id":35,"name":"Comedy"}],"imdb_id":"tt0829482","budget":20000000,"adult":false,"vote_count":0}`))
		default:
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"status_message":"not found"}`))
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func newCatalog(t *testing.T, baseURL, token string) *tmdb.Client {
	t.Helper()
	c, err := tmdb.NewClient(config.TMDBConfig{BaseURL: baseURL, AccessToken: token, Timeout: 2000}, logger.NewNoOpLogger())
	require.NoError(t, err)
	t.Cleanup(c.Close)
	return c
}

func createTestServer(t *testing.T, cfg *config.Config, catalog *tmdb.Client, checks ...ReadinessCheck) *fixture {
	t.Helper()
	log := logger.NewTestLogger(t)
	store := cache.NewMemory()

	resolverGen := &stubGenerator{}
	analyzerGen := &stubGenerator{}

	var browse Catalog
	if catalog != nil {
		browse = catalog
	}

	deps := Dependencies{
		Analyzer: analyzeconversation.NewHandler(
			&analyzeconversation.Config{Timeout: time.Second, CacheTTL: time.Minute}, analyzerGen, store, log),
		Resolver: resolverecommendations.NewHandler(
			&resolverecommendations.Config{Timeout: time.Second, Concurrency: 2}, resolverGen, catalog, log),
		Reranker: rerankcandidates.NewHandler(
			&rerankcandidates.Config{Timeout: time.Second, CacheTTL: time.Minute, DefaultTopK: 10, SlowAfter: time.Second}, store, log),
		Catalog: browse,
		Checks:  checks,
		Logger:  log,
	}

	return &fixture{
		server:   NewServer(cfg, deps).Handler(),
		resolver: resolverGen,
		analyzer: analyzerGen,
		catalog:  catalog,
	}
}

func do(t *testing.T, h http.Handler, method, path, body string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var decoded map[string]interface{}
	if rec.Body.Len() > 0 {
		_ = jsonx.Unmarshal(rec.Body.Bytes(), &decoded)
	}
	return rec, decoded
}

func superbadReply() map[string]interface{} {
	return map[string]interface{}{
		"greeting": "Sure!",
		"recommendations": []interface{}{
			map[string]interface{}{"title": "Superbad", "type": "Movie", "reason": "Teen comedy classic"},
		},
	}
}

// ==========================
// POST /chat
// ==========================

func TestChat_ResolvesRecommendations(t *testing.T) {
	tmdbServer := newTMDB(t)
	f := createTestServer(t, createTestConfig(), newCatalog(t, tmdbServer.URL, "tok"))
	f.resolver.result = superbadReply()

	rec, body := do(t, f.server, http.MethodPost, "/chat", `{"message":"I want a funny movie"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, "Sure!", body["greeting"])
	assert.NotContains(t, body, "analysis")

	recs := body["recommendations"].([]interface{})
	require.Len(t, recs, 1)
	first := recs[0].(map[string]interface{})
	assert.Equal(t, "movie", first["mediaType"])
	assert.Equal(t, "Teen comedy classic", first["reason"])
	item := first["item"].(map[string]interface{})
	assert.Equal(t, float64(123), item["id"])
	assert.Equal(t, 7.6, item["vote_average"])
	assert.Equal(t, "tt0829482", item["imdb_id"])
	assert.Equal(t, float64(20000000), item["budget"])
	assert.Equal(t, false, item["adult"])
	assert.Equal(t, float64(0), item["vote_count"])
}

func TestChat_RejectsBadRequests(t *testing.T) {
	history := make([]string, 51)
	for i := range history {
		history[i] = `{"role":"user","content":"hi"}`
	}

	tests := []struct {
		name      string
		body      string
		wantError string
	}{
		{name: "invalid json", body: `{"message":`, wantError: "Invalid request body"},
		{name: "empty body", body: ``, wantError: "Invalid request body"},
		{name: "wrong type", body: `{"message":42}`, wantError: "Invalid request body"},
		{name: "missing message", body: `{}`, wantError: "Empty message"},
		{name: "blank message", body: `{"message":"   "}`, wantError: "Empty message"},
		{name: "history too long", body: `{"message":"hi","history":[` + strings.Join(history, ",") + `]}`, wantError: "History"},
		{name: "topK out of range", body: `{"message":"hi","topK":99}`, wantError: "TopK"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := createTestServer(t, createTestConfig(), nil)

			rec, body := do(t, f.server, http.MethodPost, "/chat", tt.body)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, body["error"], tt.wantError)
			assert.Zero(t, f.resolver.calls)
		})
	}
}

func TestChat_GenerationFailure(t *testing.T) {
	f := createTestServer(t, createTestConfig(), nil)
	f.resolver.err = errors.New("gemini quota exceeded")

	rec, body := do(t, f.server, http.MethodPost, "/chat", `{"message":"hi"}`)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "gemini quota exceeded", body["error"])
}

func TestChat_WithRerank(t *testing.T) {
	tmdbServer := newTMDB(t)
	f := createTestServer(t, createTestConfig(), newCatalog(t, tmdbServer.URL, "tok"))
	f.resolver.result = superbadReply()
	f.analyzer.result = map[string]interface{}{
		"intent":    "recommend",
		"sentiment": map[string]interface{}{"score": 0.5, "label": "positive"},
		"topics":    []interface{}{"comedy"},
	}

	rec, body := do(t, f.server, http.MethodPost, "/chat",
		`{"message":"something funny","history":[{"role":"user","content":"hi"}],"rerank":true,"topK":5}`)

	require.Equal(t, http.StatusOK, rec.Code)

	analysis := body["analysis"].(map[string]interface{})
	assert.Equal(t, "recommend", analysis["intent"])

	recs := body["recommendations"].([]interface{})
	require.Len(t, recs, 1)
	first := recs[0].(map[string]interface{})
	assert.Greater(t, first["_score"], 0.0)
	assert.Contains(t, first["_explanation"], "genre+")
	assert.Contains(t, first["_explanation"], "final=")
}

func TestChat_RerankSurvivesAnalyzerFailure(t *testing.T) {
	tmdbServer := newTMDB(t)
	f := createTestServer(t, createTestConfig(), newCatalog(t, tmdbServer.URL, "tok"))
	f.resolver.result = superbadReply()
	f.analyzer.err = errors.New("model offline")

	rec, body := do(t, f.server, http.MethodPost, "/chat", `{"message":"hi","rerank":true}`)

	require.Equal(t, http.StatusOK, rec.Code)
	analysis := body["analysis"].(map[string]interface{})
	assert.Equal(t, "analysis-failed", analysis["explanation"])
	assert.Len(t, body["recommendations"], 1)
}

// ==========================
// POST /analyze, POST /rerank
// ==========================

func TestAnalyze(t *testing.T) {
	f := createTestServer(t, createTestConfig(), nil)
	f.analyzer.result = map[string]interface{}{"intent": "mood", "confidence": 0.9}

	rec, body := do(t, f.server, http.MethodPost, "/analyze", `{"message":"I feel down","history":["hello"]}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "mood", body["intent"])
	assert.Equal(t, 0.9, body["confidence"])

	rec, body = do(t, f.server, http.MethodPost, "/analyze", `{"message":""}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Empty message", body["error"])
}

func TestRerank(t *testing.T) {
	f := createTestServer(t, createTestConfig(), nil)

	payload := `{
		"candidates": [
			{"mediaType":"movie","item":{"id":1,"title":"Low","vote_average":2}},
			{"mediaType":"movie","item":{"id":2,"title":"High","vote_average":9}}
		],
		"analysis": {"intent":"recommend","sentiment":{"score":0,"label":"neutral"}},
		"topK": 1
	}`
	rec, body := do(t, f.server, http.MethodPost, "/rerank", payload)

	require.Equal(t, http.StatusOK, rec.Code)
	ranked := body["ranked"].([]interface{})
	require.Len(t, ranked, 1)
	item := ranked[0].(map[string]interface{})["item"].(map[string]interface{})
	assert.Equal(t, "High", item["title"])

	rec, _ = do(t, f.server, http.MethodPost, "/rerank", `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// ==========================
// Health, readiness, middleware
// ==========================

func TestHealth(t *testing.T) {
	f := createTestServer(t, createTestConfig(), nil)

	rec, body := do(t, f.server, http.MethodGet, "/health", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", body["status"])
	assert.NotEmpty(t, rec.Header().Get(requestIDHeader))
}

func TestReady(t *testing.T) {
	ok := ReadinessCheck{Name: "redis", Check: func(context.Context) error { return nil }}
	down := ReadinessCheck{Name: "zeebe", Check: func(context.Context) error { return errors.New("no brokers") }}

	f := createTestServer(t, createTestConfig(), nil, ok)
	rec, body := do(t, f.server, http.MethodGet, "/ready", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ready", body["status"])

	f = createTestServer(t, createTestConfig(), nil, ok, down)
	rec, body = do(t, f.server, http.MethodGet, "/ready", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	checks := body["checks"].(map[string]interface{})
	assert.Equal(t, "ok", checks["redis"])
	assert.Equal(t, "no brokers", checks["zeebe"])
}

func TestRequestID_PreservesIncomingHeader(t *testing.T) {
	f := createTestServer(t, createTestConfig(), nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(requestIDHeader, "abc-123")
	rec := httptest.NewRecorder()
	f.server.ServeHTTP(rec, req)

	assert.Equal(t, "abc-123", rec.Header().Get(requestIDHeader))
}

func TestRateLimit_AppliesToPostRoutes(t *testing.T) {
	cfg := createTestConfig()
	cfg.Server.RateLimit = config.RateLimitConfig{Requests: 1, Window: 60000}
	f := createTestServer(t, cfg, nil)
	f.analyzer.result = map[string]interface{}{"intent": "recommend"}

	rec, _ := do(t, f.server, http.MethodPost, "/analyze", `{"message":"hi"}`)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, body := do(t, f.server, http.MethodPost, "/analyze", `{"message":"hi again"}`)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "Too many requests", body["error"])

	rec, _ = do(t, f.server, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCORS_Preflight(t *testing.T) {
	f := createTestServer(t, createTestConfig(), nil)

	req := httptest.NewRequest(http.MethodOptions, "/chat", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	f.server.ServeHTTP(rec, req)

	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestActivities(t *testing.T) {
	f := createTestServer(t, createTestConfig(), nil)
	rec, body := do(t, f.server, http.MethodGet, "/activities", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Activity registry not loaded", body["error"])
}
