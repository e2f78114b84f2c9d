// internal/workers/recommendation/resolve-recommendations/handler_test.go
package resolverecommendations

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "cinesense/internal/common/errors"
	"cinesense/internal/common/genai"
	"cinesense/internal/common/logger"
	"cinesense/internal/models"
)

// ==========================
// Test Helper Functions
// ==========================

type stubGenerator struct {
	result interface{}
	err    error
	prompt string
	schema map[string]interface{}
}

func (s *stubGenerator) GenerateStructured(_ context.Context, prompt string, schema map[string]interface{}) (interface{}, error) {
	s.prompt = prompt
	s.schema = schema
	return s.result, s.err
}

type stubCatalog struct {
	mu         sync.Mutex
	movies     map[string][]models.MediaItem
	shows      map[string][]models.MediaItem
	details    map[string]*models.MediaItem
	searchErr  error
	detailErr  error
	delay      map[string]time.Duration
	searches   []string
	detailHits []string
}

func newStubCatalog() *stubCatalog {
	return &stubCatalog{
		movies:  map[string][]models.MediaItem{},
		shows:   map[string][]models.MediaItem{},
		details: map[string]*models.MediaItem{},
		delay:   map[string]time.Duration{},
	}
}

func (c *stubCatalog) record(kind, title string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.searches = append(c.searches, kind+":"+title)
}

func (c *stubCatalog) SearchMovies(_ context.Context, title string, page int) ([]models.MediaItem, error) {
	c.record("movie", title)
	time.Sleep(c.delay[title])
	if c.searchErr != nil {
		return nil, c.searchErr
	}
	return c.movies[title], nil
}

func (c *stubCatalog) SearchShows(_ context.Context, title string, page int) ([]models.MediaItem, error) {
	c.record("tv", title)
	time.Sleep(c.delay[title])
	if c.searchErr != nil {
		return nil, c.searchErr
	}
	return c.shows[title], nil
}

func (c *stubCatalog) Details(_ context.Context, mediaType models.MediaType, id int64) (*models.MediaItem, error) {
	key := fmt.Sprintf("%s/%d", mediaType.TMDBPath(), id)
	c.mu.Lock()
	c.detailHits = append(c.detailHits, key)
	c.mu.Unlock()

	if c.detailErr != nil {
		return nil, c.detailErr
	}
	item, ok := c.details[key]
	if !ok {
		return nil, errors.New("HTTP 404")
	}
	return item, nil
}

func createTestConfig() *Config {
	return &Config{
		Timeout:     10 * time.Second,
		Concurrency: 4,
	}
}

func createTestHandler(t *testing.T, gen genai.Generator, catalog Catalog) *Handler {
	return NewHandler(createTestConfig(), gen, catalog, logger.NewTestLogger(t))
}

func floatPtr(f float64) *float64 { return &f }

func reply(greeting string, recs ...map[string]interface{}) map[string]interface{} {
	items := make([]interface{}, len(recs))
	for i, r := range recs {
		items[i] = r
	}
	out := map[string]interface{}{"recommendations": items}
	if greeting != "" {
		out["greeting"] = greeting
	}
	return out
}

// ==========================
// Core Functionality Tests
// ==========================

func TestHandler_Execute_ResolvesAgainstCatalog(t *testing.T) {
	catalog := newStubCatalog()
	catalog.movies["Superbad"] = []models.MediaItem{{ID: 123, Title: "Superbad"}}
	catalog.details["movie/123"] = &models.MediaItem{ID: 123, Title: "Superbad", VoteAverage: floatPtr(7.0)}

	gen := &stubGenerator{result: reply("Sure!", map[string]interface{}{"title": "Superbad", "type": "Movie"})}
	h := createTestHandler(t, gen, catalog)

	out, err := h.Execute(context.Background(), &Input{Message: "I want a funny movie"})

	require.NoError(t, err)
	assert.Equal(t, "Sure!", out.Greeting)
	require.Len(t, out.Recommendations, 1)

	rec := out.Recommendations[0]
	assert.Equal(t, models.MediaTypeMovie, rec.MediaType)
	assert.Empty(t, rec.Reason)
	assert.Equal(t, int64(123), rec.Item.ID)
	assert.Equal(t, 7.0, *rec.Item.VoteAverage)

	assert.Equal(t, ResponseSchema(), gen.schema)
	assert.Equal(t, []string{"movie:Superbad"}, catalog.searches)
}

func TestHandler_Execute_MediaClassification(t *testing.T) {
	tests := []struct {
		name          string
		draftType     string
		withMatch     bool
		expectedType  models.MediaType
		expectedCalls []string
	}{
		{name: "tv series", draftType: "TV Series", withMatch: true, expectedType: models.MediaTypeTVShow, expectedCalls: []string{"tv:X"}},
		{name: "show", draftType: "Show", withMatch: true, expectedType: models.MediaTypeTVShow, expectedCalls: []string{"tv:X"}},
		{name: "movie", draftType: "Movie", withMatch: true, expectedType: models.MediaTypeMovie, expectedCalls: []string{"movie:X"}},
		{name: "show without match falls back to movie", draftType: "show", expectedType: models.MediaTypeMovie, expectedCalls: []string{"tv:X"}},
		{name: "tv without match stays tv", draftType: "tv", expectedType: models.MediaTypeTVShow, expectedCalls: []string{"tv:X"}},
		{name: "unknown type skips search", draftType: "Documentary", expectedType: models.MediaTypeMovie},
		{name: "missing type skips search", draftType: "", expectedType: models.MediaTypeMovie},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			catalog := newStubCatalog()
			if tt.withMatch {
				catalog.movies["X"] = []models.MediaItem{{ID: 1}}
				catalog.shows["X"] = []models.MediaItem{{ID: 2}}
				catalog.details["movie/1"] = &models.MediaItem{ID: 1, Title: "X"}
				catalog.details["tv/2"] = &models.MediaItem{ID: 2, Name: "X"}
			}

			rec := map[string]interface{}{"title": "X"}
			if tt.draftType != "" {
				rec["type"] = tt.draftType
			}
			h := createTestHandler(t, &stubGenerator{result: reply("", rec)}, catalog)

			out, err := h.Execute(context.Background(), &Input{Message: "something"})
			require.NoError(t, err)
			require.Len(t, out.Recommendations, 1)
			assert.Equal(t, tt.expectedType, out.Recommendations[0].MediaType)
			assert.Equal(t, tt.expectedCalls, catalog.searches)
		})
	}
}

func TestHandler_Execute_DegradesToTitle(t *testing.T) {
	tests := []struct {
		name      string
		configure func(c *stubCatalog)
	}{
		{
			name:      "search error",
			configure: func(c *stubCatalog) { c.searchErr = errors.New("timeout") },
		},
		{
			name:      "no results",
			configure: func(c *stubCatalog) {},
		},
		{
			name:      "result without id",
			configure: func(c *stubCatalog) { c.movies["Ghost"] = []models.MediaItem{{Title: "Ghost"}} },
		},
		{
			name: "details unavailable",
			configure: func(c *stubCatalog) {
				c.movies["Ghost"] = []models.MediaItem{{ID: 9}}
				c.detailErr = errors.New("HTTP 500")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			catalog := newStubCatalog()
			tt.configure(catalog)
			gen := &stubGenerator{result: reply("", map[string]interface{}{"title": "Ghost", "type": "movie", "reason": "spooky"})}
			h := createTestHandler(t, gen, catalog)

			out, err := h.Execute(context.Background(), &Input{Message: "scary"})

			require.NoError(t, err)
			require.Len(t, out.Recommendations, 1)
			assert.Equal(t, models.ResolvedRecommendation{
				MediaType: models.MediaTypeMovie,
				Reason:    "spooky",
				Item:      models.TitleOnly("Ghost"),
			}, out.Recommendations[0])
		})
	}
}

func TestHandler_Execute_PreservesDraftOrder(t *testing.T) {
	catalog := newStubCatalog()
	titles := []string{"A", "B", "C", "D", "E", "F"}
	var recs []map[string]interface{}
	for i, title := range titles {
		id := int64(i + 1)
		catalog.movies[title] = []models.MediaItem{{ID: id}}
		catalog.details[fmt.Sprintf("movie/%d", id)] = &models.MediaItem{ID: id, Title: title}
		catalog.delay[title] = time.Duration(len(titles)-i) * 5 * time.Millisecond
		recs = append(recs, map[string]interface{}{"title": title, "type": "movie"})
	}

	h := createTestHandler(t, &stubGenerator{result: reply("", recs...)}, catalog)
	out, err := h.Execute(context.Background(), &Input{Message: "many"})

	require.NoError(t, err)
	var got []string
	for _, r := range out.Recommendations {
		got = append(got, r.Item.Title)
	}
	assert.Equal(t, titles, got)
}

func TestHandler_Execute_SkipsUntitledDrafts(t *testing.T) {
	gen := &stubGenerator{result: map[string]interface{}{
		"recommendations": []interface{}{
			map[string]interface{}{"title": "  ", "type": "movie"},
			"not an object",
			map[string]interface{}{"type": "movie"},
			map[string]interface{}{"title": " Heat ", "type": "MOVIE"},
		},
	}}
	h := createTestHandler(t, gen, newStubCatalog())

	out, err := h.Execute(context.Background(), &Input{Message: "crime"})

	require.NoError(t, err)
	require.Len(t, out.Recommendations, 1)
	assert.Equal(t, "Heat", out.Recommendations[0].Item.Title)
}

func TestHandler_Execute_NoRecommendations(t *testing.T) {
	h := createTestHandler(t, &stubGenerator{result: map[string]interface{}{"greeting": "Hello!"}}, newStubCatalog())

	out, err := h.Execute(context.Background(), &Input{Message: "hi"})

	require.NoError(t, err)
	assert.Equal(t, "Hello!", out.Greeting)
	assert.NotNil(t, out.Recommendations)
	assert.Empty(t, out.Recommendations)
}

// ==========================
// Error Handling Tests
// ==========================

func TestHandler_Execute_EmptyMessage(t *testing.T) {
	gen := &stubGenerator{}
	h := createTestHandler(t, gen, newStubCatalog())

	for _, msg := range []string{"", "   ", "\n\t"} {
		_, err := h.Execute(context.Background(), &Input{Message: msg})
		require.Error(t, err)

		var stdErr *apperrors.StandardError
		require.True(t, errors.As(err, &stdErr))
		assert.Equal(t, apperrors.ErrCodeEmptyInput, stdErr.Code)
		assert.Equal(t, "Empty message", stdErr.Message)
	}
	assert.Empty(t, gen.prompt, "generator is not called")
}

func TestHandler_Execute_GenerationFailure(t *testing.T) {
	genErr := &genai.GenerationError{Primary: errors.New("gemini returned status 429")}
	h := createTestHandler(t, &stubGenerator{err: genErr}, newStubCatalog())

	_, err := h.Execute(context.Background(), &Input{Message: "anything"})

	require.Error(t, err)
	var stdErr *apperrors.StandardError
	require.True(t, errors.As(err, &stdErr))
	assert.Equal(t, apperrors.ErrCodeGenerationFailed, stdErr.Code)
	assert.Equal(t, "gemini returned status 429", stdErr.Message)
	assert.ErrorIs(t, err, genai.ErrGenerationFailed)
}

// ==========================
// Prompt and Parsing Tests
// ==========================

func TestBuildPrompt(t *testing.T) {
	history := []models.ChatMessage{
		{Role: models.RoleUser, Content: "I like sci-fi"},
		{Role: models.RoleAssistant, Content: "Try Arrival"},
		{Role: "system", Content: "ignored role"},
	}

	prompt := BuildPrompt("something newer", history)

	expected := systemIntro + "\n\n" +
		"User: I like sci-fi\nAssistant: Try Arrival\nAssistant: ignored role" + "\n\n" +
		"User: something newer" + "\n\n" +
		"Assistant:"
	assert.Equal(t, expected, prompt)

	assert.Equal(t, systemIntro+"\n\nUser: hi\n\nAssistant:", BuildPrompt("hi", nil))
}

func TestParseDrafts(t *testing.T) {
	tests := []struct {
		name             string
		raw              interface{}
		expectedGreeting string
		expectedDrafts   []models.RecommendationDraft
	}{
		{
			name:           "not an object",
			raw:            []interface{}{"x"},
			expectedDrafts: nil,
		},
		{
			name: "numeric title and greeting",
			raw: map[string]interface{}{
				"greeting":        42.0,
				"recommendations": []interface{}{map[string]interface{}{"title": 1917.0, "type": "Movie", "reason": true}},
			},
			expectedGreeting: "42",
			expectedDrafts:   []models.RecommendationDraft{{Title: "1917", Type: "movie", Reason: "true"}},
		},
		{
			name: "falsy reason dropped",
			raw: map[string]interface{}{
				"greeting":        "",
				"recommendations": []interface{}{map[string]interface{}{"title": "Dark", "type": "TV Show", "reason": ""}},
			},
			expectedDrafts: []models.RecommendationDraft{{Title: "Dark", Type: "tv show"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			greeting, drafts := ParseDrafts(tt.raw)
			assert.Equal(t, tt.expectedGreeting, greeting)
			if tt.expectedDrafts == nil {
				assert.Empty(t, drafts)
				return
			}
			assert.Equal(t, tt.expectedDrafts, drafts)
		})
	}
}
