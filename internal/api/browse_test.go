package api

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingTMDB answers every path with a fixed body and remembers the queries.
type recordingTMDB struct {
	mu       sync.Mutex
	requests []*url.URL
}

func (rt *recordingTMDB) last() *url.URL {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	if len(rt.requests) == 0 {
		return nil
	}
	return rt.requests[len(rt.requests)-1]
}

func newRecordingTMDB(t *testing.T) (*recordingTMDB, *httptest.Server) {
	t.Helper()
	rt := &recordingTMDB{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rt.mu.Lock()
		rt.requests = append(rt.requests, r.URL)
		rt.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/tv/404":
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"status_message":"not found"}`))
		case "/movie/550":
			w.Write([]byte(`{"id":550,"title":"Fight Club","custom_field":"kept"}`))
		case "/discover/tv":
			w.Write([]byte(`{"page":1,"results":[{"id":1,"name":"Short","number_of_episodes":8},{"id":2,"name":"Long","number_of_episodes":120}]}`))
		default:
			w.Write([]byte(`{"page":1,"results":[{"id":7,"title":"Anything"}],"total_pages":3,"total_results":41}`))
		}
	}))
	t.Cleanup(server.Close)
	return rt, server
}

func TestBrowseDetail(t *testing.T) {
	_, upstream := newRecordingTMDB(t)

	tests := []struct {
		name       string
		token      string
		path       string
		wantStatus int
		wantError  string
	}{
		{name: "missing token", token: "", path: "/browse/movies/550", wantStatus: http.StatusInternalServerError, wantError: "Missing TMDB_ACCESS_TOKEN"},
		{name: "blank movie id", token: "tok", path: "/browse/movies/%20", wantStatus: http.StatusBadRequest, wantError: "Missing movie ID"},
		{name: "blank show id", token: "tok", path: "/browse/shows/%20", wantStatus: http.StatusBadRequest, wantError: "Missing show ID"},
		{name: "upstream failure", token: "tok", path: "/browse/shows/404", wantStatus: http.StatusInternalServerError, wantError: "Failed to fetch show"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := createTestServer(t, createTestConfig(), newCatalog(t, upstream.URL, tt.token))

			rec, body := do(t, f.server, http.MethodGet, tt.path, "")

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantError, body["error"])
		})
	}
}

func TestBrowseDetail_ProxiesUpstreamDocument(t *testing.T) {
	_, upstream := newRecordingTMDB(t)
	f := createTestServer(t, createTestConfig(), newCatalog(t, upstream.URL, "tok"))

	rec, _ := do(t, f.server, http.MethodGet, "/browse/movies/550", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"id":550,"title":"Fight Club","custom_field":"kept"}`, rec.Body.String())
}

func TestBrowseList_Modes(t *testing.T) {
	tests := []struct {
		name      string
		path      string
		wantPath  string
		wantQuery map[string]string
	}{
		{
			name:      "search",
			path:      "/browse/movies?q=alien&page=2",
			wantPath:  "/search/movie",
			wantQuery: map[string]string{"query": "alien", "page": "2", "include_adult": "false"},
		},
		{
			name:      "trending",
			path:      "/browse/shows?mode=trending&timeWindow=day&language=fr-FR",
			wantPath:  "/trending/tv/day",
			wantQuery: map[string]string{"language": "fr-FR"},
		},
		{
			name:     "trending defaults to week",
			path:     "/browse/movies?mode=trending",
			wantPath: "/trending/movie/week",
		},
		{
			name:     "discover movies with filters",
			path:     "/browse/movies?genre=Comedy&year=2010&duration=1hr%20-%201.5hrs&sort_by=vote_average.desc",
			wantPath: "/discover/movie",
			wantQuery: map[string]string{
				"with_genres":              "35",
				"primary_release_date.gte": "2010-01-01",
				"primary_release_date.lte": "2010-12-31",
				"with_runtime.gte":         "60",
				"with_runtime.lte":         "90",
				"sort_by":                  "vote_average.desc",
			},
		},
		{
			name:     "discover year range",
			path:     "/browse/shows?startYear=2001&endYear=2005",
			wantPath: "/discover/tv",
			wantQuery: map[string]string{
				"first_air_date.gte": "2001-01-01",
				"first_air_date.lte": "2005-12-31",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rt, upstream := newRecordingTMDB(t)
			f := createTestServer(t, createTestConfig(), newCatalog(t, upstream.URL, "tok"))

			rec, body := do(t, f.server, http.MethodGet, tt.path, "")

			require.Equal(t, http.StatusOK, rec.Code)
			assert.Contains(t, body, "results")

			got := rt.last()
			require.NotNil(t, got)
			assert.Equal(t, tt.wantPath, got.Path)
			for k, v := range tt.wantQuery {
				assert.Equal(t, v, got.Query().Get(k), k)
			}
		})
	}
}

func TestBrowseList_EpisodeFilterAppliedToShows(t *testing.T) {
	_, upstream := newRecordingTMDB(t)
	f := createTestServer(t, createTestConfig(), newCatalog(t, upstream.URL, "tok"))

	rec, body := do(t, f.server, http.MethodGet, "/browse/shows?episodes=1%20%E2%80%93%2015%20episodes", "")

	require.Equal(t, http.StatusOK, rec.Code)
	results := body["results"].([]interface{})
	require.Len(t, results, 1)
	assert.Equal(t, "Short", results[0].(map[string]interface{})["name"])
}

func TestBrowseList_Failures(t *testing.T) {
	f := createTestServer(t, createTestConfig(), newCatalog(t, "http://127.0.0.1:1", ""))
	rec, body := do(t, f.server, http.MethodGet, "/browse/movies", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Missing TMDB_ACCESS_TOKEN", body["error"])

	f = createTestServer(t, createTestConfig(), newCatalog(t, "http://127.0.0.1:1", "tok"))
	rec, body = do(t, f.server, http.MethodGet, "/browse/shows?q=anything", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Failed to fetch shows", body["error"])
}

func TestBrowseFilters(t *testing.T) {
	f := createTestServer(t, createTestConfig(), nil)

	rec, body := do(t, f.server, http.MethodGet, "/browse/filters", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, body["genres"], "Comedy")
	assert.Len(t, body["movieDurations"], 4)
	assert.Equal(t, float64(2000), body["defaultYearStart"])
}
