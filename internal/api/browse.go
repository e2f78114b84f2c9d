// internal/api/browse.go
package api

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"cinesense/internal/common/tmdb"
	"cinesense/internal/models"
)

const missingTokenMessage = "Missing TMDB_ACCESS_TOKEN"

// passThroughParams are forwarded to TMDB list endpoints untouched.
var passThroughParams = []string{"page", "language", "sort_by", "include_adult"}

type filterOptions struct {
	Genres            []string `json:"genres"`
	MovieDurations    []string `json:"movieDurations"`
	ShowEpisodeRanges []string `json:"showEpisodeRanges"`
	DefaultYearStart  int      `json:"defaultYearStart"`
	DefaultYearEnd    int      `json:"defaultYearEnd"`
}

func (s *Server) browseFilters(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, filterOptions{
		Genres:            tmdb.Genres,
		MovieDurations:    tmdb.MovieDurations,
		ShowEpisodeRanges: tmdb.ShowEpisodeRanges,
		DefaultYearStart:  tmdb.DefaultYearStart,
		DefaultYearEnd:    tmdb.DefaultYearEnd,
	})
}

func (s *Server) browseDetail(mediaType models.MediaType) http.HandlerFunc {
	noun := nounFor(mediaType)
	return func(w http.ResponseWriter, r *http.Request) {
		if s.deps.Catalog == nil || !s.deps.Catalog.Configured() {
			writeError(w, http.StatusInternalServerError, missingTokenMessage)
			return
		}

		id := strings.TrimSpace(chi.URLParam(r, "id"))
		if id == "" {
			writeError(w, http.StatusBadRequest, "Missing "+noun+" ID")
			return
		}

		body, err := s.deps.Catalog.RawDetails(r.Context(), mediaType, id)
		if err != nil {
			s.logger.Warn("detail fetch failed", map[string]interface{}{
				"mediaType": string(mediaType),
				"id":        id,
				"error":     err.Error(),
			})
			writeError(w, http.StatusInternalServerError, "Failed to fetch "+noun)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write(body)
	}
}

func (s *Server) browseList(mediaType models.MediaType) http.HandlerFunc {
	noun := nounFor(mediaType) + "s"
	return func(w http.ResponseWriter, r *http.Request) {
		if s.deps.Catalog == nil || !s.deps.Catalog.Configured() {
			writeError(w, http.StatusInternalServerError, missingTokenMessage)
			return
		}

		q := r.URL.Query()
		extra := url.Values{}
		for _, name := range passThroughParams {
			if v := q.Get(name); v != "" {
				extra.Set(name, v)
			}
		}

		var (
			page *models.Page
			err  error
		)
		switch {
		case strings.TrimSpace(q.Get("q")) != "":
			pageNum, _ := strconv.Atoi(q.Get("page"))
			page, err = s.deps.Catalog.Search(r.Context(), mediaType, strings.TrimSpace(q.Get("q")), pageNum)
		case q.Get("mode") == "trending":
			page, err = s.deps.Catalog.Trending(r.Context(), mediaType, q.Get("timeWindow"), extra)
		default:
			page, err = s.deps.Catalog.Discover(r.Context(), mediaType, listFilters(mediaType, q), extra)
		}

		if err != nil {
			if errors.Is(err, tmdb.ErrNotConfigured) {
				writeError(w, http.StatusInternalServerError, missingTokenMessage)
				return
			}
			s.logger.Warn("list fetch failed", map[string]interface{}{
				"mediaType": string(mediaType),
				"error":     err.Error(),
			})
			writeError(w, http.StatusInternalServerError, "Failed to fetch "+noun)
			return
		}

		writeJSON(w, http.StatusOK, page)
	}
}

// listFilters builds discover filters from the query. Explicit startYear and
// endYear widen a single-year selection into a range.
func listFilters(mediaType models.MediaType, q url.Values) tmdb.Filters {
	var f tmdb.Filters
	if mediaType == models.MediaTypeTVShow {
		f = tmdb.BuildShowFilters(q.Get("genre"), q.Get("year"), q.Get("episodes"))
	} else {
		f = tmdb.BuildMovieFilters(q.Get("genre"), q.Get("year"), q.Get("duration"))
	}
	for _, key := range []string{"startYear", "endYear"} {
		if v := q.Get(key); v != "" {
			f[key] = v
		}
	}
	return f
}

func nounFor(mediaType models.MediaType) string {
	if mediaType == models.MediaTypeTVShow {
		return "show"
	}
	return "movie"
}
