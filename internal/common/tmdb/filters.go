// internal/common/tmdb/filters.go
package tmdb

import (
	"net/url"
	"strconv"
	"strings"

	"cinesense/internal/models"
)

// Browse option lists shown by the UI.
var (
	Genres = []string{
		"Action", "Adventure", "Animation", "Comedy", "Crime", "Documentary",
		"Drama", "Fantasy", "Horror", "Romance", "Sci-Fi", "Thriller",
	}

	MovieDurations = []string{
		"30min - 1hr",
		"1hr - 1.5hrs",
		"1.5hrs - 2hrs",
		"2hrs - 3hrs",
	}

	ShowEpisodeRanges = []string{
		"1 – 15 episodes",
		"16 – 30 episodes",
		"31 – 50 episodes",
		"51+ episodes",
	}
)

const (
	DefaultYearStart = 2000
	DefaultYearEnd   = 2025
)

// Filters is the browse filter set. Keys: genres, startYear, endYear,
// runtime_gte, runtime_lte, episodes_gte, episodes_lte.
type Filters map[string]string

type bounds struct{ gte, lte string }

var durationBounds = map[string]bounds{
	"30min - 1hr":   {"30", "60"},
	"1hr - 1.5hrs":  {"60", "90"},
	"1.5hrs - 2hrs": {"90", "120"},
	"2hrs - 3hrs":   {"120", "180"},
}

var episodeBounds = map[string]bounds{
	"1 – 15 episodes":  {"1", "15"},
	"16 – 30 episodes": {"16", "30"},
	"31 – 50 episodes": {"31", "50"},
	"51+ episodes":     {"51", ""},
}

func BuildMovieFilters(genre, year, duration string) Filters {
	f := baseFilters(genre, year)
	if b, ok := durationBounds[duration]; ok {
		f["runtime_gte"] = b.gte
		f["runtime_lte"] = b.lte
	}
	return f
}

func BuildShowFilters(genre, year, episodes string) Filters {
	f := baseFilters(genre, year)
	if b, ok := episodeBounds[episodes]; ok {
		f["episodes_gte"] = b.gte
		if b.lte != "" {
			f["episodes_lte"] = b.lte
		}
	}
	return f
}

func baseFilters(genre, year string) Filters {
	f := Filters{}
	if genre != "" {
		f["genres"] = genre
	}
	if year != "" {
		f["startYear"] = year
		f["endYear"] = year
	}
	return f
}

// DiscoverParams translates f into TMDB discover query parameters.
// Episode bounds have no discover equivalent and are left out.
func DiscoverParams(mediaType models.MediaType, f Filters) url.Values {
	params := url.Values{}

	if ids := GenreIDs(mediaType, f["genres"]); len(ids) > 0 {
		params.Set("with_genres", strings.Join(ids, ","))
	}

	dateField := "primary_release_date"
	if mediaType == models.MediaTypeTVShow {
		dateField = "first_air_date"
	}
	if y := f["startYear"]; y != "" {
		params.Set(dateField+".gte", y+"-01-01")
	}
	if y := f["endYear"]; y != "" {
		params.Set(dateField+".lte", y+"-12-31")
	}

	if mediaType == models.MediaTypeMovie {
		if v := f["runtime_gte"]; v != "" {
			params.Set("with_runtime.gte", v)
		}
		if v := f["runtime_lte"]; v != "" {
			params.Set("with_runtime.lte", v)
		}
	}

	return params
}

// FilterEpisodes drops shows whose known episode count is outside the
// episodes_gte/episodes_lte bounds. Shows with no count are kept.
func FilterEpisodes(items []models.MediaItem, f Filters) []models.MediaItem {
	gte, hasGte := atoi(f["episodes_gte"])
	lte, hasLte := atoi(f["episodes_lte"])
	if !hasGte && !hasLte {
		return items
	}

	out := items[:0:0]
	for _, item := range items {
		n := item.NumberOfEpisodes
		if n > 0 && ((hasGte && n < gte) || (hasLte && n > lte)) {
			continue
		}
		out = append(out, item)
	}
	return out
}

func atoi(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	n, err := strconv.Atoi(s)
	return n, err == nil
}
