// internal/common/tmdb/genres.go
package tmdb

import (
	"strconv"
	"strings"

	"cinesense/internal/models"
)

var movieGenres = map[string]int{
	"action":          28,
	"adventure":       12,
	"animation":       16,
	"comedy":          35,
	"crime":           80,
	"documentary":     99,
	"drama":           18,
	"family":          10751,
	"fantasy":         14,
	"history":         36,
	"horror":          27,
	"music":           10402,
	"mystery":         9648,
	"romance":         10749,
	"sci-fi":          878,
	"science fiction": 878,
	"thriller":        53,
	"war":             10752,
	"western":         37,
}

// TV uses combined genres; horror, romance and thriller have no TV id.
var showGenres = map[string]int{
	"action":          10759,
	"adventure":       10759,
	"animation":       16,
	"comedy":          35,
	"crime":           80,
	"documentary":     99,
	"drama":           18,
	"family":          10751,
	"fantasy":         10765,
	"kids":            10762,
	"mystery":         9648,
	"sci-fi":          10765,
	"science fiction": 10765,
	"war":             10768,
	"western":         37,
}

// GenreIDs resolves a comma-separated list of genre names or ids. Unknown
// names are skipped and duplicates collapse.
func GenreIDs(mediaType models.MediaType, genres string) []string {
	table := movieGenres
	if mediaType == models.MediaTypeTVShow {
		table = showGenres
	}

	seen := make(map[string]bool)
	var ids []string
	for _, g := range strings.Split(genres, ",") {
		g = strings.ToLower(strings.TrimSpace(g))
		if g == "" {
			continue
		}

		id := g
		if _, err := strconv.Atoi(g); err != nil {
			n, ok := table[g]
			if !ok {
				continue
			}
			id = strconv.Itoa(n)
		}

		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	return ids
}
