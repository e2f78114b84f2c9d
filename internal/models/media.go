// internal/models/media.go
package models

import (
	"bytes"

	"cinesense/internal/common/jsonx"
)

// MediaType is the kind of catalog entry a recommendation points at.
type MediaType string

const (
	MediaTypeMovie  MediaType = "movie"
	MediaTypeTVShow MediaType = "tvShow"
)

// TMDBPath is the path segment the metadata API uses for this media type.
func (m MediaType) TMDBPath() string {
	if m == MediaTypeTVShow {
		return "tv"
	}
	return "movie"
}

// Genre accepts both {"id":28,"name":"Action"} and a bare "Action".
type Genre struct {
	ID   int    `json:"id,omitempty"`
	Name string `json:"name"`
}

func (g *Genre) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		return jsonx.Unmarshal(data, &g.Name)
	}
	type plain Genre
	var p plain
	if err := jsonx.Unmarshal(data, &p); err != nil {
		return err
	}
	*g = Genre(p)
	return nil
}

// MediaItem is a catalog record for a movie or show. A record that could not
// be resolved carries only Title.
//
// A decoded record keeps the document it was decoded from and encodes back to
// it verbatim, so provider fields without a typed counterpart survive. The
// typed fields are a read-only view of that document.
type MediaItem struct {
	ID               int64    `json:"id,omitempty"`
	Title            string   `json:"title,omitempty"`
	Name             string   `json:"name,omitempty"`
	OriginalTitle    string   `json:"original_title,omitempty"`
	Overview         string   `json:"overview,omitempty"`
	Tagline          string   `json:"tagline,omitempty"`
	ReleaseDate      string   `json:"release_date,omitempty"`
	FirstAirDate     string   `json:"first_air_date,omitempty"`
	VoteAverage      *float64 `json:"vote_average,omitempty"`
	VoteCount        int      `json:"vote_count,omitempty"`
	Popularity       *float64 `json:"popularity,omitempty"`
	OriginalLanguage string   `json:"original_language,omitempty"`
	Adult            bool     `json:"adult,omitempty"`
	Genres           []Genre  `json:"genres,omitempty"`
	GenreIDs         []int    `json:"genre_ids,omitempty"`
	PosterPath       string   `json:"poster_path,omitempty"`
	BackdropPath     string   `json:"backdrop_path,omitempty"`
	Runtime          int      `json:"runtime,omitempty"`
	NumberOfSeasons  int      `json:"number_of_seasons,omitempty"`
	NumberOfEpisodes int      `json:"number_of_episodes,omitempty"`
	Status           string   `json:"status,omitempty"`

	raw []byte
}

type mediaItemFields MediaItem

func (m *MediaItem) UnmarshalJSON(data []byte) error {
	var fields mediaItemFields
	if err := jsonx.Unmarshal(data, &fields); err != nil {
		return err
	}
	*m = MediaItem(fields)

	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '{' {
		m.raw = append([]byte(nil), data...)
	}
	return nil
}

func (m MediaItem) MarshalJSON() ([]byte, error) {
	if len(m.raw) > 0 {
		return m.raw, nil
	}
	return jsonx.Marshal(mediaItemFields(m))
}

// Raw is the provider document the item was decoded from, or nil for items
// built in code.
func (m MediaItem) Raw() []byte {
	return m.raw
}

// TitleOnly is the stand-in used when a draft cannot be resolved.
func TitleOnly(title string) MediaItem {
	return MediaItem{Title: title}
}

// DisplayTitle is the movie title, or the show name.
func (m MediaItem) DisplayTitle() string {
	if m.Title != "" {
		return m.Title
	}
	return m.Name
}

// Date is the release date, or the first air date.
func (m MediaItem) Date() string {
	if m.ReleaseDate != "" {
		return m.ReleaseDate
	}
	return m.FirstAirDate
}

// Page is one page of a metadata search or list endpoint.
type Page struct {
	Page         int         `json:"page"`
	Results      []MediaItem `json:"results"`
	TotalPages   int         `json:"total_pages"`
	TotalResults int         `json:"total_results"`
}
