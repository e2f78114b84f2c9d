// internal/common/tmdb/client.go
package tmdb

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dgraph-io/ristretto/v2"

	"cinesense/internal/common/config"
	httpclient "cinesense/internal/common/http"
	"cinesense/internal/common/jsonx"
	"cinesense/internal/common/logger"
	"cinesense/internal/common/metrics"
	"cinesense/internal/models"
)

var (
	ErrNotConfigured = errors.New("METADATA_NOT_CONFIGURED")
	ErrNotFound      = errors.New("METADATA_NOT_FOUND")
)

// StatusError is returned for any non-2xx answer from the metadata API.
type StatusError struct {
	StatusCode int
	Path       string
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d for %s", e.StatusCode, e.Path)
}

func (e *StatusError) Is(target error) bool {
	return target == ErrNotFound && e.StatusCode == http.StatusNotFound
}

// Client talks to the TMDB v3 API. Successful GET bodies are memoized by URL.
type Client struct {
	baseURL    string
	token      string
	httpClient *httpclient.Client
	memo       *ristretto.Cache[string, []byte]
	ttl        time.Duration
	logger     logger.Logger
}

func NewClient(cfg config.TMDBConfig, log logger.Logger) (*Client, error) {
	maxCost := cfg.CacheMaxCost
	if maxCost <= 0 {
		maxCost = 64 << 20
	}

	memo, err := ristretto.NewCache(&ristretto.Config[string, []byte]{
		NumCounters: 10_000,
		MaxCost:     maxCost,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create metadata cache: %w", err)
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		token:      cfg.AccessToken,
		httpClient: httpclient.NewClient(config.GetDuration(cfg.Timeout), httpclient.WithRetries(1)),
		memo:       memo,
		ttl:        config.GetDuration(cfg.CacheTTL),
		logger:     log.With(map[string]interface{}{"component": "tmdb"}),
	}, nil
}

// Configured reports whether an access token is present.
func (c *Client) Configured() bool {
	return c.token != ""
}

func (c *Client) Close() {
	c.memo.Close()
}

func (c *Client) SearchMovies(ctx context.Context, title string, page int) ([]models.MediaItem, error) {
	res, err := c.Search(ctx, models.MediaTypeMovie, title, page)
	if err != nil {
		return nil, err
	}
	return res.Results, nil
}

func (c *Client) SearchShows(ctx context.Context, title string, page int) ([]models.MediaItem, error) {
	res, err := c.Search(ctx, models.MediaTypeTVShow, title, page)
	if err != nil {
		return nil, err
	}
	return res.Results, nil
}

// Search runs a title search; results come back best match first.
func (c *Client) Search(ctx context.Context, mediaType models.MediaType, query string, page int) (*models.Page, error) {
	params := url.Values{}
	params.Set("query", query)
	params.Set("page", strconv.Itoa(pageOrFirst(page)))
	params.Set("include_adult", "false")

	return c.page(ctx, "search", "/search/"+mediaType.TMDBPath(), params)
}

// Details fetches the full record for one movie or show.
func (c *Client) Details(ctx context.Context, mediaType models.MediaType, id int64) (*models.MediaItem, error) {
	body, err := c.get(ctx, "details", fmt.Sprintf("/%s/%d", mediaType.TMDBPath(), id), nil)
	if err != nil {
		return nil, err
	}

	var item models.MediaItem
	if err := jsonx.Unmarshal(body, &item); err != nil {
		return nil, fmt.Errorf("failed to decode details: %w", err)
	}
	return &item, nil
}

// RawDetails returns the upstream detail document untouched.
func (c *Client) RawDetails(ctx context.Context, mediaType models.MediaType, id string) ([]byte, error) {
	return c.get(ctx, "details", "/"+mediaType.TMDBPath()+"/"+url.PathEscape(id), nil)
}

// Discover lists titles matching f. Extra params (page, language, sort_by,
// include_adult) are passed through as-is.
func (c *Client) Discover(ctx context.Context, mediaType models.MediaType, f Filters, extra url.Values) (*models.Page, error) {
	params := DiscoverParams(mediaType, f)
	for k, vs := range extra {
		for _, v := range vs {
			params.Add(k, v)
		}
	}

	res, err := c.page(ctx, "discover", "/discover/"+mediaType.TMDBPath(), params)
	if err != nil {
		return nil, err
	}
	if mediaType == models.MediaTypeTVShow {
		res.Results = FilterEpisodes(res.Results, f)
	}
	return res, nil
}

// Trending lists titles trending over window ("day" or "week").
func (c *Client) Trending(ctx context.Context, mediaType models.MediaType, window string, extra url.Values) (*models.Page, error) {
	if window != "day" {
		window = "week"
	}
	return c.page(ctx, "trending", "/trending/"+mediaType.TMDBPath()+"/"+window, extra)
}

func (c *Client) page(ctx context.Context, endpoint, path string, params url.Values) (*models.Page, error) {
	body, err := c.get(ctx, endpoint, path, params)
	if err != nil {
		return nil, err
	}

	var res models.Page
	if err := jsonx.Unmarshal(body, &res); err != nil {
		return nil, fmt.Errorf("failed to decode %s response: %w", endpoint, err)
	}
	if res.Results == nil {
		res.Results = []models.MediaItem{}
	}
	return &res, nil
}

func (c *Client) get(ctx context.Context, endpoint, path string, params url.Values) ([]byte, error) {
	if c.token == "" {
		return nil, ErrNotConfigured
	}

	target := c.baseURL + path
	if len(params) > 0 {
		target += "?" + params.Encode()
	}

	if body, ok := c.memo.Get(target); ok {
		metrics.CacheLookups.WithLabelValues("tmdb", metrics.CacheResult(true)).Inc()
		return body, nil
	}
	metrics.CacheLookups.WithLabelValues("tmdb", metrics.CacheResult(false)).Inc()

	resp, err := c.httpClient.Send(ctx, http.MethodGet, target, nil, map[string]string{
		"Authorization": "Bearer " + c.token,
	})
	if err != nil {
		metrics.TMDBRequests.WithLabelValues(endpoint, "error").Inc()
		c.logger.Warn("metadata request failed", map[string]interface{}{
			"path":  path,
			"error": err.Error(),
		})
		return nil, fmt.Errorf("metadata request %s: %w", path, err)
	}
	metrics.TMDBRequests.WithLabelValues(endpoint, strconv.Itoa(resp.StatusCode)).Inc()

	if !resp.OK() {
		return nil, &StatusError{StatusCode: resp.StatusCode, Path: path, Body: string(resp.Body)}
	}

	if c.ttl > 0 {
		c.memo.SetWithTTL(target, resp.Body, int64(len(resp.Body)), c.ttl)
		c.memo.Wait()
	}
	return resp.Body, nil
}

func pageOrFirst(page int) int {
	if page < 1 {
		return 1
	}
	return page
}
