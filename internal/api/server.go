// internal/api/server.go
package api

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	analyzeconversation "cinesense/internal/workers/recommendation/analyze-conversation"
	resolverecommendations "cinesense/internal/workers/recommendation/resolve-recommendations"

	"cinesense/internal/common/config"
	"cinesense/internal/common/logger"
	"cinesense/internal/common/observability"
	"cinesense/internal/common/tmdb"
	"cinesense/internal/models"
	"cinesense/pkg/registry"
)

type Analyzer interface {
	Analyze(ctx context.Context, input *analyzeconversation.Input) models.AnalysisResult
}

type Resolver interface {
	Execute(ctx context.Context, input *resolverecommendations.Input) (*resolverecommendations.Output, error)
}

type Reranker interface {
	Rerank(ctx context.Context, candidates []models.ResolvedRecommendation, analysis models.AnalysisResult, topK int) []models.ScoredCandidate
}

// Catalog is the browse surface of the metadata client.
type Catalog interface {
	Configured() bool
	RawDetails(ctx context.Context, mediaType models.MediaType, id string) ([]byte, error)
	Search(ctx context.Context, mediaType models.MediaType, query string, page int) (*models.Page, error)
	Trending(ctx context.Context, mediaType models.MediaType, window string, extra url.Values) (*models.Page, error)
	Discover(ctx context.Context, mediaType models.MediaType, f tmdb.Filters, extra url.Values) (*models.Page, error)
}

// ReadinessCheck reports whether a dependency can serve traffic.
type ReadinessCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

type Dependencies struct {
	Analyzer      Analyzer
	Resolver      Resolver
	Reranker      Reranker
	Catalog       Catalog
	Checks        []ReadinessCheck
	Activities    *registry.ActivityRegistry
	Observability *observability.Observability
	Logger        logger.Logger
}

type Server struct {
	config *config.ServerConfig
	topK   int
	deps   Dependencies
	logger logger.Logger
}

func NewServer(cfg *config.Config, deps Dependencies) *Server {
	log := deps.Logger
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &Server{
		config: &cfg.Server,
		topK:   cfg.Pipeline.TopK,
		deps:   deps,
		logger: log.WithFields(map[string]interface{}{"component": "api"}),
	}
}

// Handler builds the router with the full middleware stack.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.Recoverer)
	r.Use(requestID)
	r.Use(s.accessLog)
	r.Use(s.cors())

	r.Get("/health", s.health)
	r.Get("/ready", s.ready)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/activities", s.activities)

	r.Group(func(r chi.Router) {
		r.Use(s.rateLimit())

		r.Post("/chat", s.chat)
		r.Post("/analyze", s.analyze)
		r.Post("/rerank", s.rerank)
	})

	r.Route("/browse", func(r chi.Router) {
		r.Get("/filters", s.browseFilters)
		r.Get("/movies", s.browseList(models.MediaTypeMovie))
		r.Get("/shows", s.browseList(models.MediaTypeTVShow))
		r.Get("/movies/{id}", s.browseDetail(models.MediaTypeMovie))
		r.Get("/shows/{id}", s.browseDetail(models.MediaTypeTVShow))
	})

	return r
}

// HTTPServer wraps Handler in an http.Server using the configured timeouts.
func (s *Server) HTTPServer() *http.Server {
	return &http.Server{
		Addr:         s.config.Address,
		Handler:      s.Handler(),
		ReadTimeout:  time.Duration(s.config.ReadTimeout) * time.Millisecond,
		WriteTimeout: time.Duration(s.config.WriteTimeout) * time.Millisecond,
	}
}
