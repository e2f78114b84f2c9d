// internal/workers/recommendation/resolve-recommendations/handler.go
package resolverecommendations

import (
	"context"
	"fmt"
	"strings"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/sourcegraph/conc/iter"

	apperrors "cinesense/internal/common/errors"
	"cinesense/internal/common/genai"
	"cinesense/internal/common/jsonx"
	"cinesense/internal/common/logger"
	"cinesense/internal/common/metrics"
	"cinesense/internal/common/validation"
	"cinesense/internal/models"
)

const (
	TaskType = "resolve-recommendations"
)

// Catalog is the metadata lookup the resolver needs.
type Catalog interface {
	SearchMovies(ctx context.Context, title string, page int) ([]models.MediaItem, error)
	SearchShows(ctx context.Context, title string, page int) ([]models.MediaItem, error)
	Details(ctx context.Context, mediaType models.MediaType, id int64) (*models.MediaItem, error)
}

type Handler struct {
	config       *Config
	generator    genai.Generator
	catalog      Catalog
	schema       map[string]interface{}
	errorHandler *apperrors.ErrorHandler
	logger       logger.Logger
}

func NewHandler(config *Config, generator genai.Generator, catalog Catalog, log logger.Logger) *Handler {
	l := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       config,
		generator:    generator,
		catalog:      catalog,
		schema:       ResponseSchema(),
		errorHandler: apperrors.NewErrorHandler(l),
		logger:       l,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	var input Input
	if err := jsonx.UnmarshalFromString(job.Variables, &input); err != nil {
		h.errorHandler.HandleJobError(context.Background(), client, job,
			apperrors.NewInvalidRequestError("Invalid job variables", err.Error()))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	output, err := h.execute(ctx, &input)
	if err != nil {
		h.errorHandler.HandleJobError(ctx, client, job, err)
		return
	}

	h.completeJob(ctx, client, job, output)
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if strings.TrimSpace(input.Message) == "" {
		return nil, apperrors.NewEmptyInputError("Empty message")
	}

	raw, err := h.generator.GenerateStructured(ctx, BuildPrompt(input.Message, input.History), h.schema)
	if err != nil {
		return nil, apperrors.NewGenerationFailedError(err)
	}

	if result, vErr := validation.ValidateDocument(h.schema, raw); vErr == nil && !result.Valid {
		h.logger.Warn("model reply does not match schema", map[string]interface{}{
			"violations": result.GetErrorMessages(),
		})
	}

	greeting, drafts := ParseDrafts(raw)

	limit := h.config.Concurrency
	if limit < 1 {
		limit = 1
	}
	resolved := iter.Mapper[models.RecommendationDraft, models.ResolvedRecommendation]{
		MaxGoroutines: limit,
	}.Map(drafts, func(d *models.RecommendationDraft) models.ResolvedRecommendation {
		return h.resolve(ctx, *d)
	})

	h.logger.Info("recommendations resolved", map[string]interface{}{
		"drafts":   len(drafts),
		"greeting": greeting != "",
	})

	if resolved == nil {
		resolved = []models.ResolvedRecommendation{}
	}
	return &Output{Greeting: greeting, Recommendations: resolved}, nil
}

// resolve matches one draft against the catalog. Failures degrade the item
// to its title; they never drop the draft.
func (h *Handler) resolve(ctx context.Context, d models.RecommendationDraft) models.ResolvedRecommendation {
	kind := strings.ToLower(d.Type)

	var (
		mediaType models.MediaType
		search    func(context.Context, string, int) ([]models.MediaItem, error)
	)
	switch {
	case strings.Contains(kind, "movie"):
		mediaType, search = models.MediaTypeMovie, h.catalog.SearchMovies
	case strings.Contains(kind, "tv") || strings.Contains(kind, "show"):
		mediaType, search = models.MediaTypeTVShow, h.catalog.SearchShows
	}

	if search != nil {
		results, err := search(ctx, d.Title, 1)
		switch {
		case err != nil:
			h.logResolution(d, apperrors.NewResolutionFailedError(d.Title, err))
		case len(results) > 0 && results[0].ID != 0:
			item := models.TitleOnly(d.Title)
			if full, err := h.catalog.Details(ctx, mediaType, results[0].ID); err == nil && full != nil {
				item = *full
			} else if err != nil {
				h.logResolution(d, apperrors.NewResolutionFailedError(d.Title, err))
			}
			return models.ResolvedRecommendation{MediaType: mediaType, Reason: d.Reason, Item: item}
		}
	}

	fallback := models.MediaTypeMovie
	if strings.Contains(kind, "tv") {
		fallback = models.MediaTypeTVShow
	}
	return models.ResolvedRecommendation{MediaType: fallback, Reason: d.Reason, Item: models.TitleOnly(d.Title)}
}

func (h *Handler) logResolution(d models.RecommendationDraft, err *apperrors.StandardError) {
	h.logger.Warn("draft resolution degraded to title", map[string]interface{}{
		"title":     d.Title,
		"errorCode": string(err.Code),
		"error":     err.Details,
	})
}

func (h *Handler) completeJob(ctx context.Context, client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.errorHandler.HandleJobError(ctx, client, job, apperrors.NewInternalError(fmt.Errorf("encode output: %w", err)))
		return
	}

	if _, err := cmd.Send(ctx); err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"jobKey": job.Key,
			"error":  err.Error(),
		})
		return
	}
	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
