// internal/workers/recommendation/rerank-candidates/handler.go
package rerankcandidates

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"cinesense/internal/common/cache"
	apperrors "cinesense/internal/common/errors"
	"cinesense/internal/common/jsonx"
	"cinesense/internal/common/logger"
	"cinesense/internal/common/metrics"
	"cinesense/internal/models"
)

const (
	TaskType = "rerank-candidates"

	cacheNamespace = "rerank:"
	defaultTopK    = 10
)

type Handler struct {
	config       *Config
	cache        cache.Store
	now          func() time.Time
	errorHandler *apperrors.ErrorHandler
	logger       logger.Logger
}

func NewHandler(config *Config, store cache.Store, log logger.Logger) *Handler {
	l := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       config,
		cache:        store,
		now:          time.Now,
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

	output := h.execute(ctx, &input)

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

func (h *Handler) execute(ctx context.Context, input *Input) *Output {
	return &Output{Ranked: h.Rerank(ctx, input.Candidates, input.Analysis, input.TopK)}
}

// Rerank never fails. A non-positive topK means the configured default.
func (h *Handler) Rerank(ctx context.Context, candidates []models.ResolvedRecommendation, analysis models.AnalysisResult, topK int) []models.ScoredCandidate {
	if topK <= 0 {
		topK = h.config.DefaultTopK
	}
	if topK <= 0 {
		topK = defaultTopK
	}

	key := cacheNamespace + cache.Key(keyFor(candidates, analysis, topK))
	if cached, ok := cache.GetAs[[]models.ScoredCandidate](ctx, h.cache, key); ok && len(cached) > 0 {
		metrics.CacheLookups.WithLabelValues("rerank", metrics.CacheResult(true)).Inc()
		if h.config.Debug {
			h.logger.Info("rerank cache hit", map[string]interface{}{
				"key":   key,
				"items": min(len(cached), topK),
			})
		}
		if len(cached) > topK {
			cached = cached[:topK]
		}
		return slices.Clone(cached)
	}
	metrics.CacheLookups.WithLabelValues("rerank", metrics.CacheResult(false)).Inc()

	start := time.Now()
	ranked := Rank(candidates, analysis, topK, h.now())
	elapsed := time.Since(start)
	metrics.RerankDuration.Observe(elapsed.Seconds())

	if elapsed > h.config.SlowAfter {
		h.logger.Warn("slow rerank", map[string]interface{}{
			"candidates": len(candidates),
			"elapsedMs":  elapsed.Milliseconds(),
		})
	}

	h.cache.Set(ctx, key, slices.Clone(ranked), h.config.CacheTTL)
	if h.config.Debug {
		h.logger.Info("cached rerank result", map[string]interface{}{"key": key, "items": len(ranked)})
	}
	return ranked
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input), nil
}

// keyFor identifies candidates by id, or by their JSON when unresolved.
func keyFor(candidates []models.ResolvedRecommendation, a models.AnalysisResult, topK int) cacheKey {
	ids := make([]string, len(candidates))
	for i, c := range candidates {
		if c.Item.ID != 0 {
			ids[i] = strconv.FormatInt(c.Item.ID, 10)
			continue
		}
		s, err := jsonx.MarshalToString(c.Item)
		if err != nil {
			s = c.Item.DisplayTitle()
		}
		ids[i] = s
	}

	return cacheKey{
		IDs:             strings.Join(ids, ","),
		Intent:          a.Intent,
		Topics:          a.Topics,
		Personalization: a.PersonalizationScore,
		Sentiment:       a.Sentiment.Score,
		ExplicitFilters: a.ExplicitFilters,
		Safety:          a.Safety,
		TopK:            topK,
	}
}
