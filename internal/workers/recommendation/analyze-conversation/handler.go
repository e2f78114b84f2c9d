// internal/workers/recommendation/analyze-conversation/handler.go
package analyzeconversation

import (
	"context"
	"errors"
	"fmt"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"cinesense/internal/common/cache"
	apperrors "cinesense/internal/common/errors"
	"cinesense/internal/common/genai"
	"cinesense/internal/common/jsonx"
	"cinesense/internal/common/logger"
	"cinesense/internal/common/metrics"
	"cinesense/internal/models"
)

const (
	TaskType = "analyze-conversation"

	cacheNamespace = "analysis:"
)

var (
	ErrNilInput = errors.New("ANALYSIS_INPUT_MISSING")
)

type Handler struct {
	config       *Config
	generator    genai.Generator
	cache        cache.Store
	errorHandler *apperrors.ErrorHandler
	logger       logger.Logger
}

func NewHandler(config *Config, generator genai.Generator, store cache.Store, log logger.Logger) *Handler {
	l := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       config,
		generator:    generator,
		cache:        store,
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
	if input == nil {
		return nil, apperrors.NewInvalidRequestError("Missing analysis input", ErrNilInput.Error())
	}
	return &Output{Analysis: h.Analyze(ctx, input)}, nil
}

// Analyze never fails: a generation error yields the fail-safe result, which
// is not cached.
func (h *Handler) Analyze(ctx context.Context, input *Input) models.AnalysisResult {
	history := input.History
	if history == nil {
		history = []string{}
	}
	key := cacheNamespace + cache.Key(cacheKey{Message: input.Message, History: history})

	if cached, ok := cache.GetAs[models.AnalysisResult](ctx, h.cache, key); ok {
		metrics.CacheLookups.WithLabelValues("analysis", metrics.CacheResult(true)).Inc()
		if h.config.Debug {
			h.logger.Info("analysis cache hit", map[string]interface{}{"key": key})
		}
		return cached.Clone()
	}
	metrics.CacheLookups.WithLabelValues("analysis", metrics.CacheResult(false)).Inc()

	raw, err := h.generator.GenerateStructured(ctx, BuildPrompt(input.Message, history), nil)
	if err != nil {
		h.logFailure(input, apperrors.NewAnalysisFailedError(err))
		return models.FailSafeAnalysis()
	}

	result := Normalize(raw)
	h.cache.Set(ctx, key, result.Clone(), h.config.CacheTTL)

	h.logger.Info("conversation analyzed", map[string]interface{}{
		"intent":     result.Intent,
		"topics":     len(result.Topics),
		"confidence": result.Confidence,
	})
	return result
}

func (h *Handler) logFailure(input *Input, err *apperrors.StandardError) {
	h.logger.Warn("analysis failed, using fail-safe result", map[string]interface{}{
		"userId":    input.UserID,
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
