// internal/common/camunda/worker.go
package camunda

import (
	"context"
	"sync"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"

	"cinesense/internal/common/config"
	apperrors "cinesense/internal/common/errors"
	"cinesense/internal/common/jsonx"
	"cinesense/internal/common/logger"
	"cinesense/internal/common/metrics"
	"cinesense/internal/common/observability"
	"cinesense/pkg/registry"
)

// Registry opens job workers and closes them together on shutdown.
type Registry struct {
	client     zbc.Client
	obs        *observability.Observability
	activities *registry.ActivityRegistry
	logger     logger.Logger
	mu         sync.Mutex
	workers    map[string]worker.JobWorker
}

func NewRegistry(client zbc.Client, obs *observability.Observability, log logger.Logger) *Registry {
	return &Registry{
		client:  client,
		obs:     obs,
		logger:  log,
		workers: make(map[string]worker.JobWorker),
	}
}

// WithActivities makes Register check job variables against each
// activity's input schema before the handler runs.
func (r *Registry) WithActivities(activities *registry.ActivityRegistry) *Registry {
	r.activities = activities
	return r
}

// Register opens a worker for taskType unless it is disabled. It reports
// whether a worker was started.
func (r *Registry) Register(taskType string, wcfg config.WorkerConfig, handler worker.JobHandler) bool {
	if !wcfg.Enabled {
		r.logger.Info("worker disabled", map[string]interface{}{"taskType": taskType})
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.workers[taskType]; exists {
		r.logger.Warn("worker already registered", map[string]interface{}{"taskType": taskType})
		return false
	}

	maxJobs := wcfg.MaxJobsActive
	if maxJobs <= 0 {
		maxJobs = 5
	}

	if activity, ok := r.activities.Find(taskType); ok {
		handler = ValidateInput(activity, r.logger, handler)
	}

	r.workers[taskType] = r.client.NewJobWorker().
		JobType(taskType).
		Handler(Instrument(taskType, r.obs, handler)).
		MaxJobsActive(maxJobs).
		Timeout(config.GetDuration(wcfg.Timeout)).
		Open()

	r.logger.Info("worker started", map[string]interface{}{
		"taskType":      taskType,
		"maxJobsActive": maxJobs,
		"timeout_ms":    wcfg.Timeout,
	})
	return true
}

// TaskTypes lists the registered workers.
func (r *Registry) TaskTypes() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.workers))
	for t := range r.workers {
		out = append(out, t)
	}
	return out
}

// Close stops polling and waits for in-flight jobs to finish.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for taskType, w := range r.workers {
		w.Close()
		w.AwaitClose()
		r.logger.Info("worker stopped", map[string]interface{}{"taskType": taskType})
	}
	r.workers = make(map[string]worker.JobWorker)
}

// Instrument records job counts and durations around handler.
func Instrument(taskType string, obs *observability.Observability, handler worker.JobHandler) worker.JobHandler {
	return func(client worker.JobClient, job entities.Job) {
		active := metrics.WorkerJobsActive.WithLabelValues(taskType)
		active.Inc()
		defer active.Dec()

		start := time.Now()
		handler(client, job)
		elapsed := time.Since(start)

		obs.RecordJobProcessed(context.Background(), taskType, "handled")
		obs.RecordJobDuration(context.Background(), taskType, elapsed, "handled")
		metrics.WorkerJobDuration.WithLabelValues(taskType).Observe(elapsed.Seconds())
	}
}

// ValidateInput rejects jobs whose variables do not match the activity's
// input schema with a non-retryable INVALID_REQUEST.
func ValidateInput(activity *registry.Activity, log logger.Logger, handler worker.JobHandler) worker.JobHandler {
	errorHandler := apperrors.NewErrorHandler(log)
	return func(client worker.JobClient, job entities.Job) {
		var variables interface{}
		if err := jsonx.UnmarshalFromString(job.Variables, &variables); err != nil {
			errorHandler.HandleJobError(context.Background(), client, job,
				apperrors.NewInvalidRequestError("Invalid job variables", err.Error()))
			return
		}

		result, err := activity.ValidateInput(variables)
		if err == nil && !result.Valid {
			errorHandler.HandleJobError(context.Background(), client, job,
				apperrors.NewInvalidRequestError("Job variables do not match "+activity.TaskType+" input schema", result.Error()))
			return
		}
		if err != nil {
			log.Warn("input schema check skipped", map[string]interface{}{
				"taskType": activity.TaskType,
				"error":    err.Error(),
			})
		}
		handler(client, job)
	}
}
