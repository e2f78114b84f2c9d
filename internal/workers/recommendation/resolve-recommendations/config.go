// internal/workers/recommendation/resolve-recommendations/config.go
package resolverecommendations

import (
	"time"

	"cinesense/internal/common/config"
)

type Config struct {
	Timeout     time.Duration
	Concurrency int
}

func LoadConfig(cfg *config.Config) *Config {
	return &Config{
		Timeout:     config.GetDuration(config.GetWorkerConfig(cfg, TaskType).Timeout),
		Concurrency: cfg.Pipeline.ResolveConcurrency,
	}
}
