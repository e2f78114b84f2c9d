// internal/workers/recommendation/rerank-candidates/config.go
package rerankcandidates

import (
	"time"

	"cinesense/internal/common/config"
)

type Config struct {
	Timeout     time.Duration
	CacheTTL    time.Duration
	DefaultTopK int
	SlowAfter   time.Duration
	Debug       bool
}

func LoadConfig(cfg *config.Config) *Config {
	return &Config{
		Timeout:     config.GetDuration(config.GetWorkerConfig(cfg, TaskType).Timeout),
		CacheTTL:    config.GetSeconds(cfg.Pipeline.RerankTTL),
		DefaultTopK: cfg.Pipeline.TopK,
		SlowAfter:   500 * time.Millisecond,
		Debug:       cfg.GenAI.Debug,
	}
}
