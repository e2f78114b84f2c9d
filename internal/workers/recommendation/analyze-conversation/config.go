// internal/workers/recommendation/analyze-conversation/config.go
package analyzeconversation

import (
	"time"

	"cinesense/internal/common/config"
)

type Config struct {
	Timeout  time.Duration
	CacheTTL time.Duration
	Debug    bool
}

func LoadConfig(cfg *config.Config) *Config {
	return &Config{
		Timeout:  config.GetDuration(config.GetWorkerConfig(cfg, TaskType).Timeout),
		CacheTTL: config.GetSeconds(cfg.Pipeline.AnalysisTTL),
		Debug:    cfg.GenAI.Debug,
	}
}
