// internal/common/config/loader.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

func Load() (*Config, error) {
	envFile := loadEnvFile()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath("../../configs")
	v.AddConfigPath(".")
	if root := findProjectRoot(); root != "" {
		v.AddConfigPath(filepath.Join(root, "configs"))
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	// config.<env>.yaml is optional
	v.SetConfigName(fmt.Sprintf("config.%s", env))
	_ = v.MergeInConfig()

	cfg, err := build(v)
	if err != nil {
		return nil, err
	}
	cfg.EnvFile = envFile
	if cfg.App.Environment == "" {
		cfg.App.Environment = env
	}
	return cfg, nil
}

func LoadFromFile(path string) (*Config, error) {
	envFile := loadEnvFile()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	cfg, err := build(v)
	if err != nil {
		return nil, err
	}
	cfg.EnvFile = envFile
	return cfg, nil
}

func build(v *viper.Viper) (*Config, error) {
	expandEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)
	overrideEmptyConfig(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// loadEnvFile loads the first .env it finds and returns its path.
func loadEnvFile() string {
	possiblePaths := []string{
		".env",
		"../.env",
		"../../.env",
		"../../../.env",
	}

	if rootDir := findProjectRoot(); rootDir != "" {
		possiblePaths = append(possiblePaths, filepath.Join(rootDir, ".env"))
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return path
			}
		}
	}
	return ""
}

func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return ""
}

func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		strVal, ok := v.Get(key).(string)
		if !ok {
			continue
		}
		if strings.Contains(strVal, "${") || (strings.HasPrefix(strVal, "$") && len(strVal) > 1) {
			v.Set(key, os.ExpandEnv(strVal))
		}
	}
}

// overrideEmptyConfig fills still-empty fields from the well-known variable names.
func overrideEmptyConfig(cfg *Config) {
	setIfEmpty(&cfg.GenAI.Gemini.APIKey, "GEMINI_API_KEY")
	if val := os.Getenv("GEMINI_MODEL"); val != "" {
		cfg.GenAI.Gemini.Model = val
	}

	setIfEmpty(&cfg.GenAI.Bytez.APIKey, "BYTEZ_API_KEY")
	setIfEmpty(&cfg.GenAI.Bytez.APIURL, "BYTEZ_API_URL")
	if val := os.Getenv("BYTEZ_MODEL_ID"); val != "" {
		cfg.GenAI.Bytez.ModelID = val
	}

	setIfEmpty(&cfg.GenAI.Fallback.APIURL, "FALLBACK_API_URL")
	setIfEmpty(&cfg.GenAI.Fallback.APIKey, "FALLBACK_API_KEY")

	setIfEmpty(&cfg.GenAI.OpenAI.APIKey, "OPENAI_API_KEY")
	setIfEmpty(&cfg.GenAI.OpenAI.BaseURL, "OPENAI_BASE_URL")
	if val := os.Getenv("OPENAI_MODEL"); val != "" {
		cfg.GenAI.OpenAI.Model = val
	}

	if !cfg.GenAI.Debug && os.Getenv("AI_FALLBACK_DEBUG") == "1" {
		cfg.GenAI.Debug = true
	}

	setIfEmpty(&cfg.TMDB.AccessToken, "TMDB_ACCESS_TOKEN")
	if val := os.Getenv("TMDB_BASE_URL"); val != "" {
		cfg.TMDB.BaseURL = val
	} else if val := os.Getenv("TMDB_BASE"); val != "" {
		cfg.TMDB.BaseURL = val
	}

	if val := os.Getenv("REDIS_ADDRESS"); val != "" {
		cfg.Database.Redis.Address = val
	}
	setIfEmpty(&cfg.Camunda.BrokerAddress, "ZEEBE_ADDRESS")
}

func setIfEmpty(field *string, envName string) {
	if *field != "" {
		return
	}
	if val := os.Getenv(envName); val != "" {
		*field = val
	}
}

func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "cinesense"
	}

	// Server defaults
	if cfg.Server.Address == "" {
		cfg.Server.Address = ":8080"
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 15000
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 120000
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 30000
	}
	if len(cfg.Server.CORS.AllowedOrigins) == 0 {
		cfg.Server.CORS.AllowedOrigins = []string{"*"}
	}
	if cfg.Server.RateLimit.Requests == 0 {
		cfg.Server.RateLimit.Requests = 30
	}
	if cfg.Server.RateLimit.Window == 0 {
		cfg.Server.RateLimit.Window = 60000
	}

	// Camunda defaults
	if cfg.Camunda.MaxJobsActive == 0 {
		cfg.Camunda.MaxJobsActive = 10
	}
	if cfg.Camunda.Timeout == 0 {
		cfg.Camunda.Timeout = 30000
	}
	if cfg.Camunda.RequestTimeout == 0 {
		cfg.Camunda.RequestTimeout = 30000
	}

	for key, worker := range cfg.Workers {
		if worker.MaxJobsActive == 0 {
			worker.MaxJobsActive = 5
		}
		if worker.Timeout == 0 {
			worker.Timeout = 60000
		}
		if worker.MaxRetries == 0 {
			worker.MaxRetries = 3
		}
		cfg.Workers[key] = worker
	}

	// Cache defaults
	if cfg.Cache.Backend == "" {
		cfg.Cache.Backend = "memory"
	}
	if cfg.Cache.KeyPrefix == "" {
		cfg.Cache.KeyPrefix = "cinesense:cache:"
	}
	if cfg.Database.Redis.PoolSize == 0 {
		cfg.Database.Redis.PoolSize = 10
	}

	// Generation defaults
	if cfg.GenAI.Gemini.Model == "" {
		cfg.GenAI.Gemini.Model = "gemini-2.5-pro"
	}
	if cfg.GenAI.Gemini.BaseURL == "" {
		cfg.GenAI.Gemini.BaseURL = "https://generativelanguage.googleapis.com"
	}
	if cfg.GenAI.Gemini.Temperature == 0 {
		cfg.GenAI.Gemini.Temperature = 0.2
	}
	if cfg.GenAI.Gemini.Timeout == 0 {
		cfg.GenAI.Gemini.Timeout = 60000
	}
	if cfg.GenAI.Bytez.ModelID == "" {
		cfg.GenAI.Bytez.ModelID = "Qwen/Qwen3-4B-Instruct-2507"
	}
	if cfg.GenAI.Bytez.BaseURL == "" {
		cfg.GenAI.Bytez.BaseURL = "https://api.bytez.com/models/v2"
	}
	if cfg.GenAI.Bytez.Timeout == 0 {
		cfg.GenAI.Bytez.Timeout = 60000
	}
	if cfg.GenAI.Fallback.Timeout == 0 {
		cfg.GenAI.Fallback.Timeout = 60000
	}
	if cfg.GenAI.OpenAI.Model == "" {
		cfg.GenAI.OpenAI.Model = "gpt-4o-mini"
	}
	if cfg.GenAI.OpenAI.Timeout == 0 {
		cfg.GenAI.OpenAI.Timeout = 60000
	}
	if cfg.GenAI.Breaker.MaxFailures == 0 {
		cfg.GenAI.Breaker.MaxFailures = 5
	}
	if cfg.GenAI.Breaker.OpenTimeout == 0 {
		cfg.GenAI.Breaker.OpenTimeout = 30000
	}
	if cfg.GenAI.Breaker.Interval == 0 {
		cfg.GenAI.Breaker.Interval = 60000
	}

	// Metadata defaults
	if cfg.TMDB.BaseURL == "" {
		cfg.TMDB.BaseURL = "https://api.themoviedb.org/3"
	}
	if cfg.TMDB.Timeout == 0 {
		cfg.TMDB.Timeout = 10000
	}
	if cfg.TMDB.CacheTTL == 0 {
		cfg.TMDB.CacheTTL = 600000
	}
	if cfg.TMDB.CacheMaxCost == 0 {
		cfg.TMDB.CacheMaxCost = 64 << 20
	}

	// Pipeline defaults
	if cfg.Pipeline.AnalysisTTL == 0 {
		cfg.Pipeline.AnalysisTTL = 300
	}
	if cfg.Pipeline.RerankTTL == 0 {
		cfg.Pipeline.RerankTTL = 120
	}
	if cfg.Pipeline.TopK == 0 {
		cfg.Pipeline.TopK = 10
	}
	if cfg.Pipeline.ResolveConcurrency == 0 {
		cfg.Pipeline.ResolveConcurrency = 4
	}

	// Logging defaults
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stdout"
	}
}

func validateConfig(cfg *Config) error {
	switch cfg.Cache.Backend {
	case "memory":
	case "redis":
		if cfg.Database.Redis.Address == "" {
			return fmt.Errorf("database.redis.address is required when cache.backend is redis")
		}
	default:
		return fmt.Errorf("cache.backend must be memory or redis, got %q", cfg.Cache.Backend)
	}

	if cfg.Pipeline.AnalysisTTL < 0 || cfg.Pipeline.RerankTTL < 0 {
		return fmt.Errorf("pipeline ttls must be positive")
	}
	if cfg.Pipeline.TopK < 0 {
		return fmt.Errorf("pipeline.top_k must be positive")
	}
	if cfg.Pipeline.ResolveConcurrency < 0 {
		return fmt.Errorf("pipeline.resolve_concurrency must be positive")
	}

	return nil
}

func GetDuration(milliseconds int) time.Duration {
	return time.Duration(milliseconds) * time.Millisecond
}

func GetSeconds(seconds int) time.Duration {
	return time.Duration(seconds) * time.Second
}

func GetWorkerConfig(cfg *Config, workerName string) WorkerConfig {
	if worker, exists := cfg.Workers[workerName]; exists {
		return worker
	}

	return WorkerConfig{
		Enabled:       true,
		MaxJobsActive: 5,
		Timeout:       60000,
		MaxRetries:    3,
	}
}

func IsWorkerEnabled(cfg *Config, workerName string) bool {
	if worker, exists := cfg.Workers[workerName]; exists {
		return worker.Enabled
	}
	return true
}
