// internal/common/config/config.go
package config

// Config is the main application configuration struct.
type Config struct {
	App      AppConfig               `mapstructure:"app"`
	Server   ServerConfig            `mapstructure:"server"`
	Camunda  CamundaConfig           `mapstructure:"camunda"`
	Workers  map[string]WorkerConfig `mapstructure:"workers"`
	Cache    CacheConfig             `mapstructure:"cache"`
	Database DatabaseConfig          `mapstructure:"database"`
	GenAI    GenAIConfig             `mapstructure:"genai"`
	TMDB     TMDBConfig              `mapstructure:"tmdb"`
	Pipeline PipelineConfig          `mapstructure:"pipeline"`
	Logging  LoggingConfig           `mapstructure:"logging"`

	// EnvFile is the .env file that was loaded, if any.
	EnvFile string `mapstructure:"-"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type ServerConfig struct {
	Address         string          `mapstructure:"address"`
	ReadTimeout     int             `mapstructure:"read_timeout"`     // milliseconds
	WriteTimeout    int             `mapstructure:"write_timeout"`    // milliseconds
	ShutdownTimeout int             `mapstructure:"shutdown_timeout"` // milliseconds
	CORS            CORSConfig      `mapstructure:"cors"`
	RateLimit       RateLimitConfig `mapstructure:"rate_limit"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type RateLimitConfig struct {
	Requests int `mapstructure:"requests"`
	Window   int `mapstructure:"window"` // milliseconds
}

// CamundaConfig is optional; an empty broker address disables job workers.
type CamundaConfig struct {
	BrokerAddress  string `mapstructure:"broker_address"`
	MaxJobsActive  int    `mapstructure:"max_jobs_active"`
	Timeout        int    `mapstructure:"timeout"`         // milliseconds
	RequestTimeout int    `mapstructure:"request_timeout"` // milliseconds
	UseTLS         bool   `mapstructure:"use_tls"`
}

// WorkerConfig holds the core settings applicable to every worker.
type WorkerConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	MaxJobsActive int  `mapstructure:"max_jobs_active"`
	Timeout       int  `mapstructure:"timeout"`     // milliseconds
	MaxRetries    int  `mapstructure:"max_retries"` // For error handling
}

type CacheConfig struct {
	Backend   string `mapstructure:"backend"` // memory | redis
	KeyPrefix string `mapstructure:"key_prefix"`
}

type DatabaseConfig struct {
	Redis RedisConfig `mapstructure:"redis"`
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

// --- Generation Providers ---

type GenAIConfig struct {
	// Debug traces fallback attempts and cache hits (AI_FALLBACK_DEBUG=1).
	Debug    bool           `mapstructure:"debug"`
	Gemini   GeminiConfig   `mapstructure:"gemini"`
	Bytez    BytezConfig    `mapstructure:"bytez"`
	Fallback FallbackConfig `mapstructure:"fallback"`
	OpenAI   OpenAIConfig   `mapstructure:"openai"`
	Breaker  BreakerConfig  `mapstructure:"breaker"`
}

type GeminiConfig struct {
	APIKey      string  `mapstructure:"api_key"`
	Model       string  `mapstructure:"model"`
	BaseURL     string  `mapstructure:"base_url"`
	Temperature float64 `mapstructure:"temperature"`
	Timeout     int     `mapstructure:"timeout"` // milliseconds
	MaxRetries  int     `mapstructure:"max_retries"`
}

type BytezConfig struct {
	APIKey  string `mapstructure:"api_key"`
	APIURL  string `mapstructure:"api_url"`
	ModelID string `mapstructure:"model_id"`
	BaseURL string `mapstructure:"base_url"`
	Timeout int    `mapstructure:"timeout"` // milliseconds
}

// Enabled reports whether either Bytez credential is present.
func (b BytezConfig) Enabled() bool {
	return b.APIKey != "" || b.APIURL != ""
}

type FallbackConfig struct {
	APIURL  string `mapstructure:"api_url"`
	APIKey  string `mapstructure:"api_key"`
	Timeout int    `mapstructure:"timeout"` // milliseconds
}

type OpenAIConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
	Model   string `mapstructure:"model"`
	Timeout int    `mapstructure:"timeout"` // milliseconds
}

type BreakerConfig struct {
	MaxFailures int `mapstructure:"max_failures"`
	OpenTimeout int `mapstructure:"open_timeout"` // milliseconds
	Interval    int `mapstructure:"interval"`     // milliseconds
}

// --- Metadata Provider ---

type TMDBConfig struct {
	BaseURL      string `mapstructure:"base_url"`
	AccessToken  string `mapstructure:"access_token"`
	Timeout      int    `mapstructure:"timeout"`   // milliseconds
	CacheTTL     int    `mapstructure:"cache_ttl"` // milliseconds
	CacheMaxCost int64  `mapstructure:"cache_max_cost"`
}

// --- Pipeline ---

type PipelineConfig struct {
	AnalysisTTL        int `mapstructure:"analysis_ttl"` // seconds
	RerankTTL          int `mapstructure:"rerank_ttl"`   // seconds
	TopK               int `mapstructure:"top_k"`
	ResolveConcurrency int `mapstructure:"resolve_concurrency"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}
